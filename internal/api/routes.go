package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"

	"gearshed/internal/api/handlers"
	"gearshed/internal/api/middleware"
	"gearshed/internal/api/services"
	"gearshed/internal/config"
	"gearshed/internal/domain"
	"gearshed/internal/mail"
	"gearshed/internal/redis"
	"gearshed/internal/repository"
	"gearshed/internal/upload"
)

const idempotencyTTL = 24 * time.Hour

func SetupRoutes(e *echo.Echo, db *repository.Database, rdb *goredis.Client, cfg *config.Config) {
	e.GET("/health", healthCheck)

	e.Validator = NewValidator()

	uploads := upload.NewStore(cfg.UploadDir, cfg.PublicURL)
	e.Static("/uploads", uploads.Dir())

	broker := redis.NewBroker(rdb)
	mailer := mail.NewSMTPSender(cfg)
	scorer := services.NewAnomalyService(
		repository.NewBorrowRepository(db),
		repository.NewAnomalyRepository(db),
		broker,
		cfg.MLService,
		cfg.Timezone,
	)

	authHandler := handlers.NewAuthHandler(db, rdb, mailer, uploads, cfg.SessionKey, cfg.ClientURL)
	authGroup := e.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/sessions", authHandler.GetSession)
	authGroup.POST("/password-reset-request", authHandler.RequestPasswordReset)
	authGroup.POST("/password-reset", authHandler.ResetPassword)

	eventsHandler := handlers.NewEventsHandler(broker)
	e.GET("/api/events", eventsHandler.Stream)

	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.SessionAuth(authHandler.Service()))
	apiGroup.Use(middleware.Idempotency(redis.NewIdempotencyStore(rdb, idempotencyTTL)))

	apiGroup.POST("/auth/logout", authHandler.Logout)

	userHandler := handlers.NewUserHandler(db, uploads)
	apiGroup.GET("/users", userHandler.List)
	apiGroup.GET("/users/:id", userHandler.Get)
	apiGroup.PATCH("/users/:id", userHandler.Update)

	managerOnly := middleware.RequireRole(domain.RoleEquipmentManager)

	equipmentHandler := handlers.NewEquipmentHandler(db, rdb, broker, uploads)
	apiGroup.GET("/equipments", equipmentHandler.List)
	apiGroup.GET("/equipments/:id", equipmentHandler.Get)
	apiGroup.GET("/equipment-names", equipmentHandler.Names)
	apiGroup.POST("/equipments", equipmentHandler.Create, managerOnly)
	apiGroup.PATCH("/equipments/:id", equipmentHandler.Update, managerOnly)
	apiGroup.POST("/equipments/:id/reallocate", equipmentHandler.Reallocate, managerOnly)

	borrowHandler := handlers.NewBorrowHandler(db, broker, scorer)
	apiGroup.POST("/borrow-requests", borrowHandler.Create)
	apiGroup.GET("/borrow-requests", borrowHandler.List)
	apiGroup.PATCH("/borrow-requests/:id", borrowHandler.Update, managerOnly)
	apiGroup.GET("/claim-tokens/:code", borrowHandler.ResolveClaimToken, managerOnly)
	apiGroup.GET("/borrow-history", borrowHandler.History)
	apiGroup.GET("/borrowed-items", borrowHandler.BorrowedItems)

	returnHandler := handlers.NewReturnHandler(db, broker)
	apiGroup.POST("/return-requests", returnHandler.Create)
	apiGroup.GET("/return-requests", returnHandler.List)
	apiGroup.GET("/return-requests/:id", returnHandler.Get)
	apiGroup.PATCH("/return-requests/:id", returnHandler.Confirm, managerOnly)

	anomalyHandler := handlers.NewAnomalyHandler(scorer)
	apiGroup.PATCH("/borrow-requests/:id/anomaly", anomalyHandler.MarkFalsePositive, managerOnly)
}

func healthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
