package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"gearshed/internal/domain"
	"gearshed/internal/mail"
	"gearshed/internal/redis"
	"gearshed/internal/repository"
	"gearshed/internal/util"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidResetToken  = errors.New("invalid reset token")
	ErrInternalError      = errors.New("internal server error")
)

const (
	resetTokenLifetime = 15 * time.Minute
	resetTokenBurnTTL  = time.Hour
)

type RegisterInput struct {
	Email      string `valid:"required,email"`
	Password   string `valid:"required,length(8|72)"`
	FirstName  string `valid:"required,length(1|100)"`
	MiddleName string `valid:"-"`
	LastName   string `valid:"required,length(1|100)"`
	AvatarURL  string `valid:"-"`
}

type LoginInput struct {
	Email    string `valid:"required,email"`
	Password string `valid:"required"`
}

type AuthService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	rdb         *goredis.Client
	mailer      mail.Sender
	sessionKey  string
	clientURL   string
}

func NewAuthService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	rdb *goredis.Client,
	mailer mail.Sender,
	sessionKey string,
	clientURL string,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		rdb:         rdb,
		mailer:      mailer,
		sessionKey:  sessionKey,
		clientURL:   clientURL,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	type registerValidator RegisterInput
	if _, err := govalidator.ValidateStruct(registerValidator(input)); err != nil {
		return nil, ErrInvalidInput
	}

	hashedPassword, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, ErrInternalError
	}

	user := &domain.User{
		Email:     input.Email,
		Password:  hashedPassword,
		FirstName: input.FirstName,
		Role:      domain.RoleBorrower,
	}
	if input.MiddleName != "" {
		user.MiddleName = &input.MiddleName
	}
	if input.LastName != "" {
		user.LastName = &input.LastName
	}
	if input.AvatarURL != "" {
		user.AvatarURL = &input.AvatarURL
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, ErrInternalError
	}
	return user, nil
}

// Login checks the credentials and opens a session. The returned token
// is shown to the caller exactly once; only its hash is stored.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.Session, string, error) {
	type loginValidator LoginInput
	if _, err := govalidator.ValidateStruct(loginValidator(input)); err != nil {
		return nil, nil, "", ErrInvalidInput
	}

	user, err := s.userRepo.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, "", ErrInvalidCredentials
		}
		return nil, nil, "", ErrInternalError
	}

	if err := util.CheckPassword(user.Password, input.Password); err != nil {
		return nil, nil, "", ErrInvalidCredentials
	}

	token, err := util.GenerateSessionToken()
	if err != nil {
		return nil, nil, "", ErrInternalError
	}

	session := &domain.Session{
		ID:        util.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(domain.SessionLifetime),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, nil, "", ErrInternalError
	}

	return user, session, token, nil
}

// ValidateSession resolves a token to its user. Expired sessions are
// deleted on sight; sessions close to expiry get their lifetime pushed
// out again.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.User, *domain.Session, error) {
	session, err := s.sessionRepo.FindByID(util.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil, ErrSessionExpired
		}
		return nil, nil, ErrInternalError
	}

	now := time.Now()
	if session.Expired(now) {
		if err := s.sessionRepo.Delete(session.ID); err != nil {
			log.Printf("delete expired session: %v", err)
		}
		return nil, nil, ErrSessionExpired
	}

	if session.NeedsRenewal(now) {
		session.ExpiresAt = now.Add(domain.SessionLifetime)
		if err := s.sessionRepo.UpdateExpiry(session.ID, session.ExpiresAt); err != nil {
			return nil, nil, ErrInternalError
		}
	}

	user, err := s.userRepo.FindByID(session.UserID)
	if err != nil {
		return nil, nil, ErrInternalError
	}
	return user, session, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessionRepo.Delete(util.HashToken(token))
}

// RequestPasswordReset mails a signed reset link when the email is
// known. Callers always get a nil error for unknown addresses so the
// endpoint cannot be used to probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return ErrInternalError
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(resetTokenLifetime).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.sessionKey))
	if err != nil {
		return ErrInternalError
	}

	link := fmt.Sprintf("%spassword-reset?token=%s", s.clientURL, token)
	body := fmt.Sprintf(
		"Hi %s,\n\nA password reset was requested for your account. Open the link below within 15 minutes to choose a new password:\n\n%s\n\nIf you did not request this, you can ignore this message.\n",
		user.FirstName, link,
	)
	if err := s.mailer.Send(user.Email, "Password reset", body); err != nil {
		log.Printf("send password reset mail: %v", err)
		return ErrInternalError
	}
	return nil
}

// ResetPassword verifies a reset token, burns its id so it cannot be
// replayed, and rehashes the password. Every live session of the user
// is dropped.
func (s *AuthService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrInvalidInput
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.sessionKey), nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidResetToken
	}

	sub, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil || jti == "" {
		return ErrInvalidResetToken
	}

	fresh, err := redis.BurnToken(ctx, s.rdb, jti, resetTokenBurnTTL)
	if err != nil {
		return ErrInternalError
	}
	if !fresh {
		return ErrInvalidResetToken
	}

	hashedPassword, err := util.HashPassword(newPassword)
	if err != nil {
		return ErrInternalError
	}
	if err := s.userRepo.UpdatePassword(userID, hashedPassword); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return ErrInternalError
	}

	if err := s.sessionRepo.DeleteByUserID(userID); err != nil {
		log.Printf("drop sessions after password reset: %v", err)
	}
	return nil
}
