package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gearshed/internal/redis"
)

const heartbeatInterval = 15 * time.Second

type EventsHandler struct {
	broker *redis.Broker
}

func NewEventsHandler(broker *redis.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

// Stream godoc
// @Summary Subscribe to invalidation events
// @Description Server-sent events: equipment:create, equipment:anomaly, return-request:confirm.
// @Tags events
// @Produce text/event-stream
// @Success 200
// @Router /events [get]
func (h *EventsHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()

	events, closeSub, err := h.broker.Subscribe(ctx)
	if err != nil {
		return ErrInternalServerError(c)
	}
	defer closeSub()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(res, "event: %s\n", event.Event); err != nil {
				return nil
			}
			data := []byte(event.Data)
			if len(data) == 0 {
				data = []byte("{}")
			}
			if _, err := fmt.Fprintf(res, "data: %s\n\n", data); err != nil {
				return nil
			}
			res.Flush()

		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
