package middleware

import (
	"bytes"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"gearshed/internal/redis"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a mutating request
// repeats an Idempotency-Key, so a client retry after a dropped
// response cannot double-submit. Only successful JSON responses are
// stored; requests without the header pass straight through.
func Idempotency(store *redis.IdempotencyStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(IdempotencyKeyHeader)
			if key == "" || c.Request().Method == http.MethodGet {
				return next(c)
			}

			ctx := c.Request().Context()
			key = c.Request().Method + ":" + c.Path() + ":" + key

			stored, err := store.Get(ctx, key)
			if err != nil {
				log.Printf("idempotency lookup: %v", err)
			}
			if stored != nil {
				return c.JSONBlob(stored.Status, stored.Body)
			}

			writer := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = writer

			if err := next(c); err != nil {
				return err
			}

			if writer.status < http.StatusInternalServerError {
				if err := store.Set(ctx, key, writer.status, writer.body.Bytes()); err != nil {
					log.Printf("idempotency store: %v", err)
				}
			}
			return nil
		}
	}
}
