package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Envelope is the wire shape of every response: payload plus the HTTP
// code and a human-readable message repeated in the body.
type Envelope struct {
	Data    interface{} `json:"data"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
}

func JSON(c echo.Context, status int, data interface{}, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return c.JSON(status, Envelope{Data: data, Code: status, Message: message})
}

func OK(c echo.Context, data interface{}) error {
	return JSON(c, http.StatusOK, data, "")
}

func Created(c echo.Context, data interface{}) error {
	return JSON(c, http.StatusCreated, data, "")
}

func ErrUnauthorized(c echo.Context, message string) error {
	if message == "" {
		message = "unauthorized"
	}
	return JSON(c, http.StatusUnauthorized, nil, message)
}

func ErrForbidden(c echo.Context, message string) error {
	if message == "" {
		message = "forbidden"
	}
	return JSON(c, http.StatusForbidden, nil, message)
}

func ErrNotFound(c echo.Context, message string) error {
	if message == "" {
		message = "not found"
	}
	return JSON(c, http.StatusNotFound, nil, message)
}

func ErrBadRequest(c echo.Context, message string) error {
	if message == "" {
		message = "invalid request"
	}
	return JSON(c, http.StatusBadRequest, nil, message)
}

func ErrConflict(c echo.Context, message string) error {
	if message == "" {
		message = "conflict"
	}
	return JSON(c, http.StatusConflict, nil, message)
}

func ErrInternalServerError(c echo.Context) error {
	return JSON(c, http.StatusInternalServerError, nil, "internal server error")
}

func intFormValue(c echo.Context, name string) (int, error) {
	return strconv.Atoi(c.FormValue(name))
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
