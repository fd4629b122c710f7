// Package context carries the request-scoped values the HTTP layer hands to
// services: request id, logger and the authenticated principal.
package context

import (
	"context"
	"log/slog"

	"fintrack/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderXRequestID is the HTTP header name for request ID.
const HeaderXRequestID = "X-Request-Id"

// key indexes a value stored both on echo.Context and on the request's
// context.Context. The echo side uses its string name.
type key int

const (
	keyRequestID key = iota
	keyLogger
	keyUserID
	keyRole
)

var keyNames = [...]string{
	keyRequestID: "request_id",
	keyLogger:    "logger",
	keyUserID:    "user_id",
	keyRole:      "role",
}

func (k key) String() string {
	return keyNames[k]
}

// set stores value under k on both carriers.
func set(c echo.Context, k key, value any) {
	c.Set(k.String(), value)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), k, value)))
}

// BindRequest attaches the request id and a logger tagged with it. A nil
// logger stores only the id.
func BindRequest(c echo.Context, requestID string, logger *slog.Logger) {
	set(c, keyRequestID, requestID)
	if logger != nil {
		set(c, keyLogger, logger.With(slog.String(keyRequestID.String(), requestID)))
	}
}

// GetRequestID returns the id bound to c, or "" before BindRequest ran.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(keyRequestID.String()).(string); ok {
		return id
	}

	return RequestIDFrom(c.Request().Context())
}

// RequestIDFrom returns the request id carried by ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(keyRequestID).(string)

	return id
}

// LoggerOrDefault returns the request-scoped logger carried by ctx, or fallback.
func LoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(keyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return fallback
}

// SetPrincipal stores the authenticated identity and role. The request logger
// gains a user_id attribute so service logs name the caller.
func SetPrincipal(c echo.Context, userID uuid.UUID, role entity.Role) {
	set(c, keyUserID, userID)
	set(c, keyRole, role)

	if logger := LoggerOrDefault(c.Request().Context(), nil); logger != nil {
		set(c, keyLogger, logger.With(slog.String(keyUserID.String(), userID.String())))
	}
}

// GetUserID returns the authenticated identity, if any.
func GetUserID(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(keyUserID.String()).(uuid.UUID)

	return userID, ok && userID != uuid.Nil
}

// GetRole returns the authenticated role, if any.
func GetRole(c echo.Context) (entity.Role, bool) {
	role, ok := c.Get(keyRole.String()).(entity.Role)

	return role, ok
}
