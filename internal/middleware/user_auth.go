package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"linkly/internal/apperr"
	"linkly/internal/services"
)

// Gate resolves an Authorization header value to the calling user.
type Gate interface {
	Authenticate(ctx context.Context, authorization string) (*services.Identity, error)
}

// AuthedHandler is a handler that only runs for an authenticated caller.
type AuthedHandler func(c *gin.Context, id *services.Identity)

// RequireUser runs h with the identity the gate resolved. Requests the gate
// rejects never reach h.
func RequireUser(gate Gate, h AuthedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := gate.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			Abort(c, err)
			return
		}
		h(c, id)
	}
}

// Abort writes err as the error envelope and stops the chain. Errors that are
// not operational are logged and reported as a bare internal error.
func Abort(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Status(), appErr.Body())
}
