// internal/handlers/session/session.go
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"obcampaign-service/internal/middleware"
	"obcampaign-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Revoker blacklists an access token until it expires.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type SessionHandler struct {
	revoker Revoker
	logger  *zap.Logger
}

func NewSessionHandler(revoker Revoker, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{revoker: revoker, logger: logger}
}

// Logout revokes the access token the request was made with.
func (h *SessionHandler) Logout(c *gin.Context) {
	jti := middleware.GetJTI(c)
	if jti == "" {
		response.ValidationError(c, "no session to revoke", errors.New("token carries no id"))
		return
	}

	ttl := time.Hour
	if exp, ok := middleware.GetTokenExpiry(c); ok {
		ttl = time.Until(exp)
	}

	operator, _ := middleware.GetOperatorID(c)
	if err := h.revoker.Revoke(c.Request.Context(), jti, ttl); err != nil {
		h.logger.Error("logout failed",
			zap.String("operator", operator),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "logout failed", nil)
		return
	}

	h.logger.Info("operator logged out", zap.String("operator", operator))
	response.Success(c, http.StatusOK, "logout successful", nil)
}
