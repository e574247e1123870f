// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"obcampaign-service/internal/pkg/jwt"
	"obcampaign-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxOperatorID = "operator_id"
	ctxJTI        = "jti"
	ctxRoles      = "roles"
	ctxTokenExp   = "token_expires_at"
)

// AnonymousOperator is the identity assigned when authentication is disabled.
const AnonymousOperator = "anonymous"

// TokenVerifier validates operator access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.Claims, error)
}

// RevocationList reports access tokens revoked before they expire.
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthMiddleware struct {
	verifier    TokenVerifier
	revocations RevocationList
}

// NewAuthMiddleware returns an auth middleware. A nil verifier disables
// authentication and every request acts as an admin.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// WithRevocations makes Auth reject tokens listed in r.
func (m *AuthMiddleware) WithRevocations(r RevocationList) *AuthMiddleware {
	m.revocations = r
	return m
}

func (m *AuthMiddleware) Enabled() bool {
	return m.verifier != nil
}

// Auth validates the bearer token and stores the operator in the context.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() {
			c.Set(ctxOperatorID, AnonymousOperator)
			c.Set(ctxRoles, []string{jwt.RoleAdmin})
			c.Next()
			return
		}

		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		if m.revocations != nil && claims.ID != "" {
			revoked, err := m.revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				response.Error(c, http.StatusServiceUnavailable, "session check unavailable", nil)
				return
			}
			if revoked {
				response.Unauthorized(c, "token has been revoked")
				return
			}
		}

		c.Set(ctxOperatorID, claims.Identity())
		c.Set(ctxJTI, claims.ID)
		c.Set(ctxRoles, claims.Roles)
		if claims.ExpiresAt != nil {
			c.Set(ctxTokenExp, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// RequireRole requires at least one of roles. Must run after Auth.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRoles, exists := c.Get(ctxRoles)
		if !exists {
			response.Error(c, http.StatusForbidden, "no roles found - authentication required", nil)
			return
		}

		userRolesList, ok := userRoles.([]string)
		if !ok {
			response.Error(c, http.StatusInternalServerError, "invalid roles format", nil)
			return
		}

		for _, userRole := range userRolesList {
			for _, required := range roles {
				if userRole == required {
					c.Next()
					return
				}
			}
		}

		err := errors.New("operator does not have required role")
		response.Error(c, http.StatusForbidden, "insufficient permissions", err, map[string]interface{}{
			"required_roles": roles,
			"user_roles":     userRolesList,
		})
	}
}

// Writers returns the middlewares for routes that mutate campaigns.
func (m *AuthMiddleware) Writers() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole(jwt.RoleAdmin, jwt.RoleOperator),
	}
}

// extractToken reads a Bearer token from the Authorization header, falling
// back to the token query parameter used by websocket clients.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return c.Query("token")
}
