package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"obcampaign-service/internal/middleware"
	"obcampaign-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memRevocations satisfies both the middleware check and the handler.
type memRevocations struct {
	revoked map[string]time.Duration
	fail    bool
}

func (m *memRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if m.fail {
		return errors.New("redis down")
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *memRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}

type oneToken struct{ claims *jwt.Claims }

func (o oneToken) VerifyAccessToken(token string) (*jwt.Claims, error) {
	if token != "tok" {
		return nil, errors.New("bad token")
	}
	return o.claims, nil
}

func newEngine(revs *memRevocations, verifier middleware.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := middleware.NewAuthMiddleware(verifier).WithRevocations(revs)

	r := gin.New()
	r.POST("/logout", auth.Auth(), NewSessionHandler(revs, zap.NewNop()).Logout)
	r.GET("/me", auth.Auth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r *gin.Engine, method, path string) int {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestLogoutRevokesToken(t *testing.T) {
	revs := &memRevocations{revoked: map[string]time.Duration{}}
	r := newEngine(revs, oneToken{&jwt.Claims{
		OperatorID: "op-1",
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        "jti-1",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
		},
	}})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me"))
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/logout"))

	require.Contains(t, revs.revoked, "jti-1")
	assert.InDelta(t, (30 * time.Minute).Seconds(), revs.revoked["jti-1"].Seconds(), 5)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me"))
}

func TestLogoutWithoutTokenID(t *testing.T) {
	revs := &memRevocations{revoked: map[string]time.Duration{}}
	r := newEngine(revs, oneToken{&jwt.Claims{OperatorID: "op-1"}})

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/logout"))

	// Authentication disabled: no token, nothing to revoke.
	r = newEngine(revs, nil)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/logout"))
}

func TestLogoutStoreFailure(t *testing.T) {
	revs := &memRevocations{revoked: map[string]time.Duration{}, fail: true}
	r := newEngine(revs, oneToken{&jwt.Claims{
		OperatorID:       "op-1",
		RegisteredClaims: gojwt.RegisteredClaims{ID: "jti-1"},
	}})

	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/logout"))
}
