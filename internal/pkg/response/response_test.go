package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "obcampaign-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{xerrors.Invalid("bad uuid"), http.StatusBadRequest},
		{xerrors.Wrap(xerrors.ErrValidation, "variables"), http.StatusBadRequest},
		{xerrors.ErrUnauthorized, http.StatusUnauthorized},
		{xerrors.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("campaign: %w", xerrors.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: stop on stop", xerrors.ErrInvalidTransition), http.StatusConflict},
		{xerrors.ErrConflict, http.StatusConflict},
		{xerrors.Store(errors.New("conn reset"), "list"), http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), "%v", tt.err)
	}
}

func TestFromErrorHidesStoreCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, "failed to list campaigns", xerrors.Store(errors.New("password authentication failed"), "list"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, c.IsAborted())

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "failed to list campaigns", body.Message)
	assert.Equal(t, "internal error", body.Error)
}

func TestFromErrorKeepsClientCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, "failed", xerrors.Invalid("unknown campaign status %q", "bogus"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bogus")
}
