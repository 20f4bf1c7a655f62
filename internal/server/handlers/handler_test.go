package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/domain/errs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, rec
}

func TestStatus(t *testing.T) {
	cases := map[errs.Kind]int{
		errs.KindValidation: http.StatusBadRequest,
		errs.KindUnauth:     http.StatusUnauthorized,
		errs.KindPermission: http.StatusForbidden,
		errs.KindNotFound:   http.StatusNotFound,
		errs.KindConflict:   http.StatusConflict,
		errs.KindRateLimit:  http.StatusTooManyRequests,
		errs.KindInternal:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, Status(kind), kind)
	}
}

func TestRespondError(t *testing.T) {
	c, rec := testContext("/")
	RespondError(c, zap.NewNop(), errs.Validation("date", "is required"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"is required","code":"VALIDATION_ERROR","field":"date"}`, rec.Body.String())

	c, rec = testContext("/")
	RespondError(c, zap.NewNop(), errs.RateLimited(1500*time.Millisecond))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	c, rec = testContext("/")
	RespondError(c, zap.NewNop(), errors.New("mongo: connection reset"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "mongo")
}

func TestDateRange(t *testing.T) {
	c, _ := testContext("/?from=2025-10-01&to=2025-10-31")
	r, err := dateRange(c)
	require.NoError(t, err)
	require.NotNil(t, r.From)
	require.NotNil(t, r.To)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), *r.From)

	c, _ = testContext("/")
	r, err = dateRange(c)
	require.NoError(t, err)
	assert.Nil(t, r.From)
	assert.Nil(t, r.To)

	c, _ = testContext("/?to=31/10/2025")
	_, err = dateRange(c)
	assert.True(t, errs.Is(err, errs.KindValidation))
}
