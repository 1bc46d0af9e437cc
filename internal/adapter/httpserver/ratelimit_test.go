package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	apperrors "github.com/sonuparjapat/stocksWebsiteMain/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRemoteAddr = "1.2.3.4:1234"

func limitedHandler(ratePerSecond float64, burst int) echo.HandlerFunc {
	mw := newRateLimiter(ratePerSecond, burst)
	return ErrorHandlingMiddleware()(mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}))
}

func hit(t *testing.T, e *echo.Echo, handler echo.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

func TestRateLimiterAllowsRequestsUnderLimit(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(10, 3)

	for range 3 {
		assert.Equal(t, http.StatusOK, hit(t, e, handler, testRemoteAddr).Code)
	}
}

func TestRateLimiterBlocksExcessiveRequests(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(0.01, 1)

	assert.Equal(t, http.StatusOK, hit(t, e, handler, testRemoteAddr).Code)

	rec := hit(t, e, handler, testRemoteAddr)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp.Error)
	assert.Equal(t, apperrors.TypeRateLimited, resp.Type)
}

func TestRateLimiterDifferentIPsAreIndependent(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(0.01, 1)

	assert.Equal(t, http.StatusOK, hit(t, e, handler, testRemoteAddr).Code)
	assert.Equal(t, http.StatusOK, hit(t, e, handler, "5.6.7.8:5678").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(t, e, handler, testRemoteAddr).Code)
}
