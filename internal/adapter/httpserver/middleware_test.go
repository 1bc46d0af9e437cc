package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/correlation"
	apperrors "github.com/sonuparjapat/stocksWebsiteMain/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runErrorMiddleware(t *testing.T, handlerErr error) (*httptest.ResponseRecorder, apperrors.ErrorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return handlerErr
	})
	require.NoError(t, handler(c)) // the middleware writes the error, it does not return it

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestMiddlewareWithStructuredError(t *testing.T) {
	rec, resp := runErrorMiddleware(t, apperrors.ValidationError("invalid input"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid input", resp.Error)
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
}

func TestMiddlewareWithStandardError(t *testing.T) {
	rec, resp := runErrorMiddleware(t, errors.New("standard error"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, apperrors.TypeInternal, resp.Type)
}

func TestMiddlewareWithNoError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", rec.Body.String())
}

func TestMiddlewareWithContext(t *testing.T) {
	rec, resp := runErrorMiddleware(t, apperrors.NotFoundError("user not found").WithField("user_id", "123"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "123", resp.Context["user_id"])
}

func TestMiddlewareDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   apperrors.ErrorType
		wantMsg    string
	}{
		{"validation", domain.NewValidationError("content", "must not be empty"), http.StatusBadRequest, apperrors.TypeValidation, "content: must not be empty"},
		{"wrapped validation", errors.Join(errors.New("ctx"), domain.NewValidationError("authorId", "author does not exist")), http.StatusBadRequest, apperrors.TypeValidation, "authorId: author does not exist"},
		{"duplicate email", domain.ErrDuplicateEmail, http.StatusConflict, apperrors.TypeConflict, "email already registered"},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, apperrors.TypeNotFound, "user not found"},
		{"store unavailable", domain.StoreUnavailable("insert user", context.DeadlineExceeded), http.StatusInternalServerError, apperrors.TypeInternal, "store unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := runErrorMiddleware(t, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, resp.Type)
			assert.Equal(t, tt.wantMsg, resp.Error)
		})
	}
}

func TestMiddlewareCommittedResponse(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		_ = c.String(http.StatusOK, "partial")
		return errors.New("late failure")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestWrapHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		httpErr    *echo.HTTPError
		wantType   apperrors.ErrorType
		wantStatus int
	}{
		{"bad_request", echo.NewHTTPError(http.StatusBadRequest, "bad request"), apperrors.TypeValidation, http.StatusBadRequest},
		{"not_found", echo.ErrNotFound, apperrors.TypeNotFound, http.StatusNotFound},
		{"method_not_allowed", echo.ErrMethodNotAllowed, apperrors.TypeMethodNotAllowed, http.StatusMethodNotAllowed},
		{"conflict", echo.NewHTTPError(http.StatusConflict, "conflict"), apperrors.TypeConflict, http.StatusConflict},
		{"too_many", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), apperrors.TypeRateLimited, http.StatusTooManyRequests},
		{"service_unavailable", echo.NewHTTPError(http.StatusServiceUnavailable, "at capacity"), apperrors.TypeUnavailable, http.StatusServiceUnavailable},
		{"internal", echo.NewHTTPError(http.StatusInternalServerError, "internal error"), apperrors.TypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapHTTPError(tt.httpErr)

			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.wantStatus, err.HTTPStatus())
		})
	}
}

func TestWrapHTTPErrorWithInternalCause(t *testing.T) {
	cause := errors.New("underlying cause")
	httpErr := echo.NewHTTPError(http.StatusInternalServerError, "wrapped")
	httpErr.Internal = cause

	err := WrapHTTPError(httpErr)

	assert.Equal(t, apperrors.TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
}

func TestWrapHTTPErrorWithNonStringMessage(t *testing.T) {
	err := WrapHTTPError(echo.NewHTTPError(http.StatusBadRequest, 12345))

	assert.Equal(t, "Bad Request", err.Message)
	assert.Equal(t, apperrors.TypeValidation, err.Type)
}

func TestCorrelationMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{"no header", "", false},
		{"valid header", "req-123_abc", true},
		{"header with spaces", "bad id", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(correlation.Header, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen string
			handler := correlationMiddleware(func(c echo.Context) error {
				seen, _ = correlation.ID(c.Request().Context())
				return nil
			})
			require.NoError(t, handler(c))

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(correlation.Header))
			if tt.wantSame {
				assert.Equal(t, tt.header, seen)
			} else {
				assert.NotEqual(t, tt.header, seen)
			}
		})
	}
}
