package httpserver

import (
	"context"
	"fmt"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/config"
)

type mockAppService struct {
	listRecentMessagesFn func(ctx context.Context, limit int) ([]domain.MessageView, error)
	createUserFn         func(ctx context.Context, name, email string) (*domain.User, error)
	listUsersFn          func(ctx context.Context) ([]domain.User, error)
	getUserFn            func(ctx context.Context, id int64) (*domain.User, error)
	deleteUserFn         func(ctx context.Context, id int64) error
}

func (m *mockAppService) ListRecentMessages(ctx context.Context, limit int) ([]domain.MessageView, error) {
	if m.listRecentMessagesFn != nil {
		return m.listRecentMessagesFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockAppService) CreateUser(ctx context.Context, name, email string) (*domain.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, name, email)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ListUsers(ctx context.Context) ([]domain.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

func (m *mockAppService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockAppService) DeleteUser(ctx context.Context, id int64) error {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(ctx, id)
	}
	return nil
}

type testServerOption func(*testServerOptions)

type testServerOptions struct {
	healthChecks []HealthCheck
	wsHandler    echo.HandlerFunc
	mutateConfig func(*config.Config)
}

func withHealthChecks(checks ...HealthCheck) testServerOption {
	return func(o *testServerOptions) { o.healthChecks = checks }
}

func withWebSocketHandler(h echo.HandlerFunc) testServerOption {
	return func(o *testServerOptions) { o.wsHandler = h }
}

func withConfig(fn func(*config.Config)) testServerOption {
	return func(o *testServerOptions) { o.mutateConfig = fn }
}

func newTestServer(t *testing.T, app appService, opts ...testServerOption) *Server {
	t.Helper()

	var o testServerOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &config.Config{
		AppEnv:          "development",
		Port:            "0",
		AllowedOrigins:  "*",
		UserCreateRate:  100,
		UserCreateBurst: 100,
	}
	if o.mutateConfig != nil {
		o.mutateConfig(cfg)
	}

	return NewServer(cfg, app, o.wsHandler, prometheus.NewRegistry(), o.healthChecks)
}
