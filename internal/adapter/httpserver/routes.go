package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/metrics"
)

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.httpMetrics.Middleware())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.Origins(),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	s.echo.Use(ErrorHandlingMiddleware())

	s.echo.GET("/", s.handleBanner)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.registry)))
	s.registerHealthRoutes()

	// The front end reaches the same routes with or without the /api prefix.
	// Both mounts share one user-creation limiter.
	createLimit := newRateLimiter(s.config.UserCreateRate, s.config.UserCreateBurst)
	s.registerAPIRoutes(s.echo.Group(""), createLimit)
	s.registerAPIRoutes(s.echo.Group("/api"), createLimit)
}

func (s *Server) registerAPIRoutes(g *echo.Group, createLimit echo.MiddlewareFunc) {
	g.GET("/messages", s.handleListMessages)
	g.GET("/users", s.handleListUsers)
	g.POST("/users", s.handleCreateUser, createLimit)
	g.GET("/users/:id", s.handleGetUser)
	g.DELETE("/users/:id", s.handleDeleteUser)

	if s.websocketHandler != nil {
		g.GET("/ws", s.websocketHandler)
	}
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
