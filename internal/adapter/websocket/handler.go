package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/metrics"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/broadcast"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/correlation"
)

const (
	maxFrameSize = 64 * 1024

	postFailedMessage = "Failed to post message"
)

// Gateway is the part of the broadcast gateway a connection's read loop needs.
type Gateway interface {
	Register(conn *websocket.Conn) (uuid.UUID, error)
	Unregister(id uuid.UUID)
	Touch(id uuid.UUID)
	SendError(id uuid.UUID, message string) error
}

type MessagePoster interface {
	PostMessage(ctx context.Context, authorID int64, content string) (*domain.StoredMessage, error)
}

type Limits struct {
	MaxConnections int
	MaxPerIP       int
}

// Handler upgrades HTTP requests and runs one read loop per connection.
type Handler struct {
	gateway  Gateway
	poster   MessagePoster
	metrics  *metrics.GatewayMetrics
	global   *GlobalConnectionLimiter
	perIP    *IPConnectionLimiter
	upgrader websocket.Upgrader
}

func NewHandler(gateway Gateway, poster MessagePoster, m *metrics.GatewayMetrics, limits Limits, checkOrigin func(*http.Request) bool) *Handler {
	return &Handler{
		gateway: gateway,
		poster:  poster,
		metrics: m,
		global:  NewGlobalConnectionLimiter(int64(limits.MaxConnections)),
		perIP:   NewIPConnectionLimiter(limits.MaxPerIP),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Serve is the echo handler for the upgrade route. It blocks until the connection closes.
func (h *Handler) Serve(c echo.Context) error {
	ip := c.RealIP()

	if !h.global.Acquire() {
		h.metrics.ConnectionsRejected.WithLabelValues("capacity").Inc()
		slog.Warn("WebSocket connection rejected: instance at capacity", "remote_ip", ip)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server at connection capacity")
	}
	defer h.global.Release()

	if !h.perIP.Acquire(ip) {
		h.metrics.ConnectionsRejected.WithLabelValues("per_ip").Inc()
		slog.Warn("WebSocket connection rejected: per-IP limit", "remote_ip", ip)
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many connections from this address")
	}
	defer h.perIP.Release(ip)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		h.metrics.ConnectionsRejected.WithLabelValues("upgrade").Inc()
		slog.Debug("WebSocket upgrade failed", "remote_ip", ip, "error", err)
		return nil
	}

	id, err := h.gateway.Register(conn)
	if err != nil {
		slog.Error("Failed to register connection", "remote_ip", ip, "error", err)
		_ = conn.Close()
		return nil
	}
	defer h.gateway.Unregister(id)

	ctx := c.Request().Context()
	log := slog.With("connection_id", id.String())
	log.DebugContext(ctx, "WebSocket connected", "remote_ip", ip)

	h.readLoop(ctx, log, id, conn)

	log.DebugContext(ctx, "WebSocket disconnected")
	return nil
}

// readLoop handles inbound events in arrival order until the socket fails or closes.
func (h *Handler) readLoop(ctx context.Context, log *slog.Logger, id uuid.UUID, conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameSize)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.DebugContext(ctx, "WebSocket read failed", "error", err)
			}
			return
		}

		h.gateway.Touch(id)
		eventCtx := correlation.WithID(ctx, correlation.NewID())
		h.handleFrame(eventCtx, log, id, frame)
	}
}

func (h *Handler) handleFrame(ctx context.Context, log *slog.Logger, id uuid.UUID, frame []byte) {
	event, err := broadcast.DecodePostMessage(frame)
	if err != nil {
		h.metrics.InboundEvents.WithLabelValues("invalid").Inc()
		h.metrics.PostFailures.WithLabelValues("validation").Inc()
		log.DebugContext(ctx, "Rejected inbound event", "error", err)
		h.sendError(log, id, err.Error())
		return
	}
	h.metrics.InboundEvents.WithLabelValues(string(domain.EventPostMessage)).Inc()

	if _, err := h.poster.PostMessage(ctx, event.AuthorID, event.Content); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			h.metrics.PostFailures.WithLabelValues("validation").Inc()
			h.sendError(log, id, err.Error())
			return
		}

		h.metrics.PostFailures.WithLabelValues("store").Inc()
		log.ErrorContext(ctx, "Failed to post message", "author_id", event.AuthorID, "error", err)
		h.sendError(log, id, postFailedMessage)
	}
}

func (h *Handler) sendError(log *slog.Logger, id uuid.UUID, message string) {
	if err := h.gateway.SendError(id, message); err != nil {
		log.Debug("Could not deliver error event", "error", err)
	}
}
