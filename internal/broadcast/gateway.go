package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/metrics"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
)

const (
	commandTimeout    = 5 * time.Second
	stopTimeout       = 10 * time.Second
	commandQueueSize  = 256
	queueDepthWarning = 200 // 80% of commandQueueSize

	welcomeMessage = "Connected to live messages"
)

// ErrGatewayStopped is returned for commands issued after Stop.
var ErrGatewayStopped = errors.New("gateway stopped")

type gatewayCmd interface{ isGatewayCmd() }

type baseGatewayCmd struct{}

func (baseGatewayCmd) isGatewayCmd() {}

type registerCmd struct {
	baseGatewayCmd
	id         uuid.UUID
	connection *websocket.Conn
	reply      chan error
}

type unregisterCmd struct {
	baseGatewayCmd
	id uuid.UUID
}

type broadcastCmd struct {
	baseGatewayCmd
	frame []byte
}

type sendCmd struct {
	baseGatewayCmd
	id    uuid.UUID
	frame []byte
}

type touchCmd struct {
	baseGatewayCmd
	id uuid.UUID
}

type clientCountCmd struct {
	baseGatewayCmd
	reply chan int
}

type stopCmd struct {
	baseGatewayCmd
}

// Gateway owns the set of open connections. All access to the set happens on the run goroutine.
type Gateway struct {
	cmdCh       chan gatewayCmd
	clock       clockwork.Clock
	metrics     *metrics.GatewayMetrics
	connections map[uuid.UUID]*clientWriter
	done        chan struct{}
	stopOnce    sync.Once
	stopTimeout time.Duration
}

var _ domain.MessagePublisher = (*Gateway)(nil)

func NewGateway(m *metrics.GatewayMetrics, clock clockwork.Clock) *Gateway {
	g := &Gateway{
		cmdCh:       make(chan gatewayCmd, commandQueueSize),
		clock:       clock,
		metrics:     m,
		connections: make(map[uuid.UUID]*clientWriter),
		done:        make(chan struct{}),
		stopTimeout: stopTimeout,
	}
	go g.run()
	return g
}

// enqueue hands cmd to the actor, or reports false once the gateway has stopped.
func (g *Gateway) enqueue(cmd gatewayCmd) bool {
	select {
	case <-g.done:
		return false
	default:
	}

	select {
	case g.cmdCh <- cmd:
		return true
	case <-g.done:
		return false
	}
}

// Register adds conn to the fan-out set and returns its connection ID.
// The connection receives a connected event before any broadcast.
func (g *Gateway) Register(conn *websocket.Conn) (uuid.UUID, error) {
	id := uuid.New()
	reply := make(chan error, 1)
	if !g.enqueue(registerCmd{id: id, connection: conn, reply: reply}) {
		return uuid.Nil, ErrGatewayStopped
	}

	timer := g.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-reply:
		if err != nil {
			return uuid.Nil, err
		}
		return id, nil
	case <-g.done:
		return uuid.Nil, ErrGatewayStopped
	case <-timer.Chan():
		return uuid.Nil, fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection from the fan-out set. Unknown IDs are ignored.
func (g *Gateway) Unregister(id uuid.UUID) {
	g.enqueue(unregisterCmd{id: id})
}

// Broadcast enqueues msg as a message-broadcast event for every open connection, the sender included.
func (g *Gateway) Broadcast(msg domain.StoredMessage) error {
	frame, err := Encode(domain.EventMessageBroadcast, domain.NewMessageBroadcast(msg))
	if err != nil {
		return err
	}
	if !g.enqueue(broadcastCmd{frame: frame}) {
		return ErrGatewayStopped
	}
	return nil
}

// PublishMessage fans msg out to this instance's connections.
func (g *Gateway) PublishMessage(_ context.Context, msg domain.StoredMessage) error {
	return g.Broadcast(msg)
}

// Send enqueues a single event for one connection. Delivery is best effort:
// if the connection is gone the event is dropped without error.
func (g *Gateway) Send(id uuid.UUID, eventType domain.EventType, data any) error {
	frame, err := Encode(eventType, data)
	if err != nil {
		return err
	}
	if !g.enqueue(sendCmd{id: id, frame: frame}) {
		return ErrGatewayStopped
	}
	return nil
}

// SendError delivers an error event to one connection only.
func (g *Gateway) SendError(id uuid.UUID, message string) error {
	return g.Send(id, domain.EventError, domain.ErrorEvent{Message: message})
}

// Touch marks inbound activity on a connection, resetting its idle timer.
func (g *Gateway) Touch(id uuid.UUID) {
	g.enqueue(touchCmd{id: id})
}

// ClientCount returns the number of open connections, or -1 if the actor does not answer in time.
func (g *Gateway) ClientCount() int {
	reply := make(chan int, 1)
	if !g.enqueue(clientCountCmd{reply: reply}) {
		return 0
	}

	timer := g.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-reply:
		return count
	case <-g.done:
		return 0
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes every connection with a close frame and ends the actor.
// It blocks until the actor exits or the stop timeout passes.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		if !g.enqueue(stopCmd{}) {
			return
		}

		timeout := g.clock.NewTimer(g.stopTimeout)
		defer timeout.Stop()

		select {
		case <-g.done:
			slog.Info("Gateway stopped gracefully")
		case <-timeout.Chan():
			slog.Warn("Gateway stop timeout exceeded", "timeout", g.stopTimeout)
		}
	})
}

func (g *Gateway) run() {
	defer close(g.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Gateway panic recovered", "panic", r)
			g.closeAllClients("gateway failure")
		}
	}()

	depthTicker := g.clock.NewTicker(time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(g.cmdCh)
			g.metrics.CommandQueueDepth.Set(float64(depth))
			if depth > queueDepthWarning {
				slog.Warn("Command channel near capacity", "depth", depth, "capacity", cap(g.cmdCh))
			}

		case cmd := <-g.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				g.handleRegister(c)
			case unregisterCmd:
				g.removeConnection(c.id)
			case broadcastCmd:
				g.handleBroadcast(c)
			case sendCmd:
				g.handleSend(c)
			case touchCmd:
				if cw, ok := g.connections[c.id]; ok {
					cw.touch()
				}
			case clientCountCmd:
				c.reply <- len(g.connections)
			case stopCmd:
				g.handleStop()
				return
			default:
				slog.Warn("Gateway received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (g *Gateway) handleRegister(c registerCmd) {
	cw := newClientWriter(c.connection, g.clock, g.metrics)
	g.connections[c.id] = cw

	g.metrics.ActiveConnections.Set(float64(len(g.connections)))
	g.metrics.ConnectionsTotal.Inc()

	welcome, err := Encode(domain.EventConnected, domain.ConnectedEvent{
		ConnectionID: c.id.String(),
		Message:      welcomeMessage,
		Timestamp:    g.clock.Now().UTC(),
	})
	if err == nil {
		cw.send <- welcome // fresh buffer, cannot block
	}

	slog.Debug("Client registered", "connection_id", c.id.String(), "total_clients", len(g.connections))
	c.reply <- nil
}

// handleBroadcast walks the connection set once, enqueueing the frame everywhere.
func (g *Gateway) handleBroadcast(c broadcastCmd) {
	g.metrics.Broadcasts.Inc()

	var slow []uuid.UUID
	for id, cw := range g.connections {
		select {
		case cw.send <- c.frame:
			g.metrics.Deliveries.Inc()
		default:
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		g.evict(id)
	}
}

func (g *Gateway) handleSend(c sendCmd) {
	cw, ok := g.connections[c.id]
	if !ok {
		g.metrics.DroppedDeliveries.Inc()
		slog.Debug("Dropping event for closed connection", "connection_id", c.id.String())
		return
	}

	select {
	case cw.send <- c.frame:
		g.metrics.Deliveries.Inc()
	default:
		g.evict(c.id)
	}
}

func (g *Gateway) evict(id uuid.UUID) {
	slog.Warn("Disconnecting slow client", "connection_id", id.String())
	g.metrics.SlowClientsEvicted.Inc()
	g.removeConnection(id)
}

func (g *Gateway) removeConnection(id uuid.UUID) {
	cw, ok := g.connections[id]
	if !ok {
		return
	}

	cw.stop()
	delete(g.connections, id)
	g.metrics.ActiveConnections.Set(float64(len(g.connections)))

	slog.Debug("Client unregistered", "connection_id", id.String(), "remaining_clients", len(g.connections))
}

func (g *Gateway) handleStop() {
	total := len(g.connections)
	slog.Info("Gateway shutting down", "clients", total)

	g.closeAllClients("Server shutting down")

	slog.Info("Gateway shutdown complete", "disconnected_clients", total)
}

func (g *Gateway) closeAllClients(reason string) {
	for id, cw := range g.connections {
		cw.stopGraceful(reason)
		delete(g.connections, id)
	}
	g.metrics.ActiveConnections.Set(0)
}
