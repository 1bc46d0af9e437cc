package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/metrics"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	idleTimeout       = 5 * time.Minute
	idleWarningTime   = 4 * time.Minute // one minute of notice before the disconnect
	messageBufferSize = 16

	idleWarningMessage = "Connection idle. Will disconnect if no activity within 1 minute."
)

var idleWarningFrame = func() []byte {
	frame, err := Encode(domain.EventWarning, domain.WarningEvent{Message: idleWarningMessage})
	if err != nil {
		panic(err)
	}
	return frame
}()

type idleState int

const (
	idleActive idleState = iota
	idleNeedsWarning
	idleExpired
)

// clientWriter owns all writes to one connection: queued event frames, pings,
// the idle warning and the final close frame. gorilla/websocket allows a single
// concurrent writer, so nothing else may write to conn while run is alive.
type clientWriter struct {
	conn    *websocket.Conn
	clock   clockwork.Clock
	metrics *metrics.GatewayMetrics

	send chan []byte
	done chan struct{}

	stopOnce sync.Once
	running  sync.WaitGroup

	mu           sync.Mutex
	lastActivity time.Time
	warned       bool
}

func newClientWriter(conn *websocket.Conn, clock clockwork.Clock, m *metrics.GatewayMetrics) *clientWriter {
	cw := &clientWriter{
		conn:         conn,
		clock:        clock,
		metrics:      m,
		send:         make(chan []byte, messageBufferSize),
		done:         make(chan struct{}),
		lastActivity: clock.Now(),
	}

	_ = conn.SetReadDeadline(clock.Now().Add(pongDeadline))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
		cw.touch()
		return nil
	})

	cw.running.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	defer cw.running.Done()

	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-cw.send:
			start := cw.clock.Now()
			if err := cw.writeFrame(websocket.TextMessage, frame); err != nil {
				cw.abort()
				return
			}
			cw.metrics.SendDuration.Observe(cw.clock.Since(start).Seconds())

		case <-ticker.Chan():
			if !cw.keepAlive() {
				cw.abort()
				return
			}

		case <-cw.done:
			return
		}
	}
}

// keepAlive runs the idle check and pings. False means the connection must go.
func (cw *clientWriter) keepAlive() bool {
	if cw.checkIdle() {
		return false
	}
	if err := cw.writeFrame(websocket.PingMessage, nil); err != nil {
		cw.metrics.PingFailures.Inc()
		return false
	}
	return true
}

func (cw *clientWriter) writeFrame(messageType int, payload []byte) error {
	_ = cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
	return cw.conn.WriteMessage(messageType, payload)
}

// abort closes the socket so the read loop returns and unregisters the connection.
func (cw *clientWriter) abort() {
	_ = cw.conn.Close()
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.done)
		_ = cw.conn.Close()
	})
	cw.running.Wait()
}

// stopGraceful sends a close frame with reason, then closes the socket.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.done)
		// run must have returned before this goroutine writes
		cw.running.Wait()

		_ = cw.writeFrame(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
		_ = cw.conn.Close()
	})
}

// touch records inbound activity: a pong or any client frame.
func (cw *clientWriter) touch() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.lastActivity = cw.clock.Now()
	cw.warned = false
}

func (cw *clientWriter) idleState() idleState {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	idle := cw.clock.Since(cw.lastActivity)
	switch {
	case idle >= idleTimeout:
		return idleExpired
	case idle >= idleWarningTime && !cw.warned:
		return idleNeedsWarning
	default:
		return idleActive
	}
}

// checkIdle warns once inside the warning window and reports true past the idle timeout.
func (cw *clientWriter) checkIdle() bool {
	switch cw.idleState() {
	case idleExpired:
		cw.metrics.IdleDisconnects.Inc()
		return true
	case idleNeedsWarning:
		if err := cw.writeFrame(websocket.TextMessage, idleWarningFrame); err == nil {
			cw.mu.Lock()
			cw.warned = true
			cw.mu.Unlock()
		}
	}
	return false
}
