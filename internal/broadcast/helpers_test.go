package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/metrics"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *metrics.GatewayMetrics {
	return metrics.NewGatewayMetrics(prometheus.NewRegistry())
}

// testGateway starts a gateway behind an httptest server whose handler registers each
// upgraded connection and unregisters it when its read loop ends.
func testGateway(t *testing.T) (*Gateway, *metrics.GatewayMetrics, func() *ws.Conn) {
	t.Helper()

	m := newTestMetrics()
	gateway := NewGateway(m, clockwork.NewRealClock())
	t.Cleanup(gateway.Stop)

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id, err := gateway.Register(conn)
		if err != nil {
			conn.Close()
			return
		}

		go func() {
			defer gateway.Unregister(id)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(server.Close)

	dial := func() *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return gateway, m, dial
}

func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ready <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}

func waitForClientCount(g *Gateway, expected int) bool {
	for range 200 {
		if g.ClientCount() == expected {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// readEvent reads the next frame and decodes its envelope.
func readEvent(t *testing.T, conn *ws.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	return env
}

// readConnected consumes the welcome event and returns the assigned connection ID.
func readConnected(t *testing.T, conn *ws.Conn) uuid.UUID {
	t.Helper()
	env := readEvent(t, conn)
	require.Equal(t, domain.EventConnected, env.Type)

	var welcome domain.ConnectedEvent
	require.NoError(t, json.Unmarshal(env.Data, &welcome))
	return uuid.MustParse(welcome.ConnectionID)
}
