package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/metrics"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Connects(t *testing.T) {
	client, m := setupTestClient(t)

	require.NoError(t, client.Ping(context.Background()).Err())
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.OpsTotal.WithLabelValues("ping", "success")), 1.0)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-url", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse redis URL")
}

func TestRelay_DeliversToEveryInstance(t *testing.T) {
	clientA, _ := setupTestClient(t)
	clientB, _ := setupTestClient(t)

	localA, localB := newRecordingFanOut(), newRecordingFanOut()
	relayA := NewRelay(clientA, localA, metrics.NewRelayMetrics(prometheus.NewRegistry()))
	relayB := NewRelay(clientB, localB, metrics.NewRelayMetrics(prometheus.NewRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, r := range []*Relay{relayA, relayB} {
		sub, err := r.Subscribe(ctx)
		require.NoError(t, err)
		go sub.Run(ctx)
	}

	created := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	msg := domain.StoredMessage{ID: 42, AuthorID: 1, Content: "hello", CreatedAt: created}
	require.NoError(t, relayA.PublishMessage(ctx, msg))

	for _, local := range []*recordingFanOut{localA, localB} {
		select {
		case got := <-local.received:
			assert.Equal(t, msg.ID, got.ID)
			assert.Equal(t, msg.Content, got.Content)
			assert.True(t, created.Equal(got.CreatedAt))
		case <-time.After(5 * time.Second):
			t.Fatal("relayed message not received")
		}
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(relayA.metrics.Published))
	assert.Equal(t, 1.0, testutil.ToFloat64(relayB.metrics.Received))
}

func TestSubscription_StopsOnCancel(t *testing.T) {
	client, _ := setupTestClient(t)
	relay := NewRelay(client, newRecordingFanOut(), metrics.NewRelayMetrics(prometheus.NewRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := relay.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		sub.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not stop")
	}
}
