package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-admin-backend/config"
	"restaurant-admin-backend/internal/metrics"
)

type frame struct {
	kind int
	data string
}

// newFeedServer accepts one admin connection, checks the registration and
// then writes the given frames. The returned channel yields the
// registration message.
func newFeedServer(t *testing.T, frames []frame, hold bool) (string, <-chan string) {
	registered := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		registered <- string(data)

		for _, f := range frames {
			if err := conn.WriteMessage(f.kind, []byte(f.data)); err != nil {
				return
			}
		}
		if hold {
			// Wait for the client to hang up.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), registered
}

func feedConfig(url string) config.FeedConfig {
	return config.FeedConfig{
		Enabled:          true,
		URL:              url,
		HandshakeTimeout: time.Second,
		PongWait:         5 * time.Second,
		ReadLimitBytes:   64 * 1024,
	}
}

func TestClient_ForwardsOnlyOrderUpdates(t *testing.T) {
	url, registered := newFeedServer(t, []frame{
		{websocket.TextMessage, `{"type":"admin_order_update","tableNumber":3,"orders":[{"name":"Pizza","quantity":2,"price":5}]}`},
		{websocket.TextMessage, `{"type":"menu_changed"}`},
		{websocket.TextMessage, `{not json`},
		{websocket.BinaryMessage, `{"type":"admin_order_update","tableNumber":"T-01","orders":[{"name":"Soda","quantity":1,"price":2.5}]}`},
	}, false)

	reg := prometheus.NewRegistry()
	obs := metrics.NewPromObs(reg)
	c := NewClient(feedConfig(url), obs)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	select {
	case msg := <-registered:
		assert.JSONEq(t, `{"type":"register_admin"}`, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not register")
	}

	var events []OrderEvent
	for ev := range c.Events() {
		events = append(events, ev)
	}
	require.Len(t, events, 2)

	assert.Equal(t, 3, events[0].Batch.TableNumber)
	require.Len(t, events[0].Batch.Items, 1)
	assert.Equal(t, "Pizza", events[0].Batch.Items[0].Name)
	assert.Equal(t, 2, events[0].Batch.Items[0].Quantity)
	assert.Equal(t, 5.0, events[0].Batch.Items[0].UnitPrice)

	assert.Equal(t, 1, events[1].Batch.TableNumber)
	assert.Equal(t, "Soda", events[1].Batch.Items[0].Name)

	// The server closed the connection, which Run reports.
	assert.Error(t, <-errCh)
	assert.NoError(t, c.Close(), "Close after Run is a no-op")
}

func TestClient_CancelReleasesConnection(t *testing.T) {
	url, registered := newFeedServer(t, nil, true)
	c := NewClient(feedConfig(url), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	<-registered
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	_, open := <-c.Events()
	assert.False(t, open)
}

func TestClient_DialFailure(t *testing.T) {
	c := NewClient(feedConfig("ws://127.0.0.1:1/ws"), nil)
	err := c.Run(context.Background())
	assert.Error(t, err)
	_, open := <-c.Events()
	assert.False(t, open)
}

func TestClient_Disabled(t *testing.T) {
	c := NewClient(config.FeedConfig{}, nil)
	assert.NoError(t, c.Run(context.Background()))
}

func TestClient_CloseBeforeRun(t *testing.T) {
	url, _ := newFeedServer(t, nil, true)
	c := NewClient(feedConfig(url), nil)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Run(context.Background()), ErrClosed)
}
