package internal

import (
	"bytes"
	"context"
	"encoding/json"
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
	"restaurant-admin-backend/internal/api"
	"restaurant-admin-backend/internal/db"
	"restaurant-admin-backend/internal/feed"
	"restaurant-admin-backend/internal/frontdesk"
	"restaurant-admin-backend/internal/metrics"
	"restaurant-admin-backend/internal/model"
	"restaurant-admin-backend/internal/notification"
	"restaurant-admin-backend/internal/roster"
	"restaurant-admin-backend/internal/store"
)

// orderFeed is a stand-in for the upstream order channel. Frames written to
// send are forwarded to the registered admin.
type orderFeed struct {
	url        string
	registered chan struct{}
	send       chan string
}

func newOrderFeed(t *testing.T) *orderFeed {
	f := &orderFeed{registered: make(chan struct{}), send: make(chan string)}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var hello map[string]string
		if err := conn.ReadJSON(&hello); err != nil || hello["type"] != feed.TypeRegisterAdmin {
			t.Errorf("expected register_admin, got %v (%v)", hello, err)
			return
		}
		close(f.registered)

		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		for msg := range f.send {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		close(f.send)
		srv.Close()
	})
	f.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return f
}

type app struct {
	server *httptest.Server
	store  store.Store
	desk   *frontdesk.Service
}

func startApp(t *testing.T, feedURL string) *app {
	cfg := &config.Config{
		Feed:     config.FeedConfig{Enabled: true, URL: feedURL},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared"},
	}
	cfg.ApplyDefaults()
	cfg.Server.CacheTTL = 0
	require.NoError(t, cfg.Validate())

	gormDB, err := db.Init(&cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})

	registry := prometheus.NewRegistry()
	obs := metrics.NewPromObs(registry)
	appStore := store.NewGormStore(gormDB)

	hub := notification.NewHub(obs)
	dispatcher := notification.NewDispatcher(notification.NewWebSurface(hub, nil), obs)
	hub.OnInteract(dispatcher.Interact)

	tables := roster.New(frontdesk.Seeds(cfg.Roster))
	desk := frontdesk.NewService(tables, appStore, dispatcher,
		frontdesk.WithBroadcaster(hub), frontdesk.WithMetrics(obs))
	feedClient := feed.NewClient(cfg.Feed, obs)

	ctx, cancel := context.WithCancel(context.Background())
	deskDone := make(chan struct{})
	go func() {
		desk.Run(ctx, feedClient.Events())
		close(deskDone)
	}()
	go feedClient.Run(ctx)

	router := api.NewRouter(api.NewHandler(appStore, desk, hub, nil), cfg.Server, registry)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		feedClient.Close()
		hub.Close()
		<-deskDone
		desk.Wait()
		dispatcher.Wait()
	})
	return &app{server: srv, store: appStore, desk: desk}
}

func (a *app) getJSON(t *testing.T, path string, out any) int {
	resp, err := http.Get(a.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *app) postJSON(t *testing.T, path, body string, out any) int {
	resp, err := http.Post(a.server.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// readFrame returns the next dashboard frame of the given type.
func readFrame(t *testing.T, conn *websocket.Conn, frameType string) notification.Frame {
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var f notification.Frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == frameType {
			return f
		}
	}
}

// TestOrderToCheckout follows one seating session from the first order on
// the feed to a settled bill.
func TestOrderToCheckout(t *testing.T) {
	orders := newOrderFeed(t)
	a := startApp(t, orders.url)

	select {
	case <-orders.registered:
	case <-time.After(2 * time.Second):
		t.Fatal("feed client never registered")
	}

	dash, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(a.server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer dash.Close()

	orders.send <- `{"type":"admin_order_update","tableNumber":1,"orders":[{"name":"A","quantity":2,"price":5},{"name":"B","quantity":1,"price":10}]}`
	orders.send <- `{"type":"admin_order_update","tableNumber":77,"orders":[{"name":"Ghost","quantity":1,"price":1}]}`

	alert := readFrame(t, dash, notification.FramePlayAlert)
	assert.Equal(t, "T-01", alert.TableID)

	var tbl roster.Table
	require.Equal(t, http.StatusOK, a.getJSON(t, "/api/tables/T-01", &tbl))
	assert.Equal(t, roster.StatusOccupied, tbl.Status)
	assert.True(t, tbl.HasAlert)
	require.Len(t, tbl.Orders, 2)
	assert.Equal(t, "A", tbl.Orders[0].ItemName)
	assert.True(t, tbl.Orders[0].IsNew)

	require.Eventually(t, func() bool {
		var n int64
		a.store.DB().Model(&model.ActiveOrder{}).Where("table_number = ?", 1).Count(&n)
		return n == 2
	}, 2*time.Second, 20*time.Millisecond)

	var otp map[string]any
	require.Equal(t, http.StatusCreated, a.postJSON(t, "/api/tables/1/otp", "", &otp))
	assert.Regexp(t, `^\d{6}$`, otp["otp"])

	var bill roster.Bill
	require.Equal(t, http.StatusOK, a.getJSON(t, "/api/tables/1/bill", &bill))
	assert.Equal(t, 20.0, bill.Total)

	var out frontdesk.CheckoutOutcome
	require.Equal(t, http.StatusOK, a.postJSON(t, "/api/tables/1/checkout", `{"paymentMode":"CARD"}`, &out))
	assert.Equal(t, frontdesk.SeveritySuccess, out.Notice.Severity)
	require.NotNil(t, out.History)
	assert.Equal(t, 20.0, out.History.TotalAmount)
	assert.Equal(t, "Card", out.History.PaymentMode)
	assert.Equal(t, model.HistoryStatusCompleted, out.History.Status)

	require.Equal(t, http.StatusOK, a.getJSON(t, "/api/tables/1", &tbl))
	assert.Equal(t, roster.StatusAvailable, tbl.Status)
	assert.Empty(t, tbl.Orders)
	assert.False(t, tbl.HasAlert)

	var remaining int64
	require.NoError(t, a.store.DB().Model(&model.ActiveOrder{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
	require.NoError(t, a.store.DB().Model(&model.TableOTP{}).Count(&remaining).Error)
	assert.Zero(t, remaining)

	var history []model.OrderHistory
	require.Equal(t, http.StatusOK, a.getJSON(t, "/api/order-history?tableNumber=1", &history))
	require.Len(t, history, 1)
	assert.Len(t, history[0].Items, 2)

	// The table is idle now; a second checkout changes nothing.
	require.Equal(t, http.StatusOK, a.postJSON(t, "/api/tables/1/checkout", `{"paymentMode":"cash"}`, &out))
	assert.Equal(t, frontdesk.SeverityInfo, out.Notice.Severity)
	require.Equal(t, http.StatusOK, a.getJSON(t, "/api/order-history", &history))
	assert.Len(t, history, 1)
}

// TestMissedAlertReplaysOnDashboardConnect checks that an alert fired while
// no dashboard was open is played once the operator connects.
func TestMissedAlertReplaysOnDashboardConnect(t *testing.T) {
	orders := newOrderFeed(t)
	a := startApp(t, orders.url)
	<-orders.registered

	orders.send <- `{"type":"admin_order_update","tableNumber":4,"orders":[{"name":"Tea","quantity":1,"price":2}]}`

	require.Eventually(t, func() bool {
		var tbl roster.Table
		a.getJSON(t, "/api/tables/4", &tbl)
		return tbl.Status == roster.StatusOccupied
	}, 2*time.Second, 20*time.Millisecond)

	// Give the dispatcher time to fail the first playback and arm the retry.
	time.Sleep(100 * time.Millisecond)

	dash, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(a.server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer dash.Close()

	alert := readFrame(t, dash, notification.FramePlayAlert)
	assert.Equal(t, "T-04", alert.TableID)
}
