package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/products"
)

func createProduct(t *testing.T, service *products.Service, userID int64, name string) *products.Product {
	t.Helper()

	p, err := service.Create(context.Background(), userID, products.CreateRequest{
		Name:         name,
		CurrentPrice: 10,
		StockLevel:   3,
	})
	require.NoError(t, err)
	return p
}

// readSSEData returns the payload of the next data line
func readSSEData(t *testing.T, reader *bufio.Reader) string {
	t.Helper()

	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestEventsStream_OnlyOwnProducts(t *testing.T) {
	s, container := newTestServer(t)
	ownerID, token := registerUser(t, container, "owner")
	otherID, _ := registerUser(t, container, "other")

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		ts.URL+"/api/events/stream?types=PRODUCT_CREATED&access_token="+token, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Contains(t, readSSEData(t, reader), "connected")

	createProduct(t, container.ProductService, otherID, "Not yours")
	mine := createProduct(t, container.ProductService, ownerID, "Mug")

	var event events.Event
	require.NoError(t, json.Unmarshal([]byte(readSSEData(t, reader)), &event))
	assert.Equal(t, events.ProductCreated, event.Type)
	assert.Equal(t, float64(mine.ID), event.Data["product_id"])
}

func TestEventsStream_UnknownTypes(t *testing.T) {
	s, container := newTestServer(t)
	_, token := registerUser(t, container, "owner")

	rec := doRequest(t, s, http.MethodGet, "/api/events/stream?types=BOGUS", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsWebSocket(t *testing.T) {
	s, container := newTestServer(t)
	ownerID, token := registerUser(t, container, "owner")
	otherID, _ := registerUser(t, container, "other")

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws?types=PRODUCT_CREATED,BACKUP_COMPLETED&access_token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The handler subscribes right after the handshake
	require.Eventually(t, func() bool {
		return container.EventBus.SubscriberCount(events.ProductCreated) > 0
	}, 2*time.Second, 10*time.Millisecond)

	createProduct(t, container.ProductService, otherID, "Not yours")
	mine := createProduct(t, container.ProductService, ownerID, "Mug")
	container.EventManager.EmitTyped("reliability", &events.BackupCompletedData{Archive: "a.tar.gz"})

	var first, second events.Event
	for _, dest := range []*events.Event{&first, &second} {
		msgType, data, err := conn.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, websocket.MessageText, msgType)
		require.NoError(t, json.Unmarshal(data, dest))
	}

	assert.Equal(t, events.ProductCreated, first.Type)
	assert.Equal(t, float64(mine.ID), first.Data["product_id"])
	assert.Equal(t, events.BackupCompleted, second.Type)
	assert.Equal(t, "a.tar.gz", second.Data["archive"])
}

func TestEventsWebSocket_RequiresToken(t *testing.T) {
	s, _ := newTestServer(t)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubscription_DropsWhenFull(t *testing.T) {
	bus := events.NewBus()
	sub := subscribe(bus, []events.EventType{events.SaleRecorded}, zerolog.Nop())
	defer sub.unsubscribe()

	for i := 0; i < streamBuffer+5; i++ {
		bus.Emit(events.SaleRecorded, "sales", nil)
	}

	assert.Len(t, sub.events, streamBuffer)
	assert.Equal(t, int64(5), sub.dropped.Load())
}

func TestParseTypesParam(t *testing.T) {
	assert.Equal(t, events.AllTypes, parseTypesParam(""))
	assert.Equal(t, []events.EventType{events.SaleRecorded, events.PriceUpdated},
		parseTypesParam("SALE_RECORDED, PRICE_UPDATED,bogus"))
	assert.Empty(t, parseTypesParam("bogus"))
}

func TestProductIDOf(t *testing.T) {
	for _, data := range []map[string]interface{}{
		{"product_id": float64(4)},
		{"product_id": int64(4)},
		{"product_id": 4},
	} {
		id, ok := productIDOf(data)
		assert.True(t, ok)
		assert.Equal(t, int64(4), id)
	}

	_, ok := productIDOf(map[string]interface{}{"archive": "x"})
	assert.False(t, ok)
}

func TestEventsStream_EndsOnShutdown(t *testing.T) {
	s, container := newTestServer(t)
	_, token := registerUser(t, container, "owner")

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream?access_token="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	assert.Contains(t, readSSEData(t, reader), "connected")

	// The test server is not s.server, so run its shutdown hooks directly
	require.NoError(t, s.Shutdown(ctx))

	_, err = io.ReadAll(reader)
	assert.NoError(t, err)
}
