package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/booking-ledger/internal/events"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.Nop())
	go hub.Run(ctx)

	r := mux.NewRouter()
	r.HandleFunc("/ws/flights/{id}", hub.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, flightID string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/flights/" + flightID
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsToFlightSubscribers(t *testing.T) {
	hub, srv := startHub(t)
	flightID := uuid.New()
	otherFlight := uuid.New()

	watcher := dial(t, srv, flightID.String())
	bystander := dial(t, srv, otherFlight.String())

	assert.Eventually(t, func() bool {
		return hub.GetClientCount(flightID) == 1 && hub.GetClientCount(otherFlight) == 1
	}, 2*time.Second, 10*time.Millisecond)

	seats := 47
	require.NoError(t, hub.Publish(context.Background(), events.Event{
		Type:           events.BookingCreated,
		FlightID:       flightID,
		SeatsAvailable: &seats,
		TotalSeats:     50,
	}))

	watcher.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := watcher.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageTypeSeatsUpdated, msg.Type)
	assert.Equal(t, flightID.String(), msg.FlightID)
	assert.Equal(t, 47, msg.SeatsAvailable)
	assert.Equal(t, 50, msg.TotalSeats)
	assert.Equal(t, events.BookingCreated, msg.Event)

	bystander.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = bystander.ReadMessage()
	assert.Error(t, err)
}

func TestHub_IgnoresEventsWithoutSeats(t *testing.T) {
	hub, srv := startHub(t)
	flightID := uuid.New()
	conn := dial(t, srv, flightID.String())

	assert.Eventually(t, func() bool { return hub.GetClientCount(flightID) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), events.Event{Type: events.BookingDeleted, FlightID: flightID}))

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t)
	flightID := uuid.New()
	conn := dial(t, srv, flightID.String())

	assert.Eventually(t, func() bool { return hub.GetClientCount(flightID) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.GetClientCount(flightID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWS_RejectsMalformedFlightID(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/ws/flights/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
