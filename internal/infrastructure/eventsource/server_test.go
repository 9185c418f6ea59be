package eventsource

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"operator-verify/internal/domain/entity"
	"operator-verify/internal/infrastructure/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	srv := NewServer(logger.NewNopAdapter())
	base, err := srv.Start("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv, base
}

func subscribe(t *testing.T, base string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(base, "http://", "ws://", 1)+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hello := readEvent(t, conn)
	require.Equal(t, entity.EventConnected, hello.Type)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) entity.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev entity.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func waitSubscribers(t *testing.T, srv *Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return srv.Subscribers() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_EmitTicketClosed(t *testing.T) {
	srv, base := startServer(t)
	conn := subscribe(t, base)
	waitSubscribers(t, srv, 1)

	require.NoError(t, srv.Emit(context.Background(), entity.TicketClosed(7, 1)))

	ev := readEvent(t, conn)
	assert.Equal(t, entity.EventTicketClosed, ev.Type)
	assert.Equal(t, 7, ev.TicketID)
	assert.Equal(t, 1, ev.MachineID)
}

func TestServer_WireFormat(t *testing.T) {
	data, err := json.Marshal(entity.TicketClosed(7, 1))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ticket_closed","ticketId":7,"machineId":1}`, string(data))
}

func TestServer_MachineRooms(t *testing.T) {
	srv, base := startServer(t)
	machine1 := subscribe(t, base)
	machine2 := subscribe(t, base)
	waitSubscribers(t, srv, 2)

	require.NoError(t, machine1.WriteJSON(map[string]any{"type": "join_machine", "machineId": 1}))
	assert.Equal(t, entity.EventJoinedMachine, readEvent(t, machine1).Type)
	require.NoError(t, machine2.WriteJSON(map[string]any{"type": "join_machine", "machineId": 2}))
	assert.Equal(t, entity.EventJoinedMachine, readEvent(t, machine2).Type)

	require.NoError(t, srv.Emit(context.Background(), entity.TicketClosed(3, 2)))
	ev := readEvent(t, machine2)
	assert.Equal(t, 2, ev.MachineID)

	require.NoError(t, machine1.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var none entity.Event
	assert.Error(t, machine1.ReadJSON(&none), "machine 1 must not see machine 2 events")
}

func TestServer_UnknownMessageType(t *testing.T) {
	_, base := startServer(t)
	conn := subscribe(t, base)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dance"}))
	ev := readEvent(t, conn)
	assert.Equal(t, entity.EventError, ev.Type)
	assert.Contains(t, ev.Message, "dance")
}

func TestServer_InvalidMessageKeepsSubscriber(t *testing.T) {
	srv, base := startServer(t)
	conn := subscribe(t, base)
	waitSubscribers(t, srv, 1)

	frames := []string{
		`not json`,
		`{"type":"join_machine","machineId":"1"}`,
		`[1]`,
	}
	for _, frame := range frames {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		ev := readEvent(t, conn)
		assert.Equal(t, entity.EventError, ev.Type, frame)
		assert.Equal(t, "Invalid message format", ev.Message, frame)
	}
	assert.Equal(t, 1, srv.Subscribers())

	require.NoError(t, srv.Emit(context.Background(), entity.TicketClosed(1, 1)))
	assert.Equal(t, entity.EventTicketClosed, readEvent(t, conn).Type)
}

func TestServer_EmitWithoutSubscribers(t *testing.T) {
	srv, _ := startServer(t)
	err := srv.Emit(context.Background(), entity.TicketClosed(1, 1))
	assert.ErrorIs(t, err, entity.ErrEventSource)
}

func TestServer_HTTPEmit(t *testing.T) {
	srv, base := startServer(t)
	conn := subscribe(t, base)
	waitSubscribers(t, srv, 1)

	resp, err := http.Post(base+"/emit", "application/json", bytes.NewBufferString(`{"type":"ticket_closed","ticketId":2,"machineId":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, entity.EventTicketClosed, readEvent(t, conn).Type)

	resp, err = http.Post(base+"/emit", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Healthz(t *testing.T) {
	srv := NewServer(logger.NewNopAdapter())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClient_Emit(t *testing.T) {
	srv, base := startServer(t)
	conn := subscribe(t, base)
	waitSubscribers(t, srv, 1)

	client, err := NewClient(base)
	require.NoError(t, err)

	require.NoError(t, client.Emit(context.Background(), entity.TicketClosed(5, 1)))
	ev := readEvent(t, conn)
	assert.Equal(t, 5, ev.TicketID)
}

func TestClient_EmitRejected(t *testing.T) {
	_, base := startServer(t)

	client, err := NewClient(base + "/")
	require.NoError(t, err)

	err = client.Emit(context.Background(), entity.TicketClosed(5, 1))
	assert.ErrorIs(t, err, entity.ErrEventSource)
	assert.Contains(t, err.Error(), "no subscriber")
}

func TestNewClient_Schemes(t *testing.T) {
	c, err := NewClient("https://events.local/base")
	require.NoError(t, err)
	assert.Equal(t, "wss://events.local/base/control", c.controlURL)

	_, err = NewClient("ftp://events.local")
	assert.Error(t, err)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := NewClient(base)
	require.NoError(t, err)
	assert.ErrorIs(t, client.Emit(context.Background(), entity.TicketClosed(1, 1)), entity.ErrEventSource)
}
