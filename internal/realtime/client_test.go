package realtime_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldcart/internal/domain"
	"fieldcart/internal/realtime"
)

// testServer is a minimal push endpoint: it records inbound frames and lets
// tests push frames to the connected client.
type testServer struct {
	*httptest.Server

	mu        sync.Mutex
	conn      *websocket.Conn
	received  []realtime.Frame
	connected chan struct{}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{connected: make(chan struct{}, 4)}
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.conn = conn
		ts.mu.Unlock()
		ts.connected <- struct{}{}
		for {
			var f realtime.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			ts.mu.Lock()
			ts.received = append(ts.received, f)
			ts.mu.Unlock()
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (ts *testServer) push(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	ts.mu.Lock()
	conn := ts.conn
	ts.mu.Unlock()
	require.NotNil(t, conn)
	require.NoError(t, conn.WriteJSON(realtime.Frame{Event: event, Data: data}))
}

func (ts *testServer) frames() []realtime.Frame {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]realtime.Frame(nil), ts.received...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestConnectIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	client := realtime.NewClient("", zerolog.Nop())
	defer client.Close()

	require.NoError(t, client.Connect(ts.wsURL()))
	<-ts.connected

	// Second connect on a live connection is a no-op: no second upgrade.
	require.NoError(t, client.Connect(ts.wsURL()))
	select {
	case <-ts.connected:
		t.Fatal("second connection established")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestJoinRoomFrame(t *testing.T) {
	ts := newTestServer(t)
	client := realtime.NewClient("", zerolog.Nop())
	defer client.Close()

	require.NoError(t, client.Connect(ts.wsURL()))
	<-ts.connected
	require.NoError(t, client.JoinRoom("c1"))

	waitFor(t, func() bool { return len(ts.frames()) == 1 })
	f := ts.frames()[0]
	assert.Equal(t, realtime.EventJoinRoom, f.Event)
	assert.JSONEq(t, `{"chatId":"c1"}`, string(f.Data))

	// Switching conversations re-joins; no leave frame is ever sent.
	require.NoError(t, client.JoinRoom("c2"))
	waitFor(t, func() bool { return len(ts.frames()) == 2 })
	for _, f := range ts.frames() {
		assert.Equal(t, realtime.EventJoinRoom, f.Event)
	}
}

func TestNewMessageDispatch(t *testing.T) {
	ts := newTestServer(t)
	client := realtime.NewClient("", zerolog.Nop())
	defer client.Close()

	var mu sync.Mutex
	var gotChat string
	var gotMsgs []domain.Message
	client.OnNewMessage(func(conversationID string, msg domain.Message) {
		mu.Lock()
		defer mu.Unlock()
		gotChat = conversationID
		gotMsgs = append(gotMsgs, msg)
	})

	require.NoError(t, client.Connect(ts.wsURL()))
	<-ts.connected

	ts.push(t, realtime.EventNewMessage, map[string]any{
		"chatId": "c1",
		"message": domain.Message{
			ID:     "m1",
			Sender: domain.Author{ID: "u-2"},
			Text:   "the kale is in",
		},
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(gotMsgs) == 1
	})
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "c1", gotChat)
	assert.Equal(t, "m1", gotMsgs[0].ID)
	assert.Equal(t, "the kale is in", gotMsgs[0].Text)
	assert.False(t, gotMsgs[0].Sender.Populated())
}

// After Close, no handler fires even if the server pushes another frame.
func TestNoDispatchAfterClose(t *testing.T) {
	ts := newTestServer(t)
	client := realtime.NewClient("", zerolog.Nop())

	var mu sync.Mutex
	count := 0
	client.OnNewMessage(func(string, domain.Message) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	require.NoError(t, client.Connect(ts.wsURL()))
	<-ts.connected

	client.Close()
	// Best effort: the connection may already be gone server-side.
	ts.mu.Lock()
	conn := ts.conn
	ts.mu.Unlock()
	data, _ := json.Marshal(map[string]any{"chatId": "c1", "message": domain.Message{ID: "m1"}})
	_ = conn.WriteJSON(realtime.Frame{Event: realtime.EventNewMessage, Data: data})

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, count)

	// Close twice is safe; the client stays unusable.
	client.Close()
	assert.Error(t, client.Connect(ts.wsURL()))
	assert.Error(t, client.JoinRoom("c1"))
}

// Close must not return while a handler is still running for a frame that
// was already in flight.
func TestCloseWaitsForRunningHandler(t *testing.T) {
	ts := newTestServer(t)
	client := realtime.NewClient("", zerolog.Nop())

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	mutated := false
	client.OnNewMessage(func(string, domain.Message) {
		close(entered)
		<-release
		mu.Lock()
		mutated = true
		mu.Unlock()
	})

	require.NoError(t, client.Connect(ts.wsURL()))
	<-ts.connected
	ts.push(t, realtime.EventNewMessage, map[string]any{
		"chatId":  "c1",
		"message": domain.Message{ID: "m1", Text: "still in flight"},
	})
	<-entered

	closed := make(chan struct{})
	var mutatedAtClose bool
	go func() {
		client.Close()
		mu.Lock()
		mutatedAtClose = mutated
		mu.Unlock()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a handler was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the handler finished")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, mutatedAtClose)
}

// Once the write pump has died with the connection, JoinRoom errors instead
// of queueing frames nobody will send.
func TestJoinRoomFailsAfterConnectionDrop(t *testing.T) {
	ts := newTestServer(t)
	client := realtime.NewClient("", zerolog.Nop())
	defer client.Close()

	require.NoError(t, client.Connect(ts.wsURL()))
	<-ts.connected

	ts.mu.Lock()
	ts.conn.Close()
	ts.mu.Unlock()

	// The pump only notices on its next write; keep joining until it has.
	waitFor(t, func() bool { return client.JoinRoom("c1") != nil })
}
