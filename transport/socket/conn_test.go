package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parlorhq/parlor-client/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// testServer is a minimal in-process platform endpoint. Every accepted
// connection is handed to onConn on its own goroutine.
type testServer struct {
	*httptest.Server

	mu      sync.Mutex
	headers []http.Header
}

func newTestServer(t *testing.T, onConn func(ws *websocket.Conn)) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.headers = append(ts.headers, r.Header.Clone())
		ts.mu.Unlock()

		if r.Header.Get("Authorization") == "Bearer expired" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if onConn != nil {
			go onConn(ws)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (ts *testServer) lastHeader() http.Header {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.headers) == 0 {
		return nil
	}
	return ts.headers[len(ts.headers)-1]
}

func pushFrame(kind protocol.PushKind, data string) []byte {
	frame, _ := json.Marshal(protocol.Envelope{Type: string(kind), Data: json.RawMessage(data)})
	return frame
}

func TestDial_SendsBearerToken(t *testing.T) {
	ts := newTestServer(t, nil)

	conn, err := Dial(context.Background(), Options{URL: ts.wsURL(), Token: "tok-123"})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if got := ts.lastHeader().Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("expected bearer token in handshake, got %q", got)
	}
}

func TestDial_RejectedCredential(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := Dial(context.Background(), Options{URL: ts.wsURL(), Token: "expired"})
	if err != ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestConn_SendDeliversEnvelope(t *testing.T) {
	frames := make(chan []byte, 1)
	ts := newTestServer(t, func(ws *websocket.Conn) {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return
		}
		frames <- frame
	})

	conn, err := Dial(context.Background(), Options{URL: ts.wsURL(), Token: "t"})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.Send(protocol.SendMessage{RoomID: "r1", Content: "hi"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case frame := <-frames:
		var env protocol.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("server received invalid frame: %v", err)
		}
		if env.Type != "send_message" {
			t.Errorf("expected send_message, got %q", env.Type)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server never received the intent")
	}
}

func TestConn_DispatchesPushToSubscriber(t *testing.T) {
	ts := newTestServer(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.TextMessage, pushFrame(protocol.PushOnlineCount, `{"count": 5}`))
	})

	conn, err := Dial(context.Background(), Options{URL: ts.wsURL(), Token: "t"})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	got := make(chan protocol.Push, 1)
	sub, err := conn.Subscribe(HandlerFunc(func(p protocol.Push) { got <- p }), protocol.PushOnlineCount)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	select {
	case p := <-got:
		oc, ok := p.(*protocol.OnlineCount)
		if !ok {
			t.Fatalf("expected *protocol.OnlineCount, got %T", p)
		}
		if oc.Count != 5 {
			t.Errorf("expected count 5, got %d", oc.Count)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("push was not dispatched")
	}
}

func TestConn_UnknownAndUnclaimedPushesAreDropped(t *testing.T) {
	ts := newTestServer(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"telemetry_blob","data":{}}`))
		_ = ws.WriteMessage(websocket.TextMessage, pushFrame(protocol.PushRoomDeleted, `{"room_code":"R"}`))
		_ = ws.WriteMessage(websocket.TextMessage, pushFrame(protocol.PushOnlineCount, `{"count": 1}`))
	})

	conn, err := Dial(context.Background(), Options{URL: ts.wsURL(), Token: "t"})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// Only online_count is claimed; the unknown kind and the unclaimed
	// room_deleted must be silently dropped, not crash the read loop.
	got := make(chan protocol.Push, 1)
	sub, err := conn.Subscribe(HandlerFunc(func(p protocol.Push) { got <- p }), protocol.PushOnlineCount)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	select {
	case p := <-got:
		if p.Kind() != protocol.PushOnlineCount {
			t.Errorf("unexpected push %s reached the handler", p.Kind())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("read loop did not survive the unknown push")
	}
}

func TestConn_SubscriptionIsExclusiveAndDetachable(t *testing.T) {
	ts := newTestServer(t, nil)

	conn, err := Dial(context.Background(), Options{URL: ts.wsURL(), Token: "t"})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	sub, err := conn.Subscribe(HandlerFunc(func(protocol.Push) {}),
		protocol.PushRoomList, protocol.PushNewMessage)
	if err != nil {
		t.Fatal(err)
	}

	// A second claim on an already-claimed kind must fail.
	if _, err := conn.Subscribe(HandlerFunc(func(protocol.Push) {}), protocol.PushNewMessage); err == nil {
		t.Error("overlapping subscription was allowed")
	}

	// Closing releases exactly the claimed set, so a remount succeeds.
	sub.Close()
	sub2, err := conn.Subscribe(HandlerFunc(func(protocol.Push) {}),
		protocol.PushRoomList, protocol.PushNewMessage)
	if err != nil {
		t.Errorf("kinds were not released on detach: %v", err)
	} else {
		sub2.Close()
	}
}

func TestManager_ConnectIsIdempotent(t *testing.T) {
	ts := newTestServer(t, nil)
	mgr := NewManager(Options{URL: ts.wsURL()})

	c1, err := mgr.Connect(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	c2, err := mgr.Connect(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if c1 != c2 {
		t.Error("second Connect created a duplicate connection")
	}
	mgr.Disconnect()
}

func TestManager_EmptyTokenIsNoOp(t *testing.T) {
	ts := newTestServer(t, nil)
	mgr := NewManager(Options{URL: ts.wsURL()})

	conn, err := mgr.Connect(context.Background(), "")
	if err != nil {
		t.Fatalf("missing credential must not be an error, got %v", err)
	}
	if conn != nil {
		t.Error("missing credential must yield an absent handle")
	}
	if mgr.Conn() != nil {
		t.Error("manager retained a connection it never made")
	}
}

func TestManager_DisconnectClearsForFreshConnect(t *testing.T) {
	ts := newTestServer(t, nil)
	mgr := NewManager(Options{URL: ts.wsURL()})

	c1, err := mgr.Connect(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	mgr.Disconnect()

	if mgr.Conn() != nil {
		t.Error("Conn() should be nil after Disconnect")
	}
	if !c1.Closed() {
		t.Error("Disconnect did not close the connection")
	}

	c2, err := mgr.Connect(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Disconnect()
	if c2 == c1 {
		t.Error("Connect after Disconnect returned the torn-down connection")
	}
}

func TestConn_ReconnectFiresResumeHooks(t *testing.T) {
	if testing.Short() {
		t.Skip("reconnect test waits out the backoff")
	}

	var first sync.Once
	ts := newTestServer(t, func(ws *websocket.Conn) {
		// Kill the first connection from the server side; keep later ones.
		first.Do(func() { _ = ws.Close() })
	})

	conn, err := Dial(context.Background(), Options{URL: ts.wsURL(), Token: "t", Reconnect: true})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	resumed := make(chan struct{}, 1)
	conn.OnReconnect(func() { resumed <- struct{}{} })

	select {
	case <-resumed:
	case <-time.After(10 * time.Second):
		t.Fatal("resume hook never fired after transport loss")
	}
	if conn.Closed() {
		t.Error("connection reported closed after a successful reconnect")
	}
}
