package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"github.com/parlorhq/parlor-client/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Outbound queue depth. Intents are fire-and-forget, so overflow drops
	// rather than blocks.
	sendBuffer = 64
)

var (
	// ErrUnauthorized means the handshake credential was rejected and no
	// connection was established. The caller should force a fresh login.
	ErrUnauthorized = errors.New("socket: credential rejected")

	// ErrClosed means the connection was explicitly torn down.
	ErrClosed = errors.New("socket: connection closed")

	// ErrKindClaimed means a push kind already has a live handler.
	ErrKindClaimed = errors.New("socket: push kind already claimed")
)

// Handler consumes decoded pushes for the kinds it subscribed to.
type Handler interface {
	HandlePush(p protocol.Push)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(p protocol.Push)

// HandlePush calls f(p).
func (f HandlerFunc) HandlePush(p protocol.Push) { f(p) }

// Options configures a connection.
type Options struct {
	// URL is the WebSocket endpoint, e.g. ws://host:port/ws.
	URL string

	// Token is the opaque session credential sent during the handshake.
	Token string

	// Reconnect enables automatic redial with backoff after a transport
	// failure.
	Reconnect bool

	// Dialer overrides websocket.DefaultDialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Conn is one persistent duplex connection to the platform.
type Conn struct {
	opts Options

	mu       sync.Mutex
	ws       *websocket.Conn
	handlers map[protocol.PushKind]Handler
	hooks    []func()
	closed   bool

	send chan []byte
	done chan struct{}
}

// Dial establishes a connection and starts its read and write pumps.
func Dial(ctx context.Context, opts Options) (*Conn, error) {
	ws, err := handshake(ctx, opts)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		opts:     opts,
		ws:       ws,
		handlers: make(map[protocol.PushKind]Handler),
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}

	go c.readPump()
	go c.writePump()
	return c, nil
}

func handshake(ctx context.Context, opts Options) (*websocket.Conn, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	ws, resp, err := dialer.DialContext(ctx, opts.URL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	return ws, nil
}

// Send queues a fire-and-forget intent. It never blocks: a full queue or a
// down transport drops the frame, matching the protocol's at-most-once
// delivery.
func (c *Conn) Send(in protocol.Intent) error {
	return c.SendWithCID(in, "")
}

// SendWithCID queues an intent carrying a correlation id, so that pushes
// answering it can be attributed by the sender.
func (c *Conn) SendWithCID(in protocol.Intent, cid string) error {
	frame, err := protocol.EncodeIntent(in, cid)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- frame:
	default:
		log.Printf("[socket] outbound queue full, dropping %s", in.IntentType())
	}
	return nil
}

// Subscribe claims a set of push kinds for h. Each kind can have at most
// one live handler; the returned Subscription releases exactly this set.
func (c *Conn) Subscribe(h Handler, kinds ...protocol.PushKind) (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range kinds {
		if _, taken := c.handlers[k]; taken {
			return nil, fmt.Errorf("%w: %s", ErrKindClaimed, k)
		}
	}
	for _, k := range kinds {
		c.handlers[k] = h
	}
	return &Subscription{conn: c, kinds: kinds}, nil
}

// OnReconnect registers a hook invoked after every successful redial, in
// registration order. Controllers use it to replay authoritative state.
func (c *Conn) OnReconnect(fn func()) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// Closed reports whether the connection was explicitly torn down.
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	close(c.done)
	if ws != nil {
		deadline := time.Now().Add(writeWait)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = ws.Close()
	}
	return nil
}

// readPump reads frames from the current transport and dispatches them.
// It owns reconnection: when a read fails on a conn that was not closed,
// it redials and resumes.
func (c *Conn) readPump() {
	for {
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws == nil {
			return
		}

		ws.SetReadLimit(maxMessageSize)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			_, frame, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("[socket] read error: %v", err)
				}
				break
			}
			c.dispatch(frame)
		}

		// Detach the dead transport so writes stop targeting it.
		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
		}
		c.mu.Unlock()
		_ = ws.Close()

		if c.Closed() {
			return
		}
		if !c.opts.Reconnect {
			_ = c.Close()
			return
		}
		if !c.redial() {
			return
		}
	}
}

// redial re-establishes the transport with jittered backoff, then fires the
// resume hooks. It returns false once the conn is closed or the credential
// stops being accepted.
func (c *Conn) redial() bool {
	b := &backoff.Backoff{Min: time.Second, Max: 30 * time.Second, Jitter: true}

	for {
		wait := b.Duration()
		log.Printf("[socket] reconnecting in %s", wait.Round(time.Millisecond))
		select {
		case <-c.done:
			return false
		case <-time.After(wait):
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		ws, err := handshake(ctx, c.opts)
		cancel()
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				log.Printf("[socket] credential rejected on reconnect, giving up")
				_ = c.Close()
				return false
			}
			log.Printf("[socket] reconnect failed: %v", err)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = ws.Close()
			return false
		}
		c.ws = ws
		hooks := append([]func(){}, c.hooks...)
		c.mu.Unlock()

		log.Printf("[socket] reconnected")
		for _, fn := range hooks {
			fn()
		}
		return true
	}
}

// dispatch decodes one inbound frame and hands it to the handler claiming
// its kind. Unknown kinds and unclaimed pushes are dropped, never fatal.
func (c *Conn) dispatch(frame []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		log.Printf("[socket] bad frame: %v", err)
		return
	}

	p, err := protocol.DecodePush(env)
	if err != nil {
		if !errors.Is(err, protocol.ErrUnknownPush) {
			log.Printf("[socket] %v", err)
		}
		return
	}

	c.mu.Lock()
	h := c.handlers[p.Kind()]
	c.mu.Unlock()
	if h == nil {
		return
	}
	h.HandlePush(p)
}

// writePump drains the outbound queue and keeps the transport alive with
// pings. Frames queued while no transport is up are dropped.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			c.write(websocket.TextMessage, frame)
		case <-ticker.C:
			c.write(websocket.PingMessage, nil)
		}
	}
}

func (c *Conn) write(messageType int, payload []byte) {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return
	}

	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(messageType, payload); err != nil {
		log.Printf("[socket] write error: %v", err)
	}
}

// Subscription is one claimed set of push kinds.
type Subscription struct {
	conn  *Conn
	kinds []protocol.PushKind
	once  sync.Once
}

// Close releases exactly the kinds this subscription claimed.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.conn.mu.Lock()
		defer s.conn.mu.Unlock()
		for _, k := range s.kinds {
			delete(s.conn.handlers, k)
		}
	})
}
