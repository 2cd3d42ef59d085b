package chat

import (
	"sort"
	"strings"
	"sync"

	"github.com/parlorhq/parlor-client/protocol"
	"github.com/parlorhq/parlor-client/transport/socket"
)

// Sender delivers intents over the persistent connection. *socket.Conn
// satisfies it; tests substitute a recorder.
type Sender interface {
	Send(in protocol.Intent) error
}

// Options configures the view callback. OnChange fires after any state
// mutation, synchronously on the goroutine that delivered the push.
type Options struct {
	OnChange func()
}

// Controller reconciles the room directory and the active room's message
// buffer.
type Controller struct {
	sender   Sender
	onChange func()

	mu       sync.RWMutex
	rooms    map[string]protocol.ChatRoom
	activeID string
	messages []protocol.Message
	seen     map[string]struct{}
	online   int
}

// New returns a controller sending intents through sender. A nil sender is
// allowed: every intent becomes a no-op, matching the disconnected state.
func New(sender Sender, opts Options) *Controller {
	return &Controller{
		sender:   sender,
		onChange: opts.OnChange,
		rooms:    make(map[string]protocol.ChatRoom),
		seen:     make(map[string]struct{}),
	}
}

// Kinds is the disjoint set of push kinds this controller consumes.
func Kinds() []protocol.PushKind {
	return []protocol.PushKind{
		protocol.PushRoomList,
		protocol.PushMessageHistory,
		protocol.PushNewMessage,
		protocol.PushUnreadUpdated,
		protocol.PushDMCreated,
		protocol.PushGroupCreated,
		protocol.PushRoomListUpdated,
		protocol.PushOnlineCount,
	}
}

// Bind attaches the controller to a connection: it claims the controller's
// push kinds and registers the resume hook. The returned subscription
// detaches exactly those kinds.
func (c *Controller) Bind(conn *socket.Conn) (*socket.Subscription, error) {
	sub, err := conn.Subscribe(c, Kinds()...)
	if err != nil {
		return nil, err
	}
	conn.OnReconnect(c.resume)
	return sub, nil
}

// resume refetches the directory after a transport reconnection and
// re-attaches the active room so its broadcasts and history flow again.
func (c *Controller) resume() {
	c.mu.RLock()
	active := c.activeID
	c.mu.RUnlock()

	_ = c.send(protocol.ListRooms{})
	if active != "" {
		_ = c.send(protocol.Resume{RoomID: active})
	}
}

func (c *Controller) send(in protocol.Intent) error {
	if c.sender == nil {
		return nil
	}
	return c.sender.Send(in)
}

// Rooms returns the directory sorted by display name for stable rendering.
func (c *Controller) Rooms() []protocol.ChatRoom {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]protocol.ChatRoom, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Room returns one directory entry by id.
func (c *Controller) Room(id string) (protocol.ChatRoom, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[id]
	return r, ok
}

// ActiveRoom returns the id of the hydrated room, if any.
func (c *Controller) ActiveRoom() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeID, c.activeID != ""
}

// Messages returns a copy of the active room's buffer in arrival order.
func (c *Controller) Messages() []protocol.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]protocol.Message(nil), c.messages...)
}

// OnlineCount returns the last reported number of connected users.
func (c *Controller) OnlineCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

// FetchDirectory requests a full directory snapshot.
func (c *Controller) FetchDirectory() error {
	return c.send(protocol.ListRooms{})
}

// ActivateRoom makes a room the single hydrated one. The unread counter is
// zeroed optimistically (the active room is definitionally read), the
// buffer is cleared, and a join + history-request pair is issued.
func (c *Controller) ActivateRoom(id string) error {
	c.mu.Lock()
	c.activeID = id
	c.messages = nil
	c.seen = make(map[string]struct{})
	if r, ok := c.rooms[id]; ok {
		r.Unread = 0
		c.rooms[id] = r
	}
	c.mu.Unlock()
	c.notifyChange()

	if err := c.send(protocol.JoinChat{RoomID: id}); err != nil {
		return err
	}
	return c.send(protocol.LoadMessages{RoomID: id})
}

// Send posts a message to the active room. Empty or whitespace-only
// content, or no active room, is a no-op.
func (c *Controller) Send(content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	c.mu.RLock()
	active := c.activeID
	c.mu.RUnlock()
	if active == "" {
		return nil
	}
	return c.send(protocol.SendMessage{RoomID: active, Content: content})
}

// CreateDM opens (or reuses) a direct-message room. The confirming push
// carries the descriptor and an activate directive.
func (c *Controller) CreateDM(targetUserID string) error {
	return c.send(protocol.CreateDM{TargetUserID: targetUserID})
}

// CreateGroup creates a named group room. Same contract as CreateDM.
func (c *Controller) CreateGroup(name string) error {
	return c.send(protocol.CreateGroup{Name: name})
}

// LeaveRoom leaves a room: fire-and-forget intent plus immediate local
// removal. The removal is optimistic and not rolled back on failure.
func (c *Controller) LeaveRoom(id string) error {
	c.mu.Lock()
	delete(c.rooms, id)
	if c.activeID == id {
		c.activeID = ""
		c.messages = nil
		c.seen = make(map[string]struct{})
	}
	c.mu.Unlock()
	c.notifyChange()

	return c.send(protocol.LeaveChat{RoomID: id})
}

// Mute mutes a user in the active room. Fire-and-forget, no confirmation.
// No-op without an active room.
func (c *Controller) Mute(userID string) error {
	c.mu.RLock()
	active := c.activeID
	c.mu.RUnlock()
	if active == "" {
		return nil
	}
	return c.send(protocol.MuteUser{UserID: userID, RoomID: active})
}

// Report reports a user in the active room. Fire-and-forget, no
// confirmation. No-op without an active room.
func (c *Controller) Report(userID, reason string) error {
	c.mu.RLock()
	active := c.activeID
	c.mu.RUnlock()
	if active == "" {
		return nil
	}
	return c.send(protocol.ReportUser{UserID: userID, RoomID: active, Reason: reason})
}

// HandlePush applies one server push. Mutations happen under the lock;
// follow-up intents and the view callback run after it is released.
func (c *Controller) HandlePush(p protocol.Push) {
	var changed bool
	var activate string
	var refresh bool

	c.mu.Lock()
	switch p := p.(type) {
	case *protocol.RoomList:
		// Wholesale replacement; the snapshot's unread counts are
		// authoritative except for the active room, which is read by
		// definition.
		c.rooms = make(map[string]protocol.ChatRoom, len(p.Rooms))
		for _, r := range p.Rooms {
			if r.ID == c.activeID {
				r.Unread = 0
			}
			c.rooms[r.ID] = r
		}
		changed = true

	case *protocol.MessageHistory:
		// A stale response for an already-abandoned room is discarded.
		if p.RoomID != c.activeID {
			break
		}
		c.messages = append([]protocol.Message(nil), p.Messages...)
		c.seen = make(map[string]struct{}, len(p.Messages))
		for _, m := range p.Messages {
			c.seen[m.ID] = struct{}{}
		}
		changed = true

	case *protocol.NewMessage:
		if p.RoomID != c.activeID {
			break
		}
		// The transport may deliver the sender's own message twice: once
		// as the room broadcast and once as the sender echo.
		if _, dup := c.seen[p.ID]; dup {
			break
		}
		c.seen[p.ID] = struct{}{}
		c.messages = append(c.messages, p.Message)
		changed = true

	case *protocol.UnreadUpdated:
		if p.RoomID == c.activeID {
			break
		}
		if r, ok := c.rooms[p.RoomID]; ok {
			r.Unread = p.Unread
			c.rooms[p.RoomID] = r
			changed = true
		}

	case *protocol.DMCreated:
		c.rooms[p.Room.ID] = p.Room
		refresh = true
		if p.Activate {
			activate = p.Room.ID
		}
		changed = true

	case *protocol.GroupCreated:
		c.rooms[p.Room.ID] = p.Room
		refresh = true
		if p.Activate {
			activate = p.Room.ID
		}
		changed = true

	case *protocol.RoomListUpdated:
		refresh = true

	case *protocol.OnlineCount:
		c.online = p.Count
		changed = true
	}
	c.mu.Unlock()

	if refresh {
		_ = c.send(protocol.ListRooms{})
	}
	if activate != "" {
		_ = c.ActivateRoom(activate)
	}
	if changed {
		c.notifyChange()
	}
}

func (c *Controller) notifyChange() {
	if c.onChange != nil {
		c.onChange()
	}
}
