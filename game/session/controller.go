package session

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/parlorhq/parlor-client/protocol"
	"github.com/parlorhq/parlor-client/transport/socket"
)

var (
	// ErrNoSession means an operation needs an active session and there is
	// none.
	ErrNoSession = errors.New("session: no active session")

	// ErrNotPlaying means the session is not in playing status.
	ErrNotPlaying = errors.New("session: game is not in play")

	// ErrSpectator means the local participant attached read-only.
	ErrSpectator = errors.New("session: spectators cannot move")

	// ErrNotYourTurn means the board's current turn belongs to the
	// opponent.
	ErrNotYourTurn = errors.New("session: not your turn")
)

// Sender delivers intents over the persistent connection. *socket.Conn
// satisfies it; tests substitute a recorder.
type Sender interface {
	Send(in protocol.Intent) error
	SendWithCID(in protocol.Intent, cid string) error
}

// NoticeKind classifies the transient, non-fatal conditions the view must
// surface.
type NoticeKind string

const (
	// NoticeWrongPassword is the one recoverable join failure: re-prompt
	// for a password and retry the same room code.
	NoticeWrongPassword NoticeKind = "wrong_password"

	// NoticeJoinFailed is any other join failure. No session was created.
	NoticeJoinFailed NoticeKind = "join_failed"

	// NoticeMoveRejected is a server-rejected move. State is unchanged.
	NoticeMoveRejected NoticeKind = "move_rejected"

	// NoticeServerError is an unlabeled server error with no state effect.
	NoticeServerError NoticeKind = "server_error"
)

// Notice is a transient condition for the view. It never alters session
// state.
type Notice struct {
	Kind     NoticeKind
	RoomCode string
	Message  string
}

// Terminal records how a finished game ended. Exactly one of Winner or
// Draw is meaningful; ResignedBy is set when the game ended by forfeit.
type Terminal struct {
	Winner     protocol.Role
	WinnerName string
	Draw       bool
	ResignedBy protocol.Role
}

// Session is a snapshot of the local view of one game room.
type Session struct {
	RoomCode  string
	GameKind  protocol.GameKind
	GameName  string
	Status    protocol.GameStatus
	Board     protocol.Board
	PlayerOne string
	PlayerTwo string
	Role      protocol.Role
	Spectator bool
	Private   bool
	Terminal  *Terminal
}

// Options configures a controller's view callbacks. Both are optional and
// are invoked synchronously from whatever goroutine delivered the push.
type Options struct {
	// OnChange fires after any state mutation; the view re-reads Session().
	OnChange func()

	// OnNotice receives transient conditions to surface.
	OnNotice func(Notice)
}

type pendingJoin struct {
	cid      string
	roomCode string
}

// Controller is the game session state machine.
type Controller struct {
	sender   Sender
	onChange func()
	onNotice func(Notice)

	mu      sync.RWMutex
	cur     *Session
	pending *pendingJoin
}

// New returns a controller sending intents through sender. A nil sender is
// allowed: every intent becomes a no-op, matching the disconnected state.
func New(sender Sender, opts Options) *Controller {
	return &Controller{
		sender:   sender,
		onChange: opts.OnChange,
		onNotice: opts.OnNotice,
	}
}

// Kinds is the disjoint set of push kinds this controller consumes.
func Kinds() []protocol.PushKind {
	return []protocol.PushKind{
		protocol.PushGameCreated,
		protocol.PushGameJoined,
		protocol.PushGameStarted,
		protocol.PushSpectateJoined,
		protocol.PushGameUpdate,
		protocol.PushMoveError,
		protocol.PushRoomDeleted,
		protocol.PushError,
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

// resume asks the server to replay the session snapshot after a transport
// reconnection.
func (c *Controller) resume() {
	c.mu.RLock()
	cur := c.cur
	c.mu.RUnlock()
	if cur == nil {
		return
	}
	_ = c.send(protocol.Resume{RoomCode: cur.RoomCode})
}

func (c *Controller) send(in protocol.Intent) error {
	if c.sender == nil {
		return nil
	}
	return c.sender.Send(in)
}

// Session returns a snapshot of the current session, if any.
func (c *Controller) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cur == nil {
		return Session{}, false
	}
	s := *c.cur
	if c.cur.Terminal != nil {
		t := *c.cur.Terminal
		s.Terminal = &t
	}
	return s, true
}

// Create starts a new room as player one. The session is established by
// the confirming game_created push, not here.
func (c *Controller) Create(kind protocol.GameKind, private bool, password string) error {
	in := protocol.CreateGame{Kind: kind}
	if private {
		in.Private = true
		in.Password = password
	}
	return c.send(in)
}

// Join joins a waiting room as player two. The intent carries a
// correlation id so a later error push can be classified; the session is
// established only by the confirming game_joined push.
func (c *Controller) Join(roomCode, password string) error {
	if c.sender == nil {
		return nil
	}
	cid := protocol.NewCID()
	c.mu.Lock()
	c.pending = &pendingJoin{cid: cid, roomCode: roomCode}
	c.mu.Unlock()
	return c.sender.SendWithCID(protocol.JoinGame{RoomCode: roomCode, Password: password}, cid)
}

// Spectate attaches read-only to a running room.
func (c *Controller) Spectate(roomCode string) error {
	return c.send(protocol.SpectateGame{RoomCode: roomCode})
}

// FindMatch requests automatic pairing for a game kind.
func (c *Controller) FindMatch(kind protocol.GameKind) error {
	return c.send(protocol.FindMatch{Kind: kind})
}

// Delete cancels a waiting room. The server only honors it for the
// creator; the local session is reset by the resulting room_deleted push.
func (c *Controller) Delete(roomCode string) error {
	return c.send(protocol.DeleteGame{RoomCode: roomCode})
}

// Move submits a move. It fails closed: the intent is not transmitted
// unless a session exists, the game is playing, the local participant is a
// player, and it is that player's turn. These gates are a UX guard; the
// server still validates every move.
func (c *Controller) Move(move json.RawMessage) error {
	// The gates are evaluated under the lock: HandlePush mutates the
	// session struct in place from the read-pump goroutine.
	c.mu.RLock()
	cur := c.cur
	var gate error
	var roomCode string
	switch {
	case cur == nil:
		gate = ErrNoSession
	case cur.Spectator:
		gate = ErrSpectator
	case cur.Status != protocol.StatusPlaying:
		gate = ErrNotPlaying
	case cur.Board.CurrentTurn != cur.Role:
		gate = ErrNotYourTurn
	default:
		roomCode = cur.RoomCode
	}
	c.mu.RUnlock()

	if gate != nil {
		return gate
	}
	return c.send(protocol.MakeMove{RoomCode: roomCode, Move: move})
}

// Resign forfeits the current game. It is sent whenever the session is in
// playing status; the confirming game_update push finishes the session.
func (c *Controller) Resign() error {
	c.mu.RLock()
	var gate error
	var roomCode string
	switch {
	case c.cur == nil:
		gate = ErrNoSession
	case c.cur.Status != protocol.StatusPlaying:
		gate = ErrNotPlaying
	default:
		roomCode = c.cur.RoomCode
	}
	c.mu.RUnlock()

	if gate != nil {
		return gate
	}
	return c.send(protocol.Resign{RoomCode: roomCode})
}

// Reset returns the local state machine to none. The server is not
// notified; the room persists until its own lifecycle ends it.
func (c *Controller) Reset() {
	c.mu.Lock()
	changed := c.cur != nil
	c.cur = nil
	c.pending = nil
	c.mu.Unlock()
	if changed {
		c.notifyChange()
	}
}

// HandlePush applies one server push. Mutations happen under the lock;
// view callbacks fire after it is released.
func (c *Controller) HandlePush(p protocol.Push) {
	var changed bool
	var notices []Notice

	c.mu.Lock()
	switch p := p.(type) {
	case *protocol.GameCreated:
		if c.cur != nil {
			log.Printf("[game] ignoring game_created for %s: session %s is active", p.RoomCode, c.cur.RoomCode)
			break
		}
		c.cur = &Session{
			RoomCode:  p.RoomCode,
			GameKind:  p.GameKind,
			GameName:  p.GameName,
			Status:    protocol.StatusWaiting,
			PlayerOne: p.PlayerOne,
			Role:      protocol.RolePlayerOne,
			Private:   p.Private,
		}
		changed = true

	case *protocol.GameJoined:
		if c.cur != nil {
			log.Printf("[game] ignoring game_joined for %s: session %s is active", p.RoomCode, c.cur.RoomCode)
			break
		}
		role := p.Role
		if role == protocol.RoleNone {
			role = protocol.RolePlayerTwo
		}
		c.cur = &Session{
			RoomCode:  p.RoomCode,
			GameKind:  p.GameKind,
			GameName:  p.GameName,
			Status:    p.Status,
			Board:     p.Board,
			PlayerOne: p.PlayerOne,
			PlayerTwo: p.PlayerTwo,
			Role:      role,
		}
		if c.pending != nil && c.pending.roomCode == p.RoomCode {
			c.pending = nil
		}
		changed = true

	case *protocol.GameStarted:
		// Patch only. Role and room code belong to the creator and are
		// never overwritten here.
		if c.cur == nil {
			break
		}
		c.cur.Status = p.Status
		c.cur.Board = p.Board
		c.cur.PlayerTwo = p.PlayerTwo
		if p.GameKind != "" {
			c.cur.GameKind = p.GameKind
		}
		if p.GameName != "" {
			c.cur.GameName = p.GameName
		}
		if p.PlayerOne != "" {
			c.cur.PlayerOne = p.PlayerOne
		}
		changed = true

	case *protocol.SpectateJoined:
		if c.cur != nil {
			log.Printf("[game] ignoring spectate_joined for %s: session %s is active", p.RoomCode, c.cur.RoomCode)
			break
		}
		c.cur = &Session{
			RoomCode:  p.RoomCode,
			GameKind:  p.GameKind,
			GameName:  p.GameName,
			Status:    p.Status,
			Board:     p.Board,
			PlayerOne: p.PlayerOne,
			PlayerTwo: p.PlayerTwo,
			Role:      protocol.RoleSpectator,
			Spectator: true,
		}
		changed = true

	case *protocol.GameUpdate:
		if c.cur == nil {
			break
		}
		c.cur.Board = p.Board
		if p.GameOver {
			c.cur.Status = protocol.StatusFinished
			c.cur.Terminal = &Terminal{
				Winner:     p.Winner,
				WinnerName: p.WinnerName,
				Draw:       p.Draw,
				ResignedBy: p.ResignedBy,
			}
		}
		changed = true

	case *protocol.MoveError:
		notices = append(notices, Notice{Kind: NoticeMoveRejected, Message: p.Message})

	case *protocol.RoomDeleted:
		if c.cur == nil {
			break
		}
		c.cur = nil
		c.pending = nil
		changed = true

	case *protocol.ServerError:
		if c.pending != nil && p.CID != "" && p.CID == c.pending.cid {
			n := Notice{RoomCode: c.pending.roomCode, Message: p.Message}
			if p.Code == protocol.ErrCodeWrongPassword {
				n.Kind = NoticeWrongPassword
			} else {
				n.Kind = NoticeJoinFailed
			}
			notices = append(notices, n)
			c.pending = nil
		} else {
			notices = append(notices, Notice{Kind: NoticeServerError, Message: p.Message})
		}
	}
	c.mu.Unlock()

	if changed {
		c.notifyChange()
	}
	for _, n := range notices {
		c.notify(n)
	}
}

func (c *Controller) notifyChange() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) notify(n Notice) {
	if c.onNotice != nil {
		c.onNotice(n)
	}
}
