package protocol

import "encoding/json"

// Intent is a client-initiated request sent over the persistent connection.
// Intents are fire-and-forget: there is no reply other than whatever pushes
// the server chooses to emit.
type Intent interface {
	IntentType() string
}

// CreateGame starts a new game room with the caller as player one.
type CreateGame struct {
	Kind     GameKind `json:"kind"`
	Private  bool     `json:"private,omitempty"`
	Password string   `json:"password,omitempty"`
}

func (CreateGame) IntentType() string { return "create_game" }

// JoinGame joins a waiting room as player two. It is the one intent sent
// with a correlation id, so that a wrong-password error can be told apart
// from any other failure.
type JoinGame struct {
	RoomCode string `json:"room_code"`
	Password string `json:"password,omitempty"`
}

func (JoinGame) IntentType() string { return "join_game" }

// SpectateGame attaches read-only to a running room.
type SpectateGame struct {
	RoomCode string `json:"room_code"`
}

func (SpectateGame) IntentType() string { return "spectate_game" }

// MakeMove submits a move. The move payload is owned by the game's rules
// and passed through opaquely; the server is the sole authority on legality.
type MakeMove struct {
	RoomCode string          `json:"room_code"`
	Move     json.RawMessage `json:"move"`
}

func (MakeMove) IntentType() string { return "make_move" }

// Resign forfeits the current game.
type Resign struct {
	RoomCode string `json:"room_code"`
}

func (Resign) IntentType() string { return "resign" }

// DeleteGame cancels a waiting room. Only honored for the creator.
type DeleteGame struct {
	RoomCode string `json:"room_code"`
}

func (DeleteGame) IntentType() string { return "delete_game" }

// FindMatch requests automatic pairing for a game kind.
type FindMatch struct {
	Kind GameKind `json:"kind"`
}

func (FindMatch) IntentType() string { return "find_match" }

// ListRooms requests a full chat directory snapshot.
type ListRooms struct{}

func (ListRooms) IntentType() string { return "list_rooms" }

// JoinChat attaches the connection to a chat room's broadcasts.
type JoinChat struct {
	RoomID string `json:"room_id"`
}

func (JoinChat) IntentType() string { return "join_chat" }

// LoadMessages requests the message history of a room.
type LoadMessages struct {
	RoomID string `json:"room_id"`
}

func (LoadMessages) IntentType() string { return "load_messages" }

// SendMessage posts a chat message to a room.
type SendMessage struct {
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
}

func (SendMessage) IntentType() string { return "send_message" }

// CreateDM opens (or reuses) a direct-message room with another user.
type CreateDM struct {
	TargetUserID string `json:"target_user_id"`
}

func (CreateDM) IntentType() string { return "create_dm" }

// CreateGroup creates a named group room.
type CreateGroup struct {
	Name string `json:"name"`
}

func (CreateGroup) IntentType() string { return "create_group" }

// LeaveChat leaves a chat room.
type LeaveChat struct {
	RoomID string `json:"room_id"`
}

func (LeaveChat) IntentType() string { return "chat_leave" }

// MuteUser mutes a user in a room. No confirmation contract.
type MuteUser struct {
	UserID string `json:"user_id"`
	RoomID string `json:"room_id"`
}

func (MuteUser) IntentType() string { return "chat_mute" }

// ReportUser reports a user in a room. No confirmation contract.
type ReportUser struct {
	UserID string `json:"user_id"`
	RoomID string `json:"room_id"`
	Reason string `json:"reason,omitempty"`
}

func (ReportUser) IntentType() string { return "chat_report" }

// Resume asks the server to replay authoritative state after a transport
// reconnection: the current game session snapshot when RoomCode is set, and
// the chat room attachment when RoomID is set. The server answers with the
// ordinary pushes (game_joined/spectate_joined, message_history, ...).
type Resume struct {
	RoomCode string `json:"room_code,omitempty"`
	RoomID   string `json:"room_id,omitempty"`
}

func (Resume) IntentType() string { return "resume" }
