package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PushKind names a server-originated event.
type PushKind string

const (
	PushGameCreated     PushKind = "game_created"
	PushGameJoined      PushKind = "game_joined"
	PushGameStarted     PushKind = "game_started"
	PushSpectateJoined  PushKind = "spectate_joined"
	PushGameUpdate      PushKind = "game_update"
	PushMoveError       PushKind = "move_error"
	PushRoomDeleted     PushKind = "room_deleted"
	PushRoomList        PushKind = "room_list"
	PushMessageHistory  PushKind = "message_history"
	PushNewMessage      PushKind = "new_message"
	PushUnreadUpdated   PushKind = "unread_updated"
	PushDMCreated       PushKind = "dm_created"
	PushGroupCreated    PushKind = "group_created"
	PushRoomListUpdated PushKind = "room_list_updated"
	PushOnlineCount     PushKind = "online_count"
	PushError           PushKind = "error"
)

// ErrUnknownPush is returned by DecodePush for a push kind this client
// does not understand. Callers drop such frames; they are never fatal.
var ErrUnknownPush = errors.New("unknown push kind")

// Push is the tagged union of everything the server can deliver.
type Push interface {
	Kind() PushKind
}

// GameCreated confirms a create_game intent. It initializes a session in
// waiting status with the creator as player one.
type GameCreated struct {
	RoomCode  string   `json:"room_code"`
	GameKind  GameKind `json:"kind"`
	GameName  string   `json:"game_name,omitempty"`
	PlayerOne string   `json:"player1"`
	Private   bool     `json:"private,omitempty"`
}

func (*GameCreated) Kind() PushKind { return PushGameCreated }

// GameJoined confirms a join_game intent for the joining player. It is the
// only push that establishes player two's session, so it carries the full
// payload.
type GameJoined struct {
	RoomCode  string     `json:"room_code"`
	GameKind  GameKind   `json:"kind"`
	GameName  string     `json:"game_name,omitempty"`
	Status    GameStatus `json:"status"`
	Board     Board      `json:"board"`
	PlayerOne string     `json:"player1"`
	PlayerTwo string     `json:"player2"`
	Role      Role       `json:"role"`
}

func (*GameJoined) Kind() PushKind { return PushGameJoined }

// GameStarted tells the room's creator that a second player joined. It only
// patches an existing session; the optional fields are filled by the server
// when matchmaking created the room on the creator's behalf.
type GameStarted struct {
	Status    GameStatus `json:"status"`
	Board     Board      `json:"board"`
	PlayerTwo string     `json:"player2"`
	GameKind  GameKind   `json:"kind,omitempty"`
	GameName  string     `json:"game_name,omitempty"`
	PlayerOne string     `json:"player1,omitempty"`
}

func (*GameStarted) Kind() PushKind { return PushGameStarted }

// SpectateJoined confirms a spectate_game intent with the full read-only
// payload.
type SpectateJoined struct {
	RoomCode  string     `json:"room_code"`
	GameKind  GameKind   `json:"kind"`
	GameName  string     `json:"game_name,omitempty"`
	Status    GameStatus `json:"status"`
	Board     Board      `json:"board"`
	PlayerOne string     `json:"player1"`
	PlayerTwo string     `json:"player2"`
}

func (*SpectateJoined) Kind() PushKind { return PushSpectateJoined }

// GameUpdate replaces the board after any accepted move. When GameOver is
// set it also ends the session: either a winner is named, or Draw is set,
// and ResignedBy records a forfeit when that is how the game ended.
type GameUpdate struct {
	Board      Board  `json:"board"`
	GameOver   bool   `json:"game_over,omitempty"`
	Winner     Role   `json:"winner,omitempty"`
	WinnerName string `json:"winner_name,omitempty"`
	Draw       bool   `json:"draw,omitempty"`
	ResignedBy Role   `json:"resigned_by,omitempty"`
}

func (*GameUpdate) Kind() PushKind { return PushGameUpdate }

// MoveError reports a server-rejected move. Transient; no state changes.
type MoveError struct {
	Message string `json:"message"`
}

func (*MoveError) Kind() PushKind { return PushMoveError }

// RoomDeleted announces that a game room ceased to exist.
type RoomDeleted struct {
	RoomCode string `json:"room_code"`
}

func (*RoomDeleted) Kind() PushKind { return PushRoomDeleted }

// RoomList is a full chat directory snapshot, unread counts included.
type RoomList struct {
	Rooms []ChatRoom `json:"rooms"`
}

func (*RoomList) Kind() PushKind { return PushRoomList }

// MessageHistory answers a load_messages intent.
type MessageHistory struct {
	RoomID   string    `json:"room_id"`
	Messages []Message `json:"messages"`
}

func (*MessageHistory) Kind() PushKind { return PushMessageHistory }

// NewMessage delivers one chat message, either as a room broadcast or as
// the sender's own echo. The two may both arrive for the same message id.
type NewMessage struct {
	Message
}

func (*NewMessage) Kind() PushKind { return PushNewMessage }

// UnreadUpdated carries the server-computed unread count for one room.
type UnreadUpdated struct {
	RoomID string `json:"room_id"`
	Unread int    `json:"unread"`
}

func (*UnreadUpdated) Kind() PushKind { return PushUnreadUpdated }

// DMCreated confirms a create_dm intent. It carries the room descriptor and
// an explicit activate directive, so the client never has to guess when the
// room is ready.
type DMCreated struct {
	Room     ChatRoom `json:"room"`
	Activate bool     `json:"activate,omitempty"`
}

func (*DMCreated) Kind() PushKind { return PushDMCreated }

// GroupCreated confirms a create_group intent. Same contract as DMCreated.
type GroupCreated struct {
	Room     ChatRoom `json:"room"`
	Activate bool     `json:"activate,omitempty"`
}

func (*GroupCreated) Kind() PushKind { return PushGroupCreated }

// RoomListUpdated hints that the directory changed and should be refetched.
type RoomListUpdated struct{}

func (*RoomListUpdated) Kind() PushKind { return PushRoomListUpdated }

// OnlineCount reports how many users are currently connected.
type OnlineCount struct {
	Count int `json:"count"`
}

func (*OnlineCount) Kind() PushKind { return PushOnlineCount }

// ErrCodeWrongPassword marks the one recoverable join failure: the caller
// should re-prompt for a password and retry the same room code.
const ErrCodeWrongPassword = "wrong_password"

// ServerError is the generic error push. CID is copied from the envelope
// when the error answers a correlated intent.
type ServerError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	CID     string `json:"-"`
}

func (*ServerError) Kind() PushKind { return PushError }

// DecodePush turns an envelope into its concrete push. It returns
// ErrUnknownPush for kinds this client does not know.
func DecodePush(env Envelope) (Push, error) {
	var p Push
	switch PushKind(env.Type) {
	case PushGameCreated:
		p = &GameCreated{}
	case PushGameJoined:
		p = &GameJoined{}
	case PushGameStarted:
		p = &GameStarted{}
	case PushSpectateJoined:
		p = &SpectateJoined{}
	case PushGameUpdate:
		p = &GameUpdate{}
	case PushMoveError:
		p = &MoveError{}
	case PushRoomDeleted:
		p = &RoomDeleted{}
	case PushRoomList:
		p = &RoomList{}
	case PushMessageHistory:
		p = &MessageHistory{}
	case PushNewMessage:
		p = &NewMessage{}
	case PushUnreadUpdated:
		p = &UnreadUpdated{}
	case PushDMCreated:
		p = &DMCreated{}
	case PushGroupCreated:
		p = &GroupCreated{}
	case PushRoomListUpdated:
		p = &RoomListUpdated{}
	case PushOnlineCount:
		p = &OnlineCount{}
	case PushError:
		p = &ServerError{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPush, env.Type)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	if se, ok := p.(*ServerError); ok {
		se.CID = env.CID
	}
	return p, nil
}
