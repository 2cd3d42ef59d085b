package protocol

import (
	"encoding/json"
	"time"
)

// GameKind identifies one of the platform's turn-based games.
type GameKind string

const (
	GameTicTacToe  GameKind = "tic-tac-toe"
	GameCheckers   GameKind = "checkers"
	GameBackgammon GameKind = "backgammon"
	GameChess      GameKind = "chess"
)

// Role is a session participant's fixed capacity. It is assigned exactly
// once when a session is initialized and never reassigned.
type Role string

const (
	RoleNone      Role = ""
	RolePlayerOne Role = "player1"
	RolePlayerTwo Role = "player2"
	RoleSpectator Role = "spectator"
)

// GameStatus is the lifecycle state of a game room.
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusPlaying  GameStatus = "playing"
	StatusFinished GameStatus = "finished"
)

// Board is the server-owned board state. The client treats it as opaque;
// the only field it ever reads is current_turn, which gates whether a move
// intent may be sent. Raw preserves the full payload for the view layer.
type Board struct {
	Raw         json.RawMessage
	CurrentTurn Role
}

// UnmarshalJSON keeps the raw payload and peeks current_turn out of it.
func (b *Board) UnmarshalJSON(data []byte) error {
	var peek struct {
		CurrentTurn Role `json:"current_turn"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return err
	}
	b.Raw = append(b.Raw[:0], data...)
	b.CurrentTurn = peek.CurrentTurn
	return nil
}

// MarshalJSON round-trips the raw payload unchanged.
func (b Board) MarshalJSON() ([]byte, error) {
	if len(b.Raw) == 0 {
		return []byte("null"), nil
	}
	return b.Raw, nil
}

// Empty reports whether the board carries no payload yet.
func (b Board) Empty() bool { return len(b.Raw) == 0 }

// RoomKind distinguishes direct-message rooms from group rooms.
type RoomKind string

const (
	RoomDM    RoomKind = "dm"
	RoomGroup RoomKind = "group"
)

// ChatRoom is one entry of the chat directory. Unread is authoritative from
// the server; the client only ever zeroes it locally when the room becomes
// active.
type ChatRoom struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Kind        RoomKind `json:"kind"`
	Unread      int      `json:"unread"`
}

// Message is one chat message. ID is unique and used for deduplication;
// a message is never mutated after it is appended.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}
