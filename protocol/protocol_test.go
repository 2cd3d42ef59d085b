package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeIntent(t *testing.T) {
	frame, err := EncodeIntent(JoinGame{RoomCode: "ABCD", Password: "pw"}, "cid-1")
	if err != nil {
		t.Fatalf("EncodeIntent failed: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}
	if env.Type != "join_game" {
		t.Errorf("expected type join_game, got %q", env.Type)
	}
	if env.CID != "cid-1" {
		t.Errorf("expected cid-1, got %q", env.CID)
	}

	var payload JoinGame
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("payload decode failed: %v", err)
	}
	if payload.RoomCode != "ABCD" || payload.Password != "pw" {
		t.Errorf("payload round-trip mismatch: %+v", payload)
	}
}

func TestEncodeIntent_OmitsEmptyCID(t *testing.T) {
	frame, err := EncodeIntent(ListRooms{}, "")
	if err != nil {
		t.Fatalf("EncodeIntent failed: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(frame, &raw); err != nil {
		t.Fatal(err)
	}
	if _, present := raw["cid"]; present {
		t.Error("empty cid should be omitted from the envelope")
	}
}

func TestDecodePush_GameUpdate(t *testing.T) {
	env := Envelope{
		Type: "game_update",
		Data: json.RawMessage(`{
			"board": {"cells": ["X", null, null], "current_turn": "player2"},
			"game_over": true,
			"winner": "player1",
			"winner_name": "alice",
			"resigned_by": "player2"
		}`),
	}

	p, err := DecodePush(env)
	if err != nil {
		t.Fatalf("DecodePush failed: %v", err)
	}
	upd, ok := p.(*GameUpdate)
	if !ok {
		t.Fatalf("expected *GameUpdate, got %T", p)
	}
	if upd.Board.CurrentTurn != RolePlayerTwo {
		t.Errorf("expected current turn player2, got %q", upd.Board.CurrentTurn)
	}
	if len(upd.Board.Raw) == 0 {
		t.Error("board raw payload was not preserved")
	}
	if !upd.GameOver || upd.Winner != RolePlayerOne || upd.ResignedBy != RolePlayerTwo {
		t.Errorf("terminal fields mismatch: %+v", upd)
	}
}

func TestDecodePush_AllKindsKnown(t *testing.T) {
	kinds := []PushKind{
		PushGameCreated, PushGameJoined, PushGameStarted, PushSpectateJoined,
		PushGameUpdate, PushMoveError, PushRoomDeleted, PushRoomList,
		PushMessageHistory, PushNewMessage, PushUnreadUpdated, PushDMCreated,
		PushGroupCreated, PushRoomListUpdated, PushOnlineCount, PushError,
	}
	for _, k := range kinds {
		p, err := DecodePush(Envelope{Type: string(k)})
		if err != nil {
			t.Errorf("kind %s: unexpected error %v", k, err)
			continue
		}
		if p.Kind() != k {
			t.Errorf("kind %s decoded as %s", k, p.Kind())
		}
	}
}

func TestDecodePush_Unknown(t *testing.T) {
	_, err := DecodePush(Envelope{Type: "telemetry_blob"})
	if !errors.Is(err, ErrUnknownPush) {
		t.Errorf("expected ErrUnknownPush, got %v", err)
	}
}

func TestDecodePush_ErrorCarriesCID(t *testing.T) {
	env := Envelope{
		Type: "error",
		CID:  "join-42",
		Data: json.RawMessage(`{"code": "wrong_password", "message": "Wrong password"}`),
	}
	p, err := DecodePush(env)
	if err != nil {
		t.Fatalf("DecodePush failed: %v", err)
	}
	se := p.(*ServerError)
	if se.CID != "join-42" {
		t.Errorf("expected envelope cid to be copied, got %q", se.CID)
	}
	if se.Code != ErrCodeWrongPassword {
		t.Errorf("expected wrong_password code, got %q", se.Code)
	}
}

func TestBoard_RoundTrip(t *testing.T) {
	raw := `{"pieces":[[1,2],[3,4]],"current_turn":"player1"}`
	var b Board
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if b.CurrentTurn != RolePlayerOne {
		t.Errorf("expected current turn player1, got %q", b.CurrentTurn)
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != raw {
		t.Errorf("board did not round-trip: %s", out)
	}
}

func TestBoard_EmptyMarshalsNull(t *testing.T) {
	out, err := json.Marshal(Board{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "null" {
		t.Errorf("expected null, got %s", out)
	}
}
