package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

// newTestPlatform runs a fake platform HTTP API covering the endpoints the
// client consumes.
func newTestPlatform(t *testing.T) *httptest.Server {
	t.Helper()

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&creds); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if creds.Password != "hunter2" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "tok-abc", TokenType: "bearer", UserID: 7, Username: creds.Username,
		})
	}).Methods("POST")

	r.HandleFunc("/api/games", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode([]GameInfo{
			{ID: 1, Slug: "tic-tac-toe", Name: "Tic-Tac-Toe", MinPlayers: 2, MaxPlayers: 2},
			{ID: 2, Slug: "chess", Name: "Chess", MinPlayers: 2, MaxPlayers: 2},
		})
	}).Methods("GET")

	r.HandleFunc("/api/lobbies/{slug}", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
			return
		}
		if mux.Vars(req)["slug"] != "chess" {
			_ = json.NewEncoder(w).Encode([]Lobby{})
			return
		}
		_ = json.NewEncoder(w).Encode([]Lobby{
			{RoomCode: "ABCD", Host: "alice", IsPrivate: true, Age: "30s ago"},
		})
	}).Methods("GET")

	r.HandleFunc("/api/leaderboard/{slug}", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode([]LeaderboardEntry{
			{Rank: 1, Username: "alice", Rating: 1200, Wins: 10, Losses: 2, Draws: 1, Total: 13, WinRate: 0.77},
		})
	}).Methods("GET")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Login(t *testing.T) {
	srv := newTestPlatform(t)
	client := NewClient(srv.URL, nil)

	tok, err := client.Login(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if tok.AccessToken != "tok-abc" || tok.UserID != 7 || tok.Username != "alice" {
		t.Errorf("token response mismatch: %+v", tok)
	}
}

func TestClient_LoginFailureCarriesDetail(t *testing.T) {
	srv := newTestPlatform(t)
	client := NewClient(srv.URL, nil)

	_, err := client.Login(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatal("expected an error for bad credentials")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Errorf("error fields mismatch: %+v", apiErr)
	}
}

func TestClient_Games(t *testing.T) {
	srv := newTestPlatform(t)
	client := NewClient(srv.URL, nil)

	games, err := client.Games(context.Background())
	if err != nil {
		t.Fatalf("Games failed: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	if games[0].Slug != "tic-tac-toe" || games[1].Slug != "chess" {
		t.Errorf("catalog mismatch: %+v", games)
	}
}

func TestClient_LobbiesRequireToken(t *testing.T) {
	srv := newTestPlatform(t)
	client := NewClient(srv.URL, nil)

	if _, err := client.Lobbies(context.Background(), "chess"); err == nil {
		t.Error("expected an auth error without a token")
	}

	client.SetToken("tok-abc")
	lobbies, err := client.Lobbies(context.Background(), "chess")
	if err != nil {
		t.Fatalf("Lobbies failed: %v", err)
	}
	if len(lobbies) != 1 || lobbies[0].RoomCode != "ABCD" || !lobbies[0].IsPrivate {
		t.Errorf("lobby list mismatch: %+v", lobbies)
	}
}

func TestClient_Leaderboard(t *testing.T) {
	srv := newTestPlatform(t)
	client := NewClient(srv.URL, nil)

	entries, err := client.Leaderboard(context.Background(), "chess")
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "alice" || entries[0].Rating != 1200 {
		t.Errorf("leaderboard mismatch: %+v", entries)
	}
}
