package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Error is a non-2xx platform response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client talks to the platform's HTTP API.
type Client struct {
	baseURL string
	httpc   *http.Client
	token   string
}

// NewClient returns a client for baseURL. A nil httpc uses a default
// client with a request timeout.
func NewClient(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, httpc: httpc}
}

// SetToken attaches the session token to subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		return &Error{Status: resp.StatusCode, Message: detail.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// TokenResponse is issued by the authentication endpoints. AccessToken is
// the opaque credential the socket handshake presents.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
}

// User is the authenticated account.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account and returns its session token.
func (c *Client) Register(ctx context.Context, username, password string) (TokenResponse, error) {
	var tok TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{username, password}, &tok)
	return tok, err
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	var tok TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{username, password}, &tok)
	return tok, err
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u)
	return u, err
}

// GameInfo is one catalog entry.
type GameInfo struct {
	ID          int    `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	MinPlayers  int    `json:"min_players"`
	MaxPlayers  int    `json:"max_players"`
}

// Games returns the static game catalog.
func (c *Client) Games(ctx context.Context) ([]GameInfo, error) {
	var games []GameInfo
	err := c.do(ctx, http.MethodGet, "/api/games", nil, &games)
	return games, err
}

// Lobby is one joinable waiting room.
type Lobby struct {
	RoomCode  string `json:"room_code"`
	Host      string `json:"host"`
	IsPrivate bool   `json:"is_private"`
	Age       string `json:"age"`
}

// Lobbies returns the open waiting rooms for a game.
func (c *Client) Lobbies(ctx context.Context, slug string) ([]Lobby, error) {
	var lobbies []Lobby
	err := c.do(ctx, http.MethodGet, "/api/lobbies/"+slug, nil, &lobbies)
	return lobbies, err
}

// ActiveGame is one running, spectatable room.
type ActiveGame struct {
	RoomCode  string `json:"room_code"`
	PlayerOne string `json:"player1"`
	PlayerTwo string `json:"player2"`
	Age       string `json:"age"`
}

// ActiveGames returns the running rooms for a game, for spectating.
func (c *Client) ActiveGames(ctx context.Context, slug string) ([]ActiveGame, error) {
	var games []ActiveGame
	err := c.do(ctx, http.MethodGet, "/api/active/"+slug, nil, &games)
	return games, err
}

// LeaderboardEntry is one row of a per-game leaderboard.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	UserID   int     `json:"user_id"`
	Rating   int     `json:"rating"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Draws    int     `json:"draws"`
	Total    int     `json:"total"`
	WinRate  float64 `json:"win_rate"`
}

// Leaderboard returns the ranking for one game.
func (c *Client) Leaderboard(ctx context.Context, slug string) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	err := c.do(ctx, http.MethodGet, "/api/leaderboard/"+slug, nil, &entries)
	return entries, err
}

// GlobalLeaderboardEntry is one row of the cross-game leaderboard.
type GlobalLeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	UserID      int    `json:"user_id"`
	TotalScore  int    `json:"total_score"`
	TotalWins   int    `json:"total_wins"`
	TotalLosses int    `json:"total_losses"`
	TotalDraws  int    `json:"total_draws"`
	AvgRating   int    `json:"avg_rating"`
}

// GlobalLeaderboard returns the cross-game ranking.
func (c *Client) GlobalLeaderboard(ctx context.Context) ([]GlobalLeaderboardEntry, error) {
	var entries []GlobalLeaderboardEntry
	err := c.do(ctx, http.MethodGet, "/api/leaderboard", nil, &entries)
	return entries, err
}

// PollLobbies invokes fn with a fresh lobby list every interval until ctx
// is done. The first fetch happens immediately. Fetch errors are passed to
// fn with a nil list; polling continues.
func (c *Client) PollLobbies(ctx context.Context, slug string, interval time.Duration, fn func([]Lobby, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(c.Lobbies(ctx, slug))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
