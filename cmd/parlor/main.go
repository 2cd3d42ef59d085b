// Command parlor is a terminal client for the Parlor games + chat
// platform.
//
// It drives the reconciliation engine from the command line: login against
// the HTTP API, browse the catalog, lobbies, and leaderboards, then play a
// game or chat over the persistent socket connection.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/parlorhq/parlor-client/api"
	"github.com/parlorhq/parlor-client/chat"
	"github.com/parlorhq/parlor-client/game/session"
	"github.com/parlorhq/parlor-client/protocol"
	"github.com/parlorhq/parlor-client/transport/socket"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: error loading .env file: %v", err)
	}

	root := &cli.Command{
		Name:  "parlor",
		Usage: "terminal client for the Parlor games + chat platform",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "platform base URL",
				Sources: cli.EnvVars("PARLOR_SERVER"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "session token issued by login",
				Sources: cli.EnvVars("PARLOR_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			gamesCommand(),
			lobbiesCommand(),
			leaderboardCommand(),
			playCommand(),
			chatCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func apiClient(cmd *cli.Command) *api.Client {
	c := api.NewClient(cmd.String("server"), nil)
	if token := cmd.String("token"); token != "" {
		c.SetToken(token)
	}
	return c
}

// wsURL derives the socket endpoint from the platform base URL.
func wsURL(base string) string {
	u := strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// connect builds the application-root connection manager and dials it.
func connect(ctx context.Context, cmd *cli.Command) (*socket.Manager, *socket.Conn, error) {
	token := cmd.String("token")
	if token == "" {
		return nil, nil, errors.New("no session token: run `parlor login` and export PARLOR_TOKEN")
	}

	mgr := socket.NewManager(socket.Options{
		URL:       wsURL(cmd.String("server")),
		Reconnect: true,
	})
	conn, err := mgr.Connect(ctx, token)
	if err != nil {
		if errors.Is(err, socket.ErrUnauthorized) {
			return nil, nil, errors.New("session token rejected: log in again")
		}
		return nil, nil, err
	}
	return mgr, conn, nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "exchange credentials for a session token",
		ArgsUsage: "USERNAME PASSWORD",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "register", Usage: "create the account first"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New("usage: parlor login USERNAME PASSWORD")
			}
			client := apiClient(cmd)
			username, password := cmd.Args().Get(0), cmd.Args().Get(1)

			var tok api.TokenResponse
			var err error
			if cmd.Bool("register") {
				tok, err = client.Register(ctx, username, password)
			} else {
				tok, err = client.Login(ctx, username, password)
			}
			if err != nil {
				return err
			}

			fmt.Printf("logged in as %s (user %d)\n", tok.Username, tok.UserID)
			fmt.Printf("export PARLOR_TOKEN=%s\n", tok.AccessToken)
			return nil
		},
	}
}

func gamesCommand() *cli.Command {
	return &cli.Command{
		Name:  "games",
		Usage: "list the game catalog",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			games, err := apiClient(cmd).Games(ctx)
			if err != nil {
				return err
			}
			for _, g := range games {
				fmt.Printf("%-14s %s — %s\n", g.Slug, g.Name, g.Description)
			}
			return nil
		},
	}
}

func lobbiesCommand() *cli.Command {
	return &cli.Command{
		Name:      "lobbies",
		Usage:     "list open lobbies and spectatable games for a game",
		ArgsUsage: "GAME",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			slug := cmd.Args().First()
			if slug == "" {
				return errors.New("usage: parlor lobbies GAME")
			}
			client := apiClient(cmd)

			lobbies, err := client.Lobbies(ctx, slug)
			if err != nil {
				return err
			}
			fmt.Printf("open lobbies (%d):\n", len(lobbies))
			for _, l := range lobbies {
				lock := ""
				if l.IsPrivate {
					lock = " [private]"
				}
				fmt.Printf("  %s  host=%s  %s%s\n", l.RoomCode, l.Host, l.Age, lock)
			}

			active, err := client.ActiveGames(ctx, slug)
			if err != nil {
				return err
			}
			fmt.Printf("in progress (%d):\n", len(active))
			for _, a := range active {
				fmt.Printf("  %s  %s vs %s  %s\n", a.RoomCode, a.PlayerOne, a.PlayerTwo, a.Age)
			}
			return nil
		},
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:      "leaderboard",
		Usage:     "show the global leaderboard, or one game's",
		ArgsUsage: "[GAME]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := apiClient(cmd)
			if slug := cmd.Args().First(); slug != "" {
				entries, err := client.Leaderboard(ctx, slug)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Printf("%3d. %-16s rating=%d  %dW/%dL/%dD\n",
						e.Rank, e.Username, e.Rating, e.Wins, e.Losses, e.Draws)
				}
				return nil
			}

			entries, err := client.GlobalLeaderboard(ctx)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%3d. %-16s score=%d  %dW/%dL/%dD\n",
					e.Rank, e.Username, e.TotalScore, e.TotalWins, e.TotalLosses, e.TotalDraws)
			}
			return nil
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "create, join, spectate, or matchmake a game, then play it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "create", Usage: "create a room for GAME"},
			&cli.BoolFlag{Name: "private", Usage: "make the created room private"},
			&cli.StringFlag{Name: "join", Usage: "join room CODE"},
			&cli.StringFlag{Name: "spectate", Usage: "spectate room CODE"},
			&cli.StringFlag{Name: "match", Usage: "find an automatic match for GAME"},
			&cli.StringFlag{Name: "password", Usage: "room password for private rooms"},
		},
		Action: runPlay,
	}
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	mgr, conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer mgr.Disconnect()

	ctrl := session.New(conn, session.Options{
		OnChange: func() {},
		OnNotice: func(n session.Notice) {
			switch n.Kind {
			case session.NoticeWrongPassword:
				fmt.Printf("wrong password for %s — retry with --password\n", n.RoomCode)
			case session.NoticeJoinFailed:
				fmt.Printf("could not join %s: %s\n", n.RoomCode, n.Message)
			case session.NoticeMoveRejected:
				fmt.Printf("move rejected: %s\n", n.Message)
			default:
				fmt.Printf("server: %s\n", n.Message)
			}
		},
	})
	sub, err := ctrl.Bind(conn)
	if err != nil {
		return err
	}
	defer sub.Close()

	switch {
	case cmd.String("create") != "":
		err = ctrl.Create(protocol.GameKind(cmd.String("create")), cmd.Bool("private"), cmd.String("password"))
	case cmd.String("join") != "":
		err = ctrl.Join(cmd.String("join"), cmd.String("password"))
	case cmd.String("spectate") != "":
		err = ctrl.Spectate(cmd.String("spectate"))
	case cmd.String("match") != "":
		err = ctrl.FindMatch(protocol.GameKind(cmd.String("match")))
	default:
		return errors.New("one of --create, --join, --spectate, --match is required")
	}
	if err != nil {
		return err
	}

	fmt.Println("commands: state | move <json> | resign | delete | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		verb, rest, _ := strings.Cut(line, " ")
		switch verb {
		case "":
		case "state":
			printSession(ctrl)
		case "move":
			if !json.Valid([]byte(rest)) {
				fmt.Println("move payload must be JSON")
				break
			}
			if err := ctrl.Move(json.RawMessage(rest)); err != nil {
				fmt.Println(err)
			}
		case "resign":
			if err := ctrl.Resign(); err != nil {
				fmt.Println(err)
			}
		case "delete":
			if s, ok := ctrl.Session(); ok {
				_ = ctrl.Delete(s.RoomCode)
			}
		case "quit":
			ctrl.Reset()
			return nil
		default:
			fmt.Printf("unknown command %q\n", verb)
		}
	}
	return scanner.Err()
}

func printSession(ctrl *session.Controller) {
	s, ok := ctrl.Session()
	if !ok {
		fmt.Println("no active game")
		return
	}
	fmt.Printf("room=%s game=%s status=%s role=%s players=[%s vs %s]\n",
		s.RoomCode, s.GameKind, s.Status, s.Role, s.PlayerOne, s.PlayerTwo)
	if !s.Board.Empty() {
		fmt.Printf("board: %s (turn: %s)\n", s.Board.Raw, s.Board.CurrentTurn)
	}
	if t := s.Terminal; t != nil {
		switch {
		case t.Draw:
			fmt.Println("game over: draw")
		case t.ResignedBy != protocol.RoleNone:
			fmt.Printf("game over: %s resigned, %s wins\n", t.ResignedBy, t.WinnerName)
		default:
			fmt.Printf("game over: %s wins\n", t.WinnerName)
		}
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:   "chat",
		Usage:  "browse rooms and chat",
		Action: runChat,
	}
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	mgr, conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer mgr.Disconnect()

	ctrl := chat.New(conn, chat.Options{})
	sub, err := ctrl.Bind(conn)
	if err != nil {
		return err
	}
	defer sub.Close()

	if err := ctrl.FetchDirectory(); err != nil {
		return err
	}

	fmt.Println("commands: rooms | open <id> | history | dm <user> | group <name> | leave <id> | mute <user> | quit | anything else is sent")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		verb, rest, _ := strings.Cut(line, " ")
		switch verb {
		case "":
		case "rooms":
			for _, r := range ctrl.Rooms() {
				marker := " "
				if id, ok := ctrl.ActiveRoom(); ok && id == r.ID {
					marker = "*"
				}
				fmt.Printf("%s %-8s %-20s (%s) unread=%d\n", marker, r.ID, r.DisplayName, r.Kind, r.Unread)
			}
			fmt.Printf("%d users online\n", ctrl.OnlineCount())
		case "open":
			if err := ctrl.ActivateRoom(rest); err != nil {
				fmt.Println(err)
			}
		case "history":
			for _, m := range ctrl.Messages() {
				fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04"), m.SenderName, m.Content)
			}
		case "dm":
			_ = ctrl.CreateDM(rest)
		case "group":
			_ = ctrl.CreateGroup(rest)
		case "leave":
			_ = ctrl.LeaveRoom(rest)
		case "mute":
			_ = ctrl.Mute(rest)
		case "quit":
			return nil
		default:
			if err := ctrl.Send(line); err != nil {
				fmt.Println(err)
			}
		}
	}
	return scanner.Err()
}
