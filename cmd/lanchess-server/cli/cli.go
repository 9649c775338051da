// FILE: lanchess/cmd/lanchess-server/cli/cli.go

// Package cli implements the offline database administration commands
// invoked as "lanchess-server db <subcommand>".
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"
	"golang.org/x/term"

	"lanchess/internal/storage"
)

// Run is the entry point for the CLI mini-app
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, games, top, player")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "games":
		return runGames(args[1:])
	case "top":
		return runTop(args[1:])
	case "player":
		if len(args) < 2 {
			return fmt.Errorf("player subcommand required: add, set-password, list")
		}
		return runPlayer(args[1], args[2:])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func openStore(path string) (*storage.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	store, err := storage.NewStore(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Printf("Database initialized at: %s\n", *path)
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}

	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Printf("Database deleted: %s\n", *path)
	return nil
}

func runGames(args []string) error {
	fs := flag.NewFlagSet("games", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	code := fs.String("code", "", "Game code to filter (optional, * for all)")
	playerID := fs.String("playerId", "", "Player ID to filter (optional, * for all)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	games, err := store.QueryGames(*code, *playerID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(games) == 0 {
		fmt.Println("No games found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Code\tStatus\tWhite\tBlack\tMoves\tClock (W/B)\tCreated")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, g := range games {
		white := g.WhiteName
		if white == "" {
			white = "-"
		}
		black := g.BlackName
		if black == "" {
			black = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d/%d\t%s\n",
			g.Code,
			g.Status,
			white,
			black,
			g.MoveCount,
			g.WhiteTime, g.BlackTime,
			g.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Printf("\nFound %d game(s)\n", len(games))
	return nil
}

func runTop(args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	limit := fs.Int("limit", 20, "Number of entries")

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	players, err := store.Leaderboard(*limit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(players) == 0 {
		fmt.Println("No rated players yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Rank\tUsername\tRating\tGames\tW/L/D\tBest Streak")
	fmt.Fprintln(w, strings.Repeat("-", 70))

	for i, p := range players {
		rating := 0
		if p.Rating != nil {
			rating = *p.Rating
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d/%d/%d\t%d\n",
			i+1, p.Username, rating, p.GamesPlayed,
			p.Wins, p.Losses, p.Draws, p.LongestStreak,
		)
	}
	w.Flush()
	return nil
}

func runPlayer(subcommand string, args []string) error {
	switch subcommand {
	case "add":
		return runPlayerAdd(args)
	case "set-password":
		return runPlayerSetPassword(args)
	case "list":
		return runPlayerList(args)
	default:
		return fmt.Errorf("unknown player subcommand: %s", subcommand)
	}
}

func runPlayerAdd(args []string) error {
	fs := flag.NewFlagSet("player add", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username (required)")
	email := fs.String("email", "", "Email address (optional)")
	password := fs.String("password", "", "Password (optional, will prompt if not provided)")
	interactive := fs.Bool("interactive", false, "Interactive password prompt")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return fmt.Errorf("username required")
	}

	passwordHash, err := resolvePasswordHash(*password, *interactive)
	if err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	// Generate user ID with conflict check
	var userID string
	for attempts := 0; attempts < 10; attempts++ {
		userID = uuid.New().String()
		if _, err := store.GetPlayerByID(userID); err != nil {
			// Player doesn't exist, ID is unique
			break
		}
		if attempts == 9 {
			return fmt.Errorf("failed to generate unique user ID after 10 attempts")
		}
	}

	record := storage.PlayerRecord{
		UserID:       userID,
		Username:     strings.ToLower(*username),
		Email:        strings.ToLower(*email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := store.CreatePlayer(record); err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	fmt.Printf("Player created successfully:\n")
	fmt.Printf("  ID: %s\n", userID)
	fmt.Printf("  Username: %s\n", *username)
	if *email != "" {
		fmt.Printf("  Email: %s\n", *email)
	}
	return nil
}

func runPlayerSetPassword(args []string) error {
	fs := flag.NewFlagSet("player set-password", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username (required)")
	password := fs.String("password", "", "New password")
	interactive := fs.Bool("interactive", false, "Interactive password prompt")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return fmt.Errorf("username required")
	}

	passwordHash, err := resolvePasswordHash(*password, *interactive)
	if err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetPassword(strings.ToLower(*username), passwordHash); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	fmt.Printf("Password updated for: %s\n", *username)
	return nil
}

func runPlayerList(args []string) error {
	fs := flag.NewFlagSet("player list", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	players, err := store.ListPlayers()
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(players) == 0 {
		fmt.Println("No players found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Username\tEmail\tRating\tGames\tCreated")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, p := range players {
		rating := "-"
		if p.Rating != nil {
			rating = fmt.Sprintf("%d", *p.Rating)
		}
		email := p.Email
		if email == "" {
			email = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			p.Username, email, rating, p.GamesPlayed,
			p.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Printf("\nFound %d player(s)\n", len(players))
	return nil
}

// resolvePasswordHash turns the password flags into an Argon2 hash,
// prompting on the terminal when -interactive is set.
func resolvePasswordHash(password string, interactive bool) (string, error) {
	if interactive {
		if password != "" {
			return "", fmt.Errorf("cannot use -interactive with -password")
		}
		fmt.Print("Enter password: ")
		pwBytes, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(pwBytes)
	}

	if password == "" {
		return "", fmt.Errorf("password required: use -password or -interactive")
	}
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}
