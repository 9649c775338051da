// FILE: lanchess/internal/storage/storage_test.go
package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lanchess/internal/core"
	"lanchess/internal/game"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(path, true)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.InitDB(); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return s
}

func mustCreatePlayer(t *testing.T, s *Store, userID, username string) {
	t.Helper()
	err := s.CreatePlayer(PlayerRecord{
		UserID:       userID,
		Username:     username,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePlayer(%s): %v", username, err)
	}
}

func TestGameRoundTrip(t *testing.T) {
	s := newTestStore(t)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := game.New("RT1234", "blitz_5", true, now)
	g.WhitePlayerID = "u-white"
	g.WhiteName = "alice"
	g.BlackPlayerID = "u-black"
	g.BlackName = "bob"
	g.Start(now)
	g.FEN = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	g.MoveCount = 1
	g.AppendMove("e4")
	g.AddCapture(core.ColorBlack, "p")
	g.CommitMove(now.Add(9 * time.Second))

	if err := s.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	loaded, err := s.LoadGame("rt1234") // lookup is case-insensitive
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}

	if loaded.Code != "RT1234" || loaded.FEN != g.FEN {
		t.Fatalf("identity mismatch: %q %q", loaded.Code, loaded.FEN)
	}
	if loaded.Status != core.StatusActive || loaded.TimeControl != "blitz_5" || !loaded.Rated {
		t.Fatalf("metadata mismatch: %s %s %v", loaded.Status, loaded.TimeControl, loaded.Rated)
	}
	if loaded.WhiteTime != 291 || loaded.BlackTime != 300 {
		t.Fatalf("clock mismatch: %d/%d", loaded.WhiteTime, loaded.BlackTime)
	}
	if loaded.LastMoveAt == nil || !loaded.LastMoveAt.Equal(now.Add(9*time.Second)) {
		t.Fatalf("LastMoveAt mismatch: %v", loaded.LastMoveAt)
	}
	if len(loaded.Moves) != 1 || loaded.Moves[0] != "e4" {
		t.Fatalf("move log mismatch: %v", loaded.Moves)
	}
	if len(loaded.Captures.Black) != 1 || loaded.Captures.Black[0] != "p" {
		t.Fatalf("captures mismatch: %+v", loaded.Captures)
	}
	if loaded.WhitePlayerID != "u-white" || loaded.BlackName != "bob" {
		t.Fatalf("seat mismatch: %q %q", loaded.WhitePlayerID, loaded.BlackName)
	}
}

func TestSaveGameUpserts(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().UTC()
	g := game.New("UP1234", "rapid_10", true, now)
	if err := s.SaveGame(g); err != nil {
		t.Fatalf("first save: %v", err)
	}

	g.Start(now)
	g.Complete(core.WinnerWhite, core.ReasonResignation, now.Add(time.Minute))
	if err := s.SaveGame(g); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := s.LoadGame("UP1234")
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if loaded.Status != core.StatusCompleted || loaded.Winner != core.WinnerWhite {
		t.Fatalf("upsert lost the outcome: %s/%s", loaded.Status, loaded.Winner)
	}

	total, _, err := s.CountGames()
	if err != nil {
		t.Fatalf("CountGames: %v", err)
	}
	if total != 1 {
		t.Fatalf("upsert must not duplicate rows: %d", total)
	}
}

func TestLoadGameMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadGame("NOPE12"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestLoadOpenGamesSkipsFinished(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	open := game.New("OPEN11", "blitz_5", true, now)
	done := game.New("DONE11", "blitz_5", true, now)
	done.Start(now)
	done.Complete(core.WinnerDraw, core.ReasonStalemate, now)

	for _, g := range []*game.Game{open, done} {
		if err := s.SaveGame(g); err != nil {
			t.Fatalf("SaveGame: %v", err)
		}
	}

	games, err := s.LoadOpenGames()
	if err != nil {
		t.Fatalf("LoadOpenGames: %v", err)
	}
	if len(games) != 1 || games[0].Code != "OPEN11" {
		t.Fatalf("expected only the open game, got %d", len(games))
	}
}

func TestCreatePlayerUniqueness(t *testing.T) {
	s := newTestStore(t)
	mustCreatePlayer(t, s, "u1", "alice")

	err := s.CreatePlayer(PlayerRecord{
		UserID: "u2", Username: "ALICE", PasswordHash: "x", CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, ErrPlayerExists) {
		t.Fatalf("case-insensitive duplicate must be rejected, got %v", err)
	}

	p, err := s.GetPlayerByUsername("Alice")
	if err != nil {
		t.Fatalf("GetPlayerByUsername: %v", err)
	}
	if p.UserID != "u1" || p.Rating != nil || p.RatingAssigned {
		t.Fatalf("fresh player state wrong: %+v", p)
	}
}

func TestApplyGameOutcomesBothPlayersOneTransaction(t *testing.T) {
	s := newTestStore(t)
	mustCreatePlayer(t, s, "w1", "whitey")
	mustCreatePlayer(t, s, "b1", "blackie")

	if err := s.ApplyGameOutcomes("w1", core.ResultWin, "b1", core.ResultLoss); err != nil {
		t.Fatalf("ApplyGameOutcomes: %v", err)
	}

	w, _ := s.GetPlayerByID("w1")
	b, _ := s.GetPlayerByID("b1")
	if w.Wins != 1 || w.GamesPlayed != 1 || w.CurrentStreak != 1 {
		t.Fatalf("white ledger: %+v", w)
	}
	if b.Losses != 1 || b.GamesPlayed != 1 {
		t.Fatalf("black ledger: %+v", b)
	}
	if w.Achievements == "[]" {
		t.Fatal("first_win achievement not persisted")
	}
}

func TestApplyGameOutcomesRollsBackOnUnknownPlayer(t *testing.T) {
	s := newTestStore(t)
	mustCreatePlayer(t, s, "w1", "whitey")

	if err := s.ApplyGameOutcomes("w1", core.ResultWin, "ghost", core.ResultLoss); err == nil {
		t.Fatal("missing opponent must fail the whole application")
	}

	w, _ := s.GetPlayerByID("w1")
	if w.GamesPlayed != 0 || w.Wins != 0 {
		t.Fatalf("partial application leaked: %+v", w)
	}
}

func TestOutcomesReachRatingAssignment(t *testing.T) {
	s := newTestStore(t)
	mustCreatePlayer(t, s, "w1", "whitey")
	mustCreatePlayer(t, s, "b1", "blackie")

	for i := 0; i < 5; i++ {
		if err := s.ApplyGameOutcomes("w1", core.ResultWin, "b1", core.ResultLoss); err != nil {
			t.Fatalf("game %d: %v", i, err)
		}
	}

	w, _ := s.GetPlayerByID("w1")
	if !w.RatingAssigned || w.Rating == nil {
		t.Fatal("rating must be assigned after five games")
	}
	if *w.Rating != 1100 { // 1000 + 20*5
		t.Fatalf("white rating: got %d, want 1100", *w.Rating)
	}
	b, _ := s.GetPlayerByID("b1")
	if *b.Rating != 925 { // 1000 - 15*5
		t.Fatalf("black rating: got %d, want 925", *b.Rating)
	}
}

func TestLeaderboardOrdersAssignedRatings(t *testing.T) {
	s := newTestStore(t)
	mustCreatePlayer(t, s, "u1", "alice")
	mustCreatePlayer(t, s, "u2", "bob")
	mustCreatePlayer(t, s, "u3", "carol") // provisional, must not appear

	for i := 0; i < 5; i++ {
		if err := s.ApplyGameOutcomes("u1", core.ResultWin, "u2", core.ResultLoss); err != nil {
			t.Fatalf("ApplyGameOutcomes: %v", err)
		}
	}

	board, err := s.Leaderboard(10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("provisional players must be excluded: got %d entries", len(board))
	}
	if board[0].Username != "alice" || board[1].Username != "bob" {
		t.Fatalf("order wrong: %s, %s", board[0].Username, board[1].Username)
	}
}

func TestGameSessionBindAndLookup(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	g := game.New("SESS11", "blitz_5", true, now)
	if err := s.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	err := s.CreateGameSession(GameSessionRecord{
		GameCode: "SESS11", UserID: "u1", Color: "white", LastSeen: now,
	})
	if err != nil {
		t.Fatalf("CreateGameSession: %v", err)
	}
	err = s.CreateGameSession(GameSessionRecord{
		GameCode: "SESS11", SessionKey: "guest-key", Color: "black", LastSeen: now,
	})
	if err != nil {
		t.Fatalf("CreateGameSession guest: %v", err)
	}

	sess, err := s.GetGameSession("SESS11", "u1", "")
	if err != nil {
		t.Fatalf("GetGameSession user: %v", err)
	}
	if sess.Color != "white" {
		t.Fatalf("user seat: got %s", sess.Color)
	}

	sess, err = s.GetGameSession("SESS11", "", "guest-key")
	if err != nil {
		t.Fatalf("GetGameSession guest: %v", err)
	}
	if sess.Color != "black" {
		t.Fatalf("guest seat: got %s", sess.Color)
	}

	if _, err := s.GetGameSession("SESS11", "", "unknown"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("unknown identity: got %v", err)
	}
}

func TestGameSessionRebindReplaces(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	g := game.New("SESS22", "blitz_5", true, now)
	if err := s.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	for _, color := range []string{"white", "black"} {
		err := s.CreateGameSession(GameSessionRecord{
			GameCode: "SESS22", UserID: "u1", Color: color, LastSeen: now,
		})
		if err != nil {
			t.Fatalf("bind %s: %v", color, err)
		}
	}

	sess, err := s.GetGameSession("SESS22", "u1", "")
	if err != nil {
		t.Fatalf("GetGameSession: %v", err)
	}
	if sess.Color != "black" {
		t.Fatalf("rebind must replace, got %s", sess.Color)
	}
}

func TestMoveRecordAsyncWrite(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	g := game.New("MV1234", "blitz_5", true, now)
	if err := s.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	s.RecordMove(MoveRecord{
		GameCode: "MV1234", MoveNumber: 1, SAN: "e4",
		FENAfter:    "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		PlayerColor: "w", PlayedAtUTC: now,
	})

	// The writer is async; poll briefly for the row.
	deadline := time.Now().Add(2 * time.Second)
	for {
		moves, err := s.QueryMoves("MV1234")
		if err != nil {
			t.Fatalf("QueryMoves: %v", err)
		}
		if len(moves) == 1 {
			if moves[0].SAN != "e4" || moves[0].PlayerColor != "w" {
				t.Fatalf("row mismatch: %+v", moves[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("move row never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
