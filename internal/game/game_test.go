// FILE: lanchess/internal/game/game_test.go
package game

import (
	"strings"
	"testing"
	"time"

	"lanchess/internal/core"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fenAfterWhiteMove is a position where black is to move, i.e. the one
// a client submits after white played.
const fenAfterWhiteMove = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"

const fenAfterBlackMove = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2"

func newActiveGame(t *testing.T) *Game {
	t.Helper()
	g := New("ABC123", "blitz_5", true, t0)
	g.Start(t0)
	if g.Status != core.StatusActive {
		t.Fatalf("expected active game, got %s", g.Status)
	}
	return g
}

func TestNewGameClocksFromTimeControl(t *testing.T) {
	g := New("abc123", "rapid_10", true, t0)
	if g.Code != "ABC123" {
		t.Fatalf("code not uppercased: %q", g.Code)
	}
	if g.WhiteTime != 600 || g.BlackTime != 600 {
		t.Fatalf("expected 600s clocks, got %d/%d", g.WhiteTime, g.BlackTime)
	}
	if g.Status != core.StatusWaiting {
		t.Fatalf("new game must be waiting, got %s", g.Status)
	}
	if g.LastMoveAt != nil {
		t.Fatal("clock must not run before the game starts")
	}
}

func TestStartIsOneTime(t *testing.T) {
	g := New("ABC123", "blitz_5", true, t0)
	g.Start(t0)
	first := *g.StartedAt

	g.Start(t0.Add(time.Minute))
	if !g.StartedAt.Equal(first) {
		t.Fatal("second Start must not move the start time")
	}
}

func TestPeekChargesOnlySideToMove(t *testing.T) {
	g := newActiveGame(t)

	view := g.PeekClock(t0.Add(12 * time.Second))
	if view.Turn != core.ColorWhite {
		t.Fatalf("expected white to move, got %s", view.Turn)
	}
	if view.White != 288 {
		t.Fatalf("white projection: got %d, want 288", view.White)
	}
	if view.Black != 300 {
		t.Fatalf("black must be untouched while white thinks, got %d", view.Black)
	}
}

func TestPeekDoesNotMutate(t *testing.T) {
	g := newActiveGame(t)

	// A polling client may peek at any frequency; stored state must not
	// drift.
	for i := 1; i <= 50; i++ {
		g.PeekClock(t0.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	if g.WhiteTime != 300 || g.BlackTime != 300 {
		t.Fatalf("peek mutated stored clocks: %d/%d", g.WhiteTime, g.BlackTime)
	}
	if !g.LastMoveAt.Equal(t0) {
		t.Fatal("peek moved LastMoveAt")
	}

	view := g.PeekClock(t0.Add(7 * time.Second))
	if view.White != 293 {
		t.Fatalf("projection after repeated peeks: got %d, want 293", view.White)
	}
}

func TestPeekNonActiveReportsStoredValues(t *testing.T) {
	g := New("ABC123", "blitz_5", true, t0)

	view := g.PeekClock(t0.Add(time.Hour))
	if view.White != 300 || view.Black != 300 {
		t.Fatalf("waiting game must report stored clocks, got %d/%d", view.White, view.Black)
	}
}

func TestCommitChargesMover(t *testing.T) {
	g := newActiveGame(t)

	// White thinks for 12s, then the post-move position arrives with
	// black to move. The commit must charge white.
	g.FEN = fenAfterWhiteMove
	g.CommitMove(t0.Add(12 * time.Second))

	if g.WhiteTime != 288 {
		t.Fatalf("white after commit: got %d, want 288", g.WhiteTime)
	}
	if g.BlackTime != 300 {
		t.Fatalf("black must be unchanged, got %d", g.BlackTime)
	}
	if !g.LastMoveAt.Equal(t0.Add(12 * time.Second)) {
		t.Fatal("commit must advance LastMoveAt")
	}
}

func TestCommitTruncatesToWholeSeconds(t *testing.T) {
	g := newActiveGame(t)

	g.FEN = fenAfterWhiteMove
	g.CommitMove(t0.Add(12*time.Second + 900*time.Millisecond))
	if g.WhiteTime != 288 {
		t.Fatalf("sub-second remainder must be truncated: got %d, want 288", g.WhiteTime)
	}
}

func TestCommitThenPeekIsStable(t *testing.T) {
	g := newActiveGame(t)

	g.FEN = fenAfterWhiteMove
	commitAt := t0.Add(12 * time.Second)
	g.CommitMove(commitAt)

	// Immediately after a commit the projection equals stored state.
	view := g.PeekClock(commitAt)
	if view.White != 288 || view.Black != 300 {
		t.Fatalf("peek right after commit: got %d/%d, want 288/300", view.White, view.Black)
	}
	if view.Turn != core.ColorBlack {
		t.Fatalf("turn after white's move: got %s", view.Turn)
	}

	// Now black is on the clock.
	view = g.PeekClock(commitAt.Add(5 * time.Second))
	if view.Black != 295 || view.White != 288 {
		t.Fatalf("black projection: got %d/%d, want 288/295", view.White, view.Black)
	}
}

func TestAlternatingCommits(t *testing.T) {
	g := newActiveGame(t)

	g.FEN = fenAfterWhiteMove
	g.CommitMove(t0.Add(10 * time.Second))
	g.FEN = fenAfterBlackMove
	g.CommitMove(t0.Add(10*time.Second + 4*time.Second))

	if g.WhiteTime != 290 || g.BlackTime != 296 {
		t.Fatalf("after two moves: got %d/%d, want 290/296", g.WhiteTime, g.BlackTime)
	}
}

func TestCommitFlooredAtZeroCompletesByTimeout(t *testing.T) {
	g := newActiveGame(t)

	g.FEN = fenAfterWhiteMove
	g.CommitMove(t0.Add(10 * time.Minute))

	if g.WhiteTime != 0 {
		t.Fatalf("white clock must floor at zero, got %d", g.WhiteTime)
	}
	if g.Status != core.StatusCompleted {
		t.Fatalf("overrun commit must complete the game, got %s", g.Status)
	}
	if g.Winner != core.WinnerBlack || g.Reason != core.ReasonTimeout {
		t.Fatalf("expected black wins on timeout, got %s/%s", g.Winner, g.Reason)
	}
	if g.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}
}

func TestCommitExactZeroIsTimeout(t *testing.T) {
	g := newActiveGame(t)

	g.FEN = fenAfterWhiteMove
	g.CommitMove(t0.Add(300 * time.Second))

	if g.WhiteTime != 0 {
		t.Fatalf("got %d, want 0", g.WhiteTime)
	}
	if g.Status != core.StatusCompleted || g.Reason != core.ReasonTimeout {
		t.Fatalf("landing exactly on zero must be a timeout, got %s/%s", g.Status, g.Reason)
	}
}

func TestCommitClockSkewChargesNothing(t *testing.T) {
	g := newActiveGame(t)

	g.FEN = fenAfterWhiteMove
	g.CommitMove(t0.Add(-3 * time.Second))
	if g.WhiteTime != 300 {
		t.Fatalf("negative elapsed must charge nothing, got %d", g.WhiteTime)
	}
}

func TestCompleteTwiceIsError(t *testing.T) {
	g := newActiveGame(t)

	if err := g.Complete(core.WinnerWhite, core.ReasonResignation, t0); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if err := g.Complete(core.WinnerBlack, core.ReasonTimeout, t0); err == nil {
		t.Fatal("second completion must be rejected")
	}
	if g.Winner != core.WinnerWhite || g.Reason != core.ReasonResignation {
		t.Fatalf("first outcome must stand: %s/%s", g.Winner, g.Reason)
	}
}

func TestAbandonTerminalGameIsError(t *testing.T) {
	g := newActiveGame(t)

	if err := g.Abandon(t0); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if g.Status != core.StatusAbandoned || g.Reason != core.ReasonAbandoned {
		t.Fatalf("got %s/%s", g.Status, g.Reason)
	}
	if err := g.Complete(core.WinnerWhite, core.ReasonCheckmate, t0); err == nil {
		t.Fatal("abandoned game must not complete")
	}
}

func TestSideToMoveFromFEN(t *testing.T) {
	g := New("ABC123", "blitz_5", true, t0)
	if g.SideToMove() != core.ColorWhite {
		t.Fatal("starting position must be white to move")
	}
	g.FEN = fenAfterWhiteMove
	if g.SideToMove() != core.ColorBlack {
		t.Fatal("expected black to move")
	}
	g.FEN = "garbage"
	if g.SideToMove() != core.ColorWhite {
		t.Fatal("malformed FEN must default to white")
	}
}

func TestResultFor(t *testing.T) {
	g := newActiveGame(t)
	g.Complete(core.WinnerWhite, core.ReasonCheckmate, t0)

	if got := g.ResultFor(core.ColorWhite); got != core.ResultWin {
		t.Fatalf("white: got %s", got)
	}
	if got := g.ResultFor(core.ColorBlack); got != core.ResultLoss {
		t.Fatalf("black: got %s", got)
	}

	d := newActiveGame(t)
	d.Complete(core.WinnerDraw, core.ReasonAgreement, t0)
	if d.ResultFor(core.ColorWhite) != core.ResultDraw || d.ResultFor(core.ColorBlack) != core.ResultDraw {
		t.Fatal("draw must apply to both seats")
	}
}

func TestDisplayNames(t *testing.T) {
	g := New("ABC123", "blitz_5", true, t0)
	g.WhiteName = "alice"

	if g.WhiteDisplayName() != "alice" {
		t.Fatalf("got %q", g.WhiteDisplayName())
	}
	if !strings.HasPrefix(g.BlackDisplayName(), "Waiting") {
		t.Fatalf("empty black seat on a waiting game: got %q", g.BlackDisplayName())
	}

	g.Start(t0)
	if g.BlackDisplayName() != "Guest" {
		t.Fatalf("anonymous seated player: got %q", g.BlackDisplayName())
	}
}

func TestCapturesBySide(t *testing.T) {
	g := newActiveGame(t)
	g.AddCapture(core.ColorWhite, "p")
	g.AddCapture(core.ColorBlack, "N")
	g.AddCapture(core.ColorWhite, "q")

	if len(g.Captures.White) != 2 || len(g.Captures.Black) != 1 {
		t.Fatalf("got %v / %v", g.Captures.White, g.Captures.Black)
	}
}
