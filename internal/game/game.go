// FILE: lanchess/internal/game/game.go
package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"lanchess/internal/core"
)

// Game is the authoritative state of one club game. The server does not
// validate move legality; it records positions submitted by the clients
// and owns the clock and the outcome.
//
// All mutating methods must run under Lock; the service serializes clock
// commits per game through it. Clock reads (PeekClock) never write.
type Game struct {
	mu sync.Mutex

	Code        string `json:"code"`
	FEN         string `json:"fen"`
	Status      core.Status
	TimeControl string
	Rated       bool

	// Registered player IDs; empty for guests.
	WhitePlayerID string
	BlackPlayerID string
	WhiteName     string
	BlackName     string

	// Remaining time in whole seconds. Never negative.
	WhiteTime int
	BlackTime int

	// LastMoveAt is set once when the game goes active and then on every
	// committed move. TimerSyncedAt tracks the last authoritative clock
	// write, to make poll responses distinguishable from commits.
	LastMoveAt    *time.Time
	TimerSyncedAt *time.Time

	Winner core.Winner
	Reason core.Reason

	MoveCount int
	Moves     []string
	Captures  core.Captures

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// ClockView is a read-only clock projection for display.
type ClockView struct {
	White int
	Black int
	Turn  core.Color
}

// New creates a waiting game with both clocks set from the time control.
func New(code, timeControl string, rated bool, now time.Time) *Game {
	secs := core.TimeControlSeconds(timeControl)
	return &Game{
		Code:        strings.ToUpper(code),
		FEN:         core.StartingFEN,
		Status:      core.StatusWaiting,
		TimeControl: timeControl,
		Rated:       rated,
		WhiteTime:   secs,
		BlackTime:   secs,
		CreatedAt:   now,
	}
}

// Lock acquires the per-game mutex. Commits for one game must be
// serialized; two concurrent commits reading the same LastMoveAt would
// double-charge or under-charge the mover.
func (g *Game) Lock() { g.mu.Lock() }

func (g *Game) Unlock() { g.mu.Unlock() }

// SideToMove derives the side to move from the position's embedded turn
// field. It is not tracked separately.
func (g *Game) SideToMove() core.Color {
	fields := strings.Fields(g.FEN)
	if len(fields) > 1 && fields[1] == "b" {
		return core.ColorBlack
	}
	return core.ColorWhite
}

// Start transitions waiting -> active when the second player is seated
// and performs the one-time clock start. Subsequent calls are no-ops.
func (g *Game) Start(now time.Time) {
	if g.StartedAt != nil || g.Status != core.StatusWaiting {
		return
	}
	g.Status = core.StatusActive
	g.StartedAt = &now
	g.LastMoveAt = &now
	g.TimerSyncedAt = &now
}

// PeekClock projects the remaining time for display without persisting
// anything. Only the side to move is charged projected elapsed time;
// the stored values are untouched, so arbitrary-frequency polling causes
// no drift. Non-active games report stored values verbatim.
func (g *Game) PeekClock(now time.Time) ClockView {
	view := ClockView{White: g.WhiteTime, Black: g.BlackTime, Turn: g.SideToMove()}
	if g.Status != core.StatusActive || g.LastMoveAt == nil {
		return view
	}

	elapsed := int(now.Sub(*g.LastMoveAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	if view.Turn == core.ColorWhite {
		view.White = max(0, g.WhiteTime-elapsed)
	} else {
		view.Black = max(0, g.BlackTime-elapsed)
	}
	return view
}

// CommitMove is the authoritative clock update, invoked exactly once per
// accepted move, after the new position has been applied. The mover is
// the side opposite the position's current turn indicator; elapsed time
// since LastMoveAt is charged to them, truncated to whole seconds and
// floored at zero. Hitting exactly zero completes the game for the
// opponent by timeout within this same call; there is no intermediate
// state where a flag is down but the game is still active.
func (g *Game) CommitMove(now time.Time) {
	if g.LastMoveAt == nil || g.Status != core.StatusActive {
		// First ever tick: seed the sync fields, charge nothing.
		g.LastMoveAt = &now
		g.TimerSyncedAt = &now
		return
	}

	elapsed := int(now.Sub(*g.LastMoveAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}

	mover := core.OppositeColor(g.SideToMove())
	if mover == core.ColorWhite {
		g.WhiteTime = max(0, g.WhiteTime-elapsed)
		if g.WhiteTime == 0 {
			g.Complete(core.WinnerBlack, core.ReasonTimeout, now)
		}
	} else {
		g.BlackTime = max(0, g.BlackTime-elapsed)
		if g.BlackTime == 0 {
			g.Complete(core.WinnerWhite, core.ReasonTimeout, now)
		}
	}

	g.LastMoveAt = &now
	g.TimerSyncedAt = &now
}

// Complete marks the game finished. A second completion is an error, not
// a silent no-op, so duplicate-completion bugs surface.
func (g *Game) Complete(winner core.Winner, reason core.Reason, now time.Time) error {
	if g.Status.Terminal() {
		return fmt.Errorf("game %s already %s", g.Code, g.Status)
	}
	g.Status = core.StatusCompleted
	g.Winner = winner
	g.Reason = reason
	g.CompletedAt = &now
	return nil
}

// Abandon terminates a stale game without an outcome. Abandoned games
// never touch the rating ledger.
func (g *Game) Abandon(now time.Time) error {
	if g.Status.Terminal() {
		return fmt.Errorf("game %s already %s", g.Code, g.Status)
	}
	g.Status = core.StatusAbandoned
	g.Reason = core.ReasonAbandoned
	g.CompletedAt = &now
	return nil
}

// AppendMove records a SAN token in the ordered move log.
func (g *Game) AppendMove(san string) {
	g.Moves = append(g.Moves, san)
}

// AddCapture appends a captured piece to the list of the side that lost
// it, mirroring how the clients report captures.
func (g *Game) AddCapture(color core.Color, piece string) {
	if color == core.ColorWhite {
		g.Captures.White = append(g.Captures.White, piece)
	} else {
		g.Captures.Black = append(g.Captures.Black, piece)
	}
}

// HasBothPlayersRegistered reports whether both seats are held by
// registered accounts. Guest games never affect ratings.
func (g *Game) HasBothPlayersRegistered() bool {
	return g.WhitePlayerID != "" && g.BlackPlayerID != ""
}

// WhiteDisplayName returns the white seat's display name.
func (g *Game) WhiteDisplayName() string {
	if g.WhiteName != "" {
		return g.WhiteName
	}
	return "Guest"
}

// BlackDisplayName returns the black seat's display name, or a waiting
// placeholder before the second player joins.
func (g *Game) BlackDisplayName() string {
	if g.BlackName != "" {
		return g.BlackName
	}
	if g.Status == core.StatusWaiting {
		return "Waiting..."
	}
	return "Guest"
}

// ResultFor derives one seat's individual result from the game winner.
func (g *Game) ResultFor(color core.Color) core.Result {
	switch g.Winner {
	case core.WinnerDraw:
		return core.ResultDraw
	case core.WinnerFor(color):
		return core.ResultWin
	default:
		return core.ResultLoss
	}
}
