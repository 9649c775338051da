// FILE: lanchess/internal/core/core.go
package core

import "time"

// StartingFEN is the standard chess initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type Color byte

const (
	ColorWhite Color = 'w'
	ColorBlack Color = 'b'
)

func (c Color) String() string {
	if c == ColorBlack {
		return "black"
	}
	return "white"
}

func OppositeColor(c Color) Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// ParseColor maps "white"/"black" to a Color.
func ParseColor(s string) (Color, bool) {
	switch s {
	case "white", "w":
		return ColorWhite, true
	case "black", "b":
		return ColorBlack, true
	}
	return 0, false
}

// Status is the game lifecycle state. Transitions are monotonic:
// waiting -> active -> completed|abandoned, no reverse edges.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Winner identifies the winning side of a completed game.
// Empty string means no outcome has been recorded.
type Winner string

const (
	WinnerWhite Winner = "white"
	WinnerBlack Winner = "black"
	WinnerDraw  Winner = "draw"
)

// WinnerFor returns the Winner value naming the given side.
func WinnerFor(c Color) Winner {
	if c == ColorBlack {
		return WinnerBlack
	}
	return WinnerWhite
}

// Reason explains how a game ended.
type Reason string

const (
	ReasonCheckmate    Reason = "checkmate"
	ReasonResignation  Reason = "resignation"
	ReasonTimeout      Reason = "timeout"
	ReasonStalemate    Reason = "stalemate"
	ReasonInsufficient Reason = "insufficient"
	ReasonAgreement    Reason = "agreement"
	ReasonRepetition   Reason = "repetition"
	ReasonFiftyMove    Reason = "fifty_move"
	ReasonAbandoned    Reason = "abandoned"
)

// ValidReason reports whether r is one of the recognized end reasons.
func ValidReason(r Reason) bool {
	switch r {
	case ReasonCheckmate, ReasonResignation, ReasonTimeout, ReasonStalemate,
		ReasonInsufficient, ReasonAgreement, ReasonRepetition, ReasonFiftyMove,
		ReasonAbandoned:
		return true
	}
	return false
}

// Result is a single player's outcome of one game.
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

// DefaultTimeControl is assumed when a request omits the class.
const DefaultTimeControl = "blitz_5"

var timeControlSeconds = map[string]int{
	"bullet_1":       60,
	"bullet_2":       120,
	"blitz_3":        180,
	"blitz_5":        300,
	"rapid_10":       600,
	"rapid_15":       900,
	"classical_30":   1800,
	"classical_2_60": 3600,
	"unlimited":      999999,
}

// TimeControlSeconds maps a time control class to its initial per-side
// clock in seconds. Unrecognized classes fall back to 300s.
func TimeControlSeconds(class string) int {
	if secs, ok := timeControlSeconds[class]; ok {
		return secs
	}
	return 300
}

// Config is the explicit runtime configuration passed in at startup.
// The core packages never read ambient global state.
type Config struct {
	ClubName string

	// MaxActiveGamesPerPlayer limits concurrent open games for a
	// registered creator. Zero disables the limit.
	MaxActiveGamesPerPlayer int

	// GameTimeout marks games abandoned after this much inactivity.
	GameTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ClubName:                "University Chess Club",
		MaxActiveGamesPerPlayer: 3,
		GameTimeout:             30 * time.Minute,
	}
}
