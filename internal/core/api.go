// FILE: lanchess/internal/core/api.go
package core

import "time"

// Request types

type CreateGameRequest struct {
	TimeControl string `json:"timeControl" validate:"omitempty,max=20"`
	Rated       *bool  `json:"rated"` // nil defaults to true
	PlayerName  string `json:"playerName" validate:"omitempty,max=50"`
}

// IsRated resolves the optional rated flag (default true, as in classic
// club play).
func (r CreateGameRequest) IsRated() bool {
	return r.Rated == nil || *r.Rated
}

type JoinGameRequest struct {
	PlayerName string `json:"playerName" validate:"omitempty,max=50"`
}

// CapturedPiece describes one piece taken on the submitted move. Color is
// the side that LOST the piece.
type CapturedPiece struct {
	Color string `json:"color" validate:"required,oneof=white black"`
	Piece string `json:"piece" validate:"required,len=1"`
}

type MoveRequest struct {
	FEN      string         `json:"fen" validate:"required,max=100"`
	MoveSAN  string         `json:"moveSan" validate:"omitempty,max=10"`
	Captured *CapturedPiece `json:"captured" validate:"omitempty"`
	GameOver bool           `json:"gameOver"`
	Winner   string         `json:"winner" validate:"omitempty,oneof=white black draw"`
	Reason   string         `json:"reason" validate:"omitempty,max=50"`
}

type ResignRequest struct {
	Color string `json:"color" validate:"required,oneof=white black"`
}

type DrawRequest struct {
	Action string `json:"action" validate:"required,oneof=offer accept"`
}

// Response types

type GameCreatedResponse struct {
	Code       string `json:"code"`
	FEN        string `json:"fen"`
	Status     string `json:"status"`
	Rated      bool   `json:"rated"`
	WhiteTime  int    `json:"whiteTime"`
	BlackTime  int    `json:"blackTime"`
	SessionKey string `json:"sessionKey,omitempty"` // issued to guests for reconnection
}

type JoinGameResponse struct {
	Code        string `json:"code"`
	FEN         string `json:"fen"`
	Status      string `json:"status"`
	WhitePlayer string `json:"whitePlayer"`
	BlackPlayer string `json:"blackPlayer"`
	WhiteTime   int    `json:"whiteTime"`
	BlackTime   int    `json:"blackTime"`
	SessionKey  string `json:"sessionKey,omitempty"`
}

// Captures lists the pieces each side has taken.
type Captures struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

type GameStateResponse struct {
	Code          string     `json:"code"`
	FEN           string     `json:"fen"`
	Status        string     `json:"status"`
	WhitePlayer   string     `json:"whitePlayer"`
	BlackPlayer   string     `json:"blackPlayer"`
	WhiteTime     int        `json:"whiteTime"`
	BlackTime     int        `json:"blackTime"`
	Turn          string     `json:"turn"`
	Winner        string     `json:"winner,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Moves         []string   `json:"moves"`
	MoveCount     int        `json:"moveCount"`
	Captures      Captures   `json:"captures"`
	TimerSyncedAt *time.Time `json:"timerSyncedAt,omitempty"`
}

type MoveResponse struct {
	WhiteTime int    `json:"whiteTime"`
	BlackTime int    `json:"blackTime"`
	Status    string `json:"status"`
	Winner    string `json:"winner,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type DrawResponse struct {
	DrawOffered  bool `json:"drawOffered,omitempty"`
	DrawAccepted bool `json:"drawAccepted,omitempty"`
}

type SessionResponse struct {
	HasSession bool   `json:"hasSession"`
	Color      string `json:"color,omitempty"`
}

type PlayerStatsResponse struct {
	Username      string   `json:"username"`
	GamesPlayed   int      `json:"gamesPlayed"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	Draws         int      `json:"draws"`
	CurrentStreak int      `json:"currentStreak"`
	LongestStreak int      `json:"longestStreak"`
	Rating        *int     `json:"rating"`
	GamesToRating int      `json:"gamesToRating,omitempty"` // until initial rating, 0 once assigned
	Achievements  []string `json:"achievements"`
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Games    int    `json:"games"`
	Wins     int    `json:"wins"`
}

type ClubStatsResponse struct {
	ClubName     string `json:"clubName"`
	TotalGames   int    `json:"totalGames"`
	ActiveGames  int    `json:"activeGames"`
	TotalPlayers int    `json:"totalPlayers"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
