// FILE: lanchess/internal/storage/schema.go
package storage

import "time"

// PlayerRecord represents a registered club member and their ledger.
// Rating is nil until RatingAssigned flips true at five games played.
type PlayerRecord struct {
	UserID         string     `db:"user_id"`
	Username       string     `db:"username"`
	Email          string     `db:"email"`
	PasswordHash   string     `db:"password_hash"`
	GamesPlayed    int        `db:"games_played"`
	Wins           int        `db:"wins"`
	Losses         int        `db:"losses"`
	Draws          int        `db:"draws"`
	CurrentStreak  int        `db:"current_streak"`
	LongestStreak  int        `db:"longest_streak"`
	Rating         *int       `db:"rating"`
	RatingAssigned bool       `db:"rating_assigned"`
	Achievements   string     `db:"achievements"` // JSON array of names
	CreatedAt      time.Time  `db:"created_at"`
	LastLoginAt    *time.Time `db:"last_login_at"`
}

// GameRecord is a row in the games table. MoveLog and Captures are JSON
// text; round-trip fidelity with the in-memory game is a hard
// requirement, exercised at startup rehydration.
type GameRecord struct {
	Code          string     `db:"code"`
	FEN           string     `db:"fen"`
	Status        string     `db:"status"`
	TimeControl   string     `db:"time_control"`
	Rated         bool       `db:"rated"`
	WhitePlayerID string     `db:"white_player_id"`
	BlackPlayerID string     `db:"black_player_id"`
	WhiteName     string     `db:"white_name"`
	BlackName     string     `db:"black_name"`
	WhiteTime     int        `db:"white_time"`
	BlackTime     int        `db:"black_time"`
	LastMoveAt    *time.Time `db:"last_move_at"`
	TimerSyncedAt *time.Time `db:"timer_synced_at"`
	Winner        string     `db:"winner"`
	Reason        string     `db:"reason"`
	MoveCount     int        `db:"move_count"`
	MoveLog       string     `db:"move_log"`
	Captures      string     `db:"captures"`
	CreatedAt     time.Time  `db:"created_at"`
	StartedAt     *time.Time `db:"started_at"`
	CompletedAt   *time.Time `db:"completed_at"`
}

// MoveRecord is one row of the per-move history kept for replay.
type MoveRecord struct {
	MoveID        int64     `db:"move_id"`
	GameCode      string    `db:"game_code"`
	MoveNumber    int       `db:"move_number"`
	SAN           string    `db:"san"`
	FENAfter      string    `db:"fen_after"`
	PlayerColor   string    `db:"player_color"`
	CapturedPiece string    `db:"captured_piece"`
	PlayedAtUTC   time.Time `db:"played_at_utc"`
}

// GameSessionRecord binds a participant to their color in one game so a
// dropped connection can be reseated. UserID is empty for guests, who
// are identified by SessionKey instead.
type GameSessionRecord struct {
	GameCode   string    `db:"game_code"`
	UserID     string    `db:"user_id"`
	SessionKey string    `db:"session_key"`
	Color      string    `db:"color"`
	LastSeen   time.Time `db:"last_seen"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS players (
	user_id TEXT PRIMARY KEY,
	username TEXT UNIQUE NOT NULL COLLATE NOCASE,
	email TEXT COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	games_played INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	draws INTEGER NOT NULL DEFAULT 0,
	current_streak INTEGER NOT NULL DEFAULT 0,
	longest_streak INTEGER NOT NULL DEFAULT 0,
	rating INTEGER,
	rating_assigned INTEGER NOT NULL DEFAULT 0,
	achievements TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_login_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_players_username ON players(username);
CREATE INDEX IF NOT EXISTS idx_players_rating ON players(rating);
CREATE UNIQUE INDEX IF NOT EXISTS idx_players_email_unique ON players(email) WHERE email IS NOT NULL AND email != '';

CREATE TABLE IF NOT EXISTS games (
	code TEXT PRIMARY KEY COLLATE NOCASE,
	fen TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('waiting', 'active', 'completed', 'abandoned')),
	time_control TEXT NOT NULL,
	rated INTEGER NOT NULL DEFAULT 1,
	white_player_id TEXT NOT NULL DEFAULT '',
	black_player_id TEXT NOT NULL DEFAULT '',
	white_name TEXT NOT NULL DEFAULT '',
	black_name TEXT NOT NULL DEFAULT '',
	white_time INTEGER NOT NULL,
	black_time INTEGER NOT NULL,
	last_move_at DATETIME,
	timer_synced_at DATETIME,
	winner TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	move_count INTEGER NOT NULL DEFAULT 0,
	move_log TEXT NOT NULL DEFAULT '[]',
	captures TEXT NOT NULL DEFAULT '{"white":[],"black":[]}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	started_at DATETIME,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_games_status ON games(status, created_at);
CREATE INDEX IF NOT EXISTS idx_games_white_player ON games(white_player_id);
CREATE INDEX IF NOT EXISTS idx_games_black_player ON games(black_player_id);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_code TEXT NOT NULL COLLATE NOCASE,
	move_number INTEGER NOT NULL,
	san TEXT NOT NULL,
	fen_after TEXT NOT NULL,
	player_color TEXT NOT NULL CHECK(player_color IN ('w', 'b')),
	captured_piece TEXT NOT NULL DEFAULT '',
	played_at_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (game_code) REFERENCES games(code) ON DELETE CASCADE,
	UNIQUE(game_code, move_number)
);

CREATE INDEX IF NOT EXISTS idx_moves_game_code ON moves(game_code);

CREATE TABLE IF NOT EXISTS game_sessions (
	session_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_code TEXT NOT NULL COLLATE NOCASE,
	user_id TEXT NOT NULL DEFAULT '',
	session_key TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL CHECK(color IN ('white', 'black')),
	last_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (game_code) REFERENCES games(code) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_game_sessions_user ON game_sessions(game_code, user_id) WHERE user_id != '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_game_sessions_key ON game_sessions(game_code, session_key) WHERE session_key != '';
`
