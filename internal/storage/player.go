// FILE: lanchess/internal/storage/player.go
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lanchess/internal/core"
	"lanchess/internal/rating"
)

// ErrPlayerExists is returned when a username or email is already taken.
var ErrPlayerExists = errors.New("username or email already exists")

const playerColumns = `user_id, username, email, password_hash,
	games_played, wins, losses, draws, current_streak, longest_streak,
	rating, rating_assigned, achievements, created_at, last_login_at`

// CreatePlayer creates a player with transaction isolation so two
// concurrent registrations cannot claim the same name.
func (s *Store) CreatePlayer(record PlayerRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := playerExists(tx, record.Username, record.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrPlayerExists
	}

	if record.Achievements == "" {
		record.Achievements = "[]"
	}

	query := `INSERT INTO players (
		user_id, username, email, password_hash, created_at, achievements
	) VALUES (?, ?, ?, ?, ?, ?)`

	_, err = tx.Exec(query,
		record.UserID, record.Username, record.Email,
		record.PasswordHash, record.CreatedAt, record.Achievements,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// playerExists verifies username/email uniqueness within a transaction
func playerExists(tx *sql.Tx, username, email string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM players WHERE username = ? COLLATE NOCASE`
	args := []any{username}

	if email != "" {
		query = `SELECT COUNT(*) FROM players WHERE username = ? COLLATE NOCASE OR email = ? COLLATE NOCASE`
		args = append(args, email)
	}

	if err := tx.QueryRow(query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("uniqueness check failed: %w", err)
	}
	return count > 0, nil
}

// GetPlayerByUsername retrieves a player by username (case-insensitive).
func (s *Store) GetPlayerByUsername(username string) (*PlayerRecord, error) {
	row := s.db.QueryRow(`SELECT `+playerColumns+` FROM players WHERE username = ? COLLATE NOCASE`, username)
	return scanPlayer(row)
}

// GetPlayerByEmail retrieves a player by email (case-insensitive).
func (s *Store) GetPlayerByEmail(email string) (*PlayerRecord, error) {
	row := s.db.QueryRow(`SELECT `+playerColumns+` FROM players WHERE email = ? COLLATE NOCASE`, email)
	return scanPlayer(row)
}

// GetPlayerByID retrieves a player by user ID.
func (s *Store) GetPlayerByID(userID string) (*PlayerRecord, error) {
	row := s.db.QueryRow(`SELECT `+playerColumns+` FROM players WHERE user_id = ?`, userID)
	return scanPlayer(row)
}

func scanPlayer(row *sql.Row) (*PlayerRecord, error) {
	var p PlayerRecord
	err := row.Scan(
		&p.UserID, &p.Username, &p.Email, &p.PasswordHash,
		&p.GamesPlayed, &p.Wins, &p.Losses, &p.Draws,
		&p.CurrentStreak, &p.LongestStreak,
		&p.Rating, &p.RatingAssigned, &p.Achievements,
		&p.CreatedAt, &p.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateLastLogin updates the last login timestamp asynchronously.
func (s *Store) UpdateLastLogin(userID string) {
	now := time.Now().UTC()
	s.enqueue("last login update", func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE players SET last_login_at = ? WHERE user_id = ?`, now, userID)
		return err
	})
}

// SetPassword replaces a player's password hash. Used by the admin CLI.
func (s *Store) SetPassword(username, passwordHash string) error {
	result, err := s.db.Exec(`UPDATE players SET password_hash = ? WHERE username = ? COLLATE NOCASE`,
		passwordHash, username)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyGameOutcomes folds one completed rated game into both players'
// ledgers inside a single transaction. Either both records update or
// neither does; a game must never count for one side only.
func (s *Store) ApplyGameOutcomes(whiteID string, whiteResult core.Result, blackID string, blackResult core.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := applyOutcome(tx, whiteID, whiteResult); err != nil {
		return fmt.Errorf("white outcome failed: %w", err)
	}
	if err := applyOutcome(tx, blackID, blackResult); err != nil {
		return fmt.Errorf("black outcome failed: %w", err)
	}

	return tx.Commit()
}

func applyOutcome(tx *sql.Tx, userID string, result core.Result) error {
	var stats rating.Stats
	var achievements string

	err := tx.QueryRow(`SELECT games_played, wins, losses, draws,
		current_streak, longest_streak, rating, rating_assigned, achievements
		FROM players WHERE user_id = ?`, userID).Scan(
		&stats.GamesPlayed, &stats.Wins, &stats.Losses, &stats.Draws,
		&stats.CurrentStreak, &stats.LongestStreak,
		&stats.Rating, &stats.Assigned, &achievements,
	)
	if err != nil {
		return err
	}
	if achievements != "" {
		if err := json.Unmarshal([]byte(achievements), &stats.Achievements); err != nil {
			return fmt.Errorf("failed to decode achievements: %w", err)
		}
	}

	stats.Apply(result)

	encoded, err := json.Marshal(stats.Achievements)
	if err != nil {
		return fmt.Errorf("failed to encode achievements: %w", err)
	}
	if stats.Achievements == nil {
		encoded = []byte("[]")
	}

	_, err = tx.Exec(`UPDATE players SET
		games_played = ?, wins = ?, losses = ?, draws = ?,
		current_streak = ?, longest_streak = ?,
		rating = ?, rating_assigned = ?, achievements = ?
		WHERE user_id = ?`,
		stats.GamesPlayed, stats.Wins, stats.Losses, stats.Draws,
		stats.CurrentStreak, stats.LongestStreak,
		stats.Rating, stats.Assigned, string(encoded),
		userID)
	return err
}

// Leaderboard returns players with an assigned rating, best first, ties
// broken by win count.
func (s *Store) Leaderboard(limit int) ([]PlayerRecord, error) {
	rows, err := s.db.Query(`SELECT `+playerColumns+` FROM players
		WHERE rating_assigned = 1
		ORDER BY rating DESC, wins DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query failed: %w", err)
	}
	defer rows.Close()

	var players []PlayerRecord
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(
			&p.UserID, &p.Username, &p.Email, &p.PasswordHash,
			&p.GamesPlayed, &p.Wins, &p.Losses, &p.Draws,
			&p.CurrentStreak, &p.LongestStreak,
			&p.Rating, &p.RatingAssigned, &p.Achievements,
			&p.CreatedAt, &p.LastLoginAt,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// CountPlayers returns the number of registered players.
func (s *Store) CountPlayers() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM players`).Scan(&count)
	return count, err
}

// ListPlayers returns all players ordered by creation time. Used by the
// admin CLI.
func (s *Store) ListPlayers() ([]PlayerRecord, error) {
	rows, err := s.db.Query(`SELECT ` + playerColumns + ` FROM players ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var players []PlayerRecord
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(
			&p.UserID, &p.Username, &p.Email, &p.PasswordHash,
			&p.GamesPlayed, &p.Wins, &p.Losses, &p.Draws,
			&p.CurrentStreak, &p.LongestStreak,
			&p.Rating, &p.RatingAssigned, &p.Achievements,
			&p.CreatedAt, &p.LastLoginAt,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
