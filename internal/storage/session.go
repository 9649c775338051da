// FILE: lanchess/internal/storage/session.go
package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateGameSession creates or replaces a participant's seat binding
// for one game. A participant holds at most one seat per game, so any
// prior binding for the same identity is removed first.
func (s *Store) CreateGameSession(record GameSessionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if record.UserID != "" {
		if _, err := tx.Exec(`DELETE FROM game_sessions WHERE game_code = ? AND user_id = ?`,
			record.GameCode, record.UserID); err != nil {
			return fmt.Errorf("failed to delete existing session: %w", err)
		}
	}
	if record.SessionKey != "" {
		if _, err := tx.Exec(`DELETE FROM game_sessions WHERE game_code = ? AND session_key = ?`,
			record.GameCode, record.SessionKey); err != nil {
			return fmt.Errorf("failed to delete existing session: %w", err)
		}
	}

	query := `INSERT INTO game_sessions (game_code, user_id, session_key, color, last_seen)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.Exec(query,
		record.GameCode, record.UserID, record.SessionKey, record.Color, record.LastSeen); err != nil {
		return fmt.Errorf("failed to create game session: %w", err)
	}

	return tx.Commit()
}

// GetGameSession looks up a seat binding by registered user ID first,
// then by guest session key. Returns sql.ErrNoRows when neither
// identity is bound to the game.
func (s *Store) GetGameSession(gameCode, userID, sessionKey string) (*GameSessionRecord, error) {
	const columns = `game_code, user_id, session_key, color, last_seen`

	var session GameSessionRecord
	if userID != "" {
		err := s.db.QueryRow(`SELECT `+columns+` FROM game_sessions WHERE game_code = ? AND user_id = ?`,
			gameCode, userID).Scan(
			&session.GameCode, &session.UserID, &session.SessionKey, &session.Color, &session.LastSeen,
		)
		if err == nil {
			return &session, nil
		}
	}

	err := s.db.QueryRow(`SELECT `+columns+` FROM game_sessions WHERE game_code = ? AND session_key = ? AND session_key != ''`,
		gameCode, sessionKey).Scan(
		&session.GameCode, &session.UserID, &session.SessionKey, &session.Color, &session.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// TouchGameSession refreshes a binding's last seen time asynchronously.
func (s *Store) TouchGameSession(gameCode, userID, sessionKey string) {
	now := time.Now().UTC()
	s.enqueue("session touch", func(tx *sql.Tx) error {
		if userID != "" {
			_, err := tx.Exec(`UPDATE game_sessions SET last_seen = ? WHERE game_code = ? AND user_id = ?`,
				now, gameCode, userID)
			return err
		}
		_, err := tx.Exec(`UPDATE game_sessions SET last_seen = ? WHERE game_code = ? AND session_key = ?`,
			now, gameCode, sessionKey)
		return err
	})
}

// DeleteGameSessions removes all seat bindings for a game.
func (s *Store) DeleteGameSessions(gameCode string) error {
	_, err := s.db.Exec(`DELETE FROM game_sessions WHERE game_code = ?`, gameCode)
	return err
}

// DeleteStaleGameSessions removes bindings not seen since the cutoff
// whose game is already over. Live games keep their bindings so a
// player can reseat after any outage shorter than the game itself.
func (s *Store) DeleteStaleGameSessions(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM game_sessions
		WHERE last_seen < ?
		AND game_code IN (SELECT code FROM games WHERE status IN ('completed', 'abandoned'))`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
