// FILE: lanchess/internal/storage/game.go
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"lanchess/internal/core"
	"lanchess/internal/game"
)

// SaveGame synchronously upserts the full game row. Clock values and
// outcomes are authoritative state, so this never goes through the
// async writer.
func (s *Store) SaveGame(g *game.Game) error {
	rec, err := gameToRecord(g)
	if err != nil {
		return err
	}

	query := `INSERT INTO games (
		code, fen, status, time_control, rated,
		white_player_id, black_player_id, white_name, black_name,
		white_time, black_time, last_move_at, timer_synced_at,
		winner, reason, move_count, move_log, captures,
		created_at, started_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(code) DO UPDATE SET
		fen = excluded.fen,
		status = excluded.status,
		rated = excluded.rated,
		white_player_id = excluded.white_player_id,
		black_player_id = excluded.black_player_id,
		white_name = excluded.white_name,
		black_name = excluded.black_name,
		white_time = excluded.white_time,
		black_time = excluded.black_time,
		last_move_at = excluded.last_move_at,
		timer_synced_at = excluded.timer_synced_at,
		winner = excluded.winner,
		reason = excluded.reason,
		move_count = excluded.move_count,
		move_log = excluded.move_log,
		captures = excluded.captures,
		started_at = excluded.started_at,
		completed_at = excluded.completed_at`

	_, err = s.db.Exec(query,
		rec.Code, rec.FEN, rec.Status, rec.TimeControl, rec.Rated,
		rec.WhitePlayerID, rec.BlackPlayerID, rec.WhiteName, rec.BlackName,
		rec.WhiteTime, rec.BlackTime, rec.LastMoveAt, rec.TimerSyncedAt,
		rec.Winner, rec.Reason, rec.MoveCount, rec.MoveLog, rec.Captures,
		rec.CreatedAt, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", g.Code, err)
	}
	return nil
}

const gameColumns = `code, fen, status, time_control, rated,
	white_player_id, black_player_id, white_name, black_name,
	white_time, black_time, last_move_at, timer_synced_at,
	winner, reason, move_count, move_log, captures,
	created_at, started_at, completed_at`

// LoadGame retrieves one game by code (case-insensitive via the
// COLLATE NOCASE primary key). Returns sql.ErrNoRows when absent.
func (s *Store) LoadGame(code string) (*game.Game, error) {
	row := s.db.QueryRow(`SELECT `+gameColumns+` FROM games WHERE code = ?`, code)
	rec, err := scanGameRecord(row)
	if err != nil {
		return nil, err
	}
	return recordToGame(rec)
}

// LoadOpenGames returns all waiting and active games for startup
// rehydration of the in-memory directory.
func (s *Store) LoadOpenGames() ([]*game.Game, error) {
	rows, err := s.db.Query(`SELECT ` + gameColumns + ` FROM games WHERE status IN ('waiting', 'active')`)
	if err != nil {
		return nil, fmt.Errorf("query open games failed: %w", err)
	}
	defer rows.Close()

	var games []*game.Game
	for rows.Next() {
		rec, err := scanGameRecord(rows)
		if err != nil {
			return nil, err
		}
		g, err := recordToGame(rec)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// RecordMove asynchronously records a move-history row. Best-effort:
// the row is display/replay data, the authoritative log lives on the
// game row.
func (s *Store) RecordMove(record MoveRecord) {
	s.enqueue("move record", func(tx *sql.Tx) error {
		query := `INSERT INTO moves (
			game_code, move_number, san, fen_after, player_color, captured_piece, played_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.GameCode, record.MoveNumber, record.SAN,
			record.FENAfter, record.PlayerColor, record.CapturedPiece, record.PlayedAtUTC,
		)
		return err
	})
}

// QueryMoves returns the stored move history for a game in order.
func (s *Store) QueryMoves(code string) ([]MoveRecord, error) {
	rows, err := s.db.Query(`SELECT move_id, game_code, move_number, san, fen_after, player_color, captured_piece, played_at_utc
		FROM moves WHERE game_code = ? ORDER BY move_number`, code)
	if err != nil {
		return nil, fmt.Errorf("query moves failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		if err := rows.Scan(&m.MoveID, &m.GameCode, &m.MoveNumber, &m.SAN,
			&m.FENAfter, &m.PlayerColor, &m.CapturedPiece, &m.PlayedAtUTC); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

// GameExists reports whether a code is already taken.
func (s *Store) GameExists(code string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM games WHERE code = ?`, code).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountGames returns total and active game counts.
func (s *Store) CountGames() (total, active int, err error) {
	err = s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(status = 'active'), 0) FROM games`).
		Scan(&total, &active)
	return
}

// QueryGames retrieves game rows, optionally filtered by code or
// participant, newest first. Used by the admin CLI.
func (s *Store) QueryGames(code, playerID string) ([]GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE 1=1`
	var args []any

	if code != "" && code != "*" {
		query += " AND code = ?"
		args = append(args, code)
	}
	if playerID != "" && playerID != "*" {
		query += " AND (white_player_id = ? OR black_player_id = ?)"
		args = append(args, playerID, playerID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		rec, err := scanGameRecord(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, rec)
	}
	return games, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGameRecord(row rowScanner) (GameRecord, error) {
	var rec GameRecord
	err := row.Scan(
		&rec.Code, &rec.FEN, &rec.Status, &rec.TimeControl, &rec.Rated,
		&rec.WhitePlayerID, &rec.BlackPlayerID, &rec.WhiteName, &rec.BlackName,
		&rec.WhiteTime, &rec.BlackTime, &rec.LastMoveAt, &rec.TimerSyncedAt,
		&rec.Winner, &rec.Reason, &rec.MoveCount, &rec.MoveLog, &rec.Captures,
		&rec.CreatedAt, &rec.StartedAt, &rec.CompletedAt,
	)
	if err != nil {
		return rec, err
	}
	return rec, nil
}

// gameToRecord serializes the game, with the move log and captures as
// JSON text columns.
func gameToRecord(g *game.Game) (GameRecord, error) {
	moveLog, err := json.Marshal(g.Moves)
	if err != nil {
		return GameRecord{}, fmt.Errorf("failed to encode move log: %w", err)
	}
	captures, err := json.Marshal(g.Captures)
	if err != nil {
		return GameRecord{}, fmt.Errorf("failed to encode captures: %w", err)
	}

	return GameRecord{
		Code:          g.Code,
		FEN:           g.FEN,
		Status:        string(g.Status),
		TimeControl:   g.TimeControl,
		Rated:         g.Rated,
		WhitePlayerID: g.WhitePlayerID,
		BlackPlayerID: g.BlackPlayerID,
		WhiteName:     g.WhiteName,
		BlackName:     g.BlackName,
		WhiteTime:     g.WhiteTime,
		BlackTime:     g.BlackTime,
		LastMoveAt:    g.LastMoveAt,
		TimerSyncedAt: g.TimerSyncedAt,
		Winner:        string(g.Winner),
		Reason:        string(g.Reason),
		MoveCount:     g.MoveCount,
		MoveLog:       string(moveLog),
		Captures:      string(captures),
		CreatedAt:     g.CreatedAt,
		StartedAt:     g.StartedAt,
		CompletedAt:   g.CompletedAt,
	}, nil
}

// recordToGame is the inverse of gameToRecord; the pair must round-trip
// losslessly.
func recordToGame(rec GameRecord) (*game.Game, error) {
	g := &game.Game{
		Code:          rec.Code,
		FEN:           rec.FEN,
		Status:        core.Status(rec.Status),
		TimeControl:   rec.TimeControl,
		Rated:         rec.Rated,
		WhitePlayerID: rec.WhitePlayerID,
		BlackPlayerID: rec.BlackPlayerID,
		WhiteName:     rec.WhiteName,
		BlackName:     rec.BlackName,
		WhiteTime:     rec.WhiteTime,
		BlackTime:     rec.BlackTime,
		LastMoveAt:    rec.LastMoveAt,
		TimerSyncedAt: rec.TimerSyncedAt,
		Winner:        core.Winner(rec.Winner),
		Reason:        core.Reason(rec.Reason),
		MoveCount:     rec.MoveCount,
		CreatedAt:     rec.CreatedAt,
		StartedAt:     rec.StartedAt,
		CompletedAt:   rec.CompletedAt,
	}

	if rec.MoveLog != "" {
		if err := json.Unmarshal([]byte(rec.MoveLog), &g.Moves); err != nil {
			return nil, fmt.Errorf("failed to decode move log for %s: %w", rec.Code, err)
		}
	}
	if rec.Captures != "" {
		if err := json.Unmarshal([]byte(rec.Captures), &g.Captures); err != nil {
			return nil, fmt.Errorf("failed to decode captures for %s: %w", rec.Code, err)
		}
	}
	return g, nil
}
