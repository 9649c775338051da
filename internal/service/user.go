// FILE: lanchess/internal/service/user.go
package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"

	"lanchess/internal/core"
	"lanchess/internal/rating"
	"lanchess/internal/storage"
)

// Player represents a registered club member account
type Player struct {
	UserID    string
	Username  string
	Email     string
	CreatedAt time.Time
}

// CreatePlayer registers a new member with transactional consistency
func (s *Service) CreatePlayer(username, email, password string) (*Player, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.generateUniqueUserID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate unique ID: %w", err)
	}

	player := &Player{
		UserID:    userID,
		Username:  username,
		Email:     email,
		CreatedAt: s.clock.Now().UTC(),
	}

	record := storage.PlayerRecord{
		UserID:       userID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    player.CreatedAt,
	}

	if err = s.store.CreatePlayer(record); err != nil {
		return nil, err
	}

	return player, nil
}

// AuthenticatePlayer verifies credentials by username or email
func (s *Service) AuthenticatePlayer(identifier, password string) (*Player, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	var record *storage.PlayerRecord
	var err error

	if strings.Contains(identifier, "@") {
		record, err = s.store.GetPlayerByEmail(identifier)
	} else {
		record, err = s.store.GetPlayerByUsername(identifier)
	}

	if err != nil {
		// Always hash to prevent timing attacks
		auth.HashPassword(password)
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := auth.VerifyPassword(password, record.PasswordHash); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	s.store.UpdateLastLogin(record.UserID)

	return &Player{
		UserID:    record.UserID,
		Username:  record.Username,
		Email:     record.Email,
		CreatedAt: record.CreatedAt,
	}, nil
}

// GetPlayerByID retrieves account information by user ID
func (s *Service) GetPlayerByID(userID string) (*Player, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	record, err := s.store.GetPlayerByID(userID)
	if err != nil {
		return nil, fmt.Errorf("player not found")
	}

	return &Player{
		UserID:    record.UserID,
		Username:  record.Username,
		Email:     record.Email,
		CreatedAt: record.CreatedAt,
	}, nil
}

// PlayerStats returns the public ledger view for one member.
func (s *Service) PlayerStats(username string) (core.PlayerStatsResponse, error) {
	if s.store == nil {
		return core.PlayerStatsResponse{}, ErrStorageDisabled
	}

	record, err := s.store.GetPlayerByUsername(username)
	if err != nil {
		return core.PlayerStatsResponse{}, ErrNotFound
	}

	resp := core.PlayerStatsResponse{
		Username:      record.Username,
		GamesPlayed:   record.GamesPlayed,
		Wins:          record.Wins,
		Losses:        record.Losses,
		Draws:         record.Draws,
		CurrentStreak: record.CurrentStreak,
		LongestStreak: record.LongestStreak,
		Rating:        record.Rating,
		Achievements:  []string{},
	}
	if !record.RatingAssigned {
		resp.GamesToRating = rating.GamesForRating - record.GamesPlayed
		if resp.GamesToRating < 0 {
			resp.GamesToRating = 0
		}
	}
	if record.Achievements != "" {
		if err := json.Unmarshal([]byte(record.Achievements), &resp.Achievements); err != nil {
			return core.PlayerStatsResponse{}, fmt.Errorf("failed to decode achievements: %w", err)
		}
	}
	return resp, nil
}

// Leaderboard returns ranked entries for members with assigned ratings.
func (s *Service) Leaderboard(limit int) ([]core.LeaderboardEntry, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := s.store.Leaderboard(limit)
	if err != nil {
		return nil, err
	}

	entries := make([]core.LeaderboardEntry, 0, len(records))
	for i, r := range records {
		if r.Rating == nil {
			continue
		}
		entries = append(entries, core.LeaderboardEntry{
			Rank:     i + 1,
			Username: r.Username,
			Rating:   *r.Rating,
			Games:    r.GamesPlayed,
			Wins:     r.Wins,
		})
	}
	return entries, nil
}

// GeneratePlayerToken creates a JWT for the specified member
func (s *Service) GeneratePlayerToken(userID string) (string, error) {
	player, err := s.GetPlayerByID(userID)
	if err != nil {
		return "", err
	}

	claims := map[string]any{
		"username": player.Username,
		"email":    player.Email,
	}

	return auth.GenerateHS256Token(s.jwtSecret, userID, claims, 7*24*time.Hour)
}

// ValidateToken verifies a JWT and returns the user ID with claims
func (s *Service) ValidateToken(token string) (string, map[string]any, error) {
	return auth.ValidateHS256Token(s.jwtSecret, token)
}

// generateUniqueUserID creates a unique user ID with collision detection
func (s *Service) generateUniqueUserID() (string, error) {
	const maxAttempts = 10

	for i := 0; i < maxAttempts; i++ {
		id := uuid.New().String()

		if _, err := s.store.GetPlayerByID(id); err != nil {
			// Error means not found, ID is unique
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique user ID after %d attempts", maxAttempts)
}
