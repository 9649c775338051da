// FILE: lanchess/internal/service/service.go

// Package service coordinates the in-memory game directory, the rating
// ledger, player accounts, and storage. All clock decisions flow through
// an injected clock so tests can drive time explicitly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"lanchess/internal/core"
	"lanchess/internal/game"
	"lanchess/internal/storage"
)

const (
	SessionTTL         = 7 * 24 * time.Hour
	CleanupJobInterval = 5 * time.Minute
)

// Sentinel errors mapped to API error codes at the transport boundary.
var (
	ErrNotFound        = errors.New("game not found")
	ErrGameFull        = errors.New("game is not joinable")
	ErrGameOver        = errors.New("game is already over")
	ErrTooManyGames    = errors.New("active game limit reached")
	ErrStorageDisabled = errors.New("storage disabled")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Service owns the authoritative game directory. Games live in memory
// while open and are written through to storage on every authoritative
// change; storage is also the source for rehydration after a restart.
type Service struct {
	cfg   core.Config
	games map[string]*game.Game
	// seats counts non-terminal seats per registered user so the open
	// game cap can be checked without touching per-game locks.
	seats     map[string]int
	mu        sync.RWMutex
	store     *storage.Store
	jwtSecret []byte
	clock     clockwork.Clock
	waiter    *WaitRegistry
}

// New creates a service. store may be nil (storage disabled, in-memory
// only); clock may be nil, defaulting to the real clock.
func New(cfg core.Config, store *storage.Store, jwtSecret []byte, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		cfg:       cfg,
		games:     make(map[string]*game.Game),
		seats:     make(map[string]int),
		store:     store,
		jwtSecret: jwtSecret,
		clock:     clock,
		waiter:    NewWaitRegistry(),
	}
}

// Rehydrate loads open games from storage into the directory. Called
// once at startup, before the server accepts requests.
func (s *Service) Rehydrate() error {
	if s.store == nil {
		return nil
	}

	games, err := s.store.LoadOpenGames()
	if err != nil {
		return fmt.Errorf("failed to load open games: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range games {
		s.games[g.Code] = g
		if g.WhitePlayerID != "" {
			s.seats[g.WhitePlayerID]++
		}
		if g.BlackPlayerID != "" {
			s.seats[g.BlackPlayerID]++
		}
	}
	if len(games) > 0 {
		log.Printf("Rehydrated %d open games from storage", len(games))
	}
	return nil
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// RegisterWait registers a client to wait for game state changes
func (s *Service) RegisterWait(code string, moveCount int, ctx context.Context) <-chan struct{} {
	return s.waiter.RegisterWait(code, moveCount, ctx)
}

// ClubStats aggregates directory-wide counters for the stats endpoint.
func (s *Service) ClubStats() (core.ClubStatsResponse, error) {
	stats := core.ClubStatsResponse{ClubName: s.cfg.ClubName}

	// Statuses move under the per-game mutex, so the directory snapshot
	// is taken first and each game is locked on its own.
	s.mu.RLock()
	resident := make([]*game.Game, 0, len(s.games))
	for _, g := range s.games {
		resident = append(resident, g)
	}
	s.mu.RUnlock()

	stats.TotalGames = len(resident)
	for _, g := range resident {
		g.Lock()
		active := g.Status == core.StatusActive
		g.Unlock()
		if active {
			stats.ActiveGames++
		}
	}

	if s.store != nil {
		total, _, err := s.store.CountGames()
		if err != nil {
			return stats, fmt.Errorf("failed to count games: %w", err)
		}
		stats.TotalGames = total

		players, err := s.store.CountPlayers()
		if err != nil {
			return stats, fmt.Errorf("failed to count players: %w", err)
		}
		stats.TotalPlayers = players
	}

	return stats, nil
}

// Shutdown gracefully shuts down the service
func (s *Service) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("wait registry: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.games = make(map[string]*game.Game)
	s.seats = make(map[string]int)

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RunCleanupJob periodically abandons idle games and purges stale
// session bindings until the context is cancelled.
func (s *Service) RunCleanupJob(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.sweep()
		}
	}
}

// sweep abandons games with no activity inside the configured timeout
// and deletes seat bindings of finished games. Abandoned games never
// touch the rating ledger.
func (s *Service) sweep() {
	now := s.clock.Now().UTC()
	cutoff := now.Add(-s.cfg.GameTimeout)

	s.mu.RLock()
	candidates := make([]*game.Game, 0, len(s.games))
	for _, g := range s.games {
		candidates = append(candidates, g)
	}
	s.mu.RUnlock()

	for _, g := range candidates {
		g.Lock()
		last := g.CreatedAt
		if g.LastMoveAt != nil {
			last = *g.LastMoveAt
		}
		if !last.Before(cutoff) {
			g.Unlock()
			continue
		}
		if err := g.Abandon(now); err != nil {
			g.Unlock()
			continue
		}
		s.persist(g)
		whiteID, blackID := g.WhitePlayerID, g.BlackPlayerID
		g.Unlock()

		s.releaseSeat(whiteID)
		s.releaseSeat(blackID)
		s.dropFromDirectory(g.Code)
		s.waiter.RemoveGame(g.Code)
		log.Printf("cleanup: abandoned idle game %s", g.Code)
	}

	if s.store != nil {
		if deleted, err := s.store.DeleteStaleGameSessions(now.Add(-SessionTTL)); err != nil {
			log.Printf("cleanup: failed to delete stale sessions: %v", err)
		} else if deleted > 0 {
			log.Printf("cleanup: deleted %d stale game sessions", deleted)
		}
	}
}

// persist writes a game through to storage, degrading to a log line
// when storage is unavailable. In-memory state is already authoritative
// for open games.
func (s *Service) persist(g *game.Game) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveGame(g); err != nil {
		log.Printf("failed to persist game %s: %v", g.Code, err)
	}
}

// dropFromDirectory removes a finished game from the in-memory map;
// lookups fall through to storage afterwards. With storage disabled the
// map is all there is, so finished games stay resident.
func (s *Service) dropFromDirectory(code string) {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	delete(s.games, code)
	s.mu.Unlock()
}
