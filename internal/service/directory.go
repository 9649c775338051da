// FILE: lanchess/internal/service/directory.go
package service

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"lanchess/internal/core"
	"lanchess/internal/game"
	"lanchess/internal/storage"
)

// codeAlphabet excludes nothing; codes are uppercase alphanumeric like
// the ones players shout across a club room.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// Identity is the caller's resolved identity: a registered account, a
// guest with a session key, or fully anonymous.
type Identity struct {
	UserID     string
	Username   string
	SessionKey string
}

// Registered reports whether the identity is a logged-in account.
func (id Identity) Registered() bool { return id.UserID != "" }

// CreateGame creates a waiting game with the caller seated as white.
// Registered players are capped at MaxActiveGamesPerPlayer open games;
// guests get a fresh session key for reseating.
func (s *Service) CreateGame(req core.CreateGameRequest, id Identity) (*game.Game, string, error) {
	timeControl := req.TimeControl
	if timeControl == "" {
		timeControl = core.DefaultTimeControl
	}

	code, err := s.generateUniqueCode()
	if err != nil {
		return nil, "", err
	}

	now := s.clock.Now().UTC()
	g := game.New(code, timeControl, req.IsRated(), now)
	g.WhitePlayerID = id.UserID
	g.WhiteName = displayName(id, req.PlayerName)

	sessionKey := id.SessionKey
	if !id.Registered() && sessionKey == "" {
		sessionKey = uuid.New().String()
	}

	if err := s.reserveSeat(id); err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	s.games[g.Code] = g
	s.mu.Unlock()

	g.Lock()
	s.persist(g)
	g.Unlock()
	s.bindSeat(g.Code, id.UserID, sessionKey, core.ColorWhite)

	return g, sessionKey, nil
}

// JoinGame seats the caller as black in a waiting game and starts the
// clock. A participant who is already seated gets the game back without
// state change, so a reconnecting client can call join safely.
func (s *Service) JoinGame(code string, req core.JoinGameRequest, id Identity) (*game.Game, string, error) {
	g, err := s.Lookup(code)
	if err != nil {
		return nil, "", err
	}

	sessionKey := id.SessionKey
	if !id.Registered() && sessionKey == "" {
		sessionKey = uuid.New().String()
	}

	g.Lock()
	defer g.Unlock()

	if g.Status != core.StatusWaiting {
		if _, ok := s.seatFor(g, id); ok {
			return g, id.SessionKey, nil
		}
		return nil, "", ErrGameFull
	}

	if id.Registered() && g.WhitePlayerID == id.UserID {
		// Already seated as white; creating and joining your own game
		// is a client bug, not a second seat.
		return g, id.SessionKey, nil
	}
	if err := s.reserveSeat(id); err != nil {
		return nil, "", err
	}

	g.BlackPlayerID = id.UserID
	g.BlackName = displayName(id, req.PlayerName)
	g.Start(s.clock.Now().UTC())

	s.persist(g)
	s.bindSeat(g.Code, id.UserID, sessionKey, core.ColorBlack)
	s.waiter.NotifyGame(g.Code, -1)

	return g, sessionKey, nil
}

// Lookup finds a game by code, in memory first, then storage. Codes are
// case-insensitive on both paths.
func (s *Service) Lookup(code string) (*game.Game, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	s.mu.RLock()
	g, ok := s.games[code]
	s.mu.RUnlock()
	if ok {
		return g, nil
	}

	if s.store == nil {
		return nil, ErrNotFound
	}
	g, err := s.store.LoadGame(code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", code, err)
	}
	return g, nil
}

// PeekState projects the current game state for polling clients. The
// clock values are a pure projection; stored state never moves here.
func (s *Service) PeekState(code string) (core.GameStateResponse, error) {
	g, err := s.Lookup(code)
	if err != nil {
		return core.GameStateResponse{}, err
	}

	g.Lock()
	defer g.Unlock()

	view := g.PeekClock(s.clock.Now().UTC())
	resp := core.GameStateResponse{
		Code:          g.Code,
		FEN:           g.FEN,
		Status:        string(g.Status),
		WhitePlayer:   g.WhiteDisplayName(),
		BlackPlayer:   g.BlackDisplayName(),
		WhiteTime:     view.White,
		BlackTime:     view.Black,
		Turn:          view.Turn.String(),
		Winner:        string(g.Winner),
		Reason:        string(g.Reason),
		Moves:         append([]string(nil), g.Moves...),
		MoveCount:     g.MoveCount,
		TimerSyncedAt: g.TimerSyncedAt,
	}
	resp.Captures.White = append([]string(nil), g.Captures.White...)
	resp.Captures.Black = append([]string(nil), g.Captures.Black...)
	return resp, nil
}

// reserveSeat counts a registered caller toward the open game limit,
// check and increment in one critical section so concurrent creates
// cannot slip past the cap. Guests are uncapped, and a zero limit
// disables the check. Every reservation is paired with a releaseSeat
// when the game leaves play.
func (s *Service) reserveSeat(id Identity) error {
	if !id.Registered() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if limit := s.cfg.MaxActiveGamesPerPlayer; limit > 0 && s.seats[id.UserID] >= limit {
		return ErrTooManyGames
	}
	s.seats[id.UserID]++
	return nil
}

// releaseSeat returns a reserved seat once the game is terminal.
func (s *Service) releaseSeat(userID string) {
	if userID == "" {
		return
	}

	s.mu.Lock()
	if s.seats[userID] <= 1 {
		delete(s.seats, userID)
	} else {
		s.seats[userID]--
	}
	s.mu.Unlock()
}

// generateUniqueCode draws random codes until one is free in both the
// directory and storage.
func (s *Service) generateUniqueCode() (string, error) {
	const maxAttempts = 10

	for i := 0; i < maxAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}

		s.mu.RLock()
		_, taken := s.games[code]
		s.mu.RUnlock()
		if taken {
			continue
		}

		if s.store != nil {
			exists, err := s.store.GameExists(code)
			if err != nil {
				return "", fmt.Errorf("code uniqueness check failed: %w", err)
			}
			if exists {
				continue
			}
		}
		return code, nil
	}
	return "", fmt.Errorf("failed to generate unique game code after %d attempts", maxAttempts)
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// bindSeat records a seat binding for reseating. Anonymous callers with
// no identity at all get nothing to reseat with, so no row is written.
func (s *Service) bindSeat(code, userID, sessionKey string, color core.Color) {
	if s.store == nil || (userID == "" && sessionKey == "") {
		return
	}
	err := s.store.CreateGameSession(storage.GameSessionRecord{
		GameCode:   code,
		UserID:     userID,
		SessionKey: sessionKey,
		Color:      string(core.WinnerFor(color)),
		LastSeen:   s.clock.Now().UTC(),
	})
	if err != nil {
		log.Printf("failed to bind seat for game %s: %v", code, err)
	}
}

// seatFor resolves which seat, if any, the identity holds in the game.
func (s *Service) seatFor(g *game.Game, id Identity) (core.Color, bool) {
	if id.Registered() {
		switch id.UserID {
		case g.WhitePlayerID:
			return core.ColorWhite, true
		case g.BlackPlayerID:
			return core.ColorBlack, true
		}
	}
	if s.store != nil && (id.UserID != "" || id.SessionKey != "") {
		sess, err := s.store.GetGameSession(g.Code, id.UserID, id.SessionKey)
		if err == nil {
			if c, ok := core.ParseColor(sess.Color); ok {
				return c, true
			}
		}
	}
	return core.ColorWhite, false
}

func displayName(id Identity, requested string) string {
	if id.Registered() {
		return id.Username
	}
	return strings.TrimSpace(requested)
}
