// FILE: lanchess/internal/service/gameops.go
package service

import (
	"fmt"
	"log"
	"time"

	"lanchess/internal/core"
	"lanchess/internal/game"
	"lanchess/internal/storage"
)

// SubmitMove applies a client-validated move: the new position is
// recorded, then the clock commit charges the mover. This is the only
// path that moves the stored clocks, exactly once per accepted move.
func (s *Service) SubmitMove(code string, req core.MoveRequest, id Identity) (core.MoveResponse, error) {
	g, err := s.Lookup(code)
	if err != nil {
		return core.MoveResponse{}, err
	}

	g.Lock()
	defer g.Unlock()

	if g.Status.Terminal() {
		return core.MoveResponse{}, ErrGameOver
	}
	if g.Status != core.StatusActive {
		return core.MoveResponse{}, fmt.Errorf("%w: game has not started", ErrInvalidRequest)
	}

	now := s.clock.Now().UTC()

	// Validate everything the request can get wrong before touching the
	// game. A rejected payload must leave position, move count, and
	// clocks exactly as they were, or a client retry would double-charge
	// the mover.
	var captureColor core.Color
	if req.Captured != nil {
		var ok bool
		captureColor, ok = core.ParseColor(req.Captured.Color)
		if !ok {
			return core.MoveResponse{}, fmt.Errorf("%w: unknown capture color %q", ErrInvalidRequest, req.Captured.Color)
		}
	}
	var endWinner core.Winner
	var endReason core.Reason
	if req.GameOver {
		endWinner, endReason, err = resolveOutcome(req)
		if err != nil {
			return core.MoveResponse{}, err
		}
	}

	// Position first, then the commit: the mover is derived from the
	// post-move turn indicator.
	g.FEN = req.FEN
	g.MoveCount++
	mover := core.OppositeColor(g.SideToMove())

	if req.MoveSAN != "" {
		g.AppendMove(req.MoveSAN)
	}
	if req.Captured != nil {
		g.AddCapture(captureColor, req.Captured.Piece)
	}

	g.CommitMove(now)

	// The commit may have flagged the mover; a timeout outcome takes
	// precedence over whatever end state the client reported.
	if g.Status == core.StatusActive && req.GameOver {
		if err := g.Complete(endWinner, endReason, now); err != nil {
			return core.MoveResponse{}, err
		}
	}

	s.persist(g)
	s.recordMoveRow(g.Code, g.MoveCount, req, mover, now)

	if g.Status.Terminal() {
		s.finishGame(g)
	}
	s.waiter.NotifyGame(g.Code, -1)

	return core.MoveResponse{
		WhiteTime: g.WhiteTime,
		BlackTime: g.BlackTime,
		Status:    string(g.Status),
		Winner:    string(g.Winner),
		Reason:    string(g.Reason),
	}, nil
}

// resolveOutcome maps a client-reported end state to a game outcome.
// The reason defaults to checkmate for decisive results and agreement
// for draws when the client sends none.
func resolveOutcome(req core.MoveRequest) (core.Winner, core.Reason, error) {
	winner := core.Winner(req.Winner)
	switch winner {
	case core.WinnerWhite, core.WinnerBlack, core.WinnerDraw:
	default:
		return "", "", fmt.Errorf("%w: game over without a winner", ErrInvalidRequest)
	}

	reason := core.Reason(req.Reason)
	if reason == "" {
		if winner == core.WinnerDraw {
			reason = core.ReasonAgreement
		} else {
			reason = core.ReasonCheckmate
		}
	}
	if !core.ValidReason(reason) {
		return "", "", fmt.Errorf("%w: unknown end reason %q", ErrInvalidRequest, reason)
	}
	return winner, reason, nil
}

// Resign ends the game in favor of the opponent. The clock is not
// committed; resignation is not a move.
func (s *Service) Resign(code string, req core.ResignRequest) (core.MoveResponse, error) {
	g, err := s.Lookup(code)
	if err != nil {
		return core.MoveResponse{}, err
	}

	color, ok := core.ParseColor(req.Color)
	if !ok {
		return core.MoveResponse{}, fmt.Errorf("%w: unknown color %q", ErrInvalidRequest, req.Color)
	}

	g.Lock()
	defer g.Unlock()

	if g.Status.Terminal() {
		return core.MoveResponse{}, ErrGameOver
	}

	now := s.clock.Now().UTC()
	winner := core.WinnerFor(core.OppositeColor(color))
	if err := g.Complete(winner, core.ReasonResignation, now); err != nil {
		return core.MoveResponse{}, err
	}

	s.persist(g)
	s.finishGame(g)
	s.waiter.NotifyGame(g.Code, -1)

	return core.MoveResponse{
		WhiteTime: g.WhiteTime,
		BlackTime: g.BlackTime,
		Status:    string(g.Status),
		Winner:    string(g.Winner),
		Reason:    string(g.Reason),
	}, nil
}

// Draw handles draw negotiation. An offer is acknowledged without state
// change; acceptance ends the game immediately. The server trusts the
// clients to pair them, as it does for move legality.
func (s *Service) Draw(code string, req core.DrawRequest) (core.DrawResponse, error) {
	g, err := s.Lookup(code)
	if err != nil {
		return core.DrawResponse{}, err
	}

	g.Lock()
	defer g.Unlock()

	if g.Status.Terminal() {
		return core.DrawResponse{}, ErrGameOver
	}

	if req.Action == "offer" {
		return core.DrawResponse{DrawOffered: true}, nil
	}

	now := s.clock.Now().UTC()
	if err := g.Complete(core.WinnerDraw, core.ReasonAgreement, now); err != nil {
		return core.DrawResponse{}, err
	}

	s.persist(g)
	s.finishGame(g)
	s.waiter.NotifyGame(g.Code, -1)

	return core.DrawResponse{DrawAccepted: true}, nil
}

// CheckSession reports whether the caller holds a seat in the game and
// which color, so a reconnecting client can restore its board
// orientation.
func (s *Service) CheckSession(code string, id Identity) (core.SessionResponse, error) {
	g, err := s.Lookup(code)
	if err != nil {
		return core.SessionResponse{}, err
	}

	g.Lock()
	seat, ok := s.seatFor(g, id)
	g.Unlock()

	if !ok {
		return core.SessionResponse{HasSession: false}, nil
	}
	if s.store != nil {
		s.store.TouchGameSession(g.Code, id.UserID, id.SessionKey)
	}
	return core.SessionResponse{
		HasSession: true,
		Color:      string(core.WinnerFor(seat)),
	}, nil
}

// finishGame applies rating outcomes for a completed rated game between
// two registered players and retires the game from the directory.
// Abandoned games and guest games skip the ledger. Callers hold the
// game lock.
func (s *Service) finishGame(g *game.Game) {
	if g.Status == core.StatusCompleted && g.Rated && g.HasBothPlayersRegistered() && s.store != nil {
		err := s.store.ApplyGameOutcomes(
			g.WhitePlayerID, g.ResultFor(core.ColorWhite),
			g.BlackPlayerID, g.ResultFor(core.ColorBlack),
		)
		if err != nil {
			log.Printf("failed to apply outcomes for game %s: %v", g.Code, err)
		}
	}

	s.releaseSeat(g.WhitePlayerID)
	s.releaseSeat(g.BlackPlayerID)
	s.dropFromDirectory(g.Code)
}

// recordMoveRow enqueues the per-move history row. Best-effort.
func (s *Service) recordMoveRow(code string, moveNumber int, req core.MoveRequest, mover core.Color, now time.Time) {
	if s.store == nil {
		return
	}
	captured := ""
	if req.Captured != nil {
		captured = req.Captured.Piece
	}
	color := "w"
	if mover == core.ColorBlack {
		color = "b"
	}
	s.store.RecordMove(storage.MoveRecord{
		GameCode:      code,
		MoveNumber:    moveNumber,
		SAN:           req.MoveSAN,
		FENAfter:      req.FEN,
		PlayerColor:   color,
		CapturedPiece: captured,
		PlayedAtUTC:   now,
	})
}
