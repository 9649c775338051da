// FILE: lanchess/internal/processor/processor.go

// Package processor translates transport-level commands into service
// calls and service errors into API error responses. It owns no game
// state; everything authoritative lives behind the service.
package processor

import (
	"errors"
	"fmt"
	"regexp"
	"unicode"

	"lanchess/internal/core"
	"lanchess/internal/service"
)

// FEN validation regex
var fenPattern = regexp.MustCompile(`^[rnbqkpRNBQKP1-8/]+ [wb] [KQkq-]+ [a-h1-8-]+ \d+ \d+$`)

// Processor handles command execution against the service layer
type Processor struct {
	svc *service.Service
}

// New creates a processor bound to a service instance
func New(svc *service.Service) *Processor {
	return &Processor{svc: svc}
}

func (p *Processor) Execute(cmd Command) ProcessorResponse {
	switch cmd.Type {
	case CmdCreateGame:
		return p.handleCreateGame(cmd)
	case CmdJoinGame:
		return p.handleJoinGame(cmd)
	case CmdGetGame:
		return p.handleGetGame(cmd)
	case CmdSubmitMove:
		return p.handleSubmitMove(cmd)
	case CmdResign:
		return p.handleResign(cmd)
	case CmdOfferDraw:
		return p.handleOfferDraw(cmd)
	case CmdCheckSession:
		return p.handleCheckSession(cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// isFENSafe rejects control characters and positions that do not match
// the FEN shape. The server does not verify legality, but it refuses to
// store garbage.
func (p *Processor) isFENSafe(fen string) bool {
	for _, r := range fen {
		if unicode.IsControl(r) && r != ' ' {
			return false
		}
	}
	return fenPattern.MatchString(fen)
}

func (p *Processor) handleCreateGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, sessionKey, err := p.svc.CreateGame(args, cmd.Identity)
	if err != nil {
		return p.serviceError(err)
	}

	g.Lock()
	data := core.GameCreatedResponse{
		Code:       g.Code,
		FEN:        g.FEN,
		Status:     string(g.Status),
		Rated:      g.Rated,
		WhiteTime:  g.WhiteTime,
		BlackTime:  g.BlackTime,
		SessionKey: sessionKey,
	}
	g.Unlock()

	return ProcessorResponse{Success: true, Data: data}
}

func (p *Processor) handleJoinGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.JoinGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, sessionKey, err := p.svc.JoinGame(cmd.GameCode, args, cmd.Identity)
	if err != nil {
		return p.serviceError(err)
	}

	// The opponent may already be moving; read under the game lock.
	g.Lock()
	data := core.JoinGameResponse{
		Code:        g.Code,
		FEN:         g.FEN,
		Status:      string(g.Status),
		WhitePlayer: g.WhiteDisplayName(),
		BlackPlayer: g.BlackDisplayName(),
		WhiteTime:   g.WhiteTime,
		BlackTime:   g.BlackTime,
		SessionKey:  sessionKey,
	}
	g.Unlock()

	return ProcessorResponse{Success: true, Data: data}
}

func (p *Processor) handleGetGame(cmd Command) ProcessorResponse {
	state, err := p.svc.PeekState(cmd.GameCode)
	if err != nil {
		return p.serviceError(err)
	}
	return ProcessorResponse{Success: true, Data: state}
}

func (p *Processor) handleSubmitMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	if !p.isFENSafe(args.FEN) {
		return p.errorResponse("invalid FEN format or characters", core.ErrInvalidRequest)
	}

	resp, err := p.svc.SubmitMove(cmd.GameCode, args, cmd.Identity)
	if err != nil {
		return p.serviceError(err)
	}
	return ProcessorResponse{Success: true, Data: resp}
}

func (p *Processor) handleResign(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ResignRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	resp, err := p.svc.Resign(cmd.GameCode, args)
	if err != nil {
		return p.serviceError(err)
	}
	return ProcessorResponse{Success: true, Data: resp}
}

func (p *Processor) handleOfferDraw(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.DrawRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	resp, err := p.svc.Draw(cmd.GameCode, args)
	if err != nil {
		return p.serviceError(err)
	}
	return ProcessorResponse{Success: true, Data: resp}
}

func (p *Processor) handleCheckSession(cmd Command) ProcessorResponse {
	resp, err := p.svc.CheckSession(cmd.GameCode, cmd.Identity)
	if err != nil {
		return p.serviceError(err)
	}
	return ProcessorResponse{Success: true, Data: resp}
}

// serviceError maps service sentinel errors to API error codes
func (p *Processor) serviceError(err error) ProcessorResponse {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return p.errorResponse("game not found", core.ErrGameNotFound)
	case errors.Is(err, service.ErrGameFull):
		return p.errorResponse("game is not joinable", core.ErrGameFull)
	case errors.Is(err, service.ErrGameOver):
		return p.errorResponse("game is already over", core.ErrGameOver)
	case errors.Is(err, service.ErrTooManyGames):
		return p.errorResponse("active game limit reached", core.ErrResourceLimit)
	case errors.Is(err, service.ErrInvalidRequest):
		return p.errorResponse(err.Error(), core.ErrInvalidRequest)
	default:
		return p.errorResponse(fmt.Sprintf("internal error: %v", err), core.ErrInternalError)
	}
}

// errorResponse creates error response
func (p *Processor) errorResponse(message, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}
