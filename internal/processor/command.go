// FILE: lanchess/internal/processor/command.go
package processor

import (
	"lanchess/internal/core"
	"lanchess/internal/service"
)

// CommandType defines the type of command being executed
type CommandType int

const (
	CmdCreateGame CommandType = iota
	CmdJoinGame
	CmdGetGame
	CmdSubmitMove
	CmdResign
	CmdOfferDraw
	CmdCheckSession
)

// Command is a unified structure for all processor operations
type Command struct {
	Type     CommandType
	Identity service.Identity
	GameCode string // For game-specific commands
	Args     any    // Command-specific arguments
}

// ProcessorResponse wraps the response with metadata
type ProcessorResponse struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Error   *core.ErrorResponse `json:"error,omitempty"`
}

func NewCreateGameCommand(req core.CreateGameRequest, id service.Identity) Command {
	return Command{
		Type:     CmdCreateGame,
		Identity: id,
		Args:     req,
	}
}

func NewJoinGameCommand(code string, req core.JoinGameRequest, id service.Identity) Command {
	return Command{
		Type:     CmdJoinGame,
		Identity: id,
		GameCode: code,
		Args:     req,
	}
}

func NewGetGameCommand(code string) Command {
	return Command{
		Type:     CmdGetGame,
		GameCode: code,
	}
}

func NewSubmitMoveCommand(code string, req core.MoveRequest, id service.Identity) Command {
	return Command{
		Type:     CmdSubmitMove,
		Identity: id,
		GameCode: code,
		Args:     req,
	}
}

func NewResignCommand(code string, req core.ResignRequest) Command {
	return Command{
		Type:     CmdResign,
		GameCode: code,
		Args:     req,
	}
}

func NewOfferDrawCommand(code string, req core.DrawRequest) Command {
	return Command{
		Type:     CmdOfferDraw,
		GameCode: code,
		Args:     req,
	}
}

func NewCheckSessionCommand(code string, id service.Identity) Command {
	return Command{
		Type:     CmdCheckSession,
		Identity: id,
		GameCode: code,
	}
}
