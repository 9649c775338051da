// FILE: lanchess/internal/processor/processor_test.go
package processor

import (
	"testing"

	"lanchess/internal/core"
	"lanchess/internal/service"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	svc := service.New(core.DefaultConfig(), nil, []byte("test-secret-minimum-32-characters!!"), nil)
	t.Cleanup(func() {
		svc.Shutdown(0)
	})
	return New(svc)
}

func createGame(t *testing.T, p *Processor) string {
	t.Helper()
	resp := p.Execute(NewCreateGameCommand(core.CreateGameRequest{}, service.Identity{}))
	if !resp.Success {
		t.Fatalf("create failed: %+v", resp.Error)
	}
	created, ok := resp.Data.(core.GameCreatedResponse)
	if !ok {
		t.Fatalf("unexpected data type %T", resp.Data)
	}
	return created.Code
}

func TestCreateGameReturnsCreatedResponse(t *testing.T) {
	p := newTestProcessor(t)

	resp := p.Execute(NewCreateGameCommand(core.CreateGameRequest{TimeControl: "rapid_10"}, service.Identity{}))
	if !resp.Success {
		t.Fatalf("create failed: %+v", resp.Error)
	}
	created := resp.Data.(core.GameCreatedResponse)
	if created.WhiteTime != 600 || created.BlackTime != 600 {
		t.Errorf("clocks = %d/%d, want 600/600", created.WhiteTime, created.BlackTime)
	}
	if created.Status != "waiting" {
		t.Errorf("status = %q, want waiting", created.Status)
	}
	if created.SessionKey == "" {
		t.Error("expected a session key for a guest creator")
	}
}

func TestUnknownGameMapsToNotFound(t *testing.T) {
	p := newTestProcessor(t)

	resp := p.Execute(NewGetGameCommand("ZZZZZZ"))
	if resp.Success {
		t.Fatal("expected failure for unknown game")
	}
	if resp.Error.Code != core.ErrGameNotFound {
		t.Errorf("code = %q, want %q", resp.Error.Code, core.ErrGameNotFound)
	}
}

func TestJoinFullGameMapsToGameFull(t *testing.T) {
	p := newTestProcessor(t)
	code := createGame(t, p)

	if resp := p.Execute(NewJoinGameCommand(code, core.JoinGameRequest{}, service.Identity{})); !resp.Success {
		t.Fatalf("first join failed: %+v", resp.Error)
	}
	resp := p.Execute(NewJoinGameCommand(code, core.JoinGameRequest{}, service.Identity{}))
	if resp.Success {
		t.Fatal("expected second join to fail")
	}
	if resp.Error.Code != core.ErrGameFull {
		t.Errorf("code = %q, want %q", resp.Error.Code, core.ErrGameFull)
	}
}

func TestSubmitMoveRejectsMalformedFEN(t *testing.T) {
	p := newTestProcessor(t)
	code := createGame(t, p)

	bad := []string{
		"",
		"not a position at all",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1", // bad side field
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1\x00",
	}
	for _, fen := range bad {
		resp := p.Execute(NewSubmitMoveCommand(code, core.MoveRequest{FEN: fen}, service.Identity{}))
		if resp.Success {
			t.Errorf("FEN %q: expected rejection", fen)
			continue
		}
		if resp.Error.Code != core.ErrInvalidRequest {
			t.Errorf("FEN %q: code = %q, want %q", fen, resp.Error.Code, core.ErrInvalidRequest)
		}
	}
}

func TestSubmitMoveAcceptsWellFormedFEN(t *testing.T) {
	p := newTestProcessor(t)
	code := createGame(t, p)
	if resp := p.Execute(NewJoinGameCommand(code, core.JoinGameRequest{}, service.Identity{})); !resp.Success {
		t.Fatalf("join failed: %+v", resp.Error)
	}

	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	resp := p.Execute(NewSubmitMoveCommand(code, core.MoveRequest{FEN: fen, MoveSAN: "e4"}, service.Identity{}))
	if !resp.Success {
		t.Fatalf("move rejected: %+v", resp.Error)
	}
	move := resp.Data.(core.MoveResponse)
	if move.Status != "active" {
		t.Errorf("status = %q, want active", move.Status)
	}
}

func TestResignOnFinishedGameMapsToGameOver(t *testing.T) {
	p := newTestProcessor(t)
	code := createGame(t, p)
	if resp := p.Execute(NewJoinGameCommand(code, core.JoinGameRequest{}, service.Identity{})); !resp.Success {
		t.Fatalf("join failed: %+v", resp.Error)
	}

	if resp := p.Execute(NewResignCommand(code, core.ResignRequest{Color: "white"})); !resp.Success {
		t.Fatalf("resign failed: %+v", resp.Error)
	}
	resp := p.Execute(NewResignCommand(code, core.ResignRequest{Color: "black"}))
	if resp.Success {
		t.Fatal("expected resign on finished game to fail")
	}
	if resp.Error.Code != core.ErrGameOver {
		t.Errorf("code = %q, want %q", resp.Error.Code, core.ErrGameOver)
	}
}

func TestMismatchedArgsRejected(t *testing.T) {
	p := newTestProcessor(t)

	resp := p.Execute(Command{Type: CmdSubmitMove, GameCode: "ABC123", Args: "not a request"})
	if resp.Success {
		t.Fatal("expected failure for wrong args type")
	}
	if resp.Error.Code != core.ErrInvalidRequest {
		t.Errorf("code = %q, want %q", resp.Error.Code, core.ErrInvalidRequest)
	}
}
