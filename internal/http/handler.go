// FILE: lanchess/internal/http/handler.go
package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"lanchess/internal/core"
	"lanchess/internal/processor"
	"lanchess/internal/service"
)

const rateLimitRate = 10 // req/sec

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, devMode bool) *fiber.App {
	h := NewHTTPHandler(proc, svc)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Session-Key",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	// API v1 routes
	api := app.Group("/api/v1")

	// Auth routes with specific rate limiting
	auth := api.Group("/auth")

	// Register: 5 req/min per IP
	auth.Post("/register", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: "5 registrations per minute allowed",
			})
		},
	}), h.RegisterHandler)

	// Login: 10 req/min per IP
	auth.Post("/login", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: "10 login attempts per minute allowed",
			})
		},
	}), h.LoginHandler)

	validateToken := TokenValidator(svc.ValidateToken)

	auth.Get("/me", AuthRequired(validateToken), h.GetCurrentPlayerHandler)
	auth.Post("/logout", AuthRequired(validateToken), h.LogoutHandler)

	// Game routes with standard rate limiting
	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	// Content-Type validation for POST requests
	api.Use(contentTypeValidator)

	// Middleware validation for sanitization
	api.Use(validationMiddleware)

	// Game routes; auth is optional so guests can play
	api.Post("/games", OptionalAuth(validateToken), h.CreateGame)
	api.Get("/games/:code", h.GetGame)
	api.Post("/games/:code/join", OptionalAuth(validateToken), h.JoinGame)
	api.Post("/games/:code/moves", OptionalAuth(validateToken), h.SubmitMove)
	api.Post("/games/:code/resign", OptionalAuth(validateToken), h.Resign)
	api.Post("/games/:code/draw", OptionalAuth(validateToken), h.Draw)
	api.Get("/games/:code/session", OptionalAuth(validateToken), h.CheckSession)

	// Directory and ledger views
	api.Get("/players/leaderboard", h.Leaderboard)
	api.Get("/players/:username", h.PlayerStats)
	api.Get("/stats", h.ClubStats)

	return app
}

// contentTypeValidator ensures POST requests carry application/json
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrGameNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"storage": h.svc.GetStorageHealth(),
	})
}

// validatedBody retrieves the body parsed by validationMiddleware.
func validatedBody[T any](c *fiber.Ctx) (T, error) {
	var zero T
	if validated, ok := c.Locals("validated").(bool); !ok || !validated {
		return zero, fmt.Errorf("validation bypass detected")
	}
	body, ok := c.Locals("validatedBody").(*T)
	if !ok || body == nil {
		return zero, fmt.Errorf("validation data missing")
	}
	return *body, nil
}

func validationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Error: err.Error(),
		Code:  core.ErrInternalError,
	})
}

func badGameCode(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   "invalid game code format",
		Code:    core.ErrInvalidRequest,
		Details: "game code must be 6 alphanumeric characters",
	})
}

// errorStatus maps processor error codes to HTTP status codes
func errorStatus(code string) int {
	switch code {
	case core.ErrGameNotFound:
		return fiber.StatusNotFound
	case core.ErrGameFull:
		return fiber.StatusConflict
	case core.ErrGameOver:
		return fiber.StatusConflict
	case core.ErrResourceLimit:
		return fiber.StatusTooManyRequests
	case core.ErrUnauthorized:
		return fiber.StatusForbidden
	case core.ErrInternalError:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// CreateGame creates a new game with the caller seated as white
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req, err := validatedBody[core.CreateGameRequest](c)
	if err != nil {
		return validationError(c, err)
	}

	resp := h.proc.Execute(processor.NewCreateGameCommand(req, identityFromCtx(c)))
	if !resp.Success {
		return c.Status(errorStatus(resp.Error.Code)).JSON(resp.Error)
	}
	return c.Status(fiber.StatusCreated).JSON(resp.Data)
}

// JoinGame seats the caller as black and starts the game
func (h *HTTPHandler) JoinGame(c *fiber.Ctx) error {
	code := c.Params("code")
	if !isValidGameCode(code) {
		return badGameCode(c)
	}

	req, err := validatedBody[core.JoinGameRequest](c)
	if err != nil {
		return validationError(c, err)
	}

	resp := h.proc.Execute(processor.NewJoinGameCommand(code, req, identityFromCtx(c)))
	if !resp.Success {
		return c.Status(errorStatus(resp.Error.Code)).JSON(resp.Error)
	}
	return c.JSON(resp.Data)
}

// GetGame retrieves current game state, optionally long-polling until
// the move count changes
func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	code := c.Params("code")
	if !isValidGameCode(code) {
		return badGameCode(c)
	}

	waitStr := c.Query("wait", "false")
	moveCountStr := c.Query("moveCount", "-1")

	// Non-wait path
	if waitStr != "true" {
		resp := h.proc.Execute(processor.NewGetGameCommand(code))
		if !resp.Success {
			return c.Status(errorStatus(resp.Error.Code)).JSON(resp.Error)
		}
		return c.JSON(resp.Data)
	}

	// Long-polling path
	moveCount, err := strconv.Atoi(moveCountStr)
	if err != nil {
		moveCount = -1
	}

	state, err := h.svc.PeekState(code)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
			Error: "game not found",
			Code:  core.ErrGameNotFound,
		})
	}

	// If move count already differs, return immediately
	if moveCount != state.MoveCount {
		return c.JSON(state)
	}

	ctx := c.Context()
	notify := h.svc.RegisterWait(strings.ToUpper(code), moveCount, ctx)

	// Wait for notification, timeout, or client disconnect
	select {
	case <-notify:
		resp := h.proc.Execute(processor.NewGetGameCommand(code))
		if !resp.Success {
			return c.Status(errorStatus(resp.Error.Code)).JSON(resp.Error)
		}
		return c.JSON(resp.Data)

	case <-ctx.Done():
		// Client disconnected
		return nil
	}
}

// SubmitMove records a client-validated move and commits the clock
func (h *HTTPHandler) SubmitMove(c *fiber.Ctx) error {
	code := c.Params("code")
	if !isValidGameCode(code) {
		return badGameCode(c)
	}

	req, err := validatedBody[core.MoveRequest](c)
	if err != nil {
		return validationError(c, err)
	}

	resp := h.proc.Execute(processor.NewSubmitMoveCommand(code, req, identityFromCtx(c)))
	if !resp.Success {
		return c.Status(errorStatus(resp.Error.Code)).JSON(resp.Error)
	}
	return c.JSON(resp.Data)
}

// Resign ends the game in the opponent's favor
func (h *HTTPHandler) Resign(c *fiber.Ctx) error {
	code := c.Params("code")
	if !isValidGameCode(code) {
		return badGameCode(c)
	}

	req, err := validatedBody[core.ResignRequest](c)
	if err != nil {
		return validationError(c, err)
	}

	resp := h.proc.Execute(processor.NewResignCommand(code, req))
	if !resp.Success {
		return c.Status(errorStatus(resp.Error.Code)).JSON(resp.Error)
	}
	return c.JSON(resp.Data)
}

// Draw handles draw offers and acceptance
func (h *HTTPHandler) Draw(c *fiber.Ctx) error {
	code := c.Params("code")
	if !isValidGameCode(code) {
		return badGameCode(c)
	}

	req, err := validatedBody[core.DrawRequest](c)
	if err != nil {
		return validationError(c, err)
	}

	resp := h.proc.Execute(processor.NewOfferDrawCommand(code, req))
	if !resp.Success {
		return c.Status(errorStatus(resp.Error.Code)).JSON(resp.Error)
	}
	return c.JSON(resp.Data)
}

// CheckSession reports whether the caller holds a seat in the game
func (h *HTTPHandler) CheckSession(c *fiber.Ctx) error {
	code := c.Params("code")
	if !isValidGameCode(code) {
		return badGameCode(c)
	}

	resp := h.proc.Execute(processor.NewCheckSessionCommand(code, identityFromCtx(c)))
	if !resp.Success {
		return c.Status(errorStatus(resp.Error.Code)).JSON(resp.Error)
	}
	return c.JSON(resp.Data)
}

// Leaderboard returns the club ranking of rated members
func (h *HTTPHandler) Leaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	entries, err := h.svc.Leaderboard(limit)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{
			Error: "leaderboard unavailable",
			Code:  core.ErrInternalError,
		})
	}
	return c.JSON(fiber.Map{"leaderboard": entries})
}

// PlayerStats returns one member's public ledger
func (h *HTTPHandler) PlayerStats(c *fiber.Ctx) error {
	username := c.Params("username")

	stats, err := h.svc.PlayerStats(username)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
			Error: "player not found",
			Code:  core.ErrInvalidRequest,
		})
	}
	return c.JSON(stats)
}

// ClubStats returns aggregate directory counters
func (h *HTTPHandler) ClubStats(c *fiber.Ctx) error {
	stats, err := h.svc.ClubStats()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{
			Error: "stats unavailable",
			Code:  core.ErrInternalError,
		})
	}
	return c.JSON(stats)
}
