// FILE: lanchess/internal/service/waiter.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// WaitTimeout is the maximum time a client can wait for notifications
	WaitTimeout = 25 * time.Second

	// WaitChannelBuffer size for notification channels
	WaitChannelBuffer = 1
)

// WaitRegistry manages long-polling clients waiting for game state changes
type WaitRegistry struct {
	mu       sync.RWMutex
	waiters  map[string][]*WaitRequest // game code -> waiting clients
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// WaitRequest represents a single client waiting for game updates
type WaitRequest struct {
	MoveCount int             // Last known move count
	Notify    chan struct{}   // Buffered channel for notifications
	Timer     *time.Timer     // Timeout timer
	Context   context.Context // Client connection context
	GameCode  string          // Game being watched
}

// NewWaitRegistry creates a new wait registry
func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{
		waiters:  make(map[string][]*WaitRequest),
		shutdown: make(chan struct{}),
	}
}

// RegisterWait registers a client to wait for game state changes
func (w *WaitRegistry) RegisterWait(gameCode string, moveCount int, ctx context.Context) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	req := &WaitRequest{
		MoveCount: moveCount,
		Notify:    make(chan struct{}, WaitChannelBuffer),
		Context:   ctx,
		GameCode:  gameCode,
	}

	req.Timer = time.AfterFunc(WaitTimeout, func() {
		w.handleTimeout(req)
	})

	w.waiters[gameCode] = append(w.waiters[gameCode], req)

	// Cleanup on notification, disconnect, or shutdown
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
			w.removeWaiter(gameCode, req)
		case <-req.Notify:
			req.Timer.Stop()
			w.removeWaiter(gameCode, req)
			// Put the wakeup back for the waiting handler; this
			// goroutine only deregisters, it is not the consumer.
			select {
			case req.Notify <- struct{}{}:
			default:
			}
		case <-w.shutdown:
			// Deregister before waking so a racing NotifyGame cannot
			// reach a channel nobody owns anymore. The channel is never
			// closed; the buffered send is the wakeup.
			w.removeWaiter(gameCode, req)
			select {
			case req.Notify <- struct{}{}:
			default:
			}
		}
	}()

	return req.Notify
}

// NotifyGame notifies all clients waiting on a game about state change.
// Clients already at the current move count are left waiting; a clock
// commit bumps nothing they need to refetch.
func (w *WaitRegistry) NotifyGame(gameCode string, currentMoveCount int) {
	w.mu.RLock()
	waitList := w.waiters[gameCode]
	w.mu.RUnlock()

	for _, req := range waitList {
		if req.MoveCount != currentMoveCount {
			select {
			case req.Notify <- struct{}{}:
			default:
				// Channel full or closed, skip slow client
			}
		}
	}
}

// RemoveGame wakes and removes all waiters for a game. Called when the
// game leaves the directory.
func (w *WaitRegistry) RemoveGame(gameCode string) {
	w.mu.Lock()
	waitList := w.waiters[gameCode]
	delete(w.waiters, gameCode)
	w.mu.Unlock()

	for _, req := range waitList {
		select {
		case req.Notify <- struct{}{}:
		default:
		}
	}
}

// Shutdown gracefully shuts down the wait registry
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	close(w.shutdown)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown failed")
	}
}

// handleTimeout wakes a waiter whose poll window elapsed
func (w *WaitRegistry) handleTimeout(req *WaitRequest) {
	select {
	case req.Notify <- struct{}{}:
	default:
	}
}

// removeWaiter removes a specific waiter from the registry
func (w *WaitRegistry) removeWaiter(gameCode string, req *WaitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[gameCode]
	for i, waiter := range waitList {
		if waiter == req {
			w.waiters[gameCode] = append(waitList[:i], waitList[i+1:]...)
			break
		}
	}

	if len(w.waiters[gameCode]) == 0 {
		delete(w.waiters, gameCode)
	}

	req.Timer.Stop()
}
