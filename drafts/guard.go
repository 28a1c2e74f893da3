package drafts

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// CancelledMessage is the notice shown when a pending operation is dropped.
const CancelledMessage = "Request cancelled"

// Token identifies one guarded operation.
type Token struct {
	ID     string
	Entity string
}

// IsZero reports whether t identifies nothing.
func (t Token) IsZero() bool {
	return t.ID == ""
}

// Guard tracks the single outstanding fetch or execute of a controller.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Ordering: Begin and Supersede cancel the previous operation, clear the
//     waiting flag, and emit the cancellation notice before returning.
//   - Staleness: Finish reports false for any token that has been replaced.
type Guard struct {
	sink NotificationSink
	kind string

	mu      sync.Mutex
	cancel  context.CancelFunc
	token   Token
	waiting bool
}

// NewGuard creates a guard reporting cancellations of kind to sink.
func NewGuard(kind string, sink NotificationSink) *Guard {
	return &Guard{kind: kind, sink: sink}
}

// Begin cancels any pending operation and starts tracking a new one for
// entity. The returned context is cancelled when the operation is superseded.
func (g *Guard) Begin(ctx context.Context, entity string) (context.Context, Token) {
	opCtx, cancel := context.WithCancel(ctx)
	tok := Token{ID: uuid.NewString(), Entity: entity}

	g.mu.Lock()
	superseded := g.dropLocked()
	g.cancel = cancel
	g.token = tok
	g.waiting = true
	g.mu.Unlock()

	if superseded {
		g.notify(ctx)
	}
	return opCtx, tok
}

// Supersede cancels the pending operation without starting a new one.
// It reports whether anything was cancelled.
func (g *Guard) Supersede(ctx context.Context) bool {
	g.mu.Lock()
	superseded := g.dropLocked()
	g.mu.Unlock()

	if superseded {
		g.notify(ctx)
	}
	return superseded
}

// Finish ends the operation identified by tok and reports whether it was
// still current. A false result means the caller must drop its result.
func (g *Guard) Finish(tok Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if tok.IsZero() || g.token.ID != tok.ID {
		return false
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.cancel = nil
	g.token = Token{}
	g.waiting = false
	return true
}

// Waiting reports whether an operation is pending.
func (g *Guard) Waiting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiting
}

// Pending returns the token of the pending operation, if any.
func (g *Guard) Pending() (Token, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token, g.waiting
}

func (g *Guard) dropLocked() bool {
	if !g.waiting {
		return false
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.cancel = nil
	g.token = Token{}
	g.waiting = false
	return true
}

func (g *Guard) notify(ctx context.Context) {
	if g.sink == nil {
		return
	}
	g.sink.Notify(ctx, Notice{
		Level:   NoticeInfo,
		Kind:    g.kind,
		Message: CancelledMessage,
	})
}
