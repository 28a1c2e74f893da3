package drafts

import (
	"context"

	"github.com/jonwraymond/draftops/observe"
)

// EntityStore is the server API for one entity kind.
//
// Contract:
//   - Context: every method must honor cancellation; a cancelled context is
//     the abort signal for superseded fetches.
//   - Errors: FindByID returns an error wrapping ErrNotFound for missing ids.
//   - Identity: InsertOrUpdate returns the server's canonical entity,
//     including any id or timestamp it assigned.
//   - Ownership: ListAllForOwner lists entities of the identity carried by
//     ctx (see auth.WithIdentity).
type EntityStore[E Entity] interface {
	FindByID(ctx context.Context, id string) (E, error)
	InsertOrUpdate(ctx context.Context, e E) (E, error)
	ListAllForOwner(ctx context.Context) ([]E, error)
}

// ScopeResolver loads the shared variable scope an entity refers to.
type ScopeResolver interface {
	Resolve(ctx context.Context, ref ScopeRef) error
}

// ScopeFunc adapts a function to ScopeResolver.
type ScopeFunc func(ctx context.Context, ref ScopeRef) error

// Resolve calls f.
func (f ScopeFunc) Resolve(ctx context.Context, ref ScopeRef) error {
	return f(ctx, ref)
}

// NamePrompt asks the user to name a draft before it is released.
//
// Contract:
//   - Blocking: AskName blocks until the user answers or ctx is done.
//   - Cancellation: ok=false means the user declined; the release is aborted.
type NamePrompt interface {
	AskName(ctx context.Context, noun, suggested string) (name string, ok bool, err error)
}

// PromptFunc adapts a function to NamePrompt.
type PromptFunc func(ctx context.Context, noun, suggested string) (string, bool, error)

// AskName calls f.
func (f PromptFunc) AskName(ctx context.Context, noun, suggested string) (string, bool, error) {
	return f(ctx, noun, suggested)
}

// NoticeLevel is the severity of a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a fire-and-forget user-visible message.
type Notice struct {
	Level   NoticeLevel
	Kind    string
	Message string
}

// NotificationSink displays notices. Notify must not block.
type NotificationSink interface {
	Notify(ctx context.Context, n Notice)
}

// NoticeFunc adapts a function to NotificationSink.
type NoticeFunc func(ctx context.Context, n Notice)

// Notify calls f.
func (f NoticeFunc) Notify(ctx context.Context, n Notice) {
	f(ctx, n)
}

// LogSink writes notices to a logger.
type LogSink struct {
	Logger observe.Logger
}

// Notify logs n at the level matching its severity.
func (s LogSink) Notify(ctx context.Context, n Notice) {
	if s.Logger == nil {
		return
	}
	fields := []observe.Field{
		{Key: "kind", Value: n.Kind},
		{Key: "level", Value: string(n.Level)},
	}
	switch n.Level {
	case NoticeError:
		s.Logger.Error(ctx, n.Message, fields...)
	case NoticeWarning:
		s.Logger.Warn(ctx, n.Message, fields...)
	default:
		s.Logger.Info(ctx, n.Message, fields...)
	}
}

var (
	_ ScopeResolver    = ScopeFunc(nil)
	_ NamePrompt       = PromptFunc(nil)
	_ NotificationSink = NoticeFunc(nil)
	_ NotificationSink = LogSink{}
)
