package drafts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_BeginSupersedesPrevious(t *testing.T) {
	rec := &recorder{}
	g := NewGuard("request", rec)
	ctx := context.Background()

	first, tok1 := g.Begin(ctx, "r1")
	assert.True(t, g.Waiting())
	assert.Empty(t, rec.messages(), "nothing to cancel yet")

	_, tok2 := g.Begin(ctx, "r2")
	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.Equal(t, []string{CancelledMessage}, rec.messages())

	assert.False(t, g.Finish(tok1), "stale token")
	assert.True(t, g.Waiting())
	assert.True(t, g.Finish(tok2))
	assert.False(t, g.Waiting())
}

func TestGuard_SupersedeWithoutPending(t *testing.T) {
	rec := &recorder{}
	g := NewGuard("request", rec)

	assert.False(t, g.Supersede(context.Background()))
	assert.Empty(t, rec.messages())
}

func TestGuard_Supersede(t *testing.T) {
	rec := &recorder{}
	g := NewGuard("request", rec)
	ctx := context.Background()

	opCtx, tok := g.Begin(ctx, "r1")
	assert.True(t, g.Supersede(ctx))
	assert.ErrorIs(t, opCtx.Err(), context.Canceled)
	assert.False(t, g.Waiting())
	assert.False(t, g.Finish(tok))

	require.Len(t, rec.notices, 1)
	assert.Equal(t, Notice{Level: NoticeInfo, Kind: "request", Message: CancelledMessage}, rec.notices[0])
}

func TestGuard_Pending(t *testing.T) {
	g := NewGuard("request", nil)
	_, ok := g.Pending()
	assert.False(t, ok)

	_, tok := g.Begin(context.Background(), "r1")
	pending, ok := g.Pending()
	require.True(t, ok)
	assert.Equal(t, tok, pending)
	assert.Equal(t, "r1", pending.Entity)
	assert.False(t, pending.IsZero())

	assert.False(t, g.Finish(Token{}))
}
