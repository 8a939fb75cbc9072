package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"supermercado/ordercore/internal/model"
	"supermercado/ordercore/internal/repository"
)

func newSessionFixture(t *testing.T) (SessionService, repository.StateStore) {
	t.Helper()
	store := repository.NewMemoryStateStore()
	return NewSessionService(store, zap.NewNop(), SessionConfig{}), store
}

func TestSessionStartAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionFixture(t)

	assert.Nil(t, svc.Get(ctx, "5511999999999"))

	require.True(t, svc.Start(ctx, "5511999999999"))
	session := svc.Get(ctx, "5511999999999")
	require.NotNil(t, session)
	assert.Equal(t, model.SessionStatusBuilding, session.Status)
	assert.Nil(t, session.SentAt)
	assert.WithinDuration(t, time.Now(), session.StartedAt, time.Second)
}

func TestSessionMarkSent(t *testing.T) {
	ctx := context.Background()
	svc, store := newSessionFixture(t)

	require.True(t, svc.Start(ctx, "5511999999999"))
	require.True(t, svc.MarkSent(ctx, "5511999999999", "PED-42"))

	session := svc.Get(ctx, "5511999999999")
	require.NotNil(t, session)
	assert.Equal(t, model.SessionStatusSent, session.Status)
	assert.Equal(t, "PED-42", session.OrderID)
	require.NotNil(t, session.SentAt)

	// Completion leaves a flag behind so the next conversation can tell a
	// finished order from a silent expiry.
	ok, err := store.Exists(ctx, repository.OrderCompletedKey("5511999999999"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionMarkSentWithoutSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionFixture(t)

	require.True(t, svc.MarkSent(ctx, "5511999999999", "PED-1"))
	session := svc.Get(ctx, "5511999999999")
	require.NotNil(t, session)
	assert.Equal(t, model.SessionStatusSent, session.Status)
}

func TestSessionRefreshTTLOnlyWhileBuilding(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionFixture(t)

	assert.False(t, svc.RefreshTTL(ctx, "5511999999999"))

	require.True(t, svc.Start(ctx, "5511999999999"))
	assert.True(t, svc.RefreshTTL(ctx, "5511999999999"))

	require.True(t, svc.MarkSent(ctx, "5511999999999", "PED-1"))
	assert.False(t, svc.RefreshTTL(ctx, "5511999999999"))
}

func TestContextHintNewConversation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionFixture(t)

	hint := svc.ContextHint(ctx, "5511999999999", "oi")
	assert.Contains(t, hint, "Nova conversa")

	// The hint call itself started the session.
	session := svc.Get(ctx, "5511999999999")
	require.NotNil(t, session)
	assert.Equal(t, model.SessionStatusBuilding, session.Status)

	// A building session in mid-conversation produces no hint.
	assert.Empty(t, svc.ContextHint(ctx, "5511999999999", "quero arroz"))
}

func TestContextHintReturningCustomer(t *testing.T) {
	ctx := context.Background()
	svc, store := newSessionFixture(t)

	require.True(t, svc.Start(ctx, "5511999999999"))
	require.True(t, svc.MarkSent(ctx, "5511999999999", "PED-1"))
	require.True(t, svc.Clear(ctx, "5511999999999"))

	hint := svc.ContextHint(ctx, "5511999999999", "bom dia")
	assert.Contains(t, hint, "já fez pedido anteriormente")

	// The completed flag is consumed: the next fresh conversation reads as
	// brand new.
	ok, err := store.Exists(ctx, repository.OrderCompletedKey("5511999999999"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContextHintGreetingResetsSentSession(t *testing.T) {
	ctx := context.Background()
	svc, store := newSessionFixture(t)

	require.True(t, svc.Start(ctx, "5511999999999"))
	require.NoError(t, store.ListPush(ctx, repository.CartKey("5511999999999"), []byte(`{"produto":"arroz"}`)))
	require.True(t, svc.MarkSent(ctx, "5511999999999", "PED-1"))

	hint := svc.ContextHint(ctx, "5511999999999", "boa tarde")
	assert.Contains(t, hint, "nova conversa com saudação")

	session := svc.Get(ctx, "5511999999999")
	require.NotNil(t, session)
	assert.Equal(t, model.SessionStatusBuilding, session.Status)

	// The old order's cart went with the old session.
	items, err := store.ListRange(ctx, repository.CartKey("5511999999999"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestContextHintNonGreetingOnSentSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionFixture(t)

	require.True(t, svc.Start(ctx, "5511999999999"))
	require.True(t, svc.MarkSent(ctx, "5511999999999", "PED-1"))

	hint := svc.ContextHint(ctx, "5511999999999", "quero adicionar leite")
	assert.Contains(t, hint, "Pedido já enviado")

	// The sent session survives a non-greeting message.
	session := svc.Get(ctx, "5511999999999")
	require.NotNil(t, session)
	assert.Equal(t, model.SessionStatusSent, session.Status)
}

func TestCanModify(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionFixture(t)

	ok, reason := svc.CanModify(ctx, "5511999999999")
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	require.True(t, svc.Start(ctx, "5511999999999"))
	ok, _ = svc.CanModify(ctx, "5511999999999")
	assert.True(t, ok)

	require.True(t, svc.MarkSent(ctx, "5511999999999", "PED-1"))
	ok, reason = svc.CanModify(ctx, "5511999999999")
	assert.True(t, ok)
	assert.Contains(t, reason, "enviado")
}

func TestIsGreeting(t *testing.T) {
	assert.True(t, isGreeting("oi"))
	assert.True(t, isGreeting("Bom dia!"))
	assert.True(t, isGreeting("  OLÁ  "))
	assert.False(t, isGreeting("quero 2 coca cola"))
	assert.False(t, isGreeting(""))
}
