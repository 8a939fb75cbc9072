package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"supermercado/ordercore/internal/model"
	"supermercado/ordercore/internal/repository"
	"supermercado/ordercore/pkg/lock"
)

type recordingSyncer struct {
	mu    sync.Mutex
	calls [][]model.CartItem
}

func (r *recordingSyncer) SyncCart(_ context.Context, _ string, items []model.CartItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, items)
}

func (r *recordingSyncer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type cartFixture struct {
	cart     CartService
	sessions SessionService
	store    repository.StateStore
	locker   *lock.Locker
	syncer   *recordingSyncer
}

func newCartFixture(t *testing.T, cfg CartConfig) cartFixture {
	t.Helper()
	store := repository.NewMemoryStateStore()
	locker := lock.New(store)
	sessions := NewSessionService(store, zap.NewNop(), SessionConfig{})
	syncer := &recordingSyncer{}
	cart := NewCartService(store, locker, sessions, syncer, zap.NewNop(), cfg)
	return cartFixture{cart: cart, sessions: sessions, store: store, locker: locker, syncer: syncer}
}

func TestAddItemAppends(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Arroz 5kg", Quantidade: 1, Preco: 25.9}))
	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Feijão", Quantidade: 2}))

	items := f.cart.Items(ctx, "5511999999999")
	require.Len(t, items, 2)
	assert.Equal(t, "Arroz 5kg", items[0].Produto)
	assert.Equal(t, "Feijão", items[1].Produto)

	// Adding implicitly starts a building session.
	session := f.sessions.Get(ctx, "5511999999999")
	require.NotNil(t, session)
	assert.Equal(t, model.SessionStatusBuilding, session.Status)
}

func TestAddItemRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	assert.ErrorIs(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "   "}), ErrInvalidItem)
	assert.Empty(t, f.cart.Items(ctx, "5511999999999"))
}

func TestAddItemMergesByName(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Coca-Cola 2L", Quantidade: 1, Unidades: 1, Preco: 9.9, Observacao: "gelada"}))
	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "coca-cola 2l", Quantidade: 2, Unidades: 2, Preco: 10.5, Observacao: "sem gelo"}))

	items := f.cart.Items(ctx, "5511999999999")
	require.Len(t, items, 1)
	assert.Equal(t, 3.0, items[0].QuantidadeFloat())
	assert.Equal(t, 3, items[0].UnidadesInt())
	assert.Equal(t, 10.5, items[0].Preco, "latest price wins")
	assert.Equal(t, "gelada sem gelo", items[0].Observacao)
}

func TestAddItemMergeKeepsPriceWhenIncomingZero(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Leite", Quantidade: 1, Preco: 5.5}))
	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Leite", Quantidade: 1}))

	items := f.cart.Items(ctx, "5511999999999")
	require.Len(t, items, 1)
	assert.Equal(t, 5.5, items[0].Preco)
}

func TestAddItemConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Arroz", Quantidade: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items := f.cart.Items(ctx, "5511999999999")
	require.Len(t, items, 1, "concurrent adds of the same product must merge into one line")
	assert.Equal(t, 8.0, items[0].QuantidadeFloat())
}

func TestAddItemLockBusy(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{LockWait: 200 * time.Millisecond})

	// Simulate another worker holding this customer's cart lock.
	lockKey := repository.LockKey("cart", "5511999999999")
	_, ok := f.locker.Acquire(ctx, lockKey, 30*time.Second, 0)
	require.True(t, ok)

	err := f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Arroz", Quantidade: 1})
	assert.ErrorIs(t, err, ErrCartBusy)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Arroz", Quantidade: 1}))
	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Feijão", Quantidade: 1}))
	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Leite", Quantidade: 1}))

	require.NoError(t, f.cart.RemoveItem(ctx, "5511999999999", 1))

	items := f.cart.Items(ctx, "5511999999999")
	require.Len(t, items, 2)
	assert.Equal(t, "Arroz", items[0].Produto)
	assert.Equal(t, "Leite", items[1].Produto)
}

func TestRemoveItemInvalidIndex(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Arroz", Quantidade: 1}))

	assert.ErrorIs(t, f.cart.RemoveItem(ctx, "5511999999999", 5), ErrInvalidIndex)
	assert.ErrorIs(t, f.cart.RemoveItem(ctx, "5511999999999", -1), ErrInvalidIndex)
	assert.Len(t, f.cart.Items(ctx, "5511999999999"), 1)
}

func TestDecrementQuantityPartial(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Cerveja Lata", Quantidade: 5, Unidades: 10}))

	result, err := f.cart.DecrementQuantity(ctx, "5511999999999", 0, 2)
	require.NoError(t, err)
	assert.False(t, result.RemovedCompletely)
	assert.Equal(t, 3.0, result.NewQuantity)
	assert.Equal(t, "Cerveja Lata", result.ItemName)

	items := f.cart.Items(ctx, "5511999999999")
	require.Len(t, items, 1)
	assert.Equal(t, 3.0, items[0].QuantidadeFloat())
	// Unit count scales with the quantity.
	assert.Equal(t, 6, items[0].UnidadesInt())
}

func TestDecrementQuantityRemovesWhenExhausted(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Arroz", Quantidade: 2}))

	result, err := f.cart.DecrementQuantity(ctx, "5511999999999", 0, 999)
	require.NoError(t, err)
	assert.True(t, result.RemovedCompletely)
	assert.Equal(t, 0.0, result.NewQuantity)
	assert.Equal(t, "Arroz", result.ItemName)
	assert.Empty(t, f.cart.Items(ctx, "5511999999999"))
}

func TestDecrementQuantityInvalidIndex(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	_, err := f.cart.DecrementQuantity(ctx, "5511999999999", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Arroz", Quantidade: 1}))
	require.NoError(t, f.cart.Clear(ctx, "5511999999999"))
	assert.Empty(t, f.cart.Items(ctx, "5511999999999"))
}

func TestMutationsOnSentSessionSyncDownstream(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Arroz", Quantidade: 1}))
	require.True(t, f.sessions.MarkSent(ctx, "5511999999999", "PED-7"))
	require.Equal(t, 0, f.syncer.callCount(), "no sync while building")

	require.NoError(t, f.cart.AddItem(ctx, "5511999999999", model.CartItem{Produto: "Feijão", Quantidade: 1}))
	require.Equal(t, 1, f.syncer.callCount())
	assert.Len(t, f.syncer.calls[0], 2, "the full cart is pushed, not the delta")

	// The sent session survives the mutation; it is not demoted back to
	// building.
	session := f.sessions.Get(ctx, "5511999999999")
	require.NotNil(t, session)
	assert.Equal(t, model.SessionStatusSent, session.Status)

	_, err := f.cart.DecrementQuantity(ctx, "5511999999999", 0, 1)
	require.NoError(t, err)
	require.Equal(t, 2, f.syncer.callCount())

	require.NoError(t, f.cart.RemoveItem(ctx, "5511999999999", 0))
	require.Equal(t, 3, f.syncer.callCount())
	assert.Empty(t, f.syncer.calls[2])
}

func TestItemsSkipsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, CartConfig{})

	require.NoError(t, f.store.ListPush(ctx, repository.CartKey("5511999999999"), []byte("not json")))
	require.NoError(t, f.store.ListPush(ctx, repository.CartKey("5511999999999"), []byte(`{"produto":"Arroz","quantidade":1}`)))

	items := f.cart.Items(ctx, "5511999999999")
	require.Len(t, items, 1)
	assert.Equal(t, "Arroz", items[0].Produto)
}
