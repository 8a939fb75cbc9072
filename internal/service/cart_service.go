package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"supermercado/ordercore/internal/model"
	"supermercado/ordercore/internal/repository"
	"supermercado/ordercore/pkg/lock"
)

const (
	cartLockNamespace = "cart"

	DefaultCartLockTTL  = 30 * time.Second
	DefaultCartLockWait = 5 * time.Second
)

// DecrementResult describes the outcome of a quantity decrement.
type DecrementResult struct {
	RemovedCompletely bool    `json:"removed_completely"`
	NewQuantity       float64 `json:"new_quantity"`
	ItemName          string  `json:"item_name"`
}

// OrderSyncer pushes the full current cart to the downstream order
// system. Implementations are best-effort: errors are theirs to log and
// count, never to surface.
type OrderSyncer interface {
	SyncCart(ctx context.Context, customer string, items []model.CartItem)
}

// CartService mutates the per-customer cart. All mutations serialize
// through the same per-customer lock; reads never block and may observe
// a slightly stale list.
//
// Items merge by exact lowercased product name. Two distinct catalog
// products sharing a display name will merge into one line; a stronger
// identity key would be needed to tell them apart.
type CartService interface {
	AddItem(ctx context.Context, customer string, item model.CartItem) error
	Items(ctx context.Context, customer string) []model.CartItem
	RemoveItem(ctx context.Context, customer string, index int) error
	DecrementQuantity(ctx context.Context, customer string, index int, amount float64) (DecrementResult, error)
	Clear(ctx context.Context, customer string) error
}

type CartConfig struct {
	LockTTL  time.Duration
	LockWait time.Duration
	// CartTTL re-arms the cart key on mutation; matches the session
	// building TTL.
	CartTTL time.Duration
}

func (c CartConfig) withDefaults() CartConfig {
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultCartLockTTL
	}
	if c.LockWait <= 0 {
		c.LockWait = DefaultCartLockWait
	}
	if c.CartTTL <= 0 {
		c.CartTTL = DefaultBuildingTTL
	}
	return c
}

type cartService struct {
	store    repository.StateStore
	locker   *lock.Locker
	sessions SessionService
	syncer   OrderSyncer
	logger   *zap.Logger
	cfg      CartConfig
}

func NewCartService(
	store repository.StateStore,
	locker *lock.Locker,
	sessions SessionService,
	syncer OrderSyncer,
	logger *zap.Logger,
	cfg CartConfig,
) CartService {
	return &cartService{
		store:    store,
		locker:   locker,
		sessions: sessions,
		syncer:   syncer,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

// AddItem appends item to the cart, or merges it into an existing line
// with the same case-insensitive name: quantities and unit counts sum,
// the incoming price wins, and distinct observations concatenate. When
// the session is already sent, the full cart is pushed downstream after
// the local write so the submitted order stays in sync; that push is
// best-effort and never rolls back the local mutation.
func (s *cartService) AddItem(ctx context.Context, customer string, item model.CartItem) error {
	if strings.TrimSpace(item.Produto) == "" {
		return ErrInvalidItem
	}

	key := repository.CartKey(customer)
	lockKey := repository.LockKey(cartLockNamespace, customer)
	token, ok := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL, s.cfg.LockWait)
	if !ok {
		s.logger.Warn("cart lock timeout", zap.String("customer", repository.NormalizeCustomer(customer)))
		return ErrCartBusy
	}
	defer s.locker.Release(ctx, lockKey, token)

	session := s.sessions.Get(ctx, customer)
	if session == nil || (session.Status != model.SessionStatusBuilding && session.Status != model.SessionStatusSent) {
		s.sessions.Start(ctx, customer)
		session = s.sessions.Get(ctx, customer)
	}

	raw, err := s.store.ListRange(ctx, key)
	if err != nil {
		s.logger.Error("cart read failed", zap.Error(err))
		return ErrStoreUnavailable
	}

	newName := strings.ToLower(strings.TrimSpace(item.Produto))
	foundIndex := int64(-1)
	var existing model.CartItem
	for i, entry := range raw {
		var current model.CartItem
		if err := json.Unmarshal(entry, &current); err != nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(current.Produto)) == newName {
			foundIndex = int64(i)
			existing = current
			break
		}
	}

	if foundIndex >= 0 {
		merged := mergeItems(existing, item)
		payload, err := json.Marshal(merged)
		if err != nil {
			return ErrInvalidItem
		}
		if err := s.store.ListSet(ctx, key, foundIndex, payload); err != nil {
			s.logger.Error("cart merge write failed", zap.Error(err))
			return ErrStoreUnavailable
		}
		s.logger.Info("cart item merged",
			zap.String("customer", repository.NormalizeCustomer(customer)),
			zap.String("item", item.Produto),
			zap.Float64("quantity", merged.QuantidadeFloat()))
	} else {
		payload, err := json.Marshal(item)
		if err != nil {
			return ErrInvalidItem
		}
		if err := s.store.ListPush(ctx, key, payload); err != nil {
			s.logger.Error("cart append failed", zap.Error(err))
			return ErrStoreUnavailable
		}
	}

	if err := s.store.Expire(ctx, key, s.cfg.CartTTL); err != nil {
		s.logger.Warn("cart ttl refresh failed", zap.Error(err))
	}
	s.sessions.RefreshTTL(ctx, customer)

	if session != nil && session.Status == model.SessionStatusSent {
		s.syncDownstream(ctx, customer, session.OrderID)
	}
	return nil
}

// Items reads the cart without locking, skipping malformed entries.
func (s *cartService) Items(ctx context.Context, customer string) []model.CartItem {
	raw, err := s.store.ListRange(ctx, repository.CartKey(customer))
	if err != nil {
		s.logger.Error("cart read failed", zap.Error(err))
		return nil
	}
	items := make([]model.CartItem, 0, len(raw))
	for _, entry := range raw {
		var item model.CartItem
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

// RemoveItem deletes the slot at index using mark-and-sweep: the slot is
// overwritten with a unique sentinel, then every element equal to the
// sentinel is removed. Positional deletes without the sentinel shift
// under concurrent writers.
func (s *cartService) RemoveItem(ctx context.Context, customer string, index int) error {
	key := repository.CartKey(customer)
	lockKey := repository.LockKey(cartLockNamespace, customer)
	token, ok := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL, s.cfg.LockWait)
	if !ok {
		return ErrCartBusy
	}
	defer s.locker.Release(ctx, lockKey, token)

	raw, err := s.store.ListRange(ctx, key)
	if err != nil {
		return ErrStoreUnavailable
	}
	if index < 0 || index >= len(raw) {
		return ErrInvalidIndex
	}

	if err := s.sweepSlot(ctx, key, int64(index)); err != nil {
		return err
	}
	s.logger.Info("cart item removed",
		zap.String("customer", repository.NormalizeCustomer(customer)),
		zap.Int("index", index))

	if session := s.sessions.Get(ctx, customer); session != nil && session.Status == model.SessionStatusSent {
		s.syncDownstream(ctx, customer, session.OrderID)
	}
	return nil
}

// DecrementQuantity reduces the quantity at index by amount, removing the
// item entirely when nothing remains and scaling the stored unit count
// proportionally otherwise.
func (s *cartService) DecrementQuantity(ctx context.Context, customer string, index int, amount float64) (DecrementResult, error) {
	key := repository.CartKey(customer)
	lockKey := repository.LockKey(cartLockNamespace, customer)
	token, ok := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL, s.cfg.LockWait)
	if !ok {
		return DecrementResult{}, ErrCartBusy
	}
	defer s.locker.Release(ctx, lockKey, token)

	raw, err := s.store.ListRange(ctx, key)
	if err != nil {
		return DecrementResult{}, ErrStoreUnavailable
	}
	if index < 0 || index >= len(raw) {
		return DecrementResult{}, ErrInvalidIndex
	}

	var item model.CartItem
	if err := json.Unmarshal(raw[index], &item); err != nil {
		return DecrementResult{}, ErrInvalidItem
	}

	currentQty := item.QuantidadeFloat()
	currentUnits := item.UnidadesInt()
	newQty := currentQty - amount

	var result DecrementResult
	if newQty <= 0 {
		if err := s.sweepSlot(ctx, key, int64(index)); err != nil {
			return DecrementResult{}, err
		}
		result = DecrementResult{RemovedCompletely: true, NewQuantity: 0, ItemName: item.Produto}
		s.logger.Info("cart item decremented out",
			zap.String("customer", repository.NormalizeCustomer(customer)),
			zap.String("item", item.Produto))
	} else {
		item.Quantidade = newQty
		if currentUnits > 0 && currentQty > 0 {
			scaled := int(float64(currentUnits) * newQty / currentQty)
			if scaled < 0 {
				scaled = 0
			}
			item.Unidades = scaled
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return DecrementResult{}, ErrInvalidItem
		}
		if err := s.store.ListSet(ctx, key, int64(index), payload); err != nil {
			return DecrementResult{}, ErrStoreUnavailable
		}
		result = DecrementResult{NewQuantity: newQty, ItemName: item.Produto}
		s.logger.Info("cart item decremented",
			zap.String("customer", repository.NormalizeCustomer(customer)),
			zap.String("item", item.Produto),
			zap.Float64("from", currentQty),
			zap.Float64("to", newQty))
	}

	if session := s.sessions.Get(ctx, customer); session != nil && session.Status == model.SessionStatusSent {
		s.syncDownstream(ctx, customer, session.OrderID)
	}
	return result, nil
}

func (s *cartService) Clear(ctx context.Context, customer string) error {
	lockKey := repository.LockKey(cartLockNamespace, customer)
	token, ok := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL, s.cfg.LockWait)
	if !ok {
		return ErrCartBusy
	}
	defer s.locker.Release(ctx, lockKey, token)

	if err := s.store.Delete(ctx, repository.CartKey(customer)); err != nil {
		s.logger.Error("cart clear failed", zap.Error(err))
		return ErrStoreUnavailable
	}
	s.logger.Info("cart cleared", zap.String("customer", repository.NormalizeCustomer(customer)))
	return nil
}

func (s *cartService) sweepSlot(ctx context.Context, key string, index int64) error {
	sentinel := []byte("__DELETED__:" + uuid.NewString())
	if err := s.store.ListSet(ctx, key, index, sentinel); err != nil {
		if err == repository.ErrIndexOutOfRange {
			return ErrInvalidIndex
		}
		return ErrStoreUnavailable
	}
	if err := s.store.ListRemoveAll(ctx, key, sentinel); err != nil {
		return ErrStoreUnavailable
	}
	return nil
}

func (s *cartService) syncDownstream(ctx context.Context, customer, orderID string) {
	if s.syncer == nil {
		return
	}
	items := s.Items(ctx, customer)
	s.logger.Info("re-syncing sent order downstream",
		zap.String("customer", repository.NormalizeCustomer(customer)),
		zap.String("order_id", orderID),
		zap.Int("items", len(items)))
	s.syncer.SyncCart(ctx, customer, items)
}

func mergeItems(existing, incoming model.CartItem) model.CartItem {
	merged := existing
	merged.Quantidade = existing.QuantidadeFloat() + incoming.QuantidadeFloat()

	unitsOld := existing.UnidadesInt()
	unitsNew := incoming.UnidadesInt()
	if unitsOld != 0 || unitsNew != 0 {
		merged.Unidades = unitsOld + unitsNew
	}

	if incoming.Preco != 0 {
		merged.Preco = incoming.Preco
	}

	obsOld := strings.TrimSpace(existing.Observacao)
	obsNew := strings.TrimSpace(incoming.Observacao)
	if obsNew != "" && !strings.Contains(obsOld, obsNew) {
		merged.Observacao = strings.TrimSpace(obsOld + " " + obsNew)
	}
	return merged
}
