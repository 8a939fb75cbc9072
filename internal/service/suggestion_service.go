package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"supermercado/ordercore/internal/model"
	"supermercado/ordercore/internal/repository"
)

const DefaultSuggestionsTTL = 10 * time.Minute

// SuggestionService keeps the products last shown to each customer so a
// later confirmation can be resolved without searching again. Entries are
// advisory: no locking, last write wins per product name.
type SuggestionService interface {
	Save(ctx context.Context, customer string, products []model.Suggestion) bool
	Get(ctx context.Context, customer string) []model.Suggestion
	Clear(ctx context.Context, customer string) bool
}

type suggestionService struct {
	store  repository.StateStore
	logger *zap.Logger
	ttl    time.Duration
}

func NewSuggestionService(store repository.StateStore, logger *zap.Logger, ttl time.Duration) SuggestionService {
	if ttl <= 0 {
		ttl = DefaultSuggestionsTTL
	}
	return &suggestionService{store: store, logger: logger, ttl: ttl}
}

// Save merges products into the stored list keyed by lowercased name,
// overwriting previous entries with the same name, and re-arms the TTL.
func (s *suggestionService) Save(ctx context.Context, customer string, products []model.Suggestion) bool {
	key := repository.SuggestionsKey(customer)

	existing := s.Get(ctx, customer)
	merged := make([]model.Suggestion, 0, len(existing)+len(products))
	index := make(map[string]int, len(existing))
	for _, p := range existing {
		index[strings.ToLower(p.Nome)] = len(merged)
		merged = append(merged, p)
	}
	for _, p := range products {
		name := strings.ToLower(p.Nome)
		if i, ok := index[name]; ok {
			merged[i] = p
			continue
		}
		index[name] = len(merged)
		merged = append(merged, p)
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return false
	}
	if err := s.store.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("suggestions write failed",
			zap.String("customer", repository.NormalizeCustomer(customer)), zap.Error(err))
		return false
	}
	s.logger.Debug("suggestions saved",
		zap.String("customer", repository.NormalizeCustomer(customer)),
		zap.Int("total", len(merged)),
		zap.Int("incoming", len(products)))
	return true
}

func (s *suggestionService) Get(ctx context.Context, customer string) []model.Suggestion {
	raw, err := s.store.Get(ctx, repository.SuggestionsKey(customer))
	if err != nil {
		s.logger.Warn("suggestions read failed", zap.Error(err))
		return nil
	}
	if raw == nil {
		return nil
	}
	var products []model.Suggestion
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil
	}
	return products
}

func (s *suggestionService) Clear(ctx context.Context, customer string) bool {
	if err := s.store.Delete(ctx, repository.SuggestionsKey(customer)); err != nil {
		s.logger.Warn("suggestions clear failed", zap.Error(err))
		return false
	}
	return true
}
