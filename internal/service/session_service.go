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

const (
	DefaultBuildingTTL  = 30 * time.Minute
	DefaultSentTTL      = 15 * time.Minute
	DefaultCompletedTTL = 2 * time.Hour
)

// greetings mark the start of a new conversation; a greeting on a sent
// session means the customer wants a fresh order, not a modification.
var greetings = []string{
	"boa tarde", "boa noite", "bom dia", "boa", "olá", "ola", "oi",
	"eae", "eai", "e ai", "oii", "oiee", "hello", "hi", "hey",
	"opa", "opaa", "fala", "salve", "blz", "beleza",
}

// SessionService manages the per-customer order session lifecycle:
// building (30 min TTL, refreshed on interaction) -> sent (15 min
// modification window) -> expired (key absent). Store failures degrade
// every operation to a safe no-op.
type SessionService interface {
	Get(ctx context.Context, customer string) *model.Session
	Start(ctx context.Context, customer string) bool
	MarkSent(ctx context.Context, customer, orderID string) bool
	RefreshTTL(ctx context.Context, customer string) bool
	Clear(ctx context.Context, customer string) bool
	ContextHint(ctx context.Context, customer, message string) string
	CanModify(ctx context.Context, customer string) (bool, string)
}

type SessionConfig struct {
	BuildingTTL  time.Duration
	SentTTL      time.Duration
	CompletedTTL time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.BuildingTTL <= 0 {
		c.BuildingTTL = DefaultBuildingTTL
	}
	if c.SentTTL <= 0 {
		c.SentTTL = DefaultSentTTL
	}
	if c.CompletedTTL <= 0 {
		c.CompletedTTL = DefaultCompletedTTL
	}
	return c
}

type sessionService struct {
	store  repository.StateStore
	logger *zap.Logger
	cfg    SessionConfig
}

func NewSessionService(store repository.StateStore, logger *zap.Logger, cfg SessionConfig) SessionService {
	return &sessionService{store: store, logger: logger, cfg: cfg.withDefaults()}
}

func (s *sessionService) Get(ctx context.Context, customer string) *model.Session {
	raw, err := s.store.Get(ctx, repository.SessionKey(customer))
	if err != nil {
		s.logger.Error("session read failed", zap.String("customer", repository.NormalizeCustomer(customer)), zap.Error(err))
		return nil
	}
	if raw == nil {
		return nil
	}
	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		s.logger.Warn("session payload corrupt, treating as absent", zap.Error(err))
		return nil
	}
	return &session
}

func (s *sessionService) Start(ctx context.Context, customer string) bool {
	session := model.Session{
		Status:    model.SessionStatusBuilding,
		StartedAt: time.Now(),
	}
	if !s.write(ctx, customer, session, s.cfg.BuildingTTL) {
		return false
	}
	s.logger.Info("order session started",
		zap.String("customer", repository.NormalizeCustomer(customer)),
		zap.Duration("ttl", s.cfg.BuildingTTL))
	return true
}

// MarkSent transitions the session to sent, narrows the session and cart
// TTLs to the modification window, and arms the completed flag used to
// tell a graceful completion apart from a silent expiry later.
func (s *sessionService) MarkSent(ctx context.Context, customer, orderID string) bool {
	session := s.Get(ctx, customer)
	if session == nil {
		session = &model.Session{StartedAt: time.Now()}
	}
	now := time.Now()
	session.Status = model.SessionStatusSent
	session.SentAt = &now
	session.OrderID = orderID

	if !s.write(ctx, customer, *session, s.cfg.SentTTL) {
		return false
	}
	if err := s.store.Expire(ctx, repository.CartKey(customer), s.cfg.SentTTL); err != nil {
		s.logger.Warn("cart ttl re-arm failed", zap.Error(err))
	}
	if err := s.store.Set(ctx, repository.OrderCompletedKey(customer), []byte("1"), s.cfg.CompletedTTL); err != nil {
		s.logger.Warn("completed flag write failed", zap.Error(err))
	}
	s.logger.Info("order marked sent",
		zap.String("customer", repository.NormalizeCustomer(customer)),
		zap.String("order_id", orderID),
		zap.Duration("modification_window", s.cfg.SentTTL))
	return true
}

// RefreshTTL re-arms the building TTL; a no-op for sent or absent
// sessions.
func (s *sessionService) RefreshTTL(ctx context.Context, customer string) bool {
	session := s.Get(ctx, customer)
	if session == nil || session.Status != model.SessionStatusBuilding {
		return false
	}
	if err := s.store.Expire(ctx, repository.SessionKey(customer), s.cfg.BuildingTTL); err != nil {
		s.logger.Error("session ttl refresh failed", zap.Error(err))
		return false
	}
	return true
}

func (s *sessionService) Clear(ctx context.Context, customer string) bool {
	if err := s.store.Delete(ctx, repository.SessionKey(customer)); err != nil {
		s.logger.Error("session clear failed", zap.Error(err))
		return false
	}
	return true
}

// ContextHint resolves the session state into an instruction string for
// the conversational layer, starting a fresh session when none exists and
// resetting everything when a greeting arrives over a sent session.
func (s *sessionService) ContextHint(ctx context.Context, customer, message string) string {
	session := s.Get(ctx, customer)

	if session == nil {
		completedKey := repository.OrderCompletedKey(customer)
		wasCompleted, err := s.store.Exists(ctx, completedKey)
		if err != nil {
			wasCompleted = false
		}
		s.Start(ctx, customer)
		if wasCompleted {
			_ = s.store.Delete(ctx, completedKey)
			return "[SESSÃO] Novo pedido iniciado. Cliente já fez pedido anteriormente."
		}
		return "[SESSÃO] Nova conversa. Monte o pedido normalmente."
	}

	switch session.Status {
	case model.SessionStatusBuilding:
		s.RefreshTTL(ctx, customer)
		return ""
	case model.SessionStatusSent:
		if isGreeting(message) {
			s.logger.Info("greeting on sent session, starting fresh order",
				zap.String("customer", repository.NormalizeCustomer(customer)))
			s.Clear(ctx, customer)
			// The session is being discarded wholesale; the cart goes with
			// it without taking the cart lock.
			_ = s.store.Delete(ctx, repository.CartKey(customer))
			s.Start(ctx, customer)
			return "[SESSÃO] Novo pedido iniciado. Cliente iniciou nova conversa com saudação."
		}
		return "[SESSÃO] Pedido já enviado. Para adicionar ou remover itens, use o fluxo de alteração do carrinho."
	}
	return ""
}

// CanModify reports whether the customer's order accepts changes, with a
// caller-facing explanation.
func (s *sessionService) CanModify(ctx context.Context, customer string) (bool, string) {
	session := s.Get(ctx, customer)
	if session == nil {
		return false, "Nenhum pedido ativo. Um novo será criado."
	}
	switch session.Status {
	case model.SessionStatusBuilding:
		return true, "Pedido ainda em montagem."
	case model.SessionStatusSent:
		return true, "Pedido enviado recentemente. Alterações passam pelo fluxo de alteração."
	}
	return false, "Sessão expirada. Um novo pedido será criado."
}

func (s *sessionService) write(ctx context.Context, customer string, session model.Session, ttl time.Duration) bool {
	raw, err := json.Marshal(session)
	if err != nil {
		return false
	}
	if err := s.store.Set(ctx, repository.SessionKey(customer), raw, ttl); err != nil {
		s.logger.Error("session write failed", zap.String("customer", repository.NormalizeCustomer(customer)), zap.Error(err))
		return false
	}
	return true
}

func isGreeting(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return false
	}
	for _, g := range greetings {
		if msg == g || strings.HasPrefix(msg, g) {
			return true
		}
	}
	return false
}
