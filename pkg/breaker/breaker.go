// Package breaker implements a store-backed circuit breaker: once a
// service accumulates enough failures inside a rolling window the
// circuit opens for a cooldown period, during which callers should skip
// the service entirely. There is no half-open probe; the first call
// after the cooldown runs as if the circuit were closed.
package breaker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func failureKey(service string) string { return "circuit:failures:" + service }
func openKey(service string) string    { return "circuit:open:" + service }

const (
	DefaultThreshold = 15
	DefaultCooldown  = 30 * time.Second
	DefaultWindow    = 60 * time.Second
)

// Store is the subset of store operations the breaker needs.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type Breaker struct {
	store     Store
	logger    *zap.Logger
	threshold int64
	cooldown  time.Duration
	window    time.Duration
}

type Option func(*Breaker)

func WithThreshold(n int) Option {
	return func(b *Breaker) { b.threshold = int64(n) }
}

func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) { b.cooldown = d }
}

func WithWindow(d time.Duration) Option {
	return func(b *Breaker) { b.window = d }
}

func New(store Store, logger *zap.Logger, opts ...Option) *Breaker {
	b := &Breaker{
		store:     store,
		logger:    logger,
		threshold: DefaultThreshold,
		cooldown:  DefaultCooldown,
		window:    DefaultWindow,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsOpen reports whether the circuit for service is open. Store failures
// read as closed so an unreachable store never blocks calls on its own.
func (b *Breaker) IsOpen(ctx context.Context, service string) bool {
	open, err := b.store.Exists(ctx, openKey(service))
	if err != nil {
		return false
	}
	if open {
		b.logger.Warn("circuit open, skipping call", zap.String("service", service))
	}
	return open
}

// ReportFailure counts one failure for service. The counter's TTL is set
// only on the first increment, giving a rolling window; reaching the
// threshold opens the circuit for the cooldown and resets the counter.
func (b *Breaker) ReportFailure(ctx context.Context, service string) {
	fkey := failureKey(service)
	failures, err := b.store.Incr(ctx, fkey)
	if err != nil {
		b.logger.Error("circuit failure count unavailable", zap.String("service", service), zap.Error(err))
		return
	}
	if failures == 1 {
		if err := b.store.Expire(ctx, fkey, b.window); err != nil {
			b.logger.Error("circuit window arm failed", zap.String("service", service), zap.Error(err))
		}
	}
	if failures >= b.threshold {
		if err := b.store.Set(ctx, openKey(service), []byte("1"), b.cooldown); err != nil {
			b.logger.Error("circuit open flag failed", zap.String("service", service), zap.Error(err))
			return
		}
		b.logger.Error("circuit opened",
			zap.String("service", service),
			zap.Int64("failures", failures),
			zap.Duration("cooldown", b.cooldown))
		_ = b.store.Delete(ctx, fkey)
	}
}

// ReportSuccess resets the failure counter for service. Any success while
// the circuit is closed wipes the window completely.
func (b *Breaker) ReportSuccess(ctx context.Context, service string) {
	fkey := failureKey(service)
	exists, err := b.store.Exists(ctx, fkey)
	if err != nil || !exists {
		return
	}
	_ = b.store.Delete(ctx, fkey)
}
