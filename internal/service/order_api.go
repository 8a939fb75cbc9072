package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"supermercado/ordercore/internal/model"
	"supermercado/ordercore/internal/repository"
	"supermercado/ordercore/pkg/breaker"
)

// OrderAPIService is the circuit-breaker service name for the downstream
// order system.
const OrderAPIService = "order_api"

const defaultOrderAPITimeout = 10 * time.Second

type OrderAPIConfig struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

// OrderAPIClient talks to the downstream order system. The only call this
// module makes is the full-cart overwrite that keeps an already-submitted
// order in sync with local cart edits.
type OrderAPIClient struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
	logger     *zap.Logger
}

func NewOrderAPIClient(cfg OrderAPIConfig, logger *zap.Logger) *OrderAPIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOrderAPITimeout
	}
	return &OrderAPIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authToken:  cfg.AuthToken,
		logger:     logger,
	}
}

// OverwriteOrder replaces the downstream order's item list with the full
// current cart.
func (c *OrderAPIClient) OverwriteOrder(ctx context.Context, customer string, items []model.CartItem) error {
	if c.baseURL == "" {
		return fmt.Errorf("order api base url not configured")
	}
	if items == nil {
		items = []model.CartItem{}
	}
	body, err := json.Marshal(map[string]interface{}{"itens": items})
	if err != nil {
		return fmt.Errorf("marshal order payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/pedidos/%s", c.baseURL, repository.NormalizeCustomer(customer))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order api request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("order api returned %d", resp.StatusCode)
	}
	return nil
}

// orderSyncer wraps the order API client with the circuit breaker: open
// circuit means skip the call outright, and every attempt reports its
// outcome back to the breaker.
type orderSyncer struct {
	client  *OrderAPIClient
	breaker *breaker.Breaker
	logger  *zap.Logger
}

func NewOrderSyncer(client *OrderAPIClient, b *breaker.Breaker, logger *zap.Logger) OrderSyncer {
	return &orderSyncer{client: client, breaker: b, logger: logger}
}

func (s *orderSyncer) SyncCart(ctx context.Context, customer string, items []model.CartItem) {
	if s.breaker.IsOpen(ctx, OrderAPIService) {
		s.logger.Warn("order sync skipped, circuit open",
			zap.String("customer", repository.NormalizeCustomer(customer)))
		return
	}
	if err := s.client.OverwriteOrder(ctx, customer, items); err != nil {
		s.logger.Error("order sync failed",
			zap.String("customer", repository.NormalizeCustomer(customer)),
			zap.Error(err))
		s.breaker.ReportFailure(ctx, OrderAPIService)
		return
	}
	s.breaker.ReportSuccess(ctx, OrderAPIService)
}
