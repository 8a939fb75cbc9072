package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"supermercado/ordercore/internal/model"
	"supermercado/ordercore/internal/repository"
	"supermercado/ordercore/pkg/breaker"
)

func TestOverwriteOrder(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOrderAPIClient(OrderAPIConfig{BaseURL: server.URL, AuthToken: "secret"}, zap.NewNop())
	err := client.OverwriteOrder(context.Background(), "+55 11 99999-9999", []model.CartItem{
		{Produto: "Arroz", Quantidade: 2.0, Preco: 25.9},
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/pedidos/5511999999999", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)

	var payload struct {
		Itens []model.CartItem `json:"itens"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Len(t, payload.Itens, 1)
	assert.Equal(t, "Arroz", payload.Itens[0].Produto)
}

func TestOverwriteOrderEmptyCart(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOrderAPIClient(OrderAPIConfig{BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, client.OverwriteOrder(context.Background(), "5511999999999", nil))

	// A cleared cart still sends an explicit empty list, never null.
	assert.JSONEq(t, `{"itens":[]}`, string(gotBody))
}

func TestOverwriteOrderNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewOrderAPIClient(OrderAPIConfig{BaseURL: server.URL}, zap.NewNop())
	err := client.OverwriteOrder(context.Background(), "5511999999999", nil)
	assert.ErrorContains(t, err, "502")
}

func TestOverwriteOrderRequiresBaseURL(t *testing.T) {
	client := NewOrderAPIClient(OrderAPIConfig{}, zap.NewNop())
	assert.Error(t, client.OverwriteOrder(context.Background(), "5511999999999", nil))
}

func TestSyncCartReportsOutcomes(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOrderAPIClient(OrderAPIConfig{BaseURL: server.URL}, zap.NewNop())
	b := breaker.New(repository.NewMemoryStateStore(), zap.NewNop(), breaker.WithThreshold(2))
	syncer := NewOrderSyncer(client, b, zap.NewNop())

	syncer.SyncCart(ctx, "5511999999999", nil)
	assert.False(t, b.IsOpen(ctx, OrderAPIService))

	fail.Store(true)
	syncer.SyncCart(ctx, "5511999999999", nil)
	syncer.SyncCart(ctx, "5511999999999", nil)
	assert.True(t, b.IsOpen(ctx, OrderAPIService))

	// Open circuit: the call is skipped entirely.
	before := hits.Load()
	syncer.SyncCart(ctx, "5511999999999", nil)
	assert.Equal(t, before, hits.Load())
}
