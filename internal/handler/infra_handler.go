package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"supermercado/ordercore/internal/repository"
	"supermercado/ordercore/pkg/breaker"
	"supermercado/ordercore/pkg/lock"
	"supermercado/ordercore/pkg/response"
)

// InfraHandler exposes the lock and circuit-breaker primitives to the
// agent layer, which coordinates its own critical sections (e.g. one
// agent run per customer) with the same store-backed lock the cart uses.
type InfraHandler struct {
	locker  *lock.Locker
	breaker *breaker.Breaker
}

func NewInfraHandler(locker *lock.Locker, b *breaker.Breaker) *InfraHandler {
	return &InfraHandler{locker: locker, breaker: b}
}

type acquireLockRequest struct {
	Namespace string `json:"namespace" binding:"required"`
	Telefone  string `json:"telefone" binding:"required"`
	TTL       int    `json:"ttl"`
	Espera    int    `json:"espera"`
}

func (h *InfraHandler) AcquireLock(c *gin.Context) {
	var req acquireLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "namespace and telefone are required")
		return
	}
	if req.TTL <= 0 {
		req.TTL = 600
	}
	if req.Espera < 0 {
		req.Espera = 0
	}
	key := repository.LockKey(req.Namespace, req.Telefone)
	token, ok := h.locker.Acquire(c.Request.Context(), key,
		time.Duration(req.TTL)*time.Second, time.Duration(req.Espera)*time.Second)
	if !ok {
		response.Busy(c, "lock not acquired")
		return
	}
	response.Success(c, gin.H{"token": token})
}

type releaseLockRequest struct {
	Namespace string `json:"namespace" binding:"required"`
	Telefone  string `json:"telefone" binding:"required"`
	Token     string `json:"token" binding:"required"`
}

func (h *InfraHandler) ReleaseLock(c *gin.Context) {
	var req releaseLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "namespace, telefone and token are required")
		return
	}
	key := repository.LockKey(req.Namespace, req.Telefone)
	released := h.locker.Release(c.Request.Context(), key, req.Token)
	response.Success(c, gin.H{"released": released})
}

func (h *InfraHandler) CircuitStatus(c *gin.Context) {
	open := h.breaker.IsOpen(c.Request.Context(), c.Param("service"))
	response.Success(c, gin.H{"open": open})
}

func (h *InfraHandler) ReportFailure(c *gin.Context) {
	h.breaker.ReportFailure(c.Request.Context(), c.Param("service"))
	response.Success(c, nil)
}

func (h *InfraHandler) ReportSuccess(c *gin.Context) {
	h.breaker.ReportSuccess(c.Request.Context(), c.Param("service"))
	response.Success(c, nil)
}
