package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"supermercado/ordercore/internal/model"
	"supermercado/ordercore/internal/service"
	"supermercado/ordercore/pkg/response"
)

type CartHandler struct {
	cart service.CartService
}

func NewCartHandler(cart service.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

func (h *CartHandler) List(c *gin.Context) {
	items := h.cart.Items(c.Request.Context(), c.Param("telefone"))
	if items == nil {
		items = []model.CartItem{}
	}
	response.Success(c, items)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var item model.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		response.BadRequest(c, "invalid cart item")
		return
	}
	if err := h.cart.AddItem(c.Request.Context(), c.Param("telefone"), item); err != nil {
		writeCartError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.BadRequest(c, "invalid index")
		return
	}
	if err := h.cart.RemoveItem(c.Request.Context(), c.Param("telefone"), index); err != nil {
		writeCartError(c, err)
		return
	}
	response.Success(c, nil)
}

type decrementRequest struct {
	Quantidade float64 `json:"quantidade" binding:"required,gt=0"`
}

func (h *CartHandler) DecrementQuantity(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.BadRequest(c, "invalid index")
		return
	}
	var req decrementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "quantidade must be positive")
		return
	}
	result, err := h.cart.DecrementQuantity(c.Request.Context(), c.Param("telefone"), index, req.Quantidade)
	if err != nil {
		writeCartError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.cart.Clear(c.Request.Context(), c.Param("telefone")); err != nil {
		writeCartError(c, err)
		return
	}
	response.Success(c, nil)
}

func writeCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCartBusy):
		response.Busy(c, "cart is busy, try again")
	case errors.Is(err, service.ErrInvalidIndex):
		response.NotFound(c, "no cart item at that index")
	case errors.Is(err, service.ErrInvalidItem):
		response.BadRequest(c, "invalid cart item")
	default:
		response.InternalError(c, "cart operation failed")
	}
}
