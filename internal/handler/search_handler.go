package handler

import (
	"github.com/gin-gonic/gin"

	"supermercado/ordercore/internal/service"
	"supermercado/ordercore/pkg/response"
)

type SearchHandler struct {
	search service.SearchService
}

func NewSearchHandler(search service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	Termo    string `json:"termo" binding:"required"`
	Limite   int    `json:"limite"`
	Telefone string `json:"telefone"`
}

// Resolve always answers 200 with a (possibly empty) candidate array;
// search never surfaces infrastructure errors.
func (h *SearchHandler) Resolve(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "termo is required")
		return
	}
	candidates := h.search.Resolve(c.Request.Context(), req.Termo, req.Limite, req.Telefone)
	response.Success(c, candidates)
}

type batchSearchRequest struct {
	Termos   []string `json:"termos" binding:"required,min=1"`
	Limite   int      `json:"limite"`
	Telefone string   `json:"telefone"`
}

func (h *SearchHandler) ResolveBatch(c *gin.Context) {
	var req batchSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "termos is required")
		return
	}
	results := h.search.ResolveBatch(c.Request.Context(), req.Termos, req.Limite, req.Telefone)
	response.Success(c, results)
}
