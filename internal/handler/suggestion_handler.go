package handler

import (
	"github.com/gin-gonic/gin"

	"supermercado/ordercore/internal/model"
	"supermercado/ordercore/internal/service"
	"supermercado/ordercore/pkg/response"
)

type SuggestionHandler struct {
	suggestions service.SuggestionService
}

func NewSuggestionHandler(suggestions service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions}
}

func (h *SuggestionHandler) Get(c *gin.Context) {
	products := h.suggestions.Get(c.Request.Context(), c.Param("telefone"))
	if products == nil {
		products = []model.Suggestion{}
	}
	response.Success(c, products)
}

func (h *SuggestionHandler) Save(c *gin.Context) {
	var products []model.Suggestion
	if err := c.ShouldBindJSON(&products); err != nil {
		response.BadRequest(c, "invalid suggestions payload")
		return
	}
	if !h.suggestions.Save(c.Request.Context(), c.Param("telefone"), products) {
		response.InternalError(c, "could not save suggestions")
		return
	}
	response.Success(c, nil)
}

func (h *SuggestionHandler) Clear(c *gin.Context) {
	if !h.suggestions.Clear(c.Request.Context(), c.Param("telefone")) {
		response.InternalError(c, "could not clear suggestions")
		return
	}
	response.Success(c, nil)
}
