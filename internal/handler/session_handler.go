package handler

import (
	"github.com/gin-gonic/gin"

	"supermercado/ordercore/internal/service"
	"supermercado/ordercore/pkg/response"
)

type SessionHandler struct {
	sessions service.SessionService
}

func NewSessionHandler(sessions service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get returns the current session, or null data when none exists (an
// absent session is an expected state, not an error).
func (h *SessionHandler) Get(c *gin.Context) {
	session := h.sessions.Get(c.Request.Context(), c.Param("telefone"))
	response.Success(c, session)
}

type contextRequest struct {
	Mensagem string `json:"mensagem"`
}

func (h *SessionHandler) Context(c *gin.Context) {
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}
	hint := h.sessions.ContextHint(c.Request.Context(), c.Param("telefone"), req.Mensagem)
	response.Success(c, gin.H{"hint": hint})
}

type markSentRequest struct {
	OrderID string `json:"order_id"`
}

func (h *SessionHandler) MarkSent(c *gin.Context) {
	var req markSentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}
	if !h.sessions.MarkSent(c.Request.Context(), c.Param("telefone"), req.OrderID) {
		response.InternalError(c, "could not mark order as sent")
		return
	}
	response.Success(c, nil)
}

func (h *SessionHandler) CanModify(c *gin.Context) {
	ok, msg := h.sessions.CanModify(c.Request.Context(), c.Param("telefone"))
	response.Success(c, gin.H{"can_modify": ok, "message": msg})
}

func (h *SessionHandler) Clear(c *gin.Context) {
	if !h.sessions.Clear(c.Request.Context(), c.Param("telefone")) {
		response.InternalError(c, "could not clear session")
		return
	}
	response.Success(c, nil)
}
