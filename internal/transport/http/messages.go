package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chung305/threadline/internal/domain"
	"github.com/Chung305/threadline/internal/service/message"
	"github.com/Chung305/threadline/internal/transport/http/middleware"
)

type MessageHandler struct {
	Messages *message.Service
}

func NewMessageHandler(messages *message.Service) *MessageHandler {
	return &MessageHandler{Messages: messages}
}

func (h *MessageHandler) Create(c *gin.Context) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		respondError(c, domain.NotAuthenticated("not authenticated"))
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}

	created, err := h.Messages.Create(c.Request.Context(), account.ID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "message left in the web", created)
}

// Random returns a random unclaimed message authored by someone else, or a
// 404 when none is waiting.
func (h *MessageHandler) Random(c *gin.Context) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		respondError(c, domain.NotAuthenticated("not authenticated"))
		return
	}

	found, err := h.Messages.Random(c.Request.Context(), account.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if found == nil {
		respondError(c, domain.NotFound("no messages waiting in the web"))
		return
	}
	respond(c, http.StatusOK, "message found", found)
}

func (h *MessageHandler) Claim(c *gin.Context) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		respondError(c, domain.NotAuthenticated("not authenticated"))
		return
	}

	claimed, err := h.Messages.Claim(c.Request.Context(), c.Param("id"), account.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "message claimed", claimed)
}
