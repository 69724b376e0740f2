package chat

import (
	"net/http"
	"strconv"

	"campusmarket/internal/api"
	"campusmarket/internal/apperr"
	"campusmarket/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// StartConversation godoc
// @Summary      Open a conversation about a listing
// @Tags         chat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      StartConversationRequest  true  "Listing"
// @Success      200      {object}  Conversation
// @Failure      404      {object}  api.ErrorResponse
// @Router       /api/conversations [post]
func (h *Handler) StartConversation(c *gin.Context) {
	session, ok := auth.CurrentSession(c)
	if !ok {
		api.RespondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	conv, err := h.service.StartConversation(c.Request.Context(), session.UserID, req.PostID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ListMessages godoc
// @Summary      List conversation messages
// @Description  User and system messages, oldest first. Participants only.
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Param        id      path   string  true   "Conversation ID"
// @Param        limit   query  int     false  "Page size"
// @Param        offset  query  int     false  "Offset"
// @Success      200     {object}  map[string][]Message
// @Failure      403     {object}  api.ErrorResponse
// @Failure      404     {object}  api.ErrorResponse
// @Router       /api/conversations/{id}/messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	session, ok := auth.CurrentSession(c)
	if !ok {
		api.RespondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.service.ListMessages(c.Request.Context(), session, c.Param("id"), limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage godoc
// @Summary      Send a message
// @Tags         chat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Conversation ID"
// @Param        request  body      SendMessageRequest  true  "Message"
// @Success      201      {object}  Message
// @Failure      403      {object}  api.ErrorResponse
// @Router       /api/conversations/{id}/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	session, ok := auth.CurrentSession(c)
	if !ok {
		api.RespondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), session, c.Param("id"), req.Body)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
