package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sharmaji2007/student-counsellor-system/internal/http/response"
	"github.com/sharmaji2007/student-counsellor-system/internal/requestdata"
	"github.com/sharmaji2007/student-counsellor-system/internal/services"
)

type ChatHandler struct {
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (ch *ChatHandler) SendMessage(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		Message   string `json:"message"`
		IsPrivate *bool  `json:"is_private,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	isPrivate := true
	if req.IsPrivate != nil {
		isPrivate = *req.IsPrivate
	}
	result, err := ch.chatService.SendMessage(c.Request.Context(), rd.UserID, req.Message, isPrivate)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, result)
}

func (ch *ChatHandler) ListOwn(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	messages, err := ch.chatService.ListOwn(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": messages})
}

func (ch *ChatHandler) ListPublic(c *gin.Context) {
	messages, err := ch.chatService.ListPublic(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": messages})
}

func (ch *ChatHandler) Cleanup(c *gin.Context) {
	deleted, err := ch.chatService.CleanupExpired(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": deleted})
}
