package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gamehive/server/audit"
	"github.com/gamehive/server/chat"
	mw "github.com/gamehive/server/middleware"
	"github.com/gin-gonic/gin"
)

// MessagesHandler exposes private messaging over REST.
type MessagesHandler struct {
	svc   *chat.Service
	audit *audit.Service
}

// NewMessagesHandler creates a new MessagesHandler.
func NewMessagesHandler(svc *chat.Service, auditSvc *audit.Service) *MessagesHandler {
	return &MessagesHandler{svc: svc, audit: auditSvc}
}

type sendMessageBody struct {
	ReceiverID int64  `json:"receiver_id" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// Send handles POST /api/messages.
func (h *MessagesHandler) Send(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req sendMessageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Thread handles GET /api/messages/thread/:friend_id. Serving a thread to
// its owner marks the counterpart's messages read: reading is the
// acknowledgement, no separate client call is needed.
func (h *MessagesHandler) Thread(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendID, err := strconv.ParseInt(c.Param("friend_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend_id"})
		return
	}

	if _, err := h.svc.MarkThreadRead(c.Request.Context(), friendID, userID); err != nil {
		fail(c, err)
		return
	}
	msgs, err := h.svc.GetThread(c.Request.Context(), userID, friendID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Conversations handles GET /api/messages/conversations.
func (h *MessagesHandler) Conversations(c *gin.Context) {
	userID := mw.GetUserID(c)
	convs, err := h.svc.ListConversations(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// Delete handles DELETE /api/messages/:id.
func (h *MessagesHandler) Delete(c *gin.Context) {
	userID := mw.GetUserID(c)
	msgID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	start := time.Now()
	if err := h.svc.DeleteMessage(c.Request.Context(), msgID, userID); err != nil {
		fail(c, err)
		return
	}
	if h.audit != nil {
		h.audit.Log(audit.Entry{
			TraceID:    mw.GetTraceID(c),
			ActorID:    userID,
			Action:     "message_delete",
			Detail:     gin.H{"message_id": msgID},
			IP:         c.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
		})
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
