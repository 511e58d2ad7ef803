package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gamehive/server/audit"
	mw "github.com/gamehive/server/middleware"
	"github.com/gamehive/server/social"
	"github.com/gin-gonic/gin"
)

// FriendsHandler exposes the friend relationship state machine over REST.
type FriendsHandler struct {
	svc   *social.Service
	audit *audit.Service
}

// NewFriendsHandler creates a new FriendsHandler.
func NewFriendsHandler(svc *social.Service, auditSvc *audit.Service) *FriendsHandler {
	return &FriendsHandler{svc: svc, audit: auditSvc}
}

type sendFriendRequestBody struct {
	AddresseeID int64 `json:"addressee_id" binding:"required"`
}

// Send handles POST /api/friends.
func (h *FriendsHandler) Send(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req sendFriendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	rel, err := h.svc.SendFriendRequest(c.Request.Context(), userID, req.AddresseeID)
	if err != nil {
		fail(c, err)
		return
	}
	h.logAudit(c, "friend_request_send", userID, &req.AddresseeID, rel, start)
	c.JSON(http.StatusCreated, rel)
}

// List handles GET /api/friends.
func (h *FriendsHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	friends, err := h.svc.ListFriends(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// ListRequests handles GET /api/friends/requests (incoming pending).
func (h *FriendsHandler) ListRequests(c *gin.Context) {
	userID := mw.GetUserID(c)
	requests, err := h.svc.ListPendingRequests(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// Accept handles PUT /api/friends/:id/accept.
func (h *FriendsHandler) Accept(c *gin.Context) {
	userID := mw.GetUserID(c)
	relID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	start := time.Now()
	rel, err := h.svc.AcceptFriendRequest(c.Request.Context(), relID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	h.logAudit(c, "friend_request_accept", userID, &rel.RequesterID, rel, start)
	c.JSON(http.StatusOK, rel)
}

// Reject handles PUT /api/friends/:id/reject.
func (h *FriendsHandler) Reject(c *gin.Context) {
	userID := mw.GetUserID(c)
	relID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	start := time.Now()
	rel, err := h.svc.RejectFriendRequest(c.Request.Context(), relID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	h.logAudit(c, "friend_request_reject", userID, &rel.RequesterID, rel, start)
	c.JSON(http.StatusOK, rel)
}

// Cancel handles DELETE /api/friends/:id.
func (h *FriendsHandler) Cancel(c *gin.Context) {
	userID := mw.GetUserID(c)
	relID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	start := time.Now()
	if err := h.svc.CancelFriendRequest(c.Request.Context(), relID, userID); err != nil {
		fail(c, err)
		return
	}
	h.logAudit(c, "friend_request_cancel", userID, nil, gin.H{"relationship_id": relID}, start)
	c.JSON(http.StatusOK, gin.H{"message": "cancelled"})
}

// Block handles PUT /api/friends/block/:user_id. The path parameter is the
// user to block, not a relationship id: blocking works even when no
// relationship row exists yet.
func (h *FriendsHandler) Block(c *gin.Context) {
	userID := mw.GetUserID(c)
	targetID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	start := time.Now()
	rel, err := h.svc.BlockUser(c.Request.Context(), userID, targetID)
	if err != nil {
		fail(c, err)
		return
	}
	h.logAudit(c, "user_block", userID, &targetID, rel, start)
	c.JSON(http.StatusOK, rel)
}

// Unblock handles PUT /api/friends/unblock/:user_id.
func (h *FriendsHandler) Unblock(c *gin.Context) {
	userID := mw.GetUserID(c)
	targetID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	start := time.Now()
	if err := h.svc.UnblockUser(c.Request.Context(), userID, targetID); err != nil {
		fail(c, err)
		return
	}
	h.logAudit(c, "user_unblock", userID, &targetID, nil, start)
	c.JSON(http.StatusOK, gin.H{"message": "unblocked"})
}

// Favorite handles PUT /api/friends/favorite/:user_id (toggle).
func (h *FriendsHandler) Favorite(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	start := time.Now()
	isFavorite, record, err := h.svc.ToggleFavorite(c.Request.Context(), userID, friendID)
	if err != nil {
		fail(c, err)
		return
	}
	h.logAudit(c, "favorite_toggle", userID, &friendID, gin.H{"is_favorite": isFavorite}, start)
	c.JSON(http.StatusOK, gin.H{"is_favorite": isFavorite, "record": record})
}

func (h *FriendsHandler) logAudit(c *gin.Context, action string, actorID int64, targetID *int64, detail interface{}, start time.Time) {
	if h.audit == nil {
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:    mw.GetTraceID(c),
		ActorID:    actorID,
		TargetID:   targetID,
		Action:     action,
		Detail:     detail,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	})
}
