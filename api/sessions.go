package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionStore manages the role held by a subject's session.
type SessionStore interface {
	SetSessionRole(ctx context.Context, subject, role string) error
	RevokeSession(ctx context.Context, subject string) error
}

// SessionHandler lets admins change or revoke a user's session role
// without waiting for their token to expire.
type SessionHandler struct {
	sessions SessionStore
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func NewSessionHandler(sessions SessionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Register(router *gin.RouterGroup) {
	router.PUT("/sessions/:subject", h.setRole)
	router.DELETE("/sessions/:subject", h.revoke)
}

func (h *SessionHandler) setRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != "user" && req.Role != "admin" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	if err := h.sessions.SetSessionRole(c.Request.Context(), c.Param("subject"), req.Role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) revoke(c *gin.Context) {
	if err := h.sessions.RevokeSession(c.Request.Context(), c.Param("subject")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
