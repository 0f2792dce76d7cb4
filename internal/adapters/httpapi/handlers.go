package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aaron777collins/haos-rtc/internal/app"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

type handlers struct {
	manager *app.Manager
}

type createRequest struct {
	FocusURL string `json:"focus_url,omitempty"`
}

func (h *handlers) createSession(c *gin.Context) {
	roomID := domain.RoomID(c.Param("room"))

	var req createRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
	}
	var override domain.FocusConfig
	if req.FocusURL != "" {
		override = domain.FocusConfig{Kind: domain.FocusKindSFU, ServiceURL: req.FocusURL}
	}

	state, err := h.manager.CreateSession(c.Request.Context(), roomID, override)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *handlers) joinSession(c *gin.Context) {
	roomID := domain.RoomID(c.Param("room"))
	if err := h.manager.JoinSession(c.Request.Context(), roomID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.manager.GetSessionState(roomID))
}

func (h *handlers) leaveSession(c *gin.Context) {
	roomID := domain.RoomID(c.Param("room"))
	if err := h.manager.LeaveSession(c.Request.Context(), roomID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.manager.GetSessionState(roomID))
}

func (h *handlers) destroySession(c *gin.Context) {
	roomID := domain.RoomID(c.Param("room"))
	if err := h.manager.DestroySession(c.Request.Context(), roomID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) sessionState(c *gin.Context) {
	state := h.manager.GetSessionState(domain.RoomID(c.Param("room")))
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no_session"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *handlers) activeSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.ActiveSessions())
}

func writeError(c *gin.Context, err error) {
	var rtcErr *domain.RTCError
	if !errors.As(err, &rtcErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusBadRequest
	switch rtcErr.Code {
	case domain.CodeSessionBusy:
		status = http.StatusConflict
	case domain.CodeFocusResolution:
		status = http.StatusBadGateway
	}
	c.JSON(status, rtcErr)
}
