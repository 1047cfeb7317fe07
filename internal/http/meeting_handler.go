package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"syncmeet/internal/service"
)

// MeetingHandler mantiene dependencias para endpoints de reuniones.
type MeetingHandler struct {
	logger      *zap.Logger
	meetingServ *service.MeetingService
}

// NewMeetingHandler crea una instancia de MeetingHandler con dependencias necesarias.
func NewMeetingHandler(logger *zap.Logger, meetingServ *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{
		logger:      logger,
		meetingServ: meetingServ,
	}
}

// Create maneja POST /meetings.
func (h *MeetingHandler) Create(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	var req struct {
		Title          string                `json:"title" binding:"required"`
		Description    string                `json:"description"`
		StartTime      time.Time             `json:"start_time" binding:"required"`
		EndTime        time.Time             `json:"end_time" binding:"required"`
		InvitationLink string                `json:"invitation_link"`
		Participants   []service.InviteEntry `json:"participants"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create meeting request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, start_time and end_time are required"})
		return
	}

	meeting, err := h.meetingServ.CreateMeeting(c.Request.Context(), service.CreateMeetingInput{
		Title:          req.Title,
		Description:    req.Description,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		InvitationLink: req.InvitationLink,
		Participants:   req.Participants,
	}, claims.UserID, timeZoneFrom(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"meeting": meeting})
}

// List maneja GET /meetings.
func (h *MeetingHandler) List(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	meetings, err := h.meetingServ.ListMeetings(c.Request.Context(), claims.UserID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

// ListInvitations maneja GET /meetings/invitations.
func (h *MeetingHandler) ListInvitations(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	meetings, err := h.meetingServ.ListInvitations(c.Request.Context(), claims.UserID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

// ListArchived maneja GET /meetings/archived.
func (h *MeetingHandler) ListArchived(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	meetings, err := h.meetingServ.ListArchived(c.Request.Context(), claims.UserID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

// Get maneja GET /meetings/:id.
func (h *MeetingHandler) Get(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	meeting, err := h.meetingServ.GetMeeting(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meeting": meeting})
}

// Update maneja PUT /meetings/:id.
func (h *MeetingHandler) Update(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	var req struct {
		Title          *string               `json:"title"`
		Description    *string               `json:"description"`
		StartTime      *time.Time            `json:"start_time"`
		EndTime        *time.Time            `json:"end_time"`
		InvitationLink *string               `json:"invitation_link"`
		Participants   []service.InviteEntry `json:"participants"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update meeting request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	meeting, err := h.meetingServ.UpdateMeeting(c.Request.Context(), c.Param("id"), service.UpdateMeetingInput{
		Title:          req.Title,
		Description:    req.Description,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		InvitationLink: req.InvitationLink,
		Participants:   req.Participants,
	}, claims.UserID, timeZoneFrom(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meeting": meeting})
}

// Delete maneja DELETE /meetings/:id.
func (h *MeetingHandler) Delete(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	if err := h.meetingServ.DeleteMeeting(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "meeting deleted"})
}

// Respond maneja POST /meetings/:id/respond.
func (h *MeetingHandler) Respond(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	var req struct {
		Response string `json:"response" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "response is required"})
		return
	}

	err := h.meetingServ.RespondToInvitation(c.Request.Context(), c.Param("id"), claims.UserID, req.Response, timeZoneFrom(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invitation " + req.Response})
}

// Sync maneja POST /meetings/:id/sync. Es el unico camino donde una falla
// del proveedor llega al cliente.
func (h *MeetingHandler) Sync(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	eventID, err := h.meetingServ.SyncMeetingToGoogle(c.Request.Context(), c.Param("id"), claims.UserID, timeZoneFrom(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "synced to google calendar", "event_id": eventID})
}

// ArchivePast maneja POST /meetings/archive-past.
func (h *MeetingHandler) ArchivePast(c *gin.Context) {
	count, err := h.meetingServ.ArchivePast(c.Request.Context())
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": count})
}
