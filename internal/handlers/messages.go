package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"maternity-chat/internal/models"
	"maternity-chat/internal/repositories"
	"maternity-chat/internal/room"
	"maternity-chat/internal/telemetry"
)

// MessageHandler serves the REST collaborators around the realtime channel:
// history fallback, message persistence, unread counts and read-state.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler. audit may be nil.
func NewMessageHandler(messageRepo repositories.MessageRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo, audit: audit}
}

// GetMessages returns the persisted history for a doctor/mother pair.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	doctorID := c.Query("doctor_id")
	motherID := c.Query("mother_id")
	if doctorID == "" || motherID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "doctor_id and mother_id are required"})
		return
	}

	msgs, err := h.messageRepo.HistoryForPair(c.Request.Context(), doctorID, motherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.StoredMessage{}
	}
	c.JSON(http.StatusOK, msgs)
}

// PostMessage persists a message sent outside the realtime channel.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req struct {
		DoctorID   string `json:"doctor_id" binding:"required"`
		MotherID   string `json:"mother_id" binding:"required"`
		Sender     string `json:"sender" binding:"required"`
		MotherName string `json:"mother_name"`
		Message    string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	senderID := req.DoctorID
	if req.Sender == "mother" {
		senderID = req.MotherID
	}
	msg := models.StoredMessage{
		ID:         uuid.NewString(),
		RoomID:     room.Derive(req.DoctorID, req.MotherID).String(),
		DoctorID:   req.DoctorID,
		MotherID:   req.MotherID,
		SenderID:   senderID,
		Sender:     req.Sender,
		MotherName: req.MotherName,
		Message:    req.Message,
	}

	saved, err := h.messageRepo.CreateMessage(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.emitAudit(c, "info", "message persisted for room "+saved.RoomID)
	c.JSON(http.StatusCreated, saved)
}

// GetUnreadCounts returns per-mother unread counts for a doctor.
func (h *MessageHandler) GetUnreadCounts(c *gin.Context) {
	doctorID := c.Param("doctor_id")
	if doctorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid doctor id"})
		return
	}

	counts, err := h.messageRepo.UnreadCounts(c.Request.Context(), doctorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread counts"})
		return
	}
	if counts == nil {
		counts = []models.UnreadCount{}
	}
	c.JSON(http.StatusOK, counts)
}

// MarkRead flags the other party's messages in the pair's room as read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req struct {
		DoctorID string `json:"doctor_id" binding:"required"`
		MotherID string `json:"mother_id" binding:"required"`
		Reader   string `json:"reader" binding:"required,oneof=doctor mother"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.messageRepo.MarkRead(c.Request.Context(), req.DoctorID, req.MotherID, req.Reader); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	h.emitAudit(c, "info", "messages marked read by "+req.Reader)
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	userID := userIDFromContext(c)
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userID)
}
