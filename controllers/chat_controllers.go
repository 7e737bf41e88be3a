package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-sync/hub"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/utils"
)

type ChatController struct {
	DB  *gorm.DB
	Hub *hub.Hub
}

func NewChatController(db *gorm.DB, h *hub.Hub) *ChatController {
	return &ChatController{DB: db, Hub: h}
}

// GetChatHistory -> full message list for one session, insertion order.
func (cc *ChatController) GetChatHistory(c *gin.Context) {
	sessionID := c.Param("session_id")

	var session models.Session
	if err := cc.DB.First(&session, sessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var messages []models.ChatMessage
	if err := cc.DB.Where("session_id = ?", session.ID).
		Order("id asc").
		Find(&messages).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, messages)
}

// SendMessage -> store one message and announce it on the stream. The
// server-assigned id in the broadcast lets the sending device recognize its
// own echo.
func (cc *ChatController) SendMessage(c *gin.Context) {
	sessionID := c.Param("session_id")

	var session models.Session
	if err := cc.DB.First(&session, sessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if session.Status != models.SessionActive {
		utils.RespondError(c, http.StatusConflict, ErrSessionEnded)
		return
	}

	var req struct {
		SenderType       string `json:"sender_type" binding:"required"`
		MessageType      string `json:"message_type"`
		Text             string `json:"text"`
		Metadata         string `json:"metadata"`
		ImageURL         string `json:"image_url"`
		DetectedLanguage string `json:"detected_language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.MessageType == "" {
		req.MessageType = models.MessageText
	}

	message := models.ChatMessage{
		SessionID:        session.ID,
		SenderType:       strings.ToUpper(req.SenderType),
		MessageType:      strings.ToUpper(req.MessageType),
		Text:             req.Text,
		Metadata:         req.Metadata,
		ImageURL:         req.ImageURL,
		DetectedLanguage: req.DetectedLanguage,
	}
	if err := cc.DB.Create(&message).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	cc.Hub.BroadcastChatMessage(session.RestaurantID, message)

	utils.RespondJSON(c, http.StatusCreated, message)
}

// MarkChatRead -> move one viewer's read cursor forward. The cursor is
// monotonic; a stale request is acknowledged without moving it backwards.
func (cc *ChatController) MarkChatRead(c *gin.Context) {
	sessionID := c.Param("session_id")

	var session models.Session
	if err := cc.DB.First(&session, sessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var req struct {
		Viewer            string `json:"viewer" binding:"required"`
		LastReadMessageID uint   `json:"last_read_message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	viewer := strings.ToUpper(req.Viewer)

	var cursor models.ChatReadCursor
	err := cc.DB.Where("session_id = ? AND viewer = ?", session.ID, viewer).
		First(&cursor).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		cursor = models.ChatReadCursor{
			SessionID:         session.ID,
			Viewer:            viewer,
			LastReadMessageID: req.LastReadMessageID,
		}
		if err := cc.DB.Create(&cursor).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	case err != nil:
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	case req.LastReadMessageID > cursor.LastReadMessageID:
		cursor.LastReadMessageID = req.LastReadMessageID
		if err := cc.DB.Save(&cursor).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	}

	cc.Hub.BroadcastChatRead(session.RestaurantID, session.ID, viewer, cursor.LastReadMessageID)

	utils.RespondJSON(c, http.StatusOK, cursor)
}

// GetChatReadStatus -> bulk cursor lookup for the staff dashboard.
func (cc *ChatController) GetChatReadStatus(c *gin.Context) {
	viewer := strings.ToUpper(c.DefaultQuery("viewer", models.SenderStaff))

	rawIDs := strings.Split(c.Query("session_ids"), ",")
	ids := make([]uint, 0, len(rawIDs))
	for _, raw := range rawIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		ids = append(ids, uint(id))
	}

	var cursors []models.ChatReadCursor
	if len(ids) > 0 {
		if err := cc.DB.Where("session_id IN ? AND viewer = ?", ids, viewer).
			Find(&cursors).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	}

	utils.RespondJSON(c, http.StatusOK, cursors)
}
