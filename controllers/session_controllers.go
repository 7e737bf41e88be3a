package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-sync/hub"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/syncer"
	"github.com/yeremiapane/restaurant-sync/utils"
)

type SessionController struct {
	DB  *gorm.DB
	Hub *hub.Hub
}

func NewSessionController(db *gorm.DB, h *hub.Hub) *SessionController {
	return &SessionController{DB: db, Hub: h}
}

// OpenSession -> create (or return) the table's ACTIVE session. A table
// has exactly one ACTIVE session at any instant, so opening an already
// occupied table returns the existing handle instead of a second one.
func (sc *SessionController) OpenSession(c *gin.Context) {
	tableID := c.Param("table_id")

	var req struct {
		GuestCount int `json:"guest_count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.GuestCount < 1 {
		req.GuestCount = 1
	}

	var session models.Session
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, tableID).Error; err != nil {
			return err
		}

		if table.CurrentSessionID != nil {
			if err := tx.First(&session, *table.CurrentSessionID).Error; err == nil &&
				session.Status == models.SessionActive {
				return nil
			}
		}

		key := uuid.NewString()
		session = models.Session{
			TableID:      table.ID,
			RestaurantID: table.RestaurantID,
			Status:       models.SessionActive,
			GuestCount:   req.GuestCount,
			SessionKey:   &key,
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		table.CurrentSessionID = &session.ID
		return tx.Save(&table).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Session %d active on table %s", session.ID, tableID)
	utils.RespondJSON(c, http.StatusCreated, session)
}

// GetActiveSession -> the table's ACTIVE session, or 404.
func (sc *SessionController) GetActiveSession(c *gin.Context) {
	tableID := c.Param("table_id")

	var session models.Session
	if err := sc.DB.Where("table_id = ? AND status = ?", tableID, models.SessionActive).
		First(&session).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrNoActiveSession)
		return
	}

	utils.RespondJSON(c, http.StatusOK, session)
}

// UpdateGuestCount -> adjust the seating. Reaching zero guests ends the
// session exactly like a table reset does.
func (sc *SessionController) UpdateGuestCount(c *gin.Context) {
	sessionID := c.Param("session_id")

	var req struct {
		GuestCount *int `json:"guest_count" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var session models.Session
	if err := sc.DB.First(&session, sessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if session.Status != models.SessionActive {
		utils.RespondError(c, http.StatusConflict, ErrSessionEnded)
		return
	}

	session.GuestCount = *req.GuestCount
	if session.GuestCount <= 0 {
		if err := endSession(sc.DB, &session); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		sc.Hub.BroadcastSessionEnded(session.RestaurantID, session.ID)
	} else if err := sc.DB.Save(&session).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, session)
}

// endSession flips the session to ENDED and detaches it from its table in
// one transaction, preserving the one-ACTIVE-session-per-table invariant.
func endSession(db *gorm.DB, session *models.Session) error {
	return db.Transaction(func(tx *gorm.DB) error {
		session.Status = models.SessionEnded
		session.GuestCount = 0
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		var table models.Table
		if err := tx.First(&table, session.TableID).Error; err != nil {
			return err
		}
		if table.CurrentSessionID != nil && *table.CurrentSessionID == session.ID {
			table.CurrentSessionID = nil
			table.Status = syncer.TableCleaning
			if err := tx.Save(&table).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
