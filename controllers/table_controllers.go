package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-sync/hub"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/syncer"
	"github.com/yeremiapane/restaurant-sync/utils"
)

type TableController struct {
	DB  *gorm.DB
	Hub *hub.Hub
	// Recency is the attribution window for orders not yet stamped with a
	// session id, mirroring the engine's tunable.
	Recency time.Duration
}

func NewTableController(db *gorm.DB, h *hub.Hub) *TableController {
	return &TableController{DB: db, Hub: h, Recency: syncer.DefaultConfig().RecencyFallback}
}

func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		RestaurantID uint   `json:"restaurant_id" binding:"required"`
		TableNumber  string `json:"table_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		RestaurantID: req.RestaurantID,
		TableNumber:  req.TableNumber,
		Status:       syncer.TableEmpty,
	}
	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, table)
}

// GetAllTables -> the floor overview. Each table carries its derived
// display status and an alert flag for unanswered customer requests.
func (tc *TableController) GetAllTables(c *gin.Context) {
	var tables []models.Table
	query := tc.DB.Order("table_number asc")
	if rid := c.Query("restaurant_id"); rid != "" {
		query = query.Where("restaurant_id = ?", rid)
	}
	if err := query.Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	now := time.Now()
	out := make([]gin.H, 0, len(tables))
	for _, table := range tables {
		view := gin.H{
			"id":                 table.ID,
			"restaurant_id":      table.RestaurantID,
			"table_number":       table.TableNumber,
			"current_session_id": table.CurrentSessionID,
			"status":             syncer.TableEmpty,
			"alert":              false,
		}

		if table.Status == syncer.TableCleaning {
			view["status"] = syncer.TableCleaning
			out = append(out, view)
			continue
		}

		if table.CurrentSessionID != nil {
			var orders []models.Order
			if err := tc.DB.Where("table_id = ?", table.ID).
				Order("created_at asc").
				Find(&orders).Error; err != nil {
				utils.RespondError(c, http.StatusInternalServerError, err)
				return
			}
			attributed := syncer.AttributeOrders(orders, table.CurrentSessionID, now, tc.Recency)
			view["status"] = syncer.DeriveTableStatus(attributed, false)

			var messages []models.ChatMessage
			if err := tc.DB.Where("session_id = ?", *table.CurrentSessionID).
				Order("id asc").
				Find(&messages).Error; err != nil {
				utils.RespondError(c, http.StatusInternalServerError, err)
				return
			}
			view["alert"] = syncer.HasAlert(messages)
		}

		out = append(out, view)
	}

	utils.RespondJSON(c, http.StatusOK, out)
}

func (tc *TableController) GetTableByID(c *gin.Context) {
	tableID := c.Param("table_id")

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, table)
}

// ResetTable -> staff clears the table. Ends the active session if one
// exists and parks the table in CLEANING until it is marked clean.
func (tc *TableController) ResetTable(c *gin.Context) {
	tableID := c.Param("table_id")

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if table.CurrentSessionID != nil {
		var session models.Session
		if err := tc.DB.First(&session, *table.CurrentSessionID).Error; err == nil &&
			session.Status == models.SessionActive {
			if err := endSession(tc.DB, &session); err != nil {
				utils.RespondError(c, http.StatusInternalServerError, err)
				return
			}
			tc.Hub.BroadcastSessionEnded(session.RestaurantID, session.ID)
			utils.InfoLogger.Printf("Table %d reset, session %d ended", table.ID, session.ID)
			if err := tc.DB.First(&table, table.ID).Error; err != nil {
				utils.RespondError(c, http.StatusInternalServerError, err)
				return
			}
			utils.RespondJSON(c, http.StatusOK, table)
			return
		}
	}

	table.CurrentSessionID = nil
	table.Status = syncer.TableCleaning
	if err := tc.DB.Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, table)
}

// MarkTableClean -> CLEANING back to EMPTY, ready for the next guests.
func (tc *TableController) MarkTableClean(c *gin.Context) {
	tableID := c.Param("table_id")

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	table.Status = syncer.TableEmpty
	if err := tc.DB.Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, table)
}
