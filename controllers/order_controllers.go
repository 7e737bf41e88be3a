package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-sync/hub"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/utils"
)

type OrderController struct {
	DB  *gorm.DB
	Hub *hub.Hub
}

func NewOrderController(db *gorm.DB, h *hub.Hub) *OrderController {
	return &OrderController{DB: db, Hub: h}
}

// CreateOrder -> place an order on a table. The order is stamped with the
// table's active session when one is known; an order racing session
// creation is left unstamped and attributed by recency on the client.
// Every order also produces an ORDER chat message carrying a snapshot of
// the items, so it shows up in the conversation.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	tableID := c.Param("table_id")

	var table models.Table
	if err := oc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	type ItemReq struct {
		MenuName string  `json:"menu_name" binding:"required"`
		Quantity int     `json:"quantity" binding:"required"`
		Price    float64 `json:"price"`
		Options  string  `json:"options"`
		Notes    string  `json:"notes"`
	}
	var req struct {
		Items []ItemReq `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order := models.Order{
		TableID:   table.ID,
		SessionID: table.CurrentSessionID,
		Status:    models.OrderPending,
	}

	var total float64
	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for _, item := range req.Items {
			total += float64(item.Quantity) * item.Price
			orderItem := models.OrderItem{
				OrderID:  order.ID,
				MenuName: item.MenuName,
				Quantity: item.Quantity,
				Price:    item.Price,
				Options:  item.Options,
				Notes:    item.Notes,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
		}
		order.TotalAmount = total
		return tx.Save(&order).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if order.SessionID != nil {
		snapshot, _ := json.Marshal(gin.H{
			"order_id":     order.ID,
			"total_amount": order.TotalAmount,
			"items":        req.Items,
		})
		message := models.ChatMessage{
			SessionID:   *order.SessionID,
			SenderType:  models.SenderUser,
			MessageType: models.MessageOrder,
			Metadata:    string(snapshot),
		}
		if err := oc.DB.Create(&message).Error; err != nil {
			utils.ErrorLogger.Printf("Order %d: chat snapshot not stored: %v", order.ID, err)
		} else {
			oc.Hub.BroadcastChatMessage(table.RestaurantID, message)
		}
	}

	oc.Hub.BroadcastOrderStatus(table.RestaurantID, order.ID, order.Status)

	if err := oc.DB.Preload("OrderItems").First(&order, order.ID).Error; err == nil {
		utils.RespondJSON(c, http.StatusCreated, order)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, order)
}

// UpdateOrderStatus -> staff-driven transition. Anything but the immediate
// successor (or a legal cancellation) is rejected before touching the row;
// the same guard runs client-side, this is the authoritative copy.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("order_id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	if err := oc.DB.Preload("OrderItems").First(&order, orderID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if err := models.ValidateOrderTransition(order.Status, req.Status); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order.Status = req.Status
	if err := oc.DB.Save(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var table models.Table
	if err := oc.DB.First(&table, order.TableID).Error; err == nil {
		oc.Hub.BroadcastOrderStatus(table.RestaurantID, order.ID, order.Status)
	}

	utils.InfoLogger.Printf("Order %d moved to %s", order.ID, order.Status)
	utils.RespondJSON(c, http.StatusOK, order)
}

// GetBill -> every order of one session, nested under the session the way
// billing consumers expect it.
func (oc *OrderController) GetBill(c *gin.Context) {
	sessionID := c.Param("session_id")

	var session models.Session
	if err := oc.DB.First(&session, sessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var orders []models.Order
	if err := oc.DB.Preload("OrderItems").
		Where("session_id = ?", session.ID).
		Order("created_at asc").
		Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var total float64
	for _, o := range orders {
		if o.Status != models.OrderCancelled {
			total += o.TotalAmount
		}
	}

	utils.RespondJSON(c, http.StatusOK, gin.H{
		"session": gin.H{
			"id":           session.ID,
			"table_id":     session.TableID,
			"guest_count":  session.GuestCount,
			"total_amount": total,
			"orders":       orders,
		},
	})
}

// GetOrderByID -> detail of one order.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID := c.Param("order_id")

	var order models.Order
	if err := oc.DB.Preload("OrderItems").First(&order, orderID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, order)
}
