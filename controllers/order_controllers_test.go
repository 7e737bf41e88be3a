package controllers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-sync/controllers"
	"github.com/yeremiapane/restaurant-sync/hub"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/utils"
)

func setupOrderRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	orderCtrl := controllers.NewOrderController(db, hub.New(logrus.New()))
	r.POST("/tables/:table_id/orders", orderCtrl.CreateOrder)
	r.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	r.GET("/sessions/:session_id/bill", orderCtrl.GetBill)
	return r
}

func TestCreateOrder(t *testing.T) {
	utils.InitLogger()
	db := setupTestDB(t, "order_create")
	table, session := seedActiveSession(t, db)
	r := setupOrderRouter(db)

	w, env := doJSON(t, r, "POST", fmt.Sprintf("/tables/%d/orders", table.ID), map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_name": "Nasi Goreng", "quantity": 2, "price": 25000},
			{"menu_name": "Es Teh", "quantity": 2, "price": 5000},
		},
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)

	var order models.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, models.OrderPending, order.Status)
	require.NotNil(t, order.SessionID)
	assert.Equal(t, session.ID, *order.SessionID)
	assert.Equal(t, 60000.0, order.TotalAmount)
	assert.Len(t, order.OrderItems, 2)

	// An ORDER chat message with the snapshot landed in the conversation.
	var msgs []models.ChatMessage
	require.NoError(t, db.Where("session_id = ?", session.ID).Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageOrder, msgs[0].MessageType)
	assert.Equal(t, models.SenderUser, msgs[0].SenderType)
	assert.Contains(t, msgs[0].Metadata, "Nasi Goreng")
}

func TestCreateOrderUnstampedWithoutSession(t *testing.T) {
	utils.InitLogger()
	db := setupTestDB(t, "order_unstamped")
	table := models.Table{RestaurantID: 1, TableNumber: "B2", Status: "EMPTY"}
	require.NoError(t, db.Create(&table).Error)
	r := setupOrderRouter(db)

	w, env := doJSON(t, r, "POST", fmt.Sprintf("/tables/%d/orders", table.ID), map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_name": "Mie Ayam", "quantity": 1, "price": 18000},
		},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	// Racing session creation: the order stays unstamped, clients attribute
	// it by recency.
	assert.Nil(t, order.SessionID)
}

func TestUpdateOrderStatusTransitions(t *testing.T) {
	utils.InitLogger()
	db := setupTestDB(t, "order_transitions")
	table, session := seedActiveSession(t, db)
	r := setupOrderRouter(db)

	order := models.Order{TableID: table.ID, SessionID: &session.ID, Status: models.OrderPending}
	require.NoError(t, db.Create(&order).Error)

	patch := func(status string) (int, envelope) {
		w, env := doJSON(t, r, "PATCH", fmt.Sprintf("/orders/%d/status", order.ID),
			map[string]string{"status": status})
		return w.Code, env
	}

	// Skipping a step is rejected.
	code, env := patch(models.OrderPaid)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	code, _ = patch(models.OrderCooking)
	assert.Equal(t, http.StatusOK, code)
	code, _ = patch(models.OrderServed)
	assert.Equal(t, http.StatusOK, code)

	// CANCELLED is unreachable once served.
	code, _ = patch(models.OrderCancelled)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = patch(models.OrderPaid)
	assert.Equal(t, http.StatusOK, code)
	var updated models.Order
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, models.OrderPaid, updated.Status)
}

func TestCancelPendingOrder(t *testing.T) {
	utils.InitLogger()
	db := setupTestDB(t, "order_cancel")
	table, session := seedActiveSession(t, db)
	r := setupOrderRouter(db)

	order := models.Order{TableID: table.ID, SessionID: &session.ID, Status: models.OrderPending}
	require.NoError(t, db.Create(&order).Error)

	w, _ := doJSON(t, r, "PATCH", fmt.Sprintf("/orders/%d/status", order.ID),
		map[string]string{"status": models.OrderCancelled})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetBill(t *testing.T) {
	utils.InitLogger()
	db := setupTestDB(t, "order_bill")
	table, session := seedActiveSession(t, db)
	r := setupOrderRouter(db)

	require.NoError(t, db.Create(&models.Order{
		TableID: table.ID, SessionID: &session.ID, Status: models.OrderServed, TotalAmount: 50000,
	}).Error)
	require.NoError(t, db.Create(&models.Order{
		TableID: table.ID, SessionID: &session.ID, Status: models.OrderCancelled, TotalAmount: 20000,
	}).Error)

	w, env := doJSON(t, r, "GET", fmt.Sprintf("/sessions/%d/bill", session.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var bill struct {
		Session struct {
			ID          uint           `json:"id"`
			TotalAmount float64        `json:"total_amount"`
			Orders      []models.Order `json:"orders"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &bill))
	assert.Equal(t, session.ID, bill.Session.ID)
	assert.Len(t, bill.Session.Orders, 2)
	// Cancelled orders are listed but never billed.
	assert.Equal(t, 50000.0, bill.Session.TotalAmount)
}
