package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-sync/controllers"
	"github.com/yeremiapane/restaurant-sync/hub"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.Session{},
		&models.ChatMessage{},
		&models.ChatReadCursor{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

func seedActiveSession(t *testing.T, db *gorm.DB) (models.Table, models.Session) {
	t.Helper()
	table := models.Table{RestaurantID: 1, TableNumber: "A1", Status: "EMPTY"}
	require.NoError(t, db.Create(&table).Error)
	session := models.Session{TableID: table.ID, RestaurantID: 1, Status: models.SessionActive, GuestCount: 2}
	require.NoError(t, db.Create(&session).Error)
	table.CurrentSessionID = &session.ID
	require.NoError(t, db.Save(&table).Error)
	return table, session
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func setupChatRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chatCtrl := controllers.NewChatController(db, hub.New(logrus.New()))
	r.GET("/sessions/:session_id/chat", chatCtrl.GetChatHistory)
	r.POST("/sessions/:session_id/chat", chatCtrl.SendMessage)
	r.POST("/sessions/:session_id/chat/read", chatCtrl.MarkChatRead)
	r.GET("/chat/read-status", chatCtrl.GetChatReadStatus)
	return r
}

func TestSendMessageAndHistory(t *testing.T) {
	utils.InitLogger()
	db := setupTestDB(t, "chat_send")
	_, session := seedActiveSession(t, db)
	r := setupChatRouter(db)

	w, env := doJSON(t, r, "POST", fmt.Sprintf("/sessions/%d/chat", session.ID), map[string]interface{}{
		"sender_type": "user",
		"text":        "more water please",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)

	var created models.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.SenderUser, created.SenderType)
	assert.Equal(t, models.MessageText, created.MessageType)

	w, env = doJSON(t, r, "GET", fmt.Sprintf("/sessions/%d/chat", session.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var history []models.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "more water please", history[0].Text)
}

func TestSendMessageRejectedOnEndedSession(t *testing.T) {
	utils.InitLogger()
	db := setupTestDB(t, "chat_ended")
	_, session := seedActiveSession(t, db)
	require.NoError(t, db.Model(&session).Update("status", models.SessionEnded).Error)
	r := setupChatRouter(db)

	w, env := doJSON(t, r, "POST", fmt.Sprintf("/sessions/%d/chat", session.ID), map[string]interface{}{
		"sender_type": "user",
		"text":        "anyone there?",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestMarkChatReadMonotonic(t *testing.T) {
	utils.InitLogger()
	db := setupTestDB(t, "chat_read")
	_, session := seedActiveSession(t, db)
	r := setupChatRouter(db)

	w, env := doJSON(t, r, "POST", fmt.Sprintf("/sessions/%d/chat/read", session.ID), map[string]interface{}{
		"viewer":               "STAFF",
		"last_read_message_id": 5,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	var cursor models.ChatReadCursor
	require.NoError(t, json.Unmarshal(env.Data, &cursor))
	assert.Equal(t, uint(5), cursor.LastReadMessageID)

	// A stale cursor is acknowledged but never moves backwards.
	w, env = doJSON(t, r, "POST", fmt.Sprintf("/sessions/%d/chat/read", session.ID), map[string]interface{}{
		"viewer":               "STAFF",
		"last_read_message_id": 3,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &cursor))
	assert.Equal(t, uint(5), cursor.LastReadMessageID)

	w, env = doJSON(t, r, "GET",
		fmt.Sprintf("/chat/read-status?session_ids=%d&viewer=STAFF", session.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var cursors []models.ChatReadCursor
	require.NoError(t, json.Unmarshal(env.Data, &cursors))
	require.Len(t, cursors, 1)
	assert.Equal(t, uint(5), cursors[0].LastReadMessageID)
}
