package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-sync/hub"
	"github.com/yeremiapane/restaurant-sync/stream"
	"github.com/yeremiapane/restaurant-sync/utils"
)

type StreamController struct {
	Hub *hub.Hub
}

func NewStreamController(h *hub.Hub) *StreamController {
	return &StreamController{Hub: h}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Events -> the SSE feed for one restaurant. Sends a "connected" handshake
// first, then relays hub broadcasts as data frames. A comment ping every
// 15s keeps proxies from closing the idle connection.
func (sc *StreamController) Events(c *gin.Context) {
	restaurantID, err := strconv.ParseUint(c.Param("restaurant_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ch := sc.Hub.Subscribe(uint(restaurantID))
	defer sc.Hub.Unsubscribe(ch)

	handshake, _ := json.Marshal(gin.H{
		"type":      stream.EventConnected,
		"timestamp": time.Now().UnixMilli(),
	})
	if err := sse.Encode(c.Writer, sse.Event{Data: string(handshake)}); err != nil {
		return
	}
	c.Writer.Flush()

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			if _, err := io.WriteString(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case data, ok := <-ch:
			if !ok {
				return
			}
			if err := sse.Encode(c.Writer, sse.Event{Data: string(data)}); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// DashboardWS -> websocket variant of the feed for the staff dashboard.
func (sc *StreamController) DashboardWS(c *gin.Context) {
	restaurantID, err := strconv.ParseUint(c.Param("restaurant_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if _, exists := c.Get("user_id"); !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	sc.Hub.RegisterWS(ws, uint(restaurantID))
	defer sc.Hub.UnregisterWS(ws)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}
