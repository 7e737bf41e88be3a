package hub

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/stream"
)

// Hub fans realtime events out per restaurant. SSE subscribers receive
// payloads over buffered channels; staff dashboards may attach a websocket
// instead. Both carry the same JSON payloads the stream package decodes.
type Hub struct {
	log *logrus.Logger

	mu   sync.Mutex
	subs map[chan []byte]uint
	ws   map[*websocket.Conn]uint
}

func New(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{
		log:  log,
		subs: make(map[chan []byte]uint),
		ws:   make(map[*websocket.Conn]uint),
	}
}

// Subscribe registers an SSE subscriber for one restaurant. The channel is
// buffered; a subscriber that cannot keep up loses events rather than
// blocking the broadcast path (clients recover via refetch on the next
// event).
func (h *Hub) Subscribe(restaurantID uint) chan []byte {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.subs[ch] = restaurantID
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *Hub) RegisterWS(conn *websocket.Conn, restaurantID uint) {
	h.mu.Lock()
	h.ws[conn] = restaurantID
	h.mu.Unlock()
}

func (h *Hub) UnregisterWS(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.ws, conn)
	h.mu.Unlock()
	conn.Close()
}

// BroadcastChatMessage announces a stored chat message, id included so
// receiving devices can match it against their recently-sent set.
func (h *Hub) BroadcastChatMessage(restaurantID uint, msg models.ChatMessage) {
	h.broadcast(restaurantID, map[string]interface{}{
		"type":        stream.EventChatMessage,
		"sessionId":   msg.SessionID,
		"messageId":   msg.ID,
		"sender":      msg.SenderType,
		"text":        msg.Text,
		"messageType": msg.MessageType,
		"imageUrl":    msg.ImageURL,
	})
}

func (h *Hub) BroadcastOrderStatus(restaurantID, orderID uint, status string) {
	h.broadcast(restaurantID, map[string]interface{}{
		"type":    stream.EventOrderStatus,
		"orderId": orderID,
		"status":  status,
	})
}

func (h *Hub) BroadcastSessionEnded(restaurantID, sessionID uint) {
	h.broadcast(restaurantID, map[string]interface{}{
		"type":      stream.EventSessionEnded,
		"sessionId": sessionID,
	})
}

func (h *Hub) BroadcastChatRead(restaurantID, sessionID uint, viewer string, lastReadMessageID uint) {
	h.broadcast(restaurantID, map[string]interface{}{
		"type":              stream.EventChatRead,
		"sessionId":         sessionID,
		"viewer":            viewer,
		"lastReadMessageId": lastReadMessageID,
	})
}

func (h *Hub) broadcast(restaurantID uint, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Printf("hub: marshal broadcast: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch, rid := range h.subs {
		if rid != restaurantID {
			continue
		}
		select {
		case ch <- data:
		default:
			h.log.Printf("hub: dropping event for slow subscriber (restaurant=%d)", restaurantID)
		}
	}

	for conn, rid := range h.ws {
		if rid != restaurantID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Printf("hub: websocket write failed, dropping client: %v", err)
			delete(h.ws, conn)
			conn.Close()
		}
	}
}
