package syncer

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/stream"
)

// API is the full collaborator surface the controller consumes. Every call
// goes through the request/response envelope; none of them is the push
// channel.
type API interface {
	SessionAPI
	ReadAPI
	GetChatHistory(ctx context.Context, sessionID uint) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, sessionID uint, senderType, messageType, text, metadata string) (*models.ChatMessage, error)
	GetChatReadStatus(ctx context.Context, sessionIDs []uint) (map[uint]uint, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status string) (*models.Order, error)
	GetBill(ctx context.Context, sessionID uint) ([]models.Order, error)
}

// Controller synchronizes one table's chat, order and session state across
// the push stream and the local optimistic write path. One instance per
// active session; all shared state lives in its State, never in package
// globals.
type Controller struct {
	cfg      Config
	clock    Clock
	log      *logrus.Logger
	api      API
	role     string
	state    *State
	sessions *SessionManager
	reads    *ReadTracker
	conn     *stream.Connection

	// OnDisconnect fires once when the stream's reconnect budget is
	// exhausted. The UI is expected to show a persistent degraded-
	// connectivity indicator.
	OnDisconnect func(error)

	mu         sync.Mutex
	messages   []LocalMessage
	orders     []models.Order
	tableReset bool
}

// NewController wires a controller for one table. role is the local actor's
// side (models.SenderUser on a customer device, models.SenderStaff on a
// staff device) and drives self-echo suppression.
func NewController(api API, role string, tableID uint, cfg Config, clock Clock, log *logrus.Logger) *Controller {
	if clock == nil {
		clock = SystemClock
	}
	if log == nil {
		log = logrus.New()
	}
	return &Controller{
		cfg:      cfg,
		clock:    clock,
		log:      log,
		api:      api,
		role:     NormalizeRole(role),
		state:    NewState(cfg, clock),
		sessions: NewSessionManager(api, tableID, 1),
		reads:    NewReadTracker(api),
	}
}

// Start ensures a session handle, opens the push subscription and loads the
// initial chat history.
func (c *Controller) Start(ctx context.Context, streamURL string) error {
	sess, err := c.sessions.Ensure(ctx)
	if err != nil {
		return errors.Wrap(err, "start controller")
	}

	dispatcher := stream.NewDispatcher(stream.Handlers{
		OnChatMessage:  c.handleChatMessage,
		OnOrderStatus:  c.handleOrderStatus,
		OnSessionEnded: c.handleSessionEnded,
		OnConnected:    c.handleConnected,
		OnChatRead:     c.handleChatRead,
	}, c.log)

	c.conn = stream.NewConnection(streamURL, c.cfg.Stream, dispatcher.Dispatch, c.handleTerminalDisconnect, c.log)
	c.conn.Connect(ctx)

	if cursors, err := c.api.GetChatReadStatus(ctx, []uint{sess.ID}); err == nil {
		c.reads.Prime(cursors)
	} else {
		c.log.Printf("syncer: read status fetch failed: %v", err)
	}
	c.refreshHistory(ctx, true)
	return nil
}

// Close tears down the push subscription. Only future reconnect attempts
// are cancelled; fetches already triggered by dispatched events complete
// and merge, which is safe because merges are idempotent.
func (c *Controller) Close() {
	if c.conn != nil {
		c.conn.Disconnect()
	}
}

func (c *Controller) Connected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// SendMessage is the optimistic write path: the provisional copy is visible
// immediately, replaced in place on confirmation, removed on failure. No
// automatic retry.
func (c *Controller) SendMessage(ctx context.Context, messageType, text string) (LocalMessage, error) {
	sess, err := c.sessions.Ensure(ctx)
	if err != nil {
		return LocalMessage{}, errors.Wrap(err, "send message")
	}

	prov := NewProvisional(sess.ID, c.role, messageType, text, c.clock.Now())
	c.mu.Lock()
	c.messages = ApplyLocalSend(c.messages, prov)
	c.mu.Unlock()
	c.state.NoteSend(prov.TempID)

	confirmed, err := c.api.SendMessage(ctx, sess.ID, c.role, messageType, text, "")
	if err != nil {
		c.mu.Lock()
		c.messages = RemoveProvisional(c.messages, prov.TempID)
		c.mu.Unlock()
		return LocalMessage{}, errors.Wrap(err, "send message")
	}

	// Register the real id so the stream echo of this message is ignored.
	c.state.ConfirmSend(prov.TempID, strconv.FormatUint(uint64(confirmed.ID), 10))

	now := c.clock.Now()
	c.mu.Lock()
	c.messages = ApplyServerConfirm(c.messages, prov.TempID, *confirmed, now)
	c.mu.Unlock()
	return LocalMessage{ChatMessage: *confirmed, JustUpdatedAt: now}, nil
}

// MarkRead moves the read cursor to the newest message in the local list.
func (c *Controller) MarkRead(ctx context.Context) error {
	sess := c.sessions.Current()
	if sess == nil {
		return errors.New("mark read: no active session")
	}
	c.mu.Lock()
	var lastID uint
	for i := len(c.messages) - 1; i >= 0; i-- {
		if !c.messages[i].Pending {
			lastID = c.messages[i].ID
			break
		}
	}
	c.mu.Unlock()
	if lastID == 0 {
		return nil
	}
	return c.reads.MarkRead(ctx, sess.ID, lastID)
}

// Unread derives the unread count for the current session.
func (c *Controller) Unread() int {
	sess := c.sessions.Current()
	if sess == nil {
		return 0
	}
	return c.reads.Unread(sess.ID, c.chatSnapshot())
}

// AdvanceOrder requests a status transition, rejecting anything but the
// immediate successor before calling the server.
func (c *Controller) AdvanceOrder(ctx context.Context, orderID uint, next string) (*models.Order, error) {
	c.mu.Lock()
	var current *models.Order
	for i := range c.orders {
		if c.orders[i].ID == orderID {
			current = &c.orders[i]
			break
		}
	}
	if current == nil {
		c.mu.Unlock()
		return nil, errors.Errorf("advance order: unknown order %d", orderID)
	}
	from := current.Status
	c.mu.Unlock()

	if err := models.ValidateOrderTransition(from, next); err != nil {
		return nil, err
	}

	updated, err := c.api.UpdateOrderStatus(ctx, orderID, next)
	if err != nil {
		return nil, errors.Wrap(err, "advance order")
	}
	c.applyOrder(*updated)
	return updated, nil
}

// Messages returns a snapshot of the local message list.
func (c *Controller) Messages() []LocalMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LocalMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Orders returns a snapshot of the orders attributed to this table's
// current view.
func (c *Controller) Orders() []models.Order {
	var sessionID *uint
	if sess := c.sessions.Current(); sess != nil {
		sessionID = &sess.ID
	}
	c.mu.Lock()
	orders := make([]models.Order, len(c.orders))
	copy(orders, c.orders)
	c.mu.Unlock()
	return AttributeOrders(orders, sessionID, c.clock.Now(), c.cfg.RecencyFallback)
}

// TableStatus derives the coarse display status for the table.
func (c *Controller) TableStatus() string {
	c.mu.Lock()
	reset := c.tableReset
	c.mu.Unlock()
	return DeriveTableStatus(c.Orders(), reset)
}

// Alert reports an unreplied customer request in the current session.
func (c *Controller) Alert() bool {
	return HasAlert(c.chatSnapshot())
}

func (c *Controller) handleChatMessage(ev stream.ChatMessageEvent) {
	if c.state.SuppressEcho(ev, c.role) {
		c.log.Printf("syncer: suppressed own chat echo (sender=%s)", ev.Sender)
		return
	}
	// Detached context: disconnecting must not abort a merge already
	// under way.
	go c.refreshHistory(context.Background(), false)
}

func (c *Controller) handleOrderStatus(ev stream.OrderStatusEvent) {
	c.mu.Lock()
	known := false
	for i := range c.orders {
		if c.orders[i].ID == ev.OrderID {
			c.orders[i].Status = ev.Status
			known = true
			break
		}
	}
	c.mu.Unlock()
	if !known {
		go c.refreshOrders(context.Background())
	}
}

func (c *Controller) handleSessionEnded(stream.SessionEndedEvent) {
	c.sessions.Invalidate()
	c.mu.Lock()
	c.messages = nil
	c.orders = nil
	c.tableReset = true
	c.mu.Unlock()
	c.log.Printf("syncer: session ended, table awaiting cleaning")
}

func (c *Controller) handleConnected(ev stream.ConnectedEvent) {
	c.log.Printf("syncer: stream established (server time %d)", ev.Timestamp)
	// Catch up on anything missed while disconnected.
	go c.refreshHistory(context.Background(), true)
}

func (c *Controller) handleChatRead(ev stream.ChatReadEvent) {
	c.reads.ApplyRemote(ev.SessionID, ev.LastReadMessageID)
}

func (c *Controller) handleTerminalDisconnect(err error) {
	if c.OnDisconnect != nil {
		c.OnDisconnect(err)
	}
}

// refreshHistory refetches chat history behind the deduplication guard and
// merges the server's view. A denied fetch is a silent skip, never an
// error: the in-flight fetch delivers sufficiently fresh state.
func (c *Controller) refreshHistory(ctx context.Context, force bool) {
	sess := c.sessions.Current()
	if sess == nil {
		return
	}
	key := fmt.Sprintf("chat:%d", sess.ID)
	if !c.state.CanFetch(key, c.cfg.MinFetchInterval, force) {
		return
	}
	defer c.state.MarkDone(key)

	msgs, err := c.api.GetChatHistory(ctx, sess.ID)
	if err != nil {
		c.log.Printf("syncer: chat history fetch failed: %v", err)
		return
	}
	c.mu.Lock()
	c.messages = ApplyRemoteMerge(c.messages, msgs)
	c.tableReset = false
	c.mu.Unlock()
}

func (c *Controller) refreshOrders(ctx context.Context) {
	sess := c.sessions.Current()
	if sess == nil {
		return
	}
	key := fmt.Sprintf("bill:%d", sess.ID)
	if !c.state.CanFetch(key, c.cfg.MinFetchInterval, false) {
		return
	}
	defer c.state.MarkDone(key)

	orders, err := c.api.GetBill(ctx, sess.ID)
	if err != nil {
		c.log.Printf("syncer: bill fetch failed: %v", err)
		return
	}
	c.mu.Lock()
	c.orders = orders
	c.mu.Unlock()
}

func (c *Controller) applyOrder(updated models.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.orders {
		if c.orders[i].ID == updated.ID {
			c.orders[i] = updated
			return
		}
	}
	c.orders = append(c.orders, updated)
}

func (c *Controller) chatSnapshot() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatMessage, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Pending {
			continue
		}
		out = append(out, m.ChatMessage)
	}
	return out
}
