// Package client speaks the backend's request/response envelope
// {success, data?, error?}. It carries no synchronization logic; the
// engine in package syncer treats it as a plain collaborator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-sync/models"
)

// APIError is a server rejection: the call reached the backend and came
// back with success=false. Callers roll optimistic state back on it.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type Client struct {
	base   string
	viewer string
	token  string
	http   *http.Client
	log    *logrus.Logger
}

// New builds a client. viewer is the local actor's sender type (USER or
// STAFF); it stamps read cursors and outgoing messages.
func New(base, viewer string, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		viewer: viewer,
		http:   &http.Client{},
		log:    log,
	}
}

// SetToken attaches a bearer token to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return errors.Wrap(err, "encode request")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrapf(err, "decode response of %s %s", method, path)
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrapf(err, "decode data of %s %s", method, path)
		}
	}
	return nil
}

func (c *Client) GetChatHistory(ctx context.Context, sessionID uint) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/sessions/%d/chat", sessionID), nil, &msgs)
	return msgs, err
}

func (c *Client) SendMessage(ctx context.Context, sessionID uint, senderType, messageType, text, metadata string) (*models.ChatMessage, error) {
	body := map[string]interface{}{
		"sender_type":  senderType,
		"message_type": messageType,
		"text":         text,
	}
	if metadata != "" {
		body["metadata"] = metadata
	}
	var msg models.ChatMessage
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%d/chat", sessionID), body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) MarkChatRead(ctx context.Context, sessionID, lastReadMessageID uint) error {
	body := map[string]interface{}{
		"viewer":               c.viewer,
		"last_read_message_id": lastReadMessageID,
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%d/chat/read", sessionID), body, nil)
}

func (c *Client) GetChatReadStatus(ctx context.Context, sessionIDs []uint) (map[uint]uint, error) {
	ids := make([]string, len(sessionIDs))
	for i, id := range sessionIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	var cursors []models.ChatReadCursor
	path := fmt.Sprintf("/api/chat/read-status?session_ids=%s&viewer=%s", strings.Join(ids, ","), c.viewer)
	if err := c.do(ctx, http.MethodGet, path, nil, &cursors); err != nil {
		return nil, err
	}
	out := make(map[uint]uint, len(cursors))
	for _, cur := range cursors {
		out[cur.SessionID] = cur.LastReadMessageID
	}
	return out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	var order models.Order
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/orders/%d/status", orderID), body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetBill(ctx context.Context, sessionID uint) ([]models.Order, error) {
	var bill struct {
		Session struct {
			Orders []models.Order `json:"orders"`
		} `json:"session"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/sessions/%d/bill", sessionID), nil, &bill); err != nil {
		return nil, err
	}
	return bill.Session.Orders, nil
}

// GetActiveSession returns (nil, nil) when the table has no active session.
func (c *Client) GetActiveSession(ctx context.Context, tableID uint) (*models.Session, error) {
	var sess models.Session
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tables/%d/sessions/active", tableID), nil, &sess)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

func (c *Client) CreateSession(ctx context.Context, tableID uint, guestCount int) (*models.Session, error) {
	var sess models.Session
	body := map[string]int{"guest_count": guestCount}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tables/%d/sessions", tableID), body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
