package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-sync/models"
)

func TestAttributeOrders(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := uint(7)
	previous := uint(6)

	orders := []models.Order{
		{ID: 1, SessionID: &current},
		{ID: 2, SessionID: &previous},
		{ID: 3, SessionID: nil, CreatedAt: now.Add(-30 * time.Second)},
		{ID: 4, SessionID: nil, CreatedAt: now.Add(-90 * time.Second)},
	}

	out := AttributeOrders(orders, &current, now, time.Minute)
	require.Len(t, out, 2)
	assert.Equal(t, uint(1), out[0].ID)
	// Unstamped and young: attributed by recency.
	assert.Equal(t, uint(3), out[1].ID)

	// No active session: nothing is attributed, recency or not.
	assert.Nil(t, AttributeOrders(orders, nil, now, time.Minute))
}

func TestDeriveTableStatusPrecedence(t *testing.T) {
	assert.Equal(t, TableEmpty, DeriveTableStatus(nil, false))
	assert.Equal(t, TableCleaning, DeriveTableStatus(nil, true))

	orders := []models.Order{
		{Status: models.OrderPending},
		{Status: models.OrderServed},
	}
	assert.Equal(t, TableServed, DeriveTableStatus(orders, false))

	orders = append(orders, models.Order{Status: models.OrderCooking})
	assert.Equal(t, TableCooking, DeriveTableStatus(orders, false))

	orders = append(orders, models.Order{Status: models.OrderPaid})
	assert.Equal(t, TablePaid, DeriveTableStatus(orders, false))

	// Reset wins over everything.
	assert.Equal(t, TableCleaning, DeriveTableStatus(orders, true))

	// Cancelled orders contribute nothing.
	assert.Equal(t, TableEmpty, DeriveTableStatus([]models.Order{{Status: models.OrderCancelled}}, false))

	assert.Equal(t, TableOrdering, DeriveTableStatus([]models.Order{{Status: models.OrderPending}}, false))
}

func TestHasAlert(t *testing.T) {
	assert.False(t, HasAlert(nil))

	// Unanswered customer request.
	assert.True(t, HasAlert([]models.ChatMessage{
		msg(1, models.SenderStaff, models.MessageText),
		msg(2, models.SenderUser, models.MessageRequest),
	}))

	// Staff replied after the request.
	assert.False(t, HasAlert([]models.ChatMessage{
		msg(1, models.SenderUser, models.MessageRequest),
		msg(2, models.SenderStaff, models.MessageText),
	}))

	// Plain customer chatter is not an alert.
	assert.False(t, HasAlert([]models.ChatMessage{
		msg(1, models.SenderUser, models.MessageText),
		msg(2, models.SenderUser, models.MessageOrder),
	}))
}
