package syncer

import (
	"strconv"
	"strings"

	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/stream"
)

// NormalizeRole maps a declared sender role onto the canonical sender
// types. Customer-side aliases collapse to USER.
func NormalizeRole(role string) string {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "USER", "CUSTOMER", "GUEST":
		return models.SenderUser
	case "STAFF", "WAITER", "ADMIN":
		return models.SenderStaff
	case "SYSTEM":
		return models.SenderSystem
	default:
		return strings.ToUpper(strings.TrimSpace(role))
	}
}

// SuppressEcho decides whether a chat:message event is this device's own
// echo and must not trigger a history reload. Checks run in order; any
// match suppresses:
//
//  1. the event's sender role normalizes to the local actor's role;
//  2. the last local send is inside the echo window (covers ambiguous
//     sender attribution);
//  3. the referenced message id is in the recently-sent set (which prunes
//     its expired entries on this lookup).
func (s *State) SuppressEcho(ev stream.ChatMessageEvent, localRole string) bool {
	if NormalizeRole(ev.Sender) == NormalizeRole(localRole) {
		return true
	}
	if s.SinceLastSend() < s.cfg.EchoWindow {
		return true
	}
	if ev.MessageID != 0 && s.RecentlySent(strconv.FormatUint(uint64(ev.MessageID), 10)) {
		return true
	}
	return false
}
