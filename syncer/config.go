package syncer

import (
	"time"

	"github.com/yeremiapane/restaurant-sync/stream"
)

// Config carries the engine's tunables. The echo window and the recency
// fallback are deliberately configuration, not constants: their defaults
// were chosen for typical network latency and are unverified under
// high-latency links.
type Config struct {
	// EchoWindow suppresses chat events arriving within this long of the
	// last local send, protecting against ambiguous sender attribution.
	EchoWindow time.Duration
	// RecentSentTTL bounds how long a sent message id is remembered for
	// echo matching. Entries are pruned on access, never on a timer.
	RecentSentTTL time.Duration
	// RecentSentCap bounds the recently-sent set; the oldest entry is
	// evicted when full.
	RecentSentCap int
	// RecencyFallback attributes an order not yet stamped with a session
	// id to the table's current view if the order is younger than this.
	// Widening it would let a previous occupant's orders reappear after a
	// table reset.
	RecencyFallback time.Duration
	// JustUpdatedTTL is how long a confirmed message keeps its transient
	// just-updated marker. Rendering only; no correctness role.
	JustUpdatedTTL time.Duration
	// MinFetchInterval is the default minimum gap between completed
	// fetches of the same resource.
	MinFetchInterval time.Duration
	// Stream configures the push connection's reconnect backoff.
	Stream stream.Config
}

func DefaultConfig() Config {
	return Config{
		EchoWindow:       3 * time.Second,
		RecentSentTTL:    3 * time.Second,
		RecentSentCap:    64,
		RecencyFallback:  60 * time.Second,
		JustUpdatedTTL:   100 * time.Millisecond,
		MinFetchInterval: time.Second,
		Stream:           stream.DefaultConfig(),
	}
}
