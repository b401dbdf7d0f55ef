package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vaultbank/domain"
)

type EventKind string

const (
	EventDepositAccepted    EventKind = "deposit_accepted"
	EventWithdrawalAccepted EventKind = "withdrawal_accepted"
	EventFeedUpdated        EventKind = "feed_updated"
	EventCapacityUpdated    EventKind = "capacity_updated"
	EventThresholdUpdated   EventKind = "threshold_updated"
	EventAdminGranted       EventKind = "admin_granted"
	EventAdminRevoked       EventKind = "admin_revoked"
)

// Event is an audit observation. Events are published only after an
// operation has fully committed; a rejected or rolled-back operation never
// produces one.
type Event struct {
	ID       string          `json:"id"`
	Kind     EventKind       `json:"kind"`
	User     string          `json:"user,omitempty"`
	Target   string          `json:"target,omitempty"`
	Asset    domain.Asset    `json:"asset,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	USDValue decimal.Decimal `json:"usd_value"`
	At       time.Time       `json:"at"`
}

type EventSink interface {
	Publish(Event)
}

func newEvent(kind EventKind) Event {
	return Event{ID: uuid.NewString(), Kind: kind, At: time.Now().UTC()}
}

// LogSink publishes events as structured log lines.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Publish(e Event) {
	s.Log.Info().
		Str("event", string(e.Kind)).
		Str("event_id", e.ID).
		Str("user", e.User).
		Str("target", e.Target).
		Str("asset", string(e.Asset)).
		Str("amount", e.Amount.String()).
		Str("usd_value", e.USDValue.String()).
		Msg("ledger event")
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// MultiSink fans each event out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}
