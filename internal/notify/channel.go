package notify

import (
	"context"
	"time"

	"billdesk/internal/domain"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
)

// Outcome is what a channel hands back on success: the deep link for
// WhatsApp, the provider SID for SMS, and the rendered body for both.
type Outcome struct {
	Link string
	SID  string
	Body string
}

// Attempt records one channel try, success or not, so the selection logic is
// observable without the UI side effects.
type Attempt struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

type DeliveryResult struct {
	BillID    int64     `json:"billId"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Link      string    `json:"link,omitempty"`
	SID       string    `json:"sid,omitempty"`
	Body      string    `json:"body,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Attempts  []Attempt `json:"attempts"`
}

// Channel is one delivery strategy. Channels are tried in order; the first
// success wins.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, bill domain.Bill, phone string) (Outcome, error)
}
