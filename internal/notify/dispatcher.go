package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"billdesk/internal/domain"
	"billdesk/internal/observability"
	"billdesk/internal/settings"
	"billdesk/internal/util"
)

type BillSource interface {
	Get(ctx context.Context, id int64) (domain.Bill, error)
	MarkWhatsAppSent(ctx context.Context, id int64, deliveryPhone, content string) error
	MarkSMSSent(ctx context.Context, id int64, deliveryPhone, content, sid string) error
}

// Dispatcher resolves the target phone, picks the channel order from the
// persisted preference and walks the strategy list until one delivers.
type Dispatcher struct {
	Bills    BillSource
	Settings *settings.Service
	WhatsApp Channel
	SMS      Channel
}

// Send notifies the customer about a bill. phoneOverride, when non-empty,
// replaces the bill's stored phone as the delivery target. The stored contact
// phone is never modified here.
func (d *Dispatcher) Send(ctx context.Context, billID int64, phoneOverride string) (DeliveryResult, error) {
	start := time.Now()

	bill, err := d.Bills.Get(ctx, billID)
	if err != nil {
		return DeliveryResult{}, err
	}

	phone := strings.TrimSpace(phoneOverride)
	if phone == "" {
		phone = strings.TrimSpace(bill.Phone)
	}
	if phone == "" {
		return DeliveryResult{}, domain.Validationf("cannot send notification: phone number is required")
	}
	target := util.NormalizePhone(phone)
	if target == "" {
		return DeliveryResult{}, domain.Validationf("cannot send notification: phone number has no digits")
	}

	var channels []Channel
	if d.Settings.Get().UseWhatsApp {
		channels = []Channel{d.WhatsApp, d.SMS}
	} else {
		channels = []Channel{d.SMS}
	}

	result := DeliveryResult{BillID: billID, Recipient: target}
	var lastErr error

	for _, ch := range channels {
		outcome, err := ch.Deliver(ctx, bill, target)
		if err != nil {
			lastErr = err
			result.Attempts = append(result.Attempts, Attempt{Channel: ch.Name(), Error: err.Error()})
			observability.Sends.WithLabelValues(ch.Name(), "error").Inc()
			slog.Warn("channel delivery failed", "bill_id", billID, "channel", ch.Name(), "err", err)
			continue
		}

		result.Attempts = append(result.Attempts, Attempt{Channel: ch.Name(), OK: true})
		result.Channel = ch.Name()
		result.Link = outcome.Link
		result.SID = outcome.SID
		result.Body = outcome.Body
		result.Timestamp = util.NowUTC()

		if err := d.mark(ctx, ch.Name(), billID, target, outcome); err != nil {
			slog.Error("mark sent failed", "bill_id", billID, "channel", ch.Name(), "err", err)
		}
		observability.Sends.WithLabelValues(ch.Name(), "ok").Inc()
		observability.SendLatency.Observe(time.Since(start).Seconds())
		slog.Info("notification sent", "bill_id", billID, "channel", ch.Name(), "to", target)
		return result, nil
	}

	reason := "all channels failed"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return result, &domain.DeliveryError{BillID: billID, Reason: reason}
}

func (d *Dispatcher) mark(ctx context.Context, channel string, billID int64, target string, out Outcome) error {
	switch channel {
	case ChannelWhatsApp:
		return d.Bills.MarkWhatsAppSent(ctx, billID, target, out.Body)
	case ChannelSMS:
		return d.Bills.MarkSMSSent(ctx, billID, target, out.Body, out.SID)
	}
	return nil
}
