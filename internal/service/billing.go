package service

import (
	"context"
	"log/slog"
	"time"

	"billdesk/internal/domain"
	"billdesk/internal/notify"
	"billdesk/internal/retry"
	"billdesk/internal/store"
)

type Dispatcher interface {
	Send(ctx context.Context, billID int64, phoneOverride string) (notify.DeliveryResult, error)
}

// BillingService ties the bill store, the dispatcher and the retry queue
// together. Bill creation always succeeds once validated; notification is a
// separate async job whose failure lands in the retry queue.
type BillingService struct {
	Store      *store.BillStore
	Dispatcher Dispatcher
	Queue      *retry.Queue
	Links      *notify.LinkBuilder

	// Bounded per-bill retry used by ResendAllPending.
	ResendAttempts int
	ResendBackoff  time.Duration

	notifier *notifier
}

func New(s *store.BillStore, d Dispatcher, q *retry.Queue, links *notify.LinkBuilder) *BillingService {
	svc := &BillingService{
		Store:          s,
		Dispatcher:     d,
		Queue:          q,
		Links:          links,
		ResendAttempts: 2,
		ResendBackoff:  300 * time.Millisecond,
	}
	svc.notifier = newNotifier(svc.notifyBill)
	return svc
}

// Start launches the async notification worker.
func (s *BillingService) Start() { s.notifier.Start() }

// Stop drains and stops the notification worker.
func (s *BillingService) Stop() { s.notifier.Stop() }

// CreateBill validates and stores a bill, then hands notification off to the
// async worker. Notification failure never fails the create.
func (s *BillingService) CreateBill(ctx context.Context, req domain.CreateBillRequest) (domain.CreateBillResponse, error) {
	bill, err := s.Store.Create(ctx, req)
	if err != nil {
		return domain.CreateBillResponse{}, err
	}

	if !s.notifier.Submit(bill.ID) {
		slog.Warn("notification backlog full, queueing for retry", "bill_id", bill.ID)
		s.Queue.Enqueue(ctx, bill.ID, bill.Phone, "notification backlog full")
	}
	return domain.CreateBillResponse{ID: bill.ID, Success: true}, nil
}

// notifyBill is the worker body for the fire-and-forget dispatch after create.
func (s *BillingService) notifyBill(billID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.Dispatcher.Send(ctx, billID, "")
	if err == nil {
		slog.Info("auto notification sent", "bill_id", billID, "channel", res.Channel)
		return
	}
	if domain.IsDelivery(err) {
		s.Queue.Enqueue(ctx, billID, res.Recipient, err.Error())
	}
	slog.Warn("auto notification failed", "bill_id", billID, "err", err)
}

// SendBillMessage dispatches synchronously for the UI. A total delivery
// failure is queued for background retry; a validation failure is not, since
// retrying cannot fix it.
func (s *BillingService) SendBillMessage(ctx context.Context, billID int64, phoneOverride string) (notify.DeliveryResult, error) {
	res, err := s.Dispatcher.Send(ctx, billID, phoneOverride)
	if err != nil && domain.IsDelivery(err) {
		s.Queue.Enqueue(ctx, billID, res.Recipient, err.Error())
	}
	return res, err
}

// ResendAllPending walks every bill with a phone that was never successfully
// sent (or is sitting in the retry queue) and dispatches sequentially with a
// small bounded per-bill retry. Failures are counted, not queued, to avoid
// duplicate descriptors.
func (s *BillingService) ResendAllPending(ctx context.Context) domain.ResendSummary {
	var summary domain.ResendSummary

	for _, bill := range s.Store.List(ctx) {
		if bill.Phone == "" {
			continue
		}
		if bill.Sent() && !s.Queue.Contains(bill.ID) {
			continue
		}
		summary.Candidates++

		sent := false
		for attempt := 1; attempt <= s.ResendAttempts && !sent; attempt++ {
			if attempt > 1 {
				time.Sleep(s.ResendBackoff)
			}
			if _, err := s.Dispatcher.Send(ctx, bill.ID, bill.Phone); err != nil {
				slog.Warn("bulk resend attempt failed",
					"bill_id", bill.ID, "attempt", attempt, "max", s.ResendAttempts, "err", err)
				continue
			}
			sent = true
		}
		if sent {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}
	return summary
}

func (s *BillingService) GetBill(ctx context.Context, id int64) (domain.Bill, error) {
	return s.Store.Get(ctx, id)
}

func (s *BillingService) ListBills(ctx context.Context) []domain.Bill {
	return s.Store.List(ctx)
}

func (s *BillingService) DeleteBill(ctx context.Context, id int64) {
	s.Store.Delete(ctx, id)
}

func (s *BillingService) MarkPaid(ctx context.Context, id int64) (domain.StatusUpdateResult, error) {
	res, err := s.Store.MarkPaid(ctx, id)
	if err != nil {
		return res, err
	}
	res.ReceiptURL = s.Links.CustomerReceipt(id)
	return res, nil
}

func (s *BillingService) CancelBill(ctx context.Context, id int64) (domain.StatusUpdateResult, error) {
	return s.Store.Cancel(ctx, id)
}

func (s *BillingService) Stats(ctx context.Context) domain.DashboardStats {
	return s.Store.Stats(ctx)
}

func (s *BillingService) Receipt(ctx context.Context, id int64) (domain.ReceiptData, error) {
	data, err := s.Store.Receipt(ctx, id)
	if err != nil {
		return data, err
	}
	data.CustomerURL = s.Links.CustomerReceipt(id)
	data.InternalURL = s.Links.InternalReceipt(id)
	return data, nil
}

// Clear empties the bill collection and the retry queue. Irreversible.
func (s *BillingService) Clear(ctx context.Context) {
	s.Store.Clear(ctx)
	s.Queue.Clear(ctx)
	slog.Info("all bills and pending retries cleared")
}
