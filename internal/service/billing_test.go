package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"billdesk/internal/domain"
	"billdesk/internal/notify"
	"billdesk/internal/retry"
	"billdesk/internal/store"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []int64
	// fail lists bill ids whose dispatch always fails with a DeliveryError.
	fail map[int64]bool
	// invalid lists bill ids that fail with a permanent validation error.
	invalid map[int64]bool
	// flaky lists bill ids that fail once and then succeed.
	flaky map[int64]bool
	seen  map[int64]int
}

func (f *fakeDispatcher) Send(ctx context.Context, billID int64, phoneOverride string) (notify.DeliveryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, billID)
	if f.seen == nil {
		f.seen = make(map[int64]int)
	}
	f.seen[billID]++

	res := notify.DeliveryResult{BillID: billID, Recipient: "+911234567890"}
	if f.invalid[billID] {
		return notify.DeliveryResult{BillID: billID}, domain.Validationf("phone number is required")
	}
	if f.fail[billID] || (f.flaky[billID] && f.seen[billID] == 1) {
		return res, &domain.DeliveryError{BillID: billID, Reason: "provider down"}
	}
	res.Channel = notify.ChannelWhatsApp
	return res, nil
}

func (f *fakeDispatcher) callsFor(billID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[billID]
}

func newTestService(d Dispatcher) (*BillingService, *store.BillStore, *retry.Queue) {
	p := store.NewMemPersister()
	s := store.New(p)
	q := retry.NewQueue(p)
	svc := New(s, d, q, &notify.LinkBuilder{BaseURL: "http://localhost:3000"})
	svc.ResendBackoff = time.Millisecond
	return svc, s, q
}

func mustCreate(t *testing.T, s *store.BillStore, phone string) domain.Bill {
	t.Helper()
	bill, err := s.Create(context.Background(), domain.CreateBillRequest{
		Customer: domain.CustomerInput{Name: "Asha", Phone: phone},
		Items:    []domain.ItemInput{{Name: "A", Price: 10, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return bill
}

func TestCreateBillNotifiesAsync(t *testing.T) {
	d := &fakeDispatcher{}
	svc, _, q := newTestService(d)
	svc.Start()

	resp, err := svc.CreateBill(context.Background(), domain.CreateBillRequest{
		Customer: domain.CustomerInput{Name: "Asha", Phone: "+911234567890"},
		Items:    []domain.ItemInput{{Name: "A", Price: 10, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if resp.ID != 1 || !resp.Success {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Stop drains the worker, so the dispatch has happened by the time it returns.
	svc.Stop()
	if d.callsFor(1) != 1 {
		t.Fatalf("expected one async dispatch, got %d", d.callsFor(1))
	}
	if q.Len() != 0 {
		t.Fatalf("successful dispatch must not enqueue a retry")
	}
}

func TestCreateBillFailedDispatchQueuesRetry(t *testing.T) {
	d := &fakeDispatcher{fail: map[int64]bool{1: true}}
	svc, _, q := newTestService(d)
	svc.Start()

	if _, err := svc.CreateBill(context.Background(), domain.CreateBillRequest{
		Customer: domain.CustomerInput{Phone: "+911234567890"},
		Items:    []domain.ItemInput{{Name: "A", Price: 10, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create bill must succeed despite dispatch failure: %v", err)
	}

	svc.Stop()
	if q.Len() != 1 {
		t.Fatalf("expected one retry descriptor, got %d", q.Len())
	}
	descr := q.Snapshot()[0]
	if descr.BillID != 1 || descr.Attempts != 1 {
		t.Fatalf("unexpected descriptor: %+v", descr)
	}
}

func TestCreateBillValidationFailureNotQueued(t *testing.T) {
	d := &fakeDispatcher{invalid: map[int64]bool{1: true}}
	svc, _, q := newTestService(d)
	svc.Start()

	// A validation failure is permanent and must not produce a retry descriptor.
	if _, err := svc.CreateBill(context.Background(), domain.CreateBillRequest{
		Items: []domain.ItemInput{{Name: "A", Price: 10, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create bill: %v", err)
	}
	svc.Stop()
	if q.Len() != 0 {
		t.Fatalf("validation failures are permanent and must not be queued")
	}
}

func TestSendBillMessageQueuesOnDeliveryError(t *testing.T) {
	d := &fakeDispatcher{fail: map[int64]bool{1: true}}
	svc, s, q := newTestService(d)
	mustCreate(t, s, "+911234567890")

	_, err := svc.SendBillMessage(context.Background(), 1, "")
	if !domain.IsDelivery(err) {
		t.Fatalf("expected delivery error, got %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("delivery failure must enqueue a retry descriptor")
	}
	if q.Snapshot()[0].Phone != "+911234567890" {
		t.Fatalf("descriptor must capture the resolved recipient: %+v", q.Snapshot()[0])
	}
}

func TestResendAllPendingCounts(t *testing.T) {
	d := &fakeDispatcher{fail: map[int64]bool{3: true}}
	svc, s, q := newTestService(d)
	ctx := context.Background()

	mustCreate(t, s, "+911111111111") // bill 1: candidate, succeeds
	mustCreate(t, s, "")              // bill 2: no phone, skipped
	mustCreate(t, s, "+913333333333") // bill 3: candidate, always fails
	sent := mustCreate(t, s, "+914444444444")
	if err := s.MarkSMSSent(ctx, sent.ID, sent.Phone, "body", "SM1"); err != nil {
		t.Fatalf("mark sent: %v", err)
	} // bill 4: already sent, skipped

	summary := svc.ResendAllPending(ctx)
	if summary.Candidates != 2 {
		t.Fatalf("expected 2 candidates, got %+v", summary)
	}
	if summary.Sent != 1 || summary.Failed != 1 {
		t.Fatalf("expected 1 sent / 1 failed, got %+v", summary)
	}
	if summary.Sent+summary.Failed != summary.Candidates {
		t.Fatalf("counts must add up: %+v", summary)
	}
	if q.Len() != 0 {
		t.Fatalf("bulk resend must not enqueue retry descriptors")
	}
	if d.callsFor(3) != svc.ResendAttempts {
		t.Fatalf("expected %d bounded attempts for the failing bill, got %d",
			svc.ResendAttempts, d.callsFor(3))
	}
}

func TestResendAllPendingSecondAttemptRecovers(t *testing.T) {
	d := &fakeDispatcher{flaky: map[int64]bool{1: true}}
	svc, s, _ := newTestService(d)
	mustCreate(t, s, "+911111111111")

	summary := svc.ResendAllPending(context.Background())
	if summary.Sent != 1 || summary.Failed != 0 {
		t.Fatalf("flaky bill should recover on the second attempt: %+v", summary)
	}
	if d.callsFor(1) != 2 {
		t.Fatalf("expected 2 attempts, got %d", d.callsFor(1))
	}
}

func TestResendAllPendingIncludesQueuedBills(t *testing.T) {
	d := &fakeDispatcher{}
	svc, s, q := newTestService(d)
	ctx := context.Background()

	// Sent once already, but a later failure parked it in the retry queue.
	bill := mustCreate(t, s, "+911111111111")
	if err := s.MarkWhatsAppSent(ctx, bill.ID, bill.Phone, "body"); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	q.Enqueue(ctx, bill.ID, bill.Phone, "later failure")

	summary := svc.ResendAllPending(ctx)
	if summary.Candidates != 1 || summary.Sent != 1 {
		t.Fatalf("queued bill must be a resend candidate: %+v", summary)
	}
}

func TestMarkPaidAddsReceiptURL(t *testing.T) {
	svc, s, _ := newTestService(&fakeDispatcher{})
	mustCreate(t, s, "")

	res, err := svc.MarkPaid(context.Background(), 1)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if res.ReceiptURL != "http://localhost:3000/p/receipt/1" {
		t.Fatalf("unexpected receipt url: %q", res.ReceiptURL)
	}
}

func TestReceiptCarriesBothURLs(t *testing.T) {
	svc, s, _ := newTestService(&fakeDispatcher{})
	ctx := context.Background()
	mustCreate(t, s, "")
	if _, err := svc.MarkPaid(ctx, 1); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	data, err := svc.Receipt(ctx, 1)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if data.CustomerURL != "http://localhost:3000/p/receipt/1" {
		t.Fatalf("unexpected customer url: %q", data.CustomerURL)
	}
	if data.InternalURL != "http://localhost:3000/receipt/1" {
		t.Fatalf("unexpected internal url: %q", data.InternalURL)
	}
}

func TestClearEmptiesBillsAndQueue(t *testing.T) {
	svc, s, q := newTestService(&fakeDispatcher{})
	ctx := context.Background()
	mustCreate(t, s, "+911111111111")
	q.Enqueue(ctx, 1, "+911111111111", "e")

	svc.Clear(ctx)
	if len(svc.ListBills(ctx)) != 0 {
		t.Fatalf("expected no bills after clear")
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty retry queue after clear")
	}
}

func TestNotifierSubmitWhenStopped(t *testing.T) {
	n := newNotifier(func(int64) {})
	if n.Submit(1) {
		t.Fatalf("submit must fail before start")
	}
	n.Start()
	if !n.Submit(1) {
		t.Fatalf("submit must succeed while running")
	}
	n.Stop()
	if n.Submit(2) {
		t.Fatalf("submit must fail after stop")
	}
}

// Submitting while Stop closes the channel must degrade to a refused submit,
// never a send on a closed channel.
func TestNotifierSubmitDuringStop(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := newNotifier(func(int64) {})
		n.Start()

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					n.Submit(1)
				}
			}
		}()

		n.Stop()
		if n.Submit(2) {
			t.Fatalf("submit must fail once stopped")
		}
		close(stop)
		wg.Wait()
	}
}
