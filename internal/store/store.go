package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"billdesk/internal/domain"
	"billdesk/internal/observability"
	"billdesk/internal/util"
)

const SnapshotKey = "bills"

// snapshot is the persisted form of the store. LastID survives deletions so
// bill ids are never reused.
type snapshot struct {
	LastID int64         `json:"lastId"`
	Bills  []domain.Bill `json:"bills"`
}

// BillStore owns the bill collection. All access goes through the mutex; the
// persister write after each mutation is best-effort and never blocks the
// in-memory operation.
type BillStore struct {
	mu        sync.Mutex
	bills     []domain.Bill
	lastID    int64
	persister Persister
}

func New(p Persister) *BillStore {
	return &BillStore{persister: p}
}

// Load restores the bill collection from the snapshot, if one exists.
func (s *BillStore) Load(ctx context.Context) error {
	data, found, err := s.persister.Load(ctx, SnapshotKey)
	if err != nil {
		return fmt.Errorf("load bills snapshot: %w", err)
	}
	if !found {
		return nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode bills snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills = snap.Bills
	s.lastID = snap.LastID
	for _, b := range s.bills {
		if b.ID > s.lastID {
			s.lastID = b.ID
		}
	}
	return nil
}

func (s *BillStore) Create(ctx context.Context, req domain.CreateBillRequest) (domain.Bill, error) {
	if len(req.Items) == 0 {
		return domain.Bill{}, domain.Validationf("at least one item is required")
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.Name) == "" {
			return domain.Bill{}, domain.Validationf("item %d: name is required", i+1)
		}
		if it.Quantity <= 0 {
			return domain.Bill{}, domain.Validationf("item %d: quantity must be positive", i+1)
		}
		if it.Price < 0 {
			return domain.Bill{}, domain.Validationf("item %d: price must not be negative", i+1)
		}
	}

	now := util.NowUTC()

	items := make([]domain.BillItem, 0, len(req.Items))
	var total float64
	for _, it := range req.Items {
		sub := it.Price * float64(it.Quantity)
		total += sub
		items = append(items, domain.BillItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Subtotal: sub,
		})
	}

	detail := strings.TrimSpace(req.ItemsDetail)
	if detail == "" {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, fmt.Sprintf("%s (₹%s) x %d = ₹%.2f",
				it.Name, util.Amount(it.Price), it.Quantity, it.Subtotal))
		}
		detail = strings.Join(parts, ", ")
	}

	name := strings.TrimSpace(req.Customer.Name)
	if name == "" {
		name = "Guest Customer"
	}

	bill := domain.Bill{
		Date:         now,
		CustomerName: name,
		Phone:        strings.TrimSpace(req.Customer.Phone),
		Items:        len(items),
		ItemsDetail:  detail,
		ItemsList:    items,
		Total:        total,
		Status:       domain.StatusPending,
	}
	if req.Customer.PaymentStatus == string(domain.StatusPaid) {
		bill.Status = domain.StatusPaid
		bill.PaidDate = &now
		bill.PaymentMethod = req.Customer.PaymentMethod
		if bill.PaymentMethod == "" {
			bill.PaymentMethod = "upi"
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	bill.ID = s.lastID
	s.bills = append(s.bills, bill)
	s.persistLocked(ctx)

	observability.BillsCreated.Inc()
	return bill, nil
}

func (s *BillStore) Get(ctx context.Context, id int64) (domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bills {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Bill{}, domain.ErrNotFound
}

// List returns a snapshot copy in insertion order.
func (s *BillStore) List(ctx context.Context) []domain.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Bill, len(s.bills))
	copy(out, s.bills)
	return out
}

// Delete filters out the bill. Like the rest of the CRUD surface it does not
// check existence first; deleting an unknown id is a silent no-op.
func (s *BillStore) Delete(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.bills[:0]
	for _, b := range s.bills {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	s.bills = kept
	s.persistLocked(ctx)
}

func (s *BillStore) MarkPaid(ctx context.Context, id int64) (domain.StatusUpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.StatusUpdateResult{}, domain.ErrNotFound
	}
	switch s.bills[i].Status {
	case domain.StatusPaid:
		return domain.StatusUpdateResult{
			BillID:  id,
			Changed: false,
			Message: "Bill is already marked as paid",
		}, nil
	case domain.StatusCancelled:
		return domain.StatusUpdateResult{}, domain.ErrBillCancelled
	}

	now := util.NowUTC()
	s.bills[i].Status = domain.StatusPaid
	s.bills[i].PaidDate = &now
	if s.bills[i].PaymentMethod == "" {
		s.bills[i].PaymentMethod = "upi"
	}
	s.persistLocked(ctx)
	return domain.StatusUpdateResult{
		BillID:  id,
		Changed: true,
		Message: fmt.Sprintf("Bill #%d has been marked as paid", id),
	}, nil
}

func (s *BillStore) Cancel(ctx context.Context, id int64) (domain.StatusUpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.StatusUpdateResult{}, domain.ErrNotFound
	}
	switch s.bills[i].Status {
	case domain.StatusCancelled:
		return domain.StatusUpdateResult{
			BillID:  id,
			Changed: false,
			Message: "Bill is already cancelled",
		}, nil
	case domain.StatusPaid:
		return domain.StatusUpdateResult{}, domain.ErrBillPaid
	}

	s.bills[i].Status = domain.StatusCancelled
	s.persistLocked(ctx)
	return domain.StatusUpdateResult{
		BillID:  id,
		Changed: true,
		Message: fmt.Sprintf("Bill #%d has been cancelled", id),
	}, nil
}

// Clear empties the bill collection and removes the persisted snapshot.
func (s *BillStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills = nil
	s.lastID = 0
	if err := s.persister.Delete(ctx, SnapshotKey); err != nil {
		slog.Error("clear bills snapshot failed", "err", err)
	}
	s.persistLocked(ctx)
}

func (s *BillStore) MarkWhatsAppSent(ctx context.Context, id int64, deliveryPhone, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	now := util.NowUTC()
	s.bills[i].WhatsAppSent = true
	s.bills[i].WhatsAppTimestamp = &now
	s.bills[i].MessageCount++
	s.bills[i].LastMessageContent = content
	s.bills[i].LastDeliveryPhone = deliveryPhone
	s.bills[i].DeliveryFailed = false
	s.bills[i].LastDeliveryError = ""
	s.persistLocked(ctx)
	return nil
}

func (s *BillStore) MarkSMSSent(ctx context.Context, id int64, deliveryPhone, content, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	now := util.NowUTC()
	s.bills[i].SMSSent = true
	s.bills[i].SMSTimestamp = &now
	s.bills[i].SMSCount++
	s.bills[i].LastMessageContent = content
	s.bills[i].LastDeliveryPhone = deliveryPhone
	s.bills[i].ProviderSID = sid
	s.bills[i].DeliveryFailed = false
	s.bills[i].LastDeliveryError = ""
	s.persistLocked(ctx)
	return nil
}

// MarkDeliveryFailed records a terminal delivery failure so the UI can show it
// instead of silently reverting to "never sent".
func (s *BillStore) MarkDeliveryFailed(ctx context.Context, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	s.bills[i].DeliveryFailed = true
	s.bills[i].LastDeliveryError = reason
	s.persistLocked(ctx)
	return nil
}

func (s *BillStore) Stats(ctx context.Context) domain.DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats domain.DashboardStats
	stats.TotalBills = len(s.bills)
	for _, b := range s.bills {
		switch b.Status {
		case domain.StatusPaid:
			stats.PaidBills++
			stats.TotalAmount += b.Total
		case domain.StatusPending:
			stats.PendingBills++
			stats.PendingAmount += b.Total
		}
	}
	return stats
}

func (s *BillStore) Receipt(ctx context.Context, id int64) (domain.ReceiptData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ReceiptData{}, domain.ErrNotFound
	}
	b := s.bills[i]
	if b.Status != domain.StatusPaid {
		return domain.ReceiptData{}, domain.ErrReceiptUnpaid
	}
	paid := util.NowUTC()
	if b.PaidDate != nil {
		paid = *b.PaidDate
	}
	method := b.PaymentMethod
	if method == "" {
		method = "upi"
	}
	return domain.ReceiptData{
		ID:            b.ID,
		ReceiptNumber: util.NewReceiptNumber(b.ID),
		CustomerName:  b.CustomerName,
		Date:          b.Date,
		PaidDate:      paid,
		Items:         b.ItemsDetail,
		ItemsList:     b.ItemsList,
		Total:         b.Total,
		PaymentMethod: method,
	}, nil
}

func (s *BillStore) indexLocked(id int64) int {
	for i, b := range s.bills {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s *BillStore) persistLocked(ctx context.Context) {
	data, err := json.Marshal(snapshot{LastID: s.lastID, Bills: s.bills})
	if err != nil {
		slog.Error("encode bills snapshot failed", "err", err)
		observability.SnapshotWrites.WithLabelValues("error").Inc()
		return
	}
	if err := s.persister.Save(ctx, SnapshotKey, data); err != nil {
		slog.Error("save bills snapshot failed", "err", err)
		observability.SnapshotWrites.WithLabelValues("error").Inc()
		return
	}
	observability.SnapshotWrites.WithLabelValues("ok").Inc()
}
