// Package retry holds failed-send descriptors and the background loop that
// drains them.
package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"billdesk/internal/domain"
	"billdesk/internal/store"
	"billdesk/internal/util"
)

const SnapshotKey = "sms_retries"

// MaxAttempts caps retries per descriptor. A descriptor at the cap that fails
// once more is dropped for good.
const MaxAttempts = 3

// Queue is an ordered FIFO of retry descriptors, persisted as a full snapshot
// after every mutation. Descriptors reference bills by id only; the bill data
// is re-read from the store at retry time. No de-duplication: a bill may have
// several descriptors queued at once.
type Queue struct {
	mu        sync.Mutex
	items     []domain.RetryDescriptor
	persister store.Persister
}

func NewQueue(p store.Persister) *Queue {
	return &Queue{persister: p}
}

func (q *Queue) Load(ctx context.Context) error {
	data, found, err := q.persister.Load(ctx, SnapshotKey)
	if err != nil {
		return fmt.Errorf("load retry snapshot: %w", err)
	}
	if !found {
		return nil
	}
	var items []domain.RetryDescriptor
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode retry snapshot: %w", err)
	}
	q.mu.Lock()
	q.items = items
	q.mu.Unlock()
	return nil
}

// Enqueue pushes a first-attempt descriptor for a failed send.
func (q *Queue) Enqueue(ctx context.Context, billID int64, phone, errorDetails string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, domain.RetryDescriptor{
		BillID:       billID,
		Phone:        phone,
		Attempts:     1,
		LastAttempt:  util.NowUTC(),
		ErrorDetails: errorDetails,
	})
	q.persistLocked(ctx)
}

// PopHead removes and returns the oldest descriptor.
func (q *Queue) PopHead(ctx context.Context) (domain.RetryDescriptor, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.RetryDescriptor{}, false
	}
	head := q.items[0]
	q.items = append([]domain.RetryDescriptor(nil), q.items[1:]...)
	q.persistLocked(ctx)
	return head, true
}

// Requeue pushes a failed descriptor back to the tail with a bumped attempt
// counter and fresh timestamp.
func (q *Queue) Requeue(ctx context.Context, d domain.RetryDescriptor, errorDetails string) {
	d.Attempts++
	d.LastAttempt = util.NowUTC()
	if errorDetails != "" {
		d.ErrorDetails = errorDetails
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, d)
	q.persistLocked(ctx)
}

func (q *Queue) Contains(billID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, d := range q.items {
		if d.BillID == billID {
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Snapshot() []domain.RetryDescriptor {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.RetryDescriptor, len(q.items))
	copy(out, q.items)
	return out
}

// Clear empties the queue and removes the persisted snapshot.
func (q *Queue) Clear(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	if err := q.persister.Delete(ctx, SnapshotKey); err != nil {
		slog.Error("clear retry snapshot failed", "err", err)
	}
	q.persistLocked(ctx)
}

func (q *Queue) persistLocked(ctx context.Context) {
	items := q.items
	if items == nil {
		items = []domain.RetryDescriptor{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.Error("encode retry snapshot failed", "err", err)
		return
	}
	if err := q.persister.Save(ctx, SnapshotKey, data); err != nil {
		slog.Error("save retry snapshot failed", "err", err)
	}
}
