package retry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"billdesk/internal/notify"
	"billdesk/internal/observability"
)

type Sender interface {
	Send(ctx context.Context, billID int64, phoneOverride string) (notify.DeliveryResult, error)
}

type FailureSink interface {
	MarkDeliveryFailed(ctx context.Context, id int64, reason string) error
}

// Loop drains the queue on a fixed interval, one descriptor per tick. It is an
// owned background task with an explicit start/stop lifecycle, not an ambient
// timer.
type Loop struct {
	Queue    *Queue
	Sender   Sender
	Bills    FailureSink
	Interval time.Duration

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLoop(q *Queue, sender Sender, bills FailureSink, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Loop{Queue: q, Sender: sender, Bills: bills, Interval: interval}
}

func (l *Loop) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running.Store(true)

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(l.Interval)
		defer ticker.Stop()

		slog.Info("retry loop started", "interval", l.Interval.String())
		for {
			select {
			case <-ctx.Done():
				slog.Info("retry loop stopping")
				return
			case <-ticker.C:
				l.Tick(ctx)
			}
		}
	}()
	return true
}

func (l *Loop) Stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running.Load() {
		return false
	}
	l.cancel()
	<-l.done
	l.running.Store(false)
	slog.Info("retry loop stopped")
	return true
}

func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Tick processes at most one descriptor: pop the head, re-dispatch, and on
// failure either requeue with attempts+1 or drop at the cap and mark the bill
// as delivery-failed.
func (l *Loop) Tick(ctx context.Context) {
	d, ok := l.Queue.PopHead(ctx)
	if !ok {
		return
	}

	slog.Info("retrying notification", "bill_id", d.BillID, "attempt", d.Attempts, "max", MaxAttempts)

	_, err := l.Sender.Send(ctx, d.BillID, d.Phone)
	if err == nil {
		observability.Retries.WithLabelValues("recovered").Inc()
		slog.Info("retry succeeded", "bill_id", d.BillID)
		return
	}

	if d.Attempts < MaxAttempts {
		l.Queue.Requeue(ctx, d, err.Error())
		observability.Retries.WithLabelValues("requeued").Inc()
		slog.Warn("retry failed, requeued", "bill_id", d.BillID, "attempts", d.Attempts+1, "err", err)
		return
	}

	observability.Retries.WithLabelValues("dropped").Inc()
	slog.Error("max retry attempts reached, dropping", "bill_id", d.BillID, "max", MaxAttempts, "err", err)
	if markErr := l.Bills.MarkDeliveryFailed(ctx, d.BillID, err.Error()); markErr != nil {
		slog.Error("mark delivery failed errored", "bill_id", d.BillID, "err", markErr)
	}
}
