package service

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trackpoint/backend/internal/model"
	"github.com/trackpoint/backend/internal/repository"
)

// HistoryItem is a write-once fact queued for durable append.
type HistoryItem struct {
	UserKey   string
	Latitude  float64
	Longitude float64
	Address   string
}

// HistoryBatcher accumulates history records and flushes them to the store
// in bulk, either when the queue reaches batchSize or on a fixed timer.
// History is best-effort telemetry: a failed flush is logged and the batch
// discarded, since blind retries risk unbounded growth during a store
// outage and duplicate inserts afterwards.
type HistoryBatcher struct {
	mu        sync.Mutex
	queue     []HistoryItem
	batchSize int

	historyRepository repository.HistoryRepository

	ticker    *time.Ticker
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewHistoryBatcher(historyRepository repository.HistoryRepository, batchSize int, flushInterval time.Duration) *HistoryBatcher {
	b := &HistoryBatcher{
		batchSize:         batchSize,
		historyRepository: historyRepository,
		ticker:            time.NewTicker(flushInterval),
		done:              make(chan struct{}),
	}

	b.wg.Add(1)
	go b.flushLoop()

	return b
}

// Enqueue appends item to the pending queue. Reaching batchSize triggers an
// immediate flush; the flush itself completes asynchronously so the caller
// never waits on the store.
func (b *HistoryBatcher) Enqueue(item HistoryItem) {
	b.mu.Lock()
	b.queue = append(b.queue, item)
	full := len(b.queue) >= b.batchSize
	b.mu.Unlock()

	if full {
		go func() {
			if err := b.Flush(); err != nil {
				logrus.Errorf("Size-triggered history flush failed: %v", err)
			}
		}()
	}
}

// Flush atomically takes ownership of the current queue contents and issues
// one bulk append. Items enqueued while the store call is in flight belong
// to the next batch. Flushing an empty queue issues no store call.
func (b *HistoryBatcher) Flush() error {
	b.mu.Lock()
	batch := b.queue
	b.queue = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	items := make([]model.LocationHistory, 0, len(batch))
	for _, item := range batch {
		items = append(items, model.LocationHistory{
			UserKey:   item.UserKey,
			Latitude:  item.Latitude,
			Longitude: item.Longitude,
			Address:   item.Address,
		})
	}

	if err := b.historyRepository.AppendBatch(items); err != nil {
		logrus.Errorf("Dropping batch of %d history records: %v", len(items), err)
		return err
	}

	return nil
}

// Pending reports the current queue length.
func (b *HistoryBatcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *HistoryBatcher) flushLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ticker.C:
			if err := b.Flush(); err != nil {
				logrus.Errorf("Timed history flush failed: %v", err)
			}
		case <-b.done:
			return
		}
	}
}

// Close stops the flush timer and drains the queue exactly once. Must be
// called before the store handle is closed.
func (b *HistoryBatcher) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		b.ticker.Stop()
		err = b.Flush()
	})
	return err
}
