package service

import (
	"sync"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
)

type undoEntry struct {
	records   []domain.TransactionRecord
	expiresAt time.Time
	timer     *time.Timer
}

// undoBuffer holds deleted records under a token until the window elapses.
type undoBuffer struct {
	mu       sync.Mutex
	window   time.Duration
	entries  map[string]*undoEntry
	onExpire func(token string, records []domain.TransactionRecord)
}

func newUndoBuffer(window time.Duration, onExpire func(string, []domain.TransactionRecord)) *undoBuffer {
	return &undoBuffer{
		window:   window,
		entries:  make(map[string]*undoEntry),
		onExpire: onExpire,
	}
}

// hold stores records under token and returns when the token expires.
func (b *undoBuffer) hold(token string, records []domain.TransactionRecord, now time.Time) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := &undoEntry{records: records, expiresAt: now.Add(b.window)}
	entry.timer = time.AfterFunc(b.window, func() { b.expire(token) })
	b.entries[token] = entry
	return entry.expiresAt
}

// take removes the entry and cancels its timer. ok is false when the token
// is unknown or already expired.
func (b *undoBuffer) take(token string) ([]domain.TransactionRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[token]
	if !ok {
		return nil, false
	}
	entry.timer.Stop()
	delete(b.entries, token)
	return entry.records, true
}

func (b *undoBuffer) expire(token string) {
	b.mu.Lock()
	entry, ok := b.entries[token]
	if ok {
		delete(b.entries, token)
	}
	b.mu.Unlock()

	if ok && b.onExpire != nil {
		b.onExpire(token, entry.records)
	}
}

func (b *undoBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token, entry := range b.entries {
		entry.timer.Stop()
		delete(b.entries, token)
	}
}
