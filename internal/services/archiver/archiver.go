// Package archiver копит события scan.recorded и пачками сбрасывает их
// в архивное хранилище. Живёт внутри scan-worker.
package archiver

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qrmint/scantrack/internal/broker/messages"
)

type Repository interface {
	InsertArchivedScans(ctx context.Context, scans []*messages.ScanRecorded) error
}

type Archiver struct {
	repo Repository

	flushInterval time.Duration
	batchSize     int

	mu  sync.Mutex
	buf []*messages.ScanRecorded

	triggerCh chan struct{}

	startedAtUnixNano  int64
	lastFlushUnixNano  atomic.Int64
	totalEnqueued      atomic.Int64
	totalArchived      atomic.Int64
	totalFlushes       atomic.Int64
	totalErrors        atomic.Int64
	lastErrorMu        sync.Mutex
	lastError          string

	log *slog.Logger
}

func New(repo Repository) *Archiver {
	return &Archiver{
		repo:              repo,
		flushInterval:     5 * time.Second,
		batchSize:         100,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
		log:               slog.Default(),
	}
}

func (a *Archiver) WithSettings(flushInterval time.Duration, batchSize int) *Archiver {
	if flushInterval > 0 {
		a.flushInterval = flushInterval
	}
	if batchSize > 0 {
		a.batchSize = batchSize
	}
	return a
}

// Enqueue кладёт событие в буфер. Когда буфер дорастает до batchSize,
// поднимается внеочередной сброс.
func (a *Archiver) Enqueue(msg *messages.ScanRecorded) {
	a.mu.Lock()
	a.buf = append(a.buf, msg)
	full := len(a.buf) >= a.batchSize
	a.mu.Unlock()

	a.totalEnqueued.Add(1)
	if full {
		a.Trigger()
	}
}

// Trigger запрашивает внеочередной сброс (канал с буфером 1, лишние
// запросы схлопываются).
func (a *Archiver) Trigger() {
	select {
	case a.triggerCh <- struct{}{}:
	default:
	}
}

// Run крутит цикл сброса до отмены контекста. Остаток буфера
// сбрасывается при выходе.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flush(context.Background())
			return
		case <-ticker.C:
			a.flush(ctx)
		case <-a.triggerCh:
			a.flush(ctx)
		}
	}
}

func (a *Archiver) flush(ctx context.Context) {
	a.mu.Lock()
	if len(a.buf) == 0 {
		a.mu.Unlock()
		return
	}
	batch := a.buf
	a.buf = nil
	a.mu.Unlock()

	if err := a.repo.InsertArchivedScans(ctx, batch); err != nil {
		a.totalErrors.Add(1)
		a.setLastError(err.Error())
		a.log.Error("archive flush failed", "batch", len(batch), "err", err)

		// возвращаем пачку в начало буфера, чтобы не потерять события
		a.mu.Lock()
		a.buf = append(batch, a.buf...)
		a.mu.Unlock()
		return
	}

	a.totalFlushes.Add(1)
	a.totalArchived.Add(int64(len(batch)))
	a.lastFlushUnixNano.Store(time.Now().UTC().UnixNano())
	a.log.Debug("archived scans", "batch", len(batch))
}

func (a *Archiver) setLastError(msg string) {
	a.lastErrorMu.Lock()
	a.lastError = msg
	a.lastErrorMu.Unlock()
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastFlushAt   *time.Time `json:"lastFlushAt,omitempty"`
	Pending       int        `json:"pending"`
	TotalEnqueued int64      `json:"totalEnqueued"`
	TotalArchived int64      `json:"totalArchived"`
	TotalFlushes  int64      `json:"totalFlushes"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

func (a *Archiver) Stats() Stats {
	a.mu.Lock()
	pending := len(a.buf)
	a.mu.Unlock()

	a.lastErrorMu.Lock()
	lastErr := a.lastError
	a.lastErrorMu.Unlock()

	st := Stats{
		StartedAt:     time.Unix(0, a.startedAtUnixNano).UTC(),
		Pending:       pending,
		TotalEnqueued: a.totalEnqueued.Load(),
		TotalArchived: a.totalArchived.Load(),
		TotalFlushes:  a.totalFlushes.Load(),
		TotalErrors:   a.totalErrors.Load(),
		LastError:     lastErr,
	}
	if ns := a.lastFlushUnixNano.Load(); ns > 0 {
		ts := time.Unix(0, ns).UTC()
		st.LastFlushAt = &ts
	}
	return st
}
