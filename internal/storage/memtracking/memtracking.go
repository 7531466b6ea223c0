// Package memtracking хранит записи отслеживания в памяти процесса.
// Используется по умолчанию и в тестах; для продакшена есть pgtracking.
package memtracking

import (
	"context"
	"sort"
	"sync"

	"github.com/qrmint/scantrack/internal/models"
)

type record struct {
	mu  sync.Mutex
	rec *models.TrackingRecord
}

type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

func New() *Store {
	return &Store{records: make(map[string]*record)}
}

func (s *Store) CreateTracking(ctx context.Context, rec *models.TrackingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return models.NewValidationError("tracking %s already exists", rec.ID)
	}
	s.records[rec.ID] = &record{rec: cloneRecord(rec)}
	return nil
}

func (s *Store) GetTracking(ctx context.Context, id string) (*models.TrackingRecord, error) {
	s.mu.RLock()
	r, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, &models.NotFoundError{TrackingID: id}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRecord(r.rec), nil
}

// AppendScan атомарно проверяет лимит и добавляет скан. Проверка и инкремент
// идут под одним мьютексом записи, поэтому гонки между конкурентными сканами
// не пропускают запись сверх лимита.
func (s *Store) AppendScan(ctx context.Context, id string, scan *models.ScanEvent) (*models.UsageLimitConfig, error) {
	s.mu.RLock()
	r, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, &models.NotFoundError{TrackingID: id}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.rec
	if rec.UsageLimit != nil && rec.UsageLimit.Enabled && rec.UsageLimit.CurrentScans >= rec.UsageLimit.MaxScans {
		return nil, &models.LimitExceededError{
			MaxScans:     rec.UsageLimit.MaxScans,
			CurrentScans: rec.UsageLimit.CurrentScans,
		}
	}

	// новые сканы идут в начало списка
	rec.Scans = append([]*models.ScanEvent{cloneScan(scan)}, rec.Scans...)
	if rec.UsageLimit != nil && rec.UsageLimit.Enabled {
		rec.UsageLimit.CurrentScans++
	}
	if rec.UsageLimit == nil {
		return nil, nil
	}
	limit := *rec.UsageLimit
	return &limit, nil
}

func (s *Store) ListTrackings(ctx context.Context) ([]*models.TrackingRecord, error) {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	s.mu.RUnlock()

	out := make([]*models.TrackingRecord, 0, len(recs))
	for _, r := range recs {
		r.mu.Lock()
		out = append(out, cloneRecord(r.rec))
		r.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneRecord(rec *models.TrackingRecord) *models.TrackingRecord {
	cp := *rec
	if rec.AppStore != nil {
		as := *rec.AppStore
		cp.AppStore = &as
	}
	if rec.UsageLimit != nil {
		ul := *rec.UsageLimit
		cp.UsageLimit = &ul
	}
	if rec.Scans != nil {
		cp.Scans = make([]*models.ScanEvent, len(rec.Scans))
		for i, sc := range rec.Scans {
			cp.Scans[i] = cloneScan(sc)
		}
	}
	return &cp
}

func cloneScan(sc *models.ScanEvent) *models.ScanEvent {
	cp := *sc
	return &cp
}
