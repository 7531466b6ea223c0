package tracking

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qrmint/scantrack/internal/broker/messages"
	"github.com/qrmint/scantrack/internal/cache"
	"github.com/qrmint/scantrack/internal/device"
	"github.com/qrmint/scantrack/internal/integrations/geo"
	"github.com/qrmint/scantrack/internal/models"
)

type Repository interface {
	CreateTracking(ctx context.Context, rec *models.TrackingRecord) error
	GetTracking(ctx context.Context, id string) (*models.TrackingRecord, error)
	AppendScan(ctx context.Context, id string, scan *models.ScanEvent) (*models.UsageLimitConfig, error)
	ListTrackings(ctx context.Context) ([]*models.TrackingRecord, error)
}

type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
}

type Service struct {
	repo Repository
	geo  geo.Provider

	cache    cache.BytesCache
	cacheTTL time.Duration

	producer Producer

	baseURL string

	log *slog.Logger
}

func New(repo Repository, g geo.Provider, c cache.BytesCache, cacheTTL time.Duration, baseURL string) *Service {
	return &Service{
		repo:     repo,
		geo:      g,
		cache:    c,
		cacheTTL: cacheTTL,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      slog.Default(),
	}
}

// WithProducer включает публикацию scan.recorded. Без продюсера
// сервис работает так же, просто никого не оповещает.
func (s *Service) WithProducer(p Producer) *Service {
	s.producer = p
	return s
}

func (s *Service) Mint(ctx context.Context, in models.TrackingCreateInput) (*models.TrackingRecord, error) {
	if strings.TrimSpace(in.OriginalURL) == "" {
		return nil, models.NewValidationError("originalUrl is required")
	}

	rec := &models.TrackingRecord{
		ID:          uuid.NewString(),
		OriginalURL: in.OriginalURL,
		OwnerID:     in.OwnerID,
		CreatedAt:   time.Now().UTC(),
		Scans:       []*models.ScanEvent{},
	}
	if in.AppStore != nil {
		app := *in.AppStore
		rec.AppStore = &app
	}
	if in.UsageLimit != nil {
		// счётчик всегда стартует с нуля, что бы ни прислал клиент
		rec.UsageLimit = &models.UsageLimitConfig{
			Enabled:  in.UsageLimit.Enabled,
			MaxScans: in.UsageLimit.MaxScans,
		}
	}

	if err := s.repo.CreateTracking(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.TrackingRecord, error) {
	return s.repo.GetTracking(ctx, id)
}

// TrackingURL — внешняя ссылка, которую клиент зашивает в QR-код.
func (s *Service) TrackingURL(id string) string {
	return s.baseURL + "/track/" + id
}

// ScanResult — итог одного скана: записанное событие и решение редиректа.
type ScanResult struct {
	Scan           *models.ScanEvent
	Device         models.DeviceInfo
	DestinationURL string
	OriginalURL    string
	AppStore       *models.AppStoreConfig
	UsageLimit     *models.UsageLimitConfig
}

// RecordScan — полный цикл скана: классификация устройства, выбор адреса,
// атомарная запись события и (опционально) публикация в брокер.
func (s *Service) RecordScan(ctx context.Context, id, userAgent, ip string) (*ScanResult, error) {
	rec, err := s.repo.GetTracking(ctx, id)
	if err != nil {
		return nil, err
	}

	dev := device.Classify(userAgent)
	dest, err := Resolve(rec, dev)
	if err != nil {
		return nil, err
	}

	if ip == "" {
		ip = "unknown"
	}
	scan := &models.ScanEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		UserAgent: userAgent,
		IP:        ip,
		Location:  s.locate(ctx, ip),
		Device:    models.ScanDevice{Type: dev.Type, Browser: dev.Browser, OS: dev.OS},
	}

	limit, err := s.repo.AppendScan(ctx, id, scan)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{
		Scan:           scan,
		Device:         dev,
		DestinationURL: dest,
		OriginalURL:    rec.OriginalURL,
		AppStore:       rec.AppStore,
		UsageLimit:     limit,
	}
	s.publishScan(id, scan, dest)
	return res, nil
}

func (s *Service) locate(ctx context.Context, ip string) models.Location {
	if s.geo == nil {
		return models.UnknownLocation()
	}
	loc, err := s.geo.Locate(ctx, ip)
	if err != nil {
		// гео — best effort, скан не должен падать из-за провайдера
		s.log.Debug("geo lookup failed", "ip", ip, "err", err)
		return models.UnknownLocation()
	}
	return loc
}

// publishScan шлёт событие в фоне: редирект не ждёт брокер.
func (s *Service) publishScan(trackingID string, scan *models.ScanEvent, dest string) {
	if s.producer == nil {
		return
	}
	msg := &messages.ScanRecorded{
		TrackingID:     trackingID,
		ScanID:         scan.ID,
		Timestamp:      scan.Timestamp,
		SourceIP:       scan.IP,
		UserAgent:      scan.UserAgent,
		Country:        scan.Location.Country,
		City:           scan.Location.City,
		DeviceType:     scan.Device.Type,
		Browser:        scan.Device.Browser,
		OS:             scan.Device.OS,
		DestinationURL: dest,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		b, err := json.Marshal(msg)
		if err != nil {
			s.log.Error("marshal scan message", "err", err)
			return
		}
		if err := s.producer.Publish(ctx, []byte(trackingID), b); err != nil {
			s.log.Error("publish scan message", "trackingId", trackingID, "err", err)
		}
	}()
}

// Analytics считает сводку по записи. Результат кэшируется целиком как JSON,
// устаревание в пределах TTL допустимо (сводка — для UI-поллинга).
func (s *Service) Analytics(ctx context.Context, id string) (*AnalyticsSummary, error) {
	if id == "" {
		return nil, models.NewValidationError("trackingId is required")
	}

	key := analyticsKey(id)
	if s.cache != nil && s.cacheTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var sum AnalyticsSummary
			if json.Unmarshal(b, &sum) == nil {
				return &sum, nil
			}
		}
	}

	rec, err := s.repo.GetTracking(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := Summarize(rec)

	if s.cache != nil && s.cacheTTL > 0 {
		if b, err := json.Marshal(sum); err == nil {
			_ = s.cache.Set(ctx, key, b, s.cacheTTL)
		}
	}
	return sum, nil
}

func (s *Service) Dashboard(ctx context.Context, ownerID string) ([]*DashboardRow, error) {
	records, err := s.repo.ListTrackings(ctx)
	if err != nil {
		return nil, err
	}
	rows := DashboardRows(records, ownerID)
	for _, row := range rows {
		row.TrackingURL = s.TrackingURL(row.TrackingID)
	}
	return rows, nil
}

func (s *Service) DashboardSummary(ctx context.Context, ownerID string) (*DashboardSummary, error) {
	records, err := s.repo.ListTrackings(ctx)
	if err != nil {
		return nil, err
	}
	return BuildDashboardSummary(records, ownerID), nil
}

func analyticsKey(id string) string {
	return "analytics:" + id
}
