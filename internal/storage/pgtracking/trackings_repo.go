package pgtracking

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/qrmint/scantrack/internal/models"
)

func (s *Storage) CreateTracking(ctx context.Context, rec *models.TrackingRecord) error {
	appStoreSet := rec.AppStore != nil
	app := models.AppStoreConfig{}
	if appStoreSet {
		app = *rec.AppStore
	}
	limitSet := rec.UsageLimit != nil
	limit := models.UsageLimitConfig{}
	if limitSet {
		limit = *rec.UsageLimit
	}

	_, err := s.db.Exec(ctx, `
INSERT INTO trackings (
  id, original_url, owner_id,
  app_store_set, app_store_enabled, app_ios_url, app_android_url, app_fallback_url,
  limit_set, limit_enabled, max_scans, current_scans,
  created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, rec.ID, rec.OriginalURL, rec.OwnerID,
		appStoreSet, app.Enabled, app.IOSURL, app.AndroidURL, app.FallbackURL,
		limitSet, limit.Enabled, limit.MaxScans, limit.CurrentScans,
		rec.CreatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "insert tracking")
	}
	return nil
}

func (s *Storage) GetTracking(ctx context.Context, id string) (*models.TrackingRecord, error) {
	rec, err := scanTrackingRow(s.db.QueryRow(ctx, selectTrackingSQL+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{TrackingID: id}
		}
		return nil, errors.Wrap(err, "select tracking")
	}

	scans, err := s.listScans(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Scans = scans
	return rec, nil
}

// AppendScan атомарно проверяет лимит и добавляет скан. Строка трекинга
// блокируется через SELECT ... FOR UPDATE, так что конкурентные сканы
// сериализуются и не проходят сверх лимита.
func (s *Storage) AppendScan(ctx context.Context, id string, scan *models.ScanEvent) (*models.UsageLimitConfig, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var limitSet, limitEnabled bool
	var maxScans, currentScans int
	err = tx.QueryRow(ctx, `
SELECT limit_set, limit_enabled, max_scans, current_scans
FROM trackings
WHERE id = $1
FOR UPDATE
`, id).Scan(&limitSet, &limitEnabled, &maxScans, &currentScans)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{TrackingID: id}
		}
		return nil, errors.Wrap(err, "select tracking for update")
	}

	if limitSet && limitEnabled && currentScans >= maxScans {
		return nil, &models.LimitExceededError{MaxScans: maxScans, CurrentScans: currentScans}
	}

	_, err = tx.Exec(ctx, `
INSERT INTO scan_events (
  scan_id, tracking_id, scanned_at, user_agent, ip,
  country, city, latitude, longitude,
  device_type, browser, os
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`, scan.ID, id, scan.Timestamp.UTC(), scan.UserAgent, scan.IP,
		scan.Location.Country, scan.Location.City, scan.Location.Latitude, scan.Location.Longitude,
		scan.Device.Type, scan.Device.Browser, scan.Device.OS)
	if err != nil {
		return nil, errors.Wrap(err, "insert scan event")
	}

	if limitSet && limitEnabled {
		currentScans++
		_, err = tx.Exec(ctx, `UPDATE trackings SET current_scans = $2 WHERE id = $1`, id, currentScans)
		if err != nil {
			return nil, errors.Wrap(err, "update scan count")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	if !limitSet {
		return nil, nil
	}
	return &models.UsageLimitConfig{Enabled: limitEnabled, MaxScans: maxScans, CurrentScans: currentScans}, nil
}

func (s *Storage) ListTrackings(ctx context.Context) ([]*models.TrackingRecord, error) {
	rows, err := s.db.Query(ctx, selectTrackingSQL+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "select trackings")
	}
	defer rows.Close()

	out := make([]*models.TrackingRecord, 0)
	for rows.Next() {
		rec, err := scanTrackingRow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan tracking")
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	for _, rec := range out {
		scans, err := s.listScans(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		rec.Scans = scans
	}
	return out, nil
}

const selectTrackingSQL = `
SELECT
  id, original_url, owner_id,
  app_store_set, app_store_enabled, app_ios_url, app_android_url, app_fallback_url,
  limit_set, limit_enabled, max_scans, current_scans,
  created_at
FROM trackings`

func scanTrackingRow(row pgx.Row) (*models.TrackingRecord, error) {
	var rec models.TrackingRecord
	var appStoreSet, limitSet bool
	var app models.AppStoreConfig
	var limit models.UsageLimitConfig
	if err := row.Scan(
		&rec.ID, &rec.OriginalURL, &rec.OwnerID,
		&appStoreSet, &app.Enabled, &app.IOSURL, &app.AndroidURL, &app.FallbackURL,
		&limitSet, &limit.Enabled, &limit.MaxScans, &limit.CurrentScans,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if appStoreSet {
		rec.AppStore = &app
	}
	if limitSet {
		rec.UsageLimit = &limit
	}
	rec.Scans = []*models.ScanEvent{}
	return &rec, nil
}

func (s *Storage) listScans(ctx context.Context, trackingID string) ([]*models.ScanEvent, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  scan_id, scanned_at, user_agent, ip,
  country, city, latitude, longitude,
  device_type, browser, os
FROM scan_events
WHERE tracking_id = $1
ORDER BY seq DESC
`, trackingID)
	if err != nil {
		return nil, errors.Wrap(err, "select scans")
	}
	defer rows.Close()

	out := make([]*models.ScanEvent, 0)
	for rows.Next() {
		var sc models.ScanEvent
		if err := rows.Scan(
			&sc.ID, &sc.Timestamp, &sc.UserAgent, &sc.IP,
			&sc.Location.Country, &sc.Location.City, &sc.Location.Latitude, &sc.Location.Longitude,
			&sc.Device.Type, &sc.Device.Browser, &sc.Device.OS,
		); err != nil {
			return nil, errors.Wrap(err, "scan event row")
		}
		out = append(out, &sc)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
