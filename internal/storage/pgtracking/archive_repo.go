package pgtracking

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/qrmint/scantrack/internal/broker/messages"
)

// InsertArchivedScans пишет пачку сканов из брокера в архивную таблицу.
// Повторные доставки того же скана игнорируются по scan_id.
func (s *Storage) InsertArchivedScans(ctx context.Context, scans []*messages.ScanRecorded) error {
	if len(scans) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, sc := range scans {
		_, err := tx.Exec(ctx, `
INSERT INTO scan_archive (
  scan_id, tracking_id, scanned_at, source_ip, user_agent,
  country, city, device_type, browser, os, destination_url, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now())
ON CONFLICT (scan_id) DO NOTHING
`, sc.ScanID, sc.TrackingID, sc.Timestamp.UTC(), sc.SourceIP, sc.UserAgent,
			sc.Country, sc.City, sc.DeviceType, sc.Browser, sc.OS, sc.DestinationURL)
		if err != nil {
			return errors.Wrap(err, "insert archived scan")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func (s *Storage) CountArchivedScans(ctx context.Context, trackingID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM scan_archive WHERE tracking_id = $1`, trackingID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count archived scans")
	}
	return n, nil
}
