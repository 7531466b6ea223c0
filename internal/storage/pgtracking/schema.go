package pgtracking

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS trackings (
  id TEXT PRIMARY KEY,
  original_url TEXT NOT NULL,
  owner_id TEXT NOT NULL DEFAULT '',
  app_store_set BOOLEAN NOT NULL DEFAULT FALSE,
  app_store_enabled BOOLEAN NOT NULL DEFAULT FALSE,
  app_ios_url TEXT NOT NULL DEFAULT '',
  app_android_url TEXT NOT NULL DEFAULT '',
  app_fallback_url TEXT NOT NULL DEFAULT '',
  limit_set BOOLEAN NOT NULL DEFAULT FALSE,
  limit_enabled BOOLEAN NOT NULL DEFAULT FALSE,
  max_scans INT NOT NULL DEFAULT 0,
  current_scans INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_trackings_created_at ON trackings(created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS scan_events (
  seq BIGSERIAL PRIMARY KEY,
  scan_id TEXT NOT NULL,
  tracking_id TEXT NOT NULL REFERENCES trackings(id) ON DELETE CASCADE,
  scanned_at TIMESTAMPTZ NOT NULL,
  user_agent TEXT NOT NULL DEFAULT '',
  ip TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
  longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
  device_type TEXT NOT NULL DEFAULT '',
  browser TEXT NOT NULL DEFAULT '',
  os TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_events_tracking_id_seq ON scan_events(tracking_id, seq DESC)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_scan_events_scan_id ON scan_events(scan_id)`,
		`
CREATE TABLE IF NOT EXISTS scan_archive (
  id BIGSERIAL PRIMARY KEY,
  scan_id TEXT NOT NULL,
  tracking_id TEXT NOT NULL,
  scanned_at TIMESTAMPTZ NOT NULL,
  source_ip TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  device_type TEXT NOT NULL DEFAULT '',
  browser TEXT NOT NULL DEFAULT '',
  os TEXT NOT NULL DEFAULT '',
  destination_url TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_archive_tracking_id ON scan_archive(tracking_id)`,
		// дедупликация архива: консьюмер может доставить скан повторно
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_scan_archive_scan_id ON scan_archive(scan_id)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
