package tracking

import "github.com/qrmint/scantrack/internal/models"

// Resolve вычисляет адрес редиректа для устройства, не трогая запись.
// Проверка лимита здесь предварительная: авторитетная идёт в AppendScan
// под блокировкой записи.
func Resolve(rec *models.TrackingRecord, dev models.DeviceInfo) (string, error) {
	if rec.UsageLimit != nil && rec.UsageLimit.Enabled && rec.UsageLimit.CurrentScans >= rec.UsageLimit.MaxScans {
		return "", &models.LimitExceededError{
			MaxScans:     rec.UsageLimit.MaxScans,
			CurrentScans: rec.UsageLimit.CurrentScans,
		}
	}
	return Destination(rec.OriginalURL, rec.AppStore, dev), nil
}

// Destination — чистая функция выбора адреса. Порядок фиксированный:
// iOS-стор, затем Android-стор, затем fallback, иначе исходный URL.
func Destination(originalURL string, app *models.AppStoreConfig, dev models.DeviceInfo) string {
	if app == nil || !app.Enabled {
		return originalURL
	}
	if dev.IsIOS && app.IOSURL != "" {
		return app.IOSURL
	}
	if dev.IsAndroid && app.AndroidURL != "" {
		return app.AndroidURL
	}
	if app.FallbackURL != "" {
		return app.FallbackURL
	}
	return originalURL
}
