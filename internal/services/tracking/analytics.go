package tracking

import (
	"time"

	"github.com/qrmint/scantrack/internal/models"
)

const recentScansLimit = 20

// AnalyticsSummary — срез статистики по одной записи, считается на чтении.
type AnalyticsSummary struct {
	TrackingID  string    `json:"trackingId"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`

	AppStore   *models.AppStoreConfig   `json:"appStoreRouting,omitempty"`
	UsageLimit *models.UsageLimitConfig `json:"usageLimit,omitempty"`

	TotalScans     int                 `json:"totalScans"`
	UniqueVisitors int                 `json:"uniqueVisitors"`
	Statistics     AnalyticsStatistics `json:"statistics"`

	RecentScans []*models.ScanEvent `json:"recentScans"`
	Scans       []*models.ScanEvent `json:"scans"`
}

// AnalyticsStatistics — частотные таблицы по каждому измерению скана.
type AnalyticsStatistics struct {
	Devices          map[string]int `json:"devices"`
	Browsers         map[string]int `json:"browsers"`
	OperatingSystems map[string]int `json:"operatingSystems"`
	Locations        map[string]int `json:"locations"`
}

// Summarize — чистая функция над rec.Scans, ничего не пишет и не кэширует.
func Summarize(rec *models.TrackingRecord) *AnalyticsSummary {
	sum := &AnalyticsSummary{
		TrackingID:       rec.ID,
		OriginalURL:      rec.OriginalURL,
		CreatedAt:        rec.CreatedAt,
		AppStore:         rec.AppStore,
		UsageLimit:       rec.UsageLimit,
		TotalScans: len(rec.Scans),
		Statistics: AnalyticsStatistics{
			Devices:          map[string]int{},
			Browsers:         map[string]int{},
			OperatingSystems: map[string]int{},
			Locations:        map[string]int{},
		},
		RecentScans: []*models.ScanEvent{},
		Scans:       rec.Scans,
	}
	if sum.Scans == nil {
		sum.Scans = []*models.ScanEvent{}
	}

	visitors := map[string]struct{}{}
	for _, sc := range rec.Scans {
		visitors[sc.IP] = struct{}{}
		sum.Statistics.Devices[orUnknown(sc.Device.Type)]++
		sum.Statistics.Browsers[orUnknown(sc.Device.Browser)]++
		sum.Statistics.OperatingSystems[orUnknown(sc.Device.OS)]++
		sum.Statistics.Locations[orUnknown(sc.Location.Country)]++
	}
	sum.UniqueVisitors = len(visitors)

	n := len(rec.Scans)
	if n > recentScansLimit {
		n = recentScansLimit
	}
	sum.RecentScans = append(sum.RecentScans, rec.Scans[:n]...)
	return sum
}

func orUnknown(v string) string {
	if v == "" {
		return models.UnknownValue
	}
	return v
}
