package tracking

import (
	"sort"
	"time"

	"github.com/qrmint/scantrack/internal/models"
)

// Статусы записи на дашборде.
const (
	StatusActive   = "Active"
	StatusLimited  = "Limited"
	StatusExceeded = "Exceeded"
)

const recentLocationsLimit = 3

type DashboardRow struct {
	TrackingID  string    `json:"trackingId"`
	TrackingURL string    `json:"trackingUrl,omitempty"`
	OriginalURL string    `json:"originalUrl"`
	OwnerID     string    `json:"ownerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	TotalScans     int `json:"totalScans"`
	UniqueVisitors int `json:"uniqueVisitors"`

	TopLocation      string         `json:"topLocation"`
	TopLocationCount int            `json:"topLocationCount"`
	RecentLocations  []string       `json:"recentLocations"`
	LocationStats    map[string]int `json:"locationStats"`

	Status     string                   `json:"status"`
	LastScanAt *time.Time               `json:"lastScanAt,omitempty"`
	AppStore   *models.AppStoreConfig   `json:"appStoreRouting,omitempty"`
	UsageLimit *models.UsageLimitConfig `json:"usageLimit,omitempty"`
}

type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// DashboardSummary — сводка по всем строкам дашборда.
type DashboardSummary struct {
	TotalTrackings int             `json:"totalTrackings"`
	TotalScans     int             `json:"totalScans"`
	UniqueVisitors int             `json:"uniqueVisitors"`
	TopLocations   []LocationCount `json:"topLocations"`
}

// DashboardRows строит строки дашборда. Записи с другим ownerId отбрасываются,
// пустой ownerID означает административный просмотр без фильтра.
// Строки отсортированы по createdAt, новые впереди.
func DashboardRows(records []*models.TrackingRecord, ownerID string) []*DashboardRow {
	rows := make([]*DashboardRow, 0, len(records))
	for _, rec := range records {
		if ownerID != "" && rec.OwnerID != ownerID {
			continue
		}
		rows = append(rows, dashboardRow(rec))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows
}

func dashboardRow(rec *models.TrackingRecord) *DashboardRow {
	row := &DashboardRow{
		TrackingID:      rec.ID,
		OriginalURL:     rec.OriginalURL,
		OwnerID:         rec.OwnerID,
		CreatedAt:       rec.CreatedAt,
		TotalScans:      len(rec.Scans),
		RecentLocations: []string{},
		Status:          recordStatus(rec.UsageLimit),
		AppStore:        rec.AppStore,
		UsageLimit:      rec.UsageLimit,
	}

	visitors := map[string]struct{}{}
	counts := map[string]int{}
	// порядок первого появления нужен для детерминированного tie-break
	var order []string
	for _, sc := range rec.Scans {
		visitors[sc.IP] = struct{}{}
		country := orUnknown(sc.Location.Country)
		if _, ok := counts[country]; !ok {
			order = append(order, country)
		}
		counts[country]++
		if len(row.RecentLocations) < recentLocationsLimit && !containsString(row.RecentLocations, country) {
			row.RecentLocations = append(row.RecentLocations, country)
		}
	}
	row.UniqueVisitors = len(visitors)
	row.LocationStats = counts
	row.TopLocation, row.TopLocationCount = topLocation(counts, order)

	if len(rec.Scans) > 0 {
		ts := rec.Scans[0].Timestamp
		row.LastScanAt = &ts
	}
	return row
}

func recordStatus(limit *models.UsageLimitConfig) string {
	if limit == nil || !limit.Enabled || limit.MaxScans <= 0 {
		return StatusActive
	}
	if limit.CurrentScans >= limit.MaxScans {
		return StatusExceeded
	}
	if float64(limit.CurrentScans)/float64(limit.MaxScans) > 0.8 {
		return StatusLimited
	}
	return StatusActive
}

// topLocation выбирает страну с максимальным счётчиком. При равенстве
// выигрывает встреченная раньше, поэтому сравнение строго больше.
func topLocation(counts map[string]int, order []string) (string, int) {
	if len(order) == 0 {
		return "No scans", 0
	}
	best, bestCount := order[0], counts[order[0]]
	for _, loc := range order[1:] {
		if counts[loc] > bestCount {
			best, bestCount = loc, counts[loc]
		}
	}
	return best, bestCount
}

// BuildDashboardSummary сводит строки в общий срез и объединяет
// таблицы локаций в глобальный рейтинг.
func BuildDashboardSummary(records []*models.TrackingRecord, ownerID string) *DashboardSummary {
	sum := &DashboardSummary{TopLocations: []LocationCount{}}

	merged := map[string]int{}
	var order []string
	for _, rec := range records {
		if ownerID != "" && rec.OwnerID != ownerID {
			continue
		}
		sum.TotalTrackings++
		sum.TotalScans += len(rec.Scans)

		visitors := map[string]struct{}{}
		for _, sc := range rec.Scans {
			visitors[sc.IP] = struct{}{}
			country := orUnknown(sc.Location.Country)
			if _, ok := merged[country]; !ok {
				order = append(order, country)
			}
			merged[country]++
		}
		sum.UniqueVisitors += len(visitors)
	}

	for _, loc := range order {
		sum.TopLocations = append(sum.TopLocations, LocationCount{Location: loc, Count: merged[loc]})
	}
	sort.SliceStable(sum.TopLocations, func(i, j int) bool {
		return sum.TopLocations[i].Count > sum.TopLocations[j].Count
	})
	return sum
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
