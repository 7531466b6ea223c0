package tracking

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qrmint/scantrack/internal/models"
)

func scanAt(id, ip, country, devType, browser, os string) *models.ScanEvent {
	return &models.ScanEvent{
		ID:        id,
		Timestamp: time.Now().UTC(),
		UserAgent: "ua-" + id,
		IP:        ip,
		Location:  models.Location{Country: country, City: "City"},
		Device:    models.ScanDevice{Type: devType, Browser: browser, OS: os},
	}
}

func TestSummarize_Empty(t *testing.T) {
	rec := &models.TrackingRecord{ID: "t1", OriginalURL: "https://example.com"}
	sum := Summarize(rec)

	require.Equal(t, "t1", sum.TrackingID)
	require.Zero(t, sum.TotalScans)
	require.Zero(t, sum.UniqueVisitors)
	require.Empty(t, sum.Statistics.Devices)
	require.NotNil(t, sum.Scans)
	require.NotNil(t, sum.RecentScans)
}

func TestSummarize_Counts(t *testing.T) {
	rec := &models.TrackingRecord{
		ID:          "t1",
		OriginalURL: "https://example.com",
		Scans: []*models.ScanEvent{
			scanAt("s3", "1.1.1.1", "Germany", models.DeviceMobile, "Chrome", "Android"),
			scanAt("s2", "2.2.2.2", "France", models.DeviceDesktop, "Firefox", "Windows"),
			scanAt("s1", "1.1.1.1", "Germany", models.DeviceMobile, "Chrome", "Android"),
		},
	}
	sum := Summarize(rec)

	require.Equal(t, 3, sum.TotalScans)
	require.Equal(t, 2, sum.UniqueVisitors)
	require.Equal(t, map[string]int{models.DeviceMobile: 2, models.DeviceDesktop: 1}, sum.Statistics.Devices)
	require.Equal(t, map[string]int{"Chrome": 2, "Firefox": 1}, sum.Statistics.Browsers)
	require.Equal(t, map[string]int{"Android": 2, "Windows": 1}, sum.Statistics.OperatingSystems)
	require.Equal(t, map[string]int{"Germany": 2, "France": 1}, sum.Statistics.Locations)
	require.Len(t, sum.RecentScans, 3)
	require.Equal(t, "s3", sum.RecentScans[0].ID)
}

func TestSummarize_EmptyMetadataCountsAsUnknown(t *testing.T) {
	rec := &models.TrackingRecord{
		ID: "t1",
		Scans: []*models.ScanEvent{
			scanAt("s1", "1.1.1.1", "", "", "", ""),
		},
	}
	sum := Summarize(rec)
	require.Equal(t, map[string]int{models.UnknownValue: 1}, sum.Statistics.Browsers)
	require.Equal(t, map[string]int{models.UnknownValue: 1}, sum.Statistics.Locations)
}

func TestSummarize_StatisticsNestedInJSON(t *testing.T) {
	rec := &models.TrackingRecord{
		ID:          "t1",
		OriginalURL: "https://example.com",
		Scans: []*models.ScanEvent{
			scanAt("s2", "1.1.1.1", "Germany", models.DeviceDesktop, "Chrome", "Windows"),
			scanAt("s1", "2.2.2.2", "Germany", models.DeviceMobile, "Safari", "iOS"),
		},
	}

	b, err := json.Marshal(Summarize(rec))
	require.NoError(t, err)

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &out))
	require.Contains(t, out, "statistics")
	require.NotContains(t, out, "devices")

	var st AnalyticsStatistics
	require.NoError(t, json.Unmarshal(out["statistics"], &st))
	require.Equal(t, map[string]int{models.DeviceDesktop: 1, models.DeviceMobile: 1}, st.Devices)

	total := 0
	for _, n := range st.Devices {
		total += n
	}
	require.Equal(t, len(rec.Scans), total)
}

func TestSummarize_RecentScansCapped(t *testing.T) {
	rec := &models.TrackingRecord{ID: "t1"}
	for i := 0; i < 25; i++ {
		rec.Scans = append(rec.Scans, scanAt(fmt.Sprintf("s%d", i), "1.1.1.1", "Germany", models.DeviceMobile, "Chrome", "Android"))
	}
	sum := Summarize(rec)
	require.Equal(t, 25, sum.TotalScans)
	require.Len(t, sum.RecentScans, 20)
	require.Equal(t, rec.Scans[0].ID, sum.RecentScans[0].ID)
	require.Len(t, sum.Scans, 25)
}
