package device

import (
	"testing"

	"github.com/qrmint/scantrack/internal/models"
	"github.com/stretchr/testify/require"
)

func TestClassify_Table(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want models.DeviceInfo
	}{
		{
			name: "empty",
			ua:   "",
			want: models.DeviceInfo{Type: "desktop", Browser: "Unknown", OS: "Unknown"},
		},
		{
			name: "iphone safari",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0) AppleWebKit/605.1.15 (KHTML) Version/15.0 Mobile/15E148 Safari/604.1",
			want: models.DeviceInfo{Type: "mobile", Browser: "Safari", OS: "iOS", IsIOS: true},
		},
		{
			name: "ipad is tablet",
			ua:   "Mozilla/5.0 (iPad; CPU OS 15_0) AppleWebKit/605.1.15 Safari/604.1",
			want: models.DeviceInfo{Type: "tablet", Browser: "Safari", OS: "iOS", IsIOS: true},
		},
		{
			// Android-строка содержит и "Linux" — по порядку приоритетов ОС
			// остаётся Linux, а isAndroid всё равно взводится.
			name: "android chrome",
			ua:   "Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 Chrome/101.0 Mobile Safari/537.36",
			want: models.DeviceInfo{Type: "mobile", Browser: "Chrome", OS: "Linux", IsAndroid: true},
		},
		{
			name: "android without linux marker",
			ua:   "Dalvik/2.1.0 (Android 11; SM-G991B) Mobile",
			want: models.DeviceInfo{Type: "mobile", Browser: "Unknown", OS: "Android", IsAndroid: true},
		},
		{
			name: "windows desktop chrome",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
			want: models.DeviceInfo{Type: "desktop", Browser: "Chrome", OS: "Windows"},
		},
		{
			name: "mac firefox",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:109.0) Gecko/20100101 Firefox/115.0",
			want: models.DeviceInfo{Type: "desktop", Browser: "Firefox", OS: "macOS"},
		},
		{
			// WebView с "Safari" и "Chrome" одновременно: побеждает Chrome,
			// он первый в порядке проверки.
			name: "webview resolves to chrome",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0) AppleWebKit/605.1.15 CriOS Chrome/116.0 Mobile Safari/604.1",
			want: models.DeviceInfo{Type: "mobile", Browser: "Chrome", OS: "iOS", IsIOS: true},
		},
		{
			name: "generic tablet",
			ua:   "Mozilla/5.0 (Tablet; rv:68.0) Gecko/68.0 Firefox/68.0",
			want: models.DeviceInfo{Type: "tablet", Browser: "Firefox", OS: "Unknown"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.ua))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0) AppleWebKit/605.1.15 Safari/604.1"
	first := Classify(ua)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Classify(ua))
	}
}
