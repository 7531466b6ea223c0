package models

import "time"

// Типы устройств (фиксированный словарь для агрегации).
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// UnknownValue подставляется везде, где метаданные скана не распознаны.
const UnknownValue = "Unknown"

// TrackingRecord — одна отслеживаемая ссылка, под которую генерируется QR-код.
// Все поля кроме UsageLimit.CurrentScans и Scans неизменяемы после создания.
type TrackingRecord struct {
	ID          string            `json:"id"`
	OriginalURL string            `json:"originalUrl"`
	CreatedAt   time.Time         `json:"createdAt"`
	OwnerID     string            `json:"ownerId,omitempty"`
	AppStore    *AppStoreConfig   `json:"appStoreRouting,omitempty"`
	UsageLimit  *UsageLimitConfig `json:"usageLimit,omitempty"`

	// Scans хранится в порядке записи, новые впереди (Scans[0] — последний скан).
	Scans []*ScanEvent `json:"scans"`
}

// AppStoreConfig — маршрутизация на сторы по типу устройства.
type AppStoreConfig struct {
	Enabled     bool   `json:"enabled"`
	IOSURL      string `json:"iosUrl"`
	AndroidURL  string `json:"androidUrl"`
	FallbackURL string `json:"fallbackUrl"`
}

// UsageLimitConfig — лимит сканов. CurrentScans меняется только в AppendScan.
type UsageLimitConfig struct {
	Enabled      bool `json:"enabled"`
	MaxScans     int  `json:"maxScans"`
	CurrentScans int  `json:"currentScans"`
}

// ScanEvent — одна зафиксированная попытка редиректа. Неизменяем после записи.
type ScanEvent struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	UserAgent string     `json:"userAgent"`
	IP        string     `json:"ip"`
	Location  Location   `json:"location"`
	Device    ScanDevice `json:"device"`
}

type Location struct {
	Country   string  `json:"country"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ScanDevice — то, что сохраняется на событии (без iOS/Android-флагов,
// они нужны только резолверу в момент скана).
type ScanDevice struct {
	Type    string `json:"type"`
	Browser string `json:"browser"`
	OS      string `json:"os"`
}

// DeviceInfo — полный результат классификации user-agent.
type DeviceInfo struct {
	Type      string `json:"type"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
	IsIOS     bool   `json:"isIOS"`
	IsAndroid bool   `json:"isAndroid"`
}

type TrackingCreateInput struct {
	OriginalURL string
	OwnerID     string
	AppStore    *AppStoreConfig
	UsageLimit  *UsageLimitConfig
}

// UnknownLocation — заглушка, пока geo-провайдер не настроен.
func UnknownLocation() Location {
	return Location{Country: UnknownValue, City: UnknownValue}
}
