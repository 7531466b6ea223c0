package messages

import "time"

// ScanRecorded публикуется scan-api после каждой успешной записи скана.
// Доставка best-effort: потерянное сообщение не влияет на систему записи.
type ScanRecorded struct {
	TrackingID string    `json:"tracking_id"`
	ScanID     string    `json:"scan_id"`
	Timestamp  time.Time `json:"timestamp"`

	SourceIP  string `json:"source_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`

	DeviceType string `json:"device_type,omitempty"`
	Browser    string `json:"browser,omitempty"`
	OS         string `json:"os,omitempty"`

	DestinationURL string `json:"destination_url,omitempty"`
}
