package device

import (
	"strings"

	"github.com/qrmint/scantrack/internal/models"
)

// Classify разбирает сырую строку user-agent в структурное описание устройства.
// Чистая функция: нет состояния, нет ошибок — всё нераспознанное деградирует
// в "Unknown"/"desktop".
//
// Порядок проверок фиксирован и менять его нельзя: часть сигнатур содержит
// несколько маркеров сразу (WebView со строками "Safari" и "Chrome" должен
// классифицироваться как Chrome, потому что Chrome проверяется первым).
func Classify(userAgent string) models.DeviceInfo {
	isMobile := containsAny(userAgent, "Mobile", "Android", "iPhone", "iPad")
	isTablet := containsAny(userAgent, "iPad", "Tablet")
	isIOS := containsAny(userAgent, "iPhone", "iPad", "iPod")
	isAndroid := strings.Contains(userAgent, "Android")

	devType := models.DeviceDesktop
	switch {
	case isTablet:
		devType = models.DeviceTablet
	case isMobile:
		devType = models.DeviceMobile
	}

	return models.DeviceInfo{
		Type:      devType,
		Browser:   detectBrowser(userAgent),
		OS:        detectOS(userAgent, isIOS),
		IsIOS:     isIOS,
		IsAndroid: isAndroid,
	}
}

func detectBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "Chrome"):
		return "Chrome"
	case strings.Contains(ua, "Firefox"):
		return "Firefox"
	case strings.Contains(ua, "Safari"):
		return "Safari"
	case strings.Contains(ua, "Edge"):
		return "Edge"
	default:
		return models.UnknownValue
	}
}

func detectOS(ua string, isIOS bool) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "iOS") || isIOS:
		return "iOS"
	default:
		return models.UnknownValue
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
