package models

import "fmt"

// ValidationError — пользователь прислал некорректный ввод (HTTP 400).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError — неизвестный tracking id (HTTP 404).
type NotFoundError struct {
	TrackingID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tracking %q not found", e.TrackingID)
}

// LimitExceededError — лимит сканов исчерпан (HTTP 429).
// Счётчики нужны клиенту, чтобы показать конкретное сообщение.
type LimitExceededError struct {
	MaxScans     int
	CurrentScans int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("usage limit exceeded: %d of %d scans used", e.CurrentScans, e.MaxScans)
}
