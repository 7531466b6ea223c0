package noop

import (
	"context"

	"github.com/qrmint/scantrack/internal/models"
)

// Client — geo-провайдер по умолчанию: всегда "Unknown" с нулевыми
// координатами. Реальная интеграция подключается конфигом.
type Client struct{}

func New() *Client { return &Client{} }

func (c *Client) Locate(ctx context.Context, ip string) (models.Location, error) {
	return models.UnknownLocation(), nil
}
