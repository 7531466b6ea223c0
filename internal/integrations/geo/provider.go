package geo

import (
	"context"

	"github.com/qrmint/scantrack/internal/models"
)

// Provider резолвит IP источника скана в географию.
// Ошибки провайдера не должны блокировать запись скана: вызывающая сторона
// деградирует в models.UnknownLocation().
type Provider interface {
	Locate(ctx context.Context, ip string) (models.Location, error)
}
