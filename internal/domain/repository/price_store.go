package repository

import (
	"context"

	"FinPrompt/internal/domain/models"
)

// PriceStore reads the raw price history from an external store.
type PriceStore interface {
	LoadPriceRows(ctx context.Context) ([]models.PriceRow, error)
}
