package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	domain "github.com/valitor-commerce/api/internal/domain"
	"github.com/valitor-commerce/api/internal/repositories"
)

// ShippingTaxResolver infers the tax percent attributable to shipping from
// the order's persisted tax line items.
type ShippingTaxResolver struct {
	taxLines repositories.TaxLineRepository
}

// NewShippingTaxResolver constructs a ShippingTaxResolver.
func NewShippingTaxResolver(taxLines repositories.TaxLineRepository) (*ShippingTaxResolver, error) {
	if taxLines == nil {
		return nil, errors.New("shipping tax resolver: tax line repository is required")
	}
	return &ShippingTaxResolver{taxLines: taxLines}, nil
}

// ShippingTaxPercent sums the tax percent over shipping-typed tax lines.
// Normally at most one exists; summing covers orders where the tax engine
// recorded several. Zero when none exist.
func (r *ShippingTaxResolver) ShippingTaxPercent(ctx context.Context, orderID string) (decimal.Decimal, error) {
	lines, err := r.taxLines.ListByOrderID(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	percent := decimal.Zero
	for _, line := range lines {
		if line.TaxableItemType == domain.TaxableItemTypeShipping {
			percent = percent.Add(line.TaxPercent)
		}
	}
	return percent, nil
}
