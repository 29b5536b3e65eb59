package services

import (
	"context"
	"errors"
	"strings"

	domain "github.com/valitor-commerce/api/internal/domain"
	"github.com/valitor-commerce/api/internal/repositories"
)

// taxConfigPriceIncludesTax is the host's store-scoped configuration path for
// tax-inclusive catalog pricing.
const taxConfigPriceIncludesTax = "tax/calculation/price_includes_tax"

// PricingModeResolver determines whether an order's prices contain tax.
type PricingModeResolver struct {
	config repositories.StoreConfigRepository
}

// NewPricingModeResolver constructs a PricingModeResolver.
func NewPricingModeResolver(config repositories.StoreConfigRepository) (*PricingModeResolver, error) {
	if config == nil {
		return nil, errors.New("pricing mode resolver: store config repository is required")
	}
	return &PricingModeResolver{config: config}, nil
}

// Resolve returns the order's pricing mode. An order-level override recorded
// at order creation wins; otherwise the store configuration decides, with a
// missing value defaulting to tax-exclusive.
func (r *PricingModeResolver) Resolve(ctx context.Context, order domain.Order) (domain.PricingMode, error) {
	if order.PriceIncludesTaxOverride != nil {
		if *order.PriceIncludesTaxOverride {
			return domain.TaxInclusive, nil
		}
		return domain.TaxExclusive, nil
	}

	value, err := r.config.Value(ctx, order.StoreCode, taxConfigPriceIncludesTax)
	if err != nil {
		return domain.TaxExclusive, err
	}
	if strings.TrimSpace(value) == "1" {
		return domain.TaxInclusive, nil
	}
	return domain.TaxExclusive, nil
}
