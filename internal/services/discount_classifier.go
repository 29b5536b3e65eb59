package services

import (
	"context"
	"errors"

	domain "github.com/valitor-commerce/api/internal/domain"
	"github.com/valitor-commerce/api/internal/repositories"
)

// DiscountClassifier decides whether every eligible order item is covered by
// an apply-to-shipping cart price rule. When that holds, per-item discount
// percentages would double-count against the order-level coupon, so the
// refund uses a single lump discount line instead.
type DiscountClassifier struct {
	rules repositories.CartRuleRepository
}

// NewDiscountClassifier constructs a DiscountClassifier.
func NewDiscountClassifier(rules repositories.CartRuleRepository) (*DiscountClassifier, error) {
	if rules == nil {
		return nil, errors.New("discount classifier: cart rule repository is required")
	}
	return &DiscountClassifier{rules: rules}, nil
}

// AllItemsDiscounted folds over the order's visible items. An item with no
// applied rules, or with any rule lacking the apply-to-shipping flag on a
// shippable product, settles the answer to false. A rule id that no longer
// resolves behaves like a rule without the flag.
func (c *DiscountClassifier) AllItemsDiscounted(ctx context.Context, items []domain.OrderItem) (bool, error) {
	for _, item := range items {
		ids := item.RuleIDs()
		if len(ids) == 0 {
			return false, nil
		}
		for _, id := range ids {
			rule, err := c.rules.FindByID(ctx, id)
			if err != nil {
				if repositories.IsNotFound(err) {
					rule = domain.CartRule{ID: id}
				} else {
					return false, err
				}
			}
			if rule.ApplyToShipping {
				continue
			}
			if item.ProductType != domain.ProductTypeVirtual && item.ProductType != domain.ProductTypeDownloadable {
				return false, nil
			}
		}
	}
	return true, nil
}
