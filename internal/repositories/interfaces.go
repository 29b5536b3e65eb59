package repositories

import (
	"context"
	"errors"

	domain "github.com/valitor-commerce/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation
// used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// IsNotFound reports whether err represents a missing record.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

// OrderRepository loads and persists orders synced from the host platform.
type OrderRepository interface {
	// LoadByIncrementID resolves an order by the host's public increment id.
	LoadByIncrementID(ctx context.Context, incrementID string) (domain.Order, error)
	// Save persists the order, including appended status history entries.
	Save(ctx context.Context, order domain.Order) error
}

// TaxLineRepository exposes the persisted tax line items of an order.
type TaxLineRepository interface {
	ListByOrderID(ctx context.Context, orderID string) ([]domain.TaxLine, error)
}

// CartRuleRepository loads cart price rules referenced by order items.
type CartRuleRepository interface {
	FindByID(ctx context.Context, ruleID string) (domain.CartRule, error)
}

// ProductRepository loads catalog products for summary display.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
}

// StoreConfigRepository reads store-scoped configuration values by path.
// A missing value is returned as the empty string with a nil error.
type StoreConfigRepository interface {
	Value(ctx context.Context, storeCode, path string) (string, error)
}
