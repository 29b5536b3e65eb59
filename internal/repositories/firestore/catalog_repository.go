package firestore

import (
	"context"
	"errors"
	"strings"

	domain "github.com/valitor-commerce/api/internal/domain"
	pfirestore "github.com/valitor-commerce/api/internal/platform/firestore"
)

const (
	productCollection  = "products"
	cartRuleCollection = "cartRules"
)

// ProductRepository reads catalog products synced from the host platform.
type ProductRepository struct {
	provider *pfirestore.Provider
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{provider: provider}, nil
}

type productDocument struct {
	Name      string `firestore:"name"`
	URL       string `firestore:"url,omitempty"`
	Thumbnail string `firestore:"thumbnail,omitempty"`
}

// FindByID loads a product by its host identifier.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("products.find", err)
	}

	snap, err := client.Collection(productCollection).Doc(productID).Get(ctx)
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("products.find", err)
	}

	var doc productDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Product{}, pfirestore.WrapError("products.find", err)
	}
	return domain.Product{
		ID:        snap.Ref.ID,
		Name:      doc.Name,
		URL:       doc.URL,
		Thumbnail: doc.Thumbnail,
	}, nil
}

// CartRuleRepository reads cart price rules referenced by order items.
type CartRuleRepository struct {
	provider *pfirestore.Provider
}

// NewCartRuleRepository constructs a Firestore-backed cart rule repository.
func NewCartRuleRepository(provider *pfirestore.Provider) (*CartRuleRepository, error) {
	if provider == nil {
		return nil, errors.New("cart rule repository requires firestore provider")
	}
	return &CartRuleRepository{provider: provider}, nil
}

type cartRuleDocument struct {
	Name            string `firestore:"name,omitempty"`
	ApplyToShipping bool   `firestore:"applyToShipping"`
}

// FindByID loads a cart price rule by its host identifier.
func (r *CartRuleRepository) FindByID(ctx context.Context, ruleID string) (domain.CartRule, error) {
	ruleID = strings.TrimSpace(ruleID)
	if ruleID == "" {
		return domain.CartRule{}, errors.New("cart rule repository: rule id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CartRule{}, pfirestore.WrapError("cartrules.find", err)
	}

	snap, err := client.Collection(cartRuleCollection).Doc(ruleID).Get(ctx)
	if err != nil {
		return domain.CartRule{}, pfirestore.WrapError("cartrules.find", err)
	}

	var doc cartRuleDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.CartRule{}, pfirestore.WrapError("cartrules.find", err)
	}
	return domain.CartRule{
		ID:              snap.Ref.ID,
		Name:            doc.Name,
		ApplyToShipping: doc.ApplyToShipping,
	}, nil
}
