// Package firestore contains the Firestore adapters behind the repository
// ports. The documents mirror host-platform records synced into the bridge's
// datastore; monetary amounts are stored as strings to keep them exact.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	domain "github.com/valitor-commerce/api/internal/domain"
	pfirestore "github.com/valitor-commerce/api/internal/platform/firestore"
)

const (
	orderCollection       = "orders"
	taxLineSubcollection  = "taxLines"
	orderIncrementIDField = "incrementId"
)

// OrderRepository persists orders synced from the host platform.
type OrderRepository struct {
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{provider: provider}, nil
}

type orderDocument struct {
	IncrementID    string `firestore:"incrementId"`
	StoreCode      string `firestore:"storeCode"`
	AppliedRuleIDs string `firestore:"appliedRuleIds,omitempty"`

	PaymentMethod      string `firestore:"paymentMethod"`
	PaymentLastTransID string `firestore:"paymentLastTransId,omitempty"`

	ShippingAmount          string `firestore:"shippingAmount,omitempty"`
	ShippingDiscountAmount  string `firestore:"shippingDiscountAmount,omitempty"`
	ShippingDiscountTaxComp string `firestore:"shippingDiscountTaxComp,omitempty"`

	PriceIncludesTax *bool `firestore:"priceIncludesTax,omitempty"`

	ShippingAddress *addressDocument `firestore:"shippingAddress,omitempty"`
	BillingAddress  *addressDocument `firestore:"billingAddress,omitempty"`

	Items         []orderItemDocument     `firestore:"items"`
	StatusHistory []statusHistoryDocument `firestore:"statusHistory,omitempty"`

	GrandTotal   string    `firestore:"grandTotal"`
	CurrencyCode string    `firestore:"currencyCode"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

type orderItemDocument struct {
	ItemID         string `firestore:"itemId"`
	ProductID      string `firestore:"productId,omitempty"`
	SKU            string `firestore:"sku,omitempty"`
	Name           string `firestore:"name"`
	SimpleName     string `firestore:"simpleName,omitempty"`
	ProductType    string `firestore:"productType"`
	TaxPercent     string `firestore:"taxPercent,omitempty"`
	QtyOrdered     string `firestore:"qtyOrdered,omitempty"`
	OriginalPrice  string `firestore:"originalPrice,omitempty"`
	PriceInclTax   string `firestore:"priceInclTax,omitempty"`
	BaseRowTotal   string `firestore:"baseRowTotal,omitempty"`
	AppliedRuleIDs string `firestore:"appliedRuleIds,omitempty"`
	ProductURL     string `firestore:"productUrl,omitempty"`
	Thumbnail      string `firestore:"thumbnail,omitempty"`
}

type statusHistoryDocument struct {
	Comment          string    `firestore:"comment"`
	CustomerNotified bool      `firestore:"customerNotified"`
	CreatedAt        time.Time `firestore:"createdAt"`
}

type addressDocument struct {
	Firstname  string   `firestore:"firstname,omitempty"`
	Lastname   string   `firestore:"lastname,omitempty"`
	Street     []string `firestore:"street,omitempty"`
	City       string   `firestore:"city,omitempty"`
	Region     string   `firestore:"region,omitempty"`
	PostalCode string   `firestore:"postalCode,omitempty"`
	Country    string   `firestore:"country,omitempty"`
	Telephone  string   `firestore:"telephone,omitempty"`
}

type taxLineDocument struct {
	TaxableItemType string `firestore:"taxableItemType"`
	TaxPercent      string `firestore:"taxPercent"`
}

// LoadByIncrementID resolves an order by the host's public increment id.
func (r *OrderRepository) LoadByIncrementID(ctx context.Context, incrementID string) (domain.Order, error) {
	incrementID = strings.TrimSpace(incrementID)
	if incrementID == "" {
		return domain.Order{}, errors.New("order repository: increment id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.load", err)
	}

	iter := client.Collection(orderCollection).
		Where(orderIncrementIDField, "==", incrementID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Order{}, pfirestore.NotFoundError("orders.load", fmt.Errorf("order %s not found", incrementID))
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.load", err)
	}

	return decodeOrderDocument(snap)
}

// Save persists the order, including appended status history entries.
func (r *OrderRepository) Save(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return pfirestore.WrapError("orders.save", err)
	}

	doc := encodeOrderDocument(order)
	if _, err := client.Collection(orderCollection).Doc(order.ID).Set(ctx, doc); err != nil {
		return pfirestore.WrapError("orders.save", err)
	}
	return nil
}

// TaxLineRepository reads the persisted tax line items of an order.
type TaxLineRepository struct {
	provider *pfirestore.Provider
}

// NewTaxLineRepository constructs a Firestore-backed tax line repository.
func NewTaxLineRepository(provider *pfirestore.Provider) (*TaxLineRepository, error) {
	if provider == nil {
		return nil, errors.New("tax line repository requires firestore provider")
	}
	return &TaxLineRepository{provider: provider}, nil
}

// ListByOrderID returns every tax line recorded under the order.
func (r *TaxLineRepository) ListByOrderID(ctx context.Context, orderID string) ([]domain.TaxLine, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("tax line repository: order id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("taxlines.list", err)
	}

	iter := client.Collection(orderCollection).Doc(orderID).Collection(taxLineSubcollection).Documents(ctx)
	defer iter.Stop()

	var lines []domain.TaxLine
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("taxlines.list", err)
		}
		var doc taxLineDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("taxlines.list", err)
		}
		percent, err := decodeAmount(doc.TaxPercent)
		if err != nil {
			return nil, pfirestore.WrapError("taxlines.list", fmt.Errorf("tax line %s: %w", snap.Ref.ID, err))
		}
		lines = append(lines, domain.TaxLine{
			TaxableItemType: doc.TaxableItemType,
			TaxPercent:      percent,
		})
	}
	return lines, nil
}

func decodeOrderDocument(snap *firestore.DocumentSnapshot) (domain.Order, error) {
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.load", err)
	}

	order := domain.Order{
		ID:                       snap.Ref.ID,
		IncrementID:              doc.IncrementID,
		StoreCode:                doc.StoreCode,
		AppliedRuleIDs:           doc.AppliedRuleIDs,
		Payment:                  domain.OrderPayment{Method: doc.PaymentMethod, LastTransID: doc.PaymentLastTransID},
		PriceIncludesTaxOverride: doc.PriceIncludesTax,
		ShippingAddress:          decodeAddress(doc.ShippingAddress),
		BillingAddress:           decodeAddress(doc.BillingAddress),
		CurrencyCode:             doc.CurrencyCode,
		CreatedAt:                doc.CreatedAt,
	}

	var err error
	if order.ShippingAmount, err = decodeAmount(doc.ShippingAmount); err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.load", fmt.Errorf("shippingAmount: %w", err))
	}
	if order.ShippingDiscountAmount, err = decodeAmount(doc.ShippingDiscountAmount); err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.load", fmt.Errorf("shippingDiscountAmount: %w", err))
	}
	if order.ShippingDiscountTaxComp, err = decodeAmount(doc.ShippingDiscountTaxComp); err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.load", fmt.Errorf("shippingDiscountTaxComp: %w", err))
	}
	if order.GrandTotal, err = decodeAmount(doc.GrandTotal); err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.load", fmt.Errorf("grandTotal: %w", err))
	}

	order.Items = make([]domain.OrderItem, 0, len(doc.Items))
	for _, itemDoc := range doc.Items {
		item, err := decodeOrderItem(itemDoc)
		if err != nil {
			return domain.Order{}, pfirestore.WrapError("orders.load", fmt.Errorf("item %s: %w", itemDoc.ItemID, err))
		}
		order.Items = append(order.Items, item)
	}

	order.StatusHistory = make([]domain.StatusHistoryEntry, 0, len(doc.StatusHistory))
	for _, entry := range doc.StatusHistory {
		order.StatusHistory = append(order.StatusHistory, domain.StatusHistoryEntry{
			Comment:          entry.Comment,
			CustomerNotified: entry.CustomerNotified,
			CreatedAt:        entry.CreatedAt,
		})
	}

	return order, nil
}

func decodeOrderItem(doc orderItemDocument) (domain.OrderItem, error) {
	item := domain.OrderItem{
		ItemID:         doc.ItemID,
		ProductID:      doc.ProductID,
		SKU:            doc.SKU,
		Name:           doc.Name,
		SimpleName:     doc.SimpleName,
		ProductType:    domain.ProductType(doc.ProductType),
		AppliedRuleIDs: doc.AppliedRuleIDs,
		ProductURL:     doc.ProductURL,
		Thumbnail:      doc.Thumbnail,
	}

	var err error
	if item.TaxPercent, err = decodeAmount(doc.TaxPercent); err != nil {
		return domain.OrderItem{}, fmt.Errorf("taxPercent: %w", err)
	}
	if item.QtyOrdered, err = decodeAmount(doc.QtyOrdered); err != nil {
		return domain.OrderItem{}, fmt.Errorf("qtyOrdered: %w", err)
	}
	if item.OriginalPrice, err = decodeAmount(doc.OriginalPrice); err != nil {
		return domain.OrderItem{}, fmt.Errorf("originalPrice: %w", err)
	}
	if item.PriceInclTax, err = decodeAmount(doc.PriceInclTax); err != nil {
		return domain.OrderItem{}, fmt.Errorf("priceInclTax: %w", err)
	}
	if item.BaseRowTotal, err = decodeAmount(doc.BaseRowTotal); err != nil {
		return domain.OrderItem{}, fmt.Errorf("baseRowTotal: %w", err)
	}
	return item, nil
}

func encodeOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		IncrementID:             order.IncrementID,
		StoreCode:               order.StoreCode,
		AppliedRuleIDs:          order.AppliedRuleIDs,
		PaymentMethod:           order.Payment.Method,
		PaymentLastTransID:      order.Payment.LastTransID,
		ShippingAmount:          encodeAmount(order.ShippingAmount),
		ShippingDiscountAmount:  encodeAmount(order.ShippingDiscountAmount),
		ShippingDiscountTaxComp: encodeAmount(order.ShippingDiscountTaxComp),
		PriceIncludesTax:        order.PriceIncludesTaxOverride,
		ShippingAddress:         encodeAddress(order.ShippingAddress),
		BillingAddress:          encodeAddress(order.BillingAddress),
		GrandTotal:              encodeAmount(order.GrandTotal),
		CurrencyCode:            order.CurrencyCode,
		CreatedAt:               order.CreatedAt,
	}

	doc.Items = make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ItemID:         item.ItemID,
			ProductID:      item.ProductID,
			SKU:            item.SKU,
			Name:           item.Name,
			SimpleName:     item.SimpleName,
			ProductType:    string(item.ProductType),
			TaxPercent:     encodeAmount(item.TaxPercent),
			QtyOrdered:     encodeAmount(item.QtyOrdered),
			OriginalPrice:  encodeAmount(item.OriginalPrice),
			PriceInclTax:   encodeAmount(item.PriceInclTax),
			BaseRowTotal:   encodeAmount(item.BaseRowTotal),
			AppliedRuleIDs: item.AppliedRuleIDs,
			ProductURL:     item.ProductURL,
			Thumbnail:      item.Thumbnail,
		})
	}

	doc.StatusHistory = make([]statusHistoryDocument, 0, len(order.StatusHistory))
	for _, entry := range order.StatusHistory {
		doc.StatusHistory = append(doc.StatusHistory, statusHistoryDocument{
			Comment:          entry.Comment,
			CustomerNotified: entry.CustomerNotified,
			CreatedAt:        entry.CreatedAt,
		})
	}

	return doc
}

func decodeAddress(doc *addressDocument) *domain.Address {
	if doc == nil {
		return nil
	}
	return &domain.Address{
		Firstname:  doc.Firstname,
		Lastname:   doc.Lastname,
		Street:     doc.Street,
		City:       doc.City,
		Region:     doc.Region,
		PostalCode: doc.PostalCode,
		Country:    doc.Country,
		Telephone:  doc.Telephone,
	}
}

func encodeAddress(addr *domain.Address) *addressDocument {
	if addr == nil {
		return nil
	}
	return &addressDocument{
		Firstname:  addr.Firstname,
		Lastname:   addr.Lastname,
		Street:     addr.Street,
		City:       addr.City,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Telephone:  addr.Telephone,
	}
}

// decodeAmount treats absent values as zero; amounts are stored as exact
// decimal strings.
func decodeAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}

func encodeAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
