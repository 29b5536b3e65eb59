package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductType enumerates the host platform's product types that matter to
// refund line generation.
type ProductType string

const (
	// ProductTypeSimple is an ordinary standalone product.
	ProductTypeSimple ProductType = "simple"
	// ProductTypeConfigurable is a parent product whose display name is
	// resolved to the selected simple product.
	ProductTypeConfigurable ProductType = "configurable"
	// ProductTypeBundle carries its pricing on child items and is excluded
	// from direct line generation.
	ProductTypeBundle ProductType = "bundle"
	// ProductTypeVirtual has no shipment.
	ProductTypeVirtual ProductType = "virtual"
	// ProductTypeDownloadable has no shipment.
	ProductTypeDownloadable ProductType = "downloadable"
)

// ThumbnailNoSelection is the host's sentinel for "no image chosen".
const ThumbnailNoSelection = "no_selection"

// Order mirrors the host platform's order record as synced into the bridge's
// datastore. Only the fields the refund engine and the summary endpoint
// consume are carried.
type Order struct {
	ID             string
	IncrementID    string
	StoreCode      string
	AppliedRuleIDs string

	Payment OrderPayment

	ShippingAmount           decimal.Decimal
	ShippingDiscountAmount   decimal.Decimal
	ShippingDiscountTaxComp  decimal.Decimal
	PriceIncludesTaxOverride *bool
	ShippingAddress          *Address
	BillingAddress           *Address
	Items                    []OrderItem
	StatusHistory            []StatusHistoryEntry
	GrandTotal               decimal.Decimal
	CurrencyCode             string
	CreatedAt                time.Time
}

// OrderPayment carries the payment facts attached to an order.
type OrderPayment struct {
	Method      string
	LastTransID string
}

// OrderItem is one purchasable row on the order.
type OrderItem struct {
	ItemID         string
	ProductID      string
	SKU            string
	Name           string
	SimpleName     string
	ProductType    ProductType
	TaxPercent     decimal.Decimal
	QtyOrdered     decimal.Decimal
	OriginalPrice  decimal.Decimal
	PriceInclTax   decimal.Decimal
	BaseRowTotal   decimal.Decimal
	AppliedRuleIDs string
	ProductURL     string
	Thumbnail      string
}

// DisplayName resolves the gateway-facing item name: configurable parents
// show the selected simple product's name when one was recorded.
func (i OrderItem) DisplayName() string {
	if i.ProductType == ProductTypeConfigurable && strings.TrimSpace(i.SimpleName) != "" {
		return i.SimpleName
	}
	return i.Name
}

// RuleIDs splits the comma-separated applied cart rule ids.
func (i OrderItem) RuleIDs() []string {
	raw := strings.TrimSpace(i.AppliedRuleIDs)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// StatusHistoryEntry is one operator-visible comment on the order.
type StatusHistoryEntry struct {
	Comment          string
	CustomerNotified bool
	CreatedAt        time.Time
}

// Address holds the order address fields the summary endpoint renders.
type Address struct {
	Firstname  string
	Lastname   string
	Street     []string
	City       string
	Region     string
	PostalCode string
	Country    string
	Telephone  string
}

// Format renders the address as display lines, mirroring the host's
// single-column address renderer.
func (a Address) Format() []string {
	lines := make([]string, 0, 4+len(a.Street))
	if name := strings.TrimSpace(a.Firstname + " " + a.Lastname); name != "" {
		lines = append(lines, name)
	}
	for _, s := range a.Street {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	locality := strings.TrimSpace(strings.Join(nonEmpty(a.City, a.Region, a.PostalCode), ", "))
	if locality != "" {
		lines = append(lines, locality)
	}
	if c := strings.TrimSpace(a.Country); c != "" {
		lines = append(lines, c)
	}
	if t := strings.TrimSpace(a.Telephone); t != "" {
		lines = append(lines, "T: "+t)
	}
	return lines
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

// TaxLine is one persisted tax line item for an order.
type TaxLine struct {
	OrderID         string
	TaxableItemType string
	TaxPercent      decimal.Decimal
	Amount          decimal.Decimal
}

// TaxableItemTypeShipping tags tax lines attributable to shipping.
const TaxableItemTypeShipping = "shipping"

// CartRule is a cart price rule record; only the shipping flag matters here.
type CartRule struct {
	ID              string
	Name            string
	ApplyToShipping bool
}

// Product is the catalog record used for summary display.
type Product struct {
	ID        string
	Name      string
	URL       string
	Thumbnail string
}

// CreditMemo is the host's refund record handed to the bridge.
type CreditMemo struct {
	OrderIncrementID    string
	StoreCode           string
	RequestedOnline     bool
	TransactionID       string
	GrandTotal          decimal.Decimal
	ShippingAmount      decimal.Decimal
	ShippingInclTax     decimal.Decimal
	ShippingTaxAmount   decimal.Decimal
	DiscountAmount      decimal.Decimal
	DiscountDescription string
	Items               []CreditMemoItem
}

// CreditMemoItem is one refunded row of a credit memo.
type CreditMemoItem struct {
	OrderItemID    string
	Name           string
	Qty            decimal.Decimal
	Price          decimal.Decimal
	PriceInclTax   decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	BaseTaxAmount  decimal.Decimal
}
