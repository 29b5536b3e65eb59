package domain

import (
	"github.com/shopspring/decimal"
)

// PricingMode states whether the store's catalog prices already contain tax.
type PricingMode int

const (
	// TaxExclusive means catalog prices are net of tax.
	TaxExclusive PricingMode = iota
	// TaxInclusive means catalog prices already contain tax.
	TaxInclusive
)

// String implements fmt.Stringer for logging.
func (m PricingMode) String() string {
	if m == TaxInclusive {
		return "tax_inclusive"
	}
	return "tax_exclusive"
}

// GoodsType tags a gateway order line with its billing category.
type GoodsType string

const (
	// GoodsTypeItem is an ordinary product line.
	GoodsTypeItem GoodsType = "item"
	// GoodsTypeHandling is a fee or price-reduction line.
	GoodsTypeHandling GoodsType = "handling"
	// GoodsTypeShipment is a shipping line.
	GoodsTypeShipment GoodsType = "shipment"
)

// Synthetic line ids used in refund payloads.
const (
	LineIDDiscount     = "discount"
	LineIDShipping     = "shipping"
	LineIDShippingComp = "comp-ship"
	// LineIDCompPrefix prefixes per-item compensation line ids.
	LineIDCompPrefix = "comp-"
)

// OrderLine is one billable entry in the refund payload sent to the gateway.
// Once appended to a refund request it is never mutated.
type OrderLine struct {
	Description     string
	ItemID          string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxAmount       decimal.Decimal
	TaxPercent      decimal.Decimal
	GoodsType       GoodsType
	UnitCode        string
	ProductURL      string
	ImageURL        string
}

// UnitCodeFor pluralises the gateway unit label by quantity.
func UnitCodeFor(qty decimal.Decimal) string {
	if qty.GreaterThan(One) {
		return "units"
	}
	return "unit"
}

// RowTotal is the line's contribution to the refund total: discounted
// unit price x quantity plus tax.
func (l OrderLine) RowTotal() decimal.Decimal {
	gross := l.UnitPrice.Mul(l.Quantity).Add(l.TaxAmount)
	return ApplyDiscountPercent(gross, l.DiscountPercent)
}

// RefundedLine is one credit-memo row joined with its originating order item,
// expressed in the host's pricing model. Quantity must be positive for the
// line to participate in refund generation.
type RefundedLine struct {
	ItemID         string
	Name           string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	PriceInclTax   decimal.Decimal
	DiscountAmount decimal.Decimal
	OriginalPrice  decimal.Decimal
	TaxPercent     decimal.Decimal
	TaxAmount      decimal.Decimal
	BaseRowTotal   decimal.Decimal
	BaseTaxAmount  decimal.Decimal
	ProductType    ProductType
	ProductURL     string
	Thumbnail      string
}

// RefundRequest is the reconciled refund derived from one credit memo.
// Immutable after construction; consumed by the gateway client.
type RefundRequest struct {
	AttemptID          string
	StoreCode          string
	TransactionID      string
	Amount             decimal.Decimal
	Lines              []OrderLine
	CouponCode         string
	CouponAmount       decimal.Decimal
	DiscountOnAllItems bool
	Mode               PricingMode
}
