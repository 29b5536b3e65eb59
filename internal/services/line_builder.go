package services

import (
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/valitor-commerce/api/internal/domain"
)

// compensationLineName labels per-item rounding adjustment lines.
const compensationLineName = "Compensation Amount"

// LineContext carries the order-level facts every item line depends on.
type LineContext struct {
	Mode               domain.PricingMode
	DiscountOnAllItems bool
	CouponAmount       decimal.Decimal
	MediaBaseURL       string
}

// LineItemBuilder derives the gateway-facing order lines for one refunded
// item: unit price, tax amount, discount percent, and the compensation line
// that absorbs the drift between the host's and the gateway's independently
// rounded pricing models.
type LineItemBuilder struct{}

// NewLineItemBuilder constructs a LineItemBuilder.
func NewLineItemBuilder() *LineItemBuilder {
	return &LineItemBuilder{}
}

// Build emits zero, one, or two order lines for the refunded item. Items with
// no quantity and bundle parents produce nothing; bundle pricing is carried
// by the child items, so a parent line would double count. Items whose
// tax-inclusive price is zero are not billable and are skipped too.
func (b *LineItemBuilder) Build(line domain.RefundedLine, lctx LineContext) []domain.OrderLine {
	if !line.Quantity.IsPositive() || line.ProductType == domain.ProductTypeBundle {
		return nil
	}
	if line.PriceInclTax.IsZero() {
		return nil
	}

	qty := line.Quantity
	taxPercent := line.TaxPercent
	original := line.OriginalPrice
	if original.IsZero() {
		// No catalog price tracked; the tax-inclusive item price stands in.
		original = line.PriceInclTax
	}

	discountAmount := line.DiscountAmount
	itemDiscount := decimal.Zero
	catalogDiscount := false
	if !discountAmount.IsZero() {
		itemDiscount = discountAmount.Mul(domain.Hundred).Div(original.Mul(qty))
	}

	var unitPrice, unitPriceWithoutTax, taxAmount decimal.Decimal
	if lctx.Mode == domain.TaxInclusive {
		unitPriceWithoutTax = original.Div(domain.TaxRate(taxPercent))
		unitPrice = domain.Truncate2(unitPriceWithoutTax)
		taxAmount = domain.Round2(domain.PercentOf(unitPriceWithoutTax, taxPercent).Mul(qty))

		if original.IsPositive() && original.GreaterThan(line.PriceInclTax) && discountAmount.IsZero() {
			catalogDiscount = true
			itemDiscount = domain.Round2(original.Sub(line.PriceInclTax).Div(original).Mul(domain.Hundred))
		}
	} else {
		unitPrice = original
		unitPriceWithoutTax = original

		if original.IsPositive() && original.GreaterThan(line.UnitPrice) && discountAmount.IsZero() {
			catalogDiscount = true
			itemDiscount = domain.Round2(original.Sub(line.UnitPrice).Div(original).Mul(domain.Hundred))
		}

		if lctx.DiscountOnAllItems {
			// The per-item discount is suppressed in favour of the order
			// level coupon line, so a unit-price-based tax derivation would
			// misstate tax; the recorded item tax is authoritative.
			taxAmount = domain.Round2(line.TaxAmount)
		} else {
			taxAmount = domain.Round2(domain.PercentOf(unitPrice, taxPercent).Mul(qty))
		}
	}

	discountPercent := decimal.Zero
	if !lctx.DiscountOnAllItems {
		discountPercent = itemDiscount
	}
	discountPercent = domain.Round2(discountPercent)

	item := domain.OrderLine{
		Description:     line.Name,
		ItemID:          line.ItemID,
		Quantity:        qty,
		UnitPrice:       unitPrice,
		DiscountPercent: discountPercent,
		TaxAmount:       taxAmount,
		TaxPercent:      taxPercent,
		GoodsType:       domain.GoodsTypeItem,
		UnitCode:        domain.UnitCodeFor(qty),
		ProductURL:      line.ProductURL,
		ImageURL:        imageURL(lctx.MediaBaseURL, line.Thumbnail),
	}

	lines := []domain.OrderLine{item}

	comp := b.compensation(line, unitPrice, unitPriceWithoutTax, taxAmount, discountPercent, catalogDiscount, lctx)
	if !comp.IsZero() {
		lines = append(lines, domain.OrderLine{
			Description: compensationLineName,
			ItemID:      domain.LineIDCompPrefix + line.ItemID,
			Quantity:    domain.One,
			UnitPrice:   comp,
			GoodsType:   domain.GoodsTypeItem,
			UnitCode:    "unit",
		})
	}

	return lines
}

// compensation reconciles the gateway's derivation of the line subtotal
// against the host's own record of what was charged. Coupon discounts and
// catalog discounts are tracked in different base fields by the host, so the
// ground-truth subtotal differs by branch.
func (b *LineItemBuilder) compensation(
	line domain.RefundedLine,
	unitPrice, unitPriceWithoutTax, taxAmount, discountPercent decimal.Decimal,
	catalogDiscount bool,
	lctx LineContext,
) decimal.Decimal {
	gatewaySubtotal := unitPrice.Mul(line.Quantity).Add(taxAmount)
	gatewaySubtotal = domain.ApplyDiscountPercent(gatewaySubtotal, discountPercent)

	switch {
	case lctx.CouponAmount.Abs().IsPositive() && lctx.Mode == domain.TaxInclusive:
		platformPrice := unitPriceWithoutTax.Mul(line.Quantity)
		platformTax := domain.PercentOf(platformPrice, line.TaxPercent)
		platformSubtotal := domain.ApplyDiscountPercent(platformPrice.Add(platformTax), discountPercent)
		return platformSubtotal.Sub(gatewaySubtotal)
	case catalogDiscount || lctx.CouponAmount.IsZero():
		hostSubtotal := line.BaseRowTotal.Add(line.BaseTaxAmount)
		return hostSubtotal.Sub(gatewaySubtotal)
	}
	return decimal.Zero
}

// imageURL derives the product image link from the store media base URL,
// skipping the host's "no selection" sentinel.
func imageURL(mediaBaseURL, thumbnail string) string {
	thumb := strings.TrimSpace(thumbnail)
	if thumb == "" || thumb == domain.ThumbnailNoSelection || strings.TrimSpace(mediaBaseURL) == "" {
		return ""
	}
	return strings.TrimRight(mediaBaseURL, "/") + "/catalog/product/" + strings.TrimLeft(thumb, "/")
}
