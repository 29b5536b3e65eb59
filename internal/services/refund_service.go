package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/valitor-commerce/api/internal/domain"
	"github.com/valitor-commerce/api/internal/gateway"
	"github.com/valitor-commerce/api/internal/repositories"
)

var (
	// ErrRefundRejected signals the gateway explicitly declined the refund,
	// or returned a result other than Success.
	ErrRefundRejected = errors.New("refund: gateway did not accept the refund")
	// ErrOrderItemMissing signals a credit memo row referencing an order
	// item that is not on the loaded order.
	ErrOrderItemMissing = errors.New("refund: credit memo references unknown order item")
)

// defaultCouponLineName labels the lump discount line when the memo carries
// no coupon description.
const defaultCouponLineName = "Cart Price Rule"

// RefundOutcome reports what the refund attempt did.
type RefundOutcome struct {
	Skipped    bool
	SkipReason string
	AttemptID  string
	Result     gateway.RefundResult
}

// RefundServiceDeps wires the orchestrator's collaborators.
type RefundServiceDeps struct {
	Orders      repositories.OrderRepository
	Gateway     gateway.Client
	Accounts    StoreAccounts
	PricingMode *PricingModeResolver
	Classifier  *DiscountClassifier
	ShippingTax *ShippingTaxResolver
	Clock       func() time.Time
	Logger      Logger
}

// RefundService reconciles a credit memo against its captured payment
// reservation and submits the refund to the gateway. The whole operation is
// synchronous and request scoped; concurrent refunds on one order are the
// caller's problem to serialise.
type RefundService struct {
	orders      repositories.OrderRepository
	gateway     gateway.Client
	accounts    StoreAccounts
	pricingMode *PricingModeResolver
	classifier  *DiscountClassifier
	shippingTax *ShippingTaxResolver
	builder     *LineItemBuilder
	clock       func() time.Time
	logger      Logger
}

// NewRefundService constructs a RefundService.
func NewRefundService(deps RefundServiceDeps) (*RefundService, error) {
	if deps.Orders == nil {
		return nil, errors.New("refund service: order repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("refund service: gateway client is required")
	}
	if deps.Accounts == nil {
		return nil, errors.New("refund service: store accounts are required")
	}
	if deps.PricingMode == nil || deps.Classifier == nil || deps.ShippingTax == nil {
		return nil, errors.New("refund service: resolvers are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &RefundService{
		orders:      deps.Orders,
		gateway:     deps.Gateway,
		accounts:    deps.Accounts,
		pricingMode: deps.PricingMode,
		classifier:  deps.Classifier,
		shippingTax: deps.ShippingTax,
		builder:     NewLineItemBuilder(),
		clock:       func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

// Refund runs the full reconciliation for one credit memo: Built (lines
// assembled), Submitted (gateway called), then Succeeded or Failed. Offline
// memos and payment methods outside the plugin's terminals are skipped
// without touching the gateway.
func (s *RefundService) Refund(ctx context.Context, memo domain.CreditMemo) (RefundOutcome, error) {
	if !memo.RequestedOnline {
		return RefundOutcome{Skipped: true, SkipReason: "refund not requested online"}, nil
	}

	order, err := s.orders.LoadByIncrementID(ctx, memo.OrderIncrementID)
	if err != nil {
		return RefundOutcome{}, fmt.Errorf("refund: load order %s: %w", memo.OrderIncrementID, err)
	}
	if !s.accounts.HandlesMethod(order.Payment.Method) {
		return RefundOutcome{Skipped: true, SkipReason: "payment method not handled by this gateway"}, nil
	}

	req, err := s.buildRequest(ctx, memo, order)
	if err != nil {
		return RefundOutcome{}, err
	}

	auth, err := s.accounts.AuthForStore(req.StoreCode)
	if err != nil {
		return RefundOutcome{}, fmt.Errorf("refund: resolve gateway account: %w", err)
	}

	outcome := RefundOutcome{AttemptID: req.AttemptID}
	result, err := s.gateway.RefundCapturedReservation(ctx, auth, req)
	if err != nil {
		// Both failure modes are fatal. A header-level error means the
		// response cannot be trusted; a transport failure leaves nothing to
		// inspect, and guessing at the gateway state would be worse than
		// failing the transaction.
		s.logger(ctx, "refund.gateway_call_failed", map[string]any{
			"attemptId":   req.AttemptID,
			"incrementId": memo.OrderIncrementID,
			"error":       err.Error(),
		})
		return outcome, fmt.Errorf("refund: gateway call: %w", err)
	}
	outcome.Result = result

	s.logger(ctx, "refund.gateway_response", map[string]any{
		"attemptId":   req.AttemptID,
		"incrementId": memo.OrderIncrementID,
		"result":      result.Result,
		"body":        string(result.RawBody),
	})

	if result.Rejected() {
		s.annotateFailure(ctx, order, result)
		return outcome, fmt.Errorf("%w: %s", ErrRefundRejected, result.MerchantErrorMessage)
	}
	if !result.Succeeded() {
		return outcome, fmt.Errorf("%w: unexpected result %q", ErrRefundRejected, result.Result)
	}
	return outcome, nil
}

// annotateFailure appends the merchant error to the order's status history.
// Best effort only: the gateway call already happened, and the comment is an
// operator aid, not a correctness guarantee.
func (s *RefundService) annotateFailure(ctx context.Context, order domain.Order, result gateway.RefundResult) {
	order.StatusHistory = append(order.StatusHistory, domain.StatusHistoryEntry{
		Comment:          "Refund failed: " + result.MerchantErrorMessage,
		CustomerNotified: false,
		CreatedAt:        s.clock(),
	})
	if err := s.orders.Save(ctx, order); err != nil {
		s.logger(ctx, "refund.annotate_failed", map[string]any{
			"incrementId": order.IncrementID,
			"error":       err.Error(),
		})
	}
}

// buildRequest assembles the complete gateway line list for the memo.
func (s *RefundService) buildRequest(ctx context.Context, memo domain.CreditMemo, order domain.Order) (domain.RefundRequest, error) {
	mode, err := s.pricingMode.Resolve(ctx, order)
	if err != nil {
		return domain.RefundRequest{}, fmt.Errorf("refund: resolve pricing mode: %w", err)
	}
	discountOnAllItems, err := s.classifier.AllItemsDiscounted(ctx, order.Items)
	if err != nil {
		return domain.RefundRequest{}, fmt.Errorf("refund: classify discounts: %w", err)
	}

	storeCode := memo.StoreCode
	if storeCode == "" {
		storeCode = order.StoreCode
	}

	lctx := LineContext{
		Mode:               mode,
		DiscountOnAllItems: discountOnAllItems,
		CouponAmount:       memo.DiscountAmount,
		MediaBaseURL:       s.accounts.MediaBaseURL(storeCode),
	}

	itemsByID := make(map[string]domain.OrderItem, len(order.Items))
	for _, item := range order.Items {
		itemsByID[item.ItemID] = item
	}

	var lines []domain.OrderLine
	for _, memoItem := range memo.Items {
		orderItem, ok := itemsByID[memoItem.OrderItemID]
		if !ok {
			return domain.RefundRequest{}, fmt.Errorf("%w: %s", ErrOrderItemMissing, memoItem.OrderItemID)
		}
		lines = append(lines, s.builder.Build(joinRefundedLine(memoItem, orderItem), lctx)...)
	}

	if discountOnAllItems && memo.DiscountAmount.Abs().IsPositive() {
		lines = append(lines, couponLine(memo))
	}
	lines = append(lines, s.shippingLines(ctx, memo, order, discountOnAllItems)...)

	return domain.RefundRequest{
		AttemptID:          ulid.MustNew(ulid.Timestamp(s.clock()), ulid.DefaultEntropy()).String(),
		StoreCode:          storeCode,
		TransactionID:      transactionToRefund(memo, order),
		Amount:             domain.Round2(memo.GrandTotal),
		Lines:              lines,
		CouponCode:         memo.DiscountDescription,
		CouponAmount:       memo.DiscountAmount,
		DiscountOnAllItems: discountOnAllItems,
		Mode:               mode,
	}, nil
}

// transactionToRefund attaches the payment's last transaction when the memo
// records a prior transaction id.
func transactionToRefund(memo domain.CreditMemo, order domain.Order) string {
	if memo.TransactionID == "" {
		return ""
	}
	return order.Payment.LastTransID
}

// couponLine renders the order-level lump discount.
func couponLine(memo domain.CreditMemo) domain.OrderLine {
	name := memo.DiscountDescription
	if name == "" {
		name = defaultCouponLineName
	}
	return domain.OrderLine{
		Description: name,
		ItemID:      domain.LineIDDiscount,
		Quantity:    domain.One,
		UnitPrice:   memo.DiscountAmount,
		GoodsType:   domain.GoodsTypeHandling,
		UnitCode:    "unit",
	}
}

// shippingLines emits the shipping line and, when the order carries a
// shipping discount tax compensation, the comp-ship adjustment.
func (s *RefundService) shippingLines(ctx context.Context, memo domain.CreditMemo, order domain.Order, discountOnAllItems bool) []domain.OrderLine {
	if !memo.ShippingInclTax.IsPositive() {
		return nil
	}

	shippingTax := memo.ShippingTaxAmount
	shippingAmount := memo.ShippingAmount

	taxPercent, err := s.shippingTax.ShippingTaxPercent(ctx, order.ID)
	if err != nil {
		// The recorded shipping tax amount still covers the common case;
		// log and continue with a zero percent.
		s.logger(ctx, "refund.shipping_tax_lookup_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		taxPercent = decimal.Zero
	}

	discount := decimal.Zero
	if !discountOnAllItems && order.ShippingAmount.IsPositive() {
		discount = order.ShippingDiscountAmount.Div(order.ShippingAmount).Mul(domain.Hundred)
	}
	if taxPercent.IsPositive() {
		shippingTax = domain.Round2(domain.PercentOf(shippingAmount, taxPercent))
	}

	lines := []domain.OrderLine{{
		Description:     "Shipping",
		ItemID:          domain.LineIDShipping,
		Quantity:        domain.One,
		UnitPrice:       shippingAmount,
		DiscountPercent: domain.Round2(discount),
		TaxAmount:       domain.Round2(shippingTax),
		TaxPercent:      taxPercent,
		GoodsType:       domain.GoodsTypeShipment,
		UnitCode:        "unit",
	}}

	if comp := order.ShippingDiscountTaxComp; comp.IsPositive() && !discountOnAllItems {
		comp = comp.Add(domain.PercentOf(comp, taxPercent))
		lines = append(lines, domain.OrderLine{
			Description: "Shipping compensation",
			ItemID:      domain.LineIDShippingComp,
			Quantity:    domain.One,
			UnitPrice:   comp,
			UnitCode:    "unit",
		})
	}
	return lines
}

// joinRefundedLine merges a credit memo row with its originating order item
// into the value type the line builder consumes.
func joinRefundedLine(memoItem domain.CreditMemoItem, orderItem domain.OrderItem) domain.RefundedLine {
	return domain.RefundedLine{
		ItemID:         orderItem.ItemID,
		Name:           orderItem.DisplayName(),
		Quantity:       memoItem.Qty,
		UnitPrice:      memoItem.Price,
		PriceInclTax:   memoItem.PriceInclTax,
		DiscountAmount: memoItem.DiscountAmount,
		OriginalPrice:  orderItem.OriginalPrice,
		TaxPercent:     orderItem.TaxPercent,
		TaxAmount:      memoItem.TaxAmount,
		BaseRowTotal:   orderItem.BaseRowTotal,
		BaseTaxAmount:  memoItem.BaseTaxAmount,
		ProductType:    orderItem.ProductType,
		ProductURL:     orderItem.ProductURL,
		Thumbnail:      orderItem.Thumbnail,
	}
}
