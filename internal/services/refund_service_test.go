package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/valitor-commerce/api/internal/domain"
	"github.com/valitor-commerce/api/internal/gateway"
)

func testOrder(t *testing.T) domain.Order {
	t.Helper()
	return domain.Order{
		ID:          "order_1",
		IncrementID: "000000042",
		StoreCode:   "default",
		Payment: domain.OrderPayment{
			Method:      "terminal1",
			LastTransID: "trans-99",
		},
		ShippingAmount: dec(t, "10"),
		Items: []domain.OrderItem{{
			ItemID:        "10",
			ProductID:     "prod_10",
			Name:          "Mug",
			ProductType:   domain.ProductTypeSimple,
			TaxPercent:    dec(t, "10"),
			OriginalPrice: dec(t, "110"),
			BaseRowTotal:  dec(t, "100"),
		}},
		GrandTotal:   dec(t, "122"),
		CurrencyCode: "EUR",
	}
}

func testMemo(t *testing.T) domain.CreditMemo {
	t.Helper()
	return domain.CreditMemo{
		OrderIncrementID: "000000042",
		StoreCode:        "default",
		RequestedOnline:  true,
		TransactionID:    "trans-99",
		GrandTotal:       dec(t, "122"),
		ShippingAmount:   dec(t, "10"),
		ShippingInclTax:  dec(t, "11"),
		ShippingTaxAmount: dec(t, "1"),
		Items: []domain.CreditMemoItem{{
			OrderItemID:   "10",
			Name:          "Mug",
			Qty:           dec(t, "1"),
			Price:         dec(t, "100"),
			PriceInclTax:  dec(t, "110"),
			TaxAmount:     dec(t, "10"),
			BaseTaxAmount: dec(t, "10"),
		}},
	}
}

func newRefundService(t *testing.T, orders *stubOrderRepository, gw *stubGatewayClient) *RefundService {
	t.Helper()
	pricing, err := NewPricingModeResolver(&stubStoreConfigRepository{values: map[string]string{
		"default|tax/calculation/price_includes_tax": "1",
	}})
	if err != nil {
		t.Fatalf("NewPricingModeResolver error: %v", err)
	}
	classifier, err := NewDiscountClassifier(&stubCartRuleRepository{})
	if err != nil {
		t.Fatalf("NewDiscountClassifier error: %v", err)
	}
	shippingTax, err := NewShippingTaxResolver(&stubTaxLineRepository{lines: []domain.TaxLine{{
		TaxableItemType: domain.TaxableItemTypeShipping,
		TaxPercent:      dec(t, "10"),
	}}})
	if err != nil {
		t.Fatalf("NewShippingTaxResolver error: %v", err)
	}
	svc, err := NewRefundService(RefundServiceDeps{
		Orders:  orders,
		Gateway: gw,
		Accounts: &stubStoreAccounts{
			auth:    gateway.Auth{BaseURL: "https://gateway.example", Username: "u", Password: "p"},
			methods: map[string]bool{"terminal1": true},
		},
		PricingMode: pricing,
		Classifier:  classifier,
		ShippingTax: shippingTax,
		Clock:       func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewRefundService error: %v", err)
	}
	return svc
}

func TestRefundService_Success(t *testing.T) {
	orders := &stubOrderRepository{order: testOrder(t)}
	gw := &stubGatewayClient{refundResult: gateway.RefundResult{Result: gateway.ResultSuccess}}
	svc := newRefundService(t, orders, gw)

	outcome, err := svc.Refund(context.Background(), testMemo(t))
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if outcome.Skipped {
		t.Fatal("expected refund to run, got skip")
	}
	if outcome.AttemptID == "" {
		t.Fatal("expected an attempt id")
	}
	if len(gw.refunds) != 1 {
		t.Fatalf("expected 1 gateway call, got %d", len(gw.refunds))
	}
	if len(orders.saved) != 0 {
		t.Fatalf("expected no order save on success, got %d", len(orders.saved))
	}

	req := gw.refunds[0]
	if req.TransactionID != "trans-99" {
		t.Fatalf("expected transaction trans-99, got %q", req.TransactionID)
	}
	if !req.Amount.Equal(dec(t, "122")) {
		t.Fatalf("expected amount 122, got %s", req.Amount.String())
	}
	if req.Mode != domain.TaxInclusive {
		t.Fatalf("expected tax inclusive mode, got %s", req.Mode)
	}

	// Item line plus shipping line; the tax-inclusive item nets out cleanly.
	if len(req.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(req.Lines))
	}
	shipping := req.Lines[1]
	if shipping.ItemID != domain.LineIDShipping {
		t.Fatalf("expected shipping line, got %q", shipping.ItemID)
	}
	if shipping.GoodsType != domain.GoodsTypeShipment {
		t.Fatalf("expected shipment goods type, got %s", shipping.GoodsType)
	}
	// Shipping tax recomputed from the resolved 10 percent.
	if !shipping.TaxAmount.Equal(dec(t, "1.00")) {
		t.Fatalf("expected shipping tax 1.00, got %s", shipping.TaxAmount.String())
	}
}

func TestRefundService_SkipsOfflineMemo(t *testing.T) {
	orders := &stubOrderRepository{order: testOrder(t)}
	gw := &stubGatewayClient{}
	svc := newRefundService(t, orders, gw)

	memo := testMemo(t)
	memo.RequestedOnline = false

	outcome, err := svc.Refund(context.Background(), memo)
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if !outcome.Skipped {
		t.Fatal("expected skip for offline memo")
	}
	if len(gw.refunds) != 0 {
		t.Fatal("expected no gateway call for offline memo")
	}
}

func TestRefundService_SkipsForeignPaymentMethod(t *testing.T) {
	order := testOrder(t)
	order.Payment.Method = "checkmo"
	orders := &stubOrderRepository{order: order}
	gw := &stubGatewayClient{}
	svc := newRefundService(t, orders, gw)

	outcome, err := svc.Refund(context.Background(), testMemo(t))
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if !outcome.Skipped {
		t.Fatal("expected skip for foreign payment method")
	}
	if len(gw.refunds) != 0 {
		t.Fatal("expected no gateway call for foreign payment method")
	}
}

func TestRefundService_RejectionAnnotatesOrder(t *testing.T) {
	orders := &stubOrderRepository{order: testOrder(t)}
	gw := &stubGatewayClient{refundResult: gateway.RefundResult{
		Result:               gateway.ResultError,
		MerchantErrorMessage: "insufficient funds on reservation",
	}}
	svc := newRefundService(t, orders, gw)

	_, err := svc.Refund(context.Background(), testMemo(t))
	if !errors.Is(err, ErrRefundRejected) {
		t.Fatalf("expected ErrRefundRejected, got %v", err)
	}
	if len(orders.saved) != 1 {
		t.Fatalf("expected 1 order save, got %d", len(orders.saved))
	}
	history := orders.saved[0].StatusHistory
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if !strings.Contains(history[0].Comment, "insufficient funds on reservation") {
		t.Fatalf("unexpected history comment %q", history[0].Comment)
	}
	if history[0].CustomerNotified {
		t.Fatal("failure comments must not notify the customer")
	}
}

func TestRefundService_TransportFailureIsFatalWithoutOrderMutation(t *testing.T) {
	orders := &stubOrderRepository{order: testOrder(t)}
	gw := &stubGatewayClient{refundErr: &gateway.TransportError{
		Op:  "refundCapturedReservation",
		Err: errors.New("connection reset"),
	}}
	svc := newRefundService(t, orders, gw)

	_, err := svc.Refund(context.Background(), testMemo(t))
	if err == nil {
		t.Fatal("expected an error on transport failure")
	}
	if !gateway.IsTransportError(err) {
		t.Fatalf("expected a transport error, got %v", err)
	}
	if len(orders.saved) != 0 {
		t.Fatal("transport failures must not touch the order record")
	}
}

func TestRefundService_UnknownMemoItemFails(t *testing.T) {
	orders := &stubOrderRepository{order: testOrder(t)}
	gw := &stubGatewayClient{}
	svc := newRefundService(t, orders, gw)

	memo := testMemo(t)
	memo.Items[0].OrderItemID = "999"

	_, err := svc.Refund(context.Background(), memo)
	if !errors.Is(err, ErrOrderItemMissing) {
		t.Fatalf("expected ErrOrderItemMissing, got %v", err)
	}
	if len(gw.refunds) != 0 {
		t.Fatal("expected no gateway call for inconsistent memo")
	}
}

func TestRefundService_CouponLineWhenAllItemsDiscounted(t *testing.T) {
	order := testOrder(t)
	order.Items[0].AppliedRuleIDs = "1"
	orders := &stubOrderRepository{order: order}
	gw := &stubGatewayClient{refundResult: gateway.RefundResult{Result: gateway.ResultSuccess}}

	pricing, err := NewPricingModeResolver(&stubStoreConfigRepository{})
	if err != nil {
		t.Fatalf("NewPricingModeResolver error: %v", err)
	}
	classifier, err := NewDiscountClassifier(&stubCartRuleRepository{rules: map[string]domain.CartRule{
		"1": {ID: "1", Name: "Spring sale", ApplyToShipping: true},
	}})
	if err != nil {
		t.Fatalf("NewDiscountClassifier error: %v", err)
	}
	shippingTax, err := NewShippingTaxResolver(&stubTaxLineRepository{})
	if err != nil {
		t.Fatalf("NewShippingTaxResolver error: %v", err)
	}
	svc, err := NewRefundService(RefundServiceDeps{
		Orders:  orders,
		Gateway: gw,
		Accounts: &stubStoreAccounts{
			auth:    gateway.Auth{BaseURL: "https://gateway.example", Username: "u", Password: "p"},
			methods: map[string]bool{"terminal1": true},
		},
		PricingMode: pricing,
		Classifier:  classifier,
		ShippingTax: shippingTax,
	})
	if err != nil {
		t.Fatalf("NewRefundService error: %v", err)
	}

	memo := testMemo(t)
	memo.DiscountAmount = dec(t, "-20")
	memo.DiscountDescription = "Spring sale"

	if _, err := svc.Refund(context.Background(), memo); err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	req := gw.refunds[0]
	if !req.DiscountOnAllItems {
		t.Fatal("expected discount-on-all-items flag")
	}

	var coupon *domain.OrderLine
	for i := range req.Lines {
		if req.Lines[i].ItemID == domain.LineIDDiscount {
			coupon = &req.Lines[i]
		}
	}
	if coupon == nil {
		t.Fatal("expected a coupon line")
	}
	if coupon.Description != "Spring sale" {
		t.Fatalf("unexpected coupon description %q", coupon.Description)
	}
	if coupon.GoodsType != domain.GoodsTypeHandling {
		t.Fatalf("expected handling goods type, got %s", coupon.GoodsType)
	}
	if !coupon.UnitPrice.Equal(dec(t, "-20")) {
		t.Fatalf("expected coupon unit price -20, got %s", coupon.UnitPrice.String())
	}
	for _, line := range req.Lines {
		if line.ItemID == domain.LineIDShippingComp {
			t.Fatal("comp-ship must not appear when the discount covers all items")
		}
	}
}

func TestRefundService_ShippingCompensationLine(t *testing.T) {
	order := testOrder(t)
	order.ShippingDiscountTaxComp = dec(t, "2")
	orders := &stubOrderRepository{order: order}
	gw := &stubGatewayClient{refundResult: gateway.RefundResult{Result: gateway.ResultSuccess}}
	svc := newRefundService(t, orders, gw)

	if _, err := svc.Refund(context.Background(), testMemo(t)); err != nil {
		t.Fatalf("Refund error: %v", err)
	}

	req := gw.refunds[0]
	var comp *domain.OrderLine
	for i := range req.Lines {
		if req.Lines[i].ItemID == domain.LineIDShippingComp {
			comp = &req.Lines[i]
		}
	}
	if comp == nil {
		t.Fatal("expected a comp-ship line")
	}
	// 2.00 inflated by the shipping tax percent of 10.
	if !comp.UnitPrice.Equal(dec(t, "2.2")) {
		t.Fatalf("expected comp-ship 2.2, got %s", comp.UnitPrice.String())
	}
}

func TestRefundService_LineTotalsReconcileToGrandTotal(t *testing.T) {
	// Discounted catalog item whose truncated unit price forces a
	// compensation line: sold at 110 incl tax against an original 125.
	order := testOrder(t)
	order.Items[0].OriginalPrice = dec(t, "125")
	order.GrandTotal = dec(t, "121")
	orders := &stubOrderRepository{order: order}
	gw := &stubGatewayClient{refundResult: gateway.RefundResult{Result: gateway.ResultSuccess}}
	svc := newRefundService(t, orders, gw)

	memo := testMemo(t)
	memo.GrandTotal = dec(t, "121")

	if _, err := svc.Refund(context.Background(), memo); err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if len(gw.refunds) != 1 {
		t.Fatalf("expected 1 gateway call, got %d", len(gw.refunds))
	}

	req := gw.refunds[0]
	var compensated bool
	total := dec(t, "0")
	for _, line := range req.Lines {
		total = total.Add(line.RowTotal())
		if strings.HasPrefix(line.ItemID, domain.LineIDCompPrefix) && line.ItemID != domain.LineIDShippingComp {
			compensated = true
		}
	}
	if !compensated {
		t.Fatal("expected a per-item compensation line for the truncation remainder")
	}

	// Reconciliation target: discounted unit price x qty plus tax, summed
	// over every line, matches the memo total to the cent.
	diff := total.Sub(memo.GrandTotal).Abs()
	if diff.GreaterThanOrEqual(dec(t, "0.005")) {
		t.Fatalf("line totals %s diverge from grand total %s by %s", total.String(), memo.GrandTotal.String(), diff.String())
	}
}
