package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/valitor-commerce/api/internal/domain"
	"github.com/valitor-commerce/api/internal/gateway"
	"github.com/valitor-commerce/api/internal/platform/httpx"
	"github.com/valitor-commerce/api/internal/repositories"
	"github.com/valitor-commerce/api/internal/services"
)

const maxRefundBodySize = 256 * 1024

// RefundService is the slice of the refund orchestrator the handler needs.
type RefundService interface {
	Refund(ctx context.Context, memo domain.CreditMemo) (services.RefundOutcome, error)
}

// RefundHandlers exposes the internal refund submission endpoint.
type RefundHandlers struct {
	refunds RefundService
}

// NewRefundHandlers constructs a RefundHandlers instance.
func NewRefundHandlers(refunds RefundService) *RefundHandlers {
	return &RefundHandlers{refunds: refunds}
}

// Routes registers the /internal/refunds endpoints.
func (h *RefundHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/refunds", h.submitRefund)
}

type creditMemoRequest struct {
	OrderIncrementID    string                  `json:"order_increment_id"`
	StoreCode           string                  `json:"store_code"`
	RequestedOnline     bool                    `json:"requested_online"`
	TransactionID       string                  `json:"transaction_id"`
	GrandTotal          decimal.Decimal         `json:"grand_total"`
	ShippingAmount      decimal.Decimal         `json:"shipping_amount"`
	ShippingInclTax     decimal.Decimal         `json:"shipping_incl_tax"`
	ShippingTaxAmount   decimal.Decimal         `json:"shipping_tax_amount"`
	DiscountAmount      decimal.Decimal         `json:"discount_amount"`
	DiscountDescription string                  `json:"discount_description"`
	Items               []creditMemoItemRequest `json:"items"`
}

type creditMemoItemRequest struct {
	OrderItemID    string          `json:"order_item_id"`
	Name           string          `json:"name"`
	Qty            decimal.Decimal `json:"qty"`
	Price          decimal.Decimal `json:"price"`
	PriceInclTax   decimal.Decimal `json:"price_incl_tax"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	BaseTaxAmount  decimal.Decimal `json:"base_tax_amount"`
}

type refundResponse struct {
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
	AttemptID  string `json:"attempt_id,omitempty"`
	Result     string `json:"result,omitempty"`
}

func (h *RefundHandlers) submitRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.refunds == nil {
		httpx.WriteError(ctx, w, httpx.NewError("refund_service_unavailable", "refund service unavailable", http.StatusServiceUnavailable))
		return
	}

	var payload creditMemoRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRefundBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be a valid credit memo", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(payload.OrderIncrementID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order_increment_id is required", http.StatusBadRequest))
		return
	}

	outcome, err := h.refunds.Refund(ctx, payload.toDomain())
	if err != nil {
		writeRefundError(ctx, w, outcome, err)
		return
	}

	writeJSON(w, http.StatusOK, refundResponse{
		Skipped:    outcome.Skipped,
		SkipReason: outcome.SkipReason,
		AttemptID:  outcome.AttemptID,
		Result:     outcome.Result.Result,
	})
}

func writeRefundError(ctx context.Context, w http.ResponseWriter, outcome services.RefundOutcome, err error) {
	switch {
	case errors.Is(err, services.ErrRefundRejected):
		msg := outcome.Result.MerchantErrorMessage
		if msg == "" {
			msg = "the gateway rejected the refund"
		}
		httpx.WriteError(ctx, w, httpx.NewError("refund_rejected", msg, http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderItemMissing):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credit_memo", err.Error(), http.StatusUnprocessableEntity))
	case repositories.IsNotFound(err):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case gateway.IsTransportError(err) || gateway.IsProtocolError(err):
		httpx.WriteError(ctx, w, httpx.NewError("gateway_error", "payment gateway call failed", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "refund processing failed", http.StatusInternalServerError))
	}
}

func (p creditMemoRequest) toDomain() domain.CreditMemo {
	memo := domain.CreditMemo{
		OrderIncrementID:    strings.TrimSpace(p.OrderIncrementID),
		StoreCode:           strings.TrimSpace(p.StoreCode),
		RequestedOnline:     p.RequestedOnline,
		TransactionID:       strings.TrimSpace(p.TransactionID),
		GrandTotal:          p.GrandTotal,
		ShippingAmount:      p.ShippingAmount,
		ShippingInclTax:     p.ShippingInclTax,
		ShippingTaxAmount:   p.ShippingTaxAmount,
		DiscountAmount:      p.DiscountAmount,
		DiscountDescription: strings.TrimSpace(p.DiscountDescription),
	}
	memo.Items = make([]domain.CreditMemoItem, 0, len(p.Items))
	for _, item := range p.Items {
		memo.Items = append(memo.Items, domain.CreditMemoItem{
			OrderItemID:    strings.TrimSpace(item.OrderItemID),
			Name:           item.Name,
			Qty:            item.Qty,
			Price:          item.Price,
			PriceInclTax:   item.PriceInclTax,
			DiscountAmount: item.DiscountAmount,
			TaxAmount:      item.TaxAmount,
			BaseTaxAmount:  item.BaseTaxAmount,
		})
	}
	return memo
}
