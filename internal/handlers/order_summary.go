package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/valitor-commerce/api/internal/platform/httpx"
	"github.com/valitor-commerce/api/internal/services"
)

// OrderSummaryService renders an order for the payment-callback page.
type OrderSummaryService interface {
	Summary(ctx context.Context, incrementID string) (services.OrderSummary, error)
}

// OrderHandlers exposes order display endpoints.
type OrderHandlers struct {
	summaries OrderSummaryService
}

// NewOrderHandlers constructs an OrderHandlers instance.
func NewOrderHandlers(summaries OrderSummaryService) *OrderHandlers {
	return &OrderHandlers{summaries: summaries}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/summary", h.getSummary)
}

type orderSummaryResponse struct {
	IncrementID        string               `json:"increment_id"`
	CreatedAt          time.Time            `json:"created_at"`
	PaymentMethodTitle string               `json:"payment_method_title"`
	FormattedAddress   []string             `json:"formatted_address,omitempty"`
	GrandTotal         string               `json:"grand_total"`
	CurrencyCode       string               `json:"currency_code"`
	Items              []summaryItemPayload `json:"items"`
}

type summaryItemPayload struct {
	Name     string          `json:"name"`
	SKU      string          `json:"sku,omitempty"`
	Qty      decimal.Decimal `json:"qty"`
	Price    string          `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
}

func (h *OrderHandlers) getSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.summaries == nil {
		httpx.WriteError(ctx, w, httpx.NewError("summary_service_unavailable", "order summary service unavailable", http.StatusServiceUnavailable))
		return
	}

	incrementID := strings.TrimSpace(r.URL.Query().Get("shop_orderid"))
	if incrementID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shop_orderid is required", http.StatusBadRequest))
		return
	}

	summary, err := h.summaries.Summary(ctx, incrementID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "order summary failed", http.StatusInternalServerError))
		return
	}

	items := make([]summaryItemPayload, 0, len(summary.Items))
	for _, item := range summary.Items {
		items = append(items, summaryItemPayload{
			Name:     item.Name,
			SKU:      item.SKU,
			Qty:      item.Qty,
			Price:    item.Price,
			ImageURL: item.ImageURL,
		})
	}

	writeJSON(w, http.StatusOK, orderSummaryResponse{
		IncrementID:        summary.IncrementID,
		CreatedAt:          summary.CreatedAt,
		PaymentMethodTitle: summary.PaymentMethodTitle,
		FormattedAddress:   summary.FormattedAddress,
		GrandTotal:         summary.GrandTotal,
		CurrencyCode:       summary.CurrencyCode,
		Items:              items,
	})
}
