package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/valitor-commerce/api/internal/domain"
	"github.com/valitor-commerce/api/internal/repositories"
)

// ErrOrderNotFound signals an unknown order increment id.
var ErrOrderNotFound = errors.New("order summary: order not found")

// OrderSummary is the payment-callback page payload.
type OrderSummary struct {
	IncrementID        string
	CreatedAt          time.Time
	PaymentMethodTitle string
	FormattedAddress   []string
	GrandTotal         string
	CurrencyCode       string
	Items              []SummaryItem
}

// SummaryItem is one rendered order row.
type SummaryItem struct {
	Name     string
	SKU      string
	Qty      decimal.Decimal
	Price    string
	ImageURL string
}

// OrderSummaryServiceDeps wires the summary service's collaborators.
type OrderSummaryServiceDeps struct {
	Orders   repositories.OrderRepository
	Products repositories.ProductRepository
	Config   repositories.StoreConfigRepository
	Accounts StoreAccounts
	Logger   Logger
}

// OrderSummaryService renders an order for the payment-callback page.
type OrderSummaryService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	config   repositories.StoreConfigRepository
	accounts StoreAccounts
	logger   Logger
}

// NewOrderSummaryService constructs an OrderSummaryService.
func NewOrderSummaryService(deps OrderSummaryServiceDeps) (*OrderSummaryService, error) {
	if deps.Orders == nil || deps.Products == nil || deps.Config == nil {
		return nil, errors.New("order summary service: repositories are required")
	}
	if deps.Accounts == nil {
		return nil, errors.New("order summary service: store accounts are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &OrderSummaryService{
		orders:   deps.Orders,
		products: deps.Products,
		config:   deps.Config,
		accounts: deps.Accounts,
		logger:   logger,
	}, nil
}

// Summary loads the order behind a shop order id and shapes it for display.
func (s *OrderSummaryService) Summary(ctx context.Context, incrementID string) (OrderSummary, error) {
	order, err := s.orders.LoadByIncrementID(ctx, incrementID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return OrderSummary{}, fmt.Errorf("%w: %s", ErrOrderNotFound, incrementID)
		}
		return OrderSummary{}, fmt.Errorf("order summary: load order %s: %w", incrementID, err)
	}

	summary := OrderSummary{
		IncrementID:        order.IncrementID,
		CreatedAt:          order.CreatedAt,
		PaymentMethodTitle: s.paymentMethodTitle(ctx, order),
		FormattedAddress:   formatOrderAddress(order),
		GrandTotal:         domain.FormatAmount(order.GrandTotal),
		CurrencyCode:       order.CurrencyCode,
		Items:              s.summaryItems(ctx, order),
	}
	return summary, nil
}

// paymentMethodTitle resolves the method's configured title, falling back to
// the terminal-name key when no title is set for the store.
func (s *OrderSummaryService) paymentMethodTitle(ctx context.Context, order domain.Order) string {
	method := order.Payment.Method
	title, err := s.config.Value(ctx, order.StoreCode, "payment/"+method+"/title")
	if err != nil {
		s.logger(ctx, "summary.config_lookup_failed", map[string]any{
			"store": order.StoreCode,
			"error": err.Error(),
		})
		return method
	}
	if strings.TrimSpace(title) != "" {
		return title
	}
	fallback, err := s.config.Value(ctx, order.StoreCode, "payment/"+method+"/terminalname")
	if err != nil || strings.TrimSpace(fallback) == "" {
		return method
	}
	return fallback
}

// summaryItems shapes the order rows, resolving each item's image through the
// catalog when the order row carries none.
func (s *OrderSummaryService) summaryItems(ctx context.Context, order domain.Order) []SummaryItem {
	mediaBase := s.accounts.MediaBaseURL(order.StoreCode)
	items := make([]SummaryItem, 0, len(order.Items))
	for _, item := range order.Items {
		thumbnail := item.Thumbnail
		if thumbnail == "" || thumbnail == domain.ThumbnailNoSelection {
			thumbnail = s.catalogThumbnail(ctx, item.ProductID)
		}
		items = append(items, SummaryItem{
			Name:     item.DisplayName(),
			SKU:      item.SKU,
			Qty:      item.QtyOrdered,
			Price:    domain.FormatAmount(item.PriceInclTax),
			ImageURL: imageURL(mediaBase, thumbnail),
		})
	}
	return items
}

func (s *OrderSummaryService) catalogThumbnail(ctx context.Context, productID string) string {
	if productID == "" {
		return ""
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if !repositories.IsNotFound(err) {
			s.logger(ctx, "summary.product_lookup_failed", map[string]any{
				"productId": productID,
				"error":     err.Error(),
			})
		}
		return ""
	}
	return product.Thumbnail
}

// formatOrderAddress renders the shipping address, or the billing address
// when the order has no shipping address (virtual orders).
func formatOrderAddress(order domain.Order) []string {
	if order.ShippingAddress != nil {
		return order.ShippingAddress.Format()
	}
	if order.BillingAddress != nil {
		return order.BillingAddress.Format()
	}
	return nil
}
