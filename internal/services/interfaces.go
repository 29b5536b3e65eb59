package services

import (
	"context"

	"github.com/valitor-commerce/api/internal/gateway"
)

// Logger is the structured logging contract shared by services.
type Logger func(ctx context.Context, event string, fields map[string]any)

func noopLogger(context.Context, string, map[string]any) {}

// StoreAccounts resolves gateway credentials and plugin scope per store.
type StoreAccounts interface {
	// AuthForStore returns the gateway account bound to a store.
	AuthForStore(storeCode string) (gateway.Auth, error)
	// HandlesMethod reports whether the payment method code belongs to one
	// of this plugin's configured terminals.
	HandlesMethod(method string) bool
	// MediaBaseURL returns the store's media base URL used to derive product
	// image links. Empty when not configured.
	MediaBaseURL(storeCode string) string
}
