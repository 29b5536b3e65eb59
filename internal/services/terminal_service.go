package services

import (
	"context"
	"sort"

	"github.com/valitor-commerce/api/internal/gateway"
)

// TerminalOption is one value/label pair for the store-configuration select.
type TerminalOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// placeholderOption heads every terminal list, selected or not.
var placeholderOption = TerminalOption{Value: " ", Label: "-- Please Select --"}

// TerminalService lists the merchant's gateway terminals as select options.
type TerminalService struct {
	gateway  gateway.Client
	accounts StoreAccounts
	logger   Logger
}

// NewTerminalService constructs a TerminalService.
func NewTerminalService(gw gateway.Client, accounts StoreAccounts, opts ...TerminalServiceOption) *TerminalService {
	s := &TerminalService{gateway: gw, accounts: accounts, logger: noopLogger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TerminalServiceOption customises a TerminalService.
type TerminalServiceOption func(*TerminalService)

// WithTerminalLogger wires an event logger.
func WithTerminalLogger(logger Logger) TerminalServiceOption {
	return func(s *TerminalService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Options returns the placeholder followed by the store's terminals sorted by
// title. A gateway or credential failure degrades to the placeholder-only
// list so the configuration screen still renders.
func (s *TerminalService) Options(ctx context.Context, storeCode string) []TerminalOption {
	options := []TerminalOption{placeholderOption}

	auth, err := s.accounts.AuthForStore(storeCode)
	if err != nil {
		s.logger(ctx, "terminals.auth_unavailable", map[string]any{
			"store": storeCode,
			"error": err.Error(),
		})
		return options
	}
	terminals, err := s.gateway.Terminals(ctx, auth)
	if err != nil {
		s.logger(ctx, "terminals.list_failed", map[string]any{
			"store": storeCode,
			"error": err.Error(),
		})
		return options
	}

	sort.Slice(terminals, func(i, j int) bool { return terminals[i].Title < terminals[j].Title })
	for _, t := range terminals {
		options = append(options, TerminalOption{Value: t.Title, Label: t.Title})
	}
	return options
}
