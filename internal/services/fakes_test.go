package services

import (
	"context"
	"fmt"

	domain "github.com/valitor-commerce/api/internal/domain"
	"github.com/valitor-commerce/api/internal/gateway"
)

type notFoundError struct{ msg string }

func (e notFoundError) Error() string       { return e.msg }
func (e notFoundError) IsNotFound() bool    { return true }
func (e notFoundError) IsConflict() bool    { return false }
func (e notFoundError) IsUnavailable() bool { return false }

type stubOrderRepository struct {
	order   domain.Order
	loadErr error
	saveErr error
	saved   []domain.Order
}

func (r *stubOrderRepository) LoadByIncrementID(_ context.Context, incrementID string) (domain.Order, error) {
	if r.loadErr != nil {
		return domain.Order{}, r.loadErr
	}
	if r.order.IncrementID != incrementID {
		return domain.Order{}, notFoundError{msg: "order " + incrementID + " not found"}
	}
	return r.order, nil
}

func (r *stubOrderRepository) Save(_ context.Context, order domain.Order) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, order)
	return nil
}

type stubTaxLineRepository struct {
	lines []domain.TaxLine
	err   error
}

func (r *stubTaxLineRepository) ListByOrderID(context.Context, string) ([]domain.TaxLine, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.lines, nil
}

type stubCartRuleRepository struct {
	rules map[string]domain.CartRule
	err   error
}

func (r *stubCartRuleRepository) FindByID(_ context.Context, ruleID string) (domain.CartRule, error) {
	if r.err != nil {
		return domain.CartRule{}, r.err
	}
	rule, ok := r.rules[ruleID]
	if !ok {
		return domain.CartRule{}, notFoundError{msg: "cart rule " + ruleID + " not found"}
	}
	return rule, nil
}

type stubProductRepository struct {
	products map[string]domain.Product
	err      error
}

func (r *stubProductRepository) FindByID(_ context.Context, productID string) (domain.Product, error) {
	if r.err != nil {
		return domain.Product{}, r.err
	}
	product, ok := r.products[productID]
	if !ok {
		return domain.Product{}, notFoundError{msg: "product " + productID + " not found"}
	}
	return product, nil
}

type stubStoreConfigRepository struct {
	values map[string]string
	err    error
}

func (r *stubStoreConfigRepository) Value(_ context.Context, storeCode, path string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.values[storeCode+"|"+path], nil
}

type stubGatewayClient struct {
	refundResult gateway.RefundResult
	refundErr    error
	refunds      []domain.RefundRequest
	terminals    []gateway.Terminal
	terminalsErr error
}

func (c *stubGatewayClient) RefundCapturedReservation(_ context.Context, _ gateway.Auth, req domain.RefundRequest) (gateway.RefundResult, error) {
	c.refunds = append(c.refunds, req)
	if c.refundErr != nil {
		return gateway.RefundResult{}, c.refundErr
	}
	return c.refundResult, nil
}

func (c *stubGatewayClient) Terminals(context.Context, gateway.Auth) ([]gateway.Terminal, error) {
	if c.terminalsErr != nil {
		return nil, c.terminalsErr
	}
	return c.terminals, nil
}

type stubStoreAccounts struct {
	auth      gateway.Auth
	authErr   error
	methods   map[string]bool
	mediaBase string
}

func (a *stubStoreAccounts) AuthForStore(storeCode string) (gateway.Auth, error) {
	if a.authErr != nil {
		return gateway.Auth{}, a.authErr
	}
	if a.auth.BaseURL == "" {
		return gateway.Auth{}, fmt.Errorf("no gateway account for store %s", storeCode)
	}
	return a.auth, nil
}

func (a *stubStoreAccounts) HandlesMethod(method string) bool { return a.methods[method] }

func (a *stubStoreAccounts) MediaBaseURL(string) string { return a.mediaBase }
