// Package gateway implements the Valitor payment API adapter: request
// construction, XML envelope decoding, and the typed failure modes the
// services layer branches on.
package gateway

import (
	"context"
	"encoding/xml"

	domain "github.com/valitor-commerce/api/internal/domain"
)

// Result values returned in the gateway response body.
const (
	ResultSuccess = "Success"
	ResultError   = "Error"
	ResultFailed  = "Failed"
)

// Auth binds a store to its gateway account.
type Auth struct {
	BaseURL  string
	Username string
	Password string
}

// Terminal is one configured gateway endpoint selectable per store.
type Terminal struct {
	Title   string `xml:"Title"`
	Country string `xml:"Country"`
}

// RefundResult carries the decoded refund response plus the raw body for
// operator-facing logs.
type RefundResult struct {
	Result               string
	MerchantErrorMessage string
	RawBody              []byte
}

// Succeeded reports whether the gateway accepted the refund.
func (r RefundResult) Succeeded() bool {
	return r.Result == ResultSuccess
}

// Rejected reports an explicit gateway-side rejection.
func (r RefundResult) Rejected() bool {
	return r.Result == ResultError || r.Result == ResultFailed
}

// Client is the outbound contract the services layer depends on.
type Client interface {
	RefundCapturedReservation(ctx context.Context, auth Auth, req domain.RefundRequest) (RefundResult, error)
	Terminals(ctx context.Context, auth Auth) ([]Terminal, error)
}

// apiResponse is the gateway's XML envelope shared by every endpoint.
type apiResponse struct {
	XMLName xml.Name       `xml:"APIResponse"`
	Header  responseHeader `xml:"Header"`
	Body    responseBody   `xml:"Body"`
}

type responseHeader struct {
	ErrorCode    int    `xml:"ErrorCode"`
	ErrorMessage string `xml:"ErrorMessage"`
}

type responseBody struct {
	Result               string     `xml:"Result"`
	MerchantErrorMessage string     `xml:"MerchantErrorMessage"`
	Terminals            []Terminal `xml:"Terminals>Terminal"`
}
