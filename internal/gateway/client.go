package gateway

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	domain "github.com/valitor-commerce/api/internal/domain"
)

const (
	refundEndpoint    = "/merchant/API/refundCapturedReservation"
	terminalsEndpoint = "/merchant/API/getTerminals"

	attemptIDHeader = "X-Refund-Attempt-Id"
)

// Logger defines the logging contract for gateway operations.
type Logger func(ctx context.Context, event string, fields map[string]any)

// APIClientConfig configures the APIClient.
type APIClientConfig struct {
	Timeout time.Duration
	Logger  Logger
}

// APIClient implements Client over the gateway's merchant HTTP API.
type APIClient struct {
	http   *resty.Client
	logger Logger
}

// NewAPIClient constructs a gateway client with the supplied configuration.
func NewAPIClient(cfg APIClientConfig) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &APIClient{
		http:   resty.New().SetTimeout(timeout),
		logger: logger,
	}
}

// RefundCapturedReservation submits a refund against a captured reservation.
// Failure modes: *TransportError when no usable response exists, and
// *ProtocolError when the response header reports an error or the body cannot
// be decoded. A decoded body is returned as RefundResult even when Result is
// not Success; interpreting it is the caller's concern.
func (c *APIClient) RefundCapturedReservation(ctx context.Context, auth Auth, req domain.RefundRequest) (RefundResult, error) {
	if err := validateAuth(auth); err != nil {
		return RefundResult{}, err
	}

	form := refundFormValues(req)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(auth.Username, auth.Password).
		SetHeader(attemptIDHeader, req.AttemptID).
		SetFormDataFromValues(form).
		Post(strings.TrimRight(auth.BaseURL, "/") + refundEndpoint)
	if err != nil {
		return RefundResult{}, &TransportError{Op: "refundCapturedReservation", Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return RefundResult{}, &TransportError{Op: "refundCapturedReservation", Status: resp.StatusCode()}
	}

	body := resp.Body()
	envelope, err := decodeEnvelope(body)
	if err != nil {
		return RefundResult{}, err
	}

	c.logger(ctx, "gateway.refund.response", map[string]any{
		"attemptId": req.AttemptID,
		"result":    envelope.Body.Result,
	})

	return RefundResult{
		Result:               envelope.Body.Result,
		MerchantErrorMessage: envelope.Body.MerchantErrorMessage,
		RawBody:              body,
	}, nil
}

// Terminals lists the terminals available to the authenticated account.
func (c *APIClient) Terminals(ctx context.Context, auth Auth) ([]Terminal, error) {
	if err := validateAuth(auth); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(auth.Username, auth.Password).
		Get(strings.TrimRight(auth.BaseURL, "/") + terminalsEndpoint)
	if err != nil {
		return nil, &TransportError{Op: "getTerminals", Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &TransportError{Op: "getTerminals", Status: resp.StatusCode()}
	}

	envelope, err := decodeEnvelope(resp.Body())
	if err != nil {
		return nil, err
	}
	return envelope.Body.Terminals, nil
}

func decodeEnvelope(body []byte) (apiResponse, error) {
	var envelope apiResponse
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return apiResponse{}, &ProtocolError{Message: fmt.Sprintf("undecodable response: %v", err)}
	}
	if envelope.Header.ErrorCode != 0 {
		return apiResponse{}, &ProtocolError{Code: envelope.Header.ErrorCode, Message: envelope.Header.ErrorMessage}
	}
	return envelope, nil
}

func validateAuth(auth Auth) error {
	if strings.TrimSpace(auth.BaseURL) == "" {
		return errors.New("gateway: base url is required")
	}
	if strings.TrimSpace(auth.Username) == "" {
		return errors.New("gateway: username is required")
	}
	return nil
}

// refundFormValues flattens the refund request into the gateway's indexed
// form-parameter layout.
func refundFormValues(req domain.RefundRequest) url.Values {
	form := url.Values{}
	form.Set("amount", domain.FormatAmount(req.Amount))
	if req.TransactionID != "" {
		form.Set("transaction_id", req.TransactionID)
	}
	for i, line := range req.Lines {
		prefix := fmt.Sprintf("orderLines[%d]", i)
		form.Set(prefix+"[description]", line.Description)
		form.Set(prefix+"[itemId]", line.ItemID)
		form.Set(prefix+"[quantity]", line.Quantity.String())
		form.Set(prefix+"[unitPrice]", domain.FormatAmount(line.UnitPrice))
		form.Set(prefix+"[discount]", domain.FormatAmount(line.DiscountPercent))
		form.Set(prefix+"[taxAmount]", domain.FormatAmount(line.TaxAmount))
		form.Set(prefix+"[taxPercent]", domain.FormatAmount(line.TaxPercent))
		if line.GoodsType != "" {
			form.Set(prefix+"[goodsType]", string(line.GoodsType))
		}
		if line.UnitCode != "" {
			form.Set(prefix+"[unitCode]", line.UnitCode)
		}
		if line.ProductURL != "" {
			form.Set(prefix+"[productUrl]", line.ProductURL)
		}
		if line.ImageURL != "" {
			form.Set(prefix+"[imageUrl]", line.ImageURL)
		}
	}
	return form
}
