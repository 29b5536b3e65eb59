package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/valitor-commerce/api/internal/domain"
)

func testAuth(baseURL string) Auth {
	return Auth{BaseURL: baseURL, Username: "merchant", Password: "secret"}
}

func testRequest() domain.RefundRequest {
	return domain.RefundRequest{
		AttemptID:     "01HTESTATTEMPT",
		TransactionID: "trans-99",
		Amount:        decimal.RequireFromString("110.00"),
		Lines: []domain.OrderLine{{
			Description: "Mug",
			ItemID:      "10",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("100.00"),
			TaxAmount:   decimal.RequireFromString("10.00"),
			TaxPercent:  decimal.NewFromInt(10),
			GoodsType:   domain.GoodsTypeItem,
			UnitCode:    "unit",
		}},
	}
}

func TestAPIClient_RefundCapturedReservation_Success(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		captured = r
		w.Write([]byte(`<APIResponse><Header><ErrorCode>0</ErrorCode></Header><Body><Result>Success</Result></Body></APIResponse>`))
	}))
	defer server.Close()

	client := NewAPIClient(APIClientConfig{})
	result, err := client.RefundCapturedReservation(context.Background(), testAuth(server.URL), testRequest())
	if err != nil {
		t.Fatalf("RefundCapturedReservation error: %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("expected success, got %q", result.Result)
	}

	if captured.URL.Path != "/merchant/API/refundCapturedReservation" {
		t.Fatalf("unexpected path %q", captured.URL.Path)
	}
	user, pass, ok := captured.BasicAuth()
	if !ok || user != "merchant" || pass != "secret" {
		t.Fatal("expected basic auth credentials on the request")
	}
	form := captured.PostForm
	if got := form.Get("amount"); got != "110.00" {
		t.Fatalf("expected amount 110.00, got %q", got)
	}
	if got := form.Get("transaction_id"); got != "trans-99" {
		t.Fatalf("expected transaction_id trans-99, got %q", got)
	}
	if got := form.Get("orderLines[0][unitPrice]"); got != "100.00" {
		t.Fatalf("expected unit price 100.00, got %q", got)
	}
	if got := form.Get("orderLines[0][goodsType]"); got != "item" {
		t.Fatalf("expected goods type item, got %q", got)
	}
}

func TestAPIClient_RefundCapturedReservation_HeaderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<APIResponse><Header><ErrorCode>401</ErrorCode><ErrorMessage>bad credentials</ErrorMessage></Header><Body></Body></APIResponse>`))
	}))
	defer server.Close()

	client := NewAPIClient(APIClientConfig{})
	_, err := client.RefundCapturedReservation(context.Background(), testAuth(server.URL), testRequest())
	if !IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestAPIClient_RefundCapturedReservation_UndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<<<not xml`))
	}))
	defer server.Close()

	client := NewAPIClient(APIClientConfig{})
	_, err := client.RefundCapturedReservation(context.Background(), testAuth(server.URL), testRequest())
	if !IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestAPIClient_RefundCapturedReservation_HTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewAPIClient(APIClientConfig{})
	_, err := client.RefundCapturedReservation(context.Background(), testAuth(server.URL), testRequest())
	if !IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestAPIClient_RefundCapturedReservation_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewAPIClient(APIClientConfig{})
	_, err := client.RefundCapturedReservation(context.Background(), testAuth(server.URL), testRequest())
	if !IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestAPIClient_Terminals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/merchant/API/getTerminals" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`<APIResponse><Header><ErrorCode>0</ErrorCode></Header><Body><Terminals><Terminal><Title>EUR Terminal</Title><Country>DE</Country></Terminal><Terminal><Title>ISK Terminal</Title><Country>IS</Country></Terminal></Terminals></Body></APIResponse>`))
	}))
	defer server.Close()

	client := NewAPIClient(APIClientConfig{})
	terminals, err := client.Terminals(context.Background(), testAuth(server.URL))
	if err != nil {
		t.Fatalf("Terminals error: %v", err)
	}
	if len(terminals) != 2 {
		t.Fatalf("expected 2 terminals, got %d", len(terminals))
	}
	if terminals[0].Title != "EUR Terminal" || terminals[0].Country != "DE" {
		t.Fatalf("unexpected terminal %+v", terminals[0])
	}
}

func TestAPIClient_MissingAuthRejectedBeforeRequest(t *testing.T) {
	client := NewAPIClient(APIClientConfig{})
	if _, err := client.RefundCapturedReservation(context.Background(), Auth{}, testRequest()); err == nil {
		t.Fatal("expected an error for missing auth")
	}
	if _, err := client.Terminals(context.Background(), Auth{BaseURL: "https://gateway.example"}); err == nil {
		t.Fatal("expected an error for missing username")
	}
}
