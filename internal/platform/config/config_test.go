package config

import (
	"errors"
	"strings"
	"testing"
)

func TestLoad_FromEnvMap(t *testing.T) {
	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_SERVER_PORT":            "9090",
			"API_GATEWAY_BASE_URL":       "https://testgateway.valitor.com",
			"API_GATEWAY_TIMEOUT":        "10s",
			"API_GATEWAY_USERNAMES":      "default=shop_api,nordic=nordic_api",
			"API_GATEWAY_PASSWORDS":      "default=secret1,nordic=secret2",
			"API_GATEWAY_TERMINAL_CODES": "valitor_terminal_1, valitor_terminal_2",
			"API_STORE_MEDIA_BASE_URLS":  "default=https://shop.example/media/",
		}),
	)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Gateway.BaseURL != "https://testgateway.valitor.com" {
		t.Fatalf("unexpected gateway base url %q", cfg.Gateway.BaseURL)
	}
	if cfg.Gateway.Timeout.Seconds() != 10 {
		t.Fatalf("expected 10s gateway timeout, got %s", cfg.Gateway.Timeout)
	}
	if got := cfg.Stores.Usernames["nordic"]; got != "nordic_api" {
		t.Fatalf("expected nordic username, got %q", got)
	}
	if len(cfg.Stores.TerminalCodes) != 2 || cfg.Stores.TerminalCodes[1] != "valitor_terminal_2" {
		t.Fatalf("unexpected terminal codes %v", cfg.Stores.TerminalCodes)
	}
	if got := cfg.Stores.MediaBaseURLs["default"]; got != "https://shop.example/media/" {
		t.Fatalf("unexpected media base url %q", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_GATEWAY_BASE_URL": "https://gateway.valitor.com",
		}),
	)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Server.Port)
	}
	if cfg.Gateway.Timeout != defaultGatewayTimeout {
		t.Fatalf("expected default gateway timeout, got %s", cfg.Gateway.Timeout)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	_, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_GATEWAY_USERNAMES": "default=shop_api",
		}),
	)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Gateway.BaseURL") {
		t.Fatalf("expected Gateway.BaseURL in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Stores.Passwords[default]") {
		t.Fatalf("expected missing password in error, got %v", err)
	}
}
