package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"testing"
)

func testConfig() *Config {
	cfg := &Config{SecretKey: "sk_test_secret"}
	cfg.Normalize()
	return cfg
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	cfg := testConfig()
	body := []byte(`{"event":"charge.success","data":{"reference":"PSK-001","amount":500000}}`)

	if err := VerifySignature(cfg, body, signBody(cfg.SecretKey, body)); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}

	// 签名来自改写前的原文，篡改一个字节即失败
	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] = '1'
	if err := VerifySignature(cfg, tampered, signBody(cfg.SecretKey, body)); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for tampered body, got %v", err)
	}

	if err := VerifySignature(cfg, body, signBody("sk_other_secret", body)); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for wrong secret, got %v", err)
	}

	if err := VerifySignature(cfg, body, ""); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for empty header, got %v", err)
	}

	if err := VerifySignature(cfg, body, "not-hex"); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for non-hex header, got %v", err)
	}
}

func TestVerifySignatureRawBytesSensitive(t *testing.T) {
	cfg := testConfig()
	// 语义等价但字节不同的 JSON 不能通过校验
	original := []byte(`{"a":1,"b":2}`)
	reordered := []byte(`{"b":2,"a":1}`)

	sig := signBody(cfg.SecretKey, original)
	if err := VerifySignature(cfg, original, sig); err != nil {
		t.Fatalf("original body should verify: %v", err)
	}
	if err := VerifySignature(cfg, reordered, sig); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("reordered body must fail verification, got %v", err)
	}
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"event": "charge.success",
		"data": {
			"id": 302961,
			"reference": "PSK-REF-001",
			"amount": 500000,
			"currency": "NGN",
			"status": "success",
			"channel": "card",
			"gateway_response": "Successful",
			"customer": {"email": "ada@example.com"}
		}
	}`)

	event, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("ParseWebhook failed: %v", err)
	}
	if event.Event != EventChargeSuccess {
		t.Fatalf("expected event %q, got %q", EventChargeSuccess, event.Event)
	}
	if event.Data.Reference != "PSK-REF-001" {
		t.Fatalf("unexpected reference: %q", event.Data.Reference)
	}
	if event.Data.Amount != 500000 {
		t.Fatalf("expected minor-unit amount 500000, got %d", event.Data.Amount)
	}
	if event.Data.Customer.Email != "ada@example.com" {
		t.Fatalf("unexpected customer email: %q", event.Data.Customer.Email)
	}
	if !event.Data.IsSuccess() {
		t.Fatalf("expected success status")
	}
}

func TestParseWebhookInvalid(t *testing.T) {
	if _, err := ParseWebhook(nil); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid for empty body, got %v", err)
	}
	if _, err := ParseWebhook([]byte(`{"event":`)); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid for truncated JSON, got %v", err)
	}
	if _, err := ParseWebhook([]byte(`{"data":{}}`)); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid for missing event type, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(nil); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for nil config, got %v", err)
	}
	if err := ValidateConfig(&Config{BaseURL: "https://api.paystack.co"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for missing secret, got %v", err)
	}

	cfg := &Config{SecretKey: " sk_test_x ", BaseURL: " https://api.paystack.co/ "}
	cfg.Normalize()
	if cfg.SecretKey != "sk_test_x" || cfg.BaseURL != "https://api.paystack.co" {
		t.Fatalf("normalize failed: %+v", cfg)
	}
	if cfg.Currency != "NGN" || cfg.TimeoutMS != 15000 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
