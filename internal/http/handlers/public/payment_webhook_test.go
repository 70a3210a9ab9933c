package public

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nairamart-next/internal/config"
	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/models"
	"github.com/nairamart-next/internal/paystack"
	"github.com/nairamart-next/internal/provider"
	"github.com/nairamart-next/internal/repository"
	"github.com/nairamart-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupWebhookTest(t *testing.T) (*gin.Engine, *paystack.Config, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:webhook_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.PaymentReference{},
		&models.ReconcileAlert{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	psCfg := &paystack.Config{SecretKey: "sk_test_webhook_secret", Currency: "NGN"}
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	walletSvc := service.NewWalletService(walletRepo, userRepo, psCfg, config.WalletConfig{})
	reconcileSvc := service.NewReconcileService(
		repository.NewPaymentReferenceRepository(db),
		repository.NewOrderRepository(db),
		userRepo,
		repository.NewReconcileAlertRepository(db),
		walletSvc,
		nil,
		psCfg,
	)

	handler := New(&provider.Container{
		PaystackCfg:      psCfg,
		ReconcileService: reconcileSvc,
	})

	r := gin.New()
	r.POST("/payments/webhook/paystack", handler.PaystackWebhook)
	return r, psCfg, db
}

func postWebhook(t *testing.T, r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/paystack", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Paystack-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func chargeSuccessBody(t *testing.T, reference, email string, amountMinor int64) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"event": "charge.success",
		"data": map[string]interface{}{
			"reference": reference,
			"amount":    amountMinor,
			"currency":  "NGN",
			"status":    "success",
			"channel":   "card",
			"customer":  map[string]interface{}{"email": email},
		},
	})
	if err != nil {
		t.Fatalf("marshal webhook body failed: %v", err)
	}
	return body
}

func TestPaystackWebhookRejectsMissingSignature(t *testing.T) {
	r, _, _ := setupWebhookTest(t)

	w := postWebhook(t, r, chargeSuccessBody(t, "WH-REF-1", "ada@example.com", 100000), "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestPaystackWebhookRejectsTamperedBody(t *testing.T) {
	r, psCfg, _ := setupWebhookTest(t)

	body := chargeSuccessBody(t, "WH-REF-2", "ada@example.com", 100000)
	signature := paystack.Sign(psCfg, body)
	tampered := bytes.Replace(body, []byte("100000"), []byte("900000"), 1)

	w := postWebhook(t, r, tampered, signature)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered body, got %d", w.Code)
	}
}

func TestPaystackWebhookRejectsMalformedJSON(t *testing.T) {
	r, psCfg, _ := setupWebhookTest(t)

	body := []byte("{not valid json")
	w := postWebhook(t, r, body, paystack.Sign(psCfg, body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", w.Code)
	}
}

func TestPaystackWebhookIgnoresOtherEvents(t *testing.T) {
	r, psCfg, _ := setupWebhookTest(t)

	body, err := json.Marshal(map[string]interface{}{
		"event": "transfer.success",
		"data":  map[string]interface{}{"reference": "WH-REF-3"},
	})
	if err != nil {
		t.Fatalf("marshal body failed: %v", err)
	}
	w := postWebhook(t, r, body, paystack.Sign(psCfg, body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for ignored event, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if ignored, _ := resp["ignored"].(bool); !ignored {
		t.Fatalf("expected ignored flag, got %v", resp)
	}
}

func TestPaystackWebhookCreditsWalletOnce(t *testing.T) {
	r, psCfg, db := setupWebhookTest(t)

	now := time.Now()
	user := &models.User{
		Email:        "ada@example.com",
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	body := chargeSuccessBody(t, "WH-REF-4", "ada@example.com", 250000)
	signature := paystack.Sign(psCfg, body)

	w := postWebhook(t, r, body, signature)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["result"] != constants.ReconcileOutcomeApplied {
		t.Fatalf("expected applied, got %v", resp["result"])
	}

	// 重投同一事件必须收敛为 already_applied，余额不变
	w = postWebhook(t, r, body, signature)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal redelivery response failed: %v", err)
	}
	if resp["result"] != constants.ReconcileOutcomeAlreadyApplied {
		t.Fatalf("expected already_applied, got %v", resp["result"])
	}

	var account models.WalletAccount
	if err := db.Where("user_id = ?", user.ID).First(&account).Error; err != nil {
		t.Fatalf("load wallet account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromFloat(2500.00)) {
		t.Fatalf("expected balance 2500.00, got %s", account.Balance.String())
	}
}
