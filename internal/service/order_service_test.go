package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nairamart-next/internal/config"
	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/models"
	"github.com/nairamart-next/internal/paystack"
	"github.com/nairamart-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderServiceTest(t *testing.T, psCfg *paystack.Config) (*OrderService, *WalletService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	if psCfg == nil {
		psCfg = &paystack.Config{SecretKey: "sk_test_secret", Currency: "NGN"}
	}
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	walletSvc := NewWalletService(walletRepo, userRepo, psCfg, config.WalletConfig{})
	svc := NewOrderService(orderRepo, userRepo, walletSvc, psCfg, 30)
	return svc, walletSvc, db
}

func TestOrderServiceCreateOrder(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t, nil)
	user := createWalletTestUser(t, db, "order1@example.com")

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items: []CreateOrderItem{
			{ProductID: 1, Title: "MTN Recharge Card", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(500)), Quantity: 2},
			{ProductID: 2, Title: "SIM Pack", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(149.99)), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if !order.TotalAmount.Decimal.Equal(decimal.NewFromFloat(1149.99)) {
		t.Fatalf("expected total 1149.99, got %s", order.TotalAmount.String())
	}
	if !strings.HasPrefix(order.PaymentRef, constants.ReferencePrefixOrder) {
		t.Fatalf("payment ref must carry prefix, got %s", order.PaymentRef)
	}
	if !strings.HasPrefix(order.OrderNo, "NM") {
		t.Fatalf("unexpected order no %s", order.OrderNo)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
}

func TestOrderServiceCreateOrderValidation(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t, nil)
	user := createWalletTestUser(t, db, "order2@example.com")

	cases := []CreateOrderInput{
		{UserID: 0, Items: []CreateOrderItem{{Title: "x", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1)), Quantity: 1}}},
		{UserID: user.ID},
		{UserID: user.ID, Items: []CreateOrderItem{{Title: "", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1)), Quantity: 1}}},
		{UserID: user.ID, Items: []CreateOrderItem{{Title: "x", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1)), Quantity: 0}}},
	}
	for i, input := range cases {
		if _, err := svc.CreateOrder(input); !errors.Is(err, ErrInvalidParams) {
			t.Fatalf("case %d: expected ErrInvalidParams, got %v", i, err)
		}
	}
}

func TestOrderServicePayWithWallet(t *testing.T) {
	svc, walletSvc, db := setupOrderServiceTest(t, nil)
	user := createWalletTestUser(t, db, "order3@example.com")

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := walletSvc.CreditInTx(tx, WalletCreditInput{
			UserID:    user.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(2000)),
			Channel:   constants.PaymentChannelManual,
			Reference: "O-SEED-1",
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed wallet failed: %v", err)
	}

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{Title: "Data Bundle", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(1200)), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	paid, err := svc.PayWithWallet(order.ID, user.ID)
	if err != nil {
		t.Fatalf("pay with wallet failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid || paid.PaidAt == nil {
		t.Fatalf("order not paid: status=%s paid_at=%v", paid.Status, paid.PaidAt)
	}

	account, err := walletSvc.GetAccount(user.ID)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromFloat(800)) {
		t.Fatalf("expected balance 800, got %s", account.Balance.String())
	}

	// 重复支付被拒
	if _, err := svc.PayWithWallet(order.ID, user.ID); !errors.Is(err, ErrOrderAlreadyPaid) {
		t.Fatalf("expected ErrOrderAlreadyPaid, got %v", err)
	}

	var txn models.WalletTransaction
	if err := db.Where("reference = ?", order.PaymentRef).First(&txn).Error; err != nil {
		t.Fatalf("wallet debit missing: %v", err)
	}
	if txn.Type != constants.WalletTxnTypeDebit {
		t.Fatalf("expected debit, got %s", txn.Type)
	}
}

func TestOrderServicePayWithWalletInsufficientFunds(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t, nil)
	user := createWalletTestUser(t, db, "order4@example.com")

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{Title: "Airtime", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(700)), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.PayWithWallet(order.ID, user.ID); !errors.Is(err, ErrWalletInsufficientFunds) {
		t.Fatalf("expected ErrWalletInsufficientFunds, got %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("failed payment must keep order pending, got %s", reloaded.Status)
	}
}

func TestOrderServiceInitiatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc123","access_code":"abc123","reference":"ignored"}}`)
	}))
	defer server.Close()

	psCfg := &paystack.Config{SecretKey: "sk_test_secret", BaseURL: server.URL, Currency: "NGN"}
	svc, _, db := setupOrderServiceTest(t, psCfg)
	user := createWalletTestUser(t, db, "order5@example.com")

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{Title: "Router", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(25000)), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	result, err := svc.InitiatePayment(context.Background(), order.ID, user.ID)
	if err != nil {
		t.Fatalf("initiate payment failed: %v", err)
	}
	if result.Reference != order.PaymentRef {
		t.Fatalf("initiate must reuse order payment ref, got %s", result.Reference)
	}
	if result.AuthorizationURL != "https://checkout.paystack.com/abc123" {
		t.Fatalf("unexpected authorization url %s", result.AuthorizationURL)
	}
}

func TestOrderServiceStatusTransitions(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t, nil)
	user := createWalletTestUser(t, db, "order6@example.com")

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{Title: "Phone", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(90000)), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 待支付不可直接发货
	if _, err := svc.UpdateStatus(order.ID, constants.OrderStatusShipped); !errors.Is(err, ErrOrderStatusTransition) {
		t.Fatalf("expected ErrOrderStatusTransition, got %v", err)
	}

	now := time.Now()
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{"status": constants.OrderStatusPaid, "paid_at": now}).Error; err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	for _, target := range []string{
		constants.OrderStatusProcessing,
		constants.OrderStatusShipped,
		constants.OrderStatusDelivered,
	} {
		updated, err := svc.UpdateStatus(order.ID, target)
		if err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
		if updated.Status != target {
			t.Fatalf("expected %s, got %s", target, updated.Status)
		}
	}

	// 终态不可回退
	if _, err := svc.UpdateStatus(order.ID, constants.OrderStatusPending); !errors.Is(err, ErrOrderStatusTransition) {
		t.Fatalf("expected ErrOrderStatusTransition, got %v", err)
	}
}

func TestOrderServiceCancelOrder(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t, nil)
	user := createWalletTestUser(t, db, "order7@example.com")

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{Title: "Charger", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(3000)), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	canceled, err := svc.CancelOrder(order.ID, user.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("order not canceled: %+v", canceled)
	}

	// 已取消不可再取消
	if _, err := svc.CancelOrder(order.ID, user.ID); !errors.Is(err, ErrOrderStatusTransition) {
		t.Fatalf("expected ErrOrderStatusTransition, got %v", err)
	}
}

func TestOrderServiceSweepExpiredOrders(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t, nil)
	user := createWalletTestUser(t, db, "order9@example.com")

	stale, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: 1, Title: "Airtel Data 2GB", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(1200)), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create stale order failed: %v", err)
	}
	fresh, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: 2, Title: "Glo Airtime", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(500)), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create fresh order failed: %v", err)
	}

	// 把第一单回拨到超时线之外
	backdated := time.Now().Add(-2 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", stale.ID).Update("created_at", backdated).Error; err != nil {
		t.Fatalf("backdate order failed: %v", err)
	}

	canceled, err := svc.SweepExpiredOrders()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if canceled != 1 {
		t.Fatalf("expected 1 canceled, got %d", canceled)
	}

	var got models.Order
	if err := db.First(&got, stale.ID).Error; err != nil {
		t.Fatalf("load stale order failed: %v", err)
	}
	if got.Status != constants.OrderStatusCanceled || got.CanceledAt == nil {
		t.Fatalf("stale order not canceled: status=%s", got.Status)
	}
	var kept models.Order
	if err := db.First(&kept, fresh.ID).Error; err != nil {
		t.Fatalf("load fresh order failed: %v", err)
	}
	if kept.Status != constants.OrderStatusPending {
		t.Fatalf("fresh order must stay pending, got %s", kept.Status)
	}
}

func TestOrderServiceCancelKeepsConcurrentlyPaidOrder(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t, nil)
	user := createWalletTestUser(t, db, "order10@example.com")

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: 1, Title: "MTN Airtime", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(1000)), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 读取之后、取消之前订单被入账路径标记已支付
	now := time.Now()
	err = db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"status":  constants.OrderStatusPaid,
		"paid_at": now,
	}).Error
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	ok, err := svc.cancelExpired(order)
	if err != nil {
		t.Fatalf("conditional cancel errored: %v", err)
	}
	if ok {
		t.Fatal("cancel must lose to a concurrent payment")
	}

	var got models.Order
	if err := db.First(&got, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if got.Status != constants.OrderStatusPaid {
		t.Fatalf("paid order must stay paid, got %s", got.Status)
	}
	if got.CanceledAt != nil {
		t.Fatal("paid order must not carry a cancel timestamp")
	}
}
