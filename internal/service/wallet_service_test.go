package service

import (
	"context"
	"errors"
	"fmt"
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

func setupWalletServiceTest(t *testing.T) (*WalletService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	walletRepo := repository.NewWalletRepository(db)
	userRepo := repository.NewUserRepository(db)
	psCfg := &paystack.Config{SecretKey: "sk_test_secret", Currency: "NGN"}
	return NewWalletService(walletRepo, userRepo, psCfg, config.WalletConfig{MinFundAmount: "100"}), db
}

func createWalletTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func TestWalletServiceGetAccountAutoCreates(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	user := createWalletTestUser(t, db, "wallet1@example.com")

	account, err := svc.GetAccount(user.ID)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account == nil || account.UserID != user.ID {
		t.Fatalf("unexpected account: %+v", account)
	}
	if !account.Balance.Decimal.IsZero() {
		t.Fatalf("new account must start at zero, got %s", account.Balance.String())
	}

	again, err := svc.GetAccount(user.ID)
	if err != nil {
		t.Fatalf("second get account failed: %v", err)
	}
	if again.ID != account.ID {
		t.Fatalf("expected same account, got %d and %d", account.ID, again.ID)
	}
}

func TestWalletServiceCreditAndDebit(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	user := createWalletTestUser(t, db, "wallet2@example.com")

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := svc.CreditInTx(tx, WalletCreditInput{
			UserID:    user.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(1000)),
			Currency:  "NGN",
			Channel:   constants.PaymentChannelCard,
			Reference: "W-CREDIT-1",
		})
		return err
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := svc.DebitInTx(tx, WalletDebitInput{
			UserID:    user.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(400)),
			Channel:   constants.PaymentChannelWallet,
			Reference: "W-DEBIT-1",
		})
		return err
	})
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	account, err := svc.GetAccount(user.ID)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromFloat(600)) {
		t.Fatalf("expected balance 600, got %s", account.Balance.String())
	}

	var debit models.WalletTransaction
	if err := db.Where("reference = ?", "W-DEBIT-1").First(&debit).Error; err != nil {
		t.Fatalf("debit transaction missing: %v", err)
	}
	if debit.Status != constants.WalletTxnStatusSuccess {
		t.Fatalf("default debit status must be success, got %s", debit.Status)
	}
	if !debit.BalanceBefore.Decimal.Equal(decimal.NewFromFloat(1000)) || !debit.BalanceAfter.Decimal.Equal(decimal.NewFromFloat(600)) {
		t.Fatalf("balance snapshots wrong: before=%s after=%s", debit.BalanceBefore.String(), debit.BalanceAfter.String())
	}
}

func TestWalletServiceDebitInsufficientFunds(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	user := createWalletTestUser(t, db, "wallet3@example.com")

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := svc.DebitInTx(tx, WalletDebitInput{
			UserID:    user.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(50)),
			Channel:   constants.PaymentChannelWallet,
			Reference: "W-DEBIT-2",
		})
		return err
	})
	if !errors.Is(err, ErrWalletInsufficientFunds) {
		t.Fatalf("expected ErrWalletInsufficientFunds, got %v", err)
	}

	var count int64
	if err := db.Model(&models.WalletTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed debit must roll back, got %d transactions", count)
	}
}

func TestWalletServicePendingDebitLifecycle(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	user := createWalletTestUser(t, db, "wallet4@example.com")

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.CreditInTx(tx, WalletCreditInput{
			UserID:    user.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(500)),
			Channel:   constants.PaymentChannelManual,
			Reference: "W-CREDIT-2",
		}); err != nil {
			return err
		}
		_, err := svc.DebitInTx(tx, WalletDebitInput{
			UserID:    user.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(200)),
			Channel:   constants.PaymentChannelWallet,
			Reference: "W-DEBIT-3",
			Status:    constants.WalletTxnStatusPending,
		})
		return err
	})
	if err != nil {
		t.Fatalf("pending debit failed: %v", err)
	}

	// pending 扣款已冻结余额
	account, err := svc.GetAccount(user.ID)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromFloat(300)) {
		t.Fatalf("expected balance 300 while pending, got %s", account.Balance.String())
	}

	// 失败退回
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RefundInTx(tx, "W-DEBIT-3", "provider failed")
		return err
	})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	account, err = svc.GetAccount(user.ID)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromFloat(500)) {
		t.Fatalf("expected balance restored to 500, got %s", account.Balance.String())
	}

	// 冲正后扣款已结算，退款入账与其配对
	var original models.WalletTransaction
	if err := db.Where("reference = ?", "W-DEBIT-3").First(&original).Error; err != nil {
		t.Fatalf("original debit missing: %v", err)
	}
	if original.Status != constants.WalletTxnStatusSuccess {
		t.Fatalf("refunded debit must settle as success, got %s", original.Status)
	}
	var refund models.WalletTransaction
	if err := db.Where("reference = ?", "RFD-W-DEBIT-3").First(&refund).Error; err != nil {
		t.Fatalf("refund credit missing: %v", err)
	}
	if refund.Type != constants.WalletTxnTypeCredit || refund.Status != constants.WalletTxnStatusSuccess {
		t.Fatalf("refund must be a success credit, got type=%s status=%s", refund.Type, refund.Status)
	}

	// 余额必须等于成功流水的带符号合计
	walletRepo := repository.NewWalletRepository(db)
	credits, err := walletRepo.SumTransactions(user.ID, constants.WalletTxnTypeCredit, constants.WalletTxnStatusSuccess)
	if err != nil {
		t.Fatalf("sum credits failed: %v", err)
	}
	debits, err := walletRepo.SumTransactions(user.ID, constants.WalletTxnTypeDebit, constants.WalletTxnStatusSuccess)
	if err != nil {
		t.Fatalf("sum debits failed: %v", err)
	}
	if signed := credits.Decimal.Sub(debits.Decimal); !account.Balance.Decimal.Equal(signed) {
		t.Fatalf("balance %s != signed success sum %s", account.Balance.String(), signed.String())
	}

	// 重复冲正不再动账
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RefundInTx(tx, "W-DEBIT-3", "provider failed")
		return err
	})
	if err != nil {
		t.Fatalf("repeat refund failed: %v", err)
	}
	account, err = svc.GetAccount(user.ID)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromFloat(500)) {
		t.Fatalf("repeat refund must not change balance, got %s", account.Balance.String())
	}
}

func TestWalletServiceMarkDebitSucceeded(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	user := createWalletTestUser(t, db, "wallet5@example.com")

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.CreditInTx(tx, WalletCreditInput{
			UserID:    user.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(300)),
			Channel:   constants.PaymentChannelManual,
			Reference: "W-CREDIT-3",
		}); err != nil {
			return err
		}
		if _, err := svc.DebitInTx(tx, WalletDebitInput{
			UserID:    user.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(100)),
			Channel:   constants.PaymentChannelWallet,
			Reference: "W-DEBIT-4",
			Status:    constants.WalletTxnStatusPending,
		}); err != nil {
			return err
		}
		return svc.MarkDebitSucceededInTx(tx, "W-DEBIT-4")
	})
	if err != nil {
		t.Fatalf("mark debit succeeded failed: %v", err)
	}

	var txn models.WalletTransaction
	if err := db.Where("reference = ?", "W-DEBIT-4").First(&txn).Error; err != nil {
		t.Fatalf("debit missing: %v", err)
	}
	if txn.Status != constants.WalletTxnStatusSuccess {
		t.Fatalf("expected success status, got %s", txn.Status)
	}
}

func TestWalletServiceInitiateFundingValidation(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	user := createWalletTestUser(t, db, "wallet6@example.com")

	// 低于最低充值金额
	if _, err := svc.InitiateFunding(context.Background(), WalletFundInput{
		UserID: user.ID,
		Amount: models.NewMoneyFromDecimal(decimal.NewFromFloat(10)),
	}); !errors.Is(err, ErrWalletAmountInvalid) {
		t.Fatalf("expected ErrWalletAmountInvalid, got %v", err)
	}

	// 用户不存在
	if _, err := svc.InitiateFunding(context.Background(), WalletFundInput{
		UserID: user.ID + 99,
		Amount: models.NewMoneyFromDecimal(decimal.NewFromFloat(500)),
	}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestWalletServiceManualDebit(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	user := createWalletTestUser(t, db, "wallet7@example.com")

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := svc.CreditInTx(tx, WalletCreditInput{
			UserID:    user.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(800)),
			Currency:  "NGN",
			Channel:   constants.PaymentChannelManual,
			Reference: "W-MANUAL-SEED-1",
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed credit failed: %v", err)
	}

	txn, err := svc.ManualDebit(user.Email, models.NewMoneyFromDecimal(decimal.NewFromFloat(300)), "correction")
	if err != nil {
		t.Fatalf("manual debit failed: %v", err)
	}
	if !strings.HasPrefix(txn.Reference, constants.ReferencePrefixManualDebit) {
		t.Fatalf("unexpected reference %s", txn.Reference)
	}
	if txn.Channel != constants.PaymentChannelManual {
		t.Fatalf("unexpected channel %s", txn.Channel)
	}

	account, err := svc.GetAccount(user.ID)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromFloat(500)) {
		t.Fatalf("expected balance 500, got %s", account.Balance.String())
	}

	// 余额不足
	if _, err := svc.ManualDebit(user.Email, models.NewMoneyFromDecimal(decimal.NewFromFloat(10000)), ""); !errors.Is(err, ErrWalletInsufficientFunds) {
		t.Fatalf("expected ErrWalletInsufficientFunds, got %v", err)
	}

	// 金额必须为正
	if _, err := svc.ManualDebit(user.Email, models.NewMoneyFromDecimal(decimal.Zero), ""); !errors.Is(err, ErrWalletAmountInvalid) {
		t.Fatalf("expected ErrWalletAmountInvalid, got %v", err)
	}

	// 用户不存在
	if _, err := svc.ManualDebit("nobody@example.com", models.NewMoneyFromDecimal(decimal.NewFromFloat(50)), ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
