//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.WalletTransaction{},
		&models.WalletAccount{},
		&models.PaymentReference{},
		&models.OrderItem{},
		&models.Order{},
		&models.User{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.PaymentReference{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// 并发抢写同一参考号时，唯一索引必须保证只有一次写入成功。
func TestPostgresPaymentReferenceUniqueUnderConcurrency(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewPaymentReferenceRepository(db)

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	duplicates := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(&models.PaymentReference{
				Reference: "PG-RACE-REF",
				Action:    constants.ReferenceActionCreditedWallet,
				UserID:    1,
				Channel:   constants.PaymentChannelCard,
				Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
				Currency:  "NGN",
				CreatedAt: time.Now(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case IsDuplicateKeyError(err):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one successful insert, got %d", created)
	}
	if duplicates != workers-1 {
		t.Fatalf("expected %d duplicate errors, got %d", workers-1, duplicates)
	}

	var count int64
	if err := db.Model(&models.PaymentReference{}).Where("reference = ?", "PG-RACE-REF").Count(&count).Error; err != nil {
		t.Fatalf("count references failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored reference, got %d", count)
	}
}

func TestPostgresOrderGetByPaymentRefForUpdate(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	now := time.Now()
	user := &models.User{Email: "pg@example.com", PasswordHash: "hash", Status: constants.UserStatusActive, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	orderRepo := NewOrderRepository(db)
	order := &models.Order{
		OrderNo:     "NMPG1001",
		UserID:      user.ID,
		Status:      constants.OrderStatusPending,
		Currency:    "NGN",
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(2500)),
		PaymentRef:  "PG-ORDER-REF",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := orderRepo.Create(order, nil); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := orderRepo.WithTx(tx).GetByPaymentRefForUpdate("PG-ORDER-REF")
		if err != nil {
			return err
		}
		if locked == nil || locked.ID != order.ID {
			t.Fatalf("expected locked order %d, got %+v", order.ID, locked)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	missing, err := orderRepo.GetByPaymentRef("PG-MISSING-REF")
	if err != nil {
		t.Fatalf("lookup missing ref failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing payment ref, got %+v", missing)
	}
}

func TestPostgresWalletSumMatchesBalance(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewWalletRepository(db)

	now := time.Now()
	account := &models.WalletAccount{UserID: 7, Currency: "NGN", Balance: models.NewMoneyFromMinorUnits(0), CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateAccount(account); err != nil {
		t.Fatalf("create account failed: %v", err)
	}

	amounts := []int64{150000, 250000, 600000}
	var total decimal.Decimal
	for i, minor := range amounts {
		amount := decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
		total = total.Add(amount)
		txn := &models.WalletTransaction{
			UserID:        7,
			AccountID:     account.ID,
			Type:          constants.WalletTxnTypeCredit,
			Status:        constants.WalletTxnStatusSuccess,
			Channel:       constants.PaymentChannelCard,
			Reference:     strings.Join([]string{"PG-SUM-REF", string(rune('A' + i))}, "-"),
			Amount:        models.NewMoneyFromDecimal(amount),
			Currency:      "NGN",
			BalanceBefore: account.Balance,
			BalanceAfter:  models.NewMoneyFromDecimal(account.Balance.Decimal.Add(amount)),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.CreateTransaction(txn); err != nil {
			t.Fatalf("create transaction failed: %v", err)
		}
		account.Balance = txn.BalanceAfter
	}
	if err := repo.UpdateAccount(account); err != nil {
		t.Fatalf("update account failed: %v", err)
	}

	sum, err := repo.SumTransactions(7, constants.WalletTxnTypeCredit, constants.WalletTxnStatusSuccess)
	if err != nil {
		t.Fatalf("sum transactions failed: %v", err)
	}
	if !sum.Decimal.Equal(total) {
		t.Fatalf("expected sum %s, got %s", total.String(), sum.Decimal.String())
	}
	if !account.Balance.Decimal.Equal(total) {
		t.Fatalf("balance drifted from ledger: balance %s, ledger %s", account.Balance.String(), total.String())
	}
}
