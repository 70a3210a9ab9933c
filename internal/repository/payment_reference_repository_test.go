package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPaymentReferenceRepositoryTest(t *testing.T) (*GormPaymentReferenceRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_ref_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PaymentReference{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPaymentReferenceRepository(db), db
}

func TestPaymentReferenceUniqueConstraint(t *testing.T) {
	repo, _ := setupPaymentReferenceRepositoryTest(t)

	first := models.PaymentReference{
		Reference: "PSK-REF-100",
		Action:    constants.ReferenceActionCreditedWallet,
		UserID:    7,
		Channel:   constants.PaymentChannelCard,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("5000.00")),
		Currency:  "NGN",
	}
	if err := repo.Create(&first); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	dup := models.PaymentReference{
		Reference: "PSK-REF-100",
		Action:    constants.ReferenceActionCreditedWallet,
		UserID:    7,
		Channel:   constants.PaymentChannelCard,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("5000.00")),
		Currency:  "NGN",
	}
	err := repo.Create(&dup)
	if err == nil {
		t.Fatalf("expected unique constraint violation on duplicate reference")
	}
	if !IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestPaymentReferenceGetByReference(t *testing.T) {
	repo, _ := setupPaymentReferenceRepositoryTest(t)

	ref := models.PaymentReference{
		Reference: "PSK-REF-200",
		Action:    constants.ReferenceActionMarkedOrderPaid,
		OrderID:   31,
		Channel:   constants.PaymentChannelBankTransfer,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("1200.50")),
		Currency:  "NGN",
	}
	if err := repo.Create(&ref); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.GetByReference("PSK-REF-200")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected record, got nil")
	}
	if got.Action != constants.ReferenceActionMarkedOrderPaid || got.OrderID != 31 {
		t.Fatalf("unexpected record: %+v", got)
	}

	missing, err := repo.GetByReference("PSK-REF-404")
	if err != nil {
		t.Fatalf("get missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown reference, got %+v", missing)
	}

	empty, err := repo.GetByReference("  ")
	if err != nil || empty != nil {
		t.Fatalf("expected nil,nil for blank reference, got %+v, %v", empty, err)
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	if IsDuplicateKeyError(nil) {
		t.Fatalf("nil must not be a duplicate key error")
	}
	if IsDuplicateKeyError(fmt.Errorf("connection refused")) {
		t.Fatalf("transport error must not be a duplicate key error")
	}
	if !IsDuplicateKeyError(fmt.Errorf("UNIQUE constraint failed: payment_references.reference")) {
		t.Fatalf("sqlite unique violation not detected")
	}
	if !IsDuplicateKeyError(fmt.Errorf(`duplicate key value violates unique constraint "idx_payment_references_reference" (SQLSTATE 23505)`)) {
		t.Fatalf("postgres unique violation not detected")
	}
	if !IsDuplicateKeyError(gorm.ErrDuplicatedKey) {
		t.Fatalf("gorm.ErrDuplicatedKey not detected")
	}
}
