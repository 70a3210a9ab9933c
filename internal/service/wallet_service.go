package service

import (
	"context"
	"strings"
	"time"

	"github.com/nairamart-next/internal/config"
	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/logger"
	"github.com/nairamart-next/internal/models"
	"github.com/nairamart-next/internal/paystack"
	"github.com/nairamart-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService 钱包服务
type WalletService struct {
	walletRepo repository.WalletRepository
	userRepo   repository.UserRepository
	psCfg      *paystack.Config
	walletCfg  config.WalletConfig
}

// WalletCreditInput 事务内入账输入
type WalletCreditInput struct {
	UserID    uint
	Amount    models.Money
	Currency  string
	Channel   string
	Reference string
	Remark    string
}

// WalletDebitInput 事务内扣款输入
type WalletDebitInput struct {
	UserID    uint
	Amount    models.Money
	Currency  string
	Channel   string
	Reference string
	Remark    string
	Status    string // 默认 success，充值请求用 pending
}

// WalletFundInput 发起钱包充值输入
type WalletFundInput struct {
	UserID uint
	Amount models.Money
}

// WalletFundResult 发起钱包充值结果
type WalletFundResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// NewWalletService 创建钱包服务
func NewWalletService(
	walletRepo repository.WalletRepository,
	userRepo repository.UserRepository,
	psCfg *paystack.Config,
	walletCfg config.WalletConfig,
) *WalletService {
	return &WalletService{
		walletRepo: walletRepo,
		userRepo:   userRepo,
		psCfg:      psCfg,
		walletCfg:  walletCfg,
	}
}

// GetAccount 获取钱包账户（不存在时自动创建）
func (s *WalletService) GetAccount(userID uint) (*models.WalletAccount, error) {
	if userID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	account, err := s.walletRepo.GetAccountByUserID(userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	now := time.Now()
	account = &models.WalletAccount{
		UserID:    userID,
		Currency:  s.currency(),
		Balance:   models.NewMoneyFromDecimal(decimal.Zero),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.CreateAccount(account); err != nil {
		// 并发创建时读回已有账户
		if repository.IsDuplicateKeyError(err) {
			return s.walletRepo.GetAccountByUserID(userID)
		}
		return nil, err
	}
	return account, nil
}

// ListTransactions 查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(filter)
}

// InitiateFunding 发起钱包在线充值，返回收银台跳转地址。
// 入账不在这里发生，成功的扣款经 webhook 或 verify 对账后按邮箱落入钱包。
func (s *WalletService) InitiateFunding(ctx context.Context, input WalletFundInput) (*WalletFundResult, error) {
	if input.UserID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) || amount.LessThan(s.minFundAmount()) {
		return nil, ErrWalletAmountInvalid
	}
	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Status != constants.UserStatusActive {
		return nil, ErrUserDisabled
	}

	result, err := paystack.InitializeTransaction(ctx, s.psCfg, paystack.InitializeInput{
		Email:       user.Email,
		AmountMinor: models.NewMoneyFromDecimal(amount).MinorUnits(),
		Reference:   constants.ReferencePrefixFund + uuid.NewString(),
		Currency:    s.currency(),
	})
	if err != nil {
		logger.Warnw("wallet_fund_initialize_failed", "user_id", input.UserID, "error", err)
		return nil, ErrPaymentGatewayUnavailable
	}
	logger.Infow("wallet_fund_initialized",
		"user_id", input.UserID,
		"reference", result.Reference,
		"amount", amount.StringFixed(2),
	)
	return &WalletFundResult{
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        result.Reference,
	}, nil
}

// ManualDebit 管理端人工扣减用户余额。扣款直接走账本，不经过对账路径，
// 因为参考号由服务端生成，不存在网关重投。
func (s *WalletService) ManualDebit(email string, amount models.Money, remark string) (*models.WalletTransaction, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidParams
	}
	if amount.Decimal.Round(2).Sign() <= 0 {
		return nil, ErrWalletAmountInvalid
	}
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	var txn *models.WalletTransaction
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		debited, err := s.DebitInTx(tx, WalletDebitInput{
			UserID:    user.ID,
			Amount:    amount,
			Currency:  s.currency(),
			Channel:   constants.PaymentChannelManual,
			Reference: constants.ReferencePrefixManualDebit + uuid.NewString(),
			Remark:    remark,
		})
		if err != nil {
			return err
		}
		txn = debited
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("wallet_manual_debit",
		"user_id", user.ID,
		"reference", txn.Reference,
		"amount", txn.Amount.String(),
	)
	return txn, nil
}

// CreditInTx 在事务内为用户入账并记录流水
func (s *WalletService) CreditInTx(tx *gorm.DB, input WalletCreditInput) (*models.WalletTransaction, error) {
	if tx == nil || input.UserID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrWalletAmountInvalid
	}

	now := time.Now()
	repo := s.walletRepo.WithTx(tx)
	account, err := s.ensureAccountForUpdate(repo, input.UserID, now)
	if err != nil {
		return nil, err
	}
	before := account.Balance.Decimal.Round(2)
	after := before.Add(amount).Round(2)
	account.Balance = models.NewMoneyFromDecimal(after)
	account.UpdatedAt = now
	if err := repo.UpdateAccount(account); err != nil {
		return nil, err
	}

	txn := &models.WalletTransaction{
		UserID:        input.UserID,
		AccountID:     account.ID,
		Type:          constants.WalletTxnTypeCredit,
		Status:        constants.WalletTxnStatusSuccess,
		Channel:       input.Channel,
		Reference:     input.Reference,
		Amount:        models.NewMoneyFromDecimal(amount),
		Currency:      s.normalizeCurrency(input.Currency),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Remark:        input.Remark,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// DebitInTx 在事务内扣款并记录流水，余额不足时返回 ErrWalletInsufficientFunds
func (s *WalletService) DebitInTx(tx *gorm.DB, input WalletDebitInput) (*models.WalletTransaction, error) {
	if tx == nil || input.UserID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrWalletAmountInvalid
	}

	now := time.Now()
	repo := s.walletRepo.WithTx(tx)
	account, err := s.ensureAccountForUpdate(repo, input.UserID, now)
	if err != nil {
		return nil, err
	}
	before := account.Balance.Decimal.Round(2)
	after := before.Sub(amount).Round(2)
	if after.LessThan(decimal.Zero) {
		return nil, ErrWalletInsufficientFunds
	}
	account.Balance = models.NewMoneyFromDecimal(after)
	account.UpdatedAt = now
	if err := repo.UpdateAccount(account); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = constants.WalletTxnStatusSuccess
	}
	txn := &models.WalletTransaction{
		UserID:        input.UserID,
		AccountID:     account.ID,
		Type:          constants.WalletTxnTypeDebit,
		Status:        status,
		Channel:       input.Channel,
		Reference:     input.Reference,
		Amount:        models.NewMoneyFromDecimal(amount),
		Currency:      s.normalizeCurrency(input.Currency),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Remark:        input.Remark,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// RefundInTx 在事务内冲正一笔扣款：结算原流水并入一笔等额退款，幂等（按 RFD- 参考号去重）
func (s *WalletService) RefundInTx(tx *gorm.DB, reference, remark string) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, ErrWalletAccountNotFound
	}
	repo := s.walletRepo.WithTx(tx)
	original, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return nil, err
	}
	if original == nil || original.Type != constants.WalletTxnTypeDebit {
		return nil, ErrPaymentReferenceNotFound
	}
	refundRef := "RFD-" + reference
	if existing, err := repo.GetTransactionByReference(refundRef); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	// 原扣款按已结算留在账本里，冲正作为一笔成功入账与其配对，
	// 余额与成功流水的带符号合计保持一致
	if original.Status != constants.WalletTxnStatusSuccess {
		original.Status = constants.WalletTxnStatusSuccess
		original.UpdatedAt = time.Now()
		if err := repo.UpdateTransaction(original); err != nil {
			return nil, err
		}
	}
	return s.CreditInTx(tx, WalletCreditInput{
		UserID:    original.UserID,
		Amount:    original.Amount,
		Currency:  original.Currency,
		Channel:   constants.PaymentChannelManual,
		Reference: refundRef,
		Remark:    remark,
	})
}

// MarkDebitSucceededInTx 在事务内将 pending 扣款标记为成功
func (s *WalletService) MarkDebitSucceededInTx(tx *gorm.DB, reference string) error {
	repo := s.walletRepo.WithTx(tx)
	txn, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return err
	}
	if txn == nil {
		return ErrPaymentReferenceNotFound
	}
	if txn.Status == constants.WalletTxnStatusSuccess {
		return nil
	}
	txn.Status = constants.WalletTxnStatusSuccess
	txn.UpdatedAt = time.Now()
	return repo.UpdateTransaction(txn)
}

func (s *WalletService) ensureAccountForUpdate(repo *repository.GormWalletRepository, userID uint, now time.Time) (*models.WalletAccount, error) {
	account, err := repo.GetAccountByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	account = &models.WalletAccount{
		UserID:    userID,
		Currency:  s.currency(),
		Balance:   models.NewMoneyFromDecimal(decimal.Zero),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateAccount(account); err != nil {
		if repository.IsDuplicateKeyError(err) {
			return repo.GetAccountByUserIDForUpdate(userID)
		}
		return nil, err
	}
	return account, nil
}

func (s *WalletService) currency() string {
	if s.psCfg != nil && s.psCfg.Currency != "" {
		return s.psCfg.Currency
	}
	return constants.SiteCurrencyDefault
}

func (s *WalletService) normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return s.currency()
	}
	return currency
}

func (s *WalletService) minFundAmount() decimal.Decimal {
	if d, err := decimal.NewFromString(strings.TrimSpace(s.walletCfg.MinFundAmount)); err == nil && d.GreaterThan(decimal.Zero) {
		return d
	}
	return decimal.NewFromInt(100)
}

// MinTopupAmount 单次话费/流量下限
func (s *WalletService) MinTopupAmount() decimal.Decimal {
	if d, err := decimal.NewFromString(strings.TrimSpace(s.walletCfg.MinTopupAmount)); err == nil && d.GreaterThan(decimal.Zero) {
		return d
	}
	return decimal.NewFromInt(50)
}
