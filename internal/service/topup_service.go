package service

import (
	"strings"
	"time"

	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/logger"
	"github.com/nairamart-next/internal/models"
	"github.com/nairamart-next/internal/queue"
	"github.com/nairamart-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TopupService 话费/流量充值服务。
// 下单即从钱包扣款（pending 流水），运营侧处理完成后扣款转成功，失败则原路退回。
type TopupService struct {
	topupRepo     repository.TopupRepository
	walletService *WalletService
	queueClient   *queue.Client
}

// NewTopupService 创建充值服务
func NewTopupService(topupRepo repository.TopupRepository, walletService *WalletService, queueClient *queue.Client) *TopupService {
	return &TopupService{
		topupRepo:     topupRepo,
		walletService: walletService,
		queueClient:   queueClient,
	}
}

// TopupRequestInput 提交充值请求输入
type TopupRequestInput struct {
	UserID      uint
	Type        string // airtime/data
	Network     string
	PhoneNumber string
	Plan        string // 流量套餐，话费请求留空
	Amount      models.Money
}

// RequestTopup 提交充值请求：同一事务内冻结钱包金额并落请求记录
func (s *TopupService) RequestTopup(input TopupRequestInput) (*models.TopupRequest, error) {
	topupType := strings.ToLower(strings.TrimSpace(input.Type))
	if topupType != constants.TopupTypeAirtime && topupType != constants.TopupTypeData {
		return nil, ErrInvalidParams
	}
	network := strings.TrimSpace(input.Network)
	phone := strings.TrimSpace(input.PhoneNumber)
	if input.UserID == 0 || network == "" || phone == "" {
		return nil, ErrInvalidParams
	}
	plan := strings.TrimSpace(input.Plan)
	if topupType == constants.TopupTypeData && plan == "" {
		return nil, ErrInvalidParams
	}

	amount := input.Amount.Decimal.Round(2)
	if amount.LessThan(s.walletService.MinTopupAmount()) || amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrWalletAmountInvalid
	}

	reference := topupReference(topupType)
	now := time.Now()
	request := &models.TopupRequest{
		UserID:      input.UserID,
		Type:        topupType,
		Network:     network,
		PhoneNumber: phone,
		Plan:        plan,
		Amount:      models.NewMoneyFromDecimal(amount),
		Reference:   reference,
		Status:      constants.TopupStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.walletService.DebitInTx(tx, WalletDebitInput{
			UserID:    input.UserID,
			Amount:    request.Amount,
			Channel:   constants.PaymentChannelWallet,
			Reference: reference,
			Remark:    topupType + " " + network + " " + phone,
			Status:    constants.WalletTxnStatusPending,
		}); err != nil {
			return err
		}
		return s.topupRepo.WithTx(tx).Create(request)
	})
	if err != nil {
		return nil, err
	}

	if err := s.queueClient.EnqueueTopupRequestDispatch(queue.TopupRequestDispatchPayload{RequestID: request.ID}); err != nil {
		logger.Warnw("topup_dispatch_enqueue_failed", "request_id", request.ID, "error", err)
	}

	topupLogger("reference", reference).Infow("topup_requested",
		"user_id", input.UserID,
		"type", topupType,
		"amount", request.Amount.String(),
	)
	return request, nil
}

// GetRequest 获取用户自己的充值请求
func (s *TopupService) GetRequest(id uint, userID uint) (*models.TopupRequest, error) {
	request, err := s.topupRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if request == nil || request.UserID != userID {
		return nil, ErrTopupNotFound
	}
	return request, nil
}

// ListRequests 分页查询充值请求
func (s *TopupService) ListRequests(filter repository.TopupRequestListFilter) ([]models.TopupRequest, int64, error) {
	return s.topupRepo.List(filter)
}

// MarkProcessing 管理端领取充值请求
func (s *TopupService) MarkProcessing(id uint) (*models.TopupRequest, error) {
	request, err := s.topupRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrTopupNotFound
	}
	if request.Status != constants.TopupStatusPending {
		return nil, ErrTopupStatusFinalized
	}
	request.Status = constants.TopupStatusProcessing
	request.UpdatedAt = time.Now()
	if err := s.topupRepo.Update(request); err != nil {
		return nil, err
	}
	return request, nil
}

// Complete 管理端确认充值已到账：pending 扣款转成功并终结请求
func (s *TopupService) Complete(id uint, remark string) (*models.TopupRequest, error) {
	return s.finalize(id, constants.TopupStatusCompleted, remark)
}

// Fail 管理端标记充值失败：扣款退回钱包并终结请求
func (s *TopupService) Fail(id uint, remark string) (*models.TopupRequest, error) {
	return s.finalize(id, constants.TopupStatusFailed, remark)
}

func (s *TopupService) finalize(id uint, target string, remark string) (*models.TopupRequest, error) {
	var finalized *models.TopupRequest
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.topupRepo.WithTx(tx)
		request, err := repo.GetByID(id)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrTopupNotFound
		}
		if request.Status == constants.TopupStatusCompleted || request.Status == constants.TopupStatusFailed {
			return ErrTopupStatusFinalized
		}

		switch target {
		case constants.TopupStatusCompleted:
			if err := s.walletService.MarkDebitSucceededInTx(tx, request.Reference); err != nil {
				return err
			}
		case constants.TopupStatusFailed:
			if _, err := s.walletService.RefundInTx(tx, request.Reference, remark); err != nil {
				return err
			}
		default:
			return ErrInvalidParams
		}

		now := time.Now()
		request.Status = target
		request.Remark = strings.TrimSpace(remark)
		request.ProcessedAt = &now
		request.UpdatedAt = now
		if err := repo.Update(request); err != nil {
			return err
		}
		finalized = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	topupLogger("reference", finalized.Reference).Infow("topup_finalized",
		"request_id", finalized.ID,
		"status", finalized.Status,
	)
	return finalized, nil
}

func topupReference(topupType string) string {
	prefix := constants.ReferencePrefixAirtime
	if topupType == constants.TopupTypeData {
		prefix = constants.ReferencePrefixData
	}
	return prefix + uuid.NewString()
}

func topupLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}
