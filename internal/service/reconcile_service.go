package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/logger"
	"github.com/nairamart-next/internal/models"
	"github.com/nairamart-next/internal/paystack"
	"github.com/nairamart-next/internal/queue"
	"github.com/nairamart-next/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errNoMatchingTarget 事务内部信号：成功事件匹配不到订单或用户，回滚后走告警路径
var errNoMatchingTarget = errors.New("reconcile no matching target")

// PaymentOutcomeEvent 对账输入事件，webhook、主动查询和人工入账统一走这条路
type PaymentOutcomeEvent struct {
	Reference       string // 网关参考号
	Success         bool   // 网关侧是否成功
	AmountMinor     int64  // 金额（最小货币单位 kobo）
	Currency        string // 币种
	Email           string // 客户邮箱
	Channel         string // 支付渠道
	GatewayResponse string // 网关响应描述
}

// ReconcileOutcome 对账结果
type ReconcileOutcome struct {
	Result  string `json:"result"`             // applied / already_applied / rejected / no_matching_target
	Action  string `json:"action,omitempty"`   // credited_wallet / marked_order_paid
	UserID  uint   `json:"user_id,omitempty"`  // 钱包入账用户
	OrderID uint   `json:"order_id,omitempty"` // 订单入账订单
}

// ReconcileService 对账服务：保证每个成功参考号恰好入账一次
type ReconcileService struct {
	refRepo   repository.PaymentReferenceRepository
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
	alertRepo repository.ReconcileAlertRepository
	walletSvc *WalletService
	queue     *queue.Client
	psCfg     *paystack.Config
}

// NewReconcileService 创建对账服务
func NewReconcileService(
	refRepo repository.PaymentReferenceRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	alertRepo repository.ReconcileAlertRepository,
	walletSvc *WalletService,
	queueClient *queue.Client,
	psCfg *paystack.Config,
) *ReconcileService {
	return &ReconcileService{
		refRepo:   refRepo,
		orderRepo: orderRepo,
		userRepo:  userRepo,
		alertRepo: alertRepo,
		walletSvc: walletSvc,
		queue:     queueClient,
		psCfg:     psCfg,
	}
}

// Reconcile 对单个支付结果事件做恰好一次入账。
// 参考号写入与业务变更在同一事务提交；payment_references.reference 的唯一索引
// 是并发重复投递的最终裁决，冲突一律收敛为 already_applied。
func (s *ReconcileService) Reconcile(ctx context.Context, event PaymentOutcomeEvent) (*ReconcileOutcome, error) {
	reference := strings.TrimSpace(event.Reference)
	if reference == "" {
		return nil, ErrInvalidParams
	}
	log := reconcileLogger("reference", reference, "channel", event.Channel)

	if !event.Success {
		log.Infow("reconcile_event_rejected", "gateway_response", event.GatewayResponse)
		return &ReconcileOutcome{Result: constants.ReconcileOutcomeRejected}, nil
	}

	// 快路径：已入账的参考号直接返回，不开事务
	if existing, err := s.refRepo.GetByReference(reference); err != nil {
		return nil, err
	} else if existing != nil {
		log.Infow("reconcile_event_duplicate", "action", existing.Action)
		return s.alreadyApplied(existing), nil
	}

	amount := models.NewMoneyFromMinorUnits(event.AmountMinor)
	currency := strings.ToUpper(strings.TrimSpace(event.Currency))
	if currency == "" && s.psCfg != nil {
		currency = s.psCfg.Currency
	}

	outcome := &ReconcileOutcome{}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		refRepo := s.refRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		// 事务内复查，挡掉快路径之后、事务开始之前插入的重复
		if existing, err := refRepo.GetByReference(reference); err != nil {
			return err
		} else if existing != nil {
			*outcome = *s.alreadyApplied(existing)
			return nil
		}

		// 订单优先：支付参考号精确命中未支付订单则标记已支付
		order, err := orderRepo.GetByPaymentRefForUpdate(reference)
		if err != nil {
			return err
		}
		if order != nil {
			if order.PaidAt != nil || order.Status != constants.OrderStatusPending {
				// 订单已越过待支付，视作重复投递
				*outcome = ReconcileOutcome{
					Result:  constants.ReconcileOutcomeAlreadyApplied,
					Action:  constants.ReferenceActionMarkedOrderPaid,
					OrderID: order.ID,
				}
				return nil
			}
			if err := refRepo.Create(&models.PaymentReference{
				Reference: reference,
				Action:    constants.ReferenceActionMarkedOrderPaid,
				OrderID:   order.ID,
				UserID:    order.UserID,
				Channel:   event.Channel,
				Amount:    amount,
				Currency:  currency,
				CreatedAt: time.Now(),
			}); err != nil {
				return err
			}
			now := time.Now()
			order.Status = constants.OrderStatusPaid
			order.PaidAt = &now
			order.UpdatedAt = now
			if err := orderRepo.Update(order); err != nil {
				return err
			}
			*outcome = ReconcileOutcome{
				Result:  constants.ReconcileOutcomeApplied,
				Action:  constants.ReferenceActionMarkedOrderPaid,
				OrderID: order.ID,
				UserID:  order.UserID,
			}
			return nil
		}

		// 无订单命中则按邮箱入钱包
		user, err := userRepo.GetByEmail(event.Email)
		if err != nil {
			return err
		}
		if user == nil {
			return errNoMatchingTarget
		}
		if err := refRepo.Create(&models.PaymentReference{
			Reference: reference,
			Action:    constants.ReferenceActionCreditedWallet,
			UserID:    user.ID,
			Channel:   event.Channel,
			Amount:    amount,
			Currency:  currency,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		if _, err := s.walletSvc.CreditInTx(tx, WalletCreditInput{
			UserID:    user.ID,
			Amount:    amount,
			Currency:  currency,
			Channel:   event.Channel,
			Reference: reference,
			Remark:    event.GatewayResponse,
		}); err != nil {
			return err
		}
		*outcome = ReconcileOutcome{
			Result: constants.ReconcileOutcomeApplied,
			Action: constants.ReferenceActionCreditedWallet,
			UserID: user.ID,
		}
		return nil
	})

	if err != nil {
		if repository.IsDuplicateKeyError(err) {
			// 并发对手先落库，本事务让位
			log.Infow("reconcile_event_lost_race")
			if existing, getErr := s.refRepo.GetByReference(reference); getErr == nil && existing != nil {
				return s.alreadyApplied(existing), nil
			}
			return &ReconcileOutcome{Result: constants.ReconcileOutcomeAlreadyApplied}, nil
		}
		if errors.Is(err, errNoMatchingTarget) {
			return s.recordNoMatchingTarget(event, amount, currency)
		}
		log.Errorw("reconcile_event_failed", "error", err)
		return nil, err
	}

	if outcome.Result == constants.ReconcileOutcomeApplied {
		log.Infow("reconcile_event_applied",
			"action", outcome.Action,
			"amount", amount.String(),
			"currency", currency,
		)
		if outcome.Action == constants.ReferenceActionCreditedWallet {
			if err := s.queue.EnqueueWalletCreditNotify(queue.WalletCreditNotifyPayload{
				UserID:    outcome.UserID,
				Reference: reference,
				Amount:    amount.String(),
				Currency:  currency,
			}); err != nil {
				log.Warnw("wallet_credit_notify_enqueue_failed", "error", err)
			}
		}
	}
	return outcome, nil
}

// VerifyReference 主动向网关查询参考号并对账
func (s *ReconcileService) VerifyReference(ctx context.Context, reference string) (*ReconcileOutcome, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrInvalidParams
	}
	data, err := paystack.VerifyTransaction(ctx, s.psCfg, reference)
	if err != nil {
		if errors.Is(err, paystack.ErrReferenceNotFound) {
			return nil, ErrPaymentReferenceNotFound
		}
		logger.Warnw("reconcile_verify_gateway_failed", "reference", reference, "error", err)
		return nil, ErrPaymentGatewayUnavailable
	}
	return s.Reconcile(ctx, EventFromTransaction(data))
}

// ManualCredit 人工入账：构造带 MANUAL- 前缀参考号的合成事件，与网关事件走同一条对账路径
func (s *ReconcileService) ManualCredit(ctx context.Context, email string, amount models.Money, remark string) (*ReconcileOutcome, error) {
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
	event := PaymentOutcomeEvent{
		Reference:       constants.ReferencePrefixManual + uuid.NewString(),
		Success:         true,
		AmountMinor:     amount.MinorUnits(),
		Currency:        s.psCfg.Currency,
		Email:           email,
		Channel:         constants.PaymentChannelManual,
		GatewayResponse: remark,
	}
	return s.Reconcile(ctx, event)
}

// ListReferences 分页查询入账记录
func (s *ReconcileService) ListReferences(filter repository.PaymentReferenceListFilter) ([]models.PaymentReference, int64, error) {
	return s.refRepo.List(filter)
}

// ListAlerts 分页查询对账告警
func (s *ReconcileService) ListAlerts(filter repository.ReconcileAlertListFilter) ([]models.ReconcileAlert, int64, error) {
	return s.alertRepo.List(filter)
}

// ResolveAlert 标记告警已处理
func (s *ReconcileService) ResolveAlert(id uint) (*models.ReconcileAlert, error) {
	alert, err := s.alertRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrReconcileAlertNotFound
	}
	if alert.Status == constants.ReconcileAlertStatusResolved {
		return alert, nil
	}
	now := time.Now()
	alert.Status = constants.ReconcileAlertStatusResolved
	alert.ResolvedAt = &now
	alert.UpdatedAt = now
	if err := s.alertRepo.Update(alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// EventFromTransaction 把网关交易数据转换为对账事件
func EventFromTransaction(data *paystack.TransactionData) PaymentOutcomeEvent {
	if data == nil {
		return PaymentOutcomeEvent{}
	}
	return PaymentOutcomeEvent{
		Reference:       data.Reference,
		Success:         data.IsSuccess(),
		AmountMinor:     data.Amount,
		Currency:        data.Currency,
		Email:           data.Customer.Email,
		Channel:         data.Channel,
		GatewayResponse: data.GatewayResponse,
	}
}

func (s *ReconcileService) alreadyApplied(ref *models.PaymentReference) *ReconcileOutcome {
	return &ReconcileOutcome{
		Result:  constants.ReconcileOutcomeAlreadyApplied,
		Action:  ref.Action,
		UserID:  ref.UserID,
		OrderID: ref.OrderID,
	}
}

func (s *ReconcileService) recordNoMatchingTarget(event PaymentOutcomeEvent, amount models.Money, currency string) (*ReconcileOutcome, error) {
	now := time.Now()
	alert := &models.ReconcileAlert{
		Reference: strings.TrimSpace(event.Reference),
		Email:     strings.ToLower(strings.TrimSpace(event.Email)),
		Amount:    amount,
		Currency:  currency,
		Channel:   event.Channel,
		Reason:    constants.ReconcileOutcomeNoMatchingTarget,
		Status:    constants.ReconcileAlertStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.alertRepo.Create(alert); err != nil {
		logger.Errorw("reconcile_alert_create_failed", "reference", event.Reference, "error", err)
		return nil, err
	}
	logger.Warnw("reconcile_event_no_matching_target",
		"reference", event.Reference,
		"email", alert.Email,
		"amount", amount.String(),
	)
	if err := s.queue.EnqueueReconcileAlert(queue.ReconcileAlertPayload{
		AlertID:   alert.ID,
		Reference: alert.Reference,
		Reason:    alert.Reason,
	}); err != nil {
		logger.Warnw("reconcile_alert_enqueue_failed", "alert_id", alert.ID, "error", err)
	}
	return &ReconcileOutcome{Result: constants.ReconcileOutcomeNoMatchingTarget}, nil
}

func reconcileLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}
