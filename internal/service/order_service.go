package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/logger"
	"github.com/nairamart-next/internal/models"
	"github.com/nairamart-next/internal/paystack"
	"github.com/nairamart-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo     repository.OrderRepository
	userRepo      repository.UserRepository
	walletService *WalletService
	psCfg         *paystack.Config
	expireMinutes int
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, userRepo repository.UserRepository, walletService *WalletService, psCfg *paystack.Config, expireMinutes int) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		userRepo:      userRepo,
		walletService: walletService,
		psCfg:         psCfg,
		expireMinutes: expireMinutes,
	}
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	UserID uint
	Items  []CreateOrderItem
}

// CreateOrderItem 创建订单项输入
type CreateOrderItem struct {
	ProductID uint
	Title     string
	UnitPrice models.Money
	Quantity  int
}

// InitiatePaymentResult 发起在线支付结果
type InitiatePaymentResult struct {
	OrderNo          string `json:"order_no"`
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusPaid:     true,
		constants.OrderStatusCanceled: true,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusProcessing: true,
		constants.OrderStatusShipped:    true,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusShipped: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered: true,
	},
}

// CreateOrder 创建订单，同时生成唯一的支付参考号。
// 参考号在下单时就固定，后续对账只按该字段精确匹配。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 || len(input.Items) == 0 {
		return nil, ErrInvalidParams
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

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" || item.Quantity <= 0 {
			return nil, ErrInvalidParams
		}
		unitPrice := item.UnitPrice.Decimal.Round(2)
		if unitPrice.LessThan(decimal.Zero) {
			return nil, ErrInvalidParams
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(lineTotal)
		items = append(items, models.OrderItem{
			ProductID:  item.ProductID,
			Title:      title,
			UnitPrice:  models.NewMoneyFromDecimal(unitPrice),
			Quantity:   item.Quantity,
			TotalPrice: models.NewMoneyFromDecimal(lineTotal),
		})
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidParams
	}

	now := time.Now()
	order := &models.Order{
		OrderNo:     generateOrderNo(),
		UserID:      input.UserID,
		Status:      constants.OrderStatusPending,
		Currency:    s.currency(),
		TotalAmount: models.NewMoneyFromDecimal(total),
		PaymentRef:  constants.ReferencePrefixOrder + uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orderRepo.Create(order, items); err != nil {
		return nil, err
	}
	order.Items = items

	orderLogger("order_no", order.OrderNo).Infow("order_created",
		"user_id", order.UserID,
		"total_amount", order.TotalAmount.String(),
		"payment_ref", order.PaymentRef,
	)
	return order, nil
}

// GetOrder 按ID获取用户自己的订单
func (s *OrderService) GetOrder(id uint, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(id, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderByID 按ID获取订单（管理端）
func (s *OrderService) GetOrderByID(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderByOrderNo 按订单编号获取订单（管理端）
func (s *OrderService) GetOrderByOrderNo(orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 分页查询订单
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// InitiatePayment 为待支付订单发起收银台交易。
// 交易参考号复用订单的 PaymentRef，重复发起拿到的是同一个参考号。
func (s *OrderService) InitiatePayment(ctx context.Context, orderID uint, userID uint) (*InitiatePaymentResult, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaidAt != nil || order.Status == constants.OrderStatusPaid {
		return nil, ErrOrderAlreadyPaid
	}
	if order.Status != constants.OrderStatusPending {
		return nil, ErrOrderNotPayable
	}
	if s.isExpired(order) {
		ok, cancelErr := s.cancelExpired(order)
		if cancelErr != nil {
			return nil, cancelErr
		}
		if !ok {
			return nil, ErrOrderAlreadyPaid
		}
		return nil, ErrOrderNotPayable
	}

	user, err := s.userRepo.GetByID(order.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	result, err := paystack.InitializeTransaction(ctx, s.psCfg, paystack.InitializeInput{
		Email:       user.Email,
		AmountMinor: order.TotalAmount.MinorUnits(),
		Currency:    order.Currency,
		Reference:   order.PaymentRef,
	})
	if err != nil {
		orderLogger("order_no", order.OrderNo).Errorw("order_payment_initialize_failed", "error", err)
		return nil, ErrPaymentGatewayUnavailable
	}

	orderLogger("order_no", order.OrderNo).Infow("order_payment_initialized",
		"reference", order.PaymentRef,
		"amount", order.TotalAmount.String(),
	)
	return &InitiatePaymentResult{
		OrderNo:          order.OrderNo,
		Reference:        order.PaymentRef,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
	}, nil
}

// PayWithWallet 用钱包余额支付待支付订单。
// 扣款和订单状态更新在同一事务内完成，扣款参考号即订单支付参考号。
func (s *OrderService) PayWithWallet(orderID uint, userID uint) (*models.Order, error) {
	var paid *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		// 锁行后再校验状态，webhook 入账路径锁的是同一行
		order, err := repo.GetByIDAndUserForUpdate(orderID, userID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.PaidAt != nil || order.Status == constants.OrderStatusPaid {
			return ErrOrderAlreadyPaid
		}
		if order.Status != constants.OrderStatusPending {
			return ErrOrderNotPayable
		}

		if _, err := s.walletService.DebitInTx(tx, WalletDebitInput{
			UserID:    order.UserID,
			Amount:    order.TotalAmount,
			Currency:  order.Currency,
			Channel:   constants.PaymentChannelWallet,
			Reference: order.PaymentRef,
			Remark:    "order " + order.OrderNo,
		}); err != nil {
			return err
		}

		now := time.Now()
		order.Status = constants.OrderStatusPaid
		order.PaidAt = &now
		order.UpdatedAt = now
		if err := repo.Update(order); err != nil {
			return err
		}
		paid = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	orderLogger("order_no", paid.OrderNo).Infow("order_paid_with_wallet",
		"user_id", paid.UserID,
		"amount", paid.TotalAmount.String(),
	)
	// 锁行读取不带明细，返回前补一次带明细的读取
	if full, err := s.orderRepo.GetByIDAndUser(orderID, userID); err == nil && full != nil {
		return full, nil
	}
	return paid, nil
}

// UpdateStatus 更新订单状态（管理端），只允许既定的状态流转
func (s *OrderService) UpdateStatus(orderID uint, target string) (*models.Order, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !allowedTransitions[order.Status][target] {
		return nil, ErrOrderStatusTransition
	}

	now := time.Now()
	extra := map[string]interface{}{"updated_at": now}
	if target == constants.OrderStatusCanceled {
		extra["canceled_at"] = now
	}
	ok, err := s.orderRepo.TransitionStatus(order.ID, order.Status, target, extra)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 校验和写入之间状态被并发改写
		return nil, ErrOrderStatusTransition
	}
	order.Status = target
	order.UpdatedAt = now
	if target == constants.OrderStatusCanceled {
		order.CanceledAt = &now
	}

	orderLogger("order_no", order.OrderNo).Infow("order_status_updated", "status", target)
	return order, nil
}

// CancelOrder 用户取消自己的待支付订单
func (s *OrderService) CancelOrder(orderID uint, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending {
		return nil, ErrOrderStatusTransition
	}
	ok, err := s.cancelExpired(order)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 读取和取消之间订单被并发改写
		return nil, ErrOrderStatusTransition
	}
	return order, nil
}

// SweepExpiredOrders 扫描并取消超时未支付订单，返回取消数量
func (s *OrderService) SweepExpiredOrders() (int, error) {
	if s.expireMinutes <= 0 {
		return 0, nil
	}
	canceled := 0
	page := 1
	for {
		orders, _, err := s.orderRepo.List(repository.OrderListFilter{
			Page:     page,
			PageSize: 100,
			Status:   constants.OrderStatusPending,
		})
		if err != nil {
			return canceled, err
		}
		if len(orders) == 0 {
			return canceled, nil
		}
		removedInPage := 0
		for i := range orders {
			order := orders[i]
			if !s.isExpired(&order) {
				continue
			}
			ok, err := s.cancelExpired(&order)
			if err != nil {
				return canceled, err
			}
			// 条件取消落空说明订单已被并发支付或取消，同样脱离 pending 集合
			removedInPage++
			if ok {
				canceled++
			}
		}
		// 订单脱离 pending 集合后当前页会前移，只有整页都未动时才翻页
		if removedInPage == 0 {
			page++
		}
		if len(orders) < 100 {
			return canceled, nil
		}
	}
}

func (s *OrderService) isExpired(order *models.Order) bool {
	if s.expireMinutes <= 0 {
		return false
	}
	deadline := order.CreatedAt.Add(time.Duration(s.expireMinutes) * time.Minute)
	return time.Now().After(deadline)
}

// cancelExpired 条件取消：仅当订单仍是待支付时生效，
// 避免覆盖 webhook 并发标记的已支付状态
func (s *OrderService) cancelExpired(order *models.Order) (bool, error) {
	now := time.Now()
	ok, err := s.orderRepo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusCanceled, map[string]interface{}{
		"canceled_at": now,
		"updated_at":  now,
	})
	if err != nil || !ok {
		return ok, err
	}
	order.Status = constants.OrderStatusCanceled
	order.CanceledAt = &now
	order.UpdatedAt = now
	orderLogger("order_no", order.OrderNo).Infow("order_canceled")
	return true, nil
}

func (s *OrderService) currency() string {
	if s.psCfg != nil && strings.TrimSpace(s.psCfg.Currency) != "" {
		return strings.ToUpper(strings.TrimSpace(s.psCfg.Currency))
	}
	return constants.SiteCurrencyDefault
}

func orderLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("NM%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
