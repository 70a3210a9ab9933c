package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nairamart-next/internal/http/response"
	"github.com/nairamart-next/internal/models"
	"github.com/nairamart-next/internal/repository"
	"github.com/nairamart-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Items []CreateOrderItemRequest `json:"items" binding:"required"`
}

// CreateOrderItemRequest 订单项请求
type CreateOrderItemRequest struct {
	ProductID uint   `json:"product_id"`
	Title     string `json:"title" binding:"required"`
	UnitPrice string `json:"unit_price" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	items := make([]service.CreateOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		unitPrice, err := decimal.NewFromString(strings.TrimSpace(item.UnitPrice))
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid unit price", err)
			return
		}
		items = append(items, service.CreateOrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: models.NewMoneyFromDecimal(unitPrice),
			Quantity:  item.Quantity,
		})
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		UserID: uid,
		Items:  items,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidParams):
			respondError(c, response.CodeBadRequest, "invalid order items", nil)
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeNotFound, "user not found", nil)
		case errors.Is(err, service.ErrUserDisabled):
			respondError(c, response.CodeForbidden, "account disabled", nil)
		default:
			respondError(c, response.CodeInternal, "create order failed", err)
		}
		return
	}
	response.Success(c, order)
}

// ListOrders 分页查询当前用户订单
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch orders failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, orders, pagination)
}

// GetOrder 获取当前用户订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}

	order, err := h.OrderService.GetOrder(uint(id), uid)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "fetch order failed", err)
		return
	}
	response.Success(c, order)
}

// PayOrder 为订单发起 Paystack 收银台支付
func (h *Handler) PayOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}

	result, err := h.OrderService.InitiatePayment(c.Request.Context(), uint(id), uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderAlreadyPaid):
			respondError(c, response.CodeBadRequest, "order already paid", nil)
		case errors.Is(err, service.ErrOrderNotPayable):
			respondError(c, response.CodeBadRequest, "order not payable", nil)
		case errors.Is(err, service.ErrPaymentGatewayUnavailable):
			respondError(c, response.CodeBadGateway, "payment gateway unavailable", err)
		default:
			respondError(c, response.CodeInternal, "initiate payment failed", err)
		}
		return
	}
	response.Success(c, result)
}

// PayOrderWithWallet 用钱包余额支付订单
func (h *Handler) PayOrderWithWallet(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}

	order, err := h.OrderService.PayWithWallet(uint(id), uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderAlreadyPaid):
			respondError(c, response.CodeBadRequest, "order already paid", nil)
		case errors.Is(err, service.ErrOrderNotPayable):
			respondError(c, response.CodeBadRequest, "order not payable", nil)
		case errors.Is(err, service.ErrWalletInsufficientFunds):
			respondError(c, response.CodeBadRequest, "insufficient wallet balance", nil)
		default:
			respondError(c, response.CodeInternal, "wallet payment failed", err)
		}
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}

	order, err := h.OrderService.CancelOrder(uint(id), uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderStatusTransition):
			respondError(c, response.CodeBadRequest, "order cannot be canceled", nil)
		default:
			respondError(c, response.CodeInternal, "cancel order failed", err)
		}
		return
	}
	response.Success(c, order)
}
