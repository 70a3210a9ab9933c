package admin

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

// ManualCreditRequest 人工入账请求
type ManualCreditRequest struct {
	Email  string `json:"email" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	Remark string `json:"remark"`
}

// ManualCredit 人工给用户钱包入账，走与网关事件相同的对账路径
func (h *Handler) ManualCredit(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req ManualCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid amount", err)
		return
	}

	outcome, err := h.ReconcileService.ManualCredit(c.Request.Context(), req.Email, models.NewMoneyFromDecimal(amount), req.Remark)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidParams):
			respondError(c, response.CodeBadRequest, "bad request", nil)
		case errors.Is(err, service.ErrWalletAmountInvalid):
			respondError(c, response.CodeBadRequest, "invalid amount", nil)
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeNotFound, "user not found", nil)
		default:
			respondError(c, response.CodeInternal, "manual credit failed", err)
		}
		return
	}

	requestLog(c).Infow("admin_manual_credit",
		"admin_id", adminID,
		"email", req.Email,
		"amount", amount.StringFixed(2),
		"result", outcome.Result,
	)
	response.Success(c, outcome)
}

// ManualDebitRequest 人工扣款请求
type ManualDebitRequest struct {
	Email  string `json:"email" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	Remark string `json:"remark"`
}

// ManualDebit 人工扣减用户钱包余额
func (h *Handler) ManualDebit(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req ManualDebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid amount", err)
		return
	}

	txn, err := h.WalletService.ManualDebit(req.Email, models.NewMoneyFromDecimal(amount), req.Remark)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidParams):
			respondError(c, response.CodeBadRequest, "bad request", nil)
		case errors.Is(err, service.ErrWalletAmountInvalid):
			respondError(c, response.CodeBadRequest, "invalid amount", nil)
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeNotFound, "user not found", nil)
		case errors.Is(err, service.ErrWalletInsufficientFunds):
			respondError(c, response.CodeBadRequest, "insufficient wallet balance", nil)
		default:
			respondError(c, response.CodeInternal, "manual debit failed", err)
		}
		return
	}

	requestLog(c).Infow("admin_manual_debit",
		"admin_id", adminID,
		"email", req.Email,
		"amount", amount.StringFixed(2),
		"reference", txn.Reference,
	)
	response.Success(c, txn)
}

// ListPaymentReferences 分页查询入账台账
func (h *Handler) ListPaymentReferences(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.PaymentReferenceListFilter{
		Page:      page,
		PageSize:  pageSize,
		Reference: strings.TrimSpace(c.Query("reference")),
		Action:    strings.TrimSpace(c.Query("action")),
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(userID)
	}
	if orderID, err := strconv.ParseUint(c.Query("order_id"), 10, 64); err == nil {
		filter.OrderID = uint(orderID)
	}

	references, total, err := h.ReconcileService.ListReferences(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch payment references failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, references, pagination)
}

// ListReconcileAlerts 分页查询对账告警
func (h *Handler) ListReconcileAlerts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	alerts, total, err := h.ReconcileService.ListAlerts(repository.ReconcileAlertListFilter{
		Page:      page,
		PageSize:  pageSize,
		Status:    strings.TrimSpace(c.Query("status")),
		Reference: strings.TrimSpace(c.Query("reference")),
		Email:     strings.TrimSpace(c.Query("email")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch reconcile alerts failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, alerts, pagination)
}

// ResolveReconcileAlert 标记对账告警已处理
func (h *Handler) ResolveReconcileAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid alert id", err)
		return
	}

	alert, err := h.ReconcileService.ResolveAlert(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrReconcileAlertNotFound) {
			respondError(c, response.CodeNotFound, "alert not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "resolve alert failed", err)
		return
	}
	response.Success(c, alert)
}
