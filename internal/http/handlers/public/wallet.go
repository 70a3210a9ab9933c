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

// WalletFundRequest 用户充值钱包请求
type WalletFundRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// GetMyWallet 获取当前用户钱包信息
func (h *Handler) GetMyWallet(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	account, err := h.WalletService.GetAccount(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch wallet failed", err)
		return
	}
	response.Success(c, account)
}

// GetMyWalletTransactions 获取当前用户钱包流水
func (h *Handler) GetMyWalletTransactions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	transactions, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Type:     strings.TrimSpace(c.Query("type")),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch wallet transactions failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, transactions, pagination)
}

// FundWallet 发起钱包充值，返回 Paystack 收银台地址
func (h *Handler) FundWallet(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req WalletFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid amount", err)
		return
	}

	result, err := h.WalletService.InitiateFunding(c.Request.Context(), service.WalletFundInput{
		UserID: uid,
		Amount: models.NewMoneyFromDecimal(amount),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWalletAmountInvalid):
			respondError(c, response.CodeBadRequest, "invalid amount", nil)
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeNotFound, "user not found", nil)
		case errors.Is(err, service.ErrUserDisabled):
			respondError(c, response.CodeForbidden, "account disabled", nil)
		case errors.Is(err, service.ErrPaymentGatewayUnavailable):
			respondError(c, response.CodeBadGateway, "payment gateway unavailable", err)
		default:
			respondError(c, response.CodeInternal, "initiate funding failed", err)
		}
		return
	}
	response.Success(c, result)
}

// VerifyFunding 主动向网关核对参考号并入账。
// webhook 丢失时由前端回跳触发，幂等，重复核对不会二次加钱。
func (h *Handler) VerifyFunding(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	reference := strings.TrimSpace(c.Query("reference"))
	if reference == "" {
		respondError(c, response.CodeBadRequest, "reference is required", nil)
		return
	}

	outcome, err := h.ReconcileService.VerifyReference(c.Request.Context(), reference)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentReferenceNotFound):
			respondError(c, response.CodeNotFound, "reference not found", nil)
		case errors.Is(err, service.ErrPaymentGatewayUnavailable):
			respondError(c, response.CodeBadGateway, "payment gateway unavailable", err)
		default:
			respondError(c, response.CodeInternal, "verify reference failed", err)
		}
		return
	}

	requestLog(c).Infow("wallet_funding_verified",
		"user_id", uid,
		"reference", reference,
		"result", outcome.Result,
	)
	response.Success(c, outcome)
}
