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

// CreateTopupRequest 话费/流量充值请求
type CreateTopupRequest struct {
	Type        string `json:"type" binding:"required"`
	Network     string `json:"network" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Plan        string `json:"plan"`
	Amount      string `json:"amount" binding:"required"`
}

// CreateTopup 提交话费/流量充值请求，金额即时从钱包冻结
func (h *Handler) CreateTopup(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid amount", err)
		return
	}

	request, err := h.TopupService.RequestTopup(service.TopupRequestInput{
		UserID:      uid,
		Type:        req.Type,
		Network:     req.Network,
		PhoneNumber: req.PhoneNumber,
		Plan:        req.Plan,
		Amount:      models.NewMoneyFromDecimal(amount),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidParams):
			respondError(c, response.CodeBadRequest, "invalid topup request", nil)
		case errors.Is(err, service.ErrWalletAmountInvalid):
			respondError(c, response.CodeBadRequest, "invalid amount", nil)
		case errors.Is(err, service.ErrWalletInsufficientFunds):
			respondError(c, response.CodeBadRequest, "insufficient wallet balance", nil)
		default:
			respondError(c, response.CodeInternal, "create topup failed", err)
		}
		return
	}
	response.Success(c, request)
}

// ListTopups 分页查询当前用户充值请求
func (h *Handler) ListTopups(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	requests, total, err := h.TopupService.ListRequests(repository.TopupRequestListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Type:     strings.TrimSpace(c.Query("type")),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch topups failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, requests, pagination)
}

// GetTopup 获取当前用户充值请求详情
func (h *Handler) GetTopup(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid topup id", err)
		return
	}

	request, err := h.TopupService.GetRequest(uint(id), uid)
	if err != nil {
		if errors.Is(err, service.ErrTopupNotFound) {
			respondError(c, response.CodeNotFound, "topup not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "fetch topup failed", err)
		return
	}
	response.Success(c, request)
}
