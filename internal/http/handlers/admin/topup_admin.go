package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nairamart-next/internal/http/response"
	"github.com/nairamart-next/internal/repository"
	"github.com/nairamart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// TopupFinalizeRequest 充值终态处理请求
type TopupFinalizeRequest struct {
	Remark string `json:"remark"`
}

// AdminListTopups 分页查询充值请求 (Admin)
func (h *Handler) AdminListTopups(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.TopupRequestListFilter{
		Page:     page,
		PageSize: pageSize,
		Type:     strings.TrimSpace(c.Query("type")),
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(userID)
	}

	requests, total, err := h.TopupService.ListRequests(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch topups failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, requests, pagination)
}

// AdminMarkTopupProcessing 领取充值请求开始处理
func (h *Handler) AdminMarkTopupProcessing(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid topup id", err)
		return
	}

	request, err := h.TopupService.MarkProcessing(uint(id))
	if err != nil {
		respondTopupError(c, err, "mark topup processing failed")
		return
	}
	response.Success(c, request)
}

// AdminCompleteTopup 确认充值到账，冻结的扣款转成功
func (h *Handler) AdminCompleteTopup(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid topup id", err)
		return
	}
	var req TopupFinalizeRequest
	_ = c.ShouldBindJSON(&req)

	request, err := h.TopupService.Complete(uint(id), req.Remark)
	if err != nil {
		respondTopupError(c, err, "complete topup failed")
		return
	}
	response.Success(c, request)
}

// AdminFailTopup 标记充值失败，扣款退回用户钱包
func (h *Handler) AdminFailTopup(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid topup id", err)
		return
	}
	var req TopupFinalizeRequest
	_ = c.ShouldBindJSON(&req)

	request, err := h.TopupService.Fail(uint(id), req.Remark)
	if err != nil {
		respondTopupError(c, err, "fail topup failed")
		return
	}
	response.Success(c, request)
}

func respondTopupError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrTopupNotFound):
		respondError(c, response.CodeNotFound, "topup not found", nil)
	case errors.Is(err, service.ErrTopupStatusFinalized):
		respondError(c, response.CodeBadRequest, "topup already finalized", nil)
	default:
		respondError(c, response.CodeInternal, fallback, err)
	}
}
