package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/logger"
	"github.com/nairamart-next/internal/provider"
	"github.com/nairamart-next/internal/queue"
	"github.com/nairamart-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskReconcileAlert, c.handleReconcileAlert)
	mux.HandleFunc(queue.TaskTopupRequestDispatch, c.handleTopupRequestDispatch)
	mux.HandleFunc(queue.TaskWalletCreditNotify, c.handleWalletCreditNotify)
}

// handleReconcileAlert 投递对账告警：成功收款找不到入账对象属于资金异常，
// 以 warn 级日志推给值班告警管道，后台 resolve 之前每次重投都会再次留痕。
func (c *Consumer) handleReconcileAlert(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_reconcile_alert_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReconcileAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_reconcile_alert_unmarshal_failed", "error", err)
		return err
	}
	if payload.AlertID == 0 {
		logger.Debugw("worker_reconcile_alert_skip_invalid_payload", "alert_id", payload.AlertID)
		return nil
	}
	alert, err := c.ReconcileAlertRepo.GetByID(payload.AlertID)
	if err != nil {
		logger.Warnw("worker_reconcile_alert_fetch_failed", "alert_id", payload.AlertID, "error", err)
		return err
	}
	if alert == nil {
		logger.Debugw("worker_reconcile_alert_skip_not_found", "alert_id", payload.AlertID)
		return nil
	}
	if alert.Status == constants.ReconcileAlertStatusResolved {
		logger.Debugw("worker_reconcile_alert_skip_resolved", "alert_id", alert.ID, "reference", alert.Reference)
		return nil
	}
	logger.Warnw("reconcile_alert_pending",
		"alert_id", alert.ID,
		"reference", alert.Reference,
		"email", alert.Email,
		"amount", alert.Amount.String(),
		"currency", alert.Currency,
		"reason", alert.Reason,
	)
	return nil
}

// handleTopupRequestDispatch 派发充值请求：把 pending 请求置为 processing，
// 表示已进入话费/流量代充通道，终态请求直接跳过。
func (c *Consumer) handleTopupRequestDispatch(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_topup_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.TopupRequestDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_topup_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.RequestID == 0 {
		logger.Debugw("worker_topup_dispatch_skip_invalid_payload", "request_id", payload.RequestID)
		return nil
	}
	if c.TopupService == nil {
		logger.Warnw("worker_topup_dispatch_skip_service_nil", "request_id", payload.RequestID)
		return nil
	}
	request, err := c.TopupService.MarkProcessing(payload.RequestID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTopupNotFound):
			logger.Debugw("worker_topup_dispatch_skip_not_found", "request_id", payload.RequestID)
			return nil
		case errors.Is(err, service.ErrTopupStatusFinalized):
			logger.Debugw("worker_topup_dispatch_skip_finalized", "request_id", payload.RequestID)
			return nil
		default:
			logger.Warnw("worker_topup_dispatch_failed", "request_id", payload.RequestID, "error", err)
			return err
		}
	}
	logger.Infow("topup_request_dispatched",
		"request_id", request.ID,
		"type", request.Type,
		"phone_number", request.PhoneNumber,
	)
	return nil
}

// handleWalletCreditNotify 钱包入账通知：对账成功后告知用户到账结果。
func (c *Consumer) handleWalletCreditNotify(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_wallet_credit_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.WalletCreditNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_wallet_credit_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 {
		logger.Debugw("worker_wallet_credit_notify_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	user, err := c.UserRepo.GetByID(payload.UserID)
	if err != nil {
		logger.Warnw("worker_wallet_credit_notify_fetch_user_failed", "user_id", payload.UserID, "error", err)
		return err
	}
	if user == nil {
		logger.Debugw("worker_wallet_credit_notify_skip_user_not_found", "user_id", payload.UserID)
		return nil
	}
	receiverEmail := strings.TrimSpace(user.Email)
	if receiverEmail == "" {
		logger.Debugw("worker_wallet_credit_notify_skip_empty_receiver", "user_id", user.ID)
		return nil
	}
	logger.Infow("wallet_credit_notified",
		"user_id", user.ID,
		"receiver_email", receiverEmail,
		"reference", payload.Reference,
		"amount", payload.Amount,
		"currency", payload.Currency,
	)
	return nil
}
