package queue

import (
	"encoding/json"

	"github.com/nairamart-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskReconcileAlert 对账告警通知任务
	TaskReconcileAlert = constants.TaskReconcileAlert
	// TaskTopupRequestDispatch 充值请求派发任务
	TaskTopupRequestDispatch = constants.TaskTopupRequestDispatch
	// TaskWalletCreditNotify 钱包入账通知任务
	TaskWalletCreditNotify = constants.TaskWalletCreditNotify
)

// ReconcileAlertPayload 对账告警任务载荷
type ReconcileAlertPayload struct {
	AlertID   uint   `json:"alert_id"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// TopupRequestDispatchPayload 充值请求派发任务载荷
type TopupRequestDispatchPayload struct {
	RequestID uint `json:"request_id"`
}

// WalletCreditNotifyPayload 钱包入账通知任务载荷
type WalletCreditNotifyPayload struct {
	UserID    uint   `json:"user_id"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// NewReconcileAlertTask 创建对账告警任务
func NewReconcileAlertTask(payload ReconcileAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileAlert, body), nil
}

// NewTopupRequestDispatchTask 创建充值请求派发任务
func NewTopupRequestDispatchTask(payload TopupRequestDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTopupRequestDispatch, body), nil
}

// NewWalletCreditNotifyTask 创建钱包入账通知任务
func NewWalletCreditNotifyTask(payload WalletCreditNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWalletCreditNotify, body), nil
}
