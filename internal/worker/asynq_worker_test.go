package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nairamart-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleReconcileAlertRejectsMalformedPayload(t *testing.T) {
	consumer := &Consumer{}
	task := asynq.NewTask(queue.TaskReconcileAlert, []byte("{not json"))
	if err := consumer.handleReconcileAlert(context.Background(), task); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestHandleReconcileAlertSkipsZeroAlertID(t *testing.T) {
	consumer := &Consumer{}
	body, err := json.Marshal(queue.ReconcileAlertPayload{AlertID: 0})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	task := asynq.NewTask(queue.TaskReconcileAlert, body)
	if err := consumer.handleReconcileAlert(context.Background(), task); err != nil {
		t.Fatalf("expected nil for zero alert id, got %v", err)
	}
}

func TestHandleTopupDispatchSkipsZeroRequestID(t *testing.T) {
	consumer := &Consumer{}
	body, err := json.Marshal(queue.TopupRequestDispatchPayload{RequestID: 0})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	task := asynq.NewTask(queue.TaskTopupRequestDispatch, body)
	if err := consumer.handleTopupRequestDispatch(context.Background(), task); err != nil {
		t.Fatalf("expected nil for zero request id, got %v", err)
	}
}

func TestHandleWalletCreditNotifySkipsZeroUserID(t *testing.T) {
	consumer := &Consumer{}
	body, err := json.Marshal(queue.WalletCreditNotifyPayload{UserID: 0, Reference: "PS-1"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	task := asynq.NewTask(queue.TaskWalletCreditNotify, body)
	if err := consumer.handleWalletCreditNotify(context.Background(), task); err != nil {
		t.Fatalf("expected nil for zero user id, got %v", err)
	}
}

func TestHandlersTolerateNilTask(t *testing.T) {
	consumer := &Consumer{}
	if err := consumer.handleReconcileAlert(context.Background(), nil); err != nil {
		t.Fatalf("reconcile alert nil task: %v", err)
	}
	if err := consumer.handleTopupRequestDispatch(context.Background(), nil); err != nil {
		t.Fatalf("topup dispatch nil task: %v", err)
	}
	if err := consumer.handleWalletCreditNotify(context.Background(), nil); err != nil {
		t.Fatalf("wallet credit notify nil task: %v", err)
	}
}
