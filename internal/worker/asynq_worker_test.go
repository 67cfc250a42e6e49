package worker

import (
	"context"
	"testing"

	"github.com/fenxiao-next/internal/provider"
	"github.com/fenxiao-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestConsumerRegisterNilMux(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	// 不应 panic
	consumer.Register(nil)
}

func TestHandleCommissionProcessInvalidPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task := asynq.NewTask(queue.TaskCommissionProcess, []byte("{not-json"))
	if err := consumer.handleCommissionProcess(context.Background(), task); err == nil {
		t.Fatalf("expected unmarshal error for invalid payload")
	}
}

func TestHandleCommissionProcessZeroOrderID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task, err := queue.NewCommissionProcessTask(queue.CommissionProcessPayload{OrderID: 0})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleCommissionProcess(context.Background(), task); err != nil {
		t.Fatalf("zero order id should be skipped, got %v", err)
	}
}

func TestHandleCommissionProcessServiceUnavailable(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task, err := queue.NewCommissionProcessTask(queue.CommissionProcessPayload{OrderID: 42})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	// 服务未初始化时跳过而不是重试
	if err := consumer.handleCommissionProcess(context.Background(), task); err != nil {
		t.Fatalf("nil service should be skipped, got %v", err)
	}
}

func TestHandleOrderTimeoutCancelZeroOrderID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task, err := queue.NewOrderTimeoutCancelTask(queue.OrderTimeoutCancelPayload{OrderID: 0})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("zero order id should be skipped, got %v", err)
	}
}

func TestHandleVolumeBonusRecomputeServiceUnavailable(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task := queue.NewVolumeBonusRecomputeTask()
	if err := consumer.handleVolumeBonusRecompute(context.Background(), task); err != nil {
		t.Fatalf("nil service should be skipped, got %v", err)
	}
}
