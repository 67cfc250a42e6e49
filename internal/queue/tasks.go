package queue

import (
	"encoding/json"

	"github.com/fenxiao-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionProcess 订单佣金结算任务
	TaskCommissionProcess = constants.TaskCommissionProcess
	// TaskCommissionOrderVoid 订单取消作废佣金任务
	TaskCommissionOrderVoid = constants.TaskCommissionOrderVoid
	// TaskOrderTimeoutCancel 超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskVolumeBonusRecompute 销量加成刷新任务
	TaskVolumeBonusRecompute = constants.TaskVolumeBonusRecompute
)

// CommissionProcessPayload 佣金结算任务载荷
type CommissionProcessPayload struct {
	OrderID uint `json:"order_id"`
}

// CommissionOrderVoidPayload 佣金作废任务载荷
type CommissionOrderVoidPayload struct {
	OrderID uint   `json:"order_id"`
	Reason  string `json:"reason"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// NewCommissionProcessTask 创建佣金结算任务
func NewCommissionProcessTask(payload CommissionProcessPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionProcess, body), nil
}

// NewCommissionOrderVoidTask 创建佣金作废任务
func NewCommissionOrderVoidTask(payload CommissionOrderVoidPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionOrderVoid, body), nil
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewVolumeBonusRecomputeTask 创建销量加成刷新任务
func NewVolumeBonusRecomputeTask() *asynq.Task {
	return asynq.NewTask(TaskVolumeBonusRecompute, nil)
}
