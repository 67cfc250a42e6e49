package service

import (
	"strings"

	"github.com/fenxiao-next/internal/constants"
)

// orderStatusTransitions 订单状态机：仅允许表内迁移
var orderStatusTransitions = map[string][]string{
	constants.OrderStatusPendingPayment: {
		constants.OrderStatusPaid,
		constants.OrderStatusCanceled,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusCompleted,
		constants.OrderStatusCanceled,
	},
	constants.OrderStatusCompleted: {},
	constants.OrderStatusCanceled:  {},
}

func isTransitionAllowed(current, target string) bool {
	current = strings.ToLower(strings.TrimSpace(current))
	target = strings.ToLower(strings.TrimSpace(target))
	if current == "" || target == "" || current == target {
		return false
	}
	for _, allowed := range orderStatusTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}
