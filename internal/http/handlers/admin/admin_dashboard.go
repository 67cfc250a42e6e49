package admin

import (
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview 获取后台仪表盘总览
// 汇总用户规模、订单量、销售额与佣金负债。
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	totalUsers, err := h.UserRepo.CountByRole("")
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}
	usersByRole := gin.H{}
	for _, role := range []string{constants.UserRoleRetail, constants.UserRoleTrader, constants.UserRoleDistributor} {
		count, err := h.UserRepo.CountByRole(role)
		if err != nil {
			respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
			return
		}
		usersByRole[role] = count
	}

	totalOrders, err := h.OrderRepo.CountByStatus("")
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}
	ordersByStatus := gin.H{}
	for _, status := range []string{
		constants.OrderStatusPendingPayment,
		constants.OrderStatusPaid,
		constants.OrderStatusCompleted,
		constants.OrderStatusCanceled,
	} {
		count, err := h.OrderRepo.CountByStatus(status)
		if err != nil {
			respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
			return
		}
		ordersByStatus[status] = count
	}

	settledStatuses := []string{constants.OrderStatusPaid, constants.OrderStatusCompleted}
	totalSales, err := h.OrderRepo.SumSalesByStatuses(settledStatuses, nil)
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}
	since := time.Now().AddDate(0, 0, -constants.VolumeBonusWindowDay)
	recentSales, err := h.OrderRepo.SumSalesByStatuses(settledStatuses, &since)
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}

	pendingCommission, err := h.CommissionRepo.SumByStatus(constants.CommissionStatusPending)
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}
	pendingCommissionCount, err := h.CommissionRepo.CountByStatus(constants.CommissionStatusPending)
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}
	paidCommission, err := h.CommissionRepo.SumByStatus(constants.CommissionStatusPaid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}

	response.Success(c, gin.H{
		"users": gin.H{
			"total":   totalUsers,
			"by_role": usersByRole,
		},
		"orders": gin.H{
			"total":     totalOrders,
			"by_status": ordersByStatus,
		},
		"sales": gin.H{
			"total":       totalSales,
			"recent":      recentSales,
			"recent_days": constants.VolumeBonusWindowDay,
		},
		"commissions": gin.H{
			"pending_amount": pendingCommission,
			"pending_count":  pendingCommissionCount,
			"paid_amount":    paidCommission,
		},
	})
}
