package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMyNetwork 获取当前用户的推荐网络树
func (h *Handler) GetMyNetwork(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	depth, _ := strconv.Atoi(c.DefaultQuery("depth", strconv.Itoa(constants.NetworkTreeMaxDepth)))
	tree, err := h.NetworkService.GetUserNetwork(uid, depth)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		case errors.Is(err, service.ErrNetworkDisabled):
			respondError(c, response.CodeBadRequest, "error.network_disabled", nil)
		default:
			respondError(c, response.CodeInternal, "error.network_fetch_failed", err)
		}
		return
	}

	response.Success(c, tree)
}

// GetMyNetworkStats 获取当前用户的团队统计
func (h *Handler) GetMyNetworkStats(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	stats, err := h.NetworkService.GetNetworkStats(uid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.network_fetch_failed", err)
		return
	}

	response.Success(c, stats)
}

// ListMyDownlines 获取当前用户的直属下级
func (h *Handler) ListMyDownlines(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	downlines, err := h.NetworkService.ListDirectDownlines(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.network_fetch_failed", err)
		return
	}

	items := make([]gin.H, 0, len(downlines))
	for i := range downlines {
		user := &downlines[i]
		items = append(items, gin.H{
			"id":           user.ID,
			"email":        maskEmail(user.Email),
			"display_name": user.DisplayName,
			"role":         user.Role,
			"joined_at":    user.CreatedAt,
		})
	}
	response.Success(c, gin.H{"items": items})
}

// ListMyCommissions 获取当前用户的佣金流水
func (h *Handler) ListMyCommissions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	commissionType := strings.TrimSpace(c.Query("type"))

	items, total, err := h.CommissionService.ListCommissions(repository.CommissionListFilter{
		Page:        page,
		PageSize:    pageSize,
		RecipientID: uid,
		Status:      status,
		Type:        commissionType,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetMyCommissionSummary 获取当前用户的佣金汇总
func (h *Handler) GetMyCommissionSummary(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	summary, err := h.CommissionService.GetUserCommissionSummary(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}

	response.Success(c, summary)
}

// GetMyVolumeBonus 获取当前用户的实时销量加成比例
func (h *Handler) GetMyVolumeBonus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	rate, err := h.CommissionService.ComputeVolumeBonusRate(uid, time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}

	response.Success(c, gin.H{"volume_bonus_rate": rate})
}

// maskEmail 对下级邮箱脱敏展示
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return email
	}
	if at <= 3 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
