package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminListCommissions 管理端佣金台账列表
func (h *Handler) AdminListCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	commissionType := strings.TrimSpace(c.Query("type"))
	orderNo := strings.TrimSpace(c.Query("order_no"))
	keyword := strings.TrimSpace(c.Query("keyword"))
	createdFromRaw := strings.TrimSpace(c.Query("created_from"))
	createdToRaw := strings.TrimSpace(c.Query("created_to"))

	createdFrom, err := parseTimeNullable(createdFromRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(createdToRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	var recipientID uint
	if raw := strings.TrimSpace(c.Query("recipient_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			recipientID = uint(parsed)
		}
	}
	var orderID uint
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			orderID = uint(parsed)
		}
	}

	items, total, err := h.CommissionService.ListCommissions(repository.CommissionListFilter{
		Page:        page,
		PageSize:    pageSize,
		OrderID:     orderID,
		RecipientID: recipientID,
		OrderNo:     orderNo,
		Status:      status,
		Type:        commissionType,
		Keyword:     keyword,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// MarkCommissionsPaidRequest 批量结算佣金请求
type MarkCommissionsPaidRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// AdminMarkCommissionsPaid 批量将待结算佣金标记为已结算
func (h *Handler) AdminMarkCommissionsPaid(c *gin.Context) {
	var req MarkCommissionsPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if len(req.IDs) == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	updated, err := h.CommissionService.MarkCommissionsPaid(req.IDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCommissionNotFound):
			respondError(c, response.CodeNotFound, "error.commission_not_found", nil)
		case errors.Is(err, service.ErrCommissionStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.commission_status", nil)
		default:
			respondError(c, response.CodeInternal, "error.commission_update_failed", err)
		}
		return
	}

	response.Success(c, gin.H{"updated": updated})
}

// AdminListCommissionTiers 获取层级佣金比例表
func (h *Handler) AdminListCommissionTiers(c *gin.Context) {
	tiers, err := h.CommissionService.ListCommissionTiers()
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}
	response.Success(c, tiers)
}

// AdminListVolumeBonusTiers 获取销量加成档位表
func (h *Handler) AdminListVolumeBonusTiers(c *gin.Context) {
	tiers, err := h.CommissionRepo.ListVolumeBonusTiers()
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}
	response.Success(c, tiers)
}

// AdminGetUserCommissionSummary 获取指定用户的佣金汇总
func (h *Handler) AdminGetUserCommissionSummary(c *gin.Context) {
	rawID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rawID == 0 {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	summary, err := h.CommissionService.GetUserCommissionSummary(uint(rawID))
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}
	response.Success(c, summary)
}
