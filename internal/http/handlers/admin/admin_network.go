package admin

import (
	"errors"
	"strconv"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminGetUserNetwork 查看指定用户的推荐网络树
func (h *Handler) AdminGetUserNetwork(c *gin.Context) {
	rawID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rawID == 0 {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	depth, _ := strconv.Atoi(c.DefaultQuery("depth", strconv.Itoa(constants.NetworkTreeMaxDepth)))
	tree, err := h.NetworkService.GetUserNetwork(uint(rawID), depth)
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

// AdminListUserDownlines 查看指定用户的直属下级
func (h *Handler) AdminListUserDownlines(c *gin.Context) {
	rawID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rawID == 0 {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	downlines, err := h.NetworkService.ListDirectDownlines(uint(rawID))
	if err != nil {
		respondError(c, response.CodeInternal, "error.network_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"items": downlines})
}

// AdminGetUserUplineChain 查看指定用户的上级链
func (h *Handler) AdminGetUserUplineChain(c *gin.Context) {
	rawID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rawID == 0 {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	chain, err := h.NetworkService.GetUplineChain(uint(rawID), constants.CommissionMaxLevels)
	if err != nil {
		respondError(c, response.CodeInternal, "error.network_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"items": chain})
}

// CreateRelationshipRequest 管理端指定推荐关系请求
type CreateRelationshipRequest struct {
	UserID   uint `json:"user_id" binding:"required"`
	UplineID uint `json:"upline_id" binding:"required"`
}

// AdminCreateRelationship 管理端建立推荐关系
// 仅允许给尚无上级的用户补挂，成环与自荐由服务层拒绝。
func (h *Handler) AdminCreateRelationship(c *gin.Context) {
	var req CreateRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.NetworkService.CreateUserRelationship(req.UserID, req.UplineID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		case errors.Is(err, service.ErrSelfRelationship):
			respondError(c, response.CodeBadRequest, "error.self_relationship", nil)
		case errors.Is(err, service.ErrRelationshipExists):
			respondError(c, response.CodeConflict, "error.relationship_exists", nil)
		case errors.Is(err, service.ErrCircularRelationship):
			respondError(c, response.CodeBadRequest, "error.circular_relationship", nil)
		case errors.Is(err, service.ErrNetworkDisabled):
			respondError(c, response.CodeBadRequest, "error.network_disabled", nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}

	response.Success(c, gin.H{"created": true})
}
