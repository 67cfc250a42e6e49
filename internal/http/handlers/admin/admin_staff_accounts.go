package admin

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/cache"
	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/i18n"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// 引导创建的超级管理员账号，不可删除也不可降级
const bootstrapSuperUsername = "admin"

// 账号名：字母或数字开头，允许点/下划线/中划线，3-32 位
var staffUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{2,31}$`)

type staffAccountCreateRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IsSuper  *bool  `json:"is_super"`
}

type staffAccountUpdateRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	IsSuper  *bool   `json:"is_super"`
}

// staffAccountView 账号对外视图，不回传密码散列等内部字段
func staffAccountView(account *models.Admin) gin.H {
	return gin.H{
		"id":            account.ID,
		"username":      account.Username,
		"is_super":      account.IsSuper,
		"last_login_at": account.LastLoginAt,
		"created_at":    account.CreatedAt,
	}
}

// CreateStaffAccount 创建管理员账号
func (h *Handler) CreateStaffAccount(c *gin.Context) {
	var req staffAccountCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	username, err := normalizeStaffUsername(req.Username)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.admin_username_invalid", err)
		return
	}

	existing, err := h.AdminRepo.GetByUsername(username)
	if err != nil {
		respondError(c, response.CodeInternal, "error.admin_create_failed", err)
		return
	}
	if existing != nil {
		respondError(c, response.CodeBadRequest, "error.admin_username_exists", nil)
		return
	}

	hash, ok := h.hashStaffPassword(c, req.Password)
	if !ok {
		return
	}

	// 引导超管账号名强制超管身份
	isSuper := req.IsSuper != nil && *req.IsSuper
	if strings.EqualFold(username, bootstrapSuperUsername) {
		isSuper = true
	}

	account := &models.Admin{
		Username:     username,
		PasswordHash: hash,
		IsSuper:      isSuper,
	}
	if err := h.AdminRepo.Create(account); err != nil {
		respondError(c, response.CodeInternal, "error.admin_create_failed", err)
		return
	}
	_ = cache.SetAdminAuthState(c.Request.Context(), cache.BuildAdminAuthState(account))

	op := operatorFrom(c)
	h.auditRBACChange(c, op, service.AuthzAuditRecordInput{
		Action:         "admin_create",
		TargetAdminID:  &account.ID,
		TargetUsername: account.Username,
		Detail: models.JSON{
			"target_admin_id": account.ID,
			"target_username": account.Username,
			"is_super":        account.IsSuper,
		},
	})
	logger.Infow("admin_staff_account_created",
		"operator_admin_id", op.AdminID,
		"target_admin_id", account.ID,
		"target_username", account.Username,
		"is_super", account.IsSuper,
	)

	response.Success(c, staffAccountView(account))
}

// UpdateStaffAccount 更新管理员账号（用户名/密码/超管标记）
func (h *Handler) UpdateStaffAccount(c *gin.Context) {
	adminID, ok := staffAccountIDFromPath(c)
	if !ok {
		return
	}
	account, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.admin_update_failed", err)
		return
	}
	if account == nil {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return
	}

	var req staffAccountUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	changed := make([]string, 0, 3)

	if req.Username != nil {
		username, err := normalizeStaffUsername(*req.Username)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.admin_username_invalid", err)
			return
		}
		if username != account.Username {
			existing, err := h.AdminRepo.GetByUsername(username)
			if err != nil {
				respondError(c, response.CodeInternal, "error.admin_update_failed", err)
				return
			}
			if existing != nil && existing.ID != account.ID {
				respondError(c, response.CodeBadRequest, "error.admin_username_exists", nil)
				return
			}
			account.Username = username
			changed = append(changed, "username")
		}
	}

	if req.IsSuper != nil && *req.IsSuper != account.IsSuper {
		if !*req.IsSuper {
			// 引导超管不可降级；系统至少保留一名超管
			if strings.EqualFold(strings.TrimSpace(account.Username), bootstrapSuperUsername) {
				respondError(c, response.CodeBadRequest, "error.admin_super_required", nil)
				return
			}
			supers, err := h.countSuperAccounts()
			if err != nil {
				respondError(c, response.CodeInternal, "error.admin_update_failed", err)
				return
			}
			if account.IsSuper && supers <= 1 {
				respondError(c, response.CodeBadRequest, "error.admin_super_required", nil)
				return
			}
		}
		account.IsSuper = *req.IsSuper
		changed = append(changed, "is_super")
	}

	if req.Password != nil {
		hash, ok := h.hashStaffPassword(c, *req.Password)
		if !ok {
			return
		}
		account.PasswordHash = hash
		now := time.Now()
		account.TokenVersion++
		account.TokenInvalidBefore = &now
		changed = append(changed, "password")
	}

	if len(changed) == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.AdminRepo.Update(account); err != nil {
		respondError(c, response.CodeInternal, "error.admin_update_failed", err)
		return
	}
	_ = cache.SetAdminAuthState(c.Request.Context(), cache.BuildAdminAuthState(account))

	op := operatorFrom(c)
	if op.AdminID == account.ID {
		c.Set("admin_is_super", account.IsSuper)
	}

	sort.Strings(changed)
	h.auditRBACChange(c, op, service.AuthzAuditRecordInput{
		Action:         "admin_update",
		TargetAdminID:  &account.ID,
		TargetUsername: account.Username,
		Detail: models.JSON{
			"target_admin_id": account.ID,
			"target_username": account.Username,
			"updated_fields":  changed,
			"is_super":        account.IsSuper,
		},
	})
	logger.Infow("admin_staff_account_updated",
		"operator_admin_id", op.AdminID,
		"target_admin_id", account.ID,
		"target_username", account.Username,
		"updated_fields", changed,
	)

	response.Success(c, staffAccountView(account))
}

// DeleteStaffAccount 删除管理员账号
// 不允许删除自己、引导超管或最后一个账号；删除前回收其全部角色。
func (h *Handler) DeleteStaffAccount(c *gin.Context) {
	adminID, ok := staffAccountIDFromPath(c)
	if !ok {
		return
	}

	account, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.admin_delete_failed", err)
		return
	}
	if account == nil {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return
	}

	op := operatorFrom(c)
	if op.AdminID == adminID {
		respondError(c, response.CodeBadRequest, "error.admin_delete_self_forbidden", nil)
		return
	}
	if strings.EqualFold(strings.TrimSpace(account.Username), bootstrapSuperUsername) {
		respondError(c, response.CodeBadRequest, "error.admin_delete_protected", nil)
		return
	}

	total, err := h.AdminRepo.Count()
	if err != nil {
		respondError(c, response.CodeInternal, "error.admin_delete_failed", err)
		return
	}
	if total <= 1 {
		respondError(c, response.CodeBadRequest, "error.admin_delete_last_forbidden", nil)
		return
	}

	if err := h.AuthzService.SetAdminRoles(adminID, []string{}); err != nil {
		respondError(c, response.CodeInternal, "error.admin_delete_failed", err)
		return
	}
	if err := h.AdminRepo.Delete(adminID); err != nil {
		respondError(c, response.CodeInternal, "error.admin_delete_failed", err)
		return
	}
	_ = cache.DelAdminAuthState(c.Request.Context(), adminID)

	h.auditRBACChange(c, op, service.AuthzAuditRecordInput{
		Action:         "admin_delete",
		TargetAdminID:  &adminID,
		TargetUsername: account.Username,
		Detail: models.JSON{
			"target_admin_id": adminID,
			"target_username": account.Username,
		},
	})
	logger.Infow("admin_staff_account_deleted",
		"operator_admin_id", op.AdminID,
		"target_admin_id", adminID,
		"target_username", account.Username,
	)

	response.Success(c, nil)
}

// hashStaffPassword 校验密码策略并生成散列，失败时已写响应
func (h *Handler) hashStaffPassword(c *gin.Context, password string) (string, bool) {
	password = strings.TrimSpace(password)
	if password == "" {
		respondError(c, response.CodeBadRequest, "error.password_weak", nil)
		return "", false
	}
	if err := h.AuthService.ValidatePassword(password); err != nil {
		respondStaffPasswordPolicyError(c, err)
		return "", false
	}
	hash, err := h.AuthService.HashPassword(password)
	if err != nil {
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return "", false
	}
	return hash, true
}

func (h *Handler) countSuperAccounts() (int, error) {
	accounts, err := h.AdminRepo.List()
	if err != nil {
		return 0, err
	}
	supers := 0
	for _, account := range accounts {
		if account.IsSuper {
			supers++
		}
	}
	return supers, nil
}

func normalizeStaffUsername(username string) (string, error) {
	trimmed := strings.TrimSpace(username)
	if !staffUsernamePattern.MatchString(trimmed) {
		return "", fmt.Errorf("invalid staff username %q", trimmed)
	}
	return trimmed, nil
}

// respondStaffPasswordPolicyError 密码策略错误本地化后返回
func respondStaffPasswordPolicyError(c *gin.Context, err error) {
	if err == nil || !errors.Is(err, service.ErrWeakPassword) {
		respondError(c, response.CodeBadRequest, "error.password_weak", err)
		return
	}
	if perr, ok := err.(interface {
		Key() string
		Args() []interface{}
	}); ok {
		msg := i18n.Sprintf(i18n.ResolveLocale(c), perr.Key(), perr.Args()...)
		respondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
		return
	}
	respondError(c, response.CodeBadRequest, "error.password_weak", nil)
}
