package admin

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/fenxiao-next/internal/authz"
	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

type staffRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type routeGrantRequest struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type staffRoleAssignment struct {
	Roles []string `json:"roles"`
}

// 自定义角色名：小写字母开头，仅限小写字母/数字/下划线/中划线
var staffRoleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)

// 路由授权只接受管理端会出现的方法
var grantableActions = map[string]struct{}{
	"GET":    {},
	"POST":   {},
	"PUT":    {},
	"PATCH":  {},
	"DELETE": {},
	"*":      {},
}

// operator 当前操作人信息，认证中间件写入请求上下文
type operator struct {
	AdminID   uint
	Username  string
	RequestID string
}

func operatorFrom(c *gin.Context) operator {
	op := operator{}
	if value, exists := c.Get("admin_id"); exists {
		switch id := value.(type) {
		case uint:
			op.AdminID = id
		case int:
			if id > 0 {
				op.AdminID = uint(id)
			}
		case float64:
			if id > 0 {
				op.AdminID = uint(id)
			}
		}
	}
	if value, exists := c.Get("username"); exists {
		if username, ok := value.(string); ok {
			op.Username = strings.TrimSpace(username)
		}
	}
	if value, exists := c.Get("request_id"); exists {
		if requestID, ok := value.(string); ok {
			op.RequestID = strings.TrimSpace(requestID)
		}
	}
	return op
}

// GetAccessProfile 当前管理员的角色与可访问路由快照
func (h *Handler) GetAccessProfile(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	grants, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}

	isSuper := false
	if value, exists := c.Get("admin_is_super"); exists {
		flag, typeOK := value.(bool)
		isSuper = typeOK && flag
	}

	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": isSuper,
		"roles":    roles,
		"policies": grants,
	})
}

// ListStaffRoles 角色列表（预置角色与自定义角色）
func (h *Handler) ListStaffRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	items := make([]gin.H, 0, len(roles))
	for _, role := range roles {
		items = append(items, gin.H{
			"role":    role,
			"builtin": authz.IsBuiltinRole(role),
		})
	}
	response.Success(c, items)
}

// ListStaffAccounts 管理员账号列表，附带各自的角色
func (h *Handler) ListStaffAccounts(c *gin.Context) {
	accounts, err := h.AdminRepo.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}

	items := make([]gin.H, 0, len(accounts))
	for _, account := range accounts {
		roles, roleErr := h.AuthzService.GetAdminRoles(account.ID)
		if roleErr != nil {
			respondError(c, response.CodeInternal, "error.config_fetch_failed", roleErr)
			return
		}
		view := staffAccountView(&account)
		view["roles"] = roles
		items = append(items, view)
	}
	response.Success(c, items)
}

// CreateStaffRole 创建自定义角色
func (h *Handler) CreateStaffRole(c *gin.Context) {
	var req staffRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	name := strings.TrimPrefix(strings.TrimSpace(req.Role), "role:")
	if !staffRoleNamePattern.MatchString(name) {
		respondError(c, response.CodeBadRequest, "error.role_name_invalid", nil)
		return
	}

	role, err := h.AuthzService.EnsureRole(name)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	op := operatorFrom(c)
	h.auditRBACChange(c, op, service.AuthzAuditRecordInput{
		Action: "role_create",
		Role:   role,
		Detail: models.JSON{"role": role},
	})
	logger.Infow("admin_rbac_role_created",
		"operator_admin_id", op.AdminID,
		"role", role,
	)

	response.Success(c, gin.H{"role": role})
}

// DeleteStaffRole 删除自定义角色；预置角色受保护不可删除
func (h *Handler) DeleteStaffRole(c *gin.Context) {
	role := roleFromPath(c)
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if authz.IsBuiltinRole(role) {
		respondError(c, response.CodeBadRequest, "error.role_protected", nil)
		return
	}

	if err := h.AuthzService.DeleteRole(role); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	op := operatorFrom(c)
	h.auditRBACChange(c, op, service.AuthzAuditRecordInput{
		Action: "role_delete",
		Role:   role,
		Detail: models.JSON{"role": role},
	})
	logger.Infow("admin_rbac_role_deleted",
		"operator_admin_id", op.AdminID,
		"role", role,
	)

	response.Success(c, nil)
}

// ListRoleRouteGrants 角色当前持有的路由授权
func (h *Handler) ListRoleRouteGrants(c *gin.Context) {
	role := roleFromPath(c)
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	grants, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	response.Success(c, grants)
}

// GrantStaffRoute 给角色授予一条管理端路由
// 对象归一化后必须落在 /admin 前缀下，动作限定为路由方法集合。
func (h *Handler) GrantStaffRoute(c *gin.Context) {
	var req routeGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	object, action, ok := normalizeRouteGrant(req.Object, req.Action)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.grant_target_invalid", nil)
		return
	}

	if err := h.AuthzService.GrantRolePolicy(req.Role, object, action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	op := operatorFrom(c)
	h.auditRBACChange(c, op, service.AuthzAuditRecordInput{
		Action: "policy_grant",
		Role:   req.Role,
		Object: object,
		Method: action,
		Detail: models.JSON{"role": req.Role, "object": object, "method": action},
	})
	logger.Infow("admin_rbac_route_granted",
		"operator_admin_id", op.AdminID,
		"role", req.Role,
		"object", object,
		"action", action,
	)

	response.Success(c, nil)
}

// RevokeStaffRoute 撤销角色的一条路由授权
func (h *Handler) RevokeStaffRoute(c *gin.Context) {
	var req routeGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	object, action, ok := normalizeRouteGrant(req.Object, req.Action)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.grant_target_invalid", nil)
		return
	}

	if err := h.AuthzService.RevokeRolePolicy(req.Role, object, action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	op := operatorFrom(c)
	h.auditRBACChange(c, op, service.AuthzAuditRecordInput{
		Action: "policy_revoke",
		Role:   req.Role,
		Object: object,
		Method: action,
		Detail: models.JSON{"role": req.Role, "object": object, "method": action},
	})
	logger.Infow("admin_rbac_route_revoked",
		"operator_admin_id", op.AdminID,
		"role", req.Role,
		"object", object,
		"action", action,
	)

	response.Success(c, nil)
}

// GetStaffAccountRoles 查询指定管理员的角色
func (h *Handler) GetStaffAccountRoles(c *gin.Context) {
	adminID, ok := staffAccountIDFromPath(c)
	if !ok {
		return
	}
	if _, err := h.AdminRepo.GetByID(adminID); err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// AssignStaffAccountRoles 覆盖式设置管理员的角色集合
func (h *Handler) AssignStaffAccountRoles(c *gin.Context) {
	adminID, ok := staffAccountIDFromPath(c)
	if !ok {
		return
	}
	account, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	if account == nil {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return
	}

	var req staffRoleAssignment
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	op := operatorFrom(c)
	h.auditRBACChange(c, op, service.AuthzAuditRecordInput{
		Action:         "admin_roles_update",
		TargetAdminID:  &adminID,
		TargetUsername: account.Username,
		Detail: models.JSON{
			"target_admin_id": adminID,
			"target_username": account.Username,
			"roles":           req.Roles,
		},
	})
	logger.Infow("admin_rbac_account_roles_updated",
		"operator_admin_id", op.AdminID,
		"target_admin_id", adminID,
		"roles", req.Roles,
	)

	response.Success(c, nil)
}

// auditRBACChange 落一条权限变更审计，写入失败只告警不阻断请求
func (h *Handler) auditRBACChange(c *gin.Context, op operator, input service.AuthzAuditRecordInput) {
	if h == nil || h.AuthzAuditService == nil {
		return
	}
	input.OperatorAdminID = op.AdminID
	input.OperatorUsername = op.Username
	input.RequestID = op.RequestID
	if input.OperatorAdminID == 0 || strings.TrimSpace(input.Action) == "" {
		return
	}
	if err := h.AuthzAuditService.Record(input); err != nil {
		logger.Warnw("admin_rbac_audit_record_failed",
			"error", err,
			"action", input.Action,
			"operator_admin_id", input.OperatorAdminID,
		)
	}
}

// normalizeRouteGrant 归一化授权对象与动作
// 返回 ok=false 表示对象不在管理端路由空间内或动作非法。
func normalizeRouteGrant(object, action string) (string, string, bool) {
	normalizedObject := authz.NormalizeObject(object)
	if !strings.HasPrefix(normalizedObject, "/admin") {
		return "", "", false
	}
	normalizedAction := authz.NormalizeAction(action)
	if _, allowed := grantableActions[normalizedAction]; !allowed {
		return "", "", false
	}
	return normalizedObject, normalizedAction, true
}

func staffAccountIDFromPath(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}

func roleFromPath(c *gin.Context) string {
	raw := c.Param("role")
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(decoded)
}
