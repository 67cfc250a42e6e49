package i18n

import (
	"fmt"
	"strings"

	"github.com/fenxiao-next/internal/constants"

	"github.com/gin-gonic/gin"
)

// ResolveLocale 解析请求语言：优先 query 参数 lang，其次 Accept-Language 头。
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return constants.LocaleZhCN
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		if normalized := normalizeLocale(lang); normalized != "" {
			return normalized
		}
	}
	header := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if normalized := normalizeLocale(tag); normalized != "" {
			return normalized
		}
	}
	return constants.LocaleZhCN
}

func normalizeLocale(tag string) string {
	lowered := strings.ToLower(strings.TrimSpace(tag))
	switch {
	case lowered == "":
		return ""
	case strings.HasPrefix(lowered, "zh"):
		return constants.LocaleZhCN
	case strings.HasPrefix(lowered, "en"):
		return constants.LocaleEnUS
	default:
		return ""
	}
}

// T 翻译指定 key，未命中时回退 zh-CN，再回退 key 本身。
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[constants.LocaleZhCN][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化带参数的 key。
func Sprintf(locale, key string, args ...interface{}) string {
	format := T(locale, key)
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

var messages = map[string]map[string]string{
	constants.LocaleZhCN: {
		"error.internal":            "服务器内部错误",
		"error.invalid_request":     "请求参数无效",
		"error.not_found":           "资源不存在",
		"error.unauthorized":        "请先登录",
		"error.forbidden":           "没有操作权限",
		"error.auth_header_missing": "缺少认证信息",
		"error.auth_header_invalid": "认证信息格式错误",
		"error.token_invalid":       "登录状态无效，请重新登录",
		"error.token_revoked":       "登录状态已失效，请重新登录",
		"error.jwt_secret_missing":  "服务端认证配置缺失",
		"error.rate_limited":        "操作过于频繁，请稍后再试",
		"error.rate_limit_unavailable": "限流服务不可用，请稍后再试",
		"error.login_too_many":         "登录尝试过于频繁，请 %d 秒后再试",
		"error.bad_request":            "请求参数无效",
		"error.save_failed":            "保存失败",

		"error.invalid_credentials": "账号或密码错误",
		"error.invalid_email":       "邮箱格式无效",
		"error.email_invalid":       "邮箱格式无效",
		"error.email_exists":        "邮箱已注册",
		"error.invalid_password":    "密码错误",
		"error.user_disabled":       "账号已被禁用",
		"error.profile_empty":       "没有可更新的资料",
		"error.login_invalid":       "账号或密码错误",
		"error.login_failed":        "登录失败，请稍后再试",
		"error.register_failed":     "注册失败，请稍后再试",
		"error.password_weak":       "密码强度不足",
		"error.password_old_invalid":   "原密码错误",
		"error.old_password_invalid":   "原密码错误",
		"error.password_change_failed": "密码修改失败",
		"error.profile_update_failed":  "资料更新失败",
		"error.sponsor_bind_failed":    "绑定推荐人失败",
		"error.user_not_found":         "用户不存在",
		"error.user_fetch_failed":      "获取用户信息失败",
		"error.user_update_failed":     "更新用户信息失败",
		"error.user_id_invalid":        "用户身份信息缺失",
		"error.user_id_type_invalid":   "用户身份信息异常",

		"error.admin_login_invalid":         "账号或密码错误",
		"error.admin_id_invalid":            "管理员身份信息缺失",
		"error.admin_id_type_invalid":       "管理员身份信息异常",
		"error.admin_username_invalid":      "管理员用户名无效",
		"error.admin_username_exists":       "管理员用户名已存在",
		"error.admin_create_failed":         "创建管理员失败",
		"error.admin_update_failed":         "更新管理员失败",
		"error.admin_delete_failed":         "删除管理员失败",
		"error.admin_delete_self_forbidden": "不能删除当前登录的管理员",
		"error.admin_delete_last_forbidden": "不能删除最后一个管理员",
		"error.admin_delete_protected":      "该管理员受保护，不能删除",
		"error.admin_super_required":        "系统至少需要保留一名超级管理员",
		"error.role_name_invalid":           "角色名无效",
		"error.role_protected":              "预置角色不能删除",
		"error.grant_target_invalid":        "授权对象或动作无效",

		"error.password_min_length":      "密码长度不能少于 %d 位",
		"error.password_require_upper":   "密码必须包含大写字母",
		"error.password_require_lower":   "密码必须包含小写字母",
		"error.password_require_number":  "密码必须包含数字",
		"error.password_require_special": "密码必须包含特殊字符",

		"error.sponsor_code_invalid":    "推荐码无效",
		"error.relationship_exists":     "推荐关系已存在",
		"error.self_relationship":       "不能将自己设为推荐人",
		"error.circular_relationship":   "检测到循环推荐关系",
		"error.upline_chain_invalid":    "推荐链数据异常",
		"error.network_disabled":        "分销功能未开启",
		"error.network_config_invalid":  "分销配置无效",
		"error.relationship_forbidden":  "推荐关系不允许变更",
		"error.network_fetch_failed":    "获取分销网络失败",
		"error.commission_not_found":    "佣金记录不存在",
		"error.commission_status":       "佣金状态不允许该操作",
		"error.commission_tier_missing": "佣金层级配置缺失",
		"error.commission_fetch_failed":  "获取佣金数据失败",
		"error.commission_update_failed": "更新佣金状态失败",

		"error.order_not_found":       "订单不存在",
		"error.order_status_invalid":  "订单状态不允许该操作",
		"error.order_not_cancellable": "订单当前状态不可取消",
		"error.cart_empty":            "购物车为空",
		"error.cart_quantity_invalid": "购物车数量无效",
		"error.product_not_found":     "商品不存在",
		"error.product_inactive":      "商品已下架",
		"error.stock_insufficient":    "商品库存不足",
		"error.slug_exists":           "标识已存在",
		"error.slug_used":             "标识已被占用",
		"error.category_not_empty":    "分类下仍有商品",
		"error.category_not_found":    "分类不存在",

		"error.order_create_failed":    "创建订单失败",
		"error.order_fetch_failed":     "获取订单失败",
		"error.order_update_failed":    "更新订单失败",
		"error.order_item_invalid":     "订单商品无效",
		"error.cart_fetch_failed":      "获取购物车失败",
		"error.cart_update_failed":     "更新购物车失败",
		"error.product_create_failed":  "创建商品失败",
		"error.product_update_failed":  "更新商品失败",
		"error.product_delete_failed":  "删除商品失败",
		"error.product_fetch_failed":   "获取商品失败",
		"error.category_create_failed": "创建分类失败",
		"error.category_update_failed": "更新分类失败",
		"error.category_delete_failed": "删除分类失败",
		"error.category_fetch_failed":  "获取分类失败",
		"error.settings_fetch_failed":  "获取设置失败",
		"error.settings_save_failed":   "保存设置失败",
		"error.config_fetch_failed":    "获取站点配置失败",
		"error.dashboard_fetch_failed": "获取概览数据失败",
	},
	constants.LocaleEnUS: {
		"error.internal":            "Internal server error",
		"error.invalid_request":     "Invalid request parameters",
		"error.not_found":           "Resource not found",
		"error.unauthorized":        "Please sign in first",
		"error.forbidden":           "Permission denied",
		"error.auth_header_missing": "Missing authorization header",
		"error.auth_header_invalid": "Malformed authorization header",
		"error.token_invalid":       "Session invalid, please sign in again",
		"error.token_revoked":       "Session expired, please sign in again",
		"error.jwt_secret_missing":  "Server auth configuration missing",
		"error.rate_limited":        "Too many requests, please try again later",
		"error.rate_limit_unavailable": "Rate limiter unavailable, please try again later",
		"error.login_too_many":         "Too many login attempts, retry in %d seconds",
		"error.bad_request":            "Invalid request parameters",
		"error.save_failed":            "Save failed",

		"error.invalid_credentials": "Invalid account or password",
		"error.invalid_email":       "Invalid email format",
		"error.email_invalid":       "Invalid email format",
		"error.email_exists":        "Email already registered",
		"error.invalid_password":    "Incorrect password",
		"error.user_disabled":       "Account disabled",
		"error.profile_empty":       "Nothing to update",
		"error.login_invalid":       "Invalid account or password",
		"error.login_failed":        "Login failed, please try again later",
		"error.register_failed":     "Registration failed, please try again later",
		"error.password_weak":       "Password is too weak",
		"error.password_old_invalid":   "Old password is incorrect",
		"error.old_password_invalid":   "Old password is incorrect",
		"error.password_change_failed": "Failed to change password",
		"error.profile_update_failed":  "Failed to update profile",
		"error.sponsor_bind_failed":    "Failed to bind sponsor",
		"error.user_not_found":         "User not found",
		"error.user_fetch_failed":      "Failed to fetch user",
		"error.user_update_failed":     "Failed to update user",
		"error.user_id_invalid":        "Missing user identity",
		"error.user_id_type_invalid":   "Invalid user identity",

		"error.admin_login_invalid":         "Invalid account or password",
		"error.admin_id_invalid":            "Missing admin identity",
		"error.admin_id_type_invalid":       "Invalid admin identity",
		"error.admin_username_invalid":      "Invalid admin username",
		"error.admin_username_exists":       "Admin username already exists",
		"error.admin_create_failed":         "Failed to create admin",
		"error.admin_update_failed":         "Failed to update admin",
		"error.admin_delete_failed":         "Failed to delete admin",
		"error.admin_delete_self_forbidden": "Cannot delete the signed-in admin",
		"error.admin_delete_last_forbidden": "Cannot delete the last admin",
		"error.admin_delete_protected":      "This admin is protected and cannot be deleted",
		"error.admin_super_required":        "At least one super admin must remain",
		"error.role_name_invalid":           "Invalid role name",
		"error.role_protected":              "Builtin roles cannot be deleted",
		"error.grant_target_invalid":        "Invalid grant object or action",

		"error.password_min_length":      "Password must be at least %d characters",
		"error.password_require_upper":   "Password must contain an uppercase letter",
		"error.password_require_lower":   "Password must contain a lowercase letter",
		"error.password_require_number":  "Password must contain a digit",
		"error.password_require_special": "Password must contain a special character",

		"error.sponsor_code_invalid":    "Invalid sponsor code",
		"error.relationship_exists":     "Sponsor relationship already exists",
		"error.self_relationship":       "Cannot sponsor yourself",
		"error.circular_relationship":   "Circular sponsor relationship detected",
		"error.upline_chain_invalid":    "Corrupted sponsor chain",
		"error.network_disabled":        "Network program is disabled",
		"error.network_config_invalid":  "Invalid network configuration",
		"error.relationship_forbidden":  "Sponsor relationship cannot be changed",
		"error.network_fetch_failed":    "Failed to fetch network",
		"error.commission_not_found":    "Commission record not found",
		"error.commission_status":       "Commission status does not allow this operation",
		"error.commission_tier_missing": "Commission tier configuration missing",
		"error.commission_fetch_failed":  "Failed to fetch commissions",
		"error.commission_update_failed": "Failed to update commission status",

		"error.order_not_found":       "Order not found",
		"error.order_status_invalid":  "Order status does not allow this operation",
		"error.order_not_cancellable": "Order cannot be canceled in its current status",
		"error.cart_empty":            "Cart is empty",
		"error.cart_quantity_invalid": "Invalid cart quantity",
		"error.product_not_found":     "Product not found",
		"error.product_inactive":      "Product is not available",
		"error.stock_insufficient":    "Insufficient stock",
		"error.slug_exists":           "Slug already exists",
		"error.slug_used":             "Slug already taken",
		"error.category_not_empty":    "Category still has products",
		"error.category_not_found":    "Category not found",

		"error.order_create_failed":    "Failed to create order",
		"error.order_fetch_failed":     "Failed to fetch order",
		"error.order_update_failed":    "Failed to update order",
		"error.order_item_invalid":     "Invalid order item",
		"error.cart_fetch_failed":      "Failed to fetch cart",
		"error.cart_update_failed":     "Failed to update cart",
		"error.product_create_failed":  "Failed to create product",
		"error.product_update_failed":  "Failed to update product",
		"error.product_delete_failed":  "Failed to delete product",
		"error.product_fetch_failed":   "Failed to fetch product",
		"error.category_create_failed": "Failed to create category",
		"error.category_update_failed": "Failed to update category",
		"error.category_delete_failed": "Failed to delete category",
		"error.category_fetch_failed":  "Failed to fetch category",
		"error.settings_fetch_failed":  "Failed to fetch settings",
		"error.settings_save_failed":   "Failed to save settings",
		"error.config_fetch_failed":    "Failed to fetch site config",
		"error.dashboard_fetch_failed": "Failed to fetch dashboard overview",
	},
}
