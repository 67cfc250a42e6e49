package service

import "errors"

// 业务错误定义：HTTP 层通过 errors.Is 映射为统一响应码。
var (
	// 通用
	ErrNotFound     = errors.New("资源不存在")
	ErrInvalidInput = errors.New("参数无效")

	// 认证
	ErrInvalidCredentials = errors.New("账号或密码错误")
	ErrInvalidEmail       = errors.New("邮箱格式无效")
	ErrEmailExists        = errors.New("邮箱已注册")
	ErrInvalidPassword    = errors.New("密码错误")
	ErrWeakPassword       = errors.New("密码强度不足")
	ErrUserDisabled       = errors.New("账号已被禁用")
	ErrProfileEmpty       = errors.New("没有可更新的资料")

	// 推荐关系
	ErrSponsorCodeInvalid    = errors.New("推荐码无效")
	ErrRelationshipExists    = errors.New("推荐关系已存在")
	ErrSelfRelationship      = errors.New("不能将自己设为推荐人")
	ErrCircularRelationship  = errors.New("检测到循环推荐关系")
	ErrUplineChainInvalid    = errors.New("推荐链数据异常")
	ErrNetworkDisabled       = errors.New("分销功能未开启")
	ErrNetworkConfigInvalid  = errors.New("分销配置无效")
	ErrRelationshipForbidden = errors.New("推荐关系不允许变更")

	// 佣金
	ErrCommissionNotFound      = errors.New("佣金记录不存在")
	ErrCommissionStatusInvalid = errors.New("佣金状态不允许该操作")
	ErrCommissionTierMissing   = errors.New("佣金层级配置缺失")

	// 订单 / 购物车 / 商品
	ErrOrderNotFound       = errors.New("订单不存在")
	ErrOrderStatusInvalid  = errors.New("订单状态不允许该操作")
	ErrOrderNotCancellable = errors.New("订单当前状态不可取消")
	ErrCartEmpty           = errors.New("购物车为空")
	ErrCartQuantityInvalid = errors.New("购物车数量无效")
	ErrProductNotFound     = errors.New("商品不存在")
	ErrProductInactive     = errors.New("商品已下架")
	ErrStockInsufficient   = errors.New("商品库存不足")
	ErrSlugExists          = errors.New("标识已存在")
	ErrCategoryNotEmpty    = errors.New("分类下仍有商品")

	// 基础设施
	ErrQueueUnavailable = errors.New("队列服务不可用")
)
