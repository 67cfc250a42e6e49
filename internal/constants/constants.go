package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusCompleted      = "completed"
	OrderStatusCanceled       = "canceled"
)

// 佣金状态常量
const (
	CommissionStatusPending  = "pending"
	CommissionStatusPaid     = "paid"
	CommissionStatusRejected = "rejected"
)

// 佣金类型常量
const (
	CommissionTypeDirect   = "direct"
	CommissionTypeIndirect = "indirect"
)

// 商品佣金模式常量
const (
	ProductCommissionModeLevel = "level"
	ProductCommissionModeTier  = "tier"
)

// 用户角色常量（分销体系内的身份）
const (
	UserRoleRetail      = "retail"
	UserRoleTrader      = "trader"
	UserRoleDistributor = "distributor"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 分销网络深度常量
const (
	CommissionMaxLevels  = 4  // 佣金结算最大层级
	CycleCheckMaxDepth   = 10 // 环检测向上遍历最大深度
	NetworkTreeMaxDepth  = 5  // 网络树展开最大深度
	VolumeBonusWindowDay = 30 // 销量加成统计窗口（天）
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskCommissionProcess    = "commission:process_order"
	TaskCommissionOrderVoid  = "commission:order_canceled"
	TaskOrderTimeoutCancel   = "order:timeout_cancel"
	TaskVolumeBonusRecompute = "commission:volume_bonus_recompute"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "fx"
)

// 设置键常量
const (
	SettingKeySiteConfig             = "site_config"
	SettingKeyOrderConfig            = "order_config"
	SettingKeyNetworkConfig          = "network_config"
	SettingFieldSiteCurrency         = "currency"
	SettingFieldPaymentExpireMinutes = "payment_expire_minutes"
)

// 币种常量
const (
	SiteCurrencyDefault = "USD"
)

// 站点语言常量
const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleZhCN, LocaleEnUS}
