package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表
// 商品标题与佣金相关字段在下单时做快照，后续改价不影响已成交订单的结算。
type OrderItem struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID        uint           `gorm:"index;not null" json:"order_id"`                           // 订单ID
	ProductID      uint           `gorm:"index;not null" json:"product_id"`                         // 商品ID
	TitleJSON      JSON           `gorm:"type:json;not null" json:"title"`                          // 商品标题快照
	CommissionMode string         `gorm:"type:varchar(20);not null;default:'level'" json:"commission_mode"` // 佣金模式快照
	TraderCommissionRate      Money `gorm:"type:decimal(10,4);not null;default:0" json:"trader_commission_rate"`      // 经销商基础比例快照（tier 模式）
	DistributorCommissionRate Money `gorm:"type:decimal(10,4);not null;default:0" json:"distributor_commission_rate"` // 总代基础比例快照（tier 模式）
	MaxCommissionRate         Money `gorm:"type:decimal(10,4);not null;default:0" json:"max_commission_rate"`         // 比例上限快照（tier 模式）
	UnitPrice      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // 单价
	Quantity       int            `gorm:"not null" json:"quantity"`                                 // 数量
	TotalPrice     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 小计
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
