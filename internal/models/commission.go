package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission 佣金台账
// (OrderID, RecipientID) 组合唯一：同一订单对同一收款人只允许一条记录，
// 重复触发结算时静默跳过而不是重复入账。
type Commission struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                                  // 主键
	OrderID           uint           `gorm:"not null;index;index:idx_commission_order_recipient,unique" json:"order_id"`     // 订单ID
	UserID            uint           `gorm:"not null;index" json:"user_id"`                                         // 下单用户ID
	RecipientID       uint           `gorm:"not null;index;index:idx_commission_order_recipient,unique" json:"recipient_id"` // 佣金收款人ID
	Amount            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                   // 佣金金额
	CommissionRate    Money          `gorm:"type:decimal(10,4);not null;default:0" json:"commission_rate"`          // 结算比例
	RelationshipLevel int            `gorm:"not null" json:"relationship_level"`                                    // 关系层级
	Type              string         `gorm:"type:varchar(20);not null;index" json:"type"`                           // 佣金类型（direct/indirect）
	Status            string         `gorm:"type:varchar(20);not null;index" json:"status"`                         // 佣金状态（pending/paid/rejected）
	InvalidReason     string         `gorm:"type:varchar(255)" json:"invalid_reason,omitempty"`                     // 失效原因
	PaidAt            *time.Time     `gorm:"index" json:"paid_at,omitempty"`                                        // 发放时间
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                               // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                               // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                        // 软删除时间

	Order     Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`         // 关联订单
	User      User  `gorm:"foreignKey:UserID" json:"user,omitempty"`           // 下单用户
	Recipient User  `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"` // 收款人
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
