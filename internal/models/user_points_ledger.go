package models

import (
	"time"
)

// UserPointsLedger 积分发放流水
// 结算队列至少投递一次，(order_id, user_id) 唯一索引保证同一订单
// 对同一用户只发一次积分；订单取消时按流水冲正，reversed_at 标记已冲正。
type UserPointsLedger struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                          // 主键
	OrderID           uint       `gorm:"uniqueIndex:uk_points_ledger_order_user;not null" json:"order_id"` // 订单ID
	UserID            uint       `gorm:"uniqueIndex:uk_points_ledger_order_user;index;not null" json:"user_id"` // 用户ID
	Points            Money      `gorm:"type:decimal(20,2);not null;default:0" json:"points"`           // 本次发放积分
	RelationshipLevel int        `gorm:"not null;default:0" json:"relationship_level"`                  // 推荐链层级
	ReversedAt        *time.Time `json:"reversed_at"`                                                   // 冲正时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt         time.Time  `json:"updated_at"`                                                    // 更新时间
}

// TableName 指定表名
func (UserPointsLedger) TableName() string {
	return "user_points_ledgers"
}
