package models

import (
	"time"
)

// CommissionTier 层级佣金比例表
// TierLevel 为推荐关系层级；层级 1 使用直推比例，层级 2+ 使用间推比例，
// 超出佣金层级的祖先按 PointsRate 折算积分。
type CommissionTier struct {
	ID                     uint      `gorm:"primarykey" json:"id"`                                        // 主键
	TierLevel              int       `gorm:"uniqueIndex;not null" json:"tier_level"`                      // 关系层级
	DirectCommissionRate   Money     `gorm:"type:decimal(10,4);not null;default:0" json:"direct_commission_rate"`   // 直推佣金比例
	IndirectCommissionRate Money     `gorm:"type:decimal(10,4);not null;default:0" json:"indirect_commission_rate"` // 间推佣金比例
	PointsRate             Money     `gorm:"type:decimal(10,4);not null;default:0" json:"points_rate"`              // 积分折算比例
	CreatedAt              time.Time `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt              time.Time `json:"updated_at"`                                                  // 更新时间
}

// TableName 指定表名
func (CommissionTier) TableName() string {
	return "commission_tiers"
}
