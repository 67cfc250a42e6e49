package models

import (
	"time"
)

// VolumeBonusTier 销量加成档位表
// 按卖家近 30 天已完成订单总额匹配最高可达档位，BonusRate 加到角色基础比例上。
type VolumeBonusTier struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                          // 主键
	MinMonthlySales Money     `gorm:"type:decimal(20,2);not null;default:0;uniqueIndex" json:"min_monthly_sales"` // 档位销量下限
	BonusRate       Money     `gorm:"type:decimal(10,4);not null;default:0" json:"bonus_rate"`       // 加成比例
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt       time.Time `json:"updated_at"`                                                    // 更新时间
}

// TableName 指定表名
func (VolumeBonusTier) TableName() string {
	return "volume_bonus_tiers"
}
