package models

import (
	"time"
)

// UserPoints 用户积分余额
// 超出佣金层级的祖先按积分比例累加，每用户一行，存在则累加。
type UserPoints struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                 // 主键
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`                  // 用户ID
	Points    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"points"`  // 积分余额
	CreatedAt time.Time `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                              // 更新时间
}

// TableName 指定表名
func (UserPoints) TableName() string {
	return "user_points"
}
