package models

import (
	"time"
)

// UserRelationship 推荐关系闭包表
// 每个用户到其每个祖先各一行，RelationshipLevel 为两者距离（1 = 直接推荐人）。
// 不变式：同一用户同一层级至多一行；同一祖先在一条链上不重复出现（无环）。
type UserRelationship struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                                          // 主键
	UserID            uint      `gorm:"not null;index;uniqueIndex:idx_user_rel_level;uniqueIndex:idx_user_rel_pair" json:"user_id"` // 用户ID
	UplineID          uint      `gorm:"not null;index;uniqueIndex:idx_user_rel_pair" json:"upline_id"`                 // 祖先用户ID
	RelationshipLevel int       `gorm:"not null;uniqueIndex:idx_user_rel_level" json:"relationship_level"`             // 层级距离
	CreatedAt         time.Time `gorm:"index" json:"created_at"`                                                       // 创建时间

	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`     // 下级用户
	Upline User `gorm:"foreignKey:UplineID" json:"upline,omitempty"` // 祖先用户
}

// TableName 指定表名
func (UserRelationship) TableName() string {
	return "user_relationships"
}
