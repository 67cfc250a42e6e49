package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表
// UplineID 指向唯一推荐人，整棵推荐关系图必须无环（由关系写入入口保证）。
type User struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                    // 主键
	Email              string         `gorm:"uniqueIndex;not null" json:"email"`       // 邮箱
	PasswordHash       string         `gorm:"not null" json:"-"`                       // 密码哈希（不返回给前端）
	DisplayName        string         `gorm:"default:''" json:"display_name"`          // 昵称
	SponsorCode        string         `gorm:"uniqueIndex;not null" json:"sponsor_code"` // 推荐码（下级注册时填写）
	UplineID           *uint          `gorm:"index" json:"upline_id,omitempty"`        // 直接推荐人ID（树根为空）
	Role               string         `gorm:"default:'retail';index" json:"role"`      // 分销角色（retail/trader/distributor）
	VolumeBonusRate    Money          `gorm:"type:decimal(10,4);not null;default:0" json:"volume_bonus_rate"` // 近30天销量加成比例（定时任务刷新）
	Locale             string         `gorm:"default:'zh-CN'" json:"locale"`           // 语言偏好
	Status             string         `gorm:"default:'active'" json:"status"`          // 账号状态
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`             // Token 版本（用于全量失效）
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                          // 该时间点前签发的 Token 失效
	LastLoginAt        *time.Time     `json:"last_login_at"`                           // 最后登录时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                 // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                 // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                          // 软删除时间

	Upline *User `gorm:"foreignKey:UplineID" json:"upline,omitempty"` // 直接推荐人
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
