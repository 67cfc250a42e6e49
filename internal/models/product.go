package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
// CommissionMode 决定该商品走哪套佣金策略：
// level = 按订单总额 × 层级比例表；tier = 按商品定价档与卖家角色比例（含销量加成）。
type Product struct {
	ID                      uint           `gorm:"primarykey" json:"id"`                                             // 主键
	CategoryID              uint           `gorm:"not null;index" json:"category_id"`                                // 分类ID
	Slug                    string         `gorm:"uniqueIndex;not null" json:"slug"`                                 // 唯一标识
	TitleJSON               JSON           `gorm:"type:json;not null" json:"title"`                                  // 多语言标题
	DescriptionJSON         JSON           `gorm:"type:json" json:"description"`                                     // 多语言描述
	RetailPrice             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"retail_price"`        // 零售价
	TraderPrice             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"trader_price"`        // 经销商价
	DistributorPrice        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"distributor_price"`   // 总代价
	CommissionMode          string         `gorm:"type:varchar(20);not null;default:'level';index" json:"commission_mode"` // 佣金模式（level/tier）
	TraderCommissionRate    Money          `gorm:"type:decimal(10,4);not null;default:0" json:"trader_commission_rate"`    // 经销商基础佣金比例（tier 模式）
	DistributorCommissionRate Money        `gorm:"type:decimal(10,4);not null;default:0" json:"distributor_commission_rate"` // 总代基础佣金比例（tier 模式）
	MaxCommissionRate       Money          `gorm:"type:decimal(10,4);not null;default:0" json:"max_commission_rate"` // 佣金比例上限（含销量加成后）
	Images                  StringArray    `gorm:"type:json" json:"images"`                                          // 图片数组
	Tags                    StringArray    `gorm:"type:json" json:"tags"`                                            // 标签数组
	Stock                   int            `gorm:"not null;default:0" json:"stock"`                                  // 库存（-1 表示不限）
	IsActive                bool           `gorm:"default:true;index" json:"is_active"`                              // 是否上架
	SortOrder               int            `gorm:"default:0;index" json:"sort_order"`                                // 排序权重
	CreatedAt               time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt               time.Time      `json:"updated_at"`                                                       // 更新时间
	DeletedAt               gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间

	// 关联
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"` // 分类信息
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// PriceForRole 按买家角色取成交单价
func (p *Product) PriceForRole(role string) Money {
	switch role {
	case "distributor":
		if !p.DistributorPrice.IsZero() {
			return p.DistributorPrice
		}
	case "trader":
		if !p.TraderPrice.IsZero() {
			return p.TraderPrice
		}
	}
	return p.RetailPrice
}
