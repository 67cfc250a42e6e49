package repository

import (
	"errors"

	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
)

// NetworkRepository 推荐关系闭包表数据访问接口
type NetworkRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) NetworkRepository

	GetDirectUpline(userID uint) (*models.UserRelationship, error)
	ListAncestors(userID uint, maxLevels int) ([]models.UserRelationship, error)
	ListDirectDownlines(uplineID uint) ([]models.UserRelationship, error)
	ListDownlineIDs(uplineID uint) ([]uint, error)
	ExistsRelationship(userID, uplineID uint) (bool, error)
	CreateRelationships(rows []models.UserRelationship) error
	CountDownlines(uplineID uint) (int64, error)
	CountDownlinesByLevel(uplineID uint) (map[int]int64, error)
}

// GormNetworkRepository GORM 实现
type GormNetworkRepository struct {
	db *gorm.DB
}

// NewNetworkRepository 创建推荐关系仓库
func NewNetworkRepository(db *gorm.DB) *GormNetworkRepository {
	return &GormNetworkRepository{db: db}
}

// WithTx 绑定事务
func (r *GormNetworkRepository) WithTx(tx *gorm.DB) NetworkRepository {
	if tx == nil {
		return r
	}
	return &GormNetworkRepository{db: tx}
}

// Transaction 执行事务
func (r *GormNetworkRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetDirectUpline 获取用户的直接推荐关系（层级 1）
func (r *GormNetworkRepository) GetDirectUpline(userID uint) (*models.UserRelationship, error) {
	if userID == 0 {
		return nil, nil
	}
	var rel models.UserRelationship
	if err := r.db.Where("user_id = ?", userID).
		Order("relationship_level asc").
		First(&rel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

// ListAncestors 获取用户的祖先关系行，按层级升序，至多 maxLevels 行
func (r *GormNetworkRepository) ListAncestors(userID uint, maxLevels int) ([]models.UserRelationship, error) {
	if userID == 0 || maxLevels <= 0 {
		return []models.UserRelationship{}, nil
	}
	var rows []models.UserRelationship
	if err := r.db.Where("user_id = ? AND relationship_level <= ?", userID, maxLevels).
		Order("relationship_level asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDirectDownlines 获取直属下级关系行（层级 1）
func (r *GormNetworkRepository) ListDirectDownlines(uplineID uint) ([]models.UserRelationship, error) {
	if uplineID == 0 {
		return []models.UserRelationship{}, nil
	}
	var rows []models.UserRelationship
	if err := r.db.Preload("User").
		Where("upline_id = ? AND relationship_level = 1", uplineID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDownlineIDs 获取全部下级用户ID（任意层级）
func (r *GormNetworkRepository) ListDownlineIDs(uplineID uint) ([]uint, error) {
	if uplineID == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.UserRelationship{}).
		Where("upline_id = ?", uplineID).
		Order("id asc").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistsRelationship 查询指定 (用户, 祖先) 关系是否已存在
func (r *GormNetworkRepository) ExistsRelationship(userID, uplineID uint) (bool, error) {
	if userID == 0 || uplineID == 0 {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.UserRelationship{}).
		Where("user_id = ? AND upline_id = ?", userID, uplineID).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// CreateRelationships 批量写入关系行
func (r *GormNetworkRepository) CreateRelationships(rows []models.UserRelationship) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Create(&rows).Error
}

// CountDownlines 统计全部下级人数（任意层级）
func (r *GormNetworkRepository) CountDownlines(uplineID uint) (int64, error) {
	if uplineID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.UserRelationship{}).
		Where("upline_id = ?", uplineID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountDownlinesByLevel 按层级统计下级人数
func (r *GormNetworkRepository) CountDownlinesByLevel(uplineID uint) (map[int]int64, error) {
	result := make(map[int]int64)
	if uplineID == 0 {
		return result, nil
	}
	var rows []struct {
		RelationshipLevel int   `gorm:"column:relationship_level"`
		Total             int64 `gorm:"column:total"`
	}
	if err := r.db.Model(&models.UserRelationship{}).
		Select("relationship_level, COUNT(*) AS total").
		Where("upline_id = ?", uplineID).
		Group("relationship_level").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.RelationshipLevel] = row.Total
	}
	return result, nil
}
