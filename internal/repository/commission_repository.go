package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金台账数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	GetByOrderAndRecipient(orderID, recipientID uint) (*models.Commission, error)
	Create(commission *models.Commission) error
	List(filter CommissionListFilter) ([]models.Commission, int64, error)
	ListByOrder(orderID uint, statuses []string) ([]models.Commission, error)
	ListByOrderForUpdate(orderID uint, statuses []string) ([]models.Commission, error)
	ListByIDsForUpdate(ids []uint) ([]models.Commission, error)
	BatchUpdate(ids []uint, updates map[string]interface{}) (int64, error)
	SumByRecipient(recipientID uint, statuses []string) (decimal.Decimal, error)
	SumByRecipients(recipientIDs []uint, statuses []string) (map[uint]decimal.Decimal, error)
	SumByStatus(status string) (decimal.Decimal, error)
	CountByStatus(status string) (int64, error)

	ListTiers() ([]models.CommissionTier, error)
	GetTierByLevel(level int) (*models.CommissionTier, error)

	ListVolumeBonusTiers() ([]models.VolumeBonusTier, error)

	AddPoints(userID uint, delta decimal.Decimal, now time.Time) error
	GetPointsByUser(userID uint) (*models.UserPoints, error)

	GetPointsLedger(orderID, userID uint) (*models.UserPointsLedger, error)
	CreatePointsLedger(entry *models.UserPointsLedger) error
	ListPointsLedgerByOrderForUpdate(orderID uint) ([]models.UserPointsLedger, error)
	MarkPointsLedgerReversed(ids []uint, reversedAt time.Time) error
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByOrderAndRecipient 按订单和收款人查询佣金
func (r *GormCommissionRepository) GetByOrderAndRecipient(orderID, recipientID uint) (*models.Commission, error) {
	if orderID == 0 || recipientID == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.Where("order_id = ? AND recipient_id = ?", orderID, recipientID).
		First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// Create 创建佣金记录
func (r *GormCommissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// List 查询佣金记录
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.Model(&models.Commission{}).
		Preload("Recipient").
		Preload("User").
		Preload("Order")
	if filter.OrderID != 0 {
		query = query.Where("commissions.order_id = ?", filter.OrderID)
	}
	if filter.UserID != 0 {
		query = query.Where("commissions.user_id = ?", filter.UserID)
	}
	if filter.RecipientID != 0 {
		query = query.Where("commissions.recipient_id = ?", filter.RecipientID)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Joins("LEFT JOIN orders ON orders.id = commissions.order_id").
			Where("orders.order_no LIKE ?", "%"+orderNo+"%")
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("commissions.status = ?", status)
	}
	if ctype := strings.TrimSpace(filter.Type); ctype != "" {
		query = query.Where("commissions.type = ?", ctype)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.
			Joins("LEFT JOIN users u ON u.id = commissions.recipient_id").
			Where("(u.email LIKE ? OR u.display_name LIKE ? OR u.sponsor_code LIKE ?)", like, like, like)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("commissions.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("commissions.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Commission
	if err := query.Order("commissions.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListByOrder 按订单查询佣金记录
func (r *GormCommissionRepository) ListByOrder(orderID uint, statuses []string) ([]models.Commission, error) {
	if orderID == 0 {
		return []models.Commission{}, nil
	}
	query := r.db.Model(&models.Commission{}).Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.Commission
	if err := query.Order("relationship_level asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByOrderForUpdate 按订单查询佣金并加锁
func (r *GormCommissionRepository) ListByOrderForUpdate(orderID uint, statuses []string) ([]models.Commission, error) {
	if orderID == 0 {
		return []models.Commission{}, nil
	}
	query := r.db.Model(&models.Commission{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.Commission
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByIDsForUpdate 按ID集合查询佣金并加锁
func (r *GormCommissionRepository) ListByIDsForUpdate(ids []uint) ([]models.Commission, error) {
	if len(ids) == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// BatchUpdate 批量更新佣金记录
func (r *GormCommissionRepository) BatchUpdate(ids []uint, updates map[string]interface{}) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Commission{}).Where("id IN ?", ids).Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumByRecipient 汇总指定状态佣金金额
func (r *GormCommissionRepository) SumByRecipient(recipientID uint, statuses []string) (decimal.Decimal, error) {
	if recipientID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Commission{}).
		Where("recipient_id = ? AND status IN ?", recipientID, statuses).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// SumByRecipients 批量汇总佣金金额（按收款人分组）
func (r *GormCommissionRepository) SumByRecipients(recipientIDs []uint, statuses []string) (map[uint]decimal.Decimal, error) {
	result := make(map[uint]decimal.Decimal, len(recipientIDs))
	if len(recipientIDs) == 0 || len(statuses) == 0 {
		return result, nil
	}
	var rows []struct {
		RecipientID uint            `gorm:"column:recipient_id"`
		Total       decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Commission{}).
		Select("recipient_id, COALESCE(SUM(amount), 0) AS total").
		Where("recipient_id IN ? AND status IN ?", recipientIDs, statuses).
		Group("recipient_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.RecipientID] = row.Total.Round(2)
	}
	return result, nil
}

// SumByStatus 汇总指定状态的佣金总额，status 为空时汇总全部
func (r *GormCommissionRepository) SumByStatus(status string) (decimal.Decimal, error) {
	query := r.db.Model(&models.Commission{}).
		Select("COALESCE(SUM(amount), 0) AS total")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// CountByStatus 统计指定状态的佣金笔数，status 为空时统计全部
func (r *GormCommissionRepository) CountByStatus(status string) (int64, error) {
	query := r.db.Model(&models.Commission{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ListTiers 获取层级佣金比例表（层级升序）
func (r *GormCommissionRepository) ListTiers() ([]models.CommissionTier, error) {
	var tiers []models.CommissionTier
	if err := r.db.Order("tier_level asc").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// GetTierByLevel 按层级获取佣金比例
func (r *GormCommissionRepository) GetTierByLevel(level int) (*models.CommissionTier, error) {
	if level <= 0 {
		return nil, nil
	}
	var tier models.CommissionTier
	if err := r.db.Where("tier_level = ?", level).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

// ListVolumeBonusTiers 获取销量加成档位（销量下限升序）
func (r *GormCommissionRepository) ListVolumeBonusTiers() ([]models.VolumeBonusTier, error) {
	var tiers []models.VolumeBonusTier
	if err := r.db.Order("min_monthly_sales asc").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// AddPoints 累加用户积分（不存在则创建，存在则加锁后累加）
func (r *GormCommissionRepository) AddPoints(userID uint, delta decimal.Decimal, now time.Time) error {
	if userID == 0 || delta.IsZero() {
		return nil
	}
	var row models.UserPoints
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.UserPoints{
			UserID: userID,
			Points: models.NewMoneyFromDecimal(delta),
		}
		return r.db.Create(&row).Error
	}
	if err != nil {
		return err
	}
	return r.db.Model(&row).Updates(map[string]interface{}{
		"points":     models.NewMoneyFromDecimal(row.Points.Decimal.Add(delta)),
		"updated_at": now,
	}).Error
}

// GetPointsLedger 按订单和用户查询积分流水
func (r *GormCommissionRepository) GetPointsLedger(orderID, userID uint) (*models.UserPointsLedger, error) {
	if orderID == 0 || userID == 0 {
		return nil, nil
	}
	var entry models.UserPointsLedger
	if err := r.db.Where("order_id = ? AND user_id = ?", orderID, userID).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// CreatePointsLedger 创建积分流水
func (r *GormCommissionRepository) CreatePointsLedger(entry *models.UserPointsLedger) error {
	return r.db.Create(entry).Error
}

// ListPointsLedgerByOrderForUpdate 按订单查询积分流水并加锁
func (r *GormCommissionRepository) ListPointsLedgerByOrderForUpdate(orderID uint) ([]models.UserPointsLedger, error) {
	if orderID == 0 {
		return []models.UserPointsLedger{}, nil
	}
	var entries []models.UserPointsLedger
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkPointsLedgerReversed 标记积分流水已冲正
func (r *GormCommissionRepository) MarkPointsLedgerReversed(ids []uint, reversedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.UserPointsLedger{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"reversed_at": reversedAt,
			"updated_at":  reversedAt,
		}).Error
}

// GetPointsByUser 获取用户积分余额
func (r *GormCommissionRepository) GetPointsByUser(userID uint) (*models.UserPoints, error) {
	if userID == 0 {
		return nil, nil
	}
	var row models.UserPoints
	if err := r.db.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
