package service

import (
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 佣金结算服务
//
// 结算以订单为单位在单个事务内完成，(订单, 收款人) 组合唯一，
// 重复触发（队列重投、人工补发）落在已有记录上时静默跳过。
type CommissionService struct {
	commissionRepo repository.CommissionRepository
	networkRepo    repository.NetworkRepository
	orderRepo      repository.OrderRepository
	userRepo       repository.UserRepository
	settingService *SettingService
}

// NewCommissionService 创建佣金结算服务
func NewCommissionService(
	commissionRepo repository.CommissionRepository,
	networkRepo repository.NetworkRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	settingService *SettingService,
) *CommissionService {
	return &CommissionService{
		commissionRepo: commissionRepo,
		networkRepo:    networkRepo,
		orderRepo:      orderRepo,
		userRepo:       userRepo,
		settingService: settingService,
	}
}

// ProcessOrderCommission 结算一笔订单的全部层级佣金
//
// 链上每个祖先按层级取比例：层级 1 为直推，层级 2 起为间推；
// 走商品档位模式的订单项叠加卖家角色比例与销量加成；
// 超出佣金层级的祖先按积分比例折算积分。全程不回写订单状态。
func (s *CommissionService) ProcessOrderCommission(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPaid && order.Status != constants.OrderStatusCompleted {
		logger.Warnw("commission_skip_unpaid_order",
			"order_id", orderID,
			"status", order.Status,
		)
		return nil
	}

	setting, err := s.settingService.GetNetworkSetting()
	if err != nil {
		return err
	}
	if !setting.Enabled {
		return nil
	}

	ancestors, err := s.networkRepo.ListAncestors(order.UserID, constants.CycleCheckMaxDepth)
	if err != nil {
		return err
	}
	if len(ancestors) == 0 {
		return nil
	}
	if err := validateAncestorChain(order.UserID, ancestors); err != nil {
		logger.Errorw("commission_ancestor_chain_invalid",
			"order_id", orderID,
			"user_id", order.UserID,
			"error", err,
		)
		return err
	}

	tiers, err := s.commissionRepo.ListTiers()
	if err != nil {
		return err
	}
	tierByLevel := make(map[int]models.CommissionTier, len(tiers))
	for _, tier := range tiers {
		tierByLevel[tier.TierLevel] = tier
	}

	recipientIDs := make([]uint, 0, len(ancestors))
	for _, ancestor := range ancestors {
		recipientIDs = append(recipientIDs, ancestor.UplineID)
	}
	recipients, err := s.userRepo.ListByIDs(recipientIDs)
	if err != nil {
		return err
	}
	recipientByID := make(map[uint]models.User, len(recipients))
	for _, recipient := range recipients {
		recipientByID[recipient.ID] = recipient
	}

	levelTotal, tierItems := splitOrderItemsByMode(order.Items)
	now := time.Now()

	return s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		commissionRepo := s.commissionRepo.WithTx(tx)

		for _, ancestor := range ancestors {
			recipient, ok := recipientByID[ancestor.UplineID]
			if !ok || recipient.Status == constants.UserStatusDisabled {
				logger.Warnw("commission_skip_recipient",
					"order_id", order.ID,
					"recipient_id", ancestor.UplineID,
					"level", ancestor.RelationshipLevel,
				)
				continue
			}

			level := ancestor.RelationshipLevel
			if level > setting.CommissionLevels {
				if setting.PointsEnabled {
					if err := s.grantPoints(commissionRepo, order, &recipient, level, tierByLevel, now); err != nil {
						return err
					}
				}
				continue
			}

			existing, err := commissionRepo.GetByOrderAndRecipient(order.ID, recipient.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			amount, rate := s.commissionAmountForLevel(level, levelTotal, tierItems, &recipient, tierByLevel, now)
			if !amount.IsPositive() {
				continue
			}

			commissionType := constants.CommissionTypeIndirect
			if level == 1 {
				commissionType = constants.CommissionTypeDirect
			}
			commission := &models.Commission{
				OrderID:           order.ID,
				UserID:            order.UserID,
				RecipientID:       recipient.ID,
				Amount:            models.NewMoneyFromDecimal(amount),
				CommissionRate:    models.NewMoneyFromDecimal(rate),
				RelationshipLevel: level,
				Type:              commissionType,
				Status:            constants.CommissionStatusPending,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := commissionRepo.Create(commission); err != nil {
				if isUniqueViolation(err) {
					logger.Warnw("commission_duplicate_skipped",
						"order_id", order.ID,
						"recipient_id", recipient.ID,
					)
					continue
				}
				return err
			}
		}
		return nil
	})
}

// commissionAmountForLevel 计算某层级祖先的佣金金额与适用比例
func (s *CommissionService) commissionAmountForLevel(
	level int,
	levelTotal decimal.Decimal,
	tierItems []models.OrderItem,
	recipient *models.User,
	tierByLevel map[int]models.CommissionTier,
	now time.Time,
) (decimal.Decimal, decimal.Decimal) {
	amount := decimal.Zero
	rate := decimal.Zero

	if levelTotal.IsPositive() {
		if tier, ok := tierByLevel[level]; ok {
			rate = tier.DirectCommissionRate.Decimal
			if level > 1 {
				rate = tier.IndirectCommissionRate.Decimal
			}
			amount = amount.Add(levelTotal.Mul(rate))
		} else {
			logger.Warnw("commission_tier_missing", "level", level)
		}
	}

	if len(tierItems) > 0 {
		tierAmount, tierRate := s.tierModeAmount(level, tierItems, recipient, tierByLevel, now)
		amount = amount.Add(tierAmount)
		if rate.IsZero() {
			rate = tierRate
		}
	}

	return amount.Round(2), rate
}

// tierModeAmount 商品档位模式的佣金：直推按卖家角色比例加销量加成（封顶），
// 二级按层级表间推比例，更深层级不参与档位结算。
func (s *CommissionService) tierModeAmount(
	level int,
	items []models.OrderItem,
	recipient *models.User,
	tierByLevel map[int]models.CommissionTier,
	now time.Time,
) (decimal.Decimal, decimal.Decimal) {
	switch level {
	case 1:
		bonus, err := s.ComputeVolumeBonusRate(recipient.ID, now)
		if err != nil {
			logger.Warnw("commission_volume_bonus_failed",
				"recipient_id", recipient.ID,
				"error", err,
			)
			bonus = decimal.Zero
		}
		amount := decimal.Zero
		appliedRate := decimal.Zero
		for _, item := range items {
			base := tierBaseRateForRole(recipient.Role, &item)
			if !base.IsPositive() {
				continue
			}
			rate := base.Add(bonus)
			if maxRate := item.MaxCommissionRate.Decimal; maxRate.IsPositive() && rate.GreaterThan(maxRate) {
				rate = maxRate
			}
			amount = amount.Add(item.TotalPrice.Decimal.Mul(rate))
			if appliedRate.IsZero() {
				appliedRate = rate
			}
		}
		return amount, appliedRate
	case 2:
		tier, ok := tierByLevel[level]
		if !ok {
			return decimal.Zero, decimal.Zero
		}
		rate := tier.IndirectCommissionRate.Decimal
		amount := decimal.Zero
		for _, item := range items {
			amount = amount.Add(item.TotalPrice.Decimal.Mul(rate))
		}
		return amount, rate
	default:
		return decimal.Zero, decimal.Zero
	}
}

func tierBaseRateForRole(role string, item *models.OrderItem) decimal.Decimal {
	switch role {
	case constants.UserRoleDistributor:
		return item.DistributorCommissionRate.Decimal
	case constants.UserRoleTrader:
		return item.TraderCommissionRate.Decimal
	default:
		return decimal.Zero
	}
}

// grantPoints 超出佣金层级的祖先按积分比例折算积分
// 队列至少投递一次，按 (order_id, user_id) 流水判重，重复投递不重复累加。
func (s *CommissionService) grantPoints(
	commissionRepo repository.CommissionRepository,
	order *models.Order,
	recipient *models.User,
	level int,
	tierByLevel map[int]models.CommissionTier,
	now time.Time,
) error {
	tier, ok := tierByLevel[level]
	if !ok || !tier.PointsRate.IsPositive() {
		return nil
	}
	points := order.TotalAmount.Decimal.Mul(tier.PointsRate.Decimal).Round(2)
	if !points.IsPositive() {
		return nil
	}

	existing, err := commissionRepo.GetPointsLedger(order.ID, recipient.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	entry := &models.UserPointsLedger{
		OrderID:           order.ID,
		UserID:            recipient.ID,
		Points:            models.NewMoneyFromDecimal(points),
		RelationshipLevel: level,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := commissionRepo.CreatePointsLedger(entry); err != nil {
		if isUniqueViolation(err) {
			logger.Warnw("points_grant_duplicate",
				"order_id", order.ID,
				"recipient_id", recipient.ID,
			)
			return nil
		}
		return err
	}
	return commissionRepo.AddPoints(recipient.ID, points, now)
}

// HandleOrderCanceled 订单取消/退款后作废未发放佣金，并冲正已发放的积分
// 积分按流水逐笔回扣，已冲正的流水跳过，重复取消不会重复扣减。
func (s *CommissionService) HandleOrderCanceled(orderID uint, reason string) error {
	if orderID == 0 {
		return ErrOrderNotFound
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "订单已取消"
	}
	return s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		commissionRepo := s.commissionRepo.WithTx(tx)
		now := time.Now()

		rows, err := commissionRepo.ListByOrderForUpdate(orderID, []string{constants.CommissionStatusPending})
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			ids := make([]uint, 0, len(rows))
			for _, row := range rows {
				ids = append(ids, row.ID)
			}
			if _, err := commissionRepo.BatchUpdate(ids, map[string]interface{}{
				"status":         constants.CommissionStatusRejected,
				"invalid_reason": reason,
				"updated_at":     now,
			}); err != nil {
				return err
			}
		}

		entries, err := commissionRepo.ListPointsLedgerByOrderForUpdate(orderID)
		if err != nil {
			return err
		}
		reversedIDs := make([]uint, 0, len(entries))
		for _, entry := range entries {
			if entry.ReversedAt != nil {
				continue
			}
			if err := commissionRepo.AddPoints(entry.UserID, entry.Points.Decimal.Neg(), now); err != nil {
				return err
			}
			reversedIDs = append(reversedIDs, entry.ID)
		}
		return commissionRepo.MarkPointsLedgerReversed(reversedIDs, now)
	})
}

// MarkCommissionsPaid 管理端批量发放佣金（pending → paid）
func (s *CommissionService) MarkCommissionsPaid(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrInvalidInput
	}
	var affected int64
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		commissionRepo := s.commissionRepo.WithTx(tx)
		rows, err := commissionRepo.ListByIDsForUpdate(ids)
		if err != nil {
			return err
		}
		if len(rows) != len(ids) {
			return ErrCommissionNotFound
		}
		for _, row := range rows {
			if row.Status != constants.CommissionStatusPending {
				return ErrCommissionStatusInvalid
			}
		}
		now := time.Now()
		affected, err = commissionRepo.BatchUpdate(ids, map[string]interface{}{
			"status":     constants.CommissionStatusPaid,
			"paid_at":    now,
			"updated_at": now,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// ListCommissions 佣金列表（管理端与用户端共用）
func (s *CommissionService) ListCommissions(filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	return s.commissionRepo.List(filter)
}

// GetUserCommissionSummary 用户佣金汇总
type CommissionSummary struct {
	Pending models.Money `json:"pending"`
	Paid    models.Money `json:"paid"`
	Points  models.Money `json:"points"`
}

// GetUserCommissionSummary 查询用户的佣金与积分汇总
func (s *CommissionService) GetUserCommissionSummary(userID uint) (*CommissionSummary, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	pending, err := s.commissionRepo.SumByRecipient(userID, []string{constants.CommissionStatusPending})
	if err != nil {
		return nil, err
	}
	paid, err := s.commissionRepo.SumByRecipient(userID, []string{constants.CommissionStatusPaid})
	if err != nil {
		return nil, err
	}
	points := decimal.Zero
	if row, err := s.commissionRepo.GetPointsByUser(userID); err != nil {
		return nil, err
	} else if row != nil {
		points = row.Points.Decimal
	}
	return &CommissionSummary{
		Pending: models.NewMoneyFromDecimal(pending),
		Paid:    models.NewMoneyFromDecimal(paid),
		Points:  models.NewMoneyFromDecimal(points),
	}, nil
}

// ListCommissionTiers 层级比例表
func (s *CommissionService) ListCommissionTiers() ([]models.CommissionTier, error) {
	return s.commissionRepo.ListTiers()
}

// ComputeVolumeBonusRate 计算用户近 30 天销量对应的佣金加成比例
func (s *CommissionService) ComputeVolumeBonusRate(userID uint, now time.Time) (decimal.Decimal, error) {
	since := now.AddDate(0, 0, -constants.VolumeBonusWindowDay)
	statuses := []string{constants.OrderStatusPaid, constants.OrderStatusCompleted}
	sales, err := s.orderRepo.SumPaidSalesByUserSince(userID, statuses, since)
	if err != nil {
		return decimal.Zero, err
	}
	tiers, err := s.commissionRepo.ListVolumeBonusTiers()
	if err != nil {
		return decimal.Zero, err
	}
	rate := decimal.Zero
	for _, tier := range tiers {
		if sales.GreaterThanOrEqual(tier.MinMonthlySales.Decimal) {
			rate = tier.BonusRate.Decimal
		}
	}
	return rate, nil
}

// RecomputeVolumeBonusRates 刷新全部分销用户的销量加成比例快照（定时任务调用）
func (s *CommissionService) RecomputeVolumeBonusRates(now time.Time) error {
	ids, err := s.userRepo.ListIDsByRoles([]string{constants.UserRoleTrader, constants.UserRoleDistributor})
	if err != nil {
		return err
	}
	for _, id := range ids {
		rate, err := s.ComputeVolumeBonusRate(id, now)
		if err != nil {
			logger.Warnw("volume_bonus_recompute_failed", "user_id", id, "error", err)
			continue
		}
		if err := s.userRepo.UpdateVolumeBonusRate(id, models.NewMoneyFromDecimal(rate), now); err != nil {
			logger.Warnw("volume_bonus_update_failed", "user_id", id, "error", err)
		}
	}
	return nil
}

// splitOrderItemsByMode 按佣金模式拆分订单项：层级模式汇总金额，档位模式保留明细
func splitOrderItemsByMode(items []models.OrderItem) (decimal.Decimal, []models.OrderItem) {
	levelTotal := decimal.Zero
	tierItems := make([]models.OrderItem, 0)
	for _, item := range items {
		if item.CommissionMode == constants.ProductCommissionModeTier {
			tierItems = append(tierItems, item)
			continue
		}
		levelTotal = levelTotal.Add(item.TotalPrice.Decimal)
	}
	return levelTotal, tierItems
}

// validateAncestorChain 闭包表一致性校验：层级连续且祖先不重复
func validateAncestorChain(userID uint, ancestors []models.UserRelationship) error {
	visited := map[uint]struct{}{userID: {}}
	for i, ancestor := range ancestors {
		if ancestor.RelationshipLevel != i+1 {
			return ErrUplineChainInvalid
		}
		if _, seen := visited[ancestor.UplineID]; seen {
			return ErrUplineChainInvalid
		}
		visited[ancestor.UplineID] = struct{}{}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
