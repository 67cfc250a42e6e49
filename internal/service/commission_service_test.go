package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCommissionServiceTest(t *testing.T) (*CommissionService, *NetworkService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:commission_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserRelationship{},
		&models.Order{},
		&models.OrderItem{},
		&models.CommissionTier{},
		&models.Commission{},
		&models.UserPoints{},
		&models.UserPointsLedger{},
		&models.VolumeBonusTier{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	settingSvc := NewSettingService(newMockSettingRepo())
	if _, err := settingSvc.UpdateNetworkSetting(NetworkDefaultSetting()); err != nil {
		t.Fatalf("init network setting failed: %v", err)
	}

	commissionRepo := repository.NewCommissionRepository(db)
	networkRepo := repository.NewNetworkRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)

	commissionSvc := NewCommissionService(commissionRepo, networkRepo, orderRepo, userRepo, settingSvc)
	networkSvc := NewNetworkService(networkRepo, userRepo, orderRepo, commissionRepo, settingSvc)
	return commissionSvc, networkSvc, db
}

func createCommissionTestUser(t *testing.T, db *gorm.DB, email, sponsorCode string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  "tester",
		SponsorCode:  sponsorCode,
		Role:         constants.UserRoleRetail,
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return row
}

func createCommissionTestTiers(t *testing.T, db *gorm.DB) {
	t.Helper()

	tiers := []models.CommissionTier{
		{TierLevel: 1, DirectCommissionRate: models.NewMoneyFromDecimal(decimal.NewFromFloat(0.30))},
		{TierLevel: 2, IndirectCommissionRate: models.NewMoneyFromDecimal(decimal.NewFromFloat(0.10))},
		{TierLevel: 3, IndirectCommissionRate: models.NewMoneyFromDecimal(decimal.NewFromFloat(0.05))},
		{TierLevel: 4, IndirectCommissionRate: models.NewMoneyFromDecimal(decimal.NewFromFloat(0.05))},
		{TierLevel: 5, PointsRate: models.NewMoneyFromDecimal(decimal.NewFromFloat(0.01))},
	}
	if err := db.Create(&tiers).Error; err != nil {
		t.Fatalf("create commission tiers failed: %v", err)
	}
}

func createCommissionTestOrder(t *testing.T, db *gorm.DB, userID uint, total float64, status string) models.Order {
	t.Helper()

	now := time.Now()
	order := models.Order{
		OrderNo:     fmt.Sprintf("FX%d", now.UnixNano()),
		UserID:      userID,
		Status:      status,
		Currency:    constants.SiteCurrencyDefault,
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(total)),
		PaidAt:      &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	item := models.OrderItem{
		OrderID:        order.ID,
		ProductID:      1,
		TitleJSON:      models.JSON{"zh-CN": "测试商品"},
		CommissionMode: constants.ProductCommissionModeLevel,
		UnitPrice:      models.NewMoneyFromDecimal(decimal.NewFromFloat(total)),
		Quantity:       1,
		TotalPrice:     models.NewMoneyFromDecimal(decimal.NewFromFloat(total)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create order item failed: %v", err)
	}
	return order
}

// 三级推荐链：buyer -> sales1 -> leader1 -> manager1，3600 订单
// 应产生 1080 / 360 / 180 三条佣金。
func TestProcessOrderCommissionThreeLevelChain(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	manager1 := createCommissionTestUser(t, db, "manager1@example.com", "MANAGER1")
	leader1 := createCommissionTestUser(t, db, "leader1@example.com", "LEADER01")
	sales1 := createCommissionTestUser(t, db, "sales1@example.com", "SALES001")
	buyer := createCommissionTestUser(t, db, "buyer@example.com", "BUYER001")

	mustBindUpline(t, networkSvc, leader1.ID, manager1.ID)
	mustBindUpline(t, networkSvc, sales1.ID, leader1.ID)
	mustBindUpline(t, networkSvc, buyer.ID, sales1.ID)

	order := createCommissionTestOrder(t, db, buyer.ID, 3600, constants.OrderStatusPaid)

	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("process order commission failed: %v", err)
	}

	var rows []models.Commission
	if err := db.Where("order_id = ?", order.ID).Order("relationship_level asc").Find(&rows).Error; err != nil {
		t.Fatalf("load commissions failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 commissions, got %d", len(rows))
	}

	expected := []struct {
		recipientID uint
		amount      string
		ctype       string
		level       int
	}{
		{sales1.ID, "1080.00", constants.CommissionTypeDirect, 1},
		{leader1.ID, "360.00", constants.CommissionTypeIndirect, 2},
		{manager1.ID, "180.00", constants.CommissionTypeIndirect, 3},
	}
	for i, want := range expected {
		row := rows[i]
		if row.RecipientID != want.recipientID {
			t.Fatalf("level %d recipient mismatch, want %d got %d", want.level, want.recipientID, row.RecipientID)
		}
		if row.Amount.String() != want.amount {
			t.Fatalf("level %d amount mismatch, want %s got %s", want.level, want.amount, row.Amount.String())
		}
		if row.Type != want.ctype {
			t.Fatalf("level %d type mismatch, want %s got %s", want.level, want.ctype, row.Type)
		}
		if row.RelationshipLevel != want.level {
			t.Fatalf("level mismatch, want %d got %d", want.level, row.RelationshipLevel)
		}
		if row.Status != constants.CommissionStatusPending {
			t.Fatalf("level %d status mismatch, want pending got %s", want.level, row.Status)
		}
		if row.UserID != buyer.ID {
			t.Fatalf("level %d user mismatch, want %d got %d", want.level, buyer.ID, row.UserID)
		}
	}
}

func TestProcessOrderCommissionIdempotent(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	upline := createCommissionTestUser(t, db, "upline@example.com", "UPLINE01")
	buyer := createCommissionTestUser(t, db, "buyer-idem@example.com", "BUYER002")
	mustBindUpline(t, networkSvc, buyer.ID, upline.ID)

	order := createCommissionTestOrder(t, db, buyer.ID, 100, constants.OrderStatusPaid)

	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("first settlement failed: %v", err)
	}
	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("repeated settlement failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single commission after repeat, got %d", count)
	}
}

func TestProcessOrderCommissionNoUpline(t *testing.T) {
	commissionSvc, _, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	buyer := createCommissionTestUser(t, db, "orphan@example.com", "ORPHAN01")
	order := createCommissionTestOrder(t, db, buyer.ID, 200, constants.OrderStatusPaid)

	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("process order commission failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no commission without upline, got %d", count)
	}
}

func TestProcessOrderCommissionSkipUnpaidOrder(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	upline := createCommissionTestUser(t, db, "upline-unpaid@example.com", "UPLINE02")
	buyer := createCommissionTestUser(t, db, "buyer-unpaid@example.com", "BUYER003")
	mustBindUpline(t, networkSvc, buyer.ID, upline.ID)

	order := createCommissionTestOrder(t, db, buyer.ID, 100, constants.OrderStatusPendingPayment)

	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("process unpaid order should not error: %v", err)
	}

	var count int64
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no commission for unpaid order, got %d", count)
	}
}

func TestProcessOrderCommissionSkipDisabledRecipient(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	grand := createCommissionTestUser(t, db, "grand-disabled@example.com", "GRAND001")
	upline := createCommissionTestUser(t, db, "upline-disabled@example.com", "UPLINE03")
	buyer := createCommissionTestUser(t, db, "buyer-disabled@example.com", "BUYER004")
	mustBindUpline(t, networkSvc, upline.ID, grand.ID)
	mustBindUpline(t, networkSvc, buyer.ID, upline.ID)

	if err := db.Model(&models.User{}).Where("id = ?", upline.ID).
		Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable upline failed: %v", err)
	}

	order := createCommissionTestOrder(t, db, buyer.ID, 100, constants.OrderStatusPaid)
	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("process order commission failed: %v", err)
	}

	var rows []models.Commission
	if err := db.Where("order_id = ?", order.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load commissions failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected single commission (grand only), got %d", len(rows))
	}
	if rows[0].RecipientID != grand.ID {
		t.Fatalf("expected grand recipient %d, got %d", grand.ID, rows[0].RecipientID)
	}
	if rows[0].RelationshipLevel != 2 {
		t.Fatalf("expected level 2, got %d", rows[0].RelationshipLevel)
	}
}

func TestProcessOrderCommissionGrantsPointsBeyondDepth(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	chain := make([]models.User, 0, 6)
	for i := 0; i < 6; i++ {
		chain = append(chain, createCommissionTestUser(t, db,
			fmt.Sprintf("deep-%d@example.com", i),
			fmt.Sprintf("DEEP%04d", i)))
	}
	// chain[0] 是最顶层，chain[5] 是买家
	for i := 1; i < len(chain); i++ {
		mustBindUpline(t, networkSvc, chain[i].ID, chain[i-1].ID)
	}

	buyer := chain[5]
	order := createCommissionTestOrder(t, db, buyer.ID, 1000, constants.OrderStatusPaid)
	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("process order commission failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 commissions within depth, got %d", count)
	}

	// 第 5 层祖先（chain[0]）拿积分：1000 * 0.01 = 10
	var points models.UserPoints
	if err := db.Where("user_id = ?", chain[0].ID).First(&points).Error; err != nil {
		t.Fatalf("load points failed: %v", err)
	}
	if points.Points.String() != "10.00" {
		t.Fatalf("expected 10.00 points, got %s", points.Points.String())
	}
}

// 队列重复投递同一订单时，积分与佣金一样只发一次
func TestProcessOrderCommissionPointsRedeliverySafe(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	chain := make([]models.User, 0, 6)
	for i := 0; i < 6; i++ {
		chain = append(chain, createCommissionTestUser(t, db,
			fmt.Sprintf("redeliver-%d@example.com", i),
			fmt.Sprintf("RDLV%04d", i)))
	}
	for i := 1; i < len(chain); i++ {
		mustBindUpline(t, networkSvc, chain[i].ID, chain[i-1].ID)
	}

	buyer := chain[5]
	order := createCommissionTestOrder(t, db, buyer.ID, 1000, constants.OrderStatusPaid)
	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("first settlement failed: %v", err)
	}
	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("redelivered settlement failed: %v", err)
	}

	// 第 5 层祖先积分仍为 1000 * 0.01 = 10，不因重复投递翻倍
	var points models.UserPoints
	if err := db.Where("user_id = ?", chain[0].ID).First(&points).Error; err != nil {
		t.Fatalf("load points failed: %v", err)
	}
	if points.Points.String() != "10.00" {
		t.Fatalf("expected 10.00 points after redelivery, got %s", points.Points.String())
	}

	var ledgerCount int64
	if err := db.Model(&models.UserPointsLedger{}).
		Where("order_id = ? AND user_id = ?", order.ID, chain[0].ID).
		Count(&ledgerCount).Error; err != nil {
		t.Fatalf("count points ledger failed: %v", err)
	}
	if ledgerCount != 1 {
		t.Fatalf("expected single ledger entry, got %d", ledgerCount)
	}
}

func TestProcessOrderCommissionTierModeItems(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	leader := createCommissionTestUser(t, db, "tier-leader@example.com", "TLEAD001")
	seller := createCommissionTestUser(t, db, "tier-seller@example.com", "TSELL001")
	buyer := createCommissionTestUser(t, db, "tier-buyer@example.com", "TBUY0001")
	if err := db.Model(&models.User{}).Where("id = ?", seller.ID).
		Update("role", constants.UserRoleTrader).Error; err != nil {
		t.Fatalf("promote seller failed: %v", err)
	}
	mustBindUpline(t, networkSvc, seller.ID, leader.ID)
	mustBindUpline(t, networkSvc, buyer.ID, seller.ID)

	now := time.Now()
	order := models.Order{
		OrderNo:     fmt.Sprintf("FXT%d", now.UnixNano()),
		UserID:      buyer.ID,
		Status:      constants.OrderStatusPaid,
		Currency:    constants.SiteCurrencyDefault,
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
		PaidAt:      &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	item := models.OrderItem{
		OrderID:              order.ID,
		ProductID:            9,
		TitleJSON:            models.JSON{"zh-CN": "档位商品"},
		CommissionMode:       constants.ProductCommissionModeTier,
		TraderCommissionRate: models.NewMoneyFromDecimal(decimal.NewFromFloat(0.12)),
		MaxCommissionRate:    models.NewMoneyFromDecimal(decimal.NewFromFloat(0.15)),
		UnitPrice:            models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
		Quantity:             1,
		TotalPrice:           models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create order item failed: %v", err)
	}

	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("process order commission failed: %v", err)
	}

	var rows []models.Commission
	if err := db.Where("order_id = ?", order.ID).Order("relationship_level asc").Find(&rows).Error; err != nil {
		t.Fatalf("load commissions failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 commissions, got %d", len(rows))
	}
	// 直推卖家按经销商基础比例：500 * 0.12 = 60
	if rows[0].RecipientID != seller.ID || rows[0].Amount.String() != "60.00" {
		t.Fatalf("unexpected direct tier commission: recipient=%d amount=%s", rows[0].RecipientID, rows[0].Amount.String())
	}
	// 二级按层级表间推比例：500 * 0.10 = 50
	if rows[1].RecipientID != leader.ID || rows[1].Amount.String() != "50.00" {
		t.Fatalf("unexpected indirect tier commission: recipient=%d amount=%s", rows[1].RecipientID, rows[1].Amount.String())
	}
}

func TestHandleOrderCanceledRejectsPending(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	upline := createCommissionTestUser(t, db, "cancel-upline@example.com", "CUPLN001")
	buyer := createCommissionTestUser(t, db, "cancel-buyer@example.com", "CBUYR001")
	mustBindUpline(t, networkSvc, buyer.ID, upline.ID)

	order := createCommissionTestOrder(t, db, buyer.ID, 100, constants.OrderStatusPaid)
	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("process order commission failed: %v", err)
	}

	if err := commissionSvc.HandleOrderCanceled(order.ID, "订单退款"); err != nil {
		t.Fatalf("handle order canceled failed: %v", err)
	}

	var row models.Commission
	if err := db.Where("order_id = ?", order.ID).First(&row).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if row.Status != constants.CommissionStatusRejected {
		t.Fatalf("expected rejected status, got %s", row.Status)
	}
	if row.InvalidReason != "订单退款" {
		t.Fatalf("expected invalid reason recorded, got %q", row.InvalidReason)
	}
}

// 订单取消时已发放的积分按流水冲正，重复取消不重复扣减
func TestHandleOrderCanceledReversesPoints(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	chain := make([]models.User, 0, 6)
	for i := 0; i < 6; i++ {
		chain = append(chain, createCommissionTestUser(t, db,
			fmt.Sprintf("reverse-%d@example.com", i),
			fmt.Sprintf("RVRS%04d", i)))
	}
	for i := 1; i < len(chain); i++ {
		mustBindUpline(t, networkSvc, chain[i].ID, chain[i-1].ID)
	}

	buyer := chain[5]
	order := createCommissionTestOrder(t, db, buyer.ID, 1000, constants.OrderStatusPaid)
	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("process order commission failed: %v", err)
	}

	var points models.UserPoints
	if err := db.Where("user_id = ?", chain[0].ID).First(&points).Error; err != nil {
		t.Fatalf("load points failed: %v", err)
	}
	if points.Points.String() != "10.00" {
		t.Fatalf("expected 10.00 points before cancel, got %s", points.Points.String())
	}

	if err := commissionSvc.HandleOrderCanceled(order.ID, "订单退款"); err != nil {
		t.Fatalf("handle order canceled failed: %v", err)
	}

	if err := db.Where("user_id = ?", chain[0].ID).First(&points).Error; err != nil {
		t.Fatalf("reload points failed: %v", err)
	}
	if points.Points.String() != "0.00" {
		t.Fatalf("expected 0.00 points after cancel, got %s", points.Points.String())
	}

	var entry models.UserPointsLedger
	if err := db.Where("order_id = ? AND user_id = ?", order.ID, chain[0].ID).First(&entry).Error; err != nil {
		t.Fatalf("load ledger entry failed: %v", err)
	}
	if entry.ReversedAt == nil {
		t.Fatalf("expected ledger entry marked reversed")
	}

	// 重复取消不再扣减
	if err := commissionSvc.HandleOrderCanceled(order.ID, "订单退款"); err != nil {
		t.Fatalf("repeated cancel failed: %v", err)
	}
	if err := db.Where("user_id = ?", chain[0].ID).First(&points).Error; err != nil {
		t.Fatalf("reload points failed: %v", err)
	}
	if points.Points.String() != "0.00" {
		t.Fatalf("expected 0.00 points after repeated cancel, got %s", points.Points.String())
	}
}

func TestMarkCommissionsPaid(t *testing.T) {
	commissionSvc, networkSvc, db := setupCommissionServiceTest(t)
	createCommissionTestTiers(t, db)

	upline := createCommissionTestUser(t, db, "paid-upline@example.com", "PUPLN001")
	buyer := createCommissionTestUser(t, db, "paid-buyer@example.com", "PBUYR001")
	mustBindUpline(t, networkSvc, buyer.ID, upline.ID)

	order := createCommissionTestOrder(t, db, buyer.ID, 100, constants.OrderStatusPaid)
	if err := commissionSvc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("process order commission failed: %v", err)
	}

	var row models.Commission
	if err := db.Where("order_id = ?", order.ID).First(&row).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}

	affected, err := commissionSvc.MarkCommissionsPaid([]uint{row.ID})
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 affected, got %d", affected)
	}

	if err := db.First(&row, row.ID).Error; err != nil {
		t.Fatalf("reload commission failed: %v", err)
	}
	if row.Status != constants.CommissionStatusPaid {
		t.Fatalf("expected paid status, got %s", row.Status)
	}
	if row.PaidAt == nil {
		t.Fatalf("expected paid_at set")
	}

	// 重复发放应报状态错误
	if _, err := commissionSvc.MarkCommissionsPaid([]uint{row.ID}); err != ErrCommissionStatusInvalid {
		t.Fatalf("expected ErrCommissionStatusInvalid on double pay, got %v", err)
	}
}

func TestComputeVolumeBonusRate(t *testing.T) {
	commissionSvc, _, db := setupCommissionServiceTest(t)

	tiers := []models.VolumeBonusTier{
		{MinMonthlySales: models.NewMoneyFromDecimal(decimal.Zero), BonusRate: models.NewMoneyFromDecimal(decimal.Zero)},
		{MinMonthlySales: models.NewMoneyFromDecimal(decimal.NewFromInt(10000)), BonusRate: models.NewMoneyFromDecimal(decimal.NewFromFloat(0.01))},
		{MinMonthlySales: models.NewMoneyFromDecimal(decimal.NewFromInt(50000)), BonusRate: models.NewMoneyFromDecimal(decimal.NewFromFloat(0.02))},
	}
	if err := db.Create(&tiers).Error; err != nil {
		t.Fatalf("create volume bonus tiers failed: %v", err)
	}

	seller := createCommissionTestUser(t, db, "volume-seller@example.com", "VSELL001")
	createCommissionTestOrder(t, db, seller.ID, 12000, constants.OrderStatusPaid)

	rate, err := commissionSvc.ComputeVolumeBonusRate(seller.ID, time.Now())
	if err != nil {
		t.Fatalf("compute volume bonus failed: %v", err)
	}
	if !rate.Equal(decimal.NewFromFloat(0.01)) {
		t.Fatalf("expected bonus 0.01, got %s", rate.String())
	}
}

func mustBindUpline(t *testing.T, svc *NetworkService, userID, uplineID uint) {
	t.Helper()
	if err := svc.CreateUserRelationship(userID, uplineID); err != nil {
		t.Fatalf("bind upline %d -> %d failed: %v", userID, uplineID, err)
	}
}
