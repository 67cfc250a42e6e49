package service

import (
	"errors"
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

func setupNetworkServiceTest(t *testing.T) (*NetworkService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:network_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserRelationship{},
		&models.Order{},
		&models.OrderItem{},
		&models.Commission{},
		&models.UserPoints{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	settingSvc := NewSettingService(newMockSettingRepo())
	if _, err := settingSvc.UpdateNetworkSetting(NetworkDefaultSetting()); err != nil {
		t.Fatalf("init network setting failed: %v", err)
	}

	networkRepo := repository.NewNetworkRepository(db)
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	return NewNetworkService(networkRepo, userRepo, orderRepo, commissionRepo, settingSvc), db
}

func createNetworkTestUser(t *testing.T, db *gorm.DB, email, sponsorCode string) models.User {
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

func TestCreateUserRelationshipBuildsClosureRows(t *testing.T) {
	svc, db := setupNetworkServiceTest(t)

	root := createNetworkTestUser(t, db, "root@example.com", "ROOT0001")
	mid := createNetworkTestUser(t, db, "mid@example.com", "MID00001")
	leaf := createNetworkTestUser(t, db, "leaf@example.com", "LEAF0001")

	if err := svc.CreateUserRelationship(mid.ID, root.ID); err != nil {
		t.Fatalf("bind mid -> root failed: %v", err)
	}
	if err := svc.CreateUserRelationship(leaf.ID, mid.ID); err != nil {
		t.Fatalf("bind leaf -> mid failed: %v", err)
	}

	var rows []models.UserRelationship
	if err := db.Where("user_id = ?", leaf.ID).Order("relationship_level asc").Find(&rows).Error; err != nil {
		t.Fatalf("load relationships failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 closure rows for leaf, got %d", len(rows))
	}
	if rows[0].UplineID != mid.ID || rows[0].RelationshipLevel != 1 {
		t.Fatalf("unexpected level-1 row: %+v", rows[0])
	}
	if rows[1].UplineID != root.ID || rows[1].RelationshipLevel != 2 {
		t.Fatalf("unexpected level-2 row: %+v", rows[1])
	}

	var reloaded models.User
	if err := db.First(&reloaded, leaf.ID).Error; err != nil {
		t.Fatalf("reload leaf failed: %v", err)
	}
	if reloaded.UplineID == nil || *reloaded.UplineID != mid.ID {
		t.Fatalf("expected upline pointer %d, got %+v", mid.ID, reloaded.UplineID)
	}
}

func TestCreateUserRelationshipRejectsSelf(t *testing.T) {
	svc, db := setupNetworkServiceTest(t)
	user := createNetworkTestUser(t, db, "self@example.com", "SELF0001")

	if err := svc.CreateUserRelationship(user.ID, user.ID); !errors.Is(err, ErrSelfRelationship) {
		t.Fatalf("expected ErrSelfRelationship, got %v", err)
	}
}

func TestCreateUserRelationshipRejectsCycle(t *testing.T) {
	svc, db := setupNetworkServiceTest(t)

	a := createNetworkTestUser(t, db, "cycle-a@example.com", "CYCA0001")
	b := createNetworkTestUser(t, db, "cycle-b@example.com", "CYCB0001")
	c := createNetworkTestUser(t, db, "cycle-c@example.com", "CYCC0001")

	if err := svc.CreateUserRelationship(b.ID, a.ID); err != nil {
		t.Fatalf("bind b -> a failed: %v", err)
	}
	if err := svc.CreateUserRelationship(c.ID, b.ID); err != nil {
		t.Fatalf("bind c -> b failed: %v", err)
	}

	// a 再绑到 c 会形成 a -> c -> b -> a 的环
	if err := svc.CreateUserRelationship(a.ID, c.ID); !errors.Is(err, ErrCircularRelationship) {
		t.Fatalf("expected ErrCircularRelationship, got %v", err)
	}
}

func TestCreateUserRelationshipImmutable(t *testing.T) {
	svc, db := setupNetworkServiceTest(t)

	first := createNetworkTestUser(t, db, "imm-first@example.com", "IMMF0001")
	second := createNetworkTestUser(t, db, "imm-second@example.com", "IMMS0001")
	user := createNetworkTestUser(t, db, "imm-user@example.com", "IMMU0001")

	if err := svc.CreateUserRelationship(user.ID, first.ID); err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	if err := svc.CreateUserRelationship(user.ID, second.ID); !errors.Is(err, ErrRelationshipForbidden) {
		t.Fatalf("expected ErrRelationshipForbidden on rebind, got %v", err)
	}
}

func TestGetUplineChainOrderAndDepth(t *testing.T) {
	svc, db := setupNetworkServiceTest(t)

	users := make([]models.User, 0, 5)
	for i := 0; i < 5; i++ {
		users = append(users, createNetworkTestUser(t, db,
			fmt.Sprintf("chain-%d@example.com", i),
			fmt.Sprintf("CHN%05d", i)))
	}
	for i := 1; i < len(users); i++ {
		if err := svc.CreateUserRelationship(users[i].ID, users[i-1].ID); err != nil {
			t.Fatalf("bind chain failed: %v", err)
		}
	}

	chain, err := svc.GetUplineChain(users[4].ID, 3)
	if err != nil {
		t.Fatalf("get upline chain failed: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("expected chain length 3, got %d", len(chain))
	}
	for i, want := range []uint{users[3].ID, users[2].ID, users[1].ID} {
		if chain[i].ID != want {
			t.Fatalf("chain[%d] want user %d got %d", i, want, chain[i].ID)
		}
	}
}

func TestGetUplineChainDetectsCorruptCycle(t *testing.T) {
	svc, db := setupNetworkServiceTest(t)

	a := createNetworkTestUser(t, db, "corrupt-a@example.com", "CORA0001")
	b := createNetworkTestUser(t, db, "corrupt-b@example.com", "CORB0001")

	// 绕过服务入口直接写坏指针，模拟脏数据
	if err := db.Model(&models.User{}).Where("id = ?", a.ID).Update("upline_id", b.ID).Error; err != nil {
		t.Fatalf("corrupt a failed: %v", err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", b.ID).Update("upline_id", a.ID).Error; err != nil {
		t.Fatalf("corrupt b failed: %v", err)
	}

	if _, err := svc.GetUplineChain(a.ID, 10); !errors.Is(err, ErrUplineChainInvalid) {
		t.Fatalf("expected ErrUplineChainInvalid, got %v", err)
	}
}

func TestGetUserNetworkTreeDepthAndTotals(t *testing.T) {
	svc, db := setupNetworkServiceTest(t)

	root := createNetworkTestUser(t, db, "tree-root@example.com", "TROOT001")
	childA := createNetworkTestUser(t, db, "tree-a@example.com", "TCHA0001")
	childB := createNetworkTestUser(t, db, "tree-b@example.com", "TCHB0001")
	grand := createNetworkTestUser(t, db, "tree-grand@example.com", "TGRD0001")

	if err := svc.CreateUserRelationship(childA.ID, root.ID); err != nil {
		t.Fatalf("bind childA failed: %v", err)
	}
	if err := svc.CreateUserRelationship(childB.ID, root.ID); err != nil {
		t.Fatalf("bind childB failed: %v", err)
	}
	if err := svc.CreateUserRelationship(grand.ID, childA.ID); err != nil {
		t.Fatalf("bind grand failed: %v", err)
	}

	now := time.Now()
	order := models.Order{
		OrderNo:     fmt.Sprintf("FXN%d", now.UnixNano()),
		UserID:      childA.ID,
		Status:      constants.OrderStatusPaid,
		Currency:    constants.SiteCurrencyDefault,
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(250)),
		PaidAt:      &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	tree, err := svc.GetUserNetwork(root.ID, 0)
	if err != nil {
		t.Fatalf("get user network failed: %v", err)
	}
	if tree.UserID != root.ID || tree.Level != 0 {
		t.Fatalf("unexpected root node: %+v", tree)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 direct children, got %d", len(tree.Children))
	}

	var nodeA *NetworkNode
	for _, child := range tree.Children {
		if child.UserID == childA.ID {
			nodeA = child
		}
	}
	if nodeA == nil {
		t.Fatalf("childA missing from tree")
	}
	if nodeA.TotalSales.String() != "250.00" {
		t.Fatalf("childA sales want 250.00 got %s", nodeA.TotalSales.String())
	}
	if len(nodeA.Children) != 1 || nodeA.Children[0].UserID != grand.ID {
		t.Fatalf("grand missing under childA: %+v", nodeA.Children)
	}
	if nodeA.Children[0].Level != 2 {
		t.Fatalf("grand level want 2 got %d", nodeA.Children[0].Level)
	}

	// 深度 1 只展开直属层
	shallow, err := svc.GetUserNetwork(root.ID, 1)
	if err != nil {
		t.Fatalf("get shallow network failed: %v", err)
	}
	for _, child := range shallow.Children {
		if len(child.Children) != 0 {
			t.Fatalf("expected no grandchildren at depth 1, got %+v", child.Children)
		}
	}
}

func TestGetNetworkStats(t *testing.T) {
	svc, db := setupNetworkServiceTest(t)

	root := createNetworkTestUser(t, db, "stats-root@example.com", "SROOT001")
	child := createNetworkTestUser(t, db, "stats-child@example.com", "SCHD0001")
	grand := createNetworkTestUser(t, db, "stats-grand@example.com", "SGRD0001")

	if err := svc.CreateUserRelationship(child.ID, root.ID); err != nil {
		t.Fatalf("bind child failed: %v", err)
	}
	if err := svc.CreateUserRelationship(grand.ID, child.ID); err != nil {
		t.Fatalf("bind grand failed: %v", err)
	}

	now := time.Now()
	order := models.Order{
		OrderNo:     fmt.Sprintf("FXS%d", now.UnixNano()),
		UserID:      grand.ID,
		Status:      constants.OrderStatusCompleted,
		Currency:    constants.SiteCurrencyDefault,
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(120)),
		PaidAt:      &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	commission := models.Commission{
		OrderID:           order.ID,
		UserID:            grand.ID,
		RecipientID:       root.ID,
		Amount:            models.NewMoneyFromDecimal(decimal.NewFromInt(12)),
		CommissionRate:    models.NewMoneyFromDecimal(decimal.NewFromFloat(0.10)),
		RelationshipLevel: 2,
		Type:              constants.CommissionTypeIndirect,
		Status:            constants.CommissionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := db.Create(&commission).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}

	stats, err := svc.GetNetworkStats(root.ID)
	if err != nil {
		t.Fatalf("get network stats failed: %v", err)
	}
	if stats.TotalDownlines != 2 {
		t.Fatalf("total downlines want 2 got %d", stats.TotalDownlines)
	}
	if stats.DirectDownlines != 1 {
		t.Fatalf("direct downlines want 1 got %d", stats.DirectDownlines)
	}
	if stats.DownlinesByLevel[2] != 1 {
		t.Fatalf("level-2 downlines want 1 got %d", stats.DownlinesByLevel[2])
	}
	if stats.TeamSales.String() != "120.00" {
		t.Fatalf("team sales want 120.00 got %s", stats.TeamSales.String())
	}
	if stats.PendingCommission.String() != "12.00" {
		t.Fatalf("pending commission want 12.00 got %s", stats.PendingCommission.String())
	}
	if stats.PaidCommission.String() != "0.00" {
		t.Fatalf("paid commission want 0.00 got %s", stats.PaidCommission.String())
	}
}

func TestCreateUserRelationshipDisabledNetwork(t *testing.T) {
	svc, db := setupNetworkServiceTest(t)

	if _, err := svc.settingService.UpdateNetworkSetting(NetworkSetting{
		Enabled:          false,
		CommissionLevels: constants.CommissionMaxLevels,
		TreeDepth:        constants.NetworkTreeMaxDepth,
	}); err != nil {
		t.Fatalf("disable network failed: %v", err)
	}

	upline := createNetworkTestUser(t, db, "disabled-upline@example.com", "DUPL0001")
	user := createNetworkTestUser(t, db, "disabled-user@example.com", "DUSR0001")

	if err := svc.CreateUserRelationship(user.ID, upline.ID); !errors.Is(err, ErrNetworkDisabled) {
		t.Fatalf("expected ErrNetworkDisabled, got %v", err)
	}
}
