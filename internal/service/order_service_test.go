package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:order_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	userRepo := repository.NewUserRepository(db)

	svc := NewOrderService(orderRepo, productRepo, cartRepo, userRepo, nil, nil, 15)
	return svc, db
}

func createOrderTestUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  "tester",
		SponsorCode:  strings.ToUpper(strings.SplitN(email, "@", 2)[0]),
		Role:         role,
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return row
}

func createOrderTestProduct(t *testing.T, db *gorm.DB, slug string, retail, trader float64, stock int, active bool) models.Product {
	t.Helper()

	row := models.Product{
		CategoryID:     1,
		Slug:           slug,
		TitleJSON:      models.JSON{"zh-CN": "测试商品"},
		RetailPrice:    models.NewMoneyFromDecimal(decimal.NewFromFloat(retail)),
		TraderPrice:    models.NewMoneyFromDecimal(decimal.NewFromFloat(trader)),
		CommissionMode: constants.ProductCommissionModeLevel,
		Stock:          stock,
		IsActive:       active,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return row
}

func TestCreateOrderMergesItemsAndUsesRolePricing(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "trader@test.local", constants.UserRoleTrader)
	product := createOrderTestProduct(t, db, "pricing-product", 100, 80, 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items: []CreateOrderItem{
			{ProductID: product.ID, Quantity: 1},
			{ProductID: product.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected pending_payment, got %s", order.Status)
	}
	if !strings.HasPrefix(order.OrderNo, "FX") {
		t.Fatalf("unexpected order no: %s", order.OrderNo)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 3 {
		t.Fatalf("expected merged single item with quantity 3, got %+v", order.Items)
	}
	// 经销商角色按经销商价结算
	if !order.TotalAmount.Decimal.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("expected total 240, got %s", order.TotalAmount.Decimal)
	}

	var stored models.Product
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.Stock != 7 {
		t.Fatalf("expected stock 7 after order, got %d", stored.Stock)
	}
}

func TestCreateOrderStockGuards(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "buyer@test.local", constants.UserRoleRetail)
	lowStock := createOrderTestProduct(t, db, "low-stock", 50, 0, 1, true)
	inactive := createOrderTestProduct(t, db, "inactive", 50, 0, 10, false)
	unlimited := createOrderTestProduct(t, db, "unlimited", 50, 0, -1, true)

	if _, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: lowStock.ID, Quantity: 2}},
	}); !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("expected ErrStockInsufficient, got %v", err)
	}

	if _, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: inactive.ID, Quantity: 1}},
	}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	// 负库存表示不限购
	if _, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: unlimited.ID, Quantity: 99}},
	}); err != nil {
		t.Fatalf("unlimited stock order failed: %v", err)
	}
}

func TestCreateOrderFromCartClearsCart(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "cart@test.local", constants.UserRoleRetail)
	product := createOrderTestProduct(t, db, "cart-product", 30, 0, 10, true)

	if _, err := svc.CreateOrderFromCart(user.ID, ""); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}

	cartItem := models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}
	if err := db.Create(&cartItem).Error; err != nil {
		t.Fatalf("create cart item failed: %v", err)
	}

	order, err := svc.CreateOrderFromCart(user.ID, "127.0.0.1")
	if err != nil {
		t.Fatalf("create order from cart failed: %v", err)
	}
	if !order.TotalAmount.Decimal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected total 60, got %s", order.TotalAmount.Decimal)
	}

	var remaining int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected cart cleared, %d items left", remaining)
	}
}

func TestPayOrderTransitions(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "payer@test.local", constants.UserRoleRetail)
	product := createOrderTestProduct(t, db, "pay-product", 100, 0, 5, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.PayOrder(order.ID, user.ID+1); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for wrong user, got %v", err)
	}

	paid, err := svc.PayOrder(order.ID, user.ID)
	if err != nil {
		t.Fatalf("pay order failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid order with paid_at, got %+v", paid)
	}

	if _, err := svc.PayOrder(order.ID, user.ID); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid on double pay, got %v", err)
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "cancel@test.local", constants.UserRoleRetail)
	product := createOrderTestProduct(t, db, "cancel-product", 100, 0, 5, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	canceled, err := svc.CancelOrder(order.ID, user.ID)
	if err != nil {
		t.Fatalf("cancel order failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}

	var stored models.Product
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", stored.Stock)
	}

	if _, err := svc.CancelOrder(order.ID, user.ID); !errors.Is(err, ErrOrderNotCancellable) {
		t.Fatalf("expected ErrOrderNotCancellable, got %v", err)
	}
}

func TestUpdateOrderStatusFollowsStateMachine(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "admin-flow@test.local", constants.UserRoleRetail)
	product := createOrderTestProduct(t, db, "flow-product", 100, 0, 5, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 待支付不能直接完成
	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusCompleted); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}

	paid, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusPaid)
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}

	completed, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.Status != constants.OrderStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("expected completed order, got %+v", completed)
	}
}

func TestCancelExpiredOrders(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "expired@test.local", constants.UserRoleRetail)
	product := createOrderTestProduct(t, db, "expired-product", 100, 0, 5, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 未过期时不动
	fresh, err := svc.CancelExpiredOrder(order.ID)
	if err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if fresh.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected pending order untouched, got %s", fresh.Status)
	}

	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("backdate order failed: %v", err)
	}

	canceled, err := svc.CancelExpiredOrders(10)
	if err != nil {
		t.Fatalf("sweep expired failed: %v", err)
	}
	if canceled != 1 {
		t.Fatalf("expected 1 canceled order, got %d", canceled)
	}

	stored, err := svc.GetOrderForAdmin(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", stored.Status)
	}
}
