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

func setupCartServiceTest(t *testing.T) (*CartService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:cart_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	svc := NewCartService(
		repository.NewCartRepository(db),
		repository.NewProductRepository(db),
		repository.NewUserRepository(db),
	)
	return svc, db
}

func TestUpsertCartItemValidation(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	user := createOrderTestUser(t, db, "cart-guard@test.local", constants.UserRoleRetail)
	product := createOrderTestProduct(t, db, "cart-guard-product", 20, 0, 3, true)
	inactive := createOrderTestProduct(t, db, "cart-guard-inactive", 20, 0, 3, false)

	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: product.ID, Quantity: 0}); !errors.Is(err, ErrCartQuantityInvalid) {
		t.Fatalf("expected ErrCartQuantityInvalid, got %v", err)
	}
	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: inactive.ID, Quantity: 1}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: product.ID, Quantity: 5}); !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("expected ErrStockInsufficient, got %v", err)
	}
	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
}

func TestUpsertCartItemReplacesQuantity(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	user := createOrderTestUser(t, db, "cart-upsert@test.local", constants.UserRoleRetail)
	product := createOrderTestProduct(t, db, "cart-upsert-product", 20, 0, 10, true)

	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: product.ID, Quantity: 4}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	var stored models.CartItem
	if err := db.Where("user_id = ? AND product_id = ?", user.ID, product.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload cart item failed: %v", err)
	}
	// 覆盖式写入，不做数量累加
	if stored.Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", stored.Quantity)
	}
}

func TestListCartUsesRolePricingAndPrunesInactive(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	user := createOrderTestUser(t, db, "cart-list@test.local", constants.UserRoleTrader)
	discounted := createOrderTestProduct(t, db, "cart-list-discounted", 100, 80, 10, true)
	retired := createOrderTestProduct(t, db, "cart-list-retired", 50, 0, 10, true)

	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: discounted.ID, Quantity: 2}); err != nil {
		t.Fatalf("upsert discounted failed: %v", err)
	}
	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: retired.ID, Quantity: 1}); err != nil {
		t.Fatalf("upsert retired failed: %v", err)
	}
	// 商品下架后购物车读取时应被顺带清理
	if err := db.Model(&models.Product{}).Where("id = ?", retired.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("retire product failed: %v", err)
	}

	details, err := svc.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 cart item after pruning, got %d", len(details))
	}
	item := details[0]
	if item.ProductID != discounted.ID {
		t.Fatalf("unexpected product in cart: %d", item.ProductID)
	}
	if !item.UnitPrice.Decimal.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected trader price 80, got %s", item.UnitPrice.Decimal)
	}
	if !item.Subtotal.Decimal.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("expected subtotal 160, got %s", item.Subtotal.Decimal)
	}

	var remaining int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected pruned cart row removed, %d rows left", remaining)
	}
}

func TestRemoveAndClearCart(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	user := createOrderTestUser(t, db, "cart-clear@test.local", constants.UserRoleRetail)
	first := createOrderTestProduct(t, db, "cart-clear-first", 10, 0, 10, true)
	second := createOrderTestProduct(t, db, "cart-clear-second", 10, 0, 10, true)

	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: first.ID, Quantity: 1}); err != nil {
		t.Fatalf("upsert first failed: %v", err)
	}
	if err := svc.UpsertItem(UpsertCartItemInput{UserID: user.ID, ProductID: second.ID, Quantity: 1}); err != nil {
		t.Fatalf("upsert second failed: %v", err)
	}

	if err := svc.RemoveItem(user.ID, first.ID); err != nil {
		t.Fatalf("remove item failed: %v", err)
	}
	details, err := svc.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(details) != 1 || details[0].ProductID != second.ID {
		t.Fatalf("expected only second product, got %+v", details)
	}

	if err := svc.Clear(user.ID); err != nil {
		t.Fatalf("clear cart failed: %v", err)
	}
	details, err = svc.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("list cart after clear failed: %v", err)
	}
	if len(details) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(details))
	}
}
