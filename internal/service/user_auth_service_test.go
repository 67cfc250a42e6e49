package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupUserAuthServiceTest(t *testing.T) (*UserAuthService, *SettingService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:user_auth_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	cfg := &config.Config{}
	cfg.UserJWT.SecretKey = "user-auth-service-test-secret"
	cfg.UserJWT.ExpireHours = 24
	cfg.Security.PasswordPolicy.MinLength = 8

	userRepo := repository.NewUserRepository(db)
	networkRepo := repository.NewNetworkRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	networkSvc := NewNetworkService(networkRepo, userRepo, orderRepo, commissionRepo, settingSvc)

	return NewUserAuthService(cfg, userRepo, networkSvc), settingSvc, db
}

func TestRegisterWithSponsorBindsRelationship(t *testing.T) {
	svc, _, db := setupUserAuthServiceTest(t)
	sponsor := createCommissionTestUser(t, db, "sponsor@example.com", "SPONSOR1")

	user, token, _, err := svc.Register(RegisterInput{
		Email:       "newcomer@example.com",
		Password:    "password123",
		SponsorCode: "SPONSOR1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user == nil || user.ID == 0 || token == "" {
		t.Fatalf("expected user and token, got user=%+v token=%q", user, token)
	}

	var rel models.UserRelationship
	if err := db.Where("user_id = ? AND upline_id = ?", user.ID, sponsor.ID).First(&rel).Error; err != nil {
		t.Fatalf("load relationship failed: %v", err)
	}
	if rel.RelationshipLevel != 1 {
		t.Fatalf("expected level 1 relationship, got %d", rel.RelationshipLevel)
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if stored.UplineID == nil || *stored.UplineID != sponsor.ID {
		t.Fatalf("expected upline_id %d, got %v", sponsor.ID, stored.UplineID)
	}
}

// 推荐关系绑定失败时，注册创建的用户行必须一并回滚
func TestRegisterRollsBackUserWhenBindFails(t *testing.T) {
	svc, settingSvc, db := setupUserAuthServiceTest(t)
	createCommissionTestUser(t, db, "closed-sponsor@example.com", "CLOSED01")

	setting := NetworkDefaultSetting()
	setting.Enabled = false
	if _, err := settingSvc.UpdateNetworkSetting(setting); err != nil {
		t.Fatalf("disable network failed: %v", err)
	}

	_, _, _, err := svc.Register(RegisterInput{
		Email:       "orphaned@example.com",
		Password:    "password123",
		SponsorCode: "CLOSED01",
	})
	if !errors.Is(err, ErrNetworkDisabled) {
		t.Fatalf("expected ErrNetworkDisabled, got %v", err)
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", "orphaned@example.com").Count(&count).Error; err != nil {
		t.Fatalf("count users failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no user row after failed bind, got %d", count)
	}
}

func TestRegisterDuplicateEmailRejected(t *testing.T) {
	svc, _, _ := setupUserAuthServiceTest(t)

	if _, _, _, err := svc.Register(RegisterInput{
		Email:    "twice@example.com",
		Password: "password123",
	}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, _, _, err := svc.Register(RegisterInput{
		Email:    "twice@example.com",
		Password: "password123",
	}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}
