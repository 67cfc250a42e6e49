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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupAdminAuthServiceTest(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:admin_auth_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "admin-auth-service-test-secret"
	cfg.JWT.ExpireHours = 24
	cfg.Security.PasswordPolicy.MinLength = 8

	return NewAuthService(cfg, repository.NewAdminRepository(db)), db
}

func createAdminTestAccount(t *testing.T, db *gorm.DB, username, password string) models.Admin {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	row := models.Admin{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return row
}

func TestAdminLoginAndTokenRoundTrip(t *testing.T) {
	svc, db := setupAdminAuthServiceTest(t)
	createAdminTestAccount(t, db, "ops-admin", "password123")

	admin, token, expiresAt, err := svc.Login("ops-admin", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if admin.LastLoginAt == nil {
		t.Fatalf("expected last_login_at updated")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Username != "ops-admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "fenxiao-admin" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}

	if _, _, _, err := svc.Login("ops-admin", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, _, _, err := svc.Login("no-such-admin", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown account, got %v", err)
	}
}

func TestAdminChangePasswordRevokesTokens(t *testing.T) {
	svc, db := setupAdminAuthServiceTest(t)
	account := createAdminTestAccount(t, db, "rotate-admin", "password123")

	if err := svc.ChangePassword(account.ID, "wrong-old", "nextpass456"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if err := svc.ChangePassword(account.ID, "password123", "short"); err == nil {
		t.Fatalf("expected policy rejection for short password")
	}
	if err := svc.ChangePassword(account.ID, "password123", "nextpass456"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	var stored models.Admin
	if err := db.First(&stored, account.ID).Error; err != nil {
		t.Fatalf("reload admin failed: %v", err)
	}
	if stored.TokenVersion != account.TokenVersion+1 {
		t.Fatalf("expected token version bump, got %d", stored.TokenVersion)
	}
	if stored.TokenInvalidBefore == nil {
		t.Fatalf("expected token_invalid_before set")
	}

	if _, _, _, err := svc.Login("rotate-admin", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, _, _, err := svc.Login("rotate-admin", "nextpass456"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}
