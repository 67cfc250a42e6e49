package models

import (
	"strings"

	"github.com/fenxiao-next/internal/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// InitDefaultAdmin 初始化默认管理员账号
func InitDefaultAdmin(username, password string) error {
	var count int64
	DB.Model(&Admin{}).Count(&count)

	// 如果已有管理员，确保默认 admin 拥有超级管理员权限
	if count > 0 {
		if err := DB.Model(&Admin{}).Where("username = ?", "admin").Update("is_super", true).Error; err != nil {
			logger.Warnw("ensure_default_admin_super_failed", "error", err)
		}
		return nil
	}

	// 创建默认管理员
	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsSuper:      strings.EqualFold(strings.TrimSpace(username), "admin"),
	}

	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if password == "admin123" {
		logger.Warnw("default_admin_created_with_default_password", "username", username, "password", password)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}

	return nil
}

// InitDefaultCommissionTiers 初始化层级佣金比例表（仅在表为空时写入）
// 层级 1 直推 30%，层级 2 间推 10%，层级 3/4 间推 5%，层级 5 起只发积分。
func InitDefaultCommissionTiers() error {
	var count int64
	DB.Model(&CommissionTier{}).Count(&count)
	if count > 0 {
		return nil
	}

	rate := func(v string) Money {
		d, _ := decimal.NewFromString(v)
		return NewMoneyFromDecimal(d)
	}
	tiers := []CommissionTier{
		{TierLevel: 1, DirectCommissionRate: rate("0.30")},
		{TierLevel: 2, IndirectCommissionRate: rate("0.10")},
		{TierLevel: 3, IndirectCommissionRate: rate("0.05")},
		{TierLevel: 4, IndirectCommissionRate: rate("0.05")},
		{TierLevel: 5, PointsRate: rate("0.01")},
	}
	if err := DB.Create(&tiers).Error; err != nil {
		return err
	}
	logger.Infow("default_commission_tiers_created", "count", len(tiers))
	return nil
}

// InitDefaultVolumeBonusTiers 初始化销量加成档位（仅在表为空时写入）
func InitDefaultVolumeBonusTiers() error {
	var count int64
	DB.Model(&VolumeBonusTier{}).Count(&count)
	if count > 0 {
		return nil
	}

	amount := func(v string) Money {
		d, _ := decimal.NewFromString(v)
		return NewMoneyFromDecimal(d)
	}
	tiers := []VolumeBonusTier{
		{MinMonthlySales: amount("0"), BonusRate: amount("0")},
		{MinMonthlySales: amount("10000"), BonusRate: amount("0.01")},
		{MinMonthlySales: amount("50000"), BonusRate: amount("0.02")},
		{MinMonthlySales: amount("200000"), BonusRate: amount("0.05")},
	}
	if err := DB.Create(&tiers).Error; err != nil {
		return err
	}
	logger.Infow("default_volume_bonus_tiers_created", "count", len(tiers))
	return nil
}
