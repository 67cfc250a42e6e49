package main

import (
	"fmt"

	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员、层级佣金比例、销量加成档位
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}
	if err := models.InitDefaultCommissionTiers(); err != nil {
		stdLog.Printf("Failed to init commission tiers: %v", err)
	}
	if err := models.InitDefaultVolumeBonusTiers(); err != nil {
		stdLog.Printf("Failed to init volume bonus tiers: %v", err)
	}

	// 添加分类
	categories := []models.Category{
		{
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "健康产品",
				"en-US": "Wellness",
			}),
			Slug: "wellness",
		},
		{
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "培训课程",
				"en-US": "Training",
			}),
			Slug: "training",
		},
		{
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "周边配件",
				"en-US": "Accessories",
			}),
			Slug: "accessories",
		},
	}

	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Where("slug IN ?", []string{"wellness", "training", "accessories"}).Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}

	money := func(v string) models.Money {
		d, _ := decimal.NewFromString(v)
		return models.NewMoneyFromDecimal(d)
	}

	// 添加商品
	products := []models.Product{
		{
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "真男人套装",
				"en-US": "Real Man",
			}),
			Slug: "real-man",
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "旗舰套装，按推荐层级结算佣金。",
				"en-US": "Flagship package, commission settled by referral level.",
			}),
			RetailPrice:      money("3600.00"),
			TraderPrice:      money("3240.00"),
			DistributorPrice: money("2880.00"),
			CommissionMode:   constants.ProductCommissionModeLevel,
			CategoryID:       categoryIDs["wellness"],
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?w=800",
			}),
			Tags:      models.StringArray([]string{"Flagship", "Level"}),
			Stock:     -1,
			IsActive:  true,
			SortOrder: 100,
		},
		{
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "入门营养包",
				"en-US": "Starter Nutrition Pack",
			}),
			Slug: "starter-nutrition-pack",
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "入门装，按商品定价档与卖家角色结算佣金。",
				"en-US": "Starter pack, commission settled by product pricing tier and seller role.",
			}),
			RetailPrice:               money("199.00"),
			TraderPrice:               money("169.00"),
			DistributorPrice:          money("149.00"),
			CommissionMode:            constants.ProductCommissionModeTier,
			TraderCommissionRate:      money("0.10"),
			DistributorCommissionRate: money("0.15"),
			MaxCommissionRate:         money("0.20"),
			CategoryID:                categoryIDs["wellness"],
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1505576399279-565b52d4ac71?w=800",
			}),
			Tags:      models.StringArray([]string{"Starter", "Tier"}),
			Stock:     500,
			IsActive:  true,
			SortOrder: 90,
		},
		{
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "分销实战训练营",
				"en-US": "Distribution Bootcamp",
			}),
			Slug: "distribution-bootcamp",
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "线上课程，不限库存。",
				"en-US": "Online course with unlimited stock.",
			}),
			RetailPrice:    money("899.00"),
			CommissionMode: constants.ProductCommissionModeLevel,
			CategoryID:     categoryIDs["training"],
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1524178232363-1fb2b075b655?w=800",
			}),
			Tags:      models.StringArray([]string{"Course"}),
			Stock:     -1,
			IsActive:  true,
			SortOrder: 80,
		},
		{
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "品牌运动水壶",
				"en-US": "Branded Sports Bottle",
			}),
			Slug: "sports-bottle",
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "库存有限，用于演示售罄态。",
				"en-US": "Limited stock for sold-out demo.",
			}),
			RetailPrice:               money("29.90"),
			CommissionMode:            constants.ProductCommissionModeTier,
			TraderCommissionRate:      money("0.05"),
			DistributorCommissionRate: money("0.08"),
			MaxCommissionRate:         money("0.10"),
			CategoryID:                categoryIDs["accessories"],
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1602143407151-7111542de6e8?w=800",
			}),
			Tags:      models.StringArray([]string{"Accessory"}),
			Stock:     0,
			IsActive:  true,
			SortOrder: 70,
		},
	}

	for _, prod := range products {
		if prod.CategoryID == 0 {
			stdLog.Printf("Skip product %s: category_id missing", prod.Slug)
			continue
		}
		var existing models.Product
		if err := models.DB.Where("slug = ?", prod.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", prod.Slug)
			}
		} else {
			existing.TitleJSON = prod.TitleJSON
			existing.DescriptionJSON = prod.DescriptionJSON
			existing.RetailPrice = prod.RetailPrice
			existing.TraderPrice = prod.TraderPrice
			existing.DistributorPrice = prod.DistributorPrice
			existing.CommissionMode = prod.CommissionMode
			existing.TraderCommissionRate = prod.TraderCommissionRate
			existing.DistributorCommissionRate = prod.DistributorCommissionRate
			existing.MaxCommissionRate = prod.MaxCommissionRate
			existing.CategoryID = prod.CategoryID
			existing.Images = prod.Images
			existing.Tags = prod.Tags
			existing.Stock = prod.Stock
			existing.IsActive = prod.IsActive
			existing.SortOrder = prod.SortOrder
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Updated product: %s", prod.Slug)
			}
		}
	}

	// 演示推荐网络：manager1 → leader1 → sales1 → buyer1
	seedUsers := []struct {
		Email       string
		DisplayName string
		SponsorCode string
		Role        string
		UplineEmail string
	}{
		{Email: "manager1@example.com", DisplayName: "Manager One", SponsorCode: "MANAGER1", Role: constants.UserRoleDistributor},
		{Email: "leader1@example.com", DisplayName: "Leader One", SponsorCode: "LEADER01", Role: constants.UserRoleTrader, UplineEmail: "manager1@example.com"},
		{Email: "sales1@example.com", DisplayName: "Sales One", SponsorCode: "SALES001", Role: constants.UserRoleTrader, UplineEmail: "leader1@example.com"},
		{Email: "buyer1@example.com", DisplayName: "Buyer One", SponsorCode: "BUYER001", Role: constants.UserRoleRetail, UplineEmail: "sales1@example.com"},
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash demo password: %v", err)
	}

	userIDs := map[string]uint{}
	for _, seed := range seedUsers {
		var user models.User
		if err := models.DB.Where("email = ?", seed.Email).First(&user).Error; err != nil {
			user = models.User{
				Email:        seed.Email,
				PasswordHash: string(passwordHash),
				DisplayName:  seed.DisplayName,
				SponsorCode:  seed.SponsorCode,
				Role:         seed.Role,
				Status:       constants.UserStatusActive,
			}
			if upID, ok := userIDs[seed.UplineEmail]; ok {
				user.UplineID = &upID
			}
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", seed.Email, err)
				continue
			}
			stdLog.Printf("Created user: %s", seed.Email)
		} else {
			stdLog.Printf("User already exists: %s", seed.Email)
		}
		userIDs[seed.Email] = user.ID
	}

	// 写入推荐关系闭包：每个用户到每个祖先各一行
	for _, seed := range seedUsers {
		userID, ok := userIDs[seed.Email]
		if !ok || seed.UplineEmail == "" {
			continue
		}
		level := 1
		uplineEmail := seed.UplineEmail
		for uplineEmail != "" && level <= constants.CycleCheckMaxDepth {
			uplineID, ok := userIDs[uplineEmail]
			if !ok {
				break
			}
			rel := models.UserRelationship{
				UserID:            userID,
				UplineID:          uplineID,
				RelationshipLevel: level,
			}
			var existing models.UserRelationship
			if err := models.DB.Where("user_id = ? AND upline_id = ?", userID, uplineID).First(&existing).Error; err != nil {
				if err := models.DB.Create(&rel).Error; err != nil {
					stdLog.Printf("Failed to create relationship %s -> %s: %v", seed.Email, uplineEmail, err)
				}
			}
			next := ""
			for _, candidate := range seedUsers {
				if candidate.Email == uplineEmail {
					next = candidate.UplineEmail
					break
				}
			}
			uplineEmail = next
			level++
		}
	}

	// 更新网站配置
	configData := map[string]interface{}{
		"contact": map[string]string{
			"telegram": "https://t.me/fenxiaonext",
			"whatsapp": "https://wa.me/1234567890",
		},
	}

	var setting models.Setting
	if err := models.DB.Where("key = ?", constants.SettingKeySiteConfig).First(&setting).Error; err != nil {
		setting = models.Setting{
			Key:       constants.SettingKeySiteConfig,
			ValueJSON: models.JSON(configData),
		}
		if err := models.DB.Create(&setting).Error; err != nil {
			stdLog.Printf("Failed to create setting: %v", err)
		} else {
			stdLog.Println("Created site config")
		}
	} else {
		setting.ValueJSON = models.JSON(configData)
		if err := models.DB.Save(&setting).Error; err != nil {
			stdLog.Printf("Failed to update setting: %v", err)
		} else {
			stdLog.Println("Updated site config")
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- Default admin / commission tiers / volume bonus tiers")
	fmt.Println("- 3 Categories")
	fmt.Println("- 4 Products (含 level 与 tier 两种佣金模式)")
	fmt.Println("- 4 Demo users with referral closure (manager1 → leader1 → sales1 → buyer1)")
	fmt.Println("- Site configuration")
}
