package service

import (
	"strings"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// CreateProductInput 创建/更新商品输入
type CreateProductInput struct {
	CategoryID                uint
	Slug                      string
	TitleJSON                 map[string]interface{}
	DescriptionJSON           map[string]interface{}
	RetailPrice               decimal.Decimal
	TraderPrice               decimal.Decimal
	DistributorPrice          decimal.Decimal
	CommissionMode            string
	TraderCommissionRate      decimal.Decimal
	DistributorCommissionRate decimal.Decimal
	MaxCommissionRate         decimal.Decimal
	Images                    []string
	Tags                      []string
	Stock                     *int
	IsActive                  *bool
	SortOrder                 int
}

// ListPublic 获取公开商品列表
func (s *ProductService) ListPublic(categoryID, search string, page, pageSize int) ([]models.Product, int64, error) {
	filter := repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		CategoryID: categoryID,
		Search:     search,
		OnlyActive: true,
	}
	return s.repo.List(filter)
}

// GetPublicBySlug 获取公开商品详情
func (s *ProductService) GetPublicBySlug(slug string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListAdmin 获取后台商品列表
func (s *ProductService) ListAdmin(categoryID, search string, page, pageSize int) ([]models.Product, int64, error) {
	filter := repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		CategoryID: categoryID,
		Search:     search,
		OnlyActive: false,
	}
	return s.repo.List(filter)
}

// GetAdminByID 获取后台商品详情
func (s *ProductService) GetAdminByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input CreateProductInput) (*models.Product, error) {
	normalized, err := s.normalizeProductInput(input, nil)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(normalized); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		return nil, err
	}
	return normalized, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input CreateProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	normalized, err := s.normalizeProductInput(input, product)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(normalized); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		return nil, err
	}
	return normalized, nil
}

// Delete 删除商品
func (s *ProductService) Delete(id uint) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return s.repo.Delete(id)
}

// normalizeProductInput 校验并装配商品字段；existing 不为空时在原记录上更新
func (s *ProductService) normalizeProductInput(input CreateProductInput, existing *models.Product) (*models.Product, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		return nil, ErrInvalidInput
	}
	retail := input.RetailPrice.Round(2)
	if retail.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidInput
	}

	mode := normalizeCommissionMode(input.CommissionMode)
	if mode == "" {
		return nil, ErrInvalidInput
	}
	if mode == constants.ProductCommissionModeTier {
		if input.TraderCommissionRate.IsNegative() ||
			input.DistributorCommissionRate.IsNegative() ||
			input.MaxCommissionRate.IsNegative() {
			return nil, ErrInvalidInput
		}
		if input.MaxCommissionRate.IsPositive() {
			if input.TraderCommissionRate.GreaterThan(input.MaxCommissionRate) ||
				input.DistributorCommissionRate.GreaterThan(input.MaxCommissionRate) {
				return nil, ErrInvalidInput
			}
		}
	}

	// 重复 slug 先查一次给出友好错误，唯一索引兜底并发
	if dup, err := s.repo.GetBySlug(slug); err != nil {
		return nil, err
	} else if dup != nil && (existing == nil || dup.ID != existing.ID) {
		return nil, ErrSlugExists
	}

	product := existing
	if product == nil {
		product = &models.Product{IsActive: true, Stock: -1}
	}
	product.CategoryID = input.CategoryID
	product.Slug = slug
	product.TitleJSON = models.JSON(input.TitleJSON)
	product.DescriptionJSON = models.JSON(input.DescriptionJSON)
	product.RetailPrice = models.NewMoneyFromDecimal(retail)
	product.TraderPrice = models.NewMoneyFromDecimal(input.TraderPrice.Round(2))
	product.DistributorPrice = models.NewMoneyFromDecimal(input.DistributorPrice.Round(2))
	product.CommissionMode = mode
	product.TraderCommissionRate = models.NewMoneyFromDecimal(input.TraderCommissionRate)
	product.DistributorCommissionRate = models.NewMoneyFromDecimal(input.DistributorCommissionRate)
	product.MaxCommissionRate = models.NewMoneyFromDecimal(input.MaxCommissionRate)
	product.Images = models.StringArray(input.Images)
	product.Tags = models.StringArray(input.Tags)
	product.SortOrder = input.SortOrder
	if input.Stock != nil {
		if *input.Stock < -1 {
			return nil, ErrInvalidInput
		}
		product.Stock = *input.Stock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	return product, nil
}

func normalizeCommissionMode(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "", constants.ProductCommissionModeLevel:
		return constants.ProductCommissionModeLevel
	case constants.ProductCommissionModeTier:
		return constants.ProductCommissionModeTier
	default:
		return ""
	}
}
