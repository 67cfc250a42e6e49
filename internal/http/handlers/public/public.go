package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/cache"
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	publicConfigCacheKey = "public:config"
	publicConfigCacheTTL = 60 * time.Second
	publicLowStockLimit  = 5
)

// 商品库存展示状态
const (
	stockStatusUnlimited  = "unlimited"
	stockStatusInStock    = "in_stock"
	stockStatusLowStock   = "low_stock"
	stockStatusOutOfStock = "out_of_stock"
)

// PublicProductView 公共商品响应结构
type PublicProductView struct {
	models.Product
	StockStatus string `json:"stock_status"`
	IsSoldOut   bool   `json:"is_sold_out"`
}

// GetConfig 获取全局配置
func (h *Handler) GetConfig(c *gin.Context) {
	// 默认配置
	defaults := map[string]interface{}{
		"languages":                        constants.SupportedLocales,
		constants.SettingFieldSiteCurrency: constants.SiteCurrencyDefault,
		"contact":                          map[string]interface{}{},
	}

	var cached map[string]interface{}
	if hit, err := cache.GetJSON(c.Request.Context(), publicConfigCacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	data, err := h.SettingService.GetConfig(defaults)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}

	networkSetting, err := h.SettingService.GetNetworkSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	data["network"] = map[string]interface{}{
		"enabled":           networkSetting.Enabled,
		"commission_levels": networkSetting.CommissionLevels,
		"points_enabled":    networkSetting.PointsEnabled,
	}

	_ = cache.SetJSON(c.Request.Context(), publicConfigCacheKey, data, publicConfigCacheTTL)
	response.Success(c, data)
}

// GetProducts 获取商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	categoryID := c.Query("category_id")
	search := strings.TrimSpace(c.Query("search"))

	products, total, err := h.ProductService.ListPublic(categoryID, search, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	decorated := make([]PublicProductView, 0, len(products))
	for i := range products {
		decorated = append(decorated, decoratePublicProduct(&products[i]))
	}

	response.SuccessWithPage(c, decorated, response.BuildPagination(page, pageSize, total))
}

// GetProductBySlug 根据 slug 获取商品详情
func (h *Handler) GetProductBySlug(c *gin.Context) {
	slug := c.Param("slug")

	product, err := h.ProductService.GetPublicBySlug(slug)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	response.Success(c, decoratePublicProduct(product))
}

func decoratePublicProduct(product *models.Product) PublicProductView {
	if product == nil {
		return PublicProductView{}
	}
	item := PublicProductView{Product: *product}

	switch {
	case product.Stock < 0:
		item.StockStatus = stockStatusUnlimited
	case product.Stock == 0:
		item.StockStatus = stockStatusOutOfStock
		item.IsSoldOut = true
	case product.Stock <= publicLowStockLimit:
		item.StockStatus = stockStatusLowStock
	default:
		item.StockStatus = stockStatusInStock
	}
	return item
}

// GetCategories 获取分类列表
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.CategoryService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.category_fetch_failed", err)
		return
	}

	response.Success(c, categories)
}

// GetCommissionTiers 获取佣金层级比例表（公开展示）
func (h *Handler) GetCommissionTiers(c *gin.Context) {
	tiers, err := h.CommissionService.ListCommissionTiers()
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.Success(c, tiers)
}
