package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/queue"
	"github.com/fenxiao-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
// 支付成功后通过队列触发佣金结算：佣金失败不回滚订单，由队列重试补偿。
type OrderService struct {
	orderRepo      repository.OrderRepository
	productRepo    repository.ProductRepository
	cartRepo       repository.CartRepository
	userRepo       repository.UserRepository
	queueClient    *queue.Client
	settingService *SettingService
	expireMinutes  int
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	userRepo repository.UserRepository,
	queueClient *queue.Client,
	settingService *SettingService,
	expireMinutes int,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		cartRepo:       cartRepo,
		userRepo:       userRepo,
		queueClient:    queueClient,
		settingService: settingService,
		expireMinutes:  expireMinutes,
	}
}

// CreateOrderItem 创建订单项输入
type CreateOrderItem struct {
	ProductID uint
	Quantity  int
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	UserID   uint
	Items    []CreateOrderItem
	ClientIP string
}

// CreateOrder 按明细创建订单
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	items, err := mergeCreateOrderItems(input.Items)
	if err != nil {
		return nil, err
	}
	return s.createOrder(input.UserID, items, input.ClientIP, false)
}

// CreateOrderFromCart 将购物车整体转为订单，成功后清空购物车
func (s *OrderService) CreateOrderFromCart(userID uint, clientIP string) (*models.Order, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	cartItems, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrCartEmpty
	}
	items := make([]CreateOrderItem, 0, len(cartItems))
	for _, item := range cartItems {
		items = append(items, CreateOrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	merged, err := mergeCreateOrderItems(items)
	if err != nil {
		return nil, err
	}
	return s.createOrder(userID, merged, clientIP, true)
}

func (s *OrderService) createOrder(userID uint, items []CreateOrderItem, clientIP string, fromCart bool) (*models.Order, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if user.Status == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	productIDs := make([]uint, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.ListByIDs(productIDs)
	if err != nil {
		return nil, err
	}
	productByID := make(map[uint]models.Product, len(products))
	for _, product := range products {
		productByID[product.ID] = product
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(s.resolveExpireMinutes()) * time.Minute)
	order := &models.Order{
		OrderNo:   generateOrderNo(),
		UserID:    userID,
		Status:    constants.OrderStatusPendingPayment,
		Currency:  s.resolveSiteCurrency(),
		ClientIP:  strings.TrimSpace(clientIP),
		ExpiresAt: &expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	total := decimal.Zero
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := productByID[item.ProductID]
		if !ok || !product.IsActive {
			return nil, ErrProductNotFound
		}
		if product.Stock >= 0 && item.Quantity > product.Stock {
			return nil, ErrStockInsufficient
		}
		unitPrice := product.PriceForRole(user.Role)
		subtotal := unitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(subtotal)
		orderItems = append(orderItems, models.OrderItem{
			ProductID:                 product.ID,
			TitleJSON:                 product.TitleJSON,
			CommissionMode:            product.CommissionMode,
			TraderCommissionRate:      product.TraderCommissionRate,
			DistributorCommissionRate: product.DistributorCommissionRate,
			MaxCommissionRate:         product.MaxCommissionRate,
			UnitPrice:                 unitPrice,
			Quantity:                  item.Quantity,
			TotalPrice:                models.NewMoneyFromDecimal(subtotal),
			CreatedAt:                 now,
			UpdatedAt:                 now,
		})
	}
	order.TotalAmount = models.NewMoneyFromDecimal(total)

	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		for _, item := range items {
			product := productByID[item.ProductID]
			if product.Stock < 0 {
				continue
			}
			affected, err := productRepo.AdjustStock(item.ProductID, -item.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrStockInsufficient
			}
		}
		if err := orderRepo.Create(order, orderItems); err != nil {
			return err
		}
		if fromCart {
			return s.cartRepo.WithTx(tx).ClearByUser(userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	order.Items = orderItems

	if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{
		OrderID: order.ID,
	}, time.Until(expiresAt)); err != nil {
		logger.Errorw("order_enqueue_timeout_cancel_failed",
			"order_id", order.ID,
			"error", err,
		)
	}
	return order, nil
}

// PayOrder 确认支付（余额外部到账后的确认入口）
// 状态翻转提交后再异步触发佣金结算，结算失败不影响支付结果。
func (s *OrderService) PayOrder(orderID, userID uint) (*models.Order, error) {
	var order *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		locked, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if locked == nil || (userID != 0 && locked.UserID != userID) {
			return ErrOrderNotFound
		}
		if locked.Status != constants.OrderStatusPendingPayment {
			return ErrOrderStatusInvalid
		}
		now := time.Now()
		if locked.ExpiresAt != nil && locked.ExpiresAt.Before(now) {
			return ErrOrderStatusInvalid
		}
		if err := orderRepo.UpdateStatus(locked.ID, constants.OrderStatusPaid, map[string]interface{}{
			"paid_at":    now,
			"updated_at": now,
		}); err != nil {
			return err
		}
		locked.Status = constants.OrderStatusPaid
		locked.PaidAt = &now
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueueCommissionProcess(order.ID)
	return order, nil
}

func (s *OrderService) enqueueCommissionProcess(orderID uint) {
	if err := s.queueClient.EnqueueCommissionProcess(queue.CommissionProcessPayload{
		OrderID: orderID,
	}); err != nil {
		logger.Errorw("order_enqueue_commission_failed",
			"order_id", orderID,
			"error", err,
		)
	}
}

// CancelOrder 用户取消待支付订单
func (s *OrderService) CancelOrder(orderID, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return nil, ErrOrderNotCancellable
	}
	return s.cancelOrder(order, "用户取消")
}

// cancelOrder 取消订单并回补库存
func (s *OrderService) cancelOrder(order *models.Order, reason string) (*models.Order, error) {
	wasPaid := order.Status == constants.OrderStatusPaid
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		locked, err := orderRepo.GetByIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		if locked.Status == constants.OrderStatusCanceled {
			return nil
		}
		if locked.Status == constants.OrderStatusCompleted {
			return ErrOrderNotCancellable
		}
		wasPaid = locked.Status == constants.OrderStatusPaid

		now := time.Now()
		if err := orderRepo.UpdateStatus(locked.ID, constants.OrderStatusCanceled, map[string]interface{}{
			"canceled_at": now,
			"updated_at":  now,
		}); err != nil {
			return err
		}
		full, err := orderRepo.GetByID(locked.ID)
		if err != nil {
			return err
		}
		if full != nil {
			for _, item := range full.Items {
				if _, err := productRepo.AdjustStock(item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		order.Status = constants.OrderStatusCanceled
		order.CanceledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if wasPaid {
		if err := s.queueClient.EnqueueCommissionOrderVoid(queue.CommissionOrderVoidPayload{
			OrderID: order.ID,
			Reason:  reason,
		}); err != nil {
			logger.Errorw("order_enqueue_commission_void_failed",
				"order_id", order.ID,
				"error", err,
			)
		}
	}
	return order, nil
}

// UpdateOrderStatus 管理端更新订单状态
func (s *OrderService) UpdateOrderStatus(orderID uint, targetStatus string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	target := strings.ToLower(strings.TrimSpace(targetStatus))
	if !isTransitionAllowed(order.Status, target) {
		return nil, ErrOrderStatusInvalid
	}

	switch target {
	case constants.OrderStatusCanceled:
		return s.cancelOrder(order, "管理员取消")
	case constants.OrderStatusPaid:
		return s.PayOrder(order.ID, 0)
	case constants.OrderStatusCompleted:
		now := time.Now()
		if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusCompleted, map[string]interface{}{
			"completed_at": now,
			"updated_at":   now,
		}); err != nil {
			return nil, err
		}
		order.Status = constants.OrderStatusCompleted
		order.CompletedAt = &now
		return order, nil
	default:
		return nil, ErrOrderStatusInvalid
	}
}

// CancelExpiredOrder 超时取消订单（队列触发）
func (s *OrderService) CancelExpiredOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return order, nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
		return order, nil
	}
	return s.cancelOrder(order, "支付超时")
}

// CancelExpiredOrders 批量取消过期订单（兜底巡检）
func (s *OrderService) CancelExpiredOrders(limit int) (int, error) {
	orders, err := s.orderRepo.ListExpired(time.Now(), limit)
	if err != nil {
		return 0, err
	}
	canceled := 0
	for i := range orders {
		if _, err := s.cancelOrder(&orders[i], "支付超时"); err != nil {
			logger.Warnw("order_expire_cancel_failed",
				"order_id", orders[i].ID,
				"error", err,
			)
			continue
		}
		canceled++
	}
	return canceled, nil
}

// ensureOrderCanceledIfExpired 读取时懒同步过期订单状态
func (s *OrderService) ensureOrderCanceledIfExpired(order *models.Order) error {
	if order == nil || order.Status != constants.OrderStatusPendingPayment {
		return nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
		return nil
	}
	_, err := s.cancelOrder(order, "支付超时")
	return err
}

// GetOrderByUser 获取订单详情
func (s *OrderService) GetOrderByUser(orderID, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.ensureOrderCanceledIfExpired(order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderByUserOrderNo 按订单号获取用户订单详情
func (s *OrderService) GetOrderByUserOrderNo(orderNo string, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(strings.TrimSpace(orderNo), userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.ensureOrderCanceledIfExpired(order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrdersByUser 获取用户订单列表
func (s *OrderService) ListOrdersByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(filter)
}

// ListOrdersForAdmin 管理端订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// GetOrderForAdmin 管理端订单详情
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) resolveExpireMinutes() int {
	defaultMinutes := s.expireMinutes
	if defaultMinutes <= 0 {
		defaultMinutes = 15
	}
	if s.settingService == nil {
		return defaultMinutes
	}
	minutes, err := s.settingService.GetOrderPaymentExpireMinutes(defaultMinutes)
	if err != nil {
		return defaultMinutes
	}
	if minutes <= 0 {
		return defaultMinutes
	}
	return minutes
}

func (s *OrderService) resolveSiteCurrency() string {
	if s == nil || s.settingService == nil {
		return constants.SiteCurrencyDefault
	}
	currency, err := s.settingService.GetSiteCurrency(constants.SiteCurrencyDefault)
	if err != nil {
		return constants.SiteCurrencyDefault
	}
	return currency
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	randPart := randNumeric(6)
	return fmt.Sprintf("FX%s%s", now, randPart)
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}

// mergeCreateOrderItems 合并重复商品的下单项
func mergeCreateOrderItems(items []CreateOrderItem) ([]CreateOrderItem, error) {
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}
	merged := make([]CreateOrderItem, 0, len(items))
	index := make(map[uint]int, len(items))
	for _, item := range items {
		if item.ProductID == 0 {
			return nil, ErrInvalidInput
		}
		if item.Quantity <= 0 {
			return nil, ErrCartQuantityInvalid
		}
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}
