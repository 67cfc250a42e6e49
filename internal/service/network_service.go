package service

import (
	"sort"

	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NetworkService 推荐关系网络服务
// 推荐关系的唯一写入入口在这里：任何绑定上级的路径都必须经过 CreateUserRelationship，
// 由它统一做环检测并维护闭包表。
type NetworkService struct {
	networkRepo    repository.NetworkRepository
	userRepo       repository.UserRepository
	orderRepo      repository.OrderRepository
	commissionRepo repository.CommissionRepository
	settingService *SettingService
}

// NewNetworkService 创建推荐关系网络服务
func NewNetworkService(
	networkRepo repository.NetworkRepository,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	commissionRepo repository.CommissionRepository,
	settingService *SettingService,
) *NetworkService {
	return &NetworkService{
		networkRepo:    networkRepo,
		userRepo:       userRepo,
		orderRepo:      orderRepo,
		commissionRepo: commissionRepo,
		settingService: settingService,
	}
}

// NetworkNode 推荐网络树节点
type NetworkNode struct {
	UserID           uint            `json:"user_id"`
	Email            string          `json:"email"`
	DisplayName      string          `json:"display_name"`
	Role             string          `json:"role"`
	Level            int             `json:"level"`
	TotalSales       models.Money    `json:"total_sales"`
	CommissionEarned models.Money    `json:"commission_earned"`
	JoinedAt         time.Time       `json:"joined_at"`
	Children         []*NetworkNode  `json:"children"`
}

// NetworkStats 推荐网络统计
type NetworkStats struct {
	TotalDownlines    int64           `json:"total_downlines"`
	DirectDownlines   int64           `json:"direct_downlines"`
	DownlinesByLevel  map[int]int64   `json:"downlines_by_level"`
	TeamSales         models.Money    `json:"team_sales"`
	PendingCommission models.Money    `json:"pending_commission"`
	PaidCommission    models.Money    `json:"paid_commission"`
	Points            models.Money    `json:"points"`
	VolumeBonusRate   models.Money    `json:"volume_bonus_rate"`
}

// GetUplineChain 自下而上解析推荐链，按层级升序返回祖先用户。
// 沿 upline_id 指针逐级上溯，带已访问集合；链上出现重复节点说明数据损坏，直接报错。
func (s *NetworkService) GetUplineChain(userID uint, maxLevels int) ([]models.User, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	if maxLevels <= 0 || maxLevels > constants.CycleCheckMaxDepth {
		maxLevels = constants.CycleCheckMaxDepth
	}

	current, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}

	visited := map[uint]struct{}{userID: {}}
	chain := make([]models.User, 0, maxLevels)
	for len(chain) < maxLevels {
		if current.UplineID == nil || *current.UplineID == 0 {
			break
		}
		uplineID := *current.UplineID
		if _, seen := visited[uplineID]; seen {
			logger.Errorw("network_upline_chain_cycle",
				"user_id", userID,
				"cycle_at", uplineID,
			)
			return nil, ErrUplineChainInvalid
		}
		upline, err := s.userRepo.GetByID(uplineID)
		if err != nil {
			return nil, err
		}
		if upline == nil {
			logger.Warnw("network_upline_chain_broken",
				"user_id", userID,
				"missing_upline_id", uplineID,
			)
			break
		}
		visited[uplineID] = struct{}{}
		chain = append(chain, *upline)
		current = upline
	}
	return chain, nil
}

// CreateUserRelationship 绑定推荐关系（带环检测与闭包表维护）
func (s *NetworkService) CreateUserRelationship(userID, uplineID uint) error {
	return s.networkRepo.Transaction(func(tx *gorm.DB) error {
		return s.CreateUserRelationshipTx(tx, userID, uplineID)
	})
}

// CreateUserRelationshipTx 在既有事务内绑定推荐关系
// 约束：用户只能绑定一次上级且不可变更；绑定前沿上级的祖先链做环检测。
func (s *NetworkService) CreateUserRelationshipTx(tx *gorm.DB, userID, uplineID uint) error {
	if userID == 0 || uplineID == 0 {
		return ErrInvalidInput
	}
	if userID == uplineID {
		return ErrSelfRelationship
	}

	setting, err := s.settingService.GetNetworkSetting()
	if err != nil {
		return err
	}
	if !setting.Enabled {
		return ErrNetworkDisabled
	}

	networkRepo := s.networkRepo.WithTx(tx)
	userRepo := s.userRepo.WithTx(tx)

	user, err := userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	if user.UplineID != nil && *user.UplineID != 0 {
		return ErrRelationshipForbidden
	}

	upline, err := userRepo.GetByID(uplineID)
	if err != nil {
		return err
	}
	if upline == nil {
		return ErrSponsorCodeInvalid
	}
	if upline.Status == constants.UserStatusDisabled {
		return ErrSponsorCodeInvalid
	}

	exists, err := networkRepo.ExistsRelationship(userID, uplineID)
	if err != nil {
		return err
	}
	if exists {
		return ErrRelationshipExists
	}

	// 环检测：新用户不能出现在上级的祖先链里。
	ancestors, err := networkRepo.ListAncestors(uplineID, constants.CycleCheckMaxDepth)
	if err != nil {
		return err
	}
	visited := map[uint]struct{}{userID: {}, uplineID: {}}
	for _, ancestor := range ancestors {
		if ancestor.UplineID == userID {
			return ErrCircularRelationship
		}
		if _, seen := visited[ancestor.UplineID]; seen {
			return ErrUplineChainInvalid
		}
		visited[ancestor.UplineID] = struct{}{}
	}

	now := time.Now()
	rows := make([]models.UserRelationship, 0, len(ancestors)+1)
	rows = append(rows, models.UserRelationship{
		UserID:            userID,
		UplineID:          uplineID,
		RelationshipLevel: 1,
		CreatedAt:         now,
	})
	for _, ancestor := range ancestors {
		level := ancestor.RelationshipLevel + 1
		if level > constants.CycleCheckMaxDepth {
			break
		}
		rows = append(rows, models.UserRelationship{
			UserID:            userID,
			UplineID:          ancestor.UplineID,
			RelationshipLevel: level,
			CreatedAt:         now,
		})
	}

	if err := networkRepo.CreateRelationships(rows); err != nil {
		if isUniqueViolation(err) {
			return ErrRelationshipExists
		}
		return err
	}
	return userRepo.UpdateUpline(userID, uplineID, now)
}

// GetUserNetwork 展开用户的推荐网络树
// 深度受系统深度上限与网络设置共同约束；已访问集合保证坏数据下也不会死循环。
func (s *NetworkService) GetUserNetwork(userID uint, maxDepth int) (*NetworkNode, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	root, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrNotFound
	}

	setting, err := s.settingService.GetNetworkSetting()
	if err != nil {
		return nil, err
	}
	depth := setting.TreeDepth
	if maxDepth > 0 && maxDepth < depth {
		depth = maxDepth
	}
	if depth > constants.NetworkTreeMaxDepth {
		depth = constants.NetworkTreeMaxDepth
	}

	visited := map[uint]struct{}{userID: {}}
	rootNode := newNetworkNode(root, 0)
	if err := s.expandNetworkNode(rootNode, depth, visited); err != nil {
		return nil, err
	}

	if err := s.fillNetworkNodeTotals(rootNode); err != nil {
		return nil, err
	}
	return rootNode, nil
}

func newNetworkNode(user *models.User, level int) *NetworkNode {
	return &NetworkNode{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Level:       level,
		JoinedAt:    user.CreatedAt,
		Children:    []*NetworkNode{},
	}
}

func (s *NetworkService) expandNetworkNode(node *NetworkNode, maxDepth int, visited map[uint]struct{}) error {
	if node.Level >= maxDepth {
		return nil
	}
	rows, err := s.networkRepo.ListDirectDownlines(node.UserID)
	if err != nil {
		return err
	}
	for i := range rows {
		row := rows[i]
		if _, seen := visited[row.UserID]; seen {
			logger.Warnw("network_tree_duplicate_node",
				"upline_id", node.UserID,
				"user_id", row.UserID,
			)
			continue
		}
		visited[row.UserID] = struct{}{}
		child := newNetworkNode(&row.User, node.Level+1)
		if err := s.expandNetworkNode(child, maxDepth, visited); err != nil {
			return err
		}
		node.Children = append(node.Children, child)
	}
	return nil
}

// fillNetworkNodeTotals 批量回填每个节点的个人销售额与累计佣金
func (s *NetworkService) fillNetworkNodeTotals(root *NetworkNode) error {
	nodes := collectNetworkNodes(root)
	ids := make([]uint, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, node.UserID)
	}

	salesStatuses := []string{constants.OrderStatusPaid, constants.OrderStatusCompleted}
	sales, err := s.orderRepo.SumPaidSalesByUsers(ids, salesStatuses)
	if err != nil {
		return err
	}
	earned, err := s.commissionRepo.SumByRecipients(ids, rejectedExcludedCommissionStatuses())
	if err != nil {
		return err
	}
	for _, node := range nodes {
		node.TotalSales = models.NewMoneyFromDecimal(sales[node.UserID])
		node.CommissionEarned = models.NewMoneyFromDecimal(earned[node.UserID])
	}
	return nil
}

func collectNetworkNodes(root *NetworkNode) []*NetworkNode {
	nodes := []*NetworkNode{}
	queue := []*NetworkNode{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		nodes = append(nodes, node)
		queue = append(queue, node.Children...)
	}
	return nodes
}

// GetNetworkStats 推荐网络统计概览
func (s *NetworkService) GetNetworkStats(userID uint) (*NetworkStats, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	total, err := s.networkRepo.CountDownlines(userID)
	if err != nil {
		return nil, err
	}
	byLevel, err := s.networkRepo.CountDownlinesByLevel(userID)
	if err != nil {
		return nil, err
	}

	downlineIDs, err := s.networkRepo.ListDownlineIDs(userID)
	if err != nil {
		return nil, err
	}
	teamSales := decimal.Zero
	if len(downlineIDs) > 0 {
		salesStatuses := []string{constants.OrderStatusPaid, constants.OrderStatusCompleted}
		sales, err := s.orderRepo.SumPaidSalesByUsers(downlineIDs, salesStatuses)
		if err != nil {
			return nil, err
		}
		for _, amount := range sales {
			teamSales = teamSales.Add(amount)
		}
	}

	pending, err := s.commissionRepo.SumByRecipient(userID, []string{constants.CommissionStatusPending})
	if err != nil {
		return nil, err
	}
	paid, err := s.commissionRepo.SumByRecipient(userID, []string{constants.CommissionStatusPaid})
	if err != nil {
		return nil, err
	}

	points := decimal.Zero
	if row, err := s.commissionRepo.GetPointsByUser(userID); err != nil {
		return nil, err
	} else if row != nil {
		points = row.Points.Decimal
	}

	return &NetworkStats{
		TotalDownlines:    total,
		DirectDownlines:   byLevel[1],
		DownlinesByLevel:  byLevel,
		TeamSales:         models.NewMoneyFromDecimal(teamSales),
		PendingCommission: models.NewMoneyFromDecimal(pending),
		PaidCommission:    models.NewMoneyFromDecimal(paid),
		Points:            models.NewMoneyFromDecimal(points),
		VolumeBonusRate:   user.VolumeBonusRate,
	}, nil
}

// ListDirectDownlines 直属下级列表（按加入时间倒序）
func (s *NetworkService) ListDirectDownlines(userID uint) ([]models.User, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	rows, err := s.networkRepo.ListDirectDownlines(userID)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.User)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func rejectedExcludedCommissionStatuses() []string {
	return []string{constants.CommissionStatusPending, constants.CommissionStatusPaid}
}
