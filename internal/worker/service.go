package worker

import (
	"context"
	"errors"

	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/queue"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

const (
	// volumeBonusCronSpec 每日刷新销量加成比例
	volumeBonusCronSpec = "0 2 * * *"
	// expiredOrderCronSpec 周期性兜底清理超时未支付订单
	expiredOrderCronSpec = "@every 5m"
	// expiredOrderSweepLimit 单次兜底清理的订单上限
	expiredOrderSweepLimit = 200
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	cron     *cron.Cron
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
		cron:     cron.New(),
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	s.startCronJobs()
	_ = ctx
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	if s.cron != nil {
		cronCtx := s.cron.Stop()
		<-cronCtx.Done()
	}
	s.server.Shutdown()
	return nil
}

func (s *Service) startCronJobs() {
	if s == nil || s.cron == nil || s.consumer == nil {
		return
	}

	if s.consumer.QueueClient != nil {
		if _, err := s.cron.AddFunc(volumeBonusCronSpec, func() {
			if err := s.consumer.QueueClient.EnqueueVolumeBonusRecompute(); err != nil {
				logger.Warnw("worker_enqueue_volume_bonus_recompute_failed", "error", err)
			}
		}); err != nil {
			logger.Errorw("worker_cron_volume_bonus_register_failed", "error", err)
		}
	}

	if s.consumer.OrderService != nil {
		if _, err := s.cron.AddFunc(expiredOrderCronSpec, func() {
			canceled, err := s.consumer.OrderService.CancelExpiredOrders(expiredOrderSweepLimit)
			if err != nil {
				logger.Warnw("worker_cancel_expired_orders_failed", "error", err)
				return
			}
			if canceled > 0 {
				logger.Infow("worker_cancel_expired_orders_done", "canceled", canceled)
			}
		}); err != nil {
			logger.Errorw("worker_cron_expired_orders_register_failed", "error", err)
		}
	}

	s.cron.Start()
}
