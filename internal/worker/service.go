package worker

import (
	"context"
	"errors"
	"time"

	"github.com/nairamart-next/internal/config"
	"github.com/nairamart-next/internal/logger"
	"github.com/nairamart-next/internal/queue"

	"github.com/hibiken/asynq"
)

// 过期订单扫描周期，兜底用户访问触发的惰性取消
const orderExpireSweepInterval = time.Minute

// Service 对账 worker：跑 asynq 消费端，外加一个过期订单扫描循环
type Service struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		server:   asynq.NewServer(opt, serverCfg),
		mux:      mux,
		consumer: consumer,
	}, nil
}

func (s *Service) Name() string {
	return "worker"
}

// Start 阻塞运行消费端，扫描循环挂在同一个 ctx 上
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.OrderService != nil {
		go s.sweepExpiredOrdersLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 优雅停机，等在途任务跑完
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) sweepExpiredOrdersLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.OrderService == nil {
		return
	}
	sweep := func() {
		canceled, err := s.consumer.OrderService.SweepExpiredOrders()
		if err != nil {
			logger.Warnw("worker_order_expire_sweep_failed", "error", err)
			return
		}
		if canceled > 0 {
			logger.Infow("worker_order_expire_sweep_done", "canceled", canceled)
		}
	}
	sweep()

	ticker := time.NewTicker(orderExpireSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
