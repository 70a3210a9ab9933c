package provider

import (
	"github.com/nairamart-next/internal/authz"
	"github.com/nairamart-next/internal/cache"
	"github.com/nairamart-next/internal/config"
	"github.com/nairamart-next/internal/logger"
	"github.com/nairamart-next/internal/models"
	"github.com/nairamart-next/internal/paystack"
	"github.com/nairamart-next/internal/queue"
	"github.com/nairamart-next/internal/repository"
	"github.com/nairamart-next/internal/service"
)

// Container 进程级依赖装配，HTTP handler 和 worker 共用一份
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	PaystackCfg *paystack.Config

	// Repositories
	AdminRepo            repository.AdminRepository
	UserRepo             repository.UserRepository
	OrderRepo            repository.OrderRepository
	WalletRepo           repository.WalletRepository
	PaymentReferenceRepo repository.PaymentReferenceRepository
	TopupRepo            repository.TopupRepository
	ReconcileAlertRepo   repository.ReconcileAlertRepository

	// Services
	AuthzService     *authz.Service
	AuthService      *service.AuthService
	UserAuthService  *service.UserAuthService
	WalletService    *service.WalletService
	OrderService     *service.OrderService
	TopupService     *service.TopupService
	ReconcileService *service.ReconcileService
}

// NewContainer 按 缓存 -> 队列 -> 仓储 -> 服务 的顺序装配依赖，
// 缓存和队列装配失败只降级不拦启动
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	psCfg := &paystack.Config{
		SecretKey:   cfg.Paystack.SecretKey,
		BaseURL:     cfg.Paystack.BaseURL,
		CallbackURL: cfg.Paystack.CallbackURL,
		TimeoutMS:   cfg.Paystack.TimeoutMS,
		Currency:    cfg.Paystack.Currency,
	}
	psCfg.Normalize()

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		PaystackCfg: psCfg,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.PaymentReferenceRepo = repository.NewPaymentReferenceRepository(db)
	c.TopupRepo = repository.NewTopupRepository(db)
	c.ReconcileAlertRepo = repository.NewReconcileAlertRepository(db)
}

// initServices 授权装不起来直接 panic，带不完整的权限面跑管理端更危险
func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.WalletService = service.NewWalletService(c.WalletRepo, c.UserRepo, c.PaystackCfg, c.Config.Wallet)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.UserRepo, c.WalletService, c.PaystackCfg, c.Config.Order.PaymentExpireMinutes)
	c.TopupService = service.NewTopupService(c.TopupRepo, c.WalletService, c.QueueClient)
	c.ReconcileService = service.NewReconcileService(
		c.PaymentReferenceRepo,
		c.OrderRepo,
		c.UserRepo,
		c.ReconcileAlertRepo,
		c.WalletService,
		c.QueueClient,
		c.PaystackCfg,
	)
}
