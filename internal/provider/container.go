package provider

import (
	"context"

	"github.com/modaplex/internal/archive"
	"github.com/modaplex/internal/authz"
	"github.com/modaplex/internal/cache"
	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/events"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/payment"
	"github.com/modaplex/internal/queue"
	"github.com/modaplex/internal/repository"
	"github.com/modaplex/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Publisher   events.Publisher
	Archive     archive.WebhookArchive

	// Repositories
	UserRepo         repository.UserRepository
	VendorRepo       repository.VendorRepository
	ProductRepo      repository.ProductRepository
	CartRepo         repository.CartRepository
	OrderRepo        repository.OrderRepository
	OrderHistoryRepo repository.OrderStatusHistoryRepository
	PaymentRepo      repository.PaymentRepository
	CommissionRepo   repository.CommissionRepository
	PayoutRepo       repository.PayoutRepository
	SalesReportRepo  repository.SalesReportRepository

	// Services
	AuthzService       *authz.Service
	AuthService        *service.AuthService
	VendorService      *service.VendorService
	ProductService     *service.ProductService
	CartService        *service.CartService
	StatusTracker      *service.StatusTracker
	OrderService       *service.OrderService
	PaymentService     *service.PaymentService
	CommissionService  *service.CommissionService
	PayoutService      *service.PayoutService
	SalesReportService *service.SalesReportService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	publisher, err := events.NewPublisher(&cfg.Events)
	if err != nil {
		logger.Warnw("provider_init_events_failed", "error", err, "fallback", "noop")
		publisher = events.NoopPublisher{}
	}

	webhookArchive, err := archive.New(context.Background(), &cfg.Archive)
	if err != nil {
		logger.Warnw("provider_init_archive_failed", "error", err, "fallback", "noop")
		webhookArchive = archive.NoopArchive{}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Publisher:   publisher,
		Archive:     webhookArchive,
	}

	// 1. 初始化 Repositories
	c.initRepositories(models.DB)

	// 2. 初始化 Services
	c.initServices(models.DB)

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UserRepo = repository.NewUserRepository(db)
	c.VendorRepo = repository.NewVendorRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.OrderHistoryRepo = repository.NewOrderStatusHistoryRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
	c.SalesReportRepo = repository.NewSalesReportRepository(db)
}

func (c *Container) initServices(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	cfg := c.Config
	c.AuthService = service.NewAuthService(cfg.JWT, c.UserRepo)
	c.VendorService = service.NewVendorService(c.VendorRepo, c.UserRepo)
	c.ProductService = service.NewProductService(c.ProductRepo, c.VendorRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, cfg.Cart.MaxQuantityPerItem)
	payoutRules := service.PayoutRulesFromConfig(cfg.Payout)
	ledger := service.NewPayoutLedger(c.PayoutRepo, c.CommissionRepo, payoutRules)
	totalsRules := service.TotalsRulesFromConfig(cfg.Order)
	c.StatusTracker = service.NewStatusTracker(service.StatusTrackerOptions{
		OrderRepo:   c.OrderRepo,
		HistoryRepo: c.OrderHistoryRepo,
		ProductRepo: c.ProductRepo,
		Ledger:      ledger,
		Rules:       totalsRules,
		Publisher:   c.Publisher,
	})
	c.CommissionService = service.NewCommissionService(c.CommissionRepo, c.OrderRepo, ledger, cfg.Commission.PlatformFeePercent, cfg.Commission.HoldDays)
	c.OrderService = service.NewOrderService(service.OrderServiceOptions{
		OrderRepo:            c.OrderRepo,
		HistoryRepo:          c.OrderHistoryRepo,
		ProductRepo:          c.ProductRepo,
		CartRepo:             c.CartRepo,
		PaymentRepo:          c.PaymentRepo,
		Tracker:              c.StatusTracker,
		Materializer:         service.NewItemMaterializer(service.NewRateResolver(cfg.Commission.PlatformDefaultRate)),
		Rules:                totalsRules,
		QueueClient:          c.QueueClient,
		Publisher:            c.Publisher,
		Currency:             cfg.Order.Currency,
		PaymentExpireMinutes: cfg.Order.PaymentExpireMinutes,
	})
	c.PaymentService = service.NewPaymentService(service.PaymentServiceOptions{
		OrderRepo:     c.OrderRepo,
		PaymentRepo:   c.PaymentRepo,
		Tracker:       c.StatusTracker,
		CommissionSvc: c.CommissionService,
		QueueClient:   c.QueueClient,
		Publisher:     c.Publisher,
		Archive:       c.Archive,
		Gateway:       payment.PendingGateway{},
		Config:        cfg.Payment,
	})
	c.PayoutService = service.NewPayoutService(c.PayoutRepo, c.CommissionRepo, c.VendorRepo, c.Publisher, payoutRules, cfg.Order.Currency)
	c.SalesReportService = service.NewSalesReportService(c.SalesReportRepo)
}

// Close 释放外部连接
func (c *Container) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_failed", "error", err)
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Warnw("provider_close_events_failed", "error", err)
		}
	}
	if c.Archive != nil {
		if err := c.Archive.Close(ctx); err != nil {
			logger.Warnw("provider_close_archive_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
