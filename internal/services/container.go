package services

import (
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/socialzwater/backend/internal/audit"
	"github.com/socialzwater/backend/internal/auth"
	"github.com/socialzwater/backend/internal/binding"
	"github.com/socialzwater/backend/internal/config"
	"github.com/socialzwater/backend/internal/locks"
	"github.com/socialzwater/backend/internal/websocket"
)

// Container holds all service instances
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	WSHub  *websocket.Hub

	// Infrastructure
	Locks       *locks.LockManager
	Bindings    binding.Store
	Audit       *audit.Logger
	Auth        *auth.AuthService
	RateLimiter *auth.RateLimiter

	// Scan engine
	Scan       *ScanService
	Tracking   *TrackingService
	Submission *SubmissionService
	Reward     *RewardService

	// Back office
	Client    *ClientService
	Campaign  *CampaignService
	Report    *ReportService
	Dashboard *DashboardService
	Export    *ExportService

	// Supply chain
	Manufacturer *ManufacturerService
	Order        *OrderService
	Supplier     *SupplierService
	Supply       *SupplyService
}

func NewContainer(cfg *config.Config, db *gorm.DB, redis *redis.Client, wsHub *websocket.Hub) *Container {
	container := &Container{
		Config: cfg,
		DB:     db,
		Redis:  redis,
		WSHub:  wsHub,
	}

	// Infrastructure first, the services below depend on it
	container.Locks = locks.NewLockManager(redis)
	container.Bindings = binding.NewRedisStore(redis, cfg.BindingTTL)
	container.Audit = audit.NewLogger(db)
	container.Auth = auth.NewAuthService(db, cfg.JWTSecret, cfg.AccessTokenTTL)
	container.RateLimiter = auth.NewRateLimiter(redis)

	container.Scan = NewScanService(container)
	container.Tracking = NewTrackingService(container)
	container.Submission = NewSubmissionService(container)
	container.Reward = NewRewardService(container)

	container.Client = NewClientService(container)
	container.Campaign = NewCampaignService(container)
	container.Report = NewReportService(container)
	container.Dashboard = NewDashboardService(container)
	container.Export = NewExportService(container)

	container.Manufacturer = NewManufacturerService(container)
	container.Order = NewOrderService(container)
	container.Supplier = NewSupplierService(container)
	container.Supply = NewSupplyService(container)

	return container
}

// Close flushes background writers.
func (c *Container) Close() {
	c.Audit.Stop()
}
