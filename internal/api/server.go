package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/socialzwater/backend/internal/api/handlers"
	"github.com/socialzwater/backend/internal/auth"
	"github.com/socialzwater/backend/internal/health"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/metrics"
	"github.com/socialzwater/backend/internal/services"
	"github.com/socialzwater/backend/internal/websocket"
)

type Server struct {
	router   *gin.Engine
	services *services.Container
	health   *health.Checker
}

func NewServer(svc *services.Container, checker *health.Checker) *Server {
	if !svc.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	websocket.SetAllowedOrigin(svc.Config.CORSOrigin)

	server := &Server{
		router:   gin.New(),
		services: svc,
		health:   checker,
	}

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

// Router exposes the gin engine, mainly for http.Server and tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(logger.GinRecovery())
	s.router.Use(logger.GinMiddleware())
	s.router.Use(metrics.GinMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(securityHeaders())
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	origin := s.services.Config.CORSOrigin
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")
		if origin != "*" {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

func (s *Server) rateLimit(scope string, config auth.RateLimitConfig) gin.HandlerFunc {
	return auth.RateLimitMiddleware(s.services.RateLimiter, scope, config)
}

func (s *Server) setupRoutes() {
	s.health.RegisterRoutes(s.router)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public QR landing pages. /sw/ is what the printed codes point at; the
	// bare paths serve older labels.
	landingHandler := handlers.NewLandingHandler(s.services)
	trackingHandler := handlers.NewTrackingHandler(s.services)
	for _, prefix := range []string{"/sw", ""} {
		public := s.router.Group(prefix)
		{
			landing := public.Group("/adv/:uid", s.rateLimit(auth.ScopeLanding, auth.RateLimitLanding))
			landing.GET("/", landingHandler.View)
			landing.POST("/", landingHandler.Submit)

			public.POST("/track-video/", s.rateLimit(auth.ScopeTracking, auth.RateLimitTracking), trackingHandler.Track)
		}
	}

	v1 := s.router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(s.services)
		v1.POST("/auth/login", s.rateLimit(auth.ScopeAuth, auth.RateLimitAuth), authHandler.Login)

		v1.GET("/ws", s.serveWs)

		protected := v1.Group("")
		protected.Use(auth.AuthMiddleware(s.services.Auth))
		{
			protected.GET("/auth/me", authHandler.Me)

			clients := protected.Group("/clients")
			{
				clientHandler := handlers.NewClientHandler(s.services)
				clients.GET("", clientHandler.List)
				clients.POST("", clientHandler.Create)
				clients.GET("/:id", clientHandler.Get)
				clients.PUT("/:id", clientHandler.Update)
				clients.DELETE("/:id", clientHandler.Delete)
			}

			campaigns := protected.Group("/campaigns")
			{
				campaignHandler := handlers.NewCampaignHandler(s.services)
				campaigns.GET("", campaignHandler.List)
				campaigns.POST("", campaignHandler.Create)
				campaigns.GET("/:id", campaignHandler.Get)
				campaigns.PUT("/:id", campaignHandler.Update)
				campaigns.DELETE("/:id", campaignHandler.Delete)
			}

			reports := protected.Group("/reports")
			{
				reportHandler := handlers.NewReportHandler(s.services)
				reports.GET("", reportHandler.List)
				reports.GET("/:uid", reportHandler.Get)
			}

			rewards := protected.Group("/rewards")
			{
				rewardHandler := handlers.NewRewardHandler(s.services)
				rewards.GET("", rewardHandler.List)
				rewards.GET("/:id", rewardHandler.Detail)
				rewards.PATCH("/:id/scans/:scan_id", rewardHandler.UpdateStatus)
				rewards.POST("/:id/bulk", rewardHandler.BulkUpdate)
				rewards.GET("/:id/export", rewardHandler.Export)
			}

			exports := protected.Group("/exports")
			{
				exportHandler := handlers.NewExportHandler(s.services)
				exports.GET("/scans", exportHandler.Scans)
				exports.GET("/scans/:uid", exportHandler.Scans)
				exports.GET("/supply-chain/:kind", exportHandler.SupplyChain)
			}

			manufacturers := protected.Group("/manufacturers")
			{
				manufacturerHandler := handlers.NewManufacturerHandler(s.services)
				manufacturers.GET("", manufacturerHandler.List)
				manufacturers.POST("", manufacturerHandler.Create)
				manufacturers.GET("/:id", manufacturerHandler.Get)
				manufacturers.PUT("/:id", manufacturerHandler.Update)
				manufacturers.POST("/:id/toggle-active", manufacturerHandler.ToggleActive)
				manufacturers.DELETE("/:id", manufacturerHandler.Delete)
			}

			orders := protected.Group("/orders")
			{
				orderHandler := handlers.NewOrderHandler(s.services)
				orders.GET("", orderHandler.List)
				orders.POST("", orderHandler.Create)
				orders.GET("/:id", orderHandler.Get)
				orders.PATCH("/:id/status", orderHandler.UpdateStatus)
				orders.PATCH("/:id/priority", orderHandler.UpdatePriority)
				orders.DELETE("/:id", orderHandler.Delete)
			}

			suppliers := protected.Group("/suppliers")
			{
				supplierHandler := handlers.NewSupplierHandler(s.services)
				suppliers.GET("", supplierHandler.List)
				suppliers.POST("", supplierHandler.Create)
				suppliers.GET("/:id", supplierHandler.Get)
				suppliers.PATCH("/:id/rating", supplierHandler.UpdateRating)
				suppliers.POST("/:id/toggle-active", supplierHandler.ToggleActive)
				suppliers.DELETE("/:id", supplierHandler.Delete)
			}

			supplies := protected.Group("/supplies")
			{
				supplyHandler := handlers.NewSupplyHandler(s.services)
				supplies.GET("", supplyHandler.List)
				supplies.POST("", supplyHandler.Create)
				supplies.GET("/:id", supplyHandler.Get)
				supplies.PATCH("/:id/status", supplyHandler.UpdateStatus)
				supplies.DELETE("/:id", supplyHandler.Delete)
			}

			dashboard := protected.Group("/dashboard")
			{
				dashboardHandler := handlers.NewDashboardHandler(s.services)
				dashboard.GET("/stats", dashboardHandler.GetStats)
				dashboard.GET("/campaigns/recent", dashboardHandler.GetRecentCampaigns)
			}

			protected.GET("/audit-logs", handlers.NewAuditHandler(s.services).List)
		}
	}
}

// serveWs upgrades an operator connection. Browsers cannot set headers on a
// websocket handshake, so the token comes in the query string.
func (s *Server) serveWs(c *gin.Context) {
	claims, err := s.services.Auth.ValidateAccessToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	s.services.WSHub.ServeWs(c.Writer, c.Request, strconv.FormatUint(uint64(claims.OperatorID), 10))
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
