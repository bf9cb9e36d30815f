package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Musavvir24/my-software/internal/activity"
	"github.com/Musavvir24/my-software/internal/auth"
	"github.com/Musavvir24/my-software/internal/config"
	"github.com/Musavvir24/my-software/internal/dashboard"
	"github.com/Musavvir24/my-software/internal/inventory"
	"github.com/Musavvir24/my-software/internal/invoice"
	"github.com/Musavvir24/my-software/internal/party"
	"github.com/Musavvir24/my-software/internal/pdf"
	"github.com/Musavvir24/my-software/internal/product"
	"github.com/Musavvir24/my-software/internal/profile"
	"github.com/Musavvir24/my-software/internal/purchase"
	"github.com/Musavvir24/my-software/internal/reminder"
	"github.com/Musavvir24/my-software/internal/reports"
	"github.com/Musavvir24/my-software/pkg/cache"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/email"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/Musavvir24/my-software/pkg/metrics"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	if envErr != nil {
		log.Info().Msg("no .env file found, using system environment variables")
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.MigrateAccounts(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	driver, err := tenant.NewDriver(cfg.DatabaseOptions(), db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tenant storage")
	}
	registry := tenant.NewRegistry(driver)

	var dashCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, dashboard cache disabled")
			rc.Close()
		} else {
			dashCache = rc
		}
		cancel()
	}

	chrome := pdf.NewChromeRasterizer(cfg.ChromePath)
	renderer, err := pdf.NewRenderer(cfg.PDFDir, chrome, cfg.PDFConcurrency, cfg.PDFTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up PDF renderer")
	}

	r := newRouter(cfg, db, registry, dashCache, renderer)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if cfg.BillReminders {
		mailer := email.NewEmailService(cfg.ResendAPIKey, cfg.EmailFromAddress)
		reminder.NewScheduler(db, registry, mailer, cfg.Location()).Start(bgCtx, cfg.ReminderInterval)
	}

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.DBDriver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := registry.Close(); err != nil {
		log.Error().Err(err).Msg("closing tenants")
	}
	if err := dashCache.Close(); err != nil {
		log.Error().Err(err).Msg("closing cache")
	}
	chrome.Close()
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newRouter(cfg *config.Config, db *gorm.DB, registry *tenant.Registry, dashCache cache.Cache, renderer *pdf.Renderer) *gin.Engine {
	loc := cfg.Location()

	// Setup Gin router
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(metrics.Middleware())

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())
	r.Static("/invoices", renderer.Dir())

	dashboardService := dashboard.NewService(dashCache, cfg.DashboardCacheTTL, loc, cfg.LowStockThreshold, cfg.TopSellingLimit)
	invoiceService := invoice.NewService(invoice.NewNumberer(cfg.InvoiceNumbering), renderer, dashboardService, loc)
	mailer := email.NewEmailService(cfg.ResendAPIKey, cfg.EmailFromAddress)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMin, middleware.ByIP)
	pdfLimiter := middleware.NewRateLimiter(cfg.PDFRatePerMin, middleware.ByTenant)

	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := auth.NewHandler(db, registry, cfg)
		api.POST("/signup", authHandler.Signup)
		api.POST("/login", loginLimiter.Middleware(), authHandler.Login)
		api.GET("/auth/google", authHandler.GoogleLogin)
		api.GET("/auth/google/callback", authHandler.GoogleCallback)

		// Tenant routes
		protected := api.Group("")
		protected.Use(middleware.TenantRequired(registry, cfg.JWTSecret))
		{
			protected.GET("/me", authHandler.GetMe)

			// Profile routes
			profileHandler := profile.NewHandler()
			protected.GET("/profile", profileHandler.Get)
			protected.POST("/profile", profileHandler.Save)
			protected.POST("/profile/logo", profileHandler.UploadLogo)

			// Product routes
			productHandler := product.NewHandler()
			importHandler := inventory.NewImportHandler()
			protected.GET("/products", productHandler.List)
			protected.POST("/products", productHandler.Create)
			protected.POST("/products/import", importHandler.ImportExcel)
			protected.GET("/products/import/template", importHandler.DownloadTemplate)
			protected.GET("/products/search/:query", productHandler.Search)
			protected.GET("/products/code/:code", productHandler.GetByCode)
			protected.GET("/products/:id", productHandler.Get)
			protected.PUT("/products/:id", productHandler.Update)
			protected.DELETE("/products/:id", productHandler.Delete)

			// Inventory routes
			inventoryHandler := inventory.NewHandler(cfg.LowStockThreshold)
			protected.GET("/inventory", inventoryHandler.GetInventory)
			protected.GET("/inventory/summary", inventoryHandler.GetSummary)
			protected.GET("/inventory/alerts", inventoryHandler.GetAlerts)
			protected.PUT("/inventory/:id/stock", inventoryHandler.UpdateStock)

			// Invoice routes, PDF producing ones rate limited per tenant
			invoiceHandler := invoice.NewHandler(invoiceService, mailer)
			protected.GET("/invoices", invoiceHandler.List)
			protected.GET("/invoices/new-number", invoiceHandler.NewNumber)
			protected.POST("/invoices", pdfLimiter.Middleware(), invoiceHandler.Create)
			protected.GET("/invoices/:id", invoiceHandler.Get)
			protected.DELETE("/invoices/:id", invoiceHandler.Delete)
			protected.POST("/invoices/:id/pdf", pdfLimiter.Middleware(), invoiceHandler.RenderPDF)
			protected.POST("/invoices/:id/send", pdfLimiter.Middleware(), invoiceHandler.Send)

			// Party ledger routes
			partyHandler := party.NewHandler(loc, dashboardService)
			protected.GET("/parties", partyHandler.List)
			protected.POST("/parties", partyHandler.Create)
			protected.DELETE("/parties/:partyId", partyHandler.Delete)
			protected.POST("/parties/:partyId/bills", partyHandler.AddBill)
			protected.PUT("/parties/:partyId/bills/:billId", partyHandler.UpdateBill)
			protected.PATCH("/parties/:partyId/bills/:billId", partyHandler.SetBillStatus)
			protected.DELETE("/parties/:partyId/bills/:billId", partyHandler.DeleteBill)

			// Purchase routes
			purchaseHandler := purchase.NewHandler(loc)
			protected.GET("/purchases", purchaseHandler.List)
			protected.POST("/purchases", purchaseHandler.Create)

			// Dashboard routes
			dashboardHandler := dashboard.NewHandler(dashboardService)
			protected.GET("/dashboard", dashboardHandler.GetStats)
			protected.GET("/dashboard/metrics", dashboardHandler.GetMetrics)
			protected.GET("/dashboard/sales-parties", dashboardHandler.GetSalesParties)

			// Reports routes
			reportsHandler := reports.NewHandler(loc)
			protected.GET("/sales/by-date", reportsHandler.GetSalesByDate)
			protected.GET("/sales/export", reportsHandler.ExportSales)

			protected.GET("/activity", activity.NewHandler().List)
		}
	}

	return r
}
