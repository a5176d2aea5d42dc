package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"refurb-store-api/internal/cache"
	"refurb-store-api/internal/config"
	"refurb-store-api/internal/handler"
	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"
	"refurb-store-api/internal/service"
	"refurb-store-api/internal/ws"
	"refurb-store-api/pkg/database"
	"refurb-store-api/pkg/jwt"
	"refurb-store-api/pkg/money"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		logrus.WithError(err).Fatal("failed to migrate database")
	}

	// 3. Seed default privileges, roles, and admin user
	seedPrivilegesRolesAndAdmin(ctx, db, cfg.Seed)

	// 4. Report cache and WebSocket hub
	reportCache, closeCache, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logrus.WithError(err).Warn("report cache disabled")
		reportCache, closeCache = cache.Nop{}, func() error { return nil }
	}
	defer closeCache()

	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	tax, err := money.NewTaxCalculator(cfg.Store.TaxRatePercent)
	if err != nil {
		logrus.WithError(err).Fatal("invalid tax rate")
	}
	tokens := jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour, cfg.JWT.Issuer)

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	movementRepo := repository.NewStockMovementRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	reportService := service.NewReportService(saleRepo, customerRepo, productRepo, movementRepo,
		reportCache, cfg.Store.Location(), cfg.Store.LowStockThreshold)
	ledger := service.NewStockLedger(db, productRepo, movementRepo, reportService, wsHub)

	services := handler.Services{
		Auth:        service.NewAuthService(userRepo, tokens, wsHub),
		Users:       service.NewUserService(userRepo, privilegeRepo, roleRepo),
		Products:    service.NewProductService(db, productRepo, ledger, reportService, wsHub),
		Sales:       service.NewSaleService(db, saleRepo, productRepo, customerRepo, ledger, tax, reportService, wsHub),
		Allocations: service.NewAllocationService(db, saleRepo, reportService, wsHub),
		Customers:   service.NewCustomerService(customerRepo, saleRepo),
		Reports:     reportService,
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.Server.AppName,
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.Server.AllowedOrigins}))

	// 7. Routes
	handler.Register(app, services, handler.RouteOptions{
		CheckoutPerMin: cfg.Server.CheckoutPerMin,
		Location:       cfg.Store.Location(),
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Serve))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down server")
	if err := app.ShutdownWithTimeout(time.Duration(cfg.Server.ShutdownTimeoutS) * time.Second); err != nil {
		logrus.WithError(err).Error("server forced to shutdown")
	}
	logrus.Info("server exited")
}

func setupLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
}

// seedPrivilegesRolesAndAdmin creates default privileges, roles, and the admin user if they don't exist
func seedPrivilegesRolesAndAdmin(ctx context.Context, db *gorm.DB, seed config.SeedConfig) {
	privilegeRepo := repository.NewPrivilegeRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	if err := privilegeRepo.SeedDefaults(ctx); err != nil {
		logrus.WithError(err).Warn("failed to seed privileges")
	}
	if err := roleRepo.SeedDefaults(ctx); err != nil {
		logrus.WithError(err).Warn("failed to seed roles")
	}

	if _, err := userRepo.FindByEmail(ctx, seed.AdminEmail); err == nil {
		return
	}
	masterRole, err := roleRepo.FindByCode(ctx, model.RoleMasterAdmin)
	if err != nil {
		logrus.WithError(err).Warn("master admin role missing, admin user not created")
		return
	}

	admin := &model.User{
		Email:      seed.AdminEmail,
		FullName:   "Master Administrator",
		RoleID:     &masterRole.ID,
		IsActive:   true,
		Privileges: masterRole.Privileges,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(seed.AdminPassword); err != nil {
		logrus.WithError(err).Warn("failed to hash admin password")
		return
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		logrus.WithError(err).Warn("failed to create admin user")
		return
	}
	logrus.WithField("email", seed.AdminEmail).Info("admin user created (MASTER_ADMIN)")
}
