package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"cable-backend/internal/auth"
	"cable-backend/internal/backup"
	"cable-backend/internal/cache"
	"cable-backend/internal/config"
	"cable-backend/internal/database"
	"cable-backend/internal/db"
	"cable-backend/internal/handlers"
	"cable-backend/internal/health"
	h "cable-backend/internal/http"
	"cable-backend/internal/middleware"
	"cable-backend/internal/monitoring"
	"cable-backend/internal/repositories"
	"cable-backend/internal/services"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Connect to PostgreSQL with exponential backoff; the database is often
	// still starting when the service comes up
	pool := db.Connect(cfg)
	defer pool.Close()

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (login will use bcrypt only)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Run database migrations
	log.Println("Running database migrations...")
	migrator := database.NewMigrator(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Start ops dashboard server in background
	go monitoring.NewServer(pool, 9090).Start()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	customerRepo := repositories.NewCustomerRepository(pool)
	actionRequestRepo := repositories.NewActionRequestRepository(pool)
	vcInventoryRepo := repositories.NewVCInventoryRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)
	ledgerRepo := repositories.NewLedgerRepository(pool)
	planRepo := repositories.NewPlanRepository(pool)
	systemSettingRepo := repositories.NewSystemSettingRepository(pool)
	onlineTransactionRepo := repositories.NewOnlineTransactionRepository(pool)
	adminActionLogRepo := repositories.NewAdminActionLogRepository(pool)
	loginLogRepo := repositories.NewLoginLogRepository(pool)
	dashboardRepo := repositories.NewDashboardRepository(pool)

	// Initialize services
	userService := services.NewUserService(userRepo, jwtManager)
	customerService := services.NewCustomerService(customerRepo)
	actionRequestService := services.NewActionRequestService(actionRequestRepo, customerRepo, planRepo, userRepo)
	vcInventoryService := services.NewVCInventoryService(vcInventoryRepo)
	paymentService := services.NewPaymentService(paymentRepo, customerRepo, ledgerRepo)
	planService := services.NewPlanService(planRepo)
	systemSettingService := services.NewSystemSettingService(systemSettingRepo)
	totpService := services.NewTOTPService(userRepo)
	dashboardService := services.NewDashboardService(dashboardRepo)
	auditService := services.NewAuditService(adminActionLogRepo)
	defer auditService.Close()
	reportService := services.NewReportService(paymentRepo, ledgerRepo, customerRepo, systemSettingRepo)
	razorpayService := services.NewRazorpayService(
		cfg.Razorpay.KeyID,
		cfg.Razorpay.KeySecret,
		cfg.Razorpay.WebhookSecret,
		cfg.Razorpay.FeePercent,
		onlineTransactionRepo,
		customerRepo,
		systemSettingRepo,
	)

	// Scheduled database backups to S3-compatible storage
	backupScheduler := backup.NewScheduler(pool, backup.Options{
		Endpoint:  cfg.Backup.Endpoint,
		AccessKey: cfg.Backup.AccessKey,
		SecretKey: cfg.Backup.SecretKey,
		Bucket:    cfg.Backup.Bucket,
		Region:    cfg.Backup.Region,
		Interval:  time.Duration(cfg.Backup.IntervalHours) * time.Hour,
	})
	if cfg.Backup.Enabled {
		backupScheduler.Start()
		defer backupScheduler.Stop()
	} else {
		log.Println("[Backup] Scheduled backups disabled (set BACKUP_ENABLED=true to enable)")
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, loginLogRepo)
	userHandler := handlers.NewUserHandler(userService, auditService)
	customerHandler := handlers.NewCustomerHandler(customerService, auditService)
	actionRequestHandler := handlers.NewActionRequestHandler(actionRequestService, auditService)
	vcInventoryHandler := handlers.NewVCInventoryHandler(vcInventoryService, auditService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, auditService)
	planHandler := handlers.NewPlanHandler(planService, auditService)
	reportHandler := handlers.NewReportHandler(reportService)
	razorpayHandler := handlers.NewRazorpayHandler(razorpayService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	systemSettingHandler := handlers.NewSystemSettingHandler(systemSettingService, auditService)
	totpHandler := handlers.NewTOTPHandler(totpService, auditService)
	adminActionLogHandler := handlers.NewAdminActionLogHandler(auditService)
	loginLogHandler := handlers.NewLoginLogHandler(loginLogRepo)
	backupHandler := handlers.NewBackupHandler(backupScheduler, auditService)
	healthHandler := handlers.NewHealthHandler(health.NewChecker(pool))

	// Create router
	router := h.NewRouter(
		authHandler,
		userHandler,
		customerHandler,
		actionRequestHandler,
		vcInventoryHandler,
		paymentHandler,
		planHandler,
		reportHandler,
		razorpayHandler,
		dashboardHandler,
		systemSettingHandler,
		totpHandler,
		adminActionLogHandler,
		loginLogHandler,
		backupHandler,
		healthHandler,
		authMiddleware,
	)

	// Wrap with panic recovery and metrics middleware
	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
