package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Doppler617492/MagacinTracker-sub000/cmd"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/assignments"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/config"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/database"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/fulfillment"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/logger"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/metrics"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/middleware"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/reporting"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/requisitions"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/scheduler"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/workers"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/auditlog"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/security"
)

func init() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load .env file, but don't overwrite system environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}

	cmd.Execute(ctx)
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	db, err := database.NewPostgresConnection(dbURL)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer db.Close()

	log.Println("Connected to the database successfully!")

	zapLog := logger.NewLogger()
	defer zapLog.Sync()

	repo := repository.NewRepository(db)
	auditLog := auditlog.NewAuditLog(repo)

	locks := scheduler.NewLockManager(cfg.Scheduler.LockTTL())
	locks.StartSweeper(cfg.Scheduler.SweepInterval())

	requisitionRepo := requisitions.NewRepository(repo)
	metricsRepo := metrics.NewRepository(repo)

	schedulerService := scheduler.NewService(requisitionRepo, metricsRepo, cfg.Scheduler.Weights, locks)
	requisitionService := requisitions.NewService(repo, requisitionRepo, locks)
	assignmentService := assignments.NewService(repo, assignments.NewRepository(repo), locks)
	fulfillmentService := fulfillment.NewService(repo, fulfillment.NewRepository(repo), zapLog)
	workerService := workers.NewWorkerService(repo, workers.NewRepository(repo))

	router := gin.Default()
	router.Use(middleware.RecoveryMiddleware())

	security.NewLoginHandler(repo).RegisterRoutes(router)
	router.GET("/health", middleware.HealthCheckHandler())

	// Everything past this point carries the authenticated user id, which is
	// also the scheduling lock holder identity.
	router.Use(security.JWTMiddleware())

	scheduler.RegisterRoutes(router, schedulerService)
	requisitions.RegisterRoutes(router, requisitionService, auditLog)
	assignments.RegisterRoutes(router, assignmentService, auditLog)
	fulfillment.RegisterRoutes(router, fulfillmentService, auditLog)
	workers.RegisterRoutes(router, workerService, auditLog)
	reporting.RegisterRoutes(router, reporting.NewRepository(repo))

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		panic(err)
	}
}
