package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"event-waitlist/internal/clock"
	"event-waitlist/internal/config"
	"event-waitlist/internal/database"
	"event-waitlist/internal/handlers"
	"event-waitlist/internal/middleware"
	"event-waitlist/internal/repositories"
	"event-waitlist/internal/scheduler"
	"event-waitlist/internal/services"
	"event-waitlist/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "HTTP listen host")
	flagSet.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "HTTP listen port")
	flagSet.StringVar(&cfg.Scheduler.DBPath, "scheduler-db", cfg.Scheduler.DBPath, "path to the scheduler SQLite database")
	flagSet.DurationVar(&cfg.Waitlist.OfferWindow, "offer-window", cfg.Waitlist.OfferWindow, "how long an offered user has to purchase")
	migrate := flagSet.Bool("migrate", true, "apply pending database migrations on startup")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal("Failed to parse flags:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	log.SetPrefix("[WAITLIST] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *migrate); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, migrate bool) error {
	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Printf("Failed to flush telemetry: %v", err)
		}
	}()

	db, err := database.NewConnection(ctx, database.Config{
		URL:             cfg.Database.URL,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	log.Println("Database connection established successfully")

	if migrate {
		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	jobStore, err := scheduler.Open(ctx, cfg.Scheduler.DBPath)
	if err != nil {
		return err
	}
	defer jobStore.Close()
	log.Printf("Scheduler store opened at %s", cfg.Scheduler.DBPath)

	clk := clock.NewSystem()

	// Repositories
	eventRepo := repositories.NewEventRepository(db)
	ticketRepo := repositories.NewTicketRepository(db)
	waitingListRepo := repositories.NewWaitingListRepository(db)

	// Services
	availability := services.NewAvailabilityService(eventRepo, ticketRepo, waitingListRepo, db, clk)
	allocator := services.NewOfferAllocator(waitingListRepo, availability, scheduler.New(jobStore, clk), clk, cfg.Waitlist.OfferWindow)
	expiry := services.NewOfferExpiryHandler(waitingListRepo, scheduler.New(jobStore, clk), allocator, clk)
	waitingList := services.NewWaitingListService(eventRepo, ticketRepo, waitingListRepo, db, allocator, clk)

	worker := scheduler.NewWorker(jobStore, clk, scheduler.WorkerConfig{
		PollInterval: cfg.Scheduler.PollInterval,
		LeaseTTL:     cfg.Scheduler.LeaseTTL,
		BatchSize:    cfg.Scheduler.BatchSize,
		MaxAttempts:  cfg.Scheduler.MaxAttempts,
	})
	worker.Register(services.ExpireOfferJob, expiry.HandleJob)

	var rateLimiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		rateLimiter = middleware.NewRateLimiter(ctx, cfg.Server.RateLimit, cfg.Server.RateLimitWindow)
	}
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	router := handlers.NewRouter(handlers.RouterConfig{
		Events:      handlers.NewEventHandler(waitingList, availability, allocator),
		WaitingList: handlers.NewWaitingListHandler(waitingList),
		Health: handlers.NewHealthHandler(cfg.Telemetry.ServiceName, map[string]handlers.HealthCheck{
			"database":  db.PingContext,
			"scheduler": jobStore.Ping,
		}),
		CORS:        corsConfig,
		RateLimiter: rateLimiter,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("Server starting on http://%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
