package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tournament-registration/config"
	"tournament-registration/handlers"
	"tournament-registration/models"
	"tournament-registration/payments"
	"tournament-registration/repositories"
	"tournament-registration/services"
	"tournament-registration/utils"
	"tournament-registration/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	root := &cobra.Command{
		Use:           "tournament-registration",
		Short:         "Tournament registration and payment service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the in-process expiration worker",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Expire overdue registrations once and exit",
			RunE:  runSweep,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE:  runMigrate,
		},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("✅ Database schema up to date")
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := services.NewSweeperService(repositories.NewRegistrationRepository(db), services.LogNotifier{}, clockwork.NewRealClock())
	res, err := sweeper.Sweep(ctx)
	log.Printf("✅ Sweep finished: expired=%d scanned=%d skipped=%d failed=%d",
		res.ExpiredCount, res.Scanned, res.Skipped, res.Failed)
	return err
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireStripe(); err != nil {
		return err
	}
	if err := cfg.RequireGateway(); err != nil {
		return err
	}
	unit, err := utils.ParseCurrency(cfg.Currency)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	notifier := services.LogNotifier{}
	registrations := repositories.NewRegistrationRepository(db)
	tournaments := repositories.NewTournamentRepository(db)
	events := repositories.NewPaymentEventRepository(db)

	var archive services.Archiver
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Archive(ctx, cfg.R2)
		if err != nil {
			return fmt.Errorf("failed to initialize R2 client: %w", err)
		}
		archive = r2
		log.Printf("✅ Webhook payloads archived to R2 bucket %s", cfg.R2.Bucket)
	}

	provider := payments.NewStripeProvider(cfg.StripeSecretKey, utils.ProviderHTTPClient, clock)
	verifier := payments.NewStripeVerifier(cfg.StripeWebhookSecret)

	checkoutService := services.NewCheckoutService(registrations, tournaments, provider, notifier, clock, unit, cfg.SiteURL)
	webhookService := services.NewWebhookService(verifier, registrations, events, archive, notifier, clock)
	sweeperService := services.NewSweeperService(registrations, notifier, clock)
	registrationService := services.NewRegistrationService(registrations, tournaments, events, notifier, clock, cfg.PaymentWindow)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupWebhookRoutes(app, webhookService)
	handlers.SetupCronRoutes(app, sweeperService, cfg.CronSecret)
	handlers.SetupRegistrationRoutes(app, registrationService, checkoutService, cfg.GatewayToken)

	if cfg.SweepInterval > 0 {
		worker, err := workers.NewExpirationWorker(sweeperService, cfg.SweepInterval, clock)
		if err != nil {
			return err
		}
		if err := worker.Start(ctx); err != nil {
			return err
		}
		log.Printf("✅ Payment expiration worker running (every %s)", cfg.SweepInterval)
	} else {
		log.Println("⚠️  SWEEP_INTERVAL=0, relying on /cron/expire-payments for expirations")
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Println("✅ GatewayAuthMiddleware enforced on /s routes")
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowedOrigins)
	log.Printf("✅ Payment window %s, currency %s", cfg.PaymentWindow, unit)

	<-ctx.Done()
	log.Println("Shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}
