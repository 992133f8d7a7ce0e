package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booking-marketplace/internal/config"
	"booking-marketplace/internal/database"
	"booking-marketplace/internal/handlers"
	"booking-marketplace/internal/middleware"
	"booking-marketplace/internal/repositories"
	"booking-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database connection
	db, err := database.NewConnection(database.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	log.Println("Database connection established successfully")

	if err := db.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Initialize repositories
	cartRepo := repositories.NewCartRepository(db.DB)
	inventoryRepo := repositories.NewInventoryRepository(db.DB)
	transactionRepo := repositories.NewTransactionRepository(db.DB)
	ticketRepo := repositories.NewTicketRepository(db.DB)
	vendorRepo := repositories.NewVendorRepository(db.DB)
	payoutRepo := repositories.NewPayoutRepository(db.DB)

	// Initialize external clients
	gateway := services.NewGatewayService(cfg.Gateway)
	notifier := services.NewMailService(cfg.Mail)

	// Initialize services
	cartService := services.NewCartService(cartRepo,
		cfg.Checkout.CartIdleTTL, cfg.Checkout.StuckCheckoutTTL, cfg.Checkout.SweepInterval)
	checkoutService := services.NewCheckoutService(cartRepo, transactionRepo, gateway, cfg.Gateway.ReturnURL)
	ticketService := services.NewTicketService(ticketRepo, cfg.Checkout.FeeRate)
	eventService := services.NewPaymentEventService(
		transactionRepo, cartRepo, inventoryRepo, ticketRepo, payoutRepo, ticketService, notifier)
	refundService := services.NewRefundService(ticketRepo, transactionRepo, gateway, notifier)
	payoutService := services.NewPayoutService(payoutRepo, vendorRepo, gateway)

	// Build the router
	r := chi.NewRouter()
	r.Use(middleware.Recover)
	r.Use(middleware.Logging)

	handlers.NewHealthHandler().RegisterRoutes(r)
	handlers.NewCartHandler(cartService).RegisterRoutes(r)
	handlers.NewCheckoutHandler(checkoutService).RegisterRoutes(r)
	handlers.NewWebhookHandler(eventService, gateway).RegisterRoutes(r)
	handlers.NewTicketHandler(ticketService, refundService).RegisterRoutes(r)
	handlers.NewPayoutHandler(payoutService).RegisterRoutes(r)

	// Start the reservation sweeper
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go cartService.StartSweeper(sweepCtx)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "booking-marketplace"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s (env: %s)", addr, cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed:", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
