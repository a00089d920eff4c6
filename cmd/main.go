package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-server/internal/config"
	"pos-server/internal/database"
	"pos-server/internal/logger"
	"pos-server/internal/messaging"
	"pos-server/internal/models"
	"pos-server/internal/receipt"
	"pos-server/internal/services/billing"
	"pos-server/internal/services/printer"
)

func main() {
	// Parse command line flags
	var (
		mode              = flag.String("mode", "", "Service mode (pos-server, receipt-printer)")
		port              = flag.Int("port", 3000, "HTTP port")
		configPath        = flag.String("config", "config.yaml", "Path to config file")
		inMemory          = flag.Bool("in-memory", false, "Run pos-server without PostgreSQL or RabbitMQ")
		printerName       = flag.String("printer-name", "", "Printer name (required for receipt-printer mode)")
		heartbeatInterval = flag.Int("heartbeat-interval", 30, "Heartbeat interval in seconds")
		prefetch          = flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode": *mode,
		"port": *port,
	})

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	switch *mode {
	case "pos-server":
		if err := runPOSServer(ctx, cfg, log, *port, *inMemory); err != nil {
			log.Error("service_failed", "POS server failed", requestID, err, nil)
			os.Exit(1)
		}
	case "receipt-printer":
		if *printerName == "" {
			log.Error("validation_failed", "printer-name is required for receipt-printer mode", requestID, nil, nil)
			os.Exit(1)
		}
		if err := runReceiptPrinter(ctx, cfg, log, *printerName, *heartbeatInterval, *prefetch); err != nil {
			log.Error("service_failed", "Receipt printer failed", requestID, err, nil)
			os.Exit(1)
		}
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runPOSServer runs the order lifecycle HTTP server
func runPOSServer(ctx context.Context, cfg *config.Config, log *logger.Logger, port int, inMemory bool) error {
	requestID := logger.GenerateRequestID()

	var (
		store     billing.Store
		publisher billing.BillPublisher
	)

	if inMemory {
		memStore := billing.NewMemoryStore()
		memStore.SetProducts(sampleProducts())
		store = memStore
		log.Info("in_memory_mode", "Running with in-memory stores, nothing will be persisted", requestID, nil)
	} else {
		db, err := database.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

		if err := db.RunMigrations(ctx, "migrations"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		store = billing.NewPostgresStore(db)

		conn, err := messaging.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize messaging: %w", err)
		}
		defer conn.Close()

		log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

		publisher = messaging.NewPublisher(conn, log)
	}

	sink := receipt.NewDeviceSink(cfg.Printer.DevicePath)
	service := billing.NewService(store, publisher, sink, log)
	handler := billing.NewHandler(service, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.SetupRoutes(),
	}

	go func() {
		log.Info("service_started", fmt.Sprintf("POS server started on port %d", port), requestID, map[string]interface{}{
			"port": port,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", "HTTP server failed", requestID, err, nil)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// runReceiptPrinter runs a receipt printer worker
func runReceiptPrinter(ctx context.Context, cfg *config.Config, log *logger.Logger, printerName string, heartbeatInterval, prefetch int) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	consumer := messaging.NewConsumer(conn, log, messaging.ReceiptsQueue, printerName, prefetch)
	sink := receipt.NewDeviceSink(cfg.Printer.DevicePath)

	worker := printer.NewWorker(printerName, time.Duration(heartbeatInterval)*time.Second, db, consumer, sink, log)
	return worker.Start(ctx)
}

// sampleProducts seeds the in-memory catalog with the same products the
// database migration installs.
func sampleProducts() []models.Product {
	return []models.Product{
		{ID: "espresso", Name: "Espresso", Price: "$3.00"},
		{ID: "americano", Name: "Americano", Price: "$3.50"},
		{ID: "latte", Name: "Caffe Latte", Price: "$4.50"},
		{ID: "cappuccino", Name: "Cappuccino", Price: "$4.50"},
		{ID: "mocha", Name: "Caffe Mocha", Price: "$5.00"},
		{ID: "chai", Name: "Chai Tea", Price: "$3.75"},
		{ID: "croissant", Name: "Butter Croissant", Price: "$3.25"},
		{ID: "muffin", Name: "Blueberry Muffin", Price: "$2.95"},
	}
}
