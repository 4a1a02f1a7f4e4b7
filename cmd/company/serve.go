package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/companies/internal/company/config"
	"github.com/gartstein/companies/internal/company/controller"
	"github.com/gartstein/companies/internal/company/db"
	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/handlers"
	"github.com/gartstein/companies/internal/company/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and gRPC health servers",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")
}

// producer is the part of the event publishers serve needs to own.
type producer interface {
	controller.EventProducer
	Close()
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() {
		// Sync on stderr fails with EINVAL on some platforms; nothing to do about it.
		_ = logger.Sync()
	}()

	repo, err := initStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize store", zap.Error(err))
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	prod, err := initProducer(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize Kafka producer", zap.Error(err))
		return err
	}
	defer prod.Close()

	companySvc := controller.NewCompanyService(repo, prod, logger)
	companyHandler := handlers.NewCompanyHandler(companySvc, logger)

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	if err := applyShutdownTimeout(server, cfg); err != nil {
		logger.Error("invalid shutdown timeout", zap.Error(err))
		return err
	}

	if err := server.Listen(); err != nil {
		logger.Error("failed to bind", zap.Error(err))
		return err
	}
	if err := server.RegisterHTTPGateway(companyHandler, []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}); err != nil {
		logger.Error("Failed to register HTTP gateway", zap.Error(err))
		return err
	}

	return serveUntilSignal(server, logger)
}

// serveUntilSignal runs server until it fails or SIGINT/SIGTERM arrives, then stops it.
func serveUntilSignal(server *handlers.Server, logger *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		server.Stop()
		if err != nil {
			logger.Error("Server error", zap.Error(err))
			return err
		}
		return nil
	case sig := <-stop:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	server.Stop()
	if err := <-serverErr; err != nil {
		logger.Warn("server returned error during shutdown", zap.Error(err))
	}
	logger.Info("Servers stopped properly")
	return nil
}

// applyShutdownTimeout sets the server's graceful stop bound from SHUTDOWN_TIMEOUT.
func applyShutdownTimeout(server *handlers.Server, cfg *config.Config) error {
	timeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	server.SetShutdownTimeout(timeout)
	return nil
}

// initLogger builds a production logger, or a development one for debug.
func initLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initStore selects the Store backend named by STORE_BACKEND.
func initStore(cfg *config.Config, logger *zap.Logger) (controller.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		repo, err := db.NewRepository(&db.Config{}, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.BackendMemory:
		return store.NewMemoryStore(nil, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// initProducer publishes to Kafka when brokers are configured and discards
// events otherwise.
func initProducer(cfg *config.Config, logger *zap.Logger) (producer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, change events are not published")
		return events.NopProducer{}, nil
	}
	p, err := events.Dial(cfg.KafkaBrokers, cfg.Topic, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}
