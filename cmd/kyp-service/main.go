package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gartstein/kyp/internal/config"
	"github.com/gartstein/kyp/internal/credit/auth"
	"github.com/gartstein/kyp/internal/credit/controller"
	"github.com/gartstein/kyp/internal/credit/db"
	"github.com/gartstein/kyp/internal/credit/events"
	"github.com/gartstein/kyp/internal/credit/handlers"
	"github.com/gartstein/kyp/internal/credit/pipeline"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	bootstrap := initLogger()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		bootstrap.Fatal("failed to build logger", zap.Error(err))
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	benchmarks, err := cfg.Benchmarks()
	if err != nil {
		logger.Fatal("failed to load benchmarks", zap.Error(err))
	}

	repo, err := db.NewRepository(cfg.Database(), logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	runner := pipeline.New(logger, benchmarks, time.Now)
	analysisSvc := controller.NewAnalysisService(runner, repo, producer, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var consumer *events.Consumer
	if cfg.RequestTopic != "" {
		consumer = events.NewConsumer(cfg.KafkaBrokers, cfg.GroupID, cfg.RequestTopic, logger)
		consumer.RegisterHandler(analysisSvc.HandleRequest)
		consumer.Start(ctx)
	}

	analysisHandler := handlers.NewCreditAnalysisHandler(analysisSvc, logger)

	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger, grpc.UnaryInterceptor(authInterceptor.Unary()))
	server.RegisterGRPCHandler(analysisHandler)

	if err := server.RegisterHTTPGateway(analysisSvc, cfg.JWTSecret); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)

	if consumer != nil {
		cancel()
		<-consumer.Done()
		consumer.Close()
	}
}

// initLogger initializes a Zap production logger used until the configured
// one is available.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
