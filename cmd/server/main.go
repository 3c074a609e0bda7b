package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ShivaTri14/nagar-seva-ai/internal/config"
	"github.com/ShivaTri14/nagar-seva-ai/internal/conversation"
	"github.com/ShivaTri14/nagar-seva-ai/internal/handlers"
	"github.com/ShivaTri14/nagar-seva-ai/internal/intent"
	"github.com/ShivaTri14/nagar-seva-ai/internal/logging"
	"github.com/ShivaTri14/nagar-seva-ai/internal/memory"
	"github.com/ShivaTri14/nagar-seva-ai/internal/prompts"
	"github.com/ShivaTri14/nagar-seva-ai/internal/scheduler"
	"github.com/ShivaTri14/nagar-seva-ai/internal/transport"
	"github.com/ShivaTri14/nagar-seva-ai/internal/vision"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	os.Exit(serve(cfg, logger))
}

// serve runs the service and returns the exit code once the logger is flushed
func serve(cfg *config.Config, logger *zap.Logger) int {
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
		return 1
	}
	logger.Info("Nagarsathi service stopped")
	return 0
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting Nagarsathi service",
		zap.String("service", cfg.ServiceName),
		zap.String("store", cfg.StoreBackend),
		zap.String("vision", cfg.VisionProvider),
		zap.Bool("nats", cfg.NatsEnabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable turn store
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := memory.OpenStore(connectCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	memoryManager := memory.NewManager(store, logger, memory.WithMaxCachedUsers(cfg.MemoryCacheUsers))
	defer func() {
		if err := memoryManager.Close(); err != nil {
			logger.Warn("error closing memory manager", zap.Error(err))
		}
	}()
	logger.Info("store connected", zap.String("backend", cfg.StoreBackend))

	// Waste image classification
	classifier, err := vision.NewClassifierFromConfig(cfg)
	if err != nil {
		return err
	}
	analyzer := vision.NewAdapter(classifier, cfg.VisionTimeout, logger)

	// Conversation engine
	sched := scheduler.NewTimerScheduler(logger)
	defer sched.Stop()

	generator := prompts.NewGenerator(nil)
	hub := conversation.NewHub(conversation.HubConfig{
		Defaults: conversation.Options{
			Language:              cfg.DefaultLanguage,
			ThinkingDelay:         cfg.ThinkingDelay,
			StatusUpdateDelay:     cfg.StatusUpdateDelay,
			RewardDelay:           cfg.RewardDelay,
			MaxImageBytes:         cfg.MaxImageBytes,
			MaxConcurrentAnalyses: cfg.MaxConcurrentAnalyses,
			PersistTimeout:        cfg.PersistTimeout,
		},
		IdleTimeout: cfg.SessionIdleTimeout,
	}, conversation.Deps{
		Generator:  generator,
		Classifier: intent.NewClassifier(generator.Catalog()),
		Analyzer:   analyzer,
		Scheduler:  sched,
		Persister:  memoryManager,
		Logger:     logger,
	})
	chatHandler := handlers.NewChatHandler(hub, memoryManager, logger)

	if cfg.NatsEnabled {
		natsTransport, err := transport.NewNATSTransport(cfg, chatHandler, logger)
		if err != nil {
			return err
		}
		defer natsTransport.Close()

		hub.AddSink(natsTransport.PublishEvent)
		if err := natsTransport.Start(); err != nil {
			return err
		}
	}

	httpServer := transport.NewHTTPServer(cfg, transport.HTTPDeps{
		Handler: chatHandler,
		Hub:     hub,
		Catalog: generator.Catalog(),
		Health:  memoryManager,
		Logger:  logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		return httpServer.Listen()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("Nagarsathi service is running",
		zap.String("http", cfg.HTTPAddr),
		zap.String("subject", cfg.NatsRequestSubject))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
