package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/config"
	"github.com/slotbook/booking-engine/internal/notifier"
	"github.com/slotbook/booking-engine/internal/services"
	"github.com/slotbook/booking-engine/internal/worker"
	"github.com/slotbook/booking-engine/pkg/mq"
	"github.com/slotbook/booking-engine/pkg/obs"
)

const connectAttempts = 10

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadWorker()
	if err != nil {
		logger.Fatalf("Failed to load worker configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	shutdownTracer, err := obs.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint, "worker")
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
		shutdownTracer = obs.Noop
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer consumer.Close()

	deliveries, err := consumer.Deliveries(ctx, cfg.ServiceName)
	if err != nil {
		logger.Fatalf("Failed to start consuming: %v", err)
	}

	handler := worker.NewHandler(
		notifier.NewLogNotifier(logger),
		services.NewCalendarService(cfg.ProductID),
		logger,
	)

	logger.WithFields(logrus.Fields{
		"exchange": cfg.Exchange,
		"queue":    cfg.Queue,
		"bindings": cfg.Bindings,
		"prefetch": cfg.Prefetch,
	}).Info("Notification worker started")

	if err := worker.Run(ctx, deliveries, handler, logger); err != nil {
		logger.WithError(err).Error("Worker stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Tracer shutdown failed")
	}
	logger.Info("Notification worker exited")
}

// connect retries the broker with linear backoff; compose starts both at once
func connect(ctx context.Context, cfg config.WorkerConfig, logger *logrus.Logger) (*mq.Consumer, error) {
	opts := mq.ConsumerOptions{
		Exchange: cfg.Exchange,
		Queue:    cfg.Queue,
		Keys:     cfg.Bindings,
		Prefetch: cfg.Prefetch,
		DLXName:  cfg.DLXName,
		DLXQueue: cfg.DLXQueue,
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		consumer, err := mq.NewConsumer(cfg.RabbitURL, opts)
		if err == nil {
			return consumer, nil
		}
		lastErr = err
		logger.WithError(err).WithField("attempt", attempt).Warn("RabbitMQ not ready, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return nil, lastErr
}
