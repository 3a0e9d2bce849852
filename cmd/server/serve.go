package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/worker"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/eventbus"
	httpapi "github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/messaging/kafka"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/outbox"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the outbox dispatcher and the reconcile sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	bus, closeBus, err := a.newBus(true)
	if err != nil {
		return err
	}
	defer closeBus()

	dispatcher := &outbox.Dispatcher{
		Repo:         a.outbox,
		EventBus:     bus,
		Logger:       a.logger,
		PollInterval: a.cfg.Outbox.PollInterval,
		BatchSize:    a.cfg.Outbox.BatchSize,
	}
	go dispatcher.Run(ctx)
	go a.sweepLoop(ctx)

	handler := httpapi.NewHandler(httpapi.Handler{
		Orders:     a.orchestrator,
		Customers:  a.store.Repos().Customers,
		Methods:    a.registry,
		Profiles:   a.resolver,
		Reconciler: a.reconciler,
		Logger:     a.logger,
	})

	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(handler, a.cfg.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", map[string]any{"addr": server.Addr})
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	fields := map[string]any{"metrics": a.metrics.Snapshot()}
	if backlog, err := a.outbox.CountUnpublished(shutdownCtx); err == nil {
		fields["outbox-backlog"] = backlog
	}
	a.logger.Info("shutting down", fields)
	return server.Shutdown(shutdownCtx)
}

func (a *app) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Reconcile.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.reconciler.Sweep(ctx, a.cfg.Reconcile.Window); err != nil {
				a.logger.Error("reconcile sweep failed", map[string]any{"error": err})
			}
		}
	}
}

// newBus wires the reconcile handler, plus the Kafka notifier when
// enabled. Failed reconciles are rescheduled only when retry is set.
func (a *app) newBus(retry bool) (*eventbus.InMemoryBus, func(), error) {
	bus := eventbus.NewInMemoryBus()

	reconcileHandler := &worker.ReconcileHandler{
		Reconciler: a.reconciler,
		Logger:     a.logger,
		Metrics:    a.metrics,
	}
	if retry {
		reconcileHandler.Retry = &worker.RetryScheduler{
			EventBus:  bus,
			MaxRetry:  a.cfg.Retry.MaxRetry,
			BaseDelay: a.cfg.Retry.BaseDelay,
			MaxDelay:  a.cfg.Retry.MaxDelay,
		}
	}
	bus.Subscribe(event.ReconcileRequested, reconcileHandler.Handle)

	if !a.cfg.Kafka.Enabled {
		return bus, func() {}, nil
	}

	producer, err := kafka.NewProducer(a.cfg.Kafka.Brokers)
	if err != nil {
		return nil, nil, err
	}
	notifier := &kafka.Notifier{Producer: producer, Topic: a.cfg.Kafka.Topic, Logger: a.logger}
	notifier.Subscribe(bus)

	return bus, func() {
		if err := producer.Close(); err != nil {
			a.logger.Warn("kafka producer close failed", map[string]any{"error": err})
		}
	}, nil
}
