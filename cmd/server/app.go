package main

import (
	"context"
	"errors"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/checkout"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/identity"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/inventory"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/paymentmethod"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/worker"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway/authorizenet"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway/sandbox"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/config"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/persistence/sqldb"
)

// app holds the services every command shares.
type app struct {
	cfg     *config.Config
	logger  *logging.ZapLogger
	metrics *metrics.Counters

	db       *sqldb.DB
	store    contracts.Store
	outbox   outbox.Repository
	gateways gateway.Provider

	resolver     *identity.Resolver
	registry     *paymentmethod.Registry
	reconciler   *worker.Reconciler
	orchestrator *checkout.Orchestrator
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewZapLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, metrics: &metrics.Counters{}}

	if err := a.openStore(ctx); err != nil {
		_ = logger.Sync()
		return nil, err
	}
	a.gateways = a.provider()

	repos := a.store.Repos()
	a.resolver = &identity.Resolver{
		Gateways:  a.gateways,
		Customers: repos.Customers,
		Methods:   repos.PaymentMethods,
		Logger:    logger,
	}
	a.registry = &paymentmethod.Registry{
		Identity:  a.resolver,
		Gateways:  a.gateways,
		Customers: repos.Customers,
		Methods:   repos.PaymentMethods,
		Logger:    logger,
	}
	a.reconciler = &worker.Reconciler{
		Gateways: a.gateways,
		Ledger:   repos.Ledger,
		Recorder: repos.Events,
		Logger:   logger,
	}
	a.orchestrator = &checkout.Orchestrator{
		Store:      a.store,
		Gateways:   a.gateways,
		Identity:   a.resolver,
		Methods:    a.registry,
		Inventory:  &inventory.LineItems{Logger: logger},
		Reconciler: a.reconciler,
		Logger:     logger,
		Metrics:    a.metrics,
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.cfg.Database.Driver == "memory" {
		store := inmemory.NewStore()
		a.store, a.outbox = store, store.Outbox()
		return nil
	}

	db, err := sqldb.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := sqldb.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	store := sqldb.NewStore(db)
	a.db, a.store, a.outbox = db, store, store.Outbox()
	return nil
}

func (a *app) provider() gateway.Provider {
	if a.cfg.Gateway.Mode == "fake" {
		a.logger.Warn("using the in-process fake gateway", nil)
		return gateway.SingleProvider{Client: sandbox.New()}
	}

	endpoint := a.cfg.Gateway.EndpointOr(authorizenet.SandboxEndpoint, authorizenet.ProductionEndpoint)
	return &gateway.StaticProvider{
		Credentials: a.cfg.Credentials(),
		New: func(creds gateway.Credentials) gateway.Client {
			return authorizenet.New(creds, endpoint, a.cfg.Gateway.Timeout, a.logger)
		},
	}
}

func (a *app) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	// Sync on a terminal stderr reports EINVAL; nothing to do about it.
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
