package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	appintegration "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/infrastructure/cache"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/netsuite"
	"github.com/erp/ordersync/internal/infrastructure/notify"
	"github.com/erp/ordersync/internal/infrastructure/persistence"
	"github.com/erp/ordersync/internal/infrastructure/storefront"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// app holds the process-wide collaborators shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers
	closers   []func() error
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := telemetry.Setup(ctx, telemetryConfig(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	log = providers.BridgeLogger(log, logger.ParseLevel(cfg.Log.Level))

	log.Debug("Configuration loaded",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	return &app{cfg: cfg, logger: log, telemetry: providers}, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Error releasing resource", zap.Error(err))
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("Error shutting down telemetry", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) netsuiteClient() (*netsuite.Client, error) {
	if err := a.cfg.ERP.RequireCredentials(); err != nil {
		return nil, err
	}
	return netsuite.NewClient(netsuiteConfig(a.cfg.ERP), a.logger)
}

func (a *app) storefrontClient() (*storefront.Client, error) {
	return storefront.NewClient(&storefront.Config{
		BaseURL: a.cfg.Storefront.BaseURL,
		APIKey:  a.cfg.Storefront.APIKey,
		Timeout: a.cfg.Storefront.Timeout,
	}, a.logger)
}

func (a *app) database() (*persistence.Database, error) {
	db, err := persistence.NewDatabase(&a.cfg.Database,
		persistence.WithLogger(a.logger, a.cfg.Log.Level),
		persistence.WithTracing(a.cfg.Telemetry.Enabled),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return db, nil
}

// reconciler builds the full reconciliation pipeline from configuration.
func (a *app) reconciler(client *netsuite.Client) (*appintegration.OrderReconciler, error) {
	cfg := a.cfg

	deps := appintegration.ReconcilerDeps{
		StatusChecker: netsuite.NewSyncStatusResolver(client, cfg.Sync.SourcePrefix, cfg.ERP.StatusChunkSize, a.logger),
		Customers: appintegration.NewCustomerResolver(
			netsuite.NewDirectory(client, cfg.ERP.SubsidiaryID, a.logger),
			customerPolicy(cfg.Sync),
			a.logger,
		),
		Lines:  appintegration.NewLineBuilder(netsuite.NewCatalog(client), itemSettings(cfg.ERP.Items), a.logger),
		Orders: netsuite.NewSalesOrders(client, cfg.ERP.TaxTotalField, cfg.ERP.DiscountTotalField, a.logger),
		Retry: appintegration.NewRetryCoordinator(appintegration.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Delay:       cfg.Retry.Delay,
		}, notify.Multi{notify.NewLogNotifier(a.logger), notify.SpanNotifier{}}, a.logger),
	}

	metrics, err := telemetry.NewSyncMetrics(a.telemetry.Meter(telemetry.TracerName))
	if err != nil {
		return nil, err
	}
	deps.Metrics = metrics

	if cfg.Storefront.MarkProcessing {
		source, err := a.storefrontClient()
		if err != nil {
			return nil, fmt.Errorf("storefront.mark_processing requires storefront settings: %w", err)
		}
		deps.Source = source
	}

	if cfg.Sync.ClaimEnabled {
		factory := cache.NewClaimStoreFactory(cfg.Redis,
			cache.WithLogger(a.logger),
			cache.WithNamespace(cfg.App.Env),
		)
		claims, err := factory.CreateStore(cfg.Sync.ClaimBackend)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, claims.Close)
		deps.Claims = claims
	}

	if cfg.Database.Enabled {
		db, err := a.database()
		if err != nil {
			return nil, fmt.Errorf("failed to open attempt log: %w", err)
		}
		deps.Recorder = persistence.NewGormSyncAttemptRepository(db.DB)
	}

	return appintegration.NewOrderReconciler(appintegration.ReconcilerConfig{
		SourcePrefix:   cfg.Sync.SourcePrefix,
		TotalTolerance: cfg.Sync.TotalTolerance,
		MarkProcessing: cfg.Storefront.MarkProcessing,
		ClaimTTL:       cfg.Sync.ClaimTTL,
	}, deps, a.logger), nil
}

func netsuiteConfig(erp config.ERPConfig) *netsuite.Config {
	return &netsuite.Config{
		AccountID:          erp.AccountID,
		ConsumerKey:        erp.ConsumerKey,
		ConsumerSecret:     erp.ConsumerSecret,
		TokenID:            erp.TokenID,
		TokenSecret:        erp.TokenSecret,
		SignatureMethod:    netsuite.SignatureMethod(erp.SignatureMethod),
		BaseURL:            erp.BaseURL,
		TimeoutSeconds:     int(erp.Timeout.Seconds()),
		RequestsPerSecond:  erp.RequestsPerSecond,
		Burst:              erp.Burst,
		QueryPageSize:      erp.QueryPageSize,
		StatusChunkSize:    erp.StatusChunkSize,
		SubsidiaryID:       erp.SubsidiaryID,
		TaxTotalField:      erp.TaxTotalField,
		DiscountTotalField: erp.DiscountTotalField,
	}
}

func itemSettings(items config.ItemsConfig) appintegration.ItemSettings {
	return appintegration.ItemSettings{
		FallbackItemID: items.FallbackItemID,
		Tax:            appintegration.ChargeLineSetting{AsLine: items.TaxAsLine, ItemID: items.TaxItemID},
		Shipping:       appintegration.ChargeLineSetting{AsLine: items.ShippingAsLine, ItemID: items.ShippingItemID},
		Discount:       appintegration.ChargeLineSetting{AsLine: items.DiscountAsLine, ItemID: items.DiscountItemID},
	}
}

func customerPolicy(sync config.SyncConfig) appintegration.CustomerPolicy {
	return appintegration.CustomerPolicy{
		SourcePrefix:              sync.SourcePrefix,
		ContactEmailQuestionIndex: sync.ContactEmailQuestionIndex,
		DropshipPaymentMethods:    sync.DropshipPaymentMethods,
	}
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}
}

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"
