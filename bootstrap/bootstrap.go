// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/fleetbill/adapters/clock"
	"github.com/artpar/fleetbill/adapters/email"
	"github.com/artpar/fleetbill/adapters/idgen"
	"github.com/artpar/fleetbill/adapters/metrics"
	"github.com/artpar/fleetbill/adapters/sqlite"
	"github.com/artpar/fleetbill/app"
	"github.com/artpar/fleetbill/config"
	"github.com/artpar/fleetbill/ports"
	"github.com/artpar/fleetbill/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	Settlement *app.SettlementService
	Reports    *app.ReportService

	Plans        ports.PlanStore
	Phones       ports.PhoneStore
	Fleets       ports.FleetStore
	Bills        ports.BillStore
	Consumptions ports.ConsumptionStore
	Penalties    ports.PenaltyStore

	holder *config.Holder
}

// New creates and initializes the application from a loaded config.
func New(cfg *config.Config) (*App, error) {
	logger := SetupLogger(cfg.Logging)

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	a.DB = db

	a.Plans = sqlite.NewPlanStore(db)
	a.Phones = sqlite.NewPhoneStore(db)
	a.Fleets = sqlite.NewFleetStore(db)
	a.Bills = sqlite.NewBillStore(db)
	a.Consumptions = sqlite.NewConsumptionStore(db)
	a.Penalties = sqlite.NewPenaltyStore(db)

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	} else {
		// Unregistered collector: the services stay wired the same way
		// without polluting the default registry.
		a.Metrics = metrics.NewWithRegistry(nil)
	}

	a.Settlement = app.NewSettlementService(
		a.Plans, a.Phones, a.Bills, a.Consumptions, a.Penalties,
		clock.Real{}, idgen.UUID{}, a.Metrics, logger,
	)
	a.Reports = app.NewReportService(
		a.Bills, a.Phones, a.Consumptions, a.Penalties,
		a.notifier(), app.ReportOptions{
			SubjectPrefix: cfg.Report.SubjectPrefix,
			DryRun:        cfg.Report.DryRun,
		}, a.Metrics, logger,
	)

	if err := a.SeedPlans(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed plans: %w", err)
	}

	a.initHTTPServer()
	return a, nil
}

// NewWithHotReload creates the application with a watched config file. Plan
// entries are re-seeded and the log level adjusted on every reload.
func NewWithHotReload(path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	a, err := New(cfg)
	if err != nil {
		return nil, err
	}

	holder, err := config.NewHolder(path, a.Logger)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("watch config: %w", err)
	}
	holder.OnChange(func(next *config.Config) {
		a.Config = next
		if level, err := zerolog.ParseLevel(next.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		if err := a.SeedPlans(context.Background()); err != nil {
			a.Logger.Error().Err(err).Msg("plan reseed failed after config reload")
		}
	})
	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watching unavailable")
	}
	holder.WatchSignals()
	a.holder = holder

	return a, nil
}

// SeedPlans upserts every plan from the config into the registry.
func (a *App) SeedPlans(ctx context.Context) error {
	for _, pc := range a.Config.Plans {
		p, err := pc.ToPlan()
		if err != nil {
			return err
		}
		if err := a.Plans.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert plan %s: %w", p.Name, err)
		}
	}
	if len(a.Config.Plans) > 0 {
		a.Logger.Info().Int("count", len(a.Config.Plans)).Msg("plans seeded from config")
	}
	return nil
}

// notifier builds the report notifier: SMTP when a host is configured,
// otherwise a no-op (dry-run rendering still works).
func (a *App) notifier() ports.Notifier {
	if a.Config.SMTP.Host == "" {
		return email.NewNoopNotifier()
	}
	return email.NewSMTPSender(email.SMTPConfig{
		Host:       a.Config.SMTP.Host,
		Port:       a.Config.SMTP.Port,
		Username:   a.Config.SMTP.Username,
		Password:   a.Config.SMTP.Password,
		From:       a.Config.Report.From,
		FromName:   a.Config.Report.FromName,
		UseTLS:     a.Config.SMTP.UseTLS,
		SkipVerify: a.Config.SMTP.SkipVerify,
		Timeout:    a.Config.SMTP.Timeout,
	})
}

func (a *App) initHTTPServer() {
	h := web.NewHandler(web.Deps{
		Plans:          a.Plans,
		Phones:         a.Phones,
		Bills:          a.Bills,
		Fleets:         a.Fleets,
		Reports:        a.Reports,
		MetricsEnabled: a.Config.Metrics.Enabled,
		Logger:         a.Logger,
	})

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      h.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// SetupLogger builds the process logger from the logging config.
func SetupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
