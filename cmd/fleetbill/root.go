package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/fleetbill/adapters/clock"
	"github.com/artpar/fleetbill/adapters/email"
	"github.com/artpar/fleetbill/adapters/idgen"
	"github.com/artpar/fleetbill/adapters/metrics"
	"github.com/artpar/fleetbill/adapters/sqlite"
	"github.com/artpar/fleetbill/app"
	"github.com/artpar/fleetbill/bootstrap"
	"github.com/artpar/fleetbill/config"
	"github.com/artpar/fleetbill/ports"
)

var (
	// Global flags
	cfgFile string
)

const checkMark = "\033[32m✓\033[0m"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fleetbill",
	Short: "Shared-allowance settlement engine for phone fleet invoices",
	Long: `FleetBill settles carrier invoices for fleets of phone lines on
pooled plans: it ingests parsed invoices, re-prices each line, distributes
unused-allowance penalties fairly across the plan's lines and reports
per-leader totals.

Monthly flow:
  fleetbill bills create --fleet <id>       # register the invoice
  fleetbill ingest --bill <id> --file parsed.json
  fleetbill settle --bill <id>              # distribute penalties
  fleetbill report --bill <id> [--send]

Management:
  fleetbill plans list|load   # plan registry (load seeds from config)
  fleetbill phones list|add   # phone lines
  fleetbill serve             # reporting API`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "fleetbill.yaml", "config file path")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func openDatabase(cfg *config.Config) (*sqlite.DB, error) {
	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// services bundles the stores and services one-shot commands need.
type services struct {
	cfg *config.Config
	db  *sqlite.DB

	plans        *sqlite.PlanStore
	phones       *sqlite.PhoneStore
	fleets       *sqlite.FleetStore
	bills        *sqlite.BillStore
	consumptions *sqlite.ConsumptionStore
	penalties    *sqlite.PenaltyStore

	settlement *app.SettlementService
}

func newServices() (*services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	logger := bootstrap.SetupLogger(cfg.Logging)
	s := &services{
		cfg:          cfg,
		db:           db,
		plans:        sqlite.NewPlanStore(db),
		phones:       sqlite.NewPhoneStore(db),
		fleets:       sqlite.NewFleetStore(db),
		bills:        sqlite.NewBillStore(db),
		consumptions: sqlite.NewConsumptionStore(db),
		penalties:    sqlite.NewPenaltyStore(db),
	}
	s.settlement = app.NewSettlementService(
		s.plans, s.phones, s.bills, s.consumptions, s.penalties,
		clock.Real{}, idgen.UUID{}, metrics.NewWithRegistry(nil), logger,
	)
	return s, nil
}

// reports builds the report service; deliver selects real SMTP delivery over
// dry-run rendering.
func (s *services) reports(deliver bool) *app.ReportService {
	logger := bootstrap.SetupLogger(s.cfg.Logging)

	var notifier ports.Notifier = email.NewNoopNotifier()
	if deliver && s.cfg.SMTP.Host != "" {
		notifier = email.NewSMTPSender(email.SMTPConfig{
			Host:       s.cfg.SMTP.Host,
			Port:       s.cfg.SMTP.Port,
			Username:   s.cfg.SMTP.Username,
			Password:   s.cfg.SMTP.Password,
			From:       s.cfg.Report.From,
			FromName:   s.cfg.Report.FromName,
			UseTLS:     s.cfg.SMTP.UseTLS,
			SkipVerify: s.cfg.SMTP.SkipVerify,
			Timeout:    s.cfg.SMTP.Timeout,
		})
	}

	return app.NewReportService(
		s.bills, s.phones, s.consumptions, s.penalties,
		notifier, app.ReportOptions{
			SubjectPrefix: s.cfg.Report.SubjectPrefix,
			DryRun:        !deliver,
		}, metrics.NewWithRegistry(nil), logger,
	)
}

func (s *services) Close() error {
	return s.db.Close()
}
