package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyqueue/obs-scheduler/cmd/cli/commands"
	"github.com/skyqueue/obs-scheduler/internal/config"
	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
	"github.com/skyqueue/obs-scheduler/pkg/db"
	"github.com/skyqueue/obs-scheduler/pkg/metrics"
	"github.com/skyqueue/obs-scheduler/pkg/postgres"
	"github.com/skyqueue/obs-scheduler/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     = &commands.AppContext{}
	closeDB func()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Observation scheduler CLI - rank and plan telescope observations",
		Long:  `A CLI tool for scoring queued telescope observations by band and completion, and planning timeslots across sites.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
		SilenceUsage: true,
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs to the console")

	rootCmd.AddCommand(commands.CurvesCmd(app))
	rootCmd.AddCommand(commands.TickCmd(app))
	rootCmd.AddCommand(commands.ScheduleCmd(app))
	rootCmd.AddCommand(commands.ImportObservationsCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))

	if err := rootCmd.Execute(); err != nil {
		shutdown()
		os.Exit(1)
	}
}

// initApp sets up logger, config, band table, metrics and database
func initApp() error {
	var err error
	app.Ctx = context.Background()

	opts := logging.Options{}
	if verbose {
		opts.ConsoleLevel = zap.DebugLevel
	}
	app.Logger, err = logging.InitLogger(env, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	spread, err := app.Cfg.SpreadConfig()
	if err != nil {
		return fmt.Errorf("failed to read band spread: %w", err)
	}
	app.Table, err = priority.Init(spread)
	if err != nil {
		return fmt.Errorf("failed to derive band curves: %w", err)
	}
	app.Logger.Debug("Band curves derived",
		zap.Float64("band1_max", app.Table.MaxPriority(model.Band1)),
		zap.Float64("band3_max", app.Table.MaxPriority(model.Band3)))

	app.Metrics = metrics.NewRecorder()

	if app.Cfg.DatabaseURL != "" {
		app.Logger.Info("Connecting to database")
		pg, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		closeDB = pg.Close

		if err := pg.RunMigrations(app.Ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		app.Database = pg
		app.Logger.Info("Database initialized successfully")
		return nil
	}

	var seed []db.Observation
	if app.Cfg.ObservationsFile != "" {
		seed, err = db.LoadObservationsFile(app.Cfg.ObservationsFile)
		if err != nil {
			return err
		}
	}
	app.Database = db.NewMemoryDB(seed)
	app.Logger.Info("Using in-memory database", zap.Int("observations", len(seed)))

	return nil
}

// shutdown flushes metrics and logs and releases the database
func shutdown() {
	if app.Metrics != nil && app.Cfg != nil && app.Cfg.MetricsFile != "" {
		if err := app.Metrics.WriteTextfile(app.Cfg.MetricsFile); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to write metrics", zap.Error(err))
		}
		app.Metrics = nil
	}
	if closeDB != nil {
		closeDB()
		closeDB = nil
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
