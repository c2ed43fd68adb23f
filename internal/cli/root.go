// Package cli provides the command-line interface for the trading desk.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradedesk/internal/config"
	"tradedesk/internal/logging"
	"tradedesk/internal/planner"
	"tradedesk/internal/pricing"
	"tradedesk/internal/store"
	"tradedesk/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-17"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Store     store.DataStore
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// the --config directory (or the default one) when a command runs, and the
// logger is then built from it; otherwise cfg and logger are used as given
// unless --config overrides them.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config:    cfg,
		ConfigDir: config.DefaultConfigDir(),
		Logger:    logger,
	}

	rootCmd := &cobra.Command{
		Use:   "tradedesk",
		Short: "Trade planning and risk calculator",
		Long: `tradedesk evaluates trade setups, sizes positions and keeps a watchlist.

Every number it prints comes from the same validated engine: percent moves,
risk/reward, risk-based position size, share/dollar conversion and Kelly sizing.

Use 'tradedesk <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Config and logger are resolved here, once --config is known.
			dir, _ := cmd.Flags().GetString("config")
			if dir != "" || app.Config == nil {
				loaded, err := config.Load(dir)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				app.Config = loaded
				if dir != "" {
					app.ConfigDir = dir
				}
				app.Logger = logging.NewLoggerWithConfig(logging.FromConfig(app.Config.Logging, app.ConfigDir))
			}

			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}

			if !app.Config.UI.ColorEnabled {
				color.NoColor = true
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradedesk)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addCalcCommands(rootCmd, app)
	addPlanningCommands(rootCmd, app)
	addWatchlistCommands(rootCmd, app)

	return rootCmd
}

// calculator returns a pricing calculator bounded by the configured percentages.
func (a *App) calculator() pricing.Calculator {
	return pricing.NewCalculator(a.Config.PercentBounds())
}

// newPlanner returns a planner configured from the risk section.
func (a *App) newPlanner() *planner.Planner {
	return planner.New(planner.Options{
		MinRiskReward: a.Config.Risk.MinRiskReward,
		Bounds:        a.Config.PercentBounds(),
	})
}

// openStore opens the SQLite store on first use.
func (a *App) openStore() (store.DataStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	dbPath := a.Config.Storage.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(a.ConfigDir, "tradedesk.db")
	}
	s, err := store.NewSQLiteStore(dbPath, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	a.Store = s
	return s, nil
}

// withStore runs fn against the store and closes it afterwards.
func (a *App) withStore(fn func(store.DataStore) error) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer a.closeStore()
	return fn(s)
}

func (a *App) closeStore() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("tradedesk v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.ConfigDir})
			}
			output.Println(app.ConfigDir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Risk Configuration")
	output.Printf("  Account Size:     %s\n", utils.FormatCurrency(cfg.Risk.AccountSize))
	output.Printf("  Risk Per Trade:   %.2f%%\n", cfg.Risk.RiskPercent)
	output.Printf("  Min Risk/Reward:  %.2f\n", cfg.Risk.MinRiskReward)
	output.Printf("  Percent Bounds:   [%.0f%%, %.0f%%]\n", cfg.Risk.MinPercentage, cfg.Risk.MaxPercentage)
	output.Printf("  Kelly Multiplier: %.2f\n", cfg.Risk.KellyMultiplier)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database:         %s\n", cfg.Storage.DBPath)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Logging.Level)
	output.Printf("  Console:          %v\n", cfg.Logging.Console)
	output.Printf("  File:             %v\n", cfg.Logging.File)
}
