package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/logging"
	"tradedesk/internal/models"
	"tradedesk/internal/planner"
	"tradedesk/internal/store"
	"tradedesk/internal/validation"
	"tradedesk/pkg/utils"
)

// addPlanningCommands adds planning commands.
func addPlanningCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPlanCmd(app))
}

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Trade setup evaluation and tracking",
		Long:  "Check, derive, save, list and expire trade setups.",
	}

	cmd.AddCommand(newPlanCheckCmd(app))
	cmd.AddCommand(newPlanDeriveCmd(app))
	cmd.AddCommand(newPlanSaveCmd(app))
	cmd.AddCommand(newPlanListCmd(app))
	cmd.AddCommand(newPlanStatusCmd(app))
	cmd.AddCommand(newPlanExpireCmd(app))

	return cmd
}

// loadSetups reads one or more YAML documents, each a TradeSetup.
func loadSetups(path string) ([]models.TradeSetup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var setups []models.TradeSetup
	dec := yaml.NewDecoder(f)
	for {
		var s models.TradeSetup
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		setups = append(setups, s)
	}
	if len(setups) == 0 {
		return nil, apperrors.NewInputError("file", path, "no trade setups found")
	}
	return setups, nil
}

// accountFromFlags returns the sizing account, or nil with --no-size.
func accountFromFlags(cmd *cobra.Command, app *App) *planner.Account {
	if noSize, _ := cmd.Flags().GetBool("no-size"); noSize {
		return nil
	}
	acct := &planner.Account{Size: app.Config.Risk.AccountSize, RiskPercent: app.Config.Risk.RiskPercent}
	if cmd.Flags().Changed("account") {
		acct.Size, _ = cmd.Flags().GetFloat64("account")
	}
	if cmd.Flags().Changed("risk") {
		acct.RiskPercent, _ = cmd.Flags().GetFloat64("risk")
	}
	return acct
}

func addAccountFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("account", 0, "Account size (default from config)")
	cmd.Flags().Float64("risk", 0, "Percent of the account to risk (default from config)")
	cmd.Flags().Bool("no-size", false, "Skip position sizing")
}

// evaluation pairs a report with the evaluated setup.
type evaluation struct {
	ID     string            `json:"id,omitempty"`
	Report *planner.Report   `json:"report"`
	Setup  models.TradeSetup `json:"setup"`
}

func (a *App) evaluate(ctx context.Context, setups []models.TradeSetup, account *planner.Account) ([]evaluation, error) {
	results := a.newPlanner().EvaluateAll(ctx, setups, account, 0)
	out := make([]evaluation, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("setup %d (%s): %w", r.Index+1, strings.TrimSpace(setups[r.Index].Ticker), r.Err)
		}
		logger := logging.WithSymbol(a.Logger, r.Report.Symbol)
		logging.LogPlanEvaluation(logger, r.Report.Symbol, string(r.Report.Direction), r.Report.RiskReward, r.Report.Shares, len(r.Report.Warnings))
		out = append(out, evaluation{Report: r.Report, Setup: r.Setup})
	}
	return out, nil
}

func newPlanCheckCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file.yaml>",
		Short: "Validate and evaluate trade setups from a YAML file",
		Long: `Validate each setup's level ordering, compute risk/reward against the
midpoint of the entry range for every target, and size the position
against the account.

The file may hold several setups separated by '---'.`,
		Example: `  tradedesk plan check aapl.yaml
  tradedesk plan check setups.yaml --account 50000 --risk 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			setups, err := loadSetups(args[0])
			if err != nil {
				return err
			}
			results, err := app.evaluate(ctxOf(cmd), setups, accountFromFlags(cmd, app))
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(results)
			}
			for i, r := range results {
				if i > 0 {
					output.Println()
				}
				displayReport(output, r.Setup, r.Report)
			}
			return nil
		},
	}

	addAccountFlags(cmd)
	return cmd
}

func newPlanDeriveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive <symbol>",
		Short: "Derive entry, target and stop levels from percentages",
		Example: `  tradedesk plan derive AAPL --price 190 --targets 5,10 --stop 3
  tradedesk plan derive TSLA --price 250 --direction short --targets 8 --stop 4 --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			symbol := validation.SanitizeTicker(args[0])
			if err := validation.RequireTicker("symbol", symbol); err != nil {
				return err
			}
			price, _ := cmd.Flags().GetFloat64("price")
			dirFlag, _ := cmd.Flags().GetString("direction")
			targets, _ := cmd.Flags().GetFloat64Slice("targets")
			stopPct, _ := cmd.Flags().GetFloat64("stop")
			band, _ := cmd.Flags().GetFloat64("band")
			tfFlag, _ := cmd.Flags().GetString("timeframe")
			save, _ := cmd.Flags().GetBool("save")

			dir, err := models.ParseDirection(strings.ToLower(dirFlag))
			if err != nil {
				return err
			}
			tf, err := models.ParseTimeframe(strings.ToLower(tfFlag))
			if err != nil {
				return err
			}

			plan, err := app.newPlanner().BuildLevels(planner.LevelSpec{
				Price:          price,
				Direction:      dir,
				EntryBandPct:   band,
				TargetPercents: targets,
				StopPercent:    stopPct,
			})
			if err != nil {
				return err
			}

			setup := models.TradeSetup{Ticker: symbol, Timeframe: tf, Direction: dir, Plan: plan}
			results, err := app.evaluate(ctxOf(cmd), []models.TradeSetup{setup}, accountFromFlags(cmd, app))
			if err != nil {
				return err
			}
			result := results[0]

			if save {
				if err := app.saveEvaluations(ctxOf(cmd), results); err != nil {
					return err
				}
				result = results[0]
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			displayReport(output, result.Setup, result.Report)
			if result.ID != "" {
				output.Println()
				output.Success("✓ Saved as %s", result.ID)
			}
			return nil
		},
	}

	cmd.Flags().Float64("price", 0, "Reference price (required)")
	cmd.Flags().String("direction", "long", "Direction (long or short)")
	cmd.Flags().Float64Slice("targets", nil, "Target moves in percent, nearest first (required)")
	cmd.Flags().Float64("stop", 0, "Stop distance in percent (required)")
	cmd.Flags().Float64("band", 0, "Half-width of the entry range in percent")
	cmd.Flags().String("timeframe", "swing", "Timeframe (day, swing or position)")
	cmd.Flags().Bool("save", false, "Save the derived setup")
	addAccountFlags(cmd)

	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("targets")
	cmd.MarkFlagRequired("stop")

	return cmd
}

// saveEvaluations stores each evaluated setup as pending and records its id.
func (a *App) saveEvaluations(ctx context.Context, results []evaluation) error {
	return a.withStore(func(s store.DataStore) error {
		for i := range results {
			rec := &store.SetupRecord{Setup: results[i].Setup, Status: models.PlanPending}
			if err := s.SaveSetup(ctx, rec); err != nil {
				return err
			}
			results[i].ID = rec.ID
		}
		return nil
	})
}

func newPlanSaveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <file.yaml>",
		Short: "Evaluate and save trade setups",
		Long:  "Evaluate every setup in the file and save them as pending. Nothing is saved if any setup is invalid.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			setups, err := loadSetups(args[0])
			if err != nil {
				return err
			}
			results, err := app.evaluate(ctxOf(cmd), setups, accountFromFlags(cmd, app))
			if err != nil {
				return err
			}
			if err := app.saveEvaluations(ctxOf(cmd), results); err != nil {
				output.Error("Failed to save setups: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(results)
			}
			for _, r := range results {
				output.Success("✓ %s %s saved as %s (R:R %s)", r.Report.Symbol, r.Report.Direction, r.ID, utils.FormatRatio(r.Report.RiskReward))
				for _, w := range r.Report.Warnings {
					output.Warning("  ⚠ %s", w)
				}
			}
			return nil
		},
	}

	addAccountFlags(cmd)
	return cmd
}

func newPlanListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved trade setups",
		Example: `  tradedesk plan list
  tradedesk plan list --status PENDING --symbol AAPL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			symbol, _ := cmd.Flags().GetString("symbol")
			statusFlag, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")

			filter := store.SetupFilter{Symbol: validation.SanitizeTicker(symbol), Limit: limit}
			if statusFlag != "" {
				status, ok := models.ParsePlanStatus(strings.ToUpper(statusFlag))
				if !ok {
					return apperrors.NewValidationError("status", statusFlag, "unknown plan status")
				}
				filter.Status = status
			}

			var records []store.SetupRecord
			err := app.withStore(func(s store.DataStore) error {
				var err error
				records, err = s.GetSetups(ctxOf(cmd), filter)
				return err
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if records == nil {
					records = []store.SetupRecord{}
				}
				return output.JSON(records)
			}
			if len(records) == 0 {
				output.Dim("No trade setups found")
				return nil
			}

			table := NewTable(output, "ID", "SYMBOL", "DIR", "ENTRY", "STOP", "TARGET", "R:R", "STATUS", "CREATED")
			table.AlignRight(4, 5, 6, 7)
			for _, r := range records {
				plan := r.Setup.Plan
				target := ""
				if len(plan.Targets) > 0 {
					target = fmt.Sprintf("%.2f", plan.Targets[0])
				}
				table.AddRow(
					r.ID,
					r.Setup.Ticker,
					string(r.Setup.Direction),
					fmt.Sprintf("%.2f-%.2f", plan.Entry.Min, plan.Entry.Max),
					fmt.Sprintf("%.2f", plan.Stop),
					target,
					fmt.Sprintf("%.2f", plan.RiskReward),
					statusText(output, r.Status),
					r.CreatedAt.Local().Format(app.dateFormat()),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "Filter by symbol")
	cmd.Flags().String("status", "", "Filter by status (PENDING, ACTIVE, EXECUTED, CANCELLED, EXPIRED)")
	cmd.Flags().Int("limit", 50, "Maximum number of setups")

	return cmd
}

func newPlanStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "status <id> <status>",
		Short:   "Change a saved setup's status",
		Example: "  tradedesk plan status 3f2a9c1e-... ACTIVE",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			status, ok := models.ParsePlanStatus(strings.ToUpper(args[1]))
			if !ok {
				return apperrors.NewValidationError("status", args[1], "unknown plan status")
			}

			err := app.withStore(func(s store.DataStore) error {
				return s.UpdateSetupStatus(ctxOf(cmd), args[0], status)
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"id": args[0], "status": string(status)})
			}
			output.Success("✓ Setup %s is now %s", args[0], status)
			return nil
		},
	}
}

func newPlanExpireCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Expire stale pending and active setups",
		Example: `  tradedesk plan expire
  tradedesk plan expire --older-than 72h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			olderThan, _ := cmd.Flags().GetDuration("older-than")
			if olderThan < 0 {
				return apperrors.NewInputError("older-than", olderThan.String(), "must not be negative")
			}
			cutoff := time.Now().Add(-olderThan)

			var n int64
			err := app.withStore(func(s store.DataStore) error {
				var err error
				n, err = s.ExpireSetups(ctxOf(cmd), cutoff)
				return err
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"expired": n, "before": cutoff.UTC()})
			}
			output.Success("✓ Expired %d setup(s) created before %s", n, cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().Duration("older-than", 7*24*time.Hour, "Age after which a setup expires")

	return cmd
}

func displayReport(output *Output, setup models.TradeSetup, r *planner.Report) {
	plan := setup.Plan
	output.Bold("%s %s Setup", r.Symbol, strings.ToUpper(string(r.Direction)))
	if plan.Setup != "" {
		output.Dim("  %s", plan.Setup)
	}
	output.Printf("  Entry:        %s - %s (ref %s)\n",
		utils.FormatCurrency(plan.Entry.Min), utils.FormatCurrency(plan.Entry.Max), utils.FormatCurrency(r.EntryReference))
	output.Printf("  Stop:         %s\n", output.Red(utils.FormatCurrency(plan.Stop)))
	for i, t := range plan.Targets {
		output.Printf("  Target %d:     %s  (%s)\n", i+1, output.Green(utils.FormatCurrency(t)), utils.FormatRatio(r.TargetRatios[i]))
	}
	output.Printf("  Risk/share:   %s\n", utils.FormatCurrency(r.RiskPerShare))

	rr := utils.FormatRatio(r.RiskReward)
	if r.MeetsMinimum {
		output.Printf("  Risk/Reward:  %s\n", output.Green(rr))
	} else {
		output.Printf("  Risk/Reward:  %s\n", output.Red(rr))
	}

	if r.Shares > 0 || r.DollarRisk > 0 {
		output.Printf("  Shares:       %s\n", utils.FormatShares(r.Shares))
		output.Printf("  Dollar risk:  %s\n", utils.FormatCurrency(r.DollarRisk))
		output.Printf("  Reward (T1):  %s\n", utils.FormatCurrency(r.DollarReward))
	}

	if setup.Insight.Sentiment != "" {
		output.Printf("  Sentiment:    %s\n", setup.Insight.Sentiment)
	}
	for _, w := range r.Warnings {
		output.Warning("  ⚠ %s", w)
	}
}

func statusText(output *Output, s models.PlanStatus) string {
	switch s {
	case models.PlanActive, models.PlanExecuted:
		return output.Green(string(s))
	case models.PlanCancelled, models.PlanExpired:
		return output.Red(string(s))
	}
	return output.Yellow(string(s))
}

// ctxOf returns the command's context or a background one.
func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *App) dateFormat() string {
	if a.Config.UI.DateFormat != "" {
		return a.Config.UI.DateFormat
	}
	return "2006-01-02"
}
