package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/logging"
	"tradedesk/internal/pricing"
	"tradedesk/internal/risk"
	"tradedesk/internal/sizing"
	"tradedesk/internal/validation"
	"tradedesk/pkg/utils"
)

// addCalcCommands adds the calculator command group.
func addCalcCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Price, risk and sizing calculators",
		Long: `Run a single engine calculation.

Negative numbers must follow '--' so they are not read as flags:
  tradedesk calc target -- 100 -5`,
	}

	cmd.AddCommand(newPctChangeCmd(app))
	cmd.AddCommand(newPriceChangeCmd(app))
	cmd.AddCommand(newTargetCmd(app))
	cmd.AddCommand(newStopCmd(app))
	cmd.AddCommand(newRiskRewardCmd(app))
	cmd.AddCommand(newRiskAmountCmd(app))
	cmd.AddCommand(newRewardAmountCmd(app))
	cmd.AddCommand(newSizeCmd(app))
	cmd.AddCommand(newSharesCmd(app))
	cmd.AddCommand(newDollarsCmd(app))
	cmd.AddCommand(newKellyCmd(app))

	rootCmd.AddCommand(cmd)
}

// CalcResult is the JSON shape of a calculation.
type CalcResult struct {
	Operation string             `json:"operation"`
	Inputs    map[string]float64 `json:"inputs"`
	Result    float64            `json:"result"`
}

// parseFloats parses positional arguments, naming each by its position.
func parseFloats(args []string, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, apperrors.NewValidationError(name, args[i], "not a number")
		}
		out[i] = v
	}
	return out, nil
}

func parseShares(name, arg string) (int64, error) {
	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(name, arg, "not a whole number of shares")
	}
	return v, nil
}

// report logs a calculation and prints its result.
func (a *App) report(cmd *cobra.Command, op, label string, inputs map[string]float64, result float64, err error, format func(float64) string) error {
	logging.LogCalculation(a.Logger, op, inputs, result, err)
	if err != nil {
		return err
	}

	output := NewOutput(cmd)
	if output.IsJSON() {
		return output.JSON(CalcResult{Operation: op, Inputs: inputs, Result: result})
	}
	output.Printf("%s: %s\n", label, format(result))
	return nil
}

func newPctChangeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "pct-change <old> <new>",
		Short:   "Percent change from old to new",
		Example: "  tradedesk calc pct-change 100 110",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "old_value", "new_value")
			if err != nil {
				return err
			}
			out := NewOutput(cmd)
			pct, err := pricing.PercentChange(v[0], v[1])
			return app.report(cmd, "percent_change", "Percent change",
				map[string]float64{"old": v[0], "new": v[1]}, pct, err, out.FormatPercent)
		},
	}
}

func newPriceChangeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "price-change <old> <new>",
		Short: "Absolute price change from old to new",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "old_price", "new_price")
			if err != nil {
				return err
			}
			for i, name := range []string{"old_price", "new_price"} {
				if err := validation.RequireFinite(name, v[i]); err != nil {
					return err
				}
			}
			out := NewOutput(cmd)
			return app.report(cmd, "price_change", "Price change",
				map[string]float64{"old": v[0], "new": v[1]}, pricing.PriceChange(v[0], v[1]), nil, out.FormatPnL)
		},
	}
}

func newTargetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "target <price> <gain%>",
		Short:   "Target price after a percent gain",
		Example: "  tradedesk calc target 100 10",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "current_price", "percent_gain")
			if err != nil {
				return err
			}
			price, err := app.calculator().TargetPrice(v[0], v[1])
			return app.report(cmd, "target_price", "Target price",
				map[string]float64{"price": v[0], "gain_pct": v[1]}, price, err, utils.FormatCurrency)
		},
	}
}

func newStopCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "stop <entry> <loss%>",
		Short:   "Stop price after a percent loss",
		Example: "  tradedesk calc stop 100 5",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "entry_price", "percent_loss")
			if err != nil {
				return err
			}
			price, err := app.calculator().StopPrice(v[0], v[1])
			return app.report(cmd, "stop_price", "Stop price",
				map[string]float64{"entry": v[0], "loss_pct": v[1]}, price, err, utils.FormatCurrency)
		},
	}
}

func newRiskRewardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rr <entry> <target> <stop>",
		Short:   "Risk/reward ratio",
		Example: "  tradedesk calc rr 100 110 95",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "entry", "target", "stop")
			if err != nil {
				return err
			}
			rr, err := risk.RiskRewardRatio(v[0], v[1], v[2])
			return app.report(cmd, "risk_reward_ratio", "Risk/reward",
				map[string]float64{"entry": v[0], "target": v[1], "stop": v[2]}, rr, err, utils.FormatRatio)
		},
	}
}

func newRiskAmountCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "risk <entry> <stop> <shares>",
		Short: "Dollar risk of a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args[:2], "entry", "stop")
			if err != nil {
				return err
			}
			shares, err := parseShares("shares", args[2])
			if err != nil {
				return err
			}
			amount, err := risk.RiskAmount(v[0], v[1], shares)
			return app.report(cmd, "risk_amount", "Risk",
				map[string]float64{"entry": v[0], "stop": v[1], "shares": float64(shares)}, amount, err, utils.FormatCurrency)
		},
	}
}

func newRewardAmountCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reward <entry> <target> <shares>",
		Short: "Dollar reward of a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args[:2], "entry", "target")
			if err != nil {
				return err
			}
			shares, err := parseShares("shares", args[2])
			if err != nil {
				return err
			}
			amount, err := risk.RewardAmount(v[0], v[1], shares)
			return app.report(cmd, "reward_amount", "Reward",
				map[string]float64{"entry": v[0], "target": v[1], "shares": float64(shares)}, amount, err, utils.FormatCurrency)
		},
	}
}

func newSizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "size <entry> <stop>",
		Short: "Position size from account risk",
		Long: `Number of whole shares whose loss at the stop stays within the risk budget.

The account size and risk percent default to the [risk] section of the config.`,
		Example: `  tradedesk calc size 100 95
  tradedesk calc size 50 48 --account 10000 --risk 2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "entry", "stop")
			if err != nil {
				return err
			}
			account, _ := cmd.Flags().GetFloat64("account")
			riskPct, _ := cmd.Flags().GetFloat64("risk")
			if !cmd.Flags().Changed("account") {
				account = app.Config.Risk.AccountSize
			}
			if !cmd.Flags().Changed("risk") {
				riskPct = app.Config.Risk.RiskPercent
			}

			inputs := map[string]float64{"account": account, "risk_pct": riskPct, "entry": v[0], "stop": v[1]}
			shares, err := risk.PositionSizeFromRisk(account, riskPct, v[0], v[1])
			logging.LogCalculation(app.Logger, "position_size_from_risk", inputs, float64(shares), err)
			if err != nil {
				return err
			}
			dollarRisk, err := risk.RiskAmount(v[0], v[1], shares)
			if err != nil {
				return err
			}
			cost, err := sizing.DollarsFromShares(shares, v[0])
			if err != nil {
				return err
			}
			budget, _ := risk.RiskBudget(account, riskPct).Float64()

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"operation":     "position_size_from_risk",
					"inputs":        inputs,
					"shares":        shares,
					"riskBudget":    budget,
					"dollarRisk":    dollarRisk,
					"positionValue": cost,
				})
			}
			output.Printf("Shares:         %s\n", utils.FormatShares(shares))
			output.Printf("Risk budget:    %s\n", utils.FormatCurrency(budget))
			output.Printf("Dollar risk:    %s\n", utils.FormatCurrency(dollarRisk))
			output.Printf("Position value: %s\n", utils.FormatCurrency(cost))
			if shares == 0 {
				output.Warning("Risk budget is smaller than the risk of one share")
			}
			return nil
		},
	}

	cmd.Flags().Float64("account", 0, "Account size (default from config)")
	cmd.Flags().Float64("risk", 0, "Percent of the account to risk (default from config)")

	return cmd
}

func newSharesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "shares <dollars> <price>",
		Short:   "Whole shares a dollar amount buys",
		Example: "  tradedesk calc shares 1000 33",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "dollar_amount", "price_per_share")
			if err != nil {
				return err
			}
			shares, err := sizing.SharesFromDollars(v[0], v[1])
			return app.report(cmd, "shares_from_dollars", "Shares",
				map[string]float64{"dollars": v[0], "price": v[1]}, float64(shares), err,
				func(f float64) string { return utils.FormatShares(int64(f)) })
		},
	}
}

func newDollarsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dollars <shares> <price>",
		Short: "Cost of a share count",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := parseShares("shares", args[0])
			if err != nil {
				return err
			}
			v, err := parseFloats(args[1:], "price_per_share")
			if err != nil {
				return err
			}
			dollars, err := sizing.DollarsFromShares(shares, v[0])
			return app.report(cmd, "dollars_from_shares", "Dollars",
				map[string]float64{"shares": float64(shares), "price": v[0]}, dollars, err, utils.FormatCurrency)
		},
	}
}

func newKellyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kelly <win-rate> <avg-win> <avg-loss>",
		Short: "Kelly fraction from win rate and average win/loss",
		Long: `Compute the raw Kelly fraction (b*p - q) / b, classify it, and scale it by
the configured multiplier (e.g. 0.5 for half-Kelly). The raw value is never clamped.`,
		Example: "  tradedesk calc kelly 0.55 200 100",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "win_rate", "avg_win", "avg_loss")
			if err != nil {
				return err
			}
			multiplier, _ := cmd.Flags().GetFloat64("multiplier")
			if !cmd.Flags().Changed("multiplier") {
				multiplier = app.Config.Risk.KellyMultiplier
			}

			inputs := map[string]float64{"win_rate": v[0], "avg_win": v[1], "avg_loss": v[2]}
			f, err := sizing.KellyFraction(v[0], v[1], v[2])
			logging.LogCalculation(app.Logger, "kelly_fraction", inputs, f, err)
			if err != nil {
				return err
			}
			scaled, err := sizing.ScaleKelly(f, multiplier)
			if err != nil {
				return err
			}
			signal := sizing.InterpretKelly(f)

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"operation":  "kelly_fraction",
					"inputs":     inputs,
					"result":     f,
					"signal":     signal,
					"multiplier": multiplier,
					"scaled":     scaled,
				})
			}
			output.Printf("Kelly fraction: %.4f\n", f)
			output.Printf("Scaled (x%.2f): %.4f\n", multiplier, scaled)
			switch signal {
			case sizing.KellyNoEdge:
				output.Warning("No edge: the inputs do not justify a position")
			case sizing.KellyOverLeveraged:
				output.Warning("Over-leveraged: the fraction exceeds the whole account")
			default:
				output.Success("Signal: %s", signal)
			}
			if multiplier > 1 {
				output.Dim("Multiplier %.2f sizes above full Kelly", multiplier)
			}
			return nil
		},
	}

	cmd.Flags().Float64("multiplier", 0, "Fraction of full Kelly to apply (default from config)")

	return cmd
}
