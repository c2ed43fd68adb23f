package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/models"
	"tradedesk/internal/pricing"
	"tradedesk/internal/store"
	"tradedesk/internal/validation"
	"tradedesk/pkg/utils"
)

// addWatchlistCommands adds watchlist commands.
func addWatchlistCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Watchlist folders and stocks",
		Long: `Organize symbols into ordered folders with color flags and notes.

Folders are referenced by name or id; stocks by symbol or id.`,
	}

	cmd.AddCommand(newFoldersCmd(app))
	cmd.AddCommand(newFolderAddCmd(app))
	cmd.AddCommand(newFolderRemoveCmd(app))
	cmd.AddCommand(newFolderMoveCmd(app))
	cmd.AddCommand(newStockAddCmd(app))
	cmd.AddCommand(newStockRemoveCmd(app))
	cmd.AddCommand(newStockFlagCmd(app))
	cmd.AddCommand(newStockNoteCmd(app))
	cmd.AddCommand(newQuoteCmd(app))
	cmd.AddCommand(newWatchlistShowCmd(app))
	cmd.AddCommand(newWatchlistExportCmd(app))
	cmd.AddCommand(newWatchlistImportCmd(app))

	rootCmd.AddCommand(cmd)
}

// findFolder resolves a folder by exact id, then case-insensitive name.
func findFolder(w models.Watchlist, ref string) (models.WatchlistFolder, error) {
	if f, ok := w.Folder(ref); ok {
		return f, nil
	}
	for _, f := range w.Folders {
		if strings.EqualFold(f.Name, strings.TrimSpace(ref)) {
			return f.Clone(), nil
		}
	}
	return models.WatchlistFolder{}, apperrors.Wrapf(apperrors.ErrNotFound, "folder %q", ref)
}

// findStock resolves a stock in folder by id, then by symbol.
func findStock(f models.WatchlistFolder, ref string) (models.WatchlistStock, error) {
	if i := f.IndexOf(ref); i >= 0 {
		return f.Stocks[i], nil
	}
	symbol := validation.SanitizeTicker(ref)
	for _, s := range f.Stocks {
		if s.Symbol == symbol {
			return s, nil
		}
	}
	return models.WatchlistStock{}, apperrors.Wrapf(apperrors.ErrNotFound, "stock %q in folder %s", ref, f.Name)
}

// loadFolder reads the watchlist and resolves ref.
func loadFolder(cmd *cobra.Command, s store.DataStore, ref string) (models.Watchlist, models.WatchlistFolder, error) {
	w, err := s.GetWatchlist(ctxOf(cmd))
	if err != nil {
		return w, models.WatchlistFolder{}, err
	}
	f, err := findFolder(w, ref)
	return w, f, err
}

func newFoldersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var w models.Watchlist
			err := app.withStore(func(s store.DataStore) error {
				var err error
				w, err = s.GetWatchlist(ctxOf(cmd))
				return err
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				type folderInfo struct {
					ID     string `json:"id"`
					Name   string `json:"name"`
					Order  int    `json:"order"`
					Stocks int    `json:"stocks"`
				}
				infos := make([]folderInfo, 0, len(w.Folders))
				for _, f := range w.Folders {
					infos = append(infos, folderInfo{f.ID, f.Name, f.Order, len(f.Stocks)})
				}
				return output.JSON(infos)
			}
			if len(w.Folders) == 0 {
				output.Dim("No folders yet. Create one with 'tradedesk watchlist folder-add <name>'")
				return nil
			}

			table := NewTable(output, "ORDER", "NAME", "STOCKS", "ID")
			table.AlignRight(1, 3)
			for _, f := range w.Folders {
				table.AddRow(strconv.Itoa(f.Order), f.Name, strconv.Itoa(len(f.Stocks)), f.ID)
			}
			table.Render()
			return nil
		},
	}
}

func newFolderAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folder-add <name>",
		Short:   "Create a folder",
		Example: `  tradedesk watchlist folder-add "Swing ideas"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var folder models.WatchlistFolder
			err := app.withStore(func(s store.DataStore) error {
				w, err := s.GetWatchlist(ctxOf(cmd))
				if err != nil {
					return err
				}
				if _, err := findFolder(w, args[0]); err == nil {
					return apperrors.NewInputError("name", args[0], "a folder with this name already exists")
				}
				order := w.NextOrder()
				if cmd.Flags().Changed("order") {
					order, _ = cmd.Flags().GetInt("order")
				}
				folder, err = models.NewWatchlistFolder(args[0], order, time.Now())
				if err != nil {
					return err
				}
				return s.SaveFolder(ctxOf(cmd), folder)
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(folder)
			}
			output.Success("✓ Created folder %s (%s)", folder.Name, folder.ID)
			return nil
		},
	}

	cmd.Flags().Int("order", 0, "Sort position (default: after every existing folder)")
	return cmd
}

func newFolderRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "folder-rm <folder>",
		Short: "Delete a folder and its stocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var folder models.WatchlistFolder
			err := app.withStore(func(s store.DataStore) error {
				var err error
				if _, folder, err = loadFolder(cmd, s, args[0]); err != nil {
					return err
				}
				return s.DeleteFolder(ctxOf(cmd), folder.ID)
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": folder.ID})
			}
			output.Success("✓ Deleted folder %s (%d stocks)", folder.Name, len(folder.Stocks))
			return nil
		},
	}
}

func newFolderMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "folder-move <folder> <order>",
		Short: "Change a folder's sort position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			order, err := strconv.Atoi(args[1])
			if err != nil {
				return apperrors.NewValidationError("order", args[1], "not an integer")
			}

			var folder models.WatchlistFolder
			err = app.withStore(func(s store.DataStore) error {
				var err error
				if _, folder, err = loadFolder(cmd, s, args[0]); err != nil {
					return err
				}
				folder.Order = order
				return s.SaveFolder(ctxOf(cmd), folder)
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(folder)
			}
			output.Success("✓ Moved folder %s to position %d", folder.Name, order)
			return nil
		},
	}
}

func newStockAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add <folder> <symbol>",
		Short:   "Add a stock to a folder",
		Example: `  tradedesk watchlist add Tech nvda --name "NVIDIA Corp"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			symbol := validation.SanitizeTicker(args[1])
			name, _ := cmd.Flags().GetString("name")
			colorFlag, _ := cmd.Flags().GetString("color")
			flag, err := models.ParseColorFlag(colorFlag)
			if err != nil {
				return err
			}
			stock, err := models.NewWatchlistStock(symbol, name, time.Now())
			if err != nil {
				return err
			}
			stock.Color = flag

			var updated models.WatchlistFolder
			err = app.withStore(func(s store.DataStore) error {
				_, folder, err := loadFolder(cmd, s, args[0])
				if err != nil {
					return err
				}
				if _, err := findStock(folder, symbol); err == nil {
					return apperrors.Wrapf(apperrors.ErrDuplicateStock, "%s is already in %s", symbol, folder.Name)
				}
				updated, err = s.AddStock(ctxOf(cmd), folder.ID, stock)
				return err
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(stock)
			}
			output.Success("✓ Added %s to %s (%d stocks)", symbol, updated.Name, len(updated.Stocks))
			return nil
		},
	}

	cmd.Flags().String("name", "", "Company name")
	cmd.Flags().String("color", "none", "Color flag")
	return cmd
}

func newStockRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <folder> <symbol|id>",
		Short: "Remove a stock from a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var stock models.WatchlistStock
			var updated models.WatchlistFolder
			err := app.withStore(func(s store.DataStore) error {
				_, folder, err := loadFolder(cmd, s, args[0])
				if err != nil {
					return err
				}
				if stock, err = findStock(folder, args[1]); err != nil {
					return err
				}
				updated, err = s.RemoveStock(ctxOf(cmd), folder.ID, stock.ID)
				return err
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"removed": stock.ID, "symbol": stock.Symbol})
			}
			output.Success("✓ Removed %s from %s", stock.Symbol, updated.Name)
			return nil
		},
	}
}

func newStockFlagCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "flag <folder> <symbol|id> <color>",
		Short: "Set a stock's color flag",
		Long:  "Set a stock's color flag: none, red, orange, yellow, green, blue, purple, pink or gray.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			flag, err := models.ParseColorFlag(args[2])
			if err != nil {
				return err
			}

			var stock models.WatchlistStock
			err = app.withStore(func(s store.DataStore) error {
				_, folder, err := loadFolder(cmd, s, args[0])
				if err != nil {
					return err
				}
				if stock, err = findStock(folder, args[1]); err != nil {
					return err
				}
				_, err = s.UpdateStock(ctxOf(cmd), folder.ID, stock.ID, func(f models.WatchlistFolder) (models.WatchlistFolder, error) {
					return f.WithStockColor(stock.ID, flag)
				})
				return err
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"id": stock.ID, "symbol": stock.Symbol, "color": string(flag)})
			}
			output.Success("✓ Flagged %s %s", stock.Symbol, flag)
			return nil
		},
	}
}

func newStockNoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "note <folder> <symbol|id> <text>",
		Short:   "Set a stock's notes",
		Example: `  tradedesk watchlist note Tech NVDA "earnings on the 21st"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var stock models.WatchlistStock
			err := app.withStore(func(s store.DataStore) error {
				_, folder, err := loadFolder(cmd, s, args[0])
				if err != nil {
					return err
				}
				if stock, err = findStock(folder, args[1]); err != nil {
					return err
				}
				_, err = s.UpdateStock(ctxOf(cmd), folder.ID, stock.ID, func(f models.WatchlistFolder) (models.WatchlistFolder, error) {
					return f.WithStockNotes(stock.ID, args[2])
				})
				return err
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"id": stock.ID, "symbol": stock.Symbol, "notes": args[2]})
			}
			output.Success("✓ Updated notes for %s", stock.Symbol)
			return nil
		},
	}
}

func newQuoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <symbol> <price> <change>",
		Short: "Record a price quote for every entry of a symbol",
		Long: `Record an externally fetched quote. The change percent is derived from the
price and change unless --change-pct is given, in which case it is checked
against the implied previous price and a mismatch is reported.`,
		Example: `  tradedesk watchlist quote AAPL 190.50 2.25`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			v, err := parseFloats(args[1:], "price", "change")
			if err != nil {
				return err
			}
			ticker := models.Ticker{Symbol: validation.SanitizeTicker(args[0]), Price: v[0], Change: v[1]}
			if cmd.Flags().Changed("change-pct") {
				ticker.ChangePercent, _ = cmd.Flags().GetFloat64("change-pct")
			} else {
				ticker.ChangePercent, err = pricing.PercentChange(ticker.ImpliedPreviousPrice(), ticker.Price)
				if err != nil {
					return err
				}
			}
			if err := ticker.Validate(); err != nil {
				return err
			}

			var n int
			err = app.withStore(func(s store.DataStore) error {
				var err error
				n, err = s.ApplyQuote(ctxOf(cmd), ticker.Symbol, ticker.Price, ticker.Change, ticker.ChangePercent)
				return err
			})
			if err != nil {
				return err
			}

			consistent := ticker.ChangePercentConsistent(0.01)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"ticker": ticker, "updated": n, "consistent": consistent})
			}
			output.Printf("%s %s %s (%s)\n", ticker.Symbol, utils.FormatCurrency(ticker.Price),
				output.FormatPnL(ticker.Change), output.FormatPercent(ticker.ChangePercent))
			if !consistent {
				output.Warning("⚠ change percent does not match price and change")
			}
			if n == 0 {
				output.Dim("%s is not on the watchlist", ticker.Symbol)
			} else {
				output.Success("✓ Updated %d entr%s", n, plural(n, "y", "ies"))
			}
			return nil
		},
	}

	cmd.Flags().Float64("change-pct", 0, "Reported change percent")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func newWatchlistShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [folder]",
		Short: "Show folders and their stocks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var w models.Watchlist
			err := app.withStore(func(s store.DataStore) error {
				var err error
				w, err = s.GetWatchlist(ctxOf(cmd))
				if err != nil || len(args) == 0 {
					return err
				}
				f, err := findFolder(w, args[0])
				if err != nil {
					return err
				}
				w = models.Watchlist{Folders: []models.WatchlistFolder{f}}
				return nil
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(w)
			}
			if len(w.Folders) == 0 {
				output.Dim("Watchlist is empty")
				return nil
			}
			for i, f := range w.Folders {
				if i > 0 {
					output.Println()
				}
				displayFolder(output, f)
			}
			return nil
		},
	}
}

func displayFolder(output *Output, f models.WatchlistFolder) {
	output.Bold("%s (%d)", strings.ToUpper(f.Name), len(f.Stocks))
	if len(f.Stocks) == 0 {
		output.Dim("  empty")
		return
	}
	table := NewTable(output, "SYMBOL", "NAME", "PRICE", "CHG", "CHG%", "FLAG", "NOTES")
	table.AlignRight(3, 4, 5)
	for _, s := range f.Stocks {
		flag := ""
		if s.Color != models.ColorNone {
			flag = string(s.Color)
		}
		table.AddRow(
			s.Symbol,
			s.Name,
			utils.FormatCurrency(s.Price),
			output.FormatPnL(s.Change),
			output.FormatPercent(s.ChangePercent),
			flag,
			s.Notes,
		)
	}
	table.Render()
}

// exportRow is the flat CSV shape of a watchlist entry.
type exportRow struct {
	Folder        string  `csv:"folder"`
	Symbol        string  `csv:"symbol"`
	Name          string  `csv:"name"`
	Price         float64 `csv:"price"`
	Change        float64 `csv:"change"`
	ChangePercent float64 `csv:"change_percent"`
	Color         string  `csv:"color"`
	Notes         string  `csv:"notes"`
	AddedAt       string  `csv:"added_at"`
	ID            string  `csv:"id"`
}

func exportRows(w models.Watchlist) []*exportRow {
	var rows []*exportRow
	for _, f := range w.Folders {
		for _, s := range f.Stocks {
			rows = append(rows, &exportRow{
				Folder:        f.Name,
				Symbol:        s.Symbol,
				Name:          s.Name,
				Price:         s.Price,
				Change:        s.Change,
				ChangePercent: s.ChangePercent,
				Color:         string(s.Color),
				Notes:         s.Notes,
				AddedAt:       s.AddedAt.UTC().Format(time.RFC3339),
				ID:            s.ID,
			})
		}
	}
	return rows
}

func newWatchlistExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the watchlist as YAML, JSON or CSV",
		Example: `  tradedesk watchlist export --format csv --output watchlist.csv
  tradedesk watchlist export > backup.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			path, _ := cmd.Flags().GetString("output")

			var w models.Watchlist
			err := app.withStore(func(s store.DataStore) error {
				var err error
				w, err = s.GetWatchlist(ctxOf(cmd))
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			switch strings.ToLower(format) {
			case "yaml", "yml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(w); err != nil {
					return err
				}
				err = enc.Close()
			case "json":
				err = (&Output{writer: out}).JSON(w)
			case "csv":
				rows := exportRows(w)
				if rows == nil {
					rows = []*exportRow{}
				}
				err = gocsv.Marshal(rows, out)
			default:
				return apperrors.NewValidationError("format", format, "must be yaml, json or csv")
			}
			if err != nil {
				return err
			}

			if path != "" {
				NewOutput(cmd).Success("✓ Exported %d folders to %s", len(w.Folders), path)
			}
			return nil
		},
	}

	cmd.Flags().String("format", "yaml", "Output format (yaml, json, csv)")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newWatchlistImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import folders from a YAML or JSON watchlist file",
		Long: `Import folders from a file in the export format. Folders whose name
matches an existing folder are merged: stocks already present by symbol are
kept and new ones appended. Missing ids and timestamps are filled in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			incoming, err := readWatchlistFile(args[0])
			if err != nil {
				return err
			}

			var folders, added int
			err = app.withStore(func(s store.DataStore) error {
				existing, err := s.GetWatchlist(ctxOf(cmd))
				if err != nil {
					return err
				}
				now := time.Now()
				for _, in := range incoming.Folders {
					target, err := findFolder(existing, in.Name)
					if err != nil {
						target, err = models.NewWatchlistFolder(in.Name, existing.NextOrder(), now)
						if err != nil {
							return err
						}
						if !in.CreatedAt.IsZero() {
							target.CreatedAt = in.CreatedAt
						}
					}
					for _, st := range in.Stocks {
						st, err := normalizeImported(st, now)
						if err != nil {
							return err
						}
						if _, err := findStock(target, st.Symbol); err == nil {
							continue
						}
						if target.IndexOf(st.ID) >= 0 {
							st.ID = uuid.NewString()
						}
						if target, err = target.WithStock(st); err != nil {
							return err
						}
						added++
					}
					if err := s.SaveFolder(ctxOf(cmd), target); err != nil {
						return err
					}
					existing = existing.WithFolder(target)
					folders++
				}
				return nil
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]int{"folders": folders, "stocks": added})
			}
			output.Success("✓ Imported %d folders, %d new stocks", folders, added)
			return nil
		},
	}
	return cmd
}

// readWatchlistFile decodes a YAML or JSON watchlist.
func readWatchlistFile(path string) (models.Watchlist, error) {
	var w models.Watchlist
	data, err := os.ReadFile(path)
	if err != nil {
		return w, err
	}
	// YAML is a superset of JSON, so one decoder covers both.
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return w, nil
}

// normalizeImported sanitizes an imported stock and fills missing fields.
func normalizeImported(st models.WatchlistStock, now time.Time) (models.WatchlistStock, error) {
	st.Symbol = validation.SanitizeTicker(st.Symbol)
	if err := validation.RequireTicker("symbol", st.Symbol); err != nil {
		return st, err
	}
	flag, err := models.ParseColorFlag(string(st.Color))
	if err != nil {
		return st, err
	}
	st.Color = flag
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.AddedAt.IsZero() {
		st.AddedAt = now
	}
	return st, nil
}
