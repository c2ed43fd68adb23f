package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedesk/internal/config"
	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/models"
	"tradedesk/internal/store"
)

type testEnv struct {
	t   *testing.T
	cfg *config.Config
	dir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(dir, "tradedesk.db")
	return &testEnv{t: t, cfg: cfg, dir: dir}
}

// run executes a fresh command tree and returns its stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCmd(e.cfg, zerolog.Nop())
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "args: %v\noutput: %s", args, out)
	return out
}

func (e *testEnv) writeFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCalcText(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"calc", "pct-change", "100", "110"}, "Percent change: +10.00%"},
		{[]string{"calc", "price-change", "100", "90"}, "Price change: -$10.00"},
		{[]string{"calc", "rr", "100", "110", "95"}, "Risk/reward: 2.00:1"},
		{[]string{"calc", "size", "100", "95"}, "Shares:         50"},
		{[]string{"calc", "size", "50", "48", "--account", "10000", "--risk", "2"}, "Shares:         100"},
		{[]string{"calc", "shares", "1000", "33"}, "30"},
		{[]string{"calc", "kelly", "0.6", "2", "1"}, "Kelly fraction: 0.4000"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out := env.mustRun(tt.args...)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCalcJSON(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("--json", "calc", "target", "100", "10")
	var result CalcResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "target_price", result.Operation)
	assert.InDelta(t, 110.0, result.Result, 1e-9)
	assert.Equal(t, 100.0, result.Inputs["price"])
}

func TestCalcErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("calc", "pct-change", "0", "10")
	assert.True(t, apperrors.Is(err, apperrors.ErrDivisionByZero))

	_, err = env.run("calc", "pct-change", "abc", "10")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = env.run("calc", "rr", "100", "110", "100")
	assert.True(t, apperrors.Is(err, apperrors.ErrDivisionByZero))

	_, err = env.run("calc", "kelly", "0.6", "0", "1")
	assert.True(t, apperrors.Is(err, apperrors.ErrDivisionByZero))
}

const longSetup = `ticker: aapl
timeframe: swing
direction: long
plan:
  setup: breakout
  entry: {min: 100, max: 102}
  targets: [111, 121]
  stop: 96
insight:
  sentiment: bullish
  rating: 7
`

const shortSetup = `ticker: TSLA
timeframe: day
plan:
  entry: {min: 200, max: 200}
  targets: [190]
  stop: 210
insight:
  sentiment: bearish
`

func TestPlanCheck(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile("setups.yaml", longSetup+"---\n"+shortSetup)

	out := env.mustRun("--json", "plan", "check", path)
	var results []evaluation
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)

	long := results[0].Report
	assert.Equal(t, "AAPL", long.Symbol)
	assert.Equal(t, models.DirectionLong, long.Direction)
	assert.InDelta(t, 101.0, long.EntryReference, 1e-9)
	assert.InDelta(t, 2.0, long.RiskReward, 1e-9)
	assert.True(t, long.MeetsMinimum)
	assert.Equal(t, int64(50), long.Shares)

	short := results[1].Report
	assert.Equal(t, models.DirectionShort, short.Direction)
	assert.InDelta(t, 1.0, short.RiskReward, 1e-9)
	assert.False(t, short.MeetsMinimum)
	assert.NotEmpty(t, short.Warnings)

	text := env.mustRun("plan", "check", path, "--no-size")
	assert.Contains(t, text, "AAPL LONG Setup")
	assert.Contains(t, text, "2.00:1")
	assert.NotContains(t, text, "Shares:")
}

func TestPlanCheckRejectsBadLevels(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile("bad.yaml", `ticker: AAPL
direction: long
timeframe: swing
plan:
  entry: {min: 100, max: 102}
  targets: [110]
  stop: 101
`)

	_, err := env.run("plan", "check", path)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	empty := env.writeFile("empty.yaml", "")
	_, err = env.run("plan", "check", empty)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestPlanSaveListStatusExpire(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile("setups.yaml", longSetup+"---\n"+shortSetup)

	out := env.mustRun("--json", "plan", "save", path)
	var saved []evaluation
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	require.Len(t, saved, 2)
	require.NotEmpty(t, saved[0].ID)

	out = env.mustRun("--json", "plan", "list")
	var records []store.SetupRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, models.PlanPending, r.Status)
	}

	env.mustRun("plan", "status", saved[0].ID, "active")

	out = env.mustRun("--json", "plan", "list", "--status", "ACTIVE")
	records = nil
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "AAPL", records[0].Setup.Ticker)
	assert.InDelta(t, 2.0, records[0].Setup.Plan.RiskReward, 1e-9)

	_, err := env.run("plan", "status", "missing-id", "ACTIVE")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = env.run("plan", "status", saved[0].ID, "SOMEDAY")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	out = env.mustRun("plan", "expire")
	assert.Contains(t, out, "Expired 0 setup(s)")

	out = env.mustRun("plan", "expire", "--older-than", "0s")
	assert.Contains(t, out, "Expired 2 setup(s)")

	text := env.mustRun("plan", "list", "--symbol", "tsla")
	assert.Contains(t, text, "TSLA")
	assert.Contains(t, text, "EXPIRED")
	assert.NotContains(t, text, "AAPL")
}

func TestPlanDerive(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("--json", "plan", "derive", "msft",
		"--price", "100", "--targets", "10,20", "--stop", "5", "--save")
	var result evaluation
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "MSFT", result.Report.Symbol)
	assert.InDelta(t, 2.0, result.Report.RiskReward, 1e-9)
	require.Len(t, result.Setup.Plan.Targets, 2)
	assert.InDelta(t, 110.0, result.Setup.Plan.Targets[0], 1e-9)
	assert.InDelta(t, 95.0, result.Setup.Plan.Stop, 1e-9)
}

func showWatchlist(t *testing.T, env *testEnv, args ...string) models.Watchlist {
	t.Helper()
	out := env.mustRun(append([]string{"--json", "watchlist", "show"}, args...)...)
	var w models.Watchlist
	require.NoError(t, json.Unmarshal([]byte(out), &w))
	return w
}

func TestWatchlistFlow(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("watchlist", "folder-add", "Tech")
	env.mustRun("watchlist", "folder-add", "Energy")
	env.mustRun("watchlist", "folder-move", "tech", "5")

	_, err := env.run("watchlist", "folder-add", "tech")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	env.mustRun("watchlist", "add", "Tech", "nvda", "--name", "NVIDIA Corp")
	env.mustRun("watchlist", "add", "Tech", "AAPL")
	env.mustRun("watchlist", "add", "Energy", "xom")

	_, err = env.run("watchlist", "add", "Tech", "NVDA")
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicateStock))

	_, err = env.run("watchlist", "add", "Nope", "NVDA")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	env.mustRun("watchlist", "flag", "Tech", "nvda", "green")
	env.mustRun("watchlist", "note", "Tech", "NVDA", "earnings next week")

	_, err = env.run("watchlist", "flag", "Tech", "NVDA", "plaid")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	w := showWatchlist(t, env)
	require.Len(t, w.Folders, 2)
	assert.Equal(t, "Energy", w.Folders[0].Name)
	tech := w.Folders[1]
	require.Len(t, tech.Stocks, 2)
	assert.Equal(t, "NVDA", tech.Stocks[0].Symbol)
	assert.Equal(t, "NVIDIA Corp", tech.Stocks[0].Name)
	assert.Equal(t, models.ColorGreen, tech.Stocks[0].Color)
	assert.Equal(t, "earnings next week", tech.Stocks[0].Notes)
	assert.Equal(t, "AAPL", tech.Stocks[1].Symbol)

	env.mustRun("watchlist", "rm", "Tech", "AAPL")
	w = showWatchlist(t, env, "tech")
	require.Len(t, w.Folders, 1)
	assert.Len(t, w.Folders[0].Stocks, 1)

	text := env.mustRun("watchlist", "folders")
	assert.Contains(t, text, "Tech")
	assert.Contains(t, text, "Energy")

	env.mustRun("watchlist", "folder-rm", "Energy")
	w = showWatchlist(t, env)
	require.Len(t, w.Folders, 1)
	assert.Equal(t, "Tech", w.Folders[0].Name)
}

func TestWatchlistQuote(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("watchlist", "folder-add", "A")
	env.mustRun("watchlist", "folder-add", "B")
	env.mustRun("watchlist", "add", "A", "NVDA")
	env.mustRun("watchlist", "add", "B", "NVDA")

	out := env.mustRun("watchlist", "quote", "nvda", "110", "10")
	assert.Contains(t, out, "Updated 2 entries")
	assert.NotContains(t, out, "does not match")

	w := showWatchlist(t, env)
	for _, f := range w.Folders {
		require.Len(t, f.Stocks, 1)
		assert.Equal(t, 110.0, f.Stocks[0].Price)
		assert.InDelta(t, 10.0, f.Stocks[0].ChangePercent, 1e-9)
	}

	out = env.mustRun("watchlist", "quote", "NVDA", "110", "10", "--change-pct", "25")
	assert.Contains(t, out, "does not match")

	out = env.mustRun("watchlist", "quote", "AMD", "50", "1")
	assert.Contains(t, out, "not on the watchlist")

	_, err := env.run("watchlist", "quote", "NVDA", "0", "0")
	assert.Error(t, err)
}

func TestWatchlistExportImport(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("watchlist", "folder-add", "Tech")
	env.mustRun("watchlist", "add", "Tech", "NVDA", "--color", "red")

	csvOut := env.mustRun("watchlist", "export", "--format", "csv")
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "folder,symbol,name,price"))
	assert.True(t, strings.HasPrefix(lines[1], "Tech,NVDA,"))
	assert.Contains(t, lines[1], ",red,")

	backup := filepath.Join(env.dir, "backup.yaml")
	env.mustRun("watchlist", "export", "--output", backup)

	other := newTestEnv(t)
	out := other.mustRun("watchlist", "import", backup)
	assert.Contains(t, out, "Imported 1 folders, 1 new stocks")

	w := showWatchlist(t, other)
	require.Len(t, w.Folders, 1)
	assert.Equal(t, "Tech", w.Folders[0].Name)
	require.Len(t, w.Folders[0].Stocks, 1)
	assert.Equal(t, models.ColorRed, w.Folders[0].Stocks[0].Color)

	// Re-importing merges by folder name and symbol.
	out = other.mustRun("watchlist", "import", backup)
	assert.Contains(t, out, "0 new stocks")

	extra := other.writeFile("extra.yaml", `folders:
  - name: tech
    stocks:
      - symbol: amd
      - symbol: nvda
  - name: Energy
    stocks:
      - symbol: XOM
        color: orange
`)
	other.mustRun("watchlist", "import", extra)
	w = showWatchlist(t, other)
	require.Len(t, w.Folders, 2)
	assert.Len(t, w.Folders[0].Stocks, 2)
	assert.Equal(t, "AMD", w.Folders[0].Stocks[1].Symbol)
	assert.NotEmpty(t, w.Folders[0].Stocks[1].ID)
	assert.Equal(t, models.ColorOrange, w.Folders[1].Stocks[0].Color)

	_, err := other.run("watchlist", "export", "--format", "xml")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestVersionAndConfig(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.mustRun("version"), "tradedesk v"+Version)
	assert.Contains(t, env.mustRun("config", "validate"), "Configuration is valid")

	out := env.mustRun("config", "show")
	assert.Contains(t, out, "$25,000.00")
}

func TestConfigFlagResolvesConfigBeforeRunning(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[risk]\naccount_size = 50000.0\n\n[logging]\nconsole = false\nfile = false\n"), 0644))

	var buf bytes.Buffer
	cmd := NewRootCmd(nil, zerolog.Nop())
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--config", dir, "config", "show"})
	require.NoError(t, cmd.Execute(), buf.String())

	assert.Contains(t, buf.String(), "$50,000.00")
	assert.NoDirExists(t, filepath.Join(home, ".config", "tradedesk"))
}
