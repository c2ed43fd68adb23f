package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tradedesk.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustFolder(t *testing.T, name string, order int, created time.Time) models.WatchlistFolder {
	t.Helper()
	f, err := models.NewWatchlistFolder(name, order, created)
	require.NoError(t, err)
	return f
}

func mustStock(t *testing.T, symbol string) models.WatchlistStock {
	t.Helper()
	s, err := models.NewWatchlistStock(symbol, symbol+" Inc.", time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return s
}

func TestWatchlistOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveFolder(ctx, mustFolder(t, "Later", 5, base)))
	require.NoError(t, s.SaveFolder(ctx, mustFolder(t, "First", 1, base.Add(time.Hour))))
	require.NoError(t, s.SaveFolder(ctx, mustFolder(t, "Second", 1, base.Add(2*time.Hour))))

	w, err := s.GetWatchlist(ctx)
	require.NoError(t, err)
	require.Len(t, w.Folders, 3)
	assert.Equal(t, "First", w.Folders[0].Name)
	assert.Equal(t, "Second", w.Folders[1].Name)
	assert.Equal(t, "Later", w.Folders[2].Name)
	for _, f := range w.Folders {
		assert.NotNil(t, f.Stocks)
	}
}

func TestStockLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	folder := mustFolder(t, "Tech", 0, time.Now())
	require.NoError(t, s.SaveFolder(ctx, folder))

	aapl := mustStock(t, "AAPL")
	msft := mustStock(t, "MSFT")

	_, err := s.AddStock(ctx, folder.ID, aapl)
	require.NoError(t, err)
	updated, err := s.AddStock(ctx, folder.ID, msft)
	require.NoError(t, err)
	require.Len(t, updated.Stocks, 2)

	_, err = s.AddStock(ctx, folder.ID, aapl)
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicateStock), "got %v", err)

	_, err = s.UpdateStock(ctx, folder.ID, aapl.ID, func(f models.WatchlistFolder) (models.WatchlistFolder, error) {
		return f.WithStockColor(aapl.ID, models.ColorGreen)
	})
	require.NoError(t, err)
	_, err = s.UpdateStock(ctx, folder.ID, aapl.ID, func(f models.WatchlistFolder) (models.WatchlistFolder, error) {
		return f.WithStockNotes(aapl.ID, "breakout watch")
	})
	require.NoError(t, err)

	_, err = s.UpdateStock(ctx, folder.ID, "missing", func(f models.WatchlistFolder) (models.WatchlistFolder, error) {
		return f, nil
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	n, err := s.ApplyQuote(ctx, "AAPL", 190.5, 2.5, 1.33)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, got.Stocks, 2)
	assert.Equal(t, "AAPL", got.Stocks[0].Symbol)
	assert.Equal(t, models.ColorGreen, got.Stocks[0].Color)
	assert.Equal(t, "breakout watch", got.Stocks[0].Notes)
	assert.Equal(t, 190.5, got.Stocks[0].Price)
	assert.Equal(t, models.ColorNone, got.Stocks[1].Color)

	updated, err = s.RemoveStock(ctx, folder.ID, aapl.ID)
	require.NoError(t, err)
	require.Len(t, updated.Stocks, 1)
	assert.Equal(t, "MSFT", updated.Stocks[0].Symbol)

	_, err = s.RemoveStock(ctx, folder.ID, aapl.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, s.DeleteFolder(ctx, folder.ID))
	_, err = s.GetFolder(ctx, folder.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(s.DeleteFolder(ctx, folder.ID), apperrors.ErrNotFound))
}

func TestConcurrentAddStock(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	folder := mustFolder(t, "Busy", 0, time.Now())
	require.NoError(t, s.SaveFolder(ctx, folder))

	symbols := []string{"AAPL", "MSFT", "NVDA", "AMZN", "GOOG", "META", "TSLA", "AMD"}
	var wg sync.WaitGroup
	errs := make(chan error, len(symbols))
	for _, sym := range symbols {
		stock := mustStock(t, sym)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddStock(ctx, folder.ID, stock)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Len(t, got.Stocks, len(symbols))
}

func TestApplyQuoteDuringConcurrentAddStock(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	folder := mustFolder(t, "Quoted", 0, time.Now())
	folder.Stocks = append(folder.Stocks, mustStock(t, "AAPL"))
	require.NoError(t, s.SaveFolder(ctx, folder))

	symbols := []string{"MSFT", "NVDA", "AMZN", "GOOG", "META", "TSLA", "AMD", "INTC"}
	var wg sync.WaitGroup
	errs := make(chan error, len(symbols)+1)
	for i, sym := range symbols {
		stock := mustStock(t, sym)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddStock(ctx, folder.ID, stock)
			errs <- err
		}()
		if i == len(symbols)/2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ApplyQuote(ctx, "AAPL", 210.25, 5.25, 2.56)
				errs <- err
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, got.Stocks, len(symbols)+1)
	for _, stock := range got.Stocks {
		if stock.Symbol == "AAPL" {
			assert.Equal(t, 210.25, stock.Price)
			assert.Equal(t, 5.25, stock.Change)
		}
	}
}

func testSetup(symbol string) models.TradeSetup {
	return models.TradeSetup{
		Ticker:    symbol,
		Timeframe: models.TimeframeSwing,
		Direction: models.DirectionLong,
		Plan: models.TradePlan{
			Setup:       "Cup and handle",
			Entry:       models.PriceRange{Min: 99, Max: 101},
			Targets:     []float64{110, 120},
			Stop:        95,
			RiskReward:  2,
			Confidence:  65,
			TimeHorizon: "3 weeks",
			Playbook:    models.Playbook{BestCase: "run to 120", BaseCase: "grind to 110", Invalidation: "close below 95"},
		},
		Insight: models.AIInsight{
			Sentiment: models.SentimentBullish,
			Summary:   []string{"strong relative strength"},
			Rating:    4,
		},
	}
}

func TestSetupLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := &SetupRecord{Setup: testSetup("AAPL")}
	require.NoError(t, s.SaveSetup(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.PlanPending, rec.Status)

	got, err := s.GetSetup(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Setup, got.Setup)
	assert.Equal(t, models.PlanPending, got.Status)

	require.NoError(t, s.UpdateSetupStatus(ctx, rec.ID, models.PlanActive))
	got, err = s.GetSetup(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanActive, got.Status)

	assert.True(t, apperrors.Is(s.UpdateSetupStatus(ctx, "nope", models.PlanActive), apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(s.UpdateSetupStatus(ctx, rec.ID, "DONE"), apperrors.ErrValidation))

	_, err = s.GetSetup(ctx, "nope")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestGetSetupsFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, sym := range []string{"AAPL", "MSFT", "AAPL"} {
		rec := &SetupRecord{Setup: testSetup(sym), CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.SaveSetup(ctx, rec))
	}

	all, err := s.GetSetups(ctx, SetupFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt), "newest first")

	aapl, err := s.GetSetups(ctx, SetupFilter{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, aapl, 2)

	limited, err := s.GetSetups(ctx, SetupFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.UpdateSetupStatus(ctx, all[0].ID, models.PlanCancelled))
	cancelled, err := s.GetSetups(ctx, SetupFilter{Status: models.PlanCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, all[0].ID, cancelled[0].ID)
}

func TestExpireSetups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	old := &SetupRecord{Setup: testSetup("AAPL"), CreatedAt: now.Add(-72 * time.Hour)}
	oldActive := &SetupRecord{Setup: testSetup("MSFT"), Status: models.PlanActive, CreatedAt: now.Add(-48 * time.Hour)}
	oldExecuted := &SetupRecord{Setup: testSetup("NVDA"), Status: models.PlanExecuted, CreatedAt: now.Add(-96 * time.Hour)}
	fresh := &SetupRecord{Setup: testSetup("AMZN"), CreatedAt: now.Add(-time.Hour)}
	for _, r := range []*SetupRecord{old, oldActive, oldExecuted, fresh} {
		require.NoError(t, s.SaveSetup(ctx, r))
	}

	n, err := s.ExpireSetups(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	expect := map[string]models.PlanStatus{
		old.ID:         models.PlanExpired,
		oldActive.ID:   models.PlanExpired,
		oldExecuted.ID: models.PlanExecuted,
		fresh.ID:       models.PlanPending,
	}
	for id, want := range expect {
		got, err := s.GetSetup(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id)
	}
}
