// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/logging"
	"tradedesk/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger

	// serializes read-modify-write cycles on folders
	mu sync.Mutex
}

var _ DataStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Watchlist folders
	CREATE TABLE IF NOT EXISTS watchlist_folders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	-- Stocks inside a folder, kept in insertion order by position
	CREATE TABLE IF NOT EXISTS watchlist_stocks (
		id TEXT NOT NULL,
		folder_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		name TEXT,
		price REAL NOT NULL DEFAULT 0,
		change REAL NOT NULL DEFAULT 0,
		change_percent REAL NOT NULL DEFAULT 0,
		color TEXT NOT NULL DEFAULT 'none',
		notes TEXT,
		added_at DATETIME NOT NULL,
		PRIMARY KEY (folder_id, id),
		FOREIGN KEY (folder_id) REFERENCES watchlist_folders(id) ON DELETE CASCADE
	);

	-- Saved trade setups
	CREATE TABLE IF NOT EXISTS trade_setups (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		timeframe TEXT,
		direction TEXT,
		setup TEXT,
		entry_min REAL NOT NULL,
		entry_max REAL NOT NULL,
		targets TEXT NOT NULL,
		stop REAL NOT NULL,
		risk_reward REAL,
		confidence REAL,
		time_horizon TEXT,
		playbook TEXT,
		insight TEXT,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_watchlist_stocks_symbol ON watchlist_stocks(symbol);
	CREATE INDEX IF NOT EXISTS idx_trade_setups_symbol ON trade_setups(symbol);
	CREATE INDEX IF NOT EXISTS idx_trade_setups_status ON trade_setups(status, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Watchlist Methods
// ============================================================================

// SaveFolder inserts or replaces a folder together with its stocks.
func (s *SQLiteStore) SaveFolder(ctx context.Context, folder models.WatchlistFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveFolder(ctx, folder); err != nil {
		return err
	}
	logging.LogWatchlistChange(s.logger, "save_folder", folder.Name, "")
	return nil
}

func (s *SQLiteStore) saveFolder(ctx context.Context, folder models.WatchlistFolder) error {
	if err := folder.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO watchlist_folders (id, name, sort_order, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, sort_order = excluded.sort_order
	`, folder.ID, folder.Name, folder.Order, folder.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save folder: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist_stocks WHERE folder_id = ?`, folder.ID); err != nil {
		return fmt.Errorf("failed to clear folder stocks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO watchlist_stocks (id, folder_id, position, symbol, name, price, change, change_percent, color, notes, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, st := range folder.Stocks {
		_, err := stmt.ExecContext(ctx, st.ID, folder.ID, i, st.Symbol, st.Name, st.Price, st.Change, st.ChangePercent, string(st.Color), st.Notes, st.AddedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert stock %s: %w", st.Symbol, err)
		}
	}

	return tx.Commit()
}

// DeleteFolder removes a folder and its stocks.
func (s *SQLiteStore) DeleteFolder(ctx context.Context, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist_stocks WHERE folder_id = ?`, folderID); err != nil {
		return fmt.Errorf("failed to delete folder stocks: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM watchlist_folders WHERE id = ?`, folderID)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "folder %s", folderID)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogWatchlistChange(s.logger, "delete_folder", folderID, "")
	return nil
}

// GetFolder retrieves a single folder with its stocks.
func (s *SQLiteStore) GetFolder(ctx context.Context, folderID string) (models.WatchlistFolder, error) {
	var f models.WatchlistFolder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, sort_order, created_at FROM watchlist_folders WHERE id = ?
	`, folderID).Scan(&f.ID, &f.Name, &f.Order, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return models.WatchlistFolder{}, apperrors.Wrapf(apperrors.ErrNotFound, "folder %s", folderID)
	}
	if err != nil {
		return models.WatchlistFolder{}, fmt.Errorf("failed to query folder: %w", err)
	}

	stocks, err := s.queryStocks(ctx, `WHERE folder_id = ?`, folderID)
	if err != nil {
		return models.WatchlistFolder{}, err
	}
	f.Stocks = stocks[folderID]
	if f.Stocks == nil {
		f.Stocks = []models.WatchlistStock{}
	}
	return f, nil
}

// GetWatchlist retrieves every folder, ordered for display.
func (s *SQLiteStore) GetWatchlist(ctx context.Context) (models.Watchlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sort_order, created_at FROM watchlist_folders
	`)
	if err != nil {
		return models.Watchlist{}, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []models.WatchlistFolder
	for rows.Next() {
		var f models.WatchlistFolder
		if err := rows.Scan(&f.ID, &f.Name, &f.Order, &f.CreatedAt); err != nil {
			return models.Watchlist{}, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return models.Watchlist{}, err
	}

	stocks, err := s.queryStocks(ctx, "")
	if err != nil {
		return models.Watchlist{}, err
	}
	for i := range folders {
		folders[i].Stocks = stocks[folders[i].ID]
		if folders[i].Stocks == nil {
			folders[i].Stocks = []models.WatchlistStock{}
		}
	}

	w := models.Watchlist{Folders: folders}
	return models.Watchlist{Folders: w.Ordered()}, nil
}

// queryStocks returns stocks grouped by folder id, in position order.
func (s *SQLiteStore) queryStocks(ctx context.Context, where string, args ...interface{}) (map[string][]models.WatchlistStock, error) {
	query := `SELECT folder_id, id, symbol, name, price, change, change_percent, color, notes, added_at
		FROM watchlist_stocks ` + where + ` ORDER BY folder_id, position`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.WatchlistStock)
	for rows.Next() {
		var (
			folderID    string
			st          models.WatchlistStock
			name, notes sql.NullString
			color       string
		)
		if err := rows.Scan(&folderID, &st.ID, &st.Symbol, &name, &st.Price, &st.Change, &st.ChangePercent, &color, &notes, &st.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		st.Name = name.String
		st.Notes = notes.String
		st.Color = models.ColorFlag(color)
		out[folderID] = append(out[folderID], st)
	}
	return out, rows.Err()
}

// AddStock appends a stock to a folder and returns the updated folder.
func (s *SQLiteStore) AddStock(ctx context.Context, folderID string, stock models.WatchlistStock) (models.WatchlistFolder, error) {
	updated, err := s.modifyFolder(ctx, folderID, func(f models.WatchlistFolder) (models.WatchlistFolder, error) {
		return f.WithStock(stock)
	})
	if err != nil {
		return models.WatchlistFolder{}, err
	}
	logging.LogWatchlistChange(s.logger, "add_stock", updated.Name, stock.Symbol)
	return updated, nil
}

// RemoveStock removes a stock from a folder and returns the updated folder.
func (s *SQLiteStore) RemoveStock(ctx context.Context, folderID, stockID string) (models.WatchlistFolder, error) {
	updated, err := s.modifyFolder(ctx, folderID, func(f models.WatchlistFolder) (models.WatchlistFolder, error) {
		return f.WithoutStock(stockID)
	})
	if err != nil {
		return models.WatchlistFolder{}, err
	}
	logging.LogWatchlistChange(s.logger, "remove_stock", updated.Name, stockID)
	return updated, nil
}

// UpdateStock applies fn to the stored folder after checking stockID exists in it.
func (s *SQLiteStore) UpdateStock(ctx context.Context, folderID, stockID string, fn func(models.WatchlistFolder) (models.WatchlistFolder, error)) (models.WatchlistFolder, error) {
	updated, err := s.modifyFolder(ctx, folderID, func(f models.WatchlistFolder) (models.WatchlistFolder, error) {
		if f.IndexOf(stockID) < 0 {
			return f, apperrors.Wrapf(apperrors.ErrNotFound, "stock %s", stockID)
		}
		return fn(f)
	})
	if err != nil {
		return models.WatchlistFolder{}, err
	}
	logging.LogWatchlistChange(s.logger, "update_stock", updated.Name, stockID)
	return updated, nil
}

func (s *SQLiteStore) modifyFolder(ctx context.Context, folderID string, fn func(models.WatchlistFolder) (models.WatchlistFolder, error)) (models.WatchlistFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, err := s.GetFolder(ctx, folderID)
	if err != nil {
		return models.WatchlistFolder{}, err
	}
	updated, err := fn(folder)
	if err != nil {
		return models.WatchlistFolder{}, err
	}
	if err := s.saveFolder(ctx, updated); err != nil {
		return models.WatchlistFolder{}, err
	}
	return updated, nil
}

// ApplyQuote reprices every stored entry for symbol and returns how many
// entries changed.
func (s *SQLiteStore) ApplyQuote(ctx context.Context, symbol string, price, change, changePercent float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE watchlist_stocks SET price = ?, change = ?, change_percent = ? WHERE symbol = ?
	`, price, change, changePercent, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to apply quote: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		logging.LogWatchlistChange(s.logger, "apply_quote", "", symbol)
	}
	return int(rows), nil
}

// ============================================================================
// Trade Setup Methods
// ============================================================================

// SaveSetup inserts or replaces a trade setup. A missing ID, status or
// creation time is filled in on the record.
func (s *SQLiteStore) SaveSetup(ctx context.Context, record *SetupRecord) error {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = models.PlanPending
	}
	if _, ok := models.ParsePlanStatus(string(record.Status)); !ok {
		return apperrors.NewValidationError("status", record.Status, "unknown plan status")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	setup := record.Setup
	targets, err := json.Marshal(setup.Plan.Targets)
	if err != nil {
		return fmt.Errorf("failed to encode targets: %w", err)
	}
	playbook, err := json.Marshal(setup.Plan.Playbook)
	if err != nil {
		return fmt.Errorf("failed to encode playbook: %w", err)
	}
	insight, err := json.Marshal(setup.Insight)
	if err != nil {
		return fmt.Errorf("failed to encode insight: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trade_setups (id, symbol, timeframe, direction, setup, entry_min, entry_max, targets, stop, risk_reward, confidence, time_horizon, playbook, insight, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, setup.Ticker, string(setup.Timeframe), string(setup.Direction), setup.Plan.Setup,
		setup.Plan.Entry.Min, setup.Plan.Entry.Max, string(targets), setup.Plan.Stop, setup.Plan.RiskReward,
		setup.Plan.Confidence, setup.Plan.TimeHorizon, string(playbook), string(insight), string(record.Status),
		record.CreatedAt.UTC(), record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save trade setup: %w", err)
	}

	s.logger.Debug().Str("id", record.ID).Str("symbol", setup.Ticker).Msg("Trade setup saved")
	return nil
}

const setupColumns = `id, symbol, timeframe, direction, setup, entry_min, entry_max, targets, stop, risk_reward, confidence, time_horizon, playbook, insight, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSetup(row rowScanner) (*SetupRecord, error) {
	var (
		r                            SetupRecord
		timeframe, direction, status string
		setupText, horizon           sql.NullString
		targets                      string
		playbook, insight            sql.NullString
		riskReward, confidence       sql.NullFloat64
	)
	err := row.Scan(&r.ID, &r.Setup.Ticker, &timeframe, &direction, &setupText,
		&r.Setup.Plan.Entry.Min, &r.Setup.Plan.Entry.Max, &targets, &r.Setup.Plan.Stop,
		&riskReward, &confidence, &horizon, &playbook, &insight, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.Setup.Timeframe = models.Timeframe(timeframe)
	r.Setup.Direction = models.Direction(direction)
	r.Setup.Plan.Setup = setupText.String
	r.Setup.Plan.TimeHorizon = horizon.String
	r.Setup.Plan.RiskReward = riskReward.Float64
	r.Setup.Plan.Confidence = confidence.Float64
	r.Status = models.PlanStatus(status)

	if err := json.Unmarshal([]byte(targets), &r.Setup.Plan.Targets); err != nil {
		return nil, fmt.Errorf("failed to decode targets: %w", err)
	}
	if playbook.Valid && playbook.String != "" {
		if err := json.Unmarshal([]byte(playbook.String), &r.Setup.Plan.Playbook); err != nil {
			return nil, fmt.Errorf("failed to decode playbook: %w", err)
		}
	}
	if insight.Valid && insight.String != "" {
		if err := json.Unmarshal([]byte(insight.String), &r.Setup.Insight); err != nil {
			return nil, fmt.Errorf("failed to decode insight: %w", err)
		}
	}
	return &r, nil
}

// GetSetup retrieves a trade setup by id.
func (s *SQLiteStore) GetSetup(ctx context.Context, id string) (*SetupRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+setupColumns+` FROM trade_setups WHERE id = ?`, id)
	r, err := scanSetup(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "trade setup %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade setup: %w", err)
	}
	return r, nil
}

// GetSetups retrieves trade setups, newest first.
func (s *SQLiteStore) GetSetups(ctx context.Context, filter SetupFilter) ([]SetupRecord, error) {
	query := `SELECT ` + setupColumns + ` FROM trade_setups WHERE 1=1`
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade setups: %w", err)
	}
	defer rows.Close()

	var records []SetupRecord
	for rows.Next() {
		r, err := scanSetup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade setup: %w", err)
		}
		records = append(records, *r)
	}

	return records, rows.Err()
}

// UpdateSetupStatus updates the status of a trade setup.
func (s *SQLiteStore) UpdateSetupStatus(ctx context.Context, id string, status models.PlanStatus) error {
	if _, ok := models.ParsePlanStatus(string(status)); !ok {
		return apperrors.NewValidationError("status", status, "unknown plan status")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE trade_setups SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update setup status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "trade setup %s", id)
	}

	s.logger.Info().Str("id", id).Str("status", string(status)).Msg("Trade setup status updated")
	return nil
}

// ExpireSetups marks pending and active setups created before the cutoff as
// expired and returns how many changed.
func (s *SQLiteStore) ExpireSetups(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE trade_setups SET status = ?, updated_at = ?
		WHERE status IN (?, ?) AND created_at < ?
	`, string(models.PlanExpired), time.Now().UTC(), string(models.PlanPending), string(models.PlanActive), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire setups: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		s.logger.Info().Int64("count", rows).Time("before", before).Msg("Trade setups expired")
	}
	return rows, nil
}
