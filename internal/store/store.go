// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"tradedesk/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	WatchlistStore
	SetupStore

	// Lifecycle
	Close() error
}

// WatchlistStore persists watchlist folders and their stocks.
type WatchlistStore interface {
	// Folders
	SaveFolder(ctx context.Context, folder models.WatchlistFolder) error
	DeleteFolder(ctx context.Context, folderID string) error
	GetFolder(ctx context.Context, folderID string) (models.WatchlistFolder, error)
	GetWatchlist(ctx context.Context) (models.Watchlist, error)

	// Stocks
	AddStock(ctx context.Context, folderID string, stock models.WatchlistStock) (models.WatchlistFolder, error)
	RemoveStock(ctx context.Context, folderID, stockID string) (models.WatchlistFolder, error)
	UpdateStock(ctx context.Context, folderID, stockID string, fn func(models.WatchlistFolder) (models.WatchlistFolder, error)) (models.WatchlistFolder, error)
	ApplyQuote(ctx context.Context, symbol string, price, change, changePercent float64) (int, error)
}

// SetupStore persists evaluated trade setups and their lifecycle status.
type SetupStore interface {
	SaveSetup(ctx context.Context, record *SetupRecord) error
	GetSetup(ctx context.Context, id string) (*SetupRecord, error)
	GetSetups(ctx context.Context, filter SetupFilter) ([]SetupRecord, error)
	UpdateSetupStatus(ctx context.Context, id string, status models.PlanStatus) error
	ExpireSetups(ctx context.Context, before time.Time) (int64, error)
}

// SetupRecord is a stored trade setup.
type SetupRecord struct {
	ID        string            `json:"id"`
	Setup     models.TradeSetup `json:"setup"`
	Status    models.PlanStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// SetupFilter represents filters for querying trade setups.
type SetupFilter struct {
	Symbol string
	Status models.PlanStatus
	Limit  int
}
