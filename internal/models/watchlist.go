package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/validation"
)

// ColorFlag is a user-assigned tag on a watchlist entry. It has no computed meaning.
type ColorFlag string

const (
	ColorNone   ColorFlag = "none"
	ColorRed    ColorFlag = "red"
	ColorOrange ColorFlag = "orange"
	ColorYellow ColorFlag = "yellow"
	ColorGreen  ColorFlag = "green"
	ColorBlue   ColorFlag = "blue"
	ColorPurple ColorFlag = "purple"
	ColorPink   ColorFlag = "pink"
	ColorGray   ColorFlag = "gray"
)

// ColorFlags lists every flag in display order.
var ColorFlags = []ColorFlag{
	ColorNone, ColorRed, ColorOrange, ColorYellow, ColorGreen,
	ColorBlue, ColorPurple, ColorPink, ColorGray,
}

// ParseColorFlag parses a flag name. An empty string is ColorNone.
func ParseColorFlag(s string) (ColorFlag, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ColorNone, nil
	}
	for _, c := range ColorFlags {
		if string(c) == s {
			return c, nil
		}
	}
	return "", apperrors.NewValidationError("color", s, "unknown color flag")
}

// WatchlistStock is a single entry in a folder.
type WatchlistStock struct {
	ID            string    `json:"id" yaml:"id" csv:"id"`
	Symbol        string    `json:"symbol" yaml:"symbol" csv:"symbol"`
	Name          string    `json:"name" yaml:"name" csv:"name"`
	Price         float64   `json:"price" yaml:"price" csv:"price"`
	Change        float64   `json:"change" yaml:"change" csv:"change"`
	ChangePercent float64   `json:"changePercent" yaml:"changePercent" csv:"change_percent"`
	Color         ColorFlag `json:"color" yaml:"color" csv:"color"`
	AddedAt       time.Time `json:"addedAt" yaml:"addedAt" csv:"added_at"`
	Notes         string    `json:"notes,omitempty" yaml:"notes,omitempty" csv:"notes"`
}

// NewWatchlistStock creates an entry for an already-sanitized symbol.
func NewWatchlistStock(symbol, name string, addedAt time.Time) (WatchlistStock, error) {
	if err := validation.RequireTicker("symbol", symbol); err != nil {
		return WatchlistStock{}, err
	}
	return WatchlistStock{
		ID:      uuid.NewString(),
		Symbol:  symbol,
		Name:    name,
		Color:   ColorNone,
		AddedAt: addedAt,
	}, nil
}

// WatchlistFolder is a named, ordered group of stocks.
type WatchlistFolder struct {
	ID        string           `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	Stocks    []WatchlistStock `json:"stocks" yaml:"stocks"`
	CreatedAt time.Time        `json:"createdAt" yaml:"createdAt"`
	Order     int              `json:"order" yaml:"order"`
}

// NewWatchlistFolder creates an empty folder.
func NewWatchlistFolder(name string, order int, createdAt time.Time) (WatchlistFolder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return WatchlistFolder{}, apperrors.NewValidationError("name", name, "folder name cannot be empty")
	}
	return WatchlistFolder{
		ID:        uuid.NewString(),
		Name:      name,
		Stocks:    []WatchlistStock{},
		CreatedAt: createdAt,
		Order:     order,
	}, nil
}

// Clone returns a deep copy of the folder.
func (f WatchlistFolder) Clone() WatchlistFolder {
	c := f
	c.Stocks = append([]WatchlistStock(nil), f.Stocks...)
	return c
}

// IndexOf returns the index of the stock with the given id, or -1.
func (f WatchlistFolder) IndexOf(id string) int {
	for i, s := range f.Stocks {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// WithStock returns a copy of the folder with s appended. A stock whose id is
// already present fails with ErrDuplicateStock.
func (f WatchlistFolder) WithStock(s WatchlistStock) (WatchlistFolder, error) {
	if f.IndexOf(s.ID) >= 0 {
		return f, apperrors.Wrapf(apperrors.ErrDuplicateStock, "stock %s in folder %s", s.ID, f.Name)
	}
	c := f.Clone()
	c.Stocks = append(c.Stocks, s)
	return c, nil
}

// WithoutStock returns a copy of the folder without the stock id.
func (f WatchlistFolder) WithoutStock(id string) (WatchlistFolder, error) {
	i := f.IndexOf(id)
	if i < 0 {
		return f, apperrors.Wrapf(apperrors.ErrNotFound, "stock %s", id)
	}
	c := f.Clone()
	c.Stocks = append(c.Stocks[:i], c.Stocks[i+1:]...)
	return c, nil
}

// WithStockColor returns a copy of the folder with the stock's flag replaced.
func (f WatchlistFolder) WithStockColor(id string, color ColorFlag) (WatchlistFolder, error) {
	return f.updateStock(id, func(s *WatchlistStock) { s.Color = color })
}

// WithStockNotes returns a copy of the folder with the stock's notes replaced.
func (f WatchlistFolder) WithStockNotes(id, notes string) (WatchlistFolder, error) {
	return f.updateStock(id, func(s *WatchlistStock) { s.Notes = notes })
}

// WithQuote returns a copy of the folder with every entry for symbol repriced.
// The second result reports whether any entry matched.
func (f WatchlistFolder) WithQuote(symbol string, price, change, changePercent float64) (WatchlistFolder, bool) {
	c := f.Clone()
	matched := false
	for i := range c.Stocks {
		if c.Stocks[i].Symbol != symbol {
			continue
		}
		c.Stocks[i].Price = price
		c.Stocks[i].Change = change
		c.Stocks[i].ChangePercent = changePercent
		matched = true
	}
	return c, matched
}

func (f WatchlistFolder) updateStock(id string, fn func(*WatchlistStock)) (WatchlistFolder, error) {
	i := f.IndexOf(id)
	if i < 0 {
		return f, apperrors.Wrapf(apperrors.ErrNotFound, "stock %s", id)
	}
	c := f.Clone()
	fn(&c.Stocks[i])
	return c, nil
}

// Validate checks that stock ids are unique within the folder.
func (f WatchlistFolder) Validate() error {
	seen := make(map[string]struct{}, len(f.Stocks))
	for _, s := range f.Stocks {
		if _, ok := seen[s.ID]; ok {
			return apperrors.Wrapf(apperrors.ErrDuplicateStock, "stock %s in folder %s", s.ID, f.Name)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// Watchlist is the full set of folders.
type Watchlist struct {
	Folders []WatchlistFolder `json:"folders" yaml:"folders"`
}

// Ordered returns the folders sorted by Order, then CreatedAt, then ID.
// Order values need not be contiguous.
func (w Watchlist) Ordered() []WatchlistFolder {
	out := make([]WatchlistFolder, len(w.Folders))
	for i, f := range w.Folders {
		out[i] = f.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return folderLess(out[i], out[j])
	})
	return out
}

func folderLess(a, b WatchlistFolder) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Folder returns the folder with the given id.
func (w Watchlist) Folder(id string) (WatchlistFolder, bool) {
	for _, f := range w.Folders {
		if f.ID == id {
			return f.Clone(), true
		}
	}
	return WatchlistFolder{}, false
}

// WithFolder returns a copy of the watchlist with f inserted, or replacing the
// folder that has the same id.
func (w Watchlist) WithFolder(f WatchlistFolder) Watchlist {
	c := Watchlist{Folders: make([]WatchlistFolder, 0, len(w.Folders)+1)}
	replaced := false
	for _, existing := range w.Folders {
		if existing.ID == f.ID {
			c.Folders = append(c.Folders, f.Clone())
			replaced = true
			continue
		}
		c.Folders = append(c.Folders, existing.Clone())
	}
	if !replaced {
		c.Folders = append(c.Folders, f.Clone())
	}
	return c
}

// NextOrder returns an order value that sorts after every existing folder.
func (w Watchlist) NextOrder() int {
	next := 0
	for _, f := range w.Folders {
		if f.Order >= next {
			next = f.Order + 1
		}
	}
	return next
}

// Validate validates every folder.
func (w Watchlist) Validate() error {
	for _, f := range w.Folders {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}
