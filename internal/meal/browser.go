package meal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrSuperseded is returned when a response arrives after a newer action was issued.
var ErrSuperseded = errors.New("response superseded by a newer request")

// Fetcher defines the interface for the two TheMealDB list lookups.
type Fetcher interface {
	FilterByArea(ctx context.Context, area Area) ([]Meal, error)
	SearchByName(ctx context.Context, query string) ([]Meal, error)
}

// View is a snapshot of a Browser used for rendering.
type View struct {
	Area  Area
	Input string
	Meals []Meal
}

// Browser holds the view state of one user: the current meal list,
// the selected area and the text typed in the search box.
type Browser struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu     sync.Mutex
	meals  []Meal
	area   Area
	input  string
	issued uint64
}

// NewBrowser creates a new Browser with an empty meal list.
func NewBrowser(fetcher Fetcher, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{
		fetcher: fetcher,
		logger:  logger,
		meals:   []Meal{},
		area:    DefaultArea,
	}
}

// SelectArea switches the browser to area and replaces the meal list
// with the meals filed under it. On error the previous list is kept.
func (b *Browser) SelectArea(ctx context.Context, area Area) error {
	b.mu.Lock()
	b.area = area
	ticket := b.nextTicketLocked()
	b.mu.Unlock()

	meals, err := b.fetcher.FilterByArea(ctx, area)
	if err != nil {
		b.logger.Warn("filter by area failed", zap.String("area", area.String()), zap.Error(err))
		return fmt.Errorf("filter by area %q: %w", area, err)
	}
	return b.apply(ticket, meals, "area", area.String())
}

// Search replaces the meal list with the meals matching query and
// clears the input. On error the previous list is kept.
func (b *Browser) Search(ctx context.Context, query string) error {
	b.mu.Lock()
	ticket := b.nextTicketLocked()
	b.mu.Unlock()

	meals, err := b.fetcher.SearchByName(ctx, query)

	b.mu.Lock()
	b.input = ""
	b.mu.Unlock()

	if err != nil {
		b.logger.Warn("search by name failed", zap.String("query", query), zap.Error(err))
		return fmt.Errorf("search %q: %w", query, err)
	}
	return b.apply(ticket, meals, "search", query)
}

// SetInput records the text currently typed in the search box.
func (b *Browser) SetInput(text string) {
	b.mu.Lock()
	b.input = text
	b.mu.Unlock()
}

// Input returns the text currently typed in the search box.
func (b *Browser) Input() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.input
}

// View returns a copy of the current state.
func (b *Browser) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	meals := make([]Meal, len(b.meals))
	copy(meals, b.meals)
	return View{Area: b.area, Input: b.input, Meals: meals}
}

func (b *Browser) nextTicketLocked() uint64 {
	b.issued++
	return b.issued
}

// apply installs meals unless a newer action was issued after ticket.
func (b *Browser) apply(ticket uint64, meals []Meal, kind, term string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ticket != b.issued {
		b.logger.Debug("dropping stale response",
			zap.String("kind", kind),
			zap.String("term", term),
			zap.Uint64("ticket", ticket),
			zap.Uint64("latest", b.issued))
		return ErrSuperseded
	}
	if meals == nil {
		meals = []Meal{}
	}
	b.meals = meals
	return nil
}
