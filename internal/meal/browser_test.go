package meal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFetcher is a mock of the Fetcher interface.
type mockFetcher struct {
	mu           sync.Mutex
	byArea       map[Area][]Meal
	byQuery      map[string][]Meal
	returnError  error
	areaCalls    []Area
	searchCalls  []string
	beforeReturn func()
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{byArea: map[Area][]Meal{}, byQuery: map[string][]Meal{}}
}

func (m *mockFetcher) FilterByArea(ctx context.Context, area Area) ([]Meal, error) {
	m.mu.Lock()
	m.areaCalls = append(m.areaCalls, area)
	hook := m.beforeReturn
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if m.returnError != nil {
		return nil, m.returnError
	}
	return m.byArea[area], nil
}

func (m *mockFetcher) SearchByName(ctx context.Context, query string) ([]Meal, error) {
	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, query)
	m.mu.Unlock()
	if m.returnError != nil {
		return nil, m.returnError
	}
	return m.byQuery[query], nil
}

func TestBrowser_SelectArea(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.byArea[Thai] = []Meal{{ID: "52772", Name: "Pad Thai", Thumbnail: "url"}}
	b := NewBrowser(fetcher, nil)

	err := b.SelectArea(context.Background(), Thai)
	require.NoError(t, err)

	assert.Equal(t, []Area{Thai}, fetcher.areaCalls)
	view := b.View()
	assert.Equal(t, Thai, view.Area)
	require.Len(t, view.Meals, 1)
	assert.Equal(t, "Pad Thai", view.Meals[0].Name)
}

func TestBrowser_SelectArea_NoMeals(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.byArea[Thai] = []Meal{{ID: "1", Name: "Pad Thai"}}
	b := NewBrowser(fetcher, nil)
	require.NoError(t, b.SelectArea(context.Background(), Thai))

	// Russian has nothing registered, so the fetcher returns nil
	require.NoError(t, b.SelectArea(context.Background(), Russian))

	view := b.View()
	assert.NotNil(t, view.Meals)
	assert.Empty(t, view.Meals)
}

func TestBrowser_SelectArea_ErrorKeepsPreviousList(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.byArea[British] = []Meal{{ID: "1", Name: "Beef Wellington"}}
	b := NewBrowser(fetcher, nil)
	require.NoError(t, b.SelectArea(context.Background(), British))

	upstream := errors.New("connection refused")
	fetcher.returnError = upstream
	err := b.SelectArea(context.Background(), Thai)

	assert.ErrorIs(t, err, upstream)
	view := b.View()
	require.Len(t, view.Meals, 1)
	assert.Equal(t, "Beef Wellington", view.Meals[0].Name)
}

func TestBrowser_Search(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.byQuery["curry"] = []Meal{{ID: "1", Name: "Chicken Curry"}, {ID: "2", Name: "Lamb Curry"}}
	b := NewBrowser(fetcher, nil)
	b.SetInput("curry")

	err := b.Search(context.Background(), b.Input())
	require.NoError(t, err)

	assert.Equal(t, []string{"curry"}, fetcher.searchCalls)
	view := b.View()
	assert.Len(t, view.Meals, 2)
	assert.Equal(t, "", view.Input)
}

func TestBrowser_Search_ErrorClearsInput(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.returnError = errors.New("boom")
	b := NewBrowser(fetcher, nil)
	b.SetInput("soup")

	err := b.Search(context.Background(), "soup")

	assert.Error(t, err)
	assert.Equal(t, "", b.Input())
	assert.Empty(t, b.View().Meals)
}

func TestBrowser_StaleResponseIsDropped(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.byArea[Indian] = []Meal{{ID: "1", Name: "Biryani"}}
	fetcher.byQuery["pie"] = []Meal{{ID: "2", Name: "Pork Pie"}}
	b := NewBrowser(fetcher, nil)

	// A search is issued while the area request is still in flight.
	fetcher.beforeReturn = func() {
		fetcher.beforeReturn = nil
		require.NoError(t, b.Search(context.Background(), "pie"))
	}
	err := b.SelectArea(context.Background(), Indian)

	assert.ErrorIs(t, err, ErrSuperseded)
	view := b.View()
	require.Len(t, view.Meals, 1)
	assert.Equal(t, "Pork Pie", view.Meals[0].Name)
}

func TestBrowser_ViewIsACopy(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.byArea[Thai] = []Meal{{ID: "1", Name: "Pad Thai"}}
	b := NewBrowser(fetcher, nil)
	require.NoError(t, b.SelectArea(context.Background(), Thai))

	view := b.View()
	view.Meals[0].Name = "changed"

	assert.Equal(t, "Pad Thai", b.View().Meals[0].Name)
}
