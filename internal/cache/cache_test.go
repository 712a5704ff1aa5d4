package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealbrowser/internal/meal"
)

// countingFetcher is a meal.Fetcher that counts upstream calls.
type countingFetcher struct {
	areaCalls   int
	searchCalls int
	returnError error
}

func (f *countingFetcher) FilterByArea(ctx context.Context, area meal.Area) ([]meal.Meal, error) {
	f.areaCalls++
	if f.returnError != nil {
		return nil, f.returnError
	}
	return []meal.Meal{{ID: "1", Name: string(area) + " dish"}}, nil
}

func (f *countingFetcher) SearchByName(ctx context.Context, query string) ([]meal.Meal, error) {
	f.searchCalls++
	if f.returnError != nil {
		return nil, f.returnError
	}
	return []meal.Meal{{ID: "2", Name: query}}, nil
}

func TestFetcher_HitSkipsUpstream(t *testing.T) {
	upstream := &countingFetcher{}
	f := NewFetcher(upstream, NewMemory(10), time.Minute, nil)
	ctx := context.Background()

	first, err := f.FilterByArea(ctx, meal.Thai)
	require.NoError(t, err)
	second, err := f.FilterByArea(ctx, meal.Thai)
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.areaCalls)
	assert.Equal(t, first, second)
}

func TestFetcher_SearchKeyIgnoresCase(t *testing.T) {
	upstream := &countingFetcher{}
	f := NewFetcher(upstream, NewMemory(10), time.Minute, nil)
	ctx := context.Background()

	_, err := f.SearchByName(ctx, "Curry")
	require.NoError(t, err)
	_, err = f.SearchByName(ctx, " curry ")
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.searchCalls)
}

func TestFetcher_ErrorsAreNotCached(t *testing.T) {
	upstream := &countingFetcher{returnError: errors.New("down")}
	backend := NewMemory(10)
	f := NewFetcher(upstream, backend, time.Minute, nil)

	_, err := f.FilterByArea(context.Background(), meal.British)
	assert.Error(t, err)
	assert.Equal(t, 0, backend.Len())
}

func TestFetcher_BackendFailureFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	upstream := &countingFetcher{}
	f := NewFetcher(upstream, NewRedisFromClient(client), time.Minute, nil)

	meals, err := f.SearchByName(context.Background(), "stew")

	require.NoError(t, err)
	assert.Equal(t, 1, upstream.searchCalls)
	require.Len(t, meals, 1)
	assert.Equal(t, "stew", meals[0].Name)
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(10)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "filter:thai", []meal.Meal{{ID: "1"}}, time.Minute))
	got, err := m.Get(ctx, "filter:thai")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "filter:thai")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "search:a", []meal.Meal{{ID: "a"}}, time.Minute))
	require.NoError(t, m.Set(ctx, "search:b", []meal.Meal{{ID: "b"}}, time.Minute))
	// reading a makes b the oldest
	_, err := m.Get(ctx, "search:a")
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "search:c", []meal.Meal{{ID: "c"}}, time.Minute))

	assert.Equal(t, 2, m.Len())
	_, err = m.Get(ctx, "search:b")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = m.Get(ctx, "search:a")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "search:c")
	assert.NoError(t, err)
}

func TestMemory_OverwriteKeepsSize(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "filter:thai", []meal.Meal{{ID: "1"}}, time.Minute))
	require.NoError(t, m.Set(ctx, "filter:thai", []meal.Meal{{ID: "2"}}, time.Minute))

	assert.Equal(t, 1, m.Len())
	got, err := m.Get(ctx, "filter:thai")
	require.NoError(t, err)
	assert.Equal(t, "2", got[0].ID)
}

func TestMemory_DistinctSearchesStayBounded(t *testing.T) {
	backend := NewMemory(100)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }
	f := NewFetcher(&countingFetcher{}, backend, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 5000; i++ {
		_, err := f.SearchByName(ctx, fmt.Sprintf("query-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 100, backend.Len())

	// a day later every entry has expired and the next write sweeps them
	now = now.Add(24 * time.Hour)
	_, err := f.SearchByName(ctx, "one more")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Len())
}

func TestMemory_ConcurrentSetIsNotLost(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "search:stew", []meal.Meal{{ID: "old"}}, -time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Get(ctx, "search:stew")
			}
		}()
	}
	require.NoError(t, m.Set(ctx, "search:stew", []meal.Meal{{ID: "fresh"}}, time.Hour))
	wg.Wait()

	got, err := m.Get(ctx, "search:stew")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got[0].ID)
}

func TestMemory_Miss(t *testing.T) {
	_, err := NewMemory(10).Get(context.Background(), "nothing")
	assert.ErrorIs(t, err, ErrMiss)
}
