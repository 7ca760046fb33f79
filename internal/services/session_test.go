package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-finder-api/internal/models"
)

type fetcherFunc func(ctx context.Context, productName string) ([]models.Deal, error)

func (f fetcherFunc) FetchDeals(ctx context.Context, productName string) ([]models.Deal, error) {
	return f(ctx, productName)
}

func staticFetcher(deals []models.Deal, err error) fetcherFunc {
	return func(context.Context, string) ([]models.Deal, error) {
		return deals, err
	}
}

func recordPhases(c *Controller) func() []models.Phase {
	var mu sync.Mutex
	var phases []models.Phase
	c.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.Phase)
	})
	return func() []models.Phase {
		mu.Lock()
		defer mu.Unlock()
		return append([]models.Phase(nil), phases...)
	}
}

func TestControllerStartsIdle(t *testing.T) {
	snap := NewController(staticFetcher(nil, nil)).Snapshot()
	assert.Equal(t, models.PhaseIdle, snap.Phase)
	assert.Equal(t, models.DefaultSelection(), snap.Selection)
	assert.Nil(t, snap.Deals)
}

func TestControllerSubmitReady(t *testing.T) {
	c := NewController(staticFetcher(twoDealSet(), nil))
	phases := recordPhases(c)

	require.NoError(t, c.Submit(context.Background(), "monitor"))

	snap := c.Snapshot()
	assert.Equal(t, models.PhaseReady, snap.Phase)
	assert.Equal(t, "monitor", snap.Query)
	assert.Len(t, snap.Deals, 2)
	assert.Empty(t, snap.Error)
	assert.Equal(t, []models.Phase{models.PhaseLoading, models.PhaseReady}, phases())
}

func TestControllerEmptyQueryKeepsState(t *testing.T) {
	var calls int
	c := NewController(fetcherFunc(func(context.Context, string) ([]models.Deal, error) {
		calls++
		return twoDealSet(), nil
	}))
	require.NoError(t, c.Submit(context.Background(), "monitor"))
	before := c.Snapshot()
	phases := recordPhases(c)

	err := c.Submit(context.Background(), "   \t")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, 1, calls)
	assert.NotContains(t, phases(), models.PhaseLoading)
	assert.Equal(t, []models.Phase{models.PhaseReady}, phases())

	after := c.Snapshot()
	assert.Equal(t, models.PhaseReady, after.Phase)
	assert.Equal(t, before.Deals, after.Deals)
	assert.Equal(t, "monitor", after.Query)
	assert.Equal(t, EmptyQueryMessage, after.Notice)
}

func TestControllerEmptyQueryFromIdle(t *testing.T) {
	c := NewController(staticFetcher(twoDealSet(), nil))
	phases := recordPhases(c)

	assert.ErrorIs(t, c.Submit(context.Background(), ""), ErrEmptyQuery)
	assert.Equal(t, []models.Phase{models.PhaseIdle}, phases())
	assert.Equal(t, models.PhaseIdle, c.Snapshot().Phase)
}

func TestControllerEmptyResultFails(t *testing.T) {
	c := NewController(staticFetcher([]models.Deal{}, nil))

	err := c.Submit(context.Background(), "unobtainium")
	assert.ErrorIs(t, err, ErrEmptyResult)

	snap := c.Snapshot()
	assert.Equal(t, models.PhaseFailed, snap.Phase)
	assert.Equal(t, NoDealsMessage, snap.Error)
	assert.Equal(t, "EmptyResult", snap.ErrorKind)
}

func TestControllerFetchErrorFails(t *testing.T) {
	fetchErr := &FetchError{Kind: ErrInvalidSchema, Cause: errors.New("rating out of range")}
	c := NewController(staticFetcher(nil, fetchErr))

	err := c.Submit(context.Background(), "phone")
	assert.ErrorIs(t, err, ErrInvalidSchema)

	snap := c.Snapshot()
	assert.Equal(t, models.PhaseFailed, snap.Phase)
	assert.Equal(t, "Failed to fetch deals. Gemini API Error: received invalid data structure from model", snap.Error)
	assert.Equal(t, "InvalidSchema", snap.ErrorKind)
	assert.Nil(t, snap.Deals)
}

func TestControllerRecoversFetcherPanic(t *testing.T) {
	c := NewController(fetcherFunc(func(context.Context, string) ([]models.Deal, error) {
		panic("boom")
	}))

	err := c.Submit(context.Background(), "phone")
	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.Equal(t, models.PhaseFailed, c.Snapshot().Phase)
}

func TestControllerNewSearchResetsSelection(t *testing.T) {
	c := NewController(staticFetcher(twoDealSet(), nil))
	require.NoError(t, c.Submit(context.Background(), "monitor"))
	require.NoError(t, c.SetPlatformFilter("Croma"))
	require.NoError(t, c.SetSortKey(models.SortRatingDesc))

	require.NoError(t, c.Submit(context.Background(), "keyboard"))
	assert.Equal(t, models.DefaultSelection(), c.Snapshot().Selection)
}

func TestControllerSetPlatformFilter(t *testing.T) {
	c := NewController(staticFetcher(twoDealSet(), nil))

	err := c.SetPlatformFilter("Croma")
	assert.ErrorIs(t, err, ErrInvalidSelection, "no results yet")

	require.NoError(t, c.Submit(context.Background(), "monitor"))
	require.NoError(t, c.SetPlatformFilter("Croma"))
	assert.Equal(t, "Croma", c.Snapshot().Selection.Platform)

	err = c.SetPlatformFilter("Tata Cliq")
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, "Croma", c.Snapshot().Selection.Platform)

	require.NoError(t, c.SetPlatformFilter(models.AllPlatforms))
}

func TestControllerSetSortKey(t *testing.T) {
	c := NewController(staticFetcher(twoDealSet(), nil))
	rev := c.Snapshot().Revision

	require.NoError(t, c.SetSortKey(models.SortPriceDesc))
	assert.Equal(t, models.SortPriceDesc, c.Snapshot().Selection.Sort)
	assert.Greater(t, c.Snapshot().Revision, rev)

	err := c.SetSortKey("newest")
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, models.SortPriceDesc, c.Snapshot().Selection.Sort)
}

func TestControllerSupersedesOlderSearch(t *testing.T) {
	started := make(chan struct{})
	c := NewController(fetcherFunc(func(ctx context.Context, q string) ([]models.Deal, error) {
		if q == "first" {
			close(started)
			<-ctx.Done()
			return nil, &FetchError{Kind: ErrTransportFailure, Cause: ctx.Err()}
		}
		return twoDealSet(), nil
	}))

	firstErr := make(chan error, 1)
	go func() { firstErr <- c.Submit(context.Background(), "first") }()
	<-started

	require.NoError(t, c.Submit(context.Background(), "second"))

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("first search did not return")
	}

	snap := c.Snapshot()
	assert.Equal(t, models.PhaseReady, snap.Phase)
	assert.Equal(t, "second", snap.Query)
	assert.Len(t, snap.Deals, 2)
}

func TestControllerUnsubscribe(t *testing.T) {
	c := NewController(staticFetcher(twoDealSet(), nil))

	var count int
	unsubscribe := c.Subscribe(func(Snapshot) { count++ })
	require.NoError(t, c.SetSortKey(models.SortPriceDesc))
	unsubscribe()
	require.NoError(t, c.SetSortKey(models.SortPriceAsc))

	assert.Equal(t, 1, count)
}

func TestBuildView(t *testing.T) {
	loading := BuildView("abc", Snapshot{Phase: models.PhaseLoading, Query: "tv", Selection: models.DefaultSelection()})
	assert.Equal(t, "abc", loading.ID)
	assert.Equal(t, models.PhaseLoading, loading.State)
	assert.Equal(t, []models.DealCard{}, loading.Deals)
	assert.Nil(t, loading.BestDeal)
	assert.Equal(t, []string{}, loading.Platforms)

	ready := BuildView("abc", Snapshot{Phase: models.PhaseReady, Deals: twoDealSet(), Selection: models.DefaultSelection()})
	require.Len(t, ready.Deals, 2)
	assert.Equal(t, []string{"All", "Croma", "Flipkart"}, ready.Platforms)
	require.NotNil(t, ready.BestDeal)
	assert.Equal(t, 300.0, ready.BestDeal.Price)
	assert.Len(t, ready.SortOptions, 3)
}
