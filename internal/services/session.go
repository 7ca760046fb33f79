package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"deal-finder-api/internal/models"
)

// User-facing messages.
const (
	EmptyQueryMessage = "Please enter a product to search for."
	NoDealsMessage    = "No deals found for this product. Try a different search term."
	FailurePrefix     = "Failed to fetch deals. "
)

// Snapshot is an immutable copy of a controller's state. Deals is shared
// between snapshots and must not be modified.
type Snapshot struct {
	Revision  uint64
	Phase     models.Phase
	Query     string
	Deals     []models.Deal
	Error     string
	ErrorKind string
	Notice    string
	Selection models.Selection
}

type listener struct {
	id int
	fn func(Snapshot)
}

// Controller owns one search session: its phase, result set and selection.
// A submission made while another is loading cancels the older fetch and
// replaces it; the older submission's result is dropped.
type Controller struct {
	fetcher DealFetcher

	mu         sync.Mutex
	state      Snapshot
	generation uint64
	cancel     context.CancelFunc
	listeners  []listener
	nextID     int
}

func NewController(fetcher DealFetcher) *Controller {
	return &Controller{
		fetcher: fetcher,
		state: Snapshot{
			Phase:     models.PhaseIdle,
			Selection: models.DefaultSelection(),
		},
	}
}

// Submit runs one search for query and blocks until it settles.
//
// A blank query only sets the inline notice and returns ErrEmptyQuery. A
// fetch error or an empty result moves the session to failed and is also
// returned. ErrSuperseded means a newer submission took over the session.
func (c *Controller) Submit(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		c.mu.Lock()
		c.state.Notice = EmptyQueryMessage
		snap := c.commitLocked()
		c.mu.Unlock()

		c.publish(snap)
		return ErrEmptyQuery
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = Snapshot{
		Revision:  c.state.Revision,
		Phase:     models.PhaseLoading,
		Query:     query,
		Selection: models.DefaultSelection(),
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	defer cancel()

	deals, err := c.runFetch(fetchCtx, query)
	return c.finish(gen, deals, err)
}

func (c *Controller) runFetch(ctx context.Context, query string) (deals []models.Deal, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Deal fetcher panic recovered: %v", r)
			deals = nil
			err = &FetchError{Kind: ErrTransportFailure, Cause: fmt.Errorf("fetcher panic: %v", r)}
		}
	}()

	return c.fetcher.FetchDeals(ctx, query)
}

// finish leaves the loading phase for submission gen, unless a newer
// submission has replaced it.
func (c *Controller) finish(gen uint64, deals []models.Deal, err error) error {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Printf("Dropping superseded search result (generation %d)", gen)
		return ErrSuperseded
	}
	c.cancel = nil

	var result error
	switch {
	case err != nil:
		c.state.Phase = models.PhaseFailed
		c.state.Error = FailurePrefix + err.Error()
		c.state.ErrorKind = KindName(err)
		result = err
	case len(deals) == 0:
		c.state.Phase = models.PhaseFailed
		c.state.Error = NoDealsMessage
		c.state.ErrorKind = KindName(ErrEmptyResult)
		result = ErrEmptyResult
	default:
		c.state.Phase = models.PhaseReady
		c.state.Deals = deals
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return result
}

// SetPlatformFilter selects "All" or a platform present in the current result set.
func (c *Controller) SetPlatformFilter(platform string) error {
	c.mu.Lock()
	if platform != models.AllPlatforms && !HasPlatform(c.state.Deals, platform) {
		c.mu.Unlock()
		return fmt.Errorf("%w: platform %q is not in the current results", ErrInvalidSelection, platform)
	}
	c.state.Selection.Platform = platform
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

func (c *Controller) SetSortKey(key models.SortKey) error {
	if !key.IsValid() {
		return fmt.Errorf("%w: unknown sort key %q", ErrInvalidSelection, key)
	}

	c.mu.Lock()
	c.state.Selection.Sort = key
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every state change. Calls happen outside
// the controller's lock, so concurrent changes can arrive out of order; use
// Snapshot.Revision to discard stale updates.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close cancels any in-flight fetch.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) commitLocked() Snapshot {
	c.state.Revision++
	return c.state
}

func (c *Controller) publish(snap Snapshot) {
	c.mu.Lock()
	listeners := make([]listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.fn(snap)
	}
}

// HasPlatform reports whether any deal is listed on platform.
func HasPlatform(deals []models.Deal, platform string) bool {
	for _, d := range deals {
		if string(d.Platform) == platform {
			return true
		}
	}
	return false
}

// BuildView renders a snapshot for the presentation layer. Displayed deals are
// only present once the session is ready.
func BuildView(id string, snap Snapshot) models.SessionView {
	view := models.SessionView{
		ID:          id,
		Revision:    snap.Revision,
		State:       snap.Phase,
		Query:       snap.Query,
		Error:       snap.Error,
		ErrorKind:   snap.ErrorKind,
		Notice:      snap.Notice,
		Selection:   snap.Selection,
		SortOptions: models.SortOptions,
		Platforms:   []string{},
		Deals:       []models.DealCard{},
	}

	if snap.Phase != models.PhaseReady {
		return view
	}

	projection := Project(snap.Deals, snap.Selection)
	view.Platforms = projection.Platforms
	view.BestDeal = projection.BestDeal
	view.Deals = projection.Displayed
	return view
}
