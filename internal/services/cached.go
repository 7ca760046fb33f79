package services

import (
	"context"
	"log"
	"slices"

	"golang.org/x/sync/singleflight"

	"deal-finder-api/internal/models"
	"deal-finder-api/pkg/cache"
)

// DealCache is the storage used by CachedFetcher. *cache.RedisCache satisfies it.
type DealCache interface {
	IsAvailable() bool
	GetDeals(ctx context.Context, query string) ([]models.Deal, bool, error)
	SetDeals(ctx context.Context, query string, deals []models.Deal) error
}

// CachedFetcher puts a cache-aside layer in front of another DealFetcher.
// Concurrent misses for the same query share one upstream fetch.
type CachedFetcher struct {
	next  DealFetcher
	cache DealCache
	group singleflight.Group
}

func NewCachedFetcher(next DealFetcher, c DealCache) *CachedFetcher {
	return &CachedFetcher{next: next, cache: c}
}

func (f *CachedFetcher) FetchDeals(ctx context.Context, productName string) ([]models.Deal, error) {
	if f.cache == nil || !f.cache.IsAvailable() {
		return f.next.FetchDeals(ctx, productName)
	}

	if deals, found, err := f.cache.GetDeals(ctx, productName); err != nil {
		log.Printf("Cache read failed for '%s': %v", productName, err)
	} else if found {
		log.Printf("Cache HIT for '%s'", productName)
		return slices.Clone(deals), nil
	}

	// The shared fetch ignores caller cancellation; each caller stops
	// waiting on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(cache.Key(productName), func() (interface{}, error) {
		log.Printf("Cache MISS for '%s'", productName)
		deals, err := f.next.FetchDeals(shared, productName)
		if err != nil {
			return nil, err
		}
		if len(deals) > 0 {
			if err := f.cache.SetDeals(shared, productName, deals); err != nil {
				log.Printf("Failed to cache deals for '%s': %v", productName, err)
			}
		}
		return deals, nil
	})

	select {
	case <-ctx.Done():
		return nil, &FetchError{Kind: ErrTransportFailure, Cause: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]models.Deal)), nil
	}
}
