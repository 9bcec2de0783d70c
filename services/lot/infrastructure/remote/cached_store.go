package remote

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ghuser/lotdesk/pkg/cache"
	"github.com/ghuser/lotdesk/pkg/logger"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
	"github.com/ghuser/lotdesk/services/lot/domain/repositories"
)

// CachedItemStore decorates an ItemStore with a Redis read-through cache for
// single-item reads. Writes go to the store first and then refresh the cache.
// Cache errors never fail an operation; they are logged and bypassed.
type CachedItemStore struct {
	next  repositories.ItemStore
	cache *cache.ItemCache
	log   logger.Logger
	now   func() time.Time
}

// NewCachedItemStore wraps next.
func NewCachedItemStore(next repositories.ItemStore, c *cache.ItemCache, log logger.Logger) *CachedItemStore {
	return &CachedItemStore{next: next, cache: c, log: log, now: time.Now}
}

// List always reads through to the store and repopulates the cache.
func (s *CachedItemStore) List(ctx context.Context) ([]models.Item, error) {
	items, err := s.next.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		s.put(ctx, item)
	}
	return items, nil
}

// Get serves from the cache when possible.
func (s *CachedItemStore) Get(ctx context.Context, id int) (models.Item, error) {
	cached, err := s.cache.Get(ctx, id)
	switch {
	case err == nil:
		if item, ok := fromCached(cached); ok {
			return item, nil
		}
		s.log.WarnContext(ctx, "discarding unreadable cached item", "item_id", id)
	case !errors.Is(err, redis.Nil):
		s.log.WarnContext(ctx, "item cache read failed", "item_id", id, "error", err)
	}

	item, err := s.next.Get(ctx, id)
	if err != nil {
		return models.Item{}, err
	}
	s.put(ctx, item)
	return item, nil
}

// GetFresh skips the cache, reads the store and replaces the cached copy.
func (s *CachedItemStore) GetFresh(ctx context.Context, id int) (models.Item, error) {
	item, err := s.next.Get(ctx, id)
	if err != nil {
		s.evict(ctx, id)
		return models.Item{}, err
	}
	s.put(ctx, item)
	return item, nil
}

func (s *CachedItemStore) Create(ctx context.Context, item models.Item) (models.Item, error) {
	created, err := s.next.Create(ctx, item)
	if err != nil {
		return models.Item{}, err
	}
	s.put(ctx, created)
	return created, nil
}

func (s *CachedItemStore) Update(ctx context.Context, id int, item models.Item) (models.Item, error) {
	updated, err := s.next.Update(ctx, id, item)
	if err != nil {
		// the remote state is unknown now
		s.evict(ctx, id)
		return models.Item{}, err
	}
	if updated.ID != 0 && updated.ID != id {
		s.evict(ctx, id)
	}
	s.put(ctx, updated)
	return updated, nil
}

func (s *CachedItemStore) Delete(ctx context.Context, id int) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

func (s *CachedItemStore) put(ctx context.Context, item models.Item) {
	// partial responses are not cached
	if item.ID == 0 || item.Title == "" {
		return
	}
	if err := s.cache.Set(ctx, toCached(item, s.now())); err != nil {
		s.log.WarnContext(ctx, "item cache write failed", "item_id", item.ID, "error", err)
	}
}

func (s *CachedItemStore) evict(ctx context.Context, id int) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.WarnContext(ctx, "item cache evict failed", "item_id", id, "error", err)
	}
}

func toCached(item models.Item, now time.Time) *cache.CachedItem {
	return &cache.CachedItem{
		ID:           item.ID,
		SaleNumber:   item.SaleNumber,
		Title:        item.Title,
		Description:  item.Description,
		Consignor:    item.Consignor,
		EstimateLow:  item.Estimate.Low.String(),
		EstimateHigh: item.Estimate.High.String(),
		CachedAt:     now,
	}
}

func fromCached(c *cache.CachedItem) (models.Item, bool) {
	low, err := decimal.NewFromString(c.EstimateLow)
	if err != nil {
		return models.Item{}, false
	}
	high, err := decimal.NewFromString(c.EstimateHigh)
	if err != nil {
		return models.Item{}, false
	}
	return models.Item{
		ID:          c.ID,
		SaleNumber:  c.SaleNumber,
		Title:       c.Title,
		Description: c.Description,
		Consignor:   c.Consignor,
		Estimate:    models.Estimate{Low: low, High: high},
	}, true
}
