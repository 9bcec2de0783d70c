package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ghuser/lotdesk/pkg/logger"
	lotdomain "github.com/ghuser/lotdesk/services/lot/domain"
	"github.com/ghuser/lotdesk/services/lot/domain/events"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
	"github.com/ghuser/lotdesk/services/lot/domain/repositories"
	domainsvcs "github.com/ghuser/lotdesk/services/lot/domain/services"
)

// saleNumberFloor is the value new sale numbers count up from in an empty table.
const saleNumberFloor = 100

// DefaultRemoteTimeout bounds a single create, update, delete or refresh
// once it has been issued.
const DefaultRemoteTimeout = 30 * time.Second

// RetryFunc re-runs a failed operation with its original arguments.
type RetryFunc func(ctx context.Context) error

// Reporter receives the outcome of every remote-backed operation. retry is
// nil for successful outcomes.
type Reporter interface {
	Report(ctx context.Context, outcome events.Outcome, retry RetryFunc)
}

// Summary is the table footer: item count and estimate totals.
type Summary struct {
	Count     int             `json:"count"`
	LowTotal  decimal.Decimal `json:"low_total"`
	HighTotal decimal.Decimal `json:"high_total"`
}

// Collection is the ordered local mirror of the remote item store.
//
// Mutations are applied locally first and then sent to the store. The mutex
// is never held across a store call; every response handler re-locates its
// target by id because the slice may have been reordered or shrunk while
// the request was in flight.
//
// The selection set lives here too so that removals and selection changes
// are serialized against each other; Coordinator exposes it.
type Collection struct {
	mu       sync.Mutex
	items    []models.Item
	selected map[int]struct{}

	store         repositories.ItemStore
	reporter      Reporter
	log           logger.Logger
	remoteTimeout time.Duration
}

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithRemoteTimeout bounds each issued remote mutation. Non-positive values
// keep DefaultRemoteTimeout.
func WithRemoteTimeout(d time.Duration) CollectionOption {
	return func(c *Collection) {
		if d > 0 {
			c.remoteTimeout = d
		}
	}
}

// NewCollection returns an empty collection backed by store. reporter may be nil.
func NewCollection(store repositories.ItemStore, reporter Reporter, log logger.Logger, opts ...CollectionOption) *Collection {
	if reporter == nil {
		reporter = nopReporter{}
	}
	c := &Collection{
		selected:      make(map[int]struct{}),
		store:         store,
		reporter:      reporter,
		log:           log,
		remoteTimeout: DefaultRemoteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// remoteContext detaches ctx from the caller's cancellation. Once a mutation
// is issued it runs to completion or failure even if the request that started
// it goes away; trace and request values are kept.
func (c *Collection) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.remoteTimeout)
}

// Load replaces local state with the remote item list. Failures are logged
// and returned; they are not reported to the presentation layer.
func (c *Collection) Load(ctx context.Context) error {
	items, err := c.store.List(ctx)
	if err != nil {
		c.log.ErrorContext(ctx, "load items failed", "error", err)
		return fmt.Errorf("load items: %w", err)
	}

	loaded := make([]models.Item, 0, len(items))
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			c.log.WarnContext(ctx, "remote returned duplicate item id, keeping first", "item_id", item.ID)
			continue
		}
		seen[item.ID] = struct{}{}
		item.Status = models.StatusConfirmed
		loaded = append(loaded, item)
	}

	c.mu.Lock()
	c.items = loaded
	for id := range c.selected {
		if _, ok := seen[id]; !ok {
			delete(c.selected, id)
		}
	}
	c.mu.Unlock()

	c.log.DebugContext(ctx, "items loaded", "count", len(loaded))
	return nil
}

// Add validates d, appends it with a provisional id and sale number, and
// creates it remotely. On success the provisional entry is replaced in place
// by the item the store returned. On failure the entry stays, marked
// unconfirmed, and the failure is reported with a retry that re-submits it.
func (c *Collection) Add(ctx context.Context, d models.Draft) (models.Item, error) {
	est, err := domainsvcs.ValidateDraft(d)
	if err != nil {
		return models.Item{}, err
	}

	c.mu.Lock()
	item := d.Apply(models.Item{
		ID:         c.nextIDLocked(),
		SaleNumber: c.nextSaleNumberLocked(saleNumberFloor),
		Status:     models.StatusUnconfirmed,
	}, est)
	c.items = append(c.items, item)
	c.mu.Unlock()

	return c.submit(ctx, item.ID)
}

// Update validates d and merges it into the item with the given id, keeping
// its position. On success the store's response is merged into the entry with
// the response id. On failure the pre-edit snapshot is restored.
func (c *Collection) Update(ctx context.Context, id int, d models.Draft) (models.Item, error) {
	est, err := domainsvcs.ValidateDraft(d)
	if err != nil {
		return models.Item{}, err
	}

	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return models.Item{}, fmt.Errorf("update item %d: %w", id, lotdomain.ErrItemNotFound)
	}
	snapshot := c.items[i]
	edited := d.Apply(snapshot, est)
	c.items[i] = edited
	c.mu.Unlock()

	ctx, cancel := c.remoteContext(ctx)
	defer cancel()
	updated, err := c.store.Update(ctx, id, edited)
	if err != nil {
		c.mu.Lock()
		if j := c.indexLocked(id); j >= 0 {
			c.items[j] = snapshot
		}
		c.mu.Unlock()

		c.fail(ctx, events.KindUpdate, id, err, func(ctx context.Context) error {
			_, err := c.Update(ctx, id, d)
			return err
		})
		return snapshot, fmt.Errorf("update item %d: %w", id, err)
	}

	if updated.ID == 0 {
		updated.ID = id
	}
	merged := c.mergeRemote(ctx, updated)
	c.succeed(ctx, events.KindUpdate, merged.ID)
	return merged, nil
}

// Remove drops the item and its selection, then deletes it remotely.
// Removing an id that is not present is a no-op. If the store rejects the
// delete the item is put back where it was.
func (c *Collection) Remove(ctx context.Context, id int) error {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return nil
	}
	removed := c.items[i]
	nextID := 0
	if i+1 < len(c.items) {
		nextID = c.items[i+1].ID
	}
	c.items = slices.Delete(c.items, i, i+1)
	delete(c.selected, id)
	c.mu.Unlock()

	ctx, cancel := c.remoteContext(ctx)
	defer cancel()
	if err := c.store.Delete(ctx, id); err != nil {
		c.mu.Lock()
		if c.indexLocked(id) < 0 {
			pos := min(i, len(c.items))
			if j := c.indexLocked(nextID); nextID != 0 && j >= 0 {
				pos = j
			}
			c.items = slices.Insert(c.items, pos, removed)
		}
		c.mu.Unlock()

		c.fail(ctx, events.KindDelete, id, err, func(ctx context.Context) error {
			return c.Remove(ctx, id)
		})
		return fmt.Errorf("delete item %d: %w", id, err)
	}

	c.succeed(ctx, events.KindDelete, id)
	return nil
}

// Duplicate appends a copy of the item with a new id and sale number and
// creates it remotely, reconciling exactly like Add.
func (c *Collection) Duplicate(ctx context.Context, id int) (models.Item, error) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return models.Item{}, fmt.Errorf("duplicate item %d: %w", id, lotdomain.ErrItemNotFound)
	}
	dup := c.items[i].Copy(c.nextIDLocked(), c.nextSaleNumberLocked(0))
	c.items = append(c.items, dup)
	c.mu.Unlock()

	return c.submit(ctx, dup.ID)
}

// Reorder moves sourceID to the index targetID occupied. It reports whether
// anything moved; equal or missing ids are a no-op. The new order is local
// only.
func (c *Collection) Reorder(sourceID, targetID int) bool {
	if sourceID == targetID {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	from, to := c.indexLocked(sourceID), c.indexLocked(targetID)
	if from < 0 || to < 0 {
		return false
	}
	item := c.items[from]
	c.items = slices.Delete(c.items, from, from+1)
	c.items = slices.Insert(c.items, to, item)
	return true
}

// Refresh re-reads one item from the store and merges it in place. Stores
// that keep a local copy are asked for a fresh read.
func (c *Collection) Refresh(ctx context.Context, id int) (models.Item, error) {
	if _, ok := c.Get(id); !ok {
		return models.Item{}, fmt.Errorf("refresh item %d: %w", id, lotdomain.ErrItemNotFound)
	}

	ctx, cancel := c.remoteContext(ctx)
	defer cancel()
	get := c.store.Get
	if fr, ok := c.store.(repositories.FreshReader); ok {
		get = fr.GetFresh
	}
	item, err := get(ctx, id)
	if err != nil {
		c.fail(ctx, events.KindFetch, id, err, func(ctx context.Context) error {
			_, err := c.Refresh(ctx, id)
			return err
		})
		return models.Item{}, fmt.Errorf("refresh item %d: %w", id, err)
	}

	if item.ID == 0 {
		item.ID = id
	}
	merged := c.mergeRemote(ctx, item)
	c.succeed(ctx, events.KindFetch, merged.ID)
	return merged, nil
}

// Items returns a snapshot of the collection in display order.
func (c *Collection) Items() []models.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Get returns the item with the given id.
func (c *Collection) Get(id int) (models.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.items[i], true
	}
	return models.Item{}, false
}

// Len returns the number of items.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Summary totals the low and high estimates of every item.
func (c *Collection) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{Count: len(c.items), LowTotal: decimal.Zero, HighTotal: decimal.Zero}
	for _, item := range c.items {
		s.LowTotal = s.LowTotal.Add(item.Estimate.Low)
		s.HighTotal = s.HighTotal.Add(item.Estimate.High)
	}
	return s
}

// submit creates the local entry with the given id remotely and swaps in the
// confirmed item.
func (c *Collection) submit(ctx context.Context, id int) (models.Item, error) {
	pending, ok := c.Get(id)
	if !ok {
		return models.Item{}, fmt.Errorf("create item %d: %w", id, lotdomain.ErrItemNotFound)
	}

	ctx, cancel := c.remoteContext(ctx)
	defer cancel()
	created, err := c.store.Create(ctx, pending)
	if err != nil {
		c.mu.Lock()
		if i := c.indexLocked(id); i >= 0 {
			c.items[i].Status = models.StatusUnconfirmed
		}
		c.mu.Unlock()

		c.fail(ctx, events.KindCreate, id, err, func(ctx context.Context) error {
			_, err := c.submit(ctx, id)
			return err
		})
		return pending, fmt.Errorf("create item: %w", err)
	}

	confirmed := c.confirm(ctx, id, created)
	c.succeed(ctx, events.KindCreate, confirmed.ID)
	return confirmed, nil
}

// confirm replaces the provisional entry with the created item, adopting the
// store's id unless it would collide with another local item.
func (c *Collection) confirm(ctx context.Context, provisionalID int, created models.Item) models.Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(provisionalID)
	if i < 0 {
		c.log.WarnContext(ctx, "created item no longer present locally",
			"provisional_id", provisionalID, "item_id", created.ID)
		created.Status = models.StatusConfirmed
		return created
	}

	confirmed := mergeItem(c.items[i], created)
	if confirmed.ID != provisionalID {
		if j := c.indexLocked(confirmed.ID); j >= 0 {
			c.log.WarnContext(ctx, "remote id collides with a local item, keeping provisional id",
				"provisional_id", provisionalID, "item_id", confirmed.ID)
			confirmed.ID = provisionalID
		} else if _, sel := c.selected[provisionalID]; sel {
			delete(c.selected, provisionalID)
			c.selected[confirmed.ID] = struct{}{}
		}
	}
	confirmed.Status = models.StatusConfirmed
	c.items[i] = confirmed
	return confirmed
}

// mergeRemote merges a store response into the entry with the same id.
func (c *Collection) mergeRemote(ctx context.Context, remote models.Item) models.Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(remote.ID)
	if i < 0 {
		c.log.WarnContext(ctx, "remote response for item not present locally", "item_id", remote.ID)
		remote.Status = models.StatusConfirmed
		return remote
	}
	merged := mergeItem(c.items[i], remote)
	merged.Status = models.StatusConfirmed
	c.items[i] = merged
	return merged
}

func (c *Collection) fail(ctx context.Context, kind events.Kind, id int, err error, retry RetryFunc) {
	c.log.WarnContext(ctx, "remote operation failed",
		"operation", string(kind), "item_id", id, "error", err)
	c.reporter.Report(ctx, events.Outcome{Kind: kind, Success: false, Error: err.Error(), ItemID: id}, retry)
}

func (c *Collection) succeed(ctx context.Context, kind events.Kind, id int) {
	c.reporter.Report(ctx, events.Outcome{Kind: kind, Success: true, ItemID: id}, nil)
}

func (c *Collection) indexLocked(id int) int {
	return slices.IndexFunc(c.items, func(item models.Item) bool { return item.ID == id })
}

// nextIDLocked returns max(ids, 0) + 1.
func (c *Collection) nextIDLocked() int {
	maxID := 0
	for _, item := range c.items {
		maxID = max(maxID, item.ID)
	}
	return maxID + 1
}

// nextSaleNumberLocked returns max(saleNumbers, floor) + 1.
func (c *Collection) nextSaleNumberLocked(floor int) int {
	maxSale := floor
	for _, item := range c.items {
		maxSale = max(maxSale, item.SaleNumber)
	}
	return maxSale + 1
}

// mergeItem overlays the fields the store actually returned onto local.
// Zero values mean the store omitted the field.
func mergeItem(local, remote models.Item) models.Item {
	if remote.ID != 0 {
		local.ID = remote.ID
	}
	if remote.SaleNumber != 0 {
		local.SaleNumber = remote.SaleNumber
	}
	if remote.Title != "" {
		local.Title = remote.Title
	}
	if remote.Description != "" {
		local.Description = remote.Description
	}
	if remote.Consignor != "" {
		local.Consignor = remote.Consignor
	}
	if !remote.Estimate.Low.IsZero() || !remote.Estimate.High.IsZero() {
		local.Estimate = remote.Estimate
	}
	return local
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, events.Outcome, RetryFunc) {}
