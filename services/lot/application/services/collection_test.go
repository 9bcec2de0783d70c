package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/lotdesk/pkg/logger"
	lotdomain "github.com/ghuser/lotdesk/services/lot/domain"
	"github.com/ghuser/lotdesk/services/lot/domain/events"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
	domainsvcs "github.com/ghuser/lotdesk/services/lot/domain/services"
)

func newLoaded(t *testing.T, store *memStore) (*Collection, *recorder) {
	t.Helper()
	rec := &recorder{}
	c := NewCollection(store, rec, logger.Discard())
	require.NoError(t, c.Load(context.Background()))
	return c, rec
}

func TestCollection_Load(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20), lot(2, 102, "Clock", 30, 50))
	c, rec := newLoaded(t, store)

	items := c.Items()
	assert.Equal(t, []int{1, 2}, ids(items))
	assert.True(t, items[0].Confirmed())
	assert.Empty(t, rec.outcomes)
}

func TestCollection_LoadFailureIsNotReported(t *testing.T) {
	store := newMemStore()
	store.setFail("list", errRemoteDown)
	rec := &recorder{}
	c := NewCollection(store, rec, logger.Discard())

	err := c.Load(context.Background())
	assert.ErrorIs(t, err, lotdomain.ErrTransport)
	assert.Zero(t, c.Len())
	assert.Empty(t, rec.outcomes)
}

func TestCollection_LoadDropsDuplicateIDsAndPrunesSelection(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20), lot(2, 102, "Clock", 30, 50))
	c, _ := newLoaded(t, store)
	sel := NewCoordinator(c, logger.Discard())
	sel.Toggle(1)
	sel.Toggle(2)

	store.items = []models.Item{lot(2, 102, "Clock", 30, 50), lot(2, 103, "Other", 1, 2)}
	require.NoError(t, c.Load(context.Background()))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Clock", items[0].Title)
	assert.Equal(t, []int{2}, sel.Selected())
}

func TestCollection_AddAssignsProvisionalValues(t *testing.T) {
	tests := []struct {
		name     string
		seed     []models.Item
		wantID   int
		wantSale int
	}{
		{name: "empty table", wantID: 1, wantSale: 101},
		{name: "sale numbers below floor", seed: []models.Item{lot(4, 7, "Vase", 1, 2)}, wantID: 5, wantSale: 101},
		{name: "sale numbers above floor", seed: []models.Item{lot(2, 140, "Vase", 1, 2), lot(9, 120, "Clock", 1, 2)}, wantID: 10, wantSale: 141},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(tt.seed...)
			c, _ := newLoaded(t, store)

			got, err := c.Add(context.Background(), draft("Lamp", "40", "60"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, tt.wantSale, got.SaleNumber)
		})
	}
}

func TestCollection_AddValidationBlocksEverything(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	c, rec := newLoaded(t, store)

	_, err := c.Add(context.Background(), draft("Lamp", "60", "40"))

	var verr *lotdomain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domainsvcs.MsgEstimateOrder, verr.Message)
	assert.Equal(t, 1, c.Len())
	assert.Zero(t, store.count("create"))
	assert.Empty(t, rec.outcomes)
}

func TestCollection_AddSuccessReplacesOptimisticEntry(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	store.serverIDs = []int{900}
	c, rec := newLoaded(t, store)

	got, err := c.Add(context.Background(), draft("Lamp", "40", "60"))
	require.NoError(t, err)

	assert.Equal(t, 900, got.ID)
	assert.Equal(t, []int{1, 900}, ids(c.Items()))
	assert.True(t, got.Confirmed())
	assert.Equal(t, 102, got.SaleNumber)

	o, retry := rec.last()
	assert.Equal(t, events.Outcome{Kind: events.KindCreate, Success: true, ItemID: 900}, o)
	assert.Nil(t, retry)
}

func TestCollection_AddPartialResponseKeepsLocalFields(t *testing.T) {
	store := newMemStore()
	store.serverIDs = []int{42}
	store.partial = true
	c, _ := newLoaded(t, store)

	got, err := c.Add(context.Background(), draft("Lamp", "40", "60"))
	require.NoError(t, err)

	assert.Equal(t, 42, got.ID)
	assert.Equal(t, "Lamp", got.Title)
	assert.True(t, got.Estimate.High.Equal(decimal.NewFromInt(60)))
}

func TestCollection_AddFailureKeepsUnconfirmedAndRetries(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	store.setFail("create", errRemoteDown)
	c, rec := newLoaded(t, store)
	ctx := context.Background()

	got, err := c.Add(ctx, draft("Lamp", "40", "60"))
	require.ErrorIs(t, err, lotdomain.ErrTransport)
	assert.Equal(t, 2, got.ID)

	items := c.Items()
	require.Len(t, items, 2)
	assert.False(t, items[1].Confirmed())

	o, retry := rec.last()
	assert.Equal(t, events.KindCreate, o.Kind)
	assert.False(t, o.Success)
	assert.Equal(t, 2, o.ItemID)
	require.NotNil(t, retry)

	store.setFail("create", nil)
	store.serverIDs = []int{77}
	require.NoError(t, retry(ctx))

	items = c.Items()
	assert.Equal(t, []int{1, 77}, ids(items))
	assert.True(t, items[1].Confirmed())
	assert.Equal(t, 2, store.count("create"))
}

func TestCollection_ServerIDCollisionKeepsProvisional(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	store.serverIDs = []int{1}
	c, _ := newLoaded(t, store)

	got, err := c.Add(context.Background(), draft("Lamp", "40", "60"))
	require.NoError(t, err)
	assert.Equal(t, 2, got.ID)
	assert.Equal(t, []int{1, 2}, ids(c.Items()))
}

func TestCollection_UpdatePreservesPosition(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20), lot(2, 102, "Clock", 30, 50), lot(3, 103, "Rug", 5, 9))
	c, rec := newLoaded(t, store)

	d := models.DraftFromItem(lot(2, 102, "Clock", 30, 50))
	d.SetTitle("Mantel clock")
	d.SetEstimateHigh("80")

	got, err := c.Update(context.Background(), 2, d)
	require.NoError(t, err)

	items := c.Items()
	assert.Equal(t, []int{1, 2, 3}, ids(items))
	assert.Equal(t, "Mantel clock", items[1].Title)
	assert.Equal(t, 102, items[1].SaleNumber)
	assert.True(t, got.Estimate.High.Equal(decimal.NewFromInt(80)))

	o, _ := rec.last()
	assert.Equal(t, events.Outcome{Kind: events.KindUpdate, Success: true, ItemID: 2}, o)
}

func TestCollection_UpdateFailureRestoresSnapshot(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	store.setFail("update", errRemoteDown)
	c, rec := newLoaded(t, store)
	ctx := context.Background()

	d := models.DraftFromItem(lot(1, 101, "Vase", 10, 20))
	d.SetTitle("Urn")
	_, err := c.Update(ctx, 1, d)
	require.ErrorIs(t, err, lotdomain.ErrTransport)

	item, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Vase", item.Title)

	o, retry := rec.last()
	assert.Equal(t, events.KindUpdate, o.Kind)
	require.NotNil(t, retry)

	store.setFail("update", nil)
	require.NoError(t, retry(ctx))
	item, _ = c.Get(1)
	assert.Equal(t, "Urn", item.Title)
}

func TestCollection_UpdateErrors(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	c, _ := newLoaded(t, store)

	_, err := c.Update(context.Background(), 99, draft("Urn", "1", "2"))
	assert.ErrorIs(t, err, lotdomain.ErrItemNotFound)

	_, err = c.Update(context.Background(), 1, draft("Urn", "abc", "2"))
	assert.ErrorIs(t, err, lotdomain.ErrValidation)
	assert.Zero(t, store.count("update"))
}

func TestCollection_UpdateResponseFollowsItemAfterReorder(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20), lot(2, 102, "Clock", 30, 50), lot(3, 103, "Rug", 5, 9))
	c, _ := newLoaded(t, store)
	store.gate = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Update(context.Background(), 1, draft("Urn", "10", "20"))
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		item, _ := c.Get(1)
		return item.Title == "Urn"
	}, timeout, tick)
	require.True(t, c.Reorder(1, 3))
	close(store.gate)
	wg.Wait()

	items := c.Items()
	assert.Equal(t, []int{2, 3, 1}, ids(items))
	assert.Equal(t, "Urn", items[2].Title)
	assert.Equal(t, "Clock", items[0].Title)
}

func TestCollection_Remove(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20), lot(2, 102, "Clock", 30, 50))
	c, rec := newLoaded(t, store)
	sel := NewCoordinator(c, logger.Discard())
	sel.Toggle(1)

	require.NoError(t, c.Remove(context.Background(), 1))

	assert.Equal(t, []int{2}, ids(c.Items()))
	assert.False(t, sel.IsSelected(1))
	o, _ := rec.last()
	assert.Equal(t, events.Outcome{Kind: events.KindDelete, Success: true, ItemID: 1}, o)
}

func TestCollection_RemoveAbsentIsNoop(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	c, rec := newLoaded(t, store)

	require.NoError(t, c.Remove(context.Background(), 5))
	assert.Equal(t, 1, c.Len())
	assert.Zero(t, store.count("delete"))
	assert.Empty(t, rec.outcomes)
}

func TestCollection_RemoveFailureRestoresPosition(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20), lot(2, 102, "Clock", 30, 50), lot(3, 103, "Rug", 5, 9))
	store.setFail("delete", errRemoteDown)
	c, rec := newLoaded(t, store)
	ctx := context.Background()

	err := c.Remove(ctx, 2)
	require.ErrorIs(t, err, lotdomain.ErrTransport)
	assert.Equal(t, []int{1, 2, 3}, ids(c.Items()))

	o, retry := rec.last()
	assert.Equal(t, events.KindDelete, o.Kind)
	assert.False(t, o.Success)

	store.setFail("delete", nil)
	require.NoError(t, retry(ctx))
	assert.Equal(t, []int{1, 3}, ids(c.Items()))
}

func TestCollection_RemoveOutlivesCallerCancellation(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20), lot(2, 102, "Clock", 30, 50))
	store.gate = make(chan struct{})
	c, rec := newLoaded(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Remove(ctx, 1) }()

	require.Eventually(t, store.callsPending, timeout, tick)
	cancel()
	close(store.gate)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(timeout):
		t.Fatal("remove did not return")
	}
	assert.Equal(t, []int{2}, ids(c.Items()))
	assert.Equal(t, 1, store.count("delete"))
	assert.Empty(t, rec.failures())
}

func TestCollection_UpdateOutlivesCallerCancellation(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	store.gate = make(chan struct{})
	c, rec := newLoaded(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Update(ctx, 1, draft("Amphora", "10", "20"))
		done <- err
	}()

	require.Eventually(t, store.callsPending, timeout, tick)
	cancel()
	close(store.gate)

	require.NoError(t, <-done)
	assert.Equal(t, "Amphora", c.Items()[0].Title)
	assert.Empty(t, rec.failures())
}

func TestCollection_RemoteTimeoutBoundsMutation(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20), lot(2, 102, "Clock", 30, 50))
	store.gate = make(chan struct{})
	defer close(store.gate)
	rec := &recorder{}
	c := NewCollection(store, rec, logger.Discard(), WithRemoteTimeout(20*time.Millisecond))
	require.NoError(t, c.Load(context.Background()))

	err := c.Remove(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, ids(c.Items()))
	assert.Len(t, rec.failures(), 1)
}

func TestCollection_Duplicate(t *testing.T) {
	store := newMemStore(lot(3, 12, "Vase", 10, 20), lot(1, 40, "Clock", 30, 50))
	c, _ := newLoaded(t, store)

	got, err := c.Duplicate(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 4, got.ID)
	assert.Equal(t, 41, got.SaleNumber)
	assert.Equal(t, "Vase", got.Title)
	assert.Equal(t, "Vase description", got.Description)
	assert.Equal(t, "Estate of Vase", got.Consignor)
	assert.True(t, got.Estimate.Low.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, []int{3, 1, 4}, ids(c.Items()))

	_, err = c.Duplicate(context.Background(), 99)
	assert.ErrorIs(t, err, lotdomain.ErrItemNotFound)
}

func TestCollection_DuplicateFailureKeepsUnconfirmedCopy(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	store.setFail("create", errRemoteDown)
	c, rec := newLoaded(t, store)

	_, err := c.Duplicate(context.Background(), 1)
	require.Error(t, err)

	items := c.Items()
	require.Len(t, items, 2)
	assert.False(t, items[1].Confirmed())
	o, _ := rec.last()
	assert.Equal(t, events.KindCreate, o.Kind)
}

func TestCollection_Reorder(t *testing.T) {
	tests := []struct {
		name           string
		source, target int
		want           []int
		moved          bool
	}{
		{name: "forward", source: 1, target: 3, want: []int{2, 3, 1, 4}, moved: true},
		{name: "backward", source: 4, target: 2, want: []int{1, 4, 2, 3}, moved: true},
		{name: "adjacent", source: 2, target: 3, want: []int{1, 3, 2, 4}, moved: true},
		{name: "same id", source: 2, target: 2, want: []int{1, 2, 3, 4}},
		{name: "missing source", source: 9, target: 2, want: []int{1, 2, 3, 4}},
		{name: "missing target", source: 2, target: 9, want: []int{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(lot(1, 101, "A", 1, 2), lot(2, 102, "B", 1, 2), lot(3, 103, "C", 1, 2), lot(4, 104, "D", 1, 2))
			c, _ := newLoaded(t, store)

			assert.Equal(t, tt.moved, c.Reorder(tt.source, tt.target))
			assert.Equal(t, tt.want, ids(c.Items()))
		})
	}
}

func TestCollection_Refresh(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20))
	c, rec := newLoaded(t, store)
	ctx := context.Background()

	store.items[0].Title = "Amphora"
	got, err := c.Refresh(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Amphora", got.Title)

	store.setFail("get", errRemoteDown)
	_, err = c.Refresh(ctx, 1)
	require.ErrorIs(t, err, lotdomain.ErrTransport)
	o, retry := rec.last()
	assert.Equal(t, events.KindFetch, o.Kind)
	assert.NotNil(t, retry)

	_, err = c.Refresh(ctx, 50)
	assert.ErrorIs(t, err, lotdomain.ErrItemNotFound)
}

// staleStore answers Get from the items it was loaded with.
type staleStore struct {
	*memStore
	stale map[int]models.Item
}

func (s *staleStore) Get(_ context.Context, id int) (models.Item, error) {
	return s.stale[id], nil
}

func (s *staleStore) GetFresh(ctx context.Context, id int) (models.Item, error) {
	return s.memStore.Get(ctx, id)
}

func TestCollection_RefreshPrefersFreshRead(t *testing.T) {
	mem := newMemStore(lot(1, 101, "Vase", 10, 20))
	store := &staleStore{memStore: mem, stale: map[int]models.Item{1: lot(1, 101, "Vase", 10, 20)}}
	c := NewCollection(store, nil, logger.Discard())
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	mem.items[0].Title = "Amphora"
	got, err := c.Refresh(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Amphora", got.Title)
	assert.Equal(t, 1, mem.count("get"))
}

func TestCollection_Summary(t *testing.T) {
	store := newMemStore(lot(1, 101, "Vase", 10, 20), lot(2, 102, "Clock", 30, 50))
	c, _ := newLoaded(t, store)

	s := c.Summary()
	assert.Equal(t, 2, s.Count)
	assert.True(t, s.LowTotal.Equal(decimal.NewFromInt(40)), s.LowTotal.String())
	assert.True(t, s.HighTotal.Equal(decimal.NewFromInt(70)), s.HighTotal.String())
}

func TestCollection_ConcurrentAddsKeepIDsUnique(t *testing.T) {
	store := newMemStore()
	c, _ := newLoaded(t, store)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Add(context.Background(), draft("Lamp", "1", "2"))
		}()
	}
	wg.Wait()

	seen := map[int]bool{}
	for _, it := range c.Items() {
		assert.False(t, seen[it.ID], "duplicate id %d", it.ID)
		seen[it.ID] = true
	}
	assert.Equal(t, 20, c.Len())
}

func TestCollection_NilReporter(t *testing.T) {
	store := newMemStore()
	store.setFail("create", errors.New("boom"))
	c := NewCollection(store, nil, logger.Discard())

	_, err := c.Add(context.Background(), draft("Lamp", "1", "2"))
	assert.Error(t, err)
}
