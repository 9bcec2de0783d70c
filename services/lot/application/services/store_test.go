package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	lotdomain "github.com/ghuser/lotdesk/services/lot/domain"
	"github.com/ghuser/lotdesk/services/lot/domain/events"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

// memStore is an in-memory ItemStore with per-operation failure switches.
type memStore struct {
	mu     sync.Mutex
	items  []models.Item
	nextID int

	// serverIDs, when non-empty, are handed out by Create in order.
	// Otherwise Create keeps the id it was sent.
	serverIDs []int
	// partial makes Create and Update answer with only the id.
	partial bool

	failList, failGet, failCreate, failUpdate, failDelete error

	// gate, when set, blocks Update and Delete until it is closed or
	// the caller's context ends.
	gate    chan struct{}
	waiting int

	calls map[string]int
}

func newMemStore(seed ...models.Item) *memStore {
	return &memStore{items: seed, calls: map[string]int{}}
}

var errRemoteDown = &lotdomain.TransportError{Op: "test", Status: 503, Err: errors.New("unavailable")}

func (s *memStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *memStore) setFail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch op {
	case "list":
		s.failList = err
	case "get":
		s.failGet = err
	case "create":
		s.failCreate = err
	case "update":
		s.failUpdate = err
	case "delete":
		s.failDelete = err
	}
}

func (s *memStore) List(context.Context) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["list"]++
	if s.failList != nil {
		return nil, s.failList
	}
	return append([]models.Item(nil), s.items...), nil
}

func (s *memStore) Get(_ context.Context, id int) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["get"]++
	if s.failGet != nil {
		return models.Item{}, s.failGet
	}
	for _, it := range s.items {
		if it.ID == id {
			return it, nil
		}
	}
	return models.Item{}, &lotdomain.TransportError{Op: "get", Status: 404, Err: errors.New("not found")}
}

func (s *memStore) Create(_ context.Context, item models.Item) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["create"]++
	if s.failCreate != nil {
		return models.Item{}, s.failCreate
	}
	if len(s.serverIDs) > 0 {
		item.ID = s.serverIDs[0]
		s.serverIDs = s.serverIDs[1:]
	}
	item.Status = ""
	s.items = append(s.items, item)
	if s.partial {
		return models.Item{ID: item.ID}, nil
	}
	return item, nil
}

func (s *memStore) Update(ctx context.Context, id int, item models.Item) (models.Item, error) {
	if err := s.wait(ctx); err != nil {
		return models.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["update"]++
	if s.failUpdate != nil {
		return models.Item{}, s.failUpdate
	}
	item.Status = ""
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i] = item
		}
	}
	if s.partial {
		return models.Item{ID: id}, nil
	}
	return item, nil
}

func (s *memStore) Delete(ctx context.Context, id int) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["delete"]++
	if s.failDelete != nil {
		return s.failDelete
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) wait(ctx context.Context) error {
	s.mu.Lock()
	gate := s.gate
	if gate != nil {
		s.waiting++
	}
	s.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callsPending reports whether a call is parked on the gate.
func (s *memStore) callsPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting > 0
}

// recorder is a Reporter that keeps every outcome.
type recorder struct {
	mu       sync.Mutex
	outcomes []events.Outcome
	retries  []RetryFunc
}

func (r *recorder) Report(_ context.Context, o events.Outcome, retry RetryFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	r.retries = append(r.retries, retry)
}

func (r *recorder) last() (events.Outcome, RetryFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return events.Outcome{}, nil
	}
	n := len(r.outcomes) - 1
	return r.outcomes[n], r.retries[n]
}

func (r *recorder) failures() []events.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Outcome
	for _, o := range r.outcomes {
		if !o.Success {
			out = append(out, o)
		}
	}
	return out
}

func lot(id, sale int, title string, low, high int64) models.Item {
	return models.Item{
		ID:          id,
		SaleNumber:  sale,
		Title:       title,
		Description: title + " description",
		Consignor:   "Estate of " + title,
		Estimate:    models.Estimate{Low: decimal.NewFromInt(low), High: decimal.NewFromInt(high)},
	}
}

func draft(title, low, high string) models.Draft {
	var d models.Draft
	d.SetTitle(title)
	d.SetDescription(title + " description")
	d.SetConsignor("Estate of " + title)
	d.SetEstimateLow(low)
	d.SetEstimateHigh(high)
	return d
}

func ids(items []models.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
