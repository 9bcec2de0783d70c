package services

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/ghuser/lotdesk/pkg/logger"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
)

// bulkDeleteConcurrency caps in-flight DELETE requests during BulkDelete.
const bulkDeleteConcurrency = 8

// SelectionState summarizes the selection relative to the collection.
type SelectionState string

const (
	SelectionNone SelectionState = "none"
	SelectionSome SelectionState = "some"
	SelectionAll  SelectionState = "all"
)

// Coordinator tracks which items are selected and fans bulk commands out to
// per-item collection operations. The selection is always a subset of the
// ids currently in the collection.
type Coordinator struct {
	c   *Collection
	log logger.Logger
}

// NewCoordinator returns a Coordinator over c.
func NewCoordinator(c *Collection, log logger.Logger) *Coordinator {
	return &Coordinator{c: c, log: log}
}

// Toggle flips the selection of id and reports whether it is now selected.
// Ids that are not in the collection are ignored.
func (s *Coordinator) Toggle(id int) bool {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.c.indexLocked(id) < 0 {
		return false
	}
	if _, ok := s.c.selected[id]; ok {
		delete(s.c.selected, id)
		return false
	}
	s.c.selected[id] = struct{}{}
	return true
}

// ToggleAll clears the selection when every item is selected and selects
// every item otherwise. "All selected" is recomputed from the current
// collection, never tracked incrementally.
func (s *Coordinator) ToggleAll() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.allSelectedLocked() {
		clear(s.c.selected)
		return
	}
	for _, item := range s.c.items {
		s.c.selected[item.ID] = struct{}{}
	}
}

// Clear empties the selection.
func (s *Coordinator) Clear() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	clear(s.c.selected)
}

// IsSelected reports whether id is selected.
func (s *Coordinator) IsSelected(id int) bool {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	_, ok := s.c.selected[id]
	return ok
}

// Selected returns the selected ids in collection order.
func (s *Coordinator) Selected() []int {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	ids := make([]int, 0, len(s.c.selected))
	for _, item := range s.c.items {
		if _, ok := s.c.selected[item.ID]; ok {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// State reports none, some or all.
func (s *Coordinator) State() SelectionState {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	switch {
	case len(s.c.selected) == 0:
		return SelectionNone
	case s.allSelectedLocked():
		return SelectionAll
	default:
		return SelectionSome
	}
}

// BulkDelete removes every selected item. Removals run concurrently; the
// selection is cleared only after all of them have completed. Each failure is
// reported by the collection on its own; the joined error is returned.
func (s *Coordinator) BulkDelete(ctx context.Context) error {
	ids := s.Selected()
	if len(ids) == 0 {
		return nil
	}

	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(bulkDeleteConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = s.c.Remove(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	s.Clear()

	err := errors.Join(errs...)
	if err != nil {
		s.log.WarnContext(ctx, "bulk delete finished with failures", "requested", len(ids), "error", err)
	} else {
		s.log.InfoContext(ctx, "bulk delete finished", "deleted", len(ids))
	}
	return err
}

// BulkDuplicate appends a copy of every selected item, in collection order,
// then creates them one at a time. A single id counter and a single sale
// number counter, both starting above the current maximum, are shared by the
// whole batch so the copies get strictly increasing, non-colliding values.
// Returns the items as reconciled after each create; failed creates stay in
// the collection as unconfirmed entries.
func (s *Coordinator) BulkDuplicate(ctx context.Context) ([]models.Item, error) {
	s.c.mu.Lock()
	nextID := s.c.nextIDLocked()
	nextSale := s.c.nextSaleNumberLocked(0)
	var pending []int
	for _, item := range s.c.items {
		if _, ok := s.c.selected[item.ID]; !ok {
			continue
		}
		pending = append(pending, nextID)
		// copies are not revisited: range captured the slice before the loop
		s.c.items = append(s.c.items, item.Copy(nextID, nextSale))
		nextID++
		nextSale++
	}
	s.c.mu.Unlock()

	if len(pending) == 0 {
		return nil, nil
	}

	created := make([]models.Item, 0, len(pending))
	var errs []error
	for _, id := range pending {
		item, err := s.c.submit(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		created = append(created, item)
	}

	s.log.InfoContext(ctx, "bulk duplicate finished", "requested", len(pending), "created", len(created))
	return created, errors.Join(errs...)
}

func (s *Coordinator) allSelectedLocked() bool {
	if len(s.c.items) == 0 || len(s.c.selected) < len(s.c.items) {
		return false
	}
	for _, item := range s.c.items {
		if _, ok := s.c.selected[item.ID]; !ok {
			return false
		}
	}
	return true
}
