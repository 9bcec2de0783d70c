package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ghuser/lotdesk/pkg/logger"
	"github.com/ghuser/lotdesk/services/lot/domain/events"
	"github.com/ghuser/lotdesk/services/lot/domain/repositories"
)

// Workspace is one user's table: the collection, its selection and the
// failure notice. Each browser session owns exactly one.
type Workspace struct {
	ID         uuid.UUID
	Collection *Collection
	Selection  *Coordinator
	Notices    *Notifier

	loadMu sync.Mutex
	loaded bool
}

// EnsureLoaded loads the collection the first time it is called. A failed
// load is retried on the next call.
func (w *Workspace) EnsureLoaded(ctx context.Context) error {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	if w.loaded {
		return nil
	}
	if err := w.Collection.Load(ctx); err != nil {
		return err
	}
	w.loaded = true
	return nil
}

// Reload re-fetches the collection unconditionally.
func (w *Workspace) Reload(ctx context.Context) error {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	if err := w.Collection.Load(ctx); err != nil {
		return err
	}
	w.loaded = true
	return nil
}

// WorkspaceOptions configures the Workspaces registry.
type WorkspaceOptions struct {
	Size      int           // maximum number of live workspaces
	IdleTTL   time.Duration // a workspace untouched for this long is dropped
	NoticeTTL time.Duration
	// RemoteTimeout bounds each issued remote mutation; see WithRemoteTimeout.
	RemoteTimeout time.Duration
}

// Workspaces hands out one Workspace per session id, creating it on first
// use. Idle workspaces expire; their state is simply discarded.
type Workspaces struct {
	mu        sync.Mutex
	cache     *expirable.LRU[uuid.UUID, *Workspace]
	store     repositories.ItemStore
	publisher Publisher
	noticeTTL     time.Duration
	remoteTimeout time.Duration
	log           logger.Logger
}

// NewWorkspaces returns a registry whose workspaces share store. publisher may be nil.
func NewWorkspaces(store repositories.ItemStore, publisher Publisher, opts WorkspaceOptions, log logger.Logger) *Workspaces {
	w := &Workspaces{
		store:     store,
		publisher: publisher,
		noticeTTL:     opts.NoticeTTL,
		remoteTimeout: opts.RemoteTimeout,
		log:           log,
	}
	w.cache = expirable.NewLRU[uuid.UUID, *Workspace](opts.Size, func(id uuid.UUID, _ *Workspace) {
		log.Debug("workspace evicted", "workspace_id", id.String())
	}, opts.IdleTTL)
	return w
}

// Get returns the workspace for id, creating an empty one if needed.
func (w *Workspaces) Get(id uuid.UUID) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ws, ok := w.cache.Get(id); ok {
		w.cache.Add(id, ws) // refresh the idle deadline
		return ws
	}
	ws := w.newWorkspace(id)
	w.cache.Add(id, ws)
	return ws
}

// Len returns the number of live workspaces.
func (w *Workspaces) Len() int {
	return w.cache.Len()
}

func (w *Workspaces) newWorkspace(id uuid.UUID) *Workspace {
	log := w.log.With("workspace_id", id.String())
	notices := NewNotifier(w.noticeTTL)

	reporters := multiReporter{notices}
	if w.publisher != nil {
		reporters = append(reporters, newEventReporter(id, w.publisher, log))
	}

	coll := NewCollection(w.store, reporters, log, WithRemoteTimeout(w.remoteTimeout))
	return &Workspace{
		ID:         id,
		Collection: coll,
		Selection:  NewCoordinator(coll, log),
		Notices:    notices,
	}
}

// multiReporter fans an outcome out to several reporters in order.
type multiReporter []Reporter

func (m multiReporter) Report(ctx context.Context, outcome events.Outcome, retry RetryFunc) {
	for _, r := range m {
		r.Report(ctx, outcome, retry)
	}
}
