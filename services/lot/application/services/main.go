package services

import (
	"github.com/ghuser/lotdesk/pkg/app"
	"github.com/ghuser/lotdesk/pkg/cache"
	"github.com/ghuser/lotdesk/services/lot/domain/repositories"
	"github.com/ghuser/lotdesk/services/lot/infrastructure/remote"
)

// itemCacheNamespace scopes cached items to the lot context.
const itemCacheNamespace = "lot"

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Workspaces *Workspaces
	Remote     *remote.ItemStore // exposed for the health check
}

// New wires the lot services with infrastructure from the Application container.
// The remote item store is wrapped in the Redis read-through cache when Redis
// is available and the cache is enabled.
func New(a *app.Application) *Services {
	cfg := a.Config
	client := remote.NewItemStore(remote.Options{
		BaseURL: cfg.RemoteBaseURL,
		Timeout: cfg.RemoteTimeout,
		Debug:   cfg.RemoteDebug,
	}, a.Logger)

	var store repositories.ItemStore = client
	if a.Redis != nil && cfg.ItemCacheEnabled {
		itemCache := cache.NewItemCache(a.Redis, itemCacheNamespace, cfg.ItemCacheTTL)
		store = remote.NewCachedItemStore(client, itemCache, a.Logger)
	}

	var publisher Publisher
	if a.EventBus != nil {
		publisher = a.EventBus
	}

	return &Services{
		Workspaces: NewWorkspaces(store, publisher, WorkspaceOptions{
			Size:          cfg.WorkspaceLimit,
			IdleTTL:       cfg.WorkspaceTTL,
			NoticeTTL:     cfg.NoticeTTL,
			RemoteTimeout: cfg.RemoteTimeout,
		}, a.Logger),
		Remote: client,
	}
}
