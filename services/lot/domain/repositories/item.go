package repositories

import (
	"context"

	"github.com/ghuser/lotdesk/services/lot/domain/models"
)

// ItemStore is the remote item resource the collection mirrors.
// Implementations return errors matching domain.ErrTransport for any remote
// failure, and the item exactly as the remote store reports it.
type ItemStore interface {
	List(ctx context.Context) ([]models.Item, error)
	Get(ctx context.Context, id int) (models.Item, error)

	// Create submits a new item. The returned item carries the
	// authoritative id and fields.
	Create(ctx context.Context, item models.Item) (models.Item, error)

	Update(ctx context.Context, id int, item models.Item) (models.Item, error)
	Delete(ctx context.Context, id int) error
}

// FreshReader is implemented by stores that may answer Get from a local
// copy. GetFresh always reads the remote resource.
type FreshReader interface {
	GetFresh(ctx context.Context, id int) (models.Item, error)
}
