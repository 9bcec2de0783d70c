package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/lotdesk/pkg/cache"
	"github.com/ghuser/lotdesk/pkg/config"
	"github.com/ghuser/lotdesk/pkg/events"
	"github.com/ghuser/lotdesk/pkg/logger"
)

// Application holds shared infrastructure dependencies for all services.
// Pass to all service route registration calls during server initialization.
//
// Logging: app.Logger is backed by a trace-aware handler; use slog's context methods
// and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "item removed", "item_id", id)
//	app.Logger.ErrorContext(ctx, "failed to load items", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config       *config.Config
	Logger       logger.Logger
	EventBus     *events.EventBus
	Redis        *cache.RedisClient // nil disables the remote item cache
	SessionStore sessions.Store
}
