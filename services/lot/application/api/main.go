package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/lotdesk/pkg/app"
	"github.com/ghuser/lotdesk/pkg/auth"
	"github.com/ghuser/lotdesk/services/lot/application/handlers"
	appsvcs "github.com/ghuser/lotdesk/services/lot/application/services"
)

// LotRoutes registers lot, selection and notification endpoints on the
// provided chi router. Every route is bound to the caller's workspace session.
func LotRoutes(r chi.Router, a *app.Application, svcs *appsvcs.Services) {
	lots := handlers.NewLotsHandler(svcs)
	selection := handlers.NewSelectionHandler(svcs)
	notification := handlers.NewNotificationHandler(svcs)

	r.Group(func(r chi.Router) {
		r.Use(auth.Workspace(a.SessionStore, a.Logger))

		r.Route("/lots", func(r chi.Router) {
			r.Get("/", lots.List)
			r.Post("/", lots.Create)
			r.Post("/load", lots.Load)
			r.Post("/reorder", lots.Reorder)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", lots.Update)
				r.Delete("/", lots.Delete)
				r.Post("/duplicate", lots.Duplicate)
				r.Post("/refresh", lots.Refresh)
			})
		})

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", selection.Get)
			r.Post("/toggle-all", selection.ToggleAll)
			r.Post("/delete", selection.BulkDelete)
			r.Post("/duplicate", selection.BulkDuplicate)
			r.Post("/{id}/toggle", selection.Toggle)
		})

		r.Route("/notification", func(r chi.Router) {
			r.Get("/", notification.Get)
			r.Delete("/", notification.Dismiss)
			r.Post("/retry", notification.Retry)
		})
	})
}
