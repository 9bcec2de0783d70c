package handlers

import (
	"net/http"

	"github.com/ghuser/lotdesk/pkg/httpx"
	appsvcs "github.com/ghuser/lotdesk/services/lot/application/services"
	"github.com/ghuser/lotdesk/services/lot/domain/events"
)

// SelectionHandler serves the /selection endpoints.
type SelectionHandler struct {
	svc *appsvcs.Services
}

// NewSelectionHandler returns a SelectionHandler backed by the given services.
func NewSelectionHandler(svc *appsvcs.Services) *SelectionHandler {
	return &SelectionHandler{svc: svc}
}

// Get handles GET /selection.
func (h *SelectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, SelectionView{IDs: ws.Selection.Selected(), State: ws.Selection.State()})
}

// Toggle handles POST /selection/{id}/toggle. Unknown ids are ignored.
func (h *SelectionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	ws.Selection.Toggle(id)
	httpx.JSON(w, http.StatusOK, SelectionView{IDs: ws.Selection.Selected(), State: ws.Selection.State()})
}

// ToggleAll handles POST /selection/toggle-all.
func (h *SelectionHandler) ToggleAll(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	ws.Selection.ToggleAll()
	httpx.JSON(w, http.StatusOK, SelectionView{IDs: ws.Selection.Selected(), State: ws.Selection.State()})
}

// BulkDelete handles POST /selection/delete. It answers once every removal
// has completed; failed removals are back in the table.
func (h *SelectionHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	err := ws.Selection.BulkDelete(r.Context())
	writeMutation(w, ws, events.KindDelete, 0, nil, http.StatusOK, err)
}

// BulkDuplicate handles POST /selection/duplicate.
func (h *SelectionHandler) BulkDuplicate(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	created, err := ws.Selection.BulkDuplicate(r.Context())

	status := http.StatusCreated
	outcome := events.Outcome{Kind: events.KindCreate, Success: err == nil}
	if err != nil {
		status = http.StatusBadGateway
		outcome.Error = err.Error()
	}
	resp := MutationResponse{Outcome: outcome, TableResponse: table(ws)}
	for _, item := range created {
		resp.Created = append(resp.Created, view(item, ws.Selection.IsSelected(item.ID)))
	}
	httpx.JSON(w, status, resp)
}
