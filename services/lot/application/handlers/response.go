package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/lotdesk/pkg/auth"
	"github.com/ghuser/lotdesk/pkg/errhttp"
	"github.com/ghuser/lotdesk/pkg/httpx"
	appsvcs "github.com/ghuser/lotdesk/services/lot/application/services"
	lotdomain "github.com/ghuser/lotdesk/services/lot/domain"
	"github.com/ghuser/lotdesk/services/lot/domain/events"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
)

// LotView is an item as rendered in the table.
type LotView struct {
	models.Item
	Status   models.Status `json:"status"`
	Selected bool          `json:"selected"`
}

// SelectionView is the selection checkbox state.
type SelectionView struct {
	IDs   []int                  `json:"ids"`
	State appsvcs.SelectionState `json:"state"`
}

// TableResponse is the full table: rows, footer totals, selection and the
// visible failure notice, if any.
type TableResponse struct {
	Items     []LotView       `json:"items"`
	Summary   appsvcs.Summary `json:"summary"`
	Selection SelectionView   `json:"selection"`
	Notice    *appsvcs.Notice `json:"notice"`
}

// MutationResponse is returned by every remote-backed action. A failed remote
// call still returns the table so the client renders the reconciled state.
type MutationResponse struct {
	Outcome events.Outcome `json:"outcome"`
	Item    *LotView       `json:"item,omitempty"`
	Created []LotView      `json:"created,omitempty"`
	TableResponse
}

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// workspace resolves the caller's workspace and loads it on first use.
// It writes the error response itself and reports false on failure.
func workspace(w http.ResponseWriter, r *http.Request, svcs *appsvcs.Services) (*appsvcs.Workspace, bool) {
	id, err := auth.WorkspaceIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "session required"})
		return nil, false
	}
	ws := svcs.Workspaces.Get(id)
	if err := ws.EnsureLoaded(r.Context()); err != nil {
		errhttp.WriteError(w, err)
		return nil, false
	}
	return ws, true
}

// itemID parses the {id} URL parameter.
func itemID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func table(ws *appsvcs.Workspace) TableResponse {
	items := ws.Collection.Items()
	selected := ws.Selection.Selected()
	isSelected := make(map[int]bool, len(selected))
	for _, id := range selected {
		isSelected[id] = true
	}

	views := make([]LotView, len(items))
	for i, item := range items {
		views[i] = view(item, isSelected[item.ID])
	}

	resp := TableResponse{
		Items:     views,
		Summary:   ws.Collection.Summary(),
		Selection: SelectionView{IDs: selected, State: ws.Selection.State()},
	}
	if notice, ok := ws.Notices.Current(); ok {
		resp.Notice = &notice
	}
	return resp
}

func view(item models.Item, selected bool) LotView {
	status := models.StatusConfirmed
	if !item.Confirmed() {
		status = models.StatusUnconfirmed
	}
	return LotView{Item: item, Status: status, Selected: selected}
}

// writeMutation renders the result of a remote-backed action. Transport
// failures answer 502 with the reconciled table; local errors (validation,
// unknown id) go through errhttp.
func writeMutation(w http.ResponseWriter, ws *appsvcs.Workspace, kind events.Kind, id int, item *models.Item, successStatus int, err error) {
	outcome := events.Outcome{Kind: kind, Success: err == nil, ItemID: id}
	status := successStatus
	if err != nil {
		if !errors.Is(err, lotdomain.ErrTransport) {
			errhttp.WriteError(w, err)
			return
		}
		outcome.Error = err.Error()
		status = http.StatusBadGateway
	}

	resp := MutationResponse{Outcome: outcome, TableResponse: table(ws)}
	if item != nil && item.ID != 0 {
		if current, ok := ws.Collection.Get(item.ID); ok {
			v := view(current, ws.Selection.IsSelected(current.ID))
			resp.Item = &v
			resp.Outcome.ItemID = current.ID
		}
	}
	httpx.JSON(w, status, resp)
}
