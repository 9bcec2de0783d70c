package handlers

import (
	"fmt"
	"net/http"

	"github.com/ghuser/lotdesk/pkg/errhttp"
	"github.com/ghuser/lotdesk/pkg/httpx"
	pkgvalidator "github.com/ghuser/lotdesk/pkg/validator"
	appsvcs "github.com/ghuser/lotdesk/services/lot/application/services"
	lotdomain "github.com/ghuser/lotdesk/services/lot/domain"
	"github.com/ghuser/lotdesk/services/lot/domain/events"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
)

// EstimateRequest is the estimate as typed into the form. Values may be JSON
// strings or numbers.
type EstimateRequest struct {
	Low  models.NumericText `json:"low"  example:"400"`
	High models.NumericText `json:"high" example:"600"`
}

// CreateLotRequest is the request body for POST /lots. Field rules are
// enforced by the draft validator so the messages match the form.
type CreateLotRequest struct {
	Title       string          `json:"title"       example:"Georgian silver teapot"`
	Description string          `json:"description" example:"London, 1790, 620g"`
	Consignor   string          `json:"consignor"   example:"Estate of M. Hale"`
	Estimate    EstimateRequest `json:"estimate"`
}

func (req CreateLotRequest) draft() models.Draft {
	var d models.Draft
	d.SetTitle(req.Title)
	d.SetDescription(req.Description)
	d.SetConsignor(req.Consignor)
	d.SetEstimateLow(req.Estimate.Low.String())
	d.SetEstimateHigh(req.Estimate.High.String())
	return d
}

// UpdateLotRequest is the request body for PUT /lots/{id}. Omitted fields
// keep their current value.
type UpdateLotRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Consignor   *string `json:"consignor,omitempty"`
	Estimate    *struct {
		Low  *models.NumericText `json:"low,omitempty"`
		High *models.NumericText `json:"high,omitempty"`
	} `json:"estimate,omitempty"`
}

// overlay applies the request onto a draft pre-filled from the current item.
func (req UpdateLotRequest) overlay(d models.Draft) models.Draft {
	if req.Title != nil {
		d.SetTitle(*req.Title)
	}
	if req.Description != nil {
		d.SetDescription(*req.Description)
	}
	if req.Consignor != nil {
		d.SetConsignor(*req.Consignor)
	}
	if req.Estimate != nil {
		if req.Estimate.Low != nil {
			d.SetEstimateLow(req.Estimate.Low.String())
		}
		if req.Estimate.High != nil {
			d.SetEstimateHigh(req.Estimate.High.String())
		}
	}
	return d
}

// ReorderRequest is the request body for POST /lots/reorder.
type ReorderRequest struct {
	SourceID int `json:"source_id" validate:"required,gt=0" example:"7"`
	TargetID int `json:"target_id" validate:"required,gt=0" example:"2"`
}

// ReorderResponse reports whether anything moved. Equal or unknown ids are
// a no-op, not an error.
type ReorderResponse struct {
	Moved bool `json:"moved"`
	TableResponse
}

// LotsHandler serves the /lots endpoints.
type LotsHandler struct {
	svc *appsvcs.Services
}

// NewLotsHandler returns a LotsHandler backed by the given services.
func NewLotsHandler(svc *appsvcs.Services) *LotsHandler {
	return &LotsHandler{svc: svc}
}

// List handles GET /lots. The first request of a session loads the table.
func (h *LotsHandler) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, table(ws))
}

// Load handles POST /lots/load: discard local state and fetch the remote list.
func (h *LotsHandler) Load(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	if err := ws.Reload(r.Context()); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, table(ws))
}

// Create handles POST /lots.
func (h *LotsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[CreateLotRequest](w, r)
	if !ok {
		return
	}
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}

	item, err := ws.Collection.Add(r.Context(), req.draft())
	writeMutation(w, ws, events.KindCreate, item.ID, &item, http.StatusCreated, err)
}

// Update handles PUT /lots/{id}.
func (h *LotsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	req, ok := pkgvalidator.ValidateRequest[UpdateLotRequest](w, r)
	if !ok {
		return
	}
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}

	current, found := ws.Collection.Get(id)
	if !found {
		errhttp.WriteError(w, fmt.Errorf("update item %d: %w", id, lotdomain.ErrItemNotFound))
		return
	}

	item, err := ws.Collection.Update(r.Context(), id, req.overlay(models.DraftFromItem(current)))
	writeMutation(w, ws, events.KindUpdate, id, &item, http.StatusOK, err)
}

// Delete handles DELETE /lots/{id}. Deleting an unknown id succeeds.
func (h *LotsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}

	err := ws.Collection.Remove(r.Context(), id)
	var restored *models.Item
	if err != nil {
		restored = &models.Item{ID: id}
	}
	writeMutation(w, ws, events.KindDelete, id, restored, http.StatusOK, err)
}

// Duplicate handles POST /lots/{id}/duplicate.
func (h *LotsHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}

	item, err := ws.Collection.Duplicate(r.Context(), id)
	writeMutation(w, ws, events.KindCreate, item.ID, &item, http.StatusCreated, err)
}

// Refresh handles POST /lots/{id}/refresh.
func (h *LotsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}

	item, err := ws.Collection.Refresh(r.Context(), id)
	if err != nil {
		item = models.Item{ID: id}
	}
	writeMutation(w, ws, events.KindFetch, id, &item, http.StatusOK, err)
}

// Reorder handles POST /lots/reorder. The new order is local to the session.
func (h *LotsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[ReorderRequest](w, r)
	if !ok {
		return
	}
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}

	moved := ws.Collection.Reorder(req.SourceID, req.TargetID)
	httpx.JSON(w, http.StatusOK, ReorderResponse{Moved: moved, TableResponse: table(ws)})
}
