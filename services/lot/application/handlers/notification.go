package handlers

import (
	"net/http"

	"github.com/ghuser/lotdesk/pkg/errhttp"
	"github.com/ghuser/lotdesk/pkg/httpx"
	appsvcs "github.com/ghuser/lotdesk/services/lot/application/services"
)

// NoticeResponse wraps the visible notice; Notice is null when nothing is showing.
type NoticeResponse struct {
	Notice *appsvcs.Notice `json:"notice"`
}

// NotificationHandler serves the /notification endpoints.
type NotificationHandler struct {
	svc *appsvcs.Services
}

// NewNotificationHandler returns a NotificationHandler backed by the given services.
func NewNotificationHandler(svc *appsvcs.Services) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// Get handles GET /notification.
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	var resp NoticeResponse
	if notice, ok := ws.Notices.Current(); ok {
		resp.Notice = &notice
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Dismiss handles DELETE /notification.
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	ws.Notices.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

// Retry handles POST /notification/retry: re-run the failed operation with
// its original arguments.
func (h *NotificationHandler) Retry(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.svc)
	if !ok {
		return
	}
	notice, visible := ws.Notices.Current()
	if !visible {
		errhttp.WriteError(w, appsvcs.ErrNothingToRetry)
		return
	}

	err := ws.Notices.Retry(r.Context())
	writeMutation(w, ws, notice.Outcome.Kind, notice.Outcome.ItemID, nil, http.StatusOK, err)
}
