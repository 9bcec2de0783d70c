package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/ghuser/lotdesk/pkg/httpx"
	"github.com/ghuser/lotdesk/pkg/logger"
	"github.com/ghuser/lotdesk/pkg/telemetry"
)

const sessionName = "lotdesk_session"
const sessionWorkspaceIDKey = "workspace_id"

// Workspace is a chi middleware that binds every request to a workspace.
// It reads the session cookie and injects the stored workspace id into the
// request context. A request without a usable session gets a fresh workspace
// id and a new session cookie; there is no login.
//
// After this middleware, handlers can safely call auth.WorkspaceIDFromCtx(r.Context()).
func Workspace(store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, sessionName)
			if err != nil {
				// gorilla returns a usable new session alongside decode errors
				log.WarnContext(r.Context(), "invalid session cookie, starting a new one", "error", err)
			}
			if session == nil {
				httpx.JSON(w, http.StatusInternalServerError, map[string]string{"error": "session unavailable"})
				return
			}

			var id uuid.UUID
			if raw, ok := session.Values[sessionWorkspaceIDKey].(string); ok {
				if parsed, err := uuid.Parse(raw); err == nil {
					id = parsed
				} else {
					log.WarnContext(r.Context(), "invalid workspace_id in session", "workspace_id", raw, "error", err)
				}
			}

			if id == uuid.Nil {
				id = uuid.New()
				session.Values[sessionWorkspaceIDKey] = id.String()
				if err := session.Save(r, w); err != nil {
					log.ErrorContext(r.Context(), "failed to save session", "error", err)
					httpx.JSON(w, http.StatusInternalServerError, map[string]string{"error": "session unavailable"})
					return
				}
				log.InfoContext(r.Context(), "workspace session started", "workspace_id", id.String())
			}

			ctx := WithWorkspaceID(r.Context(), id)
			telemetry.TagWorkspace(ctx, id.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
