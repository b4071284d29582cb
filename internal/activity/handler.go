package activity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/taskboard/internal"
	"github.com/frahmantamala/taskboard/internal/auth"
	"github.com/frahmantamala/taskboard/internal/transport"
	"github.com/frahmantamala/taskboard/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListActivities(ctx context.Context, userID, projectID int64, limit, offset int) ([]*Entry, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ListActivities handles GET /projects/{id}/activities
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projectID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || projectID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.Service.ListActivities(r.Context(), user.ID, projectID, limit, offset)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			status, resp := appErr.ToHTTPResponse()
			h.WriteJSON(w, status, resp)
			return
		}
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}
