package board

import (
	"context"
	"encoding/json"
	"errors"
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
	GetBoard(ctx context.Context, userID, projectID int64) ([]*Column, error)
	CreateColumn(ctx context.Context, userID, projectID int64, dto CreateColumnDTO) (*Column, error)
	RenameColumn(ctx context.Context, userID, projectID, columnID int64, dto RenameColumnDTO) (*Column, error)
	DeleteColumn(ctx context.Context, userID, projectID, columnID int64) error
	ReorderColumns(ctx context.Context, userID, projectID int64, dto ReorderColumnsDTO) ([]*Column, error)
	CreateCard(ctx context.Context, userID, projectID int64, dto CreateCardDTO) (*Card, error)
	GetCard(ctx context.Context, userID, projectID, cardID int64) (*Card, error)
	UpdateCard(ctx context.Context, userID, projectID, cardID int64, dto UpdateCardDTO) (*Card, error)
	DeleteCard(ctx context.Context, userID, projectID, cardID int64) error
	MoveCard(ctx context.Context, userID, projectID, cardID int64, dto MoveCardDTO) (*Card, error)
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

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	columns, err := h.Service.GetBoard(r.Context(), user.ID, projectID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, columns)
}

func (h *Handler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	var dto CreateColumnDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	col, err := h.Service.CreateColumn(r.Context(), user.ID, projectID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, col)
}

func (h *Handler) RenameColumn(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	columnID, ok := h.pathID(w, r, "columnID")
	if !ok {
		return
	}

	var dto RenameColumnDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	col, err := h.Service.RenameColumn(r.Context(), user.ID, projectID, columnID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, col)
}

func (h *Handler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	columnID, ok := h.pathID(w, r, "columnID")
	if !ok {
		return
	}

	if err := h.Service.DeleteColumn(r.Context(), user.ID, projectID, columnID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ReorderColumns(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	var dto ReorderColumnsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	columns, err := h.Service.ReorderColumns(r.Context(), user.ID, projectID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, columns)
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	var dto CreateCardDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	card, err := h.Service.CreateCard(r.Context(), user.ID, projectID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, card)
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	cardID, ok := h.pathID(w, r, "cardID")
	if !ok {
		return
	}

	card, err := h.Service.GetCard(r.Context(), user.ID, projectID, cardID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	cardID, ok := h.pathID(w, r, "cardID")
	if !ok {
		return
	}

	var dto UpdateCardDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	card, err := h.Service.UpdateCard(r.Context(), user.ID, projectID, cardID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	cardID, ok := h.pathID(w, r, "cardID")
	if !ok {
		return
	}

	if err := h.Service.DeleteCard(r.Context(), user.ID, projectID, cardID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MoveCard(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	cardID, ok := h.pathID(w, r, "cardID")
	if !ok {
		return
	}

	var dto MoveCardDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	card, err := h.Service.MoveCard(r.Context(), user.ID, projectID, cardID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, card)
}

// requestScope pulls the authenticated user and the project id every board
// route is nested under.
func (h *Handler) requestScope(w http.ResponseWriter, r *http.Request) (*auth.User, int64, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, 0, false
	}
	projectID, ok := h.pathID(w, r, "id")
	if !ok {
		return nil, 0, false
	}
	return user, projectID, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var vErr ValidationError
	if errors.As(err, &vErr) {
		h.WriteError(w, http.StatusBadRequest, vErr.Error())
		return
	}
	if appErr, ok := internal.IsAppError(err); ok {
		status, resp := appErr.ToHTTPResponse()
		h.WriteJSON(w, status, resp)
		return
	}
	h.WriteError(w, http.StatusInternalServerError, "internal server error")
}
