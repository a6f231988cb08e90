// AngelaMos | 2026
// handler.go

package account

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/iam-service/internal/access"
	"github.com/carterperez-dev/templates/iam-service/internal/core"
	"github.com/carterperez-dev/templates/iam-service/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/accounts", func(r chi.Router) {
		r.With(middleware.Authorize(access.OpList)).Get("/", h.List)
		r.With(middleware.Authorize(access.OpFindOne)).Get("/{term}", h.FindOne)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.With(middleware.Authorize(access.OpUpdate)).
				Patch("/{term}", h.Update)
			r.With(middleware.Authorize(access.OpRemove)).
				Delete("/{term}", h.Remove)
			r.With(middleware.Authorize(access.OpRemoveAll)).
				Delete("/", h.RemoveAll)
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseIntQuery(w, r, "limit", DefaultLimit)
	if !ok {
		return
	}
	offset, ok := parseIntQuery(w, r, "offset", 0)
	if !ok {
		return
	}

	params := ListParams{
		Limit:  limit,
		Offset: offset,
		Search: r.URL.Query().Get("search"),
	}

	if err := h.validator.Struct(params); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	accounts, err := h.service.List(r.Context(), params)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(
		w,
		ToAccountResponseList(accounts),
		params.Limit,
		params.Offset,
		len(accounts),
	)
}

func (h *Handler) FindOne(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.FindOne(r.Context(), chi.URLParam(r, "term"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToAccountResponse(account))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, ok := uuidParam(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	account, err := h.service.Update(r.Context(), accountID, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToAccountResponse(account))
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	accountID, ok := uuidParam(w, r)
	if !ok {
		return
	}

	msg, err := h.service.Remove(r.Context(), accountID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: msg})
}

func (h *Handler) RemoveAll(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.RemoveAll(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: msg})
}

func uuidParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "term")
	if !IsIDShaped(id) {
		core.BadRequest(w, "id must be a valid UUID")
		return "", false
	}
	return id, true
}

func parseIntQuery(
	w http.ResponseWriter,
	r *http.Request,
	key string,
	defaultVal int,
) (int, bool) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal, true
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		core.BadRequest(w, key+" must be an integer")
		return 0, false
	}

	return parsed, true
}
