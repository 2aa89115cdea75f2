package handler

import (
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/http/middleware"
	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

// UserHandler serves operator administration. Routes are admin-only.
type UserHandler struct {
	users  service.UserServiceInterface
	auth   service.AuthServiceInterface
	logger *slog.Logger
}

func NewUserHandler(users service.UserServiceInterface, auth service.AuthServiceInterface, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, auth: auth, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parsePageRequest(q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.users.List(r.Context(), repository.UserListQuery{
		PageRequest: page,
		SortBy:      q.Get("sort_by"),
		SortOrder:   q.Get("sort_order"),
		Search:      q.Get("search"),
		Status:      q.Get("status"),
		Role:        q.Get("role"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := res.Items
	if items == nil {
		items = []domain.User{}
	}
	response.Paginated(w, r, items, response.Page{Total: res.Total, Page: res.Page, Limit: res.PageSize, TotalPages: res.TotalPages})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.users.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "user.create", "target_user_id", user.ID, "role", user.Role)
	response.JSON(w, r, http.StatusCreated, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var in service.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	actor, _ := middleware.PrincipalFromContext(r.Context())
	user, err := h.users.Update(r.Context(), actor.UserID, id, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "user.update", "actor_id", actor.UserID, "target_user_id", id)
	response.JSON(w, r, http.StatusOK, user)
}

// Deactivate backs DELETE. Operators are never hard-deleted.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	actor, _ := middleware.PrincipalFromContext(r.Context())
	if err := h.users.Deactivate(r.Context(), actor.UserID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "user.deactivate", "actor_id", actor.UserID, "target_user_id", id)
	response.JSON(w, r, http.StatusOK, map[string]bool{"deactivated": true})
}

func (h *UserHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.auth.RevokeUserSession(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "user.session.revoke", "target_user_id", id)
	response.JSON(w, r, http.StatusOK, map[string]bool{"revoked": true})
}
