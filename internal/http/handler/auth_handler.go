package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/http/middleware"
	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/security"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

type AuthHandler struct {
	auth   service.AuthServiceInterface
	users  service.UserServiceInterface
	rbac   *service.RoleAuthorizer
	cookie security.CookieOptions
	logger *slog.Logger
}

func NewAuthHandler(
	auth service.AuthServiceInterface,
	users service.UserServiceInterface,
	rbac *service.RoleAuthorizer,
	cookie security.CookieOptions,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, rbac: rbac, cookie: cookie, logger: logger}
}

type sessionView struct {
	Authenticated bool         `json:"authenticated"`
	Reason        string       `json:"reason,omitempty"`
	User          *domain.User `json:"user,omitempty"`
	Permissions   []string     `json:"permissions,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in.UserAgent = r.UserAgent()
	in.IP = middleware.ClientIP(r)

	res, err := h.auth.Authenticate(r.Context(), in)
	if err != nil {
		observability.Audit(r, "auth.login.failed", "ip", in.IP)
		writeError(w, r, h.logger, err)
		return
	}
	security.SetSessionCookie(w, h.cookie, res.Claim.Token, res.Claim.ExpiresAt)
	observability.Audit(r, "auth.login", "user_id", res.User.ID, "ip", in.IP)
	expires := res.Claim.ExpiresAt
	response.JSON(w, r, http.StatusOK, sessionView{
		Authenticated: true,
		User:          res.User,
		Permissions:   h.rbac.Permissions(res.User.Role),
		ExpiresAt:     &expires,
	})
}

// Logout always drops the cookie, even when the claim was already stale.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), p); err != nil {
		h.logger.WarnContext(r.Context(), "logout revoke failed", "error", err)
	}
	security.ClearSessionCookie(w, h.cookie)
	if p != nil {
		observability.Audit(r, "auth.logout", "user_id", p.UserID)
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"logged_out": true})
}

// Session reports the caller's session. Anonymous callers get
// authenticated=false rather than an error so the UI can poll it.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.JSON(w, r, http.StatusOK, sessionView{Reason: middleware.SessionReasonFromContext(r.Context())})
		return
	}
	user, err := h.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	view := sessionView{Authenticated: true, User: user, Permissions: h.rbac.Permissions(p.Role)}
	if p.Claims != nil && p.Claims.ExpiresAt != nil {
		exp := p.Claims.ExpiresAt.Time
		view.ExpiresAt = &exp
	}
	response.JSON(w, r, http.StatusOK, view)
}

func (h *AuthHandler) LoginHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.auth.LoginHistory(r.Context(), p.UserID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if events == nil {
		events = []domain.LoginEvent{}
	}
	response.JSON(w, r, http.StatusOK, events)
}
