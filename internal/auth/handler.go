package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"school-service/internal/httputil"
)

type Handler struct {
	service   *Service
	tokens    *Tokens
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(service *Service, tokens *Tokens, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		tokens:    tokens,
		logger:    logger,
		validator: validator.New(),
	}
}

// RegisterRoutes mounts the /user endpoints. authenticate guards the
// routes that need a verified credential.
func (h *Handler) RegisterRoutes(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Route("/user", func(r chi.Router) {
		r.Post("/create-superadmin", h.CreateSuperAdmin)
		r.With(authenticate, RequireSuperAdmin).Post("/create-schooladmin", h.CreateSchoolAdmin)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/refresh-token", h.RefreshToken)
	})
}

func (h *Handler) CreateSuperAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateSuperAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, pair, err := h.service.CreateSuperAdmin(r.Context(), req)
	if err != nil {
		h.logger.Warn("create superadmin failed", "error", err)
		httputil.RespondWithError(w, err)
		return
	}

	SetSessionCookies(w, pair.AccessToken, pair.RefreshToken, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	httputil.RespondWithData(w, http.StatusCreated, "SuperAdmin created successfully.", "user", user)
}

func (h *Handler) CreateSchoolAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateSchoolAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, pair, err := h.service.CreateSchoolAdmin(r.Context(), req)
	if err != nil {
		h.logger.Warn("create schooladmin failed", "error", err)
		httputil.RespondWithError(w, err)
		return
	}

	SetSessionCookies(w, pair.AccessToken, pair.RefreshToken, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	httputil.RespondWithData(w, http.StatusCreated, "SchoolAdmin created successfully.", "user", user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	_, pair, err := h.service.Login(r.Context(), req)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}

	SetSessionCookies(w, pair.AccessToken, pair.RefreshToken, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	httputil.RespondWithMessage(w, http.StatusOK, "Login successful.")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Bad Request: Refresh token is required for logout.")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		httputil.RespondWithError(w, err)
		return
	}

	ClearSessionCookies(w)
	httputil.RespondWithMessage(w, http.StatusOK, "Logout successful.")
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		httputil.RespondWithMessage(w, http.StatusUnauthorized, "Refresh token is missing.")
		return
	}

	accessToken, err := h.service.RefreshAccess(r.Context(), cookie.Value)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}

	SetAccessCookie(w, accessToken, h.tokens.AccessTTL())
	httputil.RespondWithMessage(w, http.StatusOK, "Access token refreshed successfully.")
}
