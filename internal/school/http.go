package school

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"school-service/internal/auth"
	"school-service/internal/authz"
	"school-service/internal/httputil"
)

type Handler struct {
	service   *Service
	policy    *authz.Policy
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(service *Service, policy *authz.Policy, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		policy:    policy,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Route("/school", func(r chi.Router) {
		r.Use(authenticate)
		r.With(auth.Authorize(h.policy, authz.ResourceSchools, authz.ActionCreate)).
			Post("/create-school", h.CreateSchool)
		r.With(auth.RequireSuperAdmin).Get("/all-schools", h.AllSchools)
		r.With(auth.Authorize(h.policy, authz.ResourceSchools, authz.ActionRead)).
			Get("/getSchoolDetails", h.GetSchoolDetails)
		r.With(auth.Authorize(h.policy, authz.ResourceSchools, authz.ActionUpdate)).
			Put("/updateSchoolProfile", h.UpdateSchoolProfile)
		r.With(auth.Authorize(h.policy, authz.ResourceSchools, authz.ActionDelete)).
			Delete("/delete-school", h.DeleteSchool)
	})
}

func (h *Handler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var req CreateSchoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	school, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusCreated, "School created successfully.", "school", school)
}

func (h *Handler) AllSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.service.All(r.Context())
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "Schools retrieved successfully.", "data", schools)
}

func (h *Handler) GetSchoolDetails(w http.ResponseWriter, r *http.Request) {
	schoolID := r.URL.Query().Get("schoolId")
	if schoolID == "" {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Bad Request: schoolId is required.")
		return
	}

	school, err := h.service.Details(r.Context(), schoolID)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "School details retrieved successfully.", "data", school)
}

func (h *Handler) UpdateSchoolProfile(w http.ResponseWriter, r *http.Request) {
	schoolID := r.URL.Query().Get("schoolId")
	if schoolID == "" {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Bad Request: schoolId is required.")
		return
	}

	var body struct {
		Resources ResourcesUpdate `json:"resources"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	school, err := h.service.UpdateProfile(r.Context(), schoolID, body.Resources)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "School resources updated successfully.", "data", school)
}

func (h *Handler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SchoolName string `json:"schoolName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SchoolName == "" {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Bad Request: School name is required.")
		return
	}

	if err := h.service.Delete(r.Context(), body.SchoolName); err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "School and associated admins deleted successfully.")
}
