package classroom

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"school-service/internal/auth"
	"school-service/internal/authz"
	"school-service/internal/httputil"
	"school-service/internal/model"
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
	r.Route("/classroom", func(r chi.Router) {
		r.Use(authenticate)
		r.With(auth.Authorize(h.policy, authz.ResourceClassrooms, authz.ActionCreate)).
			Post("/create-classroom", h.CreateClassroom)
		r.With(auth.Authorize(h.policy, authz.ResourceClassrooms, authz.ActionRead)).
			Get("/allClassroomsBySchool", h.AllClassroomsBySchool)
		r.With(auth.Authorize(h.policy, authz.ResourceClassrooms, authz.ActionRead)).
			Get("/getClassroomById", h.GetClassroomByID)
		r.With(auth.Authorize(h.policy, authz.ResourceClassrooms, authz.ActionUpdate)).
			Put("/updateClassroomResource", h.UpdateClassroomResource)
		r.With(auth.Authorize(h.policy, authz.ResourceClassrooms, authz.ActionDelete)).
			Delete("/delete-classroom", h.DeleteClassroom)
	})
}

// scope returns the caller's own school id when the caller is a
// SchoolAdmin, nil for a SuperAdmin.
func scope(r *http.Request) *string {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims.Role != model.RoleSchoolAdmin {
		return nil
	}
	return claims.SchoolID
}

func (h *Handler) CreateClassroom(w http.ResponseWriter, r *http.Request) {
	var req CreateClassroomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	classroom, err := h.service.Create(r.Context(), req, scope(r))
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusCreated, "Classroom created successfully.", "data", classroom)
}

func (h *Handler) AllClassroomsBySchool(w http.ResponseWriter, r *http.Request) {
	schoolID := r.URL.Query().Get("schoolId")
	if schoolID == "" {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Bad Request: schoolId is required as a parameter.")
		return
	}

	classrooms, err := h.service.AllBySchool(r.Context(), schoolID)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "Classrooms retrieved successfully.", "data", classrooms)
}

func (h *Handler) GetClassroomByID(w http.ResponseWriter, r *http.Request) {
	classroomID := r.URL.Query().Get("classRoomId")
	if classroomID == "" {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Bad Request: classRoomId is required as a query parameter.")
		return
	}

	classroom, err := h.service.ByID(r.Context(), classroomID)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "Classroom details retrieved successfully.", "data", classroom)
}

func (h *Handler) UpdateClassroomResource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClassroomID string          `json:"classroomId" validate:"required"`
		Resources   ResourcesUpdate `json:"resources"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	classroom, err := h.service.UpdateResource(r.Context(), body.ClassroomID, body.Resources, scope(r))
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "Classroom resource updated successfully.", "data", classroom)
}

func (h *Handler) DeleteClassroom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClassroomName string `json:"classroomName" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims != nil && claims.Role == model.RoleSchoolAdmin && claims.SchoolID == nil {
		httputil.RespondWithMessage(w, http.StatusForbidden, "Access Forbidden: schoolId not found for SchoolAdmin.")
		return
	}

	if err := h.service.Delete(r.Context(), body.ClassroomName, scope(r)); err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Classroom and associated students deleted successfully.")
}
