package student

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
	r.Route("/student", func(r chi.Router) {
		r.Use(authenticate)
		// add-student's tenant comes from the request body, so the
		// policy decision runs in the handler.
		r.Post("/add-student", h.AddStudent)
		r.With(auth.Authorize(h.policy, authz.ResourceStudents, authz.ActionRead)).
			Get("/get-students-by-classroom", h.GetStudentsByClassroom)
		r.With(auth.Authorize(h.policy, authz.ResourceStudents, authz.ActionRead)).
			Get("/get-student-by-id", h.GetStudentByID)
		r.With(auth.Authorize(h.policy, authz.ResourceStudents, authz.ActionUpdate)).
			Put("/updateStudentResourcesByName", h.UpdateStudentResourcesByName)
		r.With(auth.RequireSuperAdmin).Put("/transfer-student", h.TransferStudent)
		r.With(auth.Authorize(h.policy, authz.ResourceStudents, authz.ActionDelete)).
			Delete("/delete-student", h.DeleteStudent)
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

func (h *Handler) AddStudent(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.RespondWithMessage(w, http.StatusUnauthorized, "Access Denied. Token is missing.")
		return
	}

	var req AddStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.policy.Decide(claims.Role, claims.SchoolID, authz.ResourceStudents, authz.ActionCreate, req.SchoolID); err != nil {
		httputil.RespondWithError(w, err)
		return
	}

	student, err := h.service.Add(r.Context(), req, scope(r))
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusCreated, "Student added successfully.", "data", student)
}

func (h *Handler) GetStudentsByClassroom(w http.ResponseWriter, r *http.Request) {
	classroomID := r.URL.Query().Get("classroomId")
	if classroomID == "" {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Bad Request: classroomId is required as a query parameter.")
		return
	}

	students, err := h.service.AllByClassroom(r.Context(), classroomID)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "Students retrieved successfully.", "data", students)
}

func (h *Handler) GetStudentByID(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "Bad Request: studentId is required as a query parameter.")
		return
	}

	student, err := h.service.ByID(r.Context(), studentID)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "Student retrieved successfully.", "data", student)
}

func (h *Handler) UpdateStudentResourcesByName(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string          `json:"name" validate:"required"`
		Resources ResourcesUpdate `json:"resources"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	student, err := h.service.UpdateResourcesByName(r.Context(), body.Name, body.Resources, scope(r))
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "Student resources updated successfully.", "data", student)
}

func (h *Handler) TransferStudent(w http.ResponseWriter, r *http.Request) {
	var req TransferStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Transfer(r.Context(), req)
	if err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, "Student transferred successfully.", "data", result)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StudentName string `json:"studentName" validate:"required"`
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

	if err := h.service.Delete(r.Context(), body.StudentName, scope(r)); err != nil {
		httputil.RespondWithError(w, err)
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "Student deleted successfully and removed from the classroom.")
}
