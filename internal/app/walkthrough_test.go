package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-service/internal/auth"
	"school-service/internal/authz"
	"school-service/internal/classroom"
	"school-service/internal/config"
	"school-service/internal/events"
	"school-service/internal/metrics"
	"school-service/internal/school"
	"school-service/internal/store"
	"school-service/internal/student"
)

const testSuperAdminKey = "bootstrap-key"

// newTestRouter wires the full HTTP surface against the in-memory store.
func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	mem := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewMock()
	policy := authz.NewPolicy()
	tokens := auth.NewTokens(config.JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
	})

	router := chi.NewRouter()
	authenticate := auth.Authenticate(tokens, logger)

	authService := auth.NewService(mem, tokens, testSuperAdminKey, logger, m)
	auth.NewHandler(authService, tokens, logger).RegisterRoutes(router, authenticate)

	schoolService := school.NewService(mem, events.Nop{}, logger, m)
	school.NewHandler(schoolService, policy, logger).RegisterRoutes(router, authenticate)

	classroomService := classroom.NewService(mem, events.Nop{}, logger, m)
	classroom.NewHandler(classroomService, policy, logger).RegisterRoutes(router, authenticate)

	studentService := student.NewService(mem, events.Nop{}, logger, m)
	student.NewHandler(studentService, policy, logger).RegisterRoutes(router, authenticate)

	return router
}

// do sends a JSON request with the session cookies attached and decodes
// the envelope.
func do(t *testing.T, router chi.Router, method, path string, body interface{}, cookies []*http.Cookie) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec.Code, envelope
}

func TestLincolnHighWalkthrough(t *testing.T) {
	router := newTestRouter(t)

	// Bootstrap a SuperAdmin; the response carries the session cookies.
	req := httptest.NewRequest(http.MethodPost, "/user/create-superadmin", bytes.NewReader(mustJSON(t, map[string]interface{}{
		"username":      "root",
		"email":         "root@example.com",
		"password":      "secret123",
		"superadminKey": testSuperAdminKey,
	})))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	session := rec.Result().Cookies()
	require.NotEmpty(t, session)

	// Create the school.
	code, envelope := do(t, router, http.MethodPost, "/school/create-school", map[string]interface{}{
		"name":    "Lincoln High",
		"address": "5 characters min",
		"resources": map[string]interface{}{
			"numberOfBuses":    2,
			"libraryBooks":     100,
			"sportsFacilities": true,
		},
	}, session)
	require.Equal(t, http.StatusCreated, code)

	created := envelope["school"].(map[string]interface{})
	schoolID := created["id"].(string)
	assert.Empty(t, created["classrooms"])
	assert.Empty(t, created["schoolAdmins"])

	// Create a classroom under it.
	code, envelope = do(t, router, http.MethodPost, "/classroom/create-classroom", map[string]interface{}{
		"name":       "Room 1",
		"schoolName": "Lincoln High",
		"resources": map[string]interface{}{
			"capacity":      30,
			"numberOfDesks": 30,
		},
	}, session)
	require.Equal(t, http.StatusCreated, code)
	classroomID := envelope["data"].(map[string]interface{})["id"].(string)

	code, envelope = do(t, router, http.MethodGet, "/school/getSchoolDetails?schoolId="+schoolID, nil, session)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, envelope["data"].(map[string]interface{})["classrooms"], 1)

	// Enroll a student.
	code, _ = do(t, router, http.MethodPost, "/student/add-student", map[string]interface{}{
		"name":          "Alice",
		"age":           10,
		"classRoomName": "Room 1",
		"schoolId":      schoolID,
	}, session)
	require.Equal(t, http.StatusCreated, code)

	code, envelope = do(t, router, http.MethodGet, "/classroom/getClassroomById?classRoomId="+classroomID, nil, session)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, envelope["data"].(map[string]interface{})["students"], 1)

	// Tear the whole school down; the classroom is gone afterwards.
	code, _ = do(t, router, http.MethodDelete, "/school/delete-school", map[string]interface{}{
		"schoolName": "Lincoln High",
	}, session)
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, router, http.MethodGet, "/classroom/getClassroomById?classRoomId="+classroomID, nil, session)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRoutesRequireCredential(t *testing.T) {
	router := newTestRouter(t)

	code, envelope := do(t, router, http.MethodGet, "/school/all-schools", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Access Denied. Token is missing.", envelope["message"])
}

// A SchoolAdmin session cannot touch another school's data.
func TestSchoolAdminTenantBoundary(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/user/create-superadmin", bytes.NewReader(mustJSON(t, map[string]interface{}{
		"username":      "root",
		"email":         "root@example.com",
		"password":      "secret123",
		"superadminKey": testSuperAdminKey,
	})))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	root := rec.Result().Cookies()

	code, envelope := do(t, router, http.MethodPost, "/school/create-school", map[string]interface{}{
		"name":      "Lincoln High",
		"address":   "12 Main Street",
		"resources": map[string]interface{}{},
	}, root)
	require.Equal(t, http.StatusCreated, code)
	lincolnID := envelope["school"].(map[string]interface{})["id"].(string)

	code, envelope = do(t, router, http.MethodPost, "/school/create-school", map[string]interface{}{
		"name":      "Roosevelt Middle",
		"address":   "9 Oak Avenue",
		"resources": map[string]interface{}{},
	}, root)
	require.Equal(t, http.StatusCreated, code)
	rooseveltID := envelope["school"].(map[string]interface{})["id"].(string)

	// A SchoolAdmin for Lincoln High; creation responds with their session.
	req = httptest.NewRequest(http.MethodPost, "/user/create-schooladmin", bytes.NewReader(mustJSON(t, map[string]interface{}{
		"username":   "lincoln-admin",
		"email":      "admin@lincoln.example.com",
		"password":   "secret123",
		"schoolName": "Lincoln High",
	})))
	for _, cookie := range root {
		req.AddCookie(cookie)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	admin := rec.Result().Cookies()

	code, _ = do(t, router, http.MethodGet, "/school/getSchoolDetails?schoolId="+lincolnID, nil, admin)
	assert.Equal(t, http.StatusOK, code)

	code, envelope = do(t, router, http.MethodGet, "/school/getSchoolDetails?schoolId="+rooseveltID, nil, admin)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Access Forbidden. You are not authorized to manage this school.", envelope["message"])

	// Tenant-scoped routes without a schoolId are rejected outright.
	code, envelope = do(t, router, http.MethodGet, "/school/getSchoolDetails", nil, admin)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Bad Request: schoolId is required.", envelope["message"])
}

// Enrollment rejects out-of-range resources: attendance lives in
// [0,100] and the course count cannot be negative.
func TestAddStudentResourceBounds(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/user/create-superadmin", bytes.NewReader(mustJSON(t, map[string]interface{}{
		"username":      "root",
		"email":         "root@example.com",
		"password":      "secret123",
		"superadminKey": testSuperAdminKey,
	})))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	session := rec.Result().Cookies()

	code, envelope := do(t, router, http.MethodPost, "/school/create-school", map[string]interface{}{
		"name":      "Lincoln High",
		"address":   "12 Main Street",
		"resources": map[string]interface{}{},
	}, session)
	require.Equal(t, http.StatusCreated, code)
	schoolID := envelope["school"].(map[string]interface{})["id"].(string)

	code, _ = do(t, router, http.MethodPost, "/classroom/create-classroom", map[string]interface{}{
		"name":       "Room 1",
		"schoolName": "Lincoln High",
		"resources":  map[string]interface{}{},
	}, session)
	require.Equal(t, http.StatusCreated, code)

	enroll := func(resources map[string]interface{}) int {
		code, _ := do(t, router, http.MethodPost, "/student/add-student", map[string]interface{}{
			"name":          "Alice",
			"age":           10,
			"classRoomName": "Room 1",
			"schoolId":      schoolID,
			"resources":     resources,
		}, session)
		return code
	}

	assert.Equal(t, http.StatusBadRequest, enroll(map[string]interface{}{"attendancePercentage": 150}))
	assert.Equal(t, http.StatusBadRequest, enroll(map[string]interface{}{"attendancePercentage": -1}))
	assert.Equal(t, http.StatusBadRequest, enroll(map[string]interface{}{"numberOfCoursesTaken": -3}))
	assert.Equal(t, http.StatusCreated, enroll(map[string]interface{}{
		"numberOfCoursesTaken": 4,
		"attendancePercentage": 97.5,
	}))
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	encoded, err := json.Marshal(v)
	require.NoError(t, err)
	return encoded
}
