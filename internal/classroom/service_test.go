package classroom

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-service/internal/apperr"
	"school-service/internal/events"
	"school-service/internal/metrics"
	"school-service/internal/model"
	"school-service/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(mem, events.Nop{}, logger, metrics.NewMock()), mem
}

func seedSchool(t *testing.T, mem *store.Memory, id, name string) {
	t.Helper()
	require.NoError(t, mem.CreateSchool(context.Background(), &model.School{
		ID: id, Name: name, Address: "12 Main Street",
	}))
}

func TestCreate(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedSchool(t, mem, "school-1", "Lincoln High")

	classroom, err := svc.Create(ctx, CreateClassroomRequest{
		Name:       "Room 1",
		SchoolName: "Lincoln High",
		Resources:  model.ClassroomResources{Capacity: 30, NumberOfDesks: 30},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "school-1", classroom.SchoolID)
	assert.Empty(t, classroom.Students)

	// Both directions of the link hold.
	school, err := mem.GetSchoolByID(ctx, "school-1")
	require.NoError(t, err)
	assert.Equal(t, []string{classroom.ID}, school.Classrooms)
}

func TestCreate_SchoolNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateClassroomRequest{
		Name:       "Room 1",
		SchoolName: "No Such School",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "School not found.", apperr.MessageOf(err))
}

// A SchoolAdmin cannot create a classroom in a school other than their
// own, even when the request names the foreign school.
func TestCreate_ScopedToOwnSchool(t *testing.T) {
	svc, mem := newTestService(t)
	seedSchool(t, mem, "school-1", "Lincoln High")
	seedSchool(t, mem, "school-2", "Roosevelt Middle")

	own := "school-2"
	_, err := svc.Create(context.Background(), CreateClassroomRequest{
		Name:       "Room 1",
		SchoolName: "Lincoln High",
	}, &own)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAllBySchool_EmptyIsNotFound(t *testing.T) {
	svc, mem := newTestService(t)
	seedSchool(t, mem, "school-1", "Lincoln High")

	_, err := svc.AllBySchool(context.Background(), "school-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "No classrooms found for the specified school.", apperr.MessageOf(err))
}

func TestAllBySchool(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedSchool(t, mem, "school-1", "Lincoln High")

	_, err := svc.Create(ctx, CreateClassroomRequest{Name: "Room 1", SchoolName: "Lincoln High"}, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateClassroomRequest{Name: "Room 2", SchoolName: "Lincoln High"}, nil)
	require.NoError(t, err)

	classrooms, err := svc.AllBySchool(ctx, "school-1")
	require.NoError(t, err)
	assert.Len(t, classrooms, 2)
}

func TestUpdateResource_Partial(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedSchool(t, mem, "school-1", "Lincoln High")

	classroom, err := svc.Create(ctx, CreateClassroomRequest{
		Name:       "Room 1",
		SchoolName: "Lincoln High",
		Resources:  model.ClassroomResources{Capacity: 30, NumberOfDesks: 25},
	}, nil)
	require.NoError(t, err)

	smartBoard := true
	updated, err := svc.UpdateResource(ctx, classroom.ID, ResourcesUpdate{SmartBoardAvailable: &smartBoard}, nil)
	require.NoError(t, err)
	assert.True(t, updated.Resources.SmartBoardAvailable)
	assert.Equal(t, 30, updated.Resources.Capacity)
	assert.Equal(t, 25, updated.Resources.NumberOfDesks)
}

func TestUpdateResource_ForeignTenantForbidden(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedSchool(t, mem, "school-1", "Lincoln High")

	classroom, err := svc.Create(ctx, CreateClassroomRequest{Name: "Room 1", SchoolName: "Lincoln High"}, nil)
	require.NoError(t, err)

	own := "school-2"
	capacity := 40
	_, err = svc.UpdateResource(ctx, classroom.ID, ResourcesUpdate{Capacity: &capacity}, &own)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestDelete_CascadesToStudents(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedSchool(t, mem, "school-1", "Lincoln High")

	classroom, err := svc.Create(ctx, CreateClassroomRequest{Name: "Room 1", SchoolName: "Lincoln High"}, nil)
	require.NoError(t, err)

	require.NoError(t, mem.CreateStudent(ctx, &model.Student{
		ID: "student-1", Name: "Alice", Age: 10, ClassroomID: classroom.ID, SchoolID: "school-1",
	}))

	require.NoError(t, svc.Delete(ctx, "Room 1", nil))

	_, err = mem.GetClassroomByID(ctx, classroom.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = mem.GetStudentByID(ctx, "student-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	school, err := mem.GetSchoolByID(ctx, "school-1")
	require.NoError(t, err)
	assert.NotContains(t, school.Classrooms, classroom.ID)
}

// Scoped deletes only see classrooms of the caller's own school.
func TestDelete_ScopeHidesForeignClassroom(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedSchool(t, mem, "school-1", "Lincoln High")
	seedSchool(t, mem, "school-2", "Roosevelt Middle")

	_, err := svc.Create(ctx, CreateClassroomRequest{Name: "Room 1", SchoolName: "Lincoln High"}, nil)
	require.NoError(t, err)

	own := "school-2"
	err = svc.Delete(ctx, "Room 1", &own)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Classroom not found.", apperr.MessageOf(err))
}

func TestDelete_AbortRestoresState(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedSchool(t, mem, "school-1", "Lincoln High")

	classroom, err := svc.Create(ctx, CreateClassroomRequest{Name: "Room 1", SchoolName: "Lincoln High"}, nil)
	require.NoError(t, err)
	require.NoError(t, mem.CreateStudent(ctx, &model.Student{
		ID: "student-1", Name: "Alice", Age: 10, ClassroomID: classroom.ID, SchoolID: "school-1",
	}))

	mem.FailNext("DeleteClassroom", errors.New("connection reset"))

	err = svc.Delete(ctx, "Room 1", nil)
	require.Error(t, err)

	// The school set and the students are back to the pre-delete state.
	school, err := mem.GetSchoolByID(ctx, "school-1")
	require.NoError(t, err)
	assert.Contains(t, school.Classrooms, classroom.ID)
	_, err = mem.GetStudentByID(ctx, "student-1")
	assert.NoError(t, err)
}
