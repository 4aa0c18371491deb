package student

import (
	"context"
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

// seedHierarchy creates a school with one classroom and returns their ids.
func seedHierarchy(t *testing.T, mem *store.Memory, schoolName, className string) (schoolID, classroomID string) {
	t.Helper()
	ctx := context.Background()
	schoolID = "school-" + schoolName
	classroomID = "class-" + className

	require.NoError(t, mem.CreateSchool(ctx, &model.School{
		ID: schoolID, Name: schoolName, Address: "12 Main Street", Classrooms: []string{classroomID},
	}))
	require.NoError(t, mem.CreateClassroom(ctx, &model.Classroom{
		ID: classroomID, Name: className, SchoolID: schoolID, Students: []string{},
	}))
	return schoolID, classroomID
}

func addReq(name, className, schoolID string) AddStudentRequest {
	return AddStudentRequest{
		Name:          name,
		Age:           10,
		ClassRoomName: className,
		SchoolID:      schoolID,
	}
}

func TestAdd(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	schoolID, classroomID := seedHierarchy(t, mem, "Lincoln High", "Room 1")

	student, err := svc.Add(ctx, addReq("Alice", "Room 1", schoolID), nil)
	require.NoError(t, err)
	assert.Equal(t, classroomID, student.ClassroomID)
	assert.Equal(t, schoolID, student.SchoolID)
	assert.False(t, student.EnrollmentDate.IsZero())

	classroom, err := mem.GetClassroomByID(ctx, classroomID)
	require.NoError(t, err)
	assert.Equal(t, []string{student.ID}, classroom.Students)
}

func TestAdd_ClassroomNotFound(t *testing.T) {
	svc, mem := newTestService(t)
	schoolID, _ := seedHierarchy(t, mem, "Lincoln High", "Room 1")

	_, err := svc.Add(context.Background(), addReq("Alice", "No Such Room", schoolID), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Classroom not found.", apperr.MessageOf(err))
}

// Student names are globally unique, across schools too.
func TestAdd_DuplicateName(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	school1, _ := seedHierarchy(t, mem, "Lincoln High", "Room 1")
	school2, _ := seedHierarchy(t, mem, "Roosevelt Middle", "Room A")

	_, err := svc.Add(ctx, addReq("Alice", "Room 1", school1), nil)
	require.NoError(t, err)

	_, err = svc.Add(ctx, addReq("Alice", "Room A", school2), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Student already exists", apperr.MessageOf(err))
}

func TestAdd_ForeignTenantForbidden(t *testing.T) {
	svc, mem := newTestService(t)
	schoolID, _ := seedHierarchy(t, mem, "Lincoln High", "Room 1")

	own := "school-other"
	_, err := svc.Add(context.Background(), addReq("Alice", "Room 1", schoolID), &own)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAllByClassroom(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	schoolID, classroomID := seedHierarchy(t, mem, "Lincoln High", "Room 1")

	_, err := svc.Add(ctx, addReq("Alice", "Room 1", schoolID), nil)
	require.NoError(t, err)
	_, err = svc.Add(ctx, addReq("Bob", "Room 1", schoolID), nil)
	require.NoError(t, err)

	students, err := svc.AllByClassroom(ctx, classroomID)
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestAllByClassroom_EmptyIsNotFound(t *testing.T) {
	svc, mem := newTestService(t)
	_, classroomID := seedHierarchy(t, mem, "Lincoln High", "Room 1")

	_, err := svc.AllByClassroom(context.Background(), classroomID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "No students found in the classroom.", apperr.MessageOf(err))
}

func TestUpdateResourcesByName_Partial(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	schoolID, _ := seedHierarchy(t, mem, "Lincoln High", "Room 1")

	req := addReq("Alice", "Room 1", schoolID)
	req.Resources = model.StudentResources{NumberOfCoursesTaken: 3, AttendancePercentage: 90}
	_, err := svc.Add(ctx, req, nil)
	require.NoError(t, err)

	attendance := 95.5
	updated, err := svc.UpdateResourcesByName(ctx, "Alice", ResourcesUpdate{AttendancePercentage: &attendance}, nil)
	require.NoError(t, err)
	assert.Equal(t, 95.5, updated.Resources.AttendancePercentage)
	assert.Equal(t, 3, updated.Resources.NumberOfCoursesTaken)
}

// Scoped updates only see students of the caller's own school.
func TestUpdateResourcesByName_ScopeHidesForeignStudent(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	schoolID, _ := seedHierarchy(t, mem, "Lincoln High", "Room 1")

	_, err := svc.Add(ctx, addReq("Alice", "Room 1", schoolID), nil)
	require.NoError(t, err)

	own := "school-other"
	courses := 4
	_, err = svc.UpdateResourcesByName(ctx, "Alice", ResourcesUpdate{NumberOfCoursesTaken: &courses}, &own)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestTransfer(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	school1, class1 := seedHierarchy(t, mem, "Lincoln High", "Room 1")
	school2, class2 := seedHierarchy(t, mem, "Roosevelt Middle", "Room A")

	student, err := svc.Add(ctx, addReq("Alice", "Room 1", school1), nil)
	require.NoError(t, err)

	result, err := svc.Transfer(ctx, TransferStudentRequest{
		StudentName:   "Alice",
		NewSchoolName: "Roosevelt Middle",
		NewClassName:  "Room A",
	})
	require.NoError(t, err)
	assert.Equal(t, school2, result.Student.SchoolID)
	assert.Equal(t, class2, result.Student.ClassroomID)

	// Exactly moved: gone from the old set, present once in the new one.
	oldClassroom, err := mem.GetClassroomByID(ctx, class1)
	require.NoError(t, err)
	assert.NotContains(t, oldClassroom.Students, student.ID)

	newClassroom, err := mem.GetClassroomByID(ctx, class2)
	require.NoError(t, err)
	count := 0
	for _, id := range newClassroom.Students {
		if id == student.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

// A repeat transfer with the same arguments fails: the student already
// sits in the destination, so there is no set left to remove it from.
// The destination set must still hold the id exactly once afterwards.
func TestTransfer_RepeatFails(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	school1, _ := seedHierarchy(t, mem, "Lincoln High", "Room 1")
	_, class2 := seedHierarchy(t, mem, "Roosevelt Middle", "Room A")

	student, err := svc.Add(ctx, addReq("Alice", "Room 1", school1), nil)
	require.NoError(t, err)

	req := TransferStudentRequest{
		StudentName:   "Alice",
		NewSchoolName: "Roosevelt Middle",
		NewClassName:  "Room A",
	}
	_, err = svc.Transfer(ctx, req)
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, req)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	dest, err := mem.GetClassroomByID(ctx, class2)
	require.NoError(t, err)
	count := 0
	for _, id := range dest.Students {
		if id == student.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestTransfer_DestinationClassroomScopedToSchool(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	school1, _ := seedHierarchy(t, mem, "Lincoln High", "Room 1")
	seedHierarchy(t, mem, "Roosevelt Middle", "Room A")

	_, err := svc.Add(ctx, addReq("Alice", "Room 1", school1), nil)
	require.NoError(t, err)

	// "Room 1" exists, but not under the destination school.
	_, err = svc.Transfer(ctx, TransferStudentRequest{
		StudentName:   "Alice",
		NewSchoolName: "Roosevelt Middle",
		NewClassName:  "Room 1",
	})
	require.Error(t, err)
	assert.Equal(t, "New classroom not found in the specified school.", apperr.MessageOf(err))
}

func TestDelete(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	schoolID, classroomID := seedHierarchy(t, mem, "Lincoln High", "Room 1")

	student, err := svc.Add(ctx, addReq("Alice", "Room 1", schoolID), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "Alice", nil))

	_, err = mem.GetStudentByID(ctx, student.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	classroom, err := mem.GetClassroomByID(ctx, classroomID)
	require.NoError(t, err)
	assert.NotContains(t, classroom.Students, student.ID)
}

func TestDelete_ScopeHidesForeignStudent(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	schoolID, _ := seedHierarchy(t, mem, "Lincoln High", "Room 1")

	_, err := svc.Add(ctx, addReq("Alice", "Room 1", schoolID), nil)
	require.NoError(t, err)

	own := "school-other"
	err = svc.Delete(ctx, "Alice", &own)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Student not found.", apperr.MessageOf(err))
}
