package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-service/internal/model"
)

func TestMemoryRunInTx_CommitAndRollback(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	err := mem.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		return tx.CreateSchool(ctx, &model.School{ID: "school-1", Name: "Lincoln High"})
	})
	require.NoError(t, err)

	_, err = mem.GetSchoolByID(ctx, "school-1")
	assert.NoError(t, err)

	boom := errors.New("boom")
	err = mem.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.CreateSchool(ctx, &model.School{ID: "school-2", Name: "Roosevelt Middle"}); err != nil {
			return err
		}
		if err := tx.DeleteSchool(ctx, "school-1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing from the aborted callback is visible.
	_, err = mem.GetSchoolByID(ctx, "school-2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mem.GetSchoolByID(ctx, "school-1")
	assert.NoError(t, err)
}

// The rollback snapshot is a deep copy: mutating a record fetched before
// the abort must not leak into the restored state.
func TestMemoryRunInTx_RollbackRestoresSets(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.CreateSchool(ctx, &model.School{
		ID: "school-1", Name: "Lincoln High", Classrooms: []string{"class-1"},
	}))

	err := mem.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		school, err := tx.GetSchoolByID(ctx, "school-1")
		if err != nil {
			return err
		}
		school.Classrooms = append(school.Classrooms, "class-2")
		if err := tx.UpdateSchool(ctx, school); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	school, err := mem.GetSchoolByID(ctx, "school-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"class-1"}, school.Classrooms)
}

func TestMemoryFailNext(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	boom := errors.New("connection reset")
	mem.FailNext("DeleteStudentsByClassroom", boom)

	err := mem.DeleteStudentsByClassroom(ctx, "class-1")
	assert.ErrorIs(t, err, boom)

	// Trips once, then the operation works again.
	assert.NoError(t, mem.DeleteStudentsByClassroom(ctx, "class-1"))
}

func TestMemoryGetClassroomByName_Scoped(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.CreateClassroom(ctx, &model.Classroom{ID: "c1", Name: "Room 1", SchoolID: "school-1"}))
	require.NoError(t, mem.CreateClassroom(ctx, &model.Classroom{ID: "c2", Name: "Room 1", SchoolID: "school-2"}))

	got, err := mem.GetClassroomByName(ctx, "Room 1", "school-2")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ID)

	_, err = mem.GetClassroomByName(ctx, "Room 1", "school-3")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Reads hand out copies; callers mutating a result must go through
// Update* for the change to stick.
func TestMemoryReadsReturnCopies(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.CreateSchool(ctx, &model.School{ID: "school-1", Name: "Lincoln High"}))

	first, err := mem.GetSchoolByID(ctx, "school-1")
	require.NoError(t, err)
	first.Name = "Renamed"

	second, err := mem.GetSchoolByID(ctx, "school-1")
	require.NoError(t, err)
	assert.Equal(t, "Lincoln High", second.Name)
}
