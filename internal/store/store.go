// Package store is the persistence boundary. Services talk to the Store
// interface only; the Postgres implementation lives in postgres.go and an
// in-memory implementation used by tests in memory.go.
package store

import (
	"context"
	"errors"

	"school-service/internal/model"
)

// ErrNotFound is returned by all Get/Delete operations when no matching
// row exists. Services translate it into the taxonomy error with the
// operation-specific message.
var ErrNotFound = errors.New("record not found")

// Store provides atomic single-record operations plus RunInTx, the
// transactional unit of work required by every multi-record mutation.
// The callback receives a Store bound to the transaction; returning an
// error aborts it with nothing visible to other callers.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	CreateSchool(ctx context.Context, school *model.School) error
	GetSchoolByID(ctx context.Context, id string) (*model.School, error)
	GetSchoolByName(ctx context.Context, name string) (*model.School, error)
	ListSchools(ctx context.Context) ([]model.School, error)
	UpdateSchool(ctx context.Context, school *model.School) error
	DeleteSchool(ctx context.Context, id string) error

	CreateClassroom(ctx context.Context, classroom *model.Classroom) error
	GetClassroomByID(ctx context.Context, id string) (*model.Classroom, error)
	// GetClassroomByName resolves a classroom by name, scoped to a school
	// when schoolID is non-empty.
	GetClassroomByName(ctx context.Context, name, schoolID string) (*model.Classroom, error)
	ListClassroomsBySchool(ctx context.Context, schoolID string) ([]model.Classroom, error)
	UpdateClassroom(ctx context.Context, classroom *model.Classroom) error
	DeleteClassroom(ctx context.Context, id string) error
	DeleteClassroomsBySchool(ctx context.Context, schoolID string) error

	CreateStudent(ctx context.Context, student *model.Student) error
	GetStudentByID(ctx context.Context, id string) (*model.Student, error)
	// GetStudentByName resolves a student by name, scoped to a school when
	// schoolID is non-empty.
	GetStudentByName(ctx context.Context, name, schoolID string) (*model.Student, error)
	ListStudentsByIDs(ctx context.Context, ids []string) ([]model.Student, error)
	UpdateStudent(ctx context.Context, student *model.Student) error
	DeleteStudent(ctx context.Context, id string) error
	DeleteStudentsByClassroom(ctx context.Context, classroomID string) error
	DeleteStudentsByIDs(ctx context.Context, ids []string) error

	CreateAdminUser(ctx context.Context, user *model.AdminUser) error
	GetAdminUserByID(ctx context.Context, id string) (*model.AdminUser, error)
	GetAdminUserByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	DeleteAdminUsersByIDs(ctx context.Context, ids []string) error

	CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error
	GetRefreshToken(ctx context.Context, userID, token string) (*model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, userID, token string) error
	DeleteRefreshTokensByUser(ctx context.Context, userID string) error
}
