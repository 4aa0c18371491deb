package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"school-service/internal/metrics"
	"school-service/internal/model"

	"github.com/uptrace/bun"
)

// Postgres implements Store on bun. Inside RunInTx the same type is
// rebound to the transaction handle, so every method works identically
// in and out of a unit of work.
type Postgres struct {
	db      bun.IDB
	root    *bun.DB // nil when bound to a transaction
	metrics *metrics.Metrics
}

var _ Store = (*Postgres)(nil)

func NewPostgres(db *bun.DB, m *metrics.Metrics) *Postgres {
	return &Postgres{db: db, root: db, metrics: m}
}

func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.root == nil {
		// Already transactional; nested units of work join the outer one.
		return fn(ctx, s)
	}
	return s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Postgres{db: tx, metrics: s.metrics})
	})
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Schools

func (s *Postgres) CreateSchool(ctx context.Context, school *model.School) error {
	start := time.Now()
	_, err := s.db.NewInsert().Model(school).Exec(ctx)
	s.metrics.RecordQuery(ctx, "insert", "schools", time.Since(start), err)
	return err
}

func (s *Postgres) GetSchoolByID(ctx context.Context, id string) (*model.School, error) {
	start := time.Now()
	school := new(model.School)
	err := s.db.NewSelect().Model(school).Where("id = ?", id).Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "schools", time.Since(start), err)
	if err != nil {
		return nil, notFound(err)
	}
	return school, nil
}

func (s *Postgres) GetSchoolByName(ctx context.Context, name string) (*model.School, error) {
	start := time.Now()
	school := new(model.School)
	err := s.db.NewSelect().Model(school).Where("name = ?", name).Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "schools", time.Since(start), err)
	if err != nil {
		return nil, notFound(err)
	}
	return school, nil
}

func (s *Postgres) ListSchools(ctx context.Context) ([]model.School, error) {
	start := time.Now()
	var schools []model.School
	err := s.db.NewSelect().Model(&schools).Order("created_at ASC").Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "schools", time.Since(start), err)
	return schools, err
}

func (s *Postgres) UpdateSchool(ctx context.Context, school *model.School) error {
	start := time.Now()
	school.UpdatedAt = time.Now()
	result, err := s.db.NewUpdate().Model(school).WherePK().Exec(ctx)
	s.metrics.RecordQuery(ctx, "update", "schools", time.Since(start), err)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *Postgres) DeleteSchool(ctx context.Context, id string) error {
	start := time.Now()
	result, err := s.db.NewDelete().Model((*model.School)(nil)).Where("id = ?", id).Exec(ctx)
	s.metrics.RecordQuery(ctx, "delete", "schools", time.Since(start), err)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// Classrooms

func (s *Postgres) CreateClassroom(ctx context.Context, classroom *model.Classroom) error {
	start := time.Now()
	_, err := s.db.NewInsert().Model(classroom).Exec(ctx)
	s.metrics.RecordQuery(ctx, "insert", "classrooms", time.Since(start), err)
	return err
}

func (s *Postgres) GetClassroomByID(ctx context.Context, id string) (*model.Classroom, error) {
	start := time.Now()
	classroom := new(model.Classroom)
	err := s.db.NewSelect().Model(classroom).Where("id = ?", id).Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "classrooms", time.Since(start), err)
	if err != nil {
		return nil, notFound(err)
	}
	return classroom, nil
}

func (s *Postgres) GetClassroomByName(ctx context.Context, name, schoolID string) (*model.Classroom, error) {
	start := time.Now()
	classroom := new(model.Classroom)
	q := s.db.NewSelect().Model(classroom).Where("name = ?", name)
	if schoolID != "" {
		q = q.Where("school_id = ?", schoolID)
	}
	err := q.Limit(1).Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "classrooms", time.Since(start), err)
	if err != nil {
		return nil, notFound(err)
	}
	return classroom, nil
}

func (s *Postgres) ListClassroomsBySchool(ctx context.Context, schoolID string) ([]model.Classroom, error) {
	start := time.Now()
	var classrooms []model.Classroom
	err := s.db.NewSelect().Model(&classrooms).Where("school_id = ?", schoolID).Order("created_at ASC").Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "classrooms", time.Since(start), err)
	return classrooms, err
}

func (s *Postgres) UpdateClassroom(ctx context.Context, classroom *model.Classroom) error {
	start := time.Now()
	classroom.UpdatedAt = time.Now()
	result, err := s.db.NewUpdate().Model(classroom).WherePK().Exec(ctx)
	s.metrics.RecordQuery(ctx, "update", "classrooms", time.Since(start), err)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *Postgres) DeleteClassroom(ctx context.Context, id string) error {
	start := time.Now()
	result, err := s.db.NewDelete().Model((*model.Classroom)(nil)).Where("id = ?", id).Exec(ctx)
	s.metrics.RecordQuery(ctx, "delete", "classrooms", time.Since(start), err)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *Postgres) DeleteClassroomsBySchool(ctx context.Context, schoolID string) error {
	start := time.Now()
	_, err := s.db.NewDelete().Model((*model.Classroom)(nil)).Where("school_id = ?", schoolID).Exec(ctx)
	s.metrics.RecordQuery(ctx, "delete", "classrooms", time.Since(start), err)
	return err
}

// Students

func (s *Postgres) CreateStudent(ctx context.Context, student *model.Student) error {
	start := time.Now()
	_, err := s.db.NewInsert().Model(student).Exec(ctx)
	s.metrics.RecordQuery(ctx, "insert", "students", time.Since(start), err)
	return err
}

func (s *Postgres) GetStudentByID(ctx context.Context, id string) (*model.Student, error) {
	start := time.Now()
	student := new(model.Student)
	err := s.db.NewSelect().Model(student).Where("id = ?", id).Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "students", time.Since(start), err)
	if err != nil {
		return nil, notFound(err)
	}
	return student, nil
}

func (s *Postgres) GetStudentByName(ctx context.Context, name, schoolID string) (*model.Student, error) {
	start := time.Now()
	student := new(model.Student)
	q := s.db.NewSelect().Model(student).Where("name = ?", name)
	if schoolID != "" {
		q = q.Where("school_id = ?", schoolID)
	}
	err := q.Limit(1).Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "students", time.Since(start), err)
	if err != nil {
		return nil, notFound(err)
	}
	return student, nil
}

func (s *Postgres) ListStudentsByIDs(ctx context.Context, ids []string) ([]model.Student, error) {
	if len(ids) == 0 {
		return []model.Student{}, nil
	}
	start := time.Now()
	var students []model.Student
	err := s.db.NewSelect().Model(&students).Where("id IN (?)", bun.In(ids)).Order("created_at ASC").Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "students", time.Since(start), err)
	return students, err
}

func (s *Postgres) UpdateStudent(ctx context.Context, student *model.Student) error {
	start := time.Now()
	student.UpdatedAt = time.Now()
	result, err := s.db.NewUpdate().Model(student).WherePK().Exec(ctx)
	s.metrics.RecordQuery(ctx, "update", "students", time.Since(start), err)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *Postgres) DeleteStudent(ctx context.Context, id string) error {
	start := time.Now()
	result, err := s.db.NewDelete().Model((*model.Student)(nil)).Where("id = ?", id).Exec(ctx)
	s.metrics.RecordQuery(ctx, "delete", "students", time.Since(start), err)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *Postgres) DeleteStudentsByClassroom(ctx context.Context, classroomID string) error {
	start := time.Now()
	_, err := s.db.NewDelete().Model((*model.Student)(nil)).Where("classroom_id = ?", classroomID).Exec(ctx)
	s.metrics.RecordQuery(ctx, "delete", "students", time.Since(start), err)
	return err
}

func (s *Postgres) DeleteStudentsByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	start := time.Now()
	_, err := s.db.NewDelete().Model((*model.Student)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	s.metrics.RecordQuery(ctx, "delete", "students", time.Since(start), err)
	return err
}

// Admin users

func (s *Postgres) CreateAdminUser(ctx context.Context, user *model.AdminUser) error {
	start := time.Now()
	_, err := s.db.NewInsert().Model(user).Exec(ctx)
	s.metrics.RecordQuery(ctx, "insert", "admin_users", time.Since(start), err)
	return err
}

func (s *Postgres) GetAdminUserByID(ctx context.Context, id string) (*model.AdminUser, error) {
	start := time.Now()
	user := new(model.AdminUser)
	err := s.db.NewSelect().Model(user).Where("id = ?", id).Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "admin_users", time.Since(start), err)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *Postgres) GetAdminUserByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	start := time.Now()
	user := new(model.AdminUser)
	err := s.db.NewSelect().Model(user).Where("email = ?", email).Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "admin_users", time.Since(start), err)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *Postgres) DeleteAdminUsersByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	start := time.Now()
	_, err := s.db.NewDelete().Model((*model.AdminUser)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	s.metrics.RecordQuery(ctx, "delete", "admin_users", time.Since(start), err)
	return err
}

// Refresh tokens

func (s *Postgres) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	start := time.Now()
	_, err := s.db.NewInsert().Model(token).Exec(ctx)
	s.metrics.RecordQuery(ctx, "insert", "refresh_tokens", time.Since(start), err)
	return err
}

func (s *Postgres) GetRefreshToken(ctx context.Context, userID, token string) (*model.RefreshToken, error) {
	start := time.Now()
	row := new(model.RefreshToken)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Where("token = ?", token).Scan(ctx)
	s.metrics.RecordQuery(ctx, "select", "refresh_tokens", time.Since(start), err)
	if err != nil {
		return nil, notFound(err)
	}
	return row, nil
}

func (s *Postgres) DeleteRefreshToken(ctx context.Context, userID, token string) error {
	start := time.Now()
	result, err := s.db.NewDelete().
		Model((*model.RefreshToken)(nil)).
		Where("user_id = ?", userID).
		Where("token = ?", token).
		Exec(ctx)
	s.metrics.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (s *Postgres) DeleteRefreshTokensByUser(ctx context.Context, userID string) error {
	start := time.Now()
	_, err := s.db.NewDelete().Model((*model.RefreshToken)(nil)).Where("user_id = ?", userID).Exec(ctx)
	s.metrics.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)
	return err
}

func requireRows(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
