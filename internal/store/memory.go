package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"school-service/internal/model"
)

// Memory is an in-process Store used by tests. RunInTx takes a deep
// snapshot of all tables and restores it when the callback fails, giving
// the same all-or-nothing visibility as the Postgres transaction.
//
// Plain operations lock the store, but a transaction callback runs with
// the mutex released and the inTx flag set, so Memory is not safe for
// concurrent use while a transaction is open. Tests drive it from a
// single goroutine.
type Memory struct {
	mu sync.Mutex

	schools    map[string]*model.School
	classrooms map[string]*model.Classroom
	students   map[string]*model.Student
	users      map[string]*model.AdminUser
	tokens     map[string]*model.RefreshToken

	// failOn aborts the named operation with failErr, once. Used by
	// tests to verify cascades roll back cleanly.
	failOn  string
	failErr error

	inTx bool
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		schools:    map[string]*model.School{},
		classrooms: map[string]*model.Classroom{},
		students:   map[string]*model.Student{},
		users:      map[string]*model.AdminUser{},
		tokens:     map[string]*model.RefreshToken{},
	}
}

// FailNext makes the next call of the named operation (e.g.
// "DeleteClassroomsBySchool") return err instead of executing.
func (s *Memory) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = op
	s.failErr = err
}

func (s *Memory) trip(op string) error {
	if s.failOn == op {
		err := s.failErr
		s.failOn = ""
		s.failErr = nil
		return err
	}
	return nil
}

type memorySnapshot struct {
	schools    map[string]*model.School
	classrooms map[string]*model.Classroom
	students   map[string]*model.Student
	users      map[string]*model.AdminUser
	tokens     map[string]*model.RefreshToken
}

func (s *Memory) snapshot() memorySnapshot {
	snap := memorySnapshot{
		schools:    make(map[string]*model.School, len(s.schools)),
		classrooms: make(map[string]*model.Classroom, len(s.classrooms)),
		students:   make(map[string]*model.Student, len(s.students)),
		users:      make(map[string]*model.AdminUser, len(s.users)),
		tokens:     make(map[string]*model.RefreshToken, len(s.tokens)),
	}
	for id, v := range s.schools {
		snap.schools[id] = copySchool(v)
	}
	for id, v := range s.classrooms {
		snap.classrooms[id] = copyClassroom(v)
	}
	for id, v := range s.students {
		snap.students[id] = copyStudent(v)
	}
	for id, v := range s.users {
		snap.users[id] = copyUser(v)
	}
	for id, v := range s.tokens {
		c := *v
		snap.tokens[id] = &c
	}
	return snap
}

func (s *Memory) restore(snap memorySnapshot) {
	s.schools = snap.schools
	s.classrooms = snap.classrooms
	s.students = snap.students
	s.users = snap.users
	s.tokens = snap.tokens
}

func (s *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	s.mu.Lock()
	if s.inTx {
		s.mu.Unlock()
		return fn(ctx, s)
	}
	s.inTx = true
	snap := s.snapshot()
	s.mu.Unlock()

	err := fn(ctx, s)

	s.mu.Lock()
	s.inTx = false
	if err != nil {
		s.restore(snap)
	}
	s.mu.Unlock()
	return err
}

// lock is a no-op inside a transaction: the tx callback already runs
// under the store's single-writer discipline.
func (s *Memory) lock() func() {
	s.mu.Lock()
	if s.inTx {
		s.mu.Unlock()
		return func() {}
	}
	return s.mu.Unlock
}

func copySchool(in *model.School) *model.School {
	out := *in
	out.SchoolAdmins = append([]string(nil), in.SchoolAdmins...)
	out.Classrooms = append([]string(nil), in.Classrooms...)
	return &out
}

func copyClassroom(in *model.Classroom) *model.Classroom {
	out := *in
	out.Students = append([]string(nil), in.Students...)
	return &out
}

func copyStudent(in *model.Student) *model.Student {
	out := *in
	out.Resources.ExtraCurricularActivities = append([]string(nil), in.Resources.ExtraCurricularActivities...)
	return &out
}

func copyUser(in *model.AdminUser) *model.AdminUser {
	out := *in
	if in.SchoolID != nil {
		id := *in.SchoolID
		out.SchoolID = &id
	}
	return &out
}

// Schools

func (s *Memory) CreateSchool(ctx context.Context, school *model.School) error {
	defer s.lock()()
	if err := s.trip("CreateSchool"); err != nil {
		return err
	}
	s.schools[school.ID] = copySchool(school)
	return nil
}

func (s *Memory) GetSchoolByID(ctx context.Context, id string) (*model.School, error) {
	defer s.lock()()
	school, ok := s.schools[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySchool(school), nil
}

func (s *Memory) GetSchoolByName(ctx context.Context, name string) (*model.School, error) {
	defer s.lock()()
	for _, school := range s.schools {
		if school.Name == name {
			return copySchool(school), nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) ListSchools(ctx context.Context) ([]model.School, error) {
	defer s.lock()()
	out := make([]model.School, 0, len(s.schools))
	for _, school := range s.schools {
		out = append(out, *copySchool(school))
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

func (s *Memory) UpdateSchool(ctx context.Context, school *model.School) error {
	defer s.lock()()
	if err := s.trip("UpdateSchool"); err != nil {
		return err
	}
	if _, ok := s.schools[school.ID]; !ok {
		return ErrNotFound
	}
	s.schools[school.ID] = copySchool(school)
	return nil
}

func (s *Memory) DeleteSchool(ctx context.Context, id string) error {
	defer s.lock()()
	if err := s.trip("DeleteSchool"); err != nil {
		return err
	}
	if _, ok := s.schools[id]; !ok {
		return ErrNotFound
	}
	delete(s.schools, id)
	return nil
}

// Classrooms

func (s *Memory) CreateClassroom(ctx context.Context, classroom *model.Classroom) error {
	defer s.lock()()
	if err := s.trip("CreateClassroom"); err != nil {
		return err
	}
	s.classrooms[classroom.ID] = copyClassroom(classroom)
	return nil
}

func (s *Memory) GetClassroomByID(ctx context.Context, id string) (*model.Classroom, error) {
	defer s.lock()()
	classroom, ok := s.classrooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyClassroom(classroom), nil
}

func (s *Memory) GetClassroomByName(ctx context.Context, name, schoolID string) (*model.Classroom, error) {
	defer s.lock()()
	for _, classroom := range s.classrooms {
		if classroom.Name != name {
			continue
		}
		if schoolID != "" && classroom.SchoolID != schoolID {
			continue
		}
		return copyClassroom(classroom), nil
	}
	return nil, ErrNotFound
}

func (s *Memory) ListClassroomsBySchool(ctx context.Context, schoolID string) ([]model.Classroom, error) {
	defer s.lock()()
	var out []model.Classroom
	for _, classroom := range s.classrooms {
		if classroom.SchoolID == schoolID {
			out = append(out, *copyClassroom(classroom))
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

func (s *Memory) UpdateClassroom(ctx context.Context, classroom *model.Classroom) error {
	defer s.lock()()
	if err := s.trip("UpdateClassroom"); err != nil {
		return err
	}
	if _, ok := s.classrooms[classroom.ID]; !ok {
		return ErrNotFound
	}
	s.classrooms[classroom.ID] = copyClassroom(classroom)
	return nil
}

func (s *Memory) DeleteClassroom(ctx context.Context, id string) error {
	defer s.lock()()
	if err := s.trip("DeleteClassroom"); err != nil {
		return err
	}
	if _, ok := s.classrooms[id]; !ok {
		return ErrNotFound
	}
	delete(s.classrooms, id)
	return nil
}

func (s *Memory) DeleteClassroomsBySchool(ctx context.Context, schoolID string) error {
	defer s.lock()()
	if err := s.trip("DeleteClassroomsBySchool"); err != nil {
		return err
	}
	for id, classroom := range s.classrooms {
		if classroom.SchoolID == schoolID {
			delete(s.classrooms, id)
		}
	}
	return nil
}

// Students

func (s *Memory) CreateStudent(ctx context.Context, student *model.Student) error {
	defer s.lock()()
	if err := s.trip("CreateStudent"); err != nil {
		return err
	}
	s.students[student.ID] = copyStudent(student)
	return nil
}

func (s *Memory) GetStudentByID(ctx context.Context, id string) (*model.Student, error) {
	defer s.lock()()
	student, ok := s.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyStudent(student), nil
}

func (s *Memory) GetStudentByName(ctx context.Context, name, schoolID string) (*model.Student, error) {
	defer s.lock()()
	for _, student := range s.students {
		if student.Name != name {
			continue
		}
		if schoolID != "" && student.SchoolID != schoolID {
			continue
		}
		return copyStudent(student), nil
	}
	return nil, ErrNotFound
}

func (s *Memory) ListStudentsByIDs(ctx context.Context, ids []string) ([]model.Student, error) {
	defer s.lock()()
	out := []model.Student{}
	for _, id := range ids {
		if student, ok := s.students[id]; ok {
			out = append(out, *copyStudent(student))
		}
	}
	return out, nil
}

func (s *Memory) UpdateStudent(ctx context.Context, student *model.Student) error {
	defer s.lock()()
	if err := s.trip("UpdateStudent"); err != nil {
		return err
	}
	if _, ok := s.students[student.ID]; !ok {
		return ErrNotFound
	}
	s.students[student.ID] = copyStudent(student)
	return nil
}

func (s *Memory) DeleteStudent(ctx context.Context, id string) error {
	defer s.lock()()
	if err := s.trip("DeleteStudent"); err != nil {
		return err
	}
	if _, ok := s.students[id]; !ok {
		return ErrNotFound
	}
	delete(s.students, id)
	return nil
}

func (s *Memory) DeleteStudentsByClassroom(ctx context.Context, classroomID string) error {
	defer s.lock()()
	if err := s.trip("DeleteStudentsByClassroom"); err != nil {
		return err
	}
	for id, student := range s.students {
		if student.ClassroomID == classroomID {
			delete(s.students, id)
		}
	}
	return nil
}

func (s *Memory) DeleteStudentsByIDs(ctx context.Context, ids []string) error {
	defer s.lock()()
	if err := s.trip("DeleteStudentsByIDs"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(s.students, id)
	}
	return nil
}

// Admin users

func (s *Memory) CreateAdminUser(ctx context.Context, user *model.AdminUser) error {
	defer s.lock()()
	if err := s.trip("CreateAdminUser"); err != nil {
		return err
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Memory) GetAdminUserByID(ctx context.Context, id string) (*model.AdminUser, error) {
	defer s.lock()()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (s *Memory) GetAdminUserByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	defer s.lock()()
	for _, user := range s.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) DeleteAdminUsersByIDs(ctx context.Context, ids []string) error {
	defer s.lock()()
	if err := s.trip("DeleteAdminUsersByIDs"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(s.users, id)
	}
	return nil
}

// Refresh tokens

func (s *Memory) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	defer s.lock()()
	if err := s.trip("CreateRefreshToken"); err != nil {
		return err
	}
	c := *token
	s.tokens[token.ID] = &c
	return nil
}

func (s *Memory) GetRefreshToken(ctx context.Context, userID, token string) (*model.RefreshToken, error) {
	defer s.lock()()
	for _, row := range s.tokens {
		if row.UserID == userID && row.Token == token {
			c := *row
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) DeleteRefreshToken(ctx context.Context, userID, token string) error {
	defer s.lock()()
	for id, row := range s.tokens {
		if row.UserID == userID && row.Token == token {
			delete(s.tokens, id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) DeleteRefreshTokensByUser(ctx context.Context, userID string) error {
	defer s.lock()()
	for id, row := range s.tokens {
		if row.UserID == userID {
			delete(s.tokens, id)
		}
	}
	return nil
}

// CountRefreshTokens reports live rows for a user; test helper for the
// one-session-per-user invariant.
func (s *Memory) CountRefreshTokens(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.tokens {
		if row.UserID == userID {
			n++
		}
	}
	return n
}
