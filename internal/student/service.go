// Package student implements the student lifecycle: enrollment into a
// classroom, reads, resource updates, cross-school transfer and removal.
// Every mutation touching the classroom's student set runs in one unit
// of work with the student write.
package student

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"school-service/internal/apperr"
	"school-service/internal/events"
	"school-service/internal/metrics"
	"school-service/internal/model"
	"school-service/internal/store"
)

type AddStudentRequest struct {
	Name          string                 `json:"name" validate:"required"`
	Age           int                    `json:"age" validate:"required,gt=0"`
	ClassRoomName string                 `json:"classRoomName" validate:"required"`
	SchoolID      string                 `json:"schoolId" validate:"required"`
	Resources     model.StudentResources `json:"resources"`
}

type TransferStudentRequest struct {
	StudentName   string `json:"studentName" validate:"required"`
	NewSchoolName string `json:"newSchoolName" validate:"required"`
	NewClassName  string `json:"newClassName" validate:"required"`
}

// ResourcesUpdate carries a partial update; nil fields are left untouched.
type ResourcesUpdate struct {
	NumberOfCoursesTaken      *int      `json:"numberOfCoursesTaken"`
	AttendancePercentage      *float64  `json:"attendancePercentage" validate:"omitempty,gte=0,lte=100"`
	ExtraCurricularActivities *[]string `json:"extraCurricularActivities"`
}

// TransferResult mirrors the transfer response payload: the moved
// student plus both affected classrooms.
type TransferResult struct {
	Student      *model.Student   `json:"student"`
	OldClassroom *model.Classroom `json:"oldClassroom"`
	NewClassroom *model.Classroom `json:"newClassroom"`
}

type Service struct {
	store   store.Store
	events  events.Producer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(st store.Store, producer events.Producer, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   st,
		events:  producer,
		logger:  logger,
		metrics: m,
	}
}

func (s *Service) publish(action string, student *model.Student) {
	if err := s.events.Publish(events.Event{
		Entity:     "student",
		Action:     action,
		EntityID:   student.ID,
		EntityName: student.Name,
		SchoolID:   student.SchoolID,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("event publish failed", "entity", "student", "action", action, "error", err)
	}
}

// Add enrolls a student into a classroom resolved by name. Student names
// are globally unique. The insert and the append to the classroom's
// student set are one unit of work. scopeSchoolID is the caller's own
// tenant when the caller is a SchoolAdmin; nil means no restriction.
func (s *Service) Add(ctx context.Context, req AddStudentRequest, scopeSchoolID *string) (*model.Student, error) {
	if scopeSchoolID != nil && req.SchoolID != *scopeSchoolID {
		return nil, apperr.Forbidden("Access Forbidden. You are not authorized to manage this school.")
	}

	var student *model.Student
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		classroom, err := tx.GetClassroomByName(ctx, req.ClassRoomName, req.SchoolID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Classroom not found.")
			}
			return apperr.Internal("Internal Server Error: Could not add student.", err)
		}

		if _, err := tx.GetStudentByName(ctx, req.Name, ""); err == nil {
			return apperr.Conflict("Student already exists")
		} else if !errors.Is(err, store.ErrNotFound) {
			return apperr.Internal("Internal Server Error: Could not add student.", err)
		}

		student = &model.Student{
			ID:             uuid.NewString(),
			Name:           req.Name,
			Age:            req.Age,
			ClassroomID:    classroom.ID,
			SchoolID:       req.SchoolID,
			EnrollmentDate: time.Now(),
			Resources:      req.Resources,
		}
		if err := tx.CreateStudent(ctx, student); err != nil {
			return apperr.Internal("Internal Server Error: Could not add student.", err)
		}

		classroom.Students = append(classroom.Students, student.ID)
		if err := tx.UpdateClassroom(ctx, classroom); err != nil {
			return apperr.Internal("Internal Server Error: Could not add student.", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStudentEnrolled(ctx)
	s.publish("created", student)
	s.logger.Info("student enrolled", "id", student.ID, "classroom_id", student.ClassroomID)
	return student, nil
}

func (s *Service) ByID(ctx context.Context, studentID string) (*model.Student, error) {
	student, err := s.store.GetStudentByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Student not found.")
		}
		return nil, apperr.Internal("Internal Server Error: Could not retrieve student.", err)
	}
	return student, nil
}

// AllByClassroom resolves the classroom and loads its student set. An
// empty set reports NotFound rather than an empty list.
func (s *Service) AllByClassroom(ctx context.Context, classroomID string) ([]model.Student, error) {
	classroom, err := s.store.GetClassroomByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Classroom not found.")
		}
		return nil, apperr.Internal("Internal Server Error: Could not retrieve students.", err)
	}

	if len(classroom.Students) == 0 {
		return nil, apperr.NotFound("No students found in the classroom.")
	}

	students, err := s.store.ListStudentsByIDs(ctx, classroom.Students)
	if err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not retrieve students.", err)
	}
	return students, nil
}

// UpdateResourcesByName applies the non-nil resource fields to the
// student resolved by name, scoped to the caller's school for
// SchoolAdmins.
func (s *Service) UpdateResourcesByName(ctx context.Context, name string, upd ResourcesUpdate, scopeSchoolID *string) (*model.Student, error) {
	scope := ""
	if scopeSchoolID != nil {
		scope = *scopeSchoolID
	}
	student, err := s.store.GetStudentByName(ctx, name, scope)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Student not found.")
		}
		return nil, apperr.Internal("Internal Server Error: Could not update student resources.", err)
	}

	if upd.NumberOfCoursesTaken != nil {
		student.Resources.NumberOfCoursesTaken = *upd.NumberOfCoursesTaken
	}
	if upd.AttendancePercentage != nil {
		student.Resources.AttendancePercentage = *upd.AttendancePercentage
	}
	if upd.ExtraCurricularActivities != nil {
		student.Resources.ExtraCurricularActivities = *upd.ExtraCurricularActivities
	}

	if err := s.store.UpdateStudent(ctx, student); err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not update student resources.", err)
	}

	s.publish("updated", student)
	return student, nil
}

// Transfer moves a student to a classroom in another school: remove from
// the old classroom's set, add to the new one, repoint the student's
// classroomId and schoolId. Four writes, one unit of work; an abort
// leaves the student attached to exactly its old classroom.
func (s *Service) Transfer(ctx context.Context, req TransferStudentRequest) (*TransferResult, error) {
	var result TransferResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		student, err := tx.GetStudentByName(ctx, req.StudentName, "")
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Student not found.")
			}
			return apperr.Internal("Internal Server Error: Could not transfer student.", err)
		}

		oldClassroom, err := tx.GetClassroomByID(ctx, student.ClassroomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Old classroom not found.")
			}
			return apperr.Internal("Internal Server Error: Could not transfer student.", err)
		}

		newSchool, err := tx.GetSchoolByName(ctx, req.NewSchoolName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("New school not found.")
			}
			return apperr.Internal("Internal Server Error: Could not transfer student.", err)
		}

		newClassroom, err := tx.GetClassroomByName(ctx, req.NewClassName, newSchool.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("New classroom not found in the specified school.")
			}
			return apperr.Internal("Internal Server Error: Could not transfer student.", err)
		}

		if oldClassroom.ID == newClassroom.ID {
			// The student already sits in the destination: a repeat
			// transfer with the same arguments has nothing to move.
			return apperr.NotFound("Student not found.")
		}

		found := false
		kept := oldClassroom.Students[:0]
		for _, id := range oldClassroom.Students {
			if id == student.ID {
				found = true
				continue
			}
			kept = append(kept, id)
		}
		if !found {
			// The set no longer holds the student: a repeat transfer
			// with the same arguments lands here.
			return apperr.NotFound("Student not found.")
		}
		oldClassroom.Students = kept
		if err := tx.UpdateClassroom(ctx, oldClassroom); err != nil {
			return apperr.Internal("Internal Server Error: Could not transfer student.", err)
		}

		newClassroom.Students = append(newClassroom.Students, student.ID)
		if err := tx.UpdateClassroom(ctx, newClassroom); err != nil {
			return apperr.Internal("Internal Server Error: Could not transfer student.", err)
		}

		student.SchoolID = newSchool.ID
		student.ClassroomID = newClassroom.ID
		if err := tx.UpdateStudent(ctx, student); err != nil {
			return apperr.Internal("Internal Server Error: Could not transfer student.", err)
		}

		result = TransferResult{Student: student, OldClassroom: oldClassroom, NewClassroom: newClassroom}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStudentTransferred(ctx)
	s.publish("transferred", result.Student)
	s.logger.Info("student transferred",
		"student", req.StudentName, "school", req.NewSchoolName, "classroom", req.NewClassName)
	return &result, nil
}

// Delete removes the student and its id from the owning classroom's set
// in one unit of work.
func (s *Service) Delete(ctx context.Context, studentName string, scopeSchoolID *string) error {
	var deleted *model.Student
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		scope := ""
		if scopeSchoolID != nil {
			scope = *scopeSchoolID
		}
		student, err := tx.GetStudentByName(ctx, studentName, scope)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Student not found.")
			}
			return apperr.Internal("Internal Server Error: Could not delete student.", err)
		}
		deleted = student

		classroom, err := tx.GetClassroomByID(ctx, student.ClassroomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Classroom not found for the student.")
			}
			return apperr.Internal("Internal Server Error: Could not delete student.", err)
		}

		kept := classroom.Students[:0]
		for _, id := range classroom.Students {
			if id != student.ID {
				kept = append(kept, id)
			}
		}
		classroom.Students = kept
		if err := tx.UpdateClassroom(ctx, classroom); err != nil {
			return apperr.Internal("Internal Server Error: Could not delete student.", err)
		}

		if err := tx.DeleteStudent(ctx, student.ID); err != nil {
			return apperr.Internal("Internal Server Error: Could not delete student.", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish("deleted", deleted)
	s.logger.Info("student deleted", "name", studentName)
	return nil
}
