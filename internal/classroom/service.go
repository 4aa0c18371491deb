// Package classroom implements the classroom lifecycle. A classroom is
// created inside an existing school and deleted together with its
// students; both directions of the school↔classroom link are maintained
// in the same unit of work.
package classroom

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

type CreateClassroomRequest struct {
	Name       string                   `json:"name" validate:"required"`
	SchoolName string                   `json:"schoolName" validate:"required"`
	Resources  model.ClassroomResources `json:"resources"`
}

// ResourcesUpdate carries a partial update; nil fields are left untouched.
type ResourcesUpdate struct {
	Capacity            *int  `json:"capacity"`
	NumberOfDesks       *int  `json:"numberOfDesks"`
	SmartBoardAvailable *bool `json:"smartBoardAvailable"`
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

func (s *Service) publish(action string, classroom *model.Classroom) {
	if err := s.events.Publish(events.Event{
		Entity:     "classroom",
		Action:     action,
		EntityID:   classroom.ID,
		EntityName: classroom.Name,
		SchoolID:   classroom.SchoolID,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("event publish failed", "entity", "classroom", "action", action, "error", err)
	}
}

// Create resolves the owning school by name, inserts the classroom and
// appends its id to the school's set in one unit of work. scopeSchoolID
// is the caller's own tenant when the caller is a SchoolAdmin; a nil
// scope means no tenant restriction.
func (s *Service) Create(ctx context.Context, req CreateClassroomRequest, scopeSchoolID *string) (*model.Classroom, error) {
	var classroom *model.Classroom
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		school, err := tx.GetSchoolByName(ctx, req.SchoolName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("School not found.")
			}
			return apperr.Internal("Internal Server Error: Could not create classroom.", err)
		}
		if scopeSchoolID != nil && school.ID != *scopeSchoolID {
			return apperr.Forbidden("Access Forbidden. You are not authorized to manage this school.")
		}

		classroom = &model.Classroom{
			ID:        uuid.NewString(),
			Name:      req.Name,
			SchoolID:  school.ID,
			Resources: req.Resources,
			Students:  []string{},
		}
		if err := tx.CreateClassroom(ctx, classroom); err != nil {
			return apperr.Internal("Internal Server Error: Could not create classroom.", err)
		}

		school.Classrooms = append(school.Classrooms, classroom.ID)
		if err := tx.UpdateSchool(ctx, school); err != nil {
			return apperr.Internal("Internal Server Error: Could not create classroom.", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordClassroomCreated(ctx)
	s.publish("created", classroom)
	s.logger.Info("classroom created", "id", classroom.ID, "school_id", classroom.SchoolID)
	return classroom, nil
}

// AllBySchool lists the classrooms of a school. An empty result reports
// NotFound rather than an empty list.
func (s *Service) AllBySchool(ctx context.Context, schoolID string) ([]model.Classroom, error) {
	classrooms, err := s.store.ListClassroomsBySchool(ctx, schoolID)
	if err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not fetch classrooms.", err)
	}
	if len(classrooms) == 0 {
		return nil, apperr.NotFound("No classrooms found for the specified school.")
	}
	return classrooms, nil
}

func (s *Service) ByID(ctx context.Context, classroomID string) (*model.Classroom, error) {
	classroom, err := s.store.GetClassroomByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Classroom not found.")
		}
		return nil, apperr.Internal("Internal Server Error: Could not fetch classroom details.", err)
	}
	return classroom, nil
}

// UpdateResource applies the non-nil resource fields.
func (s *Service) UpdateResource(ctx context.Context, classroomID string, upd ResourcesUpdate, scopeSchoolID *string) (*model.Classroom, error) {
	classroom, err := s.store.GetClassroomByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Classroom not found.")
		}
		return nil, apperr.Internal("Internal Server Error: Could not update classroom resource.", err)
	}
	if scopeSchoolID != nil && classroom.SchoolID != *scopeSchoolID {
		return nil, apperr.Forbidden("Access Forbidden. You are not authorized to manage this school.")
	}

	if upd.Capacity != nil {
		classroom.Resources.Capacity = *upd.Capacity
	}
	if upd.NumberOfDesks != nil {
		classroom.Resources.NumberOfDesks = *upd.NumberOfDesks
	}
	if upd.SmartBoardAvailable != nil {
		classroom.Resources.SmartBoardAvailable = *upd.SmartBoardAvailable
	}

	if err := s.store.UpdateClassroom(ctx, classroom); err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not update classroom resource.", err)
	}

	s.publish("updated", classroom)
	return classroom, nil
}

// Delete removes the classroom, its students, and its id from the owning
// school's set, all in one unit of work. SchoolAdmin callers only ever
// resolve classrooms inside their own school.
func (s *Service) Delete(ctx context.Context, classroomName string, scopeSchoolID *string) error {
	var deleted *model.Classroom
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		scope := ""
		if scopeSchoolID != nil {
			scope = *scopeSchoolID
		}
		classroom, err := tx.GetClassroomByName(ctx, classroomName, scope)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Classroom not found.")
			}
			return apperr.Internal("Internal Server Error: Could not delete classroom.", err)
		}
		deleted = classroom

		school, err := tx.GetSchoolByID(ctx, classroom.SchoolID)
		if err == nil {
			kept := school.Classrooms[:0]
			for _, id := range school.Classrooms {
				if id != classroom.ID {
					kept = append(kept, id)
				}
			}
			school.Classrooms = kept
			if err := tx.UpdateSchool(ctx, school); err != nil {
				return apperr.Internal("Internal Server Error: Could not delete classroom.", err)
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return apperr.Internal("Internal Server Error: Could not delete classroom.", err)
		}

		if err := tx.DeleteStudentsByClassroom(ctx, classroom.ID); err != nil {
			return apperr.Internal("Internal Server Error: Could not delete classroom.", err)
		}
		if err := tx.DeleteClassroom(ctx, classroom.ID); err != nil {
			return apperr.Internal("Internal Server Error: Could not delete classroom.", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordCascadeDelete(ctx, "classroom")
	s.publish("deleted", deleted)
	s.logger.Info("classroom deleted", "name", classroomName)
	return nil
}
