// Package school implements the school lifecycle: creation, reads,
// resource updates, admin-set maintenance and the widest cascade delete
// in the system.
package school

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

type CreateSchoolRequest struct {
	Name      string                `json:"name" validate:"required"`
	Address   string                `json:"address" validate:"required,min=5,max=255"`
	Resources model.SchoolResources `json:"resources"`
}

// ResourcesUpdate carries a partial update; nil fields are left untouched.
type ResourcesUpdate struct {
	NumberOfBuses    *int  `json:"numberOfBuses"`
	LibraryBooks     *int  `json:"libraryBooks"`
	SportsFacilities *bool `json:"sportsFacilities"`
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

func (s *Service) publish(entity, action, id, name, schoolID string) {
	if err := s.events.Publish(events.Event{
		Entity:     entity,
		Action:     action,
		EntityID:   id,
		EntityName: name,
		SchoolID:   schoolID,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("event publish failed", "entity", entity, "action", action, "error", err)
	}
}

// Create inserts a school with empty admin and classroom sets. Duplicate
// names are rejected, never merged.
func (s *Service) Create(ctx context.Context, req CreateSchoolRequest) (*model.School, error) {
	if _, err := s.store.GetSchoolByName(ctx, req.Name); err == nil {
		return nil, apperr.Conflict("Conflict: School already exists.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("Internal Server Error: Could not create school.", err)
	}

	school := &model.School{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Address:      req.Address,
		Resources:    req.Resources,
		SchoolAdmins: []string{},
		Classrooms:   []string{},
	}
	if err := s.store.CreateSchool(ctx, school); err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not create school.", err)
	}

	s.metrics.RecordSchoolCreated(ctx)
	s.publish("school", "created", school.ID, school.Name, school.ID)
	s.logger.Info("school created", "id", school.ID, "name", school.Name)
	return school, nil
}

func (s *Service) All(ctx context.Context) ([]model.School, error) {
	schools, err := s.store.ListSchools(ctx)
	if err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not retrieve schools.", err)
	}
	return schools, nil
}

func (s *Service) Details(ctx context.Context, schoolID string) (*model.School, error) {
	school, err := s.store.GetSchoolByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("School not found.")
		}
		return nil, apperr.Internal("Internal Server Error: Could not retrieve school details.", err)
	}
	return school, nil
}

// UpdateProfile applies the non-nil resource fields; everything else
// keeps its stored value.
func (s *Service) UpdateProfile(ctx context.Context, schoolID string, upd ResourcesUpdate) (*model.School, error) {
	school, err := s.store.GetSchoolByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("School not found.")
		}
		return nil, apperr.Internal("Internal Server Error: Could not update school resources.", err)
	}

	if upd.NumberOfBuses != nil {
		school.Resources.NumberOfBuses = *upd.NumberOfBuses
	}
	if upd.LibraryBooks != nil {
		school.Resources.LibraryBooks = *upd.LibraryBooks
	}
	if upd.SportsFacilities != nil {
		school.Resources.SportsFacilities = *upd.SportsFacilities
	}

	if err := s.store.UpdateSchool(ctx, school); err != nil {
		return nil, apperr.Internal("Internal Server Error: Could not update school resources.", err)
	}

	s.publish("school", "updated", school.ID, school.Name, school.ID)
	return school, nil
}

// AppendAdmin adds an admin-user id to the school's set. A duplicate id
// is a conflict, not a silent no-op.
func (s *Service) AppendAdmin(ctx context.Context, schoolID, adminID string) (*model.School, error) {
	var school *model.School
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		var err error
		school, err = tx.GetSchoolByID(ctx, schoolID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("School not found.")
			}
			return apperr.Internal("Internal Server Error: Could not add school admin.", err)
		}

		for _, id := range school.SchoolAdmins {
			if id == adminID {
				return apperr.Conflict("School admin already exists in this school.")
			}
		}
		school.SchoolAdmins = append(school.SchoolAdmins, adminID)
		if err := tx.UpdateSchool(ctx, school); err != nil {
			return apperr.Internal("Internal Server Error: Could not add school admin.", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return school, nil
}

// Delete removes the school and everything under it: students first,
// then classrooms, then admin users, then the school row. One unit of
// work; an abort at any step leaves the pre-delete state intact.
func (s *Service) Delete(ctx context.Context, schoolName string) error {
	var schoolID string
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		school, err := tx.GetSchoolByName(ctx, schoolName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("School not found.")
			}
			return apperr.Internal("Internal Server Error: Could not delete school and related entities.", err)
		}
		schoolID = school.ID

		classrooms, err := tx.ListClassroomsBySchool(ctx, school.ID)
		if err != nil {
			return apperr.Internal("Internal Server Error: Could not delete school and related entities.", err)
		}

		var studentIDs []string
		for _, classroom := range classrooms {
			studentIDs = append(studentIDs, classroom.Students...)
		}

		if err := tx.DeleteStudentsByIDs(ctx, studentIDs); err != nil {
			return apperr.Internal("Internal Server Error: Could not delete school and related entities.", err)
		}
		if err := tx.DeleteClassroomsBySchool(ctx, school.ID); err != nil {
			return apperr.Internal("Internal Server Error: Could not delete school and related entities.", err)
		}
		if err := tx.DeleteAdminUsersByIDs(ctx, school.SchoolAdmins); err != nil {
			return apperr.Internal("Internal Server Error: Could not delete school and related entities.", err)
		}
		if err := tx.DeleteSchool(ctx, school.ID); err != nil {
			return apperr.Internal("Internal Server Error: Could not delete school and related entities.", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordCascadeDelete(ctx, "school")
	s.publish("school", "deleted", schoolID, schoolName, schoolID)
	s.logger.Info("school deleted", "name", schoolName)
	return nil
}
