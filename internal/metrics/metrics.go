package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the service counters plus the database query recorder.
// A zero-value Metrics (NewMock) is safe to call and records nothing.
type Metrics struct {
	schoolsCreated      metric.Int64Counter
	classroomsCreated   metric.Int64Counter
	studentsEnrolled    metric.Int64Counter
	studentsTransferred metric.Int64Counter
	cascadeDeletes      metric.Int64Counter
	logins              metric.Int64Counter

	queryDuration metric.Float64Histogram
	queryErrors   metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.schoolsCreated, err = meter.Int64Counter(
		"school_service.schools.created",
		metric.WithDescription("Total number of schools created"),
		metric.WithUnit("{school}"),
	)
	if err != nil {
		return nil, err
	}

	m.classroomsCreated, err = meter.Int64Counter(
		"school_service.classrooms.created",
		metric.WithDescription("Total number of classrooms created"),
		metric.WithUnit("{classroom}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsEnrolled, err = meter.Int64Counter(
		"school_service.students.enrolled",
		metric.WithDescription("Total number of students enrolled"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsTransferred, err = meter.Int64Counter(
		"school_service.students.transferred",
		metric.WithDescription("Total number of students transferred between schools"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.cascadeDeletes, err = meter.Int64Counter(
		"school_service.cascade_deletes",
		metric.WithDescription("Total number of cascading delete operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	m.logins, err = meter.Int64Counter(
		"school_service.logins",
		metric.WithDescription("Total number of successful logins"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, err
	}

	m.queryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.queryErrors, err = meter.Int64Counter(
		"db.query.errors",
		metric.WithDescription("Total number of failed database queries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// NewNoop returns a Metrics backed by the no-op meter, used when metrics
// are disabled.
func NewNoop() *Metrics {
	m, _ := New(noop.NewMeterProvider().Meter("school-service"))
	return m
}

// NewMock creates a no-op Metrics instance for testing.
// The returned Metrics will safely ignore all Record* calls.
func NewMock() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordSchoolCreated(ctx context.Context) {
	if m != nil && m.schoolsCreated != nil {
		m.schoolsCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordClassroomCreated(ctx context.Context) {
	if m != nil && m.classroomsCreated != nil {
		m.classroomsCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordStudentEnrolled(ctx context.Context) {
	if m != nil && m.studentsEnrolled != nil {
		m.studentsEnrolled.Add(ctx, 1)
	}
}

func (m *Metrics) RecordStudentTransferred(ctx context.Context) {
	if m != nil && m.studentsTransferred != nil {
		m.studentsTransferred.Add(ctx, 1)
	}
}

func (m *Metrics) RecordCascadeDelete(ctx context.Context, entity string) {
	if m != nil && m.cascadeDeletes != nil {
		m.cascadeDeletes.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entity)))
	}
}

func (m *Metrics) RecordLogin(ctx context.Context) {
	if m != nil && m.logins != nil {
		m.logins.Add(ctx, 1)
	}
}

// RecordQuery records one database round trip.
func (m *Metrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("table", table),
	)
	if m.queryDuration != nil {
		m.queryDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil && m.queryErrors != nil {
		m.queryErrors.Add(ctx, 1, attrs)
	}
}
