// Package model holds the persistent record kinds. The id sets on School
// and Classroom are the owning side of each parent/child link; the
// schoolId / classroomId columns on the children are the back-references
// used for integrity checks and cascade traversal.
package model

import (
	"time"

	"github.com/uptrace/bun"
)

// Role names for AdminUser.
const (
	RoleSuperAdmin  = "SuperAdmin"
	RoleSchoolAdmin = "SchoolAdmin"
)

type SchoolResources struct {
	NumberOfBuses    int  `bun:"number_of_buses,notnull,default:0" json:"numberOfBuses"`
	LibraryBooks     int  `bun:"library_books,notnull,default:0" json:"libraryBooks"`
	SportsFacilities bool `bun:"sports_facilities,notnull,default:false" json:"sportsFacilities"`
}

type School struct {
	bun.BaseModel `bun:"table:schools,alias:sc"`

	ID        string          `bun:"id,pk,type:uuid" json:"id"`
	Name      string          `bun:"name,notnull,unique" json:"name"`
	Address   string          `bun:"address,notnull" json:"address"`
	Resources SchoolResources `bun:"embed:resource_" json:"resources"`
	// Ids of AdminUser rows managing this school. Invariant: cascade-deleted
	// with the school.
	SchoolAdmins []string `bun:"school_admins,array,type:uuid[]" json:"schoolAdmins"`
	// Ids of Classroom rows owned by this school. Invariant: every listed
	// classroom has SchoolID == this school's ID.
	Classrooms []string  `bun:"classrooms,array,type:uuid[]" json:"classrooms"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

type ClassroomResources struct {
	Capacity            int  `bun:"capacity,notnull,default:0" json:"capacity"`
	NumberOfDesks       int  `bun:"number_of_desks,notnull,default:0" json:"numberOfDesks"`
	SmartBoardAvailable bool `bun:"smart_board_available,notnull,default:false" json:"smartBoardAvailable"`
}

type Classroom struct {
	bun.BaseModel `bun:"table:classrooms,alias:cr"`

	ID        string             `bun:"id,pk,type:uuid" json:"id"`
	Name      string             `bun:"name,notnull" json:"name"`
	SchoolID  string             `bun:"school_id,notnull,type:uuid" json:"schoolId"`
	Resources ClassroomResources `bun:"embed:resource_" json:"resources"`
	// Ids of Student rows enrolled here. Invariant: every listed student
	// has ClassroomID == this classroom's ID.
	Students  []string  `bun:"students,array,type:uuid[]" json:"students"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

type StudentResources struct {
	NumberOfCoursesTaken      int      `bun:"number_of_courses_taken,notnull,default:0" json:"numberOfCoursesTaken" validate:"gte=0"`
	AttendancePercentage      float64  `bun:"attendance_percentage,notnull,default:0" json:"attendancePercentage" validate:"gte=0,lte=100"`
	ExtraCurricularActivities []string `bun:"extra_curricular_activities,array,type:text[]" json:"extraCurricularActivities"`
}

type Student struct {
	bun.BaseModel `bun:"table:students,alias:st"`

	ID          string `bun:"id,pk,type:uuid" json:"id"`
	Name        string `bun:"name,notnull,unique" json:"name"`
	Age         int    `bun:"age,notnull" json:"age"`
	ClassroomID string `bun:"classroom_id,notnull,type:uuid" json:"classroomId"`
	// Denormalized copy of the owning classroom's school. Kept consistent
	// by TransferStudent; there is no classroom-reassignment operation
	// that could make it drift.
	SchoolID       string           `bun:"school_id,notnull,type:uuid" json:"schoolId"`
	EnrollmentDate time.Time        `bun:"enrollment_date,notnull,default:current_timestamp" json:"enrollmentDate"`
	Resources      StudentResources `bun:"embed:resource_" json:"resources"`
	CreatedAt      time.Time        `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time        `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

type AdminUser struct {
	bun.BaseModel `bun:"table:admin_users,alias:au"`

	ID       string `bun:"id,pk,type:uuid" json:"id"`
	Username string `bun:"username,notnull,unique" json:"username"`
	Email    string `bun:"email,notnull,unique" json:"email"`
	// bcrypt hash, never the plaintext.
	Password string `bun:"password,notnull" json:"-"`
	Role     string `bun:"role,notnull" json:"role"`
	// Required for SchoolAdmin, nil for SuperAdmin.
	SchoolID  *string   `bun:"school_id,type:uuid" json:"schoolId,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// RefreshToken is the single live session record per user. Issuing a new
// one deletes all prior rows for that user in the same transaction.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        string    `bun:"id,pk,type:uuid" json:"id"`
	UserID    string    `bun:"user_id,notnull,type:uuid" json:"userId"`
	Token     string    `bun:"token,notnull,unique" json:"token"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
