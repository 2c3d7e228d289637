package course

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses
const (
	EnrollmentNotStarted = "NOT_STARTED"
	EnrollmentInProgress = "IN_PROGRESS"
	EnrollmentCompleted  = "COMPLETED"
)

// Enrollment tracks a user's registration in a course with rolled-up progress.
// A user has at most one active (non-retired) enrollment per course; finishing
// a course and enrolling again retires the old row and starts a fresh one, so
// Percentage and Status always belong to exactly one enrollment instance.
type Enrollment struct {
	gorm.Model
	UserID           uint       `json:"user_id" gorm:"index;not null"`
	CourseID         uint       `json:"course_id" gorm:"index;not null"`
	Status           string     `json:"status" gorm:"default:'NOT_STARTED'"`
	Percentage       float64    `json:"percentage" gorm:"default:0"` // 0-100, two decimals
	CompletedLessons int        `json:"completed_lessons" gorm:"default:0"`
	TotalLessons     int        `json:"total_lessons" gorm:"default:0"`
	CompletedAt      *time.Time `json:"completed_at"`
	IsRetired        bool       `json:"is_retired" gorm:"default:false"`
	LockVersion      int        `json:"-" gorm:"default:0"` // optimistic concurrency on recalculation
	IsDeleted        bool       `gorm:"default:false"`
}
