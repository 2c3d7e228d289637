package course

import (
	"time"

	"gorm.io/gorm"
)

// Progress statuses
const (
	ProgressNotStarted = "NOT_STARTED"
	ProgressInProgress = "IN_PROGRESS"
	ProgressCompleted  = "COMPLETED"
)

// Progress records completion of one lesson under one specific enrollment.
// The unique index includes the enrollment id: the same user re-enrolling in
// a course gets fresh progress rows, never the old ones.
type Progress struct {
	gorm.Model
	UserID       uint       `json:"user_id" gorm:"uniqueIndex:idx_user_lesson_enrollment;not null"`
	LessonID     uint       `json:"lesson_id" gorm:"uniqueIndex:idx_user_lesson_enrollment;not null"`
	EnrollmentID uint       `json:"enrollment_id" gorm:"uniqueIndex:idx_user_lesson_enrollment;index;not null"`
	CourseID     uint       `json:"course_id" gorm:"index;not null"`
	Status       string     `json:"status" gorm:"default:'NOT_STARTED'"`
	StartedOn    *time.Time `json:"started_on"`
	CompletedOn  *time.Time `json:"completed_on"`
	IsDeleted    bool       `gorm:"default:false"`
}
