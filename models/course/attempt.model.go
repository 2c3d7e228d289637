package course

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Attempt is the immutable record of one graded quiz submission. Rows are
// insert-only; a new attempt supersedes, never edits, an earlier one.
// Selections holds the per-question selected option ids as JSON for review.
// The attempt sequence is unique per (quiz, user, enrollment) so two racing
// submissions can never persist the same attempt number.
type Attempt struct {
	gorm.Model
	QuizID        uint           `json:"quiz_id" gorm:"not null;uniqueIndex:idx_attempt_seq"`
	UserID        uint           `json:"user_id" gorm:"not null;uniqueIndex:idx_attempt_seq"`
	EnrollmentID  uint           `json:"enrollment_id" gorm:"index;not null;uniqueIndex:idx_attempt_seq"`
	AttemptNumber int            `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempt_seq"`
	Score         int            `json:"score"`
	MaxScore      int            `json:"max_score"`
	Passed        bool           `json:"passed" gorm:"default:false"`
	Selections    datatypes.JSON `json:"selections"`
	IsDeleted     bool           `gorm:"default:false"`
}
