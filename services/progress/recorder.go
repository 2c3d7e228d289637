package progress

import (
	"errors"
	"time"

	courseModels "lms/models/course"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the enrollment or lesson the caller named
	// does not exist or does not belong together.
	ErrNotFound = errors.New("record not found")

	// ErrAggregationConflict is returned when the enrollment rollup lost the
	// optimistic-lock race too many times. Callers may retry the trigger.
	ErrAggregationConflict = errors.New("enrollment update conflict")
)

// StartLesson marks a lesson as in progress for one specific enrollment.
// The progress row is created lazily on first interaction. Calling it again
// after the lesson was started or completed is a no-op.
func StartLesson(db *gorm.DB, userID, lessonID, enrollmentID uint) error {
	enrollment, lesson, err := resolvePair(db, userID, lessonID, enrollmentID)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		row, err := loadOrCreateRow(tx, userID, lesson.ID, enrollment.ID, enrollment.CourseID)
		if err != nil {
			return err
		}

		// Forward-only transitions: started and completed rows stay put.
		if row.Status != courseModels.ProgressNotStarted {
			return nil
		}

		now := time.Now()
		return tx.Model(row).Updates(map[string]interface{}{
			"status":     courseModels.ProgressInProgress,
			"started_on": &now,
		}).Error
	})
}

// CompleteLesson marks a lesson as completed for one specific enrollment and
// recalculates the enrollment rollup within the same transaction, so the
// percentage a caller reads afterwards always reflects this completion.
// Completing an already-completed lesson re-stamps CompletedOn and recomputes
// the same rollup; it never regresses state.
//
// The boolean reports whether this completion pushed the whole enrollment to
// COMPLETED. Callers dispatch the completion side effects after their
// outermost transaction commits, never before.
func CompleteLesson(db *gorm.DB, userID, lessonID, enrollmentID uint) (bool, error) {
	enrollment, lesson, err := resolvePair(db, userID, lessonID, enrollmentID)
	if err != nil {
		return false, err
	}

	var courseCompleted bool
	err = db.Transaction(func(tx *gorm.DB) error {
		row, err := loadOrCreateRow(tx, userID, lesson.ID, enrollment.ID, enrollment.CourseID)
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":       courseModels.ProgressCompleted,
			"completed_on": &now,
		}
		if row.StartedOn == nil {
			updates["started_on"] = &now
		}
		if err := tx.Model(row).Updates(updates).Error; err != nil {
			return err
		}

		courseCompleted, err = Recalculate(tx, enrollment.ID)
		return err
	})
	if err != nil {
		return false, err
	}
	return courseCompleted, nil
}

// resolvePair checks that the enrollment belongs to the user and the lesson
// belongs to the enrollment's course. Progress must never attach to a foreign
// enrollment, so both lookups are strict.
func resolvePair(db *gorm.DB, userID, lessonID, enrollmentID uint) (*courseModels.Enrollment, *courseModels.Lesson, error) {
	var enrollment courseModels.Enrollment
	if err := db.Where("id = ? AND user_id = ? AND is_deleted = ?", enrollmentID, userID, false).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var lesson courseModels.Lesson
	if err := db.Where("id = ? AND course_id = ? AND is_deleted = ? AND is_published = ?", lessonID, enrollment.CourseID, false, true).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	return &enrollment, &lesson, nil
}

// loadOrCreateRow finds the unique progress row for (user, lesson, enrollment),
// creating it in NOT_STARTED state when absent.
func loadOrCreateRow(tx *gorm.DB, userID, lessonID, enrollmentID, courseID uint) (*courseModels.Progress, error) {
	var row courseModels.Progress
	err := tx.Where("user_id = ? AND lesson_id = ? AND enrollment_id = ? AND is_deleted = ?",
		userID, lessonID, enrollmentID, false).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row = courseModels.Progress{
		UserID:       userID,
		LessonID:     lessonID,
		EnrollmentID: enrollmentID,
		CourseID:     courseID,
		Status:       courseModels.ProgressNotStarted,
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
