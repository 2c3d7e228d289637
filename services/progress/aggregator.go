package progress

import (
	"errors"
	"log"
	"math"
	"time"

	"lms/config"
	courseModels "lms/models/course"
	"lms/utils"

	"gorm.io/gorm"
)

// maxLockRetries bounds the optimistic-lock retry loop on the enrollment row.
const maxLockRetries = 3

// defaultBatchChunk bounds how many enrollments one batch pass loads at once.
const defaultBatchChunk = 200

// Recalculate recomputes one enrollment's completion percentage and status
// from its progress rows. It is deterministic and idempotent; the only write
// is the enrollment rollup, and only when something actually changed.
// A missing enrollment is a logged no-op: the trigger can race a removal.
//
// When the lock-version compare-and-swap loses to a concurrent trigger, the
// whole computation reruns, counts included, so a completion that landed in
// between is never folded away by a stale snapshot.
//
// The boolean reports whether this call transitioned the enrollment to
// COMPLETED. Side effects of completion (email, webhook) are the caller's to
// dispatch once its surrounding transaction has committed.
func Recalculate(db *gorm.DB, enrollmentID uint) (bool, error) {
	for attempt := 0; attempt < maxLockRetries; attempt++ {
		var enrollment courseModels.Enrollment
		if err := db.Where("id = ? AND is_deleted = ?", enrollmentID, false).First(&enrollment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[AGGREGATOR] Enrollment %d not found, skipping recalculation", enrollmentID)
				return false, nil
			}
			return false, err
		}

		lessonIDs, err := courseLessonIDs(db, enrollment.CourseID)
		if err != nil {
			return false, err
		}

		var completed int64
		if len(lessonIDs) > 0 {
			if err := db.Model(&courseModels.Progress{}).
				Where("enrollment_id = ? AND status = ? AND lesson_id IN ? AND is_deleted = ?",
					enrollment.ID, courseModels.ProgressCompleted, lessonIDs, false).
				Count(&completed).Error; err != nil {
				return false, err
			}
		}

		applied, justCompleted, err := applyRollup(db, &enrollment, len(lessonIDs), int(completed))
		if err != nil {
			return false, err
		}
		if applied {
			return justCompleted, nil
		}
		// Lost the race: another trigger moved the row. Loop back and recount.
	}

	return false, ErrAggregationConflict
}

// RecalculateBatch recalculates a set of enrollments in one call. Input ids
// are deduplicated so each distinct enrollment is aggregated exactly once,
// enrollments are grouped by course so the lesson denominator is loaded once
// per course, and a failure on one enrollment never aborts the others.
// The returned map has one entry per distinct requested id.
//
// Callers run this outside any transaction; completion side effects for
// enrollments that flip to COMPLETED are dispatched here.
func RecalculateBatch(db *gorm.DB, enrollmentIDs []uint) map[uint]error {
	results := make(map[uint]error, len(enrollmentIDs))

	distinct := make([]uint, 0, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		if _, seen := results[id]; seen {
			continue
		}
		results[id] = nil
		distinct = append(distinct, id)
	}

	chunk := defaultBatchChunk
	if config.AppConfig != nil && config.AppConfig.RecalcBatchMax > 0 {
		chunk = config.AppConfig.RecalcBatchMax
	}

	var completedIDs []uint
	for start := 0; start < len(distinct); start += chunk {
		end := start + chunk
		if end > len(distinct) {
			end = len(distinct)
		}
		completedIDs = append(completedIDs, recalculateChunk(db, distinct[start:end], results)...)
	}

	for _, id := range completedIDs {
		go utils.NotifyEnrollmentCompleted(id)
	}

	return results
}

// recalculateChunk aggregates one chunk of enrollments and returns the ids
// that transitioned to COMPLETED.
func recalculateChunk(db *gorm.DB, ids []uint, results map[uint]error) []uint {
	var enrollments []courseModels.Enrollment
	if err := db.Where("id IN ? AND is_deleted = ?", ids, false).Find(&enrollments).Error; err != nil {
		for _, id := range ids {
			results[id] = err
		}
		return nil
	}

	found := make(map[uint]bool, len(enrollments))
	byCourse := make(map[uint][]courseModels.Enrollment)
	for _, e := range enrollments {
		found[e.ID] = true
		byCourse[e.CourseID] = append(byCourse[e.CourseID], e)
	}
	for _, id := range ids {
		if !found[id] {
			// Same race tolerance as the single-enrollment path.
			log.Printf("[AGGREGATOR] Enrollment %d not found, skipping recalculation", id)
		}
	}

	var completedIDs []uint
	for courseID, group := range byCourse {
		lessonIDs, err := courseLessonIDs(db, courseID)
		if err != nil {
			for _, e := range group {
				results[e.ID] = err
			}
			continue
		}

		counts, err := completedCounts(db, group, lessonIDs)
		if err != nil {
			for _, e := range group {
				results[e.ID] = err
			}
			continue
		}

		for i := range group {
			e := group[i]
			applied, justCompleted, err := applyRollup(db, &e, len(lessonIDs), counts[e.ID])
			if err == nil && !applied {
				// A concurrent trigger moved this row since the batch load;
				// the single-enrollment path recounts from scratch.
				justCompleted, err = Recalculate(db, e.ID)
			}
			if err != nil {
				log.Printf("[AGGREGATOR] Recalculation failed for enrollment %d: %v", e.ID, err)
				results[e.ID] = err
				continue
			}
			if justCompleted {
				completedIDs = append(completedIDs, e.ID)
			}
		}
	}
	return completedIDs
}

// courseLessonIDs collects the denominator set: every published lesson under
// the course, across all of its modules.
func courseLessonIDs(db *gorm.DB, courseID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&courseModels.Lesson{}).
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Pluck("id", &ids).Error
	return ids, err
}

// completedCounts fetches completed-lesson counts for a group of enrollments
// of the same course with a single grouped query.
func completedCounts(db *gorm.DB, group []courseModels.Enrollment, lessonIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(group))
	if len(lessonIDs) == 0 {
		return counts, nil
	}

	enrollmentIDs := make([]uint, len(group))
	for i, e := range group {
		enrollmentIDs[i] = e.ID
	}

	var rows []struct {
		EnrollmentID uint
		Cnt          int64
	}
	err := db.Model(&courseModels.Progress{}).
		Select("enrollment_id, count(*) as cnt").
		Where("enrollment_id IN ? AND status = ? AND lesson_id IN ? AND is_deleted = ?",
			enrollmentIDs, courseModels.ProgressCompleted, lessonIDs, false).
		Group("enrollment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		counts[r.EnrollmentID] = int(r.Cnt)
	}
	return counts, nil
}

// applyRollup writes the computed percentage and status back onto the
// enrollment with a single lock-version compare-and-swap. It never retries:
// a stale snapshot must not be re-applied, so a lost race is reported back
// (applied=false) for the caller to recompute from fresh counts.
func applyRollup(db *gorm.DB, enrollment *courseModels.Enrollment, total, completed int) (applied, justCompleted bool, err error) {
	percentage := float64(0)
	if total > 0 {
		percentage = math.Round(float64(completed)/float64(total)*10000) / 100
	}

	status := courseModels.EnrollmentNotStarted
	switch {
	case percentage >= 100:
		status = courseModels.EnrollmentCompleted
	case percentage > 0:
		status = courseModels.EnrollmentInProgress
	}

	if enrollment.Percentage == percentage && enrollment.Status == status &&
		enrollment.TotalLessons == total && enrollment.CompletedLessons == completed {
		return true, false, nil
	}

	justCompleted = status == courseModels.EnrollmentCompleted && enrollment.Status != courseModels.EnrollmentCompleted

	updates := map[string]interface{}{
		"percentage":        percentage,
		"status":            status,
		"total_lessons":     total,
		"completed_lessons": completed,
		"lock_version":      enrollment.LockVersion + 1,
	}
	if justCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}

	res := db.Model(&courseModels.Enrollment{}).
		Where("id = ? AND lock_version = ?", enrollment.ID, enrollment.LockVersion).
		Updates(updates)
	if res.Error != nil {
		return false, false, res.Error
	}
	if res.RowsAffected != 1 {
		return false, false, nil
	}
	return true, justCompleted, nil
}
