package progress

import (
	"fmt"
	"testing"

	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// completeLessons marks the first n lessons completed for the enrollment
// directly, bypassing the recorder, so the aggregator is tested in isolation.
func completeLessons(t *testing.T, db *gorm.DB, enrollment courseModels.Enrollment, lessons []courseModels.Lesson, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		row := courseModels.Progress{
			UserID:       enrollment.UserID,
			LessonID:     lessons[i].ID,
			EnrollmentID: enrollment.ID,
			CourseID:     enrollment.CourseID,
			Status:       courseModels.ProgressCompleted,
		}
		require.NoError(t, db.Create(&row).Error)
	}
}

func TestRecalculateRollup(t *testing.T) {
	tests := []struct {
		name           string
		lessons        int
		completed      int
		wantPercentage float64
		wantStatus     string
	}{
		{"no progress", 4, 0, 0, courseModels.EnrollmentNotStarted},
		{"quarter done", 4, 1, 25.0, courseModels.EnrollmentInProgress},
		{"half done", 4, 2, 50.0, courseModels.EnrollmentInProgress},
		{"all done", 4, 4, 100.0, courseModels.EnrollmentCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			course, lessons := seedCourse(t, db, tt.lessons)
			enrollment := seedEnrollment(t, db, 1, course.ID)
			completeLessons(t, db, enrollment, lessons, tt.completed)

			completed, err := Recalculate(db, enrollment.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus == courseModels.EnrollmentCompleted, completed)

			var updated courseModels.Enrollment
			require.NoError(t, db.First(&updated, enrollment.ID).Error)
			assert.Equal(t, tt.wantPercentage, updated.Percentage)
			assert.Equal(t, tt.wantStatus, updated.Status)
			assert.Equal(t, tt.completed, updated.CompletedLessons)
			assert.Equal(t, tt.lessons, updated.TotalLessons)
		})
	}
}

func TestRecalculateRoundsToTwoDecimals(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 3)
	enrollment := seedEnrollment(t, db, 1, course.ID)
	completeLessons(t, db, enrollment, lessons, 1)

	_, err := Recalculate(db, enrollment.ID)
	require.NoError(t, err)

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, 33.33, updated.Percentage)
}

func TestRecalculateSetsCompletedAt(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 2)
	enrollment := seedEnrollment(t, db, 1, course.ID)
	completeLessons(t, db, enrollment, lessons, 2)

	completed, err := Recalculate(db, enrollment.ID)
	require.NoError(t, err)
	assert.True(t, completed)

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, courseModels.EnrollmentCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	// Recalculating an already completed enrollment keeps the original stamp
	// and must not report the transition a second time.
	stamp := *updated.CompletedAt
	completed, err = Recalculate(db, enrollment.ID)
	require.NoError(t, err)
	assert.False(t, completed)
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, stamp.Unix(), updated.CompletedAt.Unix())
}

func TestRecalculateZeroLessonCourse(t *testing.T) {
	db := setupTestDB(t)
	course, _ := seedCourse(t, db, 0)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	_, err := Recalculate(db, enrollment.ID)
	require.NoError(t, err)

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, 0.0, updated.Percentage)
	assert.Equal(t, courseModels.EnrollmentNotStarted, updated.Status)
	assert.Equal(t, 0, updated.TotalLessons)
}

func TestRecalculateIgnoresUnpublishedLessons(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 3)
	enrollment := seedEnrollment(t, db, 1, course.ID)
	completeLessons(t, db, enrollment, lessons, 1)

	// Unpublishing one of the remaining lessons shrinks the denominator to 2.
	require.NoError(t, db.Model(&lessons[2]).Update("is_published", false).Error)

	_, err := Recalculate(db, enrollment.ID)
	require.NoError(t, err)

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, 50.0, updated.Percentage)
	assert.Equal(t, 2, updated.TotalLessons)
}

func TestRecalculateMissingEnrollmentIsNoOp(t *testing.T) {
	db := setupTestDB(t)

	completed, err := Recalculate(db, 4242)
	assert.NoError(t, err)
	assert.False(t, completed)
}

func TestRecalculateBumpsLockVersion(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 2)
	enrollment := seedEnrollment(t, db, 1, course.ID)
	completeLessons(t, db, enrollment, lessons, 1)

	_, err := Recalculate(db, enrollment.ID)
	require.NoError(t, err)

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, enrollment.LockVersion+1, updated.LockVersion)

	// An unchanged rollup must not write at all.
	_, err = Recalculate(db, enrollment.ID)
	require.NoError(t, err)
	var again courseModels.Enrollment
	require.NoError(t, db.First(&again, enrollment.ID).Error)
	assert.Equal(t, updated.LockVersion, again.LockVersion)
}

// A racer holding a pre-race snapshot must not write its stale counts over a
// newer rollup, and must not report success for values it never persisted.
func TestRollupRefusesStaleSnapshot(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 4)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	// Snapshot taken before any completion: lock version still at zero.
	var stale courseModels.Enrollment
	require.NoError(t, db.First(&stale, enrollment.ID).Error)

	completeLessons(t, db, enrollment, lessons, 1)
	_, err := Recalculate(db, enrollment.ID)
	require.NoError(t, err)

	// A second completion lands before the racer gets to write.
	completeLessons(t, db, enrollment, lessons[1:], 1)

	// The racer replays its stale computation (1 of 4 completed). The CAS
	// must miss and nothing may change on the row.
	applied, justCompleted, err := applyRollup(db, &stale, 4, 1)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, justCompleted)

	var row courseModels.Enrollment
	require.NoError(t, db.First(&row, enrollment.ID).Error)
	assert.Equal(t, 25.0, row.Percentage)
	assert.Equal(t, 1, row.CompletedLessons)

	// The losing racer recovers through Recalculate, which recounts from
	// scratch instead of re-applying the snapshot: both completions survive.
	_, err = Recalculate(db, enrollment.ID)
	require.NoError(t, err)
	require.NoError(t, db.First(&row, enrollment.ID).Error)
	assert.Equal(t, 50.0, row.Percentage)
	assert.Equal(t, 2, row.CompletedLessons)
}

func TestRecalculateBatchDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 2)

	enrollments := make([]courseModels.Enrollment, 10)
	for i := range enrollments {
		enrollments[i] = seedEnrollment(t, db, uint(i+1), course.ID)
		completeLessons(t, db, enrollments[i], lessons, 1)
	}

	// 50 trigger events across 10 enrollments collapse to 10 aggregations.
	ids := make([]uint, 0, 50)
	for i := 0; i < 5; i++ {
		for _, e := range enrollments {
			ids = append(ids, e.ID)
		}
	}

	results := RecalculateBatch(db, ids)
	assert.Len(t, results, 10)

	for _, e := range enrollments {
		assert.NoError(t, results[e.ID])

		var updated courseModels.Enrollment
		require.NoError(t, db.First(&updated, e.ID).Error)
		assert.Equal(t, 50.0, updated.Percentage)
		assert.Equal(t, courseModels.EnrollmentInProgress, updated.Status)
	}
}

func TestRecalculateBatchIsolatesMissing(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 2)
	enrollment := seedEnrollment(t, db, 1, course.ID)
	completeLessons(t, db, enrollment, lessons, 2)

	results := RecalculateBatch(db, []uint{enrollment.ID, 9999})
	assert.Len(t, results, 2)
	assert.NoError(t, results[enrollment.ID])
	assert.NoError(t, results[9999])

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, 100.0, updated.Percentage)
}

func TestRecalculateBatchGroupsByCourse(t *testing.T) {
	db := setupTestDB(t)

	var all []uint
	for c := 0; c < 3; c++ {
		course, lessons := seedCourse(t, db, 4)
		for u := 0; u < 2; u++ {
			enrollment := seedEnrollment(t, db, uint(c*10+u+1), course.ID)
			completeLessons(t, db, enrollment, lessons, c+1)
			all = append(all, enrollment.ID)
		}
	}

	results := RecalculateBatch(db, all)
	assert.Len(t, results, 6)
	for id, err := range results {
		assert.NoError(t, err, fmt.Sprintf("enrollment %d", id))
	}

	var enrollments []courseModels.Enrollment
	require.NoError(t, db.Where("id IN ?", all).Order("id asc").Find(&enrollments).Error)
	wantPercent := []float64{25.0, 25.0, 50.0, 50.0, 75.0, 75.0}
	for i, e := range enrollments {
		assert.Equal(t, wantPercent[i], e.Percentage)
	}
}
