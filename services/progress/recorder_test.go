package progress

import (
	"fmt"
	"testing"

	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&courseModels.Course{},
		&courseModels.Module{},
		&courseModels.Lesson{},
		&courseModels.Enrollment{},
		&courseModels.Progress{},
		&courseModels.Quiz{},
		&courseModels.Question{},
		&courseModels.Option{},
		&courseModels.Attempt{},
	))

	return db
}

// seedCourse creates a published course with the given number of published
// lessons under a single module and returns it with its lessons.
func seedCourse(t *testing.T, db *gorm.DB, lessonCount int) (courseModels.Course, []courseModels.Lesson) {
	t.Helper()

	course := courseModels.Course{Title: "Test Course", Status: "ACTIVE", IsPublished: true}
	require.NoError(t, db.Create(&course).Error)

	module := courseModels.Module{CourseID: course.ID, Title: "Module One"}
	require.NoError(t, db.Create(&module).Error)

	lessons := make([]courseModels.Lesson, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lessons[i] = courseModels.Lesson{
			ModuleID:    module.ID,
			CourseID:    course.ID,
			Title:       fmt.Sprintf("Lesson %d", i+1),
			ContentType: courseModels.LessonText,
			TextContent: "content",
			IsPublished: true,
		}
		require.NoError(t, db.Create(&lessons[i]).Error)
	}

	return course, lessons
}

func seedEnrollment(t *testing.T, db *gorm.DB, userID, courseID uint) courseModels.Enrollment {
	t.Helper()

	enrollment := courseModels.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   courseModels.EnrollmentNotStarted,
	}
	require.NoError(t, db.Create(&enrollment).Error)
	return enrollment
}

func loadProgressRow(t *testing.T, db *gorm.DB, userID, lessonID, enrollmentID uint) courseModels.Progress {
	t.Helper()

	var row courseModels.Progress
	require.NoError(t, db.Where("user_id = ? AND lesson_id = ? AND enrollment_id = ?",
		userID, lessonID, enrollmentID).First(&row).Error)
	return row
}

func TestStartLessonCreatesRow(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 3)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	require.NoError(t, StartLesson(db, 1, lessons[0].ID, enrollment.ID))

	row := loadProgressRow(t, db, 1, lessons[0].ID, enrollment.ID)
	assert.Equal(t, courseModels.ProgressInProgress, row.Status)
	assert.NotNil(t, row.StartedOn)
	assert.Nil(t, row.CompletedOn)
}

func TestStartLessonIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 3)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	require.NoError(t, StartLesson(db, 1, lessons[0].ID, enrollment.ID))
	first := loadProgressRow(t, db, 1, lessons[0].ID, enrollment.ID)

	require.NoError(t, StartLesson(db, 1, lessons[0].ID, enrollment.ID))
	second := loadProgressRow(t, db, 1, lessons[0].ID, enrollment.ID)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, courseModels.ProgressInProgress, second.Status)

	var count int64
	db.Model(&courseModels.Progress{}).
		Where("user_id = ? AND lesson_id = ? AND enrollment_id = ?", 1, lessons[0].ID, enrollment.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestStartLessonNeverRegressesCompleted(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 3)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	_, err := CompleteLesson(db, 1, lessons[0].ID, enrollment.ID)
	require.NoError(t, err)
	require.NoError(t, StartLesson(db, 1, lessons[0].ID, enrollment.ID))

	row := loadProgressRow(t, db, 1, lessons[0].ID, enrollment.ID)
	assert.Equal(t, courseModels.ProgressCompleted, row.Status)
	assert.NotNil(t, row.CompletedOn)
}

func TestCompleteLessonUpdatesRollup(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 4)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	_, err := CompleteLesson(db, 1, lessons[0].ID, enrollment.ID)
	require.NoError(t, err)

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, 25.0, updated.Percentage)
	assert.Equal(t, courseModels.EnrollmentInProgress, updated.Status)
	assert.Equal(t, 1, updated.CompletedLessons)
	assert.Equal(t, 4, updated.TotalLessons)
}

func TestCompleteLessonIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 4)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	_, err := CompleteLesson(db, 1, lessons[0].ID, enrollment.ID)
	require.NoError(t, err)
	_, err = CompleteLesson(db, 1, lessons[0].ID, enrollment.ID)
	require.NoError(t, err)

	var count int64
	db.Model(&courseModels.Progress{}).
		Where("user_id = ? AND lesson_id = ? AND enrollment_id = ?", 1, lessons[0].ID, enrollment.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, 25.0, updated.Percentage)
	assert.Equal(t, 1, updated.CompletedLessons)
}

func TestCompleteLessonBackfillsStartedOn(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 2)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	// Completing without an explicit start still records when work began.
	_, err := CompleteLesson(db, 1, lessons[0].ID, enrollment.ID)
	require.NoError(t, err)

	row := loadProgressRow(t, db, 1, lessons[0].ID, enrollment.ID)
	assert.NotNil(t, row.StartedOn)
	assert.NotNil(t, row.CompletedOn)
}

// Completion side effects hang off the returned flag, so it must flip to
// true exactly once: on the completion that finishes the course, after the
// transaction is already committed.
func TestCompleteLessonReportsCourseCompletion(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 2)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	completed, err := CompleteLesson(db, 1, lessons[0].ID, enrollment.ID)
	require.NoError(t, err)
	assert.False(t, completed)

	completed, err = CompleteLesson(db, 1, lessons[1].ID, enrollment.ID)
	require.NoError(t, err)
	assert.True(t, completed)

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, courseModels.EnrollmentCompleted, updated.Status)

	// Re-completing a lesson of a finished course is not a new transition.
	completed, err = CompleteLesson(db, 1, lessons[1].ID, enrollment.ID)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestStartLessonUnknownEnrollment(t *testing.T) {
	db := setupTestDB(t)
	_, lessons := seedCourse(t, db, 2)

	err := StartLesson(db, 1, lessons[0].ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartLessonForeignEnrollment(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 2)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	// User 2 must not be able to write progress under user 1's enrollment.
	err := StartLesson(db, 2, lessons[0].ID, enrollment.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartLessonFromAnotherCourse(t *testing.T) {
	db := setupTestDB(t)
	course, _ := seedCourse(t, db, 2)
	_, otherLessons := seedCourse(t, db, 2)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	err := StartLesson(db, 1, otherLessons[0].ID, enrollment.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartLessonUnpublished(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 2)
	enrollment := seedEnrollment(t, db, 1, course.ID)

	require.NoError(t, db.Model(&lessons[0]).Update("is_published", false).Error)

	err := StartLesson(db, 1, lessons[0].ID, enrollment.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProgressIsolatedPerEnrollment(t *testing.T) {
	db := setupTestDB(t)
	course, lessons := seedCourse(t, db, 2)
	first := seedEnrollment(t, db, 1, course.ID)
	second := seedEnrollment(t, db, 2, course.ID)

	_, err := CompleteLesson(db, 1, lessons[0].ID, first.ID)
	require.NoError(t, err)

	var other courseModels.Enrollment
	require.NoError(t, db.First(&other, second.ID).Error)
	assert.Equal(t, 0.0, other.Percentage)
	assert.Equal(t, courseModels.EnrollmentNotStarted, other.Status)

	var count int64
	db.Model(&courseModels.Progress{}).Where("enrollment_id = ?", second.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
