package quiz

import (
	"fmt"
	"testing"

	courseModels "lms/models/course"
	"lms/services/progress"

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

type fixture struct {
	course     courseModels.Course
	lessons    []courseModels.Lesson
	enrollment courseModels.Enrollment
	quiz       courseModels.Quiz
	questions  []courseModels.Question
	// correct[i] / wrong[i] are the options of questions[i]
	correct []courseModels.Option
	wrong   []courseModels.Option
}

// seedQuiz creates a course with published lessons, an enrollment for user 1
// and an active quiz with one correct and one wrong option per question.
// When lessonScoped is true the quiz attaches to the first lesson, otherwise
// to the whole course.
func seedQuiz(t *testing.T, db *gorm.DB, lessonCount, questionCount int, lessonScoped bool, mutate func(*courseModels.Quiz)) fixture {
	t.Helper()

	f := fixture{}

	f.course = courseModels.Course{Title: "Quiz Course", Status: "ACTIVE", IsPublished: true}
	require.NoError(t, db.Create(&f.course).Error)

	module := courseModels.Module{CourseID: f.course.ID, Title: "Module One"}
	require.NoError(t, db.Create(&module).Error)

	f.lessons = make([]courseModels.Lesson, lessonCount)
	for i := 0; i < lessonCount; i++ {
		f.lessons[i] = courseModels.Lesson{
			ModuleID:    module.ID,
			CourseID:    f.course.ID,
			Title:       fmt.Sprintf("Lesson %d", i+1),
			ContentType: courseModels.LessonText,
			IsPublished: true,
		}
		require.NoError(t, db.Create(&f.lessons[i]).Error)
	}

	f.enrollment = courseModels.Enrollment{UserID: 1, CourseID: f.course.ID, Status: courseModels.EnrollmentNotStarted}
	require.NoError(t, db.Create(&f.enrollment).Error)

	f.quiz = courseModels.Quiz{
		Title:        "Checkpoint",
		PassingScore: 50,
		AllowRetakes: true,
		Mode:         courseModels.QuizStandard,
		IsActive:     true,
	}
	if lessonScoped {
		f.quiz.LessonID = f.lessons[0].ID
	} else {
		f.quiz.CourseID = f.course.ID
	}
	if mutate != nil {
		mutate(&f.quiz)
	}
	require.NoError(t, db.Create(&f.quiz).Error)

	f.questions = make([]courseModels.Question, questionCount)
	f.correct = make([]courseModels.Option, questionCount)
	f.wrong = make([]courseModels.Option, questionCount)
	for i := 0; i < questionCount; i++ {
		f.questions[i] = courseModels.Question{
			QuizID:      f.quiz.ID,
			Text:        fmt.Sprintf("Question %d", i+1),
			Points:      1,
			Required:    true,
			Explanation: fmt.Sprintf("Explanation %d", i+1),
		}
		require.NoError(t, db.Create(&f.questions[i]).Error)

		f.correct[i] = courseModels.Option{QuestionID: f.questions[i].ID, Text: "right", IsCorrect: true}
		require.NoError(t, db.Create(&f.correct[i]).Error)
		f.wrong[i] = courseModels.Option{QuestionID: f.questions[i].ID, Text: "wrong"}
		require.NoError(t, db.Create(&f.wrong[i]).Error)
	}

	return f
}

func (f fixture) answer(pickCorrect ...bool) []Response {
	responses := make([]Response, len(pickCorrect))
	for i, right := range pickCorrect {
		opt := f.wrong[i].ID
		if right {
			opt = f.correct[i].ID
		}
		responses[i] = Response{QuestionID: f.questions[i].ID, SelectedOptionIDs: []uint{opt}}
	}
	return responses
}

func TestGradeScoresDeterministically(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 2, false, nil)

	result, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true, false))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.MaxScore)
	assert.True(t, result.Passed) // 1/2 = 50% meets a passing score of 50
	assert.Equal(t, 1, result.AttemptNumber)
	assert.NotZero(t, result.AttemptID)
}

func TestGradeFailsBelowPassingScore(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 2, false, func(q *courseModels.Quiz) { q.PassingScore = 60 })

	result, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true, false))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Score)
	assert.False(t, result.Passed)
}

func TestGradePersistsAttempts(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 2, false, nil)

	_, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(false, false))
	require.NoError(t, err)
	second, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true, true))
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNumber)

	var attempts []courseModels.Attempt
	require.NoError(t, db.Where("quiz_id = ? AND enrollment_id = ?", f.quiz.ID, f.enrollment.ID).
		Order("attempt_number asc").Find(&attempts).Error)
	require.Len(t, attempts, 2)
	assert.Equal(t, 0, attempts[0].Score)
	assert.False(t, attempts[0].Passed)
	assert.Equal(t, 2, attempts[1].Score)
	assert.True(t, attempts[1].Passed)
	assert.NotEmpty(t, attempts[1].Selections)
}

func TestGradeEnforcesAttemptLimit(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 1, false, func(q *courseModels.Quiz) { q.MaxAttempts = 1 })

	_, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(false))
	require.NoError(t, err)

	_, err = Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true))
	assert.ErrorIs(t, err, ErrNotEligible)

	// The refused submission must not leave an attempt behind.
	var count int64
	db.Model(&courseModels.Attempt{}).Where("quiz_id = ?", f.quiz.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGradeRefusesRetakes(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 1, false, func(q *courseModels.Quiz) { q.AllowRetakes = false })

	// The policy must survive the INSERT: a false written through Create has
	// to come back as false, or retakes become unenforceable.
	var stored courseModels.Quiz
	require.NoError(t, db.First(&stored, f.quiz.ID).Error)
	require.False(t, stored.AllowRetakes)

	_, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true))
	require.NoError(t, err)

	_, err = Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true))
	assert.ErrorIs(t, err, ErrRetakeNotAllowed)
}

func TestGradeRequiresAnswersForRequiredQuestions(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 2, false, nil)

	_, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true)[:1])
	assert.ErrorIs(t, err, ErrIncompleteSubmission)

	var count int64
	db.Model(&courseModels.Attempt{}).Where("quiz_id = ?", f.quiz.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGradeSkipsOptionalQuestions(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 1, false, nil)

	// Created the same way AddQuestion does, straight through the model, so
	// the optional flag has to round-trip as false.
	optional := courseModels.Question{QuizID: f.quiz.ID, Text: "Optional", Points: 1, Required: false}
	require.NoError(t, db.Create(&optional).Error)
	require.NoError(t, db.Create(&courseModels.Option{QuestionID: optional.ID, Text: "right", IsCorrect: true}).Error)
	require.NoError(t, db.Create(&courseModels.Option{QuestionID: optional.ID, Text: "wrong"}).Error)

	var stored courseModels.Question
	require.NoError(t, db.First(&stored, optional.ID).Error)
	require.False(t, stored.Required)

	result, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true))
	require.NoError(t, err)

	// The unanswered optional question still counts toward the denominator.
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.MaxScore)
}

func TestGradeStandardModeWithholdsCorrectness(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 2, false, nil)

	result, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true, false))
	require.NoError(t, err)

	assert.Empty(t, result.QuestionResults)
	assert.Equal(t, 1, result.Score)
}

func TestGradeTrainingModeReturnsFeedback(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 2, false, func(q *courseModels.Quiz) { q.Mode = courseModels.QuizTraining })

	result, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true, false))
	require.NoError(t, err)

	require.Len(t, result.QuestionResults, 2)
	assert.True(t, result.QuestionResults[0].Correct)
	assert.Equal(t, 1, result.QuestionResults[0].Awarded)
	assert.Equal(t, "Explanation 1", result.QuestionResults[0].Explanation)
	assert.False(t, result.QuestionResults[1].Correct)
	assert.Equal(t, 0, result.QuestionResults[1].Awarded)
}

func TestGradeMultiSelectMustMatchExactly(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 1, false, nil)

	// Selecting the correct option together with a wrong one earns nothing.
	responses := []Response{{
		QuestionID:        f.questions[0].ID,
		SelectedOptionIDs: []uint{f.correct[0].ID, f.wrong[0].ID},
	}}
	result, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, responses)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
}

func TestGradePassedLessonQuizCompletesLesson(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 2, 1, true, nil)

	result, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true))
	require.NoError(t, err)
	require.True(t, result.Passed)

	var row courseModels.Progress
	require.NoError(t, db.Where("user_id = ? AND lesson_id = ? AND enrollment_id = ?",
		1, f.lessons[0].ID, f.enrollment.ID).First(&row).Error)
	assert.Equal(t, courseModels.ProgressCompleted, row.Status)

	// The rollup reflects the quiz pass in the same transaction.
	var enrollment courseModels.Enrollment
	require.NoError(t, db.First(&enrollment, f.enrollment.ID).Error)
	assert.Equal(t, 50.0, enrollment.Percentage)
	assert.Equal(t, courseModels.EnrollmentInProgress, enrollment.Status)
}

func TestGradeFailedLessonQuizLeavesLessonAlone(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 2, 1, true, nil)

	result, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(false))
	require.NoError(t, err)
	require.False(t, result.Passed)

	var count int64
	db.Model(&courseModels.Progress{}).Where("enrollment_id = ?", f.enrollment.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGradeInactiveQuiz(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 1, false, nil)
	require.NoError(t, db.Model(&f.quiz).Update("is_active", false).Error)

	_, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGradeForeignEnrollment(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 1, false, nil)

	_, err := Grade(db, f.quiz.ID, 2, f.enrollment.ID, f.answer(true))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGradeQuizFromAnotherCourse(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 1, false, nil)
	other := seedQuiz(t, db, 1, 1, false, nil)

	_, err := Grade(db, other.quiz.ID, 1, f.enrollment.ID, other.answer(true))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGradeAttemptsScopedPerEnrollment(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 1, false, func(q *courseModels.Quiz) { q.MaxAttempts = 1 })

	_, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(false))
	require.NoError(t, err)
	_, err = Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true))
	require.ErrorIs(t, err, ErrNotEligible)

	// A fresh enrollment starts with a clean attempt history.
	require.NoError(t, db.Model(&courseModels.Enrollment{}).
		Where("id = ?", f.enrollment.ID).
		Updates(map[string]interface{}{"is_retired": true, "status": courseModels.EnrollmentCompleted}).Error)
	fresh := courseModels.Enrollment{UserID: 1, CourseID: f.course.ID, Status: courseModels.EnrollmentNotStarted}
	require.NoError(t, db.Create(&fresh).Error)

	result, err := Grade(db, f.quiz.ID, 1, fresh.ID, f.answer(true))
	require.NoError(t, err)
	assert.Equal(t, 1, result.AttemptNumber)
	assert.True(t, result.Passed)
}

// The schema backstops the in-transaction count: a duplicate attempt number
// for the same quiz, user and enrollment must be refused by the database.
func TestAttemptNumberUniquePerEnrollment(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 1, 1, false, nil)

	result, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true))
	require.NoError(t, err)

	dup := courseModels.Attempt{
		QuizID:        f.quiz.ID,
		UserID:        1,
		EnrollmentID:  f.enrollment.ID,
		AttemptNumber: result.AttemptNumber,
	}
	assert.Error(t, db.Create(&dup).Error)
}

// keep the recorder import honest: completing through the grader must behave
// exactly like completing through the recorder afterwards.
func TestGradeThenRecorderStaysIdempotent(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuiz(t, db, 2, 1, true, nil)

	_, err := Grade(db, f.quiz.ID, 1, f.enrollment.ID, f.answer(true))
	require.NoError(t, err)

	_, err = progress.CompleteLesson(db, 1, f.lessons[0].ID, f.enrollment.ID)
	require.NoError(t, err)

	var enrollment courseModels.Enrollment
	require.NoError(t, db.First(&enrollment, f.enrollment.ID).Error)
	assert.Equal(t, 50.0, enrollment.Percentage)
	assert.Equal(t, 1, enrollment.CompletedLessons)
}
