package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
)

// GetAllCourses lists published courses with pagination
func GetAllCourses(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	// Retrieve validated pagination request
	reqData, _ := c.Locals("validatedCourseList").(*struct {
		Page  *int `json:"page"`
		Limit *int `json:"limit"`
	})

	page := 1
	limit := 10
	if reqData != nil && reqData.Page != nil {
		page = *reqData.Page
	}
	if reqData != nil && reqData.Limit != nil {
		limit = *reqData.Limit
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&courseModels.Course{}).Where("is_deleted = ? AND is_published = ?", false, true)

	var total int64
	db.Count(&total)

	var courses []courseModels.Course
	if err := db.Offset(offset).Limit(limit).Order("title asc, id asc").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	response := map[string]interface{}{
		"courses": courses,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", response)
}

// GetCourseDetails gets course details with modules and lessons for users.
// Ordering is deterministic by title then id; there is no sequence field.
func GetCourseDetails(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	// Get modules with their lessons
	var modules []courseModels.Module
	database.Database.Db.Where("course_id = ? AND is_deleted = ?", courseID, false).Order("title asc, id asc").Find(&modules)

	type ModuleWithLessons struct {
		courseModels.Module
		Lessons []courseModels.Lesson `json:"lessons"`
	}

	result := make([]ModuleWithLessons, len(modules))
	for i, mod := range modules {
		result[i] = ModuleWithLessons{Module: mod}
		database.Database.Db.Where("module_id = ? AND is_deleted = ? AND is_published = ?", mod.ID, false, true).
			Order("title asc, id asc").Find(&result[i].Lessons)
	}

	// Check if user has an active enrollment
	var enrollment courseModels.Enrollment
	isEnrolled := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_retired = ? AND is_deleted = ?",
		userID, courseID, false, false).First(&enrollment).Error == nil

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course details fetched successfully!", fiber.Map{
		"course":      course,
		"modules":     result,
		"is_enrolled": isEnrolled,
		"enrollment":  enrollment,
	})
}

// LessonWithQuiz is lesson content enriched with the attached quiz, if any
type LessonWithQuiz struct {
	courseModels.Lesson
	Quiz        *QuizView `json:"quiz,omitempty"`
	IsCompleted bool      `json:"is_completed"`
}

// QuizView is a learner-facing quiz rendering. Option correctness flags and
// explanations are never included here; they only surface through grading
// results of training-mode quizzes.
type QuizView struct {
	ID           uint           `json:"id"`
	Title        string         `json:"title"`
	PassingScore int            `json:"passing_score"`
	MaxAttempts  int            `json:"max_attempts"`
	AllowRetakes bool           `json:"allow_retakes"`
	Mode         string         `json:"mode"`
	Questions    []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID       uint         `json:"id"`
	Text     string       `json:"text"`
	Points   int          `json:"points"`
	Required bool         `json:"required"`
	Options  []OptionView `json:"options"`
}

type OptionView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// GetLessonContent returns one lesson's content for an enrolled user
func GetLessonContent(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)
	lessonID := c.Locals("lessonID").(int)

	// Check active enrollment
	var enrollment courseModels.Enrollment
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_retired = ? AND is_deleted = ?",
		userID, courseID, false, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Please enroll in this course first!", nil)
	}

	var lesson courseModels.Lesson
	if err := database.Database.Db.Where("id = ? AND course_id = ? AND is_deleted = ? AND is_published = ?",
		lessonID, courseID, false, true).First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	result := LessonWithQuiz{Lesson: lesson}

	// Completion state under this enrollment only
	var row courseModels.Progress
	if err := database.Database.Db.Where("user_id = ? AND lesson_id = ? AND enrollment_id = ? AND is_deleted = ?",
		userID, lesson.ID, enrollment.ID, false).First(&row).Error; err == nil {
		result.IsCompleted = row.Status == courseModels.ProgressCompleted
	}

	// Attach the active lesson quiz, stripped of answers
	var quiz courseModels.Quiz
	if err := database.Database.Db.Where("lesson_id = ? AND is_deleted = ? AND is_active = ?", lesson.ID, false, true).First(&quiz).Error; err == nil {
		view := &QuizView{
			ID:           quiz.ID,
			Title:        quiz.Title,
			PassingScore: quiz.PassingScore,
			MaxAttempts:  quiz.MaxAttempts,
			AllowRetakes: quiz.AllowRetakes,
			Mode:         quiz.Mode,
		}

		var questions []courseModels.Question
		database.Database.Db.Where("quiz_id = ? AND is_deleted = ?", quiz.ID, false).Order("id asc").Find(&questions)
		for _, q := range questions {
			qv := QuestionView{ID: q.ID, Text: q.Text, Points: q.Points, Required: q.Required}
			var options []courseModels.Option
			database.Database.Db.Where("question_id = ? AND is_deleted = ?", q.ID, false).Order("id asc").Find(&options)
			for _, opt := range options {
				qv.Options = append(qv.Options, OptionView{ID: opt.ID, Text: opt.Text})
			}
			view.Questions = append(view.Questions, qv)
		}
		result.Quiz = view
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson fetched successfully!", result)
}
