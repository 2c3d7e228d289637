package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
)

// CreateQuiz creates a quiz scoped to either a lesson or a whole course
func CreateQuiz(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	reqData, ok := c.Locals("validatedQuiz").(*struct {
		LessonID     uint   `json:"lesson_id"`
		CourseID     uint   `json:"course_id"`
		Title        string `json:"title"`
		PassingScore int    `json:"passing_score"`
		MaxAttempts  int    `json:"max_attempts"`
		AllowRetakes *bool  `json:"allow_retakes"`
		Mode         string `json:"mode"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// Verify the scope target exists
	if reqData.LessonID != 0 {
		var lesson courseModels.Lesson
		if err := database.Database.Db.Where("id = ? AND is_deleted = ?", reqData.LessonID, false).First(&lesson).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
		}
	} else {
		var course courseModels.Course
		if err := database.Database.Db.Where("id = ? AND is_deleted = ?", reqData.CourseID, false).First(&course).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
		}
	}

	allowRetakes := true
	if reqData.AllowRetakes != nil {
		allowRetakes = *reqData.AllowRetakes
	}

	mode := courseModels.QuizStandard
	if reqData.Mode != "" {
		mode = reqData.Mode
	}

	quiz := courseModels.Quiz{
		LessonID:     reqData.LessonID,
		CourseID:     reqData.CourseID,
		Title:        reqData.Title,
		PassingScore: reqData.PassingScore,
		MaxAttempts:  reqData.MaxAttempts,
		AllowRetakes: allowRetakes,
		Mode:         mode,
	}

	if err := database.Database.Db.Create(&quiz).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create quiz!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Quiz created successfully!", quiz)
}

// AddQuestion adds a question with its options to an inactive quiz
func AddQuestion(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	quizID := c.Locals("quizID").(int)

	var quiz courseModels.Quiz
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", quizID, false).First(&quiz).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Quiz not found!", nil)
	}

	if quiz.IsActive {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Cannot modify an active quiz!", nil)
	}

	reqData, ok := c.Locals("validatedQuestion").(*struct {
		Text        string `json:"text"`
		Points      int    `json:"points"`
		Required    *bool  `json:"required"`
		Explanation string `json:"explanation"`
		Options     []struct {
			Text      string `json:"text"`
			IsCorrect bool   `json:"is_correct"`
		} `json:"options"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	points := reqData.Points
	if points <= 0 {
		points = 1
	}
	required := true
	if reqData.Required != nil {
		required = *reqData.Required
	}

	question := courseModels.Question{
		QuizID:      quiz.ID,
		Text:        reqData.Text,
		Points:      points,
		Required:    required,
		Explanation: reqData.Explanation,
	}

	tx := database.Database.Db.Begin()
	if err := tx.Create(&question).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create question!", nil)
	}

	options := make([]courseModels.Option, len(reqData.Options))
	for i, opt := range reqData.Options {
		options[i] = courseModels.Option{
			QuestionID: question.ID,
			Text:       opt.Text,
			IsCorrect:  opt.IsCorrect,
		}
	}
	if err := tx.Create(&options).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create options!", nil)
	}
	tx.Commit()

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Question added successfully!", fiber.Map{
		"question": question,
		"options":  options,
	})
}

// ActivateQuiz makes a quiz available to learners. A quiz may only go active
// when it has at least one question and every question has at least one
// option flagged correct.
func ActivateQuiz(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	quizID := c.Locals("quizID").(int)

	var quiz courseModels.Quiz
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", quizID, false).First(&quiz).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Quiz not found!", nil)
	}

	var questions []courseModels.Question
	database.Database.Db.Where("quiz_id = ? AND is_deleted = ?", quiz.ID, false).Find(&questions)

	if len(questions) == 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Quiz has no questions!", nil)
	}

	for _, q := range questions {
		var correctCount int64
		database.Database.Db.Model(&courseModels.Option{}).
			Where("question_id = ? AND is_correct = ? AND is_deleted = ?", q.ID, true, false).Count(&correctCount)
		if correctCount == 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Every question needs at least one correct option!", fiber.Map{
				"question_id": q.ID,
			})
		}
	}

	if err := database.Database.Db.Model(&quiz).Update("is_active", true).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to activate quiz!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz activated successfully!", quiz)
}
