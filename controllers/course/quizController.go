package controllers

import (
	"errors"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	quizService "lms/services/quiz"

	"github.com/gofiber/fiber/v2"
)

// SubmitQuiz grades a quiz submission for one enrollment
func SubmitQuiz(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	quizID := c.Locals("quizID").(int)

	reqData, ok := c.Locals("validatedQuizSubmission").(*QuizSubmissionRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	responses := make([]quizService.Response, len(reqData.Responses))
	for i, r := range reqData.Responses {
		responses[i] = quizService.Response{
			QuestionID:        r.QuestionID,
			SelectedOptionIDs: r.SelectedOptionIDs,
		}
	}

	result, err := quizService.Grade(database.Database.Db, uint(quizID), userID, reqData.EnrollmentID, responses)
	if err != nil {
		switch {
		case errors.Is(err, quizService.ErrNotFound):
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Quiz not found!", nil)
		case errors.Is(err, quizService.ErrNotEligible):
			return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Maximum attempts reached for this quiz!", nil)
		case errors.Is(err, quizService.ErrRetakeNotAllowed):
			return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Retakes are not allowed for this quiz!", nil)
		case errors.Is(err, quizService.ErrIncompleteSubmission):
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Please answer all required questions!", nil)
		default:
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit quiz!", nil)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz submitted!", result)
}

// QuizSubmissionRequest is the learner's submission payload
type QuizSubmissionRequest struct {
	EnrollmentID uint `json:"enrollment_id" validate:"required"`
	Responses    []struct {
		QuestionID        uint   `json:"question_id" validate:"required"`
		SelectedOptionIDs []uint `json:"selected_option_ids"`
	} `json:"responses" validate:"required,min=1,dive"`
}

// GetAttemptHistory lists the user's attempts for a quiz under one enrollment
func GetAttemptHistory(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	quizID := c.Locals("quizID").(int)
	enrollmentID := c.Locals("enrollmentID").(int)

	// Scope the history to this enrollment: attempts from earlier
	// enrollments in the same course never bleed through.
	var attempts []courseModels.Attempt
	if err := database.Database.Db.
		Where("quiz_id = ? AND user_id = ? AND enrollment_id = ? AND is_deleted = ?", quizID, userID, enrollmentID, false).
		Order("attempt_number asc").Find(&attempts).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch attempts!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempts fetched successfully!", fiber.Map{
		"attempts": attempts,
		"total":    len(attempts),
	})
}

// GetLatestAttempt returns the most recent attempt for a quiz under one enrollment
func GetLatestAttempt(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	quizID := c.Locals("quizID").(int)
	enrollmentID := c.Locals("enrollmentID").(int)

	var attempt courseModels.Attempt
	if err := database.Database.Db.
		Where("quiz_id = ? AND user_id = ? AND enrollment_id = ? AND is_deleted = ?", quizID, userID, enrollmentID, false).
		Order("attempt_number desc").First(&attempt).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "No attempts found!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Latest attempt fetched successfully!", attempt)
}
