package controllers

import (
	"errors"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	progressService "lms/services/progress"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// StartLesson records that the user opened a lesson under one enrollment
func StartLesson(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	lessonID := c.Locals("lessonID").(int)
	enrollmentID := c.Locals("enrollmentID").(int)

	if err := progressService.StartLesson(database.Database.Db, userID, uint(lessonID), uint(enrollmentID)); err != nil {
		if errors.Is(err, progressService.ErrNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson or enrollment not found!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to start lesson!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson started!", nil)
}

// CompleteLesson records lesson completion and recalculates the enrollment
// rollup before responding, so the returned enrollment is already up to date
func CompleteLesson(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	lessonID := c.Locals("lessonID").(int)
	enrollmentID := c.Locals("enrollmentID").(int)

	courseCompleted, err := progressService.CompleteLesson(database.Database.Db, userID, uint(lessonID), uint(enrollmentID))
	if err != nil {
		switch {
		case errors.Is(err, progressService.ErrNotFound):
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson or enrollment not found!", nil)
		case errors.Is(err, progressService.ErrAggregationConflict):
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Progress update conflicted, please retry!", nil)
		default:
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to complete lesson!", nil)
		}
	}

	// The completion write is committed at this point; side effects may fire.
	if courseCompleted {
		go utils.NotifyEnrollmentCompleted(uint(enrollmentID))
	}

	var enrollment courseModels.Enrollment
	database.Database.Db.Where("id = ?", enrollmentID).First(&enrollment)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson completed!", fiber.Map{
		"enrollment": enrollment,
	})
}

// GetUserProgress gets the user's per-module progress under one enrollment
func GetUserProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	enrollmentID := c.Locals("enrollmentID").(int)

	var enrollment courseModels.Enrollment
	if err := database.Database.Db.Where("id = ? AND user_id = ? AND is_deleted = ?", enrollmentID, userID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Enrollment not found!", nil)
	}

	// Completed lesson IDs under this enrollment only
	var completedRows []courseModels.Progress
	database.Database.Db.Where("enrollment_id = ? AND status = ? AND is_deleted = ?",
		enrollment.ID, courseModels.ProgressCompleted, false).Find(&completedRows)

	completedIDs := make([]uint, len(completedRows))
	completedSet := make(map[uint]bool, len(completedRows))
	for i, row := range completedRows {
		completedIDs[i] = row.LessonID
		completedSet[row.LessonID] = true
	}

	// Get module-wise progress
	var modules []courseModels.Module
	database.Database.Db.Where("course_id = ? AND is_deleted = ?", enrollment.CourseID, false).Order("title asc, id asc").Find(&modules)

	type ModuleProgress struct {
		ModuleID         uint    `json:"module_id"`
		ModuleName       string  `json:"module_name"`
		TotalLessons     int     `json:"total_lessons"`
		CompletedLessons int     `json:"completed_lessons"`
		Progress         float64 `json:"progress"`
	}

	moduleProgress := make([]ModuleProgress, len(modules))
	for i, mod := range modules {
		var lessonIDs []uint
		database.Database.Db.Model(&courseModels.Lesson{}).
			Where("module_id = ? AND is_deleted = ? AND is_published = ?", mod.ID, false, true).
			Pluck("id", &lessonIDs)

		completed := 0
		for _, id := range lessonIDs {
			if completedSet[id] {
				completed++
			}
		}

		progress := float64(0)
		if len(lessonIDs) > 0 {
			progress = float64(completed) / float64(len(lessonIDs)) * 100
		}

		moduleProgress[i] = ModuleProgress{
			ModuleID:         mod.ID,
			ModuleName:       mod.Title,
			TotalLessons:     len(lessonIDs),
			CompletedLessons: completed,
			Progress:         progress,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"enrollment":      enrollment,
		"completed_ids":   completedIDs,
		"module_progress": moduleProgress,
	})
}

// RecalculateEnrollments is the batch recalculation entry point used by
// declarative automation and operators. It accepts a set of enrollment ids,
// aggregates each distinct one exactly once and reports per-id failures
// without aborting the rest of the batch.
func RecalculateEnrollments(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	reqData, ok := c.Locals("validatedRecalcRequest").(*struct {
		EnrollmentIDs []uint `json:"enrollment_ids"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	results := progressService.RecalculateBatch(database.Database.Db, reqData.EnrollmentIDs)

	failures := make(map[uint]string)
	for id, err := range results {
		if err != nil {
			failures[id] = err.Error()
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Recalculation finished!", fiber.Map{
		"processed": len(results),
		"failed":    failures,
	})
}
