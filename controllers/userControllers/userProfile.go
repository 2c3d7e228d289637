package userController

import (
	"log"
	"strings"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
)

func GetProfile(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userId, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	var enrollmentCount int64
	database.Database.Db.Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND is_deleted = ? AND is_retired = ?", userId, false, false).
		Count(&enrollmentCount)

	var completedCount int64
	database.Database.Db.Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND is_deleted = ? AND status = ?", userId, false, courseModels.EnrollmentCompleted).
		Count(&completedCount)

	var certificateCount int64
	database.Database.Db.Model(&courseModels.Certificate{}).
		Where("user_id = ? AND is_deleted = ?", userId, false).
		Count(&certificateCount)

	// Sanitize user data (remove sensitive fields)
	user.Password = ""

	response := map[string]interface{}{
		"user":              user,
		"enrollments":       enrollmentCount,
		"completed_courses": completedCount,
		"certificates":      certificateCount,
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "User profile.", response)
}

func UpdateProfile(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData := new(struct {
		Name   string `json:"name"`
		Mobile string `json:"mobile"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Failed to parse request body!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userId, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	if name := strings.TrimSpace(reqData.Name); name != "" {
		user.Name = name
	}
	if mobile := strings.TrimSpace(reqData.Mobile); mobile != "" {
		user.Mobile = mobile
	}

	if err := database.Database.Db.Save(&user).Error; err != nil {
		log.Printf("Error updating profile for user %d: %v", userId, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update profile!", nil)
	}

	user.Password = ""

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile updated successfully.", user)
}
