package utils

import (
	"log"
	"time"

	"lms/config"
	"lms/database"
	"lms/models"
	courseModels "lms/models/course"

	"github.com/go-resty/resty/v2"
)

// NotifyEnrollmentCompleted fans out the side effects of an enrollment
// reaching 100%: a congratulation email to the learner and, when configured,
// a webhook to the downstream integration endpoint. Failures are logged and
// never propagated back into the aggregation path.
func NotifyEnrollmentCompleted(enrollmentID uint) {
	if database.Database.Db == nil {
		return
	}
	db := database.Database.Db

	var enrollment courseModels.Enrollment
	if err := db.Where("id = ? AND is_deleted = ?", enrollmentID, false).First(&enrollment).Error; err != nil {
		log.Printf("[NOTIFY] Enrollment %d not found: %v", enrollmentID, err)
		return
	}

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", enrollment.UserID, false).First(&user).Error; err != nil {
		log.Printf("[NOTIFY] User %d not found: %v", enrollment.UserID, err)
		return
	}

	var c courseModels.Course
	if err := db.Where("id = ?", enrollment.CourseID).First(&c).Error; err != nil {
		log.Printf("[NOTIFY] Course %d not found: %v", enrollment.CourseID, err)
		return
	}

	if err := SendCourseCompletionEmail(user.Email, user.Name, c.Title); err != nil {
		log.Printf("[NOTIFY] Completion email failed for enrollment %d: %v", enrollmentID, err)
	}

	postCompletionWebhook(enrollment, c)
}

func postCompletionWebhook(enrollment courseModels.Enrollment, c courseModels.Course) {
	if config.AppConfig == nil || config.AppConfig.CompletionWebhookURL == "" {
		return
	}

	client := resty.New().SetTimeout(10 * time.Second)
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"event":         "enrollment.completed",
			"enrollment_id": enrollment.ID,
			"user_id":       enrollment.UserID,
			"course_id":     enrollment.CourseID,
			"course_title":  c.Title,
			"completed_at":  enrollment.CompletedAt,
		}).
		Post(config.AppConfig.CompletionWebhookURL)
	if err != nil {
		log.Printf("[NOTIFY] Completion webhook failed for enrollment %d: %v", enrollment.ID, err)
		return
	}
	if resp.StatusCode() >= 400 {
		log.Printf("[NOTIFY] Completion webhook returned %d for enrollment %d", resp.StatusCode(), enrollment.ID)
	}
}
