package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all learner-facing routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	// Course listing and details
	courseGroup.Get("/list", middleware.JWTMiddleware, validators.CourseList(), controllers.GetAllCourses)
	courseGroup.Get("/:id", middleware.JWTMiddleware, validators.ParseIDParam("id", "courseID"), controllers.GetCourseDetails)

	// Enrollment
	courseGroup.Post("/:id/enroll", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware("enroll-course"),
		validators.ParseIDParam("id", "courseID"), controllers.EnrollInCourse)

	// Lesson content (for enrolled users)
	courseGroup.Get("/:course_id/lesson/:lesson_id", middleware.JWTMiddleware,
		validators.ParseIDParam("course_id", "courseID"), validators.ParseIDParam("lesson_id", "lessonID"),
		controllers.GetLessonContent)

	// Reviews
	courseGroup.Post("/:id/review", middleware.JWTMiddleware, validators.ParseIDParam("id", "courseID"), validators.AddReview(), controllers.AddCourseReview)
	courseGroup.Get("/:id/reviews", middleware.JWTMiddleware, validators.ParseIDParam("id", "courseID"), controllers.GetCourseReviews)

	// Certificate request
	courseGroup.Post("/:id/certificate/request", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware("request-certificate"),
		validators.ParseIDParam("id", "courseID"), controllers.RequestCertificate)

	// Progress recording
	lessonGroup := app.Group("/lesson")
	lessonGroup.Post("/:lesson_id/start", middleware.JWTMiddleware,
		validators.ParseIDParam("lesson_id", "lessonID"), validators.LessonAction(),
		controllers.StartLesson)
	lessonGroup.Post("/:lesson_id/complete", middleware.JWTMiddleware,
		validators.ParseIDParam("lesson_id", "lessonID"), validators.LessonAction(),
		controllers.CompleteLesson)

	// Quiz submission and attempt history
	quizGroup := app.Group("/quiz")
	quizGroup.Post("/:quiz_id/submit", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware("submit-quiz"),
		validators.ParseIDParam("quiz_id", "quizID"), validators.SubmitQuiz(),
		controllers.SubmitQuiz)
	quizGroup.Get("/:quiz_id/attempts", middleware.JWTMiddleware,
		validators.ParseIDParam("quiz_id", "quizID"), validators.EnrollmentQuery(),
		controllers.GetAttemptHistory)
	quizGroup.Get("/:quiz_id/attempts/latest", middleware.JWTMiddleware,
		validators.ParseIDParam("quiz_id", "quizID"), validators.EnrollmentQuery(),
		controllers.GetLatestAttempt)

	// Enrollment status and rollups
	enrollmentGroup := app.Group("/enrollment")
	enrollmentGroup.Get("/:id/status", middleware.JWTMiddleware, validators.ParseIDParam("id", "enrollmentID"), controllers.GetEnrollmentStatus)
	enrollmentGroup.Get("/:id/progress", middleware.JWTMiddleware, validators.ParseIDParam("id", "enrollmentID"), controllers.GetUserProgress)

	// User enrollments and certificates
	userGroup := app.Group("/user")
	userGroup.Get("/enrollments", middleware.JWTMiddleware, validators.EnrollmentList(), controllers.GetEnrollments)
	userGroup.Get("/certificates", middleware.JWTMiddleware, controllers.GetUserCertificates)
}
