package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminCourseRoutes sets up all admin course management routes
func SetupAdminCourseRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin/course", middleware.JWTMiddleware, middleware.RequireAdmin)

	// Course authoring
	adminGroup.Post("/create", validators.CreateCourse(), controllers.CreateCourse)
	adminGroup.Patch("/:id/publish", validators.ParseIDParam("id", "courseID"), controllers.PublishCourse)
	adminGroup.Post("/:id/thumbnail", validators.ParseIDParam("id", "courseID"), controllers.UploadCourseThumbnail)

	// Module and lesson authoring
	adminGroup.Post("/:id/module", validators.ParseIDParam("id", "courseID"), validators.CreateModule(), controllers.CreateModule)

	moduleGroup := app.Group("/admin/module", middleware.JWTMiddleware, middleware.RequireAdmin)
	moduleGroup.Post("/:id/lesson", validators.ParseIDParam("id", "moduleID"), validators.CreateLesson(), controllers.CreateLesson)

	lessonGroup := app.Group("/admin/lesson", middleware.JWTMiddleware, middleware.RequireAdmin)
	lessonGroup.Patch("/:id/publish", validators.ParseIDParam("id", "lessonID"), controllers.PublishLesson)

	// Quiz authoring
	quizGroup := app.Group("/admin/quiz", middleware.JWTMiddleware, middleware.RequireAdmin)
	quizGroup.Post("/create", validators.CreateQuiz(), controllers.CreateQuiz)
	quizGroup.Post("/:id/question", validators.ParseIDParam("id", "quizID"), validators.AddQuestion(), controllers.AddQuestion)
	quizGroup.Patch("/:id/activate", validators.ParseIDParam("id", "quizID"), controllers.ActivateQuiz)

	// Enrollment management
	enrollmentGroup := app.Group("/admin/enrollment", middleware.JWTMiddleware, middleware.RequireAdmin)
	enrollmentGroup.Delete("/:id", validators.ParseIDParam("id", "enrollmentID"), controllers.AdminWithdrawEnrollment)

	// Progress recalculation
	progressGroup := app.Group("/admin/progress", middleware.JWTMiddleware, middleware.RequireAdmin)
	progressGroup.Post("/recalculate", validators.RecalculateRequest(), controllers.RecalculateEnrollments)

	// Certificate approval
	certGroup := app.Group("/admin/certificate", middleware.JWTMiddleware, middleware.RequireAdmin)
	certGroup.Post("/:id/approve", validators.ParseIDParam("id", "requestID"), controllers.ApproveCertificateRequest)
}
