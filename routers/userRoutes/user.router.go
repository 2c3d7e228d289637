package userRoutes

import (
	userController "lms/controllers/userControllers"
	"lms/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App) {
	userGroup := app.Group("/user", middleware.JWTMiddleware)

	userGroup.Get("/profile", userController.GetProfile)
	userGroup.Put("/profile", userController.UpdateProfile)
}
