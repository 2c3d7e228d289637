package courseValidator

import (
	"lms/middleware"

	"github.com/gofiber/fiber/v2"
)

// LessonAction validates the start/complete lesson payload. The lesson comes
// from the route, the enrollment from the body.
func LessonAction() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			EnrollmentID int `json:"enrollment_id"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if reqData.EnrollmentID <= 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"enrollment_id": "Enrollment ID is required!",
			})
		}

		c.Locals("enrollmentID", reqData.EnrollmentID)
		return c.Next()
	}
}

// EnrollmentQuery validates an enrollment_id query parameter, used by the
// attempt history endpoints.
func EnrollmentQuery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		enrollmentID := c.QueryInt("enrollment_id")
		if enrollmentID <= 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"enrollment_id": "Enrollment ID is required!",
			})
		}

		c.Locals("enrollmentID", enrollmentID)
		return c.Next()
	}
}

func RecalculateRequest() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			EnrollmentIDs []uint `json:"enrollment_ids"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if len(reqData.EnrollmentIDs) == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"enrollment_ids": "At least one enrollment ID is required!",
			})
		}

		c.Locals("validatedRecalcRequest", reqData)
		return c.Next()
	}
}

func EnrollmentList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Page  *int `json:"page"`
			Limit *int `json:"limit"`
		})

		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

		errors := make(map[string]string)

		if reqData.Page == nil || *reqData.Page < 1 {
			errors["page"] = "Page must be greater than 0!"
		}

		if reqData.Limit == nil || *reqData.Limit < 1 {
			errors["limit"] = "Limit must be greater than 0!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedEnrollmentList", reqData)
		return c.Next()
	}
}
