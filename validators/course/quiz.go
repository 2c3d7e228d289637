package courseValidator

import (
	"strings"

	courseControllers "lms/controllers/course"
	"lms/middleware"
	courseModels "lms/models/course"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func CreateQuiz() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			LessonID     uint   `json:"lesson_id"`
			CourseID     uint   `json:"course_id"`
			Title        string `json:"title"`
			PassingScore int    `json:"passing_score"`
			MaxAttempts  int    `json:"max_attempts"`
			AllowRetakes *bool  `json:"allow_retakes"`
			Mode         string `json:"mode"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if strings.TrimSpace(reqData.Title) == "" {
			errors["title"] = "Title is required!"
		}

		// A quiz is attached to exactly one of lesson or course
		if reqData.LessonID == 0 && reqData.CourseID == 0 {
			errors["lesson_id"] = "Either lesson_id or course_id is required!"
		} else if reqData.LessonID != 0 && reqData.CourseID != 0 {
			errors["lesson_id"] = "A quiz cannot target both a lesson and a course!"
		}

		if reqData.PassingScore < 1 || reqData.PassingScore > 100 {
			errors["passing_score"] = "Passing score must be between 1 and 100!"
		}

		if reqData.MaxAttempts < 0 {
			errors["max_attempts"] = "Max attempts cannot be negative!"
		}

		if reqData.Mode != "" && reqData.Mode != courseModels.QuizStandard && reqData.Mode != courseModels.QuizTraining {
			errors["mode"] = "Mode must be STANDARD or TRAINING!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedQuiz", reqData)
		return c.Next()
	}
}

func AddQuestion() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Text        string `json:"text"`
			Points      int    `json:"points"`
			Required    *bool  `json:"required"`
			Explanation string `json:"explanation"`
			Options     []struct {
				Text      string `json:"text"`
				IsCorrect bool   `json:"is_correct"`
			} `json:"options"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if strings.TrimSpace(reqData.Text) == "" {
			errors["text"] = "Question text is required!"
		}

		if reqData.Points < 0 {
			errors["points"] = "Points cannot be negative!"
		}

		if len(reqData.Options) < 2 {
			errors["options"] = "A question needs at least two options!"
		} else {
			for _, opt := range reqData.Options {
				if strings.TrimSpace(opt.Text) == "" {
					errors["options"] = "Option text cannot be empty!"
					break
				}
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedQuestion", reqData)
		return c.Next()
	}
}

func SubmitQuiz() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(courseControllers.QuizSubmissionRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			errors := make(map[string]string)
			for _, fieldErr := range err.(validator.ValidationErrors) {
				errors[fieldErr.Field()] = "Invalid value for " + fieldErr.Field() + "!"
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedQuizSubmission", reqData)
		return c.Next()
	}
}
