package quiz

import (
	"encoding/json"
	"errors"

	courseModels "lms/models/course"
	"lms/services/progress"
	"lms/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the quiz or enrollment does not exist, is
	// inactive, or is scoped to a different course than the enrollment.
	ErrNotFound = errors.New("quiz not found")

	// ErrNotEligible is returned when the attempt limit for this quiz and
	// enrollment is exhausted.
	ErrNotEligible = errors.New("maximum attempts reached")

	// ErrRetakeNotAllowed is returned when the quiz forbids retakes and a
	// prior attempt already exists.
	ErrRetakeNotAllowed = errors.New("retakes are not allowed for this quiz")

	// ErrIncompleteSubmission is returned when a required question has no answer.
	ErrIncompleteSubmission = errors.New("required questions are missing answers")
)

// Response is one answered question in a submission. SelectedOptionIDs is an
// array on the wire for forward compatibility; scoring is single-select.
type Response struct {
	QuestionID        uint   `json:"question_id"`
	SelectedOptionIDs []uint `json:"selected_option_ids"`
}

// QuestionResult carries per-question feedback. It is only populated on
// training-mode quizzes; standard attempts must not leak correctness data.
type QuestionResult struct {
	QuestionID  uint   `json:"question_id"`
	Points      int    `json:"points"`
	Awarded     int    `json:"awarded"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// Result is the outcome of grading one submission.
type Result struct {
	AttemptID       uint             `json:"attempt_id"`
	AttemptNumber   int              `json:"attempt_number"`
	Score           int              `json:"score"`
	MaxScore        int              `json:"max_score"`
	Passed          bool             `json:"passed"`
	QuestionResults []QuestionResult `json:"question_results,omitempty"`
}

// Grade evaluates a learner's submission against the quiz definition,
// persists an immutable attempt snapshot and enforces attempt and retake
// policy. A passed attempt on a lesson-scoped quiz completes that lesson for
// the enrollment within the same transaction, which in turn recalculates the
// enrollment rollup.
func Grade(db *gorm.DB, quizID, userID, enrollmentID uint, responses []Response) (*Result, error) {
	var enrollment courseModels.Enrollment
	if err := db.Where("id = ? AND user_id = ? AND is_deleted = ?", enrollmentID, userID, false).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var q courseModels.Quiz
	if err := db.Where("id = ? AND is_deleted = ? AND is_active = ?", quizID, false, true).First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := checkScope(db, &q, &enrollment); err != nil {
		return nil, err
	}

	var questions []courseModels.Question
	if err := db.Where("quiz_id = ? AND is_deleted = ?", q.ID, false).Find(&questions).Error; err != nil {
		return nil, err
	}

	questionIDs := make([]uint, len(questions))
	for i, question := range questions {
		questionIDs[i] = question.ID
	}

	var options []courseModels.Option
	if len(questionIDs) > 0 {
		if err := db.Where("question_id IN ? AND is_deleted = ?", questionIDs, false).Find(&options).Error; err != nil {
			return nil, err
		}
	}

	correctByQuestion := make(map[uint]map[uint]bool, len(questions))
	for _, opt := range options {
		if !opt.IsCorrect {
			continue
		}
		if correctByQuestion[opt.QuestionID] == nil {
			correctByQuestion[opt.QuestionID] = make(map[uint]bool)
		}
		correctByQuestion[opt.QuestionID][opt.ID] = true
	}

	selected := make(map[uint][]uint, len(responses))
	for _, r := range responses {
		if len(r.SelectedOptionIDs) > 0 {
			selected[r.QuestionID] = r.SelectedOptionIDs
		}
	}

	for _, question := range questions {
		if question.Required && len(selected[question.ID]) == 0 {
			return nil, ErrIncompleteSubmission
		}
	}

	score := 0
	maxScore := 0
	questionResults := make([]QuestionResult, 0, len(questions))
	for _, question := range questions {
		maxScore += question.Points

		correct := selectionMatches(selected[question.ID], correctByQuestion[question.ID])
		awarded := 0
		if correct {
			awarded = question.Points
			score += awarded
		}

		if q.Mode == courseModels.QuizTraining {
			questionResults = append(questionResults, QuestionResult{
				QuestionID:  question.ID,
				Points:      question.Points,
				Awarded:     awarded,
				Correct:     correct,
				Explanation: question.Explanation,
			})
		}
	}

	// Integer comparison of score/maxScore*100 >= passingScore, no float rounding.
	passed := maxScore > 0 && score*100 >= q.PassingScore*maxScore

	selectionsJSON, err := json.Marshal(responses)
	if err != nil {
		return nil, err
	}

	attempt := courseModels.Attempt{
		QuizID:       q.ID,
		UserID:       userID,
		EnrollmentID: enrollment.ID,
		Score:        score,
		MaxScore:     maxScore,
		Passed:       passed,
		Selections:   datatypes.JSON(selectionsJSON),
	}

	var courseCompleted bool
	err = db.Transaction(func(tx *gorm.DB) error {
		// Attempt policy is scoped to this enrollment: a re-enrollment starts
		// with a clean attempt history. The count runs inside the insert
		// transaction so two concurrent submissions cannot both slip past the
		// limit or claim the same attempt number; the unique index on the
		// attempt sequence backstops drivers with weaker isolation.
		var priorAttempts int64
		if err := tx.Model(&courseModels.Attempt{}).
			Where("quiz_id = ? AND user_id = ? AND enrollment_id = ? AND is_deleted = ?", q.ID, userID, enrollment.ID, false).
			Count(&priorAttempts).Error; err != nil {
			return err
		}

		if q.MaxAttempts > 0 && priorAttempts >= int64(q.MaxAttempts) {
			return ErrNotEligible
		}
		if !q.AllowRetakes && priorAttempts > 0 {
			return ErrRetakeNotAllowed
		}

		attempt.AttemptNumber = int(priorAttempts) + 1
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}
		if passed && q.LessonID != 0 {
			var err error
			courseCompleted, err = progress.CompleteLesson(tx, userID, q.LessonID, enrollment.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Completion side effects only after the transaction has committed.
	if courseCompleted {
		go utils.NotifyEnrollmentCompleted(enrollment.ID)
	}

	return &Result{
		AttemptID:       attempt.ID,
		AttemptNumber:   attempt.AttemptNumber,
		Score:           score,
		MaxScore:        maxScore,
		Passed:          passed,
		QuestionResults: questionResults,
	}, nil
}

// checkScope verifies the quiz belongs to the enrollment's course, either
// directly (course-scoped) or through its lesson (lesson-scoped).
func checkScope(db *gorm.DB, q *courseModels.Quiz, enrollment *courseModels.Enrollment) error {
	if q.CourseID != 0 {
		if q.CourseID != enrollment.CourseID {
			return ErrNotFound
		}
		return nil
	}

	var lesson courseModels.Lesson
	if err := db.Where("id = ? AND is_deleted = ?", q.LessonID, false).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if lesson.CourseID != enrollment.CourseID {
		return ErrNotFound
	}
	return nil
}

// selectionMatches applies single-select semantics: the selected set must be
// exactly the correct set. With one correct option per question this means
// one matching selection earns full points, anything else earns zero.
func selectionMatches(selectedIDs []uint, correct map[uint]bool) bool {
	if len(correct) == 0 || len(selectedIDs) != len(correct) {
		return false
	}
	seen := make(map[uint]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		if seen[id] {
			return false
		}
		seen[id] = true
		if !correct[id] {
			return false
		}
	}
	return true
}
