package course

import "gorm.io/gorm"

// Quiz modes
const (
	QuizStandard = "STANDARD"
	QuizTraining = "TRAINING"
)

// Quiz is a set of questions attached to either a lesson or a whole course
// (mutually exclusive; the unused scope id stays zero).
type Quiz struct {
	gorm.Model
	LessonID     uint   `json:"lesson_id" gorm:"index;default:0"`
	CourseID     uint   `json:"course_id" gorm:"index;default:0"`
	Title        string `json:"title"`
	PassingScore int    `json:"passing_score" gorm:"default:0"` // percentage 0-100
	MaxAttempts  int    `json:"max_attempts" gorm:"default:0"`  // 0 = unlimited
	// No column default on purpose: gorm drops zero-value fields that carry a
	// default tag from the INSERT, which would turn every false into true.
	// CreateQuiz always sets the value explicitly.
	AllowRetakes bool   `json:"allow_retakes"`
	Mode         string `json:"mode" gorm:"default:'STANDARD'"` // STANDARD, TRAINING
	IsActive     bool   `json:"is_active" gorm:"default:false"`
	IsDeleted    bool   `gorm:"default:false"`
}

// Question belongs to one quiz
type Question struct {
	gorm.Model
	QuizID      uint   `json:"quiz_id" gorm:"index;not null"`
	Text        string `json:"text" gorm:"type:text"`
	Points      int    `json:"points" gorm:"default:1"`
	// Same INSERT trap as Quiz.AllowRetakes: no default tag, AddQuestion sets
	// the value explicitly so optional questions persist as false.
	Required    bool   `json:"required"`
	Explanation string `json:"explanation" gorm:"type:text"` // surfaced only in TRAINING mode
	IsDeleted   bool   `gorm:"default:false"`
}

// Option represents an answer option for a question
type Option struct {
	gorm.Model
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	IsDeleted  bool   `gorm:"default:false"`
}
