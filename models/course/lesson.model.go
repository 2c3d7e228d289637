package course

import "gorm.io/gorm"

// Lesson content types
const (
	LessonText  = "TEXT"
	LessonVideo = "VIDEO"
	LessonPDF   = "PDF"
)

// Lesson represents a single piece of learnable content within a module.
// CourseID is denormalized from the module so progress denominators can be
// collected with one query per course.
type Lesson struct {
	gorm.Model
	ModuleID    uint   `json:"module_id" gorm:"index;not null"`
	CourseID    uint   `json:"course_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ContentType string `json:"content_type" gorm:"default:'TEXT'"` // TEXT, VIDEO, PDF
	TextContent string `json:"text_content" gorm:"type:text"`
	VideoURL    string `json:"video_url"`
	FileURL     string `json:"file_url"`
	IsPublished bool   `json:"is_published" gorm:"default:false"`
	IsDeleted   bool   `gorm:"default:false"`
}
