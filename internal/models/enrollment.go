package models

import "time"

type EnrollmentSource string

const (
	EnrollmentSourceFree    EnrollmentSource = "free"
	EnrollmentSourcePayment EnrollmentSource = "payment"
	EnrollmentSourceCode    EnrollmentSource = "code"
	EnrollmentSourceAdmin   EnrollmentSource = "admin"
)

const (
	// CompletionThreshold is the watch percentage that marks a lecture completed.
	CompletionThreshold = 90
	MaxProgress         = 100
)

// Enrollment grants one student access to one lecture. The (student, lecture)
// pair is unique; rows are never duplicated or soft deleted.
type Enrollment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"enrolled_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StudentID uint             `gorm:"not null;uniqueIndex:idx_enrollments_student_lecture,priority:1" json:"student_id"`
	LectureID uint             `gorm:"not null;uniqueIndex:idx_enrollments_student_lecture,priority:2;index" json:"lecture_id"`
	Source    EnrollmentSource `gorm:"type:varchar(16);not null;default:'free'" json:"source"`

	Progress    int        `gorm:"not null;default:0" json:"progress"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Lecture Lecture `gorm:"constraint:OnDelete:CASCADE;" json:"lecture,omitempty"`
}

// ClampProgress bounds a reported watch percentage to [0, 100].
func ClampProgress(progress int) int {
	if progress > MaxProgress {
		return MaxProgress
	}
	if progress < 0 {
		return 0
	}
	return progress
}
