package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voltage-backend/internal/models"
)

type EnrollmentRepository interface {
	Get(studentID, lectureID uint) (*models.Enrollment, error)
	// GetOrCreate returns the enrollment for the pair, inserting it with the
	// given source when missing. created reports whether this call inserted it.
	GetOrCreate(studentID, lectureID uint, source models.EnrollmentSource) (*models.Enrollment, bool, error)
	UpdateProgress(id uint, progress int) error
	// MarkCompleted flips is_completed once; it reports false when the
	// enrollment was already completed.
	MarkCompleted(id uint, at time.Time) (bool, error)
	ListByStudent(studentID uint) ([]models.Enrollment, error)
	ListByStudentInChapter(studentID, chapterID uint) ([]models.Enrollment, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Get(studentID, lectureID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.Where("student_id = ? AND lecture_id = ?", studentID, lectureID).First(&enrollment).Error
	return &enrollment, err
}

func (r *enrollmentRepository) GetOrCreate(studentID, lectureID uint, source models.EnrollmentSource) (*models.Enrollment, bool, error) {
	if source == "" {
		source = models.EnrollmentSourceFree
	}

	enrollment := models.Enrollment{
		StudentID: studentID,
		LectureID: lectureID,
		Source:    source,
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "lecture_id"}},
		DoNothing: true,
	}).Omit("Lecture").Create(&enrollment)
	if result.Error != nil {
		return nil, false, result.Error
	}

	existing, err := r.Get(studentID, lectureID)
	if err != nil {
		return nil, false, err
	}
	return existing, result.RowsAffected == 1, nil
}

func (r *enrollmentRepository) UpdateProgress(id uint, progress int) error {
	return r.db.Model(&models.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress":   progress,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *enrollmentRepository) MarkCompleted(id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.Enrollment{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *enrollmentRepository) ListByStudent(studentID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.
		Preload("Lecture").
		Preload("Lecture.Chapter").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepository) ListByStudentInChapter(studentID, chapterID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.
		Joins("JOIN lectures ON lectures.id = enrollments.lecture_id").
		Where("enrollments.student_id = ? AND lectures.chapter_id = ?", studentID, chapterID).
		Order("enrollments.id ASC").
		Find(&enrollments).Error
	return enrollments, err
}
