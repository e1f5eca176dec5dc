package repository

import (
	"gorm.io/gorm"

	"voltage-backend/internal/models"
)

type QuizRepository interface {
	// Create stores the quiz together with its Questions.
	Create(quiz *models.Quiz) error
	GetByID(id uint) (*models.Quiz, error)
	ListQuestions(quizID uint) ([]models.Question, error)
	FirstActiveByLecture(lectureID uint) (*models.Quiz, error)
}

type ResultRepository interface {
	CountAttempts(studentID, quizID uint) (int, error)
	Create(result *models.StudentResult) error
	GetForStudent(id, studentID uint) (*models.StudentResult, error)
	ListByStudent(studentID uint) ([]models.StudentResult, error)
}

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(quiz *models.Quiz) error {
	return r.db.Create(quiz).Error
}

func (r *quizRepository) GetByID(id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.First(&quiz, id).Error
	return &quiz, err
}

func (r *quizRepository) ListQuestions(quizID uint) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.
		Where("quiz_id = ?", quizID).
		Order(`"order" ASC`).
		Order("id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *quizRepository) FirstActiveByLecture(lectureID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.
		Where("lecture_id = ? AND is_active = ?", lectureID, true).
		Order("id ASC").
		First(&quiz).Error
	return &quiz, err
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) CountAttempts(studentID, quizID uint) (int, error) {
	var count int64
	err := r.db.Model(&models.StudentResult{}).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Count(&count).Error
	return int(count), err
}

func (r *resultRepository) Create(result *models.StudentResult) error {
	return r.db.Omit("Quiz").Create(result).Error
}

func (r *resultRepository) GetForStudent(id, studentID uint) (*models.StudentResult, error) {
	var result models.StudentResult
	err := r.db.
		Preload("Quiz").
		Where("id = ? AND student_id = ?", id, studentID).
		First(&result).Error
	return &result, err
}

func (r *resultRepository) ListByStudent(studentID uint) ([]models.StudentResult, error) {
	var results []models.StudentResult
	err := r.db.
		Preload("Quiz").
		Where("student_id = ?", studentID).
		Order("completed_at DESC").
		Order("id DESC").
		Find(&results).Error
	return results, err
}
