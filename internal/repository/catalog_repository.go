package repository

import (
	"gorm.io/gorm"

	"voltage-backend/internal/models"
)

type ChapterRepository interface {
	Create(chapter *models.Chapter) error
	GetByID(id uint) (*models.Chapter, error)
	// ListActive returns active chapters ordered for display. A grade of 0
	// disables the grade filter.
	ListActive(grade int) ([]models.Chapter, error)
}

type LectureRepository interface {
	Create(lecture *models.Lecture) error
	Update(lecture *models.Lecture) error
	GetByID(id uint) (*models.Lecture, error)
	ListActiveByChapter(chapterID uint) ([]models.Lecture, error)
	CountActiveByChapters(chapterIDs []uint) (map[uint]int64, error)
	ListMissingDuration(limit int) ([]models.Lecture, error)
	SetDuration(id uint, minutes int) error
}

type chapterRepository struct {
	db *gorm.DB
}

func NewChapterRepository(db *gorm.DB) ChapterRepository {
	return &chapterRepository{db: db}
}

func (r *chapterRepository) Create(chapter *models.Chapter) error {
	return r.db.Create(chapter).Error
}

func (r *chapterRepository) GetByID(id uint) (*models.Chapter, error) {
	var chapter models.Chapter
	err := r.db.First(&chapter, id).Error
	return &chapter, err
}

func (r *chapterRepository) ListActive(grade int) ([]models.Chapter, error) {
	query := r.db.Where("is_active = ?", true)
	if grade > 0 {
		query = query.Where("grade = ?", grade)
	}

	var chapters []models.Chapter
	err := query.Order("grade ASC").Order(`"order" ASC`).Order("id ASC").Find(&chapters).Error
	return chapters, err
}

type lectureRepository struct {
	db *gorm.DB
}

func NewLectureRepository(db *gorm.DB) LectureRepository {
	return &lectureRepository{db: db}
}

func (r *lectureRepository) Create(lecture *models.Lecture) error {
	return r.db.Create(lecture).Error
}

func (r *lectureRepository) Update(lecture *models.Lecture) error {
	return r.db.Omit("Chapter").Save(lecture).Error
}

func (r *lectureRepository) GetByID(id uint) (*models.Lecture, error) {
	var lecture models.Lecture
	err := r.db.Preload("Chapter").First(&lecture, id).Error
	return &lecture, err
}

func (r *lectureRepository) ListActiveByChapter(chapterID uint) ([]models.Lecture, error) {
	var lectures []models.Lecture
	err := r.db.
		Where("chapter_id = ? AND is_active = ?", chapterID, true).
		Order(`"order" ASC`).
		Order("id ASC").
		Find(&lectures).Error
	return lectures, err
}

func (r *lectureRepository) CountActiveByChapters(chapterIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(chapterIDs))
	if len(chapterIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ChapterID uint
		Total     int64
	}
	err := r.db.Model(&models.Lecture{}).
		Select("chapter_id, COUNT(*) AS total").
		Where("chapter_id IN ? AND is_active = ?", chapterIDs, true).
		Group("chapter_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.ChapterID] = row.Total
	}
	return counts, nil
}

func (r *lectureRepository) ListMissingDuration(limit int) ([]models.Lecture, error) {
	query := r.db.Where("duration = 0 AND video_url <> ''").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var lectures []models.Lecture
	err := query.Find(&lectures).Error
	return lectures, err
}

func (r *lectureRepository) SetDuration(id uint, minutes int) error {
	result := r.db.Model(&models.Lecture{}).Where("id = ?", id).UpdateColumn("duration", minutes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
