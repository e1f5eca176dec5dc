package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"voltage-backend/internal/background"
	"voltage-backend/internal/metrics"
	"voltage-backend/internal/models"
	"voltage-backend/internal/repository"
	"voltage-backend/pkg/logger"
	"voltage-backend/pkg/media"
	"voltage-backend/pkg/validator"
)

// CatalogService serves chapters and lectures and gates lecture access.
type CatalogService struct {
	store     repository.Store
	cache     ChapterCache
	durations *DurationService
	scheduler JobScheduler
}

func NewCatalogService(store repository.Store, cache ChapterCache, durations *DurationService, scheduler JobScheduler) *CatalogService {
	return &CatalogService{
		store:     store,
		cache:     cache,
		durations: durations,
		scheduler: scheduler,
	}
}

func (s *CatalogService) ensureStore() error {
	if s == nil || s.store == nil {
		return errors.New("catalog repository is not configured")
	}
	return nil
}

// ListChapters returns active chapters, optionally restricted to one grade.
// Grades outside 1-3 are ignored.
func (s *CatalogService) ListChapters(ctx context.Context, grade int) ([]models.Chapter, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}
	if grade < 1 || grade > 3 {
		grade = 0
	}

	if s.cache != nil {
		if chapters, ok := s.cache.GetChapters(ctx, grade); ok {
			return chapters, nil
		}
	}

	repos := s.store.Repositories(ctx)
	chapters, err := repos.Chapters.ListActive(grade)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(chapters))
	for _, chapter := range chapters {
		ids = append(ids, chapter.ID)
	}
	counts, err := repos.Lectures.CountActiveByChapters(ids)
	if err != nil {
		return nil, err
	}
	for i := range chapters {
		chapters[i].LecturesCount = counts[chapters[i].ID]
	}

	if s.cache != nil {
		s.cache.SetChapters(ctx, grade, chapters)
	}
	return chapters, nil
}

// ListLectures returns the active lectures of a chapter. When studentID is set
// the listing also carries the lectures the student is enrolled in and has
// completed.
func (s *CatalogService) ListLectures(ctx context.Context, chapterID, studentID uint) (*models.LectureListing, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories(ctx)
	chapter, err := repos.Chapters.GetByID(chapterID)
	if err != nil {
		return nil, notFound(err)
	}
	if !chapter.IsActive {
		return nil, ErrNotFound
	}

	lectures, err := repos.Lectures.ListActiveByChapter(chapter.ID)
	if err != nil {
		return nil, err
	}

	listing := &models.LectureListing{
		Chapter:      *chapter,
		Lectures:     lectures,
		EnrolledIDs:  []uint{},
		CompletedIDs: []uint{},
	}
	if studentID == 0 {
		return listing, nil
	}

	enrollments, err := repos.Enrollments.ListByStudentInChapter(studentID, chapter.ID)
	if err != nil {
		return nil, err
	}
	for _, enrollment := range enrollments {
		listing.EnrolledIDs = append(listing.EnrolledIDs, enrollment.LectureID)
		if enrollment.IsCompleted {
			listing.CompletedIDs = append(listing.CompletedIDs, enrollment.LectureID)
		}
	}

	return listing, nil
}

// LectureDetail opens a lecture for a student. Free lectures enroll the
// student on first visit; paid lectures require an existing enrollment.
func (s *CatalogService) LectureDetail(ctx context.Context, studentID, lectureID uint) (*models.LectureDetail, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories(ctx)
	lecture, err := repos.Lectures.GetByID(lectureID)
	if err != nil {
		return nil, notFound(err)
	}
	if !lecture.IsActive {
		return nil, ErrNotFound
	}

	user, err := repos.Users.GetByID(studentID)
	if err != nil {
		return nil, notFound(err)
	}

	var enrollment *models.Enrollment
	if lecture.IsFree {
		var created bool
		enrollment, created, err = repos.Enrollments.GetOrCreate(studentID, lecture.ID, models.EnrollmentSourceFree)
		if err != nil {
			return nil, err
		}
		if created {
			metrics.ObserveEnrollment(models.EnrollmentSourceFree)
		}
	} else {
		enrollment, err = repos.Enrollments.Get(studentID, lecture.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAccessDenied
			}
			return nil, err
		}
	}

	detail := &models.LectureDetail{
		Lecture:      *lecture,
		EmbedURL:     media.EmbedURL(lecture.VideoURL),
		Enrollment:   enrollment,
		StudentPhone: user.PhoneNumber,
	}

	quiz, err := repos.Quizzes.FirstActiveByLecture(lecture.ID)
	switch {
	case err == nil:
		detail.Quiz = quiz
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	return detail, nil
}

func (s *CatalogService) CreateChapter(ctx context.Context, req models.CreateChapterRequest) (*models.Chapter, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	title := validator.SanitizeString(strings.TrimSpace(req.Title))
	if title == "" {
		return nil, newValidationError("chapter title is required")
	}
	if req.Grade < 1 || req.Grade > 3 {
		return nil, newValidationError("grade must be between 1 and 3")
	}

	chapter := &models.Chapter{
		Title:       title,
		Description: validator.SanitizeHTML(req.Description),
		Grade:       req.Grade,
		Order:       req.Order,
		IsActive:    true,
	}
	if err := s.store.Repositories(ctx).Chapters.Create(chapter); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateChapters(ctx)
	}
	return chapter, nil
}

// CreateLecture saves the lecture first and then resolves its duration on a
// best-effort basis; a failed lookup never fails the save.
func (s *CatalogService) CreateLecture(ctx context.Context, req models.CreateLectureRequest) (*models.Lecture, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	title := validator.SanitizeString(strings.TrimSpace(req.Title))
	if title == "" {
		return nil, newValidationError("lecture title is required")
	}
	videoURL := strings.TrimSpace(req.VideoURL)
	if videoURL == "" {
		return nil, newValidationError("video url is required")
	}
	if !req.IsFree && req.PriceCents <= 0 {
		return nil, newValidationError("paid lectures need a positive price")
	}

	repos := s.store.Repositories(ctx)
	if _, err := repos.Chapters.GetByID(req.ChapterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newValidationError("chapter %d does not exist", req.ChapterID)
		}
		return nil, err
	}

	lecture := &models.Lecture{
		ChapterID:   req.ChapterID,
		Title:       title,
		Description: validator.SanitizeHTML(req.Description),
		VideoURL:    videoURL,
		Duration:    req.Duration,
		PDFFile:     strings.TrimSpace(req.PDFFile),
		PriceCents:  req.PriceCents,
		IsFree:      req.IsFree,
		Order:       req.Order,
		IsActive:    true,
	}
	if lecture.IsFree {
		lecture.PriceCents = 0
	}

	if err := repos.Lectures.Create(lecture); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateChapters(ctx)
	}
	if lecture.Duration == 0 {
		s.scheduleDuration(ctx, lecture.ID)
	}

	return lecture, nil
}

func (s *CatalogService) scheduleDuration(ctx context.Context, lectureID uint) {
	if s.durations == nil {
		return
	}

	run := func(jobCtx context.Context) error {
		return s.durations.EnrichLecture(jobCtx, lectureID)
	}

	if s.scheduler == nil {
		if err := run(ctx); err != nil {
			logger.Warn("Lecture duration lookup failed", map[string]interface{}{
				"lecture_id": lectureID,
				"error":      err.Error(),
			})
		}
		return
	}

	err := s.scheduler.ScheduleUnique(background.Job{
		Name:        fmt.Sprintf("lecture-duration-%d", lectureID),
		Run:         run,
		Timeout:     30 * time.Second,
		RetryPolicy: background.RetryPolicy{MaxRetries: 2, Backoff: time.Minute},
	})
	if err != nil && !errors.Is(err, background.ErrJobAlreadyScheduled) {
		logger.Warn("Failed to schedule lecture duration lookup", map[string]interface{}{
			"lecture_id": lectureID,
			"error":      err.Error(),
		})
	}
}
