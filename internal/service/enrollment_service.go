package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"voltage-backend/internal/models"
	"voltage-backend/internal/repository"
	"voltage-backend/pkg/logger"
)

// EnrollmentService tracks lecture watch progress and completion.
type EnrollmentService struct {
	store repository.Store
	now   func() time.Time
}

func NewEnrollmentService(store repository.Store) *EnrollmentService {
	return &EnrollmentService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *EnrollmentService) ensureStore() error {
	if s == nil || s.store == nil {
		return errors.New("enrollment repository is not configured")
	}
	return nil
}

// UpdateProgress stores the reported watch percentage. The first time progress
// reaches the completion threshold the enrollment is completed and the battery
// is charged, in the same transaction. Progress may move down afterwards
// without undoing completion.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, studentID, lectureID uint, progress int) (*models.ProgressUpdate, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	progress = models.ClampProgress(progress)
	var update models.ProgressUpdate

	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		enrollment, err := repos.Enrollments.Get(studentID, lectureID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEnrolled
			}
			return err
		}

		if err := repos.Enrollments.UpdateProgress(enrollment.ID, progress); err != nil {
			return err
		}

		update.Progress = progress
		update.Completed = enrollment.IsCompleted

		if progress >= models.CompletionThreshold && !enrollment.IsCompleted {
			completed, err := repos.Enrollments.MarkCompleted(enrollment.ID, s.now())
			if err != nil {
				return err
			}
			if completed {
				update.Completed = true
				level, err := repos.Users.AdjustBattery(studentID, completionBatteryDelta)
				if err != nil {
					return fmt.Errorf("adjust battery: %w", err)
				}
				update.BatteryLevel = level

				logger.Info("Lecture completed", map[string]interface{}{
					"student_id": studentID,
					"lecture_id": lectureID,
				})
				return nil
			}
			update.Completed = true
		}

		user, err := repos.Users.GetByID(studentID)
		if err != nil {
			return notFound(err)
		}
		update.BatteryLevel = user.BatteryLevel
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &update, nil
}

func (s *EnrollmentService) Dashboard(ctx context.Context, studentID uint) (*models.Dashboard, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories(ctx)
	user, err := repos.Users.GetByID(studentID)
	if err != nil {
		return nil, notFound(err)
	}

	enrollments, err := repos.Enrollments.ListByStudent(studentID)
	if err != nil {
		return nil, err
	}

	return &models.Dashboard{
		Student:      *user,
		BatteryLevel: user.BatteryLevel,
		Enrollments:  enrollments,
	}, nil
}
