package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"

	"voltage-backend/internal/metrics"
	"voltage-backend/internal/models"
	"voltage-backend/internal/repository"
	"voltage-backend/pkg/logger"
)

const (
	activationCodeLength   = 12
	activationCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxGenerateBatch       = 500
)

// ActivationService redeems and issues single-use lecture activation codes.
type ActivationService struct {
	store   repository.Store
	now     func() time.Time
	newCode func() (string, error)
}

func NewActivationService(store repository.Store) *ActivationService {
	return &ActivationService{
		store:   store,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: randomActivationCode,
	}
}

func (s *ActivationService) ensureStore() error {
	if s == nil || s.store == nil {
		return errors.New("activation code repository is not configured")
	}
	return nil
}

// Redeem consumes a code and enrolls the student in its lecture. Unknown and
// already used codes fail with ErrInvalidCode; concurrent redemptions of the
// same code have a single winner.
func (s *ActivationService) Redeem(ctx context.Context, studentID uint, raw string) (*models.Enrollment, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	code := models.NormalizeActivationCode(raw)
	if code == "" {
		return nil, ErrInvalidCode
	}

	var (
		enrollment *models.Enrollment
		created    bool
	)
	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		activation, err := repos.Codes.GetByCode(code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCode
			}
			return err
		}
		if activation.IsUsed {
			return ErrInvalidCode
		}

		redeemed, err := repos.Codes.Redeem(code, studentID, s.now())
		if err != nil {
			return err
		}
		if !redeemed {
			return ErrInvalidCode
		}

		enrollment, created, err = repos.Enrollments.GetOrCreate(studentID, activation.LectureID, models.EnrollmentSourceCode)
		return err
	})
	if err != nil {
		metrics.ObserveCodeRedemption(false)
		return nil, err
	}

	metrics.ObserveCodeRedemption(true)
	if created {
		metrics.ObserveEnrollment(models.EnrollmentSourceCode)
	}
	logger.Info("Activation code redeemed", map[string]interface{}{
		"student_id": studentID,
		"lecture_id": enrollment.LectureID,
	})
	return enrollment, nil
}

// Generate issues count fresh codes for a lecture.
func (s *ActivationService) Generate(ctx context.Context, lectureID uint, count int) ([]models.ActivationCode, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}
	if count < 1 || count > maxGenerateBatch {
		return nil, newValidationError("count must be between 1 and %d", maxGenerateBatch)
	}

	repos := s.store.Repositories(ctx)
	if _, err := repos.Lectures.GetByID(lectureID); err != nil {
		return nil, notFound(err)
	}

	seen := make(map[string]struct{}, count)
	codes := make([]models.ActivationCode, 0, count)
	for attempts := 0; len(codes) < count; attempts++ {
		if attempts >= count*maxReferenceAttempts {
			return nil, fmt.Errorf("could not allocate %d unique activation codes", count)
		}

		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		exists, err := repos.Codes.Exists(code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		seen[code] = struct{}{}
		codes = append(codes, models.ActivationCode{Code: code, LectureID: lectureID})
	}

	if err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		return repos.Codes.CreateBatch(codes)
	}); err != nil {
		return nil, err
	}

	logger.Info("Activation codes generated", map[string]interface{}{
		"lecture_id": lectureID,
		"count":      len(codes),
	})
	return codes, nil
}

func (s *ActivationService) ListCodes(ctx context.Context, lectureID uint) ([]models.ActivationCode, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}
	return s.store.Repositories(ctx).Codes.ListByLecture(lectureID)
}

func randomActivationCode() (string, error) {
	var b strings.Builder
	b.Grow(activationCodeLength)
	max := big.NewInt(int64(len(activationCodeAlphabet)))
	for i := 0; i < activationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate activation code: %w", err)
		}
		b.WriteByte(activationCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
