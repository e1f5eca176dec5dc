package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repositories groups every aggregate repository bound to one gorm handle,
// either the shared pool or an open transaction.
type Repositories struct {
	Users       UserRepository
	Chapters    ChapterRepository
	Lectures    LectureRepository
	Enrollments EnrollmentRepository
	Quizzes     QuizRepository
	Results     ResultRepository
	Orders      PaymentOrderRepository
	Codes       ActivationCodeRepository
	Wallets     WalletConfigRepository
}

// Store hands out repositories and runs units of work. Repositories passed to
// the WithinTransaction callback must be the only ones used inside it.
type Store interface {
	Repositories(ctx context.Context) Repositories
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:       NewUserRepository(db),
		Chapters:    NewChapterRepository(db),
		Lectures:    NewLectureRepository(db),
		Enrollments: NewEnrollmentRepository(db),
		Quizzes:     NewQuizRepository(db),
		Results:     NewResultRepository(db),
		Orders:      NewPaymentOrderRepository(db),
		Codes:       NewActivationCodeRepository(db),
		Wallets:     NewWalletConfigRepository(db),
	}
}

func (s *gormStore) Repositories(ctx context.Context) Repositories {
	return NewRepositories(s.session(ctx))
}

func (s *gormStore) WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialised")
	}
	if fn == nil {
		return errors.New("transaction callback is required")
	}
	return s.session(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

func (s *gormStore) session(ctx context.Context) *gorm.DB {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx)
}

// IsDuplicateKeyError reports whether err is a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqlState interface{ SQLState() string }
	if errors.As(err, &sqlState) {
		return sqlState.SQLState() == "23505"
	}

	return false
}
