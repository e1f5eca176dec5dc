package service

import (
	"context"
	"time"

	"voltage-backend/internal/background"
	"voltage-backend/internal/models"
)

// AttemptClock stores the start time of an in-flight quiz attempt per
// (student, quiz). Entries are advisory: a missing entry yields time_taken 0.
type AttemptClock interface {
	Start(ctx context.Context, studentID, quizID uint, at time.Time) error
	StartedAt(ctx context.Context, studentID, quizID uint) (time.Time, bool, error)
	Clear(ctx context.Context, studentID, quizID uint) error
}

// ChapterCache memoises the public chapter listing per grade.
type ChapterCache interface {
	GetChapters(ctx context.Context, grade int) ([]models.Chapter, bool)
	SetChapters(ctx context.Context, grade int, chapters []models.Chapter)
	InvalidateChapters(ctx context.Context)
}

// JobScheduler runs best-effort work outside the request path.
type JobScheduler interface {
	ScheduleUnique(job background.Job) error
}

type AuthUseCase interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error)
	Profile(ctx context.Context, userID uint) (*models.User, error)
}

type CatalogUseCase interface {
	ListChapters(ctx context.Context, grade int) ([]models.Chapter, error)
	ListLectures(ctx context.Context, chapterID, studentID uint) (*models.LectureListing, error)
	LectureDetail(ctx context.Context, studentID, lectureID uint) (*models.LectureDetail, error)
	CreateChapter(ctx context.Context, req models.CreateChapterRequest) (*models.Chapter, error)
	CreateLecture(ctx context.Context, req models.CreateLectureRequest) (*models.Lecture, error)
}

type EnrollmentUseCase interface {
	UpdateProgress(ctx context.Context, studentID, lectureID uint, progress int) (*models.ProgressUpdate, error)
	Dashboard(ctx context.Context, studentID uint) (*models.Dashboard, error)
}

type QuizUseCase interface {
	Intro(ctx context.Context, studentID, quizID uint) (*models.QuizIntro, error)
	Start(ctx context.Context, studentID, quizID uint) (*models.QuizAttempt, error)
	Submit(ctx context.Context, studentID, quizID uint, req models.SubmitQuizRequest) (*models.StudentResult, error)
	ViewResult(ctx context.Context, studentID, resultID uint) (*models.QuizResultView, error)
	ListResults(ctx context.Context, studentID uint) ([]models.StudentResult, error)
	CreateQuiz(ctx context.Context, req models.CreateQuizRequest) (*models.Quiz, error)
}

type PaymentUseCase interface {
	CreateOrder(ctx context.Context, studentID, lectureID uint) (*models.Checkout, error)
	Status(ctx context.Context, studentID uint, reference string) (*models.PaymentOrder, error)
	ListOrders(ctx context.Context, studentID uint) ([]models.PaymentOrder, error)
	ListByStatus(ctx context.Context, status models.PaymentStatus) ([]models.PaymentOrder, error)
	Confirm(ctx context.Context, orderID uint, notes string) (*models.PaymentOrder, error)
	Expire(ctx context.Context, orderID uint, notes string) (*models.PaymentOrder, error)
	Fail(ctx context.Context, orderID uint, notes string) (*models.PaymentOrder, error)
	ExpireStale(ctx context.Context) (int, error)
	SetWallet(ctx context.Context, req models.SetWalletRequest) (*models.WalletConfig, error)
}

type ActivationUseCase interface {
	Redeem(ctx context.Context, studentID uint, code string) (*models.Enrollment, error)
	Generate(ctx context.Context, lectureID uint, count int) ([]models.ActivationCode, error)
	ListCodes(ctx context.Context, lectureID uint) ([]models.ActivationCode, error)
}
