package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"voltage-backend/internal/database"
	"voltage-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedLecture(t *testing.T, repos Repositories, free bool) (*models.User, *models.Lecture) {
	t.Helper()

	user := &models.User{PhoneNumber: "01012345678", Password: "hash", FirstName: "Mona"}
	require.NoError(t, repos.Users.Create(user))

	chapter := &models.Chapter{Title: "Electricity", Grade: 3}
	require.NoError(t, repos.Chapters.Create(chapter))

	lecture := &models.Lecture{ChapterID: chapter.ID, Title: "Ohm's law", VideoURL: "https://youtu.be/abc", IsFree: free, PriceCents: 5000}
	require.NoError(t, repos.Lectures.Create(lecture))

	return user, lecture
}

func TestAdjustBatteryClampsAtBounds(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	user, _ := seedLecture(t, repos, true)

	level, err := repos.Users.AdjustBattery(user.ID, 98)
	require.NoError(t, err)
	require.Equal(t, 98, level)

	level, err = repos.Users.AdjustBattery(user.ID, 5)
	require.NoError(t, err)
	require.Equal(t, models.MaxBatteryLevel, level)

	level, err = repos.Users.AdjustBattery(user.ID, -250)
	require.NoError(t, err)
	require.Equal(t, models.MinBatteryLevel, level)

	_, err = repos.Users.AdjustBattery(user.ID+100, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEnrollmentGetOrCreateIsIdempotent(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	user, lecture := seedLecture(t, repos, true)

	first, created, err := repos.Enrollments.GetOrCreate(user.ID, lecture.ID, models.EnrollmentSourceFree)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := repos.Enrollments.GetOrCreate(user.ID, lecture.ID, models.EnrollmentSourcePayment)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, models.EnrollmentSourceFree, second.Source)
}

func TestEnrollmentGetOrCreateConcurrent(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	user, lecture := seedLecture(t, repos, true)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inserts int
		errs    []error
		ids     = make(map[uint]struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enrollment, created, err := repos.Enrollments.GetOrCreate(user.ID, lecture.ID, models.EnrollmentSourceFree)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if created {
				inserts++
			}
			ids[enrollment.ID] = struct{}{}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Equal(t, 1, inserts)
	require.Len(t, ids, 1)
}

func TestMarkCompletedOnlyOnce(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	user, lecture := seedLecture(t, repos, true)

	enrollment, _, err := repos.Enrollments.GetOrCreate(user.ID, lecture.ID, models.EnrollmentSourceFree)
	require.NoError(t, err)

	firstAt := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	changed, err := repos.Enrollments.MarkCompleted(enrollment.ID, firstAt)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repos.Enrollments.MarkCompleted(enrollment.ID, firstAt.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, changed)

	stored, err := repos.Enrollments.Get(user.ID, lecture.ID)
	require.NoError(t, err)
	require.True(t, stored.IsCompleted)
	require.NotNil(t, stored.CompletedAt)
	require.True(t, stored.CompletedAt.Equal(firstAt))
}

func TestPendingOrderIsUniquePerStudentLecture(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	user, lecture := seedLecture(t, repos, false)

	first := &models.PaymentOrder{ReferenceCode: "123456", StudentID: user.ID, LectureID: lecture.ID, AmountCents: 5000, Status: models.PaymentStatusPending}
	require.NoError(t, repos.Orders.Create(first))

	second := &models.PaymentOrder{ReferenceCode: "654321", StudentID: user.ID, LectureID: lecture.ID, AmountCents: 5000, Status: models.PaymentStatusPending}
	err := repos.Orders.Create(second)
	require.Error(t, err)
	require.True(t, IsDuplicateKeyError(err))

	changed, err := repos.Orders.TransitionStatus(first.ID, models.PaymentStatusPending, models.PaymentStatusExpired, nil, "")
	require.NoError(t, err)
	require.True(t, changed)

	require.NoError(t, repos.Orders.Create(second))
}

func TestTransitionStatusRequiresExpectedStatus(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	user, lecture := seedLecture(t, repos, false)

	order := &models.PaymentOrder{ReferenceCode: "111111", StudentID: user.ID, LectureID: lecture.ID, AmountCents: 5000, Status: models.PaymentStatusPending}
	require.NoError(t, repos.Orders.Create(order))

	paidAt := time.Now().UTC()
	changed, err := repos.Orders.TransitionStatus(order.ID, models.PaymentStatusPending, models.PaymentStatusPaid, &paidAt, "checked")
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repos.Orders.TransitionStatus(order.ID, models.PaymentStatusPending, models.PaymentStatusExpired, nil, "")
	require.NoError(t, err)
	require.False(t, changed)

	stored, err := repos.Orders.GetByReference("111111")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	require.Equal(t, "checked", stored.AdminNotes)
}

func TestRedeemActivationCodeOnce(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	user, lecture := seedLecture(t, repos, false)

	require.NoError(t, repos.Codes.CreateBatch([]models.ActivationCode{{Code: "ABCD1234EFGH", LectureID: lecture.ID}}))

	redeemed, err := repos.Codes.Redeem("ABCD1234EFGH", user.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, redeemed)

	redeemed, err = repos.Codes.Redeem("ABCD1234EFGH", user.ID, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, redeemed)

	code, err := repos.Codes.GetByCode("ABCD1234EFGH")
	require.NoError(t, err)
	require.True(t, code.IsUsed)
	require.NotNil(t, code.UsedByID)
	require.Equal(t, user.ID, *code.UsedByID)
}

func TestResultAttemptNumberIsUnique(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	user, lecture := seedLecture(t, repos, true)

	quiz := &models.Quiz{
		LectureID: lecture.ID,
		Title:     "Check",
		IsActive:  true,
		Questions: []models.Question{
			{Text: "Q2", CorrectAnswer: models.OptionB, Points: 1, Order: 2},
			{Text: "Q1", CorrectAnswer: models.OptionA, Points: 1, Order: 1},
		},
	}
	require.NoError(t, repos.Quizzes.Create(quiz))

	questions, err := repos.Quizzes.ListQuestions(quiz.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.Equal(t, "Q1", questions[0].Text)

	now := time.Now().UTC()
	first := &models.StudentResult{StudentID: user.ID, QuizID: quiz.ID, AttemptNumber: 1, StartedAt: now, CompletedAt: &now}
	require.NoError(t, repos.Results.Create(first))

	duplicate := &models.StudentResult{StudentID: user.ID, QuizID: quiz.ID, AttemptNumber: 1, StartedAt: now, CompletedAt: &now}
	err = repos.Results.Create(duplicate)
	require.True(t, IsDuplicateKeyError(err))

	count, err := repos.Results.CountAttempts(user.ID, quiz.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestWithinTransactionRollsBack(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	user, _ := seedLecture(t, store.Repositories(ctx), true)

	failure := errors.New("boom")
	err := store.WithinTransaction(ctx, func(repos Repositories) error {
		if _, err := repos.Users.AdjustBattery(user.ID, 40); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)

	stored, err := store.Repositories(ctx).Users.GetByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.BatteryLevel)
}

func TestQuizBooleanFlagsPersistFalse(t *testing.T) {
	repos := NewRepositories(newTestDB(t))
	_, lecture := seedLecture(t, repos, true)

	quiz := &models.Quiz{LectureID: lecture.ID, Title: "Hidden", ShowAnswers: false, ShuffleQuestions: false, IsActive: true}
	require.NoError(t, repos.Quizzes.Create(quiz))

	stored, err := repos.Quizzes.GetByID(quiz.ID)
	require.NoError(t, err)
	require.False(t, stored.ShowAnswers)
	require.False(t, stored.ShuffleQuestions)

	first, err := repos.Quizzes.FirstActiveByLecture(lecture.ID)
	require.NoError(t, err)
	require.Equal(t, quiz.ID, first.ID)
}
