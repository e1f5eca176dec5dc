package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voltage-backend/internal/background"
	"voltage-backend/internal/database"
	"voltage-backend/internal/models"
	"voltage-backend/internal/repository"
)

func newTestStore(t *testing.T) repository.Store {
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
	return repository.NewStore(db)
}

func seedStudent(t *testing.T, store repository.Store, phone string, battery int) *models.User {
	t.Helper()
	user := &models.User{PhoneNumber: phone, Password: "hash", FirstName: "Student", BatteryLevel: battery}
	require.NoError(t, store.Repositories(context.Background()).Users.Create(user))
	return user
}

func seedLecture(t *testing.T, store repository.Store, free bool) *models.Lecture {
	t.Helper()
	repos := store.Repositories(context.Background())

	chapter := &models.Chapter{Title: "Electricity", Grade: 3, IsActive: true}
	require.NoError(t, repos.Chapters.Create(chapter))

	lecture := &models.Lecture{
		ChapterID:  chapter.ID,
		Title:      "Current",
		VideoURL:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		IsFree:     free,
		PriceCents: 15000,
		IsActive:   true,
	}
	if free {
		lecture.PriceCents = 0
	}
	require.NoError(t, repos.Lectures.Create(lecture))
	return lecture
}

func enroll(t *testing.T, store repository.Store, studentID, lectureID uint) *models.Enrollment {
	t.Helper()
	enrollment, _, err := store.Repositories(context.Background()).Enrollments.GetOrCreate(studentID, lectureID, models.EnrollmentSourceAdmin)
	require.NoError(t, err)
	return enrollment
}

func batteryOf(t *testing.T, store repository.Store, userID uint) int {
	t.Helper()
	user, err := store.Repositories(context.Background()).Users.GetByID(userID)
	require.NoError(t, err)
	return user.BatteryLevel
}

type fakeClock struct {
	mu       sync.Mutex
	started  map[string]time.Time
	readErr  error
	startErr error
	cleared  int
}

func newFakeClock() *fakeClock {
	return &fakeClock{started: make(map[string]time.Time)}
}

func clockKey(studentID, quizID uint) string {
	return fmt.Sprintf("%d:%d", studentID, quizID)
}

func (f *fakeClock) Start(_ context.Context, studentID, quizID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started[clockKey(studentID, quizID)] = at
	return nil
}

func (f *fakeClock) StartedAt(_ context.Context, studentID, quizID uint) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return time.Time{}, false, f.readErr
	}
	at, ok := f.started[clockKey(studentID, quizID)]
	return at, ok, nil
}

func (f *fakeClock) Clear(_ context.Context, studentID, quizID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.started, clockKey(studentID, quizID))
	f.cleared++
	return nil
}

type fakeScheduler struct {
	jobs []background.Job
	err  error
}

func (f *fakeScheduler) ScheduleUnique(job background.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

// failingBatteryStore wraps a store so that battery updates inside a
// transaction fail after the other writes have been issued.
type failingBatteryStore struct {
	repository.Store
}

type failingUsers struct {
	repository.UserRepository
}

var errBatteryUnavailable = errors.New("battery update failed")

func (failingUsers) AdjustBattery(uint, int) (int, error) {
	return 0, errBatteryUnavailable
}

func (s failingBatteryStore) WithinTransaction(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return s.Store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		repos.Users = failingUsers{UserRepository: repos.Users}
		return fn(repos)
	})
}
