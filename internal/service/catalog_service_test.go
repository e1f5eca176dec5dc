package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voltage-backend/internal/models"
	"voltage-backend/pkg/media"
)

type memoryChapterCache struct {
	entries     map[int][]models.Chapter
	invalidated int
}

func newMemoryChapterCache() *memoryChapterCache {
	return &memoryChapterCache{entries: make(map[int][]models.Chapter)}
}

func (m *memoryChapterCache) GetChapters(_ context.Context, grade int) ([]models.Chapter, bool) {
	chapters, ok := m.entries[grade]
	return chapters, ok
}

func (m *memoryChapterCache) SetChapters(_ context.Context, grade int, chapters []models.Chapter) {
	m.entries[grade] = chapters
}

func (m *memoryChapterCache) InvalidateChapters(context.Context) {
	m.entries = make(map[int][]models.Chapter)
	m.invalidated++
}

type stubResolver struct {
	duration time.Duration
	err      error
	calls    int
}

func (s *stubResolver) Resolve(context.Context, string) (time.Duration, error) {
	s.calls++
	return s.duration, s.err
}

func TestLectureDetailEnrollsFreeLectures(t *testing.T) {
	store := newTestStore(t)
	student := seedStudent(t, store, "01050505050", 0)
	lecture := seedLecture(t, store, true)
	svc := NewCatalogService(store, nil, nil, nil)
	ctx := context.Background()

	detail, err := svc.LectureDetail(ctx, student.ID, lecture.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Enrollment)
	require.Equal(t, models.EnrollmentSourceFree, detail.Enrollment.Source)
	require.Equal(t, media.EmbedURL(lecture.VideoURL), detail.EmbedURL)
	require.Contains(t, detail.EmbedURL, "/embed/dQw4w9WgXcQ")
	require.Equal(t, "01050505050", detail.StudentPhone)
	require.Nil(t, detail.Quiz)

	again, err := svc.LectureDetail(ctx, student.ID, lecture.ID)
	require.NoError(t, err)
	require.Equal(t, detail.Enrollment.ID, again.Enrollment.ID)
}

func TestLectureDetailGuardsPaidLectures(t *testing.T) {
	store := newTestStore(t)
	student := seedStudent(t, store, "01051515151", 0)
	lecture := seedLecture(t, store, false)
	svc := NewCatalogService(store, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.LectureDetail(ctx, student.ID, lecture.ID)
	require.ErrorIs(t, err, ErrAccessDenied)

	enroll(t, store, student.ID, lecture.ID)
	detail, err := svc.LectureDetail(ctx, student.ID, lecture.ID)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentSourceAdmin, detail.Enrollment.Source)

	_, err = svc.LectureDetail(ctx, student.ID, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListChaptersFiltersByGradeAndCaches(t *testing.T) {
	store := newTestStore(t)
	cache := newMemoryChapterCache()
	svc := NewCatalogService(store, cache, nil, nil)
	ctx := context.Background()

	first, err := svc.CreateChapter(ctx, models.CreateChapterRequest{Title: "Statics", Grade: 1})
	require.NoError(t, err)
	_, err = svc.CreateChapter(ctx, models.CreateChapterRequest{Title: "Waves", Grade: 2})
	require.NoError(t, err)
	_, err = svc.CreateLecture(ctx, models.CreateLectureRequest{
		ChapterID: first.ID, Title: "Forces", VideoURL: "https://youtu.be/dQw4w9WgXcQ", Duration: 12, IsFree: true,
	})
	require.NoError(t, err)

	gradeOne, err := svc.ListChapters(ctx, 1)
	require.NoError(t, err)
	require.Len(t, gradeOne, 1)
	require.Equal(t, "Statics", gradeOne[0].Title)
	require.Equal(t, int64(1), gradeOne[0].LecturesCount)

	all, err := svc.ListChapters(ctx, 7)
	require.NoError(t, err)
	require.Len(t, all, 2, "out of range grades list every chapter")

	require.Contains(t, cache.entries, 1)
	require.Contains(t, cache.entries, 0)

	_, err = svc.CreateChapter(ctx, models.CreateChapterRequest{Title: "Optics", Grade: 1})
	require.NoError(t, err)
	require.Empty(t, cache.entries, "writes invalidate the listing")

	gradeOne, err = svc.ListChapters(ctx, 1)
	require.NoError(t, err)
	require.Len(t, gradeOne, 2)
}

func TestListLecturesMarksEnrollment(t *testing.T) {
	store := newTestStore(t)
	student := seedStudent(t, store, "01052525252", 0)
	lecture := seedLecture(t, store, false)
	svc := NewCatalogService(store, nil, nil, nil)
	ctx := context.Background()

	listing, err := svc.ListLectures(ctx, lecture.ChapterID, 0)
	require.NoError(t, err)
	require.Len(t, listing.Lectures, 1)
	require.Empty(t, listing.EnrolledIDs)

	enroll(t, store, student.ID, lecture.ID)
	_, err = NewEnrollmentService(store).UpdateProgress(ctx, student.ID, lecture.ID, 100)
	require.NoError(t, err)

	listing, err = svc.ListLectures(ctx, lecture.ChapterID, student.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{lecture.ID}, listing.EnrolledIDs)
	require.Equal(t, []uint{lecture.ID}, listing.CompletedIDs)
}

func TestCreateLectureValidatesPrice(t *testing.T) {
	store := newTestStore(t)
	svc := NewCatalogService(store, nil, nil, nil)
	ctx := context.Background()

	chapter, err := svc.CreateChapter(ctx, models.CreateChapterRequest{Title: "Magnetism", Grade: 3})
	require.NoError(t, err)

	_, err = svc.CreateLecture(ctx, models.CreateLectureRequest{ChapterID: chapter.ID, Title: "Flux", VideoURL: "https://youtu.be/abcdefghijk"})
	require.True(t, IsValidationError(err))

	_, err = svc.CreateLecture(ctx, models.CreateLectureRequest{ChapterID: 9999, Title: "Flux", VideoURL: "https://youtu.be/abcdefghijk", IsFree: true})
	require.True(t, IsValidationError(err))

	lecture, err := svc.CreateLecture(ctx, models.CreateLectureRequest{
		ChapterID: chapter.ID, Title: "Flux", VideoURL: "https://youtu.be/abcdefghijk", IsFree: true, PriceCents: 9900, Duration: 30,
	})
	require.NoError(t, err)
	require.Zero(t, lecture.PriceCents, "free lectures carry no price")

	_, err = svc.CreateChapter(ctx, models.CreateChapterRequest{Title: "Too high", Grade: 4})
	require.True(t, IsValidationError(err))
}

func TestCreateLectureSchedulesDurationLookup(t *testing.T) {
	store := newTestStore(t)
	resolver := &stubResolver{duration: 754 * time.Second}
	scheduler := &fakeScheduler{}
	svc := NewCatalogService(store, nil, NewDurationService(store, resolver), scheduler)
	ctx := context.Background()

	chapter, err := svc.CreateChapter(ctx, models.CreateChapterRequest{Title: "Heat", Grade: 2})
	require.NoError(t, err)

	lecture, err := svc.CreateLecture(ctx, models.CreateLectureRequest{
		ChapterID: chapter.ID, Title: "Conduction", VideoURL: "https://youtu.be/abcdefghijk", PriceCents: 5000,
	})
	require.NoError(t, err)
	require.Zero(t, lecture.Duration)
	require.Len(t, scheduler.jobs, 1)
	require.Equal(t, "lecture-duration-1", scheduler.jobs[0].Name)
	require.Zero(t, resolver.calls, "the lookup runs outside the request")

	require.NoError(t, scheduler.jobs[0].Run(ctx))
	stored, err := store.Repositories(ctx).Lectures.GetByID(lecture.ID)
	require.NoError(t, err)
	require.Equal(t, 12, stored.Duration)

	scheduler.err = errors.New("queue full")
	_, err = svc.CreateLecture(ctx, models.CreateLectureRequest{
		ChapterID: chapter.ID, Title: "Radiation", VideoURL: "https://youtu.be/abcdefghijk", PriceCents: 5000,
	})
	require.NoError(t, err, "scheduling failures never fail the save")
}

func TestDurationBackfillSkipsFailures(t *testing.T) {
	store := newTestStore(t)
	seedLecture(t, store, true)
	ctx := context.Background()

	failing := NewDurationService(store, &stubResolver{err: errors.New("quota exceeded")})
	updated, err := failing.BackfillMissing(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, updated)

	unsupported := NewDurationService(store, &stubResolver{err: ErrUnsupportedVideo})
	updated, err = unsupported.BackfillMissing(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, updated)

	working := NewDurationService(store, &stubResolver{err: ErrUnsupportedVideo}, &stubResolver{duration: 30 * time.Second})
	updated, err = working.BackfillMissing(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, updated)

	missing, err := store.Repositories(ctx).Lectures.ListMissingDuration(10)
	require.NoError(t, err)
	require.Empty(t, missing)
}
