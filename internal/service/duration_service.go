package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"gorm.io/gorm"

	"voltage-backend/internal/repository"
	"voltage-backend/pkg/logger"
	"voltage-backend/pkg/media"
)

// ErrUnsupportedVideo is returned by resolvers that cannot handle a URL.
var ErrUnsupportedVideo = errors.New("unsupported video source")

const youtubeVideosEndpoint = "https://www.googleapis.com/youtube/v3/videos"

// DurationResolver looks up the running time of a lecture video.
type DurationResolver interface {
	Resolve(ctx context.Context, videoURL string) (time.Duration, error)
}

type youtubeVideosResponse struct {
	Items []struct {
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// YouTubeResolver queries the YouTube Data API for contentDetails.duration.
type YouTubeResolver struct {
	client   *resty.Client
	apiKey   string
	endpoint string
}

func NewYouTubeResolver(apiKey string) *YouTubeResolver {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &YouTubeResolver{client: client, apiKey: apiKey, endpoint: youtubeVideosEndpoint}
}

func (r *YouTubeResolver) Resolve(ctx context.Context, videoURL string) (time.Duration, error) {
	videoID, ok := media.YouTubeVideoID(videoURL)
	if !ok {
		return 0, ErrUnsupportedVideo
	}
	if r == nil || r.apiKey == "" {
		return 0, errors.New("youtube api key is not configured")
	}

	var payload youtubeVideosResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "contentDetails",
			"id":   videoID,
			"key":  r.apiKey,
		}).
		SetResult(&payload).
		Get(r.endpoint)
	if err != nil {
		return 0, fmt.Errorf("youtube request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("youtube api returned status %d", resp.StatusCode())
	}
	if len(payload.Items) == 0 {
		return 0, fmt.Errorf("youtube video %s not found", videoID)
	}

	return media.ParseISO8601Duration(payload.Items[0].ContentDetails.Duration)
}

// LocalFileResolver reads the movie header of uploaded MP4 files.
type LocalFileResolver struct {
	uploadDir string
}

func NewLocalFileResolver(uploadDir string) *LocalFileResolver {
	return &LocalFileResolver{uploadDir: uploadDir}
}

func (r *LocalFileResolver) Resolve(_ context.Context, videoURL string) (time.Duration, error) {
	path, err := media.LocalVideoPath(r.uploadDir, videoURL)
	if err != nil {
		if errors.Is(err, media.ErrNotLocalVideo) {
			return 0, ErrUnsupportedVideo
		}
		return 0, err
	}
	return media.MP4Duration(path)
}

// DurationService fills in lecture durations from the first resolver that
// supports the video URL. Lookups are best effort.
type DurationService struct {
	store     repository.Store
	resolvers []DurationResolver
}

func NewDurationService(store repository.Store, resolvers ...DurationResolver) *DurationService {
	return &DurationService{store: store, resolvers: resolvers}
}

func (s *DurationService) resolve(ctx context.Context, videoURL string) (time.Duration, error) {
	for _, resolver := range s.resolvers {
		if resolver == nil {
			continue
		}
		duration, err := resolver.Resolve(ctx, videoURL)
		if errors.Is(err, ErrUnsupportedVideo) {
			continue
		}
		return duration, err
	}
	return 0, ErrUnsupportedVideo
}

// EnrichLecture stores the duration of a lecture whose duration is unknown.
// Unsupported sources are skipped silently; lookup failures are returned so
// the caller may retry.
func (s *DurationService) EnrichLecture(ctx context.Context, lectureID uint) error {
	if s == nil || s.store == nil {
		return errors.New("lecture repository is not configured")
	}

	repos := s.store.Repositories(ctx)
	lecture, err := repos.Lectures.GetByID(lectureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if lecture.Duration > 0 {
		return nil
	}

	duration, err := s.resolve(ctx, lecture.VideoURL)
	if err != nil {
		if errors.Is(err, ErrUnsupportedVideo) {
			return nil
		}
		return err
	}

	minutes := media.WholeMinutes(duration)
	if minutes == 0 {
		return nil
	}
	if err := repos.Lectures.SetDuration(lecture.ID, minutes); err != nil {
		return err
	}

	logger.Info("Lecture duration updated", map[string]interface{}{
		"lecture_id": lecture.ID,
		"minutes":    minutes,
	})
	return nil
}

// BackfillMissing enriches every lecture that still has no duration and
// returns how many were updated. Individual failures are logged and skipped.
func (s *DurationService) BackfillMissing(ctx context.Context, limit int) (int, error) {
	if s == nil || s.store == nil {
		return 0, errors.New("lecture repository is not configured")
	}

	lectures, err := s.store.Repositories(ctx).Lectures.ListMissingDuration(limit)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, lecture := range lectures {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		duration, err := s.resolve(ctx, lecture.VideoURL)
		if err != nil {
			if !errors.Is(err, ErrUnsupportedVideo) {
				logger.Warn("Lecture duration lookup failed", map[string]interface{}{
					"lecture_id": lecture.ID,
					"error":      err.Error(),
				})
			}
			continue
		}

		minutes := media.WholeMinutes(duration)
		if minutes == 0 {
			continue
		}
		if err := s.store.Repositories(ctx).Lectures.SetDuration(lecture.ID, minutes); err != nil {
			logger.Error(err, "Failed to store lecture duration", map[string]interface{}{"lecture_id": lecture.ID})
			continue
		}
		updated++
	}

	logger.Info("Lecture duration backfill finished", map[string]interface{}{
		"checked": len(lectures),
		"updated": updated,
	})
	return updated, nil
}
