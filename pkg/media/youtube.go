package media

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const youtubeEmbedParams = "?rel=0&modestbranding=1&enablejsapi=1"

var (
	youtubeWatchPattern = regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]+)`)
	youtubeShortPattern = regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]+)`)
	youtubeEmbedPattern = regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]+)`)
	isoDurationPattern  = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

// YouTubeVideoID extracts the video id from watch, short and embed URLs.
func YouTubeVideoID(url string) (string, bool) {
	var pattern *regexp.Regexp
	switch {
	case strings.Contains(url, "youtube.com/watch"):
		pattern = youtubeWatchPattern
	case strings.Contains(url, "youtu.be/"):
		pattern = youtubeShortPattern
	case strings.Contains(url, "youtube.com/embed/"):
		pattern = youtubeEmbedPattern
	default:
		return "", false
	}

	match := pattern.FindStringSubmatch(url)
	if len(match) < 2 {
		return "", false
	}
	return match[1], true
}

// EmbedURL converts a YouTube watch or short link into an embeddable URL.
// Other URLs are returned unchanged.
func EmbedURL(url string) string {
	url = strings.TrimSpace(url)

	if strings.Contains(url, "youtube.com/watch") || strings.Contains(url, "youtu.be/") {
		if id, ok := YouTubeVideoID(url); ok {
			return "https://www.youtube.com/embed/" + id + youtubeEmbedParams
		}
	}

	if strings.Contains(url, "youtube.com/embed") && !strings.Contains(url, "?") {
		return url + youtubeEmbedParams
	}

	return url
}

// ParseISO8601Duration parses the PT#H#M#S durations returned by the YouTube
// Data API. Day components are accepted; years, months and weeks are not.
func ParseISO8601Duration(value string) (time.Duration, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	match := isoDurationPattern.FindStringSubmatch(value)
	if match == nil || value == "P" || value == "PT" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", value)
	}

	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, unit := range units {
		part := match[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO 8601 duration %q: %w", value, err)
		}
		total += time.Duration(n) * unit
	}

	return total, nil
}

// WholeMinutes rounds a video length down to minutes with a floor of one
// minute for any non-empty video.
func WholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	minutes := int(d / time.Minute)
	if minutes < 1 {
		return 1
	}
	return minutes
}
