package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotLocalVideo is returned when a lecture video is hosted elsewhere.
var ErrNotLocalVideo = errors.New("video is not stored locally")

type atom struct {
	kind      string
	start     int64
	size      int64
	headerLen int64
}

func (a atom) payload() int64 {
	return a.size - a.headerLen
}

func (a atom) end() int64 {
	return a.start + a.size
}

// LocalVideoPath maps an uploaded video URL such as /uploads/videos/x.mp4 to
// a file below uploadDir. Paths escaping uploadDir are rejected.
func LocalVideoPath(uploadDir, videoURL string) (string, error) {
	videoURL = strings.TrimSpace(videoURL)
	if uploadDir == "" || videoURL == "" || strings.Contains(videoURL, "://") {
		return "", ErrNotLocalVideo
	}

	rel := strings.TrimPrefix(videoURL, "/")
	rel = strings.TrimPrefix(rel, "uploads/")
	if rel == "" {
		return "", ErrNotLocalVideo
	}

	root, err := filepath.Abs(uploadDir)
	if err != nil {
		return "", err
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("video path %q escapes upload directory", videoURL)
	}

	switch strings.ToLower(filepath.Ext(full)) {
	case ".mp4", ".m4v", ".mov":
		return full, nil
	default:
		return "", ErrNotLocalVideo
	}
}

// MP4Duration reads the movie header of an MP4/MOV file at path.
func MP4Duration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return mp4DurationFromReader(file)
}

func mp4DurationFromReader(r io.ReadSeeker) (time.Duration, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	moov, err := findAtom(r, "moov", size)
	if err != nil {
		return 0, err
	}

	mvhd, err := findAtom(r, "mvhd", moov.end())
	if err != nil {
		return 0, fmt.Errorf("mvhd box not found in moov container: %w", err)
	}

	return readMovieHeader(r, mvhd.payload())
}

// findAtom scans sibling atoms from the current offset up to limit and leaves
// the reader positioned at the payload of the first atom of the given kind.
func findAtom(r io.ReadSeeker, kind string, limit int64) (atom, error) {
	for {
		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return atom{}, err
		}
		if pos >= limit {
			return atom{}, fmt.Errorf("%s box not found in media file", kind)
		}

		current, err := readAtom(r, limit)
		if err != nil {
			return atom{}, err
		}
		if current.kind == kind {
			return current, nil
		}
		if _, err := r.Seek(current.end(), io.SeekStart); err != nil {
			return atom{}, err
		}
	}
}

func readAtom(r io.ReadSeeker, limit int64) (atom, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return atom{}, err
	}

	var head [8]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return atom{}, err
	}

	current := atom{kind: string(head[4:8]), start: start, headerLen: 8}
	switch size := binary.BigEndian.Uint32(head[:4]); size {
	case 0:
		current.size = limit - start
	case 1:
		var large [8]byte
		if _, err := io.ReadFull(r, large[:]); err != nil {
			return atom{}, err
		}
		current.headerLen += 8
		current.size = int64(binary.BigEndian.Uint64(large[:]))
	default:
		current.size = int64(size)
	}

	if current.size < current.headerLen {
		return atom{}, fmt.Errorf("invalid box size for %s", current.kind)
	}
	if current.end() > limit {
		return atom{}, fmt.Errorf("box %s exceeds parent bounds", current.kind)
	}

	return current, nil
}

// readMovieHeader decodes the timescale and duration fields of an mvhd payload.
// Version 0 stores 32-bit times, version 1 stores 64-bit times.
func readMovieHeader(r io.Reader, payload int64) (time.Duration, error) {
	if payload < 4 {
		return 0, fmt.Errorf("mvhd box too small")
	}

	var versionAndFlags [4]byte
	if _, err := io.ReadFull(r, versionAndFlags[:]); err != nil {
		return 0, err
	}

	var fieldsLen, timescaleAt int
	switch version := versionAndFlags[0]; version {
	case 0:
		fieldsLen, timescaleAt = 16, 8
	case 1:
		fieldsLen, timescaleAt = 28, 16
	default:
		return 0, fmt.Errorf("unsupported mvhd version %d", version)
	}
	if payload-4 < int64(fieldsLen) {
		return 0, fmt.Errorf("mvhd payload too small for version %d", versionAndFlags[0])
	}

	fields := make([]byte, fieldsLen)
	if _, err := io.ReadFull(r, fields); err != nil {
		return 0, err
	}

	timescale := binary.BigEndian.Uint32(fields[timescaleAt : timescaleAt+4])
	if timescale == 0 {
		return 0, fmt.Errorf("mvhd timescale is zero")
	}

	var units float64
	if versionAndFlags[0] == 0 {
		units = float64(binary.BigEndian.Uint32(fields[timescaleAt+4 : timescaleAt+8]))
	} else {
		units = float64(binary.BigEndian.Uint64(fields[timescaleAt+4 : timescaleAt+12]))
	}

	seconds := units / float64(timescale)
	if seconds <= 0 {
		return 0, nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
