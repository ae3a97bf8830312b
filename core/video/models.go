package video

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// DefaultMaxUploadSize is 5 GB.
const DefaultMaxUploadSize int64 = 5 << 30

// upload statuses reported by the video host
const (
	UploadWaiting      = "waiting"
	UploadAssetCreated = "asset_created"
	UploadErrored      = "errored"
	UploadCancelled    = "cancelled"
	UploadTimedOut     = "timed_out"
)

// asset statuses reported by the video host
const (
	AssetPreparing = "preparing"
	AssetReady     = "ready"
	AssetErrored   = "errored"
)

var (
	// errors
	ErrNotVideo      = errors.New("please select a video file")
	ErrFileTooLarge  = errors.New("file is too large")
	ErrEmptyFile     = errors.New("file is empty")
	ErrJobNotFound   = errors.New("upload job not found")
	ErrJobNotPending = errors.New("upload job is not waiting for a file")
)

// UploadTarget is a signed direct-upload URL.
type UploadTarget struct {
	UploadURL string    `json:"upload_url"`
	UploadID  string    `json:"upload_id"`
	AssetID   core.Text `json:"asset_id"`
}

type UploadStatus struct {
	Status     string    `json:"status"`
	AssetID    core.Text `json:"asset_id"`
	PlaybackID core.Text `json:"playback_id"`
}

// Failed reports whether the video host gave up on the upload.
func (s UploadStatus) Failed() bool {
	return s.Status == UploadErrored || s.Status == UploadCancelled || s.Status == UploadTimedOut
}

type Asset struct {
	ID          core.Text `json:"id"`
	PlaybackID  core.Text `json:"playback_id"`
	Status      string    `json:"status"`
	Duration    float64   `json:"duration"`
	AspectRatio core.Text `json:"aspect_ratio"`
}

// PlaybackTokens are the signed tokens needed to play a gated video.
type PlaybackTokens struct {
	Playback   string `json:"playback"`
	Thumbnail  string `json:"thumbnail"`
	Storyboard string `json:"storyboard"`
}

// State is the state of an ingestion job.
type State string

const (
	StateIdle       State = "idle"
	StateGettingURL State = "getting-url"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateError      State = "error"
)

var AllStates = []State{StateIdle, StateGettingURL, StateUploading, StateProcessing, StateComplete, StateError}

// Done reports whether s is terminal.
func (s State) Done() bool {
	return s == StateComplete || s == StateError
}

func ParseState(s string) (State, bool) {
	st := State(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range AllStates {
		if st == v {
			return st, true
		}
	}
	return st, false
}

// Job tracks one video from signed URL to playable asset.
type Job struct {
	ID         string    `json:"id"`
	UploadID   string    `json:"upload_id"`
	UploadURL  string    `json:"-"`
	AssetID    string    `json:"asset_id"`
	PlaybackID string    `json:"playback_id"`
	Duration   float64   `json:"duration"`
	State      State     `json:"state"`
	Error      string    `json:"error,omitempty"`
	Attempts   int       `json:"attempts"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// QueryFilter narrows down Jobs. Zero fields are ignored.
type QueryFilter struct {
	CreatedBy int64
	State     State
}

// ValidateFile checks that an upload is a video no larger than maxSize (DefaultMaxUploadSize when <= 0).
// A negative size means unknown and is not checked.
func ValidateFile(contentType string, size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(ct, "video/") {
		return fileError(ErrNotVideo, ErrNotVideo.Error())
	}
	if size == 0 {
		return fileError(ErrEmptyFile, ErrEmptyFile.Error())
	}
	if size > maxSize {
		return tooLargeError(maxSize)
	}
	return nil
}

func tooLargeError(maxSize int64) error {
	return fileError(ErrFileTooLarge, fmt.Sprintf("file size must not exceed %d MB", maxSize>>20))
}

func fileError(err error, msg string) error {
	return core.NewValidationError(err, core.FieldError{Field: "file", Error: msg})
}
