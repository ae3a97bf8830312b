package video

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrUploadFailed      = errors.New("Upload failed")
	ErrUploadTimeout     = errors.New("Upload processing timeout")
	ErrProcessingFailed  = errors.New("Video processing failed")
	ErrProcessingTimeout = errors.New("Processing timeout")
	ErrUploadCheckFailed = errors.New("Failed to check upload status")
	ErrAssetCheckFailed  = errors.New("Failed to check asset status")
)

// StatusError is returned when the video host reports that it gave up on an upload.
type StatusError struct {
	Err    error
	Status string
}

func (e *StatusError) Error() string { return e.Err.Error() + ": " + e.Status }
func (e *StatusError) Cause() error  { return e.Err }
func (e *StatusError) Unwrap() error { return e.Err }

// CheckError is returned when a phase runs out of attempts and its last status check failed.
// It matches the phase's timeout error with errors.Is.
type CheckError struct {
	Err     error
	Timeout error
	Last    error
}

func (e *CheckError) Error() string        { return e.Err.Error() }
func (e *CheckError) Cause() error         { return e.Err }
func (e *CheckError) Unwrap() error        { return e.Err }
func (e *CheckError) Is(target error) bool { return target == e.Timeout }

// StatusFetcher reads upload and asset statuses from the video host.
type StatusFetcher interface {
	UploadStatus(ctx context.Context, token, uploadID string) (UploadStatus, error)
	Asset(ctx context.Context, token, assetID string) (Asset, error)
}

// PollLimits bounds one poll phase: at most MaxAttempts checks, Interval apart.
type PollLimits struct {
	Interval    time.Duration
	MaxAttempts int
}

// Poller waits for an upload to become a playable asset by polling the video host on a fixed interval.
type Poller struct {
	fetcher StatusFetcher
	logger  core.Logger

	Upload PollLimits // waiting for the upload to become an asset
	Asset  PollLimits // waiting for the asset to be ready

	// Sleep waits for d or until ctx is done. Replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller returns a Poller using the limits from conf (5s x 30 for uploads, 5s x 60 for assets by default).
func NewPoller(fetcher StatusFetcher, conf core.VideoConfig, logger core.Logger) *Poller {
	p := &Poller{
		fetcher: fetcher,
		logger:  logger,
		Upload:  PollLimits{Interval: conf.UploadPollInterval, MaxAttempts: conf.UploadPollMaxAttempts},
		Asset:   PollLimits{Interval: conf.AssetPollInterval, MaxAttempts: conf.AssetPollMaxAttempts},
		Sleep:   sleep,
	}
	if p.Upload.Interval <= 0 {
		p.Upload.Interval = 5 * time.Second
	}
	if p.Upload.MaxAttempts <= 0 {
		p.Upload.MaxAttempts = 30
	}
	if p.Asset.Interval <= 0 {
		p.Asset.Interval = 5 * time.Second
	}
	if p.Asset.MaxAttempts <= 0 {
		p.Asset.MaxAttempts = 60
	}
	return p
}

// AttemptFunc is called after every status check of a phase.
type AttemptFunc func(attempt int)

// WaitForAsset polls the upload until the video host created an asset for it and returns the asset id.
func (p *Poller) WaitForAsset(ctx context.Context, token, uploadID string, onAttempt ...AttemptFunc) (string, error) {
	var assetID string
	err := p.poll(ctx, p.Upload, ErrUploadTimeout, ErrUploadCheckFailed, onAttempt, func(ctx context.Context) (bool, error) {
		st, err := p.fetcher.UploadStatus(ctx, token, uploadID)
		if err != nil {
			return false, transient{err}
		}
		switch {
		case st.Status == UploadAssetCreated && st.AssetID != "":
			assetID = string(st.AssetID)
			return true, nil
		case st.Failed():
			return false, &StatusError{Err: ErrUploadFailed, Status: st.Status}
		}
		return false, nil
	})
	return assetID, err
}

// WaitForReady polls the asset until it is ready to play.
func (p *Poller) WaitForReady(ctx context.Context, token, assetID string, onAttempt ...AttemptFunc) (Asset, error) {
	var asset Asset
	err := p.poll(ctx, p.Asset, ErrProcessingTimeout, ErrAssetCheckFailed, onAttempt, func(ctx context.Context) (bool, error) {
		a, err := p.fetcher.Asset(ctx, token, assetID)
		if err != nil {
			return false, transient{err}
		}
		switch a.Status {
		case AssetReady:
			asset = a
			return true, nil
		case AssetErrored:
			return false, ErrProcessingFailed
		}
		return false, nil
	})
	return asset, err
}

// WaitForVideo runs both phases: upload to asset, then asset to ready.
func (p *Poller) WaitForVideo(ctx context.Context, token, uploadID string) (Asset, error) {
	assetID, err := p.WaitForAsset(ctx, token, uploadID)
	if err != nil {
		return Asset{}, err
	}
	return p.WaitForReady(ctx, token, assetID)
}

// transient marks a status check failure that consumes an attempt without ending the poll.
type transient struct {
	err error
}

func (t transient) Error() string { return t.err.Error() }

func (p *Poller) poll(
	ctx context.Context,
	limits PollLimits,
	timeoutErr, checkErr error,
	onAttempt []AttemptFunc,
	check func(ctx context.Context) (bool, error),
) error {
	var lastErr error
	for attempt := 1; attempt <= limits.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.Sleep(ctx, limits.Interval); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := check(ctx)
		lastErr = nil
		for _, fn := range onAttempt {
			fn(attempt)
		}
		if err != nil {
			tErr, ok := err.(transient)
			if !ok {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if p.logger != nil {
				p.logger.Warn("video: status check failed", tErr.err, map[string]interface{}{"attempt": attempt})
			}
			lastErr = tErr.err
			continue
		}
		if done {
			return nil
		}
	}
	if lastErr != nil {
		return &CheckError{Err: checkErr, Timeout: timeoutErr, Last: lastErr}
	}
	return timeoutErr
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
