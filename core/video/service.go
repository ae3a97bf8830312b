package video

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	errNoUploadURL   = errors.New("Failed to get upload URL")
	errNoPlaybackID  = errors.New("playback id is required")
	errServiceClosed = errors.New("video service is closed")
)

type (
	// Backend is the video host, reached through the hosted backend.
	Backend interface {
		StatusFetcher
		CreateUpload(ctx context.Context, token, corsOrigin string) (UploadTarget, error)
		SignPlayback(ctx context.Context, token, playbackID string) (PlaybackTokens, error)
		// PutUpload sends the file to a signed upload URL.
		PutUpload(ctx context.Context, url, contentType string, size int64, body io.Reader) error
	}

	// Repository persists ingestion jobs.
	Repository interface {
		CreateJob(ctx context.Context, job Job) (Job, error)
		GetJob(ctx context.Context, id string) (Job, error)
		UpdateJob(ctx context.Context, job Job) (Job, error)
		// FilterJobs returns the jobs matching filter, most recent first.
		FilterJobs(ctx context.Context, filter QueryFilter) ([]Job, error)
	}
)

// Service drives videos through ingestion: signed URL, upload, then a bounded background poll
// until the asset is playable. Every state change is saved to the Repository.
type Service struct {
	backend    Backend
	repo       Repository
	poller     *Poller
	logger     core.Logger
	maxSize    int64
	corsOrigin string
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	watching map[string]struct{}
}

func NewService(backend Backend, repo Repository, conf core.VideoConfig, logger core.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	if conf.MaxUploadSize <= 0 {
		conf.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Service{
		backend:    backend,
		repo:       repo,
		poller:     NewPoller(backend, conf, logger),
		logger:     logger,
		maxSize:    conf.MaxUploadSize,
		corsOrigin: conf.CORSOrigin,
		now:        func() time.Time { return time.Now().UTC() },
		ctx:        ctx,
		cancel:     cancel,
		watching:   make(map[string]struct{}),
	}
}

// Poller returns the poller used by background watchers.
func (svc *Service) Poller() *Poller {
	return svc.poller
}

// Start obtains a signed upload URL and records a new job waiting for its file.
func (svc *Service) Start(ctx context.Context, token string, createdBy int64, corsOrigin string) (Job, UploadTarget, error) {
	if corsOrigin == "" {
		corsOrigin = svc.corsOrigin
	}
	now := svc.now()
	job, err := svc.repo.CreateJob(ctx, Job{
		ID:        uuid.New().String(),
		State:     StateGettingURL,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Job{}, UploadTarget{}, errors.Wrap(err, "creating upload job")
	}

	target, err := svc.backend.CreateUpload(ctx, token, corsOrigin)
	if err == nil && (target.UploadURL == "" || target.UploadID == "") {
		err = errNoUploadURL
	}
	if err != nil {
		job = svc.failUpload(ctx, job, errNoUploadURL)
		return job, UploadTarget{}, errors.Wrap(err, "getting upload url")
	}

	job.UploadID = target.UploadID
	job.UploadURL = target.UploadURL
	job.AssetID = string(target.AssetID)
	job, err = svc.transition(ctx, job, StateUploading, "")
	if err != nil {
		return Job{}, UploadTarget{}, err
	}
	return job, target, nil
}

// Upload sends the file of a job to its signed URL then watches the job in the background.
// A rejected file leaves the job waiting for another one.
func (svc *Service) Upload(ctx context.Context, token string, userID int64, jobID, contentType string, size int64, body io.Reader) (Job, error) {
	job, err := svc.ownJob(ctx, userID, jobID)
	if err != nil {
		return Job{}, err
	}
	if job.State != StateUploading {
		return job, ErrJobNotPending
	}
	if err := ValidateFile(contentType, size, svc.maxSize); err != nil {
		return job, err
	}

	// a body without a declared size is only checked while it streams
	limited := &limitedBody{r: body, left: svc.maxSize}
	err = svc.backend.PutUpload(ctx, job.UploadURL, contentType, size, limited)
	if limited.exceeded.Load() {
		return job, tooLargeError(svc.maxSize)
	}
	if err != nil {
		job = svc.failUpload(ctx, job, ErrUploadFailed)
		return job, errors.Wrap(err, "uploading video")
	}

	job, err = svc.transition(ctx, job, StateProcessing, "")
	if err != nil {
		return Job{}, err
	}
	if err := svc.Watch(job.ID, token, job.UploadID); err != nil {
		return job, err
	}
	return job, nil
}

// Watch polls the video host for the job in the background until the video is ready, failed or timed out.
// Watching a job twice is a no-op.
func (svc *Service) Watch(jobID, token, uploadID string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.closed {
		return errServiceClosed
	}
	if _, ok := svc.watching[jobID]; ok {
		return nil
	}
	svc.watching[jobID] = struct{}{}
	svc.wg.Add(1)
	go svc.watch(jobID, token, uploadID)
	return nil
}

func (svc *Service) watch(jobID, token, uploadID string) {
	defer func() {
		svc.mu.Lock()
		delete(svc.watching, jobID)
		svc.mu.Unlock()
		svc.wg.Done()
	}()
	ctx := svc.ctx

	job, err := svc.repo.GetJob(ctx, jobID)
	if err != nil {
		svc.logError("video: loading job", err, jobID)
		return
	}

	job.AssetID, err = svc.poller.WaitForAsset(ctx, token, uploadID, svc.countAttempt(ctx, &job))
	if err != nil {
		svc.fail(ctx, job, err)
		return
	}
	if job, err = svc.repo.UpdateJob(ctx, job); err != nil {
		svc.logError("video: saving asset id", err, jobID)
		return
	}

	asset, err := svc.poller.WaitForReady(ctx, token, job.AssetID, svc.countAttempt(ctx, &job))
	if err != nil {
		svc.fail(ctx, job, err)
		return
	}
	job.PlaybackID = string(asset.PlaybackID)
	job.Duration = asset.Duration
	if _, err := svc.transition(ctx, job, StateComplete, ""); err != nil {
		svc.logError("video: completing job", err, jobID)
	}
}

// countAttempt saves the number of status checks made for the job so far.
func (svc *Service) countAttempt(ctx context.Context, job *Job) AttemptFunc {
	return func(int) {
		job.Attempts++
		job.UpdatedAt = svc.now()
		if updated, err := svc.repo.UpdateJob(ctx, *job); err == nil {
			*job = updated
		}
	}
}

// fail marks the job as errored, unless the service is shutting down: the job then stays in processing
// and can be watched again later.
func (svc *Service) fail(ctx context.Context, job Job, err error) {
	if ctx.Err() != nil {
		return
	}
	if _, uErr := svc.transition(ctx, job, StateError, err.Error()); uErr != nil {
		svc.logError("video: saving failure", uErr, job.ID)
	}
}

// failUpload marks a job that never reached processing as errored.
func (svc *Service) failUpload(ctx context.Context, job Job, cause error) Job {
	updated, err := svc.transition(ctx, job, StateError, cause.Error())
	if err != nil {
		svc.logError("video: saving failure", err, job.ID)
		return job
	}
	return updated
}

func (svc *Service) transition(ctx context.Context, job Job, state State, msg string) (Job, error) {
	job.State = state
	job.Error = msg
	job.UpdatedAt = svc.now()
	updated, err := svc.repo.UpdateJob(ctx, job)
	if err != nil {
		return job, errors.Wrapf(err, "saving job state %s", state)
	}
	return updated, nil
}

func (svc *Service) logError(msg string, err error, jobID string) {
	if svc.logger != nil {
		svc.logger.Error(msg, err, map[string]interface{}{"job": jobID})
	}
}

// Close stops all background watchers and waits for them to return.
func (svc *Service) Close() {
	svc.mu.Lock()
	svc.closed = true
	svc.mu.Unlock()
	svc.cancel()
	svc.wg.Wait()
}

// Job returns the job with the given id, if it belongs to userID (0 skips the check).
func (svc *Service) Job(ctx context.Context, userID int64, id string) (Job, error) {
	return svc.ownJob(ctx, userID, id)
}

// Jobs lists jobs, most recent first.
func (svc *Service) Jobs(ctx context.Context, filter QueryFilter) ([]Job, error) {
	jobs, err := svc.repo.FilterJobs(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing jobs")
	}
	if jobs == nil {
		jobs = []Job{}
	}
	return jobs, nil
}

func (svc *Service) ownJob(ctx context.Context, userID int64, id string) (Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Job{}, ErrJobNotFound
	}
	job, err := svc.repo.GetJob(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if userID != 0 && job.CreatedBy != userID {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

func (svc *Service) Asset(ctx context.Context, token, assetID string) (Asset, error) {
	asset, err := svc.backend.Asset(ctx, token, assetID)
	if err != nil {
		return Asset{}, errors.Wrap(err, "getting asset")
	}
	return asset, nil
}

func (svc *Service) UploadStatus(ctx context.Context, token, uploadID string) (UploadStatus, error) {
	st, err := svc.backend.UploadStatus(ctx, token, uploadID)
	if err != nil {
		return UploadStatus{}, errors.Wrap(err, "getting upload status")
	}
	return st, nil
}

// SignPlayback returns the tokens needed to play a gated video.
func (svc *Service) SignPlayback(ctx context.Context, token, playbackID string) (PlaybackTokens, error) {
	playbackID = core.CleanString(playbackID)
	if playbackID == "" {
		return PlaybackTokens{}, core.NewFieldError("playback_id", errNoPlaybackID.Error())
	}
	tokens, err := svc.backend.SignPlayback(ctx, token, playbackID)
	if err != nil {
		return PlaybackTokens{}, errors.Wrap(err, "signing playback")
	}
	return tokens, nil
}

// limitedBody fails with ErrFileTooLarge once more than left bytes are read.
type limitedBody struct {
	r        io.Reader
	left     int64
	exceeded atomic.Bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.exceeded.Load() {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > b.left+1 {
		p = p[:b.left+1]
	}
	n, err := b.r.Read(p)
	if int64(n) > b.left {
		b.exceeded.Store(true)
		return int(b.left), ErrFileTooLarge
	}
	b.left -= int64(n)
	return n, err
}
