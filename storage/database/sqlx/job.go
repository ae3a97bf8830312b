package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/video"
)

const jobColumns = `id, upload_id, upload_url, asset_id, playback_id, duration, state, error, attempts, created_by, created_at, updated_at`

type jobRow struct {
	ID         string       `db:"id"`
	UploadID   string       `db:"upload_id"`
	UploadURL  string       `db:"upload_url"`
	AssetID    null.String  `db:"asset_id"`
	PlaybackID null.String  `db:"playback_id"`
	Duration   null.Float64 `db:"duration"`
	State      string       `db:"state"`
	Error      null.String  `db:"error"`
	Attempts   int          `db:"attempts"`
	CreatedBy  int64        `db:"created_by"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

func rowFromJob(job video.Job) jobRow {
	return jobRow{
		ID:         job.ID,
		UploadID:   job.UploadID,
		UploadURL:  job.UploadURL,
		AssetID:    null.NewString(job.AssetID, job.AssetID != ""),
		PlaybackID: null.NewString(job.PlaybackID, job.PlaybackID != ""),
		Duration:   null.NewFloat64(job.Duration, job.Duration > 0),
		State:      string(job.State),
		Error:      null.NewString(job.Error, job.Error != ""),
		Attempts:   job.Attempts,
		CreatedBy:  job.CreatedBy,
		CreatedAt:  job.CreatedAt.UTC(),
		UpdatedAt:  job.UpdatedAt.UTC(),
	}
}

func (r jobRow) job() video.Job {
	return video.Job{
		ID:         r.ID,
		UploadID:   r.UploadID,
		UploadURL:  r.UploadURL,
		AssetID:    r.AssetID.String,
		PlaybackID: r.PlaybackID.String,
		Duration:   r.Duration.Float64,
		State:      video.State(r.State),
		Error:      r.Error.String,
		Attempts:   r.Attempts,
		CreatedBy:  r.CreatedBy,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

// jobRepository stores upload jobs in the `upload_jobs` table so their state outlives the process.
type jobRepository struct {
	db *sqlx.DB
}

var _ video.Repository = (*jobRepository)(nil)

func NewJobRepository(db *sql.DB, driverName string) video.Repository {
	return &jobRepository{db: sqlx.NewDb(db, driverName)}
}

func (repo *jobRepository) CreateJob(ctx context.Context, job video.Job) (video.Job, error) {
	q := `INSERT INTO upload_jobs (` + jobColumns + `) VALUES (:id, :upload_id, :upload_url, :asset_id, :playback_id,
		:duration, :state, :error, :attempts, :created_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, rowFromJob(job)); err != nil {
		return video.Job{}, errors.Wrap(err, "inserting job")
	}
	return repo.GetJob(ctx, job.ID)
}

func (repo *jobRepository) GetJob(ctx context.Context, id string) (video.Job, error) {
	var row jobRow
	q := repo.db.Rebind(`SELECT ` + jobColumns + ` FROM upload_jobs WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return video.Job{}, video.ErrJobNotFound
		}
		return video.Job{}, errors.Wrap(err, "selecting job")
	}
	return row.job(), nil
}

func (repo *jobRepository) UpdateJob(ctx context.Context, job video.Job) (video.Job, error) {
	q := `UPDATE upload_jobs SET upload_id = :upload_id, upload_url = :upload_url, asset_id = :asset_id,
		playback_id = :playback_id, duration = :duration, state = :state, error = :error, attempts = :attempts,
		updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, rowFromJob(job))
	if err != nil {
		return video.Job{}, errors.Wrap(err, "updating job")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return video.Job{}, video.ErrJobNotFound
	}
	return repo.GetJob(ctx, job.ID)
}

func (repo *jobRepository) FilterJobs(ctx context.Context, filter video.QueryFilter) ([]video.Job, error) {
	q, args := filterQuery(filter)
	var rows []jobRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting jobs")
	}

	jobs := make([]video.Job, len(rows))
	for i, r := range rows {
		jobs[i] = r.job()
	}
	return jobs, nil
}

func filterQuery(filter video.QueryFilter) (string, []interface{}) {
	q := `SELECT ` + jobColumns + ` FROM upload_jobs WHERE 1 = 1`
	var args []interface{}
	if filter.CreatedBy != 0 {
		q += ` AND created_by = ?`
		args = append(args, filter.CreatedBy)
	}
	if filter.State != "" {
		q += ` AND state = ?`
		args = append(args, string(filter.State))
	}
	return q + ` ORDER BY created_at DESC, id DESC`, args
}
