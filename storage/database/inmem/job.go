package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/video"
)

var errJobExists = errors.New("a job with this id already exists")

type jobRepository struct {
	db *jobTable
}

var _ video.Repository = (*jobRepository)(nil)

func NewJobRepository(db *DB) video.Repository {
	return &jobRepository{db: db.job}
}

func (repo *jobRepository) CreateJob(_ context.Context, job video.Job) (video.Job, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[job.ID]; ok {
		return video.Job{}, errJobExists
	}
	repo.db.table[job.ID] = &job
	return job, nil
}

func (repo *jobRepository) GetJob(_ context.Context, id string) (video.Job, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if job, ok := repo.db.table[id]; ok {
		return *job, nil
	}
	return video.Job{}, video.ErrJobNotFound
}

func (repo *jobRepository) UpdateJob(_ context.Context, job video.Job) (video.Job, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[job.ID]
	if !ok {
		return video.Job{}, video.ErrJobNotFound
	}
	job.CreatedBy = orig.CreatedBy
	job.CreatedAt = orig.CreatedAt
	repo.db.table[job.ID] = &job
	return job, nil
}

func (repo *jobRepository) FilterJobs(_ context.Context, filter video.QueryFilter) ([]video.Job, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	jobs := make([]video.Job, 0, len(repo.db.table))
	for _, job := range repo.db.table {
		if filter.CreatedBy != 0 && job.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.State != "" && job.State != filter.State {
			continue
		}
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}
