package sqlxrepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/video"
)

func TestJobRow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("EAT", 3*3600))

	tests := []struct {
		name string
		job  video.Job
	}{
		{
			name: "uploading",
			job:  video.Job{ID: "a", UploadID: "up", UploadURL: "https://u", State: video.StateUploading, CreatedBy: 3, CreatedAt: now, UpdatedAt: now},
		},
		{
			name: "complete",
			job: video.Job{
				ID: "b", UploadID: "up", AssetID: "as", PlaybackID: "pb", Duration: 61.5, State: video.StateComplete,
				Attempts: 4, CreatedBy: 3, CreatedAt: now, UpdatedAt: now,
			},
		},
		{
			name: "error",
			job:  video.Job{ID: "c", State: video.StateError, Error: "Processing timeout", CreatedAt: now, UpdatedAt: now},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := rowFromJob(tt.job)
			assert.Equal(t, tt.job.AssetID != "", row.AssetID.Valid)
			assert.Equal(t, tt.job.Duration > 0, row.Duration.Valid)
			assert.Equal(t, tt.job.Error != "", row.Error.Valid)
			assert.Equal(t, time.UTC, row.CreatedAt.Location())

			got := row.job()
			want := tt.job
			want.CreatedAt, want.UpdatedAt = now.UTC(), now.UTC()
			assert.Equal(t, want, got)
		})
	}
}

func TestFilterQuery(t *testing.T) {
	q, args := filterQuery(video.QueryFilter{})
	assert.Equal(t, `SELECT `+jobColumns+` FROM upload_jobs WHERE 1 = 1 ORDER BY created_at DESC, id DESC`, q)
	assert.Empty(t, args)

	q, args = filterQuery(video.QueryFilter{CreatedBy: 7, State: video.StateProcessing})
	assert.Contains(t, q, `AND created_by = ? AND state = ?`)
	assert.Equal(t, []interface{}{int64(7), "processing"}, args)
}
