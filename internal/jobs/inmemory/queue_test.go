package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitStatus(t *testing.T, store *Store, id string, want jobs.JobStatus) *jobs.ScanJob {
	t.Helper()
	var got *jobs.ScanJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), id)
		if err != nil {
			return false
		}
		got = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_CompletesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewStore()
	q := NewQueue(4, 1, store, zerolog.Nop())
	defer q.Close()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		scan := job.(*jobs.ScanJob)
		scan.Lines = []domain.ImportLine{{ID: "l1", Description: "Cafe"}}
		return nil
	}))

	job := &jobs.ScanJob{AccountID: "acc_1", MIMEType: "image/png", Data: []byte{1, 2}}
	require.NoError(t, q.PublishScan(ctx, job))
	assert.NotEmpty(t, job.JobID)

	done := waitStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	require.Len(t, done.Lines, 1)
	assert.Nil(t, done.Data, "statement bytes are not retained")
	assert.NotNil(t, done.CompletedAt)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewStore()
	q := NewQueue(4, 1, store, zerolog.Nop())
	q.SetBackoff(time.Millisecond)
	defer q.Close()

	var attempts atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		attempts.Add(1)
		return errors.New("model unavailable")
	}))

	job := &jobs.ScanJob{AccountID: "acc_1", MaxRetries: 2}
	require.NoError(t, q.PublishScan(ctx, job))

	failed := waitStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 2, failed.RetryCount)
	assert.Equal(t, "model unavailable", failed.Error)
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, nil, zerolog.Nop())
	require.NoError(t, q.Close())
	assert.Error(t, q.PublishScan(context.Background(), &jobs.ScanJob{}))
}

func TestStore_ListJobsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveJob(ctx, &jobs.ScanJob{JobID: "a", AccountID: "acc_1", Status: jobs.JobStatusCompleted, CreatedAt: base}))
	require.NoError(t, s.SaveJob(ctx, &jobs.ScanJob{JobID: "b", AccountID: "acc_1", Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.SaveJob(ctx, &jobs.ScanJob{JobID: "c", AccountID: "acc_3", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Hour)}))

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by account", jobs.JobFilter{AccountID: "acc_1"}, []string{"b", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, []string{"c", "a"}},
		{"limit", jobs.JobFilter{Limit: 1}, []string{"c"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			var ids []string
			for _, j := range got {
				ids = append(ids, j.JobID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_GetUnknown(t *testing.T) {
	_, err := NewStore().GetJob(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestQueue_PublishedJobNotSharedWithWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewStore()
	q := NewQueue(4, 1, store, zerolog.Nop())
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		close(started)
		<-release
		return nil
	}))

	job := &jobs.ScanJob{AccountID: "acc_1", Data: []byte{1}}
	require.NoError(t, q.PublishScan(ctx, job))
	<-started

	// The worker has marked its copy running; the caller's copy is untouched.
	assert.Equal(t, jobs.JobStatusPending, job.Status)
	assert.Nil(t, job.StartedAt)
	close(release)

	waitStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, jobs.JobStatusPending, job.Status)
}
