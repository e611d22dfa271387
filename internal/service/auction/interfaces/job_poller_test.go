package interfaces

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/internal/service/auction/domain/port"
)

// fakeJobSource 复刻调度器的租约账本：弹出即挂账，Ack 才销账。
type fakeJobSource struct {
	due       []port.Job
	inflight  map[string]port.Job
	reclaimed int
}

func newFakeJobSource(jobs ...port.Job) *fakeJobSource {
	return &fakeJobSource{due: jobs, inflight: make(map[string]port.Job)}
}

func (s *fakeJobSource) PopDue(ctx context.Context, now time.Time, limit int) ([]port.Job, error) {
	n := len(s.due)
	if n > limit {
		n = limit
	}
	popped := s.due[:n]
	s.due = s.due[n:]
	for _, job := range popped {
		s.inflight[job.DedupKey()] = job
	}
	return popped, nil
}

func (s *fakeJobSource) Ack(ctx context.Context, job port.Job) error {
	delete(s.inflight, job.DedupKey())
	return nil
}

func (s *fakeJobSource) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	s.reclaimed++
	return 0, nil
}

func newTestPoller(source dueJobSource, produce func(ctx context.Context, key, value []byte) error) *JobPoller {
	return &JobPoller{scheduler: source, interval: time.Second, produce: produce}
}

func TestJobPollerAcksAfterSuccessfulDelivery(t *testing.T) {
	job := port.Job{Type: port.JobFinishAuction, AuctionID: uuid.New()}
	source := newFakeJobSource(job)
	var delivered [][]byte
	poller := newTestPoller(source, func(ctx context.Context, key, value []byte) error {
		delivered = append(delivered, value)
		return nil
	})

	poller.drainDue(context.Background())

	require.Len(t, delivered, 1)
	assert.Empty(t, source.inflight, "delivered job must be acked")
	assert.Empty(t, source.due)
}

func TestJobPollerKeepsLeaseOnDeliveryFailure(t *testing.T) {
	job := port.Job{Type: port.JobFinishAuction, AuctionID: uuid.New()}
	source := newFakeJobSource(job)
	poller := newTestPoller(source, func(ctx context.Context, key, value []byte) error {
		return errors.New("kafka unavailable")
	})

	poller.drainDue(context.Background())

	// 投递失败不销账：任务留在 in-flight，由租约过期重投
	require.Len(t, source.inflight, 1)
	_, leased := source.inflight[job.DedupKey()]
	assert.True(t, leased)
}

func TestJobPollerReclaimsBeforeDraining(t *testing.T) {
	source := newFakeJobSource()
	poller := newTestPoller(source, func(ctx context.Context, key, value []byte) error { return nil })

	poller.reclaimExpired(context.Background())
	poller.drainDue(context.Background())

	assert.Equal(t, 1, source.reclaimed)
}

func TestJobPollerDrainsInBatches(t *testing.T) {
	jobs := make([]port.Job, popBatchSize+3)
	for i := range jobs {
		jobs[i] = port.Job{Type: port.JobNotifyParticipant, AuctionID: uuid.New()}
	}
	source := newFakeJobSource(jobs...)
	var delivered int
	poller := newTestPoller(source, func(ctx context.Context, key, value []byte) error {
		delivered++
		return nil
	})

	poller.drainDue(context.Background())

	assert.Equal(t, popBatchSize+3, delivered)
	assert.Empty(t, source.due)
	assert.Empty(t, source.inflight)
}
