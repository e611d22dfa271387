package application

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"gavel/internal/service/auction/domain"
	"gavel/internal/service/auction/domain/port"
)

// memRepo 是内存版仓储，同时实现 AuctionRepository 和 Transactor。
// 读取返回副本，保证事务内回滚的修改不会泄漏进存储。
type memRepo struct {
	auctions map[uuid.UUID]domain.Auction
	bids     []domain.Bid
}

func newMemRepo() *memRepo {
	return &memRepo{auctions: make(map[uuid.UUID]domain.Auction)}
}

func (r *memRepo) WithinTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (r *memRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	a, ok := r.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	found := a
	return &found, nil
}

func (r *memRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	return r.FindByID(ctx, id)
}

func (r *memRepo) Save(ctx context.Context, auction *domain.Auction) error {
	r.auctions[auction.ID] = *auction
	return nil
}

func (r *memRepo) CreateBid(ctx context.Context, bid *domain.Bid) error {
	r.bids = append(r.bids, *bid)
	return nil
}

func (r *memRepo) BidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	var out []domain.Bid
	for _, b := range r.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) HasBidFrom(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error) {
	for _, b := range r.bids {
		if b.AuctionID == auctionID && b.BidderID == bidderID {
			return true, nil
		}
	}
	return false, nil
}

// fakeScheduler 以去重键为主键记录排队任务，复刻顶替语义。
type fakeScheduler struct {
	pending map[string]scheduledJob
	err     error
}

type scheduledJob struct {
	job port.Job
	at  time.Time
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{pending: make(map[string]scheduledJob)}
}

func (s *fakeScheduler) ScheduleAt(ctx context.Context, job port.Job, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.pending[job.DedupKey()] = scheduledJob{job: job, at: at}
	return nil
}

func (s *fakeScheduler) ScheduleNow(ctx context.Context, job port.Job) error {
	return s.ScheduleAt(ctx, job, time.Time{})
}

func (s *fakeScheduler) CancelForAuction(ctx context.Context, auctionID uuid.UUID) error {
	for key, sj := range s.pending {
		if sj.job.AuctionID != auctionID {
			continue
		}
		switch sj.job.Type {
		case port.JobStartAuction, port.JobFinishAuction, port.JobStartReminder:
			delete(s.pending, key)
		}
	}
	return nil
}

// jobsOfType 返回某类型的全部排队任务。
func (s *fakeScheduler) jobsOfType(jobType port.JobType) []scheduledJob {
	var out []scheduledJob
	for _, sj := range s.pending {
		if sj.job.Type == jobType {
			out = append(out, sj)
		}
	}
	return out
}

type fakePublisher struct {
	events []domain.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event domain.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) eventsNamed(name string) []domain.Event {
	var out []domain.Event
	for _, e := range p.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeBidders struct {
	balances map[uuid.UUID]domain.Money
}

func (d *fakeBidders) FindBalance(ctx context.Context, bidderID uuid.UUID) (domain.Money, error) {
	balance, ok := d.balances[bidderID]
	if !ok {
		return domain.Money{}, domain.ErrBidderNotFound
	}
	return balance, nil
}

// denyPolicy 拒绝指定出价人，其他放行。
type denyPolicy struct {
	denied uuid.UUID
}

func (p *denyPolicy) Authorize(ctx context.Context, auction *domain.Auction, bidderID uuid.UUID, amount domain.Money) error {
	if bidderID == p.denied {
		return domain.NewValidationError("bid", "rejected by bidding policy")
	}
	return nil
}

type testEnv struct {
	svc       *AuctionService
	repo      *memRepo
	scheduler *fakeScheduler
	publisher *fakePublisher
	bidders   *fakeBidders
	now       time.Time
}

func newTestEnv() *testEnv {
	repo := newMemRepo()
	scheduler := newFakeScheduler()
	publisher := &fakePublisher{}
	bidders := &fakeBidders{balances: make(map[uuid.UUID]domain.Money)}

	svc := NewAuctionService(
		repo, repo, scheduler, publisher, bidders, nil,
		domain.StopwatchRange{Min: 15, Max: 3600},
		otel.Tracer("test"),
	)
	env := &testEnv{
		svc: svc, repo: repo, scheduler: scheduler, publisher: publisher, bidders: bidders,
		now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return env.now }
	return env
}

// seedAuction 直接塞一场处于给定状态的拍卖进存储。
func (e *testEnv) seedAuction(a domain.Auction) domain.Auction {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatorID == uuid.Nil {
		a.CreatorID = uuid.New()
	}
	e.repo.auctions[a.ID] = a
	return a
}
