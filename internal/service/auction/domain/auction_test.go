package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStopwatch = StopwatchRange{Min: 15, Max: 3600}

func validParams(kind Kind, now time.Time) NewAuctionParams {
	p := NewAuctionParams{
		Kind:      kind,
		CreatorID: uuid.New(),
		Title:     "vintage camera",
		StartedAt: now.Add(time.Hour),
	}
	switch kind {
	case KindPenny:
		p.StopwatchSeconds = 30
	default:
		p.FinishedAt = now.Add(2 * time.Hour)
		p.InitialBidAmount = NewMoney(100, "USD")
	}
	return p
}

func TestNewAuction(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid auctions start life scheduled", func(t *testing.T) {
		for _, kind := range []Kind{KindStandard, KindPenny, KindClosed} {
			a, err := NewAuction(validParams(kind, now), testStopwatch, now)
			require.NoError(t, err, "kind %s", kind)
			assert.Equal(t, StatusScheduled, a.Status)
			assert.Equal(t, kind, a.Kind)
			assert.NotEqual(t, uuid.Nil, a.ID)
			assert.Equal(t, a.InitialBidAmount, a.MinimalBidAmount)
		}
	})

	tests := []struct {
		name    string
		mutate  func(p *NewAuctionParams)
		kind    Kind
		field   string
	}{
		{
			name:   "unknown kind",
			kind:   KindStandard,
			mutate: func(p *NewAuctionParams) { p.Kind = Kind("DUTCH") },
			field:  "kind",
		},
		{
			name:   "missing creator",
			kind:   KindStandard,
			mutate: func(p *NewAuctionParams) { p.CreatorID = uuid.Nil },
			field:  "creator_id",
		},
		{
			name:   "missing started_at",
			kind:   KindClosed,
			mutate: func(p *NewAuctionParams) { p.StartedAt = time.Time{} },
			field:  "started_at",
		},
		{
			name:   "penny with initial amount",
			kind:   KindPenny,
			mutate: func(p *NewAuctionParams) { p.InitialBidAmount = NewMoney(100, "USD") },
			field:  "initial_bid_amount",
		},
		{
			name:   "penny stopwatch below range",
			kind:   KindPenny,
			mutate: func(p *NewAuctionParams) { p.StopwatchSeconds = 5 },
			field:  "stopwatch_seconds",
		},
		{
			name:   "penny stopwatch above range",
			kind:   KindPenny,
			mutate: func(p *NewAuctionParams) { p.StopwatchSeconds = 7200 },
			field:  "stopwatch_seconds",
		},
		{
			name:   "standard without finished_at",
			kind:   KindStandard,
			mutate: func(p *NewAuctionParams) { p.FinishedAt = time.Time{} },
			field:  "finished_at",
		},
		{
			name:   "closed finishing before it starts",
			kind:   KindClosed,
			mutate: func(p *NewAuctionParams) { p.FinishedAt = p.StartedAt.Add(-time.Minute) },
			field:  "finished_at",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams(tt.kind, now)
			tt.mutate(&p)

			_, err := NewAuction(p, testStopwatch, now)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestAuctionTransitions(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		from    Status
		apply   func(a *Auction) error
		to      Status
		wantErr error
	}{
		{"start from scheduled", StatusScheduled, func(a *Auction) error { return a.Start(now) }, StatusRunning, nil},
		{"start twice", StatusRunning, func(a *Auction) error { return a.Start(now) }, StatusRunning, ErrInvalidStatus},
		{"start after finish", StatusFinished, func(a *Auction) error { return a.Start(now) }, StatusFinished, ErrInvalidStatus},
		{"pause running", StatusRunning, func(a *Auction) error { return a.Pause(now) }, StatusPaused, nil},
		{"pause scheduled", StatusScheduled, func(a *Auction) error { return a.Pause(now) }, StatusScheduled, ErrInvalidStatus},
		{"pause paused", StatusPaused, func(a *Auction) error { return a.Pause(now) }, StatusPaused, ErrInvalidStatus},
		{"unpause paused", StatusPaused, func(a *Auction) error { return a.Unpause(now) }, StatusRunning, nil},
		{"unpause running", StatusRunning, func(a *Auction) error { return a.Unpause(now) }, StatusRunning, ErrInvalidStatus},
		{"finish running", StatusRunning, func(a *Auction) error { return a.Finish(now) }, StatusFinished, nil},
		{"finish paused", StatusPaused, func(a *Auction) error { return a.Finish(now) }, StatusPaused, ErrInvalidStatus},
		{"finish finished", StatusFinished, func(a *Auction) error { return a.Finish(now) }, StatusFinished, ErrInvalidStatus},
		{"cancel scheduled", StatusScheduled, func(a *Auction) error { return a.Cancel(now) }, StatusCanceled, nil},
		{"cancel running", StatusRunning, func(a *Auction) error { return a.Cancel(now) }, StatusCanceled, nil},
		{"cancel paused", StatusPaused, func(a *Auction) error { return a.Cancel(now) }, StatusCanceled, nil},
		{"cancel finished", StatusFinished, func(a *Auction) error { return a.Cancel(now) }, StatusFinished, ErrInvalidStatus},
		{"cancel canceled", StatusCanceled, func(a *Auction) error { return a.Cancel(now) }, StatusCanceled, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Auction{ID: uuid.New(), Kind: KindStandard, Status: tt.from}

			err := tt.apply(a)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.to, a.Status)
		})
	}
}

func TestStartPennyEstablishesFallbackDeadline(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{ID: uuid.New(), Kind: KindPenny, Status: StatusScheduled, StopwatchSeconds: 45}

	require.NoError(t, a.Start(now))

	assert.Equal(t, now.Add(45*time.Second), a.FinishedAt)
}

func TestStartStandardKeepsFixedDeadline(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(2 * time.Hour)
	a := &Auction{ID: uuid.New(), Kind: KindStandard, Status: StatusScheduled, FinishedAt: deadline}

	require.NoError(t, a.Start(now))

	assert.Equal(t, deadline, a.FinishedAt)
}

func TestAcceptsBids(t *testing.T) {
	cases := map[Status]bool{
		StatusScheduled: true,
		StatusRunning:   true,
		StatusPaused:    false,
		StatusFinished:  false,
		StatusCanceled:  false,
	}
	for status, want := range cases {
		a := &Auction{Status: status}
		assert.Equal(t, want, a.AcceptsBids(), "status %s", status)
	}
}

func TestExtendDeadline(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{Kind: KindPenny, Status: StatusRunning, StopwatchSeconds: 30, FinishedAt: now.Add(5 * time.Second)}

	a.ExtendDeadline(now)

	assert.Equal(t, now.Add(30*time.Second), a.FinishedAt)
}

func TestRaiseFloor(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{Kind: KindStandard, MinimalBidAmount: NewMoney(100, "USD")}

	a.RaiseFloor(NewMoney(100, "USD"), now)

	assert.Equal(t, NewMoney(110, "USD"), a.MinimalBidAmount)
}
