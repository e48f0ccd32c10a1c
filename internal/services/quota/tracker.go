package quota

import (
	"context"
	"time"

	"github.com/phambaophuc/alt-text-relay/internal/models"
	"go.uber.org/zap"
)

// Unlimited is reported as Remaining for privileged callers.
const Unlimited = -1

type Decision struct {
	Allowed   bool
	Count     int
	Remaining int
}

type Tracker struct {
	store  Store
	limit  int
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Tracker)

// WithClock overrides the wall clock used to derive the current day.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(store Store, dailyLimit int, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		limit:  dailyLimit,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Limit() int { return t.limit }

// Today returns the current UTC calendar date.
func (t *Tracker) Today() string {
	return t.now().UTC().Format(dayLayout)
}

// CheckAndConsume charges requested images to identity. Privileged callers
// are always allowed and never touch the store. A rejected request leaves the
// stored count unchanged.
func (t *Tracker) CheckAndConsume(ctx context.Context, identity string, requested int, privileged bool) (Decision, error) {
	if privileged {
		return Decision{Allowed: true, Remaining: Unlimited}, nil
	}

	record, applied, err := t.store.IncrementWithReset(ctx, identity, t.Today(), requested, t.limit)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Allowed:   applied,
		Count:     record.Count,
		Remaining: max(t.limit-record.Count, 0),
	}
	if !applied {
		t.logger.Info("Quota exceeded",
			zap.String("identity", identity),
			zap.Int("used", record.Count),
			zap.Int("requested", requested),
			zap.Int("limit", t.limit))
	}
	return decision, nil
}

// Usage returns today's record for identity without consuming anything.
func (t *Tracker) Usage(ctx context.Context, identity string) (models.QuotaRecord, error) {
	today := t.Today()
	record, ok, err := t.store.Get(ctx, identity)
	if err != nil {
		return models.QuotaRecord{}, err
	}
	if !ok || record.Day != today {
		return models.QuotaRecord{Identity: identity, Day: today}, nil
	}
	return record, nil
}

// Sweep drops records left over from previous days.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	return t.store.Sweep(ctx, t.Today())
}
