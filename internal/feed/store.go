// Package feed keeps the merged events of all configured ICS feeds in memory
// and refreshes them on a cron schedule.
package feed

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"timegrid/internal/clock"
	"timegrid/internal/ics"
	appLog "timegrid/internal/log"
	"timegrid/internal/model"
)

// Source is what a Store needs to obtain feed bodies; *ics.Fetcher satisfies it.
type Source interface {
	FetchAll(ctx context.Context, feeds []ics.Feed) ([]ics.Payload, []error)
}

// Snapshot is the state after the last refresh.
type Snapshot struct {
	Events    []model.Event
	UpdatedAt time.Time
	Errors    int
}

// Store holds the latest events. Reads never block on a refresh in flight.
type Store struct {
	source Source
	feeds  []ics.Feed
	loc    *time.Location
	clock  clock.Clock

	refreshMu sync.Mutex // serializes Refresh

	mu   sync.RWMutex
	snap Snapshot
}

// NewStore returns an empty Store. Events are normalized into loc.
func NewStore(source Source, feeds []ics.Feed, loc *time.Location, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Store{
		source: source,
		feeds:  slices.Clone(feeds),
		loc:    loc,
		clock:  clk,
		snap:   Snapshot{Events: []model.Event{}},
	}
}

// Refresh fetches and parses every feed and swaps in the result. Feeds that
// fail keep no events of their own; the returned error joins their errors.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	payloads, errs := s.source.FetchAll(ctx, s.feeds)

	events := make([]model.Event, 0)
	for _, p := range payloads {
		evs, err := ics.Parse(p.Feed, p.Body, s.loc)
		if err != nil {
			appLog.Error("feed parse failed", err, "id", p.Feed.ID)
			errs = append(errs, err)
			continue
		}
		events = append(events, evs...)
	}

	s.mu.Lock()
	s.snap = Snapshot{Events: events, UpdatedAt: s.clock.Now(), Errors: len(errs)}
	s.mu.Unlock()

	appLog.Info("feed refresh completed", "feeds", len(s.feeds), "events", len(events), "errors", len(errs))
	return errors.Join(errs...)
}

// Snapshot returns the last refresh result. The event slice is a copy.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Events = slices.Clone(s.snap.Events)
	return snap
}

// Events returns the events starting within [from, to).
func (s *Store) Events(from, to time.Time) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0)
	for _, ev := range s.snap.Events {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			out = append(out, ev)
		}
	}
	return out
}

// Scheduler drives Store.Refresh from a cron spec.
type Scheduler struct {
	cron    *cron.Cron
	store   *Store
	timeout time.Duration
}

// NewScheduler parses spec (standard 5-field cron) and registers the refresh job.
func NewScheduler(store *Store, spec string, timeout time.Duration) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = time.Minute
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		store:   store,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Refresh(ctx); err != nil {
		appLog.Error("scheduled feed refresh had errors", err)
	}
}

// Start begins running the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running refresh or ctx, whichever is first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Next reports when the next refresh is due.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
