package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// Lookups is the part of weather.Service the scheduler drives.
type Lookups interface {
	Refresh(ctx context.Context, name string, opts weather.LookupOptions) (weather.CityRecord, error)
}

// Store is the part of store.AppStore the scheduler reads and updates.
type Store interface {
	Preferences() weather.Preferences
	Favourites() []weather.CityRecord
	RecordFreshResult(rec weather.CityRecord) (weather.CityRecord, error)
	SetCurrentCity(rec weather.CityRecord) error
	UpdateFavourite(rec weather.CityRecord) error
	PruneHistory() (int, error)
}

// Scheduler periodically refreshes the current city and the favourites, and drops stale
// history entries.
type Scheduler struct {
	scheduler *gocron.Scheduler
	lookups   Lookups
	store     Store
	log       *logger.Logger
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(interval time.Duration, lookups Lookups, store Store, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		lookups:   lookups,
		store:     store,
		log:       log,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the refresh job and starts the underlying scheduler. A non-positive
// interval disables it.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("scheduler: refresh disabled")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 1
	}

	_, err := s.scheduler.Every(minutes).Minutes().WaitForSchedule().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info("scheduler: started", "every_minutes", minutes)
	return nil
}

// RunOnce performs one refresh pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.log.Debug("scheduler: running refresh job")

	if removed, err := s.store.PruneHistory(); err != nil {
		s.log.Error("scheduler: pruning history failed", "err", err)
	} else if removed > 0 {
		s.log.Info("scheduler: pruned stale history", "removed", removed)
	}

	var wg sync.WaitGroup

	if city := s.store.Preferences().City; city != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.refreshCurrent(ctx, city)
		}()
	}

	for _, fav := range s.store.Favourites() {
		fav := fav
		wg.Add(1)
		go func() {
			defer wg.Done()

			rec, err := s.lookups.Refresh(ctx, fav.Name, weather.LookupOptions{Unit: fav.Unit})
			if err != nil {
				s.log.Warn("scheduler: favourite refresh failed", "city", fav.Name, "err", err)
				return
			}
			rec.Name = fav.Name
			if err := s.store.UpdateFavourite(rec); err != nil {
				s.log.Warn("scheduler: favourite update failed", "city", fav.Name, "err", err)
			}
		}()
	}
	wg.Wait()

	s.log.Debug("scheduler: completed refresh job")
}

// refreshCurrent fetches city and, only when the fetch succeeds, records it and makes it the
// current city. A failed fetch leaves the stored current city as it was.
func (s *Scheduler) refreshCurrent(ctx context.Context, city string) {
	rec, err := s.lookups.Refresh(ctx, city, weather.LookupOptions{})
	if err != nil {
		s.log.Warn("scheduler: current city refresh failed", "city", city, "kind", string(weather.KindOf(err)), "err", err)
		return
	}
	stored, err := s.store.RecordFreshResult(rec)
	if err != nil {
		s.log.Warn("scheduler: recording current city failed", "city", city, "err", err)
		return
	}
	if err := s.store.SetCurrentCity(stored); err != nil {
		s.log.Warn("scheduler: updating current city failed", "city", city, "err", err)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
