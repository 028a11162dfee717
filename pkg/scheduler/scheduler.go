// Package scheduler flushes long-lived loggers on a fixed interval each, and
// once more when it stops.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nyc-design/neil-logger/pkg/console"
)

// DefaultInterval is used by Add.
const DefaultInterval = 10 * time.Second

// DefaultStopTimeout bounds the final flush performed by Stop.
const DefaultStopTimeout = 5 * time.Second

// Flusher is satisfied by *logger.Logger.
type Flusher interface {
	Name() string
	Flush(ctx context.Context) error
}

type Config struct {
	// StopTimeout bounds the final flush. Zero means DefaultStopTimeout.
	StopTimeout time.Duration
}

type Scheduler struct {
	config    Config
	targets   map[string]Flusher
	intervals map[string]time.Duration
	tickers   map[string]*time.Ticker
	ctx       context.Context
	ctxCancel context.CancelFunc
	mu        sync.RWMutex
	wg        sync.WaitGroup
	running   bool
	console   *console.Writer
}

func New(config Config) *Scheduler {
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultStopTimeout
	}
	return &Scheduler{
		config:    config,
		targets:   make(map[string]Flusher),
		intervals: make(map[string]time.Duration),
		tickers:   make(map[string]*time.Ticker),
		console:   console.ForName("scheduler"),
	}
}

// Add schedules f with DefaultInterval.
func (s *Scheduler) Add(f Flusher) error {
	return s.AddWithInterval(f, DefaultInterval)
}

// AddWithInterval schedules f to be flushed every interval. An interval of 0
// means f is only flushed when the scheduler stops. Adding a name twice
// replaces the earlier entry.
func (s *Scheduler) AddWithInterval(f Flusher, interval time.Duration) error {
	if interval < 0 {
		return fmt.Errorf("invalid interval %s for %s", interval, f.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := f.Name()
	s.stopTicker(name)
	s.targets[name] = f
	s.intervals[name] = interval

	if s.running && interval > 0 {
		s.startTicker(name, f, interval)
	}
	return nil
}

// Remove stops flushing the named target. It is not flushed again.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTicker(name)
	delete(s.targets, name)
	delete(s.intervals, name)
}

// Names returns the scheduled target names.
func (s *Scheduler) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.targets))
	for name := range s.targets {
		names = append(names, name)
	}
	return names
}

// Start begins the periodic flushes. They run until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler is already running")
	}
	if len(s.targets) == 0 {
		return errors.New("no loggers scheduled")
	}

	s.ctx, s.ctxCancel = context.WithCancel(ctx)
	s.running = true
	for name, interval := range s.intervals {
		if interval == 0 {
			continue
		}
		s.startTicker(name, s.targets[name], interval)
	}
	return nil
}

// startTicker must be called with mu held.
func (s *Scheduler) startTicker(name string, f Flusher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	s.tickers[name] = ticker
	s.wg.Add(1)
	go s.run(s.ctx, f, ticker)
}

// stopTicker must be called with mu held.
func (s *Scheduler) stopTicker(name string) {
	if ticker, ok := s.tickers[name]; ok {
		ticker.Stop()
		delete(s.tickers, name)
	}
}

func (s *Scheduler) run(ctx context.Context, f Flusher, ticker *time.Ticker) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			current := s.tickers[f.Name()] == ticker
			s.mu.RUnlock()
			if !current {
				return
			}
			if err := f.Flush(ctx); err != nil && ctx.Err() == nil {
				s.console.Warnf("scheduled flush of %s failed: %v", f.Name(), err)
			}
		}
	}
}

// FlushAll flushes every target once and joins the failures.
func (s *Scheduler) FlushAll(ctx context.Context) error {
	s.mu.RLock()
	targets := make([]Flusher, 0, len(s.targets))
	for _, f := range s.targets {
		targets = append(targets, f)
	}
	s.mu.RUnlock()

	var errs []error
	for _, f := range targets {
		if err := f.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flushing %s: %w", f.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Stop ends the periodic flushes, waits for any in progress and flushes every
// target one last time.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.New("scheduler is not running")
	}
	s.running = false
	s.ctxCancel()
	for name := range s.tickers {
		s.stopTicker(name)
	}
	s.mu.Unlock()

	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.StopTimeout)
	defer cancel()
	return s.FlushAll(ctx)
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
