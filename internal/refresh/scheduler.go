package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
)

// Scheduler triggers periodic refresh runs. The first tick is anchored
// on the last successful run when one is known, so a restart does not
// refresh immediately after a recent success.
type Scheduler struct {
	coordinator *Coordinator
	clock       clockwork.Clock
	retention   time.Duration

	mu         sync.Mutex
	interval   time.Duration
	reschedule chan chan struct{}
	trigger    chan chan error
	stop       chan struct{}
	done       chan struct{}
}

// NewScheduler creates a scheduler. retention > 0 enables download
// cleanup after each scheduled run.
func NewScheduler(coordinator *Coordinator, clock clockwork.Clock, interval, retention time.Duration) *Scheduler {
	return &Scheduler{
		coordinator: coordinator,
		clock:       clock,
		retention:   retention,
		interval:    interval,
		reschedule:  make(chan chan struct{}),
		trigger:     make(chan chan error),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Interval returns the current refresh interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Reschedule changes the interval. The new interval is recorded
// immediately; the call then waits until the loop has replaced the
// pending tick, so a shorter interval is in effect when it returns.
func (s *Scheduler) Reschedule(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()

	ack := make(chan struct{})
	select {
	case s.reschedule <- ack:
	case <-s.done:
		return errors.New("scheduler stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ack
	return nil
}

// TriggerNow requests an immediate run and waits for its outcome. The
// periodic anchor is unchanged: a manual run does not delay the next
// scheduled one.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.trigger <- reply:
		return <-reply
	case <-s.done:
		return errors.New("scheduler stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the tick loop until Stop is called or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	timer := s.clock.NewTimer(s.initialDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopping: context cancelled")
			return
		case <-s.stop:
			log.Info().Msg("Scheduler stopping")
			return
		case ack := <-s.reschedule:
			interval := s.Interval()
			timer.Reset(interval)
			close(ack)
			log.Info().Dur("interval", interval).Msg("Refresh interval changed")
		case reply := <-s.trigger:
			reply <- s.runOnce(ctx, false)
		case <-timer.Chan():
			s.runOnce(ctx, true)
			timer.Reset(s.Interval())
		}
	}
}

// Stop asks the loop to exit and waits until it has.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// initialDelay computes the first tick from the persisted last success,
// clamped to [0, interval].
func (s *Scheduler) initialDelay() time.Duration {
	interval := s.Interval()
	st := s.coordinator.Status()
	if st.LastSuccessAt == nil {
		return interval
	}
	elapsed := s.clock.Now().Sub(*st.LastSuccessAt)
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

func (s *Scheduler) runOnce(ctx context.Context, scheduled bool) error {
	_, err := s.coordinator.Refresh(ctx)
	if errors.Is(err, domain.ErrAlreadyRunning) {
		log.Warn().Bool("scheduled", scheduled).Msg("Refresh skipped: a run is already in flight")
		return err
	}
	if err != nil {
		return err
	}

	if scheduled && s.retention > 0 {
		if removed, cerr := s.coordinator.Cleanup(s.retention); cerr != nil {
			log.Warn().Err(cerr).Msg("Download cleanup failed")
		} else if removed > 0 {
			log.Info().Int("removed", removed).Msg("Download cleanup after scheduled refresh")
		}
	}
	return nil
}
