// Package scheduler delivers due reminders.
//
// A single cron job polls the store at a fixed interval. Each tick sends every
// due reminder and deletes the ones that were delivered. A reminder whose send
// fails stays in the store and is retried on the next tick. A reminder that was
// sent but could not be deleted is sent again, so delivery is at-least-once.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pathakanu/remindme/internal/logging"
	"github.com/pathakanu/remindme/internal/model"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	DefaultInterval    = 60 * time.Second
	DefaultSendTimeout = 15 * time.Second
)

// Store is the part of the reminder store the scheduler needs.
type Store interface {
	DueBefore(ctx context.Context, asOf time.Time) ([]model.Reminder, error)
	Delete(ctx context.Context, id string) error
}

// Sender delivers a message body to a recipient.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Report summarises one tick.
type Report struct {
	Due       int
	Delivered int
	Failed    int
	// Undeleted counts reminders that were sent but are still stored.
	Undeleted int
	QueryErr  error
}

// Scheduler polls the store and delivers due reminders.
type Scheduler struct {
	store       Store
	sender      Sender
	log         zerolog.Logger
	now         func() time.Time
	interval    time.Duration
	sendTimeout time.Duration

	cron    *cron.Cron
	job     cron.Job
	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the polling interval. cron rounds it to whole seconds.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSendTimeout bounds each Send call.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// New creates a scheduler. It does not start polling until Start or Run.
func New(store Store, sender Sender, log zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		sender:      sender,
		log:         log.With().Str("component", "scheduler").Logger(),
		now:         time.Now,
		interval:    DefaultInterval,
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick runs one polling iteration.
func (s *Scheduler) Tick(ctx context.Context) Report {
	asOf := s.now()
	reminders, err := s.store.DueBefore(ctx, asOf)
	if err != nil {
		s.log.Error().Err(err).Time("as_of", asOf).Msg("query due reminders")
		return Report{QueryErr: err}
	}

	report := Report{Due: len(reminders)}
	for _, r := range reminders {
		if ctx.Err() != nil {
			break
		}
		if err := s.deliver(ctx, r); err != nil {
			report.Failed++
			s.log.Warn().Err(err).Str("reminder_id", r.ID).Str("recipient", r.Recipient).Msg("send reminder, will retry")
			continue
		}
		report.Delivered++

		if err := s.store.Delete(ctx, r.ID); err != nil {
			report.Undeleted++
			s.log.Error().Err(err).Str("reminder_id", r.ID).Msg("delete delivered reminder, it will be sent again")
			continue
		}
		s.log.Info().Str("reminder_id", r.ID).Str("recipient", r.Recipient).Msg("reminder delivered")
	}

	if report.Due > 0 {
		s.log.Info().
			Int("due", report.Due).
			Int("delivered", report.Delivered).
			Int("failed", report.Failed).
			Int("undeleted", report.Undeleted).
			Msg("tick finished")
	}
	return report
}

// deliver sends one reminder. A panicking sender counts as a failed send so
// the rest of the batch still goes out.
func (s *Scheduler) deliver(ctx context.Context, r model.Reminder) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("send panicked: %v", p)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	return s.sender.Send(ctx, r.Recipient, r.Body())
}

// Start schedules the tick and runs the first one immediately. Ticks never
// overlap: a tick that is still running when the next one is due is skipped.
func (s *Scheduler) Start() error {
	if s.cron != nil {
		return nil
	}
	cl := logging.CronLogger{Log: s.log}
	s.cron = cron.New(cron.WithLogger(cl))
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { s.Tick(s.ctx) }))
	if _, err := s.cron.AddJob(fmt.Sprintf("@every %s", s.interval), s.job); err != nil {
		s.cancel()
		s.cron = nil
		return err
	}
	s.cron.Start()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.job.Run()
	}()
	return nil
}

// Stop halts polling and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	s.initial.Wait()
	s.cron = nil
	s.log.Info().Msg("scheduler stopped")
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}
