package fill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
	"github.com/grez-lucas/dialer-helper/internal/settings"
)

// Timing holds the fill delays.
type Timing struct {
	MaxRetries int
	// RetryDelays[i] is the wait after failed attempt i+1. The last entry is
	// reused once attempts outrun the table.
	RetryDelays  []time.Duration
	DropdownWait time.Duration
	KeyStepDelay time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		MaxRetries:   3,
		RetryDelays:  []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, time.Second},
		DropdownWait: 200 * time.Millisecond,
		KeyStepDelay: 100 * time.Millisecond,
	}
}

// RetryDelay returns the backoff after the given zero-based attempt.
func (t Timing) RetryDelay(attempt int) time.Duration {
	if len(t.RetryDelays) == 0 {
		return time.Second
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(t.RetryDelays) {
		return t.RetryDelays[len(t.RetryDelays)-1]
	}
	return t.RetryDelays[attempt]
}

// Presenter shows the outcome of a run. Implementations report whether the
// panel could be shown; callers never escalate the error.
type Presenter interface {
	Success(ctx context.Context, country, dialCode string) error
	Failure(ctx context.Context) error
}

// SettingsSource is read at the moment of use on every attempt.
type SettingsSource interface {
	Current() settings.Settings
}

// State is a run's position in Idle → Attempting → Succeeded | Failed.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the terminal result of one run.
type Outcome struct {
	RunID      string
	State      State
	Attempts   int
	Country    string
	Resolution Resolution
	DialCode   bool
	Err        error
}

// retryState is owned by exactly one run.
type retryState struct {
	attempt     int
	maxAttempts int
}

func (r retryState) exhausted() bool { return r.attempt >= r.maxAttempts }

// Scheduler drives injection and dropdown resolution for one element at a
// time per Run call. Runs for different elements are independent.
type Scheduler struct {
	injector  *Injector
	resolver  *Resolver
	dialCode  *DialCodeFiller
	presenter Presenter
	settings  SettingsSource
	timing    Timing
	logger    *zap.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTiming overrides the default delays.
func WithTiming(t Timing) SchedulerOption {
	return func(s *Scheduler) {
		s.timing = t
	}
}

// WithDialCode enables filling the phone input after a confirmed selection.
func WithDialCode(f *DialCodeFiller) SchedulerOption {
	return func(s *Scheduler) {
		s.dialCode = f
	}
}

// WithLogger sets the scheduler's logger.
func WithLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// NewScheduler creates a scheduler reading src and reporting to presenter.
func NewScheduler(src SettingsSource, presenter Presenter, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		settings:  src,
		presenter: presenter,
		timing:    DefaultTiming(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timing.MaxRetries < 1 {
		s.timing.MaxRetries = 1
	}
	s.injector = NewInjector(s.logger)
	s.resolver = NewResolver(s.timing.KeyStepDelay, s.logger)
	return s
}

// Injector returns the scheduler's injector.
func (s *Scheduler) Injector() *Injector { return s.injector }

// Resolver returns the scheduler's dropdown resolver.
func (s *Scheduler) Resolver() *Resolver { return s.resolver }

// Run fills el in doc with the configured country. It blocks until the run
// reaches Succeeded or Failed. Settings changes never abort a run.
func (s *Scheduler) Run(ctx context.Context, doc dom.Document, el dom.Element) Outcome {
	out := Outcome{RunID: uuid.NewString(), State: StateIdle}
	log := s.logger.With(
		zap.String("run_id", out.RunID),
		zap.String("frame", doc.URL()),
		zap.String("element", string(el.ID())),
	)
	retry := retryState{maxAttempts: s.timing.MaxRetries}

	for {
		out.State = StateAttempting
		cfg := s.settings.Current()
		country := Sanitize(cfg.CountryName)
		out.Country = country

		if !IsValidCountryName(country) {
			log.Error("Invalid country name", zap.String("country", country))
			out.State = StateFailed
			out.Err = &FillError{Frame: doc.URL(), Operation: "Validate", Cause: ErrValidationFailure, Details: fmt.Sprintf("%q", country)}
			return out
		}

		retry.attempt++
		out.Attempts = retry.attempt
		log.Debug("Attempt", zap.Int("attempt", retry.attempt), zap.Int("max", retry.maxAttempts))
		log.Info("Selecting", zap.String("country", country))

		err := s.injector.Inject(ctx, el, country)
		if err == nil {
			s.complete(ctx, doc, el, country, &out, log)
			return out
		}

		if errors.Is(err, ErrValidationFailure) {
			out.State = StateFailed
			out.Err = err
			return out
		}
		if ctx.Err() != nil {
			out.State = StateFailed
			out.Err = ctx.Err()
			return out
		}

		log.Debug("Injection failed", zap.Int("attempt", retry.attempt), zap.Error(err))
		if retry.exhausted() {
			log.Error("Failed after retries", zap.Int("attempts", retry.attempt), zap.Error(err))
			out.State = StateFailed
			out.Err = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, retry.attempt, err)
			s.present(ctx, log, func(ctx context.Context) error { return s.presenter.Failure(ctx) })
			return out
		}

		delay := s.timing.RetryDelay(retry.attempt - 1)
		log.Debug("Retrying", zap.Duration("delay", delay))
		if err := sleep(ctx, delay); err != nil {
			out.State = StateFailed
			out.Err = err
			return out
		}
	}
}

// complete runs after a successful injection. The run has succeeded even if
// the dropdown cannot be resolved, since the value is already set.
func (s *Scheduler) complete(ctx context.Context, doc dom.Document, el dom.Element, country string, out *Outcome, log *zap.Logger) {
	out.State = StateSucceeded

	if err := sleep(ctx, s.timing.DropdownWait); err != nil {
		out.Err = err
		return
	}
	out.Resolution = s.resolver.Resolve(ctx, doc, el, country)
	if !out.Resolution.Success {
		log.Warn("Dropdown option not found", zap.String("country", country))
		out.Err = &FillError{Frame: doc.URL(), Operation: "Resolve", Cause: ErrDropdownAmbiguous, Details: country}
		return
	}
	log.Info("Country selected", zap.String("country", country), zap.String("method", string(out.Resolution.Method)))

	cfg := s.settings.Current()
	if s.dialCode != nil {
		filled, err := s.dialCode.Fill(ctx, doc, cfg.DialCode)
		if err != nil {
			log.Debug("Could not fill dial code", zap.Error(err))
		}
		out.DialCode = filled
	}
	if cfg.ShowToast {
		s.present(ctx, log, func(ctx context.Context) error {
			return s.presenter.Success(ctx, country, cfg.DialCode)
		})
	}
}

func (s *Scheduler) present(ctx context.Context, log *zap.Logger, show func(context.Context) error) {
	if s.presenter == nil {
		return
	}
	if err := show(ctx); err != nil {
		log.Debug("Feedback not shown", zap.Error(fmt.Errorf("%w: %w", ErrFeedbackBlocked, err)))
	}
}
