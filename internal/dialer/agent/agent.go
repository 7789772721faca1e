// Package agent wires the dialer components for one attached tab and serves
// on-demand fill requests.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/dialer/detect"
	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
	"github.com/grez-lucas/dialer-helper/internal/dialer/fill"
	"github.com/grez-lucas/dialer-helper/internal/dialer/locate"
	"github.com/grez-lucas/dialer-helper/internal/settings"
)

// Deps are the page-facing collaborators.
type Deps struct {
	Frames dom.FrameSource
	// Mutations enables the observer trigger. May be nil.
	Mutations dom.MutationSource
	Presenter fill.Presenter
	Settings  *settings.Live
}

// Options tune the agent. Zero values select the defaults.
type Options struct {
	Rules             []locate.Rule
	OnDemandSelectors []string
	FillTiming        *fill.Timing
	DetectTiming      *detect.Timing
	OnDemandTiming    *OnDemandTiming
	// DialCodeSelector locates the phone input filled after a selection.
	// Empty disables dial code filling.
	DialCodeSelector string
	Metrics          *Metrics
	Logger           *zap.Logger
}

// Agent owns the detector and the on-demand filler of one tab. Both share
// the processed-element registry.
type Agent struct {
	settings  *settings.Live
	locator   *locate.Locator
	scheduler *fill.Scheduler
	detector  *detect.Detector
	filler    *Filler
	metrics   *Metrics
	logger    *zap.Logger
}

func New(deps Deps, opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := opts.Rules
	if len(rules) == 0 {
		rules = locate.DefaultRules()
	}
	selectors := opts.OnDemandSelectors
	if len(selectors) == 0 {
		selectors = locate.OnDemandSelectors()
	}
	fillTiming := fill.DefaultTiming()
	if opts.FillTiming != nil {
		fillTiming = *opts.FillTiming
	}
	detectTiming := detect.DefaultTiming()
	if opts.DetectTiming != nil {
		detectTiming = *opts.DetectTiming
	}
	onDemandTiming := DefaultOnDemandTiming()
	if opts.OnDemandTiming != nil {
		onDemandTiming = *opts.OnDemandTiming
	}

	a := &Agent{
		settings: deps.Settings,
		locator:  locate.NewLocator(rules, logger.Named("locate")),
		metrics:  opts.Metrics,
		logger:   logger,
	}

	schedOpts := []fill.SchedulerOption{
		fill.WithTiming(fillTiming),
		fill.WithLogger(logger.Named("fill")),
	}
	if opts.DialCodeSelector != "" {
		schedOpts = append(schedOpts, fill.WithDialCode(fill.NewDialCodeFiller(opts.DialCodeSelector, logger.Named("dialcode"))))
	}
	a.scheduler = fill.NewScheduler(deps.Settings, deps.Presenter, schedOpts...)

	registry := detect.NewRegistry()
	detectOpts := []detect.Option{
		detect.WithTiming(detectTiming),
		detect.WithLogger(logger.Named("detect")),
		detect.WithRegistry(registry),
		detect.OnResult(a.onDetection),
	}
	if deps.Mutations != nil {
		detectOpts = append(detectOpts, detect.WithMutations(deps.Mutations))
	}
	a.detector = detect.NewDetector(deps.Frames, a.locator, a.scheduler, deps.Settings, detectOpts...)

	a.filler = &Filler{
		frames:    deps.Frames,
		selectors: selectors,
		injector:  a.scheduler.Injector(),
		resolver:  a.scheduler.Resolver(),
		presenter: deps.Presenter,
		registry:  registry,
		dialCode:  func() string { return deps.Settings.Current().DialCode },
		timing:    onDemandTiming,
		logger:    logger.Named("ondemand"),
	}
	return a
}

// Run watches the tab until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	cur := a.settings.Current()
	a.logger.Info("Dialer agent ready",
		zap.String("country", cur.CountryName),
		zap.String("dial_code", cur.DialCode),
		zap.Bool("enabled", cur.Enabled),
		zap.Int("rules", len(a.locator.Rules())),
	)
	return a.detector.Run(ctx)
}

// Registry returns the registry shared by the triggers and on-demand fills.
func (a *Agent) Registry() *detect.Registry { return a.detector.Registry() }

// Settings returns the live settings.
func (a *Agent) Settings() *settings.Live { return a.settings }

func (a *Agent) onDetection(d detect.Detection) {
	a.metrics.observeDetection(d)
	log := a.logger.With(
		zap.String("run_id", d.Outcome.RunID),
		zap.String("trigger", string(d.Trigger)),
		zap.String("state", d.Outcome.State.String()),
		zap.Int("attempts", d.Outcome.Attempts),
	)
	if d.Outcome.Err != nil {
		log.Debug("Fill run finished", zap.Error(d.Outcome.Err))
		return
	}
	log.Debug("Fill run finished")
}
