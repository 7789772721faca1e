package detect

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
	"github.com/grez-lucas/dialer-helper/internal/dialer/fill"
	"github.com/grez-lucas/dialer-helper/internal/dialer/locate"
)

// ErrMutationsClosed is returned by Run when the mutation stream ends while
// the detector is still running, typically because the page was closed.
var ErrMutationsClosed = errors.New("mutation stream closed")

// Trigger names the source of a detection.
type Trigger string

const (
	TriggerObserver Trigger = "observer"
	TriggerPoll     Trigger = "poll"
	TriggerInitial  Trigger = "initial"
)

// Timing holds the trigger delays.
type Timing struct {
	// Debounce drops mutation batches arriving this soon after the last
	// observer detection.
	Debounce     time.Duration
	PollInterval time.Duration
	InitialDelay time.Duration
	// HandoffDelay is waited between an observer detection and the fill run.
	HandoffDelay time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Debounce:     200 * time.Millisecond,
		PollInterval: 500 * time.Millisecond,
		InitialDelay: 300 * time.Millisecond,
		HandoffDelay: 100 * time.Millisecond,
	}
}

// Runner fills one detected element.
type Runner interface {
	Run(ctx context.Context, doc dom.Document, el dom.Element) fill.Outcome
}

// Gate reports whether new detections may start runs. It is consulted at the
// moment each trigger fires.
type Gate interface {
	Enabled() bool
}

// Detection is reported for every element handed off.
type Detection struct {
	Trigger    Trigger
	Frame      string
	Element    dom.NodeID
	Confidence int
	Rule       string
	Outcome    fill.Outcome
}

// Detector runs the observer, poll and initial triggers against every frame
// of a tab.
type Detector struct {
	frames    dom.FrameSource
	mutations dom.MutationSource
	locator   *locate.Locator
	registry  *Registry
	runner    Runner
	gate      Gate
	timing    Timing
	logger    *zap.Logger
	onResult  func(Detection)

	runs sync.WaitGroup
}

// Option configures a Detector.
type Option func(*Detector)

func WithTiming(t Timing) Option {
	return func(d *Detector) { d.timing = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithRegistry shares a registry, e.g. with the on-demand fill path.
func WithRegistry(r *Registry) Option {
	return func(d *Detector) { d.registry = r }
}

// WithMutations enables the observer trigger.
func WithMutations(m dom.MutationSource) Option {
	return func(d *Detector) { d.mutations = m }
}

// OnResult is called after each handed-off run completes.
func OnResult(fn func(Detection)) Option {
	return func(d *Detector) { d.onResult = fn }
}

func NewDetector(frames dom.FrameSource, locator *locate.Locator, runner Runner, gate Gate, opts ...Option) *Detector {
	d := &Detector{
		frames:  frames,
		locator: locator,
		runner:  runner,
		gate:    gate,
		timing:  DefaultTiming(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.timing.PollInterval <= 0 {
		d.timing.PollInterval = DefaultTiming().PollInterval
	}
	return d
}

// Registry returns the detector's processed-element registry.
func (d *Detector) Registry() *Registry { return d.registry }

// Run starts all triggers and blocks until ctx is done or a trigger fails.
// It returns after every handed-off run has finished.
func (d *Detector) Run(ctx context.Context) error {
	var batches <-chan dom.Batch
	if d.mutations != nil {
		var err error
		if batches, err = d.mutations.Mutations(ctx); err != nil {
			return err
		}
	}

	d.logger.Info("Auto-detection active",
		zap.Bool("observer", batches != nil),
		zap.Duration("poll_interval", d.timing.PollInterval),
	)

	g, gctx := errgroup.WithContext(ctx)
	if batches != nil {
		g.Go(func() error { return d.observe(gctx, batches) })
	}
	g.Go(func() error { return d.poll(gctx) })
	g.Go(func() error { return d.initial(gctx) })

	err := g.Wait()
	d.runs.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (d *Detector) observe(ctx context.Context, batches <-chan dom.Batch) error {
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-batches:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrMutationsClosed
			}
			if b.DocumentReplaced {
				d.logger.Debug("Document replaced, resetting registry", zap.Int("processed", d.registry.Len()))
				d.registry.Reset()
			}
			if !d.gate.Enabled() {
				continue
			}
			if time.Since(last) < d.timing.Debounce {
				continue
			}
			if d.detect(ctx, TriggerObserver, d.timing.HandoffDelay) {
				last = time.Now()
			}
		}
	}
}

func (d *Detector) poll(ctx context.Context) error {
	ticker := time.NewTicker(d.timing.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if d.gate.Enabled() {
				d.detect(ctx, TriggerPoll, 0)
			}
		}
	}
}

func (d *Detector) initial(ctx context.Context) error {
	timer := time.NewTimer(d.timing.InitialDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	if d.gate.Enabled() {
		d.detect(ctx, TriggerInitial, 0)
	}
	return nil
}

// detect locates in every frame and hands off each element not seen before.
// The registry is updated before the run starts so concurrent triggers
// cannot hand off the same element twice.
func (d *Detector) detect(ctx context.Context, trigger Trigger, delay time.Duration) bool {
	docs, err := d.frames.Documents(ctx)
	if err != nil {
		d.logger.Debug("Listing frames failed", zap.String("trigger", string(trigger)), zap.Error(err))
		return false
	}

	found := false
	for _, doc := range docs {
		res := d.locator.Locate(ctx, doc)
		if !res.Found() {
			continue
		}
		if !d.registry.Add(res.Element.ID()) {
			continue
		}
		found = true
		d.logger.Info("Input detected",
			zap.String("trigger", string(trigger)),
			zap.String("frame", doc.URL()),
			zap.Int("confidence", res.Confidence),
			zap.String("rule", res.Rule),
		)
		d.handoff(ctx, trigger, doc, res, delay)
	}
	return found
}

func (d *Detector) handoff(ctx context.Context, trigger Trigger, doc dom.Document, res locate.Result, delay time.Duration) {
	d.runs.Add(1)
	go func() {
		defer d.runs.Done()
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		out := d.runner.Run(ctx, doc, res.Element)
		if d.onResult != nil {
			d.onResult(Detection{
				Trigger:    trigger,
				Frame:      doc.URL(),
				Element:    res.Element.ID(),
				Confidence: res.Confidence,
				Rule:       res.Rule,
				Outcome:    out,
			})
		}
	}()
}
