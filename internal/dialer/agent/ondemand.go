package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grez-lucas/dialer-helper/internal/dialer/countries"
	"github.com/grez-lucas/dialer-helper/internal/dialer/detect"
	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
	"github.com/grez-lucas/dialer-helper/internal/dialer/fill"
	"github.com/grez-lucas/dialer-helper/internal/dialer/locate"
)

const fallbackLabel = "fallback combobox"

// OnDemandTiming holds the delays of a user-requested fill.
type OnDemandTiming struct {
	// ClearDelay separates clearing the input from writing the country.
	ClearDelay time.Duration
	// DropdownDelay is waited before resolving the option list.
	DropdownDelay time.Duration
}

func DefaultOnDemandTiming() OnDemandTiming {
	return OnDemandTiming{
		ClearDelay:    100 * time.Millisecond,
		DropdownDelay: 500 * time.Millisecond,
	}
}

// FrameResult reports what a user-requested fill did in one frame.
type FrameResult struct {
	Found    bool   `json:"found"`
	Frame    string `json:"frame"`
	Selector string `json:"selector,omitempty"`
	Method   string `json:"method,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Filler performs user-requested fills in every frame at once, with a wider
// selector net than auto-detection.
type Filler struct {
	frames    dom.FrameSource
	selectors []string
	injector  *fill.Injector
	resolver  *fill.Resolver
	presenter fill.Presenter
	registry  *detect.Registry
	dialCode  func() string
	timing    OnDemandTiming
	logger    *zap.Logger
}

func (f *Filler) Fill(ctx context.Context, country string) ([]FrameResult, error) {
	country = fill.Sanitize(country)
	if !fill.IsValidCountryName(country) {
		return nil, &fill.FillError{Operation: "FillOnDemand", Cause: fill.ErrValidationFailure, Details: fmt.Sprintf("%q", country)}
	}

	docs, err := f.frames.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	f.logger.Info("Filling on demand", zap.String("country", country), zap.Int("frames", len(docs)))

	results := make([]FrameResult, len(docs))
	var g errgroup.Group
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = f.fillFrame(ctx, doc, country)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Found && r.Error == "" {
			f.showSuccess(ctx, country)
			break
		}
	}
	return results, nil
}

func (f *Filler) fillFrame(ctx context.Context, doc dom.Document, country string) FrameResult {
	res := FrameResult{Frame: doc.URL()}
	log := f.logger.With(zap.String("frame", doc.URL()))

	el, selector := f.find(ctx, doc)
	if el == nil {
		log.Debug("Input not found in frame")
		return res
	}
	res.Found = true
	res.Selector = selector
	log.Info("Found input", zap.String("selector", selector))

	if f.registry != nil {
		// Keep the triggers from refilling what the user just chose.
		f.registry.Add(el.ID())
	}

	if err := f.write(ctx, el, country); err != nil {
		log.Warn("Fill failed", zap.Error(err))
		res.Found = false
		res.Error = err.Error()
		return res
	}

	if err := sleep(ctx, f.timing.DropdownDelay); err != nil {
		res.Error = err.Error()
		return res
	}
	r := f.resolver.Resolve(ctx, doc, el, country)
	res.Method = string(r.Method)
	return res
}

// find tries each selector in order and keeps the first match that looks
// like a country input; failing that, any sizable combobox whose
// placeholder mentions a country or region.
func (f *Filler) find(ctx context.Context, doc dom.Document) (dom.Element, string) {
	for _, sel := range f.selectors {
		els, err := doc.QueryAll(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if locate.LooksLikeCountryInput(ctx, el) {
				return el, sel
			}
		}
	}

	combos, err := doc.QueryAll(ctx, locate.SelectorCombobox)
	if err != nil {
		return nil, ""
	}
	for _, el := range combos {
		rect, err := el.Rect(ctx)
		if err != nil || rect.Width <= 50 || rect.Height <= 20 {
			continue
		}
		ph, _, err := el.Attribute(ctx, "placeholder")
		if err != nil {
			continue
		}
		ph = strings.ToLower(ph)
		if strings.Contains(ph, "country") || strings.Contains(ph, "region") {
			return el, fallbackLabel
		}
	}
	return nil, ""
}

// write opens the control, clears it and then injects the country.
func (f *Filler) write(ctx context.Context, el dom.Element, country string) error {
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	if err := el.Focus(ctx); err != nil {
		return fmt.Errorf("focus: %w", err)
	}
	if err := el.SetNativeValue(ctx, ""); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := el.Dispatch(ctx, dom.EventInput); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := sleep(ctx, f.timing.ClearDelay); err != nil {
		return err
	}
	return f.injector.Inject(ctx, el, country)
}

func (f *Filler) showSuccess(ctx context.Context, country string) {
	if f.presenter == nil {
		return
	}
	dial := ""
	if c, ok := countries.Lookup(country); ok {
		dial = c.DialCode
	} else if f.dialCode != nil {
		dial = f.dialCode()
	}
	if err := f.presenter.Success(ctx, country, dial); err != nil {
		f.logger.Debug("Feedback not shown", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
