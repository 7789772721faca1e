package fill

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
	"github.com/grez-lucas/dialer-helper/internal/dialer/locate"
)

// Method records how a dropdown was resolved.
type Method string

const (
	MethodOptionClick Method = "option-click"
	MethodKeyboard    Method = "keyboard"
	MethodNoMatch     Method = "no-match"
)

// Resolution is the outcome of one Resolve call.
type Resolution struct {
	// Success is false only when a listbox was shown and no option matched.
	// The keyboard path cannot confirm a selection and reports success.
	Success bool
	Method  Method
	Option  string
}

// Confirmed reports whether an option was actually clicked.
func (r Resolution) Confirmed() bool { return r.Method == MethodOptionClick }

// Resolver selects the injected value from the option list the component
// renders after input.
type Resolver struct {
	keyStepDelay time.Duration
	logger       *zap.Logger
}

func NewResolver(keyStepDelay time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{keyStepDelay: keyStepDelay, logger: logger}
}

// Resolve clicks the first option whose text contains value, ignoring case.
// Without a listbox it presses ArrowDown then Enter. The input is blurred
// whichever path is taken.
func (r *Resolver) Resolve(ctx context.Context, doc dom.Document, el dom.Element, value string) Resolution {
	defer func() {
		if err := el.Blur(ctx); err != nil {
			r.logger.Debug("Blur failed", zap.Error(err))
		}
	}()

	listboxes, err := doc.QueryAll(ctx, locate.SelectorListbox)
	if err != nil {
		r.logger.Debug("Listbox query failed", zap.Error(err))
	}
	if len(listboxes) == 0 {
		r.logger.Debug("No listbox found, using keyboard selection")
		r.pressKeys(ctx, el)
		return Resolution{Success: true, Method: MethodKeyboard}
	}

	options, err := listboxes[0].QueryAll(ctx, locate.SelectorOption)
	if err != nil {
		r.logger.Debug("Option query failed", zap.Error(err))
	}
	r.logger.Debug("Found options in dropdown", zap.Int("count", len(options)))

	want := strings.ToLower(value)
	for _, opt := range options {
		text, err := opt.Text(ctx)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(text), want) {
			continue
		}
		if err := opt.Click(ctx); err != nil {
			r.logger.Debug("Option click failed", zap.String("option", text), zap.Error(err))
			return Resolution{Method: MethodNoMatch}
		}
		r.logger.Debug("Clicked option", zap.String("option", text))
		return Resolution{Success: true, Method: MethodOptionClick, Option: strings.TrimSpace(text)}
	}
	return Resolution{Method: MethodNoMatch}
}

func (r *Resolver) pressKeys(ctx context.Context, el dom.Element) {
	if err := el.Press(ctx, dom.KeyArrowDown); err != nil {
		r.logger.Debug("ArrowDown failed", zap.Error(err))
		return
	}
	if err := sleep(ctx, r.keyStepDelay); err != nil {
		return
	}
	if err := el.Press(ctx, dom.KeyEnter); err != nil {
		r.logger.Debug("Enter failed", zap.Error(err))
	}
}

// sleep waits for d or until ctx is done.
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
