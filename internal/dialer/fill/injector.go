// Package fill applies the configured country to a located input: value
// injection, dropdown resolution and the retrying run that drives both.
package fill

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

// Injector writes values into framework-managed inputs.
type Injector struct {
	logger *zap.Logger
}

func NewInjector(logger *zap.Logger) *Injector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Injector{logger: logger}
}

// Inject sanitizes value, writes it through the native value setter and
// fires bubbling input and change events so the owning component sees a
// user edit.
func (i *Injector) Inject(ctx context.Context, el dom.Element, value string) error {
	v := Sanitize(value)
	if v == "" {
		return &FillError{Operation: "Inject", Cause: ErrValidationFailure, Details: "empty value after sanitization"}
	}
	return i.write(ctx, el, v)
}

// write skips sanitization; it is also used for clearing and dial codes.
func (i *Injector) write(ctx context.Context, el dom.Element, v string) error {
	if err := el.SetNativeValue(ctx, v); err != nil {
		cause := err
		if errors.Is(err, dom.ErrSetterUnavailable) {
			cause = ErrInjectionUnsupported
		}
		return &FillError{Operation: "Inject", Cause: cause, Details: err.Error()}
	}
	if err := el.Dispatch(ctx, dom.EventInput, dom.EventChange); err != nil {
		return &FillError{Operation: "Inject", Cause: err, Details: "dispatch input/change"}
	}
	i.logger.Debug("Value injected", zap.String("element", string(el.ID())), zap.String("value", v))
	return nil
}
