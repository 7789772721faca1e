package fill

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

// DialCodeFiller pre-fills the national number input with the dial code.
type DialCodeFiller struct {
	selector string
	injector *Injector
	logger   *zap.Logger
}

func NewDialCodeFiller(selector string, logger *zap.Logger) *DialCodeFiller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DialCodeFiller{selector: selector, injector: NewInjector(logger), logger: logger}
}

// Fill writes dialCode into the phone input when the input exists and is
// still empty. It reports whether a value was written.
func (f *DialCodeFiller) Fill(ctx context.Context, doc dom.Document, dialCode string) (bool, error) {
	dialCode = Sanitize(dialCode)
	if dialCode == "" {
		return false, nil
	}

	inputs, err := doc.QueryAll(ctx, f.selector)
	if err != nil {
		return false, err
	}
	if len(inputs) == 0 {
		f.logger.Debug("Phone number input not found")
		return false, nil
	}
	phone := inputs[0]

	current, err := phone.Value(ctx)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(current) != "" {
		f.logger.Debug("Phone input already has value, skipping dial code fill")
		return false, nil
	}

	if err := f.injector.write(ctx, phone, dialCode); err != nil {
		return false, err
	}
	f.logger.Info("Dial code filled", zap.String("dial_code", dialCode))
	return true, nil
}
