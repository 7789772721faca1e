// Package locate finds the dialer's country/region input in a frame document
// by ranking several selector strategies by confidence.
package locate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

// Result is the outcome of one Locate call. It is never cached.
type Result struct {
	Element    dom.Element
	Confidence int
	Rule       string
	Rect       dom.Rect
}

// Found reports whether an element was located.
func (r Result) Found() bool { return r.Element != nil }

// Locator evaluates a fixed rule table. It holds no per-call state and is
// safe for concurrent use.
type Locator struct {
	rules  []Rule
	logger *zap.Logger
}

// NewLocator returns a Locator over rules, in the given evaluation order.
func NewLocator(rules []Rule, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		rules:  append([]Rule(nil), rules...),
		logger: logger,
	}
}

// Rules returns a copy of the rule table.
func (l *Locator) Rules() []Rule {
	return append([]Rule(nil), l.rules...)
}

// Locate returns the visible match with the highest confidence. Every rule is
// evaluated; ties go to the rule evaluated first and, within a rule, to the
// first element in document order.
func (l *Locator) Locate(ctx context.Context, doc dom.Document) Result {
	var best Result

	for _, rule := range l.rules {
		if ctx.Err() != nil {
			return Result{}
		}

		matches, err := doc.QueryAll(ctx, rule.Pattern)
		if err != nil {
			l.logger.Debug("Selector error", zap.String("rule", rule.Label), zap.Error(err))
			continue
		}

		for _, el := range matches {
			if best.Found() && rule.Confidence <= best.Confidence {
				break
			}
			rect, err := el.Rect(ctx)
			if err != nil || !rect.Visible() {
				continue
			}
			best = Result{Element: el, Confidence: rule.Confidence, Rule: rule.Label, Rect: rect}
			break
		}
	}

	if best.Found() {
		l.logger.Debug("Located country input",
			zap.String("frame", doc.URL()),
			zap.String("rule", best.Rule),
			zap.Int("confidence", best.Confidence))
	}
	return best
}

// LooksLikeCountryInput applies the keyword heuristic used for on-demand
// fills, where selectors alone are too broad.
func LooksLikeCountryInput(ctx context.Context, el dom.Element) bool {
	for _, name := range []string{"placeholder", "aria-label"} {
		v, _, err := el.Attribute(ctx, name)
		if err != nil {
			return false
		}
		v = strings.ToLower(v)
		if strings.Contains(v, "country") {
			return true
		}
		if name == "aria-label" && strings.Contains(v, "region") {
			return true
		}
	}
	id, _, err := el.Attribute(ctx, "id")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(id), "region")
}
