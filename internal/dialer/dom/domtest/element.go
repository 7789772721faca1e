package domtest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

// Element is a fake element. Interactions are recorded for assertions.
type Element struct {
	doc  *Document
	node *html.Node
	id   dom.NodeID

	value          string
	events         []string
	clicks         int
	focuses        int
	blurs          int
	keys           []dom.Key
	setterFailures int
	noSetter       bool
	onClick        func(*Element)
	onInput        func(*Element, string)
}

var _ dom.Element = (*Element)(nil)

func (e *Element) ID() dom.NodeID { return e.id }

func (e *Element) Rect(ctx context.Context) (dom.Rect, error) {
	if err := ctx.Err(); err != nil {
		return dom.Rect{}, err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	if _, hidden := attr(e.node, "hidden"); hidden {
		return dom.Rect{}, nil
	}
	return dom.Rect{
		Width:  dimension(e.node, "data-width", defaultWidth),
		Height: dimension(e.node, "data-height", defaultHeight),
	}, nil
}

func dimension(n *html.Node, name string, fallback float64) float64 {
	raw, ok := attr(n, name)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.doc.FindNodes(e.node).Text(), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, ok := attr(e.node, name)
	return v, ok, nil
}

func (e *Element) Value(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.value, nil
}

func (e *Element) SetNativeValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.mu.Lock()
	if e.noSetter {
		e.doc.mu.Unlock()
		return dom.ErrSetterUnavailable
	}
	if e.setterFailures > 0 {
		e.setterFailures--
		e.doc.mu.Unlock()
		return fmt.Errorf("domtest: %w", dom.ErrSetterUnavailable)
	}
	e.value = value
	hook := e.onInput
	e.doc.mu.Unlock()

	if hook != nil {
		hook(e, value)
	}
	return nil
}

func (e *Element) Dispatch(ctx context.Context, eventTypes ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.events = append(e.events, eventTypes...)
	return nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.mu.Lock()
	e.clicks++
	hook := e.onClick
	e.doc.mu.Unlock()

	if hook != nil {
		hook(e)
	}
	return nil
}

func (e *Element) Focus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.focuses++
	return nil
}

func (e *Element) Blur(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.blurs++
	return nil
}

func (e *Element) Press(ctx context.Context, key dom.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.keys = append(e.keys, key)
	return nil
}

func (e *Element) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("domtest: invalid selector %q: %w", selector, err)
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.collect(e.doc.doc.FindNodes(e.node).FindMatcher(sel)), nil
}

// FailSetter makes the next n SetNativeValue calls fail.
func (e *Element) FailSetter(n int) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.setterFailures = n
}

// DisableSetter makes every SetNativeValue call fail.
func (e *Element) DisableSetter() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.noSetter = true
}

// OnClick registers a hook run after each click.
func (e *Element) OnClick(fn func(*Element)) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.onClick = fn
}

// OnInput registers a hook run after each successful native value write,
// standing in for a framework reacting to the new value.
func (e *Element) OnInput(fn func(*Element, string)) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.onInput = fn
}

// Events returns the dispatched event types in order.
func (e *Element) Events() []string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return append([]string(nil), e.events...)
}

// Keys returns the pressed keys in order.
func (e *Element) Keys() []dom.Key {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return append([]dom.Key(nil), e.keys...)
}

func (e *Element) Clicks() int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.clicks
}

func (e *Element) Focuses() int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.focuses
}

func (e *Element) Blurs() int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.blurs
}

// CurrentValue returns the value without a context.
func (e *Element) CurrentValue() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.value
}
