package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

// Document is a frame's document reached over CDP.
type Document struct {
	page *rod.Page
	url  string
}

var _ dom.Document = (*Document)(nil)

// NewDocument wraps a page or frame context.
func NewDocument(page *rod.Page) *Document {
	d := &Document{page: page}
	_ = inFrame(func() error {
		res, err := page.Eval(locationJS)
		if err == nil {
			d.url = res.Value.Str()
		}
		return err
	})
	return d
}

// inFrame runs fn against a frame context. rod dereferences the frame's
// content document without a nil check, which panics when the frame has
// navigated to another process since it was resolved; that panic becomes an
// error here.
func inFrame(fn func() error) error {
	var err error
	if perr := rod.Try(func() { err = fn() }); perr != nil {
		return perr
	}
	return err
}

// Page returns the underlying frame context.
func (d *Document) Page() *rod.Page { return d.page }

func (d *Document) URL() string { return d.url }

func (d *Document) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	var els rod.Elements
	err := inFrame(func() (err error) {
		els, err = d.page.Context(ctx).Elements(selector)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrap(ctx, d.page.FrameID, els)
}

func wrap(ctx context.Context, frameID proto.PageFrameID, els rod.Elements) ([]dom.Element, error) {
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		node, err := el.Context(ctx).Describe(0, false)
		if err != nil {
			// Detached between query and describe.
			continue
		}
		out = append(out, &Element{
			el:      el,
			frameID: frameID,
			id:      dom.NodeID(fmt.Sprintf("%s/%d", frameID, node.BackendNodeID)),
		})
	}
	return out, nil
}

// Element is a live element handle. Its identity is the CDP backend node id,
// which is stable for the node's lifetime and never reused within a frame.
type Element struct {
	el      *rod.Element
	frameID proto.PageFrameID
	id      dom.NodeID
}

var _ dom.Element = (*Element)(nil)

func (e *Element) ID() dom.NodeID { return e.id }

func (e *Element) Rect(ctx context.Context) (dom.Rect, error) {
	res, err := e.el.Context(ctx).Eval(rectJS)
	if err != nil {
		return dom.Rect{}, err
	}
	return dom.Rect{
		X:      res.Value.Get("x").Num(),
		Y:      res.Value.Get("y").Num(),
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(textJS)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) Value(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(valueJS)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *Element) SetNativeValue(ctx context.Context, value string) error {
	res, err := e.el.Context(ctx).Eval(nativeSetValueJS, value)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return dom.ErrSetterUnavailable
	}
	return nil
}

func (e *Element) Dispatch(ctx context.Context, eventTypes ...string) error {
	_, err := e.el.Context(ctx).Eval(dispatchJS, eventTypes)
	return err
}

func (e *Element) Click(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(clickJS)
	return err
}

func (e *Element) Focus(ctx context.Context) error {
	return e.el.Context(ctx).Focus()
}

func (e *Element) Blur(ctx context.Context) error {
	return e.el.Context(ctx).Blur()
}

func (e *Element) Press(ctx context.Context, key dom.Key) error {
	return PressKey(e.el.Context(ctx), key)
}

func (e *Element) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	var els rod.Elements
	err := inFrame(func() (err error) {
		els, err = e.el.Context(ctx).Elements(selector)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrap(ctx, e.frameID, els)
}
