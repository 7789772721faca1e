// Package dom defines the DOM capabilities the dialer core relies on. The
// browser package implements them over CDP; domtest implements them over an
// in-memory document for headless tests.
package dom

import (
	"context"
	"errors"
)

// ErrSetterUnavailable is returned by SetNativeValue when the platform value
// setter for the element's prototype cannot be obtained.
var ErrSetterUnavailable = errors.New("native value setter unavailable")

// Standard notification events dispatched after a value change.
const (
	EventInput  = "input"
	EventChange = "change"
)

// Key is a named keyboard key.
type Key string

const (
	KeyArrowDown Key = "ArrowDown"
	KeyEnter     Key = "Enter"
)

// Rect is an element's rendered bounding box.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Visible reports whether the box has been laid out with a non-empty area.
func (r Rect) Visible() bool {
	return r.Width > 0 && r.Height > 0
}

// NodeID identifies a live DOM node. It is stable for the lifetime of the
// document the node belongs to and never reused for a different node.
type NodeID string

// Element is a handle to a live DOM element.
type Element interface {
	ID() NodeID
	Rect(ctx context.Context) (Rect, error)
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Value(ctx context.Context) (string, error)

	// SetNativeValue assigns value through the platform's own value setter,
	// bypassing any framework-level property override on the instance.
	SetNativeValue(ctx context.Context, value string) error

	// Dispatch fires one bubbling event per type, in order.
	Dispatch(ctx context.Context, eventTypes ...string) error

	Click(ctx context.Context) error
	Focus(ctx context.Context) error
	Blur(ctx context.Context) error
	Press(ctx context.Context, key Key) error

	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Document is one frame's document.
type Document interface {
	URL() string

	// QueryAll returns every element matching selector in document order.
	// A malformed selector yields an error, never a panic.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// FrameSource enumerates the frame documents currently reachable in a tab,
// the top-level document first.
type FrameSource interface {
	Documents(ctx context.Context) ([]Document, error)
}

// Batch is one coalesced delivery of subtree mutations.
type Batch struct {
	Count int

	// DocumentReplaced is set when the document itself was swapped out,
	// e.g. by a navigation. Node identities from before are void.
	DocumentReplaced bool
}

// MutationSource delivers mutation batches until ctx is done. The returned
// channel is closed when the subscription ends.
type MutationSource interface {
	Mutations(ctx context.Context) (<-chan Batch, error)
}
