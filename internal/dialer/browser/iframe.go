// Package browser implements the dialer's DOM capabilities with Rod.
package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

// maxFrameDepth bounds iframe recursion on pathological pages.
const maxFrameDepth = 8

// WaitForIFrames recursively waits for DOM stability on visible iframes. It
// settles a page before a one-off capture, where hidden frames hold nothing
// worth waiting for. Frames walks hidden ones too because the widget may be
// laid out after detection starts.
// Errors are ignored; a frame that never settles is still searched.
func WaitForIFrames(page *rod.Page, stable time.Duration) {
	var iframes rod.Elements
	err := inFrame(func() (err error) {
		_ = page.WaitDOMStable(stable, 0)
		iframes, err = page.Elements("iframe")
		return err
	})
	if err != nil {
		return
	}

	for _, iframe := range iframes {
		visible, _ := iframe.Visible()
		if !visible {
			continue
		}

		frame, err := frameOf(page.Browser(), iframe)
		if err != nil || frame == nil {
			continue
		}

		WaitForIFrames(frame, stable)
	}
}

// Frames enumerates the documents of a tab: the root page followed by every
// nested iframe, depth first. Cross-origin iframes that the browser runs out
// of process are reached as their own targets.
type Frames struct {
	root   *rod.Page
	logger *zap.Logger
}

var _ dom.FrameSource = (*Frames)(nil)

func NewFrames(root *rod.Page, logger *zap.Logger) *Frames {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frames{root: root, logger: logger}
}

func (f *Frames) Documents(ctx context.Context) ([]dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs []dom.Document
	f.walk(ctx, f.root, 0, &docs)
	return docs, nil
}

func (f *Frames) walk(ctx context.Context, page *rod.Page, depth int, docs *[]dom.Document) {
	page = page.Context(ctx)
	*docs = append(*docs, NewDocument(page))
	if depth >= maxFrameDepth {
		return
	}

	var iframes rod.Elements
	err := inFrame(func() (err error) {
		iframes, err = page.Elements("iframe")
		return err
	})
	if err != nil {
		f.logger.Debug("Iframe query failed", zap.Error(err))
		return
	}

	for _, iframe := range iframes {
		frame, err := frameOf(f.root.Browser(), iframe)
		if err != nil {
			f.logger.Debug("Cannot access frame", zap.Error(err))
			continue
		}
		if frame == nil {
			continue
		}
		f.walk(ctx, frame, depth+1, docs)
	}
}

// frameOf resolves an iframe element to a page. Same-process frames become a
// frame context of the owning page; out-of-process frames are attached as
// targets. A nil page means the frame has no document yet.
func frameOf(b *rod.Browser, iframe *rod.Element) (*rod.Page, error) {
	node, err := iframe.Describe(1, true)
	if err != nil {
		return nil, err
	}
	if node.ContentDocument != nil {
		return iframe.Frame()
	}
	if node.FrameID == "" {
		return nil, nil
	}
	return remoteFrame(b, node.FrameID)
}

// remoteFrame attaches to an out-of-process frame. Chromium gives such a
// frame a target whose id equals the frame id.
func remoteFrame(b *rod.Browser, frameID proto.PageFrameID) (*rod.Page, error) {
	if b == nil {
		return nil, nil
	}
	targets, err := proto.TargetGetTargets{}.Call(b)
	if err != nil {
		return nil, err
	}
	id := proto.TargetTargetID(frameID)
	for _, info := range targets.TargetInfos {
		if info.TargetID == id && info.Type == targetTypeIframe {
			return b.PageFromTarget(id)
		}
	}
	// Same-process frame still loading.
	return nil, nil
}

const targetTypeIframe proto.TargetTargetInfoType = "iframe"
