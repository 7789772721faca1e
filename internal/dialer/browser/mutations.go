package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

// Mutations streams structural DOM changes of a page as coalesced batches.
// Same-process iframes report through the page itself; out-of-process
// iframes are auto-attached and watched on their own sessions.
type Mutations struct {
	page   *rod.Page
	logger *zap.Logger
}

var _ dom.MutationSource = (*Mutations)(nil)

func NewMutations(page *rod.Page, logger *zap.Logger) *Mutations {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutations{page: page, logger: logger}
}

// Mutations enables the DOM domain and starts forwarding events until ctx is
// done. The channel is closed after the last batch.
//
// Only child list changes count. Attribute churn such as focus styling never
// adds an input, so it does not start a locate pass.
func (m *Mutations) Mutations(ctx context.Context) (<-chan dom.Batch, error) {
	acc := newAccumulator()
	if err := m.watch(ctx, m.page, true, acc); err != nil {
		return nil, err
	}

	out := make(chan dom.Batch)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-acc.signal:
			}

			b := acc.take()
			if b.Count == 0 {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// watch subscribes to one session's DOM events and attaches to its
// out-of-process child frames, recursively, until ctx is done. Only the root
// session reports document replacement; a frame navigating does not void
// the tab's node identities.
//
// CDP only reports child node changes for nodes the client has already
// requested, so the whole tree is requested up front and again after every
// document replacement.
func (m *Mutations) watch(ctx context.Context, page *rod.Page, root bool, acc *accumulator) error {
	page = page.Context(ctx)

	if err := (proto.DOMEnable{}).Call(page); err != nil {
		return fmt.Errorf("enable DOM domain: %w", err)
	}
	if err := requestTree(page); err != nil {
		return err
	}

	children := newChildSet()
	wait := page.EachEvent(
		func(*proto.DOMChildNodeInserted) { acc.poke(false) },
		func(*proto.DOMChildNodeRemoved) { acc.poke(false) },
		func(*proto.DOMChildNodeCountUpdated) { acc.poke(false) },
		func(*proto.DOMDocumentUpdated) {
			acc.poke(root)
			if err := requestTree(page); err != nil {
				m.logger.Debug("Re-requesting DOM tree failed", zap.Error(err))
			}
		},
		func(e *proto.TargetAttachedToTarget) {
			if e.TargetInfo == nil || e.TargetInfo.Type != targetTypeIframe {
				return
			}
			childCtx, cancel := context.WithCancel(ctx)
			children.add(e.SessionID, cancel)
			go m.watchRemote(childCtx, page.Browser(), e.TargetInfo, acc)
		},
		func(e *proto.TargetDetachedFromTarget) { children.cancel(e.SessionID) },
	)
	go func() {
		wait()
		children.cancelAll()
	}()

	// Existing children are reported right away, new ones as they appear.
	err := proto.TargetSetAutoAttach{AutoAttach: true, Flatten: true}.Call(page)
	if err != nil {
		m.logger.Debug("Auto-attach unavailable; out-of-process frames not observed", zap.Error(err))
	}
	return nil
}

func (m *Mutations) watchRemote(ctx context.Context, b *rod.Browser, info *proto.TargetTargetInfo, acc *accumulator) {
	page, err := b.PageFromTarget(info.TargetID)
	if err != nil {
		m.logger.Debug("Attaching to frame failed", zap.String("url", info.URL), zap.Error(err))
		return
	}
	if err := m.watch(ctx, page, false, acc); err != nil {
		m.logger.Debug("Watching frame failed", zap.String("url", info.URL), zap.Error(err))
		return
	}
	m.logger.Debug("Watching out-of-process frame", zap.String("url", info.URL))
	// The new frame's content counts as inserted nodes for the locator.
	acc.poke(false)
}

func requestTree(page *rod.Page) error {
	depth := -1
	_, err := proto.DOMGetDocument{Depth: &depth, Pierce: true}.Call(page)
	if err != nil {
		return fmt.Errorf("request DOM tree: %w", err)
	}
	return nil
}

// accumulator counts events from every watched session between deliveries.
type accumulator struct {
	mu       sync.Mutex
	pending  int
	replaced bool
	signal   chan struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{signal: make(chan struct{}, 1)}
}

func (a *accumulator) poke(replace bool) {
	a.mu.Lock()
	a.pending++
	a.replaced = a.replaced || replace
	a.mu.Unlock()
	select {
	case a.signal <- struct{}{}:
	default:
	}
}

func (a *accumulator) take() dom.Batch {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := dom.Batch{Count: a.pending, DocumentReplaced: a.replaced}
	a.pending, a.replaced = 0, false
	return b
}

// childSet tracks the watchers of auto-attached frames by session.
type childSet struct {
	mu      sync.Mutex
	cancels map[proto.TargetSessionID]context.CancelFunc
}

func newChildSet() *childSet {
	return &childSet{cancels: make(map[proto.TargetSessionID]context.CancelFunc)}
}

func (c *childSet) add(id proto.TargetSessionID, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.cancels[id]; ok {
		prev()
	}
	c.cancels[id] = cancel
}

func (c *childSet) cancel(id proto.TargetSessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.cancels[id]; ok {
		cancel()
		delete(c.cancels, id)
	}
}

func (c *childSet) cancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cancel := range c.cancels {
		cancel()
		delete(c.cancels, id)
	}
}
