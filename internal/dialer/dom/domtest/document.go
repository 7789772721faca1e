// Package domtest provides an in-memory dom.Document backed by goquery so
// the dialer core can be exercised without a browser.
//
// Layout is faked through attributes: an element's box is taken from
// data-width / data-height (default 160x24), and elements carrying the
// hidden attribute have an empty box.
package domtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

const (
	defaultWidth  = 160
	defaultHeight = 24
)

// Document is a mutable fake frame document. It is safe for concurrent use.
type Document struct {
	mu       sync.Mutex
	url      string
	doc      *goquery.Document
	elements map[*html.Node]*Element
	nextID   int
	queries  int
	subs     []chan dom.Batch
}

var (
	_ dom.Document       = (*Document)(nil)
	_ dom.MutationSource = (*Document)(nil)
	_ dom.FrameSource    = Frames(nil)
)

// New parses markup into a document served at url.
func New(url, markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("domtest: parse markup: %w", err)
	}
	return &Document{
		url:      url,
		doc:      doc,
		elements: make(map[*html.Node]*Element),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(url, markup string) *Document {
	d, err := New(url, markup)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Document) URL() string { return d.url }

// QueryAll implements dom.Document.
func (d *Document) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("domtest: invalid selector %q: %w", selector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries++
	return d.collect(d.doc.FindMatcher(sel)), nil
}

// Queries returns how many document-level queries have been served.
func (d *Document) Queries() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queries
}

// Find returns the fake element for the first match of selector, or nil.
func (d *Document) Find(selector string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.doc.Find(selector).First()
	if s.Length() == 0 {
		return nil
	}
	return d.element(s.Nodes[0])
}

// Append inserts markup as the last children of every match of
// parentSelector and notifies mutation subscribers.
func (d *Document) Append(parentSelector, markup string) {
	d.mu.Lock()
	d.doc.Find(parentSelector).AppendHtml(markup)
	d.mu.Unlock()
	d.notify(dom.Batch{Count: 1})
}

// Remove detaches every match of selector and notifies subscribers.
func (d *Document) Remove(selector string) {
	d.mu.Lock()
	d.doc.Find(selector).Remove()
	d.mu.Unlock()
	d.notify(dom.Batch{Count: 1})
}

// SetAttr sets an attribute on every match of selector and notifies
// subscribers.
func (d *Document) SetAttr(selector, name, value string) {
	d.mu.Lock()
	d.doc.Find(selector).SetAttr(name, value)
	d.mu.Unlock()
	d.notify(dom.Batch{Count: 1})
}

// Replace swaps the whole document, as a navigation would. Elements handed
// out before keep their identities; new nodes get fresh ones.
func (d *Document) Replace(markup string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("domtest: parse markup: %w", err)
	}
	d.mu.Lock()
	d.doc = doc
	d.elements = make(map[*html.Node]*Element)
	d.mu.Unlock()
	d.notify(dom.Batch{Count: 1, DocumentReplaced: true})
	return nil
}

// Mutations implements dom.MutationSource.
func (d *Document) Mutations(ctx context.Context) (<-chan dom.Batch, error) {
	ch := make(chan dom.Batch, 16)
	d.mu.Lock()
	d.subs = append(d.subs, ch)
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, sub := range d.subs {
			if sub == ch {
				d.subs = append(d.subs[:i], d.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (d *Document) notify(b dom.Batch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sub := range d.subs {
		select {
		case sub <- b:
		default:
		}
	}
}

// collect must be called with d.mu held.
func (d *Document) collect(s *goquery.Selection) []dom.Element {
	out := make([]dom.Element, 0, s.Length())
	for _, n := range s.Nodes {
		out = append(out, d.element(n))
	}
	return out
}

// element must be called with d.mu held.
func (d *Document) element(n *html.Node) *Element {
	if el, ok := d.elements[n]; ok {
		return el
	}
	d.nextID++
	el := &Element{
		doc:  d,
		node: n,
		id:   dom.NodeID(fmt.Sprintf("%s#n%d", d.url, d.nextID)),
	}
	if v, ok := attr(n, "value"); ok {
		el.value = v
	}
	d.elements[n] = el
	return el
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Frames is a fixed dom.FrameSource over fake documents.
type Frames []*Document

func (f Frames) Documents(ctx context.Context) ([]dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs := make([]dom.Document, len(f))
	for i, d := range f {
		docs[i] = d
	}
	return docs, nil
}
