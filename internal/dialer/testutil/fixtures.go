// Package testutil holds fixtures and recording doubles shared by the
// dialer package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom/domtest"
)

// LoadFixture reads an HTML fixture from testutil/testdata/fixtures.
func LoadFixture(t testing.TB, name string) string {
	t.Helper()

	// Get path relative to this file
	_, filename, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(filename), "testdata", "fixtures", name+".html")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", name, err)
	}

	return string(data)
}

// FixtureDocument loads a fixture into a fake document served at url.
func FixtureDocument(t testing.TB, name, url string) *domtest.Document {
	t.Helper()

	doc, err := domtest.New(url, LoadFixture(t, name))
	if err != nil {
		t.Fatalf("Failed to parse fixture %s: %v", name, err)
	}
	return doc
}

// SuccessCall is one recorded success panel.
type SuccessCall struct {
	Country  string
	DialCode string
}

// Presenter records feedback calls. Err, when set, is returned from every
// call, as a blocked top-level document would.
type Presenter struct {
	mu        sync.Mutex
	successes []SuccessCall
	failures  int
	Err       error
}

func (p *Presenter) Success(_ context.Context, country, dialCode string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.successes = append(p.successes, SuccessCall{Country: country, DialCode: dialCode})
	return p.Err
}

func (p *Presenter) Failure(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures++
	return p.Err
}

func (p *Presenter) Successes() []SuccessCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SuccessCall(nil), p.successes...)
}

func (p *Presenter) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}
