package detect

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
	"github.com/grez-lucas/dialer-helper/internal/dialer/dom/domtest"
	"github.com/grez-lucas/dialer-helper/internal/dialer/fill"
	"github.com/grez-lucas/dialer-helper/internal/dialer/locate"
	"github.com/grez-lucas/dialer-helper/internal/dialer/testutil"
	"github.com/grez-lucas/dialer-helper/internal/settings"
)

const (
	shellURL  = "https://contoso.crm.dynamics.com/main.aspx"
	widgetURL = "https://ccaas.contoso.com/widget"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []dom.NodeID
	hold  time.Duration
}

func (r *recordingRunner) Run(ctx context.Context, doc dom.Document, el dom.Element) fill.Outcome {
	r.mu.Lock()
	r.calls = append(r.calls, el.ID())
	r.mu.Unlock()
	if r.hold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(r.hold):
		}
	}
	return fill.Outcome{State: fill.StateSucceeded}
}

func (r *recordingRunner) Calls() []dom.NodeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dom.NodeID(nil), r.calls...)
}

type gate struct{ off atomic.Bool }

func (g *gate) Enabled() bool { return !g.off.Load() }

// fastTiming keeps the poll and initial triggers out of the way unless a
// test sets them.
func fastTiming() Timing {
	return Timing{
		Debounce:     time.Millisecond,
		PollInterval: time.Hour,
		InitialDelay: time.Hour,
		HandoffDelay: time.Millisecond,
	}
}

func newDetector(t *testing.T, frames dom.FrameSource, runner Runner, g Gate, opts ...Option) *Detector {
	t.Helper()
	locator := locate.NewLocator(locate.DefaultRules(), zaptest.NewLogger(t))
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewDetector(frames, locator, runner, g, opts...)
}

// start runs d in the background and returns a stop function that cancels
// it and returns Run's error.
func start(t *testing.T, d *Detector) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("detector did not stop")
			return nil
		}
	}
}

func TestRegistry_AddIsCheckAndSet(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Add("a"))
	assert.False(t, r.Add("a"))
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("b"))
	assert.Equal(t, 1, r.Len())

	r.Reset()
	assert.False(t, r.Has("a"))
	assert.True(t, r.Add("a"))
}

func TestRegistry_ConcurrentAddAdmitsOne(t *testing.T) {
	r := NewRegistry()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Add("same") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestDetector_InitialCheckHandsOffOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := testutil.FixtureDocument(t, "transfer_dialog", widgetURL)
	runner := &recordingRunner{}
	timing := fastTiming()
	timing.InitialDelay = time.Millisecond
	timing.PollInterval = 5 * time.Millisecond

	d := newDetector(t, domtest.Frames{doc}, runner, &gate{}, WithTiming(timing))
	stop := start(t, d)

	require.Eventually(t, func() bool { return len(runner.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	// The poll keeps rediscovering the same node.
	assert.Never(t, func() bool { return len(runner.Calls()) > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, stop())
	input := doc.Find(locate.SelectorRegionComboBoxID)
	assert.Equal(t, []dom.NodeID{input.ID()}, runner.Calls())
	assert.True(t, d.Registry().Has(input.ID()))
}

func TestDetector_DisabledStartsNothing(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := testutil.FixtureDocument(t, "transfer_dialog", widgetURL)
	runner := &recordingRunner{}
	g := &gate{}
	g.off.Store(true)
	timing := fastTiming()
	timing.InitialDelay = time.Millisecond
	timing.PollInterval = 5 * time.Millisecond

	d := newDetector(t, domtest.Frames{doc}, runner, g, WithTiming(timing), WithMutations(doc))
	stop := start(t, d)

	doc.SetAttr("body", "data-tick", "1")
	assert.Never(t, func() bool { return len(runner.Calls()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Zero(t, doc.Queries())

	// Re-enabling lets the next trigger firing through.
	g.off.Store(false)
	require.Eventually(t, func() bool { return len(runner.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, stop())
}

func TestDetector_ObserverFindsInsertedInput(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := testutil.FixtureDocument(t, "shell", shellURL)
	runner := &recordingRunner{}
	d := newDetector(t, domtest.Frames{doc}, runner, &gate{}, WithTiming(fastTiming()), WithMutations(doc))
	stop := start(t, d)

	dialog := testutil.LoadFixture(t, "transfer_dialog")
	appended := false
	require.Eventually(t, func() bool {
		// Keep mutating until the observer has subscribed and reacted.
		if !appended {
			doc.Append("#widget-host", dialog)
			appended = true
		} else {
			doc.SetAttr("#widget-host", "data-tick", time.Now().String())
		}
		return len(runner.Calls()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, stop())
	assert.Len(t, runner.Calls(), 1)
}

func TestDetector_ObserverDebounceWindow(t *testing.T) {
	defer goleak.VerifyNone(t)

	const window = 300 * time.Millisecond
	shell := testutil.FixtureDocument(t, "shell", shellURL)
	widget := testutil.FixtureDocument(t, "shell", widgetURL)
	runner := &recordingRunner{}
	timing := fastTiming()
	timing.Debounce = window
	d := newDetector(t, domtest.Frames{shell, widget}, runner, &gate{}, WithTiming(timing), WithMutations(shell))
	stop := start(t, d)

	dialog := testutil.LoadFixture(t, "transfer_dialog")
	appended := false
	require.Eventually(t, func() bool {
		if !appended {
			shell.Append("#widget-host", dialog)
			appended = true
		} else {
			shell.SetAttr("#widget-host", "data-tick", time.Now().String())
		}
		return len(runner.Calls()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	handedOff := time.Now()

	// A second input appears inside the window; its batch is dropped.
	widget.Append("#widget-host", dialog)
	shell.SetAttr("#widget-host", "data-tick", "inside")
	assert.Never(t, func() bool { return len(runner.Calls()) > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	require.Less(t, time.Since(handedOff), window, "window elapsed before the check")

	// The first batch after the window picks it up.
	time.Sleep(window - time.Since(handedOff) + 20*time.Millisecond)
	require.Eventually(t, func() bool {
		shell.SetAttr("#widget-host", "data-tick", time.Now().String())
		return len(runner.Calls()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, stop())
	calls := runner.Calls()
	assert.NotEqual(t, calls[0], calls[1])
}

func TestDetector_SearchesEveryFrame(t *testing.T) {
	defer goleak.VerifyNone(t)

	shell := testutil.FixtureDocument(t, "shell", shellURL)
	widget := testutil.FixtureDocument(t, "transfer_dialog", widgetURL)
	legacy := testutil.FixtureDocument(t, "transfer_dialog_legacy", widgetURL+"/legacy")
	runner := &recordingRunner{}
	timing := fastTiming()
	timing.InitialDelay = time.Millisecond

	var mu sync.Mutex
	var frames []string
	d := newDetector(t, domtest.Frames{shell, widget, legacy}, runner, &gate{}, WithTiming(timing),
		OnResult(func(det Detection) {
			mu.Lock()
			defer mu.Unlock()
			frames = append(frames, det.Frame)
			assert.Equal(t, TriggerInitial, det.Trigger)
		}))
	stop := start(t, d)

	require.Eventually(t, func() bool { return len(runner.Calls()) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{widgetURL, widgetURL + "/legacy"}, frames)
}

func TestDetector_ConcurrentTriggersHandOffOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := testutil.FixtureDocument(t, "transfer_dialog", widgetURL)
	runner := &recordingRunner{hold: 50 * time.Millisecond}
	timing := Timing{
		Debounce:     0,
		PollInterval: time.Millisecond,
		InitialDelay: time.Millisecond,
		HandoffDelay: 0,
	}
	d := newDetector(t, domtest.Frames{doc}, runner, &gate{}, WithTiming(timing), WithMutations(doc))
	stop := start(t, d)

	for range 20 {
		doc.SetAttr("body", "data-tick", "x")
		time.Sleep(time.Millisecond)
	}
	require.Eventually(t, func() bool { return len(runner.Calls()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return len(runner.Calls()) > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, stop())
}

func TestDetector_ReplacedDocumentResetsRegistry(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := testutil.FixtureDocument(t, "transfer_dialog", widgetURL)
	runner := &recordingRunner{}
	timing := fastTiming()
	timing.InitialDelay = time.Millisecond
	d := newDetector(t, domtest.Frames{doc}, runner, &gate{}, WithTiming(timing), WithMutations(doc))
	stop := start(t, d)

	require.Eventually(t, func() bool { return len(runner.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, doc.Replace(testutil.LoadFixture(t, "transfer_dialog")))
	require.Eventually(t, func() bool { return len(runner.Calls()) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	calls := runner.Calls()
	assert.NotEqual(t, calls[0], calls[1])
	assert.Equal(t, 1, d.Registry().Len())
}

type closedMutations struct{}

func (closedMutations) Mutations(context.Context) (<-chan dom.Batch, error) {
	ch := make(chan dom.Batch)
	close(ch)
	return ch, nil
}

func TestDetector_RunFailsWhenMutationStreamEnds(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := testutil.FixtureDocument(t, "shell", shellURL)
	d := newDetector(t, domtest.Frames{doc}, &recordingRunner{}, &gate{},
		WithTiming(fastTiming()), WithMutations(closedMutations{}))

	err := d.Run(context.Background())

	assert.ErrorIs(t, err, ErrMutationsClosed)
}

func TestDetector_DrivesScheduler(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := testutil.FixtureDocument(t, "transfer_dialog", widgetURL)
	input := doc.Find(locate.SelectorRegionComboBoxID)

	live := settings.NewLive(settings.Defaults(), nil)
	live.Apply(map[string]any{settings.KeyCountryName: "Canada", settings.KeyDialCode: "+1"})
	presenter := &testutil.Presenter{}
	scheduler := fill.NewScheduler(live, presenter, fill.WithTiming(fill.Timing{
		MaxRetries:   3,
		RetryDelays:  []time.Duration{time.Millisecond},
		DropdownWait: time.Millisecond,
		KeyStepDelay: time.Millisecond,
	}))

	outcomes := make(chan Detection, 1)
	timing := fastTiming()
	timing.InitialDelay = time.Millisecond
	d := newDetector(t, domtest.Frames{doc}, scheduler, live, WithTiming(timing),
		OnResult(func(det Detection) { outcomes <- det }))
	stop := start(t, d)

	var det Detection
	select {
	case det = <-outcomes:
	case <-time.After(2 * time.Second):
		t.Fatal("no run completed")
	}
	require.NoError(t, stop())

	assert.Equal(t, fill.StateSucceeded, det.Outcome.State)
	assert.Equal(t, "Canada", input.CurrentValue())
	assert.Equal(t, 100, det.Confidence)
	assert.Equal(t, []testutil.SuccessCall{{Country: "Canada", DialCode: "+1"}}, presenter.Successes())
}
