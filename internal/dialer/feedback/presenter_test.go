package feedback

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/dialer-helper/internal/dialer/countries"
	"github.com/grez-lucas/dialer-helper/internal/dialer/fill"
)

func TestNewSuccessToast(t *testing.T) {
	toast := NewSuccessToast("United Kingdom", "+44")

	assert.Equal(t, SuccessTitle, toast.Title)
	assert.Equal(t, "United Kingdom (+44)", toast.Message)
	assert.Equal(t, "🇬🇧", toast.Flag)
	assert.Equal(t, SuccessAccent, toast.Accent)
	assert.Equal(t, SuccessIcon, toast.Icon)
	assert.Equal(t, SuccessDismiss, toast.Dismiss)
	assert.False(t, toast.Error)
}

func TestNewSuccessToast_UnknownCountryAndMarkup(t *testing.T) {
	toast := NewSuccessToast("<b>Atlantis</b>", "+999")

	assert.Equal(t, "Atlantis (+999)", toast.Message)
	assert.Equal(t, countries.FallbackFlag, toast.Flag)
}

func TestNewFailureToast(t *testing.T) {
	toast := NewFailureToast()

	assert.Equal(t, FailureTitle, toast.Title)
	assert.Equal(t, FailureMessage, toast.Message)
	assert.Equal(t, FailureAccent, toast.Accent)
	assert.Equal(t, FailureIcon, toast.Icon)
	assert.Equal(t, FailureDismiss, toast.Dismiss)
	assert.True(t, toast.Error)
}

func TestPresenter_RendersToasts(t *testing.T) {
	var shown []Toast
	p := NewPresenter(func(_ context.Context, toast Toast) error {
		shown = append(shown, toast)
		return nil
	}, nil)

	require.NoError(t, p.Success(context.Background(), "Germany", "+49"))
	require.NoError(t, p.Failure(context.Background()))

	require.Len(t, shown, 2)
	assert.Equal(t, "Germany (+49)", shown[0].Message)
	assert.True(t, shown[1].Error)
}

func TestPresenter_BlockedRenderIsReported(t *testing.T) {
	p := NewPresenter(func(context.Context, Toast) error {
		return errors.New("cross-origin")
	}, nil)

	err := p.Failure(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, fill.ErrFeedbackBlocked)
	assert.Contains(t, err.Error(), "cross-origin")
}

func TestPageRenderer_ReplacesExistingToast(t *testing.T) {
	if os.Getenv("DIALER_TEST_MODE") != "browser" {
		t.Skip("Skipping: requires DIALER_TEST_MODE=browser")
	}
	browser := rod.New().MustConnect()
	t.Cleanup(func() { browser.MustClose() })
	page := browser.MustPage("about:blank").MustWaitLoad()

	p := NewPagePresenter(page, nil)
	ctx := context.Background()
	require.NoError(t, p.Failure(ctx))
	require.NoError(t, p.Success(ctx, "France", "<img src=x>+33"))

	count := page.MustEval(`() => document.querySelectorAll('#d365-toast').length`).Int()
	assert.Equal(t, 1, count)

	title := page.MustEval(`() => document.querySelector('#d365-toast .toast-title').textContent`).Str()
	assert.Equal(t, SuccessTitle, title)

	imgs := page.MustEval(`() => document.querySelectorAll('#d365-toast img').length`).Int()
	assert.Zero(t, imgs)
}

func TestPageRenderer_DrawsStatusIcon(t *testing.T) {
	if os.Getenv("DIALER_TEST_MODE") != "browser" {
		t.Skip("Skipping: requires DIALER_TEST_MODE=browser")
	}
	browser := rod.New().MustConnect()
	t.Cleanup(func() { browser.MustClose() })
	page := browser.MustPage("about:blank").MustWaitLoad()

	p := NewPagePresenter(page, nil)
	ctx := context.Background()

	iconOf := func() (discFill, d string) {
		res := page.MustEval(`() => {
			const svg = document.querySelector('#d365-toast .toast-icon svg');
			return {
				ns: svg.namespaceURI,
				fill: svg.querySelector('circle').getAttribute('fill'),
				stroke: svg.querySelector('path').getAttribute('d'),
			};
		}`)
		assert.Equal(t, "http://www.w3.org/2000/svg", res.Get("ns").Str())
		return res.Get("fill").Str(), res.Get("stroke").Str()
	}

	require.NoError(t, p.Success(ctx, "Spain", "+34"))
	disc, stroke := iconOf()
	assert.Equal(t, SuccessAccent, disc)
	assert.Equal(t, SuccessIcon, stroke)

	require.NoError(t, p.Failure(ctx))
	disc, stroke = iconOf()
	assert.Equal(t, FailureAccent, disc)
	assert.Equal(t, FailureIcon, stroke)
}
