// Package feedback shows a transient notification in the top-level page
// after a fill run.
package feedback

import (
	"fmt"
	"time"

	"github.com/grez-lucas/dialer-helper/internal/dialer/countries"
	"github.com/grez-lucas/dialer-helper/internal/dialer/fill"
)

const (
	SuccessTitle   = "Country/Region Selected"
	FailureTitle   = "Selection Failed"
	FailureMessage = "Could not auto-select country. Please select manually."

	SuccessAccent = "#0078d4"
	FailureAccent = "#d13438"

	FailureFlag = "⚠️"

	// Status icon strokes, drawn white over an accent-colored disc.
	SuccessIcon = "M8 12l3 3 5-6"
	FailureIcon = "M12 7v6M12 16v1"

	SuccessDismiss = 2500 * time.Millisecond
	FailureDismiss = 4 * time.Second
)

// Toast is the rendered notification. Text fields are written with
// textContent, never parsed as markup.
type Toast struct {
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Flag    string        `json:"flag"`
	Accent  string        `json:"accent"`
	Icon    string        `json:"icon"`
	Error   bool          `json:"error"`
	Dismiss time.Duration `json:"-"`
}

// NewSuccessToast describes a completed fill. Country and dial code are
// sanitized before display; unknown countries get the globe flag.
func NewSuccessToast(country, dialCode string) Toast {
	return Toast{
		Title:   SuccessTitle,
		Message: fmt.Sprintf("%s (%s)", fill.Sanitize(country), fill.Sanitize(dialCode)),
		Flag:    countries.Flag(country),
		Accent:  SuccessAccent,
		Icon:    SuccessIcon,
		Dismiss: SuccessDismiss,
	}
}

func NewFailureToast() Toast {
	return Toast{
		Title:   FailureTitle,
		Message: FailureMessage,
		Flag:    FailureFlag,
		Accent:  FailureAccent,
		Icon:    FailureIcon,
		Error:   true,
		Dismiss: FailureDismiss,
	}
}
