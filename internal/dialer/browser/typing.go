package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

var keys = map[dom.Key]input.Key{
	dom.KeyArrowDown: input.ArrowDown,
	dom.KeyEnter:     input.Enter,
}

// PressKey focuses el and presses key. Element.Type dispatches trusted
// keydown/keyup pairs through the Input domain, which framework key
// handlers cannot tell apart from a user.
func PressKey(el *rod.Element, key dom.Key) error {
	k, ok := keys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return el.Type(k)
}
