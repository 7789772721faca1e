package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

var ErrPageNotFound = errors.New("no page matches the target URL")

// Options controls how the agent reaches a browser.
type Options struct {
	// ControlURL attaches to a running browser's DevTools endpoint. When
	// empty a browser is launched.
	ControlURL string
	// Bin overrides the browser binary used when launching.
	Bin      string
	Headless bool
	// PageURL selects the tab to attach to by substring, or is navigated to
	// in a fresh stealth page when no tab matches.
	PageURL string
}

// Session holds a connected browser and the tab being watched.
type Session struct {
	Browser *rod.Browser
	Page    *rod.Page

	launched *launcher.Launcher
	logger   *zap.Logger
}

// Open connects to or launches a browser and picks the tab to watch.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{logger: logger}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(opts.Headless).
			// Hide the automation flag from page scripts.
			Set("disable-blink-features", "AutomationControlled").
			Set("no-first-run").
			Set("no-default-browser-check")
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		s.launched = l
		controlURL = u
		logger.Info("Launched browser", zap.String("control_url", u), zap.Bool("headless", opts.Headless))
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("connect %s: %w", controlURL, err)
	}
	s.Browser = b

	page, err := s.pickPage(opts.PageURL)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Page = page
	return s, nil
}

func (s *Session) pickPage(target string) (*rod.Page, error) {
	pages, err := s.Browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if target == "" || strings.Contains(info.URL, target) {
			s.logger.Info("Attached to page", zap.String("url", info.URL), zap.String("title", info.Title))
			return p, nil
		}
	}

	if target == "" {
		return nil, ErrPageNotFound
	}

	page, err := stealth.Page(s.Browser)
	if err != nil {
		return nil, fmt.Errorf("create stealth page: %w", err)
	}
	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load %s: %w", target, err)
	}
	s.logger.Info("Opened page", zap.String("url", target))
	return page, nil
}

// Close disconnects and, when the browser was launched here, kills it.
func (s *Session) Close() error {
	var err error
	if s.launched != nil && s.Browser != nil {
		err = s.Browser.Close()
	}
	s.cleanupLauncher()
	return err
}

func (s *Session) cleanupLauncher() {
	if s.launched != nil {
		s.launched.Cleanup()
		s.launched = nil
	}
}
