// capture-fixtures saves every frame of the CRM tab as a sanitized HTML
// fixture for the headless dialer tests.
//
// Usage:
//
//	go run ./scripts/capture-fixtures -name=transfer_dialog
//
// Each frame is written as {name}_frame{N}.html. Scripts are dropped and
// customer data is redacted before anything reaches disk; review the files
// before committing anyway.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/config"
	"github.com/grez-lucas/dialer-helper/internal/dialer/browser"
	"github.com/grez-lucas/dialer-helper/internal/dialer/testutil"
)

func main() {
	cfgFile := flag.String("config", "", "config file (default is ./dialer.yaml)")
	name := flag.String("name", "", "fixture base name, e.g. transfer_dialog")
	outputDir := flag.String("output", filepath.Join("internal", "dialer", "testutil", "testdata", "fixtures"), "output directory")
	screenshot := flag.Bool("screenshot", false, "also save a PNG of the tab (not sanitized)")
	flag.Parse()

	if *name == "" {
		fmt.Println("Usage: go run ./scripts/capture-fixtures -name=transfer_dialog")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	session, err := browser.Open(ctx, cfg.BrowserOptions(), zap.NewNop())
	if err != nil {
		fmt.Printf("Error opening browser: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	fmt.Println("Open the page state to capture in the attached tab.")
	fmt.Print("Press ENTER when ready (or 'quit'): ")
	input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	if strings.TrimSpace(strings.ToLower(input)) == "quit" {
		return
	}

	browser.WaitForIFrames(session.Page, cfg.Browser.FrameSettle)
	time.Sleep(time.Second)

	if *screenshot {
		path := filepath.Join(*outputDir, *name+".png")
		if buf, err := session.Page.Screenshot(false, nil); err != nil {
			fmt.Printf("  Screenshot failed: %v\n", err)
		} else if err := os.WriteFile(path, buf, 0o644); err != nil {
			fmt.Printf("  Error saving screenshot: %v\n", err)
		} else {
			fmt.Printf("  Screenshot: %s\n", path)
		}
	}

	docs, err := browser.NewFrames(session.Page, zap.NewNop()).Documents(ctx)
	if err != nil {
		fmt.Printf("Error listing frames: %v\n", err)
		os.Exit(1)
	}

	for i, d := range docs {
		doc, ok := d.(*browser.Document)
		if !ok {
			continue
		}
		html, err := doc.Page().HTML()
		if err != nil {
			fmt.Printf("  Frame %d: error capturing HTML: %v\n", i, err)
			continue
		}
		clean, err := testutil.SanitizeHTML(html)
		if err != nil {
			fmt.Printf("  Frame %d: error sanitizing: %v\n", i, err)
			continue
		}

		path := filepath.Join(*outputDir, fmt.Sprintf("%s_frame%d.html", *name, i))
		if err := os.WriteFile(path, []byte(clean), 0o644); err != nil {
			fmt.Printf("  Frame %d: error saving: %v\n", i, err)
			continue
		}
		fmt.Printf("  Saved %s  (%s)\n", path, doc.URL())
	}
}
