// discover-frames attaches to the CRM tab and prints its frame tree,
// evaluating every locator rule in each frame. The output shows which frame
// hosts the dialer widget and which rule wins there.
//
// Usage:
//
//	go run ./scripts/discover-frames -config=dialer.yaml
//
// Open the Dynamics 365 tab and the transfer dialog first, or pass
// -control-url to attach to a browser started with
// --remote-debugging-port. Press ENTER to inspect; type 'quit' to exit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/config"
	"github.com/grez-lucas/dialer-helper/internal/dialer/browser"
	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
	"github.com/grez-lucas/dialer-helper/internal/dialer/locate"
)

func main() {
	cfgFile := flag.String("config", "", "config file (default is ./dialer.yaml)")
	controlURL := flag.String("control-url", "", "DevTools URL of a running browser (overrides browser.control_url)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	rules, err := cfg.LocateRules()
	if err != nil {
		fmt.Printf("Error in rules: %v\n", err)
		os.Exit(1)
	}

	opts := cfg.BrowserOptions()
	if *controlURL != "" {
		opts.ControlURL = *controlURL
	}

	ctx := context.Background()
	session, err := browser.Open(ctx, opts, zap.NewNop())
	if err != nil {
		fmt.Printf("Error opening browser: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	fmt.Println("================================================================")
	fmt.Println("  FRAME DISCOVERY")
	fmt.Println("================================================================")

	reader := bufio.NewReader(os.Stdin)
	frames := browser.NewFrames(session.Page, zap.NewNop())

	for {
		fmt.Print("\nPress ENTER to inspect (or 'quit'): ")
		input, _ := reader.ReadString('\n')
		if strings.TrimSpace(strings.ToLower(input)) == "quit" {
			break
		}

		browser.WaitForIFrames(session.Page, cfg.Browser.FrameSettle)

		docs, err := frames.Documents(ctx)
		if err != nil {
			fmt.Printf("  Error listing frames: %v\n", err)
			continue
		}
		for i, doc := range docs {
			inspect(ctx, i, doc, rules)
		}
	}
}

// inspect prints every rule match in doc and the rule the locator picks.
func inspect(ctx context.Context, index int, doc dom.Document, rules []locate.Rule) {
	fmt.Println("----------------------------------------------------------------")
	fmt.Printf("FRAME %d  %s\n", index, truncate(doc.URL(), 100))

	found := 0
	for _, r := range rules {
		els, err := doc.QueryAll(ctx, r.Pattern)
		if err != nil || len(els) == 0 {
			continue
		}
		for _, el := range els {
			rect, _ := el.Rect(ctx)
			placeholder, _, _ := el.Attribute(ctx, "placeholder")
			fmt.Printf("  MATCH  %-20s  conf=%3d  %4.0fx%-4.0f  placeholder=%q\n",
				r.Label, r.Confidence, rect.Width, rect.Height, placeholder)
			found++
		}
	}
	if found == 0 {
		fmt.Println("  (no rule matches)")
		return
	}

	res := locate.NewLocator(rules, zap.NewNop()).Locate(ctx, doc)
	if res.Found() {
		fmt.Printf("  PICK   %s (confidence %d)\n", res.Rule, res.Confidence)
	} else {
		fmt.Println("  PICK   none visible")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
