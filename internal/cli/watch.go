package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grez-lucas/dialer-helper/internal/api"
	"github.com/grez-lucas/dialer-helper/internal/dialer/agent"
	"github.com/grez-lucas/dialer-helper/internal/dialer/browser"
	"github.com/grez-lucas/dialer-helper/internal/dialer/feedback"
	"github.com/grez-lucas/dialer-helper/internal/settings"
)

func newWatchCommand(a *app) *cobra.Command {
	var serveAPI bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Attach to the CRM tab and fill the country picker whenever it appears",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), serveAPI || a.cfg.API.Enabled)
		},
	}
	cmd.Flags().BoolVar(&serveAPI, "api", false, "serve the local HTTP API even if api.enabled is false")
	return cmd
}

func (a *app) watch(ctx context.Context, serveAPI bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ag, cleanup, err := a.openAgent(ctx, agent.NewMetrics(reg))
	if err != nil {
		return err
	}
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ag.Run(gctx) })
	if serveAPI {
		srv := api.NewServer(a.cfg.APIConfig(a.cfg.Logger.Level == "debug"), ag, reg, a.logger.Named("api"))
		g.Go(func() error { return srv.Run(gctx) })
	}

	err = g.Wait()
	a.logger.Info("Dialer agent stopped")
	return err
}

// openAgent attaches to the browser, binds the settings file and builds an
// agent for the attached tab. cleanup releases all three.
func (a *app) openAgent(ctx context.Context, metrics *agent.Metrics) (*agent.Agent, func(), error) {
	rules, err := a.cfg.LocateRules()
	if err != nil {
		return nil, nil, err
	}

	live, unbind, err := a.bindSettings(ctx)
	if err != nil {
		return nil, nil, err
	}

	session, err := browser.Open(ctx, a.cfg.BrowserOptions(), a.logger.Named("browser"))
	if err != nil {
		unbind()
		return nil, nil, err
	}
	cleanup := func() {
		unbind()
		if err := session.Close(); err != nil {
			a.logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	fillTiming := a.cfg.FillTiming()
	detectTiming := a.cfg.DetectTiming()
	onDemandTiming := a.cfg.OnDemandTiming()

	ag := agent.New(agent.Deps{
		Frames:    browser.NewFrames(session.Page, a.logger.Named("frames")),
		Mutations: browser.NewMutations(session.Page, a.logger.Named("mutations")),
		Presenter: feedback.NewPagePresenter(session.Page, a.logger.Named("feedback")),
		Settings:  live,
	}, agent.Options{
		Rules:            rules,
		FillTiming:       &fillTiming,
		DetectTiming:     &detectTiming,
		OnDemandTiming:   &onDemandTiming,
		DialCodeSelector: a.cfg.DialCodeSelector(),
		Metrics:          metrics,
		Logger:           a.logger,
	})
	return ag, cleanup, nil
}

func (a *app) bindSettings(ctx context.Context) (*settings.Live, func(), error) {
	store, err := settings.NewFileStore(a.cfg.Settings.File, a.logger.Named("settings"))
	if err != nil {
		return nil, nil, err
	}
	live := settings.NewLive(settings.Defaults(), a.logger.Named("settings"))
	unbind, err := live.Bind(ctx, store)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	return live, unbind, nil
}
