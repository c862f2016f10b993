package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"classgrid/internal/capture"
	"classgrid/internal/ics"
	appLog "classgrid/internal/log"
	"classgrid/internal/store"
	"classgrid/internal/web"
)

func (a *app) server() *web.Server {
	return web.NewServer(web.Options{
		Store:          a.store,
		Breakpoint:     a.cfg.Breakpoint,
		Location:       ics.LoadLocation(a.cfg.Timezone),
		SessionMinutes: a.cfg.SessionMinutes,
		AllowedOrigins: a.cfg.AllowedOrigins,
		PreviewPath:    a.cfg.Capture.Output,
	})
}

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schedule page and JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				a.cfg.Listen = listen
			}
			ctx := cmd.Context()

			// A failed first load still serves an empty schedule; the
			// refresher or POST /api/reload can fill it in later.
			if err := a.store.Reload(ctx); err != nil {
				appLog.Warn("initial load failed; serving empty schedule", "err", err.Error())
			}

			refresher, err := store.NewRefresher(a.store, a.cfg.RefreshCron)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return a.server().Run(gctx, a.cfg.Listen) })
			g.Go(func() error { return refresher.Run(gctx) })

			err = g.Wait()
			appLog.Info("classgrid exiting")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func newCaptureCmd(configPath *string) *cobra.Command {
	var (
		target string
		out    string
		width  int
		height int
		expand bool
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Write a PNG screenshot of the schedule page",
		Long: "Captures the schedule page with headless Chromium. Without --url an\n" +
			"in-process server on a loopback port is started for the capture.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if out == "" {
				out = a.cfg.Capture.Output
			}
			if height <= 0 {
				height = a.cfg.Capture.Height
			}
			if target == "" {
				target = a.cfg.Capture.URL
			}

			opts := capture.CaptureOptions{URL: target, OutputPath: out, Width: width, Height: height, Expand: expand}
			if target != "" {
				return capture.CaptureSchedulePNG(ctx, opts)
			}

			if err := a.mustLoad(ctx); err != nil {
				return err
			}
			return a.captureLocal(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&target, "url", "", "page URL to capture (default: in-process server)")
	cmd.Flags().StringVar(&out, "out", "", "output PNG path (default: capture.output from config)")
	cmd.Flags().IntVar(&width, "width", capture.DefaultWidth, "viewport width in pixels; decides the layout")
	cmd.Flags().IntVar(&height, "height", 0, "initial viewport height in pixels")
	cmd.Flags().BoolVar(&expand, "expand", false, "expand session details")
	return cmd
}

// captureLocal serves the page on an ephemeral loopback port just long
// enough to screenshot it.
func (a *app) captureLocal(ctx context.Context, opts capture.CaptureOptions) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: a.server().Handler()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer srv.Close()
		opts.URL = "http://" + ln.Addr().String() + "/"
		return capture.CaptureSchedulePNG(gctx, opts)
	})
	return g.Wait()
}
