package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/drawsync/internal/admin"
	"github.com/danmuck/drawsync/internal/canvas"
	"github.com/danmuck/drawsync/internal/discovery"
	"github.com/danmuck/drawsync/internal/logging"
	"github.com/danmuck/drawsync/internal/observability"
	"github.com/danmuck/drawsync/internal/peer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve [listenPort] [remoteHost] [remotePort]",
		Short: "Run a drawing peer",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			cfg, err := resolveServiceConfig(cmd.Flags(), flags, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPeer(ctx, cfg)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// runPeer composes the peer service with its headless canvas, the optional
// admin surface and the optional mDNS announcement. It returns nil on
// shutdown through ctx.
func runPeer(ctx context.Context, cfg peer.ServiceConfig) error {
	observability.RegisterMetrics()

	svc := peer.NewServiceWithConfig(cfg)
	raster := canvas.NewRaster(cfg.CanvasWidth, cfg.CanvasHeight)
	feed := admin.NewFeed()
	svc.BindCanvas(canvas.Multi(raster, feed))

	if err := svc.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})

	if cfg.AdminListenAddr != "" {
		srv := admin.New(admin.Config{
			ListenAddr:  cfg.AdminListenAddr,
			CORSOrigins: cfg.CORSOrigins,
		}, svc, raster, feed)
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}

	if cfg.Advertise {
		adv, err := discovery.Advertise(svc.PeerID(), svc.ListenPort())
		if err != nil {
			log.Warn().Err(err).Msg("drawsync mdns advertisement unavailable")
		} else {
			g.Go(func() error {
				<-gctx.Done()
				return adv.Shutdown()
			})
		}
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
