package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dealscout/dealscout/internal/discovery"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the discovery API and run the deal lifecycle sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initEnv(ctx, "serve", true)
		if err != nil {
			return err
		}
		defer env.Close()

		lifecycleStore, err := newLifecycleStore(env.Pool, cfg.Lifecycle)
		if err != nil {
			return err
		}
		disc := buildDiscovery(discovery.NewPostgresStore(env.Pool), env.Redis, env.Metrics, cfg.Cache)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(disc, lifecycleStore, env.Metrics, cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		if cfg.Lifecycle.Enabled {
			sweeper, err := buildSweeper(lifecycleStore, env.Metrics, cfg.Lifecycle)
			if err != nil {
				return err
			}
			g.Go(func() error {
				sweeper.Run(gctx)
				return nil
			})
		} else {
			zap.L().Info("deal lifecycle sweeper disabled")
		}

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSecs)*time.Second)
			defer cancel()
			return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
