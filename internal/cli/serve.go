package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"
	"golang.org/x/sync/errgroup"

	"github.com/soyeahso/ai4cs/internal/config"
	"github.com/soyeahso/ai4cs/internal/gateway"
	"github.com/soyeahso/ai4cs/internal/session"
)

func newServeCmd() *cobra.Command {
	var (
		port  int
		bind  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the consultation HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if watch {
				go autorestart.RestartOnChange()
				log.Info().Msg("restarting on binary change")
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := buildStack(ctx, cfg, paths.JournalPath(cfg.Journal), log)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := gateway.New(cfg, st.service, log,
				gateway.WithGenerator(st.provider),
				gateway.WithSessions(st.sessions),
				gateway.WithHooks(st.hooks),
			)

			log.Info().
				Str("provider", st.provider.Name()).
				Str("model", st.provider.Model()).
				Str("policy", string(st.engine.Policy())).
				Dur("sessionTTL", cfg.Session.TTL()).
				Int("maxSessions", cfg.Session.MaxSessions).
				Msg("consultation service configured")

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Start(gctx) })
			if cfg.Session.TTL() > 0 {
				cleanup := session.NewCleanupService(st.sessions, cfg.Session.CleanupInterval(), log)
				g.Go(func() error { return cleanup.Run(gctx) })
			}
			return g.Wait()
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-exec when the binary changes (development)")

	return cmd
}
