package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/court-scheduler/internal/auth"
	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/config"
	"github.com/example/court-scheduler/internal/db"
	"github.com/example/court-scheduler/internal/journal"
	"github.com/example/court-scheduler/internal/logging"
	"github.com/example/court-scheduler/internal/migrate"
	"github.com/example/court-scheduler/internal/page"
	"github.com/example/court-scheduler/internal/scenario"
	"github.com/example/court-scheduler/internal/site"
	"github.com/example/court-scheduler/internal/slots"
	"github.com/example/court-scheduler/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a page per account and serve the operator console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			plan := config.FileSource{Path: cfg.ConfigPath}
			snap, err := plan.Load()
			if err != nil {
				return err
			}
			if err := snap.Check(); err != nil {
				return fmt.Errorf("plan: %w", err)
			}

			g, gctx := errgroup.WithContext(ctx)

			var sinks booking.Tee
			var history journal.Store
			if cfg.JournalEnabled() {
				d, err := db.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer d.Close()
				if migrateUp {
					if _, err := migrate.Up(ctx, d, log); err != nil {
						return err
					}
				}
				repo := journal.NewRepo(d)
				w := journal.NewWriter(repo, 0, log.Named("journal"))
				g.Go(func() error { return w.Run(gctx) })
				sinks = append(sinks, w)
				history = repo
			} else {
				log.Info("DATABASE_URL not set, outcomes will not be journaled")
			}

			browser, err := page.NewBrowser(ctx, page.BrowserConfig{
				RemoteURL:  cfg.ChromeURL,
				Headless:   cfg.Headless,
				RatePerSec: cfg.PageRatePerSec,
			}, log.Named("page"))
			if err != nil {
				return err
			}
			defer browser.Shutdown()

			cache := slots.New(slots.WithLogger(log.Named("slots")), slots.WithProbeInterval(cfg.ProbeInterval))
			reg := booking.NewRegistry(booking.Deps{
				Actuator: browser,
				Site:     site.New(cfg.SiteBaseURL),
				Cache:    cache,
				Sink:     sinks,
				Logger:   log.Named("booking"),
			})
			defer reg.CloseAll()

			for _, a := range snap.Accounts {
				if !a.Valid() {
					log.Warn("account has no credentials, log in on its page by hand", zap.String("account", a.ID))
				}
				if _, err := reg.Open(a); err != nil {
					log.Error("open session", zap.String("account", a.ID), zap.Error(err))
				}
			}

			ws := &web.Server{
				Auth: auth.NewStore(cfg.CookieHashKey, cfg.CookieBlockKey, auth.Operator{
					Username:       cfg.OperatorUser,
					PasswordBcrypt: cfg.OperatorPasswordBcrypt,
				}),
				Plan:     plan,
				Sessions: reg,
				Scenario: scenario.New(plan, reg, log.Named("scenario")),
				Cache:    cache,
				Journal:  history,
				Log:      log.Named("web"),
			}
			if cfg.OperatorPasswordBcrypt == "" {
				log.Warn("OPERATOR_PASSWORD_BCRYPT not set, console login is disabled")
			}

			g.Go(func() error { return reg.Run(gctx) })
			g.Go(func() error { return web.Start(gctx, cfg.ListenAddr, ws.Routes(), log) })

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}
