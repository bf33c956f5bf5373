package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sporcle-bot/internal/app"
	"sporcle-bot/internal/config"
	"sporcle-bot/internal/infra/browser"
	"sporcle-bot/internal/logging"
	"sporcle-bot/internal/page"
	transport "sporcle-bot/internal/transport/http"
	"sporcle-bot/internal/transport/irc"
)

const greeting = "Hello, I am Sporcle."

// NewStartCmd builds the CLI subcommand that runs the chat bot.
func NewStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Join the chat and play quizzes on command",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), *configPath)
		},
	}
}

func runStart(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, _ := logging.Open(cfg.Log.Dir, "main")
	defer log.Close()
	if !cfg.Log.Debug {
		log.SetLevel(logging.LevelInfo)
	}
	if path := log.Path(); path != "" {
		log.Infof("logging to %s", path)
	}

	stores, err := openResults(ctx, cfg, log.With("results"))
	if err != nil {
		log.Errorf("results: %v", err)
		return err
	}
	defer stores.Close()

	driver, err := browser.Launch(browser.Options{
		Profile:   cfg.Browser.Profile,
		StartPage: cfg.Browser.StartPage,
		Headless:  cfg.Browser.Headless,
	}, log.With("browser"))
	if err != nil {
		log.Errorf("browser: %v", err)
		return err
	}
	defer driver.Close()

	client := irc.NewClient(irc.Config{
		Host:        cfg.IRC.Host,
		Port:        cfg.IRC.Port,
		Token:       cfg.IRC.Token,
		Nick:        cfg.IRC.Nick,
		Channel:     cfg.IRC.Channel,
		ReadTimeout: config.Duration(cfg.IRC.ReadTimeout, time.Second),
		MaxTimeouts: cfg.IRC.MaxTimeouts,
	}, log.With("irc"))

	queue := app.NewOutgoingQueue(client,
		config.Duration(cfg.Chat.Cooldown, time.Second),
		config.Duration(cfg.Chat.ColorSettle, time.Second),
		log.With("queue"))
	defer queue.Close()

	board := app.NewScoreboard()
	relay := app.NewRelay(app.RelayConfig{
		Channel:       cfg.IRC.Channel,
		Nick:          cfg.IRC.Nick,
		IgnoredUsers:  cfg.IRC.IgnoredUsers,
		StartDelay:    config.Duration(cfg.Quiz.StartDelay, 5*time.Second),
		AnnounceColor: cfg.Chat.AnnounceColor,
	}, page.New(driver, log.With("page")), client, queue, board, stores.results, log.With("relay"))

	if err := client.Connect(ctx); err != nil {
		log.Errorf("irc: %v", err)
		return err
	}
	queue.Enqueue(greeting, cfg.IRC.Channel)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Run(gctx, relay.HandleLine)
	})

	if cfg.Overlay.Addr != "" {
		overlay := transport.NewOverlay(board, stores.results, stores.leaderboard, log.With("overlay"))
		server := &http.Server{
			Addr:         cfg.Overlay.Addr,
			Handler:      overlay.Router(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		g.Go(func() error {
			log.Infof("overlay listening on %s", cfg.Overlay.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if dropped := queue.Close(); dropped > 0 {
		log.Warnf("dropped %d unsent chat messages", dropped)
	}
	log.Infof("shutting down")
	return err
}
