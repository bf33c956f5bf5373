package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sporcle-bot/internal/app"
	"sporcle-bot/internal/config"
	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/infra/browser"
	"sporcle-bot/internal/infra/memory"
	"sporcle-bot/internal/logging"
	"sporcle-bot/internal/page"
)

var demoAnswers = []string{"Mercury", "Venus", "Earth", "Mars", "Jupiter", "Saturn", "Uranus", "Neptune"}

// NewConsoleCmd plays a quiz from stdin, without chat.
func NewConsoleCmd(configPath *string) *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "console [url]",
		Short: "Play a quiz from the terminal; an empty line gives up",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			log := logging.New("console", cmd.ErrOrStderr())
			if !cfg.Log.Debug {
				log.SetLevel(logging.LevelWarn)
			}

			var finder page.Finder
			if demo {
				finder = memory.NewQuizPage(memory.QuizPageOptions{
					URL:     "https://www.sporcle.com/games/demo/planets",
					Answers: demoAnswers,
				})
			} else {
				driver, err := browser.Launch(browser.Options{
					Profile:   cfg.Browser.Profile,
					StartPage: cfg.Browser.StartPage,
					Headless:  cfg.Browser.Headless,
				}, log.With("browser"))
				if err != nil {
					return err
				}
				defer driver.Close()
				finder = driver
			}

			p := page.New(finder, log.With("page"))
			if len(args) == 1 {
				if err := p.Navigate(args[0]); err != nil {
					return err
				}
			}

			results := app.ResultRepository(memory.NewResultStore())
			if !demo {
				stores, err := openResults(ctx, cfg, log.With("results"))
				if err != nil {
					return err
				}
				defer stores.Close()
				results = stores.results
			}

			return playConsole(ctx, p, results, cmd.InOrStdin(), cmd.OutOrStdout(), log)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "play a built-in quiz instead of opening the browser")
	return cmd
}

// playConsole runs one quiz on p, taking guesses line by line from in.
func playConsole(ctx context.Context, p app.PageAccessor, results app.ResultRepository, in io.Reader, out io.Writer, log *logging.Logger) error {
	quiz := app.NewQuizSession(p, log.With("quiz"))
	if !quiz.Start() {
		return fmt.Errorf("could not start the quiz on %s", p.URL())
	}
	fmt.Fprintf(out, "Go! %d answers to find.\n", quiz.MaxScore())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			quiz.GiveUp()
			break loop
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "" {
				quiz.GiveUp()
				break loop
			}
			outcome := quiz.GuessAnswer(line)
			fmt.Fprintln(out, describe(outcome, quiz))
			if outcome.Ended || quiz.CheckGameOver() {
				quiz.End()
				break loop
			}
		}
	}

	result := quiz.Result()
	result.ID = uuid.New().String()
	fmt.Fprintf(out, "Final score %d/%d in %s.\n", result.Score, result.MaxScore, played(result))

	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := results.Record(recordCtx, result); err != nil {
		log.Errorf("record result: %v", err)
	}
	return nil
}

func describe(outcome domain.Outcome, quiz *app.QuizSession) string {
	switch {
	case outcome.Ended:
		return "Quiz over!"
	case outcome.Correct:
		return fmt.Sprintf("Correct! %d/%d", quiz.Score(), quiz.MaxScore())
	case outcome.AlreadyAccepted:
		return "Already found."
	default:
		return "Nope."
	}
}

func played(result domain.QuizResult) time.Duration {
	if result.StartedAt.IsZero() || result.EndedAt.Before(result.StartedAt) {
		return 0
	}
	return result.EndedAt.Sub(result.StartedAt).Round(time.Second)
}
