package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sporcle-bot/internal/chat"
	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/logging"
)

// QuizPage is the page a relay builds sessions on; it can also be pointed at a new quiz.
type QuizPage interface {
	PageAccessor
	Navigate(url string) error
}

// LineSender writes a raw protocol line, bypassing flood control.
type LineSender interface {
	SendLine(line string) error
}

// ResultRepository stores finished quizzes and aggregates them per quiz page.
type ResultRepository interface {
	Record(ctx context.Context, result domain.QuizResult) error
	Stats(ctx context.Context, url string) (domain.QuizStats, error)
}

type RelayConfig struct {
	Channel       string
	Nick          string
	IgnoredUsers  []string
	StartDelay    time.Duration
	AnnounceColor string
}

type commandFunc func(r *Relay, ctx context.Context, ev domain.ChatEvent, args []string)

// Every command is broadcaster-only.
var commands = map[string]commandFunc{
	"!start_quiz":  (*Relay).startQuiz,
	"!pause_quiz":  (*Relay).pauseQuiz,
	"!resume_quiz": (*Relay).resumeQuiz,
	"!end_quiz":    (*Relay).endQuiz,
	"!quiz_stats":  (*Relay).quizStats,
}

// Relay turns chat lines into quiz actions. It owns the active session; all
// methods are meant to be called from the transport's read loop.
type Relay struct {
	cfg       RelayConfig
	page      QuizPage
	transport LineSender
	queue     *OutgoingQueue
	board     *Scoreboard
	results   ResultRepository
	log       *logging.Logger

	ignored map[string]struct{}
	quiz    *QuizSession
	sleep   func(ctx context.Context, d time.Duration) error
	newID   func() string
}

func NewRelay(cfg RelayConfig, p QuizPage, transport LineSender, queue *OutgoingQueue, board *Scoreboard, results ResultRepository, log *logging.Logger) *Relay {
	ignored := map[string]struct{}{strings.ToLower(cfg.Nick): {}}
	for _, u := range cfg.IgnoredUsers {
		ignored[strings.ToLower(u)] = struct{}{}
	}
	return &Relay{
		cfg:       cfg,
		page:      p,
		transport: transport,
		queue:     queue,
		board:     board,
		results:   results,
		log:       log,
		ignored:   ignored,
		sleep:     sleepContext,
		newID:     func() string { return uuid.New().String() },
	}
}

// Quiz returns the current session, nil before the first !start_quiz.
func (r *Relay) Quiz() *QuizSession {
	return r.quiz
}

// HandleLine answers keep-alives and dispatches user lines.
func (r *Relay) HandleLine(ctx context.Context, line string) {
	if reply, ok := chat.Pong(line); ok {
		if err := r.transport.SendLine(reply); err != nil {
			r.log.Errorf("pong: %v", err)
		}
		return
	}
	ev, ok := chat.Parse(line)
	if !ok {
		return
	}
	r.HandleEvent(ctx, ev)
}

func (r *Relay) HandleEvent(ctx context.Context, ev domain.ChatEvent) {
	if _, skip := r.ignored[ev.User]; skip {
		return
	}

	name, args := chat.Command(ev.Text)
	if cmd, ok := commands[name]; ok {
		if !ev.Tags.Broadcaster {
			r.log.Debugf("ignoring %s from %s", name, ev.User)
			return
		}
		cmd(r, ctx, ev, args)
		return
	}

	r.forwardGuess(ctx, ev)
}

func (r *Relay) forwardGuess(ctx context.Context, ev domain.ChatEvent) {
	q := r.quiz
	if q == nil || q.State() != domain.QuizPlaying {
		return
	}
	outcome := q.GuessAnswer(ev.Text)
	if outcome.Correct {
		r.board.Credit(ev.User, ev.Tags.DisplayName)
		if q.CheckGameOver() {
			q.End()
			outcome.Ended = true
		}
	}
	if outcome.Ended {
		r.finish(ctx)
	}
}

func (r *Relay) startQuiz(ctx context.Context, _ domain.ChatEvent, args []string) {
	// the running quiz is settled on its own page, before any navigation
	r.abandon(ctx)
	if len(args) > 0 {
		if err := r.page.Navigate(args[0]); err != nil {
			r.log.Errorf("start quiz: %v", err)
			return
		}
	}

	quiz := NewQuizSession(r.page, r.log.With("quiz"))
	r.quiz = quiz
	r.board.Reset(r.page.URL())

	r.say(fmt.Sprintf(`Get ready... To guess an answer, just type in chat, or whisper to me ("/w %s guess").`, r.cfg.Nick))
	if err := r.sleep(ctx, r.cfg.StartDelay); err != nil {
		return
	}
	if !quiz.Start() {
		r.log.Warnf("could not start quiz on %s", r.page.URL())
		return
	}
	r.announce(ctx, "Go!")
}

func (r *Relay) pauseQuiz(ctx context.Context, _ domain.ChatEvent, _ []string) {
	if r.quiz != nil && r.quiz.Pause() {
		r.announce(ctx, "Quiz paused.")
	}
}

func (r *Relay) resumeQuiz(ctx context.Context, _ domain.ChatEvent, _ []string) {
	if r.quiz != nil && r.quiz.Resume() {
		r.announce(ctx, "Quiz resumed!")
	}
}

func (r *Relay) endQuiz(ctx context.Context, _ domain.ChatEvent, _ []string) {
	r.abandon(ctx)
}

// abandon gives up the current quiz. Only a quiz that was actually played is
// recorded; one that never started is just closed.
func (r *Relay) abandon(ctx context.Context) {
	if r.quiz == nil {
		return
	}
	switch r.quiz.State() {
	case domain.QuizPlaying, domain.QuizPaused:
		r.quiz.GiveUp()
		r.finish(ctx)
	default:
		r.quiz.End()
	}
}

func (r *Relay) quizStats(ctx context.Context, _ domain.ChatEvent, _ []string) {
	if r.results == nil {
		return
	}
	stats, err := r.results.Stats(ctx, r.page.URL())
	if errors.Is(err, domain.ErrResultNotFound) {
		r.say("No recorded plays of this quiz yet.")
		return
	}
	if err != nil {
		r.log.Errorf("quiz stats: %v", err)
		return
	}
	r.say(fmt.Sprintf("This quiz has been played %d times. Best score: %d/%d.", stats.Plays, stats.BestScore, stats.MaxScore))
}

// finish records the ended session and announces the summary.
func (r *Relay) finish(ctx context.Context) {
	result := r.quiz.Result()
	result.ID = r.newID()
	result.Contributors = r.board.Snapshot().Entries

	if r.results != nil {
		if err := r.results.Record(ctx, result); err != nil {
			r.log.Errorf("record result %s: %v", result.ID, err)
		}
	}
	r.announce(ctx, summary(result))
}

func summary(result domain.QuizResult) string {
	msg := fmt.Sprintf("Quiz over! Final score %d/%d.", result.Score, result.MaxScore)
	if len(result.Contributors) == 0 {
		return msg
	}
	top := result.Contributors
	if len(top) > 3 {
		top = top[:3]
	}
	names := make([]string, 0, len(top))
	for _, c := range top {
		names = append(names, fmt.Sprintf("%s (%d)", c.DisplayName, c.Correct))
	}
	return msg + " Top guessers: " + strings.Join(names, ", ")
}

func (r *Relay) say(text string) {
	r.queue.Enqueue(text, r.cfg.Channel)
}

func (r *Relay) announce(ctx context.Context, text string) {
	if err := r.queue.SendColored(ctx, text, r.cfg.AnnounceColor, r.cfg.Channel); err != nil {
		r.log.Debugf("announcement dropped: %v", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
