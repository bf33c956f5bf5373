package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/logging"
	"sporcle-bot/internal/page"
)

// PageAccessor is the view of the quiz document a session needs.
type PageAccessor interface {
	Has(el page.Element, index int) bool
	Get(el page.Element, index int) (page.Handle, error)
	SubmitGuess(text string) bool
	URL() string
}

// QuizSession drives one quiz on a page that was unstarted when the session
// was created.
type QuizSession struct {
	page PageAccessor
	log  *logging.Logger
	now  func() time.Time

	state        domain.QuizState
	currentScore int
	maxScore     int
	forcedOrder  bool

	accepted  map[string]struct{}
	guesses   int
	startedAt time.Time
	endedAt   time.Time
}

func NewQuizSession(p PageAccessor, log *logging.Logger) *QuizSession {
	return newQuizSessionWithClock(p, log, time.Now)
}

func newQuizSessionWithClock(p PageAccessor, log *logging.Logger, now func() time.Time) *QuizSession {
	s := &QuizSession{
		page:     p,
		log:      log,
		now:      now,
		state:    domain.QuizUnstarted,
		accepted: make(map[string]struct{}),
	}
	s.currentScore, s.maxScore = s.readScore()

	if p.Has(page.ForcedOrderText, 0) {
		s.log.Debugf("forced order quiz with %d slots", s.maxScore)
		s.forcedOrder = true
		s.labelSlots()
	}
	return s
}

// readScore parses the "current/max" score text; anything unparsable is 0/0.
func (s *QuizSession) readScore() (int, int) {
	if !s.page.Has(page.ScoreText, 0) {
		return 0, 0
	}
	el, err := s.page.Get(page.ScoreText, 0)
	if err != nil {
		return 0, 0
	}
	text, err := el.Text()
	if err != nil {
		return 0, 0
	}
	parts := strings.Split(text, "/")
	if len(parts) != 2 {
		return 0, 0
	}
	current, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0
	}
	max, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || current < 0 || current > max {
		return 0, 0
	}
	return current, max
}

// labelSlots writes "[n]" into every slot so chat can address them.
func (s *QuizSession) labelSlots() {
	for slot := 0; slot < s.maxScore; slot++ {
		if !s.page.Has(page.Slot, slot) {
			continue
		}
		el, err := s.page.Get(page.Slot, slot)
		if err != nil {
			continue
		}
		if err := el.SetLabel(fmt.Sprintf("[%d]", slot+1)); err != nil {
			s.log.Warnf("label slot %d: %v", slot+1, err)
		}
	}
}

func (s *QuizSession) State() domain.QuizState { return s.state }

func (s *QuizSession) ForcedOrder() bool { return s.forcedOrder }

func (s *QuizSession) MaxScore() int { return s.maxScore }

// Score re-reads the score from the page. The session never counts points itself.
func (s *QuizSession) Score() int {
	if current, max := s.readScore(); max > 0 {
		s.currentScore, s.maxScore = current, max
	}
	return s.currentScore
}

// Start clicks play. Valid from Unstarted or Paused.
func (s *QuizSession) Start() bool {
	if s.state != domain.QuizUnstarted && s.state != domain.QuizPaused {
		return false
	}
	if !s.click(page.ButtonPlay) {
		return false
	}
	if s.startedAt.IsZero() {
		s.startedAt = s.now()
	}
	s.state = domain.QuizPlaying
	return true
}

// Pause clicks the pause control of a running quiz.
func (s *QuizSession) Pause() bool {
	if s.state != domain.QuizPlaying || !s.click(page.ButtonPause) {
		return false
	}
	s.state = domain.QuizPaused
	return true
}

// Resume clicks the resume control of a paused quiz.
func (s *QuizSession) Resume() bool {
	if s.state != domain.QuizPaused || !s.click(page.ButtonResume) {
		return false
	}
	s.state = domain.QuizPlaying
	return true
}

// GiveUp clicks the give up control if present, then ends the session.
func (s *QuizSession) GiveUp() {
	if s.state == domain.QuizPlaying || s.state == domain.QuizPaused {
		s.click(page.ButtonGiveUp)
	}
	s.End()
}

// End moves the session to Finished. Calling it again has no effect.
func (s *QuizSession) End() {
	if s.state == domain.QuizFinished {
		return
	}
	s.state = domain.QuizFinished
	s.endedAt = s.now()
}

func (s *QuizSession) click(el page.Element) bool {
	if !s.page.Has(el, 0) {
		return false
	}
	h, err := s.page.Get(el, 0)
	if err != nil {
		s.log.Warnf("get %s: %v", el, err)
		return false
	}
	if err := h.Click(); err != nil {
		s.log.Warnf("click %s: %v", el, err)
		return false
	}
	return true
}

// CheckGameOver reports whether the post game box is on the page and shown.
// The box exists hidden for the whole quiz, so presence alone is not enough.
func (s *QuizSession) CheckGameOver() bool {
	if !s.page.Has(page.GameOverText, 0) {
		return false
	}
	box, err := s.page.Get(page.GameOverText, 0)
	if err != nil {
		return false
	}
	style, err := box.Attribute("style")
	if err != nil {
		s.log.Warnf("read game over style: %v", err)
		return false
	}
	return style == ""
}

// GuessAnswer submits a chat guess and interprets the page's reaction.
func (s *QuizSession) GuessAnswer(raw string) domain.Outcome {
	var outcome domain.Outcome

	guess := page.Sanitize(raw)
	if s.state != domain.QuizPlaying || guess == "" {
		return outcome
	}
	if s.forcedOrder {
		guess = s.selectSlot(guess)
		if guess == "" {
			return outcome
		}
	}

	if s.CheckGameOver() {
		s.End()
		outcome.Ended = true
		return outcome
	}

	s.guesses++
	if !s.page.SubmitGuess(guess) {
		return outcome
	}

	if s.CheckGameOver() {
		s.End()
		outcome.Ended = true
		return outcome
	}

	if !s.page.Has(page.GuessInput, 0) {
		return outcome
	}
	input, err := s.page.Get(page.GuessInput, 0)
	if err != nil {
		return outcome
	}
	value, err := input.Property("value")
	if err != nil {
		s.log.Warnf("read guess input: %v", err)
		return outcome
	}

	key := strings.ToLower(guess)
	switch value {
	case guess:
		_, outcome.AlreadyAccepted = s.accepted[key]
		s.clear(input)
	case "":
		outcome.Correct = true
		s.accepted[key] = struct{}{}
	default:
		s.log.Warnf("part of guess %q was accepted, input left with %q", guess, value)
		s.clear(input)
	}
	return outcome
}

// selectSlot handles a leading 1-based slot number on forced-order quizzes.
// It clicks the slot and returns the rest of the guess, or the guess
// unchanged when the prefix is not an in-range slot number.
func (s *QuizSession) selectSlot(guess string) string {
	prefix, rest, ok := strings.Cut(guess, " ")
	if !ok || !isDigits(prefix) {
		return guess
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 1 || n > s.maxScore {
		return guess
	}
	slot := n - 1
	if s.page.Has(page.Slot, slot) {
		if el, err := s.page.Get(page.Slot, slot); err == nil {
			if err := el.Click(); err != nil {
				s.log.Warnf("click slot %d: %v", n, err)
			}
		}
	}
	return rest
}

func (s *QuizSession) clear(input page.Handle) {
	if err := input.Clear(); err != nil {
		s.log.Warnf("clear guess input: %v", err)
	}
}

// Result summarizes the session for the result repositories.
func (s *QuizSession) Result() domain.QuizResult {
	return domain.QuizResult{
		URL:         s.page.URL(),
		Score:       s.Score(),
		MaxScore:    s.maxScore,
		ForcedOrder: s.forcedOrder,
		Guesses:     s.guesses,
		Accepted:    len(s.accepted),
		StartedAt:   s.startedAt,
		EndedAt:     s.endedAt,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
