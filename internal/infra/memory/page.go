package memory

import (
	"fmt"
	"strings"
	"sync"

	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/page"
)

const hiddenStyle = "display: none;"

// QuizPageOptions describes an in-memory quiz.
type QuizPageOptions struct {
	URL         string
	Answers     []string
	ForcedOrder bool
}

// Page is an in-memory quiz document implementing page.Finder. It mimics the
// quiz site closely enough for tests and the console demo: answers are
// checked case-insensitively on submission, accepted answers clear the input
// and the post game box becomes visible once everything is found.
type Page struct {
	mu          sync.Mutex
	url         string
	nodes       []*Element
	answers     []string
	found       []bool
	forced      bool
	focus       int
	playing     bool
	calls       int
	validate    func(value string) string
	navigations []string
}

// Element is a node of the in-memory document.
type Element struct {
	page   *Page
	id     string
	class  string
	text   string
	attrs  map[string]string
	value  string
	clicks int
}

// NewQuizPage builds an unstarted quiz page.
func NewQuizPage(opts QuizPageOptions) *Page {
	url := opts.URL
	if url == "" {
		url = "https://www.sporcle.com/games/demo"
	}
	p := &Page{
		url:     url,
		answers: append([]string(nil), opts.Answers...),
		found:   make([]bool, len(opts.Answers)),
		forced:  opts.ForcedOrder,
	}
	for _, id := range []string{"button-play", "pauseBox", "resumeBtn", "giveUp", "gameinput", "time"} {
		p.add(id, "", "")
	}
	p.add("", "currentScore", p.scoreTextLocked())
	p.add("postGameBox", "", "").attrs["style"] = hiddenStyle
	if opts.ForcedOrder {
		p.add("forcedOrder", "", "Forced Order")
	}
	for i := range opts.Answers {
		p.add(fmt.Sprintf("slot%d", i), "", "")
		p.add(fmt.Sprintf("name%d", i), "", "")
	}
	return p
}

func (p *Page) add(id, class, text string) *Element {
	el := &Element{page: p, id: id, class: class, text: text, attrs: map[string]string{}}
	p.nodes = append(p.nodes, el)
	return el
}

func (p *Page) FindByID(id string) ([]page.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	var out []page.Handle
	for _, n := range p.nodes {
		if n.id == id {
			out = append(out, n)
		}
	}
	return out, nil
}

func (p *Page) FindByClass(class string) ([]page.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	var out []page.Handle
	for _, n := range p.nodes {
		if n.class == class {
			out = append(out, n)
		}
	}
	return out, nil
}

// SubmitGuess sets the input value and validates it like the site's input handler.
func (p *Page) SubmitGuess(input page.Handle, text string) error {
	el, ok := input.(*Element)
	if !ok || el.page != p {
		return fmt.Errorf("foreign handle: %w", domain.ErrElementNotFound)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if !p.contains(el) {
		return fmt.Errorf("guess input detached: %w", domain.ErrElementNotFound)
	}
	el.value = text
	if p.validate != nil {
		el.value = p.validate(text)
		return nil
	}
	if p.playing && p.acceptLocked(text) {
		el.value = ""
	}
	return nil
}

func (p *Page) acceptLocked(text string) bool {
	guess := strings.ToLower(strings.TrimSpace(text))
	match := func(i int) bool {
		return !p.found[i] && strings.ToLower(p.answers[i]) == guess
	}
	idx := -1
	if p.forced {
		if p.focus < len(p.answers) && match(p.focus) {
			idx = p.focus
		}
	} else {
		for i := range p.answers {
			if match(i) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return false
	}

	p.found[idx] = true
	if name := p.byIDLocked(fmt.Sprintf("name%d", idx)); name != nil {
		name.text = p.answers[idx]
	}
	for p.focus < len(p.found) && p.found[p.focus] {
		p.focus++
	}
	if score := p.byClassLocked("currentScore"); score != nil {
		score.text = p.scoreTextLocked()
	}
	if p.foundLocked() == len(p.answers) {
		p.finishLocked()
	}
	return true
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Navigate(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.url = url
	p.navigations = append(p.navigations, url)
	return nil
}

// Calls counts finder and handle operations performed against the page.
func (p *Page) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Found returns how many answers have been accepted.
func (p *Page) Found() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.foundLocked()
}

// Playing reports whether the play button has been clicked.
func (p *Page) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Navigations lists every URL passed to Navigate.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Node returns the element with the given id, or nil.
func (p *Page) Node(id string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byIDLocked(id)
}

// NodeByClass returns the first element with the given class, or nil.
func (p *Page) NodeByClass(class string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byClassLocked(class)
}

// Remove detaches every element with the given id.
func (p *Page) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.nodes[:0]
	for _, n := range p.nodes {
		if n.id != id {
			kept = append(kept, n)
		}
	}
	p.nodes = kept
}

// SetValidator replaces answer checking: fn receives the submitted value and
// returns what remains in the input afterwards.
func (p *Page) SetValidator(fn func(value string) string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.validate = fn
}

// Finish shows the post game box, as when the timer runs out.
func (p *Page) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *Page) finishLocked() {
	p.playing = false
	if box := p.byIDLocked("postGameBox"); box != nil {
		box.attrs["style"] = ""
	}
}

func (p *Page) foundLocked() int {
	n := 0
	for _, f := range p.found {
		if f {
			n++
		}
	}
	return n
}

func (p *Page) scoreTextLocked() string {
	return fmt.Sprintf("%d/%d", p.foundLocked(), len(p.answers))
}

func (p *Page) contains(el *Element) bool {
	for _, n := range p.nodes {
		if n == el {
			return true
		}
	}
	return false
}

func (p *Page) byIDLocked(id string) *Element {
	for _, n := range p.nodes {
		if n.id == id {
			return n
		}
	}
	return nil
}

func (p *Page) byClassLocked(class string) *Element {
	for _, n := range p.nodes {
		if n.class == class {
			return n
		}
	}
	return nil
}

func (e *Element) Click() error {
	p := e.page
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	e.clicks++
	switch {
	case e.id == "button-play" || e.id == "resumeBtn":
		p.playing = true
	case e.id == "pauseBox":
		p.playing = false
	case e.id == "giveUp":
		p.finishLocked()
	case strings.HasPrefix(e.id, "slot"):
		var n int
		if _, err := fmt.Sscanf(e.id, "slot%d", &n); err == nil {
			p.focus = n
		}
	}
	return nil
}

func (e *Element) Text() (string, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.calls++
	return e.text, nil
}

func (e *Element) Attribute(name string) (string, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.calls++
	return e.attrs[name], nil
}

func (e *Element) Property(name string) (string, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.calls++
	if name == "value" {
		return e.value, nil
	}
	return e.attrs[name], nil
}

func (e *Element) Clear() error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.calls++
	e.value = ""
	return nil
}

func (e *Element) SetLabel(text string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.calls++
	e.text = text
	return nil
}

// Clicks returns how many times the element was clicked.
func (e *Element) Clicks() int {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.clicks
}

// Label returns the element's current text without counting as a page call.
func (e *Element) Label() string {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.text
}

// Value returns the element's current value without counting as a page call.
func (e *Element) Value() string {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.value
}

// SetAttribute overrides an attribute, e.g. to hide or show the post game box.
func (e *Element) SetAttribute(name, value string) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.attrs[name] = value
}

// SetText overrides the element's text, e.g. to corrupt the score display.
func (e *Element) SetText(text string) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.text = text
}
