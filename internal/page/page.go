package page

import (
	"fmt"
	"strings"
	"unicode"

	"sporcle-bot/internal/domain"
	"sporcle-bot/internal/logging"
)

// Handle is a located element of the quiz document.
type Handle interface {
	Click() error
	Text() (string, error)
	// Attribute returns the attribute value; an absent attribute reads as "".
	Attribute(name string) (string, error)
	Property(name string) (string, error)
	Clear() error
	// SetLabel replaces the element's inner markup with text.
	SetLabel(text string) error
}

// Finder is the document backend: one lookup method per Strategy plus the
// guess primitive. Implementations return domain errors, never panic.
type Finder interface {
	FindByID(id string) ([]Handle, error)
	FindByClass(class string) ([]Handle, error)
	// SubmitGuess sets the input's value and runs the page's validation in one
	// synchronous call.
	SubmitGuess(input Handle, text string) error
	URL() string
	Navigate(url string) error
}

// Page resolves logical elements through the descriptor table and turns
// finder failures into existence checks and boolean results.
type Page struct {
	finder Finder
	log    *logging.Logger
}

func New(finder Finder, log *logging.Logger) *Page {
	return &Page{finder: finder, log: log}
}

func (p *Page) find(el Element, index int) ([]Handle, error) {
	d, ok := el.Lookup(index)
	if !ok {
		return nil, fmt.Errorf("%s: %w", el, domain.ErrUnknownElement)
	}
	switch d.Strategy {
	case ByID:
		return p.finder.FindByID(d.Template)
	case ByClass:
		return p.finder.FindByClass(d.Template)
	default:
		return nil, fmt.Errorf("%s: unsupported lookup strategy %d", el, d.Strategy)
	}
}

// Has reports whether el (at index, for indexed elements) is on the page.
func (p *Page) Has(el Element, index int) bool {
	handles, err := p.find(el, index)
	if err != nil {
		p.log.Debugf("lookup %s[%d] failed: %v", el, index, err)
		return false
	}
	return len(handles) > 0
}

// Get returns the first match for el. Callers check Has first; a miss is
// reported as domain.ErrElementNotFound.
func (p *Page) Get(el Element, index int) (Handle, error) {
	handles, err := p.find(el, index)
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("%s[%d]: %w", el, index, domain.ErrElementNotFound)
	}
	return handles[0], nil
}

// SubmitGuess sanitizes text and submits it through the guess input.
// It returns false if the input is missing or the submission failed.
func (p *Page) SubmitGuess(text string) bool {
	text = Sanitize(text)
	if !p.Has(GuessInput, 0) {
		return false
	}
	input, err := p.Get(GuessInput, 0)
	if err != nil {
		p.log.Warnf("guess input vanished: %v", err)
		return false
	}
	if err := p.finder.SubmitGuess(input, text); err != nil {
		p.log.Errorf("submit guess: %v", err)
		return false
	}
	return true
}

func (p *Page) URL() string {
	return p.finder.URL()
}

func (p *Page) Navigate(url string) error {
	if err := p.finder.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Sanitize keeps letters, digits and spaces; everything else is dropped.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == ' ' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
