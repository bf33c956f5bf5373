// Package browser drives a real Firefox through playwright and exposes the
// open tab as a page.Finder.
package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"sporcle-bot/internal/logging"
	"sporcle-bot/internal/page"
)

const submitScript = `(el, v) => { el.value = v; checkGameInput(el); }`

type Options struct {
	// Profile is the Firefox profile directory, so logins and cookies persist.
	Profile   string
	StartPage string
	Headless  bool
}

// Driver owns the playwright process, the persistent browser context and the
// tab the quiz is played in.
type Driver struct {
	log *logging.Logger

	mu        sync.Mutex
	pw        *playwright.Playwright
	context   playwright.BrowserContext
	tab       playwright.Page
	closeOnce sync.Once
}

// Launch installs the browser if needed, starts it on the profile and opens
// the start page.
func Launch(opts Options, log *logging.Logger) (*Driver, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{"firefox"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	bctx, err := pw.Firefox.LaunchPersistentContext(opts.Profile, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch firefox: %w", err)
	}

	var tab playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		tab = pages[0]
	} else if tab, err = bctx.NewPage(); err != nil {
		bctx.Close()
		pw.Stop()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	d := &Driver{log: log, pw: pw, context: bctx, tab: tab}
	if opts.StartPage != "" {
		if err := d.Navigate(opts.StartPage); err != nil {
			d.Close()
			return nil, err
		}
	}
	log.Infof("firefox started with profile %q", opts.Profile)
	return d, nil
}

func (d *Driver) FindByID(id string) ([]page.Handle, error) {
	return d.query(selector(page.ByID, id))
}

func (d *Driver) FindByClass(class string) ([]page.Handle, error) {
	return d.query(selector(page.ByClass, class))
}

func (d *Driver) query(sel string) ([]page.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	els, err := d.tab.QuerySelectorAll(sel)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, err)
	}
	out := make([]page.Handle, 0, len(els))
	for _, el := range els {
		out = append(out, &handle{el: el})
	}
	return out, nil
}

// SubmitGuess sets the input value and runs the site's own answer check in a
// single script call, so no keystrokes are involved.
func (d *Driver) SubmitGuess(input page.Handle, text string) error {
	h, ok := input.(*handle)
	if !ok {
		return fmt.Errorf("submit guess: handle %T not from this browser", input)
	}
	if _, err := h.el.Evaluate(submitScript, text); err != nil {
		return fmt.Errorf("submit guess: %w", err)
	}
	return nil
}

func (d *Driver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab.URL()
}

func (d *Driver) Navigate(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.tab.Goto(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	d.log.Infof("navigated to %s", url)
	return nil
}

// Close shuts the browser and the playwright driver down.
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if cerr := d.context.Close(); cerr != nil {
			err = fmt.Errorf("close browser: %w", cerr)
		}
		if serr := d.pw.Stop(); serr != nil && err == nil {
			err = fmt.Errorf("stop playwright: %w", serr)
		}
	})
	return err
}

func selector(strategy page.Strategy, value string) string {
	if strategy == page.ByClass {
		return "." + value
	}
	return "#" + value
}

type handle struct {
	el playwright.ElementHandle
}

func (h *handle) Click() error {
	return h.el.Click()
}

func (h *handle) Text() (string, error) {
	return h.el.TextContent()
}

// Attribute reads an HTML attribute; an absent attribute reads as "".
func (h *handle) Attribute(name string) (string, error) {
	return h.el.GetAttribute(name)
}

// Property reads a live DOM property such as an input's current value.
func (h *handle) Property(name string) (string, error) {
	v, err := h.el.Evaluate(`(el, name) => el[name]`, name)
	if err != nil {
		return "", err
	}
	return propertyString(v), nil
}

func (h *handle) Clear() error {
	return h.el.Fill("")
}

func (h *handle) SetLabel(text string) error {
	_, err := h.el.Evaluate(`(el, t) => { el.innerHTML = t; }`, text)
	return err
}

func propertyString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
