// Package outputtest provides in-memory implementations of the driver ports
// for tests that must not start a real browser.
package outputtest

import (
	"context"
	"sync"
	"time"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

var (
	_ output.DriverPort  = (*Driver)(nil)
	_ output.ElementPort = (*Element)(nil)
)

// Element is a scripted DOM node. The zero value is visible, enabled and
// interactable.
type Element struct {
	mu sync.Mutex

	Value     string
	Hidden    bool
	Disabled  bool
	Covered   bool
	Stale     bool
	ClickErr  error
	SendErr   error
	ClearErr  error
	OnClick   func()
	Children  map[entity.Locator][]*Element
	clicks    int
	finds     int
	textValue string
}

func NewElement(text string) *Element {
	return &Element{textValue: text, Children: map[entity.Locator][]*Element{}}
}

// WithChild registers children under loc and returns e for chaining.
func (e *Element) WithChild(loc entity.Locator, children ...*Element) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Children == nil {
		e.Children = map[entity.Locator][]*Element{}
	}
	e.Children[loc] = append(e.Children[loc], children...)
	return e
}

func (e *Element) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.textValue = text
}

// Update mutates e under its lock, for changes made while a wait is polling.
func (e *Element) Update(fn func(e *Element)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e)
}

func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Finds counts child lookups made through this element.
func (e *Element) Finds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finds
}

func (e *Element) FindElements(_ context.Context, loc entity.Locator) ([]output.ElementPort, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finds++
	if e.Stale {
		return nil, output.ErrStaleElement
	}
	return ports(e.Children[loc]), nil
}

func (e *Element) Text(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Stale {
		return "", output.ErrStaleElement
	}
	if e.Hidden {
		return "", nil
	}
	return e.textValue, nil
}

func (e *Element) Displayed(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Stale {
		return false, output.ErrStaleElement
	}
	return !e.Hidden, nil
}

func (e *Element) Enabled(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Stale {
		return false, output.ErrStaleElement
	}
	return !e.Disabled, nil
}

func (e *Element) Interactable(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Stale {
		return output.ErrStaleElement
	}
	if e.Covered {
		return output.ErrNotInteractable
	}
	return nil
}

func (e *Element) Clear(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ClearErr != nil {
		return e.ClearErr
	}
	e.Value = ""
	return nil
}

func (e *Element) SendKeys(_ context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.SendErr != nil {
		return e.SendErr
	}
	e.Value += text
	return nil
}

func (e *Element) Click(context.Context) error {
	e.mu.Lock()
	if e.ClickErr != nil {
		e.mu.Unlock()
		return e.ClickErr
	}
	e.clicks++
	onClick := e.OnClick
	e.mu.Unlock()

	if onClick != nil {
		onClick()
	}
	return nil
}

// Driver is a scripted browser session. Elements registered with Delay become
// visible to lookups only after that many FindElements calls for the locator.
type Driver struct {
	mu sync.Mutex

	URL         string
	NavigateErr error
	FindErr     error
	CloseErr    error
	Redirects   map[string]string
	Shot        []byte
	Source      string
	// LoadTime delays Navigate unless the context ends first.
	LoadTime    time.Duration

	elements map[entity.Locator][]*Element
	delays   map[entity.Locator]int
	lookups  map[entity.Locator]int
	closed   int
}

func NewDriver() *Driver {
	return &Driver{
		URL:       "about:blank",
		Redirects: map[string]string{},
		elements:  map[entity.Locator][]*Element{},
		delays:    map[entity.Locator]int{},
		lookups:   map[entity.Locator]int{},
	}
}

func (d *Driver) Add(loc entity.Locator, elements ...*Element) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[loc] = append(d.elements[loc], elements...)
	return d
}

// Remove drops every element registered under loc.
func (d *Driver) Remove(loc entity.Locator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.elements, loc)
}

func (d *Driver) Delay(loc entity.Locator, lookups int) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delays[loc] = lookups
	return d
}

func (d *Driver) Lookups(loc entity.Locator) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups[loc]
}

func (d *Driver) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Driver) FindElements(_ context.Context, loc entity.Locator) ([]output.ElementPort, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups[loc]++
	if d.FindErr != nil {
		return nil, d.FindErr
	}
	if d.lookups[loc] <= d.delays[loc] {
		return []output.ElementPort{}, nil
	}
	return ports(d.elements[loc]), nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	load := d.LoadTime
	d.mu.Unlock()
	if load > 0 {
		select {
		case <-time.After(load):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	if target, ok := d.Redirects[url]; ok {
		url = target
	}
	d.URL = url
	return nil
}

func (d *Driver) CurrentURL(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.URL, nil
}

func (d *Driver) Screenshot(context.Context) ([]byte, error) {
	return d.Shot, nil
}

func (d *Driver) PageSource(context.Context) (string, error) {
	return d.Source, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return d.CloseErr
}

func ports(elements []*Element) []output.ElementPort {
	out := make([]output.ElementPort, 0, len(elements))
	for _, el := range elements {
		out = append(out, el)
	}
	return out
}
