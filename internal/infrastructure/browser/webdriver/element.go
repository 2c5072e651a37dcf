package webdriver

import (
	"context"
	"errors"
	"strings"

	"github.com/tebeka/selenium"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

// hitTestScript reports whether the element's center point hits the element
// itself. Off-screen elements pass: Click scrolls them into view first.
const hitTestScript = `
var el = arguments[0];
var r = el.getBoundingClientRect();
if (r.width === 0 || r.height === 0) { return false; }
var top = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
return top === null || top === el || el.contains(top);
`

type element struct {
	driver *Driver
	el     selenium.WebElement
}

func (e *element) FindElements(ctx context.Context, loc entity.Locator) ([]output.ElementPort, error) {
	return e.driver.find(ctx, e.el, loc)
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.el.Text()
	return text, mapError(err)
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.el.IsDisplayed()
	return ok, mapError(err)
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.el.IsEnabled()
	return ok, mapError(err)
}

func (e *element) Interactable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := e.driver.wd.ExecuteScript(hitTestScript, []interface{}{e.el})
	if err != nil {
		return mapError(err)
	}
	if hit, ok := res.(bool); ok && !hit {
		return output.ErrNotInteractable
	}
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.el.Clear())
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.el.SendKeys(text))
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.el.Click())
}

// errorKinds maps W3C error codes to the driver-neutral sentinels. Legacy
// JSON-wire servers report the same strings as plain messages.
var errorKinds = []struct {
	code string
	kind error
}{
	{"no such element", output.ErrNoSuchElement},
	{"stale element reference", output.ErrStaleElement},
	{"element click intercepted", output.ErrNotInteractable},
	{"element not interactable", output.ErrNotInteractable},
	{"element not visible", output.ErrNotInteractable},
	{"invalid element state", output.ErrNotInteractable},
}

type driverError struct {
	kind error
	err  error
}

func (e *driverError) Error() string {
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *driverError) Unwrap() []error {
	return []error{e.kind, e.err}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	code := err.Error()
	var wdErr *selenium.Error
	if errors.As(err, &wdErr) {
		code = wdErr.Err
	}
	for _, k := range errorKinds {
		if strings.HasPrefix(code, k.code) {
			return &driverError{kind: k.kind, err: err}
		}
	}
	return err
}
