package rod

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

type selector struct {
	value string
	xpath bool
}

// toSelector turns a WebDriver-style locator into a CSS selector or an XPath
// expression rod can evaluate.
func toSelector(loc entity.Locator) (selector, error) {
	if loc.Value == "" {
		return selector{}, fmt.Errorf("empty locator value for strategy %q", loc.Strategy)
	}

	switch loc.Strategy {
	case entity.ByCSSSelector:
		return selector{value: loc.Value}, nil
	case entity.ByXPath:
		return selector{value: loc.Value, xpath: true}, nil
	case entity.ByID:
		return selector{value: `[id=` + cssString(loc.Value) + `]`}, nil
	case entity.ByName:
		return selector{value: `[name=` + cssString(loc.Value) + `]`}, nil
	case entity.ByClassName:
		return selector{value: "." + strings.Join(strings.Fields(loc.Value), ".")}, nil
	case entity.ByTagName:
		return selector{value: loc.Value}, nil
	case entity.ByLinkText:
		return selector{value: `//a[normalize-space(.)=` + xpathString(loc.Value) + `]`, xpath: true}, nil
	default:
		return selector{}, fmt.Errorf("unsupported locator strategy %q", loc.Strategy)
	}
}

func cssString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func xpathString(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = `"` + p + `"`
	}
	return `concat(` + strings.Join(quoted, `, '"', `) + `)`
}

// mapError wraps rod and CDP failures with the driver-neutral sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var (
		notFound  *rod.ElementNotFoundError
		gone      *rod.ObjectNotFoundError
		covered   *rod.CoveredError
		invisible *rod.InvisibleShapeError
		noPointer *rod.NoPointerEventsError
		notInter  *rod.NotInteractableError
		cdpErr    *cdp.Error
	)
	switch {
	case errors.As(err, &notFound):
		return &driverError{kind: output.ErrNoSuchElement, err: err}
	case errors.As(err, &gone):
		return &driverError{kind: output.ErrStaleElement, err: err}
	case errors.As(err, &covered), errors.As(err, &invisible),
		errors.As(err, &noPointer), errors.As(err, &notInter):
		return &driverError{kind: output.ErrNotInteractable, err: err}
	case errors.As(err, &cdpErr) && isDetached(cdpErr.Message):
		return &driverError{kind: output.ErrStaleElement, err: err}
	default:
		return err
	}
}

// driverError tags a rod error with a sentinel. The message is built only
// when asked for: some rod errors render the element they refer to.
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

func isDetached(msg string) bool {
	return strings.Contains(msg, "Could not find node") ||
		strings.Contains(msg, "does not belong to the document") ||
		strings.Contains(msg, "Cannot find context with specified id")
}
