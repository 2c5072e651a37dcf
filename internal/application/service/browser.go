package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/utils"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/input"
	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

var _ input.Navigator = (*Browser)(nil)

const (
	defaultGlobalTimeout   = 5 * time.Second
	defaultPageLoadTimeout = 30 * time.Second
	defaultPollInterval    = 100 * time.Millisecond
	defaultMaxPollInterval = 500 * time.Millisecond
)

type BrowserConfig struct {
	// GlobalTimeout bounds every wait that is given a timeout <= 0.
	GlobalTimeout   time.Duration
	// PageLoadTimeout bounds Open, navigation included.
	PageLoadTimeout time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration
}

func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		GlobalTimeout:   defaultGlobalTimeout,
		PageLoadTimeout: defaultPageLoadTimeout,
		PollInterval:    defaultPollInterval,
		MaxPollInterval: defaultMaxPollInterval,
	}
}

// Browser is the wait-bounded element interaction layer. Every lookup polls the
// driver until its condition holds or the timeout elapses. Apart from
// FindVisible, no method returns an error: failures come back as false, an
// empty slice or an empty string and are logged at debug level.
type Browser struct {
	driver output.DriverPort
	logger output.LoggerPort
	cfg    BrowserConfig
}

func NewBrowser(driver output.DriverPort, logger output.LoggerPort, cfg BrowserConfig) *Browser {
	if cfg.GlobalTimeout <= 0 {
		cfg.GlobalTimeout = defaultGlobalTimeout
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = defaultPageLoadTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = cfg.PollInterval
	}
	return &Browser{
		driver: driver,
		logger: logger.Named("browser"),
		cfg:    cfg,
	}
}

func (b *Browser) Driver() output.DriverPort {
	return b.driver
}

// Open navigates to url and reports whether the browser ended up there.
func (b *Browser) Open(ctx context.Context, url string) bool {
	ctx, cancel := b.bound(ctx, b.cfg.PageLoadTimeout)
	defer cancel()

	if err := b.driver.Navigate(ctx, url); err != nil {
		b.logger.Error("Failed to open page", "url", url, "error", err)
		return false
	}
	current, err := b.driver.CurrentURL(ctx)
	if err != nil {
		b.logger.Error("Failed to read current URL", "url", url, "error", err)
		return false
	}
	return strings.Trim(current, "/") == strings.Trim(url, "/")
}

func (b *Browser) CurrentURL(ctx context.Context) string {
	current, err := b.driver.CurrentURL(ctx)
	if err != nil {
		b.logger.Debug("Failed to read current URL", "error", err)
		return ""
	}
	return current
}

// IsPresent reports whether at least one node matches loc within timeout.
func (b *Browser) IsPresent(ctx context.Context, loc entity.Locator, timeout time.Duration) bool {
	ctx, cancel := b.bound(ctx, timeout)
	defer cancel()

	if _, err := b.waitAll(ctx, "presence", b.driver, loc); err != nil {
		b.logger.Debug("Element not found", "locator", loc.String(), "error", err)
		return false
	}
	return true
}

// FindAll returns every node matching loc once at least one exists, or an
// empty slice on timeout.
func (b *Browser) FindAll(ctx context.Context, loc entity.Locator, timeout time.Duration) []output.ElementPort {
	ctx, cancel := b.bound(ctx, timeout)
	defer cancel()

	elements, err := b.waitAll(ctx, "find all", b.driver, loc)
	if err != nil {
		b.logger.Debug("Failed to find elements", "locator", loc.String(), "error", err)
		return []output.ElementPort{}
	}
	return elements
}

// FindVisible waits for the first node matching loc to become visible.
// Unlike the other lookups it returns the failure: callers use it when an
// absent element must fail loudly.
func (b *Browser) FindVisible(ctx context.Context, loc entity.Locator, timeout time.Duration) (output.ElementPort, error) {
	ctx, cancel := b.bound(ctx, timeout)
	defer cancel()

	return b.waitVisible(ctx, "find visible", b.driver, loc)
}

// EnterText replaces the content of the visible field matched by loc.
func (b *Browser) EnterText(ctx context.Context, loc entity.Locator, text string, timeout time.Duration) bool {
	ctx, cancel := b.bound(ctx, timeout)
	defer cancel()

	el, err := b.waitVisible(ctx, "enter text", b.driver, loc)
	if err == nil {
		err = el.Clear(ctx)
	}
	if err == nil {
		err = el.SendKeys(ctx, text)
	}
	if err != nil {
		b.logger.Debug("Failed to enter text", "text", text, "locator", loc.String(),
			"kind", classify(err), "error", err)
		return false
	}
	return true
}

func (b *Browser) ReadText(ctx context.Context, loc entity.Locator, timeout time.Duration) string {
	ctx, cancel := b.bound(ctx, timeout)
	defer cancel()

	el, err := b.waitVisible(ctx, "read text", b.driver, loc)
	if err != nil {
		b.logger.Debug("Failed to get text", "locator", loc.String(), "error", err)
		return ""
	}
	text, err := el.Text(ctx)
	if err != nil {
		b.logger.Debug("Failed to get text", "locator", loc.String(), "kind", classify(err), "error", err)
		return ""
	}
	return text
}

// Click waits until the element is visible, enabled and not covered, then clicks it.
func (b *Browser) Click(ctx context.Context, loc entity.Locator, timeout time.Duration) bool {
	if err := b.click(ctx, b.driver, loc, timeout); err != nil {
		b.logger.Debug("Failed to click element", "locator", loc.String(), "error", err)
		return false
	}
	return true
}

// TextWithin reads the text of the first node matching loc inside parent.
// The parent is assumed rendered, so there is no wait.
func (b *Browser) TextWithin(ctx context.Context, parent output.ElementPort, loc entity.Locator) (string, error) {
	ctx, cancel := b.bound(ctx, 0)
	defer cancel()

	elements, err := parent.FindElements(ctx, loc)
	if err != nil {
		return "", b.fail("text within", loc, err)
	}
	if len(elements) == 0 {
		return "", &entity.InteractionError{Op: "text within", Locator: loc, Kind: entity.FailureNotFound, Err: output.ErrNoSuchElement}
	}
	text, err := elements[0].Text(ctx)
	if err != nil {
		return "", b.fail("text within", loc, err)
	}
	return text, nil
}

// ClickWithin clicks the first clickable node matching loc inside parent.
func (b *Browser) ClickWithin(ctx context.Context, parent output.ElementPort, loc entity.Locator, timeout time.Duration) error {
	return b.click(ctx, parent, loc, timeout)
}

// Quit closes the session. Failures are logged, never returned, so teardown
// cannot mask the scenario result.
func (b *Browser) Quit() {
	if err := b.driver.Close(); err != nil {
		b.logger.Error("Failed to quit browser", "error", err)
	}
}

func (b *Browser) click(ctx context.Context, scope output.SearchContext, loc entity.Locator, timeout time.Duration) error {
	ctx, cancel := b.bound(ctx, timeout)
	defer cancel()

	var target output.ElementPort
	err := b.poll(ctx, func(ctx context.Context) (bool, error) {
		el, err := first(ctx, scope, loc)
		if err != nil || el == nil {
			return false, err
		}
		if ok, err := el.Displayed(ctx); err != nil || !ok {
			return false, err
		}
		if ok, err := el.Enabled(ctx); err != nil || !ok {
			return false, err
		}
		if err := el.Interactable(ctx); err != nil {
			return false, err
		}
		target = el
		return true, nil
	})
	if err != nil {
		return b.fail("click", loc, err)
	}
	if err := target.Click(ctx); err != nil {
		return b.fail("click", loc, err)
	}
	return nil
}

func (b *Browser) waitAll(ctx context.Context, op string, scope output.SearchContext, loc entity.Locator) ([]output.ElementPort, error) {
	var found []output.ElementPort
	err := b.poll(ctx, func(ctx context.Context) (bool, error) {
		elements, err := scope.FindElements(ctx, loc)
		if err != nil {
			return false, err
		}
		found = elements
		return len(elements) > 0, nil
	})
	if err != nil {
		return nil, b.fail(op, loc, err)
	}
	return found, nil
}

func (b *Browser) waitVisible(ctx context.Context, op string, scope output.SearchContext, loc entity.Locator) (output.ElementPort, error) {
	var visible output.ElementPort
	err := b.poll(ctx, func(ctx context.Context) (bool, error) {
		el, err := first(ctx, scope, loc)
		if err != nil || el == nil {
			return false, err
		}
		ok, err := el.Displayed(ctx)
		if err != nil || !ok {
			return false, err
		}
		visible = el
		return true, nil
	})
	if err != nil {
		return nil, b.fail(op, loc, err)
	}
	return visible, nil
}

// poll evaluates cond until it holds or ctx is done. Lookup-related driver
// errors are retried; anything else ends the wait at once. On timeout the
// last retried error is returned if there was one.
func (b *Browser) poll(ctx context.Context, cond func(ctx context.Context) (bool, error)) error {
	sleeper := utils.BackoffSleeper(b.cfg.PollInterval, b.cfg.MaxPollInterval, func(d time.Duration) time.Duration {
		return d * 2
	})

	var lastErr, fatal error
	err := utils.Retry(ctx, sleeper, func() (bool, error) {
		done, err := cond(ctx)
		switch {
		case err == nil:
			return done, nil
		case retryable(err):
			lastErr = err
			return false, nil
		default:
			fatal = err
			return true, err
		}
	})
	if fatal != nil {
		return fatal
	}
	if err != nil && lastErr != nil && !isContextErr(lastErr) {
		return errors.Join(err, lastErr)
	}
	return err
}

func (b *Browser) bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = b.cfg.GlobalTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (b *Browser) fail(op string, loc entity.Locator, err error) error {
	var ie *entity.InteractionError
	if errors.As(err, &ie) {
		return err
	}
	return &entity.InteractionError{Op: op, Locator: loc, Kind: classify(err), Err: err}
}

func first(ctx context.Context, scope output.SearchContext, loc entity.Locator) (output.ElementPort, error) {
	elements, err := scope.FindElements(ctx, loc)
	if err != nil || len(elements) == 0 {
		return nil, err
	}
	return elements[0], nil
}

func retryable(err error) bool {
	return errors.Is(err, output.ErrNoSuchElement) ||
		errors.Is(err, output.ErrStaleElement) ||
		errors.Is(err, output.ErrNotInteractable) ||
		isContextErr(err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// classify maps an error to a failure kind. A wait that ran out after seeing
// a blocked or stale element reports that cause rather than a bare timeout.
func classify(err error) entity.FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, output.ErrNotInteractable):
		return entity.FailureBlocked
	case errors.Is(err, output.ErrStaleElement):
		return entity.FailureStale
	case isContextErr(err):
		return entity.FailureTimeout
	case errors.Is(err, output.ErrNoSuchElement):
		return entity.FailureNotFound
	default:
		return entity.FailureDriver
	}
}
