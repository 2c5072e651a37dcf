package rod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

var _ output.DriverPort = (*Driver)(nil)

// ErrUnsupportedBrowser is returned for browsers CDP cannot drive.
var ErrUnsupportedBrowser = errors.New("unsupported browser")

const (
	defaultWidth      = 800
	defaultHeight     = 600
	defaultTimezone   = "Europe/London"
	screenshotQuality = 80
)

type Config struct {
	Browser  string
	Headless bool
	Width    int
	Height   int
	// RemoteURL is a CDP endpoint (ws:// or http://host:port). Empty launches
	// a local browser.
	RemoteURL string
	Timezone  string
	NoSandbox bool
}

func DefaultConfig() Config {
	return Config{
		Browser:   "chrome",
		Width:     defaultWidth,
		Height:    defaultHeight,
		Timezone:  defaultTimezone,
		NoSandbox: true,
	}
}

// Driver is a DriverPort over a single incognito page.
type Driver struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page

	mu     sync.Mutex
	closed bool
}

func New(ctx context.Context, cfg Config) (*Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkBrowser(cfg.Browser); err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = defaultWidth, defaultHeight
	}

	d := &Driver{}
	controlURL, err := d.controlURL(cfg)
	if err != nil {
		return nil, err
	}

	root := rod.New().ControlURL(controlURL)
	if err := root.Connect(); err != nil {
		d.kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	d.browser = root

	incognito, err := root.Incognito()
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to open incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	d.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.Width,
		Height:            cfg.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}
	if cfg.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: cfg.Timezone}).Call(page); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed to set timezone %q: %w", cfg.Timezone, err)
		}
	}
	return d, nil
}

func (d *Driver) controlURL(cfg Config) (string, error) {
	if cfg.RemoteURL != "" {
		u, err := launcher.ResolveURL(cfg.RemoteURL)
		if err != nil {
			return "", fmt.Errorf("failed to resolve remote browser %s: %w", cfg.RemoteURL, err)
		}
		return u, nil
	}

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-software-rasterizer").
		Set("disable-extensions").
		Set("disable-save-password-bubble").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.Width, cfg.Height))

	u, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	d.launcher = l
	return u, nil
}

func checkBrowser(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "chrome":
		return nil
	default:
		return fmt.Errorf("%w: %s (use the webdriver driver)", ErrUnsupportedBrowser, name)
	}
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	page := d.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("page did not load: %w", err)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

func (d *Driver) FindElements(ctx context.Context, loc entity.Locator) ([]output.ElementPort, error) {
	return findIn(loc, d.page.Context(ctx))
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	img, err := d.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(screenshotQuality),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return img, nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	html, err := d.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// Close is safe to call more than once.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if d.browser != nil {
		err = d.browser.Close()
	}
	d.kill()
	return err
}

func (d *Driver) kill() {
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher.Cleanup()
	}
}

// query is what pages and elements share for multi-element lookups.
type query interface {
	Elements(selector string) (rod.Elements, error)
	ElementsX(xpath string) (rod.Elements, error)
}

func findIn(loc entity.Locator, q query) ([]output.ElementPort, error) {
	sel, err := toSelector(loc)
	if err != nil {
		return nil, err
	}

	var found rod.Elements
	if sel.xpath {
		found, err = q.ElementsX(sel.value)
	} else {
		found, err = q.Elements(sel.value)
	}
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]output.ElementPort, 0, len(found))
	for _, el := range found {
		out = append(out, &element{el: el})
	}
	return out, nil
}

type element struct {
	el *rod.Element
}

func (e *element) FindElements(ctx context.Context, loc entity.Locator) ([]output.ElementPort, error) {
	return findIn(loc, e.el.Context(ctx))
}

func (e *element) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	return text, mapError(err)
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	visible, err := e.el.Context(ctx).Visible()
	return visible, mapError(err)
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	disabled, err := e.el.Context(ctx).Property("disabled")
	if err != nil {
		return false, mapError(err)
	}
	return !disabled.Bool(), nil
}

func (e *element) Interactable(ctx context.Context) error {
	_, err := e.el.Context(ctx).Interactable()
	return mapError(err)
}

func (e *element) Clear(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return mapError(err)
	}
	return mapError(el.Input(""))
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return mapError(e.el.Context(ctx).Input(text))
}

func (e *element) Click(ctx context.Context) error {
	return mapError(e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}
