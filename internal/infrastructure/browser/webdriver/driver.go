// Package webdriver drives a browser over the W3C WebDriver protocol, either
// through a Selenium hub or a locally started chromedriver.
package webdriver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

var _ output.DriverPort = (*Driver)(nil)

var ErrUnsupportedBrowser = errors.New("unsupported browser")

const (
	defaultWidth       = 800
	defaultHeight      = 600
	defaultPageTimeout = 30 * time.Second
)

type Config struct {
	Browser  string
	Headless bool
	Width    int
	Height   int
	Timezone string
	// RemoteURL is the hub address. Empty starts chromedriver locally.
	RemoteURL string
	// ChromeDriverPath defaults to chromedriver on PATH.
	ChromeDriverPath string
	PageLoadTimeout  time.Duration
}

type Driver struct {
	wd      selenium.WebDriver
	service *selenium.Service

	mu     sync.Mutex
	closed bool
}

func New(ctx context.Context, cfg Config) (*Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = defaultWidth, defaultHeight
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = defaultPageTimeout
	}

	caps, err := Capabilities(cfg)
	if err != nil {
		return nil, err
	}

	d := &Driver{}
	executor := cfg.RemoteURL
	if executor == "" {
		if executor, err = d.startChromeDriver(cfg); err != nil {
			return nil, err
		}
	}

	wd, err := selenium.NewRemote(caps, executor)
	if err != nil {
		d.stopService()
		return nil, fmt.Errorf("failed to create webdriver session at %s: %w", executor, err)
	}
	d.wd = wd

	if err := wd.SetPageLoadTimeout(cfg.PageLoadTimeout); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to set page load timeout: %w", err)
	}
	return d, nil
}

// Capabilities builds the session capabilities. Remote sessions also carry
// the Selenium Grid se:* options for video, timezone and screen size.
func Capabilities(cfg Config) (selenium.Capabilities, error) {
	browser := strings.ToLower(strings.TrimSpace(cfg.Browser))
	if browser == "" {
		browser = "chrome"
	}
	caps := selenium.Capabilities{"browserName": browser}

	switch browser {
	case "chrome":
		caps.AddChrome(chromeOptions(cfg))
	case "firefox":
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("%w: firefox needs remote_webdriver_url", ErrUnsupportedBrowser)
		}
		caps.AddFirefox(firefoxOptions(cfg))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBrowser, cfg.Browser)
	}

	if cfg.RemoteURL != "" {
		caps["se:recordVideo"] = "true"
		caps["se:screenResolution"] = fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
		if cfg.Timezone != "" {
			caps["se:timeZone"] = cfg.Timezone
		}
	}
	return caps, nil
}

func chromeOptions(cfg Config) chrome.Capabilities {
	args := []string{
		"--incognito",
		"--no-default-browser-check",
		"--no-first-run",
		"--no-sandbox",
		"--disable-gpu",
		fmt.Sprintf("--window-size=%d,%d", cfg.Width, cfg.Height),
		"--disable-dev-shm-usage",
		"--disable-extensions",
		"--disable-software-rasterizer",
		"--disable-save-password-bubble",
	}
	if cfg.Headless {
		args = append(args, "--headless=new")
	}
	return chrome.Capabilities{
		Args: args,
		// Keeps the password manager from covering the login form.
		Prefs: map[string]interface{}{
			"credentials_enable_service":       false,
			"profile.password_manager_enabled": false,
		},
		W3C: true,
	}
}

func firefoxOptions(cfg Config) firefox.Capabilities {
	args := []string{
		"-private",
		fmt.Sprintf("--width=%d", cfg.Width),
		fmt.Sprintf("--height=%d", cfg.Height),
	}
	if cfg.Headless {
		args = append(args, "-headless")
	}
	return firefox.Capabilities{
		Args: args,
		Prefs: map[string]interface{}{
			"signon.rememberSignons": false,
		},
	}
}

func (d *Driver) startChromeDriver(cfg Config) (string, error) {
	path := cfg.ChromeDriverPath
	if path == "" {
		found, err := exec.LookPath("chromedriver")
		if err != nil {
			return "", fmt.Errorf("chromedriver not found: set remote_webdriver_url or install it: %w", err)
		}
		path = found
	}

	port, err := freePort()
	if err != nil {
		return "", err
	}
	service, err := selenium.NewChromeDriverService(path, port)
	if err != nil {
		return "", fmt.Errorf("failed to start chromedriver: %w", err)
	}
	d.service = service
	return fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port), nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to pick a port for chromedriver: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.wd.Get(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.wd.CurrentURL()
}

func (d *Driver) FindElements(ctx context.Context, loc entity.Locator) ([]output.ElementPort, error) {
	return d.find(ctx, d.wd, loc)
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := d.wd.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return img, nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.wd.PageSource()
}

// Close ends the session and stops a local chromedriver. Safe to call twice.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if d.wd != nil {
		err = d.wd.Quit()
	}
	d.stopService()
	return err
}

func (d *Driver) stopService() {
	if d.service != nil {
		_ = d.service.Stop()
	}
}

type finder interface {
	FindElements(by, value string) ([]selenium.WebElement, error)
}

func (d *Driver) find(ctx context.Context, scope finder, loc entity.Locator) ([]output.ElementPort, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, value, err := w3cLocator(loc)
	if err != nil {
		return nil, err
	}
	found, err := scope.FindElements(by, value)
	if err != nil {
		mapped := mapError(err)
		// Some drivers still answer an empty match with an error.
		if errors.Is(mapped, output.ErrNoSuchElement) {
			return []output.ElementPort{}, nil
		}
		return nil, mapped
	}

	out := make([]output.ElementPort, 0, len(found))
	for _, el := range found {
		out = append(out, &element{driver: d, el: el})
	}
	return out, nil
}

// w3cLocator rewrites the strategies W3C endpoints no longer accept (id, name
// and class name) as CSS selectors.
func w3cLocator(loc entity.Locator) (string, string, error) {
	if loc.Value == "" {
		return "", "", fmt.Errorf("empty locator value for strategy %q", loc.Strategy)
	}

	switch loc.Strategy {
	case entity.ByID:
		return selenium.ByCSSSelector, `[id=` + cssString(loc.Value) + `]`, nil
	case entity.ByName:
		return selenium.ByCSSSelector, `[name=` + cssString(loc.Value) + `]`, nil
	case entity.ByClassName:
		return selenium.ByCSSSelector, "." + strings.Join(strings.Fields(loc.Value), "."), nil
	case entity.ByCSSSelector, entity.ByXPath, entity.ByTagName, entity.ByLinkText:
		return string(loc.Strategy), loc.Value, nil
	default:
		return "", "", fmt.Errorf("unsupported locator strategy %q", loc.Strategy)
	}
}

func cssString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
