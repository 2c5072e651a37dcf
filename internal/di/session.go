// Package di wires the per-scenario object graph: the browser session with
// its page objects and the API services.
package di

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/input"
	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/application/service"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/api/airportgap"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/api/crud"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/browser/rod"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/browser/webdriver"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/config"
	"github.com/svarogrud/ctrlup-aht/internal/usecase/pages"
)

var ErrSessionClosed = errors.New("session is closed")

// DriverFactory starts a browser for cfg.
type DriverFactory func(ctx context.Context, cfg *config.Config) (output.DriverPort, error)

// Session owns everything one scenario touches. The browser is launched on
// first use and reused afterwards; API services are built on first use too.
type Session struct {
	cfg       *config.Config
	logger    output.LoggerPort
	newDriver DriverFactory

	mu         sync.Mutex
	closed     bool
	browser    *service.Browser
	pages      *pages.Pages
	airportGap input.AirportGap
}

type Option func(*Session)

func WithDriverFactory(f DriverFactory) Option {
	return func(s *Session) { s.newDriver = f }
}

func NewSession(cfg *config.Config, logger output.LoggerPort, opts ...Option) *Session {
	s := &Session{
		cfg:       cfg,
		logger:    logger.Named("session"),
		newDriver: NewDriver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Browser returns the session browser, starting it if needed.
func (s *Session) Browser(ctx context.Context) (*service.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browserLocked(ctx)
}

func (s *Session) browserLocked(ctx context.Context) (*service.Browser, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.browser != nil {
		return s.browser, nil
	}

	s.logger.Info("Starting browser", "driver", s.cfg.Driver, "browser", s.cfg.Browser, "headless", s.cfg.Headless)
	driver, err := s.newDriver(ctx, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	browserCfg := service.DefaultBrowserConfig()
	browserCfg.GlobalTimeout = s.cfg.Timeout()
	s.browser = service.NewBrowser(driver, s.logger, browserCfg)
	s.pages = pages.New(s.browser)
	return s.browser, nil
}

func (s *Session) Navigator(ctx context.Context) (input.Navigator, error) {
	b, err := s.Browser(ctx)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Pages returns the page objects bound to the session browser.
func (s *Session) Pages(ctx context.Context) (*pages.Pages, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.browserLocked(ctx); err != nil {
		return nil, err
	}
	return s.pages, nil
}

// Driver is the live driver, or nil when no browser was started.
func (s *Session) Driver() output.DriverPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil || s.closed {
		return nil
	}
	return s.browser.Driver()
}

func (s *Session) AirportGap() (input.AirportGap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.airportGap != nil {
		return s.airportGap, nil
	}

	svc := s.cfg.AirportGap
	client, err := crud.New(crud.ServiceConfig{
		ServiceURL: svc.ServiceURL,
		Token:      svc.Token.String,
		Timeout:    svc.Timeout,
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create airportgap client: %w", err)
	}
	s.airportGap = airportgap.New(client, s.logger)
	return s.airportGap, nil
}

// Close quits the browser if one was started. It is safe to call more than
// once and never fails: teardown problems are logged.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if s.browser != nil {
		s.browser.Quit()
	}
	s.browser, s.pages, s.airportGap = nil, nil, nil
}

// NewDriver starts the driver named by cfg.Driver.
func NewDriver(ctx context.Context, cfg *config.Config) (output.DriverPort, error) {
	width, height := cfg.Resolution()

	switch cfg.Driver {
	case config.DriverWebDriver:
		return webdriver.New(ctx, webdriver.Config{
			Browser:   cfg.Browser,
			Headless:  cfg.Headless,
			Width:     width,
			Height:    height,
			Timezone:  cfg.Timezone,
			RemoteURL: cfg.RemoteWebdriverURL.String,
		})
	case config.DriverRod:
		rodCfg := rod.DefaultConfig()
		rodCfg.Browser = cfg.Browser
		rodCfg.Headless = cfg.Headless
		rodCfg.Width, rodCfg.Height = width, height
		rodCfg.Timezone = cfg.Timezone
		rodCfg.RemoteURL = cfg.RemoteWebdriverURL.String
		return rod.New(ctx, rodCfg)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
