// Package config loads the run configuration: a YAML file whose every key is
// optional, overridden by AHT_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. AHT_HEADLESS or
// AHT_AIRPORTGAP_TOKEN.
const EnvPrefix = "AHT"

var ErrInvalidConfig = errors.New("invalid config")

const (
	DriverRod       = "rod"
	DriverWebDriver = "webdriver"
)

var resolutionPattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

type Config struct {
	LogsDir            string      `yaml:"logs_dir" split_words:"true"`
	LogLevel           string      `yaml:"log_level" split_words:"true"`
	Browser            string      `yaml:"browser" split_words:"true"`
	Driver             string      `yaml:"driver" split_words:"true"`
	RemoteWebdriverURL null.String `yaml:"remote_webdriver_url" split_words:"true"`
	ScreenResolution   string      `yaml:"screen_resolution" split_words:"true"`
	// GlobalTimeout is in seconds.
	GlobalTimeout float64 `yaml:"global_timeout" split_words:"true"`
	Headless      bool    `yaml:"headless" split_words:"true"`
	Artifacts     bool    `yaml:"artifacts" split_words:"true"`
	Timezone      string  `yaml:"timezone" split_words:"true"`

	// The explicit name keeps the prefix AHT_AIRPORTGAP_; leaf fields carry no
	// envconfig tag so unprefixed variables such as BROWSER are never read.
	AirportGap Service `yaml:"airportgap_data" envconfig:"AIRPORTGAP"`
}

type Service struct {
	ServiceURL string        `yaml:"service_url" split_words:"true"`
	Token      null.String   `yaml:"token" split_words:"true"`
	Timeout    time.Duration `yaml:"timeout" split_words:"true"`
}

func Default() Config {
	return Config{
		LogsDir:          "/tmp",
		LogLevel:         "info",
		Browser:          "chrome",
		Driver:           DriverRod,
		ScreenResolution: "800x600",
		GlobalTimeout:    5,
		Artifacts:        true,
		Timezone:         "Europe/London",
		AirportGap: Service{
			ServiceURL: "https://airportgap.com",
			Timeout:    30 * time.Second,
		},
	}
}

// Load reads path (an empty path means defaults only), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes a YAML document over the defaults without consulting the
// environment.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	c.Browser = strings.ToLower(strings.TrimSpace(c.Browser))
	switch c.Browser {
	case "chrome", "firefox":
	default:
		add("browser %q is not one of chrome, firefox", c.Browser)
	}

	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case DriverRod, DriverWebDriver:
	default:
		add("driver %q is not one of %s, %s", c.Driver, DriverRod, DriverWebDriver)
	}

	if _, _, err := parseResolution(c.ScreenResolution); err != nil {
		add("%v", err)
	}
	if c.GlobalTimeout <= 0 {
		add("global_timeout must be positive, got %v", c.GlobalTimeout)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		add("log_level %q is not a log level", c.LogLevel)
	}
	if c.LogsDir == "" {
		add("logs_dir is empty")
	}
	if c.RemoteWebdriverURL.Valid {
		if err := checkURL(c.RemoteWebdriverURL.String); err != nil {
			add("remote_webdriver_url: %v", err)
		}
	}
	if err := checkURL(c.AirportGap.ServiceURL); err != nil {
		add("airportgap_data.service_url: %v", err)
	}
	if c.AirportGap.Timeout <= 0 {
		add("airportgap_data.timeout must be positive, got %v", c.AirportGap.Timeout)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Timeout is GlobalTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.GlobalTimeout * float64(time.Second))
}

// Resolution returns the screen size; it is valid once Validate passed.
func (c *Config) Resolution() (width, height int) {
	width, height, _ = parseResolution(c.ScreenResolution)
	return width, height
}

func parseResolution(s string) (int, int, error) {
	m := resolutionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("screen_resolution %q is not WIDTHxHEIGHT", s)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("screen_resolution %q has a zero side", s)
	}
	return w, h, nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q needs a scheme and a host", raw)
	}
	return nil
}

// Resolve turns the --cfg value into a file path: an existing file is used as
// is, otherwise the name is looked up as <dir>/configs/<name>.yml. An empty
// name resolves to "".
func Resolve(name, dir string) string {
	if name == "" {
		return ""
	}
	if st, err := os.Stat(name); err == nil && !st.IsDir() {
		return name
	}
	file := name
	if !strings.HasSuffix(file, ".yml") && !strings.HasSuffix(file, ".yaml") {
		file += ".yml"
	}
	return filepath.Join(dir, "configs", file)
}
