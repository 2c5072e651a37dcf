// Package env layers .env files into the process environment before the
// configuration is read, so AHT_* overrides can live in files.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
)

var _ output.ConfigPort = (*Service)(nil)

const defaultAppEnv = "dev"

type Service struct {
	appEnv string
	loaded []string
}

// Load reads dir/.env without touching variables that are already set, then
// dir/.env.$APP_ENV on top of it. Missing files are skipped.
func Load(dir string) (*Service, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = defaultAppEnv
	}
	s := &Service{appEnv: appEnv}

	base := filepath.Join(dir, ".env")
	if err := s.apply(godotenv.Load, base); err != nil {
		return nil, err
	}
	overlay := filepath.Join(dir, ".env."+appEnv)
	if err := s.apply(godotenv.Overload, overlay); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) apply(load func(...string) error, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := load(path); err != nil {
		return fmt.Errorf("could not load %s: %w", path, err)
	}
	s.loaded = append(s.loaded, path)
	return nil
}

// AppEnv is the APP_ENV in effect, "dev" when unset.
func (s *Service) AppEnv() string { return s.appEnv }

// Files lists the env files that were applied, in order.
func (s *Service) Files() []string { return s.loaded }

func (s *Service) Get(key string) string {
	return os.Getenv(key)
}

func (s *Service) GetWithDefault(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultValue
}

func (s *Service) GetBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}
