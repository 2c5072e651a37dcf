// Package artifacts saves what the browser showed when a scenario failed: a
// screenshot and the cleaned page source, under one directory per run.
package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/logger"
)

const maxScreenshotWidth = 1280

// Saved names the files written for one failure. A field is empty when that
// part could not be captured.
type Saved struct {
	Screenshot string
	PageSource string
}

type Recorder struct {
	runID  string
	dir    string
	clean  CleanConfig
	logger output.LoggerPort
	now    func() time.Time
}

// NewRecorder places artifacts in <logsDir>/artifacts/<run id>. The directory
// is created on the first capture.
func NewRecorder(logsDir string, log output.LoggerPort) *Recorder {
	runID := uuid.NewString()
	return &Recorder{
		runID:  runID,
		dir:    filepath.Join(logsDir, "artifacts", runID),
		clean:  DefaultCleanConfig,
		logger: log.Named("artifacts").WithField("run_id", runID),
		now:    time.Now,
	}
}

func (r *Recorder) RunID() string { return r.runID }

func (r *Recorder) Dir() string { return r.dir }

// Capture saves the screenshot and page source of driver, named after the
// scenario. Both parts are attempted; the returned error joins whatever failed.
func (r *Recorder) Capture(ctx context.Context, driver output.DriverPort, scenario string) (Saved, error) {
	var saved Saved
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return saved, fmt.Errorf("create artifacts dir: %w", err)
	}
	base := filepath.Join(r.dir, r.now().Format("150405")+"_"+logger.Sanitize(scenario))

	var errs []error
	if path, err := r.saveScreenshot(ctx, driver, base+".png"); err != nil {
		errs = append(errs, err)
	} else {
		saved.Screenshot = path
	}
	if path, err := r.savePageSource(ctx, driver, base+".html"); err != nil {
		errs = append(errs, err)
	} else {
		saved.PageSource = path
	}

	err := errors.Join(errs...)
	if err != nil {
		r.logger.Warn("Failure artifacts incomplete", "scenario", scenario, "error", err,
			"screenshot", saved.Screenshot, "page_source", saved.PageSource)
	} else {
		r.logger.Info("Failure artifacts saved", "scenario", scenario,
			"screenshot", saved.Screenshot, "page_source", saved.PageSource)
	}
	return saved, err
}

func (r *Recorder) saveScreenshot(ctx context.Context, driver output.DriverPort, path string) (string, error) {
	raw, err := driver.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("image decode failed: %w", err)
	}
	if img.Bounds().Dx() > maxScreenshotWidth {
		img = imaging.Resize(img, maxScreenshotWidth, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save screenshot: %w", err)
	}
	return path, nil
}

func (r *Recorder) savePageSource(ctx context.Context, driver output.DriverPort, path string) (string, error) {
	raw, err := driver.PageSource(ctx)
	if err != nil {
		return "", fmt.Errorf("page source failed: %w", err)
	}

	cleaned, err := CleanHTML(raw, r.clean)
	if err != nil {
		r.logger.Debug("Saving raw page source", "error", err)
	}
	if err := os.WriteFile(path, []byte(cleaned), 0o644); err != nil {
		return "", fmt.Errorf("save page source: %w", err)
	}
	return path, nil
}
