// Package production drives one complete simulation production: it lays out
// the output tree, expands the steering document into run instructions and
// executes them on a bounded pool of workers.
package production

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marcohefti/direct-cherenkov-production/internal/runexec"
	"github.com/marcohefti/direct-cherenkov-production/internal/store"
)

// Config is fixed for the lifetime of a Driver.
type Config struct {
	SteeringSource string
	OutputRoot     string
	ExtractorPath  string
	// SimulatorPath is the CORSIKA executable; SimulatorDir is the
	// installation copied into the production's input directory.
	SimulatorPath string
	SimulatorDir  string
	Workers       int
	TempRoot      string
	// ProgressPath is a JSONL file, "-" for the progress writer, or empty
	// for <output>/progress.jsonl.
	ProgressPath string
	Now          func() time.Time
}

// ConfigError reports an unusable Config.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config %s: %s", e.Field, e.Reason) }

type Option func(*Driver)

func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// WithSimulator replaces the CORSIKA invocation; SimulatorPath is then not
// required.
func WithSimulator(s runexec.Simulator) Option {
	return func(d *Driver) { d.simulator = s }
}

func WithExtractor(x runexec.Extractor) Option {
	return func(d *Driver) { d.extractor = x }
}

func WithTreeCopier(c store.TreeCopier) Option {
	return func(d *Driver) { d.copier = c }
}

// WithProgressWriter sets the destination used when ProgressPath is "-".
func WithProgressWriter(w io.Writer) Option {
	return func(d *Driver) { d.progressOut = w }
}

func (c Config) normalized(needSimulator bool) (Config, error) {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Workers < 1 {
		return c, &ConfigError{Field: "workers", Reason: fmt.Sprintf("must be >= 1 (got %d)", c.Workers)}
	}

	var err error
	if c.SteeringSource, err = requireFile("steering", c.SteeringSource); err != nil {
		return c, err
	}
	if strings.TrimSpace(c.OutputRoot) == "" {
		return c, &ConfigError{Field: "output", Reason: "is required"}
	}
	if c.OutputRoot, err = filepath.Abs(c.OutputRoot); err != nil {
		return c, err
	}
	if c.ExtractorPath, err = requireFile("evtio_extractor", c.ExtractorPath); err != nil {
		return c, err
	}
	if needSimulator || strings.TrimSpace(c.SimulatorPath) != "" {
		if c.SimulatorPath, err = requireFile("corsika", c.SimulatorPath); err != nil {
			return c, err
		}
	}
	if strings.TrimSpace(c.SimulatorDir) == "" {
		return c, &ConfigError{Field: "corsika-dir", Reason: "is required"}
	}
	if c.SimulatorDir, err = filepath.Abs(c.SimulatorDir); err != nil {
		return c, err
	}
	st, err := os.Stat(c.SimulatorDir)
	if err != nil {
		return c, &ConfigError{Field: "corsika-dir", Reason: err.Error()}
	}
	if !st.IsDir() {
		return c, &ConfigError{Field: "corsika-dir", Reason: "is not a directory"}
	}
	if strings.TrimSpace(c.TempRoot) != "" {
		if c.TempRoot, err = filepath.Abs(c.TempRoot); err != nil {
			return c, err
		}
	}
	if c.ProgressPath != "" && c.ProgressPath != "-" {
		if c.ProgressPath, err = filepath.Abs(c.ProgressPath); err != nil {
			return c, err
		}
	}
	return c, nil
}

func requireFile(field, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &ConfigError{Field: field, Reason: "is required"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &ConfigError{Field: field, Reason: fmt.Sprintf("%s does not exist", abs)}
		}
		return "", err
	}
	if st.IsDir() {
		return "", &ConfigError{Field: field, Reason: fmt.Sprintf("%s is a directory", abs)}
	}
	return abs, nil
}
