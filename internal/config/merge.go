package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvCorsika    = "DCPROD_CORSIKA"
	EnvCorsikaDir = "DCPROD_CORSIKA_DIR"
	EnvWorkers    = "DCPROD_WORKERS"
)

// Flags carries the values given on the command line. Zero values mean
// "not set".
type Flags struct {
	CorsikaPath string
	CorsikaDir  string
	Workers     int
}

type Merged struct {
	CorsikaPath string
	CorsikaDir  string
	Workers     int

	// Sources are informational for operator UX/debugging.
	CorsikaPathSource string
	CorsikaDirSource  string
	WorkersSource     string
}

func DefaultGlobalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dcprod", "config.json"), nil
}

type GlobalConfigV1 struct {
	SchemaVersion int             `json:"schemaVersion"`
	Corsika       CorsikaConfigV1 `json:"corsika,omitempty"`
	Workers       int             `json:"workers,omitempty"`
}

type CorsikaConfigV1 struct {
	// Path is the simulator executable.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// Dir is the installation root copied into each production.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

type layer struct {
	source  string
	corsika CorsikaConfigV1
	workers int
}

func LoadMerged(flags Flags) (Merged, error) {
	// Precedence:
	// 1) CLI flags
	// 2) env vars
	// 3) project config (dcprod.config.yaml|yml|json in the working dir)
	// 4) global config (~/.dcprod/config.json)
	// 5) defaults
	var layers []layer

	layers = append(layers, layer{
		source:  "flag",
		corsika: CorsikaConfigV1{Path: flags.CorsikaPath, Dir: flags.CorsikaDir},
		workers: flags.Workers,
	})

	envLayer := layer{
		corsika: CorsikaConfigV1{
			Path: strings.TrimSpace(os.Getenv(EnvCorsika)),
			Dir:  strings.TrimSpace(os.Getenv(EnvCorsikaDir)),
		},
	}
	if raw := strings.TrimSpace(os.Getenv(EnvWorkers)); raw != "" {
		n, err := ParseWorkers(raw)
		if err != nil {
			return Merged{}, fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		envLayer.workers = n
	}
	layers = append(layers, envLayer)

	projectPath, projectCfg, hasProjectCfg, err := FindProject(".")
	if err != nil {
		return Merged{}, err
	}
	if hasProjectCfg {
		layers = append(layers, layer{source: projectPath, corsika: projectCfg.Corsika, workers: projectCfg.Workers})
	}

	globalPath, err := DefaultGlobalConfigPath()
	if err != nil {
		return Merged{}, err
	}
	globalCfg, hasGlobalCfg, err := loadGlobal(globalPath)
	if err != nil {
		return Merged{}, err
	}
	if hasGlobalCfg {
		layers = append(layers, layer{source: globalPath, corsika: globalCfg.Corsika, workers: globalCfg.Workers})
	}

	res := Merged{
		Workers:       DefaultWorkers(),
		WorkersSource: "default",
	}
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		src := l.source
		if src == "" {
			src = "env"
		}
		if v := strings.TrimSpace(l.corsika.Path); v != "" {
			res.CorsikaPath, res.CorsikaPathSource = v, sourceFor(src, EnvCorsika)
		}
		if v := strings.TrimSpace(l.corsika.Dir); v != "" {
			res.CorsikaDir, res.CorsikaDirSource = v, sourceFor(src, EnvCorsikaDir)
		}
		if l.workers > 0 {
			res.Workers, res.WorkersSource = l.workers, sourceFor(src, EnvWorkers)
		}
	}

	if res.CorsikaDir == "" && res.CorsikaPath != "" {
		res.CorsikaDir = InstallationDir(res.CorsikaPath)
		res.CorsikaDirSource = "derived:" + res.CorsikaPathSource
	}
	return res, nil
}

func sourceFor(src, envName string) string {
	if src == "env" {
		return "env:" + envName
	}
	return src
}

// InstallationDir guesses the installation root of a CORSIKA executable.
// Installations keep the binary in <root>/run, so a parent named "run" is
// skipped.
func InstallationDir(corsikaPath string) string {
	dir := filepath.Dir(filepath.Clean(corsikaPath))
	if filepath.Base(dir) == "run" {
		return filepath.Dir(dir)
	}
	return dir
}

func loadGlobal(path string) (GlobalConfigV1, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return GlobalConfigV1{}, false, nil
		}
		return GlobalConfigV1{}, false, err
	}
	var cfg GlobalConfigV1
	if err := decode(path, raw, &cfg); err != nil {
		return GlobalConfigV1{}, false, err
	}
	if cfg.SchemaVersion != 1 {
		return GlobalConfigV1{}, false, fmt.Errorf("global config unsupported schemaVersion=%d", cfg.SchemaVersion)
	}
	if cfg.Workers < 0 {
		return GlobalConfigV1{}, false, fmt.Errorf("global config workers must be >= 1")
	}
	cfg.Corsika = resolveRelative(filepath.Dir(path), cfg.Corsika)
	return cfg, true, nil
}

func resolveRelative(base string, c CorsikaConfigV1) CorsikaConfigV1 {
	if c.Path != "" && !filepath.IsAbs(c.Path) {
		c.Path = filepath.Join(base, c.Path)
	}
	if c.Dir != "" && !filepath.IsAbs(c.Dir) {
		c.Dir = filepath.Join(base, c.Dir)
	}
	return c
}
