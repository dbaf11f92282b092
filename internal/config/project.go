package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marcohefti/direct-cherenkov-production/internal/store"
)

const (
	ProjectConfigSchemaV1    = 1
	DefaultProjectConfigPath = "dcprod.config.json"
)

// ProjectConfigNames lists the project config files in lookup order.
var ProjectConfigNames = []string{"dcprod.config.yaml", "dcprod.config.yml", DefaultProjectConfigPath}

// ProjectConfigV1 is the per-directory config created by `dcprod init`.
type ProjectConfigV1 struct {
	SchemaVersion int             `json:"schemaVersion" yaml:"schemaVersion"`
	Corsika       CorsikaConfigV1 `json:"corsika" yaml:"corsika"`
	Workers       int             `json:"workers,omitempty" yaml:"workers,omitempty"`
}

type InitResult struct {
	OK          bool   `json:"ok"`
	ConfigPath  string `json:"configPath"`
	CorsikaPath string `json:"corsikaPath"`
	CorsikaDir  string `json:"corsikaDir"`
	Created     bool   `json:"created"`
}

// FindProject returns the first project config present in dir.
func FindProject(dir string) (string, ProjectConfigV1, bool, error) {
	for _, name := range ProjectConfigNames {
		path := filepath.Join(dir, name)
		cfg, ok, err := loadProject(path)
		if err != nil {
			return "", ProjectConfigV1{}, false, err
		}
		if ok {
			return path, cfg, true, nil
		}
	}
	return "", ProjectConfigV1{}, false, nil
}

func loadProject(path string) (ProjectConfigV1, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ProjectConfigV1{}, false, nil
		}
		return ProjectConfigV1{}, false, err
	}
	var cfg ProjectConfigV1
	if err := decode(path, raw, &cfg); err != nil {
		return ProjectConfigV1{}, false, err
	}
	if cfg.SchemaVersion != ProjectConfigSchemaV1 {
		return ProjectConfigV1{}, false, fmt.Errorf("project config unsupported schemaVersion=%d", cfg.SchemaVersion)
	}
	if cfg.Workers < 0 {
		return ProjectConfigV1{}, false, fmt.Errorf("project config workers must be >= 1")
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return ProjectConfigV1{}, false, err
	}
	cfg.Corsika = resolveRelative(abs, cfg.Corsika)
	return cfg, true, nil
}

func decode(path string, raw []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("%s: invalid yaml: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("%s: invalid json: %w", path, err)
		}
	}
	return nil
}

// InitProject records a CORSIKA installation in a project config so later
// productions started from the same directory pick it up.
func InitProject(configPath string, corsikaPath string, corsikaDir string, workers int) (*InitResult, error) {
	if strings.TrimSpace(configPath) == "" {
		configPath = DefaultProjectConfigPath
	}
	if strings.TrimSpace(corsikaPath) == "" {
		return nil, fmt.Errorf("corsika executable path is required")
	}
	if workers < 0 {
		return nil, fmt.Errorf("workers must be >= 1")
	}
	absPath, err := filepath.Abs(corsikaPath)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("corsika path %q is a directory", absPath)
	}
	if strings.TrimSpace(corsikaDir) == "" {
		corsikaDir = InstallationDir(absPath)
	}
	absDir, err := filepath.Abs(corsikaDir)
	if err != nil {
		return nil, err
	}

	created := false
	if _, err := os.Stat(configPath); err == nil {
		existing, _, err := loadProject(configPath)
		if err != nil {
			return nil, err
		}
		if existing.Corsika.Path != absPath {
			return nil, fmt.Errorf("existing config corsika.path=%q does not match requested %q", existing.Corsika.Path, absPath)
		}
		absDir = existing.Corsika.Dir
	} else if os.IsNotExist(err) {
		cfg := ProjectConfigV1{
			SchemaVersion: ProjectConfigSchemaV1,
			Corsika:       CorsikaConfigV1{Path: absPath, Dir: absDir},
			Workers:       workers,
		}
		if err := store.WriteJSONAtomic(configPath, cfg); err != nil {
			return nil, err
		}
		created = true
	} else {
		return nil, err
	}

	return &InitResult{
		OK:          true,
		ConfigPath:  configPath,
		CorsikaPath: absPath,
		CorsikaDir:  absDir,
		Created:     created,
	}, nil
}
