// Package layout creates and describes the directory tree of one production:
//
//	<main>/
//	  input/steering.json
//	  input/corsika/
//	  <nucleus-name>/...
//
// Directories are created eagerly by Allocate and AddNuclei; nothing under
// the main directory is created lazily later.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marcohefti/direct-cherenkov-production/internal/particle"
	"github.com/marcohefti/direct-cherenkov-production/internal/steering"
)

const (
	InputDirName     = "input"
	SimulatorDirName = "corsika"
	ManifestName     = "production.json"
	SummaryName      = "summary.json"
	ProgressName     = "progress.jsonl"
)

var (
	ErrDirectoryExists = errors.New("output directory already exists")
	ErrNameCollision   = errors.New("nucleus directory name collision")
)

type DirectoryExistsError struct {
	Path string
}

func (e *DirectoryExistsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDirectoryExists, e.Path)
}

func (e *DirectoryExistsError) Unwrap() error { return ErrDirectoryExists }

type UnknownParticleIDError struct {
	PRMPAR int
}

func (e *UnknownParticleIDError) Error() string {
	return fmt.Sprintf("no directory name for particle id PRMPAR=%d", e.PRMPAR)
}

type Layout struct {
	MainDir  string
	InputDir string

	nuclei map[int]string
}

// Build allocates the main and input directories under outputRoot and one
// directory per nucleus of model.
func Build(outputRoot string, model steering.Model) (*Layout, error) {
	l, err := Allocate(outputRoot)
	if err != nil {
		return nil, err
	}
	if err := l.AddNuclei(model); err != nil {
		return nil, err
	}
	return l, nil
}

// Allocate creates outputRoot and its input directory. outputRoot must not
// exist; its parent must.
func Allocate(outputRoot string) (*Layout, error) {
	if strings.TrimSpace(outputRoot) == "" {
		return nil, errors.New("missing output directory")
	}
	mainDir, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, err
	}
	// Mkdir (not MkdirAll) so the existence check and the creation are one step.
	if err := os.Mkdir(mainDir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, &DirectoryExistsError{Path: mainDir}
		}
		return nil, err
	}
	l := &Layout{
		MainDir:  mainDir,
		InputDir: filepath.Join(mainDir, InputDirName),
		nuclei:   map[int]string{},
	}
	if err := os.Mkdir(l.InputDir, 0o755); err != nil {
		return nil, err
	}
	return l, nil
}

// AddNuclei creates one directory per distinct particle id of model. Every id
// is resolved before the first directory is created, so an unknown id leaves
// no nucleus directory behind.
func (l *Layout) AddNuclei(model steering.Model) error {
	planned := map[int]string{}
	owner := l.owners()
	for _, prmpar := range model.PRMPARs() {
		if _, done := l.nuclei[prmpar]; done {
			continue
		}
		if _, done := planned[prmpar]; done {
			continue
		}
		name, err := particle.Name(prmpar)
		if err != nil {
			return &UnknownParticleIDError{PRMPAR: prmpar}
		}
		if other, taken := owner[name]; taken {
			return fmt.Errorf("%w: %q used by PRMPAR=%d and PRMPAR=%d", ErrNameCollision, name, other, prmpar)
		}
		if name == InputDirName {
			return fmt.Errorf("%w: %q is reserved", ErrNameCollision, name)
		}
		owner[name] = prmpar
		planned[prmpar] = filepath.Join(l.MainDir, name)
	}

	ids := make([]int, 0, len(planned))
	for id := range planned {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if err := os.Mkdir(planned[id], 0o755); err != nil {
			return err
		}
		l.nuclei[id] = planned[id]
	}
	return nil
}

func (l *Layout) owners() map[string]int {
	out := make(map[string]int, len(l.nuclei))
	for id, dir := range l.nuclei {
		out[filepath.Base(dir)] = id
	}
	return out
}

func (l *Layout) SteeringPath(sourceExt string) string {
	ext := strings.ToLower(sourceExt)
	if ext != ".yaml" && ext != ".yml" {
		ext = ".json"
	}
	return filepath.Join(l.InputDir, "steering"+ext)
}

func (l *Layout) SimulatorDir() string { return filepath.Join(l.InputDir, SimulatorDirName) }

func (l *Layout) ManifestPath() string { return filepath.Join(l.MainDir, ManifestName) }

func (l *Layout) SummaryPath() string { return filepath.Join(l.MainDir, SummaryName) }

func (l *Layout) ProgressPath() string { return filepath.Join(l.MainDir, ProgressName) }

// NucleusDir returns the output directory of a particle id.
func (l *Layout) NucleusDir(prmpar int) (string, bool) {
	d, ok := l.nuclei[prmpar]
	return d, ok
}

// NucleusDirs returns a copy of the particle id to directory mapping.
func (l *Layout) NucleusDirs() map[int]string {
	out := make(map[int]string, len(l.nuclei))
	for k, v := range l.nuclei {
		out[k] = v
	}
	return out
}
