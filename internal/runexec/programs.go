package runexec

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/marcohefti/direct-cherenkov-production/internal/proc"
)

type SimulateRequest struct {
	Card        string
	EventioPath string
	WorkDir     string
	StdoutPath  string
	StderrPath  string
}

type ExtractRequest struct {
	ExtractorPath string
	EventioPath   string
	OutputPath    string
	StdoutPath    string
	StderrPath    string
}

// Simulator produces one eventio file from one steering card.
type Simulator interface {
	Simulate(ctx context.Context, req SimulateRequest) (proc.Result, error)
}

// Extractor converts one eventio file into the production output format.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (proc.Result, error)
}

// Corsika runs a CORSIKA executable. The card is fed on stdin and the
// process runs inside the installation's run directory, where CORSIKA
// expects its data tables.
type Corsika struct {
	Path string
	// RunDir defaults to the directory containing Path.
	RunDir string
}

func (c Corsika) Simulate(ctx context.Context, req SimulateRequest) (proc.Result, error) {
	if strings.TrimSpace(c.Path) == "" {
		return proc.Result{ExitCode: -1}, errors.New("corsika executable path is empty")
	}
	card, err := BindOutputs(req.Card, req.EventioPath, req.WorkDir)
	if err != nil {
		return proc.Result{ExitCode: -1}, err
	}
	runDir := c.RunDir
	if runDir == "" {
		runDir = filepath.Dir(c.Path)
	}
	return proc.Run(ctx, proc.Spec{
		Argv:       []string{c.Path},
		Dir:        runDir,
		Stdin:      strings.NewReader(card),
		StdoutPath: req.StdoutPath,
		StderrPath: req.StderrPath,
	})
}

// EventioExtractor invokes `<extractor> -i <eventio> -o <output>`.
type EventioExtractor struct{}

func (EventioExtractor) Extract(ctx context.Context, req ExtractRequest) (proc.Result, error) {
	if strings.TrimSpace(req.ExtractorPath) == "" {
		return proc.Result{ExitCode: -1}, errors.New("extractor path is empty")
	}
	return proc.Run(ctx, proc.Spec{
		Argv:       []string{req.ExtractorPath, "-i", req.EventioPath, "-o", req.OutputPath},
		StdoutPath: req.StdoutPath,
		StderrPath: req.StderrPath,
	})
}

// BindOutputs inserts the eventio file (TELFIL) and the particle output
// directory (DIRECT) in front of the card's EXIT line.
func BindOutputs(card, eventioPath, dir string) (string, error) {
	lines := strings.Split(strings.TrimRight(card, "\n"), "\n")
	exitAt := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "EXIT" {
			exitAt = i
			break
		}
	}
	if exitAt < 0 {
		return "", fmt.Errorf("steering card has no EXIT line")
	}
	direct := strings.TrimRight(dir, string(filepath.Separator)) + string(filepath.Separator)
	out := make([]string, 0, len(lines)+2)
	out = append(out, lines[:exitAt]...)
	out = append(out, "TELFIL "+eventioPath, "DIRECT "+direct)
	out = append(out, lines[exitAt:]...)
	return strings.Join(out, "\n") + "\n", nil
}
