package production

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marcohefti/direct-cherenkov-production/internal/layout"
	"github.com/marcohefti/direct-cherenkov-production/internal/proc"
	"github.com/marcohefti/direct-cherenkov-production/internal/runexec"
	"github.com/marcohefti/direct-cherenkov-production/internal/steering"
)

const testSteering = `{
  "nuclei": [
    {"PRMPAR": 14, "energy_start_in_GeV": 5, "energy_stop_in_GeV": 500, "energy_slope": -2.7,
     "number_of_runs": 2, "events_per_run": 10, "max_scatter_radius_in_m": 300, "max_zenith_angle_in_deg": 3},
    {"PRMPAR": 402, "energy_start_in_GeV": 10, "energy_stop_in_GeV": 1000, "energy_slope": -2.7,
     "number_of_runs": 1, "events_per_run": 10, "max_scatter_radius_in_m": 300, "max_zenith_angle_in_deg": 3}
  ],
  "site": {"observation_level_asl_in_m": 5000, "earth_magnetic_field_x_in_muT": 20.815,
           "earth_magnetic_field_z_in_muT": -11.366, "atmosphere_id": 26},
  "cherenkov": {"bunch_size": 1, "wavelength_start_in_nm": 250, "wavelength_stop_in_nm": 700}
}`

// fakeSimulator writes the eventio file and both captures.
type fakeSimulator struct {
	exitCode func(req runexec.SimulateRequest) int
	block    chan struct{}
	calls    atomic.Int32
}

func (f *fakeSimulator) Simulate(ctx context.Context, req runexec.SimulateRequest) (proc.Result, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return proc.Result{ExitCode: -1}, ctx.Err()
		}
	}
	for path, body := range map[string]string{
		req.EventioPath: "evtio",
		req.StdoutPath:  req.Card,
		req.StderrPath:  "",
	} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return proc.Result{ExitCode: -1}, err
		}
	}
	code := 0
	if f.exitCode != nil {
		code = f.exitCode(req)
	}
	return proc.Result{ExitCode: code}, nil
}

type fakeExtractor struct {
	mu      sync.Mutex
	outputs []string
}

func (f *fakeExtractor) Extract(_ context.Context, req runexec.ExtractRequest) (proc.Result, error) {
	f.mu.Lock()
	f.outputs = append(f.outputs, req.OutputPath)
	f.mu.Unlock()
	for _, path := range []string{req.StdoutPath, req.StderrPath, req.OutputPath} {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return proc.Result{ExitCode: -1}, err
		}
	}
	return proc.Result{ExitCode: 0}, nil
}

type fixture struct {
	cfg Config
	dir string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	steeringPath := filepath.Join(dir, "my_steering.json")
	require.NoError(t, os.WriteFile(steeringPath, []byte(testSteering), 0o644))

	install := filepath.Join(dir, "corsika-75600")
	require.NoError(t, os.MkdirAll(filepath.Join(install, "run"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(install, "run", "corsika"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(install, "run", "EGSDAT6_1.5"), []byte("table"), 0o644))

	extractor := filepath.Join(dir, "extractor")
	require.NoError(t, os.WriteFile(extractor, []byte("#!/bin/sh\n"), 0o755))

	tmpRoot := filepath.Join(dir, "tmp")
	require.NoError(t, os.Mkdir(tmpRoot, 0o755))

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return fixture{
		dir: dir,
		cfg: Config{
			SteeringSource: steeringPath,
			OutputRoot:     filepath.Join(dir, "out"),
			ExtractorPath:  extractor,
			SimulatorPath:  filepath.Join(install, "run", "corsika"),
			SimulatorDir:   install,
			Workers:        2,
			TempRoot:       tmpRoot,
			Now:            func() time.Time { return now },
		},
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, v))
}

func TestRun_BuildsTreeAndExecutesEveryRun(t *testing.T) {
	fx := newFixture(t)
	sim := &fakeSimulator{}
	ex := &fakeExtractor{}
	d, err := New(fx.cfg, WithSimulator(sim), WithExtractor(ex), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	sum, err := d.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sum)

	assert.Len(t, sum.ProductionID, len("20261019-120000Z-")+8)
	assert.True(t, strings.HasPrefix(sum.ProductionID, "20261019-120000Z-"), sum.ProductionID)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 3, sum.Completed)
	assert.Equal(t, 3, sum.Succeeded)
	assert.True(t, sum.AllSucceeded())
	assert.False(t, sum.HasErrors())
	assert.EqualValues(t, 3, sim.calls.Load())

	out := fx.cfg.OutputRoot
	for _, rel := range []string{
		"input/steering.json",
		"input/corsika/run/corsika",
		"input/corsika/run/EGSDAT6_1.5",
		layout.ManifestName,
		layout.SummaryName,
		layout.ProgressName,
		"proton/14_000001.corsika.stdout",
		"proton/14_000001.corsika.stderr",
		"proton/14_000001.evtio_extractor.stdout",
		"proton/14_000001.evtio_extractor.stderr",
		"proton/14_000002",
		"helium/402_000001",
	} {
		_, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}

	st, err := os.Stat(filepath.Join(out, "input", "corsika", "run", "corsika"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), st.Mode().Perm())

	// Outcomes come back in instruction order.
	require.Len(t, sum.Runs, 3)
	assert.Equal(t, []int{14, 14, 402}, []int{sum.Runs[0].PRMPAR, sum.Runs[1].PRMPAR, sum.Runs[2].PRMPAR})
	assert.Equal(t, []int{1, 2, 3}, []int{sum.Runs[0].RunNumber, sum.Runs[1].RunNumber, sum.Runs[2].RunNumber})

	card, err := os.ReadFile(filepath.Join(out, "helium", "402_000001.corsika.stdout"))
	require.NoError(t, err)
	assert.Contains(t, string(card), "PRMPAR 402")

	var man Manifest
	readJSON(t, filepath.Join(out, layout.ManifestName), &man)
	assert.Equal(t, sum.ProductionID, man.ProductionID)
	assert.Equal(t, 3, man.TotalRuns)
	require.Len(t, man.Nuclei, 2)
	assert.Equal(t, "helium", man.Nuclei[1].Name)

	var onDisk Summary
	readJSON(t, filepath.Join(out, layout.SummaryName), &onDisk)
	assert.Equal(t, 3, onDisk.Succeeded)

	raw, err := os.ReadFile(filepath.Join(out, layout.ProgressName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 8)
	var first, last ProgressEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, EventProductionStarted, first.Kind)
	assert.Equal(t, EventProductionFinished, last.Kind)

	entries, err := os.ReadDir(fx.cfg.TempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_FailedRunsAreCountedNotFatal(t *testing.T) {
	fx := newFixture(t)
	sim := &fakeSimulator{exitCode: func(req runexec.SimulateRequest) int {
		if strings.Contains(req.Card, "PRMPAR 402") {
			return 2
		}
		return 0
	}}
	d, err := New(fx.cfg, WithSimulator(sim), WithExtractor(&fakeExtractor{}))
	require.NoError(t, err)

	sum, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Completed)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 0, sum.Errors)
	assert.False(t, sum.AllSucceeded())
	assert.Equal(t, 2, sum.Runs[2].SimulatorExitCode)
}

func TestRun_ExistingOutputFailsWithoutTouchingIt(t *testing.T) {
	fx := newFixture(t)
	d, err := New(fx.cfg, WithSimulator(&fakeSimulator{}), WithExtractor(&fakeExtractor{}))
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.NoError(t, err)

	before, err := os.ReadFile(filepath.Join(fx.cfg.OutputRoot, layout.SummaryName))
	require.NoError(t, err)

	sim := &fakeSimulator{}
	d2, err := New(fx.cfg, WithSimulator(sim), WithExtractor(&fakeExtractor{}))
	require.NoError(t, err)
	_, err = d2.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsSetupError(err))
	assert.ErrorIs(t, err, layout.ErrDirectoryExists)
	assert.Zero(t, sim.calls.Load())

	after, err := os.ReadFile(filepath.Join(fx.cfg.OutputRoot, layout.SummaryName))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_UnknownParticleStopsBeforeNucleusDirs(t *testing.T) {
	fx := newFixture(t)
	bad := strings.Replace(testSteering, `"PRMPAR": 402`, `"PRMPAR": 9999`, 1)
	require.NoError(t, os.WriteFile(fx.cfg.SteeringSource, []byte(bad), 0o644))

	sim := &fakeSimulator{}
	d, err := New(fx.cfg, WithSimulator(sim), WithExtractor(&fakeExtractor{}))
	require.NoError(t, err)
	_, err = d.Run(context.Background())

	var unknown *layout.UnknownParticleIDError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 9999, unknown.PRMPAR)
	_, statErr := os.Stat(filepath.Join(fx.cfg.OutputRoot, "proton"))
	assert.True(t, os.IsNotExist(statErr))
	// The copied inputs stay behind.
	_, statErr = os.Stat(filepath.Join(fx.cfg.OutputRoot, "input", "steering.json"))
	assert.NoError(t, statErr)
	assert.Zero(t, sim.calls.Load())
}

func TestRun_InvalidSteering(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.WriteFile(fx.cfg.SteeringSource, []byte(`{"nuclei": []}`), 0o644))
	d, err := New(fx.cfg, WithSimulator(&fakeSimulator{}), WithExtractor(&fakeExtractor{}))
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.ErrorIs(t, err, steering.ErrNoNuclei)
}

func TestRun_CancelledRunsAreReported(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Workers = 1
	sim := &fakeSimulator{block: make(chan struct{})}
	d, err := New(fx.cfg, WithSimulator(sim), WithExtractor(&fakeExtractor{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for sim.calls.Load() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()

	sum, err := d.Run(ctx)
	require.NoError(t, err)
	assert.True(t, sum.Interrupted)
	assert.Equal(t, 3, sum.Errors)
	assert.Equal(t, 0, sum.Completed)
	for _, o := range sum.Outcomes {
		assert.True(t, errors.Is(o.Err, context.Canceled), "%+v", o)
	}
}

func TestRun_ProgressToWriter(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.ProgressPath = "-"
	var buf syncBuffer
	d, err := New(fx.cfg, WithSimulator(&fakeSimulator{}), WithExtractor(&fakeExtractor{}), WithProgressWriter(&buf))
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, strings.Count(buf.String(), "\n"))
	_, statErr := os.Stat(filepath.Join(fx.cfg.OutputRoot, layout.ProgressName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNew_ValidatesConfig(t *testing.T) {
	fx := newFixture(t)

	cases := map[string]func(c *Config){
		"workers":   func(c *Config) { c.Workers = 0 },
		"steering":  func(c *Config) { c.SteeringSource = filepath.Join(fx.dir, "missing.json") },
		"output":    func(c *Config) { c.OutputRoot = "" },
		"extractor": func(c *Config) { c.ExtractorPath = fx.dir },
		"corsika":   func(c *Config) { c.SimulatorPath = "" },
		"dir":       func(c *Config) { c.SimulatorDir = fx.cfg.ExtractorPath },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := fx.cfg
			mutate(&cfg)
			_, err := New(cfg)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
		})
	}
}

type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
