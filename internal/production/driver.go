package production

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marcohefti/direct-cherenkov-production/internal/ids"
	"github.com/marcohefti/direct-cherenkov-production/internal/instruction"
	"github.com/marcohefti/direct-cherenkov-production/internal/layout"
	"github.com/marcohefti/direct-cherenkov-production/internal/runexec"
	"github.com/marcohefti/direct-cherenkov-production/internal/steering"
	"github.com/marcohefti/direct-cherenkov-production/internal/store"
)

// SetupError wraps a failure that happened before any run was dispatched.
// The partially created output tree is left in place.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *SetupError) Unwrap() error { return e.Err }

type Driver struct {
	cfg Config
	log *zap.Logger

	simulator   runexec.Simulator
	extractor   runexec.Extractor
	copier      store.TreeCopier
	progressOut io.Writer
}

func New(cfg Config, opts ...Option) (*Driver, error) {
	d := &Driver{log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	norm, err := cfg.normalized(d.simulator == nil)
	if err != nil {
		return nil, err
	}
	d.cfg = norm
	if d.simulator == nil {
		d.simulator = runexec.Corsika{Path: norm.SimulatorPath}
	}
	if d.extractor == nil {
		d.extractor = runexec.EventioExtractor{}
	}
	if d.copier == nil {
		d.copier = store.FSCopier{}
	}
	if d.progressOut == nil {
		d.progressOut = os.Stderr
	}
	return d, nil
}

// Run performs the production. Setup failures are returned as *SetupError
// before anything is dispatched; once dispatch starts, per-run failures are
// recorded in the Summary and never retried.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	cfg := d.cfg
	started := cfg.Now()
	id := ids.NewProductionID(started)
	log := d.log.With(zap.String("production_id", id))

	l, err := layout.Allocate(cfg.OutputRoot)
	if err != nil {
		return nil, &SetupError{Step: "allocate output", Err: err}
	}
	log.Info("output allocated", zap.String("dir", l.MainDir))

	steeringPath := l.SteeringPath(filepath.Ext(cfg.SteeringSource))
	if err := store.CopyFile(cfg.SteeringSource, steeringPath); err != nil {
		return nil, &SetupError{Step: "copy steering", Err: err}
	}
	if err := d.copier.CopyTree(cfg.SimulatorDir, l.SimulatorDir()); err != nil {
		return nil, &SetupError{Step: "copy simulator", Err: err}
	}
	log.Debug("inputs copied", zap.String("steering", steeringPath), zap.String("simulator", l.SimulatorDir()))

	model, err := steering.ParseFile(steeringPath)
	if err != nil {
		return nil, &SetupError{Step: "read steering", Err: err}
	}
	if err := l.AddNuclei(model); err != nil {
		return nil, &SetupError{Step: "create nucleus dirs", Err: err}
	}

	man := newManifest(id, started, cfg, l, steeringPath, model)
	if err := store.WriteJSONAtomic(l.ManifestPath(), man); err != nil {
		return nil, &SetupError{Step: "write manifest", Err: err}
	}

	instrs, err := instruction.Expand(l, model, cfg.ExtractorPath)
	if err != nil {
		return nil, &SetupError{Step: "expand instructions", Err: err}
	}
	if err := instruction.CheckUnique(instrs); err != nil {
		return nil, &SetupError{Step: "expand instructions", Err: err}
	}

	progressPath := cfg.ProgressPath
	if progressPath == "" {
		progressPath = l.ProgressPath()
	}
	progress := newProgressEmitter(progressPath, d.progressOut)
	emit := func(ev ProgressEvent) {
		ev.TS = cfg.Now().UTC().Format(time.RFC3339Nano)
		ev.ProductionID = id
		if err := progress.Emit(ev); err != nil {
			log.Warn("progress event dropped", zap.String("kind", ev.Kind), zap.Error(err))
		}
	}

	log.Info("production started", zap.Int("runs", len(instrs)), zap.Int("workers", cfg.Workers))
	emit(ProgressEvent{Kind: EventProductionStarted, Details: map[string]any{
		"runs":    len(instrs),
		"workers": cfg.Workers,
		"mainDir": l.MainDir,
	}})

	outcomes := d.dispatch(ctx, instrs, log, emit)

	finished := cfg.Now()
	sum := newSummary(id, l.MainDir, started, finished, outcomes)
	sum.Interrupted = ctx.Err() != nil
	emit(ProgressEvent{Kind: EventProductionFinished, Details: map[string]any{
		"total":     sum.Total,
		"completed": sum.Completed,
		"succeeded": sum.Succeeded,
		"failed":    sum.Failed,
		"errors":    sum.Errors,
	}})
	if err := store.WriteJSONAtomic(l.SummaryPath(), sum); err != nil {
		log.Error("summary not written", zap.Error(err))
	}
	log.Info("production finished",
		zap.Int("total", sum.Total),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("errors", sum.Errors),
		zap.Duration("duration", finished.Sub(started)))
	return sum, nil
}

func (d *Driver) dispatch(ctx context.Context, instrs []instruction.Instruction, log *zap.Logger, emit func(ProgressEvent)) []runexec.Outcome {
	exec := &runexec.Executor{
		Simulator: d.simulator,
		Extractor: d.extractor,
		TempRoot:  d.cfg.TempRoot,
		Logger:    log,
	}

	outcomes := make([]runexec.Outcome, len(instrs))
	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for i, in := range instrs {
		if err := ctx.Err(); err != nil {
			outcomes[i] = runexec.NotStarted(in, err)
			continue
		}
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = runexec.NotStarted(in, err)
				return nil
			}
			emit(ProgressEvent{Kind: EventRunStarted, PRMPAR: in.PRMPAR, RunIndex: in.RunIndex, RunNumber: in.RunNumber, OutputPath: in.OutputPath})
			o := exec.Execute(ctx, in)
			outcomes[i] = o
			details := map[string]any{
				"completed":         o.Completed,
				"succeeded":         o.Succeeded(),
				"simulatorExitCode": o.SimulatorExitCode,
				"extractorExitCode": o.ExtractorExitCode,
				"durationMs":        o.Duration.Milliseconds(),
			}
			if o.Err != nil {
				details["error"] = o.Err.Error()
			}
			emit(ProgressEvent{Kind: EventRunFinished, PRMPAR: in.PRMPAR, RunIndex: in.RunIndex, RunNumber: in.RunNumber, OutputPath: in.OutputPath, Details: details})
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// IsSetupError reports whether err happened before dispatch.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}
