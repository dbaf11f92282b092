// Package runexec executes one instruction: the simulator, then the
// extractor, inside a private temporary directory.
package runexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/marcohefti/direct-cherenkov-production/internal/instruction"
	"github.com/marcohefti/direct-cherenkov-production/internal/store"
)

const (
	TempDirPrefix = "dc_production_"
	EventioName   = "corsika_run.evtio"

	SimulatorStdoutSuffix = ".corsika.stdout"
	SimulatorStderrSuffix = ".corsika.stderr"
	ExtractorStdoutSuffix = ".evtio_extractor.stdout"
	ExtractorStderrSuffix = ".evtio_extractor.stderr"
)

// Outcome is the result of executing one instruction.
//
// Completed mirrors the historical contract: it is true whenever both
// programs were invoked and returned, whatever their exit status. Use
// Succeeded for a status that also accounts for exit codes.
type Outcome struct {
	PRMPAR     int
	RunIndex   int
	RunNumber  int
	OutputPath string

	Completed         bool
	SimulatorExitCode int
	ExtractorExitCode int
	Duration          time.Duration
	Err               error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Completed && o.SimulatorExitCode == 0 && o.ExtractorExitCode == 0
}

type Executor struct {
	Simulator Simulator
	Extractor Extractor
	// TempRoot is passed to os.MkdirTemp; empty means the system default.
	TempRoot string
	Logger   *zap.Logger
}

// NotStarted returns the outcome recorded for an instruction that was never
// dispatched.
func NotStarted(in instruction.Instruction, err error) Outcome {
	o := newOutcome(in)
	o.Err = err
	return o
}

func newOutcome(in instruction.Instruction) Outcome {
	return Outcome{
		PRMPAR:            in.PRMPAR,
		RunIndex:          in.RunIndex,
		RunNumber:         in.RunNumber,
		OutputPath:        in.OutputPath,
		SimulatorExitCode: -1,
		ExtractorExitCode: -1,
	}
}

func (e *Executor) Execute(ctx context.Context, in instruction.Instruction) Outcome {
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Stringer("instruction", in))

	start := time.Now()
	o := newOutcome(in)
	o.Err = e.execute(ctx, in, &o, log)
	o.Duration = time.Since(start)

	if o.Err != nil {
		log.Error("run failed", zap.Error(o.Err), zap.Duration("duration", o.Duration))
	} else {
		log.Info("run finished",
			zap.Int("simulator_exit", o.SimulatorExitCode),
			zap.Int("extractor_exit", o.ExtractorExitCode),
			zap.Duration("duration", o.Duration))
	}
	return o
}

func (e *Executor) execute(ctx context.Context, in instruction.Instruction, o *Outcome, log *zap.Logger) error {
	if e.Simulator == nil || e.Extractor == nil {
		return errors.New("executor requires a simulator and an extractor")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(e.TempRoot, TempDirPrefix)
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmp); rmErr != nil {
			log.Warn("temp dir cleanup failed", zap.String("dir", tmp), zap.Error(rmErr))
		}
	}()

	evtio := filepath.Join(tmp, EventioName)
	simOut := evtio + ".stdout"
	simErr := evtio + ".stderr"

	log.Debug("simulator starting", zap.String("tmp", tmp))
	simRes, err := e.Simulator.Simulate(ctx, SimulateRequest{
		Card:        in.SteeringCard,
		EventioPath: evtio,
		WorkDir:     tmp,
		StdoutPath:  simOut,
		StderrPath:  simErr,
	})
	if err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	o.SimulatorExitCode = simRes.ExitCode
	if simRes.ExitCode != 0 {
		log.Warn("simulator exited non-zero", zap.Int("exit_code", simRes.ExitCode), zap.String("stderr_tail", simRes.StderrTail))
	}

	if err := copyCapture(simOut, in.OutputPath+SimulatorStdoutSuffix); err != nil {
		return err
	}
	if err := copyCapture(simErr, in.OutputPath+SimulatorStderrSuffix); err != nil {
		return err
	}

	exRes, err := e.Extractor.Extract(ctx, ExtractRequest{
		ExtractorPath: in.ExtractorPath,
		EventioPath:   evtio,
		OutputPath:    in.OutputPath,
		StdoutPath:    in.OutputPath + ExtractorStdoutSuffix,
		StderrPath:    in.OutputPath + ExtractorStderrSuffix,
	})
	if err != nil {
		return fmt.Errorf("extractor: %w", err)
	}
	o.ExtractorExitCode = exRes.ExitCode
	if exRes.ExitCode != 0 {
		log.Warn("extractor exited non-zero", zap.Int("exit_code", exRes.ExitCode), zap.String("stderr_tail", exRes.StderrTail))
	}
	o.Completed = true
	return nil
}

// copyCapture copies a captured stream to its destination, overwriting any
// previous capture of the same run.
func copyCapture(src, dst string) error {
	_ = os.Remove(dst)
	if err := store.CopyFile(src, dst); err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return nil
}
