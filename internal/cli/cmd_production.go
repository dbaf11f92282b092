package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marcohefti/direct-cherenkov-production/internal/config"
	"github.com/marcohefti/direct-cherenkov-production/internal/production"
)

type productionOptions struct {
	steering   string
	output     string
	extractor  string
	corsika    string
	corsikaDir string
	workers    int
	tempRoot   string
	progress   string
	strict     bool
	jsonOut    bool
}

func (o *productionOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.steering, "config", "c", "", "path to the production steering file, json or yaml (required)")
	f.StringVarP(&o.output, "output", "o", "", "output directory; must not exist (required)")
	f.StringVarP(&o.extractor, "evtio_extractor", "e", "", "path to the eventio extractor (required)")
	f.StringVar(&o.corsika, "corsika", "", "CORSIKA executable (env "+config.EnvCorsika+")")
	f.StringVar(&o.corsikaDir, "corsika-dir", "", "CORSIKA installation copied into <output>/input (env "+config.EnvCorsikaDir+")")
	f.IntVar(&o.workers, "workers", 0, "parallel runs (env "+config.EnvWorkers+"; default: number of CPUs)")
	f.StringVar(&o.tempRoot, "tmp-dir", "", "parent directory for per-run scratch directories (default: system temp)")
	f.StringVar(&o.progress, "progress-jsonl", "", "progress events file, or - for stderr (default: <output>/progress.jsonl)")
	f.BoolVar(&o.strict, "strict", false, "exit 3 when any run did not succeed")
	f.BoolVar(&o.jsonOut, "json", false, "print the production summary as JSON")
}

func (r Runner) runProduction(cmd *cobra.Command, o *productionOptions, log *zap.Logger) error {
	required := []struct{ name, value string }{
		{"config", o.steering},
		{"output", o.output},
		{"evtio_extractor", o.extractor},
	}
	for _, f := range required {
		if err := requireFlag(f.name, f.value); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("workers") && o.workers < 1 {
		return usageError(fmt.Sprintf("--workers must be >= 1 (got %d)", o.workers))
	}

	merged, err := config.LoadMerged(config.Flags{
		CorsikaPath: o.corsika,
		CorsikaDir:  o.corsikaDir,
		Workers:     o.workers,
	})
	if err != nil {
		return setupError(err)
	}
	if merged.CorsikaPath == "" {
		return setupError(errors.New("no CORSIKA executable configured (use --corsika, " + config.EnvCorsika + " or `dcprod init`)"))
	}
	log.Debug("configuration resolved",
		zap.String("corsika", merged.CorsikaPath),
		zap.String("corsika_source", merged.CorsikaPathSource),
		zap.String("corsika_dir", merged.CorsikaDir),
		zap.String("corsika_dir_source", merged.CorsikaDirSource),
		zap.Int("workers", merged.Workers),
		zap.String("workers_source", merged.WorkersSource))

	d, err := production.New(production.Config{
		SteeringSource: o.steering,
		OutputRoot:     o.output,
		ExtractorPath:  o.extractor,
		SimulatorPath:  merged.CorsikaPath,
		SimulatorDir:   merged.CorsikaDir,
		Workers:        merged.Workers,
		TempRoot:       o.tempRoot,
		ProgressPath:   o.progress,
		Now:            r.Now,
	}, production.WithLogger(log), production.WithProgressWriter(r.Stderr))
	if err != nil {
		return setupError(err)
	}

	sum, err := d.Run(cmd.Context())
	if err != nil {
		log.Error("production setup failed", zap.Error(err))
		if production.IsSetupError(err) {
			return setupError(err)
		}
		return &CliError{Code: codeIO, Message: err.Error(), Exit: exitFailed}
	}

	if o.jsonOut {
		if err := r.writeJSON(sum); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(r.Stdout, "production %s: %d runs, %d succeeded, %d failed, %d errors\n%s\n",
			sum.ProductionID, sum.Total, sum.Succeeded, sum.Failed, sum.Errors, sum.MainDir)
	}

	switch {
	case sum.HasErrors():
		msg := fmt.Sprintf("%d of %d runs did not complete", sum.Errors, sum.Total)
		if sum.Interrupted {
			msg += " (interrupted)"
		}
		return &CliError{Code: codeRun, Message: msg, Exit: exitFailed}
	case o.strict && !sum.AllSucceeded():
		return &CliError{Code: codeStrict, Message: fmt.Sprintf("%d of %d runs exited non-zero", sum.Failed, sum.Total), Exit: exitStrict}
	}
	return nil
}
