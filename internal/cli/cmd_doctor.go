package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcohefti/direct-cherenkov-production/internal/config"
	"github.com/marcohefti/direct-cherenkov-production/internal/doctor"
)

func (r Runner) newDoctorCmd() *cobra.Command {
	var (
		flags     config.Flags
		extractor string
		tempRoot  string
		jsonOut   bool
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that a production could start with the current configuration",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := doctor.Run(doctor.Opts{Flags: flags, ExtractorPath: extractor, TempRoot: tempRoot})
			if err != nil {
				return setupError(err)
			}
			if jsonOut {
				if err := r.writeJSON(res); err != nil {
					return err
				}
			} else {
				for _, c := range res.Checks {
					status := "ok  "
					if !c.OK {
						status = "FAIL"
					}
					if c.Message != "" {
						fmt.Fprintf(r.Stdout, "%s %s: %s\n", status, c.ID, c.Message)
					} else {
						fmt.Fprintf(r.Stdout, "%s %s\n", status, c.ID)
					}
				}
			}
			if !res.OK {
				return &CliError{Code: codeSetup, Message: "doctor found problems", Exit: exitFailed}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.CorsikaPath, "corsika", "", "CORSIKA executable")
	f.StringVar(&flags.CorsikaDir, "corsika-dir", "", "CORSIKA installation root")
	f.IntVar(&flags.Workers, "workers", 0, "parallel runs")
	f.StringVarP(&extractor, "evtio_extractor", "e", "", "path to the eventio extractor")
	f.StringVar(&tempRoot, "tmp-dir", "", "parent directory for per-run scratch directories")
	f.BoolVar(&jsonOut, "json", false, "print JSON output")
	return cmd
}
