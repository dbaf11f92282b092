package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcohefti/direct-cherenkov-production/internal/config"
)

func (r Runner) newInitCmd() *cobra.Command {
	var (
		configPath string
		corsika    string
		corsikaDir string
		workers    int
		jsonOut    bool
	)
	cmd := &cobra.Command{
		Use:   "init --corsika <executable>",
		Short: "Record a CORSIKA installation in " + config.DefaultProjectConfigPath,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("corsika", corsika); err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") && workers < 1 {
				return usageError(fmt.Sprintf("--workers must be >= 1 (got %d)", workers))
			}
			res, err := config.InitProject(configPath, corsika, corsikaDir, workers)
			if err != nil {
				return setupError(err)
			}
			if jsonOut {
				return r.writeJSON(res)
			}
			verb := "kept"
			if res.Created {
				verb = "wrote"
			}
			fmt.Fprintf(r.Stdout, "%s %s (corsika=%s dir=%s)\n", verb, res.ConfigPath, res.CorsikaPath, res.CorsikaDir)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config-path", config.DefaultProjectConfigPath, "project config file to write")
	f.StringVar(&corsika, "corsika", "", "CORSIKA executable (required)")
	f.StringVar(&corsikaDir, "corsika-dir", "", "CORSIKA installation root (default: derived from --corsika)")
	f.IntVar(&workers, "workers", 0, "default worker count for productions")
	f.BoolVar(&jsonOut, "json", false, "print JSON output")
	return cmd
}
