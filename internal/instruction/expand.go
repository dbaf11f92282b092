package instruction

import (
	"fmt"
	"path/filepath"

	"github.com/marcohefti/direct-cherenkov-production/internal/ids"
	"github.com/marcohefti/direct-cherenkov-production/internal/steering"
)

// NucleusDirs resolves a particle id to its output directory. *layout.Layout
// satisfies it.
type NucleusDirs interface {
	NucleusDir(prmpar int) (string, bool)
}

// Expand produces one instruction per (nucleus, run index), ordered by
// nucleus order in the model and then by run index. Output paths are
// <nucleus dir>/<prmpar>_<run index>, run numbers count up from
// RunNumberOffset+1 over the whole production.
func Expand(dirs NucleusDirs, model steering.Model, extractorPath string) ([]Instruction, error) {
	out := make([]Instruction, 0, model.TotalRuns())
	runNumber := model.RunNumberOffset
	for _, nu := range model.Nuclei {
		dir, ok := dirs.NucleusDir(nu.PRMPAR)
		if !ok {
			return nil, fmt.Errorf("no output directory for PRMPAR=%d", nu.PRMPAR)
		}
		for run := 0; run < nu.RunCount; run++ {
			runNumber++
			card, err := RenderCard(CardParams{
				RunNumber: runNumber,
				Nucleus:   nu,
				Site:      model.Site,
				Cherenkov: model.Cherenkov,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, Instruction{
				SteeringCard:  card,
				OutputPath:    filepath.Join(dir, ids.RunStem(nu.PRMPAR, run)),
				ExtractorPath: extractorPath,
				PRMPAR:        nu.PRMPAR,
				RunIndex:      run,
				RunNumber:     runNumber,
			})
		}
	}
	return out, nil
}
