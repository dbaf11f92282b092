// Package instruction expands a steering model into the per-run work items
// of a production. Expansion is pure: it reads the layout but touches no
// files, and the same inputs always yield the same instructions in the same
// order.
package instruction

import (
	"fmt"
)

// Instruction is one simulator run plus its extraction step.
type Instruction struct {
	// SteeringCard is the rendered CORSIKA card for exactly this run. It
	// carries no file paths; the executor binds those.
	SteeringCard string `json:"corsikaSteeringCard"`
	// OutputPath is the absolute prefix of every artifact of this run.
	OutputPath    string `json:"outputPath"`
	ExtractorPath string `json:"extractorPath"`

	PRMPAR    int `json:"prmpar"`
	RunIndex  int `json:"runIndex"`
	RunNumber int `json:"runNumber"`
}

func (in Instruction) String() string {
	return fmt.Sprintf("PRMPAR=%d run=%d RUNNR=%d", in.PRMPAR, in.RunIndex, in.RunNumber)
}

// CheckUnique returns an error naming the first output path or run number
// shared by two instructions.
func CheckUnique(items []Instruction) error {
	paths := make(map[string]int, len(items))
	runs := make(map[int]int, len(items))
	for i, in := range items {
		if j, dup := paths[in.OutputPath]; dup {
			return fmt.Errorf("instructions %d and %d share output path %s", j, i, in.OutputPath)
		}
		if j, dup := runs[in.RunNumber]; dup {
			return fmt.Errorf("instructions %d and %d share run number %d", j, i, in.RunNumber)
		}
		paths[in.OutputPath] = i
		runs[in.RunNumber] = i
	}
	return nil
}
