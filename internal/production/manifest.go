package production

import (
	"time"

	"github.com/marcohefti/direct-cherenkov-production/internal/layout"
	"github.com/marcohefti/direct-cherenkov-production/internal/particle"
	"github.com/marcohefti/direct-cherenkov-production/internal/runexec"
	"github.com/marcohefti/direct-cherenkov-production/internal/steering"
)

const ManifestSchemaV1 = 1

// Manifest is written to production.json once the layout is complete.
type Manifest struct {
	SchemaVersion   int               `json:"schemaVersion"`
	ProductionID    string            `json:"productionId"`
	CreatedAt       string            `json:"createdAt"`
	MainDir         string            `json:"mainDir"`
	SteeringPath    string            `json:"steeringPath"`
	SteeringSource  string            `json:"steeringSource"`
	SimulatorPath   string            `json:"simulatorPath,omitempty"`
	SimulatorCopy   string            `json:"simulatorCopy"`
	ExtractorPath   string            `json:"extractorPath"`
	Workers         int               `json:"workers"`
	RunNumberOffset int               `json:"runNumberOffset"`
	TotalRuns       int               `json:"totalRuns"`
	Nuclei          []ManifestNucleus `json:"nuclei"`
}

type ManifestNucleus struct {
	PRMPAR int    `json:"prmpar"`
	Name   string `json:"name"`
	Dir    string `json:"dir"`
	Runs   int    `json:"runs"`
}

func newManifest(id string, created time.Time, cfg Config, l *layout.Layout, steeringPath string, m steering.Model) Manifest {
	man := Manifest{
		SchemaVersion:   ManifestSchemaV1,
		ProductionID:    id,
		CreatedAt:       created.UTC().Format(time.RFC3339Nano),
		MainDir:         l.MainDir,
		SteeringPath:    steeringPath,
		SteeringSource:  cfg.SteeringSource,
		SimulatorPath:   cfg.SimulatorPath,
		SimulatorCopy:   l.SimulatorDir(),
		ExtractorPath:   cfg.ExtractorPath,
		Workers:         cfg.Workers,
		RunNumberOffset: m.RunNumberOffset,
		TotalRuns:       m.TotalRuns(),
	}
	for _, n := range m.Nuclei {
		name, _ := particle.Name(n.PRMPAR)
		dir, _ := l.NucleusDir(n.PRMPAR)
		man.Nuclei = append(man.Nuclei, ManifestNucleus{PRMPAR: n.PRMPAR, Name: name, Dir: dir, Runs: n.RunCount})
	}
	return man
}

// Summary is the result of a production that reached the dispatch stage.
type Summary struct {
	SchemaVersion int          `json:"schemaVersion"`
	ProductionID  string       `json:"productionId"`
	MainDir       string       `json:"mainDir"`
	StartedAt     string       `json:"startedAt"`
	FinishedAt    string       `json:"finishedAt"`
	DurationMs    int64        `json:"durationMs"`
	Total         int          `json:"total"`
	Completed     int          `json:"completed"`
	Succeeded     int          `json:"succeeded"`
	Failed        int          `json:"failed"`
	Errors        int          `json:"errors"`
	Interrupted   bool         `json:"interrupted,omitempty"`
	Runs          []RunSummary `json:"runs"`

	Outcomes []runexec.Outcome `json:"-"`
}

type RunSummary struct {
	PRMPAR            int    `json:"prmpar"`
	RunIndex          int    `json:"runIndex"`
	RunNumber         int    `json:"runNumber"`
	OutputPath        string `json:"outputPath"`
	Completed         bool   `json:"completed"`
	Succeeded         bool   `json:"succeeded"`
	SimulatorExitCode int    `json:"simulatorExitCode"`
	ExtractorExitCode int    `json:"extractorExitCode"`
	DurationMs        int64  `json:"durationMs"`
	Error             string `json:"error,omitempty"`
}

func newSummary(id, mainDir string, started, finished time.Time, outcomes []runexec.Outcome) *Summary {
	s := &Summary{
		SchemaVersion: ManifestSchemaV1,
		ProductionID:  id,
		MainDir:       mainDir,
		StartedAt:     started.UTC().Format(time.RFC3339Nano),
		FinishedAt:    finished.UTC().Format(time.RFC3339Nano),
		DurationMs:    finished.Sub(started).Milliseconds(),
		Total:         len(outcomes),
		Runs:          make([]RunSummary, 0, len(outcomes)),
		Outcomes:      outcomes,
	}
	for _, o := range outcomes {
		rs := RunSummary{
			PRMPAR:            o.PRMPAR,
			RunIndex:          o.RunIndex,
			RunNumber:         o.RunNumber,
			OutputPath:        o.OutputPath,
			Completed:         o.Completed,
			Succeeded:         o.Succeeded(),
			SimulatorExitCode: o.SimulatorExitCode,
			ExtractorExitCode: o.ExtractorExitCode,
			DurationMs:        o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			rs.Error = o.Err.Error()
			s.Errors++
		}
		if o.Completed {
			s.Completed++
			if !rs.Succeeded {
				s.Failed++
			}
		}
		if rs.Succeeded {
			s.Succeeded++
		}
		s.Runs = append(s.Runs, rs)
	}
	return s
}

// AllSucceeded reports whether every run completed with zero exit codes.
func (s *Summary) AllSucceeded() bool { return s.Succeeded == s.Total }

func (s *Summary) HasErrors() bool { return s.Errors > 0 }
