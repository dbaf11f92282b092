package production

import (
	"io"
	"sync"

	"github.com/marcohefti/direct-cherenkov-production/internal/store"
)

const (
	EventProductionStarted  = "production_started"
	EventRunStarted         = "run_started"
	EventRunFinished        = "run_finished"
	EventProductionFinished = "production_finished"
)

type ProgressEvent struct {
	V            int            `json:"v"`
	TS           string         `json:"ts"`
	Kind         string         `json:"kind"`
	ProductionID string         `json:"productionId,omitempty"`
	PRMPAR       int            `json:"prmpar,omitempty"`
	RunIndex     int            `json:"runIndex,omitempty"`
	RunNumber    int            `json:"runNumber,omitempty"`
	OutputPath   string         `json:"outputPath,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

type progressEmitter struct {
	mu   sync.Mutex
	path string
	w    io.Writer
}

func newProgressEmitter(path string, w io.Writer) *progressEmitter {
	if path == "" {
		return nil
	}
	return &progressEmitter{path: path, w: w}
}

func (e *progressEmitter) Emit(ev ProgressEvent) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ev.V = 1
	if e.path == "-" {
		if e.w == nil {
			return nil
		}
		return store.WriteJSONL(e.w, ev)
	}
	return store.AppendJSONL(e.path, ev)
}
