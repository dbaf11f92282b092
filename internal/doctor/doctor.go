// Package doctor checks that a production could start with the current
// configuration, without creating any output.
package doctor

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcohefti/direct-cherenkov-production/internal/config"
)

type Check struct {
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Result struct {
	OK          bool    `json:"ok"`
	CorsikaPath string  `json:"corsikaPath,omitempty"`
	CorsikaDir  string  `json:"corsikaDir,omitempty"`
	Workers     int     `json:"workers"`
	Checks      []Check `json:"checks"`
}

type Opts struct {
	Flags         config.Flags
	ExtractorPath string
	TempRoot      string
}

func (r *Result) add(c Check) {
	if !c.OK {
		r.OK = false
	}
	r.Checks = append(r.Checks, c)
}

func Run(opts Opts) (Result, error) {
	res := Result{OK: true}

	m, err := config.LoadMerged(opts.Flags)
	if err != nil {
		res.add(Check{ID: "config", OK: false, Message: err.Error()})
		return res, nil
	}
	res.add(Check{ID: "config", OK: true, Message: "workers from " + m.WorkersSource})
	res.CorsikaPath = m.CorsikaPath
	res.CorsikaDir = m.CorsikaDir
	res.Workers = m.Workers

	if m.CorsikaPath == "" {
		res.add(Check{ID: "corsika_executable", OK: false, Message: "not configured"})
	} else {
		res.add(checkExecutable("corsika_executable", m.CorsikaPath))
	}
	if m.CorsikaDir == "" {
		res.add(Check{ID: "corsika_dir", OK: false, Message: "not configured"})
	} else if st, err := os.Stat(m.CorsikaDir); err != nil {
		res.add(Check{ID: "corsika_dir", OK: false, Message: err.Error()})
	} else if !st.IsDir() {
		res.add(Check{ID: "corsika_dir", OK: false, Message: m.CorsikaDir + " is not a directory"})
	} else {
		res.add(Check{ID: "corsika_dir", OK: true})
	}

	if strings.TrimSpace(opts.ExtractorPath) == "" {
		res.add(Check{ID: "evtio_extractor", OK: true, Message: "not given (skipped)"})
	} else {
		res.add(checkExecutable("evtio_extractor", opts.ExtractorPath))
	}

	// Write access: create and remove a scratch dir where runs would.
	tmp, err := os.MkdirTemp(opts.TempRoot, ".dcprod-doctor-")
	if err != nil {
		res.add(Check{ID: "temp_write_access", OK: false, Message: err.Error()})
	} else {
		_ = os.RemoveAll(tmp)
		res.add(Check{ID: "temp_write_access", OK: true})
	}
	return res, nil
}

func checkExecutable(id, path string) Check {
	st, err := os.Stat(path)
	if err != nil {
		return Check{ID: id, OK: false, Message: err.Error()}
	}
	if st.IsDir() {
		return Check{ID: id, OK: false, Message: path + " is a directory"}
	}
	if st.Mode().Perm()&0o111 == 0 {
		return Check{ID: id, OK: false, Message: fmt.Sprintf("%s is not executable (mode %s)", path, st.Mode().Perm())}
	}
	return Check{ID: id, OK: true}
}
