// Package particle maps CORSIKA primary particle codes (PRMPAR) to the
// human-readable names used for per-nucleus output directories.
package particle

import "fmt"

// names must stay injective: every code maps to a distinct directory name.
var names = map[int]string{
	1:    "gamma",
	2:    "positron",
	3:    "electron",
	5:    "muon_plus",
	6:    "muon_minus",
	7:    "pion_zero",
	8:    "pion_plus",
	9:    "pion_minus",
	13:   "neutron",
	14:   "proton",
	402:  "helium",
	703:  "lithium",
	904:  "beryllium",
	1105: "boron",
	1206: "carbon",
	1407: "nitrogen",
	1608: "oxygen",
	2010: "neon",
	2412: "magnesium",
	2814: "silicon",
	3216: "sulfur",
	4018: "argon",
	4020: "calcium",
	5626: "iron",
}

// UnknownError reports a PRMPAR code that has no name entry.
type UnknownError struct {
	PRMPAR int
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown particle id PRMPAR=%d", e.PRMPAR)
}

// Name returns the directory name for a PRMPAR code.
func Name(prmpar int) (string, error) {
	n, ok := names[prmpar]
	if !ok {
		return "", &UnknownError{PRMPAR: prmpar}
	}
	return n, nil
}
