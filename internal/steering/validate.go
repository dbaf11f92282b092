package steering

import (
	"errors"
	"fmt"
)

var ErrNoNuclei = errors.New("steering has no nuclei")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid steering %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the invariants every later stage relies on: unique particle
// codes, at least one run per nucleus, ordered energy ranges, and run numbers
// that fit CORSIKA's RUNNR range.
func (m Model) Validate() error {
	if len(m.Nuclei) == 0 {
		return ErrNoNuclei
	}
	if m.RunNumberOffset < 0 || m.RunNumberOffset >= MaxRunNumber {
		return invalid("run_number_offset", "must be within [0, %d), got %d", MaxRunNumber, m.RunNumberOffset)
	}
	seen := map[int]int{}
	total := 0
	for i, nu := range m.Nuclei {
		field := fmt.Sprintf("nuclei[%d]", i)
		if nu.PRMPAR <= 0 {
			return invalid(field+".PRMPAR", "must be > 0, got %d", nu.PRMPAR)
		}
		if prev, dup := seen[nu.PRMPAR]; dup {
			return invalid(field+".PRMPAR", "duplicate PRMPAR=%d (also nuclei[%d])", nu.PRMPAR, prev)
		}
		seen[nu.PRMPAR] = i
		if nu.RunCount < 1 {
			return invalid(field+".number_of_runs", "must be >= 1, got %d", nu.RunCount)
		}
		// Compared before adding so the running total cannot overflow.
		if nu.RunCount > MaxRunNumber-m.RunNumberOffset-total {
			return invalid(field+".number_of_runs", "run numbers would exceed %d (offset %d, %d runs before this nucleus)", MaxRunNumber, m.RunNumberOffset, total)
		}
		total += nu.RunCount
		if nu.EventsPerRun < 1 {
			return invalid(field+".events_per_run", "must be >= 1, got %d", nu.EventsPerRun)
		}
		if nu.EnergyMin <= 0 {
			return invalid(field+".energy_start_in_GeV", "must be > 0, got %g", nu.EnergyMin)
		}
		if nu.EnergyMin > nu.EnergyMax {
			return invalid(field+".energy_stop_in_GeV", "must be >= energy_start_in_GeV (%g > %g)", nu.EnergyMin, nu.EnergyMax)
		}
		if nu.MaxScatterRadius < 0 {
			return invalid(field+".max_scatter_radius_in_m", "must be >= 0")
		}
		if nu.MaxZenith < 0 || nu.MaxZenith > 90 {
			return invalid(field+".max_zenith_angle_in_deg", "must be within [0, 90], got %g", nu.MaxZenith)
		}
	}
	if m.Cherenkov.WavelengthMin >= m.Cherenkov.WavelengthMax {
		return invalid("cherenkov.wavelength_stop_in_nm", "must be > wavelength_start_in_nm")
	}
	if m.Cherenkov.BunchSize <= 0 {
		return invalid("cherenkov.bunch_size", "must be > 0")
	}
	if m.Cherenkov.ApertureRadius <= 0 {
		return invalid("cherenkov.aperture_radius_in_m", "must be > 0")
	}
	return nil
}
