// Package steering holds the production steering document: which primaries
// to simulate, over which energy ranges, how many runs each, and the site
// and Cherenkov settings shared by every run.
package steering

// MaxRunNumber is the largest RUNNR CORSIKA accepts.
const MaxRunNumber = 999999

// Model is the parsed, validated steering document. It is built once per
// production and treated as read-only afterwards.
type Model struct {
	Nuclei          []Nucleus `json:"nuclei" yaml:"nuclei"`
	Site            Site      `json:"site" yaml:"site"`
	Cherenkov       Cherenkov `json:"cherenkov" yaml:"cherenkov"`
	RunNumberOffset int       `json:"run_number_offset,omitempty" yaml:"run_number_offset,omitempty"`
}

// Nucleus describes the runs of one primary particle species.
type Nucleus struct {
	PRMPAR           int     `json:"PRMPAR" yaml:"PRMPAR"`
	EnergyMin        float64 `json:"energy_start_in_GeV" yaml:"energy_start_in_GeV"`
	EnergyMax        float64 `json:"energy_stop_in_GeV" yaml:"energy_stop_in_GeV"`
	EnergySlope      float64 `json:"energy_slope" yaml:"energy_slope"`
	RunCount         int     `json:"number_of_runs" yaml:"number_of_runs"`
	EventsPerRun     int     `json:"events_per_run,omitempty" yaml:"events_per_run,omitempty"`
	MaxScatterRadius float64 `json:"max_scatter_radius_in_m,omitempty" yaml:"max_scatter_radius_in_m,omitempty"`
	MaxZenith        float64 `json:"max_zenith_angle_in_deg,omitempty" yaml:"max_zenith_angle_in_deg,omitempty"`
}

type Site struct {
	ObservationLevel float64 `json:"observation_level_asl_in_m" yaml:"observation_level_asl_in_m"`
	MagneticFieldX   float64 `json:"earth_magnetic_field_x_in_muT,omitempty" yaml:"earth_magnetic_field_x_in_muT,omitempty"`
	MagneticFieldZ   float64 `json:"earth_magnetic_field_z_in_muT,omitempty" yaml:"earth_magnetic_field_z_in_muT,omitempty"`
	// Atmosphere is the CORSIKA atmosphere model id; 0 keeps CORSIKA's default.
	Atmosphere int `json:"atmosphere_id,omitempty" yaml:"atmosphere_id,omitempty"`
}

type Cherenkov struct {
	BunchSize      float64 `json:"bunch_size,omitempty" yaml:"bunch_size,omitempty"`
	WavelengthMin  float64 `json:"wavelength_start_in_nm,omitempty" yaml:"wavelength_start_in_nm,omitempty"`
	WavelengthMax  float64 `json:"wavelength_stop_in_nm,omitempty" yaml:"wavelength_stop_in_nm,omitempty"`
	ApertureRadius float64 `json:"aperture_radius_in_m,omitempty" yaml:"aperture_radius_in_m,omitempty"`
}

const (
	defaultEventsPerRun   = 1
	defaultBunchSize      = 1.0
	defaultWavelengthMin  = 250.0
	defaultWavelengthMax  = 700.0
	defaultApertureRadius = 50.0
)

// TotalRuns is the number of runs over all nuclei.
func (m Model) TotalRuns() int {
	n := 0
	for _, nu := range m.Nuclei {
		n += nu.RunCount
	}
	return n
}

// PRMPARs lists the particle codes in steering order.
func (m Model) PRMPARs() []int {
	out := make([]int, 0, len(m.Nuclei))
	for _, nu := range m.Nuclei {
		out = append(out, nu.PRMPAR)
	}
	return out
}

func (m *Model) applyDefaults() {
	for i := range m.Nuclei {
		if m.Nuclei[i].EventsPerRun == 0 {
			m.Nuclei[i].EventsPerRun = defaultEventsPerRun
		}
	}
	if m.Cherenkov.BunchSize == 0 {
		m.Cherenkov.BunchSize = defaultBunchSize
	}
	if m.Cherenkov.WavelengthMin == 0 && m.Cherenkov.WavelengthMax == 0 {
		m.Cherenkov.WavelengthMin = defaultWavelengthMin
		m.Cherenkov.WavelengthMax = defaultWavelengthMax
	}
	if m.Cherenkov.ApertureRadius == 0 {
		m.Cherenkov.ApertureRadius = defaultApertureRadius
	}
}
