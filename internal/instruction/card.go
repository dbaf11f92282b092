package instruction

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/marcohefti/direct-cherenkov-production/internal/steering"
)

const cmPerM = 100.0

// CardParams are the values substituted into one CORSIKA steering card.
type CardParams struct {
	RunNumber int
	Nucleus   steering.Nucleus
	Site      steering.Site
	Cherenkov steering.Cherenkov
}

// Seeds derives the four CORSIKA random sequence seeds of a run. Distinct
// run numbers never share a seed.
func (p CardParams) Seeds() [4]int {
	base := 4 * (p.RunNumber - 1)
	return [4]int{base + 1, base + 2, base + 3, base + 4}
}

var cardTemplate = template.Must(template.New("card").Funcs(template.FuncMap{
	"e":  func(v float64) string { return fmt.Sprintf("%e", v) },
	"cm": func(v float64) string { return fmt.Sprintf("%e", v*cmPerM) },
}).Parse(`RUNNR {{.RunNumber}}
EVTNR 1
NSHOW {{.Nucleus.EventsPerRun}}
PRMPAR {{.Nucleus.PRMPAR}}
ESLOPE {{e .Nucleus.EnergySlope}}
ERANGE {{e .Nucleus.EnergyMin}} {{e .Nucleus.EnergyMax}}
THETAP 0. {{e .Nucleus.MaxZenith}}
PHIP 0. 360.
{{range .Seeds}}SEED {{.}} 0 0
{{end}}OBSLEV {{cm .Site.ObservationLevel}}
FIXCHI 0.
{{if or .Site.MagneticFieldX .Site.MagneticFieldZ}}MAGNET {{e .Site.MagneticFieldX}} {{e .Site.MagneticFieldZ}}
{{end}}ELMFLG T T
MAXPRT 1
PAROUT F F
{{if .Site.Atmosphere}}ATMOSPHERE {{.Site.Atmosphere}} T
{{end}}TELESCOPE 0. 0. 0. {{cm .Cherenkov.ApertureRadius}}
{{if .Nucleus.MaxScatterRadius}}CSCAT 1 {{cm .Nucleus.MaxScatterRadius}} 0.
{{end}}CERSIZ {{e .Cherenkov.BunchSize}}
CWAVLG {{e .Cherenkov.WavelengthMin}} {{e .Cherenkov.WavelengthMax}}
CERFIL 0
TSTART T
EXIT
`))

// RenderCard renders the steering card of one run. The card ends with EXIT
// and contains no output paths.
func RenderCard(p CardParams) (string, error) {
	var b strings.Builder
	if err := cardTemplate.Execute(&b, p); err != nil {
		return "", fmt.Errorf("render steering card RUNNR=%d: %w", p.RunNumber, err)
	}
	return b.String(), nil
}
