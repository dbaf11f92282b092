package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewProductionID(now time.Time) string {
	// YYYYMMDD-HHMMSSZ-<hex8>
	prefix := now.UTC().Format("20060102-150405Z")
	u := uuid.New()
	return prefix + "-" + strings.ReplaceAll(u.String(), "-", "")[:8]
}

// RunStem is the file name stem of one run's artifacts. It is injective on
// (prmpar, runIndex).
func RunStem(prmpar int, runIndex int) string {
	return fmt.Sprintf("%d_%06d", prmpar, runIndex)
}
