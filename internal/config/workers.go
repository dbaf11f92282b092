package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

func DefaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

func ParseWorkers(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid worker count %q", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("worker count must be >= 1 (got %d)", n)
	}
	return n, nil
}
