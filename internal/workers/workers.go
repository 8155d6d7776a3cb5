package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that pins the worker count.
const OverrideEnv = "DERIVE_WORKERS"

// lookupEnv is replaced in tests.
var lookupEnv = os.Getenv

// Count returns multiplier × GOMAXPROCS workers, at least one and at most
// limit. A limit of zero means no cap.
func Count(multiplier float64, limit int) int {
	if override := lookupEnv(OverrideEnv); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capAt(count, limit)
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU returns one worker per CPU.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns two workers per CPU.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns one and a half workers per CPU.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
