package sandbox

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

const (
	defaultMemoryLimit = 1 << 30 // 1 GiB, used when /proc/meminfo is unreadable
	memoryLimitCap     = 20 * (1 << 30) // 20 GiB
	memorySafetyMargin = 200 * (1 << 20) // 200 MiB
)

// MemAvailable reads /proc/meminfo and returns MemAvailable+SwapFree in
// bytes, matching original_source/glycin/src/sandbox.rs's mem_available.
func MemAvailable() (uint64, bool) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	defer f.Close()

	var total uint64
	found := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		for _, key := range []string{"MemAvailable:", "SwapFree:"} {
			if strings.HasPrefix(line, key) {
				fields := strings.Fields(strings.TrimPrefix(line, key))
				if len(fields) == 0 {
					continue
				}
				kb, err := strconv.ParseUint(fields[0], 10, 64)
				if err != nil {
					continue
				}
				total += kb * 1024
				found = true
			}
		}
	}
	return total, found
}

// CalculateMemoryLimit applies the cap/margin/ratio formula from
// calculate_memory_limit in sandbox.rs to a raw available-bytes figure.
func CalculateMemoryLimit(available uint64) uint64 {
	considered := available
	if considered > memoryLimitCap {
		considered = memoryLimitCap
	}
	if considered > memorySafetyMargin {
		considered -= memorySafetyMargin
	} else {
		considered = 0
	}
	return uint64(float64(considered) * 0.8)
}

// MemoryLimit returns the RLIMIT_AS value a worker should be spawned with:
// 80% of (available memory capped at 20 GiB, minus a 200 MiB margin), or a
// 1 GiB default if /proc/meminfo could not be read.
func MemoryLimit() uint64 {
	available, ok := MemAvailable()
	if !ok {
		return defaultMemoryLimit
	}
	return CalculateMemoryLimit(available)
}
