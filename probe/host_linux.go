//go:build linux

package probe

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// cpuSetSize is CPU_SETSIZE, the number of ids a unix.CPUSet holds.
const cpuSetSize = 1024

// physicalCPUs returns the number of CPU ids up to the highest one this
// process may run on. A restricted mask such as 4-7 still counts 0-3.
func physicalCPUs() (int, error) {
	var set unix.CPUSet

	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 0, fmt.Errorf("sched_getaffinity: %w", err)
	}

	n := cpuSpan(&set)
	if n == 0 {
		return 0, fmt.Errorf("sched_getaffinity: empty CPU mask")
	}

	return n, nil
}

// cpuSpan returns the highest id in set plus one, or 0 for an empty set.
func cpuSpan(set *unix.CPUSet) int {
	for cpu := cpuSetSize - 1; cpu >= 0; cpu-- {
		if set.IsSet(cpu) {
			return cpu + 1
		}
	}

	return 0
}
