//go:build linux

package probe

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestCPUSpan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cpus     []int
		expected int
	}{
		{nil, 0},
		{[]int{0}, 1},
		{[]int{4, 5, 6, 7}, 8},
		{[]int{1, 63}, 64},
		{[]int{200}, 201},
	}

	for _, tt := range tests {
		var set unix.CPUSet

		for _, cpu := range tt.cpus {
			set.Set(cpu)
		}

		if actual := cpuSpan(&set); actual != tt.expected {
			t.Fatalf("%v expected: %d, actual: %d", tt.cpus, tt.expected, actual)
		}
	}
}

func TestPhysicalCPUsCoversAffinity(t *testing.T) {
	t.Parallel()

	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		t.Skip(err)
	}

	n, err := physicalCPUs()
	if err != nil {
		t.Fatal(err)
	}

	if n < set.Count() {
		t.Fatalf("expected at least %d, actual: %d", set.Count(), n)
	}

	if !set.IsSet(n - 1) {
		t.Fatalf("cpu %d not in the affinity mask", n-1)
	}
}
