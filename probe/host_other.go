//go:build !linux

package probe

import "runtime"

func physicalCPUs() (int, error) {
	return runtime.NumCPU(), nil
}
