// Package probe reads the platform description of the host it runs on.
package probe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bobuhiro11/hvconfig/pci"
	"github.com/bobuhiro11/hvconfig/platform"
)

const (
	sysPCIDevices  = "/sys/bus/pci/devices"
	resctrlClosIDs = "/sys/fs/resctrl/info/L3/num_closids"
)

// Host returns the platform description of the running machine.
func Host() (platform.Info, error) {
	n, err := physicalCPUs()
	if err != nil {
		return platform.Info{}, err
	}

	devs, err := pciDevices(sysPCIDevices)
	if err != nil {
		return platform.Info{}, err
	}

	return platform.Info{
		PhysicalCPUs: n,
		ClosMax:      closMax(resctrlClosIDs),
		PCIDevices:   devs,
	}, nil
}

// pciDevices lists the functions under a sysfs directory whose entries are
// named "dddd:bb:dd.f". A missing directory yields an empty list.
func pciDevices(dir string) ([]pci.BDF, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	devs := []pci.BDF{}

	for _, e := range entries {
		name := e.Name()

		// strip the PCI segment
		if _, rest, ok := strings.Cut(name, ":"); ok && strings.Count(name, ":") == 2 {
			name = rest
		}

		bdf, err := pci.ParseBDF(name)
		if err != nil {
			continue
		}

		devs = append(devs, bdf)
	}

	slices.SortFunc(devs, func(a, b pci.BDF) int {
		return int(a.Value()) - int(b.Value())
	})

	return devs, nil
}

// closMax reads the number of L3 classes of service exposed by resctrl. It
// returns -1 when cache allocation is unavailable.
func closMax(path string) int {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return -1
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || n <= 0 {
		return -1
	}

	return n - 1
}

// Print writes a human readable summary of info.
func Print(w io.Writer, info platform.Info) {
	fmt.Fprintf(w, "* Physical CPUs: %d (%v)\n", info.PhysicalCPUs, info.CPUs())

	if info.ClosMax < 0 {
		fmt.Fprintf(w, "* CLOS: unsupported\n")
	} else {
		fmt.Fprintf(w, "* CLOS: 0-%d\n", info.ClosMax)
	}

	fmt.Fprintf(w, "* PCI devices:")

	for i := 0; i < len(info.PCIDevices); i++ {
		fmt.Fprintf(w, " %s", info.PCIDevices[i].String())
	}

	fmt.Fprintf(w, "\n")
}
