package scenario

import (
	"fmt"
	"strings"

	"github.com/bobuhiro11/hvconfig/vmcfg"
)

var loadOrders = []vmcfg.LoadOrder{vmcfg.PreLaunched, vmcfg.ServiceVM, vmcfg.PostLaunched}

var severities = []vmcfg.Severity{
	vmcfg.SeverityStandard,
	vmcfg.SeverityServiceVM,
	vmcfg.SeverityRTVM,
	vmcfg.SeveritySafety,
}

var kernelTypes = []vmcfg.KernelType{vmcfg.KernelBzImage, vmcfg.KernelZephyr}

var guestFlags = []struct {
	name string
	flag vmcfg.GuestFlags
}{
	{"secure-world", vmcfg.GuestFlagSecureWorld},
	{"lapic-passthrough", vmcfg.GuestFlagLAPICPassthrough},
	{"io-completion-polling", vmcfg.GuestFlagIOCompletionPolling},
	{"clos-required", vmcfg.GuestFlagCLOSRequired},
	{"hide-mtrr", vmcfg.GuestFlagHideMTRR},
	{"rt", vmcfg.GuestFlagRT},
}

// normalize folds the names of the scenario files of the hypervisor,
// e.g. SERVICE_VM or GUEST_FLAG_LAPIC_PASSTHROUGH, into ours.
func normalize(s, prefix string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")

	return strings.TrimPrefix(s, prefix)
}

func parseLoadOrder(s string) (vmcfg.LoadOrder, error) {
	name := normalize(s, "")
	if name == "sos-vm" {
		name = vmcfg.ServiceVM.String()
	}

	for _, o := range loadOrders {
		if o.String() == name || o.String()+"-vm" == name {
			return o, nil
		}
	}

	return 0, fmt.Errorf("unknown load order %q", s)
}

// parseSeverity defaults to the service VM severity for the service VM and
// to the standard severity for every other VM.
func parseSeverity(s string, o vmcfg.LoadOrder) (vmcfg.Severity, error) {
	name := normalize(s, "severity-")
	if name == "sos" {
		name = vmcfg.SeverityServiceVM.String()
	}

	if name == "" {
		if o == vmcfg.ServiceVM {
			return vmcfg.SeverityServiceVM, nil
		}

		return vmcfg.SeverityStandard, nil
	}

	for _, sev := range severities {
		if sev.String() == name || sev.String()+"-vm" == name {
			return sev, nil
		}
	}

	return 0, fmt.Errorf("unknown severity %q", s)
}

func parseKernelType(s string) (vmcfg.KernelType, error) {
	name := normalize(s, "kernel-")
	if name == "" {
		return vmcfg.KernelUnspecified, nil
	}

	for _, k := range kernelTypes {
		if k.String() == name {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown kernel type %q", s)
}

func parseGuestFlag(s string) (vmcfg.GuestFlags, error) {
	name := normalize(s, "guest-flag-")

	for _, f := range guestFlags {
		if f.name == name {
			return f.flag, nil
		}
	}

	return 0, fmt.Errorf("unknown guest flag %q", s)
}

func guestFlagNames(g vmcfg.GuestFlags) []string {
	var names []string

	for _, f := range guestFlags {
		if g.Has(f.flag) {
			names = append(names, f.name)
		}
	}

	return names
}
