// Package sanitize certifies a VM configuration table before any VM is
// started.
//
// Every check runs over the whole table and every broken invariant is
// reported with the ids of the VMs involved. A table with at least one
// violation must not be used to launch VMs.
package sanitize

import (
	"errors"
	"sort"

	"github.com/bobuhiro11/hvconfig/platform"
	"github.com/bobuhiro11/hvconfig/vmcfg"
)

// Options tune the sanitizer.
type Options struct {
	// Strict adds the well-formedness and partitioning policy of the
	// hypervisor on top of the table invariants: records are well formed
	// (vCPU count, names, EPC alignment, set UUIDs, kernel modules, BDF
	// ranges, known devices and vUART targets), pre-launched VMs own their
	// physical CPUs, the service VM keeps its LAPIC, the safety VM is
	// pre-launched, the RT flag implies LAPIC passthrough, reserved UUIDs
	// carry their severity, CLOS ids fit the platform and vUART connections
	// are reciprocal.
	Strict bool
}

// Report is the verdict of one run.
type Report struct {
	Violations []*vmcfg.Violation
}

// OK reports whether the table passed.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Err returns every violation joined into one error, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}

	errs := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		errs[i] = v
	}

	return errors.Join(errs...)
}

// Has reports whether a violation of kind was found.
func (r *Report) Has(kind error) bool {
	for _, v := range r.Violations {
		if errors.Is(v, kind) {
			return true
		}
	}

	return false
}

// VMs returns the ids of every VM named by a violation of kind, sorted.
func (r *Report) VMs(kind error) []uint16 {
	seen := map[uint16]bool{}
	out := []uint16{}

	for _, v := range r.Violations {
		if !errors.Is(v, kind) {
			continue
		}

		for _, id := range v.VMs {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

type checker struct {
	vms  []*vmcfg.VMConfig
	p    platform.Info
	opts Options

	report Report
}

func (c *checker) fail(kind error, vms []uint16, format string, args ...any) {
	c.report.Violations = append(c.report.Violations, vmcfg.Violationf(kind, vms, format, args...))
}

// Run checks t against the platform p. A nil table is reported as a
// violation.
func Run(t *vmcfg.Table, p platform.Info, opts Options) *Report {
	c := &checker{p: p, opts: opts}

	if t == nil {
		c.fail(vmcfg.ErrMalformedVMConfig, nil, "no VM table")

		return &c.report
	}

	t.View(func(vm *vmcfg.VMConfig) {
		c.vms = append(c.vms, vm)
	})

	c.checkIDs()
	c.checkMemory()
	c.checkAffinityRange()
	c.checkLAPICPassthrough()
	c.checkSeverity()
	c.checkUUID()
	c.checkPCI()
	c.checkVUART()
	c.checkOSConfig()

	if opts.Strict {
		c.checkRecords()
		c.checkStaticMemory()
		c.checkVCPUSharing()
		c.checkPartitioning()
		c.checkRoles()
		c.checkNilUUID()
		c.checkGuestFlags()
		c.checkReservedUUID()
		c.checkCLOS()
		c.checkDevices()
		c.checkVUARTTargets()
		c.checkVUARTPeers()
		c.checkBootImage()
	}

	return &c.report
}

// VMConfigs reports whether t satisfies every table invariant on p. The
// strict policy is not applied.
func VMConfigs(t *vmcfg.Table, p platform.Info) bool {
	return Run(t, p, Options{}).OK()
}

// Certify runs the sanitizer and returns the registry of t if it passes.
func Certify(t *vmcfg.Table, p platform.Info, opts Options) (*vmcfg.Registry, *Report, error) {
	var report *Report

	r, err := vmcfg.Certify(t, func(t *vmcfg.Table) error {
		report = Run(t, p, opts)

		return report.Err()
	})

	return r, report, err
}

func ids(vms ...uint16) []uint16 {
	return vms
}

// pair returns the ids of two VMs, or one id when both are the same VM.
func pair(a, b uint16) []uint16 {
	if a == b {
		return []uint16{a}
	}

	return []uint16{a, b}
}
