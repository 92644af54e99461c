package vmcfg

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidVMID            = errors.New("invalid VM id")
	ErrConfigOverlap          = errors.New("VM memory overlaps")
	ErrAffinityConflict       = errors.New("LAPIC passthrough VMs share a physical CPU")
	ErrAffinityOutOfRange     = errors.New("vCPU affinity names a nonexistent physical CPU")
	ErrDuplicateUUID          = errors.New("duplicate VM UUID")
	ErrDuplicateBDF           = errors.New("duplicate PCI BDF")
	ErrDuplicateVuartResource = errors.New("duplicate vUART resource")
	ErrVuartTarget            = errors.New("invalid vUART target")
	ErrSeverityInconsistent   = errors.New("severity inconsistent with load order")
	ErrMalformedOSConfig      = errors.New("malformed OS config")
	ErrMalformedVMConfig      = errors.New("malformed VM config")
	ErrUnknownDevice          = errors.New("passthrough device not present on the platform")

	// ErrNotValidated is returned by lookups before a registry has been
	// certified and published.
	ErrNotValidated = errors.New("VM configuration not validated")

	// ErrAlreadyPublished is returned when a second registry is published.
	ErrAlreadyPublished = errors.New("VM configuration already published")

	// ErrTableFull is returned when more VMs are added than the table holds.
	ErrTableFull = errors.New("VM configuration table full")
)

// Violation is one broken invariant of a table.
type Violation struct {
	Kind   error
	VMs    []uint16
	Detail string
}

func (v *Violation) Error() string {
	var b strings.Builder

	b.WriteString(v.Kind.Error())

	if len(v.VMs) > 0 {
		ids := make([]string, len(v.VMs))
		for i, id := range v.VMs {
			ids[i] = fmt.Sprint(id)
		}

		b.WriteString(" (vm ")
		b.WriteString(strings.Join(ids, ", "))
		b.WriteString(")")
	}

	if v.Detail != "" {
		b.WriteString(": ")
		b.WriteString(v.Detail)
	}

	return b.String()
}

func (v *Violation) Unwrap() error {
	return v.Kind
}

// Violationf builds a Violation of kind for vms.
func Violationf(kind error, vms []uint16, format string, args ...any) *Violation {
	return &Violation{Kind: kind, VMs: vms, Detail: fmt.Sprintf(format, args...)}
}
