package vmcfg

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Well-known UUIDs reserved for the real-time and safety VMs.
var (
	RTVMUUID = uuid.UUID{
		0x49, 0x5a, 0xe2, 0xe5, 0x26, 0x03, 0x4d, 0x64,
		0xaf, 0x76, 0xd4, 0xbc, 0x5a, 0x8e, 0xc0, 0xe5,
	}

	SafetyVMUUID = uuid.UUID{
		0xfc, 0x83, 0x69, 0x01, 0x86, 0x85, 0x4b, 0xc0,
		0x8b, 0x71, 0x6e, 0x31, 0xdc, 0x36, 0xfa, 0x47,
	}
)

// Registry is a table that passed certification.
type Registry struct {
	t *Table
}

// Certify runs check over t and returns a registry only if it reports no
// error.
func Certify(t *Table, check func(*Table) error) (*Registry, error) {
	if t == nil {
		return nil, fmt.Errorf("certify: nil table")
	}

	if err := check(t); err != nil {
		return nil, err
	}

	return &Registry{t: t}, nil
}

// Len returns the number of configured VMs.
func (r *Registry) Len() int {
	return r.t.Len()
}

// GetVMConfig returns a copy of the config of VM id, or ErrInvalidVMID.
func (r *Registry) GetVMConfig(id uint16) (VMConfig, error) {
	return r.t.Get(id)
}

// VMHasMatchedUUID reports whether u is the UUID of VM id.
func (r *Registry) VMHasMatchedUUID(id uint16, u []byte) bool {
	return r.t.MatchUUID(id, u)
}

// FindByUUID returns the id of the VM with UUID u.
func (r *Registry) FindByUUID(u uuid.UUID) (uint16, bool) {
	return r.t.FindByUUID(u)
}

// Table returns the certified table.
func (r *Registry) Table() *Table {
	return r.t
}

var published atomic.Pointer[Registry]

// Publish makes r the process-wide registry. It succeeds once.
func Publish(r *Registry) error {
	if r == nil {
		return fmt.Errorf("publish: nil registry")
	}

	if !published.CompareAndSwap(nil, r) {
		return ErrAlreadyPublished
	}

	return nil
}

// Published returns the process-wide registry, or ErrNotValidated.
func Published() (*Registry, error) {
	r := published.Load()
	if r == nil {
		return nil, ErrNotValidated
	}

	return r, nil
}

// GetVMConfig looks up VM id in the process-wide registry.
func GetVMConfig(id uint16) (VMConfig, error) {
	r, err := Published()
	if err != nil {
		return VMConfig{}, err
	}

	return r.GetVMConfig(id)
}

// VMHasMatchedUUID matches u against VM id of the process-wide registry. It
// is false before a registry is published.
func VMHasMatchedUUID(id uint16, u []byte) bool {
	r, err := Published()
	if err != nil {
		return false
	}

	return r.VMHasMatchedUUID(id, u)
}
