package vmcfg

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Builder collects VM configs during boot. It is not safe for concurrent
// use and is discarded by Freeze.
type Builder struct {
	capacity int
	vms      []VMConfig
	frozen   bool
}

// NewBuilder returns a builder for a table of at most capacity VMs. A
// capacity of zero selects MaxVMs.
func NewBuilder(capacity int) *Builder {
	if capacity <= 0 {
		capacity = MaxVMs
	}

	return &Builder{capacity: capacity}
}

// Add appends c. VM ids are not assigned here; the sanitizer checks that
// each record carries the id of its slot.
func (b *Builder) Add(c VMConfig) error {
	if b.frozen {
		return fmt.Errorf("add vm %d: builder already frozen", c.ID)
	}

	if len(b.vms) >= b.capacity {
		return fmt.Errorf("add vm %d: %w (capacity %d)", c.ID, ErrTableFull, b.capacity)
	}

	b.vms = append(b.vms, c.Clone())

	return nil
}

// Len returns the number of VMs added so far.
func (b *Builder) Len() int {
	return len(b.vms)
}

// Freeze returns the immutable table. The builder refuses further use.
func (b *Builder) Freeze() (*Table, error) {
	if b.frozen {
		return nil, fmt.Errorf("builder already frozen")
	}

	b.frozen = true

	t := &Table{capacity: b.capacity, vms: b.vms}
	b.vms = nil

	return t, nil
}

// Table is a frozen set of VM configs indexed by VM id. It has no
// mutators and may be shared freely.
type Table struct {
	capacity int
	vms      []VMConfig
}

// Len returns the number of configured VMs.
func (t *Table) Len() int {
	return len(t.vms)
}

// Cap returns the capacity the table was built with.
func (t *Table) Cap() int {
	return t.capacity
}

func (t *Table) at(id uint16) (*VMConfig, error) {
	if int(id) >= len(t.vms) {
		return nil, fmt.Errorf("vm %d of %d: %w", id, len(t.vms), ErrInvalidVMID)
	}

	return &t.vms[id], nil
}

// Get returns a copy of the config of VM id.
func (t *Table) Get(id uint16) (VMConfig, error) {
	c, err := t.at(id)
	if err != nil {
		return VMConfig{}, err
	}

	return c.Clone(), nil
}

// MatchUUID reports whether candidate is byte for byte the UUID of VM id.
// An unknown id or a candidate of the wrong length never matches.
func (t *Table) MatchUUID(id uint16, candidate []byte) bool {
	c, err := t.at(id)
	if err != nil {
		return false
	}

	return bytes.Equal(c.UUID[:], candidate)
}

// FindByUUID returns the id of the VM with UUID u.
func (t *Table) FindByUUID(u uuid.UUID) (uint16, bool) {
	for i := range t.vms {
		if t.vms[i].UUID == u {
			return uint16(i), true
		}
	}

	return 0, false
}

// Each calls fn with a copy of every config in id order until fn returns
// false.
func (t *Table) Each(fn func(VMConfig) bool) {
	for i := range t.vms {
		if !fn(t.vms[i].Clone()) {
			return
		}
	}
}

// View calls fn with every config in id order without copying. fn must not
// modify or retain the config.
func (t *Table) View(fn func(*VMConfig)) {
	for i := range t.vms {
		fn(&t.vms[i])
	}
}
