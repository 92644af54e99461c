package memory

import (
	"errors"

	"github.com/google/btree"
)

var (
	// ErrAddrSpaceOccupied is returned when a mapping collides with an
	// existing one.
	ErrAddrSpaceOccupied = errors.New("address space occupied")

	// ErrOutOfAddrSpace is returned when a mapping does not fit in the
	// address space.
	ErrOutOfAddrSpace = errors.New("mapping outside of address space")
)

const btreeDegree = 8

// Mapping is a region claimed by an owner, e.g. a VM id.
type Mapping struct {
	Region
	Owner int
	Tag   string

	seq int
}

// AddressSpace indexes mappings by base address. Mappings may overlap; the
// index reports which ones do.
type AddressSpace struct {
	Name  string
	Range Region

	tree    *btree.BTreeG[Mapping]
	maxSize uint64
	seq     int
}

func lessMapping(a, b Mapping) bool {
	if a.Base != b.Base {
		return a.Base < b.Base
	}

	return a.seq < b.seq
}

// NewAddressSpace returns an empty address space covering r. A zero r
// covers the whole 64-bit space.
func NewAddressSpace(name string, r Region) *AddressSpace {
	return &AddressSpace{
		Name:  name,
		Range: r,
		tree:  btree.NewG(btreeDegree, lessMapping),
	}
}

// InRange reports whether r lies inside the address space.
func (a *AddressSpace) InRange(r Region) bool {
	if a.Range.IsEmpty() {
		return r.Valid()
	}

	return r.Valid() && a.Range.Contains(r)
}

// Overlapping returns the mappings that share an address with r, ordered by
// base address.
func (a *AddressSpace) Overlapping(r Region) []Mapping {
	if r.IsEmpty() {
		return nil
	}

	var found []Mapping

	// Mappings starting below r.Base can only reach into r if they are at
	// most maxSize away.
	a.tree.DescendLessOrEqual(Mapping{Region: Region{Base: r.Base}, seq: -1}, func(m Mapping) bool {
		if r.Base-m.Base >= a.maxSize {
			return false
		}

		if m.Overlaps(r) {
			found = append([]Mapping{m}, found...)
		}

		return true
	})

	a.tree.AscendGreaterOrEqual(Mapping{Region: Region{Base: r.Base}, seq: -1}, func(m Mapping) bool {
		if m.Base >= r.End() {
			return false
		}

		found = append(found, m)

		return true
	})

	return found
}

// IsFree reports whether no mapping covers any address of r.
func (a *AddressSpace) IsFree(r Region) bool {
	return len(a.Overlapping(r)) == 0
}

// Insert records m regardless of collisions and returns the mappings it
// overlaps. Empty mappings are not recorded.
func (a *AddressSpace) Insert(m Mapping) ([]Mapping, error) {
	if !a.InRange(m.Region) {
		return nil, ErrOutOfAddrSpace
	}

	if m.IsEmpty() {
		return nil, nil
	}

	overlaps := a.Overlapping(m.Region)

	a.seq++
	m.seq = a.seq
	a.tree.ReplaceOrInsert(m)

	if m.Size > a.maxSize {
		a.maxSize = m.Size
	}

	return overlaps, nil
}

// AddAddress records m only if it collides with nothing.
func (a *AddressSpace) AddAddress(m Mapping) error {
	if !a.InRange(m.Region) {
		return ErrOutOfAddrSpace
	}

	if !a.IsFree(m.Region) {
		return ErrAddrSpaceOccupied
	}

	_, err := a.Insert(m)

	return err
}

// Mappings returns every mapping ordered by base address.
func (a *AddressSpace) Mappings() []Mapping {
	ms := make([]Mapping, 0, a.tree.Len())

	a.tree.Ascend(func(m Mapping) bool {
		ms = append(ms, m)

		return true
	})

	return ms
}
