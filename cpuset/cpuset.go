// Package cpuset implements a fixed-capacity set of physical CPU ids used for
// vCPU affinity.
package cpuset

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// MaxCPUs is the number of physical CPU ids a Set can hold.
const MaxCPUs = 64

const words = (MaxCPUs + 63) / 64

var (
	// ErrOutOfRange is returned when a CPU id does not fit in a Set.
	ErrOutOfRange = errors.New("cpu id out of range")

	errSyntax = errors.New("invalid cpu list")
)

// Set is a set of physical CPU ids in [0, MaxCPUs). The zero value is empty.
type Set struct {
	w [words]uint64
}

// Of returns a set holding ids.
func Of(ids ...int) (Set, error) {
	var s Set

	for _, id := range ids {
		if err := s.Add(id); err != nil {
			return Set{}, err
		}
	}

	return s, nil
}

// MustOf is like Of but panics on an out of range id.
func MustOf(ids ...int) Set {
	s, err := Of(ids...)
	if err != nil {
		panic(err)
	}

	return s
}

// FromMask builds a set from the low 64 ids encoded as a bit mask.
func FromMask(mask uint64) Set {
	var s Set
	s.w[0] = mask

	return s
}

// Mask returns the low 64 ids as a bit mask.
func (s Set) Mask() uint64 {
	return s.w[0]
}

// Add inserts id.
func (s *Set) Add(id int) error {
	if id < 0 || id >= MaxCPUs {
		return fmt.Errorf("cpu %d: %w", id, ErrOutOfRange)
	}

	s.w[id/64] |= 1 << uint(id%64)

	return nil
}

// Remove deletes id. Removing an absent id is a no-op.
func (s *Set) Remove(id int) {
	if id < 0 || id >= MaxCPUs {
		return
	}

	s.w[id/64] &^= 1 << uint(id%64)
}

// Has reports whether id is a member.
func (s Set) Has(id int) bool {
	if id < 0 || id >= MaxCPUs {
		return false
	}

	return s.w[id/64]&(1<<uint(id%64)) != 0
}

// Union returns s ∪ o.
func (s Set) Union(o Set) Set {
	for i := range s.w {
		s.w[i] |= o.w[i]
	}

	return s
}

// Intersect returns s ∩ o.
func (s Set) Intersect(o Set) Set {
	for i := range s.w {
		s.w[i] &= o.w[i]
	}

	return s
}

// Difference returns s \ o.
func (s Set) Difference(o Set) Set {
	for i := range s.w {
		s.w[i] &^= o.w[i]
	}

	return s
}

// Disjoint reports whether s and o share no id.
func (s Set) Disjoint(o Set) bool {
	return s.Intersect(o).IsEmpty()
}

// Equal reports whether s and o have the same members.
func (s Set) Equal(o Set) bool {
	return s == o
}

// IsEmpty reports whether the set has no members.
func (s Set) IsEmpty() bool {
	for _, w := range s.w {
		if w != 0 {
			return false
		}
	}

	return true
}

// Count returns the number of members.
func (s Set) Count() int {
	n := 0
	for _, w := range s.w {
		n += bits.OnesCount64(w)
	}

	return n
}

// Max returns the largest member, or -1 for an empty set.
func (s Set) Max() int {
	for i := len(s.w) - 1; i >= 0; i-- {
		if w := s.w[i]; w != 0 {
			return i*64 + 63 - bits.LeadingZeros64(w)
		}
	}

	return -1
}

// IDs returns the members in ascending order.
func (s Set) IDs() []int {
	ids := make([]int, 0, s.Count())

	for i, w := range s.w {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			ids = append(ids, i*64+b)
			w &^= 1 << uint(b)
		}
	}

	return ids
}

// String formats the set as a cpu list, e.g. "0-3,6".
func (s Set) String() string {
	ids := s.IDs()
	parts := []string{}

	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}

		if i == j {
			parts = append(parts, strconv.Itoa(ids[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", ids[i], ids[j]))
		}

		i = j + 1
	}

	return strings.Join(parts, ",")
}

// Parse reads a cpu list such as "0-3,6". The empty string is the empty set.
func Parse(list string) (Set, error) {
	var s Set

	list = strings.TrimSpace(list)
	if list == "" {
		return s, nil
	}

	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)

		lo, hi, isRange := strings.Cut(part, "-")

		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return Set{}, fmt.Errorf("%q: %w", list, errSyntax)
		}

		last := first

		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || last < first {
				return Set{}, fmt.Errorf("%q: %w", list, errSyntax)
			}
		}

		for id := first; id <= last; id++ {
			if err := s.Add(id); err != nil {
				return Set{}, err
			}
		}
	}

	return s, nil
}
