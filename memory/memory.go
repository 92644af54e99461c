package memory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Region is the host physical interval [Base, Base+Size).
type Region struct {
	Base uint64
	Size uint64
}

// End returns the first address past the region. It saturates at
// math.MaxUint64 for regions that wrap.
func (r Region) End() uint64 {
	if r.Base > math.MaxUint64-r.Size {
		return math.MaxUint64
	}

	return r.Base + r.Size
}

// IsEmpty reports whether the region covers no address.
func (r Region) IsEmpty() bool {
	return r.Size == 0
}

// Valid reports whether the region does not wrap past the top of the
// address space.
func (r Region) Valid() bool {
	return r.Size == 0 || r.Base <= math.MaxUint64-r.Size
}

// Overlaps reports whether r and o share at least one address. Empty regions
// overlap nothing.
func (r Region) Overlaps(o Region) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}

	return r.Base < o.End() && o.Base < r.End()
}

// Contains reports whether o lies entirely inside r.
func (r Region) Contains(o Region) bool {
	return o.Base >= r.Base && o.End() <= r.End()
}

func (r Region) String() string {
	return fmt.Sprintf("[%#x, %#x)", r.Base, r.End())
}

// ParseSize parses a size string as number[gGmMkK]. The multiplier is optional,
// and if not set, the unit passed in is used. The number can be any base and
// size.
func ParseSize(s, unit string) (uint64, error) {
	sz := strings.TrimRight(s, "gGmMkK")
	if len(sz) == 0 {
		return 0, fmt.Errorf("%q:can't parse as num[gGmMkK]:%w", s, strconv.ErrSyntax)
	}

	amt, err := strconv.ParseUint(sz, 0, 64)
	if err != nil {
		return 0, err
	}

	if len(s) > len(sz) {
		unit = s[len(sz):]
	}

	var shift uint

	switch unit {
	case "G", "g":
		shift = 30
	case "M", "m":
		shift = 20
	case "K", "k":
		shift = 10
	case "":
		return amt, nil
	default:
		return 0, fmt.Errorf("can not parse %q as num[gGmMkK]:%w", s, strconv.ErrSyntax)
	}

	if amt > math.MaxUint64>>shift {
		return 0, fmt.Errorf("%q: %w", s, strconv.ErrRange)
	}

	return amt << shift, nil
}
