package memory_test

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/bobuhiro11/hvconfig/memory"
	"github.com/google/go-cmp/cmp"
)

func TestRegionOverlaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		a, b     memory.Region
		expected bool
	}{
		{
			name:     "partial overlap",
			a:        memory.Region{Base: 0x100000, Size: 0x100000},
			b:        memory.Region{Base: 0x180000, Size: 0x100000},
			expected: true,
		},
		{
			name:     "adjacent",
			a:        memory.Region{Base: 0x100000, Size: 0x100000},
			b:        memory.Region{Base: 0x200000, Size: 0x100000},
			expected: false,
		},
		{
			name:     "contained",
			a:        memory.Region{Base: 0x0, Size: 0x1000000},
			b:        memory.Region{Base: 0x2000, Size: 0x1000},
			expected: true,
		},
		{
			name:     "empty",
			a:        memory.Region{Base: 0x100000, Size: 0},
			b:        memory.Region{Base: 0x0, Size: 0x1000000},
			expected: false,
		},
	}

	for _, tt := range tests {
		if actual := tt.a.Overlaps(tt.b); actual != tt.expected {
			t.Errorf("%s: expected: %v, actual: %v", tt.name, tt.expected, actual)
		}

		if actual := tt.b.Overlaps(tt.a); actual != tt.expected {
			t.Errorf("%s (swapped): expected: %v, actual: %v", tt.name, tt.expected, actual)
		}
	}
}

func TestRegionValid(t *testing.T) {
	t.Parallel()

	if !(memory.Region{Base: math.MaxUint64, Size: 0}).Valid() {
		t.Error("empty region at top should be valid")
	}

	r := memory.Region{Base: math.MaxUint64 - 0xfff, Size: 0x2000}
	if r.Valid() {
		t.Error("wrapping region should be invalid")
	}

	if r.End() != math.MaxUint64 {
		t.Errorf("expected saturated end, actual: %#x", r.End())
	}
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		unit     string
		expected uint64
	}{
		{in: "1G", unit: "", expected: 1 << 30},
		{in: "512m", unit: "", expected: 512 << 20},
		{in: "4k", unit: "", expected: 4 << 10},
		{in: "2", unit: "g", expected: 2 << 30},
		{in: "0x100000", unit: "", expected: 0x100000},
	}

	for _, tt := range tests {
		actual, err := memory.ParseSize(tt.in, tt.unit)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", tt.in, err)
		}

		if actual != tt.expected {
			t.Fatalf("expected: %#x, actual: %#x", tt.expected, actual)
		}
	}

	if _, err := memory.ParseSize("G", ""); !errors.Is(err, strconv.ErrSyntax) {
		t.Fatalf("expected: %v, actual: %v", strconv.ErrSyntax, err)
	}

	if _, err := memory.ParseSize("1", "t"); !errors.Is(err, strconv.ErrSyntax) {
		t.Fatalf("expected: %v, actual: %v", strconv.ErrSyntax, err)
	}
}

func owners(ms []memory.Mapping) []int {
	ids := []int{}
	for _, m := range ms {
		ids = append(ids, m.Owner)
	}

	return ids
}

func TestAddressSpaceInsert(t *testing.T) {
	t.Parallel()

	as := memory.NewAddressSpace("hpa", memory.Region{})

	insert := func(owner int, base, size uint64) []int {
		t.Helper()

		ms, err := as.Insert(memory.Mapping{Region: memory.Region{Base: base, Size: size}, Owner: owner})
		if err != nil {
			t.Fatal(err)
		}

		return owners(ms)
	}

	if diff := cmp.Diff([]int{}, insert(0, 0x100000, 0x100000)); diff != "" {
		t.Errorf("first insert (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{}, insert(1, 0x200000, 0x100000)); diff != "" {
		t.Errorf("adjacent insert (-want +got):\n%s", diff)
	}

	// A large mapping far below still has to be found.
	if diff := cmp.Diff([]int{}, insert(2, 0x10000000, 0x10000000)); diff != "" {
		t.Errorf("disjoint insert (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{0, 1}, insert(3, 0x180000, 0x100000)); diff != "" {
		t.Errorf("overlapping insert (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{2}, insert(4, 0x1ffff000, 0x2000)); diff != "" {
		t.Errorf("tail overlap (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{}, insert(5, 0x180000, 0)); diff != "" {
		t.Errorf("empty insert (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{0, 3, 1, 2, 4}, owners(as.Mappings())); diff != "" {
		t.Errorf("mappings (-want +got):\n%s", diff)
	}
}

func TestAddressSpaceAddAddress(t *testing.T) {
	t.Parallel()

	as := memory.NewAddressSpace("low", memory.Region{Base: 0, Size: 0x1000000})

	if err := as.AddAddress(memory.Mapping{Region: memory.Region{Base: 0x1000, Size: 0x1000}}); err != nil {
		t.Fatal(err)
	}

	err := as.AddAddress(memory.Mapping{Region: memory.Region{Base: 0x1800, Size: 0x1000}})
	if !errors.Is(err, memory.ErrAddrSpaceOccupied) {
		t.Fatalf("expected: %v, actual: %v", memory.ErrAddrSpaceOccupied, err)
	}

	err = as.AddAddress(memory.Mapping{Region: memory.Region{Base: 0xfff000, Size: 0x2000}})
	if !errors.Is(err, memory.ErrOutOfAddrSpace) {
		t.Fatalf("expected: %v, actual: %v", memory.ErrOutOfAddrSpace, err)
	}

	if !as.IsFree(memory.Region{Base: 0x2000, Size: 0x1000}) {
		t.Fatal("adjacent region should be free")
	}
}
