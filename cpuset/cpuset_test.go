package cpuset_test

import (
	"errors"
	"testing"

	"github.com/bobuhiro11/hvconfig/cpuset"
	"github.com/google/go-cmp/cmp"
)

func TestAddHas(t *testing.T) {
	t.Parallel()

	var s cpuset.Set

	if !s.IsEmpty() {
		t.Fatal("zero set is not empty")
	}

	if err := s.Add(3); err != nil {
		t.Fatal(err)
	}

	if !s.Has(3) || s.Has(2) {
		t.Fatalf("unexpected membership: %v", s)
	}

	if err := s.Add(cpuset.MaxCPUs); !errors.Is(err, cpuset.ErrOutOfRange) {
		t.Fatalf("expected: %v, actual: %v", cpuset.ErrOutOfRange, err)
	}

	if err := s.Add(-1); !errors.Is(err, cpuset.ErrOutOfRange) {
		t.Fatalf("expected: %v, actual: %v", cpuset.ErrOutOfRange, err)
	}

	s.Remove(3)

	if !s.IsEmpty() {
		t.Fatalf("expected empty set, actual: %v", s)
	}
}

func TestSetOperations(t *testing.T) {
	t.Parallel()

	a := cpuset.MustOf(0, 1, 2)
	b := cpuset.MustOf(2, 3)
	c := cpuset.MustOf(4, 63)

	if diff := cmp.Diff([]int{0, 1, 2, 3}, a.Union(b).IDs()); diff != "" {
		t.Errorf("Union mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{2}, a.Intersect(b).IDs()); diff != "" {
		t.Errorf("Intersect mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{0, 1}, a.Difference(b).IDs()); diff != "" {
		t.Errorf("Difference mismatch (-want +got):\n%s", diff)
	}

	if a.Disjoint(b) {
		t.Error("a and b share cpu 2")
	}

	if !a.Disjoint(c) {
		t.Error("a and c are disjoint")
	}

	if c.Count() != 2 || c.Max() != 63 {
		t.Errorf("expected count 2 max 63, actual: %d %d", c.Count(), c.Max())
	}

	var empty cpuset.Set
	if empty.Max() != -1 {
		t.Errorf("expected: -1, actual: %d", empty.Max())
	}
}

func TestMask(t *testing.T) {
	t.Parallel()

	s := cpuset.FromMask(0b1010)

	if diff := cmp.Diff([]int{1, 3}, s.IDs()); diff != "" {
		t.Errorf("FromMask mismatch (-want +got):\n%s", diff)
	}

	if s.Mask() != 0b1010 {
		t.Errorf("expected: %#b, actual: %#b", 0b1010, s.Mask())
	}
}

func TestStringParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		list string
		ids  []int
	}{
		{list: "", ids: []int{}},
		{list: "2", ids: []int{2}},
		{list: "0-3,6", ids: []int{0, 1, 2, 3, 6}},
		{list: "1,3,5-6", ids: []int{1, 3, 5, 6}},
	}

	for _, tt := range tests {
		s, err := cpuset.Parse(tt.list)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.list, err)
		}

		if diff := cmp.Diff(tt.ids, s.IDs()); diff != "" {
			t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.list, diff)
		}

		if s.String() != tt.list {
			t.Errorf("expected: %q, actual: %q", tt.list, s.String())
		}
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	for _, list := range []string{"a", "3-1", "1-", "0,64"} {
		if _, err := cpuset.Parse(list); err == nil {
			t.Errorf("Parse(%q) should fail", list)
		}
	}
}
