package vmcfg_test

import (
	"errors"
	"testing"

	"github.com/bobuhiro11/hvconfig/cpuset"
	"github.com/bobuhiro11/hvconfig/pci"
	"github.com/bobuhiro11/hvconfig/vmcfg"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func uuids(n int) []uuid.UUID {
	us := make([]uuid.UUID, n)
	for i := range us {
		us[i] = uuid.UUID{0x5f, 0x10, 0x8a, byte(i), 0xd0, 0x4e, 0x41, 0x3d, 0x9c, 0x2d, 0x6a, 0x00, 0x00, 0x00, 0x00, byte(i + 1)}
	}

	return us
}

func table(t *testing.T, n int) (*vmcfg.Table, []uuid.UUID) {
	t.Helper()

	us := uuids(n)
	b := vmcfg.NewBuilder(0)

	for i := 0; i < n; i++ {
		err := b.Add(vmcfg.VMConfig{
			ID:           uint16(i),
			LoadOrder:    vmcfg.PostLaunched,
			UUID:         us[i],
			VCPUNum:      1,
			Severity:     vmcfg.SeverityStandard,
			VCPUAffinity: []cpuset.Set{cpuset.MustOf(i)},
			PCIDevNum:    1,
			PCIDevs:      []pci.DevConfig{{EmuType: pci.EmuHypervisor, VBDF: pci.MustBDF(0, 0, 0)}},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	tbl, err := b.Freeze()
	if err != nil {
		t.Fatal(err)
	}

	return tbl, us
}

func TestGet(t *testing.T) {
	t.Parallel()

	tbl, us := table(t, 3)

	for i := 0; i < 3; i++ {
		vm, err := tbl.Get(uint16(i))
		if err != nil {
			t.Fatal(err)
		}

		if vm.ID != uint16(i) || vm.UUID != us[i] {
			t.Fatalf("expected: %d %v, actual: %d %v", i, us[i], vm.ID, vm.UUID)
		}
	}

	for _, id := range []uint16{3, 16, 0xffff} {
		if _, err := tbl.Get(id); !errors.Is(err, vmcfg.ErrInvalidVMID) {
			t.Fatalf("expected: %v, actual: %v", vmcfg.ErrInvalidVMID, err)
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	tbl, _ := table(t, 1)

	vm, err := tbl.Get(0)
	if err != nil {
		t.Fatal(err)
	}

	vm.VCPUAffinity[0] = cpuset.MustOf(9)
	vm.PCIDevs[0].VBDF = pci.MustBDF(0, 9, 0)
	vm.Name = "changed"

	again, err := tbl.Get(0)
	if err != nil {
		t.Fatal(err)
	}

	if !again.VCPUAffinity[0].Equal(cpuset.MustOf(0)) {
		t.Fatalf("expected: %v, actual: %v", cpuset.MustOf(0), again.VCPUAffinity[0])
	}

	if again.PCIDevs[0].VBDF != pci.MustBDF(0, 0, 0) || again.Name != "" {
		t.Fatalf("table modified through a copy: %+v", again)
	}
}

func TestMatchUUID(t *testing.T) {
	t.Parallel()

	tbl, us := table(t, 4)
	u := us[2]

	if !tbl.MatchUUID(2, u[:]) {
		t.Fatalf("vm 2 does not match its own UUID")
	}

	for _, id := range []uint16{0, 1, 3, 4} {
		if tbl.MatchUUID(id, u[:]) {
			t.Errorf("vm %d matches UUID of vm 2", id)
		}
	}

	zero := uuid.Nil

	tests := []struct {
		name      string
		candidate []byte
	}{
		{name: "nil", candidate: nil},
		{name: "zero", candidate: zero[:]},
		{name: "short", candidate: u[:15]},
		{name: "long", candidate: append(u[:], 0)},
	}

	for _, tt := range tests {
		if tbl.MatchUUID(2, tt.candidate) {
			t.Errorf("%s candidate matches", tt.name)
		}
	}
}

func TestFindByUUID(t *testing.T) {
	t.Parallel()

	tbl, us := table(t, 4)

	id, ok := tbl.FindByUUID(us[3])
	if !ok || id != 3 {
		t.Fatalf("expected: 3 true, actual: %d %v", id, ok)
	}

	if _, ok := tbl.FindByUUID(uuid.Nil); ok {
		t.Fatal("nil UUID found")
	}
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	b := vmcfg.NewBuilder(2)

	for i := 0; i < 2; i++ {
		if err := b.Add(vmcfg.VMConfig{ID: uint16(i)}); err != nil {
			t.Fatal(err)
		}
	}

	if err := b.Add(vmcfg.VMConfig{ID: 2}); !errors.Is(err, vmcfg.ErrTableFull) {
		t.Fatalf("expected: %v, actual: %v", vmcfg.ErrTableFull, err)
	}

	tbl, err := b.Freeze()
	if err != nil {
		t.Fatal(err)
	}

	if tbl.Len() != 2 || tbl.Cap() != 2 {
		t.Fatalf("expected: 2 2, actual: %d %d", tbl.Len(), tbl.Cap())
	}

	if err := b.Add(vmcfg.VMConfig{}); err == nil {
		t.Fatal("frozen builder accepted a VM")
	}

	if _, err := b.Freeze(); err == nil {
		t.Fatal("builder frozen twice")
	}

	def, err := vmcfg.NewBuilder(0).Freeze()
	if err != nil {
		t.Fatal(err)
	}

	if def.Cap() != vmcfg.MaxVMs {
		t.Fatalf("expected: %d, actual: %d", vmcfg.MaxVMs, def.Cap())
	}
}

func TestBuilderCopiesInput(t *testing.T) {
	t.Parallel()

	vm := vmcfg.VMConfig{VCPUAffinity: []cpuset.Set{cpuset.MustOf(1)}}
	b := vmcfg.NewBuilder(0)

	if err := b.Add(vm); err != nil {
		t.Fatal(err)
	}

	vm.VCPUAffinity[0] = cpuset.MustOf(5)

	tbl, err := b.Freeze()
	if err != nil {
		t.Fatal(err)
	}

	got, _ := tbl.Get(0)
	if !got.VCPUAffinity[0].Equal(cpuset.MustOf(1)) {
		t.Fatalf("expected: %v, actual: %v", cpuset.MustOf(1), got.VCPUAffinity[0])
	}
}

func TestEach(t *testing.T) {
	t.Parallel()

	tbl, _ := table(t, 4)

	got := []uint16{}
	tbl.Each(func(vm vmcfg.VMConfig) bool {
		got = append(got, vm.ID)

		return vm.ID < 2
	})

	if diff := cmp.Diff([]uint16{0, 1, 2}, got); diff != "" {
		t.Fatalf("visited ids mismatch (-want +got):\n%s", diff)
	}
}

func TestCertify(t *testing.T) {
	t.Parallel()

	tbl, _ := table(t, 2)
	errBroken := errors.New("broken")

	if _, err := vmcfg.Certify(tbl, func(*vmcfg.Table) error { return errBroken }); !errors.Is(err, errBroken) {
		t.Fatalf("expected: %v, actual: %v", errBroken, err)
	}

	if _, err := vmcfg.Certify(nil, func(*vmcfg.Table) error { return nil }); err == nil {
		t.Fatal("nil table certified")
	}

	r, err := vmcfg.Certify(tbl, func(*vmcfg.Table) error { return nil })
	if err != nil {
		t.Fatal(err)
	}

	if r.Len() != 2 || r.Table() != tbl {
		t.Fatalf("unexpected registry: %d", r.Len())
	}

	if _, err := r.GetVMConfig(2); !errors.Is(err, vmcfg.ErrInvalidVMID) {
		t.Fatalf("expected: %v, actual: %v", vmcfg.ErrInvalidVMID, err)
	}
}

// TestPublish uses the process-wide registry and must not run in parallel.
func TestPublish(t *testing.T) {
	vmcfg.ResetPublished()
	t.Cleanup(vmcfg.ResetPublished)

	tbl, us := table(t, 2)
	u := us[1]

	if _, err := vmcfg.GetVMConfig(0); !errors.Is(err, vmcfg.ErrNotValidated) {
		t.Fatalf("expected: %v, actual: %v", vmcfg.ErrNotValidated, err)
	}

	if vmcfg.VMHasMatchedUUID(1, u[:]) {
		t.Fatal("UUID matched before publishing")
	}

	r, err := vmcfg.Certify(tbl, func(*vmcfg.Table) error { return nil })
	if err != nil {
		t.Fatal(err)
	}

	if err := vmcfg.Publish(r); err != nil {
		t.Fatal(err)
	}

	if err := vmcfg.Publish(r); !errors.Is(err, vmcfg.ErrAlreadyPublished) {
		t.Fatalf("expected: %v, actual: %v", vmcfg.ErrAlreadyPublished, err)
	}

	vm, err := vmcfg.GetVMConfig(1)
	if err != nil || vm.UUID != u {
		t.Fatalf("expected: %v, actual: %v (%v)", u, vm.UUID, err)
	}

	if !vmcfg.VMHasMatchedUUID(1, u[:]) || vmcfg.VMHasMatchedUUID(0, u[:]) {
		t.Fatal("UUID lookup through the published registry failed")
	}
}

func TestViolation(t *testing.T) {
	t.Parallel()

	v := vmcfg.Violationf(vmcfg.ErrConfigOverlap, []uint16{0, 1}, "primary %s", "0x0")

	if !errors.Is(v, vmcfg.ErrConfigOverlap) || errors.Is(v, vmcfg.ErrDuplicateUUID) {
		t.Fatalf("unexpected kind: %v", v.Kind)
	}

	expected := "VM memory overlaps (vm 0, 1): primary 0x0"
	if v.Error() != expected {
		t.Fatalf("expected: %s, actual: %s", expected, v.Error())
	}
}
