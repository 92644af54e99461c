package sanitize

import (
	"github.com/bobuhiro11/hvconfig/vmcfg"
)

// checkOSConfig verifies that boot arguments fit their buffer and that the
// kernel type is a known one.
func (c *checker) checkOSConfig() {
	for i, vm := range c.vms {
		id := uint16(i)
		img := &vm.OS

		if len(img.BootArgs) >= vmcfg.MaxBootArgsSize {
			c.fail(vmcfg.ErrMalformedOSConfig, ids(id), "boot args of %d bytes exceed %d", len(img.BootArgs), vmcfg.MaxBootArgsSize-1)
		}

		switch img.KernelType {
		case vmcfg.KernelUnspecified, vmcfg.KernelBzImage, vmcfg.KernelZephyr:
		default:
			c.fail(vmcfg.ErrMalformedOSConfig, ids(id), "unknown kernel type %v", img.KernelType)
		}
	}
}

// checkBootImage verifies the boot image description. VMs loaded by the
// hypervisor need a kernel type and a kernel module; post-launched VMs are
// loaded by the device model and may leave both unset.
func (c *checker) checkBootImage() {
	for i, vm := range c.vms {
		id := uint16(i)
		img := &vm.OS

		if len(img.Name) > vmcfg.MaxNameLen {
			c.fail(vmcfg.ErrMalformedOSConfig, ids(id), "OS name longer than %d bytes", vmcfg.MaxNameLen)
		}

		if len(img.KernelModTag) > vmcfg.MaxModTagLen || len(img.RamdiskModTag) > vmcfg.MaxModTagLen {
			c.fail(vmcfg.ErrMalformedOSConfig, ids(id), "module tag longer than %d bytes", vmcfg.MaxModTagLen)
		}

		if !vm.LoadOrder.IsStatic() {
			continue
		}

		if img.KernelType == vmcfg.KernelUnspecified {
			c.fail(vmcfg.ErrMalformedOSConfig, ids(id), "%v VM without kernel type", vm.LoadOrder)
		}

		if img.KernelModTag == "" {
			c.fail(vmcfg.ErrMalformedOSConfig, ids(id), "%v VM without kernel module tag", vm.LoadOrder)
		}
	}
}
