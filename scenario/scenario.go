// Package scenario reads the description of a board and of the VMs it
// hosts, and turns it into a VM table builder.
//
// A scenario is a YAML or a TOML file. Numbers that name addresses or sizes
// are strings so that they can be written in hex or with a unit suffix.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a scenario file.
type Format int

const (
	YAML Format = iota
	TOML
)

func (f Format) String() string {
	switch f {
	case YAML:
		return "yaml"
	case TOML:
		return "toml"
	}

	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatOf picks the format from the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}

	return 0, fmt.Errorf("%s: unknown scenario format", path)
}

// File is the on-disk form of a scenario.
type File struct {
	Board Board `yaml:"board" toml:"board"`
	VMs   []VM  `yaml:"vms" toml:"vm"`
}

// Board describes the physical machine. A zero CPU count is filled in
// from the host the loader runs on.
type Board struct {
	CPUs       int      `yaml:"cpus,omitempty" toml:"cpus,omitempty"`
	ClosMax    *int     `yaml:"clos_max,omitempty" toml:"clos_max,omitempty"`
	PCIDevices []string `yaml:"pci_devices,omitempty" toml:"pci_devices,omitempty"`
}

// VM is one VM of a scenario. Its id defaults to its position in the file.
type VM struct {
	ID          *uint16  `yaml:"id,omitempty" toml:"id,omitempty"`
	LoadOrder   string   `yaml:"load_order" toml:"load_order"`
	Name        string   `yaml:"name,omitempty" toml:"name,omitempty"`
	UUID        string   `yaml:"uuid,omitempty" toml:"uuid,omitempty"`
	Severity    string   `yaml:"severity,omitempty" toml:"severity,omitempty"`
	VCPUNum     *uint16  `yaml:"vcpu_num,omitempty" toml:"vcpu_num,omitempty"`
	CPUAffinity []string `yaml:"cpu_affinity,omitempty" toml:"cpu_affinity,omitempty"`
	GuestFlags  []string `yaml:"guest_flags,omitempty" toml:"guest_flags,omitempty"`
	Memory      Memory   `yaml:"memory,omitempty" toml:"memory,omitempty"`
	EPC         Region   `yaml:"epc,omitempty" toml:"epc,omitempty"`
	PCIDevs     []PCIDev `yaml:"pci_devs,omitempty" toml:"pci_dev,omitempty"`
	OS          OS       `yaml:"os,omitempty" toml:"os,omitempty"`
	CLOS        uint16   `yaml:"clos,omitempty" toml:"clos,omitempty"`
	VUARTs      []VUART  `yaml:"vuarts,omitempty" toml:"vuart,omitempty"`
}

// Memory holds the host physical memory of a VM.
type Memory struct {
	Primary   Region `yaml:"primary,omitempty" toml:"primary,omitempty"`
	Secondary Region `yaml:"secondary,omitempty" toml:"secondary,omitempty"`
}

// Region is a base address and a size such as "512M".
type Region struct {
	Base string `yaml:"base,omitempty" toml:"base,omitempty"`
	Size string `yaml:"size,omitempty" toml:"size,omitempty"`
}

// PCIDev is one PCI function of a VM.
type PCIDev struct {
	EmuType string   `yaml:"emu_type" toml:"emu_type"`
	VBDF    string   `yaml:"vbdf" toml:"vbdf"`
	PBDF    string   `yaml:"pbdf,omitempty" toml:"pbdf,omitempty"`
	VBARs   []string `yaml:"vbars,omitempty" toml:"vbars,omitempty"`
	Ops     string   `yaml:"ops,omitempty" toml:"ops,omitempty"`
}

// OS is the boot image of a VM.
type OS struct {
	Name          string `yaml:"name,omitempty" toml:"name,omitempty"`
	KernelType    string `yaml:"kernel_type,omitempty" toml:"kernel_type,omitempty"`
	KernelModTag  string `yaml:"kernel_mod_tag,omitempty" toml:"kernel_mod_tag,omitempty"`
	RamdiskModTag string `yaml:"ramdisk_mod_tag,omitempty" toml:"ramdisk_mod_tag,omitempty"`
	BootArgs      string `yaml:"bootargs,omitempty" toml:"bootargs,omitempty"`
	KernelLoad    string `yaml:"kernel_load_addr,omitempty" toml:"kernel_load_addr,omitempty"`
	KernelEntry   string `yaml:"kernel_entry_addr,omitempty" toml:"kernel_entry_addr,omitempty"`
	RamdiskLoad   string `yaml:"ramdisk_load_addr,omitempty" toml:"ramdisk_load_addr,omitempty"`
}

// VUART is one vUART slot. Port accepts a number or a COMn name.
type VUART struct {
	Type   string  `yaml:"type" toml:"type"`
	Port   string  `yaml:"port,omitempty" toml:"port,omitempty"`
	BDF    string  `yaml:"bdf,omitempty" toml:"bdf,omitempty"`
	IRQ    uint16  `yaml:"irq,omitempty" toml:"irq,omitempty"`
	Target *Target `yaml:"target,omitempty" toml:"target,omitempty"`
}

// Target is the peer of a connected vUART.
type Target struct {
	VM    uint16 `yaml:"vm" toml:"vm"`
	VUART uint8  `yaml:"vuart" toml:"vuart"`
}

// Decode parses data in format f.
func Decode(data []byte, f Format) (*File, error) {
	var file File

	switch f {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml scenario: %w", err)
		}
	case TOML:
		md, err := toml.Decode(string(data), &file)
		if err != nil {
			return nil, fmt.Errorf("parse toml scenario: %w", err)
		}

		if keys := md.Undecoded(); len(keys) > 0 {
			return nil, fmt.Errorf("parse toml scenario: unknown key %q", keys[0].String())
		}
	default:
		return nil, fmt.Errorf("parse scenario: unknown format %v", f)
	}

	return &file, nil
}

// ReadFile reads and parses the scenario at path.
func ReadFile(path string) (*File, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	file, err := Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return file, nil
}

// Encode writes file to w in format f.
func Encode(w io.Writer, file *File, f Format) error {
	switch f {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(file); err != nil {
			return fmt.Errorf("encode yaml scenario: %w", err)
		}

		return enc.Close()
	case TOML:
		if err := toml.NewEncoder(w).Encode(file); err != nil {
			return fmt.Errorf("encode toml scenario: %w", err)
		}

		return nil
	}

	return fmt.Errorf("encode scenario: unknown format %v", f)
}
