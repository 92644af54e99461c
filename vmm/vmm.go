// Package vmm drives the boot-time handling of the VM configuration: load
// the table, certify it once and publish it for every later lookup.
package vmm

import (
	"errors"
	"fmt"

	"github.com/bobuhiro11/hvconfig/platform"
	"github.com/bobuhiro11/hvconfig/sanitize"
	"github.com/bobuhiro11/hvconfig/scenario"
	"github.com/bobuhiro11/hvconfig/vmcfg"
	"github.com/sirupsen/logrus"
)

var (
	// ErrAlreadySanitized is returned by a second call to Sanitize.
	ErrAlreadySanitized = errors.New("VM configuration already sanitized")

	// ErrNotInitialized is returned by Sanitize before Init.
	ErrNotInitialized = errors.New("VM configuration not loaded")
)

// State is the progress of the boot sequence.
type State int

const (
	Unvalidated State = iota
	Validated
	Rejected
)

func (s State) String() string {
	switch s {
	case Unvalidated:
		return "unvalidated"
	case Validated:
		return "validated"
	case Rejected:
		return "rejected"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

type Config struct {
	// Scenario is the path of the scenario file read by Init.
	Scenario string
	Strict   bool
	// Publish makes the certified registry the process-wide one.
	Publish bool
	Log     *logrus.Logger
}

type VMM struct {
	Config

	log      *logrus.Entry
	platform platform.Info
	table    *vmcfg.Table
	registry *vmcfg.Registry
	report   *sanitize.Report
	state    State
}

func New(c Config) *VMM {
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}

	return &VMM{
		Config: c,
		log:    c.Log.WithField("scenario", c.Scenario),
		state:  Unvalidated,
	}
}

// Init loads the scenario and freezes its table.
func (v *VMM) Init() error {
	b, p, err := scenario.Load(v.Scenario)
	if err != nil {
		return err
	}

	return v.InitWith(b, p)
}

// InitWith freezes a table built by the caller.
func (v *VMM) InitWith(b *vmcfg.Builder, p platform.Info) error {
	if v.table != nil {
		return fmt.Errorf("init: table already loaded")
	}

	t, err := b.Freeze()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	v.table = t
	v.platform = p

	v.log.WithFields(logrus.Fields{
		"vms":  t.Len(),
		"cpus": p.PhysicalCPUs,
	}).Debug("VM configuration loaded")

	return nil
}

// Sanitize certifies the table. It runs once; the verdict is final.
func (v *VMM) Sanitize() error {
	if v.state != Unvalidated {
		return ErrAlreadySanitized
	}

	if v.table == nil {
		return ErrNotInitialized
	}

	reg, report, err := sanitize.Certify(v.table, v.platform, sanitize.Options{Strict: v.Strict})
	v.report = report

	for _, violation := range report.Violations {
		v.log.WithFields(logrus.Fields{
			"vm":   violation.VMs,
			"kind": violation.Kind.Error(),
		}).Warn(violation.Detail)
	}

	if err != nil {
		v.transition(Rejected)

		return fmt.Errorf("sanitize: %w", err)
	}

	v.registry = reg
	v.transition(Validated)

	if v.Publish {
		if err := vmcfg.Publish(reg); err != nil {
			return fmt.Errorf("publish: %w", err)
		}

		v.log.Info("VM configuration published")
	}

	return nil
}

func (v *VMM) transition(s State) {
	v.log.WithFields(logrus.Fields{
		"from": v.state,
		"to":   s,
	}).Info("VM configuration state changed")

	v.state = s
}

func (v *VMM) State() State {
	return v.state
}

// Report returns the verdict of Sanitize, nil before it ran.
func (v *VMM) Report() *sanitize.Report {
	return v.report
}

// Table returns the loaded table, nil before Init.
func (v *VMM) Table() *vmcfg.Table {
	return v.table
}

func (v *VMM) Platform() platform.Info {
	return v.platform
}

// Registry returns the certified registry. Lookups are refused unless the
// table was validated.
func (v *VMM) Registry() (*vmcfg.Registry, error) {
	if v.state != Validated {
		return nil, fmt.Errorf("registry: %w (%v)", vmcfg.ErrNotValidated, v.state)
	}

	return v.registry, nil
}
