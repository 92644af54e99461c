package flag

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/alecthomas/kong"
	"github.com/bobuhiro11/hvconfig/probe"
	"github.com/bobuhiro11/hvconfig/scenario"
	"github.com/bobuhiro11/hvconfig/vmcfg"
	"github.com/bobuhiro11/hvconfig/vmm"
	"github.com/google/uuid"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	programName = "hvconfig"
	programDesc = "hvconfig loads and sanitizes the static VM configuration of a partitioning hypervisor"
)

// ErrRejected is returned when a scenario fails sanitizing.
var ErrRejected = errors.New("scenario rejected")

// ErrNoMatch is returned by match when the UUID is not the one of the VM.
var ErrNoMatch = errors.New("UUID does not match")

func Parse() error {
	return Run(os.Args[1:], os.Stdout)
}

// Run parses args and runs the selected command, writing its output to out.
func Run(args []string, out io.Writer) error {
	c := CLI{}

	parser, err := kong.New(&c,
		kong.Name(programName),
		kong.Description(programDesc),
		kong.UsageOnError(),
		kong.Writers(out, os.Stderr),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	log, err := c.Globals.logger()
	if err != nil {
		return err
	}

	if p := c.Globals.profile(); p != nil {
		defer profile.Start(p, profile.ProfilePath(c.ProfileDir), profile.Quiet).Stop()
	}

	return ctx.Run(log)
}

func (g *Globals) logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)

	return log, nil
}

func (g *Globals) profile() func(*profile.Profile) {
	switch g.Profile {
	case "cpu":
		return profile.CPUProfile
	case "mem":
		return profile.MemProfile
	case "block":
		return profile.BlockProfile
	case "mutex":
		return profile.MutexProfile
	}

	return nil
}

func (c *CheckCMD) Run(log *logrus.Logger, out io.Writer) error {
	verdicts := make([]error, len(c.Files))

	var g errgroup.Group

	g.SetLimit(max(c.Jobs, 1))

	for i, file := range c.Files {
		i, file := i, file

		g.Go(func() error {
			v := vmm.New(vmm.Config{Scenario: file, Strict: c.Strict, Log: log})

			if err := v.Init(); err != nil {
				return err
			}

			verdicts[i] = v.Sanitize()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	rejected := 0

	for i, file := range c.Files {
		if verdicts[i] == nil {
			fmt.Fprintf(out, "%s: ok\n", file)

			continue
		}

		rejected++

		fmt.Fprintf(out, "%s: rejected\n", file)

		for _, err := range unwrapJoined(verdicts[i]) {
			fmt.Fprintf(out, "  %v\n", err)
		}
	}

	if rejected > 0 {
		return fmt.Errorf("%d of %d: %w", rejected, len(c.Files), ErrRejected)
	}

	return nil
}

// unwrapJoined splits an error built by errors.Join, looking through one
// level of fmt.Errorf wrapping.
func unwrapJoined(err error) []error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			return j.Unwrap()
		}
	}

	return []error{err}
}

func (s *ShowCMD) Run(out io.Writer) error {
	if s.VM < -1 || s.VM > math.MaxUint16 {
		return fmt.Errorf("vm %d: %w", s.VM, vmcfg.ErrInvalidVMID)
	}

	b, p, err := scenario.Load(s.File)
	if err != nil {
		return err
	}

	t, err := b.Freeze()
	if err != nil {
		return err
	}

	file := scenario.FromTable(t, p)

	if s.VM >= 0 {
		vm, err := t.Get(uint16(s.VM))
		if err != nil {
			return err
		}

		file = &scenario.File{VMs: []scenario.VM{scenario.FromConfig(vm)}}
	}

	format := scenario.YAML
	if s.Format == "toml" {
		format = scenario.TOML
	}

	return scenario.Encode(out, file, format)
}

func (m *MatchCMD) Run(log *logrus.Logger, out io.Writer) error {
	u, err := uuid.Parse(m.UUID)
	if err != nil {
		return err
	}

	v := vmm.New(vmm.Config{Scenario: m.File, Strict: m.Strict, Log: log})

	if err := v.Init(); err != nil {
		return err
	}

	if err := v.Sanitize(); err != nil {
		return err
	}

	r, err := v.Registry()
	if err != nil {
		return err
	}

	if !r.VMHasMatchedUUID(m.VM, u[:]) {
		fmt.Fprintf(out, "vm %d: no match\n", m.VM)

		return ErrNoMatch
	}

	fmt.Fprintf(out, "vm %d: match\n", m.VM)

	return nil
}

func (d *ProbeCMD) Run(out io.Writer) error {
	info, err := probe.Host()
	if err != nil {
		return err
	}

	probe.Print(out, info)

	return nil
}
