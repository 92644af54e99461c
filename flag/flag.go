package flag

// CLI is the command line of hvconfig.
type CLI struct {
	Globals

	Check CheckCMD `cmd:"" help:"Sanitizes scenario files"`
	Show  ShowCMD  `cmd:"" help:"Prints the VM table of a scenario"`
	Match MatchCMD `cmd:"" help:"Matches a UUID against a VM of a certified scenario"`
	Probe ProbeCMD `cmd:"" help:"Prints the platform description of this host"`
}

// Globals are accepted by every command.
type Globals struct {
	LogLevel   string `name:"log-level" default:"info" enum:"trace,debug,info,warn,error" help:"log level"`
	Profile    string `default:"none" enum:"none,cpu,mem,block,mutex" help:"write a profile of the run"`
	ProfileDir string `name:"profile-dir" default:"." type:"path" help:"directory of the profile"`
}

type CheckCMD struct {
	Files  []string `arg:"" type:"existingfile" help:"scenario files (.yaml, .yml, .toml)"`
	Strict bool     `help:"also enforce the partitioning policy of the hypervisor"`
	Jobs   int      `short:"j" default:"4" help:"number of files checked at once"`
}

type ShowCMD struct {
	File   string `arg:"" type:"existingfile" help:"scenario file"`
	VM     int    `name:"vm" default:"-1" help:"only print this VM"`
	Format string `default:"yaml" enum:"yaml,toml" help:"output format"`
}

type MatchCMD struct {
	File   string `arg:"" type:"existingfile" help:"scenario file"`
	VM     uint16 `name:"vm" required:"" help:"VM id"`
	UUID   string `name:"uuid" required:"" help:"UUID to match"`
	Strict bool   `help:"also enforce the partitioning policy of the hypervisor"`
}

type ProbeCMD struct{}
