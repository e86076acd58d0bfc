// Command neatpmd is the NEAT Policy Manager daemon (spec §6.3): it loads
// a CIB and two PIBs from disk, then serves connection-policy lookups over
// a Unix domain socket until it receives SIGINT.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/starkandwayne/goutils/ansi"
	"github.com/voxelbrain/goptions"

	"github.com/neatpmd/neatpmd/internal/config"
	"github.com/neatpmd/neatpmd/internal/diag"
)

// Version holds the current version of neatpmd.
var Version = "(development)"

var exit = func(code int) { os.Exit(code) }

var usage = func() {
	goptions.PrintHelp()
	exit(1)
}

type options struct {
	Config        string `goptions:"-c, --config, description='Path to a YAML config file'"`
	Socket        string `goptions:"--socket, description='Unix domain socket path to listen on'"`
	CIBDir        string `goptions:"--cib-dir, description='Directory of .cib/.local/.connection files'"`
	ProfileDir    string `goptions:"--profile-dir, description='Directory of .profile files'"`
	PolicyDir     string `goptions:"--policy-dir, description='Directory of .policy files'"`
	Candidates    int    `goptions:"--candidates, description='Pipeline top-k result size (default 10)'"`
	CIBCandidates int    `goptions:"--cib-candidates, description='Per-lookup CIB candidate bound (default 5)'"`
	LogLevel      string `goptions:"--log-level, description='trace, debug, info, warn, or error'"`
	Color         string `goptions:"--color, description='Control color output (on/off/auto, default: auto)'"`
	Version       bool   `goptions:"-v, --version, description='Display version information'"`
	Help          bool   `goptions:"-h, --help, description='Show this help'"`
}

func main() {
	var opts options
	if err := goptions.Parse(&opts); err != nil {
		usage()
		return
	}
	if opts.Help {
		usage()
		return
	}
	if opts.Version {
		fmt.Fprintf(os.Stdout, "%s - Version %s\n", os.Args[0], Version)
		exit(0)
		return
	}

	shouldEnableColor, err := resolveColor(opts.Color)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exit(1)
		return
	}
	diag.SetColor(shouldEnableColor)

	mgr := config.NewManager()
	if opts.Config != "" {
		if err := mgr.Load(opts.Config); err != nil {
			fmt.Fprintln(os.Stderr, ansi.Sprintf("@r{failed to load config %s: %s}", opts.Config, err))
			exit(1)
			return
		}
	}
	cfg := mgr.Get()
	if opts.Config == "" {
		if err := config.NewLoader().LoadFromEnvironment(cfg); err != nil {
			fmt.Fprintln(os.Stderr, ansi.Sprintf("@r{invalid environment override: %s}", err))
			exit(1)
			return
		}
	}
	cfg = applyFlagOverrides(cfg, opts)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, ansi.Sprintf("@r{invalid configuration: %s}", err))
		exit(1)
		return
	}

	logger := diag.New(os.Stderr, diag.ParseLevel(cfg.LogLevel))

	srv, err := NewServer(cfg, logger)
	if err != nil {
		logger.Errorf("failed to build server: %s", err)
		exit(1)
		return
	}

	if err := srv.Run(); err != nil {
		logger.Errorf("server exited: %s", err)
		exit(1)
		return
	}
	exit(0)
}

func resolveColor(choice string) (bool, error) {
	switch choice {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto", "":
		return isatty.IsTerminal(os.Stderr.Fd()), nil
	default:
		return false, fmt.Errorf("invalid --color option: %s (must be on, off, or auto)", choice)
	}
}

// applyFlagOverrides layers any explicitly-set CLI flags on top of
// whatever Load (or DefaultConfig plus environment overrides, if no
// --config was given) already produced. Flags are the highest-priority source, above both the config
// file and its own environment-variable overrides.
func applyFlagOverrides(cfg *config.Config, opts options) *config.Config {
	if opts.Socket != "" {
		cfg.Socket = opts.Socket
	}
	if opts.CIBDir != "" {
		cfg.CIBDir = opts.CIBDir
	}
	if opts.ProfileDir != "" {
		cfg.ProfileDir = opts.ProfileDir
	}
	if opts.PolicyDir != "" {
		cfg.PolicyDir = opts.PolicyDir
	}
	if opts.Candidates != 0 {
		cfg.Candidates = opts.Candidates
	}
	if opts.CIBCandidates != 0 {
		cfg.CIBCandidates = opts.CIBCandidates
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	return cfg
}
