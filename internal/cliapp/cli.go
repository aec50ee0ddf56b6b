package cliapp

import (
	"flag"
	"fmt"
	"strings"

	"nscope/internal/engine/planner"
	"nscope/internal/engine/resolution"
	"nscope/internal/engine/symbol"
)

const versionString = "0.1.0"
const defaultConfigPath = "./nscope.toml"

type cliOptions struct {
	configPath string
	verbose    bool
	version    bool
	command    string
	args       []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("nscope", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	rest := fs.Args()
	if len(rest) > 0 {
		opts.command = rest[0]
		opts.args = rest[1:]
	}
	return opts, nil
}

// commandOptions are the flags shared by subcommands. They precede the
// positional arguments: nscope resolve -kind function FILE 3:1 strlen
type commandOptions struct {
	kind    resolution.UseKind
	context int
	args    []string
}

func parseCommandOptions(name string, args []string) (commandOptions, error) {
	var opts commandOptions
	var kind string
	fs := flag.NewFlagSet("nscope "+name, flag.ContinueOnError)

	fs.StringVar(&kind, "kind", "class", "Symbol kind: class, function or const")
	fs.IntVar(&opts.context, "context", 0, "Index of the namespace context in the file")

	if err := fs.Parse(args); err != nil {
		return commandOptions{}, err
	}
	parsed, err := resolution.ParseUseKind(kind)
	if err != nil {
		return commandOptions{}, err
	}
	if opts.context < 0 {
		return commandOptions{}, fmt.Errorf("-context must be >= 0, got %d", opts.context)
	}
	opts.kind = parsed
	opts.args = fs.Args()
	return opts, nil
}

// parseTarget reads a qualified symbol with an optional kind prefix, as in
// "function:\App\helper". Without a prefix the given kind applies.
func parseTarget(s string, kind resolution.UseKind) (planner.Target, error) {
	name := s
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		parsed, err := resolution.ParseUseKind(prefix)
		if err != nil {
			return planner.Target{}, err
		}
		kind, name = parsed, rest
	}
	sym, err := symbol.Parse(name)
	if err != nil {
		return planner.Target{}, err
	}
	if !sym.IsQualified() {
		return planner.Target{}, fmt.Errorf("symbol %q must be fully qualified", name)
	}
	return planner.Target{Symbol: sym, Kind: kind}, nil
}
