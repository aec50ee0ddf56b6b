package cliapp

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"

	coreapp "nscope/internal/core/app"
	"nscope/internal/engine/extractor"
	"nscope/internal/engine/planner"
	"nscope/internal/engine/resolution"
	"nscope/internal/engine/symbol"
	"nscope/internal/shared/util"
)

type command struct {
	usage   string
	minArgs int
	maxArgs int // -1 for no limit
	run     func(ctx context.Context, app *coreapp.App, opts commandOptions, stdout io.Writer) error
}

var commands = map[string]command{
	"contexts": {usage: "contexts FILE", minArgs: 1, maxArgs: 1, run: runContexts},
	"resolve":  {usage: "resolve [-kind KIND] FILE LINE:COL REF", minArgs: 3, maxArgs: 3, run: runResolve},
	"shorten":  {usage: "shorten [-kind KIND] FILE LINE:COL QUALIFIED", minArgs: 3, maxArgs: 3, run: runShorten},
	"plan":     {usage: "plan [-kind KIND] [-context N] FILE SYMBOL...", minArgs: 2, maxArgs: -1, run: runPlan},
	"import":   {usage: "import [-kind KIND] [-context N] FILE SYMBOL...", minArgs: 2, maxArgs: -1, run: runImport},
	"index":    {usage: "index [PATH...]", maxArgs: -1, run: runIndex},
	"locate":   {usage: "locate NAME", minArgs: 1, maxArgs: 1, run: runLocate},
	"watch":    {usage: "watch [PATH...]", maxArgs: -1, run: runWatch},
}

func (c command) checkArgs(args []string) error {
	if len(args) < c.minArgs {
		return fmt.Errorf("expected at least %d argument(s), got %d", c.minArgs, len(args))
	}
	if c.maxArgs >= 0 && len(args) > c.maxArgs {
		return fmt.Errorf("expected at most %d argument(s), got %d", c.maxArgs, len(args))
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: nscope [-config FILE] [-verbose] [-version] COMMAND [ARGS]")
	fmt.Fprintln(w, "commands:")
	for _, name := range util.SortedStringKeys(commands) {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func runContexts(_ context.Context, app *coreapp.App, opts commandOptions, stdout io.Writer) error {
	out, err := app.RenderContexts(opts.args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(stdout, out)
	return err
}

func runResolve(ctx context.Context, app *coreapp.App, opts commandOptions, stdout io.Writer) error {
	pos, ref, err := positionAndSymbol(opts.args[1], opts.args[2])
	if err != nil {
		return err
	}
	resolved, err := app.Resolve(ctx, opts.args[0], pos, ref, opts.kind)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, resolved.String())
	return err
}

func runShorten(ctx context.Context, app *coreapp.App, opts commandOptions, stdout io.Writer) error {
	pos, qualified, err := positionAndSymbol(opts.args[1], opts.args[2])
	if err != nil {
		return err
	}
	short, err := app.Shorten(ctx, opts.args[0], pos, qualified, opts.kind)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, short.String())
	return err
}

func runPlan(ctx context.Context, app *coreapp.App, opts commandOptions, stdout io.Writer) error {
	targets, err := parseTargets(opts.args[1:], opts.kind)
	if err != nil {
		return err
	}
	uses, err := app.PlanImports(ctx, opts.args[0], opts.context, targets)
	if err != nil {
		return err
	}
	return writeUses(stdout, uses)
}

func runImport(ctx context.Context, app *coreapp.App, opts commandOptions, stdout io.Writer) error {
	targets, err := parseTargets(opts.args[1:], opts.kind)
	if err != nil {
		return err
	}
	uses, err := app.ImportTargets(ctx, opts.args[0], opts.context, targets)
	if err != nil {
		return err
	}
	if len(uses) == 0 {
		_, err = fmt.Fprintln(stdout, "no imports needed")
		return err
	}
	return writeUses(stdout, uses)
}

func runIndex(ctx context.Context, app *coreapp.App, opts commandOptions, stdout io.Writer) error {
	res, err := app.Index(ctx, opts.args)
	if err != nil {
		return err
	}
	if err := coreapp.WriteIndexSummary(stdout, res); err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d file(s) failed to index", len(res.Failed))
	}
	return nil
}

func runLocate(ctx context.Context, app *coreapp.App, opts commandOptions, stdout io.Writer) error {
	name, err := symbol.Parse(opts.args[0])
	if err != nil {
		return err
	}
	if !name.IsQualified() {
		name, err = symbol.Root().Join(name)
		if err != nil {
			return err
		}
	}
	loc, parsed, err := app.Locate(ctx, name)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(stdout, "%s@%d\n", loc.Path, loc.Offset); err != nil {
		return err
	}
	_, err = fmt.Fprint(stdout, resolution.NewRenderer().RenderContext(parsed.Context))
	return err
}

func runWatch(ctx context.Context, app *coreapp.App, opts commandOptions, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := app.Index(ctx, opts.args); err != nil {
		return err
	}
	return app.Watch(ctx, opts.args, func(paths []string, err error) {
		if err != nil {
			fmt.Fprintf(stdout, "reindex failed for %d file(s): %v\n", len(paths), err)
			return
		}
		sorted := append([]string(nil), paths...)
		sort.Strings(sorted)
		for _, p := range sorted {
			fmt.Fprintf(stdout, "reindexed %s\n", p)
		}
	})
}

func positionAndSymbol(rawPos, rawSymbol string) (extractor.Position, symbol.Symbol, error) {
	pos, err := extractor.ParsePosition(rawPos)
	if err != nil {
		return extractor.Position{}, symbol.Symbol{}, err
	}
	sym, err := symbol.Parse(rawSymbol)
	if err != nil {
		return extractor.Position{}, symbol.Symbol{}, err
	}
	return pos, sym, nil
}

func writeUses(w io.Writer, uses []resolution.UseStatement) error {
	for _, use := range uses {
		if _, err := fmt.Fprintln(w, use.String()); err != nil {
			return err
		}
	}
	return nil
}

func parseTargets(args []string, kind resolution.UseKind) ([]planner.Target, error) {
	targets := make([]planner.Target, 0, len(args))
	for _, arg := range args {
		target, err := parseTarget(arg, kind)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}
