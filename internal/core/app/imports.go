package app

import (
	"bytes"
	"context"
	"os"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nscope/internal/core/errors"
	"nscope/internal/engine/extractor"
	"nscope/internal/engine/planner"
	"nscope/internal/engine/resolution"
	"nscope/internal/engine/stream"
	"nscope/internal/shared/observability"
)

const bodyIndent = "    "

// ImportTargets plans and applies imports for targets in the context at
// index of path.
func (a *App) ImportTargets(ctx context.Context, path string, index int, targets []planner.Target) ([]resolution.UseStatement, error) {
	uses, err := a.PlanImports(ctx, path, index, targets)
	if err != nil {
		return nil, err
	}
	if len(uses) == 0 {
		return nil, nil
	}
	if _, err := a.ApplyImports(ctx, path, map[int][]resolution.UseStatement{index: uses}); err != nil {
		return nil, err
	}
	return uses, nil
}

// ApplyImports writes use statements into the contexts of path, keyed by
// context index. New statements follow the context's last use statement,
// or open a use block after the namespace header. Statements already
// present are skipped. It returns the change in file size.
func (a *App) ApplyImports(ctx context.Context, path string, plans map[int][]resolution.UseStatement) (int64, error) {
	_, span := observability.Tracer.Start(ctx, "app.ApplyImports", trace.WithAttributes(
		attribute.String("path", path),
		attribute.Int("contexts", len(plans)),
	))
	defer span.End()

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Read(path, err)
	}
	contexts, err := a.contextsFor(path, content)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, errors.Read(path, err)
	}
	defer f.Close()
	session := a.editor.Session(f, path)

	indices := make([]int, 0, len(plans))
	for index := range plans {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	var replacements []stream.Replacement
	for _, index := range indices {
		parsed, err := contexts.At(index)
		if err != nil {
			return 0, errors.AddContext(err, errors.CtxPath, path)
		}
		uses := missingUses(parsed.Context, plans[index])
		if len(uses) == 0 {
			continue
		}
		replacement, err := a.useBlockInsertion(session, content, parsed, uses)
		if err != nil {
			return 0, err
		}
		replacements = append(replacements, replacement)
	}
	if len(replacements) == 0 {
		return 0, nil
	}

	delta, err := session.ReplaceMultiple(replacements)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	a.dropContexts(path)
	if a.store != nil {
		if err := a.ReindexFiles(ctx, []string{path}); err != nil {
			return delta, err
		}
	}
	return delta, nil
}

func missingUses(ctx *resolution.Context, uses []resolution.UseStatement) []resolution.UseStatement {
	out := make([]resolution.UseStatement, 0, len(uses))
	for _, use := range uses {
		present := false
		for _, existing := range ctx.UseStatements() {
			if existing.Equal(use) {
				present = true
				break
			}
		}
		if !present {
			out = append(out, use)
		}
	}
	return out
}

func (a *App) useBlockInsertion(session *stream.Session, content []byte, parsed extractor.ParsedContext, uses []resolution.UseStatement) (stream.Replacement, error) {
	lines := make([]string, len(uses))
	for i, use := range uses {
		lines[i] = a.renderer.RenderUseStatement(use)
	}

	if n := len(parsed.UseSpans); n > 0 {
		indent, err := session.FindIndentByOffset(int64(parsed.UseSpans[n-1].Start))
		if err != nil {
			return stream.Replacement{}, err
		}
		text := "\n" + indent + strings.Join(lines, "\n"+indent)
		return stream.Replacement{Offset: int64(parsed.UseSpans[n-1].End), Data: []byte(text)}, nil
	}

	at := parsed.HeaderEnd
	if at == 0 {
		return stream.Replacement{Offset: 0, Data: []byte(strings.Join(lines, "\n") + "\n\n")}, nil
	}
	indent, err := session.FindIndentByOffset(int64(parsed.Offset))
	if err != nil {
		return stream.Replacement{}, err
	}
	if content[at-1] == '{' {
		indent += bodyIndent
	}
	text := "\n\n" + indent + strings.Join(lines, "\n"+indent)
	if needsBlankLine(content[at:]) {
		text += "\n"
	}
	return stream.Replacement{Offset: int64(at), Data: []byte(text)}, nil
}

// needsBlankLine reports whether the line after the header is a statement
// that would otherwise directly follow the new use block. Blank lines, a
// closing brace and end of input need no separator.
func needsBlankLine(rest []byte) bool {
	_, after, found := bytes.Cut(rest, []byte("\n"))
	if !found {
		return false
	}
	next, _, _ := bytes.Cut(after, []byte("\n"))
	next = bytes.TrimSpace(next)
	return len(next) > 0 && next[0] != '}'
}
