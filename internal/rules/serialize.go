package rules

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultShell is the interpreter make uses for recipe lines.
const DefaultShell = "/bin/bash"

// DefaultGoal is the synthetic goal depending on every target.
const DefaultGoal = "all"

// Serialize writes the graph as Makefile text to w using DefaultShell.
func (g *Graph) Serialize(w io.Writer) error {
	return g.SerializeShell(w, DefaultShell)
}

// SerializeShell writes the graph as Makefile text to w with recipes run by
// shell. The graph is not modified, so repeated calls produce identical text.
//
// Layout: a SHELL assignment, one block per rule in insertion order (header,
// a directory guard, then the recipe each prefixed by the scheduler), the
// synthetic all goal and .DELETE_ON_ERROR. Recipe lines start with a literal
// TAB as make requires.
func (g *Graph) SerializeShell(w io.Writer, shell string) error {
	if shell == "" {
		shell = DefaultShell
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "SHELL := %s\n", shell)

	prefix := g.scheduler.Prefix()
	for _, r := range g.rules {
		lines, err := recipeLines(r, prefix)
		if err != nil {
			return err
		}

		fmt.Fprintf(bw, "%s: %s\n", r.Target, strings.Join(r.Deps, " "))
		for _, line := range lines {
			fmt.Fprintf(bw, "\t%s\n", line)
		}
	}

	fmt.Fprintf(bw, "%s: %s\n", DefaultGoal, strings.Join(g.Targets(), " "))
	bw.WriteString(".DELETE_ON_ERROR:\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing makefile: %w", err)
	}
	if f, ok := w.(*os.File); ok {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("syncing makefile %s: %w", f.Name(), err)
		}
	}
	return nil
}

// recipeLines returns the commands emitted for r: the quiet directory guard
// first, then every recipe command with the scheduler prefix.
func recipeLines(r Rule, prefix string) ([]string, error) {
	dir, err := filepath.Abs(filepath.Dir(r.Target))
	if err != nil {
		return nil, fmt.Errorf("resolving directory of %s: %w", r.Target, err)
	}

	lines := make([]string, 0, len(r.Recipe)+1)
	lines = append(lines, GuardCommand(dir))
	for _, cmd := range r.Recipe {
		lines = append(lines, prefix+cmd)
	}
	return lines, nil
}

// GuardCommand returns the recipe line creating dir when it is missing. The
// leading @ keeps make from echoing it.
func GuardCommand(dir string) string {
	return fmt.Sprintf("@test -d %[1]s || mkdir -p %[1]s", dir)
}
