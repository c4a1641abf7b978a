package rules

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"

	"github.com/aristath/dmake/internal/backend"
)

// Graph is the ordered collection of rules for a single build plus the
// scheduling backend their recipes are dispatched through. A Graph has a
// single owner and is not safe for concurrent use.
type Graph struct {
	rules     []Rule
	targets   map[string]struct{}
	scheduler backend.Scheduler
}

// NewGraph creates an empty graph. A nil scheduler runs recipes locally.
func NewGraph(s backend.Scheduler) *Graph {
	if s == nil {
		s = backend.None{}
	}
	return &Graph{
		targets:   make(map[string]struct{}),
		scheduler: s,
	}
}

// Add registers a rule. It fails with *DuplicateTargetError when target is
// already present, leaving the graph untouched. deps and recipe are copied.
func (g *Graph) Add(target string, deps, recipe []string) error {
	if g.Has(target) {
		return &DuplicateTargetError{Target: target}
	}

	g.targets[target] = struct{}{}
	g.rules = append(g.rules, cloneRule(Rule{Target: target, Deps: deps, Recipe: recipe}))
	return nil
}

// SetScheduler replaces the scheduling backend. nil selects backend.None.
func (g *Graph) SetScheduler(s backend.Scheduler) {
	if s == nil {
		s = backend.None{}
	}
	g.scheduler = s
}

// Scheduler returns the scheduling backend.
func (g *Graph) Scheduler() backend.Scheduler {
	return g.scheduler
}

// Len returns the number of rules.
func (g *Graph) Len() int {
	return len(g.rules)
}

// Has reports whether target is registered.
func (g *Graph) Has(target string) bool {
	_, ok := g.targets[target]
	return ok
}

// Rules returns copies of all rules in insertion order.
func (g *Graph) Rules() []Rule {
	out := make([]Rule, 0, len(g.rules))
	for _, r := range g.rules {
		out = append(out, cloneRule(r))
	}
	return out
}

// Targets returns every target in insertion order.
func (g *Graph) Targets() []string {
	out := make([]string, 0, len(g.rules))
	for _, r := range g.rules {
		out = append(out, r.Target)
	}
	return out
}

// Order returns targets so that every target comes after the targets it
// depends on. Dependencies that are not targets of this graph are treated as
// pre-existing files and ignored. It is used to present a plan; make does
// its own ordering and Serialize never calls Order.
func (g *Graph) Order() ([]string, error) {
	var edges []toposort.Edge
	for _, r := range g.rules {
		internal := 0
		for _, dep := range r.Deps {
			if !g.Has(dep) || dep == r.Target {
				continue
			}
			// Edge (dep, target) means dep must come before target
			edges = append(edges, toposort.Edge{dep, r.Target})
			internal++
		}
		if internal == 0 {
			edges = append(edges, toposort.Edge{nil, r.Target})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("rule graph contains cycle: %w", err)
	}

	order := make([]string, 0, len(g.rules))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}

	if len(order) != len(g.rules) {
		found := make(map[string]bool, len(order))
		for _, id := range order {
			found[id] = true
		}
		var missing []string
		for _, r := range g.rules {
			if !found[r.Target] {
				missing = append(missing, r.Target)
			}
		}
		return nil, fmt.Errorf("ordering lost %d targets: %s", len(missing), strings.Join(missing, ", "))
	}

	return order, nil
}
