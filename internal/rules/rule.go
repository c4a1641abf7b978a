// Package rules holds the build graph that dmake hands to make: an ordered
// list of rules, each naming a target, the paths it depends on and the shell
// commands that produce it.
package rules

import (
	"errors"
	"fmt"
)

// Rule is one buildable artifact.
type Rule struct {
	Target string   // File-system path, unique in a graph
	Deps   []string // Prerequisite paths, order preserved
	Recipe []string // Shell commands producing Target from Deps
}

// ErrDuplicateTarget is matched by DuplicateTargetError via errors.Is.
var ErrDuplicateTarget = errors.New("duplicate target")

// DuplicateTargetError reports a second registration of the same target.
type DuplicateTargetError struct {
	Target string
}

func (e *DuplicateTargetError) Error() string {
	return fmt.Sprintf("tried to add target twice: %s", e.Target)
}

func (e *DuplicateTargetError) Is(target error) bool {
	return target == ErrDuplicateTarget
}

func cloneRule(r Rule) Rule {
	cp := r
	if r.Deps != nil {
		cp.Deps = append([]string(nil), r.Deps...)
	}
	if r.Recipe != nil {
		cp.Recipe = append([]string(nil), r.Recipe...)
	}
	return cp
}
