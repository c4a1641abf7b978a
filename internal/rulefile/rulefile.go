// Package rulefile reads rule declarations from YAML or HCL files so rule
// graphs can be described without writing Go.
package rulefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aristath/dmake/internal/rules"
)

// Adder receives parsed rules. *dmake.DistributedMake and *rules.Graph both
// satisfy it.
type Adder interface {
	Add(target string, deps, recipe []string) error
}

// Read parses the rule file at path, choosing the format by extension:
// .yaml/.yml or .hcl. env is exposed to HCL expressions as env.NAME; nil
// uses the process environment.
func Read(path string, env map[string]string) ([]rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".hcl":
		if env == nil {
			env = Environ()
		}
		return ParseHCL(data, path, env)
	default:
		return nil, fmt.Errorf("unsupported rule file %s: want .yaml, .yml or .hcl", path)
	}
}

// Load reads path and adds every rule to dst in file order, stopping at the
// first rejected rule.
func Load(path string, dst Adder) (int, error) {
	rs, err := Read(path, nil)
	if err != nil {
		return 0, err
	}
	for i, r := range rs {
		if err := dst.Add(r.Target, r.Deps, r.Recipe); err != nil {
			return i, fmt.Errorf("%s: %w", path, err)
		}
	}
	return len(rs), nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func validate(rs []rules.Rule) error {
	for i, r := range rs {
		if strings.TrimSpace(r.Target) == "" {
			return fmt.Errorf("rule %d: target must not be empty", i)
		}
	}
	return nil
}
