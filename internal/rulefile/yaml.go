package rulefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aristath/dmake/internal/rules"
)

type yamlFile struct {
	Rules []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	Target string   `yaml:"target"`
	Deps   []string `yaml:"deps"`
	Recipe []string `yaml:"recipe"`
}

// ParseYAML decodes
//
//	rules:
//	  - target: out/a.txt
//	    deps: [in/a.txt]
//	    recipe:
//	      - cp in/a.txt out/a.txt
//
// Unknown keys are rejected.
func ParseYAML(data []byte) ([]rules.Rule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f yamlFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing yaml rules: %w", err)
	}

	out := make([]rules.Rule, 0, len(f.Rules))
	for _, r := range f.Rules {
		out = append(out, rules.Rule{Target: r.Target, Deps: r.Deps, Recipe: r.Recipe})
	}
	if err := validate(out); err != nil {
		return nil, err
	}
	return out, nil
}
