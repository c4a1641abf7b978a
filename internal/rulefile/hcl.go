package rulefile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/aristath/dmake/internal/rules"
)

type hclFile struct {
	Rules []*hclRule `hcl:"rule,block"`
}

type hclRule struct {
	Target string   `hcl:"target,label"`
	Deps   []string `hcl:"deps,optional"`
	Recipe []string `hcl:"recipe,optional"`
}

// ParseHCL decodes
//
//	rule "out/a.txt" {
//	  deps   = ["in/a.txt"]
//	  recipe = ["cp in/a.txt ${env.OUT}/a.txt"]
//	}
//
// Expressions may reference env.NAME for every key of env.
func ParseHCL(data []byte, filename string, env map[string]string) ([]rules.Rule, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, evalContext(env), &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	out := make([]rules.Rule, 0, len(parsed.Rules))
	for _, r := range parsed.Rules {
		out = append(out, rules.Rule{Target: r.Target, Deps: r.Deps, Recipe: r.Recipe})
	}
	if err := validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

func evalContext(env map[string]string) *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vals[k] = cty.StringVal(v)
	}
	envVal := cty.EmptyObjectVal
	if len(vals) > 0 {
		envVal = cty.ObjectVal(vals)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}
