// Package transform applies ordered chains of source-to-source stages to
// module content. Stages are selected through a rules table evaluated top to
// bottom; the first matching rule wins.
package transform

import (
	"fmt"

	"github.com/gobwas/glob"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
)

// Stage is a single transform step. Apply must not retain or mutate src.
type Stage interface {
	Name() string
	Apply(id models.ModuleID, src []byte) ([]byte, error)
}

// StageFunc adapts a function into a Stage.
type StageFunc struct {
	StageName string
	Fn        func(id models.ModuleID, src []byte) ([]byte, error)
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Apply(id models.ModuleID, src []byte) ([]byte, error) {
	return s.Fn(id, src)
}

// Rule selects the stages applied to modules whose root-relative path
// matches one of Include and none of Exclude.
type Rule struct {
	Name    string
	Include []string // glob patterns, e.g. "**/*.js"
	Exclude []string // glob patterns, e.g. "**/node_modules/**"
	Stages  []Stage
}

type compiledRule struct {
	name    string
	include []glob.Glob
	exclude []glob.Glob
	stages  []Stage
}

func (r *compiledRule) matches(path string) bool {
	for _, g := range r.exclude {
		if g.Match(path) {
			return false
		}
	}
	for _, g := range r.include {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Pipeline is an immutable, compiled rules table.
type Pipeline struct {
	root  string
	rules []compiledRule
}

// NewPipeline compiles rules. Paths are matched relative to root with
// forward slashes.
func NewPipeline(root string, rules []Rule) (*Pipeline, error) {
	p := &Pipeline{root: root}

	for i, rule := range rules {
		cr := compiledRule{
			name:   rule.Name,
			stages: append([]Stage(nil), rule.Stages...),
		}
		if cr.name == "" {
			cr.name = fmt.Sprintf("rule-%d", i)
		}

		for _, pattern := range rule.Include {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid include pattern %q: %w", cr.name, pattern, err)
			}
			cr.include = append(cr.include, g)
		}
		for _, pattern := range rule.Exclude {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid exclude pattern %q: %w", cr.name, pattern, err)
			}
			cr.exclude = append(cr.exclude, g)
		}

		p.rules = append(p.rules, cr)
	}

	return p, nil
}

// Match returns the name of the rule that applies to id and its stages.
func (p *Pipeline) Match(id models.ModuleID) (string, []Stage, bool) {
	path := id.Rel(p.root)
	if id.Query != "" {
		path = path[:len(path)-len(id.Query)-1]
	}

	for i := range p.rules {
		if p.rules[i].matches(path) {
			return p.rules[i].name, p.rules[i].stages, true
		}
	}
	return "", nil, false
}

// Transform runs the stages of the first matching rule over raw. Modules no
// rule matches pass through unchanged. A failing stage aborts with a
// transform error and no output.
func (p *Pipeline) Transform(id models.ModuleID, raw []byte) ([]byte, error) {
	_, stages, ok := p.Match(id)
	if !ok {
		return raw, nil
	}

	out := raw
	for i, stage := range stages {
		next, err := stage.Apply(id, out)
		if err != nil {
			return nil, diag.Transform(id, i, stage.Name(), err)
		}
		out = next
	}

	return out, nil
}
