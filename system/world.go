package system

import (
	"gopkg.in/yaml.v3"

	"github.com/kairei-project/kairei/ast"
)

// worldPolicyBundle is the on-disk shape of a world policy file: a plain
// list of policy strings, independent of the DSL's own `world { ... }`
// block syntax.
type worldPolicyBundle struct {
	Name     string   `yaml:"name"`
	Policies []string `yaml:"policies"`
}

// LoadWorldPolicies decodes a YAML policy bundle into an ast.WorldDef, for
// control planes that keep world-scope policy text outside the DSL source
// file itself.
func LoadWorldPolicies(doc []byte) (*ast.WorldDef, error) {
	var bundle worldPolicyBundle
	if err := yaml.Unmarshal(doc, &bundle); err != nil {
		return nil, err
	}
	return &ast.WorldDef{Name: bundle.Name, Policies: bundle.Policies}, nil
}
