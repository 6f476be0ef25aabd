package rule

import (
	"fmt"
	"os"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

// Load parses a YAML list of rules and compiles each one with an environment
// from envProvider.
func Load(content []byte, envProvider func() (*cel.Env, error)) (Set, error) {
	rules := Set{}
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return nil, err
	}

	for i := range rules {
		env, err := envProvider()
		if err != nil {
			return nil, err
		}

		if err := rules[i].Init(env); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return rules, nil
}

// LoadFromFile reads rules from file. An empty path yields an empty set.
func LoadFromFile(file string, envProvider func() (*cel.Env, error)) (Set, error) {
	if file == "" {
		return Set{}, nil
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return Load(content, envProvider)
}
