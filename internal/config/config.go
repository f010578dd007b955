// YAML experiment loader with CUE validation integration
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"vanet-sim/internal/scenario"
)

//go:embed schema.cue
var defaultSchema []byte

// Outputs selects the optional outputs next to the two CSV logs.
type Outputs struct {
	// JSONL is a path receiving every sample and summary as JSON lines.
	JSONL string `yaml:"jsonl"`
	// Stdout is one of json, color, tui or none.
	Stdout string `yaml:"stdout"`
}

// Experiment is the root of an experiment file. Scenario parameters sit at
// the top level next to the scenario id.
type Experiment struct {
	Scenario  scenario.Opt[int]  `yaml:"scenario"`
	Overrides scenario.Overrides `yaml:",inline"`
	Outputs   Outputs            `yaml:"outputs"`
}

// Load validates configPath against the CUE schema and decodes it. An empty
// cueSchemaPath uses the built-in schema.
func Load(configPath, cueSchemaPath string) (*Experiment, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read YAML config: %w", err)
	}
	schema := defaultSchema
	if cueSchemaPath != "" {
		if schema, err = os.ReadFile(cueSchemaPath); err != nil {
			return nil, fmt.Errorf("cannot read CUE schema: %w", err)
		}
	}
	if err := Validate(configPath, data, schema); err != nil {
		return nil, err
	}

	var exp Experiment
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	return &exp, nil
}

// Validate unifies the YAML document with the #Experiment definition of
// schema. Unknown keys are rejected since definitions are closed.
func Validate(filename string, yamlBytes, schema []byte) error {
	ctx := cuecontext.New()

	file, err := cueyaml.Extract(filename, yamlBytes)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("cannot build YAML config: %w", err)
	}

	schemaVal := ctx.CompileBytes(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Experiment"))
	if !def.Exists() {
		return fmt.Errorf("CUE schema has no #Experiment definition")
	}

	final := def.Unify(configVal)
	if final.Err() != nil {
		return fmt.Errorf("schema unify failed: %w", final.Err())
	}
	if err := final.Validate(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ScenarioID returns the configured scenario or def.
func (e *Experiment) ScenarioID(def int) int {
	if e == nil {
		return def
	}
	return e.Scenario.Or(def)
}
