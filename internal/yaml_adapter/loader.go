// Package yaml_adapter loads chain definitions written in YAML:
//
//	stages:
//	  - name: fetch
//	    id: 0
//	    action: print
//	    arguments:
//	      message: hello
//	  - name: build
//	    id: 1
//	    action: exec
//	    depends_on: [0]
//	    arguments:
//	      command: go
//	      args: [build, ./...]
package yaml_adapter

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/vk/stagechain/internal/config"
	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Extensions are the file extensions handled by this loader.
var Extensions = []string{".yaml", ".yml"}

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML chain loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	Stages []stageDoc `yaml:"stages"`
}

type stageDoc struct {
	Name      string         `yaml:"name"`
	ID        *int           `yaml:"id"`
	Action    string         `yaml:"action"`
	DependsOn []int          `yaml:"depends_on"`
	Arguments map[string]any `yaml:"arguments"`

	line int
}

var stageFields = []string{"name", "id", "action", "depends_on", "arguments"}

// UnmarshalYAML rejects unknown keys and remembers the declaration line.
func (d *stageDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: stage must be a mapping", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i]
		if !slices.Contains(stageFields, key.Value) {
			return fmt.Errorf("line %d: unknown stage field %q", key.Line, key.Value)
		}
	}

	type plain stageDoc
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = stageDoc(p)
	d.line = node.Line
	return nil
}

// Load parses every YAML file under paths into the chain model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Chain, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, Extensions...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	chain := &config.Chain{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}

		var root fileRoot
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
		}

		for _, doc := range root.Stages {
			stage, err := translateStage(file, doc)
			if err != nil {
				return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
			}
			chain.Stages = append(chain.Stages, stage)
		}
	}

	logger.Debug("YAML loading complete.", "files", len(files), "stages", len(chain.Stages))
	return chain, nil
}

func translateStage(file string, doc stageDoc) (*config.Stage, error) {
	if doc.Action == "" {
		return nil, fmt.Errorf("line %d: stage %q has no action", doc.line, doc.Name)
	}

	args := make(map[string]cty.Value, len(doc.Arguments))
	for name, raw := range doc.Arguments {
		val, err := toCtyValue(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: stage %q argument %q: %w", doc.line, doc.Name, name, err)
		}
		args[name] = val
	}

	name := doc.Name
	if name == "" {
		name = fmt.Sprintf("stage@%d", doc.line)
	}

	return &config.Stage{
		Name:      name,
		ID:        doc.ID,
		Action:    doc.Action,
		Arguments: args,
		DependsOn: doc.DependsOn,
		File:      file,
		Source:    fmt.Sprintf("%s:%d", file, doc.line),
	}, nil
}
