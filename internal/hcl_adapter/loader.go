// Package hcl_adapter loads chain definitions written in HCL.
//
// A definition file contains any number of stage blocks:
//
//	stage "compile" {
//	  id         = 1
//	  action     = "exec"
//	  depends_on = [0]
//	  arguments {
//	    command = "go"
//	    args    = ["build", "./..."]
//	  }
//	}
//
// Argument expressions are evaluated with an "env" object holding the process
// environment and a small set of string functions.
package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/stagechain/internal/config"
	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Extension is the file extension handled by this loader.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	env map[string]string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnv replaces the process environment exposed to expressions as "env".
func WithEnv(env map[string]string) Option {
	return func(l *Loader) {
		l.env = env
	}
}

// NewLoader creates a new HCL chain loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.env == nil {
		l.env = processEnv()
	}
	return l
}

// rootSchema selects the stage blocks of a file and ignores everything else.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "stage", LabelNames: []string{"name"}},
	},
}

// stageBody is the decoded content of a stage block.
type stageBody struct {
	ID        *int            `hcl:"id,optional"`
	Action    string          `hcl:"action"`
	DependsOn []int           `hcl:"depends_on,optional"`
	Arguments *argumentsBlock `hcl:"arguments,block"`
}

// argumentsBlock holds the free-form action arguments.
type argumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Load parses every .hcl file under paths and translates their stage blocks,
// in file order, into the chain model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Chain, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := l.evalContext()
	chain := &config.Chain{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		content, _, diags := hclFile.Body.PartialContent(rootSchema)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range content.Blocks {
			stage, err := l.translateStage(ctx, block, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
			}
			chain.Stages = append(chain.Stages, stage)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "stages", len(chain.Stages))
	return chain, nil
}

// translateStage decodes a single stage block and evaluates its arguments.
func (l *Loader) translateStage(ctx context.Context, block *hcl.Block, evalCtx *hcl.EvalContext) (*config.Stage, error) {
	logger := ctxlog.FromContext(ctx)
	name := block.Labels[0]

	var body stageBody
	if diags := gohcl.DecodeBody(block.Body, evalCtx, &body); diags.HasErrors() {
		return nil, fmt.Errorf("stage %q: %w", name, diags)
	}

	args := make(map[string]cty.Value)
	if body.Arguments != nil && body.Arguments.Body != nil {
		attrs, diags := body.Arguments.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("stage %q arguments: %w", name, diags)
		}
		for attrName, attr := range attrs {
			val, diags := attr.Expr.Value(evalCtx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("stage %q argument %q: %w", name, attrName, diags)
			}
			args[attrName] = val
		}
	}

	stage := &config.Stage{
		Name:      name,
		ID:        body.ID,
		Action:    body.Action,
		Arguments: args,
		DependsOn: body.DependsOn,
		File:      block.DefRange.Filename,
		Source:    fmt.Sprintf("%s:%d", block.DefRange.Filename, block.DefRange.Start.Line),
	}
	logger.Debug("Translated stage block.", "stage", name, "action", stage.Action, "arguments", len(args), "source", stage.Source)
	return stage, nil
}

// evalContext exposes the environment and the supported functions to
// argument expressions.
func (l *Loader) evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value, len(l.env))
	for k, v := range l.env {
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
			"concat": stdlib.ConcatFunc,
		},
	}
}

func processEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}
