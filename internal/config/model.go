package config

import (
	"github.com/zclconf/go-cty/cty"
)

// Chain is the unified representation of every stage declared across all
// loaded definition files, in declaration order.
type Chain struct {
	Stages []*Stage
}

// Stage is the format-agnostic representation of a single stage declaration.
type Stage struct {
	// Name is the label given to the stage in its definition file.
	Name string
	// ID is the explicit identifier, or nil when the file relies on
	// positional identifiers.
	ID *int
	// Action is the registry name of the action to run.
	Action string
	// Arguments holds the evaluated action arguments.
	Arguments map[string]cty.Value
	// DependsOn lists identifiers (or positions) of prerequisite stages.
	DependsOn []int
	// File is the definition file the stage was read from.
	File string
	// Source points at the declaration, e.g. "chain.hcl:12".
	Source string
}

// HasID reports whether the stage carries an explicit identifier.
func (s *Stage) HasID() bool {
	return s.ID != nil
}

// Append adds the stages of other to c.
func (c *Chain) Append(other *Chain) {
	if other == nil {
		return
	}
	c.Stages = append(c.Stages, other.Stages...)
}
