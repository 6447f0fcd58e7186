package dag

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DOTOption configures ExportDOT.
type DOTOption func(*dotConfig)

type dotConfig struct {
	graphName string
	rankDir   string
}

// DOTWithGraphName overrides the DOT graph identifier.
func DOTWithGraphName(name string) DOTOption {
	return func(cfg *dotConfig) {
		if name != "" {
			cfg.graphName = name
		}
	}
}

// DOTWithRankDir sets the rank direction ("LR", "TB", ...).
func DOTWithRankDir(rankDir string) DOTOption {
	return func(cfg *dotConfig) {
		if rankDir != "" {
			cfg.rankDir = rankDir
		}
	}
}

// ExportDOT renders the plan in Graphviz DOT format. Nodes are stage
// identifiers, labelled with the stage name when one is set. Edges point from
// a dependency to its dependent.
func (p *Plan) ExportDOT(w io.Writer, opts ...DOTOption) error {
	if w == nil {
		return ErrNilWriter
	}
	if p == nil || !p.built {
		return ErrNotBuilt
	}

	cfg := dotConfig{graphName: "stagechain", rankDir: "LR"}
	for _, opt := range opts {
		opt(&cfg)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", dotQuote(cfg.graphName))
	fmt.Fprintf(&b, "    rankdir=%s;\n", cfg.rankDir)
	for _, s := range p.stages {
		id := dotQuote(strconv.Itoa(s.ID))
		if s.Name != "" {
			fmt.Fprintf(&b, "    %s [label=%s];\n", id, dotQuote(s.Name))
			continue
		}
		fmt.Fprintf(&b, "    %s;\n", id)
	}
	for _, s := range p.stages {
		for _, d := range s.DependsOn {
			fmt.Fprintf(&b, "    %s -> %s;\n", dotQuote(strconv.Itoa(d)), dotQuote(strconv.Itoa(s.ID)))
		}
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func dotQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '\\' || r == '"' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
