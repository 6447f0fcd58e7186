package config

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/vk/stagechain/internal/ctxlog"
)

// Loader is the interface for a format-specific chain loader.
type Loader interface {
	// Load reads every definition file it understands under the given paths
	// and translates them into the format-agnostic model. Files of other
	// formats are ignored.
	Load(ctx context.Context, paths ...string) (*Chain, error)
}

// multiLoader runs several loaders over the same paths.
type multiLoader []Loader

// Combine returns a Loader that merges the chains produced by loaders. Stages
// are ordered by definition file name, so files of different formats
// interleave lexically; stages of one file keep their declaration order.
// Stages without a file keep loader order.
func Combine(loaders ...Loader) Loader {
	return multiLoader(loaders)
}

func (m multiLoader) Load(ctx context.Context, paths ...string) (*Chain, error) {
	logger := ctxlog.FromContext(ctx)
	chain := &Chain{}
	for i, l := range m {
		part, err := l.Load(ctx, paths...)
		if err != nil {
			return nil, fmt.Errorf("loader %d: %w", i, err)
		}
		chain.Append(part)
	}
	slices.SortStableFunc(chain.Stages, func(a, b *Stage) int {
		return cmp.Compare(a.File, b.File)
	})
	logger.Debug("Combined chain loaded.", "loaders", len(m), "stages", len(chain.Stages))
	return chain, nil
}
