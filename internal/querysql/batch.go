package querysql

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/pggraphql/internal/queryir"
)

// CompileBatch compiles trees concurrently against the compiler's schema.
// Results are returned in input order. The first failure cancels the
// remaining work and is returned wrapped with the index of its tree.
func CompileBatch(ctx context.Context, c *Compiler, trees []*queryir.Node) ([]*Result, error) {
	results := make([]*Result, len(trees))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, tree := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.Compile(tree)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
