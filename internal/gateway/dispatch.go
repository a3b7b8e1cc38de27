package gateway

import (
	"context"

	"github.com/bull/docintel/internal/config"
	"github.com/bull/docintel/internal/workpool"
)

type dispatched struct {
	gw   Gateway
	pool *workpool.Pool
}

// Dispatch wraps gw so every inference call runs on pool. A caller whose
// context ends stops waiting; the call itself runs to completion.
func Dispatch(gw Gateway, pool *workpool.Pool) Gateway {
	if pool == nil {
		return gw
	}
	return &dispatched{gw: gw, pool: pool}
}

func (d *dispatched) Backend() config.Backend { return d.gw.Backend() }

func (d *dispatched) Embed(ctx context.Context, text string) ([]float32, error) {
	return workpool.Do(ctx, d.pool, func(ctx context.Context) ([]float32, error) {
		return d.gw.Embed(ctx, text)
	})
}

func (d *dispatched) Summarize(ctx context.Context, chunks []string) (string, error) {
	return workpool.Do(ctx, d.pool, func(ctx context.Context) (string, error) {
		return d.gw.Summarize(ctx, chunks)
	})
}

func (d *dispatched) Answer(ctx context.Context, query, docContext string) (string, error) {
	return workpool.Do(ctx, d.pool, func(ctx context.Context) (string, error) {
		return d.gw.Answer(ctx, query, docContext)
	})
}
