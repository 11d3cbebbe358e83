package rpc

import (
	"context"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/chain"
	"golang.org/x/sync/errgroup"
)

// probeTimeout bounds a single endpoint probe.
const probeTimeout = 5 * time.Second

// Probe pings every URL concurrently and returns one checked Endpoint per
// URL, in input order.
func Probe(ctx context.Context, urls []string) []Endpoint {
	out := make([]Endpoint, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			latency, block, err := chain.NewEVMClient(u).Ping(pctx)
			out[i] = Endpoint{
				URL:         u,
				Latency:     latency,
				BlockNumber: block,
				Healthy:     err == nil,
				Checked:     true,
			}
			// a dead endpoint must not cancel the others
			return nil
		})
	}
	g.Wait() //nolint:errcheck
	return out
}

// Best probes urls and returns the one algo selects. A single URL is
// returned without probing.
func Best(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	winner, err := NewPicker(algo).Pick(Probe(ctx, urls))
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}
