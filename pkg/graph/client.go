package graph

import "github.com/regtrace/lineage/pkg/common"

// Client builds reconciled citation graphs from source batches. It controls
// how many batches are normalized in parallel and which source-precedence
// order the resolver applies.
//
// A Client should be created using NewClient.
type Client struct {
	parallelSources int
	resolverOpts    ResolverOptions
}

// NewClientParams defines the configuration parameters for creating a new
// Client.
//
// ParallelSources controls how many source batches are normalized
// concurrently. Precedence overrides the default source authority order;
// leave it empty to use common.DefaultPrecedence.
type NewClientParams struct {
	ParallelSources int
	Precedence      []common.SourceKind
}

// NewClient creates and returns a new Client configured with the provided
// parameters.
//
// Example:
//
//	client := graph.NewClient(graph.NewClientParams{
//		ParallelSources: 4,
//	})
func NewClient(params NewClientParams) *Client {
	parallel := params.ParallelSources
	if parallel <= 0 {
		parallel = 4
	}

	return &Client{
		parallelSources: parallel,
		resolverOpts:    ResolverOptions{Precedence: params.Precedence},
	}
}
