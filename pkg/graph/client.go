package graph

// GraphClient compiles shorthand inputs into resolved stores. It bounds how
// many input files are loaded at once and how often a failed store write is
// retried.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	parallelFiles int
	maxRetries    int
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// ParallelFiles controls how many input files are loaded in parallel.
// MaxRetries bounds the attempts of a store write.
type NewGraphClientParams struct {
	ParallelFiles int
	MaxRetries    int
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		ParallelFiles: 4,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	parallel := params.ParallelFiles
	if parallel <= 0 {
		parallel = 4
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &GraphClient{
		parallelFiles: parallel,
		maxRetries:    maxRetries,
	}, nil
}
