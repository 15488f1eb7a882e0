package executor

// Options tunes the evaluator
type Options struct {
	// Parallelism is the number of workers instantiating rules within a
	// round. Values below 2 evaluate sequentially.
	Parallelism int `yaml:"parallelism"`

	// MaxRounds aborts evaluation with ErrMaxRounds when a round beyond
	// this many productive rounds still derives rows. 0 means unbounded.
	MaxRounds int `yaml:"max_rounds"`
}

// DefaultOptions returns sequential, unbounded evaluation
func DefaultOptions() Options {
	return Options{
		Parallelism: 1,
		MaxRounds:   0,
	}
}
