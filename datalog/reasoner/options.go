package reasoner

import (
	"fmt"
	"os"

	"github.com/wbrown/janus-reasoner/datalog/annotations"
	"github.com/wbrown/janus-reasoner/datalog/executor"
	"github.com/wbrown/janus-reasoner/datalog/index"
	"gopkg.in/yaml.v3"
)

// Options configures a reasoner built with New
type Options struct {
	// Backend names the index kind SimpleDatalog stores facts in
	Backend string `yaml:"backend"`

	// Strategy picks the reasoner implementation
	Strategy Strategy `yaml:"strategy"`

	// Update picks how Insert maintains the closure
	Update UpdateStrategy `yaml:"update"`

	// Parallelism is the number of rule instantiations run concurrently
	// within a round. SimpleDatalog only.
	Parallelism int `yaml:"parallelism"`

	// MaxRounds bounds productive rounds per evaluation. 0 means unbounded.
	MaxRounds int `yaml:"max_rounds,omitempty"`

	// Capacity bounds the rows per relation. 0 means unbounded.
	Capacity int `yaml:"capacity,omitempty"`

	// SpineThreshold is the spine backend compaction threshold
	SpineThreshold int `yaml:"spine_threshold,omitempty"`

	// Verbose streams evaluation events to stderr
	Verbose bool `yaml:"verbose"`

	// Handler receives evaluation events when Verbose is set. Nil means
	// the console formatter.
	Handler annotations.Handler `yaml:"-"`
}

// DefaultOptions returns the options used by the command line driver
func DefaultOptions() Options {
	idx := index.DefaultOptions()
	return Options{
		Backend:        string(index.IndexedHashMap),
		Strategy:       StrategySimple,
		Update:         UpdateIncremental,
		Parallelism:    1,
		SpineThreshold: idx.SpineThreshold,
	}
}

// Validate checks every option value
func (o Options) Validate() error {
	if _, err := ParseStrategy(string(o.Strategy)); err != nil {
		return err
	}
	if _, err := ParseUpdateStrategy(string(o.Update)); err != nil {
		return err
	}
	if _, err := index.ParseKind(o.Backend); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if o.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative")
	}
	if o.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be non-negative")
	}
	if o.Capacity < 0 {
		return fmt.Errorf("capacity must be non-negative")
	}
	if o.SpineThreshold < 0 {
		return fmt.Errorf("spine_threshold must be non-negative")
	}
	return nil
}

// LoadOptions reads YAML options from path. Keys missing from the file
// keep their DefaultOptions value.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("validating config: %w", err)
	}
	return opts, nil
}

func (o Options) indexOptions() index.Options {
	opts := index.DefaultOptions()
	opts.Capacity = o.Capacity
	if o.SpineThreshold > 0 {
		opts.SpineThreshold = o.SpineThreshold
	}
	return opts
}

func (o Options) evaluatorOptions() executor.Options {
	opts := executor.DefaultOptions()
	if o.Parallelism > 0 {
		opts.Parallelism = o.Parallelism
	}
	opts.MaxRounds = o.MaxRounds
	return opts
}

func (o Options) handler() annotations.Handler {
	if o.Handler != nil {
		return o.Handler
	}
	return annotations.ConsoleHandler()
}
