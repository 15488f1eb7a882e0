package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wbrown/janus-reasoner/datalog/index"
	"github.com/wbrown/janus-reasoner/datalog/reasoner"
	"github.com/wbrown/janus-reasoner/datalog/triples"
)

func newCompareCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Run every backend and reasoner on the same input",
		Long: `Seed the triples into the simple reasoner over every index backend and
into the chibi reasoner, evaluate the program bottom-up with each, and
report timings, counts and whether all closures agree.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			return runCompare(cmd.OutOrStdout(), f, opts)
		},
	}
}

type comparison struct {
	name    string
	elapsed time.Duration
	closure index.Reader
}

func compareConfigs(base reasoner.Options) []reasoner.Options {
	var configs []reasoner.Options
	for _, kind := range index.Kinds() {
		opts := base
		opts.Strategy = reasoner.StrategySimple
		opts.Backend = string(kind)
		configs = append(configs, opts)
	}
	opts := base
	opts.Strategy = reasoner.StrategyChibi
	return append(configs, opts)
}

func runCompare(out io.Writer, f *flags, base reasoner.Options) error {
	program, err := f.loadProgram()
	if err != nil {
		return err
	}
	rows, err := f.loadTriples(out)
	if err != nil {
		return err
	}

	var results []comparison
	defer func() {
		for _, c := range results {
			_ = index.Release(c.closure)
		}
	}()

	for _, opts := range compareConfigs(base) {
		name := string(opts.Strategy)
		if opts.Strategy == reasoner.StrategySimple {
			name += "/" + opts.Backend
		}

		r, err := reasoner.New(opts)
		if err != nil {
			return err
		}
		if err := r.Seed(triples.Relation, rows...); err != nil {
			r.Close()
			return fmt.Errorf("%s: %w", name, err)
		}
		start := time.Now()
		closure, err := r.EvaluateProgramBottomUp(program)
		elapsed := since(start)
		r.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		results = append(results, comparison{name: name, elapsed: elapsed, closure: closure})
	}

	cells := make([][]string, len(results))
	agree := true
	for i, c := range results {
		same := index.Equal(results[0].closure, c.closure)
		agree = agree && same
		cells[i] = []string{
			c.name,
			fmt.Sprintf("%d", c.closure.Len(triples.Relation)),
			fmt.Sprintf("%d", index.Total(c.closure)),
			fmt.Sprintf("%d ms", c.elapsed.Milliseconds()),
			fmt.Sprintf("%t", same),
		}
	}

	var sb strings.Builder
	renderTable(&sb, []string{"reasoner", "triples", "facts", "time", "agrees"}, cells)
	fmt.Fprint(out, sb.String())

	if !agree {
		return fmt.Errorf("closures differ: %s", describeDiff(results[0].closure, results))
	}
	fmt.Fprintf(out, "\nall %d reasoners agree on %d facts\n", len(results), index.Total(results[0].closure))
	return nil
}

// describeDiff names the first fact missing from a disagreeing closure
func describeDiff(reference index.Reader, results []comparison) string {
	want := index.Dump(reference)
	for _, c := range results {
		if index.Equal(reference, c.closure) {
			continue
		}
		for _, fact := range want {
			if !c.closure.Contains(fact.Relation, fact.Row) {
				return fmt.Sprintf("%s lacks %s", c.name, fact)
			}
		}
		return fmt.Sprintf("%s has %d extra facts", c.name, index.Total(c.closure)-len(want))
	}
	return "unknown"
}
