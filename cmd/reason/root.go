package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/wbrown/janus-reasoner/datalog"
	"github.com/wbrown/janus-reasoner/datalog/annotations"
	"github.com/wbrown/janus-reasoner/datalog/index"
	"github.com/wbrown/janus-reasoner/datalog/parser"
	"github.com/wbrown/janus-reasoner/datalog/reasoner"
	"github.com/wbrown/janus-reasoner/datalog/triples"
)

// defaultProgram is used when --program is not given: class and
// property hierarchies plus symmetric and transitive properties
const defaultProgram = `
[(T ?x type ?c) (T ?x type ?b) (T ?b subClassOf ?c)]
[(T ?b subClassOf ?d) (T ?b subClassOf ?c) (T ?c subClassOf ?d)]
[(T ?x ?q ?y) (T ?x ?p ?y) (T ?p subPropertyOf ?q)]
[(T ?p subPropertyOf ?r) (T ?p subPropertyOf ?q) (T ?q subPropertyOf ?r)]
[(T ?x type ?c) (T ?x ?p ?y) (T ?p domain ?c)]
[(T ?y type ?c) (T ?x ?p ?y) (T ?p range ?c)]
[(T ?y ?p ?x) (T ?x ?p ?y) (T ?p type SymmetricProperty)]
[(T ?x ?p ?z) (T ?x ?p ?y) (T ?y ?p ?z) (T ?p type TransitiveProperty)]
`

// since is replaced in tests to make timings reproducible
var since = time.Since

type flags struct {
	abox        string
	tbox        string
	program     string
	config      string
	backend     string
	strategy    string
	update      string
	parallel    int
	maxRounds   int
	verbose     bool
	table       string
	tableLimit  int
	skipInserts bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "reason",
		Short: "Materialize a Datalog program over triple files",
		Long: `Materialize a Datalog program over ABox and TBox triple files.

Triples are loaded into the relation T. The reasoner is materialized on
the empty store and every triple is then inserted through the dynamic
update path, ABox first. The closure is finally recomputed bottom-up
from the same base facts.

Examples:
  reason --abox abox.nt --tbox tbox.nt
  reason --abox abox.nt --program rules.edn --strategy chibi
  reason --abox abox.nt --backend btree --update naive --table T
  reason compare --abox abox.nt --tbox tbox.nt`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			return runReason(cmd.OutOrStdout(), cmd.ErrOrStderr(), f, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.abox, "abox", "", "ABox triple file")
	pf.StringVar(&f.tbox, "tbox", "", "TBox triple file")
	pf.StringVar(&f.program, "program", "", "rule program file (default: built-in ontology rules)")
	pf.StringVar(&f.config, "config", "", "YAML reasoner options")
	pf.BoolVar(&f.verbose, "verbose", false, "stream evaluation events to stderr")
	pf.IntVar(&f.parallel, "parallel", 1, "rule instantiations run concurrently per round")
	pf.IntVar(&f.maxRounds, "max-rounds", 0, "fail when evaluation needs more rounds (0 = unbounded)")

	cmd.Flags().StringVar(&f.backend, "backend", string(index.IndexedHashMap), "index backend for the simple reasoner")
	cmd.Flags().StringVar(&f.strategy, "strategy", string(reasoner.StrategySimple), "reasoner: simple or chibi")
	cmd.Flags().StringVar(&f.update, "update", string(reasoner.UpdateIncremental), "insert strategy: naive or incremental")
	cmd.Flags().StringVar(&f.table, "table", "", "print the named relation as a markdown table")
	cmd.Flags().IntVar(&f.tableLimit, "limit", 0, "maximum table rows (0 = all)")
	cmd.Flags().BoolVar(&f.skipInserts, "seed", false, "seed triples and materialize once instead of inserting them")

	cmd.AddCommand(newCompareCmd(f))
	return cmd
}

// options merges the config file with flags set on the command line
func (f *flags) options(cmd *cobra.Command) (reasoner.Options, error) {
	opts := reasoner.DefaultOptions()
	if f.config != "" {
		loaded, err := reasoner.LoadOptions(f.config)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}

	changed := cmd.Flags().Changed
	if changed("backend") {
		opts.Backend = f.backend
	}
	if changed("strategy") {
		opts.Strategy = reasoner.Strategy(f.strategy)
	}
	if changed("update") {
		opts.Update = reasoner.UpdateStrategy(f.update)
	}
	if changed("parallel") {
		opts.Parallelism = f.parallel
	}
	if changed("max-rounds") {
		opts.MaxRounds = f.maxRounds
	}
	if changed("verbose") {
		opts.Verbose = f.verbose
	}
	if opts.Verbose {
		opts.Handler = annotations.NewOutputFormatter(cmd.ErrOrStderr()).Handle
	}
	return opts, opts.Validate()
}

func (f *flags) loadProgram() (*datalog.Program, error) {
	src := defaultProgram
	if f.program != "" {
		data, err := os.ReadFile(f.program)
		if err != nil {
			return nil, fmt.Errorf("reading program: %w", err)
		}
		src = string(data)
	}
	program, err := parser.ParseProgram(src)
	if err != nil {
		return nil, fmt.Errorf("parsing program: %w", err)
	}
	return program, nil
}

// loadTriples reads the ABox then the TBox
func (f *flags) loadTriples(out io.Writer) ([]datalog.Row, error) {
	if f.abox == "" && f.tbox == "" {
		return nil, fmt.Errorf("at least one of --abox and --tbox is required")
	}

	var rows []datalog.Row
	counts := make([]int, 2)
	for i, path := range []string{f.abox, f.tbox} {
		if path == "" {
			continue
		}
		err := triples.LoadFile(path, func(t triples.Triple) error {
			rows = append(rows, t.Row())
			counts[i]++
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(out, "loaded %d triples (abox %d, tbox %d)\n", len(rows), counts[0], counts[1])
	return rows, nil
}

func runReason(out, errOut io.Writer, f *flags, opts reasoner.Options) error {
	program, err := f.loadProgram()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "program: %d rules, %d facts\n", len(program.Rules), len(program.Facts))

	rows, err := f.loadTriples(out)
	if err != nil {
		return err
	}

	r, err := reasoner.New(opts)
	if err != nil {
		return err
	}
	defer r.Close()

	name := string(opts.Strategy)
	start := time.Now()
	if f.skipInserts {
		if err := r.Seed(triples.Relation, rows...); err != nil {
			return err
		}
		if err := r.Materialize(program); err != nil {
			return err
		}
	} else {
		if err := r.Materialize(program); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := r.Insert(triples.Relation, row); err != nil {
				return fmt.Errorf("inserting %s: %w", row, err)
			}
		}
	}
	fmt.Fprintf(out, "reasoning time - %s: %d ms\n", name, since(start).Milliseconds())
	fmt.Fprintf(out, "triples - %s: %d\n", name, r.Len(triples.Relation))

	start = time.Now()
	closure, err := r.EvaluateProgramBottomUp(program)
	if err != nil {
		return err
	}
	defer index.Release(closure)
	fmt.Fprintf(out, "reasoning time - %s bottom-up: %d ms\n", name, since(start).Milliseconds())
	fmt.Fprintf(out, "triples - %s bottom-up: %d\n", name, closure.Len(triples.Relation))

	if opts.Verbose {
		fmt.Fprintf(errOut, "relations: %s\n", summarize(r))
	}
	if closure.Len(triples.Relation) != r.Len(triples.Relation) {
		fmt.Fprintf(errOut, "warning: dynamic and bottom-up closures differ\n")
	}

	if f.table != "" {
		fmt.Fprintln(out)
		fmt.Fprint(out, formatRelation(f.table, r.View(f.table), f.tableLimit))
	}
	return nil
}

// summarize lists every materialized relation with its arity and size
func summarize(r reasoner.Reasoner) string {
	var rels []annotations.RelationInfo
	for _, name := range r.Relations() {
		arity := -1
		if rows := r.View(name); len(rows) > 0 {
			arity = len(rows[0])
		}
		rels = append(rels, annotations.RelationInfo{Name: name, Arity: arity, Rows: r.Len(name)})
	}
	return annotations.NewRelationRenderer(false).RenderRelations(rels)
}
