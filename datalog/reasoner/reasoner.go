// Package reasoner materializes rule programs over a base fact set and
// keeps the result current as facts are inserted.
//
// Two implementations share the Reasoner contract. SimpleDatalog runs the
// semi-naive evaluator from package executor over any index backend.
// ChibiDatalog interns every constant to a uint32 and evaluates over flat
// per-relation arrays with its own loop. Both own their store; callers
// must serialize Seed, Materialize and Insert.
package reasoner

import (
	"errors"
	"fmt"

	"github.com/wbrown/janus-reasoner/datalog"
	"github.com/wbrown/janus-reasoner/datalog/executor"
	"github.com/wbrown/janus-reasoner/datalog/index"
)

// ErrNotMaterialized is returned by Insert before the first Materialize
var ErrNotMaterialized = errors.New("reasoner has not been materialized")

// Reasoner is the materialize/insert/read contract shared by every
// reasoning strategy
type Reasoner interface {
	// Seed adds base facts without evaluating anything. Seeded facts take
	// part in the next Materialize.
	Seed(relation string, rows ...datalog.Row) error

	// Materialize recomputes the closure of program over every base fact
	// and caches the store and program for later inserts
	Materialize(program *datalog.Program) error

	// Insert adds a base fact to a materialized reasoner and brings the
	// closure up to date. It reports whether the materialized store grew.
	Insert(relation string, row datalog.Row) (bool, error)

	// EvaluateProgramBottomUp computes the closure of program over the
	// base facts into a fresh store, leaving the cached materialization
	// untouched. The caller owns the result.
	EvaluateProgramBottomUp(program *datalog.Program) (index.Reader, error)

	// View returns every row of relation in the materialized store, or in
	// the base facts before the first Materialize
	View(relation string) []datalog.Row

	// Len returns the number of rows View would return
	Len(relation string) int

	// Contains reports whether View would include row
	Contains(relation string, row datalog.Row) bool

	// Relations lists the non-empty relations View can return
	Relations() []string

	// Stats describes the most recent evaluation
	Stats() executor.Stats

	// Close releases backend resources
	Close() error
}

// UpdateStrategy selects how Insert brings the closure up to date
type UpdateStrategy string

const (
	// UpdateNaive discards derived facts and recomputes from the base
	UpdateNaive UpdateStrategy = "naive"

	// UpdateIncremental propagates the inserted row as a one-row delta
	UpdateIncremental UpdateStrategy = "incremental"
)

// ParseUpdateStrategy resolves an update strategy name
func ParseUpdateStrategy(s string) (UpdateStrategy, error) {
	switch UpdateStrategy(s) {
	case UpdateNaive, UpdateIncremental:
		return UpdateStrategy(s), nil
	}
	return "", fmt.Errorf("unknown update strategy %q (want naive or incremental)", s)
}

// Strategy selects a Reasoner implementation
type Strategy string

const (
	StrategySimple Strategy = "simple"
	StrategyChibi  Strategy = "chibi"
)

// ParseStrategy resolves a reasoner strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySimple, StrategyChibi:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown reasoner strategy %q (want simple or chibi)", s)
}

// New builds the reasoner described by opts
func New(opts Options) (Reasoner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ctx := executor.Context(&executor.BaseContext{})
	if opts.Verbose {
		ctx = executor.NewContext(opts.handler())
	}

	switch opts.Strategy {
	case StrategyChibi:
		r, err := NewChibiDatalog(opts.Update, opts.MaxRounds)
		if err != nil {
			return nil, err
		}
		r.SetContext(ctx)
		return r, nil
	default:
		kind, _ := index.ParseKind(opts.Backend)
		r, err := NewSimpleDatalog(index.NewFactory(kind, opts.indexOptions()), opts.Update, opts.evaluatorOptions())
		if err != nil {
			return nil, err
		}
		r.SetContext(ctx)
		return r, nil
	}
}

// normalize checks the arity-independent parts of an incoming row
// checkArity rejects a row the program could never join or derive
// alongside, before it reaches the base facts
func checkArity(program *datalog.Program, relation string, row datalog.Row) error {
	if n, ok := program.Arity(relation); ok && n != len(row) {
		return fmt.Errorf("%w: relation %s has arity %d in the program, row %s has %d",
			datalog.ErrArityMismatch, relation, n, row, len(row))
	}
	return nil
}

func normalize(relation string, row datalog.Row) (datalog.Row, error) {
	if relation == "" {
		return nil, errors.New("relation name is empty")
	}
	nr, err := datalog.NormalizeRow(row)
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", relation, row, err)
	}
	return nr, nil
}
