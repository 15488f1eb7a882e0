package reasoner

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/wbrown/janus-reasoner/datalog"
	"github.com/wbrown/janus-reasoner/datalog/executor"
	"github.com/wbrown/janus-reasoner/datalog/index"
)

// SimpleDatalog materializes programs with the generic evaluator over
// indexes from one factory. Base facts are kept in their own index so
// the naive strategy can recompute from them.
type SimpleDatalog struct {
	factory index.Factory
	update  UpdateStrategy
	eval    *executor.Evaluator
	ctx     executor.Context

	base    index.Index
	store   index.Index
	program *datalog.Program
	stats   executor.Stats
}

// NewSimpleDatalog creates an empty reasoner storing facts in indexes
// built by factory
func NewSimpleDatalog(factory index.Factory, update UpdateStrategy, opts executor.Options) (*SimpleDatalog, error) {
	if _, err := ParseUpdateStrategy(string(update)); err != nil {
		return nil, err
	}
	base, err := factory()
	if err != nil {
		return nil, fmt.Errorf("creating base index: %w", err)
	}
	return &SimpleDatalog{
		factory: factory,
		update:  update,
		eval:    executor.NewEvaluator(factory, opts),
		ctx:     &executor.BaseContext{},
		base:    base,
	}, nil
}

// SetContext routes evaluation events to ctx
func (s *SimpleDatalog) SetContext(ctx executor.Context) {
	if ctx == nil {
		ctx = &executor.BaseContext{}
	}
	s.ctx = ctx
}

func (s *SimpleDatalog) Seed(relation string, rows ...datalog.Row) error {
	for _, row := range rows {
		row, err := normalize(relation, row)
		if err != nil {
			return err
		}
		if _, err := s.base.Insert(relation, row); err != nil {
			return fmt.Errorf("seeding %s: %w", relation, err)
		}
	}
	return nil
}

func (s *SimpleDatalog) Materialize(program *datalog.Program) error {
	store, stats, err := s.evaluate(program)
	if err != nil {
		return err
	}
	if s.store != nil {
		_ = index.Release(s.store)
	}
	s.store, s.program, s.stats = store, program, stats
	return nil
}

// evaluate computes the closure of program over the base facts into a
// new index from the factory
func (s *SimpleDatalog) evaluate(program *datalog.Program) (index.Index, executor.Stats, error) {
	store, err := s.factory()
	if err != nil {
		return nil, executor.Stats{}, fmt.Errorf("creating store: %w", err)
	}
	if _, err := index.Copy(store, s.base); err != nil {
		_ = index.Release(store)
		return nil, executor.Stats{}, fmt.Errorf("copying base facts: %w", err)
	}
	stats, err := s.eval.EvaluateProgramBottomUp(s.ctx, program, store)
	if err != nil {
		_ = index.Release(store)
		return nil, stats, err
	}
	return store, stats, nil
}

func (s *SimpleDatalog) Insert(relation string, row datalog.Row) (bool, error) {
	if s.store == nil {
		return false, ErrNotMaterialized
	}
	row, err := normalize(relation, row)
	if err != nil {
		return false, err
	}
	if err := checkArity(s.program, relation, row); err != nil {
		return false, err
	}

	if s.store.Contains(relation, row) {
		if _, err := s.base.Insert(relation, row); err != nil {
			return false, err
		}
		s.ctx.InsertApplied(relation, row, string(s.update), false, 0)
		return false, nil
	}

	if _, err := s.base.Insert(relation, row); err != nil {
		return false, err
	}

	before := index.Total(s.store)
	switch s.update {
	case UpdateNaive:
		err = s.Materialize(s.program)
	default:
		err = s.propagate(relation, row)
	}
	if err != nil {
		return false, err
	}

	derived := index.Total(s.store) - before - 1
	s.ctx.InsertApplied(relation, row, string(s.update), true, derived)
	return true, nil
}

// propagate runs one semi-naive evaluation seeded with the single row
func (s *SimpleDatalog) propagate(relation string, row datalog.Row) error {
	delta, err := s.factory()
	if err != nil {
		return fmt.Errorf("creating delta: %w", err)
	}
	defer index.Release(delta)

	if _, err := delta.Insert(relation, row); err != nil {
		return err
	}
	stats, err := s.eval.EvaluateDelta(s.ctx, s.program, s.store, delta)
	s.stats = stats
	return err
}

func (s *SimpleDatalog) EvaluateProgramBottomUp(program *datalog.Program) (index.Reader, error) {
	store, _, err := s.evaluate(program)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// current is the store reads are served from
func (s *SimpleDatalog) current() index.Reader {
	if s.store != nil {
		return s.store
	}
	return s.base
}

func (s *SimpleDatalog) View(relation string) []datalog.Row {
	return s.current().View(relation)
}

func (s *SimpleDatalog) Len(relation string) int {
	return s.current().Len(relation)
}

func (s *SimpleDatalog) Contains(relation string, row datalog.Row) bool {
	nr, err := datalog.NormalizeRow(row)
	if err != nil {
		return false
	}
	return s.current().Contains(relation, nr)
}

func (s *SimpleDatalog) Relations() []string {
	return s.current().Relations()
}

func (s *SimpleDatalog) Stats() executor.Stats {
	return s.stats
}

// Store returns the materialized store, or nil before Materialize
func (s *SimpleDatalog) Store() index.Reader {
	if s.store == nil {
		return nil
	}
	return s.store
}

func (s *SimpleDatalog) Close() error {
	var result *multierror.Error
	if s.store != nil {
		if err := index.Release(s.store); err != nil {
			result = multierror.Append(result, err)
		}
		s.store = nil
	}
	if err := index.Release(s.base); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
