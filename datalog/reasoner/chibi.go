package reasoner

import (
	"fmt"

	"github.com/wbrown/janus-reasoner/datalog"
	"github.com/wbrown/janus-reasoner/datalog/executor"
	"github.com/wbrown/janus-reasoner/datalog/index"
)

// ChibiDatalog is a reasoner with a fixed representation: constants are
// interned to uint32 ids and each relation is a flat id array with
// per-column hash indexes. It runs its own semi-naive loop where deltas
// are row ranges of the append-only relations.
type ChibiDatalog struct {
	update    UpdateStrategy
	maxRounds int
	ctx       executor.Context

	syms    *symbols
	base    *chibiStore
	store   *chibiStore
	program *datalog.Program
	rules   []*chibiRule
	stats   executor.Stats
}

// NewChibiDatalog creates an empty reasoner. maxRounds bounds productive
// rounds per evaluation, 0 meaning unbounded.
func NewChibiDatalog(update UpdateStrategy, maxRounds int) (*ChibiDatalog, error) {
	if _, err := ParseUpdateStrategy(string(update)); err != nil {
		return nil, err
	}
	syms := newSymbols()
	return &ChibiDatalog{
		update:    update,
		maxRounds: maxRounds,
		ctx:       &executor.BaseContext{},
		syms:      syms,
		base:      newChibiStore(syms),
	}, nil
}

// SetContext routes evaluation events to ctx
func (c *ChibiDatalog) SetContext(ctx executor.Context) {
	if ctx == nil {
		ctx = &executor.BaseContext{}
	}
	c.ctx = ctx
}

func (c *ChibiDatalog) Seed(relation string, rows ...datalog.Row) error {
	for _, row := range rows {
		row, err := normalize(relation, row)
		if err != nil {
			return err
		}
		if _, err := c.base.insertRow(relation, row); err != nil {
			return fmt.Errorf("seeding %s: %w", relation, err)
		}
	}
	return nil
}

func (c *ChibiDatalog) Materialize(program *datalog.Program) error {
	rules, err := c.compile(program)
	if err != nil {
		return err
	}
	store, stats, err := c.evaluate(program, rules)
	if err != nil {
		return err
	}
	c.store, c.program, c.rules, c.stats = store, program, rules, stats
	return nil
}

func (c *ChibiDatalog) compile(program *datalog.Program) ([]*chibiRule, error) {
	if program == nil {
		return nil, nil
	}
	rules := make([]*chibiRule, 0, len(program.Rules))
	for _, r := range program.Rules {
		cr, err := compileChibiRule(r, c.syms)
		if err != nil {
			return nil, err
		}
		rules = append(rules, cr)
	}
	return rules, nil
}

// evaluate computes the closure over a copy of the base facts
func (c *ChibiDatalog) evaluate(program *datalog.Program, rules []*chibiRule) (*chibiStore, executor.Stats, error) {
	store := c.base.clone()
	stats, err := c.ctx.Materialize("full", program, store, func() (executor.Stats, error) {
		var stats executor.Stats
		if program != nil {
			for _, f := range program.Facts {
				added, err := store.insertRow(f.Relation, f.Row)
				if err != nil {
					return stats, fmt.Errorf("seeding fact %s: %w", f, err)
				}
				if added {
					stats.Seeded++
				}
			}
		}
		delta := make(map[string]span, len(store.relations))
		for name, rel := range store.relations {
			delta[name] = span{0, rel.n}
		}
		return c.fixpoint(rules, store, delta, stats)
	})
	if err != nil {
		return nil, stats, err
	}
	return store, stats, nil
}

func (c *ChibiDatalog) Insert(relation string, row datalog.Row) (bool, error) {
	if c.store == nil {
		return false, ErrNotMaterialized
	}
	row, err := normalize(relation, row)
	if err != nil {
		return false, err
	}
	if err := checkArity(c.program, relation, row); err != nil {
		return false, err
	}

	if c.store.Contains(relation, row) {
		if _, err := c.base.insertRow(relation, row); err != nil {
			return false, err
		}
		c.ctx.InsertApplied(relation, row, string(c.update), false, 0)
		return false, nil
	}
	if _, err := c.base.insertRow(relation, row); err != nil {
		return false, err
	}

	before := c.store.total()
	switch c.update {
	case UpdateNaive:
		err = c.Materialize(c.program)
	default:
		err = c.propagate(relation, row)
	}
	if err != nil {
		return false, err
	}

	derived := c.store.total() - before - 1
	c.ctx.InsertApplied(relation, row, string(c.update), true, derived)
	return true, nil
}

// propagate appends row to the store and runs the loop with that row as
// the only delta
func (c *ChibiDatalog) propagate(relation string, row datalog.Row) error {
	stats, err := c.ctx.Materialize("delta", c.program, c.store, func() (executor.Stats, error) {
		if _, err := c.store.insertRow(relation, row); err != nil {
			return executor.Stats{}, err
		}
		n := c.store.relations[relation].n
		return c.fixpoint(c.rules, c.store, map[string]span{relation: {n - 1, n}}, executor.Stats{})
	})
	c.stats = stats
	return err
}

func (c *ChibiDatalog) EvaluateProgramBottomUp(program *datalog.Program) (index.Reader, error) {
	rules, err := c.compile(program)
	if err != nil {
		return nil, err
	}
	store, _, err := c.evaluate(program, rules)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (c *ChibiDatalog) current() *chibiStore {
	if c.store != nil {
		return c.store
	}
	return c.base
}

func (c *ChibiDatalog) View(relation string) []datalog.Row {
	return c.current().View(relation)
}

func (c *ChibiDatalog) Len(relation string) int {
	return c.current().Len(relation)
}

func (c *ChibiDatalog) Contains(relation string, row datalog.Row) bool {
	nr, err := datalog.NormalizeRow(row)
	if err != nil {
		return false
	}
	return c.current().Contains(relation, nr)
}

func (c *ChibiDatalog) Relations() []string {
	return c.current().Relations()
}

func (c *ChibiDatalog) Stats() executor.Stats {
	return c.stats
}

// Symbols returns the number of interned constants
func (c *ChibiDatalog) Symbols() int {
	return len(c.syms.values) - 1
}

func (c *ChibiDatalog) Close() error {
	c.store = nil
	return nil
}
