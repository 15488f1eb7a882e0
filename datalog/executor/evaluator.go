// Package executor computes the least fixpoint of a rule program over an
// index store using semi-naive evaluation.
package executor

import (
	"errors"
	"fmt"

	"github.com/wbrown/janus-reasoner/datalog"
	"github.com/wbrown/janus-reasoner/datalog/index"
)

// ErrMaxRounds is returned when Options.MaxRounds is reached before the
// fixpoint
var ErrMaxRounds = errors.New("fixpoint not reached within round limit")

// Stats describes one evaluation
type Stats struct {
	// Rounds counts rounds that derived at least one new row
	Rounds int

	// Derived is the number of rows added to the store by rules
	Derived int

	// Seeded is the number of program facts added to the store
	Seeded int

	// Candidates is the number of head rows produced before filtering
	// against the store
	Candidates int

	// RuleFirings is the number of (rule, delta position) instantiations
	RuleFirings int
}

func (s *Stats) add(rs RoundStats) {
	s.Candidates += rs.Candidates
	s.Derived += rs.Derived
	s.RuleFirings += rs.Firings
}

// Evaluator runs semi-naive evaluation against any index backend. Deltas
// between rounds are held in indexes created by the delta factory.
type Evaluator struct {
	newDelta index.Factory
	opts     Options
	pool     *WorkerPool
}

// NewEvaluator creates an evaluator. A nil factory uses hash-map deltas.
func NewEvaluator(newDelta index.Factory, opts Options) *Evaluator {
	if newDelta == nil {
		newDelta = index.NewFactory(index.HashMap, index.DefaultOptions())
	}
	e := &Evaluator{newDelta: newDelta, opts: opts}
	if opts.Parallelism > 1 {
		e.pool = NewWorkerPool(opts.Parallelism)
	}
	return e
}

// EvaluateProgramBottomUp seeds the program facts into store and runs
// rounds until no new row is derived. The first round treats every row
// of the store as delta.
func (e *Evaluator) EvaluateProgramBottomUp(ctx Context, program *datalog.Program, store index.Index) (Stats, error) {
	if ctx == nil {
		ctx = &BaseContext{}
	}
	return ctx.Materialize("full", program, store, func() (Stats, error) {
		var stats Stats
		rules, err := compileProgram(program)
		if err != nil {
			return stats, err
		}
		if stats.Seeded, err = seedFacts(program, store); err != nil {
			return stats, err
		}
		return e.fixpoint(ctx, rules, store, store, stats)
	})
}

// EvaluateDelta runs the same loop seeded with delta instead of the whole
// store. Delta rows missing from store are added first; program facts
// are not reseeded.
func (e *Evaluator) EvaluateDelta(ctx Context, program *datalog.Program, store index.Index, delta index.Reader) (Stats, error) {
	if ctx == nil {
		ctx = &BaseContext{}
	}
	return ctx.Materialize("delta", program, store, func() (Stats, error) {
		var stats Stats
		rules, err := compileProgram(program)
		if err != nil {
			return stats, err
		}
		for _, relation := range delta.Relations() {
			for _, row := range delta.View(relation) {
				if _, err := store.Insert(relation, row); err != nil {
					return stats, fmt.Errorf("seeding delta: %w", err)
				}
			}
		}
		return e.fixpoint(ctx, rules, store, delta, stats)
	})
}

func compileProgram(program *datalog.Program) ([]*compiledRule, error) {
	if program == nil {
		return nil, nil
	}
	rules := make([]*compiledRule, 0, len(program.Rules))
	for _, r := range program.Rules {
		cr, err := compileRule(r)
		if err != nil {
			return nil, err
		}
		rules = append(rules, cr)
	}
	return rules, nil
}

func seedFacts(program *datalog.Program, store index.Index) (int, error) {
	if program == nil {
		return 0, nil
	}
	seeded := 0
	for _, f := range program.Facts {
		added, err := store.Insert(f.Relation, f.Row)
		if err != nil {
			return seeded, fmt.Errorf("seeding fact %s: %w", f, err)
		}
		if added {
			seeded++
		}
	}
	return seeded, nil
}

// task is one rule instantiation with body position pos read from delta
type task struct {
	rule *compiledRule
	pos  int
}

// fixpoint is the semi-naive loop. delta is only read; each round's new
// rows go to a fresh index from the delta factory.
func (e *Evaluator) fixpoint(ctx Context, rules []*compiledRule, store index.Index, delta index.Reader, stats Stats) (Stats, error) {
	if len(rules) == 0 {
		return stats, nil
	}

	var owned index.Index
	defer func() {
		if owned != nil {
			_ = index.Release(owned)
		}
	}()

	for round := 1; ; round++ {
		tasks := pendingTasks(rules, delta)
		if len(tasks) == 0 {
			return stats, nil
		}

		next, err := e.newDelta()
		if err != nil {
			return stats, fmt.Errorf("creating delta: %w", err)
		}

		rs, err := ctx.Round(round, index.Total(delta), func() (RoundStats, error) {
			return e.round(ctx, round, tasks, store, delta, next)
		})
		stats.add(rs)

		if owned != nil {
			_ = index.Release(owned)
		}
		owned, delta = next, next

		if err != nil {
			return stats, err
		}
		if rs.Derived == 0 {
			return stats, nil
		}
		stats.Rounds++
		if e.opts.MaxRounds > 0 && stats.Rounds > e.opts.MaxRounds {
			return stats, fmt.Errorf("%w: limit %d", ErrMaxRounds, e.opts.MaxRounds)
		}
	}
}

func pendingTasks(rules []*compiledRule, delta index.Reader) []task {
	var tasks []task
	for _, r := range rules {
		for pos, atom := range r.body {
			if delta.Len(atom.relation) > 0 {
				tasks = append(tasks, task{rule: r, pos: pos})
			}
		}
	}
	return tasks
}

// round instantiates every task, then merges the candidates in task
// order: rows already stored are dropped, the rest go to next and store.
func (e *Evaluator) round(ctx Context, round int, tasks []task, store index.Index, delta index.Reader, next index.Index) (RoundStats, error) {
	rs := RoundStats{Firings: len(tasks)}

	candidates, err := e.instantiate(ctx, round, tasks, store, delta)
	if err != nil {
		return rs, err
	}

	for i, rows := range candidates {
		relation := tasks[i].rule.head.relation
		for _, row := range rows {
			rs.Candidates++
			if store.Contains(relation, row) {
				continue
			}
			if _, err := next.Insert(relation, row); err != nil {
				return rs, fmt.Errorf("rule %s: %w", tasks[i].rule.text, err)
			}
		}
	}

	for _, relation := range next.Relations() {
		for _, row := range next.View(relation) {
			added, err := store.Insert(relation, row)
			if err != nil {
				return rs, fmt.Errorf("inserting derived row into %s: %w", relation, err)
			}
			if added {
				rs.Derived++
			}
		}
	}
	return rs, nil
}

func (e *Evaluator) instantiate(ctx Context, round int, tasks []task, store, delta index.Reader) ([][]datalog.Row, error) {
	run := func(t task) []datalog.Row {
		rows := t.rule.fire(t.pos, store, delta)
		ctx.RuleFired(t.rule.text, t.pos, round, len(rows))
		return rows
	}

	out := make([][]datalog.Row, len(tasks))
	if e.pool == nil || len(tasks) < 2 {
		for i, t := range tasks {
			out[i] = run(t)
		}
		return out, nil
	}

	inputs := make([]interface{}, len(tasks))
	for i, t := range tasks {
		inputs[i] = t
	}
	results, err := e.pool.ExecuteParallel(ctx, inputs, func(_ Context, in interface{}) (interface{}, error) {
		return run(in.(task)), nil
	})
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		out[i] = r.([]datalog.Row)
	}
	return out, nil
}

// fire joins the body with position pos read from delta and every other
// position from store, returning the instantiated heads. The join walks
// a frontier of partial bindings one atom at a time.
func (cr *compiledRule) fire(pos int, store, delta index.Reader) []datalog.Row {
	frontier := [][]datalog.Value{make([]datalog.Value, cr.slots)}

	for _, i := range cr.plans[pos] {
		atom := cr.body[i]
		source := store
		if i == pos {
			source = delta
		}

		var next [][]datalog.Value
		for _, binding := range frontier {
			for _, row := range source.ViewWithBinding(atom.relation, atom.pattern(binding)) {
				if extended := atom.extend(binding, row); extended != nil {
					next = append(next, extended)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		frontier = next
	}

	rows := make([]datalog.Row, len(frontier))
	for i, binding := range frontier {
		rows[i] = cr.head.instantiate(binding)
	}
	return rows
}
