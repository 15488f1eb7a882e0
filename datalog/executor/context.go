package executor

import (
	"time"

	"github.com/wbrown/janus-reasoner/datalog"
	"github.com/wbrown/janus-reasoner/datalog/annotations"
	"github.com/wbrown/janus-reasoner/datalog/index"
)

// Context provides annotation points for evaluation tracking.
type Context interface {
	// Materialization lifecycle
	Materialize(mode string, program *datalog.Program, store index.Reader, fn func() (Stats, error)) (Stats, error)

	// Semi-naive rounds
	Round(round, deltaSize int, fn func() (RoundStats, error)) (RoundStats, error)

	// RuleFired reports one rule instantiation with its delta position.
	// May be called from parallel workers.
	RuleFired(rule string, deltaPosition, round, candidates int)

	// InsertApplied reports a dynamic insert handled by a reasoner
	InsertApplied(relation string, row datalog.Row, update string, added bool, derived int)

	// Get underlying collector
	Collector() *annotations.Collector
}

// RoundStats summarizes a single semi-naive round
type RoundStats struct {
	Candidates int
	Derived    int
	Firings    int
}

// BaseContext provides a no-op implementation with zero overhead.
type BaseContext struct{}

// NewContext creates an annotated context when handler is non-nil and a
// no-op context otherwise.
func NewContext(handler annotations.Handler) Context {
	if handler == nil {
		return &BaseContext{}
	}
	return NewAnnotatedContext(annotations.NewCollector(handler))
}

func (c *BaseContext) Materialize(mode string, program *datalog.Program, store index.Reader, fn func() (Stats, error)) (Stats, error) {
	return fn()
}

func (c *BaseContext) Round(round, deltaSize int, fn func() (RoundStats, error)) (RoundStats, error) {
	return fn()
}

func (c *BaseContext) RuleFired(rule string, deltaPosition, round, candidates int) {}

func (c *BaseContext) InsertApplied(relation string, row datalog.Row, update string, added bool, derived int) {
}

func (c *BaseContext) Collector() *annotations.Collector {
	return nil
}

// AnnotatedContext records every annotation point in a Collector
type AnnotatedContext struct {
	BaseContext
	collector *annotations.Collector
}

// NewAnnotatedContext wraps collector
func NewAnnotatedContext(collector *annotations.Collector) *AnnotatedContext {
	return &AnnotatedContext{collector: collector}
}

func (c *AnnotatedContext) Materialize(mode string, program *datalog.Program, store index.Reader, fn func() (Stats, error)) (Stats, error) {
	start := time.Now()
	rules, facts := 0, 0
	if program != nil {
		rules, facts = len(program.Rules), len(program.Facts)
	}

	c.collector.Add(annotations.Event{
		Name:  annotations.MaterializeBegin,
		Start: start,
		Data: map[string]interface{}{
			"mode":          mode,
			"program.rules": rules,
			"program.facts": facts,
			"store.size":    index.Total(store),
		},
	})

	stats, err := fn()

	data := map[string]interface{}{
		"rounds":       stats.Rounds,
		"derived":      stats.Derived,
		"candidates":   stats.Candidates,
		"rule.firings": stats.RuleFirings,
		"store.size":   index.Total(store),
		"success":      err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	c.collector.AddTiming(annotations.MaterializeComplete, start, data)
	return stats, err
}

func (c *AnnotatedContext) Round(round, deltaSize int, fn func() (RoundStats, error)) (RoundStats, error) {
	start := time.Now()
	c.collector.Add(annotations.Event{
		Name:  annotations.RoundBegin,
		Start: start,
		Data: map[string]interface{}{
			"round":      round,
			"delta.size": deltaSize,
		},
	})

	rs, err := fn()
	if err != nil {
		c.collector.AddTiming(annotations.ErrorEvaluation, start, map[string]interface{}{
			"round": round,
			"error": err.Error(),
		})
		return rs, err
	}

	c.collector.AddTiming(annotations.RoundComplete, start, map[string]interface{}{
		"round":      round,
		"candidates": rs.Candidates,
		"derived":    rs.Derived,
		"firings":    rs.Firings,
	})
	return rs, nil
}

func (c *AnnotatedContext) RuleFired(rule string, deltaPosition, round, candidates int) {
	c.collector.Add(annotations.Event{
		Name:  annotations.RuleFired,
		Start: time.Now(),
		Data: map[string]interface{}{
			"rule":           rule,
			"delta.position": deltaPosition,
			"round":          round,
			"candidates":     candidates,
		},
	})
}

func (c *AnnotatedContext) InsertApplied(relation string, row datalog.Row, update string, added bool, derived int) {
	c.collector.Add(annotations.Event{
		Name:  annotations.InsertApplied,
		Start: time.Now(),
		Data: map[string]interface{}{
			"relation": relation,
			"row":      row.String(),
			"update":   update,
			"added":    added,
			"derived":  derived,
		},
	})
}

func (c *AnnotatedContext) Collector() *annotations.Collector {
	return c.collector
}
