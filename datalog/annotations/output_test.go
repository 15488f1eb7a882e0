package annotations

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	var seen []string
	c := NewCollector(func(e Event) { seen = append(seen, e.Name) })

	c.Add(Event{Name: RoundBegin})
	c.AddTiming(RoundComplete, time.Now().Add(-time.Millisecond), map[string]interface{}{"round": 1})
	c.Add(Event{Name: RoundBegin})

	assert.Equal(t, []string{RoundBegin, RoundComplete, RoundBegin}, seen)
	assert.Equal(t, 2, c.Count(RoundBegin))

	events := c.Events()
	assert.Len(t, events, 3)
	assert.GreaterOrEqual(t, events[1].Latency, time.Millisecond)

	c.Reset()
	assert.Empty(t, c.Events())
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add(Event{Name: RuleFired})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, c.Count(RuleFired))
}

func TestOutputFormatter(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name: "materialize begin",
			event: Event{Name: MaterializeBegin, Data: map[string]interface{}{
				"mode": "full", "program.rules": 2, "program.facts": 0, "store.size": 3,
			}},
			want: "[0µs] === Materialize (full) 2 rules and 0 facts over 3 rows",
		},
		{
			name: "materialize complete",
			event: Event{Name: MaterializeComplete, Data: map[string]interface{}{
				"success": true, "rounds": 2, "derived": 3, "candidates": 4, "store.size": 6,
			}},
			want: "[0µs] === Fixpoint after 2 rounds: 3 derived from 4 candidates, store has 6 rows",
		},
		{
			name: "materialize failed",
			event: Event{Name: MaterializeComplete, Data: map[string]interface{}{
				"success": false, "error": "index full",
			}},
			want: "[0µs] ✗ Materialize failed: index full",
		},
		{
			name: "round",
			event: Event{Name: RoundBegin, Latency: 1500 * time.Microsecond, Data: map[string]interface{}{
				"round": 1, "delta.size": 3,
			}},
			want: "[1.5ms] --- Round 1 with Δ 3 rows",
		},
		{
			name: "rule fired",
			event: Event{Name: RuleFired, Data: map[string]interface{}{
				"rule": "[(a ?x) (b ?x)]", "delta.position": 0, "candidates": 5,
			}},
			want: "[0µs] Rule([(a ?x) (b ?x)], Δ0) → 5 candidates",
		},
		{
			name: "insert",
			event: Event{Name: InsertApplied, Data: map[string]interface{}{
				"relation": "T", "row": "[a b c]", "added": true, "update": "incremental", "derived": 2,
			}},
			want: "[0µs] + Insert (T [a b c]) via incremental, 2 derived",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewOutputFormatterWithColor(&bytes.Buffer{}, false)
			assert.Equal(t, tt.want, f.Format(tt.event))
		})
	}
}

func TestOutputFormatterHandle(t *testing.T) {
	var buf bytes.Buffer
	f := NewOutputFormatter(&buf)
	f.Handle(Event{Name: RoundComplete, Data: map[string]interface{}{"round": 1, "derived": 2, "candidates": 2}})
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "Round 1 → 2 derived of 2 candidates")
}
