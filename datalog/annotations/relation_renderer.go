package annotations

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// RelationInfo is what the renderer needs to know about a relation
type RelationInfo struct {
	Name  string
	Arity int
	Rows  int
}

// RelationRenderer pretty-prints relation summaries
type RelationRenderer struct {
	useColor bool
}

// NewRelationRenderer creates a new relation renderer
func NewRelationRenderer(useColor bool) *RelationRenderer {
	return &RelationRenderer{useColor: useColor}
}

// RenderRelation renders a relation as Relation(name/arity, N rows)
func (r *RelationRenderer) RenderRelation(rel RelationInfo) string {
	name := fmt.Sprintf("%s/%d", rel.Name, rel.Arity)
	if rel.Arity < 0 {
		name = rel.Name
	}

	if r.useColor {
		return fmt.Sprintf("%s%s%s%s%s",
			color.BlueString("Relation("),
			color.CyanString(name),
			color.BlueString(", "),
			r.colorizeCount("rows", rel.Rows),
			color.BlueString(")"))
	}
	return fmt.Sprintf("Relation(%s, %d rows)", name, rel.Rows)
}

// RenderRelations renders several relations in a bracketed list
func (r *RelationRenderer) RenderRelations(rels []RelationInfo) string {
	parts := make([]string, len(rels))
	for i, rel := range rels {
		parts[i] = r.RenderRelation(rel)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// RenderRule renders a rule with the body position that read the delta
// marked with a leading Δ
func (r *RelationRenderer) RenderRule(rule string, deltaPosition int) string {
	label := fmt.Sprintf("Rule(%s)", rule)
	if deltaPosition >= 0 {
		label = fmt.Sprintf("Rule(%s, Δ%d)", rule, deltaPosition)
	}
	if !r.useColor {
		return label
	}
	return color.BlueString("Rule(") + color.CyanString(strings.TrimSuffix(strings.TrimPrefix(label, "Rule("), ")")) + color.BlueString(")")
}

func (r *RelationRenderer) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !r.useColor {
		return text
	}
	return color.MagentaString(text)
}
