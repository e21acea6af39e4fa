package pipeline

import "sort"

// Unassigned is the synthetic column for candidates without a stage.
var Unassigned = Stage{ID: UnassignedStageID, Name: "Unassigned", Order: -1, Color: "gray"}

// Column is one display column: a stage and the candidates in it.
type Column struct {
	Stage        Stage         `json:"stage"`
	Applications []Application `json:"applications"`
}

// Graph is the ordered set of real stages for one render.
// It is not modified after construction.
type Graph struct {
	stages []Stage
	byID   map[int]int // stage ID -> index in stages
}

// NewGraph copies stages and sorts them by Order, breaking ties by ID.
// Stages with the reserved ID 0 are dropped.
func NewGraph(stages []Stage) *Graph {
	g := &Graph{
		stages: make([]Stage, 0, len(stages)),
		byID:   make(map[int]int, len(stages)),
	}
	for _, s := range stages {
		if s.ID == UnassignedStageID {
			continue
		}
		g.stages = append(g.stages, s)
	}
	sort.SliceStable(g.stages, func(i, j int) bool {
		if g.stages[i].Order != g.stages[j].Order {
			return g.stages[i].Order < g.stages[j].Order
		}
		return g.stages[i].ID < g.stages[j].ID
	})
	for i, s := range g.stages {
		g.byID[s.ID] = i
	}
	return g
}

// StagesInOrder returns the real stages sorted by Order ascending.
func (g *Graph) StagesInOrder() []Stage {
	out := make([]Stage, len(g.stages))
	copy(out, g.stages)
	return out
}

// Len returns the number of real stages.
func (g *Graph) Len() int { return len(g.stages) }

// Stage looks up a stage by ID. ID 0 yields the Unassigned pseudo-stage.
func (g *Graph) Stage(id int) (Stage, bool) {
	if id == UnassignedStageID {
		return Unassigned, true
	}
	i, ok := g.byID[id]
	if !ok {
		return Stage{}, false
	}
	return g.stages[i], true
}

// Contains reports whether id is a real stage in the graph.
func (g *Graph) Contains(id int) bool {
	_, ok := g.byID[id]
	return ok
}

// StageName returns the display name for id, or "" if unknown.
func (g *Graph) StageName(id int) string {
	s, ok := g.Stage(id)
	if !ok {
		return ""
	}
	return s.Name
}

// ColumnsForDisplay buckets apps into ordered columns in a single pass.
// The Unassigned column is prepended only when at least one candidate has no
// stage. Candidates pointing at a stage outside the graph are left out.
func (g *Graph) ColumnsForDisplay(apps []Application) []Column {
	buckets := make([][]Application, len(g.stages))
	var unassigned []Application
	for _, a := range apps {
		if a.CurrentStage == nil {
			unassigned = append(unassigned, a)
			continue
		}
		if i, ok := g.byID[*a.CurrentStage]; ok {
			buckets[i] = append(buckets[i], a)
		}
	}

	cols := make([]Column, 0, len(g.stages)+1)
	if len(unassigned) > 0 {
		cols = append(cols, Column{Stage: Unassigned, Applications: unassigned})
	}
	for i, s := range g.stages {
		items := buckets[i]
		if items == nil {
			items = []Application{}
		}
		cols = append(cols, Column{Stage: s, Applications: items})
	}
	return cols
}

// ColumnIDs returns the stage IDs of cols in display order.
func ColumnIDs(cols []Column) []int {
	ids := make([]int, len(cols))
	for i, c := range cols {
		ids[i] = c.Stage.ID
	}
	return ids
}
