package scene

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// FindCycles returns the groups of object ids whose parent links form a
// cycle: strongly connected components of more than one id, plus ids that
// name themselves as parent. Each group is sorted, and groups are ordered by
// their smallest id.
func FindCycles(records []Record) [][]int64 {
	g := simple.NewDirectedGraph()
	known := make(map[int64]bool, len(records))
	for _, r := range records {
		known[r.ID] = true
	}

	selfParented := make(map[int64]bool)
	for _, r := range records {
		if r.IsRoot() || !known[r.ParentID] {
			continue
		}
		if r.ParentID == r.ID {
			selfParented[r.ID] = true
			continue
		}
		if g.Node(r.ID) == nil {
			g.AddNode(simple.Node(r.ID))
		}
		if g.Node(r.ParentID) == nil {
			g.AddNode(simple.Node(r.ParentID))
		}
		g.SetEdge(g.NewEdge(simple.Node(r.ID), simple.Node(r.ParentID)))
	}

	var cycles [][]int64
	inCycle := make(map[int64]bool)
	for _, component := range topo.TarjanSCC(g) {
		if len(component) < 2 {
			continue
		}
		ids := make([]int64, len(component))
		for i, n := range component {
			ids[i] = n.ID()
			inCycle[n.ID()] = true
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		cycles = append(cycles, ids)
	}
	for id := range selfParented {
		if !inCycle[id] {
			cycles = append(cycles, []int64{id})
		}
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
