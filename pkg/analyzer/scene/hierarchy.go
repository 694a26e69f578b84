package scene

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// DepthMarker is repeated once per depth level in front of an object name.
const DepthMarker = "--"

// Forest is the object hierarchy of one scene rebuilt from its records.
//
// An id is a root when its record declares no parent or names a parent that
// has no record in the scene. Ids that are neither roots nor reachable from a
// root (members of a parent cycle) are rendered after the roots, so every id
// appears exactly once.
type Forest struct {
	order    []int64
	names    map[int64]string
	children map[int64][]int64
	roots    []int64
}

// BuildForest indexes records. The first record of a duplicated id supplies
// its name; every record contributes a child link.
func BuildForest(records []Record) *Forest {
	f := &Forest{
		names:    make(map[int64]string, len(records)),
		children: make(map[int64][]int64),
	}

	for _, r := range records {
		if _, seen := f.names[r.ID]; !seen {
			f.names[r.ID] = r.Name
			f.order = append(f.order, r.ID)
		}
	}

	rooted := roaring64.New()
	for _, r := range records {
		_, parentKnown := f.names[r.ParentID]
		if r.IsRoot() || !parentKnown {
			if rooted.CheckedAdd(uint64(r.ID)) {
				f.roots = append(f.roots, r.ID)
			}
			continue
		}
		f.children[r.ParentID] = append(f.children[r.ParentID], r.ID)
	}

	// Roots follow the insertion order of the id index.
	roots := make([]int64, 0, len(f.roots))
	for _, id := range f.order {
		if rooted.Contains(uint64(id)) {
			roots = append(roots, id)
		}
	}
	f.roots = roots

	return f
}

// Len returns the number of distinct objects in the forest.
func (f *Forest) Len() int {
	return len(f.order)
}

// Roots returns the forest roots in render order.
func (f *Forest) Roots() []int64 {
	return f.roots
}

// Name returns the display name of id.
func (f *Forest) Name(id int64) (string, bool) {
	name, ok := f.names[id]
	return name, ok
}

// Walk visits every object once in depth-first pre-order, roots first and
// then any object left unvisited, calling fn with its depth.
func (f *Forest) Walk(fn func(id int64, depth int)) {
	type frame struct {
		id    int64
		depth int
	}

	visited := roaring64.New()
	var stack []frame

	visit := func(start int64) {
		stack = append(stack[:0], frame{id: start})
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !visited.CheckedAdd(uint64(top.id)) {
				continue
			}
			fn(top.id, top.depth)

			kids := f.children[top.id]
			for i := len(kids) - 1; i >= 0; i-- {
				if !visited.Contains(uint64(kids[i])) {
					stack = append(stack, frame{id: kids[i], depth: top.depth + 1})
				}
			}
		}
	}

	for _, id := range f.roots {
		visit(id)
	}
	for _, id := range f.order {
		if !visited.Contains(uint64(id)) {
			visit(id)
		}
	}
}

// Render returns one line per object: its name prefixed by DepthMarker per
// depth level.
func (f *Forest) Render() []string {
	lines := make([]string, 0, len(f.order))
	f.Walk(func(id int64, depth int) {
		lines = append(lines, strings.Repeat(DepthMarker, depth)+f.names[id])
	})
	return lines
}

// Tree returns the forest as nested nodes, following the same order and
// visiting rules as Render.
func (f *Forest) Tree() []*Node {
	var (
		top  []*Node
		path []*Node
	)
	f.Walk(func(id int64, depth int) {
		node := &Node{ID: id, Name: f.names[id]}
		if depth == 0 {
			top = append(top, node)
		} else {
			parent := path[depth-1]
			parent.Children = append(parent.Children, node)
		}
		path = append(path[:depth], node)
	})
	return top
}
