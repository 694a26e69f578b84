package scene

// Record is one object declared in a scene document: its own identifier, its
// display name and the identifier of its parent (0 for a declared root).
type Record struct {
	ID       int64  `json:"id" toon:"id"`
	Name     string `json:"name" toon:"name"`
	ParentID int64  `json:"parent_id" toon:"parent_id"`
}

// IsRoot reports whether the record declares no parent.
func (r Record) IsRoot() bool {
	return r.ParentID == 0
}

// Reference is an inline asset reference (fileID, guid, type) found anywhere
// in a scene document.
type Reference struct {
	LocalID int64  `json:"local_id" toon:"local_id"`
	GUID    string `json:"guid" toon:"guid"`
	Type    int    `json:"type" toon:"type"`
}

// Node is an object placed in the reconstructed hierarchy.
type Node struct {
	ID       int64   `json:"id" toon:"id"`
	Name     string  `json:"name" toon:"name"`
	Children []*Node `json:"children,omitempty" toon:"children,omitempty"`
}

// Hierarchy is the reconstructed object forest of one scene document.
type Hierarchy struct {
	Path    string    `json:"path" toon:"path"`
	Name    string    `json:"name" toon:"name"`
	Objects int       `json:"objects" toon:"objects"`
	Roots   []*Node   `json:"roots" toon:"roots"`
	Lines   []string  `json:"-" toon:"-"`
	Cycles  [][]int64 `json:"cycles,omitempty" toon:"cycles,omitempty"`
}

// Analysis is the result of reconstructing every scene of a project.
type Analysis struct {
	Scenes  []Hierarchy `json:"scenes" toon:"scenes"`
	Summary Summary     `json:"summary" toon:"summary"`
}

// Summary provides aggregate statistics over all scenes.
type Summary struct {
	TotalScenes  int `json:"total_scenes" toon:"total_scenes"`
	TotalObjects int `json:"total_objects" toon:"total_objects"`
	TotalRoots   int `json:"total_roots" toon:"total_roots"`
	CyclicScenes int `json:"cyclic_scenes" toon:"cyclic_scenes"`
}
