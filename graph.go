package sheet

// graphNode tracks the direct dependency edges of one cell
type graphNode struct {
	precedents map[string]struct{} // cells this cell depends on
	dependents map[string]struct{} // cells that depend on this cell
}

// DependencyGraph manages cell-to-cell dependencies and the calculation
// order. edge A -> B means A's value must be computed after B's. the graph
// caches a deterministic topological order of every registered cell,
// invalidated whenever any edge set changes; independent cells are ordered
// by original definition order so repeated calls reproduce identical output.
type DependencyGraph struct {
	nodes map[string]*graphNode
	seq   []string // registration order, the topological tie-break key

	order []string // cached topological order
	valid bool
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*graphNode),
	}
}

// Register adds a cell to the graph with no edges. registration order is
// the tie-break key for the topological order. registering an existing
// cell is a no-op.
func (dg *DependencyGraph) Register(id string) {
	if _, exists := dg.nodes[id]; exists {
		return
	}
	dg.nodes[id] = &graphNode{
		precedents: make(map[string]struct{}),
		dependents: make(map[string]struct{}),
	}
	dg.seq = append(dg.seq, id)
	dg.valid = false
}

// Contains reports whether a cell is registered
func (dg *DependencyGraph) Contains(id string) bool {
	_, exists := dg.nodes[id]
	return exists
}

// SetPrecedents replaces the full set of cells id depends on. endpoints
// are registered implicitly.
func (dg *DependencyGraph) SetPrecedents(id string, precedents []string) {
	dg.Register(id)
	node := dg.nodes[id]

	// drop edges no longer present
	for old := range node.precedents {
		delete(dg.nodes[old].dependents, id)
	}
	node.precedents = make(map[string]struct{}, len(precedents))

	for _, p := range precedents {
		dg.Register(p)
		node.precedents[p] = struct{}{}
		dg.nodes[p].dependents[id] = struct{}{}
	}
	dg.valid = false
}

// Precedents returns the direct precedent set of a cell (unordered).
// unknown cells yield nil.
func (dg *DependencyGraph) Precedents(id string) []string {
	node, exists := dg.nodes[id]
	if !exists {
		return nil
	}
	result := make([]string, 0, len(node.precedents))
	for p := range node.precedents {
		result = append(result, p)
	}
	return result
}

// Remove deletes a cell and all its edges from the graph
func (dg *DependencyGraph) Remove(id string) {
	node, exists := dg.nodes[id]
	if !exists {
		return
	}
	for p := range node.precedents {
		delete(dg.nodes[p].dependents, id)
	}
	for d := range node.dependents {
		delete(dg.nodes[d].precedents, id)
	}
	delete(dg.nodes, id)
	for i, sid := range dg.seq {
		if sid == id {
			dg.seq = append(dg.seq[:i], dg.seq[i+1:]...)
			break
		}
	}
	dg.valid = false
}

// Order returns a topological order over every registered cell: for every
// edge A -> B, B precedes A. ties between independent cells are broken by
// registration order, so the result is deterministic and stable. when the
// graph contains a cycle the cached previous order is left untouched and a
// CircularDependencyError naming a cell on the cycle is returned.
func (dg *DependencyGraph) Order() ([]string, error) {
	if dg.valid {
		return dg.order, nil
	}

	indegree := make(map[string]int, len(dg.nodes))
	for id, node := range dg.nodes {
		indegree[id] = len(node.precedents)
	}

	done := make(map[string]struct{}, len(dg.nodes))
	order := make([]string, 0, len(dg.nodes))

	for len(order) < len(dg.seq) {
		// pick the earliest-registered ready cell
		picked := ""
		for _, id := range dg.seq {
			if _, ok := done[id]; ok {
				continue
			}
			if indegree[id] == 0 {
				picked = id
				break
			}
		}
		if picked == "" {
			id, cycle := dg.findCycle(done)
			return nil, NewCircularDependencyError(id, cycle)
		}
		done[picked] = struct{}{}
		order = append(order, picked)
		for d := range dg.nodes[picked].dependents {
			indegree[d]--
		}
	}

	dg.order = order
	dg.valid = true
	return order, nil
}

// findCycle locates one cycle among the cells not yet ordered. every
// remaining cell has a remaining precedent, so walking precedents must
// revisit a cell eventually.
func (dg *DependencyGraph) findCycle(done map[string]struct{}) (string, []string) {
	start := ""
	for _, id := range dg.seq {
		if _, ok := done[id]; !ok {
			start = id
			break
		}
	}

	seen := make(map[string]int)
	var path []string
	current := start
	for {
		if at, visited := seen[current]; visited {
			return current, path[at:]
		}
		seen[current] = len(path)
		path = append(path, current)

		// step to the earliest-registered remaining precedent
		next := ""
		for _, id := range dg.seq {
			if _, ok := done[id]; ok {
				continue
			}
			if _, isPrecedent := dg.nodes[current].precedents[id]; isPrecedent {
				next = id
				break
			}
		}
		if next == "" {
			// should not happen: a remaining cell with no remaining
			// precedents would have been ordered
			return current, path
		}
		current = next
	}
}

// Successors returns the direct dependents of a cell as a subsequence of
// Order(). unknown cells yield an empty sequence without error.
func (dg *DependencyGraph) Successors(id string) ([]string, error) {
	node, exists := dg.nodes[id]
	if !exists {
		return nil, nil
	}
	return dg.restrictToOrder(node.dependents)
}

// Predecessors returns the direct precedents of a cell as a subsequence of
// Order(). unknown cells yield an empty sequence without error.
func (dg *DependencyGraph) Predecessors(id string) ([]string, error) {
	node, exists := dg.nodes[id]
	if !exists {
		return nil, nil
	}
	return dg.restrictToOrder(node.precedents)
}

// restrictToOrder returns the subsequence of Order() whose members are in
// the given set
func (dg *DependencyGraph) restrictToOrder(set map[string]struct{}) ([]string, error) {
	order, err := dg.Order()
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(set))
	for _, id := range order {
		if _, ok := set[id]; ok {
			result = append(result, id)
		}
	}
	return result, nil
}

// Affected returns the transitive dependents of a cell: every cell whose
// value could change when the given cell changes. the given cell itself is
// not included.
func (dg *DependencyGraph) Affected(id string) map[string]struct{} {
	affected := make(map[string]struct{})
	dg.collectDependents(id, affected)
	return affected
}

// collectDependents recursively gathers transitive dependents
func (dg *DependencyGraph) collectDependents(id string, affected map[string]struct{}) {
	node, exists := dg.nodes[id]
	if !exists {
		return
	}
	for d := range node.dependents {
		if _, seen := affected[d]; seen {
			continue
		}
		affected[d] = struct{}{}
		dg.collectDependents(d, affected)
	}
}

// Clear removes all cells and edges
func (dg *DependencyGraph) Clear() {
	dg.nodes = make(map[string]*graphNode)
	dg.seq = nil
	dg.order = nil
	dg.valid = false
}

// Len returns the number of registered cells
func (dg *DependencyGraph) Len() int {
	return len(dg.nodes)
}
