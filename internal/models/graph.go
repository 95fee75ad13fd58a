package models

// Entry is a named build entry point.
type Entry struct {
	Name string
	ID   ModuleID
}

// Graph is the module graph produced by a build. Every id listed in a
// module's ResolvedDependencies is a key of Modules. Cycles are allowed.
type Graph struct {
	Root    string
	Modules map[ModuleID]*Module
	Entries []Entry
}

// NewGraph creates an empty graph rooted at root.
func NewGraph(root string) *Graph {
	return &Graph{
		Root:    root,
		Modules: make(map[ModuleID]*Module),
	}
}

// Module returns the module for id, if present.
func (g *Graph) Module(id ModuleID) (*Module, bool) {
	m, ok := g.Modules[id]
	return m, ok
}

// Len returns the number of modules in the graph.
func (g *Graph) Len() int {
	return len(g.Modules)
}

// Order returns module ids in first-discovery order: a pre-order depth-first
// walk starting at each of the given ids in turn, following edges in the
// order they were discovered. With no ids it walks from every entry.
//
// The result only depends on graph structure, never on map iteration or the
// order in which concurrent workers inserted modules.
func (g *Graph) Order(from ...ModuleID) []ModuleID {
	if len(from) == 0 {
		for _, e := range g.Entries {
			from = append(from, e.ID)
		}
	}

	visited := make(map[ModuleID]bool, len(g.Modules))
	order := make([]ModuleID, 0, len(g.Modules))

	var stack []ModuleID
	for _, start := range from {
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[id] {
				continue
			}
			m, ok := g.Modules[id]
			if !ok {
				continue
			}
			visited[id] = true
			order = append(order, id)

			// push in reverse so the first dependency is visited first
			for i := len(m.ResolvedDependencies) - 1; i >= 0; i-- {
				dep := m.ResolvedDependencies[i]
				if !visited[dep] {
					stack = append(stack, dep)
				}
			}
		}
	}

	return order
}
