package core

import (
	"fmt"
	"sort"

	"github.com/srstomp/ohno/pkg/models"
)

// TaskReader is the read-only subset of the task store that core components
// need. Defining it here keeps core independent of the storage package.
type TaskReader interface {
	Get(taskID string) (*models.Task, error)
	List(filter models.TaskFilter) ([]models.Task, error)
	Exists(taskID string) bool
	ActiveTaskID() string
}

// EdgeStore is the subset of the edge store the dependency graph needs.
type EdgeStore interface {
	Add(edge models.Edge) error
	All() ([]models.Edge, error)
}

// DependencyGraph derives ready and blocked tasks from the durable edge set.
// The edge store is the source of truth; every query rebuilds adjacency from
// it, so concurrent task mutations are always reflected.
type DependencyGraph struct {
	tasks TaskReader
	edges EdgeStore
}

// NewDependencyGraph creates a DependencyGraph over the given stores.
func NewDependencyGraph(tasks TaskReader, edges EdgeStore) *DependencyGraph {
	return &DependencyGraph{tasks: tasks, edges: edges}
}

// AddEdge records that from must be done before to may start. The edge is
// rejected with CycleDetected if it would make the graph cyclic; a rejected
// edge never mutates the stored graph.
func (g *DependencyGraph) AddEdge(from, to string) error {
	if !g.tasks.Exists(from) {
		return &NotFoundError{Kind: "task", ID: from}
	}
	if !g.tasks.Exists(to) {
		return &NotFoundError{Kind: "task", ID: to}
	}
	if from == to {
		return &CycleDetectedError{From: from, To: to, Path: []string{from, to}}
	}

	adjacency, err := g.adjacency()
	if err != nil {
		return fmt.Errorf("adding edge %s -> %s: %w", from, to, err)
	}

	// The new edge closes a cycle iff from is already reachable from to.
	if path := findPath(adjacency, to, from); path != nil {
		return &CycleDetectedError{From: from, To: to, Path: append([]string{from}, path...)}
	}

	if err := g.edges.Add(models.Edge{From: from, To: to}); err != nil {
		return fmt.Errorf("adding edge %s -> %s: %w", from, to, err)
	}
	return nil
}

// ReadyTasks returns all pending tasks whose every dependency is done,
// ordered by priority descending then createdAt ascending, with the task ID
// as a stable final tie-break.
func (g *DependencyGraph) ReadyTasks() ([]models.Task, error) {
	pending, err := g.tasks.List(models.TaskFilter{Status: []models.TaskStatus{models.StatusPending}})
	if err != nil {
		return nil, fmt.Errorf("listing pending tasks: %w", err)
	}

	deps, err := g.dependenciesByTask()
	if err != nil {
		return nil, err
	}

	var ready []models.Task
	for _, task := range pending {
		blocked, err := g.anyDependencyNotDone(deps[task.ID])
		if err != nil {
			return nil, err
		}
		if !blocked {
			ready = append(ready, task)
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		ri, rj := models.PriorityRank(ready[i].Priority), models.PriorityRank(ready[j].Priority)
		if ri != rj {
			return ri < rj
		}
		if !ready[i].Created.Equal(ready[j].Created) {
			return ready[i].Created.Before(ready[j].Created)
		}
		return ready[i].ID < ready[j].ID
	})
	return ready, nil
}

// IsBlocked reports whether any dependency of the task is not done.
func (g *DependencyGraph) IsBlocked(taskID string) (bool, error) {
	if !g.tasks.Exists(taskID) {
		return false, &NotFoundError{Kind: "task", ID: taskID}
	}
	deps, err := g.dependenciesByTask()
	if err != nil {
		return false, err
	}
	return g.anyDependencyNotDone(deps[taskID])
}

// Dependencies returns the direct dependency IDs of a task, sorted.
func (g *DependencyGraph) Dependencies(taskID string) ([]string, error) {
	deps, err := g.dependenciesByTask()
	if err != nil {
		return nil, err
	}
	ids := append([]string(nil), deps[taskID]...)
	sort.Strings(ids)
	return ids, nil
}

func (g *DependencyGraph) anyDependencyNotDone(depIDs []string) (bool, error) {
	for _, depID := range depIDs {
		dep, err := g.tasks.Get(depID)
		if err != nil {
			return false, fmt.Errorf("resolving dependency %s: %w", depID, err)
		}
		if dep.Status != models.StatusDone {
			return true, nil
		}
	}
	return false, nil
}

// adjacency maps each node to its outgoing neighbours (from -> to).
func (g *DependencyGraph) adjacency() (map[string][]string, error) {
	edges, err := g.edges.All()
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	adjacency := make(map[string][]string, len(edges))
	for _, e := range edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}
	return adjacency, nil
}

// dependenciesByTask maps each task to the tasks it depends on (to -> from).
func (g *DependencyGraph) dependenciesByTask() (map[string][]string, error) {
	edges, err := g.edges.All()
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	deps := make(map[string][]string, len(edges))
	for _, e := range edges {
		deps[e.To] = append(deps[e.To], e.From)
	}
	return deps, nil
}

// findPath returns a path from start to goal in the adjacency map, or nil.
// Neighbours are visited in sorted order for deterministic error messages.
func findPath(adjacency map[string][]string, start, goal string) []string {
	visited := make(map[string]bool)

	var dfs func(node string, path []string) []string
	dfs = func(node string, path []string) []string {
		path = append(path, node)
		if node == goal {
			return append([]string(nil), path...)
		}
		visited[node] = true

		neighbours := append([]string(nil), adjacency[node]...)
		sort.Strings(neighbours)
		for _, next := range neighbours {
			if visited[next] {
				continue
			}
			if found := dfs(next, path); found != nil {
				return found
			}
		}
		return nil
	}

	return dfs(start, nil)
}
