package core

import (
	"errors"
	"testing"
	"time"

	"github.com/srstomp/ohno/pkg/models"
)

func newTestGraph(t *testing.T) (*DependencyGraph, *memTaskStore, *memEdgeStore) {
	t.Helper()
	tasks := newMemTaskStore()
	edges := newMemEdgeStore()
	return NewDependencyGraph(tasks, edges), tasks, edges
}

func seedTask(t *testing.T, store *memTaskStore, id string, mutate ...func(*models.Task)) {
	t.Helper()
	task := models.Task{
		ID:       id,
		Title:    "Task " + id,
		Type:     models.TaskTypeFeature,
		Status:   models.StatusPending,
		Priority: models.P2,
	}
	for _, m := range mutate {
		m(&task)
	}
	if _, _, err := store.Create(task); err != nil {
		t.Fatalf("seeding %s: %v", id, err)
	}
}

func TestAddEdge(t *testing.T) {
	graph, tasks, edges := newTestGraph(t)
	seedTask(t, tasks, "TASK-00001")
	seedTask(t, tasks, "TASK-00002")

	if err := graph.AddEdge("TASK-00001", "TASK-00002"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all, _ := edges.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(all))
	}
}

func TestAddEdge_UnknownTask(t *testing.T) {
	graph, tasks, _ := newTestGraph(t)
	seedTask(t, tasks, "TASK-00001")

	err := graph.AddEdge("TASK-00001", "TASK-99999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddEdge_SelfEdge(t *testing.T) {
	graph, tasks, _ := newTestGraph(t)
	seedTask(t, tasks, "TASK-00001")

	err := graph.AddEdge("TASK-00001", "TASK-00001")
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestAddEdge_RejectsCycleWithPath(t *testing.T) {
	graph, tasks, edges := newTestGraph(t)
	for _, id := range []string{"TASK-00001", "TASK-00002", "TASK-00003"} {
		seedTask(t, tasks, id)
	}
	mustAddEdge(t, graph, "TASK-00001", "TASK-00002")
	mustAddEdge(t, graph, "TASK-00002", "TASK-00003")

	// 3 -> 1 would close 1 -> 2 -> 3 -> 1.
	err := graph.AddEdge("TASK-00003", "TASK-00001")
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
	var cd *CycleDetectedError
	if !errors.As(err, &cd) {
		t.Fatalf("expected CycleDetectedError, got %T", err)
	}
	want := []string{"TASK-00003", "TASK-00001", "TASK-00002", "TASK-00003"}
	if len(cd.Path) != len(want) {
		t.Fatalf("expected path %v, got %v", want, cd.Path)
	}
	for i := range want {
		if cd.Path[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, cd.Path)
		}
	}

	// A rejected edge must not be stored.
	all, _ := edges.All()
	if len(all) != 2 {
		t.Fatalf("expected graph unchanged with 2 edges, got %d", len(all))
	}
}

func TestReadyTasks_Ordering(t *testing.T) {
	graph, tasks, _ := newTestGraph(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Control creation times through the store clock.
	clock := base
	tasks.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	seedTask(t, tasks, "TASK-00001", func(task *models.Task) { task.Priority = models.P2 })
	seedTask(t, tasks, "TASK-00002", func(task *models.Task) { task.Priority = models.P0 })
	seedTask(t, tasks, "TASK-00003", func(task *models.Task) { task.Priority = models.P0 })
	seedTask(t, tasks, "TASK-00004", func(task *models.Task) { task.Priority = models.P1 })

	ready, err := graph.ReadyTasks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"TASK-00002", "TASK-00003", "TASK-00004", "TASK-00001"}
	if len(ready) != len(want) {
		t.Fatalf("expected %d ready tasks, got %d", len(want), len(ready))
	}
	for i, id := range want {
		if ready[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, ready[i].ID)
		}
	}
}

func TestReadyTasks_ExcludesUnmetDependencies(t *testing.T) {
	graph, tasks, _ := newTestGraph(t)
	seedTask(t, tasks, "TASK-00001")
	seedTask(t, tasks, "TASK-00002")
	mustAddEdge(t, graph, "TASK-00001", "TASK-00002")

	ready, err := graph.ReadyTasks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != "TASK-00001" {
		t.Fatalf("expected only TASK-00001 ready, got %v", readyIDs(ready))
	}

	// Completing the dependency releases the dependent.
	if _, err := tasks.Update("TASK-00001", func(task *models.Task) error {
		task.Status = models.StatusDone
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ready, err = graph.ReadyTasks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != "TASK-00002" {
		t.Fatalf("expected only TASK-00002 ready, got %v", readyIDs(ready))
	}
}

func TestIsBlocked(t *testing.T) {
	graph, tasks, _ := newTestGraph(t)
	seedTask(t, tasks, "TASK-00001")
	seedTask(t, tasks, "TASK-00002")
	mustAddEdge(t, graph, "TASK-00001", "TASK-00002")

	blocked, err := graph.IsBlocked("TASK-00002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !blocked {
		t.Fatal("expected TASK-00002 to be blocked on TASK-00001")
	}

	blocked, err = graph.IsBlocked("TASK-00001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blocked {
		t.Fatal("expected TASK-00001 to be unblocked")
	}

	if _, err := graph.IsBlocked("TASK-99999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDependencies_Sorted(t *testing.T) {
	graph, tasks, _ := newTestGraph(t)
	for _, id := range []string{"TASK-00001", "TASK-00002", "TASK-00003"} {
		seedTask(t, tasks, id)
	}
	mustAddEdge(t, graph, "TASK-00002", "TASK-00003")
	mustAddEdge(t, graph, "TASK-00001", "TASK-00003")

	deps, err := graph.Dependencies("TASK-00003")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps) != 2 || deps[0] != "TASK-00001" || deps[1] != "TASK-00002" {
		t.Fatalf("expected sorted dependencies, got %v", deps)
	}
}

func mustAddEdge(t *testing.T, graph *DependencyGraph, from, to string) {
	t.Helper()
	if err := graph.AddEdge(from, to); err != nil {
		t.Fatalf("adding edge %s -> %s: %v", from, to, err)
	}
}

func readyIDs(tasks []models.Task) []string {
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}
