package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/srstomp/ohno/pkg/models"
)

// In-memory fakes for the store interfaces. The file-backed implementations
// have their own tests in the storage package; these keep engine tests fast
// and deterministic.

type memTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
	now   func() time.Time
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{
		tasks: make(map[string]*models.Task),
		now:   time.Now,
	}
}

func (s *memTaskStore) Get(taskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	copied := *task
	return &copied, nil
}

func (s *memTaskStore) List(filter models.TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, task := range s.tasks {
		if taskMatches(filter, task) {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func taskMatches(filter models.TaskFilter, task *models.Task) bool {
	if len(filter.Status) > 0 && !containsStatus(filter.Status, task.Status) {
		return false
	}
	if len(filter.Type) > 0 && !containsType(filter.Type, task.Type) {
		return false
	}
	if filter.StoryID != "" && task.StoryID != filter.StoryID {
		return false
	}
	if filter.EpicID != "" && task.EpicID != filter.EpicID {
		return false
	}
	return true
}

func containsStatus(statuses []models.TaskStatus, s models.TaskStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsType(types []models.TaskType, t models.TaskType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (s *memTaskStore) Exists(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[taskID]
	return ok
}

func (s *memTaskStore) ActiveTaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.tasks {
		if task.Status == models.StatusInProgress {
			return task.ID
		}
	}
	return ""
}

func (s *memTaskStore) Create(task models.Task) (*models.Task, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		return nil, "", fmt.Errorf("creating task: ID must not be empty")
	}
	if _, exists := s.tasks[task.ID]; exists {
		return nil, "", fmt.Errorf("creating task: %s already exists", task.ID)
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.P2
	}
	now := s.now()
	task.Created = now
	task.Updated = now
	s.tasks[task.ID] = &task
	copied := task
	return &copied, "", nil
}

func (s *memTaskStore) Update(taskID string, mutate func(t *models.Task) error) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	next := *task
	if err := mutate(&next); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	next.ID = taskID
	next.Updated = s.now()
	s.tasks[taskID] = &next
	copied := next
	return &copied, nil
}

func (s *memTaskStore) AppendNote(taskID string, text string) (*models.Task, error) {
	return s.Update(taskID, func(t *models.Task) error {
		t.Notes = append(t.Notes, models.Note{Time: s.now(), Text: text})
		return nil
	})
}

type memEdgeStore struct {
	mu    sync.Mutex
	edges []models.Edge
}

func newMemEdgeStore() *memEdgeStore { return &memEdgeStore{} }

func (s *memEdgeStore) Add(edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edges {
		if e == edge {
			return fmt.Errorf("adding edge: %s -> %s already exists", edge.From, edge.To)
		}
	}
	s.edges = append(s.edges, edge)
	return nil
}

func (s *memEdgeStore) All() ([]models.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Edge, len(s.edges))
	copy(out, s.edges)
	return out, nil
}

type memSessionStore struct {
	mu       sync.Mutex
	counter  int
	snaps    map[string]models.SessionSnapshot
	archived map[string]bool
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		snaps:    make(map[string]models.SessionSnapshot),
		archived: make(map[string]bool),
	}
}

func (s *memSessionStore) GenerateID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return fmt.Sprintf("S-%05d", s.counter), nil
}

func (s *memSessionStore) SaveSnapshot(snapshot models.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snapshot.SessionID] = snapshot
	return nil
}

func (s *memSessionStore) LoadSnapshot(sessionID string) (*models.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[sessionID]
	if !ok || s.archived[sessionID] {
		return nil, &NotFoundError{Kind: "session", ID: sessionID}
	}
	copied := snap
	return &copied, nil
}

func (s *memSessionStore) LatestSnapshot() (*models.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.SessionSnapshot
	for id, snap := range s.snaps {
		if s.archived[id] {
			continue
		}
		if latest == nil || snap.TakenAt.After(latest.TakenAt) {
			copied := snap
			latest = &copied
		}
	}
	return latest, nil
}

func (s *memSessionStore) Archive(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[sessionID]; !ok || s.archived[sessionID] {
		return &NotFoundError{Kind: "session", ID: sessionID}
	}
	s.archived[sessionID] = true
	return nil
}

// fakeExecutor returns scripted results per action name and records the
// order actions were executed in.
type fakeExecutor struct {
	mu      sync.Mutex
	results map[string]models.ActionResult
	calls   []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{results: make(map[string]models.ActionResult)}
}

func (e *fakeExecutor) script(action string, result models.ActionResult) {
	e.results[action] = result
}

func (e *fakeExecutor) Execute(ctx context.Context, spec models.ActionSpec, hctx HookContext) models.ActionResult {
	e.mu.Lock()
	e.calls = append(e.calls, spec.Name)
	e.mu.Unlock()
	if result, ok := e.results[spec.Name]; ok {
		return result
	}
	return models.ActionResult{Action: spec.Name, Status: "success"}
}

func (e *fakeExecutor) executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// memEventLogger records engine events for assertions.
type memEventLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *memEventLogger) Log(event string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
