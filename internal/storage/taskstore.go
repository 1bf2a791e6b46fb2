package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/pkg/models"
	"gopkg.in/yaml.v3"
)

// tasksFile is the top-level structure of tasks.yaml.
type tasksFile struct {
	Version string                 `yaml:"version"`
	Tasks   map[string]models.Task `yaml:"tasks"`
}

// TaskStoreManager defines the interface for the durable task registry.
// Reads take a snapshot under a read lock; all mutations go through the
// single writer path and append to the audit log.
type TaskStoreManager interface {
	Create(task models.Task) (*models.Task, string, error)
	Get(taskID string) (*models.Task, error)
	Update(taskID string, mutate func(t *models.Task) error) (*models.Task, error)
	AppendNote(taskID string, text string) (*models.Task, error)
	List(filter models.TaskFilter) ([]models.Task, error)
	Exists(taskID string) bool
	ActiveTaskID() string
	Load() error
	Save() error
}

type fileTaskStore struct {
	basePath string
	audit    AuditLog
	now      func() time.Time

	mu   sync.RWMutex
	data tasksFile
}

// NewTaskStoreManager creates a TaskStoreManager backed by tasks.yaml in the
// given base directory. audit may be nil to disable the mutation trail.
func NewTaskStoreManager(basePath string, audit AuditLog) TaskStoreManager {
	return &fileTaskStore{
		basePath: basePath,
		audit:    audit,
		now:      func() time.Time { return time.Now().UTC() },
		data: tasksFile{
			Version: "1.0",
			Tasks:   make(map[string]models.Task),
		},
	}
}

func (s *fileTaskStore) filePath() string {
	return filepath.Join(s.basePath, "tasks.yaml")
}

// Create registers a new task. Duplicate titles within the same open epic
// produce a warning string, not an error. The caller assigns the ID.
func (s *fileTaskStore) Create(task models.Task) (*models.Task, string, error) {
	if task.ID == "" {
		return nil, "", fmt.Errorf("creating task: ID must not be empty")
	}
	if task.Title == "" {
		return nil, "", fmt.Errorf("creating task: title must not be empty")
	}
	if task.Type != "" && !models.ValidTaskTypes[task.Type] {
		return nil, "", fmt.Errorf("creating task: invalid type %q", task.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Tasks[task.ID]; exists {
		return nil, "", fmt.Errorf("creating task: task %s already exists", task.ID)
	}

	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.P2
	}
	now := s.now()
	if task.Created.IsZero() {
		task.Created = now
	}
	task.Updated = now

	warning := s.duplicateTitleWarning(task)

	s.data.Tasks[task.ID] = task
	if err := s.saveLocked(); err != nil {
		delete(s.data.Tasks, task.ID)
		return nil, "", fmt.Errorf("creating task %s: %w", task.ID, err)
	}

	s.appendAudit(task.ID, "status", "", string(task.Status))
	created := task
	return &created, warning, nil
}

// duplicateTitleWarning checks for a same-titled task in the same open epic.
// An epic is open while any of its tasks is not done.
func (s *fileTaskStore) duplicateTitleWarning(task models.Task) string {
	if task.EpicID == "" {
		return ""
	}
	epicOpen := false
	var dup string
	for _, existing := range s.data.Tasks {
		if existing.EpicID != task.EpicID {
			continue
		}
		if existing.Status != models.StatusDone {
			epicOpen = true
		}
		if existing.Title == task.Title {
			dup = existing.ID
		}
	}
	if epicOpen && dup != "" {
		return fmt.Sprintf("task %s in epic %s already has title %q", dup, task.EpicID, task.Title)
	}
	return ""
}

// Get returns a copy of the task with the given ID.
func (s *fileTaskStore) Get(taskID string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.data.Tasks[taskID]
	if !exists {
		return nil, &core.NotFoundError{Kind: "task", ID: taskID}
	}
	cp := task
	return &cp, nil
}

// Update applies a mutation atomically: readers never observe partial field
// updates, and nothing is persisted if the mutation or an invariant fails.
// Terminal done tasks are immutable except for appended notes.
func (s *fileTaskStore) Update(taskID string, mutate func(t *models.Task) error) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.data.Tasks[taskID]
	if !exists {
		return nil, &core.NotFoundError{Kind: "task", ID: taskID}
	}

	next := old
	if err := mutate(&next); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	next.ID = old.ID
	next.Created = old.Created

	if err := s.checkInvariants(old, next); err != nil {
		return nil, err
	}

	next.Updated = s.now()
	s.data.Tasks[taskID] = next
	if err := s.saveLocked(); err != nil {
		s.data.Tasks[taskID] = old
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}

	for _, d := range diffTask(old, next) {
		s.appendAudit(taskID, d.field, d.old, d.new)
	}

	cp := next
	return &cp, nil
}

// checkInvariants validates a transition against the data model rules.
func (s *fileTaskStore) checkInvariants(old, next models.Task) error {
	if old.Status == models.StatusDone {
		frozen := old
		frozen.Notes = next.Notes
		frozen.Updated = next.Updated
		mutated := next
		mutated.Updated = frozen.Updated
		if !tasksEqualIgnoringNotes(frozen, mutated) {
			return fmt.Errorf("updating task %s: done tasks are immutable except for notes", old.ID)
		}
		return nil
	}

	if next.Status == models.StatusBlocked && next.BlockedReason == "" {
		return fmt.Errorf("updating task %s: blocked tasks require a blocking reason", old.ID)
	}

	if next.Status == models.StatusInProgress && old.Status != models.StatusInProgress {
		if active := s.activeTaskLocked(); active != "" && active != old.ID {
			return &core.AlreadyInProgressError{ActiveTaskID: active, RequestedTaskID: old.ID}
		}
	}

	return nil
}

// AppendNote appends a free-text note to the task's append-only log. This is
// the only mutation allowed on done tasks.
func (s *fileTaskStore) AppendNote(taskID string, text string) (*models.Task, error) {
	if text == "" {
		return nil, fmt.Errorf("appending note to %s: text must not be empty", taskID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.data.Tasks[taskID]
	if !exists {
		return nil, &core.NotFoundError{Kind: "task", ID: taskID}
	}

	next := old
	next.Notes = append(append([]models.Note(nil), old.Notes...), models.Note{
		Time: s.now(),
		Text: text,
	})
	next.Updated = s.now()

	s.data.Tasks[taskID] = next
	if err := s.saveLocked(); err != nil {
		s.data.Tasks[taskID] = old
		return nil, fmt.Errorf("appending note to %s: %w", taskID, err)
	}

	s.appendAudit(taskID, "notes", fmt.Sprintf("%d", len(old.Notes)), fmt.Sprintf("%d", len(next.Notes)))
	cp := next
	return &cp, nil
}

// List returns a snapshot of tasks matching the filter, ordered by ID.
func (s *fileTaskStore) List(filter models.TaskFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Task
	for _, task := range s.data.Tasks {
		if matchesTaskFilter(task, filter) {
			result = append(result, task)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Exists reports whether a task with the given ID is in the store.
func (s *fileTaskStore) Exists(taskID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.data.Tasks[taskID]
	return exists
}

// ActiveTaskID returns the ID of the task currently in_progress, or "".
func (s *fileTaskStore) ActiveTaskID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTaskLocked()
}

func (s *fileTaskStore) activeTaskLocked() string {
	for id, task := range s.data.Tasks {
		if task.Status == models.StatusInProgress {
			return id
		}
	}
	return ""
}

// Load reads tasks.yaml from disk. A missing file is treated as empty.
func (s *fileTaskStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			s.data = tasksFile{Version: "1.0", Tasks: make(map[string]models.Task)}
			return nil
		}
		return fmt.Errorf("loading tasks: %w", err)
	}

	var tf tasksFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("loading tasks: parsing YAML: %w", err)
	}
	if tf.Tasks == nil {
		tf.Tasks = make(map[string]models.Task)
	}
	if tf.Version == "" {
		tf.Version = "1.0"
	}
	s.data = tf
	return nil
}

// Save persists the store to disk.
func (s *fileTaskStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked writes tasks.yaml via a temp file and rename so concurrent
// readers of the file never see a torn write.
func (s *fileTaskStore) saveLocked() error {
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("saving tasks: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("saving tasks: marshaling YAML: %w", err)
	}
	tmp := s.filePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("saving tasks: writing file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath()); err != nil {
		return fmt.Errorf("saving tasks: replacing file: %w", err)
	}
	return nil
}

func (s *fileTaskStore) appendAudit(taskID, field, oldVal, newVal string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Append(AuditEntry{
		Time:   s.now(),
		TaskID: taskID,
		Field:  field,
		Old:    oldVal,
		New:    newVal,
	})
}

// --- Helpers ---

func matchesTaskFilter(task models.Task, filter models.TaskFilter) bool {
	if len(filter.Status) > 0 && !containsStatus(filter.Status, task.Status) {
		return false
	}
	if len(filter.Type) > 0 && !containsType(filter.Type, task.Type) {
		return false
	}
	if len(filter.Priority) > 0 && !containsPriority(filter.Priority, task.Priority) {
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

func containsStatus(haystack []models.TaskStatus, needle models.TaskStatus) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsType(haystack []models.TaskType, needle models.TaskType) bool {
	for _, t := range haystack {
		if t == needle {
			return true
		}
	}
	return false
}

func containsPriority(haystack []models.Priority, needle models.Priority) bool {
	for _, p := range haystack {
		if p == needle {
			return true
		}
	}
	return false
}

type fieldDiff struct {
	field string
	old   string
	new   string
}

// diffTask produces audit diffs for the fields worth tracking.
func diffTask(old, next models.Task) []fieldDiff {
	var diffs []fieldDiff
	if old.Status != next.Status {
		diffs = append(diffs, fieldDiff{"status", string(old.Status), string(next.Status)})
	}
	if old.Priority != next.Priority {
		diffs = append(diffs, fieldDiff{"priority", string(old.Priority), string(next.Priority)})
	}
	if old.Title != next.Title {
		diffs = append(diffs, fieldDiff{"title", old.Title, next.Title})
	}
	if old.BlockedReason != next.BlockedReason {
		diffs = append(diffs, fieldDiff{"blocked_reason", old.BlockedReason, next.BlockedReason})
	}
	if len(old.Notes) != len(next.Notes) {
		diffs = append(diffs, fieldDiff{"notes", fmt.Sprintf("%d", len(old.Notes)), fmt.Sprintf("%d", len(next.Notes))})
	}
	oldDecision, newDecision := spikeDecision(old.Spike), spikeDecision(next.Spike)
	if oldDecision != newDecision {
		diffs = append(diffs, fieldDiff{"spike_decision", oldDecision, newDecision})
	}
	return diffs
}

func spikeDecision(b *models.SpikeBudget) string {
	if b == nil {
		return ""
	}
	return string(b.Decision)
}

// tasksEqualIgnoringNotes compares two tasks with notes and timestamps
// already normalised by the caller.
func tasksEqualIgnoringNotes(a, b models.Task) bool {
	a.Notes, b.Notes = nil, nil
	a.Updated, b.Updated = time.Time{}, time.Time{}
	if (a.Spike == nil) != (b.Spike == nil) {
		return false
	}
	if a.Spike != nil && *a.Spike != *b.Spike {
		return false
	}
	a.Spike, b.Spike = nil, nil
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Type == b.Type &&
		a.Status == b.Status &&
		a.Priority == b.Priority &&
		a.EstimateHours == b.EstimateHours &&
		a.StoryID == b.StoryID &&
		a.EpicID == b.EpicID &&
		a.BlockedReason == b.BlockedReason &&
		a.Created.Equal(b.Created)
}
