package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/srstomp/ohno/pkg/models"
)

// SessionStore is the durable snapshot surface the session manager needs.
type SessionStore interface {
	GenerateID() (string, error)
	SaveSnapshot(snapshot models.SessionSnapshot) error
	LoadSnapshot(sessionID string) (*models.SessionSnapshot, error)
	LatestSnapshot() (*models.SessionSnapshot, error)
	Archive(sessionID string) error
}

// SessionManager owns the single active SessionContext. All mutation goes
// through it so the activity log stays ordered; checkpointing serializes the
// context so another session, possibly in another process, can resume it.
type SessionManager struct {
	store SessionStore
	tasks TaskReader
	now   func() time.Time

	mu      sync.Mutex
	current *models.SessionContext
}

// NewSessionManager creates a SessionManager. The clock defaults to time.Now.
func NewSessionManager(store SessionStore, tasks TaskReader) *SessionManager {
	return &SessionManager{store: store, tasks: tasks, now: time.Now}
}

// WithClock replaces the manager's clock. Intended for tests.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// Start opens a new session in the given mode and makes it current.
func (m *SessionManager) Start(mode models.Mode) (*models.SessionContext, error) {
	if !models.ValidModes[mode] {
		return nil, fmt.Errorf("starting session: invalid mode %q", mode)
	}

	id, err := m.store.GenerateID()
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &models.SessionContext{
		SessionID: id,
		StartedAt: m.now(),
		Mode:      mode,
	}
	// Persist immediately so a later process can resume the session.
	if _, err := m.checkpointLocked(); err != nil {
		m.current = nil
		return nil, err
	}
	return m.snapshotContextLocked(), nil
}

// Resume adopts the most recent non-archived snapshot as the active session.
// Returns nil without error when there is nothing to resume.
func (m *SessionManager) Resume() (*models.SessionContext, error) {
	snapshot, err := m.store.LatestSnapshot()
	if err != nil {
		return nil, fmt.Errorf("resuming session: %w", err)
	}
	if snapshot == nil {
		return nil, nil
	}
	return m.Restore(snapshot.SessionID)
}

// Current returns a copy of the active session context, or nil if none.
func (m *SessionManager) Current() *models.SessionContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.snapshotContextLocked()
}

// Mode returns the active session's mode, or the given fallback when no
// session is active.
func (m *SessionManager) Mode(fallback models.Mode) models.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return fallback
	}
	return m.current.Mode
}

// SetCurrentTask records which task the session is working on.
func (m *SessionManager) SetCurrentTask(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.CurrentTaskID = taskID
		m.persistLocked()
	}
}

// RecordActivity appends an ordered entry to the session log.
func (m *SessionManager) RecordActivity(kind, taskID, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	m.current.Log = append(m.current.Log, models.ActivityEntry{
		Time:   m.now(),
		Kind:   kind,
		TaskID: taskID,
		Detail: detail,
	})
	m.persistLocked()
}

// RecordBlocker adds a blocker to the session context.
func (m *SessionManager) RecordBlocker(taskID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	m.current.Blockers = append(m.current.Blockers, models.Blocker{
		TaskID: taskID,
		Reason: reason,
		Time:   m.now(),
	})
	m.persistLocked()
}

// Cancel marks the session cancelled. The driver stops picking up new tasks
// after this; in-flight actions are left to finish.
func (m *SessionManager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Cancelled = true
		m.persistLocked()
	}
}

// Cancelled reports whether the active session has been cancelled.
func (m *SessionManager) Cancelled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.Cancelled
}

// Checkpoint serializes the active session context to durable storage.
// Checkpointing is idempotent: repeated checkpoints of an unchanged context
// produce equivalent snapshots.
func (m *SessionManager) Checkpoint() (*models.SessionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, fmt.Errorf("checkpointing: no active session")
	}
	return m.checkpointLocked()
}

func (m *SessionManager) checkpointLocked() (*models.SessionSnapshot, error) {
	snapshot := models.SessionSnapshot{
		SessionID:     m.current.SessionID,
		TakenAt:       m.now(),
		StartedAt:     m.current.StartedAt,
		Mode:          m.current.Mode,
		CurrentTaskID: m.current.CurrentTaskID,
		Blockers:      append([]models.Blocker(nil), m.current.Blockers...),
		Log:           append([]models.ActivityEntry(nil), m.current.Log...),
		Cancelled:     m.current.Cancelled,
	}
	if err := m.store.SaveSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("checkpointing session %s: %w", m.current.SessionID, err)
	}
	return &snapshot, nil
}

// persistLocked keeps the durable snapshot current as the context mutates,
// so a crashed or exited process can be resumed. Write errors are deferred
// to the next explicit Checkpoint.
func (m *SessionManager) persistLocked() {
	_, _ = m.checkpointLocked()
}

// Restore loads a snapshot and makes it the active session context. An empty
// sessionID restores the most recent snapshot. Every task the snapshot
// references must still exist; otherwise the restore fails with
// StaleSnapshot and nothing is mutated.
func (m *SessionManager) Restore(sessionID string) (*models.SessionContext, error) {
	var snapshot *models.SessionSnapshot
	var err error
	if sessionID == "" {
		snapshot, err = m.store.LatestSnapshot()
		if err != nil {
			return nil, fmt.Errorf("restoring latest session: %w", err)
		}
		if snapshot == nil {
			return nil, &NotFoundError{Kind: "session", ID: "latest"}
		}
	} else {
		snapshot, err = m.store.LoadSnapshot(sessionID)
		if err != nil {
			return nil, err
		}
	}

	if missing := m.missingTasks(snapshot); len(missing) > 0 {
		return nil, &StaleSnapshotError{SessionID: snapshot.SessionID, MissingTaskIDs: missing}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &models.SessionContext{
		SessionID:     snapshot.SessionID,
		StartedAt:     snapshot.StartedAt,
		Mode:          snapshot.Mode,
		CurrentTaskID: snapshot.CurrentTaskID,
		Blockers:      append([]models.Blocker(nil), snapshot.Blockers...),
		Log:           append([]models.ActivityEntry(nil), snapshot.Log...),
		Cancelled:     snapshot.Cancelled,
	}
	// Refresh TakenAt so the restored session is what the next process resumes.
	m.persistLocked()
	return m.snapshotContextLocked(), nil
}

// End checkpoints the session one last time, archives it, and clears the
// active context.
func (m *SessionManager) End() error {
	if _, err := m.Checkpoint(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Archive(m.current.SessionID); err != nil {
		return fmt.Errorf("ending session %s: %w", m.current.SessionID, err)
	}
	m.current = nil
	return nil
}

// missingTasks returns the task IDs a snapshot references that no longer
// exist in the task store.
func (m *SessionManager) missingTasks(snapshot *models.SessionSnapshot) []string {
	seen := make(map[string]bool)
	var missing []string
	check := func(taskID string) {
		if taskID == "" || seen[taskID] {
			return
		}
		seen[taskID] = true
		if !m.tasks.Exists(taskID) {
			missing = append(missing, taskID)
		}
	}

	check(snapshot.CurrentTaskID)
	for _, b := range snapshot.Blockers {
		check(b.TaskID)
	}
	return missing
}

func (m *SessionManager) snapshotContextLocked() *models.SessionContext {
	copied := *m.current
	copied.Blockers = append([]models.Blocker(nil), m.current.Blockers...)
	copied.Log = append([]models.ActivityEntry(nil), m.current.Log...)
	return &copied
}
