package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/pkg/models"
	"gopkg.in/yaml.v3"
)

// SessionStoreManager manages durable session snapshots under sessions/.
// Snapshots are written on every checkpoint and archived at clean session end.
type SessionStoreManager interface {
	GenerateID() (string, error)
	SaveSnapshot(snapshot models.SessionSnapshot) error
	LoadSnapshot(sessionID string) (*models.SessionSnapshot, error)
	LatestSnapshot() (*models.SessionSnapshot, error)
	ListSessionIDs() ([]string, error)
	Archive(sessionID string) error
}

type fileSessionStore struct {
	basePath string
}

// NewSessionStoreManager creates a SessionStoreManager backed by YAML files
// under sessions/ in the given base directory.
func NewSessionStoreManager(basePath string) SessionStoreManager {
	return &fileSessionStore{basePath: basePath}
}

func (s *fileSessionStore) sessionsDir() string {
	return filepath.Join(s.basePath, "sessions")
}

func (s *fileSessionStore) archivedDir() string {
	return filepath.Join(s.sessionsDir(), "_archived")
}

func (s *fileSessionStore) counterPath() string {
	return filepath.Join(s.sessionsDir(), ".session_counter")
}

func (s *fileSessionStore) snapshotPath(sessionID string) string {
	return filepath.Join(s.sessionsDir(), sessionID, "snapshot.yaml")
}

// GenerateID reads and increments the session counter file, returning the
// next sequential ID in S-XXXXX format.
func (s *fileSessionStore) GenerateID() (string, error) {
	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return "", fmt.Errorf("generating session ID: creating directory: %w", err)
	}

	unlock, err := s.lockCounter()
	if err != nil {
		return "", fmt.Errorf("generating session ID: acquiring lock: %w", err)
	}
	defer func() { _ = unlock() }()

	counter := 0
	data, err := os.ReadFile(s.counterPath())
	if err == nil {
		trimmed := strings.TrimSpace(string(data))
		if trimmed != "" {
			counter, err = strconv.Atoi(trimmed)
			if err != nil {
				return "", fmt.Errorf("generating session ID: parsing counter: %w", err)
			}
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("generating session ID: reading counter: %w", err)
	}

	counter++
	id := fmt.Sprintf("S-%05d", counter)

	if err := os.WriteFile(s.counterPath(), []byte(strconv.Itoa(counter)), 0o600); err != nil {
		return "", fmt.Errorf("generating session ID: writing counter: %w", err)
	}
	return id, nil
}

// lockCounter acquires an exclusive flock on the session counter file.
func (s *fileSessionStore) lockCounter() (unlock func() error, err error) {
	f, err := os.OpenFile(s.counterPath(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening counter lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring counter lock: %w", err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}

// SaveSnapshot persists a snapshot, replacing any previous one for the session.
func (s *fileSessionStore) SaveSnapshot(snapshot models.SessionSnapshot) error {
	if snapshot.SessionID == "" {
		return fmt.Errorf("saving snapshot: session ID must not be empty")
	}

	dir := filepath.Join(s.sessionsDir(), snapshot.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("saving snapshot %s: creating directory: %w", snapshot.SessionID, err)
	}

	data, err := yaml.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: marshaling YAML: %w", snapshot.SessionID, err)
	}
	if err := os.WriteFile(s.snapshotPath(snapshot.SessionID), data, 0o600); err != nil {
		return fmt.Errorf("saving snapshot %s: writing file: %w", snapshot.SessionID, err)
	}
	return nil
}

// LoadSnapshot reads the snapshot for the given session ID.
func (s *fileSessionStore) LoadSnapshot(sessionID string) (*models.SessionSnapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &core.NotFoundError{Kind: "session", ID: sessionID}
		}
		return nil, fmt.Errorf("loading snapshot %s: %w", sessionID, err)
	}

	var snapshot models.SessionSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("loading snapshot %s: parsing YAML: %w", sessionID, err)
	}
	return &snapshot, nil
}

// LatestSnapshot returns the most recently taken active snapshot, or nil if
// there are none.
func (s *fileSessionStore) LatestSnapshot() (*models.SessionSnapshot, error) {
	ids, err := s.ListSessionIDs()
	if err != nil {
		return nil, err
	}

	var latest *models.SessionSnapshot
	for _, id := range ids {
		snap, err := s.LoadSnapshot(id)
		if err != nil {
			continue
		}
		if latest == nil || snap.TakenAt.After(latest.TakenAt) {
			latest = snap
		}
	}
	return latest, nil
}

// ListSessionIDs returns the IDs of all active (non-archived) sessions.
func (s *fileSessionStore) ListSessionIDs() ([]string, error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), "_") {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// Archive moves a session's directory under sessions/_archived/ at clean
// session end. The snapshot remains readable for later review.
func (s *fileSessionStore) Archive(sessionID string) error {
	src := filepath.Join(s.sessionsDir(), sessionID)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return &core.NotFoundError{Kind: "session", ID: sessionID}
		}
		return fmt.Errorf("archiving session %s: %w", sessionID, err)
	}

	if err := os.MkdirAll(s.archivedDir(), 0o755); err != nil {
		return fmt.Errorf("archiving session %s: creating archive directory: %w", sessionID, err)
	}
	dest := filepath.Join(s.archivedDir(), sessionID)
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("archiving session %s: moving to archive: %w", sessionID, err)
	}
	return nil
}
