// Package session persists the per-cluster run record: the chosen ingress
// port and the background port-forward jobs started for it. One structured
// JSON file replaces scattered single-value marker files, so a later, fully
// independent invocation (democtl down) can find everything it has to tear
// down. The up invocation is the only writer; any later invocation may read
// and delete the record.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Sentinel errors for session operations
var (
	// ErrNoSession indicates no session record exists for the cluster
	ErrNoSession = errors.New("no session record found")

	// ErrSessionLocked indicates another invocation holds the session lock
	ErrSessionLocked = errors.New("session is locked by another process")
)

// ForwardJob records one background kubectl port-forward process
type ForwardJob struct {
	PID        int    `json:"pid"`
	Namespace  string `json:"namespace"`
	Target     string `json:"target"`
	LocalPort  int    `json:"local_port"`
	RemotePort int    `json:"remote_port"`
	LogFile    string `json:"log_file,omitempty"`
}

// Session is the structured record of one demo cluster run
type Session struct {
	ClusterName   string       `json:"cluster_name"`
	DemoNamespace string       `json:"demo_namespace"`
	IngressPort   int          `json:"ingress_port"`
	Backends      []string     `json:"backends,omitempty"`
	Forwards      []ForwardJob `json:"forwards,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Store reads and writes session records under a state directory, one file
// per cluster name. A flock guards against two simultaneous runs operating on
// the same cluster; a second run fails fast instead of silently racing.
type Store struct {
	dir  string
	lock *flock.Flock
}

// NewStore creates a Store rooted at dir. An empty dir selects the platform
// state directory (XDG_STATE_HOME or ~/.local/state).
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = defaultStateDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory backing this store
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the session file path for a cluster
func (s *Store) Path(clusterName string) string {
	return filepath.Join(s.dir, clusterName+".session.json")
}

// Acquire takes the per-cluster lock. It does not block: a held lock means a
// second run is already in flight, which is an operator error.
func (s *Store) Acquire(clusterName string) error {
	lock := flock.New(filepath.Join(s.dir, clusterName+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: cluster %s", ErrSessionLocked, clusterName)
	}
	s.lock = lock
	return nil
}

// Release drops the lock taken by Acquire. Safe to call when no lock is held.
func (s *Store) Release() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}

// Save writes the session record, replacing any previous one
func (s *Store) Save(sess *Session) error {
	if sess.ClusterName == "" {
		return errors.New("session cluster name must not be empty")
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	path := s.Path(sess.ClusterName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session record %s: %w", path, err)
	}
	return nil
}

// Load reads the session record for a cluster. Returns ErrNoSession if none exists.
func (s *Store) Load(clusterName string) (*Session, error) {
	path := s.Path(clusterName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: cluster %s", ErrNoSession, clusterName)
		}
		return nil, fmt.Errorf("failed to read session record %s: %w", path, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session record %s: %w", path, err)
	}
	return &sess, nil
}

// Delete removes the session record. Deleting an absent record is a no-op so
// cleanup stays idempotent.
func (s *Store) Delete(clusterName string) error {
	err := os.Remove(s.Path(clusterName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return nil
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "democtl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "democtl")
	}
	return filepath.Join(home, ".local", "state", "democtl")
}
