package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

const (
	// StateSchemaVersion defines the current schema version for session files
	StateSchemaVersion = "1.0.0"
	// StateFilePermissions defines the permissions for session files
	StateFilePermissions = 0600
	// StateDirPermissions defines the permissions for the session directory
	StateDirPermissions = 0700
	// LockTimeout defines the maximum time to wait for a lock
	LockTimeout = 30 * time.Second
	// LockRetryInterval defines the interval between lock retry attempts
	LockRetryInterval = 100 * time.Millisecond
)

// ErrSessionNotFound is returned when no record exists for a session id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStateDir keeps session records inside the git dir so they are never stashed or committed.
func SessionStateDir(gitDir string) string {
	return filepath.Join(gitDir, "colony", "sessions")
}

// SessionRepository persists branch session records.
type SessionRepository interface {
	Save(ctx context.Context, state *domain.SessionState) error
	Load(ctx context.Context, sessionID string) (*domain.SessionState, error)
	LoadLatest(ctx context.Context) (*domain.SessionState, error)
	List(ctx context.Context) ([]*domain.SessionState, error)
	Delete(ctx context.Context, sessionID string) error
}

// StateMetadata contains metadata about the session file
type StateMetadata struct {
	SchemaVersion string    `json:"schema_version"`
	Checksum      string    `json:"checksum"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StateWrapper wraps the session record with metadata
type StateWrapper struct {
	Metadata StateMetadata        `json:"metadata"`
	State    *domain.SessionState `json:"state"`
}

// JSONSessionRepository stores one checksummed JSON file per session.
type JSONSessionRepository struct {
	fs       afero.Fs
	stateDir string
	mu       sync.RWMutex
}

// NewJSONSessionRepository creates a repository rooted at stateDir. Lock files are created on the
// OS filesystem next to the records.
func NewJSONSessionRepository(fs afero.Fs, stateDir string) *JSONSessionRepository {
	return &JSONSessionRepository{fs: fs, stateDir: stateDir}
}

// Save writes the record atomically under an exclusive lock.
func (r *JSONSessionRepository) Save(ctx context.Context, state *domain.SessionState) error {
	if err := r.ensureStateDir(); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}
	filename := r.stateFilename(state.SessionID)
	return r.withLock(ctx, state.SessionID, false, func() error {
		stateData, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal session for checksum: %w", err)
		}
		wrapper := StateWrapper{
			Metadata: StateMetadata{
				SchemaVersion: StateSchemaVersion,
				Checksum:      checksum(stateData),
				CreatedAt:     state.StartedAt,
				UpdatedAt:     time.Now(),
			},
			State: state,
		}
		data, err := json.MarshalIndent(wrapper, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal session wrapper: %w", err)
		}
		if err := r.writeAtomic(filename, data); err != nil {
			return err
		}
		return r.updateLatestLink(filename)
	})
}

// Load reads and verifies a single record.
func (r *JSONSessionRepository) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	var state *domain.SessionState
	err := r.withLock(ctx, sessionID, true, func() error {
		var loadErr error
		state, loadErr = r.read(r.stateFilename(sessionID), sessionID)
		return loadErr
	})
	return state, err
}

// LoadLatest returns the most recently saved record.
func (r *JSONSessionRepository) LoadLatest(ctx context.Context) (*domain.SessionState, error) {
	r.mu.RLock()
	data, err := afero.ReadFile(r.fs, r.latestLink())
	r.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read latest link: %w", err)
	}
	sessionID := extractSessionID(string(data))
	if sessionID == "" {
		return nil, fmt.Errorf("invalid latest link target: %s", data)
	}
	return r.Load(ctx, sessionID)
}

// List returns every readable record ordered by start time. Unreadable records are reported
// together after the readable ones are collected.
func (r *JSONSessionRepository) List(ctx context.Context) ([]*domain.SessionState, error) {
	matches, err := afero.Glob(r.fs, filepath.Join(r.stateDir, "state-*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}
	var (
		states []*domain.SessionState
		errs   []error
	)
	for _, match := range matches {
		sessionID := extractSessionID(match)
		if sessionID == "" {
			continue
		}
		state, err := r.Load(ctx, sessionID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].StartedAt.Before(states[j].StartedAt) })
	return states, errors.Join(errs...)
}

// Delete removes a record and its lock file.
func (r *JSONSessionRepository) Delete(ctx context.Context, sessionID string) error {
	err := r.withLock(ctx, sessionID, false, func() error {
		if err := r.fs.Remove(r.stateFilename(sessionID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete state file: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := r.fs.Remove(r.lockFilename(sessionID)); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to remove lock file: %v\n", err)
	}
	return nil
}

func (r *JSONSessionRepository) read(filename, sessionID string) (*domain.SessionState, error) {
	data, err := afero.ReadFile(r.fs, filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	var wrapper StateWrapper
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	if wrapper.Metadata.SchemaVersion != StateSchemaVersion {
		return nil, fmt.Errorf("incompatible schema version: expected %s, got %s",
			StateSchemaVersion, wrapper.Metadata.SchemaVersion)
	}
	if wrapper.State == nil {
		return nil, fmt.Errorf("session %s has no state", sessionID)
	}
	stateData, err := json.Marshal(wrapper.State)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session for checksum validation: %w", err)
	}
	if wrapper.Metadata.Checksum != checksum(stateData) {
		return nil, fmt.Errorf("session %s checksum mismatch: data may be corrupted", sessionID)
	}
	return wrapper.State, nil
}

func (r *JSONSessionRepository) writeAtomic(filename string, data []byte) error {
	tempFile := filename + ".tmp"
	if err := afero.WriteFile(r.fs, tempFile, data, StateFilePermissions); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := r.fs.Rename(tempFile, filename); err != nil {
		if removeErr := r.fs.Remove(tempFile); removeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove temp file: %v\n", removeErr)
		}
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}

// withLock runs fn while holding the per-session lock.
func (r *JSONSessionRepository) withLock(ctx context.Context, sessionID string, shared bool, fn func() error) error {
	if err := os.MkdirAll(r.stateDir, StateDirPermissions); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	lock := flock.New(r.lockFilename(sessionID))
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	if err := acquireLock(lockCtx, lock, shared); err != nil {
		return err
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to unlock file: %v\n", unlockErr)
		}
	}()
	return fn()
}

func acquireLock(ctx context.Context, lock *flock.Flock, shared bool) error {
	try := lock.TryLock
	if shared {
		try = lock.TryRLock
	}
	ticker := time.NewTicker(LockRetryInterval)
	defer ticker.Stop()
	for {
		locked, err := try()
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("could not acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func (r *JSONSessionRepository) ensureStateDir() error {
	return r.fs.MkdirAll(r.stateDir, StateDirPermissions)
}

func (r *JSONSessionRepository) stateFilename(sessionID string) string {
	return filepath.Join(r.stateDir, fmt.Sprintf("state-%s.json", sessionID))
}

func (r *JSONSessionRepository) lockFilename(sessionID string) string {
	return filepath.Join(r.stateDir, fmt.Sprintf(".state-%s.lock", sessionID))
}

func (r *JSONSessionRepository) latestLink() string {
	return filepath.Join(r.stateDir, "latest.txt")
}

func (r *JSONSessionRepository) updateLatestLink(target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	link := r.latestLink()
	if err := r.writeAtomic(link, []byte(target)); err != nil {
		return fmt.Errorf("failed to update latest link: %w", err)
	}
	return nil
}

func extractSessionID(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if !strings.HasPrefix(base, "state-") || !strings.HasSuffix(base, ".json") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(base, "state-"), ".json")
}
