package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	profileFilePermissions = 0600
	profileDirPermissions  = 0700
	profileLockRetry       = 50 * time.Millisecond
	profileLockTimeout     = 10 * time.Second
)

// ErrProfileNotFound is returned when the requested profile is absent from the file.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is one named set of credentials.
type Profile struct {
	Token   string `yaml:"token"`
	Space   string `yaml:"space"`
	Account string `yaml:"account,omitempty"`
}

// ProfileStore reads and writes the YAML profiles file. Locks live next to the file on the
// OS filesystem, so path must be a real location even when fs is an overlay.
type ProfileStore struct {
	fs   afero.Fs
	path string
}

// NewProfileStore creates a store over path.
func NewProfileStore(fs afero.Fs, path string) *ProfileStore {
	return &ProfileStore{fs: fs, path: path}
}

// Path is the profiles file location.
func (s *ProfileStore) Path() string { return s.path }

// LoadAll returns every profile. A missing file yields an empty map.
func (s *ProfileStore) LoadAll(ctx context.Context) (map[string]Profile, error) {
	var profiles map[string]Profile
	err := s.withLock(ctx, false, func() error {
		var readErr error
		profiles, readErr = s.read()
		return readErr
	})
	return profiles, err
}

// Load returns the named profile.
func (s *ProfileStore) Load(ctx context.Context, name string) (Profile, error) {
	profiles, err := s.LoadAll(ctx)
	if err != nil {
		return Profile{}, err
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, s.notFound(name)
	}
	return p, nil
}

// Save creates or replaces the named profile.
func (s *ProfileStore) Save(ctx context.Context, name string, p Profile) error {
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if p.Token == "" || p.Space == "" {
		return fmt.Errorf("profile %q requires token and space", name)
	}
	return s.withLock(ctx, true, func() error {
		profiles, err := s.read()
		if err != nil {
			return err
		}
		profiles[name] = p
		return s.write(profiles)
	})
}

// Remove deletes the named profile.
func (s *ProfileStore) Remove(ctx context.Context, name string) error {
	return s.withLock(ctx, true, func() error {
		profiles, err := s.read()
		if err != nil {
			return err
		}
		if _, ok := profiles[name]; !ok {
			return s.notFound(name)
		}
		delete(profiles, name)
		return s.write(profiles)
	})
}

// Names returns profile names in sorted order.
func Names(profiles map[string]Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaskToken hides all but the last four characters of token.
func MaskToken(token string) string {
	const mask = "*********"
	if len(token) <= 4 {
		return mask
	}
	return mask + token[len(token)-4:]
}

func (s *ProfileStore) notFound(name string) error {
	return domain.NewError(domain.ErrNotConfigured,
		fmt.Sprintf("profile %q not found in %s", name, s.path), ErrProfileNotFound)
}

func (s *ProfileStore) read() (map[string]Profile, error) {
	profiles := map[string]Profile{}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return profiles, nil
		}
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file %s: %w", s.path, err)
	}
	if profiles == nil {
		profiles = map[string]Profile{}
	}
	return profiles, nil
}

func (s *ProfileStore) write(profiles map[string]Profile) error {
	data, err := yaml.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, profileFilePermissions); err != nil {
		return fmt.Errorf("failed to write profiles file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace profiles file: %w", err)
	}
	return nil
}

func (s *ProfileStore) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, profileDirPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.MkdirAll(dir, profileDirPermissions); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	lock := flock.New(s.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, profileLockTimeout)
	defer cancel()
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = lock.TryLockContext(lockCtx, profileLockRetry)
	} else {
		locked, err = lock.TryRLockContext(lockCtx, profileLockRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to lock profiles file: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not lock profiles file %s", s.path)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
