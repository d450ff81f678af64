package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// MarkerFileName is the placeholder that keeps an empty directory alive through a stash.
const MarkerFileName = ".colonygitkeep"

// CreateMarkers writes a placeholder into every empty directory below root, skipping .git.
// It returns the created paths.
func CreateMarkers(fs afero.Fs, root string) ([]string, error) {
	var created []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if info.Name() == ".git" {
			return filepath.SkipDir
		}
		entries, err := afero.ReadDir(fs, path)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return nil
		}
		marker := filepath.Join(path, MarkerFileName)
		if err := afero.WriteFile(fs, marker, nil, MarkerFilePermissions); err != nil {
			return fmt.Errorf("failed to create %s: %w", marker, err)
		}
		created = append(created, marker)
		return nil
	})
	if err != nil {
		return created, fmt.Errorf("failed to preserve empty directories: %w", err)
	}
	return created, nil
}

// RemoveMarkers deletes every placeholder below root, skipping .git.
func RemoveMarkers(fs afero.Fs, root string) error {
	var markers []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}
		if !info.IsDir() && info.Name() == MarkerFileName {
			markers = append(markers, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to find placeholder files: %w", err)
	}
	for _, marker := range markers {
		if err := fs.Remove(marker); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", marker, err)
		}
	}
	return nil
}
