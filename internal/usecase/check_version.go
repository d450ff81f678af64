package usecase

import (
	"context"
	"fmt"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/repository"
)

// UpdateNotice describes a newer published release.
type UpdateNotice struct {
	Current *domain.Version
	Latest  *domain.Version
}

// CheckVersionUseCase contains the logic for the upgrade notice.
type CheckVersionUseCase struct {
	Releases repository.ReleaseRepository
	Current  string
}

// Execute returns a notice when the latest release is newer than the running build. Development
// builds never get a notice.
func (uc *CheckVersionUseCase) Execute(ctx context.Context) (*UpdateNotice, error) {
	current, err := domain.NewVersion(uc.Current)
	if err != nil {
		return nil, nil
	}
	tag, err := uc.Releases.LatestRelease(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := domain.NewVersion(tag)
	if err != nil {
		return nil, fmt.Errorf("invalid release tag %q: %w", tag, err)
	}
	if !latest.IsNewerThan(current) {
		return nil, nil
	}
	return &UpdateNotice{Current: current, Latest: latest}, nil
}
