package service

import (
	"context"
	"net/http"

	"github.com/QualiSystems/colony-cli/internal/domain"
)

// EnvironmentTypeSandbox is the only validation target the CLI requests.
const EnvironmentTypeSandbox = "sandbox"

// BlueprintsManager reads and validates blueprints known to the space.
type BlueprintsManager interface {
	List(ctx context.Context) ([]domain.Blueprint, error)
	Validate(ctx context.Context, name string, source domain.BlueprintSource) (*domain.Blueprint, error)
}

type blueprintsManager struct {
	client *Client
}

// NewBlueprintsManager returns a manager backed by client.
func NewBlueprintsManager(client *Client) BlueprintsManager {
	return &blueprintsManager{client: client}
}

func (m *blueprintsManager) List(ctx context.Context) ([]domain.Blueprint, error) {
	var blueprints []domain.Blueprint
	if err := m.client.Do(ctx, http.MethodGet, "blueprints", nil, nil, &blueprints); err != nil {
		return nil, err
	}
	return blueprints, nil
}

type validateRequest struct {
	BlueprintName string      `json:"blueprint_name"`
	Type          string      `json:"type"`
	Source        *sourceBody `json:"source,omitempty"`
}

type sourceBody struct {
	Branch string `json:"branch"`
	Commit string `json:"commit"`
}

func newSourceBody(branch, commit string) (*sourceBody, error) {
	if commit != "" && branch == "" {
		return nil, domain.UsageError("Since commit is specified, branch is required")
	}
	if branch == "" {
		return nil, nil
	}
	return &sourceBody{Branch: branch, Commit: commit}, nil
}

// Validate asks the service to check the blueprint as read from source.
func (m *blueprintsManager) Validate(
	ctx context.Context,
	name string,
	source domain.BlueprintSource,
) (*domain.Blueprint, error) {
	body, err := newSourceBody(source.Branch, source.Commit)
	if err != nil {
		return nil, err
	}
	req := validateRequest{BlueprintName: name, Type: EnvironmentTypeSandbox, Source: body}
	var result domain.Blueprint
	if err := m.client.Do(ctx, http.MethodPost, "validations/blueprints", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
