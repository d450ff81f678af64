package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/QualiSystems/colony-cli/internal/domain"
)

// Sandbox list filters accepted by the service.
const (
	FilterMy   = "my"
	FilterAll  = "all"
	FilterAuto = "auto"
)

// DefaultListCount is the number of sandboxes returned by List when no count is given.
const DefaultListCount = 25

// SandboxesManager launches and inspects sandboxes.
type SandboxesManager interface {
	Start(ctx context.Context, req domain.StartRequest) (string, error)
	Get(ctx context.Context, id string) (*domain.Sandbox, error)
	End(ctx context.Context, id string) error
	List(ctx context.Context, filter string, count int) ([]domain.Sandbox, error)
}

type sandboxesManager struct {
	client *Client
}

// NewSandboxesManager returns a manager backed by client.
func NewSandboxesManager(client *Client) SandboxesManager {
	return &sandboxesManager{client: client}
}

type startRequest struct {
	SandboxName   string            `json:"sandbox_name"`
	BlueprintName string            `json:"blueprint_name"`
	Duration      string            `json:"duration"`
	Inputs        map[string]string `json:"inputs"`
	Artifacts     map[string]string `json:"artifacts"`
	Source        *sourceBody       `json:"source,omitempty"`
}

// IsoDuration renders minutes as an ISO-8601 duration.
func IsoDuration(minutes int) string {
	return fmt.Sprintf("PT%dM", minutes)
}

// Start launches a sandbox and returns its id.
func (m *sandboxesManager) Start(ctx context.Context, req domain.StartRequest) (string, error) {
	if req.Commit != "" && req.Branch == "" {
		return "", domain.UsageError("Commit is passed without branch")
	}
	source, err := newSourceBody(req.Branch, req.Commit)
	if err != nil {
		return "", err
	}
	body := startRequest{
		SandboxName:   req.SandboxName,
		BlueprintName: req.BlueprintName,
		Duration:      IsoDuration(req.DurationMinutes),
		Inputs:        req.Inputs,
		Artifacts:     req.Artifacts,
		Source:        source,
	}
	var result struct {
		ID string `json:"id"`
	}
	if err := m.client.Do(ctx, http.MethodPost, "sandbox", nil, body, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", domain.NewError(domain.ErrRemoteCallFailed, "start sandbox", errors.New("response has no sandbox id"))
	}
	return result.ID, nil
}

func (m *sandboxesManager) Get(ctx context.Context, id string) (*domain.Sandbox, error) {
	var sandbox domain.Sandbox
	if err := m.client.Do(ctx, http.MethodGet, "sandbox/"+id, nil, nil, &sandbox); err != nil {
		return nil, err
	}
	return &sandbox, nil
}

// End deletes the sandbox after confirming it exists.
func (m *sandboxesManager) End(ctx context.Context, id string) error {
	if _, err := m.Get(ctx, id); err != nil {
		return fmt.Errorf("unable to end sandbox with ID %s: %w", id, err)
	}
	return m.client.Do(ctx, http.MethodDelete, "sandbox/"+id, nil, nil, nil)
}

func (m *sandboxesManager) List(ctx context.Context, filter string, count int) ([]domain.Sandbox, error) {
	if filter == "" {
		filter = FilterMy
	}
	if count <= 0 {
		count = DefaultListCount
	}
	query := url.Values{}
	query.Set("filter", filter)
	query.Set("count", strconv.Itoa(count))
	var sandboxes []domain.Sandbox
	if err := m.client.Do(ctx, http.MethodGet, "sandbox", query, nil, &sandboxes); err != nil {
		return nil, err
	}
	return sandboxes, nil
}
