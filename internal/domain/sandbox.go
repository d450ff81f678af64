package domain

import "slices"

// SandboxStatus is the lifecycle status reported by the remote service.
type SandboxStatus string

const (
	SandboxLaunching       SandboxStatus = "Launching"
	SandboxActive          SandboxStatus = "Active"
	SandboxActiveWithError SandboxStatus = "ActiveWithError"
	SandboxEnding          SandboxStatus = "Ending"
	SandboxEnded           SandboxStatus = "Ended"
	SandboxEndedWithError  SandboxStatus = "EndedWithError"
	SandboxNotFound        SandboxStatus = "NotFound"
)

var terminalStatuses = []SandboxStatus{
	SandboxActive,
	SandboxActiveWithError,
	SandboxEnded,
	SandboxEndedWithError,
	SandboxEnding,
	SandboxNotFound,
}

// IsTerminal reports whether the launch has stopped progressing.
func (s SandboxStatus) IsTerminal() bool {
	return slices.Contains(terminalStatuses, s)
}

// IsFailure reports whether a terminal status means the launch did not succeed.
func (s SandboxStatus) IsFailure() bool {
	return s.IsTerminal() && s != SandboxActive
}

// Launch checkpoint names.
const (
	CheckpointCreatingInfrastructure = "creating_infrastructure"
	CheckpointPreparingArtifacts     = "preparing_artifacts"
	CheckpointDeployingApplications  = "deploying_applications"
	CheckpointVerifyingEnvironment   = "verifying_environment"
)

// CheckpointOrder is the order in which the service advances checkpoints.
var CheckpointOrder = []string{
	CheckpointCreatingInfrastructure,
	CheckpointPreparingArtifacts,
	CheckpointDeployingApplications,
	CheckpointVerifyingEnvironment,
}

// CheckpointDone is the status of a finished checkpoint.
const CheckpointDone = "Done"

type ProgressCheckpoint struct {
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

type SandboxError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type Application struct {
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Shortcuts []string `json:"shortcuts,omitempty"`
}

type Service struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Sandbox is a running instance of a blueprint.
type Sandbox struct {
	ID                string                        `json:"id"`
	Name              string                        `json:"name"`
	BlueprintName     string                        `json:"blueprint_name"`
	Description       string                        `json:"description,omitempty"`
	Status            SandboxStatus                 `json:"sandbox_status"`
	Errors            []SandboxError                `json:"errors,omitempty"`
	LaunchingProgress map[string]ProgressCheckpoint `json:"launching_progress,omitempty"`
	Applications      []Application                 `json:"applications,omitempty"`
	Services          []Service                     `json:"services,omitempty"`
}

// Checkpoint returns the named progress checkpoint, zero-valued when absent.
func (s *Sandbox) Checkpoint(name string) ProgressCheckpoint {
	return s.LaunchingProgress[name]
}

// CheckpointsDone reports whether every named checkpoint has status Done.
func (s *Sandbox) CheckpointsDone(names ...string) bool {
	for _, name := range names {
		if s.Checkpoint(name).Status != CheckpointDone {
			return false
		}
	}
	return true
}

// StartRequest carries the parameters of a sandbox launch.
type StartRequest struct {
	SandboxName     string
	BlueprintName   string
	DurationMinutes int
	Branch          string
	Commit          string
	Artifacts       map[string]string
	Inputs          map[string]string
}
