package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/orchestrator"
	"github.com/QualiSystems/colony-cli/internal/output"
	"github.com/QualiSystems/colony-cli/internal/repository"
	"github.com/QualiSystems/colony-cli/internal/service"
	"go.uber.org/zap"
)

const (
	// DefaultDurationMinutes is the default of the --duration flag.
	DefaultDurationMinutes = 120
	// DefaultTimeout bounds waiting for a launch when no timeout is given.
	DefaultTimeout = orchestrator.DefaultLaunchTimeout

	sandboxNameTimeLayout = "Jan02-15:04:05"
)

type StartSandboxInput struct {
	BlueprintName   string
	SandboxName     string
	DurationMinutes int
	Branch          string
	Commit          string
	Inputs          map[string]string
	Artifacts       map[string]string
	// Wait blocks until the sandbox reaches a terminal status.
	Wait    bool
	Timeout time.Duration
}

type StartSandboxResult struct {
	SandboxID   string
	SandboxName string
	// Waited is nil when the command returned right after the start request.
	Waited *orchestrator.WaitResult
}

// StartSandboxUseCase contains the logic for the sandbox start command.
type StartSandboxUseCase struct {
	Sandboxes service.SandboxesManager
	Branches  *orchestrator.TempBranchOrchestrator
	// Blueprints is the local blueprint checkout; nil outside of a blueprint repository.
	Blueprints   repository.BlueprintRepository
	Sink         output.Sink
	Logger       *zap.Logger
	PollInterval time.Duration
	Now          func() time.Time
}

// Execute starts the sandbox from the validation branch and, depending on the wait policy, polls
// it until the temp branch can be reclaimed or the launch finishes.
func (uc *StartSandboxUseCase) Execute(ctx context.Context, in StartSandboxInput) (res *StartSandboxResult, err error) {
	sink := sinkOrNop(uc.Sink)
	logger := uc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validateStartInput(&in); err != nil {
		return nil, err
	}
	spec := uc.localSpec(in.BlueprintName, logger)

	scope, err := uc.Branches.Acquire(ctx, in.Branch)
	if err != nil {
		return nil, err
	}
	defer releaseScope(ctx, scope, sink, &err)

	req := domain.StartRequest{
		SandboxName:     in.SandboxName,
		BlueprintName:   in.BlueprintName,
		DurationMinutes: in.DurationMinutes,
		Branch:          scope.ValidationBranch(),
		Commit:          in.Commit,
		Inputs:          in.Inputs,
		Artifacts:       in.Artifacts,
	}
	if req.SandboxName == "" {
		req.SandboxName = GenerateSandboxName(in.BlueprintName, scope.WorkingBranch(), scope.UsesTempBranch(), uc.now())
	}
	if in.Branch == "" && spec != nil {
		req.Inputs = withDefaults(req.Inputs, spec.Inputs, "input", logger)
		req.Artifacts = withDefaults(req.Artifacts, spec.Artifacts, "artifact", logger)
	}
	id, err := uc.Sandboxes.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	res = &StartSandboxResult{SandboxID: id, SandboxName: req.SandboxName}

	if !in.Wait && !scope.TempBranchExists() {
		return res, nil
	}
	if scope.TempBranchExists() {
		if err := scope.RevertLocal(ctx); err != nil {
			return res, err
		}
		logger.Debug("waiting before deleting temp branch", zap.String("sandbox", id))
		sink.FYI("Canceling or exiting before the process completes may cause the sandbox to fail")
		sink.Info("Waiting for the Sandbox to start with local changes. This may take some time.")
	} else {
		sink.Info("Waiting for the Sandbox to start. This may take some time.")
	}

	waiter := orchestrator.NewLaunchWaiter(uc.Sandboxes, uc.PollInterval, sink, logger)
	waited, err := waiter.Wait(ctx, orchestrator.WaitOptions{
		SandboxID:             id,
		Timeout:               in.Timeout,
		WaitForFullCompletion: in.Wait,
		Policy:                orchestrator.PolicyFor(spec),
		Branch:                scope,
	})
	res.Waited = waited
	if err != nil {
		return res, fmt.Errorf("waiting for sandbox %s: %w", id, err)
	}
	if waited.TimedOut {
		if scope.TempBranchExists() {
			if reclaimErr := scope.ReclaimTempBranch(ctx); reclaimErr != nil {
				sink.Warn("Failed to delete temp branch: %v", reclaimErr)
			}
		}
		return res, domain.NewError(domain.ErrTimedOut,
			fmt.Sprintf("Timeout Reached - Sandbox %s was not active after %d minutes", id, int(in.Timeout/time.Minute)), nil)
	}
	if in.Wait && waited.Sandbox != nil && waited.Sandbox.Status.IsFailure() {
		return res, domain.NewError(domain.ErrRemoteCallFailed,
			fmt.Sprintf("Sandbox %s started with %s state", id, waited.Sandbox.Status),
			sandboxErrors(waited.Sandbox))
	}
	return res, nil
}

func validateStartInput(in *StartSandboxInput) error {
	if in.BlueprintName == "" {
		return domain.UsageError("blueprint name is required")
	}
	if err := orchestrator.ValidateSource(in.Branch, in.Commit); err != nil {
		return err
	}
	if in.DurationMinutes <= 0 {
		return domain.UsageError("Duration must be positive")
	}
	switch {
	case in.Timeout < 0:
		return domain.UsageError("Timeout must be positive")
	case in.Timeout == 0:
		in.Timeout = DefaultTimeout
	}
	return nil
}

// localSpec reads the blueprint definition from the local checkout, if there is one.
func (uc *StartSandboxUseCase) localSpec(name string, logger *zap.Logger) *domain.BlueprintSpec {
	if uc.Blueprints == nil || !uc.Blueprints.Has(name) {
		logger.Debug("no local definition for blueprint", zap.String("blueprint", name))
		return nil
	}
	spec, err := uc.Blueprints.Spec(name)
	if err != nil {
		logger.Debug("unable to read local blueprint", zap.String("blueprint", name), zap.Error(err))
		return nil
	}
	return spec
}

func (uc *StartSandboxUseCase) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

// GenerateSandboxName returns "<blueprint>-<branch>-<time>", with "localchanges" in place of the
// branch when a temp branch carries local state.
func GenerateSandboxName(blueprint, workingBranch string, usesTempBranch bool, now time.Time) string {
	var b strings.Builder
	b.WriteString(blueprint)
	b.WriteByte('-')
	switch {
	case usesTempBranch:
		b.WriteString("localchanges-")
	case workingBranch != "":
		b.WriteString(workingBranch + "-")
	}
	b.WriteString(now.Format(sandboxNameTimeLayout))
	return b.String()
}

// withDefaults adds local defaults for keys missing from given.
func withDefaults(given, defaults map[string]string, kind string, logger *zap.Logger) map[string]string {
	merged := make(map[string]string, len(given)+len(defaults))
	for k, v := range given {
		merged[k] = v
	}
	for k, v := range defaults {
		if _, ok := merged[k]; ok || v == "" {
			continue
		}
		logger.Debug("using local default", zap.String("kind", kind), zap.String("name", k), zap.String("value", v))
		merged[k] = v
	}
	return merged
}

func sandboxErrors(sb *domain.Sandbox) error {
	var errs []error
	for _, e := range sb.Errors {
		errs = append(errs, errors.New(e.Message))
	}
	return errors.Join(errs...)
}
