package orchestrator

import (
	"context"
	"time"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/output"
	"go.uber.org/zap"
)

// SandboxGetter fetches the current view of a sandbox.
type SandboxGetter interface {
	Get(ctx context.Context, id string) (*domain.Sandbox, error)
}

// BranchReclaimer is the part of a branch scope the waiter needs.
type BranchReclaimer interface {
	TempBranchExists() bool
	ReclaimTempBranch(ctx context.Context) error
}

// WaitOptions configures one wait.
type WaitOptions struct {
	SandboxID string
	Timeout   time.Duration
	// WaitForFullCompletion keeps polling after an early reclaim until a terminal status.
	WaitForFullCompletion bool
	Policy                ReclaimPolicy
	// Branch may be nil when no temp branch is involved.
	Branch BranchReclaimer
}

// WaitResult describes how a wait ended.
type WaitResult struct {
	Sandbox         *domain.Sandbox
	TimedOut        bool
	BranchReclaimed bool
	Polls           int
	Elapsed         time.Duration
}

// Terminal reports whether the last seen status is terminal.
func (r *WaitResult) Terminal() bool {
	return r.Sandbox != nil && r.Sandbox.Status.IsTerminal()
}

// LaunchWaiter polls a launching sandbox and reclaims the temp branch at the earliest safe point.
type LaunchWaiter struct {
	sandboxes SandboxGetter
	interval  time.Duration
	sink      output.Sink
	logger    *zap.Logger
	now       func() time.Time
}

// NewLaunchWaiter creates a waiter polling every interval.
func NewLaunchWaiter(sandboxes SandboxGetter, interval time.Duration, sink output.Sink, logger *zap.Logger) *LaunchWaiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if sink == nil {
		sink = output.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LaunchWaiter{sandboxes: sandboxes, interval: interval, sink: sink, logger: logger, now: time.Now}
}

// Wait polls until a terminal status, an early reclaim when full completion is not requested,
// or the timeout. Status fetch errors are logged and polling continues. A timeout is reported
// through WaitResult.TimedOut; cancellation of ctx is returned as an error.
func (w *LaunchWaiter) Wait(ctx context.Context, opts WaitOptions) (*WaitResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultLaunchTimeout
	}
	policy := opts.Policy
	if policy == nil {
		policy = StandardReclaimPolicy
	}
	result := &WaitResult{}
	start := w.now()
	for {
		result.Polls++
		sandbox, err := w.sandboxes.Get(ctx, opts.SandboxID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			w.logger.Debug("failed to get sandbox status", zap.String("sandbox", opts.SandboxID), zap.Error(err))
		default:
			result.Sandbox = sandbox
			w.logger.Debug("sandbox status",
				zap.String("sandbox", opts.SandboxID),
				zap.String("status", string(sandbox.Status)),
				zap.Int("poll", result.Polls),
			)
			if sandbox.Status.IsTerminal() {
				result.Elapsed = w.now().Sub(start)
				return result, nil
			}
			if opts.Branch != nil && opts.Branch.TempBranchExists() && policy.CanReclaim(sandbox) {
				w.logger.Debug("reclaiming temp branch", zap.String("policy", policy.Name()))
				if err := opts.Branch.ReclaimTempBranch(ctx); err != nil {
					w.sink.Warn("Failed to delete temp branch early: %v", err)
				} else {
					result.BranchReclaimed = true
				}
				if !opts.WaitForFullCompletion {
					result.Elapsed = w.now().Sub(start)
					return result, nil
				}
			}
		}
		elapsed := w.now().Sub(start)
		if elapsed >= timeout {
			result.Elapsed = elapsed
			result.TimedOut = true
			return result, nil
		}
		timer := time.NewTimer(min(w.interval, timeout-elapsed))
		select {
		case <-ctx.Done():
			timer.Stop()
			result.Elapsed = w.now().Sub(start)
			return result, ctx.Err()
		case <-timer.C:
		}
	}
}
