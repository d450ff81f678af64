package usecase

import (
	"context"

	"github.com/QualiSystems/colony-cli/internal/orchestrator"
	"github.com/QualiSystems/colony-cli/internal/output"
)

// releaseScope tears the branch scope down and folds a teardown failure into err. When the
// command already failed, the teardown failure is only reported.
func releaseScope(ctx context.Context, scope *orchestrator.BranchScope, sink output.Sink, err *error) {
	relErr := scope.Release(ctx)
	if relErr == nil {
		return
	}
	if *err == nil {
		*err = relErr
		return
	}
	sink.Warn("Failed to clean up temp branch %s: %v", scope.ValidationBranch(), relErr)
}

func sinkOrNop(sink output.Sink) output.Sink {
	if sink == nil {
		return output.Nop()
	}
	return sink
}
