package orchestrator

import "github.com/QualiSystems/colony-cli/internal/domain"

// ReclaimPolicy decides when the backend no longer reads the temp branch of a launching sandbox.
type ReclaimPolicy interface {
	Name() string
	CanReclaim(sandbox *domain.Sandbox) bool
}

// CheckpointPolicy allows reclaiming once every listed checkpoint is Done.
type CheckpointPolicy struct {
	name        string
	checkpoints []string
}

func (p CheckpointPolicy) Name() string { return p.name }

func (p CheckpointPolicy) CanReclaim(sandbox *domain.Sandbox) bool {
	return sandbox != nil && sandbox.CheckpointsDone(p.checkpoints...)
}

var (
	// StandardReclaimPolicy waits for artifacts and infrastructure.
	StandardReclaimPolicy = CheckpointPolicy{
		name: "standard",
		checkpoints: []string{
			domain.CheckpointPreparingArtifacts,
			domain.CheckpointCreatingInfrastructure,
		},
	}
	// KubernetesReclaimPolicy also waits for application deployment, during which cluster
	// blueprints still pull from the branch.
	KubernetesReclaimPolicy = CheckpointPolicy{
		name: "kubernetes",
		checkpoints: []string{
			domain.CheckpointPreparingArtifacts,
			domain.CheckpointCreatingInfrastructure,
			domain.CheckpointDeployingApplications,
		},
	}
)

// PolicyFor selects the policy for a local blueprint definition. A nil spec gets the standard policy.
func PolicyFor(spec *domain.BlueprintSpec) ReclaimPolicy {
	if spec != nil && spec.IsKubernetes() {
		return KubernetesReclaimPolicy
	}
	return StandardReclaimPolicy
}
