package domain

import "strings"

// TempBranchPrefix marks branches owned by the CLI.
const TempBranchPrefix = "tmp-colony-"

// BranchPhase is the lifecycle position of a TempBranchSession.
type BranchPhase string

const (
	PhaseIdle           BranchPhase = "idle"
	PhasePreparing      BranchPhase = "preparing"
	PhaseLocalCommitted BranchPhase = "local_committed"
	PhaseRemotePushed   BranchPhase = "remote_pushed"
	PhaseInUse          BranchPhase = "in_use"
	PhaseLocalReverted  BranchPhase = "local_reverted"
	PhaseRemoteDeleted  BranchPhase = "remote_deleted"
	PhaseDone           BranchPhase = "done"
	PhaseCreateFailed   BranchPhase = "create_failed"
	PhaseRevertFailed   BranchPhase = "revert_failed"
)

// IsFinal reports whether no further teardown work is expected.
func (p BranchPhase) IsFinal() bool {
	return p == PhaseDone || p == PhaseCreateFailed
}

// TempBranchSession tracks one acquisition of a validation branch.
//
// TempBranchExists implies TempBranchName is set and was pushed. TempBranchReverted and
// StashPopped never go back to false once set.
type TempBranchSession struct {
	ID                 string      `json:"id"`
	WorkingBranch      string      `json:"working_branch"`
	TempBranchName     string      `json:"temp_branch_name,omitempty"`
	Stashed            bool        `json:"stashed"`
	TempBranchExists   bool        `json:"temp_branch_exists"`
	TempBranchReverted bool        `json:"temp_branch_reverted"`
	StashPopped        bool        `json:"stash_popped"`
	Phase              BranchPhase `json:"phase"`
}

// ValidationBranch is the branch name handed to the remote API.
func (s *TempBranchSession) ValidationBranch() string {
	if s.TempBranchName != "" {
		return s.TempBranchName
	}
	return s.WorkingBranch
}

// UsesTempBranch reports whether a temp branch was generated for this session.
func (s *TempBranchSession) UsesTempBranch() bool {
	return s.TempBranchName != ""
}

// IsTempBranchName reports whether name carries the temp branch prefix.
func IsTempBranchName(name string) bool {
	return strings.HasPrefix(name, TempBranchPrefix)
}
