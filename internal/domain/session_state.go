package domain

import (
	"time"
)

// WorkflowStatus is the overall status of a temp branch creation transaction.
type WorkflowStatus string

const (
	WorkflowStatusPending    WorkflowStatus = "pending"
	WorkflowStatusRunning    WorkflowStatus = "running"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusFailed     WorkflowStatus = "failed"
	WorkflowStatusRolledBack WorkflowStatus = "rolled_back"
)

// OperationStatus is the status of a single git operation within the transaction.
type OperationStatus string

const (
	OperationStatusPending    OperationStatus = "pending"
	OperationStatusRunning    OperationStatus = "running"
	OperationStatusCompleted  OperationStatus = "completed"
	OperationStatusFailed     OperationStatus = "failed"
	OperationStatusRolledBack OperationStatus = "rolled_back"
)

// OperationType identifies a creation step.
type OperationType string

const (
	OperationTypePreserveEmptyDirs OperationType = "preserve_empty_dirs"
	OperationTypeStashChanges      OperationType = "stash_changes"
	OperationTypeCreateBranch      OperationType = "create_branch"
	OperationTypeCommitChanges     OperationType = "commit_changes"
	OperationTypePushBranch        OperationType = "push_branch"
)

// SessionState is the persisted record of a branch session. It outlives the process so that an
// interrupted session can be recovered later.
type SessionState struct {
	SessionID  string             `json:"session_id"`
	StartedAt  time.Time          `json:"started_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Branch     *TempBranchSession `json:"branch"`
	Operations []OperationRecord  `json:"operations"`
	Status     WorkflowStatus     `json:"status"`
	Error      string             `json:"error,omitempty"`
}

// OperationRecord is a single step of the creation transaction.
type OperationRecord struct {
	ID           string          `json:"id"`
	Type         OperationType   `json:"type"`
	Status       OperationStatus `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	RollbackData map[string]any  `json:"rollback_data,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// NewSessionState creates a pending record for session.
func NewSessionState(session *TempBranchSession) *SessionState {
	now := time.Now()
	return &SessionState{
		SessionID:  session.ID,
		StartedAt:  now,
		UpdatedAt:  now,
		Branch:     session,
		Operations: []OperationRecord{},
		Status:     WorkflowStatusPending,
	}
}

// NeedsRecovery reports whether teardown work is still outstanding.
func (ss *SessionState) NeedsRecovery() bool {
	if ss.Branch == nil {
		return false
	}
	return !ss.Branch.Phase.IsFinal() && ss.Branch.UsesTempBranch()
}

// AddOperation appends a pending operation record.
func (ss *SessionState) AddOperation(opType OperationType) *OperationRecord {
	op := OperationRecord{
		ID:     string(opType) + "_" + time.Now().Format("20060102150405.000"),
		Type:   opType,
		Status: OperationStatusPending,
	}
	ss.Operations = append(ss.Operations, op)
	ss.touch()
	return &ss.Operations[len(ss.Operations)-1]
}

// CompletedOperations returns completed operations, most recent first.
func (ss *SessionState) CompletedOperations() []OperationRecord {
	var completed []OperationRecord
	for i := len(ss.Operations) - 1; i >= 0; i-- {
		if ss.Operations[i].Status == OperationStatusCompleted {
			completed = append(completed, ss.Operations[i])
		}
	}
	return completed
}

// Operation returns the record of opType, or nil.
func (ss *SessionState) Operation(opType OperationType) *OperationRecord {
	for i := range ss.Operations {
		if ss.Operations[i].Type == opType {
			return &ss.Operations[i]
		}
	}
	return nil
}

func (ss *SessionState) MarkOperationStarted(opType OperationType) {
	if op := ss.find(opType, OperationStatusPending); op != nil {
		op.Status = OperationStatusRunning
		op.StartedAt = time.Now()
		ss.touch()
	}
}

func (ss *SessionState) MarkOperationCompleted(opType OperationType, rollbackData map[string]any) {
	if op := ss.find(opType, OperationStatusRunning); op != nil {
		now := time.Now()
		op.Status = OperationStatusCompleted
		op.CompletedAt = &now
		op.RollbackData = rollbackData
		ss.touch()
	}
}

func (ss *SessionState) MarkOperationFailed(opType OperationType, err error) {
	if op := ss.find(opType, OperationStatusRunning); op != nil {
		now := time.Now()
		op.Status = OperationStatusFailed
		op.CompletedAt = &now
		op.Error = err.Error()
	}
	ss.Status = WorkflowStatusFailed
	ss.Error = err.Error()
	ss.touch()
}

func (ss *SessionState) MarkOperationRolledBack(opType OperationType) {
	if op := ss.find(opType, OperationStatusCompleted); op != nil {
		op.Status = OperationStatusRolledBack
		ss.touch()
	}
}

func (ss *SessionState) find(opType OperationType, status OperationStatus) *OperationRecord {
	for i := range ss.Operations {
		if ss.Operations[i].Type == opType && ss.Operations[i].Status == status {
			return &ss.Operations[i]
		}
	}
	return nil
}

func (ss *SessionState) touch() {
	ss.UpdatedAt = time.Now()
}
