package domain

// WorkingCopyState is a snapshot of the local git checkout. It must be recomputed after any
// git mutation since the orchestrator changes the repository it describes.
type WorkingCopyState struct {
	IsDetached         bool
	IsDirty            bool
	HasUntracked       bool
	ActiveBranchName   string
	ExistsOnRemote     bool
	IsSyncedWithRemote bool
}

// IsFullySyncedWithRemote reports whether the remote already sees exactly what is on disk.
func (s WorkingCopyState) IsFullySyncedWithRemote() bool {
	return !s.IsDirty && !s.HasUntracked && s.IsSyncedWithRemote
}

// NeedsLocalCommit reports whether uncommitted work has to be stashed onto a temp branch.
func (s WorkingCopyState) NeedsLocalCommit() bool {
	return s.IsDirty || s.HasUntracked
}
