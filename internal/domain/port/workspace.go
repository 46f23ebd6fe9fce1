package port

// Workspace is the per-job scratch directory. Release is idempotent and must
// run on every exit path.
type Workspace interface {
	Dir() string
	InputPath() string
	OutputDir() string
	Release() error
}

// Workspaces allocates exclusive per-job workspaces.
type Workspaces interface {
	Acquire(videoID string) (Workspace, error)
}
