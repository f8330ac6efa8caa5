package syncer

// State is the per-kind sync authority.
type State int

const (
	// LocalOnly keeps every change in the local store.
	LocalOnly State = iota
	// RemoteBacked mirrors changes to the remote sheet.
	RemoteBacked
)

func (s State) String() string {
	if s == RemoteBacked {
		return "remote_backed"
	}
	return "local_only"
}

// StatusCode classifies the outcome of a sync step.
type StatusCode string

const (
	StatusOK                 StatusCode = "ok"
	StatusLocalOnly          StatusCode = "local_only"
	StatusDegraded           StatusCode = "degraded"
	StatusSyncFailed         StatusCode = "sync_failed"
	StatusSyncInProgress     StatusCode = "sync_in_progress"
	StatusSessionInvalidated StatusCode = "session_invalidated"
)

// Status is the user-facing outcome of a load or remote mutation.
type Status struct {
	Code    StatusCode `json:"status"`
	Message string     `json:"message"`
}

// Failed reports whether the remote store did not receive the change.
func (s Status) Failed() bool {
	switch s.Code {
	case StatusDegraded, StatusSyncFailed, StatusSyncInProgress, StatusSessionInvalidated:
		return true
	}
	return false
}
