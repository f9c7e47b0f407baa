package relay

import "time"

// StoredTask is the durable record of a task's identity and last known
// state, enough to resume or reconcile after a restart.
type StoredTask struct {
	Key       TaskKey   `json:"key"`
	State     TaskState `json:"state"`
	Attempts  uint      `json:"attempts"`
	TxHash    string    `json:"tx_hash,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage persists task state across restarts. Implementations must be safe
// for concurrent use.
type Storage interface {
	SaveTask(rec StoredTask) error
	GetTask(key TaskKey) (*StoredTask, bool, error)
	DeleteTask(key TaskKey) error
	// SubmittedTasks returns tasks whose last known state is Submitted;
	// these are reconciled against destination state on startup.
	SubmittedTasks() ([]StoredTask, error)
	// FailedTasks returns permanently failed tasks for operator inspection.
	FailedTasks() ([]StoredTask, error)
	Close() error
}
