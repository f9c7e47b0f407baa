package storage

import "github.com/interchainlabs/eureka-relayer/internal/relay"

// DummyStorage is used when persistence is disabled: nothing is ever stored
// and reconciliation finds no leftover tasks.
type DummyStorage struct{}

func NewDummyStorage() *DummyStorage { return &DummyStorage{} }

var _ relay.Storage = (*DummyStorage)(nil)

func (d *DummyStorage) SaveTask(relay.StoredTask) error { return nil }

func (d *DummyStorage) GetTask(relay.TaskKey) (*relay.StoredTask, bool, error) {
	return nil, false, nil
}

func (d *DummyStorage) DeleteTask(relay.TaskKey) error { return nil }

func (d *DummyStorage) SubmittedTasks() ([]relay.StoredTask, error) { return nil, nil }

func (d *DummyStorage) FailedTasks() ([]relay.StoredTask, error) { return nil, nil }

func (d *DummyStorage) Close() error { return nil }
