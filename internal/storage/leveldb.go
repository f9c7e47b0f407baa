package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

const (
	taskPrefix      = "tasks"
	submittedPrefix = "submitted_tasks"
	failedPrefix    = "failed_tasks"
)

// LevelDBStorage persists relay task state under three key spaces: a primary
// record per task plus submitted/failed index entries used by startup
// reconciliation and the operator API.
type LevelDBStorage struct {
	sync.Mutex
	db *leveldb.DB
}

func NewLevelDBStorage(path string) (*LevelDBStorage, error) {
	database, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStorage{db: database}, nil
}

var _ relay.Storage = (*LevelDBStorage)(nil)

func taskDBKey(prefix string, key relay.TaskKey) []byte {
	return []byte(fmt.Sprintf("%s/%s", prefix, key.String()))
}

// SaveTask upserts the primary record and moves the task between the state
// indexes atomically.
func (s *LevelDBStorage) SaveTask(rec relay.StoredTask) error {
	s.Lock()
	defer s.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal StoredTask: %w", err)
	}

	t, err := s.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("failed to open leveldb transaction: %w", err)
	}
	defer t.Discard()

	if err := t.Put(taskDBKey(taskPrefix, rec.Key), data, nil); err != nil {
		return fmt.Errorf("failed to save task record: %w", err)
	}
	if err := t.Delete(taskDBKey(submittedPrefix, rec.Key), nil); err != nil {
		return err
	}
	if err := t.Delete(taskDBKey(failedPrefix, rec.Key), nil); err != nil {
		return err
	}
	switch rec.State {
	case relay.StateSubmitted:
		if err := t.Put(taskDBKey(submittedPrefix, rec.Key), data, nil); err != nil {
			return fmt.Errorf("failed to index submitted task: %w", err)
		}
	case relay.StateFailed:
		if err := t.Put(taskDBKey(failedPrefix, rec.Key), data, nil); err != nil {
			return fmt.Errorf("failed to index failed task: %w", err)
		}
	}
	return t.Commit()
}

func (s *LevelDBStorage) GetTask(key relay.TaskKey) (*relay.StoredTask, bool, error) {
	s.Lock()
	defer s.Unlock()

	data, err := s.db.Get(taskDBKey(taskPrefix, key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed getting task from db: %w", err)
	}
	var rec relay.StoredTask
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal StoredTask: %w", err)
	}
	return &rec, true, nil
}

func (s *LevelDBStorage) DeleteTask(key relay.TaskKey) error {
	s.Lock()
	defer s.Unlock()

	t, err := s.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("failed to open leveldb transaction: %w", err)
	}
	defer t.Discard()

	for _, prefix := range []string{taskPrefix, submittedPrefix, failedPrefix} {
		if err := t.Delete(taskDBKey(prefix, key), nil); err != nil {
			return err
		}
	}
	return t.Commit()
}

func (s *LevelDBStorage) SubmittedTasks() ([]relay.StoredTask, error) {
	return s.tasksByPrefix(submittedPrefix)
}

func (s *LevelDBStorage) FailedTasks() ([]relay.StoredTask, error) {
	return s.tasksByPrefix(failedPrefix)
}

func (s *LevelDBStorage) tasksByPrefix(prefix string) ([]relay.StoredTask, error) {
	s.Lock()
	defer s.Unlock()

	iterator := s.db.NewIterator(util.BytesPrefix([]byte(prefix+"/")), nil)
	defer iterator.Release()
	var tasks []relay.StoredTask
	for iterator.Next() {
		var rec relay.StoredTask
		if err := json.Unmarshal(iterator.Value(), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal StoredTask: %w", err)
		}
		tasks = append(tasks, rec)
	}
	if err := iterator.Error(); err != nil {
		return nil, fmt.Errorf("iterator error: %w", err)
	}
	return tasks, nil
}

func (s *LevelDBStorage) Close() error {
	return s.db.Close()
}
