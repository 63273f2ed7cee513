// Package bunt implements store.BlockStore, store.TaskStore and
// store.FileStore over a single embedded github.com/tidwall/buntdb
// database file. Grounded on the retrieved pack's use of buntdb as a
// lightweight embedded KV (ghjramos-aistore vendors it for exactly this
// kind of small, self-contained persistence need). Records are
// JSON-encoded; each entity kind lives under its own key prefix and gets
// its own Go type so each can independently satisfy its store
// interface, sharing one underlying database handle.
package bunt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/danejoe001/transclient/pkg/model"
)

const (
	taskPrefix  = "task:"
	blockPrefix = "block:"
	filePrefix  = "file:"
)

// DB opens the shared buntdb handle and exposes one store per entity
// kind, all backed by the same file.
type DB struct {
	db *buntdb.DB

	Tasks  *TaskStore
	Blocks *BlockStore
	Files  *FileStore
}

// Open creates or reopens a bunt-backed DB at path. Use ":memory:" for
// an ephemeral, process-local store (handy for tests).
func Open(path string) (*DB, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bunt: open %q: %w", path, err)
	}
	return &DB{
		db:     db,
		Tasks:  &TaskStore{db: db},
		Blocks: &BlockStore{db: db},
		Files:  &FileStore{db: db},
	}, nil
}

func (d *DB) Close() error { return d.db.Close() }

func taskKey(id int64) string  { return taskPrefix + strconv.FormatInt(id, 10) }
func blockKey(id int64) string { return blockPrefix + strconv.FormatInt(id, 10) }
func fileKey(id int64) string  { return filePrefix + strconv.FormatInt(id, 10) }

func maxSuffixID(db *buntdb.DB, prefix string) (int64, error) {
	var max int64
	err := db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			id, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
			if err == nil && id > max {
				max = id
			}
			return true
		})
	})
	return max, err
}

// --- TaskStore ---

// TaskStore implements store.TaskStore.
type TaskStore struct{ db *buntdb.DB }

func (s *TaskStore) GetByID(taskID int64) (model.TaskEntity, bool, error) {
	var out model.TaskEntity
	found := false
	err := s.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(taskKey(taskID))
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return json.Unmarshal([]byte(val), &out)
	})
	return out, found, err
}

func (s *TaskStore) MaxTaskID() (int64, error) { return maxSuffixID(s.db, taskPrefix) }

func (s *TaskStore) Add(task model.TaskEntity) (model.TaskEntity, error) {
	max, err := s.MaxTaskID()
	if err != nil {
		return model.TaskEntity{}, err
	}
	task.TaskID = max + 1
	if err := s.put(task); err != nil {
		return model.TaskEntity{}, err
	}
	return task, nil
}

func (s *TaskStore) Update(task model.TaskEntity) error { return s.put(task) }

func (s *TaskStore) put(task model.TaskEntity) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(taskKey(task.TaskID), string(data), nil)
		return err
	})
}

// --- BlockStore ---

// BlockStore implements store.BlockStore.
type BlockStore struct{ db *buntdb.DB }

func (s *BlockStore) GetByTask(taskID int64) ([]model.BlockEntity, error) {
	var out []model.BlockEntity
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(blockPrefix+"*", func(key, value string) bool {
			var b model.BlockEntity
			if err := json.Unmarshal([]byte(value), &b); err == nil && b.TaskID == taskID {
				out = append(out, b)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sortBlocksByOffset(out)
	return out, nil
}

func sortBlocksByOffset(blocks []model.BlockEntity) {
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && blocks[j].Offset < blocks[j-1].Offset; j-- {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
		}
	}
}

func (s *BlockStore) GetByID(blockID int64) (model.BlockEntity, bool, error) {
	var out model.BlockEntity
	found := false
	err := s.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(blockKey(blockID))
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return json.Unmarshal([]byte(val), &out)
	})
	return out, found, err
}

func (s *BlockStore) CountByTaskAndState(taskID int64, state model.TaskState) (int, error) {
	count := 0
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(blockPrefix+"*", func(key, value string) bool {
			var b model.BlockEntity
			if err := json.Unmarshal([]byte(value), &b); err == nil && b.TaskID == taskID && b.State == state {
				count++
			}
			return true
		})
	})
	return count, err
}

func (s *BlockStore) Add(block model.BlockEntity) (model.BlockEntity, error) {
	max, err := maxSuffixID(s.db, blockPrefix)
	if err != nil {
		return model.BlockEntity{}, err
	}
	block.BlockID = max + 1
	if err := s.put(block); err != nil {
		return model.BlockEntity{}, err
	}
	return block, nil
}

func (s *BlockStore) Update(block model.BlockEntity) error { return s.put(block) }

func (s *BlockStore) put(block model.BlockEntity) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(blockKey(block.BlockID), string(data), nil)
		return err
	})
}

// --- FileStore ---

// FileStore implements store.FileStore.
type FileStore struct{ db *buntdb.DB }

func (s *FileStore) GetByID(fileID int64) (model.ClientFileEntity, bool, error) {
	var out model.ClientFileEntity
	found := false
	err := s.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(fileKey(fileID))
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return json.Unmarshal([]byte(val), &out)
	})
	return out, found, err
}

func (s *FileStore) GetByMD5(md5Code string) (model.ClientFileEntity, bool, error) {
	var out model.ClientFileEntity
	found := false
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(filePrefix+"*", func(key, value string) bool {
			var f model.ClientFileEntity
			if err := json.Unmarshal([]byte(value), &f); err == nil && md5Code != "" && f.MD5Code == md5Code {
				out = f
				found = true
				return false
			}
			return true
		})
	})
	return out, found, err
}

func (s *FileStore) Add(file model.ClientFileEntity) (model.ClientFileEntity, error) {
	max, err := maxSuffixID(s.db, filePrefix)
	if err != nil {
		return model.ClientFileEntity{}, err
	}
	file.FileID = max + 1
	if err := s.put(file); err != nil {
		return model.ClientFileEntity{}, err
	}
	return file, nil
}

func (s *FileStore) Update(file model.ClientFileEntity) error { return s.put(file) }

func (s *FileStore) put(file model.ClientFileEntity) error {
	data, err := json.Marshal(file)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(fileKey(file.FileID), string(data), nil)
		return err
	})
}
