// Package store declares the persistent CRUD interfaces the scheduler
// depends on. These are treated as opaque externally-owned
// collaborators (the relational layer is explicitly out of scope); this
// package only pins the method set every implementation must satisfy.
// See pkg/store/bunt for a concrete embedded-KV implementation.
package store

import "github.com/danejoe001/transclient/pkg/model"

// BlockStore persists BlockEntity rows.
type BlockStore interface {
	GetByTask(taskID int64) ([]model.BlockEntity, error)
	GetByID(blockID int64) (model.BlockEntity, bool, error)
	CountByTaskAndState(taskID int64, state model.TaskState) (int, error)
	Update(block model.BlockEntity) error
	Add(block model.BlockEntity) (model.BlockEntity, error)
}

// TaskStore persists TaskEntity rows. Add assigns TaskID = max+1.
type TaskStore interface {
	GetByID(taskID int64) (model.TaskEntity, bool, error)
	Add(task model.TaskEntity) (model.TaskEntity, error)
	Update(task model.TaskEntity) error
	MaxTaskID() (int64, error)
}

// FileStore persists ClientFileEntity rows.
type FileStore interface {
	GetByID(fileID int64) (model.ClientFileEntity, bool, error)
	GetByMD5(md5Code string) (model.ClientFileEntity, bool, error)
	Add(file model.ClientFileEntity) (model.ClientFileEntity, error)
	Update(file model.ClientFileEntity) error
}
