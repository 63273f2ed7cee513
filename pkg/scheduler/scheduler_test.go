package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danejoe001/transclient/pkg/correlate"
	"github.com/danejoe001/transclient/pkg/envelope"
	"github.com/danejoe001/transclient/pkg/model"
	"github.com/danejoe001/transclient/pkg/store/bunt"
)

func newTestScheduler(t *testing.T) (*Scheduler, *bunt.DB, *[][]byte) {
	t.Helper()
	db, err := bunt.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var sent [][]byte
	send := func(frameBytes []byte) error {
		sent = append(sent, frameBytes)
		return nil
	}
	sched := New(correlate.New(time.Minute), db.Blocks, db.Tasks, send, time.Millisecond)
	return sched, db, &sent
}

func planAndAddBlocks(t *testing.T, db *bunt.DB, taskID int64, fileSize, blockSize int64) []model.BlockEntity {
	t.Helper()
	planned := model.PlanBlocks(fileSize, blockSize)
	out := make([]model.BlockEntity, 0, len(planned))
	for _, b := range planned {
		b.TaskID = taskID
		added, err := db.Blocks.Add(b)
		if err != nil {
			t.Fatalf("add block: %v", err)
		}
		out = append(out, added)
	}
	return out
}

func TestSchedulerCompletesSingleBlockFile(t *testing.T) {
	sched, db, _ := newTestScheduler(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	task, err := db.Tasks.Add(model.TaskEntity{FileID: 1, SavedPath: dest})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	blocks := planAndAddBlocks(t, db, task.TaskID, 100, 1024)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}

	if err := sched.OnTaskEnqueue(task, blocks, dest); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	now := time.Now()
	if err := sched.OnBlockRequest(now); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sched.QueueDepth() != 0 {
		t.Fatalf("queue depth = %d, want 0", sched.QueueDepth())
	}

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	body := envelope.BlockResponseBody{
		BlockID: blocks[0].BlockID, FileID: 1, TaskID: task.TaskID,
		Offset: 0, BlockSize: 100, Data: payload,
	}
	if err := sched.OnBlockResponse(1, body); err != nil {
		t.Fatalf("response: %v", err)
	}

	select {
	case got := <-sched.TaskCompleted():
		if got != task.TaskID {
			t.Errorf("completed task = %d, want %d", got, task.TaskID)
		}
	default:
		t.Fatal("expected a TaskCompleted notification")
	}

	written, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if len(written) != 100 {
		t.Fatalf("wrote %d bytes, want 100", len(written))
	}
}

func TestSchedulerMultiBlockCompletesOnlyWhenAllBlocksDone(t *testing.T) {
	sched, db, _ := newTestScheduler(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	task, _ := db.Tasks.Add(model.TaskEntity{FileID: 2, SavedPath: dest})
	blocks := planAndAddBlocks(t, db, task.TaskID, 2500, 1024)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if err := sched.OnTaskEnqueue(task, blocks, dest); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := sched.OnBlockRequest(now.Add(time.Duration(i) * time.Millisecond * 2)); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}

	// requestID N corresponds to the Nth dispatch above, i.e. blocks[N-1]
	// in FIFO order. Respond out of that order to exercise the
	// scheduler's tolerance for reordered block responses.
	respond := func(id int, b model.BlockEntity) {
		data := make([]byte, b.BlockSize)
		body := envelope.BlockResponseBody{
			BlockID: b.BlockID, FileID: 2, TaskID: task.TaskID,
			Offset: b.Offset, BlockSize: b.BlockSize, Data: data,
		}
		if err := sched.OnBlockResponse(uint64(id), body); err != nil {
			t.Fatalf("response %d: %v", id, err)
		}
	}

	respond(3, blocks[2])
	select {
	case <-sched.TaskCompleted():
		t.Fatal("task should not be complete after only 1 of 3 blocks")
	default:
	}

	respond(1, blocks[0])
	respond(2, blocks[1])

	select {
	case got := <-sched.TaskCompleted():
		if got != task.TaskID {
			t.Errorf("completed task = %d, want %d", got, task.TaskID)
		}
	default:
		t.Fatal("expected completion after the last block")
	}
}

func TestSchedulerShortBlockFailsTaskWithoutRetry(t *testing.T) {
	sched, db, sent := newTestScheduler(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	task, _ := db.Tasks.Add(model.TaskEntity{FileID: 3, SavedPath: dest})
	blocks := planAndAddBlocks(t, db, task.TaskID, 100, 1024)
	if err := sched.OnTaskEnqueue(task, blocks, dest); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := sched.OnBlockRequest(time.Now()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	dispatchedCount := len(*sent)

	body := envelope.BlockResponseBody{
		BlockID: blocks[0].BlockID, FileID: 3, TaskID: task.TaskID,
		Offset: 0, BlockSize: 100, Data: make([]byte, 10),
	}
	if err := sched.OnBlockResponse(1, body); err != nil {
		t.Fatalf("response: %v", err)
	}

	select {
	case <-sched.TaskCompleted():
		t.Fatal("a task that finishes with a Failed block must never fire TaskCompleted")
	default:
	}

	task, ok, err := db.Tasks.GetByID(task.TaskID)
	if err != nil || !ok {
		t.Fatalf("get task: %v %v", ok, err)
	}
	if task.State != model.StateFailed {
		t.Errorf("task state = %v, want Failed", task.State)
	}

	got, ok, err := db.Blocks.GetByID(blocks[0].BlockID)
	if err != nil || !ok {
		t.Fatalf("get block: %v %v", ok, err)
	}
	if got.State != model.StateFailed {
		t.Errorf("block state = %v, want Failed", got.State)
	}
	if len(*sent) != dispatchedCount {
		t.Errorf("expected no retry dispatch, sent count grew from %d to %d", dispatchedCount, len(*sent))
	}
}

func TestSchedulerPauseStopsDispatch(t *testing.T) {
	sched, db, sent := newTestScheduler(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	task, _ := db.Tasks.Add(model.TaskEntity{FileID: 4, SavedPath: dest})
	blocks := planAndAddBlocks(t, db, task.TaskID, 100, 1024)
	if err := sched.OnTaskEnqueue(task, blocks, dest); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	sched.OnTaskPaused(task.TaskID)

	before := len(*sent)
	if err := sched.OnBlockRequest(time.Now()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(*sent) != before {
		t.Fatalf("dispatch happened while paused: sent went from %d to %d", before, len(*sent))
	}
	if sched.QueueDepth() != 1 {
		t.Fatalf("queue depth = %d, want 1 (block rotated, not dropped)", sched.QueueDepth())
	}

	sched.OnTaskResume(task.TaskID)
	if err := sched.OnBlockRequest(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("dispatch after resume: %v", err)
	}
	if len(*sent) != before+1 {
		t.Fatalf("expected a dispatch after resume, sent stayed at %d", len(*sent))
	}
}

func TestSchedulerCancelDropsLateResponse(t *testing.T) {
	sched, db, _ := newTestScheduler(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	task, _ := db.Tasks.Add(model.TaskEntity{FileID: 5, SavedPath: dest})
	blocks := planAndAddBlocks(t, db, task.TaskID, 100, 1024)
	if err := sched.OnTaskEnqueue(task, blocks, dest); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := sched.OnBlockRequest(time.Now()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	sched.OnTaskCancel(task.TaskID)

	body := envelope.BlockResponseBody{
		BlockID: blocks[0].BlockID, FileID: 5, TaskID: task.TaskID,
		Offset: 0, BlockSize: 100, Data: make([]byte, 100),
	}
	if err := sched.OnBlockResponse(1, body); err != nil {
		t.Fatalf("response after cancel: %v", err)
	}
	select {
	case <-sched.TaskCompleted():
		t.Fatal("a cancelled task must not report completion")
	default:
	}
}
