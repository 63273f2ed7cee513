// Package scheduler implements the block scheduler: the component that
// turns one planned task (a remote file split into fixed-size blocks)
// into a paced stream of /block requests, and reassembles the responses
// onto disk at their declared offsets. Ported from the original
// client's BlockScheduleController
// (original_source/client/source/controller/block_schedule_controller.cpp),
// which drives the same per-task pending count, FIFO dispatch queue and
// fixed-interval pacing timer from a single-threaded reactor loop.
package scheduler

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danejoe001/transclient/pkg/correlate"
	"github.com/danejoe001/transclient/pkg/envelope"
	"github.com/danejoe001/transclient/pkg/model"
	"github.com/danejoe001/transclient/pkg/store"
)

// DefaultPaceInterval is the reference spacing between successive block
// dispatches, to keep one request in flight per tick.
const DefaultPaceInterval = 30 * time.Millisecond

// Sender delivers one already-encoded request frame to the peer. The
// caller (pkg/client) adapts this to a transport.Session's write queue.
type Sender func(frameBytes []byte) error

// taskState is the scheduler's in-memory bookkeeping for one active
// task: the destination file handle and the count of blocks not yet in
// a terminal state, which is how completion is detected.
type taskState struct {
	entity  model.TaskEntity
	file    *os.File
	waiting int
	failed  bool
	paused  bool
}

// Scheduler is the block scheduler. One Scheduler serves one
// TransportSession; construct it with the stores and sender that
// session's owner wires up.
type Scheduler struct {
	correlator *correlate.Correlator
	blocks     store.BlockStore
	tasks      store.TaskStore
	send       Sender
	pace       time.Duration

	active map[int64]*taskState // TaskID -> state
	queue  []queued             // FIFO of not-yet-dispatched block requests
	last   time.Time

	completed chan int64

	log *log.Entry
}

type queued struct {
	TaskID  int64
	BlockID int64
}

var (
	queueDepthMetric = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "transclient_scheduler_queue_depth",
		Help: "Block requests queued for dispatch but not yet sent.",
	})
	dispatchedMetric = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transclient_scheduler_blocks_dispatched_total",
		Help: "Block requests sent to the wire.",
	})
	completedMetric = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transclient_scheduler_blocks_completed_total",
		Help: "Blocks written to disk successfully.",
	})
	failedMetric = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transclient_scheduler_blocks_failed_total",
		Help: "Blocks that terminated in the Failed state.",
	})
	rttHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "transclient_scheduler_block_rtt_seconds",
		Help:    "Time between a block request's dispatch and its matched response.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(queueDepthMetric, dispatchedMetric, completedMetric, failedMetric, rttHistogram)
}

// New creates a Scheduler. paceInterval<=0 selects DefaultPaceInterval.
func New(correlator *correlate.Correlator, blocks store.BlockStore, tasks store.TaskStore, send Sender, paceInterval time.Duration) *Scheduler {
	if paceInterval <= 0 {
		paceInterval = DefaultPaceInterval
	}
	return &Scheduler{
		correlator: correlator,
		blocks:     blocks,
		tasks:      tasks,
		send:       send,
		pace:       paceInterval,
		active:     make(map[int64]*taskState),
		completed:  make(chan int64, 16),
		log:        log.WithField("component", "scheduler"),
	}
}

// TaskCompleted delivers a task id each time a task reaches Completed
// and its destination file has been closed. A task that finishes Failed
// is not reported here.
func (s *Scheduler) TaskCompleted() <-chan int64 { return s.completed }

// OnTaskEnqueue registers task with its planned blocks (already
// persisted with assigned BlockIDs) and opens destPath for writing. The
// blocks are appended to the dispatch queue in order.
func (s *Scheduler) OnTaskEnqueue(task model.TaskEntity, blocks []model.BlockEntity, destPath string) error {
	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("scheduler: open destination %q: %w", destPath, err)
	}

	waiting := 0
	for _, b := range blocks {
		if b.State == model.StateCompleted {
			continue
		}
		waiting++
	}

	s.active[task.TaskID] = &taskState{entity: task, file: f, waiting: waiting}
	for _, b := range blocks {
		if b.State == model.StateCompleted {
			continue
		}
		s.queue = append(s.queue, queued{TaskID: task.TaskID, BlockID: b.BlockID})
	}
	queueDepthMetric.Set(float64(len(s.queue)))
	s.log.WithField("task_id", task.TaskID).WithField("blocks", waiting).Info("task enqueued")
	return nil
}

// OnTaskCancel drops task from scheduling: its file is closed (the
// partial download is left on disk, ) and any of its blocks
// still in the dispatch queue are discarded. Responses that arrive
// later for this task are silently dropped by OnBlockResponse because
// the task no longer has an active state.
func (s *Scheduler) OnTaskCancel(taskID int64) {
	st, ok := s.active[taskID]
	if !ok {
		return
	}
	_ = st.file.Close()
	delete(s.active, taskID)

	filtered := s.queue[:0]
	for _, q := range s.queue {
		if q.TaskID != taskID {
			filtered = append(filtered, q)
		}
	}
	s.queue = filtered
	queueDepthMetric.Set(float64(len(s.queue)))
	s.log.WithField("task_id", taskID).Info("task cancelled")
}

// OnTaskPaused stops new dispatches for task without discarding its
// queued or in-flight blocks.
func (s *Scheduler) OnTaskPaused(taskID int64) {
	if st, ok := s.active[taskID]; ok {
		st.paused = true
	}
}

// OnTaskResume reverses OnTaskPaused.
func (s *Scheduler) OnTaskResume(taskID int64) {
	if st, ok := s.active[taskID]; ok {
		st.paused = false
	}
}

// OnBlockRequest is the pacing timer's tick: called by the owning
// reactor loop on every iteration, it dispatches at most one queued
// block request, no more often than the configured pace interval. now
// is supplied by the caller so this stays free of a wall-clock call.
func (s *Scheduler) OnBlockRequest(now time.Time) error {
	if now.Sub(s.last) < s.pace {
		return nil
	}
	for attempts := 0; attempts < len(s.queue); attempts++ {
		head := s.queue[0]
		s.queue = s.queue[1:]

		st, ok := s.active[head.TaskID]
		if !ok {
			continue // cancelled since it was queued
		}
		if st.paused {
			s.queue = append(s.queue, head) // rotate to the back, try the next one
			continue
		}

		block, found, err := s.blocks.GetByID(head.BlockID)
		if err != nil {
			return fmt.Errorf("scheduler: load block %d: %w", head.BlockID, err)
		}
		if !found {
			continue
		}

		reqBody := envelope.BlockRequestBody{
			BlockID:   block.BlockID,
			FileID:    block.FileID,
			TaskID:    block.TaskID,
			Offset:    block.Offset,
			BlockSize: block.BlockSize,
		}
		requestID := s.correlator.NextID(correlate.BlockOrigin{TaskID: head.TaskID, BlockID: head.BlockID, DispatchedAt: now})
		frameBytes := envelope.BuildBlockRequest(reqBody, requestID)
		if err := s.send(frameBytes); err != nil {
			return fmt.Errorf("scheduler: send block request: %w", err)
		}

		s.last = now
		dispatchedMetric.Inc()
		queueDepthMetric.Set(float64(len(s.queue)))
		return nil
	}
	return nil
}

// OnBlockResponse matches requestID against the Correlator and, on a
// hit, writes the block's data to its planned offset in the task's
// destination file. A response whose data is shorter than the block's
// declared size is treated as a failed block and is never retried
// automatically. A response for a block that
// has already completed is accepted and rewrites the bytes in place
// (idempotent), but does not double-count toward task completion.
func (s *Scheduler) OnBlockResponse(requestID uint64, body envelope.BlockResponseBody) error {
	rawOrigin, ok := s.correlator.Match(requestID)
	if !ok {
		return nil
	}
	o, ok := rawOrigin.(correlate.BlockOrigin)
	if !ok {
		s.log.WithField("request_id", requestID).Warn("response matched a non-block origin, dropping")
		return nil
	}
	return s.HandleMatchedResponse(o, body)
}

// HandleMatchedResponse applies a block response whose origin has
// already been pulled off the shared Correlator by the caller (the
// reactor loop in pkg/client does this, since it must first tell block
// responses apart from the client's own /test and /download
// handshakes on that same Correlator). OnBlockResponse is the
// self-contained entry point for callers that own the Correlator match
// themselves, such as the tests in this package.
func (s *Scheduler) HandleMatchedResponse(o correlate.BlockOrigin, body envelope.BlockResponseBody) error {
	rttHistogram.Observe(time.Since(o.DispatchedAt).Seconds())

	st, ok := s.active[o.TaskID]
	if !ok {
		return nil // task was cancelled before its response arrived
	}

	block, found, err := s.blocks.GetByID(o.BlockID)
	if err != nil {
		return fmt.Errorf("scheduler: load block %d: %w", o.BlockID, err)
	}
	if !found {
		return nil
	}
	alreadyTerminal := block.State == model.StateCompleted || block.State == model.StateFailed

	if int64(len(body.Data)) < block.BlockSize {
		block.State = model.StateFailed
		st.failed = true
		failedMetric.Inc()
		s.log.WithField("block_id", block.BlockID).
			WithField("got", len(body.Data)).
			WithField("want", block.BlockSize).
			Warn("short block response, marking failed")
	} else {
		if _, err := st.file.WriteAt(body.Data[:block.BlockSize], block.Offset); err != nil {
			return fmt.Errorf("scheduler: write block %d at offset %d: %w", block.BlockID, block.Offset, err)
		}
		if err := st.file.Sync(); err != nil {
			return fmt.Errorf("scheduler: flush block %d: %w", block.BlockID, err)
		}
		block.State = model.StateCompleted
		completedMetric.Inc()
	}
	block.EndTime = time.Now()
	if err := s.blocks.Update(block); err != nil {
		return fmt.Errorf("scheduler: persist block %d: %w", block.BlockID, err)
	}

	if !alreadyTerminal {
		st.waiting--
	}
	if st.waiting <= 0 {
		s.finishTask(o.TaskID, st)
	}
	return nil
}

// finishTask closes out a task whose waiting-block count has reached
// zero. A task whose blocks are partially Failed never reaches
// Completed and therefore never fires the TaskCompleted signal: only a
// task that finishes with every block Completed is reported on the
// channel, so callers can treat a receive as unconditional success.
func (s *Scheduler) finishTask(taskID int64, st *taskState) {
	if st.failed {
		st.entity.State = model.StateFailed
	} else {
		st.entity.State = model.StateCompleted
	}
	st.entity.EndTime = time.Now()
	if err := s.tasks.Update(st.entity); err != nil {
		s.log.WithError(err).WithField("task_id", taskID).Error("failed to persist finished task")
	}
	_ = st.file.Close()
	delete(s.active, taskID)
	s.log.WithField("task_id", taskID).WithField("state", st.entity.State).Info("task finished")
	if st.failed {
		return
	}
	select {
	case s.completed <- taskID:
	default:
		s.log.WithField("task_id", taskID).Warn("TaskCompleted channel full, dropping notification")
	}
}

// QueueDepth returns the number of block requests not yet dispatched.
func (s *Scheduler) QueueDepth() int { return len(s.queue) }

// Sweep drops stale correlator entries, driven by the same timer tick
// as OnBlockRequest.
func (s *Scheduler) Sweep(now time.Time) int { return s.correlator.Sweep(now) }
