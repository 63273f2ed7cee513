// Package client wires a TransportSession, Correlator, BlockScheduler
// and the three stores together behind a small download-oriented API.
// The protocol stops at the scheduler/correlator boundary and treats "a Task
// plus its Blocks already exist" as an external responsibility; this
// package supplies that missing glue, grounded on
// original_source/client/source/service/trans_service.cpp and
// task_service.cpp, which compute the block layout from a parsed
// download response and hand it to the scheduler the same way.
//
// The reactor is one goroutine running a single cooperative loop, a
// single-threaded event-loop model: it is the only goroutine that
// ever touches the Correlator, the Scheduler or the TransportSession
// after Dial returns, the same dependency-injected, non-global style
// a CAN bus driver runs its own I/O loop off one owned goroutine.
package client

import (
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/danejoe001/transclient/pkg/config"
	"github.com/danejoe001/transclient/pkg/correlate"
	"github.com/danejoe001/transclient/pkg/envelope"
	"github.com/danejoe001/transclient/pkg/model"
	"github.com/danejoe001/transclient/pkg/scheduler"
	"github.com/danejoe001/transclient/pkg/store"
	"github.com/danejoe001/transclient/pkg/transport"
	"github.com/danejoe001/transclient/pkg/wire"
)

// Options configures a Client beyond what the transfer profile names.
// Credential and AuthToken are threaded through but never inspected by
// the core protocol, left out of scope by design.
type Options struct {
	Credential string
	AuthToken  string
}

// Client owns one TCP connection and everything needed to drive
// downloads over it: the reactor goroutine, the shared Correlator, the
// BlockScheduler, and the entity stores.
type Client struct {
	profile config.Profile
	opts    Options

	sess  *transport.Session
	corr  *correlate.Correlator
	sched *scheduler.Scheduler

	tasks  store.TaskStore
	blocks store.BlockStore
	files  store.FileStore

	limits wire.Limits

	stop chan struct{}
	done chan struct{}

	log *log.Entry
}

// Dial connects to profile.Endpoint() and starts the reactor. Callers
// must call Close when finished.
func Dial(profile config.Profile, opts Options, tasks store.TaskStore, blocks store.BlockStore, files store.FileStore) (*Client, error) {
	conn, err := net.Dial("tcp", profile.Endpoint())
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", profile.Endpoint(), err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	limits := wire.Limits{
		MaxFieldNameLength:  profile.MaxFieldNameLen,
		MaxFieldValueLength: profile.MaxFieldValueLen,
		MaxNestingDepth:     wire.DefaultMaxNestingDepth,
	}
	sess := transport.New(conn, limits, profile.ReadChunkSize)
	corr := correlate.New(profile.CorrelatorTTL)

	c := &Client{
		profile: profile,
		opts:    opts,
		sess:    sess,
		corr:    corr,
		tasks:   tasks,
		blocks:  blocks,
		files:   files,
		limits:  limits,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		log:     log.WithField("component", "client").WithField("endpoint", profile.Endpoint()),
	}

	send := func(frameBytes []byte) error { return c.sess.Write([][]byte{frameBytes}) }
	c.sched = scheduler.New(corr, blocks, tasks, send, profile.PaceInterval)

	go c.reactorLoop()
	return c, nil
}

// Close stops the reactor and closes the connection.
func (c *Client) Close() error {
	close(c.stop)
	<-c.done
	return c.sess.Close()
}

// TaskCompleted delivers a task id whenever one of its scheduled
// downloads reaches Completed. A download that finishes Failed is not
// reported here; its persisted task row reads back as Failed instead.
func (c *Client) TaskCompleted() <-chan int64 { return c.sched.TaskCompleted() }

// reactorLoop is the single cooperative thread that reads the socket,
// paces block dispatch and sweeps stale correlator entries, at the
// configured reactor timeout (a reference 1000ms tick).
func (c *Client) reactorLoop() {
	defer close(c.done)
	tick := c.profile.ReactorTimeout
	if tick <= 0 {
		tick = config.DefaultReactorTimeout
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	lastSweep := time.Now()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			frames, err := c.sess.Read()
			if err != nil {
				c.log.WithError(err).Warn("reactor read failed, stopping")
				return
			}
			for _, f := range frames {
				c.handleFrame(f)
			}
			if err := c.sched.OnBlockRequest(now); err != nil {
				c.log.WithError(err).Error("block dispatch failed")
			}
			if now.Sub(lastSweep) >= c.profile.CorrelatorTTL {
				c.sched.Sweep(now)
				lastSweep = now
			}
		}
	}
}

func (c *Client) handleFrame(f []byte) {
	resp, err := envelope.ParseResponse(f, c.limits)
	if err != nil {
		c.log.WithError(err).Warn("dropping unparseable response frame")
		return
	}
	// The scheduler's block requests and this client's own /test and
	// /download handshakes share one Correlator and one request-id
	// space (a connection has a single monotonic
	// counter), so the match must happen exactly once here and then
	// dispatch on the origin's concrete type.
	rawOrigin, ok := c.corr.Match(resp.RequestID)
	if !ok {
		c.log.WithField("request_id", resp.RequestID).Warn("response for unknown request-id dropped")
		return
	}
	switch o := rawOrigin.(type) {
	case correlate.HandshakeOrigin:
		o.Reply <- resp
	case correlate.BlockOrigin:
		c.handleBlockResponse(o, resp)
	default:
		c.log.WithField("request_id", resp.RequestID).Warn("matched an unrecognised origin type")
	}
}

// handleBlockResponse parses resp as a /block response body and hands
// it, along with the origin already pulled off the Correlator above,
// to the scheduler.
func (c *Client) handleBlockResponse(o correlate.BlockOrigin, resp envelope.Response) {
	body, err := envelope.ParseBlockResponseBody(resp.Body, c.limits)
	if err != nil {
		c.log.WithError(err).Warn("dropping unparseable block response body")
		return
	}
	if err := c.sched.HandleMatchedResponse(o, body); err != nil {
		c.log.WithError(err).Error("scheduler failed to process block response")
	}
}

// sendHandshake assigns a request-id from the shared Correlator, builds
// the request frame from it, sends it, and blocks (up to ctx's
// deadline) for the matched response. build must embed the request-id
// it is given into the envelope it returns, since that is what the
// server echoes back and the Correlator keys on.
func (c *Client) sendHandshake(ctx context.Context, path string, build func(requestID uint64) []byte) (envelope.Response, error) {
	reply := make(chan any, 1)
	requestID := c.corr.NextID(correlate.HandshakeOrigin{Path: path, Reply: reply})
	frameBytes := build(requestID)
	if err := c.sess.Write([][]byte{frameBytes}); err != nil {
		return envelope.Response{}, fmt.Errorf("client: send %s request: %w", path, err)
	}
	select {
	case v := <-reply:
		resp := v.(envelope.Response)
		return resp, nil
	case <-ctx.Done():
		return envelope.Response{}, ctx.Err()
	}
}

// StartDownload fetches the remote file's metadata via /download, plans
// its blocks, persists the Task and Block rows, and enqueues the task
// with the scheduler. The actual block transfer proceeds asynchronously
// on the reactor; use TaskCompleted to learn when it finishes.
func (c *Client) StartDownload(ctx context.Context, fileID int64, destPath string) (int64, error) {
	resp, err := c.sendHandshake(ctx, envelope.PathDownload, func(requestID uint64) []byte {
		return envelope.BuildDownloadRequest(fileID, requestID)
	})
	if err != nil {
		return 0, fmt.Errorf("client: download handshake: %w", err)
	}
	if resp.Status != envelope.StatusOK {
		return 0, fmt.Errorf("client: server rejected /download with status %d", resp.Status)
	}
	meta, err := envelope.ParseDownloadResponseBody(resp.Body, c.limits)
	if err != nil {
		return 0, fmt.Errorf("client: parse /download response: %w", err)
	}

	_, found, err := c.files.GetByID(meta.FileID)
	if err != nil {
		return 0, fmt.Errorf("client: look up file metadata: %w", err)
	}
	if !found {
		if _, err := c.files.Add(model.ClientFileEntity{
			FileID: meta.FileID, FileName: meta.FileName,
			FileSize: meta.FileSize, MD5Code: meta.MD5Code,
		}); err != nil {
			return 0, fmt.Errorf("client: persist file metadata: %w", err)
		}
	}

	task, err := c.tasks.Add(model.TaskEntity{
		FileID: meta.FileID, SavedPath: destPath, SourceURL: c.profile.Endpoint(),
		Operation: model.OperationDownload, State: model.StateWaiting, StartTime: time.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("client: create task: %w", err)
	}

	planned := model.PlanBlocks(meta.FileSize, c.profile.BlockSize)
	blocks := make([]model.BlockEntity, 0, len(planned))
	for _, b := range planned {
		b.TaskID = task.TaskID
		b.FileID = meta.FileID
		added, err := c.blocks.Add(b)
		if err != nil {
			return 0, fmt.Errorf("client: create block: %w", err)
		}
		blocks = append(blocks, added)
	}

	if err := c.sched.OnTaskEnqueue(task, blocks, destPath); err != nil {
		return 0, fmt.Errorf("client: enqueue task: %w", err)
	}
	return task.TaskID, nil
}

// Pause stops new dispatch for an already-scheduled task without
// discarding its queued or in-flight blocks. It is a no-op for an
// unknown task id or one not currently scheduled in this process.
func (c *Client) Pause(taskID int64) { c.sched.OnTaskPaused(taskID) }

// Resume reverses Pause for a task already scheduled in this process.
// It does not reattach a task from a previous process -- use
// ResumeTask for that.
func (c *Client) Resume(taskID int64) { c.sched.OnTaskResume(taskID) }

// Cancel forwards directly to the scheduler; a no-op for an unknown
// task id.
func (c *Client) Cancel(taskID int64) { c.sched.OnTaskCancel(taskID) }

// ResumeTask reattaches a previously persisted task to the scheduler:
// it loads the Task row and its Block rows, skips blocks already
// Completed (the same skip StartDownload's initial OnTaskEnqueue call
// applies), and re-enqueues whatever remains. This is what makes a
// task survive a process restart -- Pause/Resume alone only flip an
// in-memory flag on a taskState that the scheduler still has to hold,
// which a restarted process never does.
func (c *Client) ResumeTask(taskID int64) error {
	task, found, err := c.tasks.GetByID(taskID)
	if err != nil {
		return fmt.Errorf("client: look up task %d: %w", taskID, err)
	}
	if !found {
		return fmt.Errorf("client: no task with id %d", taskID)
	}
	if task.State == model.StateCompleted {
		return fmt.Errorf("client: task %d already completed", taskID)
	}
	if task.State == model.StateFailed {
		return fmt.Errorf("client: task %d already failed, start a new download instead", taskID)
	}

	blocks, err := c.blocks.GetByTask(taskID)
	if err != nil {
		return fmt.Errorf("client: load blocks for task %d: %w", taskID, err)
	}
	if len(blocks) == 0 {
		return fmt.Errorf("client: task %d has no planned blocks", taskID)
	}

	task.State = model.StateInTransfer
	if err := c.tasks.Update(task); err != nil {
		return fmt.Errorf("client: mark task %d in transfer: %w", taskID, err)
	}

	if err := c.sched.OnTaskEnqueue(task, blocks, task.SavedPath); err != nil {
		return fmt.Errorf("client: re-enqueue task %d: %w", taskID, err)
	}
	c.log.WithField("task_id", taskID).Info("task resumed from persisted state")
	return nil
}

// Ping sends a /test request and returns the echoed message, mainly
// useful to confirm the connection is alive before starting a download.
func (c *Client) Ping(ctx context.Context, message string) (string, error) {
	resp, err := c.sendHandshake(ctx, envelope.PathTest, func(requestID uint64) []byte {
		return envelope.BuildTestRequest(message, requestID)
	})
	if err != nil {
		return "", err
	}
	body, err := envelope.ParseTestBody(resp.Body, c.limits)
	if err != nil {
		return "", err
	}
	return body.Message, nil
}
