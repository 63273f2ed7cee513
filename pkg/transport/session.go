// Package transport implements one logical TCP connection: it applies
// the frame assembler on ingress and buffers a write queue on egress.
// All I/O is non-blocking by construction -- Read/Write never block
// longer than pollTimeout, a short SetReadDeadline/SetWriteDeadline
// poll around net.Conn, treating a timeout error as "nothing ready
// yet" rather than a failure.
package transport

import (
	"errors"
	"io"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danejoe001/transclient/pkg/frame"
	"github.com/danejoe001/transclient/pkg/wire"
)

// DefaultReadChunkSize is the per-Read() recv buffer size, matching the
// "default 1 KiB".
const DefaultReadChunkSize = 1024

// pollTimeout bounds how long a single Read/Write attempt waits for the
// kernel before giving up for this tick, keeping the call non-blocking
// from the caller's point of view.
const pollTimeout = 5 * time.Millisecond

// ErrPeerClosed is returned by Read when the peer has gracefully closed
// the connection (a zero-length read), by design.
var ErrPeerClosed = errors.New("transport: peer closed the connection")

var (
	bytesReadMetric = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transclient_transport_bytes_read_total",
		Help: "Total bytes read from the wire across all sessions.",
	})
	bytesWrittenMetric = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transclient_transport_bytes_written_total",
		Help: "Total bytes written to the wire across all sessions.",
	})
)

func init() {
	prometheus.MustRegister(bytesReadMetric, bytesWrittenMetric)
}

// Session is one TCP connection. It is not safe for concurrent Read and
// Write calls to race each other from two goroutines at once; per
// the owning event loop is responsible for not reentering
// Read/Write for the same session concurrently.
type Session struct {
	conn      net.Conn
	assembler *frame.Assembler
	pending   []byte // bytes queued for the wire, written as the kernel accepts them
	readChunk int
	log       *log.Entry
}

// New wraps conn as a Session. limits configures the frame decoder the
// assembler uses; readChunkSize<=0 selects DefaultReadChunkSize.
func New(conn net.Conn, limits wire.Limits, readChunkSize int) *Session {
	if readChunkSize <= 0 {
		readChunkSize = DefaultReadChunkSize
	}
	return &Session{
		conn:      conn,
		assembler: frame.New(limits),
		readChunk: readChunkSize,
		log:       log.WithField("component", "transport").WithField("remote", conn.RemoteAddr()),
	}
}

// Read drains whatever is currently available on the socket in
// chunks of the session's read chunk size until the poll deadline is hit, pushing
// each chunk into the frame assembler. It returns the complete frames
// that became available, in arrival order.
func (s *Session) Read() ([][]byte, error) {
	var frames [][]byte
	buf := make([]byte, s.readChunk)
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(pollTimeout))
		n, err := s.conn.Read(buf)
		if n > 0 {
			bytesReadMetric.Add(float64(n))
			s.assembler.Push(buf[:n])
			for {
				f, ok := s.assembler.Pop()
				if !ok {
					break
				}
				frames = append(frames, f)
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return frames, nil
			}
			if err == io.EOF {
				return frames, ErrPeerClosed
			}
			s.log.WithError(err).Warn("transport read error, closing session")
			_ = s.conn.Close()
			return frames, err
		}
		if n == 0 {
			return frames, ErrPeerClosed
		}
	}
}

// Write appends frames' bytes to the pending-write buffer, then writes
// as much as the kernel accepts right now. Short writes are tolerated:
// whatever doesn't fit stays in pending for the next call.
func (s *Session) Write(frames [][]byte) error {
	for _, f := range frames {
		s.pending = append(s.pending, f...)
	}
	if len(s.pending) == 0 {
		return nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(pollTimeout))
	n, err := s.conn.Write(s.pending)
	if n > 0 {
		bytesWrittenMetric.Add(float64(n))
		s.pending = s.pending[n:]
	}
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil
		}
		s.log.WithError(err).Warn("transport write error, closing session")
		_ = s.conn.Close()
		return err
	}
	return nil
}

// HasPendingWrite reports whether bytes remain queued for the wire,
// which drives whether the reactor should arm a writable-interest wait.
func (s *Session) HasPendingWrite() bool { return len(s.pending) > 0 }

// FramingError surfaces an unrecoverable framing desync in the
// underlying assembler, if one occurred.
func (s *Session) FramingError() error { return s.assembler.FramingError() }

// Close closes the underlying connection.
func (s *Session) Close() error { return s.conn.Close() }
