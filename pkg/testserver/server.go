// Package testserver is a minimal in-tree TCP server answering /test,
// /download and /block from an in-memory byte slice, built on the same
// pkg/wire, pkg/frame and pkg/envelope packages the client uses. It
// exists so this repository is testable end-to-end without an external
// server, playing the same fixture role that small demo binaries and
// example directories play for other protocol stacks.
package testserver

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/danejoe001/transclient/pkg/envelope"
	"github.com/danejoe001/transclient/pkg/frame"
	"github.com/danejoe001/transclient/pkg/wire"
)

// File is one servable file, keyed by FileID in a Server's registry.
type File struct {
	FileID   int64
	FileName string
	MD5Code  string
	Data     []byte
}

// Server accepts connections and answers every request on each with
// the registered Files. One goroutine per connection; the server
// itself holds no mutable state beyond the read-only file registry.
type Server struct {
	files  map[int64]File
	limits wire.Limits
	log    *log.Entry
}

// New creates a Server serving files.
func New(files []File, limits wire.Limits) *Server {
	byID := make(map[int64]File, len(files))
	for _, f := range files {
		byID[f.FileID] = f
	}
	return &Server{files: byID, limits: limits, log: log.WithField("component", "testserver")}
}

// Serve accepts connections on ln until it returns an error (including
// when ln is closed), handling each on its own goroutine.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	asm := frame.New(s.limits)
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		asm.Push(buf[:n])
		for {
			raw, ok := asm.Pop()
			if !ok {
				break
			}
			if err := asm.FramingError(); err != nil {
				s.log.WithError(err).Warn("framing error, closing connection")
				return
			}
			reply, ok := s.handleFrame(raw)
			if !ok {
				continue
			}
			if _, err := conn.Write(reply); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleFrame(raw []byte) ([]byte, bool) {
	req, err := envelope.ParseRequest(raw, s.limits)
	if err != nil {
		s.log.WithError(err).Warn("dropping unparseable request")
		return nil, false
	}
	switch req.Path {
	case envelope.PathTest:
		return s.handleTest(req)
	case envelope.PathDownload:
		return s.handleDownload(req)
	case envelope.PathBlock:
		return s.handleBlock(req)
	default:
		return envelope.BuildResponse(req.RequestID, envelope.StatusNotFound, envelope.ContentBinary, nil), true
	}
}

func (s *Server) handleTest(req envelope.Request) ([]byte, bool) {
	body, err := envelope.ParseTestBody(req.Body, s.limits)
	if err != nil {
		return nil, false
	}
	return envelope.BuildTestResponse(body.Message, req.RequestID), true
}

func (s *Server) handleDownload(req envelope.Request) ([]byte, bool) {
	body, err := envelope.ParseDownloadRequestBody(req.Body, s.limits)
	if err != nil {
		return nil, false
	}
	f, ok := s.files[body.FileID]
	if !ok {
		return envelope.BuildResponse(req.RequestID, envelope.StatusNotFound, envelope.ContentBinary, nil), true
	}
	return envelope.BuildDownloadResponse(envelope.DownloadResponseBody{
		FileID: f.FileID, FileName: f.FileName, FileSize: int64(len(f.Data)), MD5Code: f.MD5Code,
	}, req.RequestID), true
}

func (s *Server) handleBlock(req envelope.Request) ([]byte, bool) {
	body, err := envelope.ParseBlockRequestBody(req.Body, s.limits)
	if err != nil {
		return nil, false
	}
	f, ok := s.files[body.FileID]
	if !ok {
		return envelope.BuildResponse(req.RequestID, envelope.StatusNotFound, envelope.ContentBinary, nil), true
	}
	start := body.Offset
	end := body.Offset + body.BlockSize
	if start < 0 || start > int64(len(f.Data)) {
		return envelope.BuildResponse(req.RequestID, envelope.StatusBadRequest, envelope.ContentBinary, nil), true
	}
	if end > int64(len(f.Data)) {
		end = int64(len(f.Data))
	}
	return envelope.BuildBlockResponse(envelope.BlockResponseBody{
		BlockID: body.BlockID, FileID: body.FileID, TaskID: body.TaskID,
		Offset: body.Offset, BlockSize: body.BlockSize,
		Data: f.Data[start:end],
	}, req.RequestID), true
}

// LoadDir reads every regular file directly inside dir and assigns
// file ids in directory listing order, for the two thin command-line
// entrypoints that wrap Server.
func LoadDir(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("testserver: read dir %q: %w", dir, err)
	}
	var files []File
	var nextID int64 = 1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("testserver: read %q: %w", e.Name(), err)
		}
		sum := md5.Sum(data)
		files = append(files, File{
			FileID: nextID, FileName: e.Name(), MD5Code: hex.EncodeToString(sum[:]), Data: data,
		})
		nextID++
	}
	return files, nil
}

// ListenAndServe is a convenience entrypoint for cmd/transclient-testserver.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("testserver: listen %s: %w", addr, err)
	}
	defer ln.Close()
	s.log.WithField("addr", ln.Addr()).Info("test server listening")
	return s.Serve(ln)
}
