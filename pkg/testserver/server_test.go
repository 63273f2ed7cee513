package testserver

import (
	"net"
	"testing"
	"time"

	"github.com/danejoe001/transclient/pkg/envelope"
	"github.com/danejoe001/transclient/pkg/frame"
	"github.com/danejoe001/transclient/pkg/wire"
)

func TestServerAnswersDownloadAndBlock(t *testing.T) {
	data := []byte("hello, transclient")
	srv := New([]File{{FileID: 1, FileName: "greeting.txt", MD5Code: "x", Data: data}}, wire.DefaultLimits())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go srv.Serve(ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := envelope.BuildDownloadRequest(1, 42)
	if _, err := conn.Write(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp := readOneResponse(t, conn)
	if resp.RequestID != 42 {
		t.Fatalf("request id = %d, want 42", resp.RequestID)
	}
	meta, err := envelope.ParseDownloadResponseBody(resp.Body, wire.DefaultLimits())
	if err != nil {
		t.Fatalf("parse download response: %v", err)
	}
	if meta.FileSize != int64(len(data)) || meta.FileName != "greeting.txt" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	blockReq := envelope.BuildBlockRequest(envelope.BlockRequestBody{
		BlockID: 1, FileID: 1, TaskID: 1, Offset: 0, BlockSize: int64(len(data)),
	}, 43)
	if _, err := conn.Write(blockReq); err != nil {
		t.Fatalf("write block request: %v", err)
	}
	resp = readOneResponse(t, conn)
	block, err := envelope.ParseBlockResponseBody(resp.Body, wire.DefaultLimits())
	if err != nil {
		t.Fatalf("parse block response: %v", err)
	}
	if string(block.Data) != string(data) {
		t.Fatalf("block data = %q, want %q", block.Data, data)
	}
}

func readOneResponse(t *testing.T, conn net.Conn) envelope.Response {
	t.Helper()
	asm := frame.New(wire.DefaultLimits())
	buf := make([]byte, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		asm.Push(buf[:n])
		if raw, ok := asm.Pop(); ok {
			resp, err := envelope.ParseResponse(raw, wire.DefaultLimits())
			if err != nil {
				t.Fatalf("parse response: %v", err)
			}
			return resp
		}
	}
}
