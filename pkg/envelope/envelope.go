// Package envelope implements the request/response wrapper frames
// carried over a TransportSession: version, request-id, status,
// content-type, and an opaque body that is itself an encoded frame.
// Ported from the request/response shapes in
// original_source/client/source/controller/view_event_controller.cpp
// and the server-side parsing in
// original_source/source/server/connect/message_handler.cpp.
package envelope

import (
	"fmt"

	"github.com/danejoe001/transclient/pkg/wire"
)

// RequestType distinguishes the two verbs the protocol carries.
type RequestType uint8

const (
	RequestGET  RequestType = 0
	RequestPOST RequestType = 1
)

// ContentType tags the opaque body's encoding. Only Binary is ever
// produced by this repository; the others are reserved wire values the
// original protocol never exercises beyond naming the byte.
type ContentType uint8

const (
	ContentBinary ContentType = 0
	ContentJSON   ContentType = 1
	ContentText   ContentType = 2
)

// StatusCode mirrors HTTP-style status numbering, per the original's
// connect_context status mapping (left to this implementation).
type StatusCode uint16

const (
	StatusOK         StatusCode = 200
	StatusNotFound   StatusCode = 404
	StatusBadRequest StatusCode = 400
)

const EnvelopeVersion uint16 = 1

// Path names the three server-facing request paths the protocol defines.
const (
	PathTest     = "/test"
	PathDownload = "/download"
	PathBlock    = "/block"
)

// Request is the outer request frame.
type Request struct {
	Version     uint16
	RequestID   uint64
	RequestType RequestType
	Path        string
	ContentType ContentType
	Body        []byte
}

// Response is the outer response frame.
type Response struct {
	Version     uint16
	RequestID   uint64
	Status      StatusCode
	ContentType ContentType
	Body        []byte
}

// BuildRequest serializes a Request into wire frame bytes.
func BuildRequest(requestType RequestType, path string, contentType ContentType, body []byte, requestID uint64) []byte {
	enc := wire.NewEncoder(0)
	enc.Append(wire.NewUintField("version", wire.TypeUInt16, uint64(EnvelopeVersion)))
	enc.Append(wire.NewUintField("request_id", wire.TypeUInt64, requestID))
	enc.Append(wire.NewUintField("request_type", wire.TypeUInt8, uint64(requestType)))
	enc.Append(wire.NewStringField("path", path))
	enc.Append(wire.NewUintField("content_type", wire.TypeUInt8, uint64(contentType)))
	enc.Append(wire.NewByteArrayField("body", body))
	return enc.Finalize()
}

// BuildResponse serializes a Response into wire frame bytes.
func BuildResponse(requestID uint64, status StatusCode, contentType ContentType, body []byte) []byte {
	enc := wire.NewEncoder(0)
	enc.Append(wire.NewUintField("version", wire.TypeUInt16, uint64(EnvelopeVersion)))
	enc.Append(wire.NewUintField("request_id", wire.TypeUInt64, requestID))
	enc.Append(wire.NewUintField("status", wire.TypeUInt16, uint64(status)))
	enc.Append(wire.NewUintField("content_type", wire.TypeUInt8, uint64(contentType)))
	enc.Append(wire.NewByteArrayField("body", body))
	return enc.Finalize()
}

// ParseRequest decodes a complete request frame's top-level envelope.
func ParseRequest(data []byte, limits wire.Limits) (Request, error) {
	fr, err := wire.Decode(data, limits)
	if err != nil {
		return Request{}, err
	}
	var req Request
	if f, ok := fr.First("version"); ok {
		v, _ := f.Uint64()
		req.Version = uint16(v)
	}
	if f, ok := fr.First("request_id"); ok {
		v, _ := f.Uint64()
		req.RequestID = v
	}
	if f, ok := fr.First("request_type"); ok {
		v, _ := f.Uint64()
		req.RequestType = RequestType(v)
	}
	if f, ok := fr.First("path"); ok {
		v, _ := f.String()
		req.Path = v
	}
	if f, ok := fr.First("content_type"); ok {
		v, _ := f.Uint64()
		req.ContentType = ContentType(v)
	}
	if f, ok := fr.First("body"); ok {
		v, _ := f.ByteArray()
		req.Body = v
	}
	return req, nil
}

// ParseResponse decodes a complete response frame's top-level envelope.
func ParseResponse(data []byte, limits wire.Limits) (Response, error) {
	fr, err := wire.Decode(data, limits)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if f, ok := fr.First("version"); ok {
		v, _ := f.Uint64()
		resp.Version = uint16(v)
	}
	if f, ok := fr.First("request_id"); ok {
		v, _ := f.Uint64()
		resp.RequestID = v
	}
	if f, ok := fr.First("status"); ok {
		v, _ := f.Uint64()
		resp.Status = StatusCode(v)
	}
	if f, ok := fr.First("content_type"); ok {
		v, _ := f.Uint64()
		resp.ContentType = ContentType(v)
	}
	if f, ok := fr.First("body"); ok {
		v, _ := f.ByteArray()
		resp.Body = v
	}
	return resp, nil
}

func (r Response) String() string {
	return fmt.Sprintf("Response{id=%d status=%d len(body)=%d}", r.RequestID, r.Status, len(r.Body))
}
