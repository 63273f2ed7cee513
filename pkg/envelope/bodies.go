package envelope

import "github.com/danejoe001/transclient/pkg/wire"

// TestBody is the body of /test requests and responses:
// {message:string}.
type TestBody struct {
	Message string
}

func BuildTestRequest(message string, requestID uint64) []byte {
	body := wire.NewEncoder(0).Append(wire.NewStringField("message", message)).Finalize()
	return BuildRequest(RequestPOST, PathTest, ContentBinary, body, requestID)
}

func ParseTestBody(data []byte, limits wire.Limits) (TestBody, error) {
	fr, err := wire.Decode(data, limits)
	if err != nil {
		return TestBody{}, err
	}
	var out TestBody
	if f, ok := fr.First("message"); ok {
		out.Message, _ = f.String()
	}
	return out, nil
}

func BuildTestResponse(message string, requestID uint64) []byte {
	body := wire.NewEncoder(0).Append(wire.NewStringField("message", message)).Finalize()
	return BuildResponse(requestID, StatusOK, ContentBinary, body)
}

// DownloadRequestBody is the body of /download requests:
// {file_id:i64}.
type DownloadRequestBody struct {
	FileID int64
}

func BuildDownloadRequest(fileID int64, requestID uint64) []byte {
	body := wire.NewEncoder(0).Append(wire.NewIntField("file_id", wire.TypeInt64, fileID)).Finalize()
	return BuildRequest(RequestGET, PathDownload, ContentBinary, body, requestID)
}

func ParseDownloadRequestBody(data []byte, limits wire.Limits) (DownloadRequestBody, error) {
	fr, err := wire.Decode(data, limits)
	if err != nil {
		return DownloadRequestBody{}, err
	}
	var out DownloadRequestBody
	if f, ok := fr.First("file_id"); ok {
		out.FileID, _ = f.Int64()
	}
	return out, nil
}

// DownloadResponseBody is the body of /download responses:
// {file_id:i64, file_name:string, file_size:i64, md5_code:string}.
type DownloadResponseBody struct {
	FileID   int64
	FileName string
	FileSize int64
	MD5Code  string
}

func BuildDownloadResponse(b DownloadResponseBody, requestID uint64) []byte {
	body := wire.NewEncoder(0).
		Append(wire.NewIntField("file_id", wire.TypeInt64, b.FileID)).
		Append(wire.NewStringField("file_name", b.FileName)).
		Append(wire.NewIntField("file_size", wire.TypeInt64, b.FileSize)).
		Append(wire.NewStringField("md5_code", b.MD5Code)).
		Finalize()
	return BuildResponse(requestID, StatusOK, ContentBinary, body)
}

func ParseDownloadResponseBody(data []byte, limits wire.Limits) (DownloadResponseBody, error) {
	fr, err := wire.Decode(data, limits)
	if err != nil {
		return DownloadResponseBody{}, err
	}
	var out DownloadResponseBody
	if f, ok := fr.First("file_id"); ok {
		out.FileID, _ = f.Int64()
	}
	if f, ok := fr.First("file_name"); ok {
		out.FileName, _ = f.String()
	}
	if f, ok := fr.First("file_size"); ok {
		out.FileSize, _ = f.Int64()
	}
	if f, ok := fr.First("md5_code"); ok {
		out.MD5Code, _ = f.String()
	}
	return out, nil
}

// BlockRequestBody is the body of /block requests:
// {block_id, file_id, task_id, offset, block_size} all i64.
type BlockRequestBody struct {
	BlockID   int64
	FileID    int64
	TaskID    int64
	Offset    int64
	BlockSize int64
}

func BuildBlockRequest(b BlockRequestBody, requestID uint64) []byte {
	body := wire.NewEncoder(0).
		Append(wire.NewIntField("block_id", wire.TypeInt64, b.BlockID)).
		Append(wire.NewIntField("file_id", wire.TypeInt64, b.FileID)).
		Append(wire.NewIntField("task_id", wire.TypeInt64, b.TaskID)).
		Append(wire.NewIntField("offset", wire.TypeInt64, b.Offset)).
		Append(wire.NewIntField("block_size", wire.TypeInt64, b.BlockSize)).
		Finalize()
	return BuildRequest(RequestGET, PathBlock, ContentBinary, body, requestID)
}

func ParseBlockRequestBody(data []byte, limits wire.Limits) (BlockRequestBody, error) {
	fr, err := wire.Decode(data, limits)
	if err != nil {
		return BlockRequestBody{}, err
	}
	var out BlockRequestBody
	if f, ok := fr.First("block_id"); ok {
		out.BlockID, _ = f.Int64()
	}
	if f, ok := fr.First("file_id"); ok {
		out.FileID, _ = f.Int64()
	}
	if f, ok := fr.First("task_id"); ok {
		out.TaskID, _ = f.Int64()
	}
	if f, ok := fr.First("offset"); ok {
		out.Offset, _ = f.Int64()
	}
	if f, ok := fr.First("block_size"); ok {
		out.BlockSize, _ = f.Int64()
	}
	return out, nil
}

// BlockResponseBody is the body of /block responses:
// {block_id, file_id, task_id, offset, block_size} all i64, plus
// data:byte_array.
type BlockResponseBody struct {
	BlockID   int64
	FileID    int64
	TaskID    int64
	Offset    int64
	BlockSize int64
	Data      []byte
}

func BuildBlockResponse(b BlockResponseBody, requestID uint64) []byte {
	body := wire.NewEncoder(0).
		Append(wire.NewIntField("block_id", wire.TypeInt64, b.BlockID)).
		Append(wire.NewIntField("file_id", wire.TypeInt64, b.FileID)).
		Append(wire.NewIntField("task_id", wire.TypeInt64, b.TaskID)).
		Append(wire.NewIntField("offset", wire.TypeInt64, b.Offset)).
		Append(wire.NewIntField("block_size", wire.TypeInt64, b.BlockSize)).
		Append(wire.NewByteArrayField("data", b.Data)).
		Finalize()
	return BuildResponse(requestID, StatusOK, ContentBinary, body)
}

func ParseBlockResponseBody(data []byte, limits wire.Limits) (BlockResponseBody, error) {
	fr, err := wire.Decode(data, limits)
	if err != nil {
		return BlockResponseBody{}, err
	}
	var out BlockResponseBody
	if f, ok := fr.First("block_id"); ok {
		out.BlockID, _ = f.Int64()
	}
	if f, ok := fr.First("file_id"); ok {
		out.FileID, _ = f.Int64()
	}
	if f, ok := fr.First("task_id"); ok {
		out.TaskID, _ = f.Int64()
	}
	if f, ok := fr.First("offset"); ok {
		out.Offset, _ = f.Int64()
	}
	if f, ok := fr.First("block_size"); ok {
		out.BlockSize, _ = f.Int64()
	}
	if f, ok := fr.First("data"); ok {
		out.Data, _ = f.ByteArray()
	}
	return out, nil
}
