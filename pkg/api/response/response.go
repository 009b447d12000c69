// Package response wraps rendered documents and errors into bodies with a
// status code and content type.
package response

import (
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Response is a body ready to be shipped, together with what the receiver
// needs to interpret it. Close must be called once the body is no longer
// used.
type Response interface {
	Code() int
	Body() ([]byte, error)
	Headers() map[string]string
	Close()
}

// bufferPool holds the buffers msgp responses serialize into.
var bufferPool = sync.Pool{
	New: func() interface{} { return make([]byte, 0, 512) },
}

func getBuffer() []byte {
	return bufferPool.Get().([]byte)
}

func putBuffer(buf []byte) {
	bufferPool.Put(buf[:0])
}

// New returns a response for body in the given output format, "json" or
// "msgpack".
func New(format string, code int, body Body) (Response, error) {
	switch format {
	case "json", "":
		return NewJson(code, body), nil
	case "msgpack", "msgp":
		return NewMsgpack(code, body), nil
	}
	return nil, Errorf(http.StatusBadRequest, "unknown output format %q", format)
}

// Write writes the body of resp to w and closes resp.
func Write(w io.Writer, resp Response) error {
	defer resp.Close()
	body, err := resp.Body()
	if err != nil {
		return fmt.Errorf("response: %w", err)
	}
	_, err = w.Write(body)
	return err
}
