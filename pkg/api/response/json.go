package response

import (
	json "github.com/goccy/go-json"
	"github.com/tinylib/msgp/msgp"
)

// Body is anything both encoders can serialize, such as render.Document
// and render.Named.
type Body interface {
	json.Marshaler
	msgp.Marshaler
}

type Json struct {
	code int
	body json.Marshaler
}

func NewJson(code int, body json.Marshaler) *Json {
	return &Json{
		code: code,
		body: body,
	}
}

func (r *Json) Code() int {
	return r.code
}

func (r *Json) Close() {}

func (r *Json) Body() ([]byte, error) {
	return json.Marshal(r.body)
}

func (r *Json) Headers() map[string]string {
	return map[string]string{"content-type": "application/json"}
}
