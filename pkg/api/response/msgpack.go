package response

import (
	"github.com/tinylib/msgp/msgp"
)

type Msgpack struct {
	code int
	body msgp.Marshaler
	buf  []byte
}

func NewMsgpack(code int, body msgp.Marshaler) *Msgpack {
	return &Msgpack{
		code: code,
		body: body,
		buf:  getBuffer(),
	}
}

func (r *Msgpack) Code() int {
	return r.code
}

func (r *Msgpack) Close() {
	putBuffer(r.buf)
}

func (r *Msgpack) Body() ([]byte, error) {
	var err error
	r.buf, err = r.body.MarshalMsg(r.buf[:0])
	return r.buf, err
}

func (r *Msgpack) Headers() map[string]string {
	return map[string]string{"content-type": "application/x-msgpack"}
}
