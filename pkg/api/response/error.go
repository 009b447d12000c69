package response

import (
	"fmt"

	"github.com/grafana/metricreduce/pkg/errors"
)

type ErrorResp struct {
	code int
	err  string
}

// WrapError turns any error into a response. The status code comes from
// the first error in the chain that carries one, and defaults to 500.
func WrapError(e error) *ErrorResp {
	if err, ok := e.(*ErrorResp); ok {
		return err
	}
	return &ErrorResp{
		err:  e.Error(),
		code: errors.Code(e),
	}
}

func Errorf(code int, format string, a ...interface{}) *ErrorResp {
	return &ErrorResp{
		code: code,
		err:  fmt.Sprintf(format, a...),
	}
}

func (r *ErrorResp) Error() string {
	return r.err
}

func (r *ErrorResp) HTTPStatusCode() int {
	return r.code
}

func (r *ErrorResp) Code() int {
	return r.code
}

func (r *ErrorResp) Close() {}

func (r *ErrorResp) Body() ([]byte, error) {
	return []byte(r.err), nil
}

func (r *ErrorResp) Headers() map[string]string {
	return map[string]string{"content-type": "text/plain"}
}
