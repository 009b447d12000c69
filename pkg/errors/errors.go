// Package errors holds the error kinds shared by the reduction packages.
// Every error carries the status code a response layer should use for it.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Coded is implemented by errors that know their response status code.
type Coded interface {
	HTTPStatusCode() int
	Error() string
}

// Code returns the status code of the first Coded error in err's chain,
// or 500 if there is none.
func Code(err error) int {
	var c Coded
	if errors.As(err, &c) {
		return c.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}

type BadRequest string

func NewBadRequest(err string) BadRequest {
	return BadRequest(err)
}

func NewBadRequestf(format string, a ...interface{}) BadRequest {
	return BadRequest(fmt.Sprintf(format, a...))
}

func (b BadRequest) HTTPStatusCode() int {
	return http.StatusBadRequest
}

func (b BadRequest) Error() string {
	return string(b)
}
