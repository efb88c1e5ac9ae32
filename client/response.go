package client

import (
	"encoding/json"
	"net/http"
)

// Response is a completed exchange with a body of type T.
type Response[T any] struct {
	StatusCode int
	Header     http.Header
	Body       T
	// Request is the request as sent, after interceptors ran.
	Request *Request
}

// IsSuccess reports a 2xx status.
func (r *Response[T]) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Consumed summarises a body delivered to a consumer.
type Consumed struct {
	// Chunks is the number of consumer calls.
	Chunks int
	// Bytes is the number of body bytes read.
	Bytes int64
}

// DecodeJSON returns a decoder for SendAsync that unmarshals JSON into T.
func DecodeJSON[T any]() func([]byte) (T, error) {
	return func(data []byte) (T, error) {
		var v T
		err := json.Unmarshal(data, &v)
		return v, err
	}
}
