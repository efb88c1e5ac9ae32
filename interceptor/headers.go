package interceptor

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/httpkit/client"
)

// DefaultRequestIDHeader carries the request id.
const DefaultRequestIDHeader = "X-Request-ID"

// RequestID sets header to a fresh UUID on requests that lack one. An
// empty header means DefaultRequestIDHeader. Retried attempts each get
// their own id unless the request itself carries one.
func RequestID(header string) client.Interceptor {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return client.InterceptorFuncs{
		BeforeFunc: func(_ context.Context, rb *client.RequestBuilder) error {
			if len(rb.HeaderValues(header)) == 0 {
				rb.SetHeader(header, uuid.NewString())
			}
			return nil
		},
	}
}

// DefaultHeaders adds every header in h that the request does not set.
func DefaultHeaders(h http.Header) client.Interceptor {
	h = h.Clone()
	return client.InterceptorFuncs{
		BeforeFunc: func(_ context.Context, rb *client.RequestBuilder) error {
			for name, values := range h {
				if len(rb.HeaderValues(name)) > 0 {
					continue
				}
				for _, v := range values {
					rb.Header(name, v)
				}
			}
			return nil
		},
	}
}
