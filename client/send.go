package client

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/resilience"
)

const chunkSize = 32 * 1024

// deliverFunc runs a consumer call unless the send already completed.
type deliverFunc func(fn func() error) (bool, error)

// bodyReader drains a response body into a T.
type bodyReader[T any] func(ctx context.Context, r io.Reader, deliver deliverFunc) (T, error)

// SendAsync sends req and decodes the buffered body with decode.
func SendAsync[T any](c *Client, req *Request, decode func([]byte) (T, error)) *Future[*Response[T]] {
	return send(c, req, func(_ context.Context, r io.Reader, _ deliverFunc) (T, error) {
		var zero T
		data, err := io.ReadAll(r)
		if err != nil {
			return zero, err
		}
		v, err := decode(data)
		if err != nil {
			return zero, errors.Decode(err)
		}
		return v, nil
	})
}

// SendBytes sends req and buffers the body.
func (c *Client) SendBytes(req *Request) *Future[*Response[[]byte]] {
	return send(c, req, func(_ context.Context, r io.Reader, _ deliverFunc) ([]byte, error) {
		return io.ReadAll(r)
	})
}

// SendString sends req and buffers the body as a string.
func (c *Client) SendString(req *Request) *Future[*Response[string]] {
	return send(c, req, func(_ context.Context, r io.Reader, _ deliverFunc) (string, error) {
		data, err := io.ReadAll(r)
		return string(data), err
	})
}

// ConsumeBytes sends req and hands the body to consumer chunk by chunk.
// A chunk is only valid during the call. The future completes after the
// last chunk; a consumer error aborts the exchange and fails the future.
func (c *Client) ConsumeBytes(req *Request, consumer func(chunk []byte) error) *Future[*Response[Consumed]] {
	return send(c, req, func(ctx context.Context, r io.Reader, deliver deliverFunc) (Consumed, error) {
		var out Consumed
		buf := make([]byte, chunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				ran, cerr := deliver(func() error { return consumer(buf[:n]) })
				if !ran {
					return out, context.Cause(ctx)
				}
				out.Chunks++
				out.Bytes += int64(n)
				if cerr != nil {
					return out, consumerError{cerr}
				}
			}
			if err == io.EOF {
				return out, nil
			}
			if err != nil {
				return out, err
			}
		}
	})
}

// ConsumeLines sends req and hands the body to consumer line by line,
// without the trailing "\n" or "\r\n".
func (c *Client) ConsumeLines(req *Request, consumer func(line string) error) *Future[*Response[Consumed]] {
	return send(c, req, func(ctx context.Context, r io.Reader, deliver deliverFunc) (Consumed, error) {
		var out Consumed
		br := bufio.NewReaderSize(r, chunkSize)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 {
				ran, cerr := deliver(func() error { return consumer(trimEOL(line)) })
				if !ran {
					return out, context.Cause(ctx)
				}
				out.Chunks++
				out.Bytes += int64(len(line))
				if cerr != nil {
					return out, consumerError{cerr}
				}
			}
			if err == io.EOF {
				return out, nil
			}
			if err != nil {
				return out, err
			}
		}
	})
}

func trimEOL(line string) string {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n]
}

type consumerError struct{ err error }

func (e consumerError) Error() string { return e.err.Error() }
func (e consumerError) Unwrap() error { return e.err }

func send[T any](c *Client, req *Request, read bodyReader[T]) *Future[*Response[T]] {
	if req == nil {
		return failedFuture[*Response[T]](errors.InvalidInput("request", "nil request"))
	}
	if err := c.checkRequest(req); err != nil {
		return failedFuture[*Response[T]](err)
	}

	ctx, cancel := context.WithCancelCause(c.ctx)
	f := newFuture[*Response[T]](cancel)
	id, ok := c.track(f.fail)
	if !ok {
		cancel(nil)
		return failedFuture[*Response[T]](errors.ClientClosed())
	}

	go func() {
		defer c.untrack(id)
		defer cancel(nil)
		resp, err := execute(ctx, c, req, read, f.deliver)
		if err != nil {
			f.complete(nil, settle(ctx, err))
			return
		}
		f.complete(resp, nil)
	}()
	return f
}

func (c *Client) checkRequest(req *Request) error {
	caps := c.backend.Capabilities()
	switch req.url.Scheme {
	case "ws", "wss":
		return errors.InvalidInput("uri", "use a WebSocket builder for "+req.url.Scheme+" targets")
	}
	if req.body.kind == BodyStream && caps.Of(OptStreamedBody) == Unsupported {
		return errors.UnsupportedOption(c.backend.Name(), string(OptStreamedBody))
	}
	if req.expectContinue && caps.Of(OptExpectContinue) == Unsupported {
		return errors.UnsupportedOption(c.backend.Name(), string(OptExpectContinue))
	}
	return nil
}

func execute[T any](ctx context.Context, c *Client, req *Request, read bodyReader[T], deliver deliverFunc) (*Response[T], error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, rejected(ctx, err)
		}
	}
	if c.bulkhead != nil {
		release, err := c.bulkhead.Acquire(ctx)
		if err != nil {
			return nil, rejected(ctx, err)
		}
		defer release()
	}

	var res exchangeResult
	roundTrip := func() error {
		var err error
		if c.state.Retry != nil && req.Replayable() {
			res, err = resilience.Retry(ctx, *c.state.Retry, func(attempt int) (exchangeResult, error) {
				return c.attempt(ctx, req, attempt)
			})
			return err
		}
		res, err = c.attempt(ctx, req, 1)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(roundTrip)
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			err = errors.Transport(errors.ReasonRejected, err)
		}
	} else {
		err = roundTrip()
	}
	if err != nil {
		return nil, err
	}
	defer res.raw.Body.Close()

	body, err := read(ctx, res.raw.Body, deliver)
	if err != nil {
		return nil, bodyError(ctx, err)
	}
	return &Response[T]{
		StatusCode: res.raw.StatusCode,
		Header:     res.raw.Header,
		Body:       body,
		Request:    res.sent,
	}, nil
}

type exchangeResult struct {
	sent *Request
	raw  *RawResponse
}

// attempt runs the Before hooks, one round trip and the After hooks.
// A cancelled exchange skips the After hooks.
func (c *Client) attempt(ctx context.Context, req *Request, n int) (exchangeResult, error) {
	started := time.Now()
	rb := req.ToBuilder()
	for name, ic := range c.state.Interceptors.All() {
		if err := ic.Before(ctx, rb); err != nil {
			return exchangeResult{}, errors.Interceptor(name, "before", err)
		}
	}
	sent, err := rb.Build()
	if err != nil {
		return exchangeResult{}, err
	}
	if ctx.Err() != nil {
		return exchangeResult{}, ctx.Err()
	}

	raw, rtErr := c.transport.t.RoundTrip(ctx, sent)
	if ctx.Err() != nil {
		closeRaw(raw)
		return exchangeResult{}, ctx.Err()
	}
	if rtErr == nil && (raw == nil || raw.Body == nil) {
		closeRaw(raw)
		raw, rtErr = nil, errors.Transport(errors.ReasonIO, errNoResponse)
	}

	ex := &Exchange{
		Request: sent,
		Err:     rtErr,
		Attempt: n,
		Header:  make(http.Header),
		Started: started,
		Elapsed: time.Since(started),
	}
	if raw != nil {
		ex.StatusCode = raw.StatusCode
		if raw.Header != nil {
			ex.Header = raw.Header
		}
	}
	for name, ic := range c.state.Interceptors.All() {
		if err := ic.After(ctx, ex); err != nil {
			closeRaw(raw)
			return exchangeResult{}, errors.Interceptor(name, "after", err)
		}
	}

	switch {
	case ex.Err != nil:
		closeRaw(raw)
		return exchangeResult{}, ex.Err
	case raw == nil:
		return exchangeResult{}, rtErr
	}
	raw.Header = ex.Header
	return exchangeResult{sent: sent, raw: raw}, nil
}

var errNoResponse = stderrors.New("transport returned no response")

func closeRaw(raw *RawResponse) {
	if raw != nil && raw.Body != nil {
		_ = raw.Body.Close()
	}
}

// settle maps a failure to the cancellation that caused it, if any.
func settle(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if cause := context.Cause(ctx); errors.IsClientClosed(cause) {
		return errors.ClientClosed()
	}
	return errors.Cancelled(err)
}

func rejected(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.Transport(errors.ReasonRejected, err)
}

func bodyError(ctx context.Context, err error) error {
	var ce consumerError
	switch {
	case stderrors.As(err, &ce):
		return ce.err
	case ctx.Err() != nil, errors.IsAppError(err):
		return err
	}
	return errors.Transport(errors.ReasonIO, err)
}
