package csda

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Stream is an open HTTP response whose body is read incrementally in
// chunks of at most the client's chunk size.
//
// Prefer [Client.WithStream], which closes the stream on every exit path.
// When using [Client.Stream] directly, always close the stream:
//
//	stream, err := client.Stream(ctx, http.MethodGet, path)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	for stream.Next() {
//	    w.Write(stream.Chunk())
//	}
//	if err := stream.Err(); err != nil {
//	    return err
//	}
type Stream struct {
	resp   *http.Response
	buf    []byte
	chunk  []byte
	err    error
	eof    bool
	closed atomic.Bool
}

// Next reads the next non-empty chunk. It returns false when the body is
// exhausted, the stream is closed, or a read fails; check [Stream.Err] to
// tell them apart.
//
// Only io.EOF ends the stream cleanly. A body cut short of its declared
// length surfaces as io.ErrUnexpectedEOF from [Stream.Err].
func (s *Stream) Next() bool {
	if s.closed.Load() || s.err != nil || s.eof {
		return false
	}

	n := 0
	for n < len(s.buf) {
		m, err := s.resp.Body.Read(s.buf[n:])
		n += m
		if err == io.EOF {
			s.eof = true
			break
		}
		if err != nil {
			// Deliver what was read; the error surfaces from Err.
			s.err = err
			break
		}
	}

	if n == 0 {
		s.chunk = nil
		return false
	}
	s.chunk = s.buf[:n]
	return true
}

// Chunk returns the current chunk. The slice is reused by the next call
// to [Stream.Next].
func (s *Stream) Chunk() []byte {
	return s.chunk
}

// Err returns the first read error, if any. A fully consumed body is not
// an error.
func (s *Stream) Err() error {
	return s.err
}

// StatusCode returns the final response status.
func (s *Stream) StatusCode() int {
	return s.resp.StatusCode
}

// Header returns the final response headers.
func (s *Stream) Header() http.Header {
	return s.resp.Header
}

// Close releases the underlying connection. It is safe to call multiple
// times.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.resp != nil && s.resp.Body != nil {
		return s.resp.Body.Close()
	}
	return nil
}

// Stream opens a streamed response. Redirects are always followed and a
// non-2xx final status is returned as an error before any of the body is
// read; in that case the connection is already released.
func (c *Client) Stream(ctx context.Context, method, path string) (*Stream, error) {
	start := time.Now()

	req, err := c.newRequest(ctx, &Request{Method: method, Path: path})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.client(true).Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, newError(CodeRequestFailed, fmt.Sprintf("%s %s", req.Method, req.URL.Redacted()), 0, err)
	}

	c.logger.Debug("HTTP stream opened",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, statusError(req, resp.StatusCode, body)
	}

	return &Stream{
		resp: resp,
		buf:  make([]byte, c.chunkSize),
	}, nil
}

// WithStream opens a stream, hands it to fn and closes it when fn
// returns or panics. The error from fn takes precedence over the one from
// closing.
func (c *Client) WithStream(ctx context.Context, method, path string, fn func(*Stream) error) (err error) {
	stream, err := c.Stream(ctx, method, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := fn(stream); err != nil {
		return err
	}
	return stream.Err()
}
