package mpstream

import (
	"bytes"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Same limit bufio uses before giving up on a reader that keeps returning
// 0, nil.
const maxConsecutiveEmptyReads = 100

// Body is a prepared multipart/form-data body. Reads drain the rendered text
// fields, then each stream field (header, then payload), then the closing
// delimiter. Payloads are only read when the caller asks for bytes.
//
// A Body is meant to be read by one goroutine. After a read error its state
// is undefined and the body should be abandoned.
type Body struct {
	boundary string
	text     *bytes.Reader
	streams  []*fieldEncoder
	tail     *bytes.Reader
	closers  []io.Closer
	length   int64
	logger   zerolog.Logger
}

// Boundary returns the boundary token, without the leading dashes.
func (b *Body) Boundary() string {
	return b.boundary
}

// ContentType returns the value for the request's Content-Type header. The
// boundary is quoted when it holds characters a bare parameter value cannot.
func (b *Body) ContentType() string {
	boundary := b.boundary
	if strings.ContainsAny(boundary, tspecials) {
		boundary = `"` + boundary + `"`
	}
	return "multipart/form-data; boundary=" + boundary
}

// ContentLength returns the total body length, or -1 when a stream field has
// an unknown size.
func (b *Body) ContentLength() int64 {
	return b.length
}

func (b *Body) exhausted() bool {
	return b.text.Len() == 0 && len(b.streams) == 0 && b.tail.Len() == 0
}

// Read fills p until it is full or the body ends. The end of the body is
// reported as 0, io.EOF, on this and every later call.
func (b *Body) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	var (
		nn    int
		empty int
	)
	for n < len(p) && !b.exhausted() {
		switch {
		case b.text.Len() > 0:
			nn, _ = b.text.Read(p[n:])
			n += nn

		case len(b.streams) > 0:
			field := b.streams[0]
			nn, err = field.Read(p[n:])
			n += nn
			if err == io.EOF {
				b.logger.Trace().Str("field", field.name).Msg("mpstream: stream field done")
				b.streams[0] = nil
				b.streams = b.streams[1:]
				empty, err = 0, nil
				continue
			}
			if err != nil {
				b.logger.Debug().Err(err).Str("field", field.name).Msg("mpstream: stream field read failed")
				return n, err
			}
			if nn > 0 {
				empty = 0
				continue
			}
			empty++
			if empty >= maxConsecutiveEmptyReads {
				return n, io.ErrNoProgress
			}

		default:
			nn, _ = b.tail.Read(p[n:])
			n += nn
		}
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Close closes every stream payload that implements io.Closer, whether or
// not it has been read. Only the first call does anything.
func (b *Body) Close() error {
	closers := b.closers
	b.closers = nil

	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &CloseError{Errs: errs}
	}
}

// CloseError is returned by Body.Close when more than one payload failed to
// close.
type CloseError struct {
	Errs []error
}

func (e *CloseError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "mpstream: closing fields: " + strings.Join(msgs, "; ")
}

func (e *CloseError) Unwrap() []error {
	return e.Errs
}
