package mpstream

import (
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func seeded() Option {
	return WithRand(rand.New(rand.NewPCG(1, 2)))
}

func textPart(boundary, name, value string) string {
	return "\r\n--" + boundary +
		"\r\nContent-Disposition: form-data; name=\"" + name + "\"\r\n\r\n" +
		value
}

func streamPart(boundary, name, contentType, payload string) string {
	return "\r\n--" + boundary +
		"\r\nContent-Disposition: form-data; name=\"" + name + "\"" +
		"\r\nContent-Type: " + contentType + "\r\n\r\n" +
		payload
}

func filePart(boundary, name, filename, contentType, payload string) string {
	return "\r\n--" + boundary +
		"\r\nContent-Disposition: form-data; name=\"" + name + "\"; filename=\"" + filename + "\"" +
		"\r\nContent-Type: " + contentType + "\r\n\r\n" +
		payload
}

func closing(boundary string) string {
	return "\r\n--" + boundary + "--"
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

// readChunks drains r with a buffer of size n.
func readChunks(t *testing.T, r io.Reader, n int) string {
	t.Helper()
	var out []byte
	buf := make([]byte, n)
	for {
		nn, err := r.Read(buf)
		out = append(out, buf[:nn]...)
		if err == io.EOF {
			return string(out)
		}
		require.NoError(t, err)
	}
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

type closeRecorder struct {
	io.Reader
	closed int
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.err
}

// countedReader has a Len that is not the number of unread bytes.
type countedReader struct {
	io.Reader
	count int
}

func (c *countedReader) Len() int { return c.count }
