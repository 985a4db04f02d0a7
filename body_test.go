package mpstream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/Pallinder/go-randomdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	name     string
	text     string
	isStream bool
}

func randomFixtures(n int) []fixture {
	fixtures := make([]fixture, n)
	for i := range fixtures {
		fixtures[i] = fixture{
			name:     randomdata.SillyName(),
			text:     randomdata.Paragraph(),
			isStream: randomdata.Boolean(),
		}
	}
	return fixtures
}

func prepareFixtures(t *testing.T, fixtures []fixture) *Body {
	t.Helper()
	fs := NewFieldSet()
	for _, f := range fixtures {
		if f.isStream {
			// Hide Len so the field is read as a plain stream.
			fs.AddStream(f.name, io.MultiReader(strings.NewReader(f.text)), Filename(f.name+".txt"))
		} else {
			fs.AddText(f.name, f.text)
		}
	}
	body, err := fs.PrepareWithBoundary("fixtureboundary")
	require.NoError(t, err)
	return body
}

func TestBodyChunkingInvariance(t *testing.T) {
	fixtures := randomFixtures(12)
	want := readAll(t, prepareFixtures(t, fixtures))
	require.NotEmpty(t, want)

	for _, size := range []int{1, 2, 3, 7, 16, 100, 1 << 16} {
		assert.Equal(t, want, readChunks(t, prepareFixtures(t, fixtures), size), "buffer size %d", size)
	}
	assert.Equal(t, want, readAll(t, iotest.OneByteReader(prepareFixtures(t, fixtures))))
	assert.Equal(t, want, readAll(t, iotest.HalfReader(prepareFixtures(t, fixtures))))
	assert.NoError(t, iotest.TestReader(prepareFixtures(t, fixtures), []byte(want)))
}

func TestBodyZeroLengthRead(t *testing.T) {
	fs := NewFieldSet()
	fs.AddText("a", "hello")
	fs.AddStream("b", readerFunc(func(p []byte) (int, error) {
		t.Fatal("payload read for an empty buffer")
		return 0, nil
	}))
	body, err := fs.PrepareWithBoundary("B")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		n, err := body.Read(nil)
		assert.Equal(t, 0, n)
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(len(textPart("B", "a", "hello"))), int64(body.text.Len()))
}

func TestBodyExhaustionIsSticky(t *testing.T) {
	fs := NewFieldSet()
	fs.AddText("a", "b")
	fs.AddStream("c", strings.NewReader("d"))
	body := fs.Prepare()
	readAll(t, body)

	buf := make([]byte, 32)
	for i := 0; i < 5; i++ {
		n, err := body.Read(buf)
		assert.Equal(t, 0, n)
		assert.Equal(t, io.EOF, err)
	}
}

func TestBodyFillsBuffer(t *testing.T) {
	fs := NewFieldSet()
	fs.AddText("a", "0123456789")
	fs.AddStream("b", iotest.OneByteReader(strings.NewReader("abcdef")))
	body, err := fs.PrepareWithBoundary("B")
	require.NoError(t, err)

	want := textPart("B", "a", "0123456789") + streamPart("B", "b", DefaultContentType, "abcdef") + closing("B")
	buf := make([]byte, len(want)-1)
	n, err := body.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, want[:n], string(buf))

	n, err = body.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, want[len(want)-1:], string(buf[:n]))
}

func TestBodyDataWithEOF(t *testing.T) {
	fs := NewFieldSet()
	fs.AddStream("a", iotest.DataErrReader(strings.NewReader("first")))
	fs.AddStream("b", iotest.DataErrReader(strings.NewReader("second")))
	body, err := fs.PrepareWithBoundary("B")
	require.NoError(t, err)

	want := streamPart("B", "a", DefaultContentType, "first") +
		streamPart("B", "b", DefaultContentType, "second") +
		closing("B")
	assert.Equal(t, want, readChunks(t, body, 3))
}

func TestBodyRetriesEmptyReads(t *testing.T) {
	empties := 5
	payload := strings.NewReader("late")
	fs := NewFieldSet()
	fs.AddStream("slow", readerFunc(func(p []byte) (int, error) {
		if empties > 0 {
			empties--
			return 0, nil
		}
		return payload.Read(p)
	}))
	body, err := fs.PrepareWithBoundary("B")
	require.NoError(t, err)

	assert.Equal(t, streamPart("B", "slow", DefaultContentType, "late")+closing("B"), readAll(t, body))
}

func TestBodyNoProgress(t *testing.T) {
	fs := NewFieldSet()
	fs.AddStream("stuck", readerFunc(func(p []byte) (int, error) { return 0, nil }))
	body, err := fs.PrepareWithBoundary("B")
	require.NoError(t, err)

	buf := make([]byte, 1024)
	n, err := body.Read(buf)
	assert.ErrorIs(t, err, io.ErrNoProgress)
	assert.Equal(t, streamPart("B", "stuck", DefaultContentType, ""), string(buf[:n]))
}

func TestBodyPayloadError(t *testing.T) {
	boom := errors.New("boom")
	fs := NewFieldSet()
	fs.AddText("t", "text")
	fs.AddStream("bad", io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(boom)))
	fs.AddStream("good", strings.NewReader("never"))
	body, err := fs.PrepareWithBoundary("B")
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = io.Copy(&out, iotest.HalfReader(body))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, textPart("B", "t", "text")+streamPart("B", "bad", DefaultContentType, "abc"), out.String())
}

func TestBodyContentLength(t *testing.T) {
	t.Run("known", func(t *testing.T) {
		fs := NewFieldSet()
		fs.AddText("a", "1")
		fs.AddStream("b", strings.NewReader("22"))
		fs.AddStream("c", bytes.NewBufferString("333"))
		fs.AddStream("d", io.MultiReader(strings.NewReader("4444")), Size(4))
		body := fs.Prepare()
		assert.Equal(t, int64(len(readAll(t, body))), body.ContentLength())
	})

	t.Run("foreign Len is not trusted", func(t *testing.T) {
		fs := NewFieldSet()
		fs.AddStream("b", &countedReader{Reader: strings.NewReader("payload"), count: 1})
		body := fs.Prepare()
		assert.Equal(t, int64(-1), body.ContentLength())
		assert.Contains(t, readAll(t, body), "payload")
	})

	t.Run("unknown", func(t *testing.T) {
		fs := NewFieldSet()
		fs.AddText("a", "1")
		fs.AddStream("b", io.MultiReader(strings.NewReader("22")))
		assert.Equal(t, int64(-1), fs.Prepare().ContentLength())
	})
}

func TestBodyClose(t *testing.T) {
	t.Run("closes every payload once", func(t *testing.T) {
		a := &closeRecorder{Reader: strings.NewReader("a")}
		b := &closeRecorder{Reader: strings.NewReader("b")}
		fs := NewFieldSet()
		fs.AddStream("a", a)
		fs.AddText("t", "v")
		fs.AddStream("b", b)
		body := fs.Prepare()

		assert.NoError(t, body.Close())
		assert.NoError(t, body.Close())
		assert.Equal(t, 1, a.closed)
		assert.Equal(t, 1, b.closed)
	})

	t.Run("single failure", func(t *testing.T) {
		errA := errors.New("a")
		fs := NewFieldSet()
		fs.AddStream("a", &closeRecorder{Reader: strings.NewReader(""), err: errA})
		assert.Equal(t, errA, fs.Prepare().Close())
	})

	t.Run("aggregates failures", func(t *testing.T) {
		errA, errB := errors.New("a"), errors.New("b")
		fs := NewFieldSet()
		fs.AddStream("a", &closeRecorder{Reader: strings.NewReader(""), err: errA})
		fs.AddStream("b", &closeRecorder{Reader: strings.NewReader(""), err: errB})
		err := fs.Prepare().Close()

		var ce *CloseError
		require.ErrorAs(t, err, &ce)
		assert.Len(t, ce.Errs, 2)
		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
		assert.Equal(t, "mpstream: closing fields: a; b", err.Error())
	})
}
