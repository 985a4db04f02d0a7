package mpstream

import (
	"bytes"
	"io"
	"os"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// writeTextHeader renders the preamble of a text field. delimiter is
// "\r\n--" followed by the boundary.
func writeTextHeader(b *bytes.Buffer, delimiter, name string) {
	b.WriteString(delimiter)
	b.WriteString("\r\nContent-Disposition: form-data; name=\"")
	b.WriteString(name)
	b.WriteString("\"\r\n\r\n")
}

func writeStreamHeader(b *bytes.Buffer, delimiter, name string, so streamOptions) {
	b.WriteString(delimiter)
	b.WriteString("\r\nContent-Disposition: form-data; name=\"")
	b.WriteString(name)
	b.WriteByte('"')
	if so.hasFilename {
		b.WriteString("; filename=\"")
		b.WriteString(so.filename)
		b.WriteByte('"')
	}
	b.WriteString("\r\nContent-Type: ")
	b.WriteString(so.contentType)
	b.WriteString("\r\n\r\n")
}

// fieldEncoder serves one stream field: its rendered header first, then
// every read goes straight to the payload.
type fieldEncoder struct {
	name    string
	header  *bytes.Reader
	payload io.Reader
	size    int64
}

func newFieldEncoder(delimiter string, f field, escape bool) *fieldEncoder {
	name, so := f.name, f.stream
	if escape {
		name = escapeQuotes(name)
		so.filename = escapeQuotes(so.filename)
	}
	var b bytes.Buffer
	writeStreamHeader(&b, delimiter, name, so)
	return &fieldEncoder{
		name:    f.name,
		header:  bytes.NewReader(b.Bytes()),
		payload: f.payload,
		size:    so.size,
	}
}

func (e *fieldEncoder) Read(p []byte) (int, error) {
	if e.header.Len() > 0 {
		return e.header.Read(p)
	}
	return e.payload.Read(p)
}

// encodedLen is the total number of bytes the field produces, or -1.
func (e *fieldEncoder) encodedLen() int64 {
	if e.size < 0 {
		return -1
	}
	return e.header.Size() + e.size
}

// payloadSize reports how many bytes r will yield, or -1 when that cannot be
// known without reading it. Only types whose Len is the unread length count.
func payloadSize(r io.Reader) int64 {
	switch v := r.(type) {
	case *bytes.Reader:
		return int64(v.Len())
	case *bytes.Buffer:
		return int64(v.Len())
	case *strings.Reader:
		return int64(v.Len())
	case *os.File:
		stats, err := v.Stat()
		if err != nil || !stats.Mode().IsRegular() {
			return -1
		}
		offset, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1
		}
		return stats.Size() - offset
	}
	return -1
}
