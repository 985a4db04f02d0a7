package mpstream

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	jsoniter "github.com/json-iterator/go"
)

// DefaultContentType is used for stream fields added without ContentType.
const DefaultContentType = "application/octet-stream"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// field is a text field when payload is nil.
type field struct {
	name    string
	text    string
	payload io.Reader
	stream  streamOptions
}

// FieldSet collects form fields in order until Prepare turns them into a
// Body. The zero value is ready to use with default options.
type FieldSet struct {
	opts   *options
	fields []field
}

func NewFieldSet(opts ...Option) *FieldSet {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &FieldSet{opts: &o}
}

func (fs *FieldSet) options() options {
	if fs.opts == nil {
		return defaultOptions()
	}
	return *fs.opts
}

// Len returns the number of fields added since the last Prepare.
func (fs *FieldSet) Len() int {
	return len(fs.fields)
}

// AddText appends a text field. Duplicate names are allowed.
func (fs *FieldSet) AddText(name, value string) {
	fs.fields = append(fs.fields, field{name: name, text: value})
}

// AddStream appends a field whose content is read from r when the prepared
// Body is read. The FieldSet, and later the Body, owns r from here on; if r
// is an io.Closer it is closed by Body.Close.
func (fs *FieldSet) AddStream(name string, r io.Reader, opts ...StreamOption) {
	if r == nil {
		r = strings.NewReader("")
	}
	so := streamOptions{contentType: DefaultContentType, size: -1}
	for _, opt := range opts {
		opt(&so)
	}
	if so.size < 0 {
		so.size = payloadSize(r)
	}
	fs.fields = append(fs.fields, field{name: name, payload: r, stream: so})
}

// AddJSON marshals v and appends it as a text field.
func (fs *FieldSet) AddJSON(name string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf(`mpstream: error marshalling field "%s" to json: %w`, name, err)
	}
	fs.AddText(name, string(encoded))
	return nil
}

// AddFile opens the file at path and appends it as a stream field named
// after the file, with a content type sniffed from its contents.
func (fs *FieldSet) AddFile(name, path string) error {
	stats, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf(`mpstream: error creating file field "%s": %w`, name, err)
	}
	if stats.IsDir() {
		return fmt.Errorf(
			`mpstream: error creating file field "%s": path "%s" is a directory`,
			name, path,
		)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf(`mpstream: error detecting content type of "%s": %w`, path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf(`mpstream: error creating file field "%s": %w`, name, err)
	}
	fs.AddStream(name, f,
		Filename(stats.Name()),
		ContentType(mtype.String()),
		Size(stats.Size()),
	)
	return nil
}

// Prepare renders every field against a freshly generated boundary and
// returns the Body to read them from. The FieldSet is left empty.
func (fs *FieldSet) Prepare() *Body {
	o := fs.options()
	return fs.prepare(randomBoundary(o.rand), o)
}

// PrepareWithBoundary is Prepare with a caller-chosen boundary, which must
// satisfy RFC 2046.
func (fs *FieldSet) PrepareWithBoundary(boundary string) (*Body, error) {
	if err := validateBoundary(boundary); err != nil {
		return nil, err
	}
	return fs.prepare(boundary, fs.options()), nil
}

func (fs *FieldSet) prepare(boundary string, o options) *Body {
	delimiter := "\r\n--" + boundary

	var (
		text    bytes.Buffer
		streams []*fieldEncoder
		closers []io.Closer
	)
	for _, f := range fs.fields {
		if f.payload == nil {
			name := f.name
			if o.escapeQuotes {
				name = escapeQuotes(name)
			}
			writeTextHeader(&text, delimiter, name)
			text.WriteString(f.text)
			continue
		}
		streams = append(streams, newFieldEncoder(delimiter, f, o.escapeQuotes))
		if c, ok := f.payload.(io.Closer); ok {
			closers = append(closers, c)
		}
	}
	fs.fields = nil

	var tail []byte
	if text.Len() > 0 || len(streams) > 0 {
		tail = []byte(delimiter + "--")
	}
	if o.reversedStreams {
		slices.Reverse(streams)
	}

	length := int64(text.Len() + len(tail))
	for _, s := range streams {
		n := s.encodedLen()
		if n < 0 {
			length = -1
			break
		}
		length += n
	}

	o.logger.Debug().
		Str("boundary", boundary).
		Int("text_bytes", text.Len()).
		Int("streams", len(streams)).
		Int64("content_length", length).
		Msg("mpstream: prepared body")

	return &Body{
		boundary: boundary,
		text:     bytes.NewReader(text.Bytes()),
		streams:  streams,
		tail:     bytes.NewReader(tail),
		closers:  closers,
		length:   length,
		logger:   o.logger,
	}
}
