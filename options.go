package mpstream

import (
	"github.com/rs/zerolog"
)

type options struct {
	rand            RandSource
	logger          zerolog.Logger
	reversedStreams bool
	escapeQuotes    bool
}

func defaultOptions() options {
	return options{
		rand:   globalRand{},
		logger: zerolog.Nop(),
	}
}

// Option configures a FieldSet.
type Option func(*options)

// WithRand sets the source used to generate boundaries. Tests pass a seeded
// *rand.Rand to get a deterministic boundary.
func WithRand(src RandSource) Option {
	return func(o *options) {
		if src != nil {
			o.rand = src
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReversedStreams emits stream fields most recently added first, the
// order produced by earlier versions of this encoder. Text fields and the
// closing delimiter are unaffected.
func WithReversedStreams() Option {
	return func(o *options) {
		o.reversedStreams = true
	}
}

// WithQuoteEscaping escapes backslashes and double quotes in field names and
// filenames, matching mime/multipart.
func WithQuoteEscaping() Option {
	return func(o *options) {
		o.escapeQuotes = true
	}
}

type streamOptions struct {
	filename    string
	hasFilename bool
	contentType string
	size        int64
}

// StreamOption configures a single stream field.
type StreamOption func(*streamOptions)

// Filename adds a filename parameter to the field's Content-Disposition.
// An empty name still emits filename="".
func Filename(name string) StreamOption {
	return func(o *streamOptions) {
		o.filename = name
		o.hasFilename = true
	}
}

// ContentType overrides DefaultContentType.
func ContentType(contentType string) StreamOption {
	return func(o *streamOptions) {
		o.contentType = contentType
	}
}

// Size declares the payload length in bytes. It only feeds
// Body.ContentLength; the payload's own EOF still ends the field.
func Size(n int64) StreamOption {
	return func(o *streamOptions) {
		o.size = n
	}
}
