// Package source opens the payloads named on the mpstream command line.
//
// A ref is "-" for stdin, s3://bucket/key, oss://bucket/key, or a local
// path.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

var ErrInvalidRef = errors.New("source: invalid ref")

// Payload is an opened stream plus whatever is known about it. Size is -1
// and ContentType empty when unknown.
type Payload struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

type Config struct {
	S3Region           string
	OSSEndpoint        string
	OSSRegion          string
	OSSAccessKeyID     string
	OSSAccessKeySecret string
}

// Resolver opens refs. Object storage clients are created on first use.
type Resolver struct {
	cfg    Config
	logger zerolog.Logger
	stdin  io.Reader
	s3     S3API
	oss    OSSAPI
}

type Option func(*Resolver)

func WithStdin(r io.Reader) Option {
	return func(res *Resolver) { res.stdin = r }
}

func WithS3Client(c S3API) Option {
	return func(res *Resolver) { res.s3 = c }
}

func WithOSSClient(c OSSAPI) Option {
	return func(res *Resolver) { res.oss = c }
}

func NewResolver(cfg Config, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:    cfg,
		logger: logger,
		stdin:  os.Stdin,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Open(ctx context.Context, ref string) (*Payload, error) {
	switch {
	case ref == "":
		return nil, fmt.Errorf("%w: empty", ErrInvalidRef)
	case ref == "-":
		return &Payload{Body: io.NopCloser(r.stdin), Size: -1}, nil
	case strings.HasPrefix(ref, "s3://"):
		bucket, key, err := splitObjectRef(ref)
		if err != nil {
			return nil, err
		}
		return r.openS3(ctx, bucket, key)
	case strings.HasPrefix(ref, "oss://"):
		bucket, key, err := splitObjectRef(ref)
		if err != nil {
			return nil, err
		}
		return r.openOSS(ctx, bucket, key)
	default:
		return r.openFile(ref)
	}
}

func splitObjectRef(ref string) (bucket, key string, err error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", ErrInvalidRef, ref, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s: want %s://bucket/key", ErrInvalidRef, ref, u.Scheme)
	}
	return u.Host, key, nil
}

func (r *Resolver) openFile(name string) (*Payload, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	stats, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stats.IsDir() {
		f.Close()
		return nil, fmt.Errorf("source: %s is a directory", name)
	}

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source: detecting content type of %s: %w", name, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	r.logger.Debug().Str("path", name).Str("content_type", mtype.String()).Int64("size", stats.Size()).Msg("opened file")
	return &Payload{
		Body:        f,
		Filename:    path.Base(stats.Name()),
		ContentType: mtype.String(),
		Size:        stats.Size(),
	}, nil
}
