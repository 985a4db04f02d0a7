package source

import (
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of *s3.Client the resolver uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func (r *Resolver) s3Client(ctx context.Context) (S3API, error) {
	if r.s3 != nil {
		return r.s3, nil
	}
	var opts []func(*config.LoadOptions) error
	if r.cfg.S3Region != "" {
		opts = append(opts, config.WithRegion(r.cfg.S3Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("source: load aws config: %w", err)
	}
	r.s3 = s3.NewFromConfig(awsCfg)
	return r.s3, nil
}

func (r *Resolver) openS3(ctx context.Context, bucket, key string) (*Payload, error) {
	client, err := r.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("source: s3 get %s/%s: %w", bucket, key, err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	r.logger.Debug().Str("bucket", bucket).Str("key", key).Int64("size", size).Msg("opened s3 object")
	return &Payload{
		Body:        out.Body,
		Filename:    path.Base(key),
		ContentType: aws.ToString(out.ContentType),
		Size:        size,
	}, nil
}
