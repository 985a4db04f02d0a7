package source

import (
	"context"
	"fmt"
	"path"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
)

// OSSAPI is the part of *oss.Client the resolver uses.
type OSSAPI interface {
	GetObject(ctx context.Context, request *oss.GetObjectRequest, optFns ...func(*oss.Options)) (*oss.GetObjectResult, error)
}

func (r *Resolver) ossClient() OSSAPI {
	if r.oss != nil {
		return r.oss
	}
	var provider credentials.CredentialsProvider
	if r.cfg.OSSAccessKeyID != "" {
		provider = credentials.NewStaticCredentialsProvider(r.cfg.OSSAccessKeyID, r.cfg.OSSAccessKeySecret, "")
	} else {
		provider = credentials.NewEnvironmentVariableCredentialsProvider()
	}
	cfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(provider).
		WithRegion(r.cfg.OSSRegion)
	if r.cfg.OSSEndpoint != "" {
		cfg = cfg.WithEndpoint(r.cfg.OSSEndpoint)
	}
	r.oss = oss.NewClient(cfg)
	return r.oss
}

func (r *Resolver) openOSS(ctx context.Context, bucket, key string) (*Payload, error) {
	out, err := r.ossClient().GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(bucket),
		Key:    oss.Ptr(key),
	})
	if err != nil {
		return nil, fmt.Errorf("source: oss get %s/%s: %w", bucket, key, err)
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	r.logger.Debug().Str("bucket", bucket).Str("key", key).Int64("size", out.ContentLength).Msg("opened oss object")
	return &Payload{
		Body:        out.Body,
		Filename:    path.Base(key),
		ContentType: contentType,
		Size:        out.ContentLength,
	}, nil
}
