package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3API is the subset of the S3 client used for uploads.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// S3Options configures an S3Store.
type S3Options struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string // custom endpoint for S3 compatible storage; enables path style
}

// S3Store keeps uploads in an S3 bucket under <prefix>/<owner>/<id><ext>.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

var _ Uploader = (*S3Store)(nil)

// NewS3Store builds a store from the default AWS credential chain.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 uploads need a bucket")
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) Create(ctx context.Context, ownerID string, r io.Reader, name string) (*Upload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", name, err)
	}

	id := ContentID(data)
	key := path.Join(s.prefix, ownerDir(ownerID), objectName(id, name))
	head := data
	if len(head) > 3072 {
		head = head[:3072]
	}
	contentType := detectContentType(head, name)
	up := &Upload{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Location:    "s3://" + s.bucket + "/" + key,
	}

	// any head failure, not just a 404, falls through to a put
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err == nil {
		zerolog.Ctx(ctx).Debug().Str("upload_id", id).Str("key", key).Msg("upload already stored")
		return up, nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"owner":         ownerID,
			"declared-name": name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("upload_id", id).
		Str("bucket", s.bucket).
		Str("key", key).
		Msg("stored upload")

	return up, nil
}
