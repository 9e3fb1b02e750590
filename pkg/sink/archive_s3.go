package sink

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archiver uploads closed Store files to a cold-archive S3 bucket.
// The rotation boundary is also the upload boundary: a file is archived
// right after it is sealed, synchronously inside the Store.Write that
// rotates it (or Store.Close), before the next file is opened; that call
// waits for the upload to finish.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3ArchiverConfig configures an S3Archiver.
type S3ArchiverConfig struct {
	// Bucket is the destination bucket name.
	Bucket string

	// Prefix is prepended to the uploaded object key (no leading/trailing
	// slash required).
	Prefix string

	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string

	// Region, if empty, is resolved by the AWS SDK's default chain.
	Region string
}

// NewS3Archiver builds an S3Archiver, resolving AWS credentials through the
// SDK's default chain (environment, shared config, EC2 IMDS).
func NewS3Archiver(ctx context.Context, cfg S3ArchiverConfig) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("sink: s3 archiver: bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sink: s3 archiver: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Archive implements Archiver by streaming localPath to the configured
// bucket under <prefix>/<base name>, then leaving the local file in place -
// Store.Close never deletes files itself, only the caller decides that.
func (a *S3Archiver) Archive(localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sink: s3 archiver: open %s: %w", localPath, err)
	}
	defer f.Close()

	key := path.Base(localPath)
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}

	_, err = a.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("sink: s3 archiver: put %s/%s: %w", a.bucket, key, err)
	}
	return nil
}
